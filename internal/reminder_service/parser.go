// Package reminder_service parses natural-language reminder requests and
// schedules their delivery.
package reminder_service //nolint:revive // var-naming: using underscores for domain clarity

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// timeUnits maps a recognised unit to its length in minutes.
var timeUnits = map[string]float64{
	"分钟": 1, "分": 1, "分鐘": 1,
	"min": 1, "minute": 1, "minutes": 1,
	"小时": 60, "小時": 60, "个小时": 60, "個小時": 60,
	"hour": 60, "hours": 60, "hr": 60, "h": 60,
	"天": 1440, "day": 1440, "days": 1440,
}

// chineseNumbers maps single Chinese numerals to their value. Composed
// numerals like 十五 are handled in parseAmount.
var chineseNumbers = map[string]float64{
	"一": 1, "二": 2, "三": 3, "四": 4, "五": 5,
	"六": 6, "七": 7, "八": 8, "九": 9, "十": 10,
	"半": 0.5, "两": 2, "兩": 2,
}

const (
	amountPattern = `(\d+|[一二三四五六七八九十两兩半]+)`
	unitPattern   = `(分钟|分|分鐘|小时|小時|个小时|個小時|天|hour|hours|minute|minutes|min|day|days|hr|h)`
)

// reminderPatterns covers the supported phrasings. Each pattern captures
// amount, unit and reminder content, in that order.
var reminderPatterns = []*regexp.Regexp{
	// "X分钟后提醒我..." and "X分钟后记得提醒我..."
	regexp.MustCompile(`(?i)` + amountPattern + `\s*` + unitPattern + `后[记記]?[得要]?提醒我(.+)`),
	// "提醒我X分钟后..."
	regexp.MustCompile(`(?i)提醒我` + amountPattern + `\s*` + unitPattern + `后(.+)`),
	// "过X分钟提醒我..."
	regexp.MustCompile(`(?i)过[了]?` + amountPattern + `\s*` + unitPattern + `提醒我(.+)`),
	// "remind me in X minutes to ..."
	regexp.MustCompile(`(?i)remind me in (\d+)\s*(minute|minutes|min|hour|hours|hr|h|day|days)s?\s+(?:to\s+)?(.+)`),
	// "in X minutes remind me to ..."
	regexp.MustCompile(`(?i)in (\d+)\s*(minute|minutes|min|hour|hours|hr|h|day|days)s?\s+remind me\s+(?:to\s+)?(.+)`),
}

// Request is a parsed reminder: deliver Content after Minutes.
type Request struct {
	Minutes int
	Content string
}

// Parser extracts reminder requests from chat messages. It holds no state;
// calls may run concurrently.
type Parser struct{}

// NewParser creates a reminder parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse extracts a reminder request from the message. The second return
// value is false when the message is not a reminder request.
func (p *Parser) Parse(message string) (Request, bool) {
	message = strings.TrimSpace(message)

	for _, pattern := range reminderPatterns {
		match := pattern.FindStringSubmatch(message)
		if match == nil {
			continue
		}

		amount, ok := parseAmount(match[1])
		if !ok {
			continue
		}

		unit := strings.ToLower(match[2])
		minutes := int(amount * timeUnits[unit])
		content := cleanContent(match[3])

		if content != "" && minutes > 0 {
			return Request{Minutes: minutes, Content: content}, true
		}
	}
	return Request{}, false
}

// parseAmount converts an Arabic or Chinese numeral string to a value.
// Composed forms around 十 are supported, e.g. 十五, 二十, 三十五.
func parseAmount(s string) (float64, bool) {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}

	if v, ok := chineseNumbers[s]; ok {
		return v, true
	}

	if strings.Contains(s, "十") {
		if s == "十" {
			return 10, true
		}
		if rest, found := strings.CutPrefix(s, "十"); found {
			if v, ok := chineseNumbers[rest]; ok {
				return 10 + v, true
			}
			return 0, false
		}
		parts := strings.Split(s, "十")
		if len(parts) == 2 {
			tens := chineseNumbers[parts[0]] * 10
			ones := 0.0
			if parts[1] != "" {
				ones = chineseNumbers[parts[1]]
			}
			return tens + ones, true
		}
	}

	return 0, false
}

// cleanContent strips a leading filler verb and trailing punctuation from
// the reminder content.
func cleanContent(content string) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) > 1 {
		if rest, found := strings.CutPrefix(content, "要"); found {
			content = rest
		} else if rest, found := strings.CutPrefix(content, "去"); found {
			content = rest
		}
	}
	content = strings.TrimRight(content, "。！？!?")
	return strings.TrimSpace(content)
}
