package memory_service //nolint:revive // var-naming: using underscores for domain clarity

import "strings"

// greetings are short pleasantries that are never important on their own.
var greetings = []string{
	"你好", "hello", "hi", "再见", "bye", "谢谢", "thanks",
	"早上好", "晚上好", "早安", "晚安", "good morning", "good night",
}

// keywordCategory groups the trigger keywords for one event type.
type keywordCategory struct {
	eventType string
	keywords  []string
}

// keywordTable lists the recognised event types in priority order. The first
// category with a keyword hit decides the event type.
var keywordTable = []keywordCategory{
	{EventBirthday, []string{"生日", "birthday", "出生"}},
	{EventPreference, []string{"喜欢", "不喜欢", "爱好", "兴趣", "喜好", "favorite", "prefer"}},
	{EventGoal, []string{"目标", "计划", "打算", "想要", "希望", "goal", "plan"}},
	{EventLifeEvent, []string{"毕业", "工作", "结婚", "搬家", "生病", "恋爱"}},
	{EventEmotion, []string{"难过", "开心", "焦虑", "压力", "担心", "害怕"}},
	{EventRelationship, []string{"朋友", "家人", "父母", "孩子", "男朋友", "女朋友"}},
}

// matchKeywords returns the keywords from the category present in content.
// Table keywords are stored lowercase; callers pass lowercased content.
func matchKeywords(content string, category keywordCategory) []string {
	var matched []string
	for _, kw := range category.keywords {
		if strings.Contains(content, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// containsGreeting reports whether content contains any known greeting,
// case-insensitively.
func containsGreeting(content string) bool {
	lowered := strings.ToLower(content)
	for _, g := range greetings {
		if strings.Contains(lowered, g) {
			return true
		}
	}
	return false
}
