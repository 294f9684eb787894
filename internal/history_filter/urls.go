package history_filter //nolint:revive // var-naming: using underscores for domain clarity

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// urlPattern recognises fully-qualified URLs and bare www. hosts.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+|www\.[^\s<>"{}|\\^` + "`" + `\[\]]+`)

// urlReplacement substitutes recognised URLs in cleaned content.
const urlReplacement = "[link]"

// ExtractURLs returns every URL found in content, once each, in order of
// first appearance.
func ExtractURLs(content string) []string {
	matches := urlPattern.FindAllString(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		urls = append(urls, m)
	}
	return urls
}

// CleanURLsFromContent replaces every recognised URL occurrence with a fixed
// token, preserving the surrounding text.
func CleanURLsFromContent(content string) string {
	return urlPattern.ReplaceAllString(content, urlReplacement)
}

// IsURLDominated reports whether the turn's informational content is mostly
// shared links: either the URL characters make up at least the configured
// ratio of the content, or stripping the URLs leaves less prose than the
// minimum content length.
func (f *Filter) IsURLDominated(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}

	matches := urlPattern.FindAllString(trimmed, -1)
	if len(matches) == 0 {
		return false
	}

	urlRunes := 0
	for _, m := range matches {
		urlRunes += utf8.RuneCountInString(m)
	}
	totalRunes := utf8.RuneCountInString(trimmed)
	if float64(urlRunes)/float64(totalRunes) >= f.opts.URLRatioThreshold {
		return true
	}

	remaining := strings.TrimSpace(urlPattern.ReplaceAllString(trimmed, ""))
	return utf8.RuneCountInString(remaining) < f.opts.MinContentLength
}
