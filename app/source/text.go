package source

import (
	"regexp"
	"strings"
)

const maxTags = 10

var (
	hashtagPattern      = regexp.MustCompile(`#(\w+)`)
	weiboHashtagPattern = regexp.MustCompile(`#([^#\s][^#]*?)#`)
)

// truncate cuts s to n runes and appends "..." when anything was dropped.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func extractHashtags(text string) []string {
	return collectMatches(hashtagPattern, text)
}

// extractWeiboTopics returns #topic# style tags.
func extractWeiboTopics(text string) []string {
	return collectMatches(weiboHashtagPattern, text)
}

func collectMatches(pattern *regexp.Regexp, text string) []string {
	matches := pattern.FindAllStringSubmatch(text, maxTags)
	if len(matches) == 0 {
		return nil
	}
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, strings.TrimSpace(m[1]))
	}
	return tags
}

func limitTags(tags []string) []string {
	if len(tags) > maxTags {
		return tags[:maxTags]
	}
	return tags
}
