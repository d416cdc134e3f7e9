package capability

import (
	"regexp"
	"strings"
)

var (
	fencedBlockRe = regexp.MustCompile("(?is)```(?:sql)?\\s*(.*?)```")
	selectTokenRe = regexp.MustCompile(`(?i)\bselect\b`)
)

// ExtractSQL strips markdown and prose around a generated statement.
// A fenced code block wins if present; otherwise everything from the
// first (case-insensitive) select token is kept. Text with no select
// token is returned trimmed so the safety check can reject it.
func ExtractSQL(text string) string {
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	text = strings.TrimSpace(text)
	if loc := selectTokenRe.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[loc[0]:])
	}
	return text
}
