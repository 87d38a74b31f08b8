package speech

import (
	"regexp"
	"strings"
)

var (
	linkPattern       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)

	markupReplacer = strings.NewReplacer(
		"*", "",
		"#", "",
		"_", "",
		"`", "",
		"[", "",
		"]", "",
	)
)

// SanitizeSpeechText strips presentation markup from model text so the
// synthesized voice does not read symbols out loud. Link labels are kept,
// their targets and any bare URLs are dropped.
func SanitizeSpeechText(raw string) string {
	raw = linkPattern.ReplaceAllString(raw, "$1")
	raw = urlPattern.ReplaceAllString(raw, "")
	raw = markupReplacer.Replace(raw)
	raw = whitespacePattern.ReplaceAllString(raw, " ")

	return strings.TrimSpace(raw)
}
