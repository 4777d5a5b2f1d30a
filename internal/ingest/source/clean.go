package source

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TruncationMarker is appended to text cut at Cleaner.MaxChars.
const TruncationMarker = "\n\n[Content truncated]"

// Redaction replaces banned words.
const Redaction = "[REDACTED]"

var (
	urlPattern   = regexp.MustCompile(`https?://\S+`)
	emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Cleaner normalizes free text before it is indexed: URLs and e-mail
// addresses are removed, whitespace collapsed, banned words redacted and
// the result truncated. The zero value only strips and collapses.
type Cleaner struct {
	BannedWords []string
	MaxChars    int // 0 = no limit

	banned []*regexp.Regexp
}

// NewCleaner compiles the banned word list.
func NewCleaner(banned []string, maxChars int) Cleaner {
	c := Cleaner{BannedWords: banned, MaxChars: maxChars}
	for _, w := range banned {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		c.banned = append(c.banned, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return c
}

// Clean applies every rule in order.
func (c Cleaner) Clean(text string) string {
	text = urlPattern.ReplaceAllString(text, "")
	text = emailPattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
	for _, re := range c.banned {
		text = re.ReplaceAllString(text, Redaction)
	}
	return c.truncate(text)
}

// truncate cuts at MaxChars runes, never inside a multi-byte character.
func (c Cleaner) truncate(text string) string {
	if c.MaxChars <= 0 || utf8.RuneCountInString(text) <= c.MaxChars {
		return text
	}
	n := 0
	for i := range text {
		if n == c.MaxChars {
			return text[:i] + TruncationMarker
		}
		n++
	}
	return text
}
