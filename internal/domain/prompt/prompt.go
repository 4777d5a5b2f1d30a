// Package prompt implements the recommender prompt template: plain substitution
// of the profile, input and context slots, no conditionals or loops.
package prompt

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragrec/internal/domain"
)

// Slot names accepted by the template.
const (
	SlotProfile = "profile"
	SlotInput   = "input"
	SlotContext = "context"
)

// Slots lists every slot the builder requires, in a stable order.
var Slots = []string{SlotProfile, SlotInput, SlotContext}

// DefaultTemplate is the stock movie recommender prompt. Literal braces are escaped as {{ and }}.
const DefaultTemplate = `You are a movie recommendation assistant.

User profile: {profile}
User query: {input}

Relevant items from database:
{context}

Return a JSON object with:
- "recommendations": list of up to 3 items with title, score (0.0-1.0), and reason
- Only include items that match the profile and query

Example:
{{
  "recommendations": [
    {{"title": "Inception", "score": 0.95, "reason": "Mind-bending sci-fi with AI themes"}},
    {{"title": "The Matrix", "score": 0.93, "reason": "Reality simulation and action"}}
  ]
}}

Respond ONLY with valid JSON. No extra text.
`

type segment struct {
	literal string
	slot    string // empty for literal segments
}

// Template is a compiled prompt template. Safe for concurrent use.
type Template struct {
	segments []segment
}

// New compiles text. Unknown slots and unbalanced braces fail with domain.ErrTemplate.
func New(text string) (*Template, error) {
	var (
		segs []segment
		lit  strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed '{' at offset %d", domain.ErrTemplate, i)
			}
			name := text[i+1 : i+1+end]
			if !isSlot(name) {
				return nil, fmt.Errorf("%w: unknown slot {%s}", domain.ErrTemplate, name)
			}
			flush()
			segs = append(segs, segment{slot: name})
			i += end + 1
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("%w: single '}' at offset %d", domain.ErrTemplate, i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()

	return &Template{segments: segs}, nil
}

// MustNew compiles text or panics. For package-level defaults only.
func MustNew(text string) *Template {
	t, err := New(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the compiled DefaultTemplate.
func Default() *Template {
	return MustNew(DefaultTemplate)
}

// Build substitutes values into the template. Every slot in Slots must be
// present in values, even if the template does not reference it.
func (t *Template) Build(values map[string]string) (string, error) {
	for _, s := range Slots {
		if _, ok := values[s]; !ok {
			return "", fmt.Errorf("%w: missing slot %q", domain.ErrTemplate, s)
		}
	}

	var b strings.Builder
	for _, seg := range t.segments {
		if seg.slot == "" {
			b.WriteString(seg.literal)
			continue
		}
		b.WriteString(values[seg.slot])
	}
	return b.String(), nil
}

func isSlot(name string) bool {
	for _, s := range Slots {
		if s == name {
			return true
		}
	}
	return false
}
