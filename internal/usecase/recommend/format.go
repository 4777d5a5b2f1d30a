package recommend

import (
	"strings"

	"github.com/kailas-cloud/ragrec/internal/domain/retrieval"
)

const (
	// EmptyContext replaces the context block when retrieval found nothing.
	EmptyContext = "No items in database."
	// UnknownTitle replaces a blank item title.
	UnknownTitle = "Unknown"
)

// FormatContext renders hits as "{title}: {text}" lines in retrieval order.
// maxChars > 0 drops whole trailing lines once the block would exceed it,
// but the first line is always kept.
func FormatContext(hits []retrieval.Hit, maxChars int) string {
	if len(hits) == 0 {
		return EmptyContext
	}

	var b strings.Builder
	for i, h := range hits {
		line := formatLine(h)
		if i > 0 {
			if maxChars > 0 && b.Len()+1+len(line) > maxChars {
				break
			}
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

func formatLine(h retrieval.Hit) string {
	it := h.Item()
	title := strings.TrimSpace(it.Title())
	if title == "" {
		title = UnknownTitle
	}
	return title + ": " + cleanText(it.Text())
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}
