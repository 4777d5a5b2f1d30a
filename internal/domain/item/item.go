package item

import (
	"fmt"
	"maps"
	"strings"

	"github.com/kailas-cloud/ragrec/internal/domain"
)

// MaxTextSize is the maximum item text size in bytes.
const MaxTextSize = 163840 // 160KB

// MaxIDLength bounds item identifiers.
const MaxIDLength = 256

// CorpusItem is a retrievable unit of the corpus (immutable value object).
// Items with the same ID may coexist in an index; the index never deduplicates.
type CorpusItem struct {
	id    string
	title string
	text  string
	tags  map[string]string
}

// New validates and creates a CorpusItem.
// ID: non-empty, max 256 chars. Text: non-empty after trimming, max 160KB.
// Title may be empty; formatting substitutes a placeholder.
func New(id, title, text string, tags map[string]string) (CorpusItem, error) {
	if strings.TrimSpace(id) == "" {
		return CorpusItem{}, fmt.Errorf("%w: id is required", domain.ErrInvalidItem)
	}
	if len(id) > MaxIDLength {
		return CorpusItem{}, fmt.Errorf("%w: id too long (max %d)", domain.ErrInvalidItem, MaxIDLength)
	}
	if strings.TrimSpace(text) == "" {
		return CorpusItem{}, fmt.Errorf("%w: item %q has no text", domain.ErrInvalidItem, id)
	}
	if len(text) > MaxTextSize {
		return CorpusItem{}, fmt.Errorf("%w: item %q text too large (max %d bytes)", domain.ErrInvalidItem, id, MaxTextSize)
	}

	return CorpusItem{
		id:    id,
		title: title,
		text:  text,
		tags:  maps.Clone(tags),
	}, nil
}

// Reconstruct creates a CorpusItem without validation (storage hydration).
func Reconstruct(id, title, text string, tags map[string]string) CorpusItem {
	return CorpusItem{id: id, title: title, text: text, tags: tags}
}

// ID returns the item identifier.
func (i CorpusItem) ID() string { return i.id }

// Title returns the display title, possibly empty.
func (i CorpusItem) Title() string { return i.title }

// Text returns the item body.
func (i CorpusItem) Text() string { return i.text }

// Tags returns a copy of the metadata tags.
func (i CorpusItem) Tags() map[string]string { return maps.Clone(i.tags) }

// Tag returns a single tag value.
func (i CorpusItem) Tag(key string) (string, bool) {
	v, ok := i.tags[key]
	return v, ok
}

// EmbeddingText is the text that gets vectorized for this item: "title - text".
func (i CorpusItem) EmbeddingText() string {
	if strings.TrimSpace(i.title) == "" {
		return i.text
	}
	return i.title + " - " + i.text
}

// Vectorized pairs an item with its embedding, ready for indexing.
type Vectorized struct {
	Item   CorpusItem
	Vector []float32
}
