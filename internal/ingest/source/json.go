package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/ragrec/internal/domain/item"
)

// ItemRecord is the on-disk and wire shape of a corpus item.
// Description is accepted as an alias of Text.
type ItemRecord struct {
	ID          string            `json:"id,omitempty"`
	Title       string            `json:"title"`
	Text        string            `json:"text,omitempty"`
	Description string            `json:"description,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

// ToItem validates the record. A missing id is replaced by a random UUID.
func (r ItemRecord) ToItem() (item.CorpusItem, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		id = uuid.NewString()
	}
	text := r.Text
	if strings.TrimSpace(text) == "" {
		text = r.Description
	}
	return item.New(id, r.Title, text, r.Tags) //nolint:wrapcheck // domain validation error
}

// Records converts validated records, failing on the first invalid one.
func Records(records []ItemRecord) ([]item.CorpusItem, error) {
	out := make([]item.CorpusItem, 0, len(records))
	for i, r := range records {
		it, err := r.ToItem()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, it)
	}
	return out, nil
}

// JSONFile loads a JSON array of ItemRecord.
type JSONFile struct {
	Path string
}

// Kind implements Loader.
func (j *JSONFile) Kind() string { return KindJSON }

// Origin implements Loader.
func (j *JSONFile) Origin() string { return j.Path }

// Load reads and validates every record. One bad record fails the file.
func (j *JSONFile) Load(ctx context.Context) ([]item.CorpusItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context error
	}
	data, err := os.ReadFile(j.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", j.Path, err)
	}
	var records []ItemRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", j.Path, err)
	}
	for i := range records {
		records[i].Tags = tags(KindJSON, j.Path, records[i].Tags)
	}
	items, err := Records(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", j.Path, err)
	}
	return items, nil
}
