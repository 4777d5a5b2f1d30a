package source

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/kailas-cloud/ragrec/internal/domain/item"
)

// Text is an in-memory document.
type Text struct {
	Title   string
	Body    string
	Cleaner Cleaner
}

// Kind implements Loader.
func (t *Text) Kind() string { return KindText }

// Origin implements Loader.
func (t *Text) Origin() string { return "inline" }

// Load cleans the body into a single item.
func (t *Text) Load(_ context.Context) ([]item.CorpusItem, error) {
	return single(KindText, t.Origin(), t.Title, t.Cleaner.Clean(t.Body))
}

// TextFile is a plain text file indexed as one item titled by its file name.
type TextFile struct {
	Path    string
	Cleaner Cleaner
}

// Kind implements Loader.
func (t *TextFile) Kind() string { return KindText }

// Origin implements Loader.
func (t *TextFile) Origin() string { return t.Path }

// Load reads and cleans the file.
func (t *TextFile) Load(ctx context.Context) ([]item.CorpusItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context error
	}
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.Path, err)
	}
	return single(KindText, t.Path, titleFromPath(t.Path), t.Cleaner.Clean(string(data)))
}

func single(kind, origin, title, text string) ([]item.CorpusItem, error) {
	it, err := item.New(uuid.NewString(), title, text, tags(kind, origin, nil))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", origin, err)
	}
	return []item.CorpusItem{it}, nil
}
