// Package source loads corpus items from files, URLs and raw text.
package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/ragrec/internal/domain/item"
)

// Source kinds, recorded in the TagSource tag of every loaded item.
const (
	KindJSON = "json"
	KindPDF  = "pdf"
	KindURL  = "url"
	KindText = "text"
)

// Tag keys set on loaded items. The leading underscore keeps them apart from
// tags carried by the items themselves.
const (
	TagSource = "_source"
	TagOrigin = "_origin"
)

// Loader produces corpus items from one origin.
type Loader interface {
	Kind() string
	Origin() string
	Load(ctx context.Context) ([]item.CorpusItem, error)
}

// Options configure Resolve.
type Options struct {
	Cleaner  Cleaner
	MaxPages int // PDF pages read, 0 = all
	Fetcher  *Fetcher
}

// Resolve picks a loader for arg: http(s) URLs are fetched, .json files hold
// item lists, .pdf files are extracted, anything else is read as plain text.
func Resolve(arg string, opts Options) Loader {
	lower := strings.ToLower(arg)
	switch {
	case strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://"):
		f := opts.Fetcher
		if f == nil {
			f = NewFetcher(0)
		}
		return &URL{Address: arg, Fetcher: f, Cleaner: opts.Cleaner}
	case filepath.Ext(lower) == ".json":
		return &JSONFile{Path: arg}
	case filepath.Ext(lower) == ".pdf":
		return &PDFFile{Path: arg, MaxPages: opts.MaxPages, Cleaner: opts.Cleaner}
	default:
		return &TextFile{Path: arg, Cleaner: opts.Cleaner}
	}
}

func tags(kind, origin string, extra map[string]string) map[string]string {
	t := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		t[k] = v
	}
	t[TagSource] = kind
	t[TagOrigin] = origin
	return t
}

// titleFromPath turns "/data/My Resume.pdf" into "My Resume".
func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
