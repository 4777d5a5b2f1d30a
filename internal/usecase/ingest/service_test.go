package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/ragrec/internal/domain"
	"github.com/kailas-cloud/ragrec/internal/domain/item"
	"github.com/kailas-cloud/ragrec/internal/index/memory"
	"github.com/kailas-cloud/ragrec/internal/ingest/source"
	"github.com/kailas-cloud/ragrec/internal/metrics"
	"github.com/kailas-cloud/ragrec/internal/transport/hashing"
)

type stubLoader struct {
	kind  string
	items []item.CorpusItem
	err   error
}

func (l stubLoader) Kind() string   { return l.kind }
func (l stubLoader) Origin() string { return "stub" }

func (l stubLoader) Load(ctx context.Context) ([]item.CorpusItem, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.items, ctx.Err()
}

type countingEmbedder struct {
	inner      *hashing.Embedder
	batchCalls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	c.batchCalls++
	return c.inner.BatchEmbed(ctx, texts)
}

func mustItem(t *testing.T, id, title, text string, tags map[string]string) item.CorpusItem {
	t.Helper()
	it, err := item.New(id, title, text, tags)
	if err != nil {
		t.Fatalf("item.New: %v", err)
	}
	return it
}

func setup(t *testing.T, dim int) (*Service, *memory.Index, *countingEmbedder) {
	t.Helper()
	h, err := hashing.New(dim)
	if err != nil {
		t.Fatalf("hashing.New: %v", err)
	}
	idx, err := memory.New(dim)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	emb := &countingEmbedder{inner: h}
	return New(emb, idx, 2, nil), idx, emb
}

func TestAdd_RoundTrip(t *testing.T) {
	svc, idx, emb := setup(t, 64)
	ctx := context.Background()
	inception := mustItem(t, "1", "Inception", "Dream heist with AI", map[string]string{"genre": "sci-fi"})
	dune := mustItem(t, "2", "Dune", "Desert planet saga", nil)

	report, err := svc.Add(ctx, []item.CorpusItem{inception, dune})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if report.Items != 2 || report.BySource["api"] != 2 {
		t.Errorf("unexpected report: %+v", report)
	}
	if emb.batchCalls != 1 {
		t.Errorf("expected one batch embedding call, got %d", emb.batchCalls)
	}

	q, _ := emb.Embed(ctx, inception.EmbeddingText())
	hits, err := idx.Search(ctx, q.Embedding, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits[0].Item().ID() != "1" {
		t.Fatalf("expected Inception first, got %s", hits[0].Item().ID())
	}
	if g, _ := hits[0].Item().Tag("genre"); g != "sci-fi" {
		t.Errorf("tags must survive indexing, got %q", g)
	}
}

func TestAdd_ClientTagsDoNotLabelMetrics(t *testing.T) {
	svc, _, _ := setup(t, 16)
	records := make([]source.ItemRecord, 50)
	for i := range records {
		records[i] = source.ItemRecord{
			Title: fmt.Sprintf("Film %d", i),
			Text:  "plot",
			Tags:  map[string]string{"source": fmt.Sprintf("client-%d", i)},
		}
	}
	items, err := source.Records(records)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}

	before := testutil.CollectAndCount(metrics.IngestItemsTotal)
	report, err := svc.Add(context.Background(), items)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(report.BySource) != 1 || report.BySource[KindAPI] != 50 {
		t.Errorf("expected all items under %q, got %+v", KindAPI, report.BySource)
	}
	if added := testutil.CollectAndCount(metrics.IngestItemsTotal) - before; added > 1 {
		t.Errorf("client tags created %d metric series", added)
	}
	if s, _ := items[0].Tag("source"); s != "client-0" {
		t.Errorf("client tag must be kept as metadata, got %q", s)
	}
}

func TestIngest_CountsByLoaderKind(t *testing.T) {
	svc, _, _ := setup(t, 16)
	spoofed := mustItem(t, "x", "X", "text", map[string]string{"source": "spoofed"})

	report, err := svc.Ingest(context.Background(), []source.Loader{
		stubLoader{kind: source.KindURL, items: []item.CorpusItem{spoofed}},
		stubLoader{kind: source.KindPDF},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(report.BySource) != 1 || report.BySource[source.KindURL] != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestAdd_Empty(t *testing.T) {
	svc, _, emb := setup(t, 8)
	report, err := svc.Add(context.Background(), nil)
	if err != nil || report.Items != 0 {
		t.Fatalf("unexpected: %+v %v", report, err)
	}
	if emb.batchCalls != 0 {
		t.Error("embedder must not be called for an empty batch")
	}
}

func TestAdd_DimensionMismatchIndexesNothing(t *testing.T) {
	h, _ := hashing.New(16)
	idx, _ := memory.New(8)
	svc := New(h, idx, 0, nil)

	_, err := svc.Add(context.Background(), []item.CorpusItem{mustItem(t, "1", "A", "text", nil)})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if n, _ := svc.Count(context.Background()); n != 0 {
		t.Errorf("expected empty index, got %d", n)
	}
}

func TestIngest_LoadersInOrder(t *testing.T) {
	svc, idx, _ := setup(t, 32)
	ctx := context.Background()
	a := mustItem(t, "a", "A", "alpha", map[string]string{source.TagSource: source.KindJSON})
	b := mustItem(t, "b", "B", "beta", map[string]string{source.TagSource: source.KindURL})
	c := mustItem(t, "c", "C", "gamma", map[string]string{source.TagSource: source.KindJSON})

	report, err := svc.Ingest(ctx, []source.Loader{
		stubLoader{kind: source.KindJSON, items: []item.CorpusItem{a}},
		stubLoader{kind: source.KindURL, items: []item.CorpusItem{b}},
		stubLoader{kind: source.KindJSON, items: []item.CorpusItem{c}},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Items != 3 || report.BySource[source.KindJSON] != 2 || report.BySource[source.KindURL] != 1 {
		t.Errorf("unexpected report: %+v", report)
	}

	items, _ := svc.Load(ctx, []source.Loader{
		stubLoader{items: []item.CorpusItem{a}},
		stubLoader{items: []item.CorpusItem{b, c}},
	})
	if len(items) != 3 || items[0].ID() != "a" || items[2].ID() != "c" {
		t.Errorf("items must keep loader order, got %v", items)
	}
	if n, _ := idx.Count(ctx); n != 3 {
		t.Errorf("expected 3 indexed items, got %d", n)
	}
}

func TestIngest_LoaderErrorIndexesNothing(t *testing.T) {
	svc, idx, _ := setup(t, 16)
	boom := errors.New("boom")
	_, err := svc.Ingest(context.Background(), []source.Loader{
		stubLoader{kind: "ok", items: []item.CorpusItem{mustItem(t, "1", "A", "text", nil)}},
		stubLoader{kind: "bad", err: boom},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n, _ := idx.Count(context.Background()); n != 0 {
		t.Errorf("nothing should be indexed, got %d", n)
	}
}

func TestIngest_JSONFile(t *testing.T) {
	svc, _, _ := setup(t, 16)
	path := filepath.Join(t.TempDir(), "items.json")
	data := `[{"id":"1","title":"Inception","description":"Dream heist"},{"title":"Dune","description":"Desert"}]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	report, err := svc.Ingest(context.Background(), []source.Loader{source.Resolve(path, source.Options{})})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.BySource[source.KindJSON] != 2 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestReset(t *testing.T) {
	svc, _, _ := setup(t, 8)
	ctx := context.Background()
	_, _ = svc.Add(ctx, []item.CorpusItem{mustItem(t, "1", "A", "text", nil)})
	if err := svc.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n, _ := svc.Count(ctx); n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}
