package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestCleaner_Clean(t *testing.T) {
	c := NewCleaner([]string{"secret", "  "}, 0)
	in := "Contact  jane@example.com\n\nor visit https://example.com/path?q=1 for the SECRET plan.\tSecretive stays."
	got := c.Clean(in)
	want := "Contact or visit for the [REDACTED] plan. Secretive stays."
	if got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

func TestCleaner_Truncates(t *testing.T) {
	c := NewCleaner(nil, 5)
	if got := c.Clean("héllo world"); got != "héllo"+TruncationMarker {
		t.Errorf("got %q", got)
	}
	if got := c.Clean("short"); got != "short" {
		t.Errorf("text at the limit must not be marked, got %q", got)
	}
}

func TestCleaner_ZeroValue(t *testing.T) {
	var c Cleaner
	if got := c.Clean("  a \n b  "); got != "a b" {
		t.Errorf("got %q", got)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		arg  string
		kind string
	}{
		{"https://example.com/page", KindURL},
		{"HTTP://example.com", KindURL},
		{"data/items.json", KindJSON},
		{"resume.PDF", KindPDF},
		{"notes.txt", KindText},
		{"README", KindText},
	}
	for _, tt := range tests {
		if got := Resolve(tt.arg, Options{}).Kind(); got != tt.kind {
			t.Errorf("Resolve(%q) = %s, want %s", tt.arg, got, tt.kind)
		}
	}
}

func TestJSONFile_Load(t *testing.T) {
	path := writeFile(t, "items.json", `[
		{"id":"1","title":"Inception","description":"Dream heist with AI","tags":{"genre":"sci-fi"}},
		{"title":"Dune","text":"Desert planet saga"}
	]`)

	items, err := (&JSONFile{Path: path}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.ID() != "1" || first.Text() != "Dream heist with AI" {
		t.Errorf("unexpected first item: %s %q", first.ID(), first.Text())
	}
	if g, _ := first.Tag("genre"); g != "sci-fi" {
		t.Errorf("expected genre tag, got %q", g)
	}
	if s, _ := first.Tag(TagSource); s != KindJSON {
		t.Errorf("expected source tag json, got %q", s)
	}
	if items[1].ID() == "" {
		t.Error("missing id should be generated")
	}
}

func TestJSONFile_KeepsItemSourceTags(t *testing.T) {
	path := writeFile(t, "items.json", `[
		{"id":"1","title":"Heat","text":"Crime","tags":{"source":"imdb","origin":"1995"}}
	]`)

	items, err := (&JSONFile{Path: path}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s, _ := items[0].Tag("source"); s != "imdb" {
		t.Errorf("item source tag overwritten: %q", s)
	}
	if o, _ := items[0].Tag("origin"); o != "1995" {
		t.Errorf("item origin tag overwritten: %q", o)
	}
	if s, _ := items[0].Tag(TagSource); s != KindJSON {
		t.Errorf("loader source tag: got %q", s)
	}
	if o, _ := items[0].Tag(TagOrigin); o != path {
		t.Errorf("loader origin tag: got %q", o)
	}
}

func TestJSONFile_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := (&JSONFile{Path: filepath.Join(t.TempDir(), "missing.json")}).Load(ctx); err == nil {
		t.Error("expected error for missing file")
	}
	bad := writeFile(t, "bad.json", `{"not":"a list"}`)
	if _, err := (&JSONFile{Path: bad}).Load(ctx); err == nil {
		t.Error("expected error for non-array JSON")
	}
	empty := writeFile(t, "empty.json", `[{"title":"No text"}]`)
	if _, err := (&JSONFile{Path: empty}).Load(ctx); err == nil {
		t.Error("expected error for item without text")
	}
}

func TestTextFile_Load(t *testing.T) {
	path := writeFile(t, "My Notes.txt", "Mail me at a@b.co \n about   films")
	items, err := (&TextFile{Path: path, Cleaner: NewCleaner(nil, 0)}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	it := items[0]
	if it.Title() != "My Notes" || it.Text() != "Mail me at about films" {
		t.Errorf("unexpected item: %q %q", it.Title(), it.Text())
	}
}

func TestText_LoadRejectsBlank(t *testing.T) {
	if _, err := (&Text{Title: "x", Body: "https://only.a/link"}).Load(context.Background()); err == nil {
		t.Error("text that cleans to nothing must be rejected")
	}
}

func TestPDFFile_MissingFile(t *testing.T) {
	_, err := (&PDFFile{Path: filepath.Join(t.TempDir(), "nope.pdf")}).Load(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

const page = `<!doctype html>
<html><head><title> Space Movies </title><style>body{color:red}</style>
<script>var x = "hidden";</script></head>
<body>
<header>Site header</header>
<nav>Home | About</nav>
<article><h1>Interstellar</h1><p>Wormholes and   time dilation.</p></article>
<aside>Ads here</aside>
<footer>Copyright</footer>
</body></html>`

func TestExtractHTML(t *testing.T) {
	title, text, err := ExtractHTML(strings.NewReader(page))
	if err != nil {
		t.Fatalf("ExtractHTML: %v", err)
	}
	if title != "Space Movies" {
		t.Errorf("title = %q", title)
	}
	if text != "Interstellar Wormholes and time dilation." {
		t.Errorf("text = %q", text)
	}
}

func TestURL_Load(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	items, err := Resolve(srv.URL, Options{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if gotUA != UserAgent {
		t.Errorf("expected User-Agent %q, got %q", UserAgent, gotUA)
	}
	if items[0].Title() != "Space Movies" {
		t.Errorf("unexpected title %q", items[0].Title())
	}
	if o, _ := items[0].Tag(TagOrigin); o != srv.URL {
		t.Errorf("expected origin tag %q, got %q", srv.URL, o)
	}
}

func TestURL_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := Resolve(srv.URL, Options{}).Load(context.Background()); err == nil {
		t.Fatal("expected error on 403")
	}
}
