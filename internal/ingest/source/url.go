package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kailas-cloud/ragrec/internal/domain/item"
)

// DefaultFetchTimeout bounds one page download.
const DefaultFetchTimeout = 10 * time.Second

// maxPageBytes caps the HTML read from one response.
const maxPageBytes = 5 << 20

// UserAgent is sent with every page request; some sites reject Go's default.
const UserAgent = "Mozilla/5.0 (compatible; ragrec)"

// skipped subtrees carry no article text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Header:   true,
	atom.Aside:    true,
	atom.Template: true,
}

// Fetcher downloads web pages.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher. timeout <= 0 uses DefaultFetchTimeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch returns the body of a 2xx response.
func (f *Fetcher) Fetch(ctx context.Context, address string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", address, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", address, err)
	}
	return body, nil
}

// URL loads the visible text of a web page as one item.
type URL struct {
	Address string
	Fetcher *Fetcher
	Cleaner Cleaner
}

// Kind implements Loader.
func (u *URL) Kind() string { return KindURL }

// Origin implements Loader.
func (u *URL) Origin() string { return u.Address }

// Load fetches the page. The item title is the page <title>, else the host.
func (u *URL) Load(ctx context.Context) ([]item.CorpusItem, error) {
	body, err := u.Fetcher.Fetch(ctx, u.Address)
	if err != nil {
		return nil, err
	}
	title, text, err := ExtractHTML(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", u.Address, err)
	}
	if title == "" {
		if parsed, perr := url.Parse(u.Address); perr == nil {
			title = parsed.Host
		}
	}
	return single(KindURL, u.Address, title, u.Cleaner.Clean(text))
}

// ExtractHTML returns the document title and the text of every node outside
// script, style and page chrome (nav, header, footer, aside).
func ExtractHTML(r io.Reader) (title, text string, err error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", "", fmt.Errorf("html: %w", err)
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.DataAtom == atom.Title && title == "" && n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
				return
			}
			if skipped[n.DataAtom] {
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, strings.Join(strings.Fields(b.String()), " "), nil
}
