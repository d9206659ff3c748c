// Package duckduckgo implements the search Backend against DuckDuckGo's
// HTML endpoint, which needs no API key.
package duckduckgo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/nadzzz/shouldi/internal/config"
	"github.com/nadzzz/shouldi/internal/search"
)

const (
	defaultEndpoint  = "https://html.duckduckgo.com/html/"
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) shouldi/1.0"
)

// Backend queries DuckDuckGo and scrapes result snippets.
type Backend struct {
	endpoint  string
	userAgent string
	region    string
	client    *http.Client
}

// New creates a DuckDuckGo backend from config.
func New(cfg config.SearchConfig) *Backend {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Backend{
		endpoint:  endpoint,
		userAgent: defaultUserAgent,
		region:    cfg.Region,
		client:    &http.Client{Timeout: timeout},
	}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "duckduckgo" }

// Search posts the query to the HTML endpoint and returns up to maxResults hits.
func (b *Backend) Search(ctx context.Context, query string, maxResults int) ([]search.Hit, error) {
	form := url.Values{}
	form.Set("q", query)
	if b.region != "" {
		form.Set("kl", b.region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("duckduckgo search failed (status %d): %s", resp.StatusCode, respBody)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("parsing results page: %w", err)
	}

	hits := parseResults(doc, maxResults)
	slog.Debug("duckduckgo search", "query_length", len(query), "hits", len(hits))
	return hits, nil
}

// parseResults walks the results page collecting organic hits in order.
func parseResults(doc *html.Node, maxResults int) []search.Hit {
	var hits []search.Hit
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if maxResults > 0 && len(hits) >= maxResults {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, "result") {
			if hasClass(n, "result--ad") {
				return
			}
			if hit, ok := parseResult(n); ok {
				hits = append(hits, hit)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return hits
}

func parseResult(n *html.Node) (search.Hit, bool) {
	var hit search.Hit
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a") && hit.Title == "":
				hit.Title = textContent(n)
				hit.URL = attr(n, "href")
			case hasClass(n, "result__snippet") && hit.Body == "":
				hit.Body = textContent(n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return hit, hit.Body != ""
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
