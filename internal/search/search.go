// Package search implements best-effort web-search augmentation.
//
// The Augmenter turns a question into a block of context text built from the
// top results of a search backend. Failures never abort a request: they come
// back as non-fatal classified errors alongside an empty context.
package search

import (
	"context"
	"log/slog"
	"strings"

	apperrors "github.com/nadzzz/shouldi/internal/errors"
)

// Hit is a single search result.
type Hit struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
	Body  string `json:"body"`
}

// Backend is a keyword search provider.
type Backend interface {
	// Name returns the backend identifier (e.g., "duckduckgo").
	Name() string

	// Search returns at most maxResults hits for query, best first.
	Search(ctx context.Context, query string, maxResults int) ([]Hit, error)
}

// Augmenter builds augmentation context from a search backend.
type Augmenter struct {
	backend Backend
}

// NewAugmenter wraps a backend. A nil backend disables augmentation.
func NewAugmenter(backend Backend) *Augmenter {
	return &Augmenter{backend: backend}
}

// Context returns the bodies of the top maxResults hits joined by blank lines.
//
// An empty query returns "" without calling the backend. On failure the
// returned text is "" and the error is a non-fatal *errors.Error
// (KindTransport or KindEmptySearchResult) the caller may surface as a warning.
func (a *Augmenter) Context(ctx context.Context, query string, maxResults int) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" || a == nil || a.backend == nil || maxResults <= 0 {
		return "", nil
	}

	hits, err := a.backend.Search(ctx, query, maxResults)
	if err != nil {
		slog.Warn("search failed, continuing without context", "backend", a.backend.Name(), "error", err)
		return "", apperrors.New(apperrors.KindTransport, "search "+a.backend.Name(), err)
	}

	bodies := make([]string, 0, len(hits))
	for _, h := range hits {
		if len(bodies) == maxResults {
			break
		}
		if body := strings.TrimSpace(h.Body); body != "" {
			bodies = append(bodies, body)
		}
	}
	if len(bodies) == 0 {
		return "", apperrors.New(apperrors.KindEmptySearchResult, "no search results for query", nil)
	}

	slog.Debug("search complete", "backend", a.backend.Name(), "results", len(bodies))
	return strings.Join(bodies, "\n\n"), nil
}
