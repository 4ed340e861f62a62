// Package contextsource provides the interchangeable strategies that gather
// comparison material for an evaluation prompt.
package contextsource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"newsbias/internal/domain"
	"newsbias/internal/integrations/serper"
)

const (
	defaultKnowledgeBaseResults = 3
	defaultNewsResults          = 2
)

// Source is satisfied by every strategy in this package.
type Source interface {
	Fetch(ctx context.Context, query string) ([]string, error)
}

// Static returns a fixed policy text and performs no I/O.
type Static struct {
	Text string
}

func (s Static) Fetch(_ context.Context, _ string) ([]string, error) {
	if strings.TrimSpace(s.Text) == "" {
		return nil, nil
	}
	return []string{s.Text}, nil
}

// Retriever queries a vector-search knowledge base.
type Retriever interface {
	Retrieve(ctx context.Context, query string, numResults int) ([]string, error)
}

// KnowledgeBase returns the top results of a knowledge base. When Query is
// set it is sent instead of the caller's query.
type KnowledgeBase struct {
	retriever  Retriever
	query      string
	numResults int
}

func NewKnowledgeBase(r Retriever, query string, numResults int) (*KnowledgeBase, error) {
	if r == nil {
		return nil, errors.New("contextsource: retriever must not be nil")
	}
	if numResults <= 0 {
		numResults = defaultKnowledgeBaseResults
	}
	return &KnowledgeBase{retriever: r, query: strings.TrimSpace(query), numResults: numResults}, nil
}

func (k *KnowledgeBase) Fetch(ctx context.Context, query string) ([]string, error) {
	if k.query != "" {
		query = k.query
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("contextsource: knowledge base query is empty")
	}
	texts, err := k.retriever.Retrieve(ctx, query, k.numResults)
	if err != nil {
		return nil, fmt.Errorf("contextsource: knowledge base: %w", err)
	}
	return texts, nil
}

// NewsSearcher runs a web news search.
type NewsSearcher interface {
	SearchNews(ctx context.Context, q serper.NewsQuery) ([]domain.Reference, error)
}

// NewsOptions scopes a news search.
type NewsOptions struct {
	Site       string
	NumResults int
	Country    string
	Language   string
}

// News formats web news results as "title - snippet (link)" lines.
type News struct {
	searcher NewsSearcher
	opts     NewsOptions
}

func NewNews(s NewsSearcher, opts NewsOptions) (*News, error) {
	if s == nil {
		return nil, errors.New("contextsource: news searcher must not be nil")
	}
	if opts.NumResults <= 0 {
		opts.NumResults = defaultNewsResults
	}
	opts.Site = strings.TrimSpace(opts.Site)
	return &News{searcher: s, opts: opts}, nil
}

func (n *News) Fetch(ctx context.Context, query string) ([]string, error) {
	q := n.buildQuery(query)
	if q == "" {
		return nil, nil
	}
	refs, err := n.searcher.SearchNews(ctx, serper.NewsQuery{
		Q:   q,
		Num: n.opts.NumResults,
		GL:  n.opts.Country,
		HL:  n.opts.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("contextsource: news: %w", err)
	}
	if len(refs) > n.opts.NumResults {
		refs = refs[:n.opts.NumResults]
	}
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Format())
	}
	return out, nil
}

// buildQuery returns "" when there is nothing to search for.
func (n *News) buildQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	if n.opts.Site == "" {
		return query
	}
	return "site:" + n.opts.Site + " " + query
}

// Multi runs sources in order and concatenates their snippets. The first
// failing source aborts the whole fetch.
type Multi []Source

func (m Multi) Fetch(ctx context.Context, query string) ([]string, error) {
	var out []string
	for _, src := range m {
		snippets, err := src.Fetch(ctx, query)
		if err != nil {
			return nil, err
		}
		out = append(out, snippets...)
	}
	return out, nil
}
