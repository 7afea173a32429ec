// Package rag serves grounded context for conversation turns. It answers two
// questions for the voice loop: should knowledge-base context be surfaced at
// all for this utterance (the relevance gate), and what are the top-k chunks
// for it (the retriever). Absence of grounding is a normal outcome, never an
// error; encoder and store failures degrade to context-free operation.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/voicecart/voicecart/engine/semantic"
	"github.com/voicecart/voicecart/pkg/resilience"
)

// Encoder embeds a single query string.
type Encoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher abstracts the vector store operations the query path needs, so
// the backing engine is swappable without touching gate or retriever logic.
type Searcher interface {
	Count(ctx context.Context) (int, error)
	Search(ctx context.Context, embedding []float32, topK int) ([]semantic.SearchResult, error)
}

// Options configures the retrieval service.
type Options struct {
	TopK          int
	SearchTimeout time.Duration
	Breaker       resilience.BreakerOpts
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:          3,
		SearchTimeout: 5 * time.Second,
		Breaker:       resilience.DefaultBreakerOpts,
	}
}

// Service is the retrieval service. Construct one per process and share it;
// all methods are safe for concurrent use.
type Service struct {
	encode  Encoder
	search  Searcher
	breaker *resilience.Breaker
	opts    Options
	logger  *slog.Logger
}

// New creates a retrieval Service.
func New(encode Encoder, search Searcher, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = DefaultOptions().SearchTimeout
	}
	return &Service{
		encode:  encode,
		search:  search,
		breaker: resilience.NewBreaker(opts.Breaker),
		opts:    opts,
		logger:  logger,
	}
}

// Retrieve returns the topK chunk texts nearest to the query, best first.
// An empty store returns nil without touching the encoder. The result holds
// min(topK, stored) texts; an unmatched query is not an error.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	count, err := s.search.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("rag: count: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	if topK <= 0 {
		topK = s.opts.TopK
	}
	if topK > count {
		topK = count
	}

	var embedding []float32
	err = s.breaker.Call(ctx, func(ctx context.Context) error {
		var embedErr error
		embedding, embedErr = s.encode.Embed(ctx, query)
		return embedErr
	})
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	results, err := s.search.Search(searchCtx, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("rag: search: %w", err)
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Content
	}
	return texts, nil
}

// IsRelevant decides whether knowledge-base context should be surfaced for
// the query: false on an empty store, otherwise a commerce-keyword match OR
// the existence of at least one semantic neighbor. No similarity threshold
// is applied to that neighbor, so a populated store deems nearly every
// query relevant. Failures along the way degrade to false.
func (s *Service) IsRelevant(ctx context.Context, query string) bool {
	count, err := s.search.Count(ctx)
	if err != nil {
		s.logger.Warn("rag: relevance count failed, treating as no context", "err", err)
		return false
	}
	if count == 0 {
		return false
	}

	hasKeyword := hasCommerceKeyword(query)

	results, err := s.Retrieve(ctx, query, 1)
	if err != nil {
		s.logger.Warn("rag: relevance retrieve failed, keyword signal only", "err", err)
		return hasKeyword
	}

	return hasKeyword || len(results) > 0
}
