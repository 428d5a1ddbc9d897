// Package terminology looks up candidate concepts for highlighted fragments
// and pages through them for confirmation.
package terminology

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/cache"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/model"
	"github.com/Unaiigartua/PFG-INF-CORTEX/internal/worker"
)

// Backend is the similarity service
type Backend interface {
	Similar(ctx context.Context, term string) ([]model.TerminologyMatch, error)
}

// Searcher fronts the similarity service with a cache
type Searcher struct {
	backend Backend
	cache   cache.Cache
	workers int
	log     zerolog.Logger
}

// NewSearcher creates a searcher. c may be nil to disable caching.
func NewSearcher(backend Backend, c cache.Cache, workers int, log zerolog.Logger) *Searcher {
	if c == nil {
		c = cache.Noop{}
	}
	if workers <= 0 {
		workers = 1
	}
	return &Searcher{
		backend: backend,
		cache:   c,
		workers: workers,
		log:     log,
	}
}

// Search returns the candidates for term. Empty results are not cached so
// that a backend warming up is retried on the next lookup.
func (s *Searcher) Search(ctx context.Context, term string) ([]model.TerminologyMatch, error) {
	term = strings.TrimSpace(term)
	key := cache.Key("similar", term)

	var matches []model.TerminologyMatch
	if cache.GetJSON(s.cache, key, &matches) {
		s.log.Debug().Str("term", term).Int("matches", len(matches)).Msg("Terminology cache hit")
		return matches, nil
	}

	matches, err := s.backend.Similar(ctx, term)
	if err != nil {
		return nil, err
	}

	if len(matches) > 0 {
		if err := cache.SetJSON(s.cache, key, matches, 0); err != nil {
			s.log.Warn().Err(err).Str("term", term).Msg("Caching terminology results failed")
		}
	}
	return matches, nil
}

// Prefetch warms the cache for every distinct term and returns how many
// lookups failed. Failures are logged; the picker retries them on demand.
func (s *Searcher) Prefetch(ctx context.Context, terms []string) int {
	seen := make(map[string]bool, len(terms))
	distinct := make([]string, 0, len(terms))
	for _, t := range terms {
		k := strings.ToLower(strings.TrimSpace(t))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		distinct = append(distinct, t)
	}

	outcomes := worker.Map(ctx, s.workers, distinct, s.Search)

	failed := 0
	for i, o := range outcomes {
		if o.Err != nil {
			failed++
			s.log.Warn().Err(o.Err).Str("term", distinct[i]).Msg("Prefetching terminology failed")
		}
	}
	return failed
}
