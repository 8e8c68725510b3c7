package matching

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"songline/internal/logging"
	"songline/internal/queue"
	"songline/internal/services/spotify"
)

const (
	defaultResultsPerQuery = 5
	defaultConcurrency     = 3
	defaultTimeout         = 8 * time.Second
)

// Searcher queries the secondary catalog.
type Searcher interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]spotify.Track, error)
}

// Video is the subset of resolved metadata the matcher needs.
type Video struct {
	Title   string
	Channel string
}

// Matcher finds the catalog track that best corresponds to a video.
type Matcher struct {
	searcher    Searcher
	decomposer  Decomposer
	limit       int
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithDecomposer replaces the title decomposition strategy.
func WithDecomposer(d Decomposer) Option {
	return func(m *Matcher) {
		if d != nil {
			m.decomposer = d
		}
	}
}

// WithResultsPerQuery bounds the number of results requested per query.
func WithResultsPerQuery(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.limit = n
		}
	}
}

// WithConcurrency bounds the number of in-flight catalog queries.
func WithConcurrency(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithTimeout bounds a whole Match call.
func WithTimeout(d time.Duration) Option {
	return func(m *Matcher) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the matcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) {
		m.logger = logger
	}
}

// New constructs a Matcher over searcher.
func New(searcher Searcher, opts ...Option) *Matcher {
	m := &Matcher{
		searcher:    searcher,
		decomposer:  SeparatorDecomposer{},
		limit:       defaultResultsPerQuery,
		concurrency: defaultConcurrency,
		timeout:     defaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "matcher")
	return m
}

// Match returns the best catalog match for v, or nil when nothing scores
// high enough. Search failures are logged and never returned.
func (m *Matcher) Match(ctx context.Context, v Video) *queue.TrackMatch {
	if m == nil || m.searcher == nil {
		return nil
	}
	logger := logging.WithContext(ctx, m.logger)

	d := m.decomposer.Decompose(v.Title, v.Channel)
	queries := BuildQueries(v.Title, v.Channel, d)
	if len(queries) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	results := make([][]spotify.Track, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, q := range queries {
		g.Go(func() error {
			tracks, err := m.searcher.SearchTracks(gctx, q, m.limit)
			if err != nil {
				logging.WarnWithContext(logger, "catalog search failed", "match_query_failed",
					logging.String("query", q),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check spotify credentials and connectivity"),
					logging.String(logging.FieldImpact, "query skipped"),
				)
				return nil
			}
			results[i] = tracks
			return nil
		})
	}
	_ = g.Wait()

	var candidates []Candidate
	seen := make(map[string]struct{})
	for _, tracks := range results {
		for _, track := range tracks {
			if track.ID != "" {
				if _, dup := seen[track.ID]; dup {
					continue
				}
				seen[track.ID] = struct{}{}
			}
			candidates = append(candidates, ScoreTrack(track, v.Title, v.Channel, d))
		}
	}

	best, ok := Select(candidates, d)
	if !ok {
		logger.Info("no catalog match",
			logging.Args(logging.DecisionAttrs("track_match", "miss", "no candidate above threshold")...)...,
		)
		logger.Debug("match details",
			logging.Int("queries", len(queries)),
			logging.Int("candidates", len(candidates)),
		)
		return nil
	}
	logger.Info("catalog match selected",
		logging.String("track_id", best.Track.ID),
		logging.String("track", best.Track.Name),
		logging.Float64("score", best.Score),
	)
	return Describe(best.Track, best.Score)
}

// Queries returns the search queries Match would issue for v.
func (m *Matcher) Queries(v Video) []string {
	if m == nil {
		return nil
	}
	return BuildQueries(v.Title, v.Channel, m.decomposer.Decompose(v.Title, v.Channel))
}
