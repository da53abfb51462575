package matching

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"mediatrack/internal/logging"
)

// FindBestMatch returns the highest-scoring candidate for originalTitle using
// DefaultPolicy. It fails only when candidates is empty.
func FindBestMatch(candidates []Candidate, originalTitle string, publishYear *int) (Candidate, error) {
	best, err := NewMatcher(nil).Best(context.Background(), Query{
		OriginalTitle: originalTitle,
		PublishYear:   publishYear,
	}, candidates)
	if err != nil {
		return Candidate{}, err
	}
	return best.Candidate, nil
}

// Matcher scores candidates with a fixed policy and logs its decisions.
type Matcher struct {
	policy Policy
	logger *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithPolicy overrides DefaultPolicy.
func WithPolicy(policy Policy) Option {
	return func(m *Matcher) { m.policy = policy }
}

// NewMatcher builds a matcher using DefaultPolicy unless overridden.
func NewMatcher(logger *slog.Logger, opts ...Option) *Matcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Matcher{
		policy: DefaultPolicy(),
		logger: logging.NewComponentLogger(logger, "matching"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Policy returns the weights in use.
func (m *Matcher) Policy() Policy {
	return m.policy
}

// Best returns the first candidate with the maximal score.
func (m *Matcher) Best(ctx context.Context, query Query, candidates []Candidate) (Scored, error) {
	if len(candidates) == 0 {
		return Scored{}, ErrNoCandidates
	}
	logger := logging.WithContext(ctx, m.logger)
	prepared := Prepare(query)

	logger.Debug("confidence scoring analysis",
		logging.String("query", query.OriginalTitle),
		logging.String("query_cleaned", prepared.Cleaned),
		logging.Bool("episode_hint", prepared.HasEpisode),
		logging.Int("total_candidates", len(candidates)))

	var best Scored
	bestScore := -1.0
	for idx, candidate := range candidates {
		breakdown := Explain(m.policy, prepared, candidate, idx)
		logger.Debug("calculated candidate score",
			logging.Int("position", idx),
			logging.String("identifier", candidate.Identifier),
			logging.String("title", candidate.Title),
			logging.String("lot", candidate.Lot.String()),
			logging.Float64("score", breakdown.Total))
		if breakdown.Total > bestScore {
			best = Scored{Candidate: candidate, Position: idx, Score: breakdown.Total, Breakdown: breakdown}
			bestScore = breakdown.Total
		}
	}

	logger.Debug("best match selected",
		logging.Args(append(logging.DecisionAttrs("best_match", best.Identifier, "highest score"),
			logging.String("title", best.Title),
			logging.Int("position", best.Position),
			logging.Float64("score", best.Score))...)...)
	return best, nil
}

// Rank scores every candidate and returns them by descending score. Equal
// scores keep input order, so Rank(...)[0] agrees with Best.
func (m *Matcher) Rank(query Query, candidates []Candidate) []Scored {
	prepared := Prepare(query)
	ranked := make([]Scored, len(candidates))
	for idx, candidate := range candidates {
		breakdown := Explain(m.policy, prepared, candidate, idx)
		ranked[idx] = Scored{Candidate: candidate, Position: idx, Score: breakdown.Total, Breakdown: breakdown}
	}
	slices.SortStableFunc(ranked, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranked
}
