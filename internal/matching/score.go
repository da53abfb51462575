package matching

import (
	"strings"
	"unicode/utf8"

	"mediatrack/internal/media"
	"mediatrack/internal/textutil"
)

// Prepared is a query reduced to the forms the scorer compares against. It is
// computed once per selection.
type Prepared struct {
	Cleaned     string
	HasEpisode  bool
	PublishYear *int

	lower      string
	normalized string
	words      map[string]struct{}
	tokens     map[string]struct{}
}

// Prepare normalizes a query for scoring.
func Prepare(query Query) Prepared {
	cleaned := textutil.ExtractBaseTitle(query.OriginalTitle)
	lower := strings.ToLower(cleaned)
	return Prepared{
		Cleaned:     cleaned,
		HasEpisode:  textutil.HasEpisodeMarker(query.OriginalTitle),
		PublishYear: query.PublishYear,
		lower:       lower,
		normalized:  textutil.NormalizeForExact(cleaned),
		words:       wordSet(lower),
		tokens:      textutil.TokenSet(cleaned),
	}
}

// Breakdown records each contribution to a candidate's score. Penalty is the
// amount actually subtracted.
type Breakdown struct {
	Similarity      float64 `json:"similarity"`
	Exact           float64 `json:"exact"`
	NormalizedExact float64 `json:"normalized_exact"`
	Position        float64 `json:"position"`
	Year            float64 `json:"year"`
	Kind            float64 `json:"kind"`
	Penalty         float64 `json:"penalty"`
	Total           float64 `json:"total"`
}

// Score returns the score of candidate at position pos.
func Score(policy Policy, query Prepared, candidate Candidate, pos int) float64 {
	return Explain(policy, query, candidate, pos).Total
}

// Explain scores candidate and reports each contribution.
func Explain(policy Policy, query Prepared, candidate Candidate, pos int) Breakdown {
	titleLower := strings.ToLower(candidate.Title)

	var b Breakdown
	b.Similarity = similarity(policy, query.lower, titleLower)
	b.Exact = exactBonus(policy, query.lower, titleLower)
	b.NormalizedExact = normalizedExactBonus(policy, query.normalized, candidate.Title)
	b.Position = positionBonus(policy, pos)
	b.Year = yearBonus(policy, query.PublishYear, candidate.PublishYear)
	b.Kind = kindBonus(policy, query.HasEpisode, candidate.Lot)

	score := b.Similarity + b.Exact + b.NormalizedExact + b.Position + b.Year + b.Kind
	b.Total = extraTokenPenalty(policy, query.tokens, candidate.Title, score)
	b.Penalty = score - b.Total
	return b
}

func similarity(policy Policy, query, title string) float64 {
	if query == title {
		return policy.ExactTitle
	}
	if strings.Contains(title, query) || strings.Contains(query, title) {
		a, b := utf8.RuneCountInString(query), utf8.RuneCountInString(title)
		shorter, longer := min(a, b), max(a, b)
		if longer == 0 {
			return 0
		}
		return float64(shorter) / float64(longer) * policy.SubstringFactor
	}
	return wordOverlap(wordSet(query), wordSet(title))
}

func wordSet(value string) map[string]struct{} {
	fields := strings.Fields(value)
	set := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		set[field] = struct{}{}
	}
	return set
}

func wordOverlap(a, b map[string]struct{}) float64 {
	total := max(len(a), len(b))
	if total == 0 {
		return 0
	}
	shared := 0
	for word := range a {
		if _, ok := b[word]; ok {
			shared++
		}
	}
	return float64(shared) / float64(total)
}

func exactBonus(policy Policy, query, title string) float64 {
	if query == title {
		return policy.ExactBonus
	}
	return 0
}

func normalizedExactBonus(policy Policy, normalizedQuery, title string) float64 {
	if normalizedQuery == textutil.NormalizeForExact(title) {
		return policy.NormalizedExactBonus
	}
	return 0
}

func positionBonus(policy Policy, pos int) float64 {
	if pos < 0 || pos >= policy.PositionWindow {
		return 0
	}
	return policy.PositionStep * float64(policy.PositionWindow-pos)
}

func yearBonus(policy Policy, want, got *int) float64 {
	if want == nil || got == nil {
		return 0
	}
	switch diff := *want - *got; {
	case diff == 0:
		return policy.YearExact
	case diff == 1 || diff == -1:
		return policy.YearAdjacent
	default:
		return 0
	}
}

func kindBonus(policy Policy, hasEpisode bool, lot media.Lot) float64 {
	switch {
	case hasEpisode && lot == media.LotShow:
		return policy.EpisodeShow
	case !hasEpisode && lot == media.LotMovie:
		return policy.PlainMovie
	default:
		return 0
	}
}

// extraTokenPenalty applies the per-token penalty to score, flooring the
// result of this subtraction at zero.
func extraTokenPenalty(policy Policy, queryTokens map[string]struct{}, title string, score float64) float64 {
	titleTokens := textutil.TokenSet(title)
	if len(queryTokens) == 0 || len(titleTokens) == 0 {
		return score
	}
	extra := 0
	for token := range titleTokens {
		if _, ok := queryTokens[token]; !ok {
			extra++
		}
	}
	return max(score-float64(extra)*policy.ExtraTokenPenalty, 0)
}
