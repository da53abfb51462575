package resolver

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"mediatrack/internal/appcache"
	"mediatrack/internal/cachekey"
	"mediatrack/internal/cachesvc"
	"mediatrack/internal/logging"
	"mediatrack/internal/matching"
	"mediatrack/internal/media"
	"mediatrack/internal/providers/tmdb"
	"mediatrack/internal/services"
	"mediatrack/internal/textutil"
)

// Source is the catalog name recorded in search cache keys.
const Source = "tmdb"

// Options configures a Resolver.
type Options struct {
	// Limiter paces catalog requests. Nil means unlimited.
	Limiter *rate.Limiter
	Matcher *matching.Matcher
	Logger  *slog.Logger
}

// Resolver resolves reference titles against TMDB through the cache.
type Resolver struct {
	cache    *cachesvc.Service
	searcher tmdb.Searcher
	matcher  *matching.Matcher
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New builds a Resolver.
func New(cache *cachesvc.Service, searcher tmdb.Searcher, opts Options) (*Resolver, error) {
	if cache == nil {
		return nil, services.Wrap(services.ErrConfiguration, "resolver", "new", "cache service is required", nil)
	}
	if searcher == nil {
		return nil, services.Wrap(services.ErrConfiguration, "resolver", "new", "searcher is required", nil)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Matcher == nil {
		opts.Matcher = matching.NewMatcher(opts.Logger)
	}
	return &Resolver{
		cache:    cache,
		searcher: searcher,
		matcher:  opts.Matcher,
		limiter:  opts.Limiter,
		logger:   logging.NewComponentLogger(opts.Logger, "resolver"),
	}, nil
}

// NewLimiter returns a token bucket allowing rps requests per second with a
// burst of one. Non-positive rps disables pacing.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// Request describes what to resolve.
type Request struct {
	UserID string
	Title  string
	// Year overrides a year embedded in Title.
	Year *int
	// Lot selects movie or TV search; LotUnknown searches both.
	Lot media.Lot
}

// Resolution is the outcome of a successful Resolve.
type Resolution struct {
	Match matching.Scored `json:"match"`
	// Query is the cleaned title sent to the catalog.
	Query string `json:"query"`
	// Cached is true when the candidates came from the cache.
	Cached     bool      `json:"cached"`
	EntryID    uuid.UUID `json:"entry_id"`
	Candidates int       `json:"candidates"`
}

// Resolve finds the best catalog match for req.Title.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Resolution, error) {
	title := strings.TrimSpace(req.Title)
	query := textutil.ExtractBaseTitle(title)
	if query == "" {
		return Resolution{}, services.Wrap(services.ErrValidation, "resolver", "resolve", "title is empty", nil)
	}
	year := req.Year
	if year == nil {
		if y, ok := textutil.ExtractYear(title); ok {
			year = &y
		}
	}
	lot := req.Lot
	if lot == media.LotUnknown && textutil.HasEpisodeMarker(title) {
		lot = media.LotShow
	}

	input := appcache.MetadataSearchInput{Query: query, Lot: lot, Source: Source, Page: 1}
	if year != nil {
		input.Year = *year
	}
	key := appcache.MetadataSearch.Key(cachekey.ForUser(req.UserID, input))

	fetched := false
	entryID, page, err := cachesvc.GetOrSetWith(ctx, r.cache, key, func(ctx context.Context) (appcache.MetadataSearchValue, error) {
		fetched = true
		return r.search(ctx, input)
	})
	if err != nil {
		return Resolution{}, err
	}

	match, err := r.matcher.Best(ctx, matching.Query{OriginalTitle: title, PublishYear: year}, page.Items)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{
		Match:      match,
		Query:      query,
		Cached:     !fetched,
		EntryID:    entryID,
		Candidates: len(page.Items),
	}
	logging.WithContext(ctx, r.logger).Info("title resolved",
		logging.String(logging.FieldEventType, "title_resolved"),
		logging.String("query", query),
		logging.String("match", match.Title),
		logging.String("identifier", match.Identifier),
		logging.Float64("score", match.Score),
		logging.Bool("cached", res.Cached),
	)
	return res, nil
}

func (r *Resolver) search(ctx context.Context, input appcache.MetadataSearchInput) (appcache.MetadataSearchValue, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return appcache.MetadataSearchValue{}, err
		}
	}
	opts := tmdb.SearchOptions{Year: input.Year, Page: input.Page}
	var (
		resp *tmdb.Response
		err  error
	)
	switch input.Lot {
	case media.LotMovie:
		resp, err = r.searcher.SearchMovie(ctx, input.Query, opts)
	case media.LotShow:
		resp, err = r.searcher.SearchTV(ctx, input.Query, opts)
	default:
		resp, err = r.searcher.SearchMulti(ctx, input.Query, opts)
	}
	if err != nil {
		return appcache.MetadataSearchValue{}, err
	}
	return appcache.MetadataSearchValue{
		Items:   resp.Candidates(input.Lot),
		Total:   resp.TotalResults,
		HasMore: resp.HasMore(),
	}, nil
}

// Settings returns the TMDB image settings, fetched at most once per long TTL.
func (r *Resolver) Settings(ctx context.Context) (appcache.TmdbSettingsValue, error) {
	_, value, err := cachesvc.GetOrSetWith(ctx, r.cache, appcache.TmdbSettings.Key(cachekey.Global{}),
		func(ctx context.Context) (appcache.TmdbSettingsValue, error) {
			if r.limiter != nil {
				if err := r.limiter.Wait(ctx); err != nil {
					return appcache.TmdbSettingsValue{}, err
				}
			}
			cfg, err := r.searcher.Configuration(ctx)
			if err != nil {
				return appcache.TmdbSettingsValue{}, err
			}
			return appcache.TmdbSettingsValue{
				ImageBaseURL: cfg.Images.SecureBaseURL,
				PosterSizes:  cfg.Images.PosterSizes,
				ChangeKeys:   cfg.ChangeKeys,
			}, nil
		})
	return value, err
}
