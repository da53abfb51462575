package resolver_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mediatrack/internal/cachesvc"
	"mediatrack/internal/matching"
	"mediatrack/internal/media"
	"mediatrack/internal/providers/tmdb"
	"mediatrack/internal/resolver"
	"mediatrack/internal/services"
	"mediatrack/internal/testsupport"
)

type call struct {
	kind  string
	query string
	opts  tmdb.SearchOptions
}

type fakeSearcher struct {
	mu      sync.Mutex
	calls   []call
	results map[string][]tmdb.Result
	err     error
}

func (f *fakeSearcher) record(kind, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{kind: kind, query: query, opts: opts})
	if f.err != nil {
		return nil, f.err
	}
	results := f.results[kind]
	return &tmdb.Response{Page: 1, TotalPages: 1, TotalResults: len(results), Results: results}, nil
}

func (f *fakeSearcher) SearchMovie(_ context.Context, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	return f.record("movie", query, opts)
}

func (f *fakeSearcher) SearchTV(_ context.Context, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	return f.record("tv", query, opts)
}

func (f *fakeSearcher) SearchMulti(_ context.Context, query string, opts tmdb.SearchOptions) (*tmdb.Response, error) {
	return f.record("multi", query, opts)
}

func (f *fakeSearcher) Configuration(context.Context) (*tmdb.Configuration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{kind: "configuration"})
	if f.err != nil {
		return nil, f.err
	}
	cfg := &tmdb.Configuration{ChangeKeys: []string{"title"}}
	cfg.Images.SecureBaseURL = "https://image.tmdb.org/t/p/"
	cfg.Images.PosterSizes = []string{"w92"}
	return cfg, nil
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newResolver(t *testing.T, searcher tmdb.Searcher) (*resolver.Resolver, *testsupport.ManualClock) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	clock := testsupport.NewManualClock(time.Time{})
	svc, err := cachesvc.New(store, cachesvc.Options{Clock: clock, Version: cfg.Cache.Version})
	if err != nil {
		t.Fatalf("cachesvc.New: %v", err)
	}
	r, err := resolver.New(svc, searcher, resolver.Options{})
	if err != nil {
		t.Fatalf("resolver.New: %v", err)
	}
	return r, clock
}

func TestResolveShowFromEpisodeTitle(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]tmdb.Result{
		"tv": {
			{ID: 1, Name: "Breaking Bad: Original Minisodes", FirstAirDate: "2009-02-17"},
			{ID: 1396, Name: "Breaking Bad", FirstAirDate: "2008-01-20"},
		},
	}}
	r, _ := newResolver(t, searcher)

	res, err := r.Resolve(context.Background(), resolver.Request{
		UserID: "u1",
		Title:  "Breaking Bad: Season 1: Pilot",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Match.Identifier != "1396" || res.Match.Lot != media.LotShow {
		t.Fatalf("unexpected match %+v", res.Match)
	}
	if res.Query != "Breaking Bad" || res.Cached || res.Candidates != 2 {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if searcher.calls[0].kind != "tv" || searcher.calls[0].query != "Breaking Bad" {
		t.Fatalf("expected tv search for cleaned title, got %+v", searcher.calls[0])
	}
}

func TestResolveUsesCacheOnSecondCall(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]tmdb.Result{
		"movie": {
			{ID: 841, Title: "Dune", ReleaseDate: "1984-12-14"},
			{ID: 438631, Title: "Dune", ReleaseDate: "2021-09-15"},
		},
	}}
	r, clock := newResolver(t, searcher)
	ctx := context.Background()
	req := resolver.Request{UserID: "u1", Title: "Dune (2021)", Lot: media.LotMovie}

	first, err := r.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if first.Match.Identifier != "438631" {
		t.Fatalf("expected year to pick the 2021 film, got %+v", first.Match)
	}
	if searcher.calls[0].opts.Year != 2021 {
		t.Fatalf("expected year filter 2021, got %+v", searcher.calls[0].opts)
	}

	second, err := r.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if !second.Cached || second.EntryID != first.EntryID || searcher.callCount() != 1 {
		t.Fatalf("expected cached resolution, got %+v after %d calls", second, searcher.callCount())
	}

	// Another user does not share the entry.
	other := req
	other.UserID = "u2"
	if res, err := r.Resolve(ctx, other); err != nil || res.Cached {
		t.Fatalf("other user resolution = %+v, %v", res, err)
	}

	clock.Advance(cachesvc.ShortTTL)
	third, err := r.Resolve(ctx, req)
	if err != nil {
		t.Fatalf("third Resolve: %v", err)
	}
	if third.Cached || searcher.callCount() != 3 {
		t.Fatalf("expected refetch after ttl, cached=%v calls=%d", third.Cached, searcher.callCount())
	}
}

func TestResolveNoCandidates(t *testing.T) {
	r, _ := newResolver(t, &fakeSearcher{})
	_, err := r.Resolve(context.Background(), resolver.Request{UserID: "u1", Title: "Nothing Matches"})
	if !errors.Is(err, matching.ErrNoCandidates) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected no candidates, got %v", err)
	}
}

func TestResolveSearchFailureIsNotCached(t *testing.T) {
	boom := services.Wrap(services.ErrTransient, "tmdb", "search", "", errors.New("503"))
	searcher := &fakeSearcher{err: boom}
	r, _ := newResolver(t, searcher)
	req := resolver.Request{UserID: "u1", Title: "Heat", Lot: media.LotMovie}

	if _, err := r.Resolve(context.Background(), req); !errors.Is(err, boom) {
		t.Fatalf("expected search error, got %v", err)
	}
	searcher.err = nil
	searcher.results = map[string][]tmdb.Result{"movie": {{ID: 949, Title: "Heat", ReleaseDate: "1995-12-15"}}}
	res, err := r.Resolve(context.Background(), req)
	if err != nil || res.Cached || res.Match.Identifier != "949" {
		t.Fatalf("expected fresh search after failure, got %+v, %v", res, err)
	}
}

func TestResolveRejectsEmptyTitle(t *testing.T) {
	r, _ := newResolver(t, &fakeSearcher{})
	if _, err := r.Resolve(context.Background(), resolver.Request{Title: "  (2020) "}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSettingsCached(t *testing.T) {
	searcher := &fakeSearcher{}
	r, _ := newResolver(t, searcher)
	for range 2 {
		settings, err := r.Settings(context.Background())
		if err != nil {
			t.Fatalf("Settings: %v", err)
		}
		if settings.ImageBaseURL != "https://image.tmdb.org/t/p/" {
			t.Fatalf("unexpected settings %+v", settings)
		}
	}
	if searcher.callCount() != 1 {
		t.Fatalf("expected one configuration call, got %d", searcher.callCount())
	}
}

func TestLimiterHonoursCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc, err := cachesvc.New(store, cachesvc.Options{})
	if err != nil {
		t.Fatalf("cachesvc.New: %v", err)
	}
	limiter := resolver.NewLimiter(0.001)
	limiter.Allow() // drain the single token
	r, err := resolver.New(svc, &fakeSearcher{}, resolver.Options{Limiter: limiter})
	if err != nil {
		t.Fatalf("resolver.New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := r.Resolve(ctx, resolver.Request{UserID: "u1", Title: "Heat"}); err == nil {
		t.Fatal("expected limiter wait to fail")
	}
	if resolver.NewLimiter(0) != nil {
		t.Fatal("non-positive rate should disable pacing")
	}
}
