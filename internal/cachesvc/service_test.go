package cachesvc_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mediatrack/internal/appcache"
	"mediatrack/internal/cachekey"
	"mediatrack/internal/cachesvc"
	"mediatrack/internal/cachestore"
	"mediatrack/internal/matching"
	"mediatrack/internal/media"
	"mediatrack/internal/services"
	"mediatrack/internal/testsupport"
)

type fixture struct {
	svc     *cachesvc.Service
	store   *cachestore.Store
	clock   *testsupport.ManualClock
	metrics *cachesvc.Metrics
}

func newFixture(t *testing.T, version string) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithVersion(version))
	store := testsupport.MustOpenStore(t, cfg)
	return newFixtureWithStore(t, store, version, testsupport.NewManualClock(time.Time{}))
}

func newFixtureWithStore(t *testing.T, store *cachestore.Store, version string, clock *testsupport.ManualClock) fixture {
	t.Helper()
	metrics := cachesvc.NewMetrics(nil)
	svc, err := cachesvc.New(store, cachesvc.Options{
		Clock:   clock,
		Version: version,
		TTLs:    cachesvc.DefaultTTLTable(3 * time.Hour),
		Metrics: metrics,
	})
	if err != nil {
		t.Fatalf("cachesvc.New: %v", err)
	}
	return fixture{svc: svc, store: store, clock: clock, metrics: metrics}
}

func searchKey(user, query string) cachekey.Key[appcache.MetadataSearchValue] {
	return appcache.MetadataSearch.Key(cachekey.ForUser(user, appcache.MetadataSearchInput{
		Query: query, Lot: media.LotMovie, Source: "tmdb", Page: 1,
	}))
}

func searchValue(titles ...string) appcache.MetadataSearchValue {
	value := appcache.MetadataSearchValue{Total: len(titles)}
	for i, title := range titles {
		value.Items = append(value.Items, matching.Candidate{
			Title: title, PublishYear: matching.Year(2000 + i), Lot: media.LotMovie, Identifier: fmt.Sprint(i),
		})
	}
	return value
}

func TestSetThenGetRoundTrip(t *testing.T) {
	f := newFixture(t, "v1")
	ctx := context.Background()
	key := searchKey("u1", "heat")
	value := searchValue("Heat", "Heat Wave")

	id, err := cachesvc.Set(ctx, f.svc, key, value)
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if id == uuid.Nil || id.Version() != 7 {
		t.Fatalf("expected a v7 entry id, got %s", id)
	}

	hits, err := f.svc.GetMany(ctx, []cachekey.Raw{key.Raw()})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	hit, ok := hits[key.Raw()]
	if !ok {
		t.Fatal("expected hit")
	}
	if hit.ID != id {
		t.Fatalf("hit id %s, want %s", hit.ID, id)
	}
	if !hit.ExpiresAt.After(hit.CreatedAt) || hit.ExpiresAt.Sub(hit.CreatedAt) != cachesvc.ShortTTL {
		t.Fatalf("unexpected lifetime %s -> %s", hit.CreatedAt, hit.ExpiresAt)
	}
	got, err := cachesvc.Decode(key, hit)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Items) != 2 || got.Items[1].Title != "Heat Wave" || *got.Items[1].PublishYear != 2001 {
		t.Fatalf("unexpected decoded value %+v", got)
	}
	if testutil.ToFloat64(f.metrics.Hits.WithLabelValues("metadata_search")) != 1 {
		t.Fatal("expected one hit recorded")
	}
}

func TestSetManyReturnsIDPerKey(t *testing.T) {
	f := newFixture(t, "v1")
	ctx := context.Background()

	a := searchKey("u1", "a")
	b := searchKey("u2", "a")
	collections := appcache.UserCollectionsList.Key(cachekey.User{UserID: "u1"})
	ids, err := f.svc.SetMany(ctx, []cachesvc.Pair{
		cachesvc.Entry(a, searchValue("A")),
		cachesvc.Entry(b, searchValue("B")),
		cachesvc.Entry(collections, appcache.UserCollectionsListValue{
			Collections: []appcache.Collection{{ID: "c1", Name: "Watchlist", IsDefault: true}},
		}),
	})
	if err != nil {
		t.Fatalf("SetMany: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}

	missing := searchKey("u3", "a")
	hits, err := f.svc.GetMany(ctx, []cachekey.Raw{a.Raw(), b.Raw(), collections.Raw(), missing.Raw(), a.Raw()})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if _, ok := hits[missing.Raw()]; ok {
		t.Fatal("absent key must be a miss")
	}
	for raw, id := range ids {
		if hits[raw].ID != id {
			t.Fatalf("id mismatch for %s", raw)
		}
	}
	if got := hits[collections.Raw()].ExpiresAt.Sub(hits[collections.Raw()].CreatedAt); got != cachesvc.MediumTTL {
		t.Fatalf("collections lifetime %s, want %s", got, cachesvc.MediumTTL)
	}
	if testutil.ToFloat64(f.metrics.Misses.WithLabelValues("metadata_search", "absent")) != 1 {
		t.Fatal("expected one absent miss")
	}
}

func TestExpiredEntriesAreNotReturned(t *testing.T) {
	f := newFixture(t, "v1")
	ctx := context.Background()
	key := searchKey("u1", "heat")
	if _, err := cachesvc.Set(ctx, f.svc, key, searchValue("Heat")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	f.clock.Advance(cachesvc.ShortTTL - time.Second)
	if _, _, ok, err := cachesvc.Get(ctx, f.svc, key); err != nil || !ok {
		t.Fatalf("expected hit before expiry, ok=%v err=%v", ok, err)
	}

	f.clock.Advance(2 * time.Second)
	if _, _, ok, err := cachesvc.Get(ctx, f.svc, key); err != nil || ok {
		t.Fatalf("expected miss after expiry, ok=%v err=%v", ok, err)
	}
	rows, err := f.store.Fetch(ctx, []string{key.String()})
	if err != nil || len(rows) != 1 {
		t.Fatalf("expired row should remain until purged, got %d rows, err %v", len(rows), err)
	}
	if testutil.ToFloat64(f.metrics.Misses.WithLabelValues("metadata_search", "expired")) != 1 {
		t.Fatal("expected expired miss recorded")
	}
}

func TestSecondSetOverwritesSingleRow(t *testing.T) {
	f := newFixture(t, "v1")
	ctx := context.Background()
	key := searchKey("u1", "heat")

	firstID, err := cachesvc.Set(ctx, f.svc, key, searchValue("First"))
	if err != nil {
		t.Fatalf("Set first: %v", err)
	}
	f.clock.Advance(time.Second)
	secondID, err := cachesvc.Set(ctx, f.svc, key, searchValue("Second"))
	if err != nil {
		t.Fatalf("Set second: %v", err)
	}

	rows, err := f.store.List(ctx, cachestore.ListFilter{Variant: "metadata_search"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	id, value, ok, err := cachesvc.Get(ctx, f.svc, key)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if value.Items[0].Title != "Second" || id != secondID {
		t.Fatalf("expected second value, got %+v id %s", value, id)
	}
	if firstID == secondID {
		t.Fatal("overwrite is expected to assign a new entry id")
	}
}

func TestGetOrSetWithSkipsProducerOnHit(t *testing.T) {
	f := newFixture(t, "v1")
	ctx := context.Background()
	key := searchKey("u1", "heat")

	calls := 0
	producer := func(context.Context) (appcache.MetadataSearchValue, error) {
		calls++
		return searchValue("Heat"), nil
	}
	firstID, first, err := cachesvc.GetOrSetWith(ctx, f.svc, key, producer)
	if err != nil {
		t.Fatalf("first GetOrSetWith: %v", err)
	}
	if calls != 1 || first.Items[0].Title != "Heat" {
		t.Fatalf("unexpected first result calls=%d value=%+v", calls, first)
	}

	failing := func(context.Context) (appcache.MetadataSearchValue, error) {
		calls++
		return appcache.MetadataSearchValue{}, errors.New("producer must not run on a hit")
	}
	secondID, second, err := cachesvc.GetOrSetWith(ctx, f.svc, key, failing)
	if err != nil {
		t.Fatalf("second GetOrSetWith: %v", err)
	}
	if calls != 1 {
		t.Fatalf("producer invoked on hit, calls=%d", calls)
	}
	if secondID != firstID || second.Items[0].Title != "Heat" {
		t.Fatalf("unexpected cached result id=%s value=%+v", secondID, second)
	}
}

func TestGetOrSetWithProducerFailureCachesNothing(t *testing.T) {
	f := newFixture(t, "v1")
	ctx := context.Background()
	key := searchKey("u1", "heat")
	boom := errors.New("catalog unavailable")

	_, _, err := cachesvc.GetOrSetWith(ctx, f.svc, key, func(context.Context) (appcache.MetadataSearchValue, error) {
		return appcache.MetadataSearchValue{}, boom
	})
	if err != boom {
		t.Fatalf("expected producer error verbatim, got %v", err)
	}
	if _, _, ok, err := cachesvc.Get(ctx, f.svc, key); err != nil || ok {
		t.Fatalf("expected nothing cached, ok=%v err=%v", ok, err)
	}
	if testutil.ToFloat64(f.metrics.ProducerFailures.WithLabelValues("metadata_search")) != 1 {
		t.Fatal("expected producer failure recorded")
	}
}

func TestGetOrSetWithCancelledProducerCachesNothing(t *testing.T) {
	f := newFixture(t, "v1")
	key := searchKey("u1", "heat")
	ctx, cancel := context.WithCancel(context.Background())

	_, _, err := cachesvc.GetOrSetWith(ctx, f.svc, key, func(ctx context.Context) (appcache.MetadataSearchValue, error) {
		cancel()
		return searchValue("Heat"), nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, _, ok, err := cachesvc.Get(context.Background(), f.svc, key); err != nil || ok {
		t.Fatalf("expected nothing cached, ok=%v err=%v", ok, err)
	}
}

func TestGetOrSetWithRacingProducersLastWriterWins(t *testing.T) {
	f := newFixture(t, "v1")
	ctx := context.Background()
	key := searchKey("u1", "heat")

	var inner appcache.MetadataSearchValue
	_, outer, err := cachesvc.GetOrSetWith(ctx, f.svc, key, func(ctx context.Context) (appcache.MetadataSearchValue, error) {
		// A second caller arrives while the first producer is still running.
		_, v, err := cachesvc.GetOrSetWith(ctx, f.svc, key, func(context.Context) (appcache.MetadataSearchValue, error) {
			return searchValue("Inner"), nil
		})
		if err != nil {
			return appcache.MetadataSearchValue{}, err
		}
		inner = v
		return searchValue("Outer"), nil
	})
	if err != nil {
		t.Fatalf("GetOrSetWith: %v", err)
	}
	if inner.Items[0].Title != "Inner" || outer.Items[0].Title != "Outer" {
		t.Fatalf("each caller should keep its own result, inner=%+v outer=%+v", inner, outer)
	}
	_, stored, ok, err := cachesvc.Get(ctx, f.svc, key)
	if err != nil || !ok || stored.Items[0].Title != "Outer" {
		t.Fatalf("expected last writer to win, got %+v ok=%v err=%v", stored, ok, err)
	}
}

func TestExpireByIDAndKey(t *testing.T) {
	f := newFixture(t, "v1")
	ctx := context.Background()
	byID := searchKey("u1", "by-id")
	byKey := searchKey("u1", "by-key")

	id, err := cachesvc.Set(ctx, f.svc, byID, searchValue("A"))
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := cachesvc.Set(ctx, f.svc, byKey, searchValue("B")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	changed, err := f.svc.Expire(ctx, cachesvc.ByID(id))
	if err != nil || !changed {
		t.Fatalf("Expire(ByID) = %v, %v", changed, err)
	}
	if _, _, ok, _ := cachesvc.Get(ctx, f.svc, byID); ok {
		t.Fatal("expired entry returned before its ttl elapsed")
	}
	if changed, err := f.svc.Expire(ctx, cachesvc.ByID(id)); err != nil || changed {
		t.Fatalf("second Expire(ByID) = %v, %v", changed, err)
	}

	changed, err = f.svc.Expire(ctx, cachesvc.ByKey(byKey.Raw()))
	if err != nil || !changed {
		t.Fatalf("Expire(ByKey) = %v, %v", changed, err)
	}
	if _, _, ok, _ := cachesvc.Get(ctx, f.svc, byKey); ok {
		t.Fatal("key-expired entry still returned")
	}

	if _, err := f.svc.Expire(ctx, cachesvc.Target{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty target, got %v", err)
	}
}

func TestExpireVariantLeavesOtherVariants(t *testing.T) {
	f := newFixture(t, "v1")
	ctx := context.Background()

	analytics := []cachekey.Key[appcache.UserAnalyticsParametersValue]{
		appcache.UserAnalyticsParameters.Key(cachekey.ForUser("u1", appcache.DateRange{Start: "2025-01-01"})),
		appcache.UserAnalyticsParameters.Key(cachekey.ForUser("u2", appcache.DateRange{})),
	}
	for _, key := range analytics {
		if _, err := cachesvc.Set(ctx, f.svc, key, appcache.UserAnalyticsParametersValue{Lots: []media.Lot{media.LotMovie}}); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	other := searchKey("u1", "heat")
	if _, err := cachesvc.Set(ctx, f.svc, other, searchValue("Heat")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	n, err := f.svc.ExpireVariant(ctx, appcache.UserAnalyticsParameters.Variant())
	if err != nil || n != 2 {
		t.Fatalf("ExpireVariant = %d, %v", n, err)
	}
	for _, key := range analytics {
		if _, _, ok, _ := cachesvc.Get(ctx, f.svc, key); ok {
			t.Fatalf("entry %s survived variant expiry", key)
		}
	}
	if _, _, ok, _ := cachesvc.Get(ctx, f.svc, other); !ok {
		t.Fatal("other variant was expired")
	}
	if _, err := f.svc.ExpireVariant(ctx, "no_such_variant"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVersionedVariantsAreInvalidAcrossVersions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	clock := testsupport.NewManualClock(time.Time{})
	ctx := context.Background()

	v1 := newFixtureWithStore(t, store, "v1", clock)
	v2 := newFixtureWithStore(t, store, "v2", clock)

	core := appcache.CoreDetails.Key(cachekey.Global{})
	tmdb := appcache.TmdbSettings.Key(cachekey.Global{})
	if _, err := cachesvc.Set(ctx, v1.svc, core, appcache.CoreDetailsValue{Version: "v1"}); err != nil {
		t.Fatalf("Set core: %v", err)
	}
	if _, err := cachesvc.Set(ctx, v1.svc, tmdb, appcache.TmdbSettingsValue{ImageBaseURL: "https://img"}); err != nil {
		t.Fatalf("Set tmdb: %v", err)
	}

	if _, value, ok, err := cachesvc.Get(ctx, v1.svc, core); err != nil || !ok || value.Version != "v1" {
		t.Fatalf("same version should hit, ok=%v err=%v value=%+v", ok, err, value)
	}
	if _, _, ok, err := cachesvc.Get(ctx, v2.svc, core); err != nil || ok {
		t.Fatalf("different version should miss, ok=%v err=%v", ok, err)
	}
	if _, _, ok, err := cachesvc.Get(ctx, v2.svc, tmdb); err != nil || !ok {
		t.Fatalf("unversioned variant should hit across versions, ok=%v err=%v", ok, err)
	}
	if testutil.ToFloat64(v2.metrics.Misses.WithLabelValues("core_details", "version")) != 1 {
		t.Fatal("expected version miss recorded")
	}

	rows, err := store.Fetch(ctx, []string{core.String(), tmdb.String()})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	for _, row := range rows {
		switch row.Variant {
		case "core_details":
			if row.Version == nil || *row.Version != "v1" {
				t.Fatalf("expected core details stamped with v1, got %v", row.Version)
			}
		case "tmdb_settings":
			if row.Version != nil {
				t.Fatalf("unversioned variant stamped with %q", *row.Version)
			}
		}
	}
}

func TestTTLPerVariant(t *testing.T) {
	f := newFixture(t, "v1")
	tests := []struct {
		variant cachekey.Variant
		want    time.Duration
	}{
		{appcache.MetadataSearch.Variant(), cachesvc.ShortTTL},
		{appcache.MetadataRecentlyConsumed.Variant(), cachesvc.ShortTTL},
		{appcache.UserCollectionsList.Variant(), cachesvc.MediumTTL},
		{appcache.CoreDetails.Variant(), cachesvc.MediumTTL},
		{appcache.ListennotesSettings.Variant(), cachesvc.LongTTL},
		{appcache.ProgressUpdateCache.Variant(), 3 * time.Hour},
		{"unregistered", 0},
	}
	for _, tt := range tests {
		if got := f.svc.TTL(tt.variant); got != tt.want {
			t.Errorf("TTL(%s) = %s, want %s", tt.variant, got, tt.want)
		}
	}
}

func TestNewRejectsIncompleteTTLTable(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := cachesvc.New(store, cachesvc.Options{TTLs: cachesvc.TTLTable{cachekey.Short: time.Minute}})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := cachesvc.New(nil, cachesvc.Options{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for nil store, got %v", err)
	}
}

type failingStore struct {
	cachesvc.Store
	err error
}

func (s failingStore) Fetch(context.Context, []string) ([]cachestore.Row, error) {
	return nil, s.err
}

func (s failingStore) Upsert(context.Context, []cachestore.Row) error {
	return s.err
}

func TestStoreFailuresPropagate(t *testing.T) {
	diskErr := errors.New("disk I/O error")
	svc, err := cachesvc.New(failingStore{err: diskErr}, cachesvc.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	key := searchKey("u1", "heat")

	if _, err := cachesvc.Set(ctx, svc, key, searchValue("Heat")); !errors.Is(err, services.ErrStore) || !errors.Is(err, diskErr) {
		t.Fatalf("Set error = %v", err)
	}
	calls := 0
	_, _, err = cachesvc.GetOrSetWith(ctx, svc, key, func(context.Context) (appcache.MetadataSearchValue, error) {
		calls++
		return searchValue("Heat"), nil
	})
	if !errors.Is(err, services.ErrStore) {
		t.Fatalf("GetOrSetWith error = %v", err)
	}
	if calls != 0 {
		t.Fatalf("producer should not run when the read fails, calls=%d", calls)
	}
}

func TestDecodeRejectsForeignVariant(t *testing.T) {
	key := searchKey("u1", "heat")
	_, err := cachesvc.Decode(key, cachesvc.Hit{Variant: appcache.PeopleSearch.Variant(), Value: []byte(`{}`)})
	if !errors.Is(err, cachekey.ErrVariantMismatch) {
		t.Fatalf("expected variant mismatch, got %v", err)
	}
}
