package progress_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediatrack/internal/cachesvc"
	"mediatrack/internal/media"
	"mediatrack/internal/progress"
	"mediatrack/internal/services"
	"mediatrack/internal/testsupport"
)

func newRecorder(t *testing.T, windowHours int) (*progress.Recorder, *testsupport.ManualClock) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithProgressWindowHours(windowHours))
	store := testsupport.MustOpenStore(t, cfg)
	clock := testsupport.NewManualClock(time.Time{})
	svc, err := cachesvc.New(store, cachesvc.Options{
		Clock: clock,
		TTLs:  cachesvc.DefaultTTLTable(cfg.ProgressUpdateWindow()),
	})
	if err != nil {
		t.Fatalf("cachesvc.New: %v", err)
	}
	return progress.NewRecorder(svc, nil), clock
}

func TestRecordCoalescesWithinWindow(t *testing.T) {
	rec, clock := newRecorder(t, 1)
	ctx := context.Background()
	update := progress.Update{UserID: "u1", MetadataID: "show-1", Lot: media.LotShow, Progress: 100, Season: 1, Episode: 2}

	first, err := rec.Record(ctx, update)
	if err != nil || !first.Accepted {
		t.Fatalf("first Record = %+v, %v", first, err)
	}

	clock.Advance(30 * time.Minute)
	dup, err := rec.Record(ctx, update)
	if err != nil {
		t.Fatalf("duplicate Record: %v", err)
	}
	if dup.Accepted || dup.EntryID != first.EntryID || !dup.RecordedAt.Equal(first.RecordedAt) {
		t.Fatalf("expected coalesced duplicate, got %+v", dup)
	}

	next := update
	next.Episode = 3
	if out, err := rec.Record(ctx, next); err != nil || !out.Accepted {
		t.Fatalf("different episode should be accepted, got %+v, %v", out, err)
	}

	clock.Advance(30 * time.Minute)
	again, err := rec.Record(ctx, update)
	if err != nil || !again.Accepted {
		t.Fatalf("update after the window should be accepted, got %+v, %v", again, err)
	}
}

func TestRecordMarksRecentlyConsumed(t *testing.T) {
	rec, clock := newRecorder(t, 2)
	ctx := context.Background()

	if consumed, err := rec.RecentlyConsumed(ctx, "u1", "m1", media.LotMovie); err != nil || consumed {
		t.Fatalf("expected nothing consumed yet, got %v, %v", consumed, err)
	}
	if _, err := rec.Record(ctx, progress.Update{UserID: "u1", MetadataID: "m1", Lot: media.LotMovie, Progress: 40}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if consumed, err := rec.RecentlyConsumed(ctx, "u1", "m1", media.LotMovie); err != nil || !consumed {
		t.Fatalf("expected consumed, got %v, %v", consumed, err)
	}
	if consumed, _ := rec.RecentlyConsumed(ctx, "u2", "m1", media.LotMovie); consumed {
		t.Fatal("consumption leaked to another user")
	}

	clock.Advance(cachesvc.ShortTTL)
	if consumed, err := rec.RecentlyConsumed(ctx, "u1", "m1", media.LotMovie); err != nil || consumed {
		t.Fatalf("expected consumed flag to lapse, got %v, %v", consumed, err)
	}
}

func TestRecordValidates(t *testing.T) {
	rec, _ := newRecorder(t, 2)
	for _, u := range []progress.Update{
		{MetadataID: "m1", Progress: 10},
		{UserID: "u1", Progress: 10},
		{UserID: "u1", MetadataID: "m1", Progress: 101},
		{UserID: "u1", MetadataID: "m1", Progress: -1},
	} {
		if _, err := rec.Record(context.Background(), u); !errors.Is(err, services.ErrValidation) {
			t.Errorf("Record(%+v) = %v, want validation error", u, err)
		}
	}
}
