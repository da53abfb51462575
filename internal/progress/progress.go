// Package progress coalesces repeated progress updates.
//
// An update identical to one accepted within the configured window is
// reported as a duplicate instead of being recorded again. Accepting an
// update also marks the item as recently consumed for the user.
package progress

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediatrack/internal/appcache"
	"mediatrack/internal/cachekey"
	"mediatrack/internal/cachesvc"
	"mediatrack/internal/logging"
	"mediatrack/internal/media"
	"mediatrack/internal/services"
)

// Update is a single progress report.
type Update struct {
	UserID     string
	MetadataID string
	Lot        media.Lot
	// Progress is a percentage in [0, 100].
	Progress int
	Season   int
	Episode  int
}

// Outcome reports what Record did with an update.
type Outcome struct {
	Accepted bool
	// EntryID identifies the cache entry of the accepted update, or of the
	// earlier update a duplicate was coalesced into.
	EntryID    uuid.UUID
	RecordedAt time.Time
}

// Recorder accepts progress updates.
type Recorder struct {
	cache  *cachesvc.Service
	logger *slog.Logger
}

// NewRecorder builds a Recorder over cache.
func NewRecorder(cache *cachesvc.Service, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{cache: cache, logger: logging.NewComponentLogger(logger, "progress")}
}

// Record accepts u unless an identical update was accepted within the
// progress window.
func (r *Recorder) Record(ctx context.Context, u Update) (Outcome, error) {
	if err := u.validate(); err != nil {
		return Outcome{}, err
	}
	key := appcache.ProgressUpdateCache.Key(cachekey.ForUser(u.UserID, appcache.ProgressUpdateInput{
		MetadataID: u.MetadataID,
		Progress:   u.Progress,
		Season:     u.Season,
		Episode:    u.Episode,
	}))
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldUserID, u.UserID),
		logging.String("metadata_id", u.MetadataID),
		logging.Int("progress", u.Progress),
	)

	id, previous, ok, err := cachesvc.Get(ctx, r.cache, key)
	if err != nil {
		return Outcome{}, err
	}
	if ok {
		logger.Debug("progress update coalesced",
			logging.Args(logging.DecisionAttrs("progress_update", "duplicate", "identical update within window"))...)
		return Outcome{EntryID: id, RecordedAt: previous.RecordedAt}, nil
	}

	now := r.cache.Now()
	consumed := appcache.MetadataRecentlyConsumed.Key(cachekey.ForUser(u.UserID,
		appcache.MetadataRecentlyConsumedInput{EntityID: u.MetadataID, Lot: u.Lot}))
	ids, err := r.cache.SetMany(ctx, []cachesvc.Pair{
		cachesvc.Entry(key, appcache.ProgressUpdateValue{RecordedAt: now}),
		cachesvc.Entry(consumed, true),
	})
	if err != nil {
		return Outcome{}, err
	}
	logger.Info("progress update accepted",
		logging.Args(append(logging.DecisionAttrs("progress_update", "accepted", "first update within window"),
			logging.String(logging.FieldEventType, "progress_accepted"))...)...)
	return Outcome{Accepted: true, EntryID: ids[key.Raw()], RecordedAt: now}, nil
}

// RecentlyConsumed reports whether the user recorded progress on the item
// within the short TTL.
func (r *Recorder) RecentlyConsumed(ctx context.Context, userID, metadataID string, lot media.Lot) (bool, error) {
	key := appcache.MetadataRecentlyConsumed.Key(cachekey.ForUser(userID,
		appcache.MetadataRecentlyConsumedInput{EntityID: metadataID, Lot: lot}))
	_, consumed, ok, err := cachesvc.Get(ctx, r.cache, key)
	if err != nil {
		return false, err
	}
	return ok && consumed, nil
}

func (u Update) validate() error {
	switch {
	case strings.TrimSpace(u.UserID) == "":
		return services.Wrap(services.ErrValidation, "progress", "record", "user id is required", nil)
	case strings.TrimSpace(u.MetadataID) == "":
		return services.Wrap(services.ErrValidation, "progress", "record", "metadata id is required", nil)
	case u.Progress < 0 || u.Progress > 100:
		return services.Wrap(services.ErrValidation, "progress", "record", "progress must be within 0-100", nil)
	}
	return nil
}
