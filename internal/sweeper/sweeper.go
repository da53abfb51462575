// Package sweeper physically removes expired cache entries.
//
// Expired entries are already invisible to readers; the sweeper only reclaims
// their storage. A lock file next to the cache database keeps a single
// sweeper running per data directory.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mediatrack/internal/cachesvc"
	"mediatrack/internal/logging"
)

// ErrLocked is returned by Start when another sweeper holds the lock.
var ErrLocked = errors.New("another mediatrack sweeper is already running")

// Purger deletes entries that expired at or before cutoff.
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// Options configures a Sweeper.
type Options struct {
	Interval time.Duration
	LockPath string
	Clock    cachesvc.Clock
	Logger   *slog.Logger

	// Registerer receives the purge counter. Nil leaves it unregistered.
	Registerer prometheus.Registerer
}

// Sweeper periodically purges expired entries.
type Sweeper struct {
	store    Purger
	interval time.Duration
	clock    cachesvc.Clock
	logger   *slog.Logger
	lockPath string
	lock     *flock.Flock
	purged   prometheus.Counter

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Sweeper. It does not take the lock until Start.
func New(store Purger, opts Options) (*Sweeper, error) {
	if store == nil {
		return nil, errors.New("sweeper requires a store")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", opts.Interval)
	}
	if opts.LockPath == "" {
		return nil, errors.New("sweeper requires a lock path")
	}
	if opts.Clock == nil {
		opts.Clock = cachesvc.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	purged := promauto.With(opts.Registerer).NewCounter(prometheus.CounterOpts{
		Name: "mediatrack_cache_purged_total",
		Help: "Total number of expired cache entries physically deleted",
	})
	return &Sweeper{
		store:    store,
		interval: opts.Interval,
		clock:    opts.Clock,
		logger:   logging.NewComponentLogger(opts.Logger, "sweeper"),
		lockPath: opts.LockPath,
		lock:     flock.New(opts.LockPath),
		purged:   purged,
	}, nil
}

// RunOnce purges every entry expired at the current time.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	n, err := s.store.Purge(ctx, now)
	if err != nil {
		return 0, err
	}
	s.purged.Add(float64(n))
	if n > 0 {
		s.logger.Info("expired cache entries purged",
			logging.String(logging.FieldEventType, "cache_purged"),
			logging.Int64("count", n))
	} else {
		s.logger.Debug("sweep found nothing to purge")
	}
	return n, nil
}

// Start takes the lock and sweeps immediately and then every interval until
// ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return errors.New("sweeper already started")
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire sweeper lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(loopCtx, s.done)

	s.logger.Info("sweeper started",
		logging.String("lock", s.lockPath),
		logging.Duration("interval", s.interval))
	return nil
}

func (s *Sweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logging.WarnWithContext(s.logger, "cache sweep failed", "cache_sweep_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "expired entries kept until the next sweep"))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Stop ends the sweep loop, waits for an in-flight sweep, and releases the
// lock. It is safe to call on a sweeper that never started.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release sweeper lock", logging.Error(err))
	}
	s.logger.Info("sweeper stopped")
}

// Done is closed when the running sweep loop exits. It returns nil when the
// sweeper is not started.
func (s *Sweeper) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
