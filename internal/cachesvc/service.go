package cachesvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mediatrack/internal/cachekey"
	"mediatrack/internal/cachestore"
	"mediatrack/internal/logging"
	"mediatrack/internal/services"
)

// Store is the persistence the service needs.
type Store interface {
	Upsert(ctx context.Context, rows []cachestore.Row) error
	Fetch(ctx context.Context, keys []string) ([]cachestore.Row, error)
	ExpireByID(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	ExpireByKey(ctx context.Context, key string, now time.Time) (bool, error)
	ExpireByVariant(ctx context.Context, variant string, now time.Time) (int64, error)
}

// Options configures a Service. Zero values select the system clock, the
// default TTL table with a two hour progress window, a no-op logger, and
// unregistered metrics.
type Options struct {
	Clock Clock
	// Version is stamped on entries of versioned variants and compared on read.
	Version string
	TTLs    TTLTable
	Logger  *slog.Logger
	Metrics *Metrics
}

// Service reads and writes typed cache entries.
type Service struct {
	store   Store
	clock   Clock
	version string
	ttls    TTLTable
	logger  *slog.Logger
	metrics *Metrics
}

// New builds a Service over store.
func New(store Store, opts Options) (*Service, error) {
	if store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "cachesvc", "new", "store is required", nil)
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.TTLs == nil {
		opts.TTLs = DefaultTTLTable(2 * time.Hour)
	}
	if err := opts.TTLs.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "cachesvc", "new", "invalid ttl table", err)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	return &Service{
		store:   store,
		clock:   opts.Clock,
		version: opts.Version,
		ttls:    opts.TTLs,
		logger:  logging.NewComponentLogger(opts.Logger, "cachesvc"),
		metrics: opts.Metrics,
	}, nil
}

// Version returns the process version used for versioned variants.
func (s *Service) Version() string {
	return s.version
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

// TTL returns the lifetime of entries of variant, or zero when the variant is
// not registered.
func (s *Service) TTL(variant cachekey.Variant) time.Duration {
	policy, ok := cachekey.Lookup(variant)
	if !ok {
		return 0
	}
	return s.ttls[policy.TTL]
}

// Pair is a key and its encoded value, ready for SetMany. Build it with Entry.
type Pair struct {
	key    cachekey.Raw
	policy cachekey.Policy
	value  []byte
	err    error
}

// Key returns the raw key of the pair.
func (p Pair) Key() cachekey.Raw {
	return p.key
}

// Entry pairs key with value. The value type is fixed by the key.
func Entry[V any](key cachekey.Key[V], value V) Pair {
	data, err := key.EncodeValue(value)
	return Pair{key: key.Raw(), policy: key.Policy(), value: data, err: err}
}

// SetMany upserts every pair and returns the new entry id per key. When the
// same key appears more than once the last pair wins.
func (s *Service) SetMany(ctx context.Context, pairs []Pair) (map[cachekey.Raw]uuid.UUID, error) {
	now := s.clock.Now()
	rows := make([]cachestore.Row, 0, len(pairs))
	ids := make(map[cachekey.Raw]uuid.UUID, len(pairs))
	for _, pair := range pairs {
		if pair.err != nil {
			return nil, services.Wrap(services.ErrValidation, "cachesvc", "set_many", "encode value", pair.err)
		}
		if pair.key.Variant == "" {
			return nil, services.Wrap(services.ErrValidation, "cachesvc", "set_many", "pair has no key", nil)
		}
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generate entry id: %w", err)
		}
		row := cachestore.Row{
			ID:        id,
			Key:       pair.key.String(),
			Variant:   string(pair.key.Variant),
			Value:     pair.value,
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttls[pair.policy.TTL]),
		}
		if pair.policy.Versioned {
			version := s.version
			row.Version = &version
		}
		rows = append(rows, row)
		ids[pair.key] = id
	}
	if len(rows) == 0 {
		return ids, nil
	}

	if err := s.store.Upsert(ctx, rows); err != nil {
		return nil, services.Wrap(services.ErrStore, "cachesvc", "set_many", "upsert entries", err)
	}
	for _, row := range rows {
		s.metrics.Writes.WithLabelValues(row.Variant).Inc()
	}
	s.logger.Debug("cache entries written", logging.Int("count", len(rows)))
	return ids, nil
}

// Set stores a single value.
func Set[V any](ctx context.Context, s *Service, key cachekey.Key[V], value V) (uuid.UUID, error) {
	ids, err := s.SetMany(ctx, []Pair{Entry(key, value)})
	if err != nil {
		return uuid.Nil, err
	}
	return ids[key.Raw()], nil
}

// Hit is a valid cache entry returned by GetMany.
type Hit struct {
	ID        uuid.UUID
	Variant   cachekey.Variant
	Value     []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// GetMany returns the valid entries among keys. Absent, expired, and
// version-mismatched entries are left out of the result; a missing key is a
// miss, never an error.
func (s *Service) GetMany(ctx context.Context, keys []cachekey.Raw) (map[cachekey.Raw]Hit, error) {
	hits := make(map[cachekey.Raw]Hit, len(keys))
	if len(keys) == 0 {
		return hits, nil
	}
	wanted := make(map[string]cachekey.Raw, len(keys))
	storeKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		encoded := key.String()
		if _, dup := wanted[encoded]; dup {
			continue
		}
		wanted[encoded] = key
		storeKeys = append(storeKeys, encoded)
	}

	rows, err := s.store.Fetch(ctx, storeKeys)
	if err != nil {
		return nil, services.Wrap(services.ErrStore, "cachesvc", "get_many", "fetch entries", err)
	}

	now := s.clock.Now()
	for _, row := range rows {
		key, ok := wanted[row.Key]
		if !ok {
			continue
		}
		delete(wanted, row.Key)
		if reason := s.invalidReason(row, now); reason != "" {
			s.metrics.Misses.WithLabelValues(row.Variant, reason).Inc()
			continue
		}
		hits[key] = Hit{
			ID:        row.ID,
			Variant:   cachekey.Variant(row.Variant),
			Value:     row.Value,
			CreatedAt: row.CreatedAt,
			ExpiresAt: row.ExpiresAt,
		}
		s.metrics.Hits.WithLabelValues(row.Variant).Inc()
	}
	// Whatever is left in wanted had no row at all.
	for _, key := range wanted {
		s.metrics.Misses.WithLabelValues(string(key.Variant), "absent").Inc()
	}
	return hits, nil
}

// invalidReason returns why row cannot be served at now, or "" when it is
// valid. An entry whose expiry equals now is already expired.
func (s *Service) invalidReason(row cachestore.Row, now time.Time) string {
	if !now.Before(row.ExpiresAt) {
		return "expired"
	}
	policy, ok := cachekey.Lookup(cachekey.Variant(row.Variant))
	if ok && policy.Versioned && (row.Version == nil || *row.Version != s.version) {
		return "version"
	}
	return ""
}

// Get returns the valid value stored under key. ok is false on a miss.
func Get[V any](ctx context.Context, s *Service, key cachekey.Key[V]) (id uuid.UUID, value V, ok bool, err error) {
	hits, err := s.GetMany(ctx, []cachekey.Raw{key.Raw()})
	if err != nil {
		return uuid.Nil, value, false, err
	}
	hit, found := hits[key.Raw()]
	if !found {
		return uuid.Nil, value, false, nil
	}
	value, err = Decode(key, hit)
	if err != nil {
		return uuid.Nil, value, false, err
	}
	return hit.ID, value, true, nil
}

// Decode parses a hit returned by GetMany for key.
func Decode[V any](key cachekey.Key[V], hit Hit) (V, error) {
	value, err := key.DecodeValue(hit.Variant, hit.Value)
	if err != nil {
		return value, services.Wrap(services.ErrStore, "cachesvc", "decode", "stored value unreadable", err)
	}
	return value, nil
}

// GetOrSetWith returns the cached value for key, or runs producer and caches
// its result. A failing or cancelled producer writes nothing and its error is
// returned unchanged.
func GetOrSetWith[V any](ctx context.Context, s *Service, key cachekey.Key[V], producer func(context.Context) (V, error)) (uuid.UUID, V, error) {
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldCacheVariant, string(key.Variant())))

	id, value, ok, err := Get(ctx, s, key)
	if err != nil {
		return uuid.Nil, value, err
	}
	if ok {
		logger.Debug("cache hit", logging.String(logging.FieldEntryID, id.String()))
		return id, value, nil
	}

	logger.Debug("cache miss; running producer")
	value, err = producer(ctx)
	if err != nil {
		s.metrics.ProducerFailures.WithLabelValues(string(key.Variant())).Inc()
		return uuid.Nil, value, err
	}
	if err := ctx.Err(); err != nil {
		return uuid.Nil, value, err
	}

	id, err = Set(ctx, s, key, value)
	if err != nil {
		return uuid.Nil, value, err
	}
	logger.Debug("cache filled", logging.String(logging.FieldEntryID, id.String()))
	return id, value, nil
}

// Target selects what Expire invalidates.
type Target struct {
	id  uuid.UUID
	key cachekey.Raw
}

// ByID targets the entry with id.
func ByID(id uuid.UUID) Target {
	return Target{id: id}
}

// ByKey targets the entry stored under key.
func ByKey(key cachekey.Raw) Target {
	return Target{key: key}
}

func (t Target) String() string {
	if t.id != uuid.Nil {
		return "id:" + t.id.String()
	}
	return "key:" + t.key.String()
}

var errEmptyTarget = errors.New("expire target is empty")

// Expire marks the targeted entry expired now and reports whether a live
// entry was affected.
func (s *Service) Expire(ctx context.Context, target Target) (bool, error) {
	now := s.clock.Now()
	var (
		changed bool
		err     error
		label   string
		variant string
	)
	switch {
	case target.id != uuid.Nil:
		label = "id"
		changed, err = s.store.ExpireByID(ctx, target.id, now)
	case target.key.Variant != "":
		label = "key"
		variant = string(target.key.Variant)
		changed, err = s.store.ExpireByKey(ctx, target.key.String(), now)
	default:
		return false, services.Wrap(services.ErrValidation, "cachesvc", "expire", "", errEmptyTarget)
	}
	if err != nil {
		return false, services.Wrap(services.ErrStore, "cachesvc", "expire", target.String(), err)
	}
	if changed {
		s.metrics.Expirations.WithLabelValues(variant, label).Inc()
		s.logger.Info("cache entry expired",
			logging.String(logging.FieldEventType, "cache_expired"),
			logging.String("target", target.String()))
	}
	return changed, nil
}

// ExpireVariant expires every live entry of variant regardless of payload.
func (s *Service) ExpireVariant(ctx context.Context, variant cachekey.Variant) (int64, error) {
	if _, ok := cachekey.Lookup(variant); !ok {
		return 0, services.Wrap(services.ErrValidation, "cachesvc", "expire_variant",
			fmt.Sprintf("unknown variant %q", variant), nil)
	}
	n, err := s.store.ExpireByVariant(ctx, string(variant), s.clock.Now())
	if err != nil {
		return 0, services.Wrap(services.ErrStore, "cachesvc", "expire_variant", string(variant), err)
	}
	if n > 0 {
		s.metrics.Expirations.WithLabelValues(string(variant), "variant").Add(float64(n))
		s.logger.Info("cache variant expired",
			logging.String(logging.FieldEventType, "cache_variant_expired"),
			logging.String(logging.FieldCacheVariant, string(variant)),
			logging.Int64("count", n))
	}
	return n, nil
}
