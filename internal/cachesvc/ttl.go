package cachesvc

import (
	"fmt"
	"time"

	"mediatrack/internal/cachekey"
)

// Fixed lifetimes. The progress window comes from configuration.
const (
	ShortTTL  = time.Minute
	MediumTTL = 2 * time.Hour
	LongTTL   = 48 * time.Hour
)

// TTLTable maps each lifetime class to a duration.
type TTLTable map[cachekey.TTLClass]time.Duration

// DefaultTTLTable returns the fixed lifetimes plus the configured progress window.
func DefaultTTLTable(progressWindow time.Duration) TTLTable {
	return TTLTable{
		cachekey.Short:          ShortTTL,
		cachekey.Medium:         MediumTTL,
		cachekey.Long:           LongTTL,
		cachekey.ProgressWindow: progressWindow,
	}
}

// Validate checks that every class has a positive duration.
func (t TTLTable) Validate() error {
	for _, class := range cachekey.TTLClasses() {
		d, ok := t[class]
		if !ok {
			return fmt.Errorf("ttl table: missing %s", class)
		}
		if d <= 0 {
			return fmt.Errorf("ttl table: %s must be positive, got %s", class, d)
		}
	}
	return nil
}
