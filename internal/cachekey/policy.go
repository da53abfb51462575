package cachekey

import "fmt"

// TTLClass groups variants that share a lifetime. The durations are resolved
// by the cache service.
type TTLClass int

const (
	// Short lived results recomputed almost every read, such as searches.
	Short TTLClass = iota + 1
	// Medium lived user-scoped aggregates.
	Medium
	// Long lived snapshots of externally sourced settings.
	Long
	// ProgressWindow is taken from the configured progress-update window.
	ProgressWindow
)

// TTLClasses lists every class; a TTL table must cover all of them.
func TTLClasses() []TTLClass {
	return []TTLClass{Short, Medium, Long, ProgressWindow}
}

func (c TTLClass) String() string {
	switch c {
	case Short:
		return "short"
	case Medium:
		return "medium"
	case Long:
		return "long"
	case ProgressWindow:
		return "progress_window"
	default:
		return fmt.Sprintf("ttl_class(%d)", int(c))
	}
}

// Policy is the per-variant cache policy.
type Policy struct {
	TTL TTLClass
	// Versioned entries are only valid for the process version that wrote them.
	Versioned bool
}
