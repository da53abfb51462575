// Package cachekey models cache keys as a closed set of typed variants.
//
// Each variant is declared once with Define, which binds its payload type,
// its value type, and its lifetime policy. A Key[V] can only be built from a
// Definition and only stores or loads values of type V, so a key can never be
// paired with another variant's value. Keys reduce to a comparable Raw form
// (variant plus canonical payload) used as the persisted unique key and as a
// map key in bulk lookups.
package cachekey
