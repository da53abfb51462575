package cachekey

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// Definition declares a variant: payload type P, value type V, and policy.
type Definition[P comparable, V any] struct {
	variant Variant
	policy  Policy
}

// Define declares and registers a variant. It panics when the name is empty,
// contains the key separator, is already registered, when the policy has no
// TTL class, or when P cannot be encoded as JSON. Definitions are expected to
// be package-level variables so these failures surface at start-up.
func Define[P comparable, V any](variant Variant, policy Policy) Definition[P, V] {
	name := strings.TrimSpace(string(variant))
	if name == "" || name != string(variant) || strings.Contains(name, rawSeparator) {
		panic(fmt.Sprintf("cachekey: invalid variant name %q", variant))
	}
	if !slices.Contains(TTLClasses(), policy.TTL) {
		panic(fmt.Sprintf("cachekey: variant %s has no ttl class", variant))
	}
	var zero P
	if _, err := json.Marshal(zero); err != nil {
		panic(fmt.Sprintf("cachekey: variant %s payload is not encodable: %v", variant, err))
	}
	register(variant, policy)
	return Definition[P, V]{variant: variant, policy: policy}
}

func (d Definition[P, V]) Variant() Variant { return d.variant }
func (d Definition[P, V]) Policy() Policy { return d.policy }

// Key builds the key for payload.
func (d Definition[P, V]) Key(payload P) Key[V] {
	data, err := json.Marshal(payload)
	if err != nil {
		// Define already proved P encodes; only exotic values such as NaN land here.
		panic(fmt.Sprintf("cachekey: encode %s payload: %v", d.variant, err))
	}
	return Key[V]{raw: Raw{Variant: d.variant, Payload: string(data)}, policy: d.policy}
}

var (
	registryMu sync.RWMutex
	registry   = map[Variant]Policy{}
)

func register(variant Variant, policy Policy) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[variant]; exists {
		panic(fmt.Sprintf("cachekey: variant %s defined twice", variant))
	}
	registry[variant] = policy
}

// Lookup returns the policy registered for variant.
func Lookup(variant Variant) (Policy, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	policy, ok := registry[variant]
	return policy, ok
}

// Variants returns every registered variant, sorted by name.
func Variants() []Variant {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Variant, 0, len(registry))
	for variant := range registry {
		out = append(out, variant)
	}
	slices.Sort(out)
	return out
}
