// Package status collects session counters published by the terminal backends
package status

import "sync/atomic"

// Counter names published by the terminal backends
const (
	KeysEchoed     = "keys.echoed"
	KeysRejected   = "keys.rejected"
	LinesSubmitted = "lines.submitted"
	OutputBytes    = "output.bytes"
	OutputFlushes  = "output.flushes"
	InputSuspended = "input.suspended"
)

// Flag names published by the terminal backends
const (
	InputEnabled = "input.enabled"
)

// Registry is the metrics facade shared by one session
type Registry struct {
	counters table[atomic.Int64]
	flags    table[atomic.Bool]
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Counter returns the named counter, nil-safe for a nil Registry
func (r *Registry) Counter(name string) *atomic.Int64 {
	if r == nil {
		return new(atomic.Int64)
	}
	return r.counters.get(name)
}

// Flag returns the named flag, nil-safe for a nil Registry
func (r *Registry) Flag(name string) *atomic.Bool {
	if r == nil {
		return new(atomic.Bool)
	}
	return r.flags.get(name)
}

// Snapshot copies every counter value
func (r *Registry) Snapshot() map[string]int64 {
	out := make(map[string]int64, r.counters.len())
	r.counters.each(func(key string, v *atomic.Int64) {
		out[key] = v.Load()
	})
	return out
}

// KeyVals flattens counters then flags into alternating key/value pairs in sorted order, for structured logging
func (r *Registry) KeyVals() []any {
	kv := make([]any, 0, 2*r.TotalCount())
	r.counters.each(func(key string, v *atomic.Int64) {
		kv = append(kv, key, v.Load())
	})
	r.flags.each(func(key string, v *atomic.Bool) {
		kv = append(kv, key, v.Load())
	})
	return kv
}

// TotalCount returns the number of registered metrics
func (r *Registry) TotalCount() int {
	return r.counters.len() + r.flags.len()
}
