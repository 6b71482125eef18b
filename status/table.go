package status

import (
	"slices"
	"sync"
	"sync/atomic"
)

// table maps metric names to values of type T
// Values are created on first lookup and never removed, so callers keep the
// pointer and update it without touching the table again
type table[T any] struct {
	items sync.Map // string -> *T
	size  atomic.Int32
}

func (t *table[T]) get(name string) *T {
	if v, ok := t.items.Load(name); ok {
		return v.(*T)
	}
	v, loaded := t.items.LoadOrStore(name, new(T))
	if !loaded {
		t.size.Add(1)
	}
	return v.(*T)
}

// each visits values in sorted name order
func (t *table[T]) each(fn func(name string, v *T)) {
	names := make([]string, 0, t.len())
	t.items.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	slices.Sort(names)

	for _, name := range names {
		v, _ := t.items.Load(name)
		fn(name, v.(*T))
	}
}

func (t *table[T]) len() int {
	return int(t.size.Load())
}
