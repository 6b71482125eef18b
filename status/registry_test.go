package status

import (
	"sync"
	"testing"
)

func TestCounterPointerIsStable(t *testing.T) {
	r := NewRegistry()
	a := r.Counter(KeysEchoed)
	b := r.Counter(KeysEchoed)
	if a != b {
		t.Fatal("expected the same counter for the same name")
	}
	a.Add(3)
	if got := r.Snapshot()[KeysEchoed]; got != 3 {
		t.Errorf("snapshot: got %d, want 3", got)
	}
}

func TestNilRegistryCounter(t *testing.T) {
	var r *Registry
	c := r.Counter(OutputBytes)
	c.Add(1)
	if c.Load() != 1 {
		t.Errorf("detached counter should still count")
	}
}

func TestConcurrentGet(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Counter(LinesSubmitted).Add(1)
		}()
	}
	wg.Wait()

	if got := r.Counter(LinesSubmitted).Load(); got != 16 {
		t.Errorf("got %d, want 16", got)
	}
	if r.TotalCount() != 1 {
		t.Errorf("expected one metric, got %d", r.TotalCount())
	}
}

func TestKeyValsSorted(t *testing.T) {
	r := NewRegistry()
	r.Counter(OutputFlushes).Add(2)
	r.Counter(KeysEchoed).Add(1)

	kv := r.KeyVals()
	if len(kv) != 4 {
		t.Fatalf("got %d entries, want 4", len(kv))
	}
	if kv[0] != KeysEchoed || kv[2] != OutputFlushes {
		t.Errorf("keys not sorted: %v", kv)
	}
}

func TestKeyValsIncludesFlags(t *testing.T) {
	r := NewRegistry()
	r.Counter(LinesSubmitted).Add(1)
	r.Flag(InputEnabled).Store(true)

	kv := r.KeyVals()
	if len(kv) != 4 {
		t.Fatalf("got %d entries, want 4", len(kv))
	}
	if kv[2] != InputEnabled || kv[3] != true {
		t.Errorf("flag missing after counters: %v", kv)
	}

	var nilReg *Registry
	if nilReg.Flag(InputEnabled).Load() {
		t.Error("detached flag should start false")
	}
}
