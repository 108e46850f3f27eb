package ids

import (
	"sync"
	"testing"
)

func TestNewIsUniqueUnderConcurrency(t *testing.T) {
	const n = 1000
	var (
		mu   sync.Mutex
		seen = make(map[string]bool, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := New()
			mu.Lock()
			defer mu.Unlock()
			if seen[id] {
				t.Errorf("duplicate id %s", id)
			}
			seen[id] = true
		}()
	}
	wg.Wait()
}

func TestNewIsSortable(t *testing.T) {
	a := New()
	b := New()
	if len(a) != 26 || len(b) != 26 {
		t.Fatalf("unexpected id lengths: %d, %d", len(a), len(b))
	}
	if b < a {
		t.Fatalf("ids not monotonic: %s then %s", a, b)
	}
}
