package muid

import (
	"sync"
	"testing"
	"time"
)

func TestMakeUniqueAcrossGoroutines(t *testing.T) {
	const workers, perWorker = 16, 20_000
	var (
		mu   sync.Mutex
		seen = make(map[MUID]struct{}, workers*perWorker)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]MUID, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, Make())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range local {
				if _, ok := seen[id]; ok {
					t.Errorf("collision: %s", id)
					return
				}
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()
}

func TestGeneratorMonotonic(t *testing.T) {
	g := NewGenerator(Layout{Node: 7}, 0, 0)
	prev := g.Next()
	for i := 0; i < 100_000; i++ {
		next := g.Next()
		if next <= prev {
			t.Fatalf("id %d went backwards: %d <= %d", i, next, prev)
		}
		prev = next
	}
}

func TestGeneratorTime(t *testing.T) {
	g := NewGenerator(Layout{}, 1, 2)
	before := time.Now().Add(-time.Millisecond)
	got := g.Time(g.Next())
	if got.Before(before) || got.After(time.Now().Add(time.Second)) {
		t.Fatalf("decoded time %v outside expected window", got)
	}
}

func TestParseRoundTrip(t *testing.T) {
	id := Make()
	parsed, err := Parse(id.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed != id {
		t.Fatalf("parsed %d, want %d", parsed, id)
	}
	if _, err := Parse("not base32!"); err == nil {
		t.Fatal("expected parse error")
	}
}

func BenchmarkMake(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Make()
	}
}
