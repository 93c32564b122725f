package realtime

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestStore_EventsReturnsCopy(t *testing.T) {
	t.Parallel()

	store := NewStore(0, 0)
	now := time.Now()
	store.Add(testEvent("site-1", "fp", "/", now))

	events := store.Events("site-1")
	if len(events) != 1 {
		t.Fatalf("len = %d, want 1", len(events))
	}

	events[0].Path = "/mutated"
	fresh := store.Events("site-1")
	if fresh[0].Path != "/" {
		t.Error("mutating a snapshot must not affect the buffer")
	}
}

func TestStore_Prune(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Hour, 0)
	now := time.Now()

	store.Add(testEvent("site-1", "fp", "/old", now.Add(-2*time.Hour)))
	store.Add(testEvent("site-1", "fp", "/new", now.Add(-time.Minute)))
	store.Add(testEvent("site-2", "fp", "/gone", now.Add(-3*time.Hour)))

	store.Prune(now)

	if got := store.Events("site-1"); len(got) != 1 || got[0].Path != "/new" {
		t.Errorf("site-1 after prune = %v, want only /new", got)
	}
	if got := store.Events("site-2"); got != nil {
		t.Errorf("site-2 should be fully pruned, got %v", got)
	}
}

func TestStore_QueryCorrectWithoutPrune(t *testing.T) {
	t.Parallel()

	// Stale events still in the buffer must not leak into a window query.
	store := NewStore(time.Hour, 0)
	now := time.Now()

	store.Add(testEvent("site-1", "fp-old", "/", now.Add(-3*time.Hour)))
	store.Add(testEvent("site-1", "fp-new", "/", now.Add(-time.Minute)))

	snap, err := store.Snapshot("site-1", Query{WindowMinutes: 30}, now)
	if err != nil {
		t.Fatalf("Snapshot error = %v", err)
	}
	if snap.ActiveVisitors != 1 {
		t.Errorf("ActiveVisitors = %d, want 1 (stale event excluded)", snap.ActiveVisitors)
	}
}

func TestStore_MaxPerSite(t *testing.T) {
	t.Parallel()

	store := NewStore(0, 10)
	now := time.Now()

	for i := 0; i < 25; i++ {
		store.Add(testEvent("site-1", "fp", fmt.Sprintf("/p%d", i), now.Add(time.Duration(i)*time.Second)))
	}

	events := store.Events("site-1")
	if len(events) != 10 {
		t.Fatalf("len = %d, want 10", len(events))
	}
	if events[0].Path != "/p15" {
		t.Errorf("oldest kept = %s, want /p15", events[0].Path)
	}
}

func TestStore_ConcurrentAddAndSnapshot(t *testing.T) {
	t.Parallel()

	store := NewStore(0, 0)
	now := time.Now()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			site := fmt.Sprintf("site-%d", w%4)
			for i := 0; i < 200; i++ {
				store.Add(testEvent(site, fmt.Sprintf("fp-%d-%d", w, i), "/", now))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			site := fmt.Sprintf("site-%d", r)
			for i := 0; i < 50; i++ {
				if _, err := store.Snapshot(site, Query{}, now); err != nil {
					t.Errorf("Snapshot error = %v", err)
					return
				}
			}
		}(r)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 4; i++ {
		total += len(store.Events(fmt.Sprintf("site-%d", i)))
	}
	if total != 8*200 {
		t.Errorf("total events = %d, want %d", total, 8*200)
	}
}
