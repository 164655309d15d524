package session

import (
	"sync"
	"testing"
	"time"
)

func TestDispatchPreservesPerUserOrder(t *testing.T) {
	d := NewDispatcher()

	const n = 100
	var mu sync.Mutex
	got := make([]int, 0, n)

	for i := 0; i < n; i++ {
		i := i
		d.Dispatch(1, func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	d.Close()

	if len(got) != n {
		t.Fatalf("Expected %d tasks to run, got %d", n, len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("Expected task %d at position %d, got %d", i, i, v)
		}
	}
}

func TestDispatchSeparateUsers(t *testing.T) {
	d := NewDispatcher()

	var mu sync.Mutex
	counts := make(map[int64]int)

	for userID := int64(1); userID <= 4; userID++ {
		for i := 0; i < 10; i++ {
			userID := userID
			d.Dispatch(userID, func() {
				mu.Lock()
				counts[userID]++
				mu.Unlock()
			})
		}
	}
	d.Close()

	for userID := int64(1); userID <= 4; userID++ {
		if counts[userID] != 10 {
			t.Errorf("Expected 10 tasks for user %d, got %d", userID, counts[userID])
		}
	}
}

func TestDispatchNeverBlocksAcrossUsers(t *testing.T) {
	d := NewDispatcher()

	started := make(chan struct{})
	release := make(chan struct{})
	d.Dispatch(1, func() {
		close(started)
		<-release
	})
	<-started

	// Pile a deep backlog onto user 1 while its worker is parked. None of
	// these sends may block the dispatching goroutine.
	for i := 0; i < 64; i++ {
		d.Dispatch(1, func() {})
	}

	done := make(chan struct{})
	d.Dispatch(2, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected user 2's task to run while user 1's worker was busy")
	}

	close(release)
	d.Close()
}

func TestCloseDrainsQueuedTasks(t *testing.T) {
	d := NewDispatcher()

	const n = 50
	var mu sync.Mutex
	ran := 0

	for i := 0; i < n; i++ {
		d.Dispatch(1, func() {
			mu.Lock()
			ran++
			mu.Unlock()
		})
	}
	d.Close()

	if ran != n {
		t.Errorf("Expected Close to drain all %d tasks, got %d", n, ran)
	}
}

func TestDispatchDuringClose(t *testing.T) {
	// Dispatch racing Close must never panic; late tasks are either run or
	// dropped, and every task accepted before Close completes.
	for i := 0; i < 200; i++ {
		d := NewDispatcher()

		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			g := g
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					d.Dispatch(int64(g), func() {})
				}
			}()
		}
		d.Close()
		wg.Wait()
	}
}

func TestDispatchAfterCloseIsDropped(t *testing.T) {
	d := NewDispatcher()
	d.Close()

	ran := false
	d.Dispatch(1, func() { ran = true })

	if ran {
		t.Error("Expected task dispatched after Close to be dropped")
	}
}
