// SPDX-License-Identifier: MPL-2.0

package connect

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

// TestGuard_Sequences walks every open/close sequence up to length 5 and
// checks each call against a reference model: only strictly alternating
// sequences starting with open succeed, and failures leave the state as it
// was.
func TestGuard_Sequences(t *testing.T) {
	t.Parallel()

	const maxLen = 5
	for n := 1; n <= maxLen; n++ {
		for mask := range 1 << n {
			var g Guard
			modelOpen := false
			for i := range n {
				isOpen := mask&(1<<i) != 0
				before := g.IsOpen()
				var err error
				if isOpen {
					err = g.Open()
				} else {
					err = g.Close()
				}

				wantOK := isOpen != modelOpen
				if wantOK {
					modelOpen = isOpen
				}
				if (err == nil) != wantOK {
					t.Fatalf("n=%d mask=%b step=%d open=%v: err = %v, want ok=%v", n, mask, i, isOpen, err, wantOK)
				}
				if err != nil {
					var stateErr *StateError
					if !errors.As(err, &stateErr) {
						t.Fatalf("error %v is not a *StateError", err)
					}
					if g.IsOpen() != before {
						t.Fatalf("failed call changed state from %v", before)
					}
				}
				if g.IsOpen() != modelOpen {
					t.Fatalf("state = %v, model = %v", g.IsOpen(), modelOpen)
				}
			}
		}
	}
}

func TestGuard_Errors(t *testing.T) {
	t.Parallel()

	var g Guard
	if err := g.Close(); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("Close() on closed guard = %v", err)
	}
	if err := g.Check("entry"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Check() on closed guard = %v", err)
	}
	if err := g.Open(); err != nil {
		t.Fatal(err)
	}
	if err := g.Open(); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("second Open() = %v", err)
	}
	if err := g.Check("entry"); err != nil {
		t.Errorf("Check() on open guard = %v", err)
	}
}

func TestGuard_ConcurrentOpenHasOneWinner(t *testing.T) {
	t.Parallel()

	var (
		g     Guard
		wins  atomic.Int32
		fails atomic.Int32
		wg    sync.WaitGroup
	)
	for range 64 {
		wg.Go(func() {
			if err := g.Open(); err != nil {
				fails.Add(1)
				return
			}
			wins.Add(1)
		})
	}
	wg.Wait()

	if wins.Load() != 1 || fails.Load() != 63 {
		t.Errorf("wins = %d, fails = %d", wins.Load(), fails.Load())
	}
}
