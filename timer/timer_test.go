package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_FiresAfterDelay(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var fired atomic.Int32
	m.Add(50*time.Millisecond, 0, func() { fired.Add(1) })

	time.Sleep(400 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("one-shot task fired %d times, want 1", got)
	}
}

func TestManager_RemoveCancels(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var fired atomic.Int32
	id := m.Add(150*time.Millisecond, 0, func() { fired.Add(1) })
	m.Remove(id)

	time.Sleep(400 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("canceled task fired %d times", got)
	}
}

func TestManager_IntervalRepeats(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var fired atomic.Int32
	id := m.Add(50*time.Millisecond, 100*time.Millisecond, func() { fired.Add(1) })

	time.Sleep(600 * time.Millisecond)
	m.Remove(id)

	if got := fired.Load(); got < 2 {
		t.Fatalf("repeating task fired %d times, want at least 2", got)
	}
}
