package client

import (
	"sync"
	"testing"
	"time"
)

type counter struct {
	mu   sync.Mutex
	n    int
	last int
}

func (c *counter) record(v int) func() {
	return func() {
		c.mu.Lock()
		c.n++
		c.last = v
		c.mu.Unlock()
	}
}

func (c *counter) snapshot() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n, c.last
}

func TestThrottleCoalescesToTrailingEdge(t *testing.T) {
	th := newThrottle(50 * time.Millisecond)
	var c counter
	for i := 1; i <= 5; i++ {
		th.Do(c.record(i))
	}
	time.Sleep(150 * time.Millisecond)
	n, last := c.snapshot()
	if n != 2 {
		t.Fatalf("fired %d times, want 2 (leading + trailing)", n)
	}
	if last != 5 {
		t.Fatalf("last fired value = %d, want 5", last)
	}
}

func TestThrottleIdleFiresImmediately(t *testing.T) {
	th := newThrottle(50 * time.Millisecond)
	var c counter
	th.Do(c.record(1))
	if n, _ := c.snapshot(); n != 1 {
		t.Fatalf("first call did not fire immediately, n = %d", n)
	}
}

func TestThrottleZeroIntervalPassesThrough(t *testing.T) {
	th := newThrottle(0)
	var c counter
	for i := 1; i <= 3; i++ {
		th.Do(c.record(i))
	}
	if n, _ := c.snapshot(); n != 3 {
		t.Fatalf("fired %d times, want 3", n)
	}
}

func TestThrottleStopDropsPending(t *testing.T) {
	th := newThrottle(50 * time.Millisecond)
	var c counter
	th.Do(c.record(1))
	th.Do(c.record(2))
	th.Stop()
	time.Sleep(120 * time.Millisecond)
	if n, _ := c.snapshot(); n != 1 {
		t.Fatalf("pending call survived Stop, n = %d", n)
	}
}

func TestDebounceOnlyLastCallFires(t *testing.T) {
	d := newDebounce(30 * time.Millisecond)
	var c counter
	for i := 1; i <= 5; i++ {
		d.Do(c.record(i))
	}
	time.Sleep(100 * time.Millisecond)
	n, last := c.snapshot()
	if n != 1 || last != 5 {
		t.Fatalf("n = %d last = %d, want 1 and 5", n, last)
	}
}

func TestDebounceFlushFiresNow(t *testing.T) {
	d := newDebounce(time.Hour)
	var c counter
	d.Do(c.record(1))
	d.Flush()
	if n, last := c.snapshot(); n != 1 || last != 1 {
		t.Fatalf("n = %d last = %d after Flush", n, last)
	}
	// Nothing pending, second flush is a no-op.
	d.Flush()
	if n, _ := c.snapshot(); n != 1 {
		t.Fatalf("empty Flush fired, n = %d", n)
	}
}

func TestDebounceStopDropsPending(t *testing.T) {
	d := newDebounce(20 * time.Millisecond)
	var c counter
	d.Do(c.record(1))
	d.Stop()
	time.Sleep(60 * time.Millisecond)
	if n, _ := c.snapshot(); n != 0 {
		t.Fatalf("pending call survived Stop, n = %d", n)
	}
}
