package client

import (
	"sync"
	"time"
)

// throttle rate-limits calls to at most one per interval. The first call
// in an idle window fires immediately; later calls are coalesced and the
// last one always fires when the window closes.
type throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	timer    *time.Timer
	pending  func()
	now      func() time.Time
}

func newThrottle(interval time.Duration) *throttle {
	return &throttle{interval: interval, now: time.Now}
}

func (t *throttle) Do(fn func()) {
	if t.interval <= 0 {
		fn()
		return
	}
	t.mu.Lock()
	now := t.now()
	if t.pending == nil && t.timer == nil && now.Sub(t.last) >= t.interval {
		t.last = now
		t.mu.Unlock()
		fn()
		return
	}
	t.pending = fn
	if t.timer == nil {
		wait := t.interval - now.Sub(t.last)
		if wait < 0 {
			wait = 0
		}
		t.timer = time.AfterFunc(wait, t.fire)
	}
	t.mu.Unlock()
}

func (t *throttle) fire() {
	t.mu.Lock()
	fn := t.pending
	t.pending = nil
	t.timer = nil
	t.last = t.now()
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop drops any pending call.
func (t *throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = nil
}

// debounce delays a call until interval has passed without another one.
// Only the last call in a burst fires.
type debounce struct {
	mu       sync.Mutex
	interval time.Duration
	timer    *time.Timer
	pending  func()
}

func newDebounce(interval time.Duration) *debounce {
	return &debounce{interval: interval}
}

func (d *debounce) Do(fn func()) {
	if d.interval <= 0 {
		fn()
		return
	}
	d.mu.Lock()
	d.pending = fn
	if d.timer == nil {
		d.timer = time.AfterFunc(d.interval, d.fire)
	} else {
		d.timer.Reset(d.interval)
	}
	d.mu.Unlock()
}

func (d *debounce) fire() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Flush runs any pending call now.
func (d *debounce) Flush() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop drops any pending call.
func (d *debounce) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}
