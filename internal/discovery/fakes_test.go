package discovery

import (
	"net"
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeBrowser records every call the engine makes and keeps the event sinks
// so tests can inject found and resolved events.
type fakeBrowser struct {
	mu sync.Mutex

	queryErr error

	ops      []string
	queries  []string
	cancels  int
	found    FoundEvents
	resolves []Advertisement
	resolved map[Advertisement]ResolvedEvents
	timeouts []time.Duration
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{resolved: make(map[Advertisement]ResolvedEvents)}
}

func (b *fakeBrowser) Query(serviceType, domain string, events FoundEvents) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, "query "+serviceType)
	b.queries = append(b.queries, serviceType)
	b.found = events
	return b.queryErr
}

func (b *fakeBrowser) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops = append(b.ops, "cancel")
	b.cancels++
}

func (b *fakeBrowser) Resolve(ad Advertisement, timeout time.Duration, events ResolvedEvents) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resolves = append(b.resolves, ad)
	b.resolved[ad] = events
	b.timeouts = append(b.timeouts, timeout)
}

func (b *fakeBrowser) Queries() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.queries...)
}

func (b *fakeBrowser) Ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.ops...)
}

func (b *fakeBrowser) Resolves() []Advertisement {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Advertisement(nil), b.resolves...)
}

func (b *fakeBrowser) FoundSink(t *testing.T) FoundEvents {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.found == nil {
		t.Fatal("no query has been issued")
	}
	return b.found
}

func (b *fakeBrowser) ResolvedSink(t *testing.T, ad Advertisement) ResolvedEvents {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	events, ok := b.resolved[ad]
	if !ok {
		t.Fatalf("no resolution requested for %v", ad)
	}
	return events
}

// fakeClock is a manually advanced Clock. Timers fire in deadline order.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	f       func()
	fired   bool
	stopped bool
}

var fakeEpoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func newFakeClock() *fakeClock {
	return &fakeClock{now: fakeEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.fired && !t.stopped
	t.stopped = true
	return active
}

// Elapsed returns the time since the clock was created.
func (c *fakeClock) Elapsed() time.Duration {
	return c.Now().Sub(fakeEpoch)
}

// pending returns the earliest timer due at or before limit.
func (c *fakeClock) pending(limit time.Time) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && !t.when.After(limit) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].when.Before(due[j].when) })

	t := due[0]
	t.fired = true
	if t.when.After(c.now) {
		c.now = t.when
	}
	return t
}

// advance moves the clock forward by d, firing due timers one at a time and
// letting the engine process the work each one posts.
func advance(e *Engine, c *fakeClock, d time.Duration) {
	limit := c.Now().Add(d)
	for {
		t := c.pending(limit)
		if t == nil {
			break
		}
		t.f()
		flush(e)
	}

	c.mu.Lock()
	c.now = limit
	c.mu.Unlock()
}

// flush waits until the engine queue has run everything posted so far.
func flush(e *Engine) {
	done := make(chan struct{})
	if !e.queue.post(func() { close(done) }) {
		return
	}
	<-done
}

type discovered struct {
	name string
	ip   string
	at   time.Duration
}

// recorder collects handler calls along with the fake clock time they
// happened at.
type recorder struct {
	clock *fakeClock

	mu       sync.Mutex
	devices  []discovered
	finishes []time.Duration
}

func record(e *Engine, c *fakeClock) *recorder {
	r := &recorder{clock: c}
	e.OnDeviceDiscovered(func(name, ip string) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.devices = append(r.devices, discovered{name: name, ip: ip, at: c.Elapsed()})
	})
	e.OnScanFinished(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.finishes = append(r.finishes, c.Elapsed())
	})
	return r
}

func (r *recorder) Devices() []discovered {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]discovered(nil), r.devices...)
}

func (r *recorder) Finishes() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.finishes...)
}

func newTestEngine(t *testing.T, serviceTypes []string, timing Timing) (*Engine, *fakeBrowser, *fakeClock, *recorder) {
	t.Helper()
	browser := newFakeBrowser()
	clock := newFakeClock()
	e := NewEngine(browser, serviceTypes, WithTiming(timing), WithClock(clock))
	t.Cleanup(e.Close)
	return e, browser, clock, record(e, clock)
}

func tcpAddr(ip string, port int) net.Addr {
	return &net.TCPAddr{IP: net.ParseIP(ip), Port: port}
}
