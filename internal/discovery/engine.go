package discovery

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/tvdiscovery/internal/logging"
)

const (
	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultRetryInterval is how often the engine rotates to the next
	// service type and re-issues the query
	DefaultRetryInterval = 5 * time.Second

	// DefaultScanTimeout is the scan ceiling, checked on every rotation tick
	DefaultScanTimeout = 10 * time.Second

	// DefaultResolveTimeout is passed to the Browser for each resolution
	DefaultResolveTimeout = 5 * time.Second

	// DefaultDeliveryDelay is the settle time between a resolution completing
	// and the device being reported
	DefaultDeliveryDelay = 1 * time.Second
)

// Timing groups the engine's periods and delays.
type Timing struct {
	RetryInterval  time.Duration
	ScanTimeout    time.Duration
	ResolveTimeout time.Duration
	DeliveryDelay  time.Duration
}

// DefaultTiming returns the production timing values.
func DefaultTiming() Timing {
	return Timing{
		RetryInterval:  DefaultRetryInterval,
		ScanTimeout:    DefaultScanTimeout,
		ResolveTimeout: DefaultResolveTimeout,
		DeliveryDelay:  DefaultDeliveryDelay,
	}
}

// WithScanTimeout returns t with the scan ceiling set to d. The ceiling is
// only checked on rotation ticks, so a longer RetryInterval is shortened to d.
func (t Timing) WithScanTimeout(d time.Duration) Timing {
	t.ScanTimeout = d
	if t.RetryInterval > d {
		t.RetryInterval = d
	}
	return t
}

// withDefaults fills zero fields from DefaultTiming.
func (t Timing) withDefaults() Timing {
	d := DefaultTiming()
	if t.RetryInterval <= 0 {
		t.RetryInterval = d.RetryInterval
	}
	if t.ScanTimeout <= 0 {
		t.ScanTimeout = d.ScanTimeout
	}
	if t.ResolveTimeout <= 0 {
		t.ResolveTimeout = d.ResolveTimeout
	}
	if t.DeliveryDelay < 0 {
		t.DeliveryDelay = 0
	}
	return t
}

// Option configures an Engine.
type Option func(*Engine)

// WithTiming overrides the engine timing. Zero durations keep their defaults,
// except DeliveryDelay where zero means "deliver immediately".
func WithTiming(t Timing) Option {
	return func(e *Engine) {
		e.timing = t.withDefaults()
	}
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// DeviceHandler receives a discovered device's name and numeric IP.
type DeviceHandler func(name, ip string)

// FinishedHandler is called when a scan ends on its own.
type FinishedHandler func()

// Engine discovers devices by rotating mDNS queries across service types.
//
// All session state is owned by a serial queue: Start, Stop, timer ticks
// and Browser events only post work to it, and handlers are invoked from it,
// one at a time. Every session carries a generation number; work created
// for an older generation is discarded.
type Engine struct {
	browser      Browser
	serviceTypes []string
	timing       Timing
	clock        Clock
	queue        *serialQueue

	mu         sync.Mutex
	onDevice   DeviceHandler
	onFinished FinishedHandler

	// owned by queue
	generation uint64
	session    *session
}

type session struct {
	generation   uint64
	serviceTypes []string
	index        int
	startedAt    time.Time
	ticks        int
	timer        Timer
	seen         map[Advertisement]struct{}
}

// NewEngine creates an engine that rotates through serviceTypes in order.
func NewEngine(browser Browser, serviceTypes []string, opts ...Option) *Engine {
	e := &Engine{
		browser:      browser,
		serviceTypes: append([]string(nil), serviceTypes...),
		timing:       DefaultTiming(),
		clock:        realClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.queue = newSerialQueue()
	return e
}

// NewEngineForType creates an engine for a single service type.
func NewEngineForType(browser Browser, serviceType string, opts ...Option) *Engine {
	return NewEngine(browser, []string{serviceType}, opts...)
}

// OnDeviceDiscovered registers the device handler, replacing any previous one.
func (e *Engine) OnDeviceDiscovered(fn DeviceHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onDevice = fn
}

// OnScanFinished registers the finished handler, replacing any previous one.
func (e *Engine) OnScanFinished(fn FinishedHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFinished = fn
}

// Timing returns the engine's effective timing.
func (e *Engine) Timing() Timing {
	return e.timing
}

// Start begins a scan over the engine's service types, stopping any scan
// already in progress. It returns immediately.
func (e *Engine) Start() {
	e.StartWith(e.serviceTypes)
}

// StartWith begins a scan over serviceTypes, stopping any scan already in
// progress. An empty list finishes immediately without querying.
func (e *Engine) StartWith(serviceTypes []string) {
	types := append([]string(nil), serviceTypes...)
	e.queue.post(func() {
		e.start(types)
	})
}

// Stop ends the current scan without calling the finished handler. Pending
// deliveries from the stopped scan are dropped. Safe to call when idle.
func (e *Engine) Stop() {
	e.queue.post(e.stop)
}

// Close stops any scan, shuts down the engine's queue and waits until no
// handler is running. No handler is called after Close returns, and the
// engine cannot be restarted. Close must not be called from a handler.
func (e *Engine) Close() {
	e.queue.post(func() {
		e.stop()
		e.queue.close()
	})
	<-e.queue.exited
}

func (e *Engine) start(serviceTypes []string) {
	e.stop()
	e.generation++

	if len(serviceTypes) == 0 {
		logging.Info("Scan requested with no service types, finishing")
		e.finished()
		return
	}

	s := &session{
		generation:   e.generation,
		serviceTypes: serviceTypes,
		startedAt:    e.clock.Now(),
		seen:         make(map[Advertisement]struct{}),
	}
	e.session = s

	logging.Info("Scan started",
		zap.Strings("service_types", serviceTypes),
		zap.Uint64("generation", s.generation),
		zap.Duration("timeout", e.timing.ScanTimeout),
	)

	e.query(s)
	e.arm(s)
}

func (e *Engine) stop() {
	s := e.session
	if s == nil {
		return
	}
	e.session = nil
	e.generation++

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	e.browser.Cancel()

	logging.Debug("Scan stopped", zap.Uint64("generation", s.generation))
}

// current returns the active session if it belongs to generation.
func (e *Engine) current(generation uint64) *session {
	if e.session == nil || e.session.generation != generation {
		return nil
	}
	return e.session
}

// arm schedules the next rotation tick. Deadlines are measured from the
// session start so ticks do not drift.
func (e *Engine) arm(s *session) {
	s.ticks++
	deadline := s.startedAt.Add(time.Duration(s.ticks) * e.timing.RetryInterval)
	delay := deadline.Sub(e.clock.Now())
	if delay < 0 {
		delay = 0
	}

	generation := s.generation
	s.timer = e.clock.AfterFunc(delay, func() {
		e.queue.post(func() {
			e.tick(generation)
		})
	})
}

func (e *Engine) tick(generation uint64) {
	s := e.current(generation)
	if s == nil {
		return
	}
	s.timer = nil

	s.index++
	e.browser.Cancel()
	if s.index >= len(s.serviceTypes) {
		// Wrap around and keep going; only the scan ceiling ends a session.
		s.index = 0
	}
	e.query(s)

	elapsed := e.clock.Now().Sub(s.startedAt)
	if elapsed >= e.timing.ScanTimeout {
		logging.Info("Scan timed out",
			zap.Duration("elapsed", elapsed),
			zap.Int("advertisements_seen", len(s.seen)),
		)
		e.stop()
		e.finished()
		return
	}

	e.arm(s)
}

func (e *Engine) query(s *session) {
	serviceType := s.serviceTypes[s.index]
	logging.LogQuery(serviceType, ServiceDomain, s.index)

	events := sessionEvents{engine: e, generation: s.generation}
	if err := e.browser.Query(serviceType, ServiceDomain, events); err != nil {
		logging.Warn("mDNS query failed, will retry on next tick",
			zap.String("service_type", serviceType),
			zap.Error(err),
		)
	}
}

func (e *Engine) found(generation uint64, ad Advertisement) {
	s := e.current(generation)
	if s == nil {
		return
	}
	if _, ok := s.seen[ad]; ok {
		logging.Debug("Advertisement already seen", zap.Stringer("advertisement", ad))
		return
	}
	s.seen[ad] = struct{}{}

	logging.Debug("Resolving advertisement", zap.Stringer("advertisement", ad))
	e.browser.Resolve(ad, e.timing.ResolveTimeout, sessionEvents{engine: e, generation: generation})
}

func (e *Engine) resolved(generation uint64, res Resolution) {
	if e.current(generation) == nil {
		return
	}

	ip, err := FirstNumericHost(res.Addresses)
	if err != nil {
		logging.Debug("Dropping resolution without usable address",
			zap.Stringer("advertisement", res.Advertisement),
			zap.Error(err),
		)
		return
	}

	name := res.Name
	e.clock.AfterFunc(e.timing.DeliveryDelay, func() {
		e.queue.post(func() {
			e.deliver(generation, name, ip)
		})
	})
}

func (e *Engine) deliver(generation uint64, name, ip string) {
	if e.current(generation) == nil {
		return
	}
	logging.LogDeviceDiscovered(name, ip)

	e.mu.Lock()
	fn := e.onDevice
	e.mu.Unlock()
	if fn != nil {
		fn(name, ip)
	}
}

func (e *Engine) finished() {
	e.mu.Lock()
	fn := e.onFinished
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// sessionEvents forwards Browser events onto the engine queue, tagged with
// the generation of the session that issued the query or resolution.
type sessionEvents struct {
	engine     *Engine
	generation uint64
}

func (ev sessionEvents) Found(ad Advertisement) {
	ev.engine.queue.post(func() {
		ev.engine.found(ev.generation, ad)
	})
}

func (ev sessionEvents) Resolved(res Resolution) {
	ev.engine.queue.post(func() {
		ev.engine.resolved(ev.generation, res)
	})
}
