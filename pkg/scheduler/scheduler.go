// Package scheduler keeps rendering off the interaction path. Text edits are
// debounced, blur and image changes render immediately, at most one render
// runs at a time and results older than the latest input are dropped.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/xob0t/covercard/pkg/template"
)

// Debounce intervals.
const (
	TextDebounce = 300 * time.Millisecond
	BusyRetry    = 100 * time.Millisecond
)

// Renderer is the work the scheduler serializes. Both methods are only ever
// called from the render goroutine, one call at a time.
type Renderer interface {
	Compose(req template.RenderRequest, src *template.SourceImage) (template.Composition, error)
	Invalidate()
}

// Result is one finished render.
type Result struct {
	Generation  uint64
	Request     template.RenderRequest
	Composition template.Composition
	Err         error
}

// Stats counts scheduler activity.
type Stats struct {
	Dispatched int
	Delivered  int
	Discarded  int
}

type job struct {
	gen        uint64
	req        template.RenderRequest
	src        *template.SourceImage
	invalidate bool
}

// Scheduler coalesces editing events into renders.
type Scheduler struct {
	renderer Renderer
	clock    Clock
	logger   *slog.Logger

	textDelay time.Duration
	busyDelay time.Duration

	mu         sync.Mutex
	req        template.RenderRequest
	src        *template.SourceImage
	gen        uint64
	timer      Timer
	token      uint64
	inFlight   bool
	pending    bool
	invalidate bool
	closed     bool
	latest     *Result
	stats      Stats

	results   chan Result
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDebounce overrides the text debounce and busy retry intervals.
func WithDebounce(text, busy time.Duration) Option {
	return func(s *Scheduler) {
		if text > 0 {
			s.textDelay = text
		}
		if busy > 0 {
			s.busyDelay = busy
		}
	}
}

// WithInitial seeds the title, artist and blur used before the first edit.
func WithInitial(req template.RenderRequest) Option {
	return func(s *Scheduler) { s.req = req }
}

// New creates a scheduler around r.
func New(r Renderer, opts ...Option) *Scheduler {
	s := &Scheduler{
		renderer:  r,
		clock:     realClock{},
		logger:    slog.Default(),
		textDelay: TextDebounce,
		busyDelay: BusyRetry,
		req:       template.RenderRequest{Blur: template.DefaultBlur},
		results:   make(chan Result, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Results delivers finished renders. Only the newest undelivered result is
// buffered; older ones are replaced. The channel closes after Close.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Latest returns the most recently delivered result.
func (s *Scheduler) Latest() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return Result{}, false
	}
	return *s.latest, true
}

// Source returns the currently selected image, or nil.
func (s *Scheduler) Source() *template.SourceImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

// Request returns the current editing state.
func (s *Scheduler) Request() template.RenderRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.req
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// TextChanged records new text and (re)starts the debounce window.
func (s *Scheduler) TextChanged(title, artist string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.req.Title = title
	s.req.Artist = artist
	s.gen++
	s.armLocked(s.textDelay)
}

// BlurChanged records a new blur level and renders without delay.
func (s *Scheduler) BlurChanged(level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.req.Blur = level
	s.gen++
	s.stopTimerLocked()
	s.triggerLocked()
}

// ImageSelected switches the source and renders without delay. A new source
// identity empties the background cache before the next render.
func (s *Scheduler) ImageSelected(src *template.SourceImage) {
	if src == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.src == nil || s.src.ID != src.ID {
		s.invalidate = true
	}
	s.src = src
	s.req.SourceID = src.ID
	s.gen++
	s.stopTimerLocked()
	s.triggerLocked()
}

// Close stops pending timers, waits for the running render and closes
// Results. Later inputs are ignored.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.stopTimerLocked()
		s.mu.Unlock()

		s.wg.Wait()
		close(s.results)
	})
}

func (s *Scheduler) armLocked(d time.Duration) {
	s.stopTimerLocked()
	s.token++
	tok := s.token
	s.timer = s.clock.AfterFunc(d, func() { s.onTimer(tok) })
}

func (s *Scheduler) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.token++
}

func (s *Scheduler) onTimer(tok uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || tok != s.token {
		return
	}
	s.timer = nil
	if s.inFlight {
		s.armLocked(s.busyDelay)
		return
	}
	s.dispatchLocked()
}

func (s *Scheduler) triggerLocked() {
	if s.inFlight {
		s.pending = true
		return
	}
	s.dispatchLocked()
}

// dispatchLocked renders the current request. It captures every edit made so
// far, so an armed text timer is redundant and is stopped.
func (s *Scheduler) dispatchLocked() {
	s.pending = false
	s.stopTimerLocked()
	if s.src == nil {
		s.logger.Debug("render skipped, no source selected")
		return
	}
	j := job{gen: s.gen, req: s.req, src: s.src, invalidate: s.invalidate}
	s.invalidate = false
	s.inFlight = true
	s.stats.Dispatched++

	s.wg.Add(1)
	go s.run(j)
}

func (s *Scheduler) run(j job) {
	defer s.wg.Done()
	if j.invalidate {
		s.renderer.Invalidate()
	}
	comp, err := s.renderer.Compose(j.req, j.src)
	s.complete(j, comp, err)
}

func (s *Scheduler) complete(j job, comp template.Composition, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	if s.closed {
		return
	}

	if j.gen != s.gen {
		s.stats.Discarded++
		s.logger.Debug("stale render discarded",
			slog.Uint64("generation", j.gen),
			slog.Uint64("latest", s.gen),
		)
	} else {
		res := Result{Generation: j.gen, Request: j.req, Composition: comp, Err: err}
		if err != nil {
			s.logger.Warn("render failed", slog.String("error", err.Error()))
		}
		s.latest = &res
		s.stats.Delivered++
		select {
		case <-s.results:
		default:
		}
		select {
		case s.results <- res:
		default:
		}
	}

	if s.pending {
		s.dispatchLocked()
	}
}
