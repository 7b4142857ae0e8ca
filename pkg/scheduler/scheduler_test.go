package scheduler

import (
	"errors"
	"image"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/xob0t/covercard/pkg/template"
)

// ── fakes ──

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward, firing due timers in order on the caller's
// goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	for {
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			break
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
		next := due[0]
		c.now = next.at
		next.fired = true
		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

type fakeRenderer struct {
	mu            sync.Mutex
	calls         []template.RenderRequest
	invalidations int
	gate          chan struct{}
	err           error
}

func (f *fakeRenderer) Compose(req template.RenderRequest, src *template.SourceImage) (template.Composition, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	gate := f.gate
	err := f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return template.Composition{}, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	return template.Composition{Cover: img, Plain: img}, nil
}

func (f *fakeRenderer) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidations++
}

func (f *fakeRenderer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newSource(id string) *template.SourceImage {
	return &template.SourceImage{ID: id, Image: image.NewNRGBA(image.Rect(0, 0, 4, 4))}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func receive(t *testing.T, s *Scheduler) Result {
	t.Helper()
	select {
	case res, ok := <-s.Results():
		if !ok {
			t.Fatal("results channel closed")
		}
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a result")
	}
	return Result{}
}

func newTestScheduler(r *fakeRenderer) (*Scheduler, *fakeClock) {
	clk := &fakeClock{}
	return New(r, WithClock(clk)), clk
}

// ── tests ──

func TestTextEditsCoalesceIntoOneRender(t *testing.T) {
	r := &fakeRenderer{}
	s, clk := newTestScheduler(r)
	defer s.Close()

	s.ImageSelected(newSource("a"))
	receive(t, s)

	titles := []string{"T", "TA", "TAU", "TAU ", "TAU M"}
	for i, title := range titles {
		s.TextChanged(title, "artist")
		if i < len(titles)-1 {
			clk.Advance(50 * time.Millisecond)
		}
	}

	clk.Advance(TextDebounce - time.Millisecond)
	if got := s.Stats().Dispatched; got != 1 {
		t.Fatalf("dispatched %d renders before the debounce elapsed, want 1", got)
	}

	clk.Advance(time.Millisecond)
	if got := s.Stats().Dispatched; got != 2 {
		t.Fatalf("dispatched %d renders after the debounce, want 2", got)
	}
	res := receive(t, s)
	if res.Request.Title != "TAU M" {
		t.Fatalf("rendered title %q, want the last edit", res.Request.Title)
	}
	if res.Request.SourceID != "a" {
		t.Fatalf("rendered source %q, want a", res.Request.SourceID)
	}
}

func TestBlurRendersImmediately(t *testing.T) {
	r := &fakeRenderer{}
	s, _ := newTestScheduler(r)
	defer s.Close()

	s.ImageSelected(newSource("a"))
	receive(t, s)

	s.BlurChanged(30)
	if got := s.Stats().Dispatched; got != 2 {
		t.Fatalf("dispatched %d, want 2 without advancing the clock", got)
	}
	if res := receive(t, s); res.Request.Blur != 30 {
		t.Fatalf("blur = %d, want 30", res.Request.Blur)
	}
}

func TestBlurCancelsArmedDebounce(t *testing.T) {
	r := &fakeRenderer{}
	s, clk := newTestScheduler(r)
	defer s.Close()

	s.ImageSelected(newSource("a"))
	receive(t, s)

	s.TextChanged("NEW", "X")
	s.BlurChanged(10)
	res := receive(t, s)
	if res.Request.Title != "NEW" || res.Request.Blur != 10 {
		t.Fatalf("immediate render = %+v, want latest text and blur", res.Request)
	}

	clk.Advance(time.Second)
	if got := s.Stats().Dispatched; got != 2 {
		t.Fatalf("dispatched %d, debounce should have been cancelled", got)
	}
}

func TestDebounceRetriesWhileBusy(t *testing.T) {
	r := &fakeRenderer{gate: make(chan struct{})}
	s, clk := newTestScheduler(r)
	defer s.Close()

	s.ImageSelected(newSource("a"))
	s.TextChanged("LATE", "X")
	clk.Advance(TextDebounce)
	if got := s.Stats().Dispatched; got != 1 {
		t.Fatalf("dispatched %d while busy, want 1", got)
	}

	r.gate <- struct{}{}
	waitFor(t, "stale discard", func() bool { return s.Stats().Discarded == 1 })

	clk.Advance(BusyRetry)
	if got := s.Stats().Dispatched; got != 2 {
		t.Fatalf("dispatched %d after retry, want 2", got)
	}
	r.gate <- struct{}{}
	if res := receive(t, s); res.Request.Title != "LATE" {
		t.Fatalf("title = %q, want LATE", res.Request.Title)
	}
}

func TestImmediateChangesWhileBusyAreDeferred(t *testing.T) {
	r := &fakeRenderer{gate: make(chan struct{})}
	s, _ := newTestScheduler(r)
	defer s.Close()

	s.ImageSelected(newSource("a"))
	s.BlurChanged(10)
	s.BlurChanged(20)
	if got := s.Stats().Dispatched; got != 1 {
		t.Fatalf("dispatched %d while busy, want 1", got)
	}

	r.gate <- struct{}{}
	waitFor(t, "deferred dispatch", func() bool { return s.Stats().Dispatched == 2 })

	r.gate <- struct{}{}
	res := receive(t, s)
	if res.Request.Blur != 20 {
		t.Fatalf("blur = %d, want 20", res.Request.Blur)
	}
	if st := s.Stats(); st.Dispatched != 2 || st.Discarded != 1 || st.Delivered != 1 {
		t.Fatalf("stats = %+v, want 2 dispatched, 1 discarded, 1 delivered", st)
	}
}

func TestDeferredDispatchCancelsArmedDebounce(t *testing.T) {
	r := &fakeRenderer{gate: make(chan struct{})}
	s, clk := newTestScheduler(r)
	defer s.Close()

	s.ImageSelected(newSource("a"))
	s.TextChanged("NEW", "ARTIST")
	s.BlurChanged(30)

	r.gate <- struct{}{}
	waitFor(t, "deferred dispatch", func() bool { return s.Stats().Dispatched == 2 })

	clk.Advance(TextDebounce + BusyRetry)
	r.gate <- struct{}{}
	res := receive(t, s)
	if res.Request.Title != "NEW" || res.Request.Blur != 30 {
		t.Fatalf("request = %+v, want title NEW and blur 30", res.Request)
	}

	clk.Advance(TextDebounce + BusyRetry)
	if got := s.Stats().Dispatched; got != 2 {
		t.Fatalf("dispatched %d, want 2", got)
	}
}

func TestImageChangeInvalidatesCache(t *testing.T) {
	r := &fakeRenderer{}
	s, _ := newTestScheduler(r)
	defer s.Close()

	a := newSource("a")
	s.ImageSelected(a)
	receive(t, s)
	s.ImageSelected(a)
	receive(t, s)
	s.ImageSelected(newSource("b"))
	receive(t, s)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.invalidations != 2 {
		t.Fatalf("invalidations = %d, want 2", r.invalidations)
	}
}

func TestNoRenderWithoutSource(t *testing.T) {
	r := &fakeRenderer{}
	s, clk := newTestScheduler(r)
	defer s.Close()

	s.TextChanged("A", "B")
	s.BlurChanged(5)
	clk.Advance(time.Second)
	if got := r.callCount(); got != 0 {
		t.Fatalf("renderer called %d times without a source", got)
	}

	s.ImageSelected(newSource("a"))
	res := receive(t, s)
	if res.Request.Title != "A" || res.Request.Blur != 5 {
		t.Fatalf("first render = %+v, want the edits made before the image", res.Request)
	}
}

func TestResultsKeepOnlyNewest(t *testing.T) {
	r := &fakeRenderer{}
	s, _ := newTestScheduler(r)
	defer s.Close()

	s.ImageSelected(newSource("a"))
	waitFor(t, "first delivery", func() bool { return s.Stats().Delivered == 1 })
	s.BlurChanged(40)
	waitFor(t, "second delivery", func() bool { return s.Stats().Delivered == 2 })

	if res := receive(t, s); res.Request.Blur != 40 {
		t.Fatalf("blur = %d, want the newest result", res.Request.Blur)
	}
	select {
	case res := <-s.Results():
		t.Fatalf("unexpected buffered result %+v", res.Request)
	default:
	}
	latest, ok := s.Latest()
	if !ok || latest.Request.Blur != 40 {
		t.Fatalf("Latest() = %+v, %v", latest.Request, ok)
	}
}

func TestRenderErrorIsDelivered(t *testing.T) {
	boom := errors.New("boom")
	r := &fakeRenderer{err: boom}
	s, _ := newTestScheduler(r)
	defer s.Close()

	s.ImageSelected(newSource("a"))
	if res := receive(t, s); !errors.Is(res.Err, boom) {
		t.Fatalf("err = %v, want boom", res.Err)
	}
}

func TestCloseIgnoresInputs(t *testing.T) {
	r := &fakeRenderer{}
	s, clk := newTestScheduler(r)

	s.ImageSelected(newSource("a"))
	receive(t, s)
	s.TextChanged("A", "B")
	s.Close()
	clk.Advance(time.Second)
	s.BlurChanged(1)

	if got := s.Stats().Dispatched; got != 1 {
		t.Fatalf("dispatched %d after close, want 1", got)
	}
	if _, ok := <-s.Results(); ok {
		t.Fatal("results channel still open after Close")
	}
}
