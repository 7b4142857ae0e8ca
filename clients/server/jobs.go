package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xob0t/covercard/pkg/delivery"
)

// jobStatus is the latest known state of one send action.
type jobStatus struct {
	ID        uuid.UUID `json:"id"`
	Recipient string    `json:"recipient"`
	State     string    `json:"state"`
	Message   string    `json:"message"`
	Done      bool      `json:"done"`
	Failed    bool      `json:"failed"`
	UpdatedAt time.Time `json:"updated_at"`
}

type jobTracker struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*jobStatus
	now  func() time.Time
}

func newJobTracker() *jobTracker {
	return &jobTracker{jobs: make(map[uuid.UUID]*jobStatus), now: time.Now}
}

// track records job and follows its progress until the channel closes.
// onFinish runs after the terminal event.
func (t *jobTracker) track(job delivery.Job, ch <-chan delivery.Progress, onFinish func(delivery.Progress)) jobStatus {
	st := &jobStatus{
		ID:        job.ID,
		Recipient: job.Recipient,
		State:     delivery.StateIdle.String(),
		UpdatedAt: t.now(),
	}
	t.mu.Lock()
	t.jobs[job.ID] = st
	snapshot := *st
	t.mu.Unlock()

	go func() {
		var last delivery.Progress
		for p := range ch {
			last = p
			t.update(p)
		}
		if onFinish != nil {
			onFinish(last)
		}
	}()
	return snapshot
}

func (t *jobTracker) update(p delivery.Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.jobs[p.JobID]
	if !ok {
		return
	}
	st.State = p.State.String()
	st.Message = p.Message
	st.Done = p.State.Terminal()
	st.Failed = p.State == delivery.StateFailed
	st.UpdatedAt = t.now()
}

func (t *jobTracker) get(id uuid.UUID) (jobStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.jobs[id]
	if !ok {
		return jobStatus{}, false
	}
	return *st, true
}
