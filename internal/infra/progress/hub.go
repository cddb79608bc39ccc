// Package progress fans batch progress out to live subscribers, one stream per job.
package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/entity"
	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/domain/port"
)

type Event struct {
	JobID  uuid.UUID        `json:"job_id"`
	Stage  string           `json:"stage,omitempty"`
	Done   int              `json:"done"`
	Total  int              `json:"total"`
	Status entity.JobStatus `json:"status,omitempty"`
	Time   time.Time        `json:"time"`
}

// Final reports whether the event ends the job's stream.
func (e Event) Final() bool {
	return e.Status == entity.JobStatusCompleted || e.Status == entity.JobStatusFailed
}

const (
	subscriberBuffer = 64
	// finishedJobs bounds how many final events are kept for late subscribers.
	finishedJobs = 1024
)

type Hub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]map[chan Event]struct{}
	latest map[uuid.UUID]Event

	finished      map[uuid.UUID]finishedEvent
	finishedOrder []finishedRef
	seq           uint64

	now func() time.Time
}

type finishedEvent struct {
	e   Event
	seq uint64
}

type finishedRef struct {
	jobID uuid.UUID
	seq   uint64
}

func NewHub() *Hub {
	return &Hub{
		subs:     make(map[uuid.UUID]map[chan Event]struct{}),
		latest:   make(map[uuid.UUID]Event),
		finished: make(map[uuid.UUID]finishedEvent),
		now:      time.Now,
	}
}

// Subscribe returns a channel of events for jobID. The last event seen for
// the job, if any, is delivered first. The channel is closed by cancel or
// after the job's final event; for a job that already finished it carries the
// final event and is closed at once.
func (h *Hub) Subscribe(jobID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if f, ok := h.finished[jobID]; ok {
		h.mu.Unlock()
		ch <- f.e
		close(ch)
		return ch, func() {}
	}
	if last, ok := h.latest[jobID]; ok {
		ch <- last
	}
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[chan Event]struct{})
	}
	h.subs[jobID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[jobID][ch]; ok {
				delete(h.subs[jobID], ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Publish delivers e to every subscriber of its job. Slow subscribers miss
// events rather than stall the pipeline.
func (h *Hub) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = h.now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[e.JobID] {
		select {
		case ch <- e:
		default:
		}
	}

	if e.Final() {
		for ch := range h.subs[e.JobID] {
			close(ch)
		}
		delete(h.subs, e.JobID)
		delete(h.latest, e.JobID)
		h.rememberFinished(e)
		return
	}
	delete(h.finished, e.JobID)
	h.latest[e.JobID] = e
}

// rememberFinished keeps e for subscribers that arrive after the job ended,
// dropping the oldest record past finishedJobs. Callers hold h.mu.
func (h *Hub) rememberFinished(e Event) {
	h.seq++
	h.finished[e.JobID] = finishedEvent{e: e, seq: h.seq}
	h.finishedOrder = append(h.finishedOrder, finishedRef{jobID: e.JobID, seq: h.seq})
	for len(h.finishedOrder) > finishedJobs {
		old := h.finishedOrder[0]
		h.finishedOrder = h.finishedOrder[1:]
		if f, ok := h.finished[old.jobID]; ok && f.seq == old.seq {
			delete(h.finished, old.jobID)
		}
	}
}

// Finish publishes the terminal status of a job and closes its streams.
func (h *Hub) Finish(jobID uuid.UUID, status entity.JobStatus) {
	h.Publish(Event{JobID: jobID, Status: status})
}

func (h *Hub) ForJob(jobID uuid.UUID) port.ProgressReporter {
	return reporter{hub: h, jobID: jobID}
}

type reporter struct {
	hub   *Hub
	jobID uuid.UUID
}

func (r reporter) Progress(stage string, done, total int) {
	r.hub.Publish(Event{JobID: r.jobID, Stage: stage, Done: done, Total: total, Status: entity.JobStatusProcessing})
}
