// Package events carries progress notifications from background work
// to API consumers. The bus keeps a bounded replay window so a client
// connecting mid-job can catch up before streaming live.
package events

import (
	"sync"
	"time"
)

// Event is one progress notification.
type Event struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	JobID     string    `json:"job_id"`
	Step      string    `json:"step"`
	Status    string    `json:"status"`
	Message   string    `json:"msg,omitempty"`
	Progress  int       `json:"progress,omitempty"`
}

const (
	replayLimit = 256
	subBuffer   = 64
)

type Bus struct {
	mu     sync.Mutex
	seq    uint64
	replay []Event
	subs   map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]struct{})}
}

// Publish assigns the event a sequence number and delivers it to every
// subscriber. A subscriber that cannot keep up loses events rather
// than blocking the publisher.
func (b *Bus) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	evt.Seq = b.seq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.replay = append(b.replay, evt)
	if len(b.replay) > replayLimit {
		b.replay = b.replay[len(b.replay)-replayLimit:]
	}

	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe registers a live channel. The caller must call the
// returned cancel function when done.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subBuffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Since returns retained events with sequence numbers greater than
// seq, oldest first.
func (b *Bus) Since(seq uint64) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Event
	for _, evt := range b.replay {
		if evt.Seq > seq {
			out = append(out, evt)
		}
	}
	return out
}
