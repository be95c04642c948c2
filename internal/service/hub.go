package service

import (
	"sync"

	"mindtv/internal/acquisition"
)

// Stream message types.
const (
	MessageEvent  = "event"
	MessageStatus = "status"
)

// StreamMessage is what live subscribers receive.
type StreamMessage struct {
	Type      string             `json:"type"`
	SessionID string             `json:"session_id,omitempty"`
	Event     *acquisition.Event `json:"event,omitempty"`
	Status    *Status            `json:"status,omitempty"`
}

// EventPublisher receives the events of every run tagged with its session.
type EventPublisher interface {
	Publish(sessionID string, e acquisition.Event)
}

const subscriberBuffer = 256

// Hub fans run events and status snapshots out to live subscribers. A
// subscriber that falls behind loses messages rather than stalling the run,
// except the terminal event of a run, which evicts the oldest queued message
// when the buffer is full.
type Hub struct {
	mu      sync.RWMutex
	next    int
	subs    map[int]chan StreamMessage
	dropped uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan StreamMessage)}
}

// Subscribe returns a message channel and a function that releases it.
func (h *Hub) Subscribe() (<-chan StreamMessage, func()) {
	ch := make(chan StreamMessage, subscriberBuffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(sessionID string, e acquisition.Event) {
	// the batch stays with the service; subscribers only see counts
	e.Batch = nil
	h.broadcast(StreamMessage{Type: MessageEvent, SessionID: sessionID, Event: &e})
}

func (h *Hub) PublishStatus(st Status) {
	h.broadcast(StreamMessage{Type: MessageStatus, SessionID: st.SessionID, Status: &st})
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped counts messages discarded for slow subscribers.
func (h *Hub) Dropped() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

func (h *Hub) broadcast(msg StreamMessage) {
	terminal := msg.Event != nil && msg.Event.Terminal()

	h.mu.RLock()
	var dropped uint64
	for _, ch := range h.subs {
		if terminal {
			dropped += deliverEvicting(ch, msg)
			continue
		}
		select {
		case ch <- msg:
		default:
			dropped++
		}
	}
	h.mu.RUnlock()

	if dropped > 0 {
		h.mu.Lock()
		h.dropped += dropped
		h.mu.Unlock()
	}
}

// deliverEvicting sends msg, discarding the oldest buffered messages until it
// fits. It returns how many were discarded. Callers hold h.mu so ch stays open.
func deliverEvicting(ch chan StreamMessage, msg StreamMessage) uint64 {
	var evicted uint64
	for {
		select {
		case ch <- msg:
			return evicted
		default:
		}
		select {
		case <-ch:
			evicted++
		default:
		}
	}
}
