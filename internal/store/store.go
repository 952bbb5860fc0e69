// Package store holds per-session state as named slices. Each slice has
// one mutation entry point and every mutation is announced on the hub.
package store

import (
	"sync"
)

const (
	SliceTickets     = "tickets"
	SliceTicketMeta  = "ticket_meta"
	SliceCriteria    = "criteria"
	SliceChat        = "chat"
	SliceHome        = "home"
	SliceResolutions = "resolutions"
	SliceKnowledge   = "knowledge"
	SliceStatus      = "status"
)

const defaultBuffer = 16

type Change struct {
	Slice   string `json:"slice"`
	Version uint64 `json:"version"`
}

type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Change
	nextID int
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]chan Change)}
}

// Subscribe returns a change stream and its cancel func. When the
// buffer is full the oldest pending change is dropped, so a slow reader
// always ends up seeing the latest one.
func (h *Hub) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	ch := make(chan Change, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Later publishes are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *Hub) publish(change Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- change:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- change:
		default:
		}
	}
}

// Slice is a named value cell. Values handed out by Get are shared and
// must be treated as read-only; Update callbacks return a new value
// instead of mutating the old one.
type Slice[T any] struct {
	name    string
	hub     *Hub
	mu      sync.RWMutex
	value   T
	version uint64
}

func NewSlice[T any](hub *Hub, name string, initial T) *Slice[T] {
	return &Slice[T]{name: name, hub: hub, value: initial}
}

func (s *Slice[T]) Name() string {
	return s.name
}

func (s *Slice[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Snapshot returns the value together with the version it belongs to.
func (s *Slice[T]) Snapshot() (T, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.version
}

func (s *Slice[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Update applies fn under the slice lock, bumps the version and
// notifies subscribers. It returns the stored value.
func (s *Slice[T]) Update(fn func(T) T) T {
	var out T
	s.UpdateIf(func(v T) (T, bool) {
		out = fn(v)
		return out, true
	})
	return out
}

// UpdateIf is Update for callbacks that may decide nothing changed; no
// version bump or notification happens then.
func (s *Slice[T]) UpdateIf(fn func(T) (T, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, changed := fn(s.value)
	if !changed {
		return false
	}
	s.value = value
	s.version++
	if s.hub != nil {
		s.hub.publish(Change{Slice: s.name, Version: s.version})
	}
	return true
}

// Read runs fn under the read lock, for values such as maps that are
// mutated in place by Update callbacks.
func (s *Slice[T]) Read(fn func(T)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.value)
}

func (s *Slice[T]) Set(value T) {
	s.Update(func(T) T { return value })
}
