package channel

import (
	"sort"
	"sync"

	pb "github.com/mqy/minichat/proto"
)

type kind int

const (
	kindMessage kind = iota
	kindTyping
	kindPresence
	kindState
)

type subscription struct {
	kind kind
	fn   interface{}
}

// in-memory subscriber store, keyed by registration order.
type subscribers struct {
	sync.RWMutex
	nextId   uint64
	handlers map[uint64]subscription
}

func newSubscribers() *subscribers {
	return &subscribers{handlers: make(map[uint64]subscription)}
}

// add registers fn and returns a func that removes it. Removing twice is a no-op.
func (s *subscribers) add(k kind, fn interface{}) func() {
	s.Lock()
	s.nextId++
	id := s.nextId
	s.handlers[id] = subscription{kind: k, fn: fn}
	s.Unlock()

	return func() {
		s.Lock()
		delete(s.handlers, id)
		s.Unlock()
	}
}

// snapshot returns the handlers of kind k in registration order. Handlers are called
// without the lock held so they may subscribe or unsubscribe.
func (s *subscribers) snapshot(k kind) []interface{} {
	s.RLock()
	ids := make([]uint64, 0, len(s.handlers))
	for id, sub := range s.handlers {
		if sub.kind == k {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.handlers[id].fn)
	}
	s.RUnlock()
	return out
}

func (s *subscribers) dispatchMessage(m *pb.Message) {
	for _, fn := range s.snapshot(kindMessage) {
		fn.(func(*pb.Message))(m)
	}
}

func (s *subscribers) dispatchTyping(sig *pb.TypingSignal) {
	for _, fn := range s.snapshot(kindTyping) {
		fn.(func(*pb.TypingSignal))(sig)
	}
}

func (s *subscribers) dispatchPresence(snap pb.PresenceSnapshot) {
	for _, fn := range s.snapshot(kindPresence) {
		fn.(func(pb.PresenceSnapshot))(snap)
	}
}

func (s *subscribers) dispatchState(st State) {
	for _, fn := range s.snapshot(kindState) {
		fn.(func(State))(st)
	}
}
