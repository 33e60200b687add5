package conversation

import (
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"

	pb "github.com/mqy/minichat/proto"
)

// Key identifies a conversation: the unordered pair of peer emails.
type Key struct {
	A, B string
}

// KeyOf returns the key of the conversation between x and y.
func KeyOf(x, y string) Key {
	if x > y {
		x, y = y, x
	}
	return Key{A: x, B: y}
}

// signature is the structural identity of a message.
type signature struct {
	from, to, body, sentAt string
}

func signatureOf(m *pb.Message) signature {
	return signature{from: m.From, to: m.To, body: m.Body, sentAt: m.SentAt}
}

type entry struct {
	msg *pb.Message
	at  time.Time
	ok  bool   // at is valid
	seq uint64 // insertion order, breaks ties
}

// before orders parseable timestamps first, then by time, then by insertion.
func (e *entry) before(o *entry) bool {
	if e.ok != o.ok {
		return e.ok
	}
	if e.ok && !e.at.Equal(o.at) {
		return e.at.Before(o.at)
	}
	return e.seq < o.seq
}

// Store is the merged, de-duplicated and chronologically ordered view of one conversation.
// Live messages appended before Initialize are queued and merged by Initialize.
type Store struct {
	sync.RWMutex

	key         Key
	initialized bool

	entries []*entry
	byId    map[string]*entry
	bySig   map[signature][]*entry
	seq     uint64

	pending []*pb.Message

	listeners []func()
}

// NewStore creates the store of the conversation between self and peer.
func NewStore(self, peer string) *Store {
	s := &Store{key: KeyOf(self, peer)}
	s.reset()
	return s
}

func (s *Store) Key() Key {
	return s.key
}

func (s *Store) reset() {
	s.entries = nil
	s.byId = make(map[string]*entry)
	s.bySig = make(map[signature][]*entry)
}

// OnChange registers fn to be called after the visible content changed.
// fn is called without the store lock held.
func (s *Store) OnChange(fn func()) {
	s.Lock()
	s.listeners = append(s.listeners, fn)
	s.Unlock()
}

func (s *Store) notify() {
	s.RLock()
	listeners := append([]func(){}, s.listeners...)
	s.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// Initialize replaces the content with history, then merges live messages queued so far.
// History may come in any order; messages of other conversations are dropped.
func (s *Store) Initialize(history []*pb.Message) {
	s.Lock()
	s.reset()
	for _, m := range history {
		s.insert(m)
	}
	pending := s.pending
	s.pending = nil
	for _, m := range pending {
		s.insert(m)
	}
	s.initialized = true
	n := len(s.entries)
	s.Unlock()

	glog.V(5).Infof("conversation %v: initialized, %d history, %d queued, %d visible", s.key, len(history), len(pending), n)
	s.notify()
}

// Initialized reports whether Initialize has been called.
func (s *Store) Initialized() bool {
	s.RLock()
	defer s.RUnlock()
	return s.initialized
}

// AppendLive inserts an inbound or optimistic outbound message at its chronological position.
// It returns false when the message was a duplicate or does not belong to this conversation.
// Before Initialize the message is queued and true is returned.
func (s *Store) AppendLive(m *pb.Message) bool {
	if m == nil || !m.Between(s.key.A, s.key.B) {
		return false
	}

	s.Lock()
	if !s.initialized {
		s.pending = append(s.pending, m)
		s.Unlock()
		return true
	}
	added := s.insert(m)
	s.Unlock()

	if added {
		s.notify()
	}
	return added
}

// insert must be called with the lock held.
func (s *Store) insert(m *pb.Message) bool {
	if !m.Between(s.key.A, s.key.B) {
		glog.V(5).Infof("conversation %v: drop foreign message %s -> %s", s.key, m.From, m.To)
		return false
	}
	if s.isDup(m) {
		return false
	}

	s.seq++
	e := &entry{msg: m, seq: s.seq}
	e.at, e.ok = m.Time()

	i := sort.Search(len(s.entries), func(i int) bool {
		return e.before(s.entries[i])
	})
	s.entries = append(s.entries, nil)
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e

	if m.Id != "" {
		s.byId[m.Id] = e
	}
	sig := signatureOf(m)
	s.bySig[sig] = append(s.bySig[sig], e)
	return true
}

// isDup: two messages that both carry an id are equal iff the ids match,
// otherwise they are equal when from, to, body and sentAt match.
func (s *Store) isDup(m *pb.Message) bool {
	if m.Id != "" {
		if _, ok := s.byId[m.Id]; ok {
			return true
		}
	}
	for _, e := range s.bySig[signatureOf(m)] {
		if e.msg.Id == "" || m.Id == "" {
			return true
		}
	}
	return false
}

// Len returns the number of visible messages.
func (s *Store) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.entries)
}

// Messages returns the visible messages in order.
func (s *Store) Messages() []*pb.Message {
	s.RLock()
	defer s.RUnlock()
	out := make([]*pb.Message, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.msg)
	}
	return out
}

// GroupedByDay returns a day-partitioned view of the current content in loc.
// Messages with unparseable timestamps are skipped.
func (s *Store) GroupedByDay(loc *time.Location) *DayView {
	if loc == nil {
		loc = time.Local
	}
	s.RLock()
	snapshot := make([]*entry, len(s.entries))
	copy(snapshot, s.entries)
	s.RUnlock()
	return &DayView{entries: snapshot, loc: loc}
}
