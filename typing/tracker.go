package typing

import (
	"sync"
	"time"

	"github.com/golang/glog"

	pb "github.com/mqy/minichat/proto"
)

const (
	// SendRearm is how long a sent signal suppresses further signals.
	SendRearm = time.Second

	// ReceiveExpiry clears the peer typing flag when no new signal arrives.
	ReceiveExpiry = 2 * time.Second
)

type State int

const (
	Idle State = iota
	Typing
)

func (s State) String() string {
	if s == Typing {
		return "typing"
	}
	return "idle"
}

// Tracker coalesces local keystrokes into at most one outbound typing signal per SendRearm,
// and tracks whether the active peer is typing.
type Tracker struct {
	sync.Mutex

	self, peer string
	clock      Clock
	emit       func(*pb.TypingSignal)

	state     State
	sendTimer Timer
	sendGen   uint64

	peerTyping bool
	recvTimer  Timer
	recvGen    uint64

	onPeerTyping func(bool)
	closed       bool
}

type Option func(*Tracker)

// WithClock replaces the real clock.
func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// OnPeerTyping registers fn to be called when the peer typing flag flips.
func OnPeerTyping(fn func(bool)) Option {
	return func(t *Tracker) { t.onPeerTyping = fn }
}

// NewTracker creates the tracker of the composer of self writing to peer.
// emit sends an outbound signal; it must not block.
func NewTracker(self, peer string, emit func(*pb.TypingSignal), opts ...Option) *Tracker {
	t := &Tracker{
		self:  self,
		peer:  peer,
		clock: RealClock{},
		emit:  emit,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Keystroke records local composition: Idle -> Typing emits one signal and arms the re-arm timer.
func (t *Tracker) Keystroke() {
	t.Lock()
	if t.closed || t.state == Typing {
		t.Unlock()
		return
	}
	t.state = Typing
	t.sendGen++
	gen := t.sendGen
	t.sendTimer = t.clock.AfterFunc(SendRearm, func() {
		t.Lock()
		if gen == t.sendGen {
			t.state = Idle
		}
		t.Unlock()
	})
	t.Unlock()

	if t.emit != nil {
		t.emit(&pb.TypingSignal{From: t.self, To: t.peer})
	}
}

// State returns the composer state.
func (t *Tracker) State() State {
	t.Lock()
	defer t.Unlock()
	return t.state
}

// Receive handles an inbound signal; signals not from the active peer to self are ignored.
func (t *Tracker) Receive(sig *pb.TypingSignal) {
	if sig == nil || sig.From != t.peer || sig.To != t.self {
		return
	}

	t.Lock()
	if t.closed {
		t.Unlock()
		return
	}
	if t.recvTimer != nil {
		t.recvTimer.Stop()
	}
	t.recvGen++
	gen := t.recvGen
	t.recvTimer = t.clock.AfterFunc(ReceiveExpiry, func() {
		t.expire(gen)
	})
	changed := !t.peerTyping
	t.peerTyping = true
	fn := t.onPeerTyping
	t.Unlock()

	if changed {
		glog.V(5).Infof("typing: %s is typing", t.peer)
		if fn != nil {
			fn(true)
		}
	}
}

func (t *Tracker) expire(gen uint64) {
	t.Lock()
	if gen != t.recvGen || !t.peerTyping {
		t.Unlock()
		return
	}
	t.peerTyping = false
	t.recvTimer = nil
	fn := t.onPeerTyping
	t.Unlock()

	if fn != nil {
		fn(false)
	}
}

// PeerTyping reports whether the peer typing indicator is shown.
func (t *Tracker) PeerTyping() bool {
	t.Lock()
	defer t.Unlock()
	return t.peerTyping
}

// Close stops pending timers. A closed tracker ignores further input.
func (t *Tracker) Close() {
	t.Lock()
	defer t.Unlock()
	t.closed = true
	t.sendGen++
	t.recvGen++
	if t.sendTimer != nil {
		t.sendTimer.Stop()
	}
	if t.recvTimer != nil {
		t.recvTimer.Stop()
	}
	t.state = Idle
	t.peerTyping = false
}
