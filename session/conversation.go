package session

import (
	"strings"
	"sync"

	"github.com/golang/glog"
	"github.com/pborman/uuid"

	"github.com/mqy/minichat/conversation"
	pb "github.com/mqy/minichat/proto"
	"github.com/mqy/minichat/typing"
)

// Conversation is an open chat with one peer.
type Conversation struct {
	sync.Mutex

	sess    *Session
	peer    string
	store   *conversation.Store
	tracker *typing.Tracker

	unsubs    []func()
	listeners []func()
	closeOnce sync.Once
}

func newConversation(s *Session, peer string) *Conversation {
	self := s.identity.Email
	c := &Conversation{
		sess:  s,
		peer:  peer,
		store: conversation.NewStore(self, peer),
	}
	c.tracker = typing.NewTracker(self, peer, c.emitTyping,
		typing.WithClock(s.conf.Clock),
		typing.OnPeerTyping(func(bool) { c.notify() }),
	)
	c.store.OnChange(c.notify)

	key := c.store.Key()
	c.unsubs = []func(){
		s.conf.Relay.OnMessage(func(m *pb.Message) {
			if conversation.KeyOf(m.From, m.To) == key {
				c.store.AppendLive(m)
			}
		}),
		s.conf.Relay.OnTyping(c.tracker.Receive),
	}
	return c
}

func (c *Conversation) emitTyping(sig *pb.TypingSignal) {
	if err := c.sess.conf.Relay.SendTyping(sig); err != nil {
		glog.V(2).Infof("session: typing to %s dropped: %v", sig.To, err)
	}
}

func (c *Conversation) Peer() string {
	return c.peer
}

func (c *Conversation) Store() *conversation.Store {
	return c.store
}

// OnChange registers fn to be called when messages or the peer typing flag change.
func (c *Conversation) OnChange(fn func()) {
	c.Lock()
	c.listeners = append(c.listeners, fn)
	c.Unlock()
}

func (c *Conversation) notify() {
	c.Lock()
	listeners := append([]func(){}, c.listeners...)
	c.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Send composes a message to the peer, appends it locally and emits it.
// The local copy is kept even when emitting fails: the message is then lost for the peer.
func (c *Conversation) Send(body string) (*pb.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}
	msg := &pb.Message{
		Id:     uuid.New(),
		From:   c.sess.identity.Email,
		To:     c.peer,
		Body:   body,
		SentAt: pb.FormatSentAt(c.sess.conf.Now()),
	}
	c.store.AppendLive(msg)
	if err := c.sess.conf.Relay.Send(msg); err != nil {
		glog.Errorf("session: message %s to %s not sent: %v", msg.Id, c.peer, err)
		return msg, err
	}
	return msg, nil
}

func (c *Conversation) Keystroke() {
	c.tracker.Keystroke()
}

func (c *Conversation) PeerTyping() bool {
	return c.tracker.PeerTyping()
}

// Close unsubscribes from the channel and deselects the peer. The channel stays open.
func (c *Conversation) Close() {
	c.closeOnce.Do(func() {
		for _, unsub := range c.unsubs {
			unsub()
		}
		c.tracker.Close()
		if reg := c.sess.registry; reg != nil && reg.Selected() == c.peer {
			reg.ClearSelection()
		}
		c.sess.forget(c)
	})
}
