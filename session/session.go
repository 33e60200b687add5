package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/mqy/minichat/auth"
	"github.com/mqy/minichat/conversation"
	pb "github.com/mqy/minichat/proto"
	"github.com/mqy/minichat/registry"
	"github.com/mqy/minichat/store"
	"github.com/mqy/minichat/typing"
)

var (
	ErrClosed    = errors.New("session: closed")
	ErrEmptyBody = errors.New("session: empty message body")
)

type Conf struct {
	Auth    auth.Provider
	Relay   Relay
	History HistoryLoader

	// Unread persists the superadmin unread counters; nil keeps them in memory.
	Unread store.IUnreadStore

	// optional, for tests.
	Clock typing.Clock
	Now   func() time.Time
}

// Session wires one signed-in client: identity, live channel, history and, for the
// superadmin, the peer registry. Close is the only place the channel is disconnected.
type Session struct {
	sync.Mutex

	conf     Conf
	identity pb.Identity
	token    string
	registry *registry.Registry

	unsubs []func()
	open   map[conversation.Key]*Conversation
	closed bool
}

// Start resolves the identity, connects and registers it. A failed connect is not fatal:
// the composer stays usable and the next Open tries again.
func Start(ctx context.Context, conf Conf) (*Session, error) {
	if conf.Auth == nil || conf.Relay == nil || conf.History == nil {
		return nil, fmt.Errorf("session: auth, relay and history are required")
	}
	if conf.Now == nil {
		conf.Now = time.Now
	}
	if conf.Clock == nil {
		conf.Clock = typing.RealClock{}
	}

	cur, err := conf.Auth.Current(ctx)
	if err != nil {
		return nil, err
	}
	if !cur.Identity.Role.Valid() {
		return nil, fmt.Errorf("session: %s: unknown role %q", cur.Identity.Email, cur.Identity.Role)
	}

	s := &Session{
		conf:     conf,
		identity: cur.Identity,
		token:    cur.Token,
		open:     make(map[conversation.Key]*Conversation),
	}

	if s.identity.Role == pb.RoleSuperadmin {
		unread := conf.Unread
		if unread == nil {
			unread = store.NewMemoryUnreadStore()
		}
		reg, err := registry.New(unread)
		if err != nil {
			return nil, err
		}
		s.registry = reg
		self := s.identity.Email
		s.unsubs = append(s.unsubs,
			conf.Relay.OnPresence(reg.OnPresenceUpdate),
			conf.Relay.OnMessage(func(m *pb.Message) {
				if m.To == self {
					reg.OnInboundMessage(m)
				}
			}),
		)
	}

	s.connect(ctx)
	glog.Infof("session: started as %s (%s)", s.identity.Email, s.identity.Role)
	return s, nil
}

func (s *Session) connect(ctx context.Context) {
	if err := s.conf.Relay.Connect(ctx); err != nil {
		glog.Errorf("session: connect error: %v", err)
	}
	// remembered by the channel even when not connected, and announced once per connection.
	if err := s.conf.Relay.Register(s.identity); err != nil {
		glog.V(2).Infof("session: register %s: %v", s.identity.Email, err)
	}
}

func (s *Session) Identity() pb.Identity {
	return s.identity
}

// Registry is the peer registry of the superadmin, nil for admins.
func (s *Session) Registry() *registry.Registry {
	return s.registry
}

// Peers discovers who this identity may talk to: the superadmin for an admin,
// all admins for the superadmin.
func (s *Session) Peers(ctx context.Context) ([]pb.Identity, error) {
	switch s.identity.Role {
	case pb.RoleAdmin:
		root, err := s.conf.History.SuperadminEmail(ctx, s.token)
		if err != nil {
			return nil, err
		}
		return []pb.Identity{*root}, nil
	default:
		ids, err := s.conf.History.AdminUsers(ctx, s.token)
		if err != nil {
			return nil, err
		}
		out := ids[:0]
		for _, id := range ids {
			if id.Email != s.identity.Email {
				out = append(out, id)
			}
		}
		return out, nil
	}
}

// Open opens the conversation with peer: it reconnects if needed, subscribes to live
// events, then loads the history. Live messages arriving during the load are merged
// once it completes.
func (s *Session) Open(ctx context.Context, peer string) (*Conversation, error) {
	if peer == "" || peer == s.identity.Email {
		return nil, fmt.Errorf("session: invalid peer %q", peer)
	}

	s.Lock()
	if s.closed {
		s.Unlock()
		return nil, ErrClosed
	}
	key := conversation.KeyOf(s.identity.Email, peer)
	if c, ok := s.open[key]; ok {
		s.Unlock()
		if s.registry != nil {
			s.registry.SelectPeer(peer)
		}
		return c, nil
	}
	c := newConversation(s, peer)
	s.open[key] = c
	s.Unlock()

	s.connect(ctx)
	if s.registry != nil {
		s.registry.SelectPeer(peer)
	}

	history, err := s.conf.History.LoadHistory(ctx, s.identity.Email, peer, s.token)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.store.Initialize(history)
	return c, nil
}

func (s *Session) forget(c *Conversation) {
	s.Lock()
	if s.open[c.store.Key()] == c {
		delete(s.open, c.store.Key())
	}
	s.Unlock()
}

// Close closes all conversations and disconnects the channel.
func (s *Session) Close() {
	s.Lock()
	if s.closed {
		s.Unlock()
		return
	}
	s.closed = true
	convs := make([]*Conversation, 0, len(s.open))
	for _, c := range s.open {
		convs = append(convs, c)
	}
	unsubs := s.unsubs
	s.unsubs = nil
	s.Unlock()

	for _, c := range convs {
		c.Close()
	}
	for _, unsub := range unsubs {
		unsub()
	}
	s.conf.Relay.Disconnect()
	glog.Infof("session: %s closed", s.identity.Email)
}
