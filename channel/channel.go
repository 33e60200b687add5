package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"

	pb "github.com/mqy/minichat/proto"
)

const (
	// Time allowed to write a frame to the relay.
	writeWait = 3 * time.Second

	// Time allowed for one reconnect dial.
	dialTimeout = 10 * time.Second

	// websocket max frame size to read.
	readLimit = 64 * 1024

	defaultSendBuffer = 64

	BackoffMinInterval = 1 * time.Second
	BackoffMaxInterval = 60 * time.Second
	BackoffMultiplier  = 1.5
)

var (
	ErrNotConnected   = errors.New("channel: not connected")
	ErrSendBufferFull = errors.New("channel: send buffer full")
	ErrClosed         = errors.New("channel: disconnected while dialing")
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ReconnectPolicy controls what happens after the connection is lost.
// When disabled, the caller must call Connect and Register again.
type ReconnectPolicy struct {
	Enabled     bool
	MinInterval time.Duration
	MaxInterval time.Duration
	Multiplier  float64
}

// DefaultReconnect is an exponential backoff from 1s to 60s.
func DefaultReconnect() ReconnectPolicy {
	return ReconnectPolicy{
		Enabled:     true,
		MinInterval: BackoffMinInterval,
		MaxInterval: BackoffMaxInterval,
		Multiplier:  BackoffMultiplier,
	}
}

func (p ReconnectPolicy) next(d time.Duration) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d = time.Duration(float64(d) * mult)
	if p.MaxInterval > 0 && d > p.MaxInterval {
		d = p.MaxInterval
	}
	return d
}

type Conf struct {
	URL        string
	Dialer     Dialer // nil dials with gorilla/websocket
	Reconnect  ReconnectPolicy
	SendBuffer int
}

// Channel owns the single live connection to the relay, shared by all conversations
// and the peer registry. Subscriptions survive disconnects.
type Channel struct {
	sync.Mutex
	dialMu sync.Mutex

	conf     Conf
	state    State
	link     *link
	identity *pb.Identity

	// closed by Disconnect, nil until the next Connect.
	stopC        chan struct{}
	reconnecting bool

	subs *subscribers
}

func New(conf Conf) *Channel {
	if conf.Dialer == nil {
		conf.Dialer = &WebsocketDialer{}
	}
	if conf.SendBuffer <= 0 {
		conf.SendBuffer = defaultSendBuffer
	}
	if conf.Reconnect.MinInterval <= 0 {
		conf.Reconnect.MinInterval = BackoffMinInterval
	}
	return &Channel{
		conf:  conf,
		stopC: make(chan struct{}),
		subs:  newSubscribers(),
	}
}

func (c *Channel) State() State {
	c.Lock()
	defer c.Unlock()
	return c.state
}

// setState must be called with the lock held; it reports whether the state changed.
func (c *Channel) setState(s State) bool {
	if c.state == s {
		return false
	}
	c.state = s
	if s == Connected {
		connectedGauge.Set(1)
	} else {
		connectedGauge.Set(0)
	}
	return true
}

// Connect establishes the connection if not already connected.
func (c *Channel) Connect(ctx context.Context) error {
	c.Lock()
	if c.stopC == nil {
		c.stopC = make(chan struct{})
	}
	stopC := c.stopC
	c.Unlock()
	return c.dial(ctx, stopC)
}

func (c *Channel) dial(ctx context.Context, stopC chan struct{}) error {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()

	c.Lock()
	if c.link != nil {
		c.Unlock()
		return nil
	}
	if c.stopC != stopC {
		c.Unlock()
		return ErrClosed
	}
	changed := c.setState(Connecting)
	c.Unlock()
	if changed {
		c.subs.dispatchState(Connecting)
	}

	conn, err := c.conf.Dialer.Dial(ctx, c.conf.URL)

	c.Lock()
	if err != nil {
		changed := c.stopC == stopC && c.setState(Disconnected)
		c.Unlock()
		if changed {
			c.subs.dispatchState(Disconnected)
		}
		return fmt.Errorf("channel: dial %s: %w", c.conf.URL, err)
	}
	if c.stopC != stopC {
		c.Unlock()
		conn.Close()
		return ErrClosed
	}
	l := newLink(conn, c.conf.SendBuffer)
	c.link = l
	c.setState(Connected)
	id := c.identity
	c.Unlock()

	glog.Infof("channel: connected to %s", c.conf.URL)

	go c.recvLoop(l)
	go c.sendLoop(l)

	if id != nil {
		// The relay forgets registrations across connections.
		if err := c.register(l, id); err != nil {
			glog.Errorf("channel: re-register %s error: %v", id.Email, err)
		}
	}
	c.subs.dispatchState(Connected)
	return nil
}

// Register announces id to the relay. The identity is remembered and announced again
// on every later connection. It is announced once per connection: registering the
// email already announced on the live connection sends nothing.
func (c *Channel) Register(id pb.Identity) error {
	if id.Email == "" {
		return fmt.Errorf("channel: register: empty email")
	}
	c.Lock()
	c.identity = &id
	l := c.link
	c.Unlock()

	if l == nil {
		droppedTotal.WithLabelValues(pb.EventRegister).Inc()
		return ErrNotConnected
	}
	return c.register(l, &id)
}

func (c *Channel) register(l *link, id *pb.Identity) error {
	frame, err := pb.Encode(pb.EventRegister, &pb.RegisterReq{UserId: id.Email})
	if err != nil {
		return err
	}

	c.Lock()
	if l.registered == id.Email {
		c.Unlock()
		return nil
	}
	prev := l.registered
	l.registered = id.Email
	c.Unlock()

	if err := c.enqueue(l, pb.EventRegister, frame); err != nil {
		c.Lock()
		if l.registered == id.Email {
			l.registered = prev
		}
		c.Unlock()
		return err
	}
	return nil
}

// Send emits msg, fire-and-forget. The relay does not echo it back, the caller
// appends it to its own conversation.
func (c *Channel) Send(msg *pb.Message) error {
	if err := pb.ValidateMessage(msg); err != nil {
		return err
	}
	frame, err := pb.Encode(pb.EventSendMessage, msg)
	if err != nil {
		return err
	}
	return c.emit(pb.EventSendMessage, frame)
}

// SendTyping emits a typing signal, fire-and-forget.
func (c *Channel) SendTyping(sig *pb.TypingSignal) error {
	if err := pb.ValidateTyping(sig); err != nil {
		return err
	}
	frame, err := pb.Encode(pb.EventTyping, sig)
	if err != nil {
		return err
	}
	return c.emit(pb.EventTyping, frame)
}

func (c *Channel) emit(event string, frame []byte) error {
	c.Lock()
	l := c.link
	c.Unlock()
	if l == nil {
		droppedTotal.WithLabelValues(event).Inc()
		return ErrNotConnected
	}
	return c.enqueue(l, event, frame)
}

func (c *Channel) enqueue(l *link, event string, frame []byte) error {
	if err := l.enqueue(frame); err != nil {
		droppedTotal.WithLabelValues(event).Inc()
		return err
	}
	framesTotal.WithLabelValues("out", event).Inc()
	return nil
}

// OnMessage subscribes to inbound messages; the returned func unsubscribes.
func (c *Channel) OnMessage(fn func(*pb.Message)) func() {
	return c.subs.add(kindMessage, fn)
}

func (c *Channel) OnTyping(fn func(*pb.TypingSignal)) func() {
	return c.subs.add(kindTyping, fn)
}

func (c *Channel) OnPresence(fn func(pb.PresenceSnapshot)) func() {
	return c.subs.add(kindPresence, fn)
}

func (c *Channel) OnState(fn func(State)) func() {
	return c.subs.add(kindState, fn)
}

// Disconnect tears down the connection and stops reconnecting. Subscriptions stay
// registered for the next Connect.
func (c *Channel) Disconnect() {
	c.Lock()
	if c.stopC != nil {
		close(c.stopC)
		c.stopC = nil
	}
	l := c.link
	c.link = nil
	changed := c.setState(Disconnected)
	c.Unlock()

	if l != nil {
		l.close()
		glog.Infof("channel: disconnected from %s", c.conf.URL)
	}
	if changed {
		c.subs.dispatchState(Disconnected)
	}
}

// lost handles a broken connection. It is silent to callers: no error is surfaced.
func (c *Channel) lost(l *link, cause error) {
	l.close()

	c.Lock()
	if c.link != l {
		c.Unlock()
		return
	}
	c.link = nil
	changed := c.setState(Disconnected)
	stopC := c.stopC
	reconnect := c.conf.Reconnect.Enabled && stopC != nil && !c.reconnecting
	if reconnect {
		c.reconnecting = true
	}
	c.Unlock()

	glog.V(2).Infof("channel: connection lost: %v", cause)
	if changed {
		c.subs.dispatchState(Disconnected)
	}
	if reconnect {
		go c.reconnectLoop(stopC)
	}
}

func (c *Channel) reconnectLoop(stopC chan struct{}) {
	interval := c.conf.Reconnect.MinInterval
	for attempt := 1; ; attempt++ {
		timer := time.NewTimer(interval)
		select {
		case <-stopC:
			timer.Stop()
			c.Lock()
			c.reconnecting = false
			c.Unlock()
			return
		case <-timer.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		err := c.dial(ctx, stopC)
		cancel()

		if err == nil || errors.Is(err, ErrClosed) {
			c.Lock()
			done := c.link != nil || c.stopC != stopC
			if done {
				c.reconnecting = false
			}
			c.Unlock()
			if done {
				if err == nil {
					reconnectsTotal.Inc()
					glog.Infof("channel: reconnected after %d attempts", attempt)
				}
				return
			}
			// lost again before we looked, start over.
			interval = c.conf.Reconnect.MinInterval
			continue
		}
		interval = c.conf.Reconnect.next(interval)
		glog.V(2).Infof("channel: reconnect attempt %d error: %v, next in %v", attempt, err, interval)
	}
}

func (c *Channel) recvLoop(l *link) {
	defer func() { glog.V(5).Infof("channel: recvLoop(): exited") }()

	for {
		msgType, frame, err := l.conn.ReadMessage()
		if err != nil {
			c.lost(l, err)
			return
		}
		if msgType != websocket.TextMessage {
			glog.Errorf("channel: recvLoop(): unexpected message type: %d", msgType)
			continue
		}

		glog.V(5).Infof("channel: recvLoop(): incoming frame: %s", frame)

		ev, err := pb.DecodeInbound(frame)
		if err != nil {
			glog.Errorf("channel: recvLoop(): drop frame: %v", err)
			droppedTotal.WithLabelValues("inbound").Inc()
			continue
		}

		switch v := ev.(type) {
		case *pb.Message:
			framesTotal.WithLabelValues("in", pb.EventReceiveMessage).Inc()
			c.subs.dispatchMessage(v)
		case *pb.TypingSignal:
			framesTotal.WithLabelValues("in", pb.EventTyping).Inc()
			c.subs.dispatchTyping(v)
		case pb.PresenceSnapshot:
			framesTotal.WithLabelValues("in", pb.EventOnlineUsers).Inc()
			c.subs.dispatchPresence(v)
		}
	}
}

func (c *Channel) sendLoop(l *link) {
	defer func() { glog.V(5).Infof("channel: sendLoop(): exited") }()

	for {
		select {
		case <-l.doneC:
			return
		case frame := <-l.sendC:
			l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				glog.Errorf("channel: sendLoop(): write error: %v", err)
				c.lost(l, err)
				return
			}
		}
	}
}
