package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/pborman/uuid"

	"github.com/mqy/minichat/channel"
	pb "github.com/mqy/minichat/proto"
)

// The demo bot signs in to a dev relay, answers every message it receives and
// greets admins that come online. Useful to try the terminal client alone.

var (
	relayURL       = flag.String("relay-url", "ws://127.0.0.1:8000/ws", "relay websocket url")
	email          = flag.String("email", "root@example.com", "bot email, normally the superadmin")
	token          = flag.String("token", "dev", "bearer token of the bot")
	replyDelay     = flag.Duration("reply-delay", 2*time.Second, "typing time before each reply")
	tickerDuration = flag.Duration("ticker-duration", 0, "greet online admins periodically, 0 disables")
)

func main() {
	flag.Parse()

	if len(*email) == 0 {
		panic("--email is required.")
	}

	ch := channel.New(channel.Conf{
		URL:       *relayURL,
		Dialer:    channel.NewBearerDialer(*token),
		Reconnect: channel.DefaultReconnect(),
	})
	ch.OnState(func(s channel.State) {
		glog.Infof("bot: %s", s)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ch.Connect(ctx); err != nil {
		panic(err)
	}
	defer ch.Disconnect()

	if err := ch.Register(pb.Identity{Email: *email, Role: pb.RoleSuperadmin}); err != nil {
		panic(err)
	}

	var mu sync.Mutex
	var online pb.PresenceSnapshot
	greeted := map[string]bool{}

	ch.OnPresence(func(users pb.PresenceSnapshot) {
		mu.Lock()
		online = users
		var fresh []string
		for _, u := range users {
			if u != *email && !greeted[u] {
				greeted[u] = true
				fresh = append(fresh, u)
			}
		}
		mu.Unlock()
		for _, u := range fresh {
			send(ch, u, "hello, how can I help?")
		}
	})

	ch.OnMessage(func(m *pb.Message) {
		if m.To != *email {
			return
		}
		go func() {
			ch.SendTyping(&pb.TypingSignal{From: *email, To: m.From})
			time.Sleep(*replyDelay)
			send(ch, m.From, fmt.Sprintf("you said: %s", m.Body))
		}()
	})

	var tickC <-chan time.Time
	if *tickerDuration > 0 {
		ticker := time.NewTicker(*tickerDuration)
		defer ticker.Stop()
		tickC = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	var i int = 0
	for {
		select {
		case <-sigCh:
			glog.Info("bot: stopped")
			glog.Flush()
			return
		case <-tickC:
			mu.Lock()
			users := append([]string(nil), online...)
			mu.Unlock()
			for _, u := range users {
				if u != *email {
					send(ch, u, fmt.Sprintf("ping #%d", i))
				}
			}
			i++
		}
	}
}

func send(ch *channel.Channel, to, body string) {
	msg := &pb.Message{
		Id:     uuid.New(),
		From:   *email,
		To:     to,
		Body:   body,
		SentAt: pb.FormatSentAt(time.Now()),
	}
	if err := ch.Send(msg); err != nil {
		glog.Errorf("bot: send to %s error: %v", to, err)
	}
}
