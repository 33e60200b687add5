package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"
	"golang.org/x/term"

	"github.com/mqy/minichat/auth"
	"github.com/mqy/minichat/channel"
	"github.com/mqy/minichat/history"
	pb "github.com/mqy/minichat/proto"
	"github.com/mqy/minichat/session"
	"github.com/mqy/minichat/store"
	"github.com/mqy/minichat/view"
)

var (
	flagRelayURL = flag.String("relay-url", "ws://127.0.0.1:8000/ws", "relay websocket url")
	flagAPIURL   = flag.String("api-url", "http://127.0.0.1:8000", "history and peer discovery api base url")

	flagId    = flag.String("id", "", "user id")
	flagEmail = flag.String("email", "", "user email")
	flagRole  = flag.String("role", string(pb.RoleAdmin), "user role: admin or superadmin")
	flagToken = flag.String("token", "", "bearer token")
	flagPeer  = flag.String("peer", "", "peer email; empty discovers it")

	flagUnreadDb = flag.String("unread-db", "", "bbolt file keeping unread counters of the superadmin; empty keeps them in memory")

	flagReconnect    = flag.Bool("reconnect", true, "reconnect automatically when the relay connection is lost")
	flagReconnectMin = flag.Duration("reconnect-min", channel.BackoffMinInterval, "min reconnect interval")
	flagReconnectMax = flag.Duration("reconnect-max", channel.BackoffMaxInterval, "max reconnect interval")
)

func main() {
	flag.Parse()

	// NOTE: os.Exit() does not call defers.
	os.Exit(run())
}

func run() int {
	defer glog.Flush()

	if v := validateFlags(); v > 0 {
		return v
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := channel.New(channel.Conf{
		URL:    *flagRelayURL,
		Dialer: channel.NewBearerDialer(*flagToken),
		Reconnect: channel.ReconnectPolicy{
			Enabled:     *flagReconnect,
			MinInterval: *flagReconnectMin,
			MaxInterval: *flagReconnectMax,
			Multiplier:  channel.BackoffMultiplier,
		},
	})
	ch.OnState(func(s channel.State) {
		glog.Infof("relay connection: %s", s)
	})

	conf := session.Conf{
		Auth: auth.NewStaticProvider(&auth.Session{
			Identity: pb.Identity{Id: *flagId, Email: *flagEmail, Role: pb.Role(*flagRole)},
			Token:    *flagToken,
		}),
		Relay:   ch,
		History: history.NewClient(*flagAPIURL, nil),
	}
	if *flagUnreadDb != "" {
		unread, err := store.OpenBoltUnreadStore(*flagUnreadDb)
		if err != nil {
			return errorf("--unread-db: %v", err)
		}
		defer unread.Close()
		conf.Unread = unread
	}

	sess, err := session.Start(ctx, conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, view.ErrorText(err))
		return 1
	}
	defer sess.Close()

	var out *console
	var lines <-chan string
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return errorf("terminal raw mode: %v", err)
		}
		defer term.Restore(fd, state)
		out = newConsole(os.Stdout, true)
		lines = out.readKeys(os.Stdin)
	} else {
		out = newConsole(os.Stdout, false)
		lines = readLines(os.Stdin)
	}

	peer := *flagPeer
	if peer == "" {
		out.do(func(w io.Writer) { fmt.Fprintln(w, "loading peers ...") })
		if peer, err = pickPeer(ctx, sess, out, lines); err != nil {
			out.do(func(w io.Writer) { fmt.Fprintln(w, view.ErrorText(err)) })
			return 1
		}
		if peer == "" {
			return 0
		}
	}

	conv, err := sess.Open(ctx, peer)
	if err != nil {
		out.do(func(w io.Writer) { fmt.Fprintln(w, view.ErrorText(err)) })
		return 1
	}
	// typing signals go out while the line is composed.
	out.setOnKey(conv.Keystroke)

	v := &view.Conversation{Self: *flagEmail, Peer: peer}
	redraw := func() {
		out.redraw(func(w io.Writer) {
			fmt.Fprint(w, "\n")
			if err := v.Render(w, conv.Store().GroupedByDay(time.Local), conv.PeerTyping()); err != nil {
				glog.Errorf("render error: %v", err)
			}
		})
	}
	conv.OnChange(redraw)
	redraw()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	for {
		select {
		case sig := <-sigCh:
			glog.Infof("received signal `%s` stopping", sig.String())
			return 0
		case line, ok := <-lines:
			if !ok || line == "/quit" {
				return 0
			}
			if line == "/peers" && sess.Registry() != nil {
				if err := showPeers(ctx, sess, out); err != nil {
					out.do(func(w io.Writer) { fmt.Fprintln(w, view.ErrorText(err)) })
				}
				continue
			}
			if strings.TrimSpace(line) == "" {
				redraw()
				continue
			}
			if _, err := conv.Send(line); err != nil {
				out.do(func(w io.Writer) { fmt.Fprintln(w, view.ErrorText(err)) })
			}
		}
	}
}

// pickPeer returns the superadmin for an admin, or asks the superadmin to pick an admin.
func pickPeer(ctx context.Context, sess *session.Session, out *console, lines <-chan string) (string, error) {
	peers, err := sess.Peers(ctx)
	if err != nil {
		return "", err
	}
	if len(peers) == 0 {
		return "", fmt.Errorf("no peer to chat with")
	}
	if sess.Registry() == nil {
		return peers[0].Email, nil
	}

	for {
		if err := showPeers(ctx, sess, out); err != nil {
			return "", err
		}
		out.do(func(w io.Writer) { fmt.Fprint(w, "pick a peer (number or email): ") })
		line, ok := <-lines
		if !ok {
			return "", nil
		}
		line = strings.TrimSpace(line)
		if i, err := strconv.Atoi(line); err == nil && i >= 1 && i <= len(peers) {
			return peers[i-1].Email, nil
		}
		for _, p := range peers {
			if p.Email == line {
				return p.Email, nil
			}
		}
	}
}

func showPeers(ctx context.Context, sess *session.Session, out *console) error {
	peers, err := sess.Peers(ctx)
	if err != nil {
		return err
	}
	states := sess.Registry().Peers(peers)
	out.do(func(w io.Writer) {
		if err := view.RenderPeers(w, states); err != nil {
			glog.Errorf("render error: %v", err)
		}
	})
	return nil
}

func validateFlags() int {
	if *flagRelayURL == "" {
		return errorf("--relay-url is required")
	}
	if *flagAPIURL == "" {
		return errorf("--api-url is required")
	}
	if *flagEmail == "" {
		return errorf("--email is required")
	}
	if !pb.Role(*flagRole).Valid() {
		return errorf("invalid --role `%s`, expect %s or %s", *flagRole, pb.RoleAdmin, pb.RoleSuperadmin)
	}
	if *flagToken == "" {
		return errorf("--token is required")
	}
	if *flagPeer == *flagEmail {
		return errorf("--peer must differ from --email")
	}
	if *flagReconnect {
		if *flagReconnectMin <= 0 || *flagReconnectMax < *flagReconnectMin {
			return errorf("invalid --reconnect-min/--reconnect-max: %v/%v", *flagReconnectMin, *flagReconnectMax)
		}
	}
	return 0
}

func errorf(fmt string, args ...interface{}) int {
	glog.Errorf(fmt, args...)
	return 1
}
