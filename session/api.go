package session

//go:generate mockgen -source=api.go -destination=mock/mock_session.go

import (
	"context"

	pb "github.com/mqy/minichat/proto"
)

// Relay is the live channel shared by all conversations of a session.
// *channel.Channel implements it.
type Relay interface {
	Connect(ctx context.Context) error
	Register(id pb.Identity) error
	Send(msg *pb.Message) error
	SendTyping(sig *pb.TypingSignal) error
	OnMessage(fn func(*pb.Message)) func()
	OnTyping(fn func(*pb.TypingSignal)) func()
	OnPresence(fn func(pb.PresenceSnapshot)) func()
	Disconnect()
}

// HistoryLoader fetches transcripts and discovers peers. *history.Client implements it.
type HistoryLoader interface {
	LoadHistory(ctx context.Context, self, peer, token string) ([]*pb.Message, error)
	SuperadminEmail(ctx context.Context, token string) (*pb.Identity, error)
	AdminUsers(ctx context.Context, token string) ([]pb.Identity, error)
}
