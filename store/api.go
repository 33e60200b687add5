package store

import (
	"context"

	pb "github.com/mqy/minichat/proto"
)

// IUnreadStore persists the unread counters of the peer list.
// The whole map is rewritten on every save.
type IUnreadStore interface {
	// Load returns the saved counters, an empty map when nothing was saved.
	Load() (map[string]int, error)

	// Save replaces the saved counters.
	Save(counts map[string]int) error
}

// IMessageStore is the durable transcript kept by the relay.
type IMessageStore interface {
	// Save stores the message. Saving an id twice is not an error.
	Save(ctx context.Context, msg *pb.Message) error

	// Between returns the messages exchanged between a and b in either direction, in save order.
	Between(ctx context.Context, a, b string) ([]*pb.Message, error)

	// DeleteOutdated deletes messages saved before the day `ttlDays` ago.
	DeleteOutdated(ctx context.Context, ttlDays int32) (int32, error)
}
