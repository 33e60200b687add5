package relay

//go:generate mockgen -destination=mock/mock_kafka.go -package=mock_relay github.com/mqy/minichat/relay IKafkaWriter
//go:generate mockgen -destination=mock/mock_store.go -package=mock_relay github.com/mqy/minichat/store IMessageStore

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"

	"github.com/mqy/minichat/auth"
	"github.com/mqy/minichat/store"
)

const (
	MinTTLDays = 7
	MaxTTLDays = 365

	DefaultMaxMsgBytes   = 4096
	DefaultRateLimit     = rate.Limit(20)
	DefaultRateBurst     = 40
	DefaultCleanInterval = time.Hour
)

// IKafkaWriter is the part of *kafka.Writer the archiver uses.
type IKafkaWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Conf configures a relay Hub.
type Conf struct {
	Directory *Directory
	Store     store.IMessageStore
	Verifier  auth.Verifier

	// Archive mirrors routed messages to kafka; nil disables archiving.
	Archive IKafkaWriter

	// MaxMsgBytes bounds a message body, routed and archived alike.
	MaxMsgBytes int

	// Per connection inbound frame rate.
	RateLimit rate.Limit
	RateBurst int

	// TTLDays > 0 enables periodic deletion of older messages.
	TTLDays       int32
	CleanInterval time.Duration
}

func (c *Conf) setDefaults() {
	if c.Directory == nil {
		c.Directory = &Directory{}
	}
	if c.Store == nil {
		c.Store = store.NewMemoryMessageStore()
	}
	if c.Verifier == nil {
		c.Verifier = &auth.StaticVerifier{Tokens: c.Directory.Tokens}
	}
	if c.MaxMsgBytes <= 0 {
		c.MaxMsgBytes = DefaultMaxMsgBytes
	}
	if c.RateLimit <= 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = DefaultRateBurst
	}
	if c.CleanInterval <= 0 {
		c.CleanInterval = DefaultCleanInterval
	}
}
