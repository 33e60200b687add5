package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/segmentio/kafka-go"

	"github.com/mqy/minichat/conversation"
	pb "github.com/mqy/minichat/proto"
)

const (
	KafkaTopic = "minichat-messages"

	kafkaWriteTimeout = 3 * time.Second
	archiveQueueSize  = 256
)

// NewKafkaWriter creates the writer of the archive topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Dialer: &kafka.Dialer{
			Timeout:   10 * time.Second,
			DualStack: true,
		},
	})
}

// archiver mirrors routed messages to kafka off the routing path.
type archiver struct {
	writer IKafkaWriter
	limit  int // max body bytes
	msgC   chan *pb.Message
}

func newArchiver(w IKafkaWriter, limit int) *archiver {
	return &archiver{
		writer: w,
		limit:  limit,
		msgC:   make(chan *pb.Message, archiveQueueSize),
	}
}

// archive queues m, dropping it when the queue is full.
func (a *archiver) archive(m *pb.Message) {
	select {
	case a.msgC <- m:
	default:
		archiveErrors.Inc()
		glog.Errorf("relay: archive queue full, drop message %s -> %s", m.From, m.To)
	}
}

func (a *archiver) run(ctx context.Context) {
	glog.Info("relay: archive loop enter")
	defer func() {
		_ = a.writer.Close()
		glog.Info("relay: archive loop exit")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-a.msgC:
			if err := saveMsg(a.writer, m, a.limit); err != nil {
				archiveErrors.Inc()
				glog.Errorf("relay: archive: %v", err)
			}
		}
	}
}

// saveMsg writes m keyed by its conversation, so one conversation stays in one partition.
// limit bounds the body, the same bound the relay applies before routing.
func saveMsg(w IKafkaWriter, m *pb.Message, limit int) error {
	if len(m.Body) > limit {
		return fmt.Errorf("message body exceeds max limit: %d bytes", limit)
	}
	value, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("error marshal message: %v", err)
	}

	key := conversation.KeyOf(m.From, m.To)
	km := kafka.Message{
		Key:   []byte(key.A + "|" + key.B),
		Value: value,
	}

	ctx, cancel := context.WithTimeout(context.Background(), kafkaWriteTimeout)
	defer cancel()
	if err := w.WriteMessages(ctx, km); err != nil {
		return fmt.Errorf("error write to kafka: %s", err)
	}
	return nil
}
