package relay

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pb "github.com/mqy/minichat/proto"
	mock_relay "github.com/mqy/minichat/relay/mock"
)

func TestSaveMsg(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	kafkaMock := mock_relay.NewMockIKafkaWriter(mockCtrl)
	msg := &pb.Message{Id: "m1", From: "shop1@x.com", To: "root@x.com", Body: "Hello", SentAt: "2024-01-01T10:01:00.000Z"}

	kafkaMock.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, msgs ...kafka.Message) error {
		require.Len(t, msgs, 1)
		assert.Equal(t, "root@x.com|shop1@x.com", string(msgs[0].Key))
		var got pb.Message
		require.NoError(t, json.Unmarshal(msgs[0].Value, &got))
		assert.Equal(t, *msg, got)
		return nil
	})

	require.NoError(t, saveMsg(kafkaMock, msg, DefaultMaxMsgBytes))

	big := &pb.Message{From: "shop1@x.com", To: "root@x.com", Body: strings.Repeat("x", 100)}
	assert.Error(t, saveMsg(kafkaMock, big, 64))
}

func TestSaveMsgBodyAtLimit(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	kafkaMock := mock_relay.NewMockIKafkaWriter(mockCtrl)
	kafkaMock.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	full := &pb.Message{From: "shop1@x.com", To: "root@x.com", Body: strings.Repeat("x", DefaultMaxMsgBytes)}
	require.NoError(t, saveMsg(kafkaMock, full, DefaultMaxMsgBytes))

	// escaped by the json encoder, still within the body limit.
	escaped := &pb.Message{From: "shop1@x.com", To: "root@x.com", Body: strings.Repeat("<", 1000)}
	require.NoError(t, saveMsg(kafkaMock, escaped, DefaultMaxMsgBytes))

	over := &pb.Message{From: "shop1@x.com", To: "root@x.com", Body: strings.Repeat("x", DefaultMaxMsgBytes+1)}
	assert.Error(t, saveMsg(kafkaMock, over, DefaultMaxMsgBytes))
}

func TestArchiverRun(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	kafkaMock := mock_relay.NewMockIKafkaWriter(mockCtrl)
	written := make(chan struct{}, 1)
	kafkaMock.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, ...kafka.Message) error {
		written <- struct{}{}
		return nil
	})
	kafkaMock.EXPECT().Close().Return(nil).Times(1)

	a := newArchiver(kafkaMock, DefaultMaxMsgBytes)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.run(ctx)
		close(done)
	}()

	a.archive(&pb.Message{From: "shop1@x.com", To: "root@x.com", Body: "Hello"})
	select {
	case <-written:
	case <-time.After(3 * time.Second):
		t.Fatal("message not archived")
	}
	cancel()
	<-done
}

func TestDeleteLoop(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	storeMock := mock_relay.NewMockIMessageStore(mockCtrl)
	deleted := make(chan struct{}, 16)
	storeMock.EXPECT().DeleteOutdated(gomock.Any(), int32(30)).DoAndReturn(func(context.Context, int32) (int32, error) {
		select {
		case deleted <- struct{}{}:
		default:
		}
		return 2, nil
	}).MinTimes(1)

	h := NewHub(Conf{Store: storeMock, TTLDays: 30, CleanInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	select {
	case <-deleted:
	case <-time.After(3 * time.Second):
		t.Fatal("delete loop did not run")
	}
	cancel()
	<-done
}
