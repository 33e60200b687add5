package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/golang/glog"

	pb "github.com/mqy/minichat/proto"
)

const createMessagesSQL = "CREATE TABLE IF NOT EXISTS messages (" +
	"seq BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY," +
	"id VARCHAR(64) NULL," +
	"sender VARCHAR(255) NOT NULL," +
	"recipient VARCHAR(255) NOT NULL," +
	"body TEXT NOT NULL," +
	"sent_at VARCHAR(64) NOT NULL," +
	"create_time DATETIME NOT NULL," +
	"UNIQUE KEY uk_id (id)," +
	"KEY idx_pair (sender, recipient, seq)," +
	"KEY idx_create_time (create_time)" +
	") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"

const (
	insertMessageSQL = "INSERT INTO messages (id,sender,recipient,body,sent_at,create_time) VALUES (?,?,?,?,?,?)"
	getMessagesSQL   = "SELECT id,sender,recipient,body,sent_at FROM messages " +
		"WHERE (sender = ? AND recipient = ?) OR (sender = ? AND recipient = ?) " +
		"ORDER BY seq ASC"
	cleanMessagesSQL = "DELETE FROM messages WHERE create_time <= ?"
)

// mysqlMessageStore implements `IMessageStore`.
type mysqlMessageStore struct {
	*sql.DB
}

func NewMysqlMessageStore(db *sql.DB) *mysqlMessageStore {
	return &mysqlMessageStore{db}
}

// EnsureSchema creates the messages table when missing.
func (s *mysqlMessageStore) EnsureSchema(ctx context.Context) error {
	_, err := s.ExecContext(ctx, createMessagesSQL)
	return err
}

func (s *mysqlMessageStore) withTx(ctx context.Context, exec func(ctx context.Context, tx *sql.Tx) error) error {
	tx, err := s.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}

	if err := exec(ctx, tx); err != nil {
		if err2 := tx.Rollback(); err2 != nil {
			glog.Errorf("failed to rollback: %v", err2)
		}
		return err
	}

	return tx.Commit()
}

func (s *mysqlMessageStore) IsDupKeyError(err error) bool {
	var val *mysql.MySQLError
	if errors.As(err, &val) {
		return val.Number == 1062
	}
	return false
}

func (s *mysqlMessageStore) Save(ctx context.Context, msg *pb.Message) error {
	_, err := s.ExecContext(ctx, insertMessageSQL, nullString(msg.Id), msg.From, msg.To, msg.Body, msg.SentAt, time.Now())
	if err != nil {
		// The sender retried a message with the same id.
		if msg.Id != "" && s.IsDupKeyError(err) {
			return nil
		}
		glog.Errorf("insert message exec err: %v", err)
		return err
	}
	return nil
}

func (s *mysqlMessageStore) Between(ctx context.Context, a, b string) ([]*pb.Message, error) {
	var out []*pb.Message
	if err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, getMessagesSQL, a, b, b, a)
		if err != nil {
			glog.Errorf("get messages query err: %v", err)
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var m pb.Message
			var id sql.NullString
			if err := rows.Scan(&id, &m.From, &m.To, &m.Body, &m.SentAt); err != nil {
				glog.Errorf("get messages scan err: %v", err)
				return err
			}
			m.Id = id.String
			out = append(out, &m)
		}
		return rows.Err()
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *mysqlMessageStore) DeleteOutdated(ctx context.Context, ttlDays int32) (int32, error) {
	lteCreateTime := GetDayBefore(ttlDays)
	var numDeleted int32

	if err := s.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, cleanMessagesSQL, lteCreateTime)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		numDeleted = int32(n)
		return nil
	}); err != nil {
		return 0, err
	}
	return numDeleted, nil
}

// messages without id are stored with a NULL id, which the unique key ignores.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type savedMessage struct {
	msg        *pb.Message
	createTime time.Time
}

// MemoryMessageStore is an `IMessageStore` kept in memory.
type MemoryMessageStore struct {
	sync.RWMutex
	messages []savedMessage
	ids      map[string]struct{}
	now      func() time.Time
}

func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{
		ids: make(map[string]struct{}),
		now: time.Now,
	}
}

func (s *MemoryMessageStore) Save(ctx context.Context, msg *pb.Message) error {
	s.Lock()
	defer s.Unlock()
	if msg.Id != "" {
		if _, ok := s.ids[msg.Id]; ok {
			return nil
		}
		s.ids[msg.Id] = struct{}{}
	}
	cp := *msg
	s.messages = append(s.messages, savedMessage{msg: &cp, createTime: s.now()})
	return nil
}

func (s *MemoryMessageStore) Between(ctx context.Context, a, b string) ([]*pb.Message, error) {
	s.RLock()
	defer s.RUnlock()
	var out []*pb.Message
	for _, sm := range s.messages {
		if sm.msg.Between(a, b) {
			cp := *sm.msg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryMessageStore) DeleteOutdated(ctx context.Context, ttlDays int32) (int32, error) {
	cutoff := dayBefore(s.now(), ttlDays)
	s.Lock()
	defer s.Unlock()
	kept := s.messages[:0]
	var n int32
	for _, sm := range s.messages {
		if !sm.createTime.After(cutoff) {
			delete(s.ids, sm.msg.Id)
			n++
			continue
		}
		kept = append(kept, sm)
	}
	s.messages = kept
	return n, nil
}
