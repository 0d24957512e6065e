// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bus implements the Message Store: a durable, receiver-addressed
// FIFO queue with at-least-once delivery and monotonic ids, backed by
// SQLite. It is the only shared state between agents.
package bus

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/meshloom/orchestrator/internal/errs"
	"github.com/meshloom/orchestrator/internal/pubsub"
	"github.com/meshloom/orchestrator/internal/types"
	"go.uber.org/zap"
)

// Store is the durable Message Store. All exported methods are safe
// for concurrent use; SQLite itself serializes writes, and Store adds
// a write mutex so insert/mark_processed never interleave in a way
// that could break monotonic ids.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
	events *pubsub.Broker[types.Message]
}

// Open creates (or reopens) the Message Store at path. Use ":memory:"
// for an ephemeral store (tests, single-process demos).
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := path
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.New(errs.Fatal, fmt.Errorf("open message store: %w", err))
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: serialize writers per docs' guidance

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		logger.Warn("failed to enable WAL mode", zap.Error(err))
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		logger.Warn("failed to set busy_timeout", zap.Error(err))
	}

	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		request_id TEXT,
		timestamp INTEGER NOT NULL,
		status TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_receiver_status ON messages(receiver_id, status, id);
	CREATE INDEX IF NOT EXISTS idx_request_id ON messages(request_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.New(errs.Fatal, fmt.Errorf("create message store schema: %w", err))
	}

	return &Store{db: db, logger: logger, events: pubsub.NewBroker[types.Message]()}, nil
}

// Clear removes all messages and resets the id counter. Called once at
// process start to guarantee a clean slate (§5 cancellation semantics).
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return errs.New(errs.Fatal, fmt.Errorf("clear message store: %w", err))
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name='messages'`); err != nil {
		// Absence of a prior row is fine; sqlite_sequence may not exist yet.
		s.logger.Debug("reset id sequence no-op", zap.Error(err))
	}
	return nil
}

// Insert atomically appends a pending message and returns its monotonic
// id. Ties across concurrent inserts are broken by SQLite's rowid
// allocation, which is strictly increasing per connection-serialized
// writer.
func (s *Store) Insert(ctx context.Context, sender, receiver string, typ types.MessageType, content, requestID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (sender_id, receiver_id, type, content, request_id, timestamp, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sender, receiver, string(typ), content, nullable(requestID), now.UnixNano(), string(types.StatusPending),
	)
	if err != nil {
		return 0, errs.New(errs.Fatal, fmt.Errorf("insert message: %w", err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errs.New(errs.Fatal, fmt.Errorf("read inserted message id: %w", err))
	}

	msg := types.Message{
		ID: id, SenderID: sender, ReceiverID: receiver, Type: typ,
		Content: content, RequestID: requestID, Timestamp: now, Status: types.StatusPending,
	}
	s.events.Publish(pubsub.NewCreatedEvent(msg))
	s.logger.Debug("message inserted",
		zap.Int64("id", id), zap.String("sender", sender), zap.String("receiver", receiver), zap.String("type", string(typ)))
	return id, nil
}

// GetPending returns all pending messages for receiver ordered by id
// ascending (FIFO).
func (s *Store) GetPending(ctx context.Context, receiver string) ([]types.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender_id, receiver_id, type, content, IFNULL(request_id, ''), timestamp, status
		 FROM messages WHERE receiver_id = ? AND status = ? ORDER BY id ASC`,
		receiver, string(types.StatusPending),
	)
	if err != nil {
		return nil, errs.New(errs.Fatal, fmt.Errorf("query pending messages: %w", err))
	}
	defer rows.Close()

	var out []types.Message
	for rows.Next() {
		var m types.Message
		var typ, status string
		var ts int64
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &typ, &m.Content, &m.RequestID, &ts, &status); err != nil {
			return nil, errs.New(errs.Fatal, fmt.Errorf("scan pending message: %w", err))
		}
		m.Type = types.MessageType(typ)
		m.Status = types.MessageStatus(status)
		m.Timestamp = time.Unix(0, ts)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.Fatal, fmt.Errorf("iterate pending messages: %w", err))
	}
	return out, nil
}

// MarkProcessed transitions id from pending to processed. Idempotent: a
// repeat call on an already-processed (or nonexistent) id is a no-op.
func (s *Store) MarkProcessed(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`UPDATE messages SET status = ? WHERE id = ? AND status = ?`,
		string(types.StatusProcessed), id, string(types.StatusPending),
	)
	if err != nil {
		return errs.New(errs.Fatal, fmt.Errorf("mark message %d processed: %w", id, err))
	}
	return nil
}

// Subscribe returns a feed of insert events, primarily for tests and
// tracing; agents poll GetPending rather than subscribing.
func (s *Store) Subscribe() (<-chan pubsub.Event[types.Message], func()) {
	return s.events.Subscribe()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.events.Shutdown()
	return s.db.Close()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
