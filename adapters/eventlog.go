// File: adapters/eventlog.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SQLite-backed message log. Wrap decorates a host handler so every
// delivered message is recorded before the host sees it; a write failure is
// logged, never propagated, so persistence problems cannot cost a
// connection.

package adapters

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/momentics/reactor-ws/api"
)

const eventLogSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	received_at INTEGER NOT NULL,
	remote      TEXT    NOT NULL,
	kind        TEXT    NOT NULL,
	body        BLOB    NOT NULL
);`

// EventLog persists delivered messages to a SQLite database.
type EventLog struct {
	db  *sql.DB
	log *slog.Logger
}

// NewEventLog opens (and if needed initializes) the database at path.
func NewEventLog(path string, log *slog.Logger) (*EventLog, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	if _, err := db.Exec(eventLogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init event log schema: %w", err)
	}
	return &EventLog{db: db, log: log}, nil
}

// Record appends one delivered message.
func (l *EventLog) Record(c api.Conn, m api.Message) error {
	kind := "binary"
	if m.Kind == api.TextMessage {
		kind = "text"
	}
	_, err := l.db.Exec(
		"INSERT INTO messages (received_at, remote, kind, body) VALUES (?, ?, ?, ?)",
		time.Now().UnixMilli(), c.RemoteAddr(), kind, m.Data,
	)
	return err
}

// Wrap returns a handler that records every message before delegating.
func (l *EventLog) Wrap(next api.Handler) api.Handler {
	return api.HandlerFuncs{
		Connected: func(c api.Conn) {
			if next != nil {
				next.OnConnected(c)
			}
		},
		Message: func(c api.Conn, m api.Message) {
			if err := l.Record(c, m); err != nil {
				l.log.Warn("event log write failed", "err", err)
			}
			if next != nil {
				next.OnMessage(c, m)
			}
		},
		Disconnected: func(c api.Conn) {
			if next != nil {
				next.OnDisconnected(c)
			}
		},
	}
}

// Close releases the database handle.
func (l *EventLog) Close() error { return l.db.Close() }
