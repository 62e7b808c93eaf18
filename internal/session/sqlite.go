// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/parley/internal/logging"
	"github.com/jeranaias/parley/internal/util"
)

// DefaultIdleTimeout expires a tab nobody has written to for a working day.
const DefaultIdleTimeout = 8 * time.Hour

const schema = `
CREATE TABLE IF NOT EXISTS session_values (
	tab        TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	value      TEXT    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (tab, key)
);
CREATE INDEX IF NOT EXISTS idx_session_values_updated ON session_values(updated_at);
`

// SQLiteStore keeps the values of one tab in a SQLite file shared by every
// tab. Writes touch the whole tab so its keys expire together.
type SQLiteStore struct {
	db   *sql.DB
	tab  string
	idle time.Duration
	log  *zap.Logger
	now  func() time.Time

	mu     sync.Mutex
	closed bool
}

// OpenSQLite opens (or creates) the database at path for tab and prunes
// tabs that have been idle longer than idle.
func OpenSQLite(path, tab string, idle time.Duration, log *zap.Logger) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("session: database path is required")
	}
	if tab == "" {
		tab = TabID()
	}
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	if err := util.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure session database: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session schema: %w", err)
	}

	s := &SQLiteStore{
		db:   db,
		tab:  tab,
		idle: idle,
		log:  logging.OrNop(log).Named("session"),
		now:  time.Now,
	}
	if n, err := s.prune(context.Background()); err != nil {
		s.log.Warn("failed to prune idle tabs", zap.Error(err))
	} else if n > 0 {
		s.log.Debug("pruned idle session values", zap.Int64("rows", n))
	}
	return s, nil
}

// Tab returns the tab id the store is scoped to.
func (s *SQLiteStore) Tab() string {
	return s.tab
}

// Get returns the value for key, or "" when it is missing or the tab has
// expired. An expired tab is removed.
func (s *SQLiteStore) Get(ctx context.Context, key Key) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}

	var touched sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(updated_at) FROM session_values WHERE tab = ?`, s.tab).Scan(&touched)
	if err != nil {
		return "", fmt.Errorf("failed to read session: %w", err)
	}
	if !touched.Valid {
		return "", nil
	}
	if s.expired(touched.Int64) {
		s.log.Debug("session tab expired", zap.String("tab", s.tab))
		return "", s.Clear(ctx)
	}

	var value string
	err = s.db.QueryRowContext(ctx,
		`SELECT value FROM session_values WHERE tab = ? AND key = ?`, s.tab, string(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key and refreshes the tab's idle clock. An empty
// value deletes the key.
func (s *SQLiteStore) Set(ctx context.Context, key Key, value string) error {
	if value == "" {
		return s.Delete(ctx, key)
	}
	if err := s.check(); err != nil {
		return err
	}

	now := s.now().UnixNano()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO session_values (tab, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (tab, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.tab, string(key), value, now); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE session_values SET updated_at = ? WHERE tab = ?`, now, s.tab); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return tx.Commit()
}

// Delete removes key.
func (s *SQLiteStore) Delete(ctx context.Context, key Key) error {
	if err := s.check(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE tab = ? AND key = ?`, s.tab, string(key)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every value of the tab.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := s.check(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_values WHERE tab = ?`, s.tab); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *SQLiteStore) expired(touched int64) bool {
	return s.now().Sub(time.Unix(0, touched)) > s.idle
}

// prune deletes every tab whose newest value is older than the idle
// timeout.
func (s *SQLiteStore) prune(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.idle).UnixNano()
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM session_values WHERE tab IN (
			SELECT tab FROM session_values GROUP BY tab HAVING MAX(updated_at) < ?
		)`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
