package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"slidecast/internal/config"
)

// Store persists at most one Session.
type Store interface {
	Save(ctx context.Context, s Session) error
	// Load returns the saved session. The boolean is false when nothing
	// usable is stored; corrupt data is reported that way, not as an error.
	Load(ctx context.Context) (Session, bool, error)
	Clear(ctx context.Context) error
}

const sessionKey = "session"

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore keeps the session document in a SQLite key/value table.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the session database for cfg.
func Open(cfg *config.Config) (*SQLiteStore, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.SessionDBPath())
}

// OpenPath initializes or connects to the session database at dbPath.
func OpenPath(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &SQLiteStore{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save writes sess. A zero timestamp is stamped with the current time.
func (s *SQLiteStore) Save(ctx context.Context, sess Session) error {
	ctx = ensureContext(ctx)
	now := s.now()
	if sess.Timestamp == 0 {
		sess.Timestamp = now.UnixMilli()
	}
	data, err := Encode(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.execWithRetry(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sessionKey, data, now.UTC().Format(time.RFC3339Nano),
	)
}

// Load reads the saved session.
func (s *SQLiteStore) Load(ctx context.Context) (Session, bool, error) {
	data, found, err := s.Raw(ctx)
	if err != nil || !found {
		return Session{}, false, err
	}
	sess, ok := Decode(data)
	return sess, ok, nil
}

// Clear removes the saved session.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.execWithRetry(ensureContext(ctx), "DELETE FROM kv WHERE key = ?", sessionKey)
}

// Raw returns the stored document bytes for diagnostics.
func (s *SQLiteStore) Raw(ctx context.Context) ([]byte, bool, error) {
	ctx = ensureContext(ctx)
	var data []byte
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", sessionKey).Scan(&data)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read session: %w", err)
	}
	return data, true, nil
}

func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
