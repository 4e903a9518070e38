package game

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed session store. Sessions survive process
// restarts; the schema is created on open.
type SQLiteStore struct {
	db     *sql.DB
	maxLog int
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dbPath. maxLog
// bounds each session's log; zero or negative uses DefaultMaxLog.
func NewSQLiteStore(dbPath string, maxLog int) (*SQLiteStore, error) {
	if maxLog <= 0 {
		maxLog = DefaultMaxLog
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL for concurrent readers during a write.
	db, err := sql.Open("sqlite", dbPath+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{db: db, maxLog: maxLog}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id            TEXT PRIMARY KEY,
		secret_answer TEXT,
		last_activity TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		seq         INTEGER NOT NULL,
		role        TEXT NOT NULL,
		content     TEXT NOT NULL DEFAULT '',
		action      TEXT NOT NULL DEFAULT '',
		result_json TEXT,
		created_at  TEXT NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns the session, creating a default one if absent.
func (s *SQLiteStore) Load(sessionID string) (*Session, error) {
	if err := s.ensure(sessionID); err != nil {
		return nil, err
	}

	sess := &Session{ID: sessionID}

	var secret sql.NullString
	var lastActivity string
	err := s.db.QueryRow(`
		SELECT secret_answer, last_activity FROM sessions WHERE id = ?
	`, sessionID).Scan(&secret, &lastActivity)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if secret.Valid {
		v := secret.String
		sess.SecretAnswer = &v
	}
	sess.LastActivity, _ = time.Parse(time.RFC3339Nano, lastActivity)

	sess.Log, err = s.loadLog(sessionID)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Append adds messages to the end of the session's log and trims it.
func (s *SQLiteStore) Append(sessionID string, msgs ...Message) error {
	if err := s.ensure(sessionID); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var maxSeq sql.NullInt64
	if err := tx.QueryRow(`
		SELECT MAX(seq) FROM messages WHERE session_id = ?
	`, sessionID).Scan(&maxSeq); err != nil {
		return fmt.Errorf("max seq: %w", err)
	}

	seq := maxSeq.Int64
	for _, m := range msgs {
		seq++
		if err := insertMessage(tx, sessionID, seq, m); err != nil {
			return err
		}
	}

	if err := touch(tx, sessionID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	return s.enforceTrim(sessionID)
}

// Save atomically replaces the stored session.
func (s *SQLiteStore) Save(sess *Session) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var secret any
	if sess.SecretAnswer != nil {
		secret = *sess.SecretAnswer
	}

	last := sess.LastActivity
	if last.IsZero() {
		last = time.Now()
	}

	_, err = tx.Exec(`
		INSERT INTO sessions (id, secret_answer, last_activity)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			secret_answer = excluded.secret_answer,
			last_activity = excluded.last_activity
	`, sess.ID, secret, last.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("clear log: %w", err)
	}

	for i, m := range TrimLog(sess.Log, s.maxLog) {
		if err := insertMessage(tx, sess.ID, int64(i+1), m); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Reset clears the secret answer and log, keeping the session addressable.
func (s *SQLiteStore) Reset(sessionID string) error {
	if err := s.ensure(sessionID); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		UPDATE sessions SET secret_answer = NULL, last_activity = ? WHERE id = ?
	`, time.Now().UTC().Format(time.RFC3339Nano), sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

// Expire removes sessions idle longer than olderThan.
func (s *SQLiteStore) Expire(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(time.RFC3339Nano)

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	// Delete messages first: foreign keys are not enforced by default.
	if _, err := tx.Exec(`
		DELETE FROM messages WHERE session_id IN
			(SELECT id FROM sessions WHERE last_activity < ?)
	`, cutoff); err != nil {
		return 0, err
	}

	res, err := tx.Exec(`DELETE FROM sessions WHERE last_activity < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	removed, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(removed), nil
}

// ensure creates the session row if it does not exist.
func (s *SQLiteStore) ensure(sessionID string) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO sessions (id, secret_answer, last_activity)
		VALUES (?, NULL, ?)
	`, sessionID, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadLog(sessionID string) ([]Message, error) {
	rows, err := s.db.Query(`
		SELECT role, content, action, result_json, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load log: %w", err)
	}
	defer rows.Close()

	log := []Message{}
	for rows.Next() {
		var m Message
		var resultJSON sql.NullString
		var createdAt string
		if err := rows.Scan(&m.Role, &m.Content, &m.Action, &resultJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if resultJSON.Valid && resultJSON.String != "" {
			var r Result
			if err := json.Unmarshal([]byte(resultJSON.String), &r); err == nil {
				m.Result = &r
			}
		}
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, createdAt)
		log = append(log, m)
	}
	return log, rows.Err()
}

// enforceTrim rewrites the log if it has grown past maxLog.
func (s *SQLiteStore) enforceTrim(sessionID string) error {
	var count int
	if err := s.db.QueryRow(`
		SELECT COUNT(*) FROM messages WHERE session_id = ?
	`, sessionID).Scan(&count); err != nil {
		return err
	}
	if count <= s.maxLog {
		return nil
	}

	sess, err := s.Load(sessionID)
	if err != nil {
		return err
	}
	sess.Log = TrimLog(sess.Log, s.maxLog)
	return s.Save(sess)
}

func insertMessage(tx *sql.Tx, sessionID string, seq int64, m Message) error {
	var resultJSON any
	if m.Result != nil {
		b, err := json.Marshal(m.Result)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		resultJSON = string(b)
	}

	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	msgID, _ := uuid.NewV7()
	_, err := tx.Exec(`
		INSERT INTO messages (id, session_id, seq, role, content, action, result_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msgID.String(), sessionID, seq, m.Role, m.Content, m.Action, resultJSON,
		ts.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func touch(tx *sql.Tx, sessionID string) error {
	_, err := tx.Exec(`
		UPDATE sessions SET last_activity = ? WHERE id = ?
	`, time.Now().UTC().Format(time.RFC3339Nano), sessionID)
	return err
}
