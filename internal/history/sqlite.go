package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/mindfulmate/internal/logger"
)

// SQLiteStore persists sessions in a SQLite database so they survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps writes ordered and makes ":memory:" usable.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	logger.L.Info("sqlite history DB initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			user_id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			user_id TEXT NOT NULL REFERENCES sessions(user_id),
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id, seq)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) GetOrCreate(ctx context.Context, userID, systemPrompt string) (Session, error) {
	sess, err := s.Get(ctx, userID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return Session{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Session{}, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `INSERT INTO sessions (user_id, created_at) VALUES (?, ?)`, userID, now); err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	sys := NewMessage(RoleSystem, systemPrompt)
	if err := insertMessage(ctx, tx, userID, sys); err != nil {
		return Session{}, err
	}
	if err := tx.Commit(); err != nil {
		return Session{}, err
	}
	return Session{UserID: userID, History: []Message{sys}, CreatedAt: now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, userID string) (Session, error) {
	sess := Session{UserID: userID}
	err := s.db.QueryRowContext(ctx, `SELECT created_at FROM sessions WHERE user_id = ?`, userID).Scan(&sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("query session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, role, content, created_at FROM messages WHERE user_id = ? ORDER BY seq ASC`, userID)
	if err != nil {
		return Session{}, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return Session{}, err
		}
		sess.History = append(sess.History, m)
	}
	return sess, rows.Err()
}

func (s *SQLiteStore) Append(ctx context.Context, userID string, msgs ...Message) error {
	if err := s.requireSession(ctx, userID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, m := range msgs {
		if err := insertMessage(ctx, tx, userID, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Trim deletes every row except the oldest one and the KeepRecent newest ones.
func (s *SQLiteStore) Trim(ctx context.Context, userID string) error {
	if err := s.requireSession(ctx, userID); err != nil {
		return err
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE user_id = ?`, userID).Scan(&count); err != nil {
		return err
	}
	if count <= MaxMessages {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages
		WHERE user_id = ?1
		AND seq <> (SELECT MIN(seq) FROM messages WHERE user_id = ?1)
		AND seq NOT IN (SELECT seq FROM messages WHERE user_id = ?1 ORDER BY seq DESC LIMIT ?2)`,
		userID, KeepRecent)
	if err != nil {
		return fmt.Errorf("trim messages: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) requireSession(ctx context.Context, userID string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE user_id = ?`, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSessionNotFound
	}
	return err
}

func insertMessage(ctx context.Context, tx *sql.Tx, userID string, m Message) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, user_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, userID, m.Role, m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}
