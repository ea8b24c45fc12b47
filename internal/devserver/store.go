package devserver

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/hkdf"

	"github.com/hermes-notify/subsync/pkg/session"
)

// ErrUnknownUser is returned for a token with no user record.
var ErrUnknownUser = errors.New("unknown user")

// tokenKeyInfo is the HKDF info string for stored token keys.
var tokenKeyInfo = []byte("subsync devserver token key")

// tokenKey derives the row key for a bearer token. Raw tokens are never
// written to the database file.
func tokenKey(token string) string {
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(token), nil, tokenKeyInfo), key); err != nil {
		panic(fmt.Sprintf("devserver: token key derivation: %v", err))
	}
	return hex.EncodeToString(key)
}

// Store provides SQLite persistence for users and their topic lists.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens the database at dbPath. Use ":memory:" for an in-memory
// database.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS users (
		token_key TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		given_name TEXT NOT NULL DEFAULT '',
		picture TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		token_key TEXT NOT NULL REFERENCES users(token_key) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		topic TEXT NOT NULL,
		PRIMARY KEY (token_key, topic)
	);

	CREATE INDEX IF NOT EXISTS idx_subscriptions_position ON subscriptions(token_key, position);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutUser creates or replaces the user record for token.
func (s *Store) PutUser(token string, info session.UserInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO users (token_key, name, email, given_name, picture)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token_key) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			given_name = excluded.given_name,
			picture = excluded.picture
	`, tokenKey(token), info.Name, info.Email, info.GivenName, info.Picture)
	return err
}

// User returns the user record for token.
func (s *Store) User(token string) (session.UserInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var info session.UserInfo
	err := s.db.QueryRow(`
		SELECT name, email, given_name, picture FROM users WHERE token_key = ?
	`, tokenKey(token)).Scan(&info.Name, &info.Email, &info.GivenName, &info.Picture)
	if errors.Is(err, sql.ErrNoRows) {
		return session.UserInfo{}, ErrUnknownUser
	}
	if err != nil {
		return session.UserInfo{}, err
	}
	return info, nil
}

// Topics returns the user's topics in stored order.
func (s *Store) Topics(token string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT topic FROM subscriptions WHERE token_key = ? ORDER BY position
	`, tokenKey(token))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	topics := []string{}
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, err
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

// ReplaceTopics atomically replaces the user's topic list. Repeated and
// blank topics are dropped, keeping the first occurrence.
func (s *Store) ReplaceTopics(token string, topics []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	key := tokenKey(token)

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM users WHERE token_key = ?`, key).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrUnknownUser
	}

	if _, err := tx.Exec(`DELETE FROM subscriptions WHERE token_key = ?`, key); err != nil {
		return err
	}

	seen := make(map[string]bool, len(topics))
	pos := 0
	for _, topic := range topics {
		if strings.TrimSpace(topic) == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		if _, err := tx.Exec(`
			INSERT INTO subscriptions (token_key, position, topic) VALUES (?, ?, ?)
		`, key, pos, topic); err != nil {
			return err
		}
		pos++
	}

	return tx.Commit()
}

// CountUsers returns the number of user records.
func (s *Store) CountUsers() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
