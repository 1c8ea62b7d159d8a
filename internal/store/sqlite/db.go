package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. Statements are idempotent so restarts are
// safe.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Users: identity (email) is the primary key; key blobs are
		// opaque client-supplied payloads.
		`CREATE TABLE IF NOT EXISTS users (
			identity VARCHAR(255) PRIMARY KEY,
			display_name VARCHAR(100) NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '',
			public_key TEXT NOT NULL DEFAULT '',
			encrypted_private_key TEXT NOT NULL DEFAULT '',
			hashed_password VARCHAR(255) NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		// Friendships, stored once per pair in canonical order.
		`CREATE TABLE IF NOT EXISTS friendships (
			user_a VARCHAR(255) NOT NULL,
			user_b VARCHAR(255) NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_a, user_b),
			CHECK (user_a < user_b)
		);`,
		// Pending friend requests, directional.
		`CREATE TABLE IF NOT EXISTS friend_requests (
			from_identity VARCHAR(255) NOT NULL,
			to_identity VARCHAR(255) NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (from_identity, to_identity)
		);`,
		// Messages: seq is the canonical conversation order.
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			conversation_key VARCHAR(511) NOT NULL,
			from_identity VARCHAR(255) NOT NULL,
			to_identity VARCHAR(255) NOT NULL,
			body TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT 0,
			is_deleted BOOLEAN NOT NULL DEFAULT 0,
			UNIQUE (conversation_key, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_friendships_user_b ON friendships(user_b);`,
		`CREATE INDEX IF NOT EXISTS idx_requests_to ON friend_requests(to_identity);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_seq ON messages(conversation_key, seq DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(conversation_key, to_identity, is_read);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
