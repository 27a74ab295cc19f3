package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteBackend implements [Backend] over the kv_items table.
//
// The table is created by shared.RunMigrations; open the database with shared.OpenStore.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend creates a backend using db.
func NewSQLiteBackend(db *sql.DB) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

func (b *SQLiteBackend) GetItem(key string) (string, bool, error) {
	var value string
	err := b.db.QueryRow(`SELECT value FROM kv_items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read item: %w", err)
	}
	return value, true, nil
}

func (b *SQLiteBackend) SetItem(key, value string) error {
	query := `
		INSERT INTO kv_items (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`

	if _, err := b.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to write item: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) RemoveItem(key string) error {
	if _, err := b.db.Exec(`DELETE FROM kv_items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) Keys() ([]string, error) {
	rows, err := b.db.Query(`SELECT key FROM kv_items ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
