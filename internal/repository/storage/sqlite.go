package storage

import (
	"context"
	"database/sql"
	"fmt"

	// import the SQLite driver to register it with the database/sql package.
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

type SQLiteStorage struct {
	Connection *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &SQLiteStorage{Connection: conn}, nil
}

func (that *SQLiteStorage) Init(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			player_id TEXT PRIMARY KEY,
			mode TEXT,
			role TEXT,
			local_mark TEXT,
			status TEXT,
			room_code TEXT,
			board TEXT,
			turn TEXT,
			winner TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS identity (id TEXT)`,
	}

	for _, query := range queries {
		if _, err := that.Connection.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("can't create table: %w", err)
		}
	}

	return nil
}

func (that *SQLiteStorage) Close() error {
	if err := that.Connection.Close(); err != nil {
		return fmt.Errorf("can't close database: %w", err)
	}

	return nil
}
