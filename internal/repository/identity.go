package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// IdentityRepository hands out the anonymous per-client identity token used
// to tag signaling records. There is no authentication beyond it.
type IdentityRepository interface {
	GetOrCreate(ctx context.Context) (string, error)
}

type dbIdentity struct {
	conn *sql.DB
}

func NewIdentityRepository(conn *sql.DB) IdentityRepository {
	return &dbIdentity{
		conn: conn,
	}
}

func (that *dbIdentity) GetOrCreate(ctx context.Context) (string, error) {
	var id string
	err := that.conn.QueryRowContext(ctx, `SELECT id FROM identity LIMIT 1`).Scan(&id)
	if err == nil {
		return id, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("failed to load identity: %w", err)
	}

	id = uuid.NewString()
	if _, err = that.conn.ExecContext(ctx, `INSERT INTO identity (id) VALUES (?)`, id); err != nil {
		return "", fmt.Errorf("failed to store identity: %w", err)
	}

	return id, nil
}
