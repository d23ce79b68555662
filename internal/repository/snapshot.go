package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/p8labs/row3peer/internal/entity"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the slice of session state that survives a restart. The chat
// log and live connection status are volatile and deliberately excluded;
// they come back at their zero values on load.
type Snapshot struct {
	PlayerID  string
	Mode      string
	Role      string
	LocalMark string
	Status    string
	RoomCode  string
	Board     [9]string
	Turn      string
	Winner    string
}

type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *Snapshot) error
	Load(ctx context.Context, playerID string) (*Snapshot, error)
	Clear(ctx context.Context, playerID string) error
}

type dbSnapshot struct {
	conn *sql.DB
}

func NewSnapshotRepository(conn *sql.DB) SnapshotRepository {
	return &dbSnapshot{
		conn: conn,
	}
}

func (that *dbSnapshot) Save(ctx context.Context, snapshot *Snapshot) error {
	boardJSON, err := json.Marshal(snapshot.Board)
	if err != nil {
		return fmt.Errorf("failed to marshal board: %w", err)
	}

	query := `INSERT INTO snapshots (player_id, mode, role, local_mark, status, room_code, board, turn, winner)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (player_id) DO UPDATE SET
			mode = excluded.mode,
			role = excluded.role,
			local_mark = excluded.local_mark,
			status = excluded.status,
			room_code = excluded.room_code,
			board = excluded.board,
			turn = excluded.turn,
			winner = excluded.winner`

	_, err = that.conn.ExecContext(ctx, query,
		snapshot.PlayerID, snapshot.Mode, snapshot.Role, snapshot.LocalMark,
		snapshot.Status, snapshot.RoomCode, string(boardJSON), snapshot.Turn, snapshot.Winner)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

func (that *dbSnapshot) Load(ctx context.Context, playerID string) (*Snapshot, error) {
	query := `SELECT mode, role, local_mark, status, room_code, board, turn, winner
		FROM snapshots WHERE player_id = ?`

	snapshot := &Snapshot{PlayerID: playerID}

	var boardJSON string
	err := that.conn.QueryRowContext(ctx, query, playerID).Scan(
		&snapshot.Mode, &snapshot.Role, &snapshot.LocalMark, &snapshot.Status,
		&snapshot.RoomCode, &boardJSON, &snapshot.Turn, &snapshot.Winner)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if err = json.Unmarshal([]byte(boardJSON), &snapshot.Board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}

	return snapshot, nil
}

func (that *dbSnapshot) Clear(ctx context.Context, playerID string) error {
	_, err := that.conn.ExecContext(ctx, `DELETE FROM snapshots WHERE player_id = ?`, playerID)
	if err != nil {
		return fmt.Errorf("failed to clear snapshot: %w", err)
	}

	return nil
}

// SnapshotFromSession captures the persistable slice of a session and game.
func SnapshotFromSession(playerID string, session *entity.Session, game *entity.Game) *Snapshot {
	return &Snapshot{
		PlayerID:  playerID,
		Mode:      session.Mode,
		Role:      session.Role,
		LocalMark: session.LocalMark,
		Status:    session.Status,
		RoomCode:  session.RoomCode,
		Board:     game.Board,
		Turn:      game.Turn,
		Winner:    game.Winner,
	}
}
