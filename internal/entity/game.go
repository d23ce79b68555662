package entity

import (
	"fmt"

	"github.com/p8labs/row3peer/internal/apperror"
)

const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"

	PlayerX   = "X"
	PlayerO   = "O"
	PlayerTie = "-"

	EmptyCell = ""
)

// WinCombos lists the 8 winning triples in row-major order. The first
// matching triple determines the reported winner.
var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

type Game struct {
	Board  [9]string `json:"board"`
	Turn   string    `json:"turn"`
	Winner string    `json:"winner"`
	Status string    `json:"status"`
}

func NewGame() *Game {
	return &Game{
		Board:  [9]string{},
		Turn:   PlayerX,
		Status: StatusPlaying,
	}
}

// MakeTurn places mark on the given cell, flips the active mark and updates
// the winner/status. The board is left untouched on any rejection.
func (that *Game) MakeTurn(mark string, cell int) error {
	if that.IsFinished() {
		return apperror.ErrGameFinished
	}

	if !that.IsPlaying() {
		return apperror.ErrGameIsNotStarted
	}

	if cell < 0 || cell >= len(that.Board) {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if that.Board[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	if that.Turn != mark {
		return apperror.ErrNotYourTurn
	}

	that.Board[cell] = mark

	// the flip is unconditional; a finishing move flips too, which is
	// harmless once the status is finished
	that.Turn = toggleMark(mark)

	switch winner := DetermineWinner(that.Board); winner {
	case PlayerX, PlayerO, PlayerTie:
		that.Winner = winner
		that.Status = StatusFinished
	default:
	}

	return nil
}

// LocalTurn applies a move originated on this side. It is accepted only when
// the local mark holds the turn, which prevents playing out of order.
func (that *Game) LocalTurn(localMark string, cell int) error {
	if that.Turn != localMark {
		return apperror.ErrNotYourTurn
	}

	return that.MakeTurn(localMark, cell)
}

// RemoteTurn applies a move received from the peer. It is accepted only when
// the turn is NOT held by the local mark, judged against the receiver's own
// state. The protocol carries no sequence numbers; this check is what keeps a
// replayed or out-of-order move from being applied twice.
func (that *Game) RemoteTurn(localMark string, cell int) error {
	if that.Turn == localMark {
		return apperror.ErrNotYourTurn
	}

	return that.MakeTurn(that.Turn, cell)
}

// Reset restores the empty board with X to move.
func (that *Game) Reset() {
	that.Board = [9]string{}
	that.Turn = PlayerX
	that.Winner = ""
	that.Status = StatusPlaying
}

// DetermineWinner returns the winning mark, PlayerTie on a full board with no
// winner, or "" while the game is still open.
func DetermineWinner(board [9]string) string {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a
		}
	}

	for _, cell := range board {
		if cell == EmptyCell {
			return ""
		}
	}

	return PlayerTie
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func toggleMark(currentMark string) string {
	if currentMark == PlayerX {
		return PlayerO
	}
	return PlayerX
}
