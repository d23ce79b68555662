package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p8labs/row3peer/internal/apperror"
)

func TestNewGame(t *testing.T) {
	// When: create a new game instance
	game := NewGame()

	// Then: the board is empty, X moves first and the game is live
	expectedGame := Game{
		Board:  [9]string{},
		Turn:   PlayerX,
		Winner: "",
		Status: StatusPlaying,
	}

	require.NotNil(t, game)
	require.Equal(t, expectedGame, *game)
}

func TestGame_MakeTurn(t *testing.T) {
	t.Run("Turn alternates starting with X", func(t *testing.T) {
		// Given: a new game
		game := NewGame()

		// When: players alternate valid moves
		moves := []struct {
			mark string
			cell int
		}{
			{PlayerX, 0}, {PlayerO, 4}, {PlayerX, 1}, {PlayerO, 5},
		}

		for _, move := range moves {
			// Then: each mark holds the turn exactly when expected
			require.Equal(t, move.mark, game.Turn)
			require.NoError(t, game.MakeTurn(move.mark, move.cell))
		}
	})

	t.Run("Error on cell already occupied", func(t *testing.T) {
		// Given: a game with one move played
		game := NewGame()
		require.NoError(t, game.MakeTurn(PlayerX, 0))

		before := *game

		// When: O tries the same cell
		err := game.MakeTurn(PlayerO, 0)

		// Then: ErrCellOccupied and the board is unchanged
		require.ErrorIs(t, err, apperror.ErrCellOccupied)
		require.Equal(t, before, *game)
	})

	t.Run("Error on playing out of turn", func(t *testing.T) {
		// Given: a new game where X moves first
		game := NewGame()

		// When: O tries to move first
		err := game.MakeTurn(PlayerO, 1)

		// Then: ErrNotYourTurn and no state change
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		require.Equal(t, *NewGame(), *game)
	})

	t.Run("Invalid cell", func(t *testing.T) {
		game := NewGame()

		assert.ErrorIs(t, game.MakeTurn(PlayerX, 9), apperror.ErrInvalidCell)
		assert.ErrorIs(t, game.MakeTurn(PlayerX, -1), apperror.ErrInvalidCell)
	})

	t.Run("Move after game finished", func(t *testing.T) {
		// Given: a game X has already won
		game := NewGame()
		game.Board = [9]string{PlayerX, PlayerX, PlayerX, EmptyCell, PlayerO, EmptyCell, EmptyCell, PlayerO, EmptyCell}
		game.Status = StatusFinished
		game.Winner = PlayerX

		before := *game

		// When: O tries to keep playing
		err := game.MakeTurn(PlayerO, 3)

		// Then: ErrGameFinished and the board stays put
		require.ErrorIs(t, err, apperror.ErrGameFinished)
		require.Equal(t, before, *game)
	})

	t.Run("Move before the game starts", func(t *testing.T) {
		// Given: a game still waiting for an opponent
		game := NewGame()
		game.Status = StatusWaiting

		before := *game

		// When: X tries to move anyway
		err := game.MakeTurn(PlayerX, 0)

		// Then: ErrGameIsNotStarted and no state change
		require.ErrorIs(t, err, apperror.ErrGameIsNotStarted)
		require.Equal(t, before, *game)
	})

	t.Run("Top row win after third X move", func(t *testing.T) {
		// Given: a game one move away from the top-row triple
		game := NewGame()
		require.NoError(t, game.MakeTurn(PlayerX, 0))
		require.NoError(t, game.MakeTurn(PlayerO, 3))
		require.NoError(t, game.MakeTurn(PlayerX, 1))
		require.NoError(t, game.MakeTurn(PlayerO, 4))

		// When: X completes the top row
		require.NoError(t, game.MakeTurn(PlayerX, 2))

		// Then: X wins and the game is finished
		assert.Equal(t, PlayerX, game.Winner)
		assert.Equal(t, StatusFinished, game.Status)
	})
}

func TestGame_Arbitration(t *testing.T) {
	t.Run("Local move rejected when it is not our turn", func(t *testing.T) {
		// Given: we hold O and X holds the turn
		game := NewGame()
		before := *game

		// When: a locally originated move is attempted
		err := game.LocalTurn(PlayerO, 4)

		// Then: rejected with no state change
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		require.Equal(t, before, *game)
	})

	t.Run("Same move accepted when it arrives from the peer", func(t *testing.T) {
		// Given: we hold O and X holds the turn
		game := NewGame()

		// When: the move arrives as a remote message
		err := game.RemoteTurn(PlayerO, 4)

		// Then: it is applied with the peer's mark and the turn flips to us
		require.NoError(t, err)
		assert.Equal(t, PlayerX, game.Board[4])
		assert.Equal(t, PlayerO, game.Turn)
	})

	t.Run("Replayed remote move is not applied twice", func(t *testing.T) {
		// Given: the peer's move was already applied and it is our turn
		game := NewGame()
		require.NoError(t, game.RemoteTurn(PlayerO, 4))

		before := *game

		// When: the same remote move is delivered again
		err := game.RemoteTurn(PlayerO, 4)

		// Then: the duplicate is rejected by the mark-equality check alone
		require.ErrorIs(t, err, apperror.ErrNotYourTurn)
		require.Equal(t, before, *game)
	})
}

func TestGame_Reset(t *testing.T) {
	// Given: a finished game with a winner
	game := NewGame()
	game.Board = [9]string{PlayerX, PlayerX, PlayerX, PlayerO, PlayerO, EmptyCell, EmptyCell, EmptyCell, EmptyCell}
	game.Status = StatusFinished
	game.Winner = PlayerX
	game.Turn = PlayerO

	// When: the game is reset
	game.Reset()

	// Then: empty board, X active, playing again, no winner
	require.Equal(t, *NewGame(), *game)
}

func TestDetermineWinner(t *testing.T) {
	t.Run("Winner X via left column", func(t *testing.T) {
		board := [9]string{PlayerX, PlayerO, EmptyCell, PlayerX, PlayerO, EmptyCell, PlayerX, EmptyCell, EmptyCell}

		require.Equal(t, PlayerX, DetermineWinner(board))
	})

	t.Run("Ongoing game has no winner", func(t *testing.T) {
		board := [9]string{PlayerX, PlayerO, PlayerX, EmptyCell, PlayerO, EmptyCell, PlayerX, EmptyCell, EmptyCell}

		require.Equal(t, "", DetermineWinner(board))
	})

	t.Run("Full board with no triple is a tie", func(t *testing.T) {
		board := [9]string{PlayerO, PlayerX, PlayerO, PlayerO, PlayerX, PlayerX, PlayerX, PlayerO, PlayerX}

		assert.Equal(t, PlayerTie, DetermineWinner(board))
	})

	t.Run("First matching triple in row-major order decides", func(t *testing.T) {
		// Given: a board where both the top row and the left column match
		board := [9]string{PlayerX, PlayerX, PlayerX, PlayerX, PlayerO, PlayerO, PlayerX, PlayerO, PlayerO}

		// Then: the top row is found first
		assert.Equal(t, PlayerX, DetermineWinner(board))
	})
}
