package apperror

import "errors"

var (
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrInvalidCell      = errors.New("invalid cell index")

	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomExpired      = errors.New("room has expired")
	ErrAnswerAlreadySet = errors.New("room already has an answer")

	ErrLinkClosed   = errors.New("data channel is not open")
	ErrNotInitiator = errors.New("only the initiator can complete the handshake")
)
