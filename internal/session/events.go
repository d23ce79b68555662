package session

import (
	"github.com/p8labs/row3peer/internal/entity"
)

// Every mutation of session state is an event consumed by the manager's
// single loop goroutine: user commands, signaling outcomes and link
// transitions all funnel through the same channel, which serializes state
// without locks.
type event interface{ isEvent() }

type cmdCreateRoom struct {
	name string
}

type cmdJoinRoom struct {
	code string
}

type cmdSetMode struct {
	mode string
}

type cmdMove struct {
	cell int
}

type cmdChat struct {
	text string
}

type cmdReset struct{}

type cmdLeave struct{}

type cmdQuit struct{}

type querySnapshot struct {
	reply chan snapshotReply
}

type snapshotReply struct {
	session entity.Session
	game    entity.Game
}

// evAnswerResult reports the outcome of the host's background answer poll.
type evAnswerResult struct {
	code string
	err  error
}

func (cmdCreateRoom) isEvent() {}
func (cmdJoinRoom) isEvent() {}
func (cmdSetMode) isEvent() {}
func (cmdMove) isEvent() {}
func (cmdChat) isEvent() {}
func (cmdReset) isEvent() {}
func (cmdLeave) isEvent() {}
func (cmdQuit) isEvent() {}
func (querySnapshot) isEvent() {}
func (evAnswerResult) isEvent() {}
