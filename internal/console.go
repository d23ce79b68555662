package application

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/p8labs/row3peer/internal/entity"
	"github.com/p8labs/row3peer/internal/session"
)

// runConsole is the minimal interactive driver over the session manager; the
// real UI lives elsewhere and talks to the same API.
func runConsole(ctx context.Context, cancel context.CancelFunc, log *slog.Logger, manager *session.Manager) error {
	fmt.Println("row3peer - type 'help' for commands")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				cancel()
				return nil
			}

			if quit := dispatch(log, manager, line); quit {
				cancel()
				return nil
			}
		}
	}
}

func dispatch(log *slog.Logger, manager *session.Manager, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	command, args := fields[0], fields[1:]

	switch command {
	case "help":
		fmt.Println("commands: offline | host <name> | join <code> | move <0-8> | say <text> | reset | board | leave | quit")
	case "offline":
		manager.SetMode(entity.ModeOffline)
	case "host":
		name := "Room"
		if len(args) > 0 {
			name = strings.Join(args, " ")
		}
		manager.SetMode(entity.ModeMultiplayer)
		manager.CreateRoom(name)
	case "join":
		if len(args) != 1 {
			fmt.Println("usage: join <code>")
			return false
		}
		manager.SetMode(entity.ModeMultiplayer)
		manager.JoinRoom(strings.ToUpper(args[0]))
	case "move":
		if len(args) != 1 {
			fmt.Println("usage: move <0-8>")
			return false
		}
		cell, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Println("usage: move <0-8>")
			return false
		}
		manager.MakeMove(cell)
	case "say":
		manager.SendChat(strings.Join(args, " "))
	case "reset":
		manager.ResetGame()
	case "board":
		printState(manager)
	case "leave":
		manager.LeaveRoom()
	case "quit":
		manager.Quit()
		return true
	default:
		log.Debug("unknown command", "command", command)
		fmt.Println("unknown command; type 'help'")
	}

	return false
}

func printState(manager *session.Manager) {
	sessionState, game := manager.Snapshot()

	for row := 0; row < 3; row++ {
		cells := make([]string, 3)
		for col := 0; col < 3; col++ {
			cell := game.Board[row*3+col]
			if cell == entity.EmptyCell {
				cell = strconv.Itoa(row*3 + col)
			}
			cells[col] = cell
		}
		fmt.Println(" " + strings.Join(cells, " | "))
	}

	fmt.Printf("status=%s connection=%s turn=%s you=%s room=%s\n",
		sessionState.Status, sessionState.ConnectionState, game.Turn,
		sessionState.LocalMark, sessionState.RoomCode)

	for _, chat := range sessionState.ChatLog {
		fmt.Printf("%s: %s\n", chat.Sender, chat.Text)
	}
}
