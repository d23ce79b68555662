package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p8labs/row3peer/internal/config"
	"github.com/p8labs/row3peer/internal/peerlink"
	"github.com/p8labs/row3peer/internal/repository"
	"github.com/p8labs/row3peer/internal/repository/storage"
	"github.com/p8labs/row3peer/internal/session"
	"github.com/p8labs/row3peer/internal/signaling"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to signaling directory: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sqliteStorage, err := storage.NewSQLiteStorage(conf.SnapshotPath)
	if err != nil {
		return fmt.Errorf("could not open snapshot storage: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close snapshot storage", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init snapshot storage: %w", err)
	}

	identityRepo := repository.NewIdentityRepository(sqliteStorage.Connection)
	playerID, err := identityRepo.GetOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("could not resolve player identity: %w", err)
	}

	roomRepo := repository.NewRoomRepository(redisStorage.Connection)
	snapshotRepo := repository.NewSnapshotRepository(sqliteStorage.Connection)

	signalClient := signaling.New(logger, roomRepo, conf.Signaling.PollInterval, conf.Signaling.PollBudget)

	linkFactory := func() (peerlink.Link, error) {
		return peerlink.NewWebRTCLink(logger)
	}

	manager := session.NewManager(logger, signalClient, snapshotRepo, linkFactory, playerID)

	snapshot, err := snapshotRepo.Load(ctx, playerID)
	switch {
	case err == nil:
		manager.Restore(snapshot)
		log.Info("restored previous session", "status", snapshot.Status)
	case errors.Is(err, repository.ErrSnapshotNotFound):
	default:
		log.Error("could not load snapshot, starting fresh", "error", err)
	}

	go manager.Run(ctx)
	go runSweeper(ctx, log, roomRepo, conf.Signaling.SweepInterval)

	return runConsole(ctx, cancel, log, manager)
}

// runSweeper reclaims expired signaling rooms on a fixed cadence,
// independent of any single session's lifecycle.
func runSweeper(ctx context.Context, log *slog.Logger, rooms repository.RoomRepository, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := rooms.SweepExpired(ctx)
			if err != nil {
				log.Error("room sweep failed", "error", err)
				continue
			}

			if deleted > 0 {
				log.Info("swept expired rooms", "deleted", deleted)
			}
		}
	}
}
