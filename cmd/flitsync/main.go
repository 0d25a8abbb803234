package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/flitapp/flitsync/internal/analytics"
	"github.com/flitapp/flitsync/internal/bulksync"
	"github.com/flitapp/flitsync/internal/calendar"
	"github.com/flitapp/flitsync/internal/capture"
	"github.com/flitapp/flitsync/internal/classify"
	"github.com/flitapp/flitsync/internal/common"
	"github.com/flitapp/flitsync/internal/config"
	"github.com/flitapp/flitsync/internal/flagx"
	"github.com/flitapp/flitsync/internal/logging"
	"github.com/flitapp/flitsync/internal/queue"
	"github.com/flitapp/flitsync/internal/remote"
	"github.com/flitapp/flitsync/internal/repositories/metadata"
	"github.com/flitapp/flitsync/internal/storage"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// app bundles the wired components the commands work with.
type app struct {
	cfg       *config.Config
	log       logging.Logger
	repos     *storage.Repositories
	proc      *queue.Processor
	capture   *capture.Service
	calendar  *calendar.Coordinator
	bulk      *bulksync.Coordinator
	analytics *analytics.Tracker
	close     func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := logging.NewTextLogger(os.Stderr, parseLevel(cfg.LogLevel))

	db, repos, err := storage.InitDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	token := func(ctx context.Context) string {
		t, err := repos.Metadata.Get(ctx, metadata.KeySessionToken)
		if err != nil {
			if !errors.Is(err, common.ErrNotFound) {
				log.Warn(ctx, "failed to load session token", "error", err)
			}
			return ""
		}
		return t
	}
	api := remote.NewClient(cfg.ServerURL, cfg.RequestTimeout, token)

	applier := classify.NewApplier(db, log)
	cal := calendar.NewCoordinator(db, repos.Schedules, repos.Captures, api, log)
	proc := queue.NewProcessor(repos.SyncQueue, repos.Captures, api, applier, cal, log)

	return &app{
		cfg:       cfg,
		log:       log,
		repos:     repos,
		proc:      proc,
		capture:   capture.NewService(db, repos.Captures, repos.Schedules, repos.SyncQueue, proc.TriggerProcessing, log),
		calendar:  cal,
		bulk:      bulksync.NewCoordinator(db, repos, api, log),
		analytics: analytics.NewTracker(repos.SyncQueue, proc.TriggerProcessing, log),
		close:     db.Close,
	}, nil
}

// drain recovers stuck items and processes the queue once. Used by the
// one-shot commands so a capture is classified immediately when the backend
// is reachable; anything that fails stays queued for the next drain.
func (a *app) drain(ctx context.Context) error {
	if err := a.proc.Recover(ctx); err != nil {
		return err
	}
	return a.proc.ProcessPending(ctx)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer a.close()

	// The global -s/-d/-i/-l/-c/-config flags were consumed by LoadConfig;
	// the commands must not see them.
	args := append([]string{os.Args[0]},
		flagx.StripArgs(os.Args[1:], []string{"-s", "-d", "-i", "-l", "-c", "-config"})...)

	if err := newCLIApp(a).RunContext(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
