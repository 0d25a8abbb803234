package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/flitapp/flitsync/internal/models"
	"github.com/flitapp/flitsync/internal/repositories/metadata"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(a *app) *cli.App {
	return &cli.App{
		Name:    "flitsync",
		Usage:   "Offline-first capture classification and sync",
		Version: Version,
		Commands: []*cli.Command{
			captureCmd(a),
			reclassifyCmd(a),
			deleteCmd(a),
			drainCmd(a),
			runCmd(a),
			syncCmd(a),
			conflictsCmd(a),
			loginCmd(a),
			statusCmd(a),
		},
	}
}

func captureCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "capture",
		Usage:     "Save a capture and queue it for classification",
		ArgsUsage: "<text>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Value: "APP", Usage: "Capture source: APP|WIDGET|SHARE"},
		},
		Action: func(c *cli.Context) error {
			text := strings.Join(c.Args().Slice(), " ")
			source := models.CaptureSource(strings.ToUpper(c.String("source")))
			switch source {
			case models.CaptureSourceApp, models.CaptureSourceWidget, models.CaptureSourceShare:
			default:
				return fmt.Errorf("unknown capture source %q", c.String("source"))
			}

			saved, err := a.capture.Submit(c.Context, text, source)
			if err != nil {
				return err
			}
			fmt.Printf("captured %s\n", saved.ID)

			// Best effort: classify now if the backend is up. A failure
			// stays queued for the next drain.
			if err := a.drain(c.Context); err != nil {
				a.log.Warn(c.Context, "immediate drain failed", "error", err)
			}
			return nil
		},
	}
}

func reclassifyCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "reclassify",
		Usage:     "Queue a fresh classification for a capture",
		ArgsUsage: "<capture-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one capture id")
			}
			if err := a.capture.Reclassify(c.Context, c.Args().First()); err != nil {
				return err
			}
			if err := a.drain(c.Context); err != nil {
				a.log.Warn(c.Context, "immediate drain failed", "error", err)
			}
			return nil
		},
	}
}

func deleteCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Soft-delete a capture (and its calendar event, if synced)",
		ArgsUsage: "<capture-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one capture id")
			}
			if err := a.capture.Delete(c.Context, c.Args().First()); err != nil {
				return err
			}
			if err := a.drain(c.Context); err != nil {
				a.log.Warn(c.Context, "immediate drain failed", "error", err)
			}
			return nil
		},
	}
}

func drainCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "drain",
		Usage: "Process all due sync queue items once",
		Action: func(c *cli.Context) error {
			return a.drain(c.Context)
		},
	}
}

func runCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Drain the sync queue periodically until interrupted",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := a.proc.Recover(ctx); err != nil {
				return err
			}
			return a.proc.Run(ctx, a.cfg.DrainInterval)
		},
	}
}

func syncCmd(a *app) *cli.Command {
	userFlag := &cli.StringFlag{Name: "user", Required: true, Usage: "Id of the signed-in user"}
	return &cli.Command{
		Name:  "sync",
		Usage: "Bulk push/pull reconciliation with the server",
		Subcommands: []*cli.Command{
			{
				Name:  "push",
				Usage: "Upload local changes since the last sync",
				Flags: []cli.Flag{userFlag},
				Action: func(c *cli.Context) error {
					res, err := a.bulk.PushLocalData(c.Context, c.String("user"))
					if err != nil {
						return err
					}
					printSyncResult(res)
					return nil
				},
			},
			{
				Name:  "pull",
				Usage: "Download and merge server-side changes",
				Flags: []cli.Flag{
					userFlag,
					&cli.BoolFlag{Name: "wipe", Usage: "On account switch, wipe local data and pull fresh"},
				},
				Action: func(c *cli.Context) error {
					res, err := a.bulk.PullServerData(c.Context, c.String("user"))
					if err != nil {
						return err
					}
					if res.AccountSwitchRequired && c.Bool("wipe") {
						if err := a.bulk.WipeLocalData(c.Context); err != nil {
							return err
						}
						res, err = a.bulk.PullServerData(c.Context, c.String("user"))
						if err != nil {
							return err
						}
					}
					printSyncResult(res)
					return nil
				},
			},
		},
	}
}

func conflictsCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "conflicts",
		Usage: "Detect and resolve calendar conflicts",
		Subcommands: []*cli.Command{
			{
				Name:  "detect",
				Usage: "Compare synced schedules against their calendar events",
				Action: func(c *cli.Context) error {
					conflicts, err := a.calendar.DetectConflicts(c.Context)
					if err != nil {
						return err
					}
					if len(conflicts) == 0 {
						fmt.Println("no conflicts")
						return nil
					}
					for _, cf := range conflicts {
						fmt.Printf("%s: local %q vs calendar %q\n",
							cf.ScheduleID, cf.LocalTitle, cf.GoogleTitle)
					}
					return nil
				},
			},
			{
				Name:      "resolve",
				Usage:     "Resolve a detected conflict for one schedule",
				ArgsUsage: "<schedule-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "resolution",
						Required: true,
						Usage:    "OVERRIDE_GOOGLE (local wins) or OVERRIDE_LOCAL (calendar wins)",
					},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected exactly one schedule id")
					}
					scheduleID := c.Args().First()

					conflicts, err := a.calendar.DetectConflicts(c.Context)
					if err != nil {
						return err
					}
					for _, cf := range conflicts {
						if cf.ScheduleID != scheduleID {
							continue
						}
						resolution := models.ConflictResolution(strings.ToUpper(c.String("resolution")))
						if err := a.calendar.Resolve(c.Context, cf, resolution); err != nil {
							return err
						}
						fmt.Printf("resolved %s\n", scheduleID)
						return nil
					}
					return fmt.Errorf("no conflict detected for schedule %s", scheduleID)
				},
			},
		},
	}
}

func loginCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Store the backend session token",
		Action: func(c *cli.Context) error {
			fmt.Print("Session token: ")
			token, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("failed to read token: %w", err)
			}
			if len(token) == 0 {
				return fmt.Errorf("empty token")
			}
			return a.repos.Metadata.Set(c.Context, metadata.KeySessionToken, string(token))
		},
	}
}

func statusCmd(a *app) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show sync bookkeeping and queue depth",
		Action: func(c *cli.Context) error {
			last, err := a.bulk.GetLastSyncAt(c.Context)
			if err != nil {
				return err
			}
			if last == 0 {
				fmt.Println("last sync: never")
			} else {
				fmt.Printf("last sync: %s\n", time.UnixMilli(last).Format(time.RFC3339))
			}

			pending, err := a.repos.SyncQueue.GetPendingItems(c.Context, time.Now().UnixMilli())
			if err != nil {
				return err
			}
			fmt.Printf("pending queue items: %d\n", len(pending))
			return nil
		},
	}
}

func printSyncResult(res *models.SyncResult) {
	switch {
	case res.AccountSwitchRequired:
		fmt.Println("account switch detected: run `flitsync sync pull --wipe` to start over for this user")
	case res.Skipped:
		fmt.Println("nothing to sync")
	default:
		fmt.Printf("pushed %d, pulled %d\n", res.PushedCount, res.PulledCount)
	}
}
