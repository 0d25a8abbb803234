package config

import (
	"flag"
	"os"
	"time"

	"github.com/flitapp/flitsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-s string   base URL of the backend server
//	-d string   SQLite DSN of the local database
//	-i int      queue drain interval in seconds
//	-l string   log level (debug, info, warn, error)
//
// Args are filtered to the flags handled here so the commands' own flags
// pass through untouched.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-d", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "s", cfg.ServerURL, "base URL of the backend server")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "SQLite DSN of the local database")
	drainInterval := fs.Int("i", int(cfg.DrainInterval.Seconds()), "queue drain interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.DrainInterval = time.Duration(*drainInterval) * time.Second
}
