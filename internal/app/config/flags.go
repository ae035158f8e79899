package config

import (
	"flag"
	"os"
	"time"

	"github.com/okatenko/beamlink/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   host the peer channel listener binds to
//	-d string   path of the local database file
//	-t int      relay record time-to-live in days
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BindHost, "a", cfg.BindHost, "host to bind the peer channel listener to")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "path of the local database file")
	relayTTLDays := fs.Int("t", int(cfg.RelayTTL.Hours()/24), "relay record time-to-live (in days)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RelayTTL = time.Duration(*relayTTLDays) * 24 * time.Hour
}
