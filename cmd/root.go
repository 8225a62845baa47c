// Package cmd wires up the CLI flags and builds the server.
package cmd

import (
	"context"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"farmanet/config"
	"farmanet/internal/metrics"
	"farmanet/server"
	"farmanet/service"
	"farmanet/store"
	"farmanet/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X farmanet/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args, assembles the components and runs the server
// until the context is cancelled.
func Execute(ctx context.Context, args []string) error {
	cfg := &config.Config{}
	fs := flag.NewFlagSet("farmanet", flag.ContinueOnError)

	// ── listener ─────────────────────────────────────────────────
	fs.StringVarP(&cfg.Host, "host", "H", "", "Bind address (default: all interfaces)")
	fs.IntVarP(&cfg.Port, "port", "p", config.DefaultPort, "Listen port")
	fs.IntVar(&cfg.MaxLineBytes, "max-line", 0, "Per-request line limit in bytes (0 = default)")

	// ── storage ──────────────────────────────────────────────────
	fs.StringVar(&cfg.DSN, "db", "farmanet.db", "SQLite database path (\":memory:\" for ephemeral)")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("farmanet %s\n", version)
		return nil
	}

	// ── validate ─────────────────────────────────────────────────
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)

	st, err := store.Open(cfg.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Verbose("database ready at %s", cfg.DSN)

	mc := metrics.New()
	svc := service.New(st, logger)
	srv := server.New(cfg, svc, st, logger, mc)

	return srv.Start(ctx)
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Farmanet – Prescription & Dispatch Server v%s

TCP backend for the pharmacy desktop clients: newline-delimited JSON
requests, responses and push notifications over persistent connections.

Usage:
  farmanet [options]

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  farmanet                                    Listen on :%d, farmanet.db
  farmanet -p 6000 --db /var/lib/farmanet.db  Custom port and database
  farmanet -vv --db :memory:                  Ephemeral database, debug logs
`, config.DefaultPort)
}
