package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	// A missing .env file is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	rootFlags := ff.NewFlagSet("bill-app")
	root := &ff.Command{
		Name:      "bill-app",
		Usage:     "bill-app <subcommand> [flags]",
		ShortHelp: "Submit expense bills and their receipts",
		Flags:     rootFlags,
		Subcommands: []*ff.Command{
			serveCommand(),
			loginCommand(),
			logoutCommand(),
			newCommand(),
			listCommand(),
		},
		Exec: func(ctx context.Context, args []string) error {
			return ff.ErrHelp
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ParseAndRun(ctx, os.Args[1:], ff.WithEnvVarPrefix("BILL_APP"))
	switch {
	case err == nil:
	case errors.Is(err, ff.ErrHelp):
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root.GetSelected()))
	default:
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
