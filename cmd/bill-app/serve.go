package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/peterbourgon/ff/v4"

	"github.com/Ginzoh/bill-app-MK/internal/api"
	"github.com/Ginzoh/bill-app-MK/internal/scanning"
)

func serveCommand() *ff.Command {
	fs := ff.NewFlagSet("serve")
	var (
		port        = fs.IntLong("port", 5678, "HTTP server port")
		dbPath      = fs.StringLong("db", "bill-app.db", "Database file path")
		storagePath = fs.StringLong("storage", "./receipts", "Storage directory path")
		publicURL   = fs.StringLong("public-url", "", "Base URL receipts are served from (default http://localhost:<port>)")
		scannerType = fs.StringLong("scanner", "none", "Scanner type: 'none', 'gemini' or 'ollama'")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, bakllava, qwen2-vl)")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
	)

	return &ff.Command{
		Name:      "serve",
		Usage:     "bill-app serve [flags]",
		ShortHelp: "Run the bill API",
		Flags:     fs,
		Exec: func(ctx context.Context, args []string) error {
			slog.Info("Initializing database...")
			db, err := api.NewBoltDB(*dbPath)
			if err != nil {
				return fmt.Errorf("initializing database: %w", err)
			}
			defer db.Close()

			scanner, err := newScanner(*scannerType, *geminiKey, *geminiModel, *ollamaURL, *ollamaModel)
			if err != nil {
				return err
			}
			if scanner != nil {
				defer scanner.Close()
			}

			base := *publicURL
			if base == "" {
				base = fmt.Sprintf("http://localhost:%d", *port)
			}
			slog.Info("Initializing storage...", "path", *storagePath, "public_url", base)
			storage, err := api.NewLocalStorage(*storagePath, base)
			if err != nil {
				return fmt.Errorf("initializing storage: %w", err)
			}

			server := api.NewServer(api.NewService(db, storage, scanner), api.BasicAuth{
				Username: *authUser,
				Password: *authPass,
			})

			addr := fmt.Sprintf(":%d", *port)
			errc := make(chan error, 1)
			go func() {
				errc <- server.Start(addr)
			}()

			slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
			if *authUser != "" || *authPass != "" {
				slog.Info("Basic auth enabled", "user", *authUser)
			}

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
				slog.Info("Shutting down...")
				return nil
			}
		},
	}
}

// newScanner returns nil when scanning is disabled
func newScanner(kind, geminiKey, geminiModel, ollamaURL, ollamaModel string) (scanning.Scanner, error) {
	switch kind {
	case "none", "":
		return nil, nil
	case "gemini":
		apiKey := geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini scanner...", "model", geminiModel)
		g, err := scanning.NewGemini(apiKey, geminiModel)
		if err != nil {
			return nil, fmt.Errorf("initializing gemini: %w", err)
		}
		return g, nil
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", ollamaURL, "model", ollamaModel)
		o, err := scanning.NewOllama(ollamaURL, ollamaModel)
		if err != nil {
			return nil, fmt.Errorf("initializing ollama: %w", err)
		}
		return o, nil
	}
	return nil, fmt.Errorf("invalid scanner type %q: want none, gemini or ollama", kind)
}
