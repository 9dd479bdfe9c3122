package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/claude/splitlog/internal/client"
	"github.com/claude/splitlog/internal/config"
	"github.com/claude/splitlog/internal/ingest"
	"github.com/claude/splitlog/internal/ingest/alpha"
	"github.com/claude/splitlog/internal/storage"
	"github.com/claude/splitlog/internal/workout"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	csvPath := flag.String("file", "", "Alpha Progression CSV export (required)")
	serverURL := flag.String("server", "", "upload to this splitlog server instead of writing the database directly")
	apiKey := flag.String("api-key", os.Getenv("SPLITLOG_AUTH_API_KEY"), "API key for -server")
	configPath := flag.String("config", "config.yaml", "path to config file (direct mode)")
	migrationsPath := flag.String("migrations", "migrations", "path to PostgreSQL migrations (direct mode)")
	userID := flag.Int("user", 1, "user to import for")
	dryRun := flag.Bool("dry-run", false, "parse the export and report counts without importing")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("splitlog-import", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *csvPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: splitlog-import -file export.csv [-server URL -api-key KEY | -config config.yaml] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Error("failed to open export", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	ctx := context.Background()
	var result *ingest.Result

	switch {
	case *dryRun:
		result, err = parseOnly(f)
	case *serverURL != "":
		result, err = upload(ctx, strings.TrimRight(*serverURL, "/"), *apiKey, *userID, f)
	default:
		result, err = importDirect(ctx, *configPath, *migrationsPath, *userID, f, log)
	}
	if err != nil {
		log.Error("import failed", "error", err)
		os.Exit(1)
	}

	printResult(result, *dryRun)
	log.Info("import complete")
}

func parseOnly(r io.Reader) (*ingest.Result, error) {
	sessions, err := alpha.Parse(r)
	if err != nil {
		return nil, err
	}
	res := &ingest.Result{SessionsReceived: len(sessions)}
	for _, s := range sessions {
		for _, ex := range s.Exercises {
			res.SetsImported += len(ex.Sets)
		}
	}
	return res, nil
}

func upload(ctx context.Context, serverURL, apiKey string, userID int, r io.Reader) (*ingest.Result, error) {
	res, err := client.New(serverURL, apiKey).ImportAlpha(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	return &ingest.Result{
		SessionsReceived: res.SessionsReceived,
		SessionsImported: res.SessionsImported,
		SessionsSkipped:  res.SessionsSkipped,
		SetsImported:     res.SetsImported,
		Errors:           res.Errors,
	}, nil
}

func importDirect(ctx context.Context, configPath, migrationsPath string, userID int, r io.Reader, log *slog.Logger) (*ingest.Result, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(ctx, cfg.Database, migrationsPath, log)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ctl := workout.New(db, log)
	return alpha.NewProvider(db, ctl, log).Ingest(ctx, r, userID)
}

func printResult(res *ingest.Result, dryRun bool) {
	fmt.Println()
	fmt.Println("=== Import Summary ===")
	fmt.Printf("  Sessions in file: %d\n", res.SessionsReceived)
	if dryRun {
		fmt.Printf("  Sets in file:     %d\n", res.SetsImported)
		fmt.Println()
		return
	}
	fmt.Printf("  Imported:         %d\n", res.SessionsImported)
	fmt.Printf("  Skipped:          %d (already present)\n", res.SessionsSkipped)
	fmt.Printf("  Sets imported:    %d\n", res.SetsImported)

	if len(res.Errors) > 0 {
		fmt.Printf("\n  Errors:\n")
		for _, e := range res.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}
	fmt.Println()
}
