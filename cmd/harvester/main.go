// Command harvester acquires one page per invocation and writes the data
// product to stdout: one absolute URL per line in links mode, or a single
// JSON object {"job_title", "text"} in detail mode. Everything else, logs
// included, goes to stderr so a collaborator can parse stdout directly.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joblens/harvester/config"
	"github.com/joblens/harvester/engine"
	"github.com/joblens/harvester/models"
)

func main() {
	os.Exit(run())
}

func run() (exitCode int) {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging (stderr only) ──────────────
	initLogger(cfg.Log)

	// ── 3. Parse invocation ──────────────────────────────────────────
	mode := flag.String("mode", os.Getenv("HARVESTER_EXTRACT_MODE"), "extraction mode: links or detail")
	flag.Parse()

	if *mode == "" {
		*mode = string(models.ModeLinks)
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: harvester [-mode links|detail] <url>")
		return 2
	}
	task := models.ScrapeTask{URL: flag.Arg(0), Mode: models.Mode(*mode)}
	if !task.Mode.Valid() {
		fmt.Fprintf(os.Stderr, "unknown mode %q: want links or detail\n", *mode)
		return 2
	}

	// ── 4. Wire the engine; release resources on every exit path ────
	eng := engine.New(cfg)
	defer eng.Close()

	// A panic anywhere below must still tear down the browser and exit
	// non-zero with an empty stdout.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("unexpected fault", "panic", r)
			fmt.Fprintf(os.Stderr, "%s: unexpected fault: %v\n", models.ErrCodeInternal, r)
			exitCode = 1
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 5. Run the task ───────────────────────────────────────────────
	result, err := eng.Run(ctx, task)
	if err != nil {
		slog.Error("task failed", "url", task.URL, "mode", task.Mode, "error", err)
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	// ── 6. Emit the data product (stdout carries nothing else) ───────
	if err := emit(os.Stdout, result); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}

func emit(w *os.File, result *models.ScrapeResult) error {
	switch result.Mode {
	case models.ModeLinks:
		for _, link := range result.Links {
			if _, err := fmt.Fprintln(w, link); err != nil {
				return fmt.Errorf("write links: %w", err)
			}
		}
		return nil
	case models.ModeDetail:
		enc := json.NewEncoder(w)
		if err := enc.Encode(result.Detail); err != nil {
			return fmt.Errorf("write detail: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown result mode %q", result.Mode)
	}
}

// initLogger configures slog based on the LogConfig. The handler writes to
// stderr: stdout is reserved for the data product.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
