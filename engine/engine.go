// Package engine composes validation, concurrency control and the browser
// pipeline into one Run call per task.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/joblens/harvester/config"
	"github.com/joblens/harvester/governor"
	"github.com/joblens/harvester/models"
	"github.com/joblens/harvester/scraper"
)

// Engine owns the shared per-process resources: one Scraper, the local
// page-capacity semaphore, and the optional cross-process slot limiter.
type Engine struct {
	cfg     *config.Config
	scraper *scraper.Scraper
	gov     *governor.Governor
	slots   *governor.SlotLimiter
}

// New wires an Engine from config. Nothing heavyweight starts here; the
// browser launches lazily on the first task.
func New(cfg *config.Config) *Engine {
	return &Engine{
		cfg:     cfg,
		scraper: scraper.NewScraper(cfg.Browser, cfg.Scraper),
		gov:     governor.New(cfg.Governor.MaxPages),
		slots: governor.NewSlotLimiter(
			cfg.Governor.SlotDir,
			cfg.Governor.GlobalSlots,
			cfg.Governor.SlotWait,
			cfg.Governor.SlotStrict,
		),
	}
}

// Stats reports current lease usage for health endpoints.
func (e *Engine) Stats() models.LeaseStats {
	stats := e.scraper.Stats()
	stats.MaxPages = e.gov.Capacity()
	return stats
}

// Close releases shared resources. Safe to call once at shutdown.
func (e *Engine) Close() {
	e.scraper.Close()
}

// Run executes one task end to end. Order matters:
//
//  1. Validate the URL before any resource is spent.
//  2. Take a local page slot, then (optionally) a global browser slot.
//  3. Lease a page; from here every exit path releases it exactly once.
//  4. Arm the watchdog so a hung navigation cannot outlive its budget.
//  5. Run the pipeline; report watchdog expiry as a timeout, not a crash.
func (e *Engine) Run(ctx context.Context, task models.ScrapeTask) (*models.ScrapeResult, error) {
	start := time.Now()

	// ── 1. Validate (fail-fast, no browser) ───────────────────────────
	validURL, err := models.ValidateTaskURL(task.URL)
	if err != nil {
		return nil, err
	}
	task.URL = validURL

	// ── 2. Local capacity ─────────────────────────────────────────────
	if err := e.gov.Acquire(ctx); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeNavTimeout,
			"canceled or timed out while waiting for a page slot", err)
	}
	defer e.gov.Release()

	// ── 2b. Optional global capacity ──────────────────────────────────
	if e.slots.Enabled() {
		releaseSlot, err := e.slots.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer releaseSlot()
	}

	// ── 3. Lease a page ───────────────────────────────────────────────
	lease, err := e.scraper.Lease(task.URL)
	if err != nil {
		return nil, err
	}
	defer lease.Close()

	// ── 4. Watchdog ───────────────────────────────────────────────────
	// The teardown force-closes page and browser; the context cancel
	// below unblocks any CDP call already in flight.
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	wd := governor.NewWatchdog(e.cfg.Governor.Watchdog, func() {
		slog.Warn("watchdog fired, destroying page lease",
			"url", task.URL,
			"budget", e.cfg.Governor.Watchdog,
		)
		cancel()
		lease.Destroy()
	})
	defer wd.Stop()

	// ── 5. Pipeline ───────────────────────────────────────────────────
	result, err := e.scraper.DoScrape(taskCtx, lease, task)

	if wd.Fired() {
		return nil, models.NewScrapeError(
			models.ErrCodeWatchdog,
			"task exceeded watchdog budget",
			err,
		)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("task complete",
		"url", task.URL,
		"mode", task.Mode,
		"status", result.StatusCode,
		"links", len(result.Links),
		"consentResolved", result.Consent.Resolved,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	return result, nil
}
