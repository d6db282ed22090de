package scraper

import (
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/joblens/harvester/config"
)

// contentLandmarkSelector matches the elements that signal the primary
// content region has rendered.
const contentLandmarkSelector = "main, article, [role=main]"

// waitCondition is one named step of the stability plan. Required steps
// abort the pipeline on failure; best-effort steps only reduce extraction
// completeness.
type waitCondition struct {
	name     string
	required bool
	run      func() error
}

// stabilityPlan is the ordered wait sequence executed between consent
// resolution and extraction: document completeness, a content landmark,
// incremental scrolling to trigger lazy loading, at least one anchor, and
// a final settle pause.
func stabilityPlan(p *rod.Page, cfg config.ScraperConfig) []waitCondition {
	return []waitCondition{
		{
			name:     "document-complete",
			required: true,
			run: func() error {
				return p.Timeout(cfg.ReadyTimeout).WaitLoad()
			},
		},
		{
			name: "content-landmark",
			run: func() error {
				return waitForSelector(p, contentLandmarkSelector, cfg.LandmarkTimeout)
			},
		},
		{
			name: "lazy-scroll",
			run: func() error {
				return scrollSteps(p, cfg.ScrollSteps, cfg.ScrollPause)
			},
		},
		{
			name: "anchor-present",
			run: func() error {
				return waitForSelector(p, "a[href]", cfg.AnchorTimeout)
			},
		},
		{
			name: "final-settle",
			run: func() error {
				time.Sleep(cfg.FinalSettle)
				return nil
			},
		},
	}
}

// runPlan executes the conditions in order. Only a required condition's
// failure propagates; best-effort failures are logged and skipped.
func runPlan(plan []waitCondition) error {
	for _, cond := range plan {
		if err := cond.run(); err != nil {
			if cond.required {
				return categorizeError(err, "wait for "+cond.name+" failed")
			}
			slog.Debug("wait condition skipped", "condition", cond.name, "error", err)
		}
	}
	return nil
}

// waitForSelector blocks until at least one element matches, or the
// per-condition timeout elapses.
func waitForSelector(p *rod.Page, selector string, timeout time.Duration) error {
	return p.Timeout(timeout).WaitElementsMoreThan(selector, 0)
}

// scrollSteps scrolls one viewport height per step with a pause between
// steps, giving lazy loaders time to observe and fill.
func scrollSteps(p *rod.Page, steps int, pause time.Duration) error {
	height := 768.0
	if res, err := p.Eval(`() => window.innerHeight || 768`); err == nil {
		if h := res.Value.Num(); h > 0 {
			height = h
		}
	}
	for i := 0; i < steps; i++ {
		if err := p.Mouse.Scroll(0, height, 1); err != nil {
			return err
		}
		time.Sleep(pause)
	}
	return nil
}
