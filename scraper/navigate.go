package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/joblens/harvester/models"
)

// pageState is the post-navigation metadata extracted from the live page.
type pageState struct {
	StatusCode int
	FinalURL   string
	Title      string
}

// navigate drives the page to the target URL and waits for the initial
// document. Status code, final URL and title are collected best-effort;
// navigation failure is fatal.
func navigate(p *rod.Page, taskURL string) (*pageState, error) {
	if err := p.Navigate(taskURL); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}

	// NOTE: WaitRequestIdle uses the Fetch domain which conflicts with
	// HijackRequests on Chromium 145+, so DOM stability stands in for
	// network idleness here.
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}

	st := &pageState{FinalURL: taskURL}

	// Status code via performance.getEntriesByType avoids CDP Network
	// event listeners, which also conflict with the hijack router.
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		st.StatusCode = res.Value.Int()
	}

	if finalURL := evalStringOrEmpty(p, `() => window.location.href`); finalURL != "" {
		st.FinalURL = finalURL
	}
	st.Title = evalStringOrEmpty(p, `() => document.title`)

	return st, nil
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// categorizeError maps a raw rod/context error to a typed ScrapeError.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeNavTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeNavTimeout, "task canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
