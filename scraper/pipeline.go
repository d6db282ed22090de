package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/joblens/harvester/models"
)

// DoScrape runs the full per-page pipeline against a held lease: navigate,
// resolve consent, wait for stability, extract. The caller owns the lease
// and releases it; the watchdog may destroy it mid-flight, in which case
// the context-bound calls below fail fast.
func (s *Scraper) DoScrape(ctx context.Context, lease *PageLease, task models.ScrapeTask) (*models.ScrapeResult, error) {
	cfg := s.scraperCfg

	// ── 1. Bind task context to page ──────────────────────────────────
	p := lease.Page().Context(ctx)

	// ── 2. Navigate (bounded by the navigation timeout) ──────────────
	state, err := navigate(p.Timeout(cfg.NavTimeout), task.URL)
	if err != nil {
		return nil, err
	}

	// ── 3. Resolve consent overlays (never fatal) ────────────────────
	consent := resolveConsent(p, cfg.ConsentSettle)
	slog.Debug("consent resolution finished",
		"url", task.URL,
		"attempted", consent.Attempted,
		"resolved", consent.Resolved,
	)

	// ── 4. Stability plan: readiness, landmark, lazy scroll, settle ───
	if err := runPlan(stabilityPlan(p, cfg)); err != nil {
		return nil, err
	}

	// ── 5. Extract rendered HTML ──────────────────────────────────────
	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	result := &models.ScrapeResult{
		Mode:       task.Mode,
		Consent:    consent,
		StatusCode: state.StatusCode,
		FinalURL:   state.FinalURL,
	}

	// ── 6. Mode-specific extraction ──────────────────────────────────
	switch task.Mode {
	case models.ModeLinks:
		result.Links = CollectLinks(rawHTML, state.FinalURL, cfg.DenyLinks)

	case models.ModeDetail:
		detail, err := s.extractDetail(p, rawHTML, state)
		if err != nil {
			return nil, err
		}
		result.Detail = detail

	default:
		return nil, models.NewScrapeError(
			models.ErrCodeInvalidInput,
			"unknown extraction mode: "+string(task.Mode),
			nil,
		)
	}

	return result, nil
}

// extractDetail builds the title+text product. The live page's rendered
// innerText is preferred; readability and a DOM text walk back it up when
// the page cannot answer.
func (s *Scraper) extractDetail(p *rod.Page, rawHTML string, state *pageState) (*models.JobDetail, error) {
	title := PickTitle(rawHTML, state.Title, s.scraperCfg.TitleMinLen)

	var text string
	if s.scraperCfg.TextFormat == "markdown" {
		md, err := renderMarkdown(s.mdConverter, rawHTML, hostOf(state.FinalURL))
		if err != nil {
			return nil, models.NewScrapeError(
				models.ErrCodeInternal,
				"markdown conversion failed",
				err,
			)
		}
		text = strings.TrimSpace(md)
	} else {
		text = strings.TrimSpace(evalStringOrEmpty(p, `() => document.body ? document.body.innerText : ""`))
		if text == "" {
			text = VisibleTextFallback(rawHTML, state.FinalURL)
		}
	}

	return &models.JobDetail{JobTitle: title, Text: text}, nil
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Hostname()
	}
	return ""
}
