package scraper

import (
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/joblens/harvester/models"
)

// vendorConsentSelectors are accept-button selectors for the consent
// platforms that dominate the market. Ordered by observed frequency;
// the first present match wins.
var vendorConsentSelectors = []string{
	"#onetrust-accept-btn-handler",                              // OneTrust
	"#didomi-notice-agree-button",                               // Didomi
	".fc-cta-consent",                                           // Google Funding Choices
	"#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll",    // Cookiebot
	"button#truste-consent-button",                              // TrustArc
	"[data-testid='uc-accept-all-button']",                      // Usercentrics
	"#sp-cc-accept",                                             // Amazon
	"#L2AGLb",                                                   // Google
	".cc-allow",                                                 // Cookie Consent (osano)
	"button[aria-label='Accept cookies']",
}

// frameScanLimit caps the breadth-first frame walk. Consent iframes sit one
// or two levels deep; anything past this is ad nesting.
const frameScanLimit = 16

// resolveConsent locates and dismisses cookie/privacy overlays so they do
// not pollute extracted text. Two phases, each run across the main frame
// first and then breadth-first across subframes:
//
//   - Phase A probes known vendor accept-button selectors.
//   - Phase B walks the document tree and every nested shadow root for a
//     visible clickable element whose text is an affirmative-consent label.
//
// Every failure path is swallowed: a page with no consent affordance, a
// detached frame, or a failed click all leave extraction to proceed against
// whatever is on screen.
func resolveConsent(p *rod.Page, settle time.Duration) models.ConsentOutcome {
	rodFrames := collectFrames(p)
	frames := make([]consentFrame, len(rodFrames))
	for i, f := range rodFrames {
		frames[i] = rodFrame{p: f}
	}
	return resolveConsentFrames(frames, settle, time.Sleep)
}

// consentFrame is one document context (main frame or subframe) probed for
// consent affordances. The rod binding talks to the live page; tests
// substitute an in-memory fake.
type consentFrame interface {
	// Find returns the first match for a CSS selector, if present.
	Find(selector string) (clickTarget, bool)
	// Root returns the frame's body, the entry point for the heuristic walk.
	Root() (clickTarget, bool)
}

// resolveConsentFrames runs both phases over the given frames. After a
// successful click the pause func is invoked with the settle delay so the
// overlay's dismissal animation and any re-render finish before extraction.
func resolveConsentFrames(frames []consentFrame, settle time.Duration, pause func(time.Duration)) models.ConsentOutcome {
	out := models.ConsentOutcome{Attempted: true}

	// ── Phase A: deterministic vendor selectors ──────────────────────
	for _, f := range frames {
		if clickVendorButton(f) {
			out.Resolved = true
			pause(settle)
			return out
		}
	}

	// ── Phase B: heuristic shadow-aware tree walk ─────────────────────
	for _, f := range frames {
		if clickAffirmative(f) {
			out.Resolved = true
			pause(settle)
			return out
		}
	}

	return out
}

// collectFrames returns the main frame followed by its subframes in
// breadth-first order, bounded by frameScanLimit.
func collectFrames(p *rod.Page) []*rod.Page {
	frames := []*rod.Page{p}
	for i := 0; i < len(frames) && len(frames) < frameScanLimit; i++ {
		iframes, err := frames[i].Elements("iframe")
		if err != nil {
			continue
		}
		for _, el := range iframes {
			if len(frames) >= frameScanLimit {
				break
			}
			sub, err := el.Frame()
			if err != nil {
				continue
			}
			frames = append(frames, sub)
		}
	}
	return frames
}

// clickVendorButton probes the vendor selector list on one frame and clicks
// the first visible match.
func clickVendorButton(f consentFrame) bool {
	for _, sel := range vendorConsentSelectors {
		el, ok := f.Find(sel)
		if !ok {
			continue
		}
		if !el.Visible() {
			continue
		}
		if err := el.Click(); err != nil {
			slog.Debug("vendor consent click failed", "selector", sel, "error", err)
			continue
		}
		slog.Debug("consent resolved via vendor selector", "selector", sel)
		return true
	}
	return false
}

// clickAffirmative runs the heuristic walk over one frame's document tree.
func clickAffirmative(f consentFrame) bool {
	body, ok := f.Root()
	if !ok {
		return false
	}
	budget := walkNodeBudget
	return findAffirmative(body, &budget)
}

// rodFrame binds consentFrame to a live page or subframe.
type rodFrame struct {
	p *rod.Page
}

func (f rodFrame) Find(sel string) (clickTarget, bool) {
	has, el, err := f.p.Has(sel)
	if err != nil || !has {
		return nil, false
	}
	return rodNode{el: el}, true
}

func (f rodFrame) Root() (clickTarget, bool) {
	return f.Find("body")
}
