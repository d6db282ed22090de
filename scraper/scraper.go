package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/joblens/harvester/config"
	"github.com/joblens/harvester/models"
	"github.com/ysmood/gson"
)

// Scraper drives browser sessions and hands out page leases.
// It is safe for concurrent use.
type Scraper struct {
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig

	mdConverter *converter.Converter

	mu      sync.Mutex
	session *Session // held only in reuse mode

	activePages atomic.Int32
}

// NewScraper creates a Scraper. No browser is launched until the first lease
// is requested, so pre-flight failures cost nothing.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) *Scraper {
	return &Scraper{
		browserCfg:  browserCfg,
		scraperCfg:  scraperCfg,
		mdConverter: newMarkdownConverter(),
	}
}

// Stats returns a snapshot of current lease usage.
func (s *Scraper) Stats() models.LeaseStats {
	return models.LeaseStats{
		ActivePages: int(s.activePages.Load()),
	}
}

// Close tears down any session held for reuse.
// Call this on shutdown to prevent zombie Chrome processes and
// orphaned profile directories.
func (s *Scraper) Close() {
	s.mu.Lock()
	sess := s.session
	s.session = nil
	s.mu.Unlock()

	if sess != nil {
		sess.Close()
	}
}

// teardownBudget bounds every CDP call made while tearing a page or session
// down. A browser that cannot answer within this window gets killed at the
// process level instead of waited on.
const teardownBudget = 3 * time.Second

// Session owns one browser process and one uniquely named temporary profile
// directory. Its lifetime is one task by default, or many sequential tasks
// when reuse is enabled. The teardown effects are held as funcs so tests can
// exercise the once-only discipline without a browser.
type Session struct {
	browser    *rod.Browser
	profileDir string
	cleanup    sync.Once

	closeBrowser  func(context.Context) error
	killBrowser   func()
	removeProfile func() error
}

// launchSession starts a headless browser with a fresh temporary profile.
func launchSession(cfg config.BrowserConfig) (*Session, error) {
	profileDir, err := os.MkdirTemp("", "harvester-profile-*")
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to create temporary profile directory",
			err,
		)
	}

	// The Chrome sandbox cannot run under root; keep it on everywhere else
	// unless the caller overrides.
	noSandbox := cfg.NoSandbox || os.Geteuid() == 0

	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(noSandbox).
		UserDataDir(profileDir)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		_ = os.RemoveAll(profileDir)
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to launch browser",
			err,
		)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		_ = os.RemoveAll(profileDir)
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to connect to browser",
			err,
		)
	}

	slog.Debug("browser session launched",
		"controlURL", controlURL,
		"profileDir", profileDir,
		"noSandbox", noSandbox,
	)

	return &Session{
		browser:    browser,
		profileDir: profileDir,
		closeBrowser: func(ctx context.Context) error {
			return browser.Context(ctx).Close()
		},
		killBrowser:   l.Kill,
		removeProfile: func() error { return os.RemoveAll(profileDir) },
	}, nil
}

// Close tears the session down exactly once: a time-bounded graceful browser
// close, a process kill if the browser does not answer, then profile
// directory removal. Safe to call from any exit path, including the watchdog
// goroutine, and guaranteed to return even against a hung browser.
func (s *Session) Close() {
	s.cleanup.Do(func() {
		if s.closeBrowser != nil {
			ctx, cancel := context.WithTimeout(context.Background(), teardownBudget)
			err := s.closeBrowser(ctx)
			cancel()
			if err != nil {
				slog.Warn("graceful browser close failed, killing process", "error", err)
				if s.killBrowser != nil {
					s.killBrowser()
				}
			}
		}
		if s.removeProfile != nil {
			if err := s.removeProfile(); err != nil {
				slog.Warn("profile cleanup failed", "dir", s.profileDir, "error", err)
			} else {
				slog.Debug("profile directory removed", "dir", s.profileDir)
			}
		}
	})
}

// PageLease is scoped ownership of one page inside a session. It is released
// exactly once, on whichever exit path runs first — normal close, error
// return, or watchdog teardown.
type PageLease struct {
	page    *rod.Page
	router  *rod.HijackRouter
	session *Session
	sc      *Scraper
	once    sync.Once

	closePage  func(context.Context) error
	stopRouter func() error
}

// Lease opens a configured page against a fresh (or reused) session:
// stealth JS, user agent, locale, viewport, Referer header and the
// resource-class network policy are all installed before any navigation.
func (s *Scraper) Lease(taskURL string) (*PageLease, error) {
	sess, err := s.acquireSession()
	if err != nil {
		return nil, err
	}

	page, err := sess.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.dropSession(sess)
		sess.Close()
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserLaunch,
			"failed to open page",
			err,
		)
	}

	lease := &PageLease{
		page:    page,
		session: sess,
		sc:      s,
		closePage: func(ctx context.Context) error {
			return page.Context(ctx).Close()
		},
	}
	s.activePages.Add(1)

	// Stealth JS must be installed before the first navigation.
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      s.browserCfg.UserAgent,
		AcceptLanguage: s.browserCfg.Locale,
	}); err != nil {
		slog.Warn("user agent override failed", "error", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.browserCfg.ViewportWidth,
		Height:            s.browserCfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("viewport override failed", "error", err)
	}

	// A plausible Referer reduces anti-bot false positives on landing pages.
	if u, parseErr := url.Parse(taskURL); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: proto.NetworkHeaders{
				"Referer": gson.New("https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())),
			},
		}.Call(page)
	}

	lease.router = mountPolicy(page)
	lease.stopRouter = lease.router.Stop

	return lease, nil
}

// Page exposes the leased page for navigation and extraction.
func (l *PageLease) Page() *rod.Page { return l.page }

// Close releases the lease. In reuse mode the session survives for the
// next task; otherwise it is torn down with its profile directory.
func (l *PageLease) Close() { l.release(false) }

// Destroy force-closes the page and its owning browser regardless of reuse
// mode. This is the watchdog's teardown path: the browser may be hung, so
// every step is bounded.
func (l *PageLease) Destroy() { l.release(true) }

// release runs the teardown exactly once. Every CDP call inside is
// time-bounded, so whichever goroutine wins the race (task defer or
// watchdog) always gets control back, and the loser never blocks on it.
func (l *PageLease) release(force bool) {
	l.once.Do(func() {
		// The router teardown issues CDP calls of its own; skip it on the
		// forced path, where the browser is presumed unresponsive and is
		// about to be killed anyway.
		if !force && l.stopRouter != nil {
			_ = l.stopRouter()
		}
		if l.closePage != nil {
			ctx, cancel := context.WithTimeout(context.Background(), teardownBudget)
			err := l.closePage(ctx)
			cancel()
			if err != nil {
				slog.Debug("page close failed", "error", err)
				// A page that cannot close takes its browser down with it.
				force = true
			}
		}
		l.sc.activePages.Add(-1)

		if force || !l.sc.browserCfg.ReuseSession {
			l.sc.dropSession(l.session)
			l.session.Close()
		}
	})
}

// acquireSession returns the held session in reuse mode, launching one on
// first use; otherwise every call launches a fresh session.
func (s *Scraper) acquireSession() (*Session, error) {
	if !s.browserCfg.ReuseSession {
		return launchSession(s.browserCfg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session, nil
	}
	sess, err := launchSession(s.browserCfg)
	if err != nil {
		return nil, err
	}
	s.session = sess
	return sess, nil
}

// dropSession forgets a held session so a later task cannot lease pages on
// a browser that is being (or has been) torn down.
func (s *Scraper) dropSession(sess *Session) {
	s.mu.Lock()
	if s.session == sess {
		s.session = nil
	}
	s.mu.Unlock()
}
