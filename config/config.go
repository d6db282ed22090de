package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Governor  GovernorConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the optional HTTP daemon (serve mode).
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser session.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox. Forced on when running as root.
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// UserAgent is the desktop user agent presented to every page.
	UserAgent string

	// Locale is the Accept-Language value presented to every page.
	Locale string // default: "en-US,en;q=0.9"

	// ViewportWidth/ViewportHeight fix the page viewport.
	ViewportWidth  int // default: 1366
	ViewportHeight int // default: 768

	// ReuseSession keeps one browser session across sequential tasks,
	// trading profile isolation for reduced startup cost.
	ReuseSession bool // default: false
}

// ScraperConfig controls per-page scraping behavior.
type ScraperConfig struct {
	// NavTimeout is the max time for navigation plus initial render.
	NavTimeout time.Duration // default: 30s

	// ReadyTimeout bounds the required document-complete wait.
	ReadyTimeout time.Duration // default: 10s

	// LandmarkTimeout bounds the best-effort content-landmark wait.
	LandmarkTimeout time.Duration // default: 3s

	// AnchorTimeout bounds the best-effort first-hyperlink wait.
	AnchorTimeout time.Duration // default: 3s

	// ScrollSteps is the number of incremental lazy-load scroll steps.
	ScrollSteps int // default: 4

	// ScrollPause is the pause after each scroll step.
	ScrollPause time.Duration // default: 400ms

	// FinalSettle is the fixed pause before extraction.
	FinalSettle time.Duration // default: 1s

	// ConsentSettle is the pause after a successful consent click,
	// letting overlay-removal animations finish.
	ConsentSettle time.Duration // default: 1s

	// TitleMinLen is the character floor below which a heading is
	// considered trivial and skipped by the title fallback chain.
	TitleMinLen int // default: 3

	// DenyLinks lists substrings of known non-useful endpoints
	// (internal search pages, edge error hosts) excluded from link sets.
	DenyLinks []string

	// TextFormat selects the detail-mode text rendering: "plain" or "markdown".
	TextFormat string // default: "plain"
}

// GovernorConfig controls local and cross-process concurrency limits.
type GovernorConfig struct {
	// MaxPages is the local page-lease capacity per process.
	MaxPages int // default: 4

	// Watchdog is the hard per-task deadline; on expiry the owning page
	// and browser are torn down forcibly.
	Watchdog time.Duration // default: 120s

	// GlobalSlots caps concurrent browser instances across processes.
	// 0 disables the global limiter.
	GlobalSlots int // default: 0

	// SlotWait is how long to poll for a global slot before giving up.
	SlotWait time.Duration // default: 60s

	// SlotDir is the lease-marker directory shared between processes.
	SlotDir string // default: <tmp>/harvester-slots

	// SlotStrict fails the task when no slot is obtained within SlotWait;
	// otherwise the task proceeds without a slot.
	SlotStrict bool // default: false
}

// AuthConfig controls API-key authentication in serve mode. Auth is enabled
// whenever at least one key is configured.
type AuthConfig struct {
	Enabled bool
	APIKeys []string
}

// RateLimitConfig controls per-client rate limiting in serve mode.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per client.
	Burst int // default: 4
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// defaultUserAgent is a realistic desktop Chrome UA; headless builds announce
// themselves in the default UA, which trips anti-bot heuristics.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("HARVESTER_HOST", "0.0.0.0"),
			Port: envIntOr("HARVESTER_PORT", 8080),
			Mode: envOr("HARVESTER_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:       envBoolOr("HARVESTER_HEADLESS", true),
			NoSandbox:      envBoolOr("HARVESTER_NO_SANDBOX", false),
			BrowserBin:     os.Getenv("HARVESTER_BROWSER_BIN"),
			UserAgent:      envOr("HARVESTER_USER_AGENT", defaultUserAgent),
			Locale:         envOr("HARVESTER_LOCALE", "en-US,en;q=0.9"),
			ViewportWidth:  envIntOr("HARVESTER_VIEWPORT_WIDTH", 1366),
			ViewportHeight: envIntOr("HARVESTER_VIEWPORT_HEIGHT", 768),
			ReuseSession:   envBoolOr("HARVESTER_REUSE_SESSION", false),
		},
		Scraper: ScraperConfig{
			NavTimeout:      envDurationOr("HARVESTER_NAV_TIMEOUT", 30*time.Second),
			ReadyTimeout:    envDurationOr("HARVESTER_READY_TIMEOUT", 10*time.Second),
			LandmarkTimeout: envDurationOr("HARVESTER_LANDMARK_TIMEOUT", 3*time.Second),
			AnchorTimeout:   envDurationOr("HARVESTER_ANCHOR_TIMEOUT", 3*time.Second),
			ScrollSteps:     envIntOr("HARVESTER_SCROLL_STEPS", 4),
			ScrollPause:     envDurationOr("HARVESTER_SCROLL_PAUSE", 400*time.Millisecond),
			FinalSettle:     envDurationOr("HARVESTER_FINAL_SETTLE", time.Second),
			ConsentSettle:   envDurationOr("HARVESTER_CONSENT_SETTLE", time.Second),
			TitleMinLen:     envIntOr("HARVESTER_TITLE_MIN_LEN", 3),
			DenyLinks: envSliceOr("HARVESTER_DENY_LINKS", []string{
				"errors.edgesuite.net",
				"/search?",
			}),
			TextFormat: envOr("HARVESTER_TEXT_FORMAT", "plain"),
		},
		Governor: GovernorConfig{
			MaxPages:    envIntOr("HARVESTER_MAX_PAGES", 4),
			Watchdog:    envDurationOr("HARVESTER_WATCHDOG", 120*time.Second),
			GlobalSlots: envIntOr("HARVESTER_GLOBAL_SLOTS", 0),
			SlotWait:    envDurationOr("HARVESTER_SLOT_WAIT", 60*time.Second),
			SlotDir:     envOr("HARVESTER_SLOT_DIR", defaultSlotDir()),
			SlotStrict:  envBoolOr("HARVESTER_SLOT_STRICT", false),
		},
		Auth: loadAuth(),
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("HARVESTER_RATE_RPS", 2.0),
			Burst:             envIntOr("HARVESTER_RATE_BURST", 4),
		},
		Log: LogConfig{
			Level:  envOr("HARVESTER_LOG_LEVEL", "info"),
			Format: envOr("HARVESTER_LOG_FORMAT", "json"),
		},
	}
}

func loadAuth() AuthConfig {
	keys := envSliceOr("HARVESTER_API_KEYS", nil)
	return AuthConfig{Enabled: len(keys) > 0, APIKeys: keys}
}

func defaultSlotDir() string {
	return os.TempDir() + string(os.PathSeparator) + "harvester-slots"
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
