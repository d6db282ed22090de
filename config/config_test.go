package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Governor.MaxPages != 4 {
		t.Errorf("MaxPages default = %d, want 4", cfg.Governor.MaxPages)
	}
	if cfg.Governor.Watchdog != 120*time.Second {
		t.Errorf("Watchdog default = %v, want 120s", cfg.Governor.Watchdog)
	}
	if cfg.Governor.GlobalSlots != 0 {
		t.Errorf("GlobalSlots default = %d, want 0 (disabled)", cfg.Governor.GlobalSlots)
	}
	if !cfg.Browser.Headless {
		t.Error("Headless default should be true")
	}
	if cfg.Browser.ReuseSession {
		t.Error("ReuseSession default should be false")
	}
	if cfg.Scraper.TextFormat != "plain" {
		t.Errorf("TextFormat default = %q, want plain", cfg.Scraper.TextFormat)
	}
	if len(cfg.Scraper.DenyLinks) == 0 {
		t.Error("DenyLinks default should not be empty")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HARVESTER_MAX_PAGES", "2")
	t.Setenv("HARVESTER_WATCHDOG", "500ms")
	t.Setenv("HARVESTER_GLOBAL_SLOTS", "3")
	t.Setenv("HARVESTER_SLOT_STRICT", "true")
	t.Setenv("HARVESTER_DENY_LINKS", "errors.edgesuite.net, /search?,  ")
	t.Setenv("HARVESTER_RATE_RPS", "7.5")

	cfg := Load()

	if cfg.Governor.MaxPages != 2 {
		t.Errorf("MaxPages = %d, want 2", cfg.Governor.MaxPages)
	}
	if cfg.Governor.Watchdog != 500*time.Millisecond {
		t.Errorf("Watchdog = %v, want 500ms", cfg.Governor.Watchdog)
	}
	if cfg.Governor.GlobalSlots != 3 {
		t.Errorf("GlobalSlots = %d, want 3", cfg.Governor.GlobalSlots)
	}
	if !cfg.Governor.SlotStrict {
		t.Error("SlotStrict should be true")
	}
	if len(cfg.Scraper.DenyLinks) != 2 {
		t.Errorf("DenyLinks = %v, want 2 trimmed entries", cfg.Scraper.DenyLinks)
	}
	if cfg.RateLimit.RequestsPerSecond != 7.5 {
		t.Errorf("RequestsPerSecond = %v, want 7.5", cfg.RateLimit.RequestsPerSecond)
	}
}

func TestLoad_MalformedEnvFallsBack(t *testing.T) {
	t.Setenv("HARVESTER_MAX_PAGES", "many")
	t.Setenv("HARVESTER_WATCHDOG", "soon")
	t.Setenv("HARVESTER_HEADLESS", "yep")

	cfg := Load()

	if cfg.Governor.MaxPages != 4 {
		t.Errorf("MaxPages = %d, want default 4 on malformed input", cfg.Governor.MaxPages)
	}
	if cfg.Governor.Watchdog != 120*time.Second {
		t.Errorf("Watchdog = %v, want default 120s on malformed input", cfg.Governor.Watchdog)
	}
	if !cfg.Browser.Headless {
		t.Error("Headless should fall back to true on malformed input")
	}
}
