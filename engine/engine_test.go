package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joblens/harvester/config"
	"github.com/joblens/harvester/models"
)

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Governor.MaxPages = 1
	cfg.Governor.Watchdog = 5 * time.Second
	cfg.Governor.GlobalSlots = 0
	return cfg
}

func TestRun_InvalidURLFailsWithoutBrowser(t *testing.T) {
	e := New(testConfig())
	defer e.Close()

	cases := []string{"", "not a url", "ftp://files.example.com/x", "//missing-scheme.example.com"}
	for _, raw := range cases {
		start := time.Now()
		_, err := e.Run(context.Background(), models.ScrapeTask{URL: raw, Mode: models.ModeLinks})
		if err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
		if models.CodeOf(err) != models.ErrCodeInvalidProtocol {
			t.Errorf("%q: got code %q, want %q", raw, models.CodeOf(err), models.ErrCodeInvalidProtocol)
		}
		// Rejection must be fail-fast: no launch, no navigation.
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("%q: validation took %v, a browser launch likely happened", raw, elapsed)
		}
	}

	if stats := e.Stats(); stats.ActivePages != 0 {
		t.Errorf("no page lease should exist after rejected input, got %d", stats.ActivePages)
	}
}

func TestRun_CanceledContextStopsBeforeLease(t *testing.T) {
	e := New(testConfig())
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, models.ScrapeTask{URL: "https://example.com/", Mode: models.ModeLinks})
	if err == nil {
		t.Fatal("expected an error from a pre-canceled context")
	}
	// The cancellation must surface as a typed timeout, never a bare
	// context error, so callers always see a code they can map.
	if models.CodeOf(err) != models.ErrCodeNavTimeout {
		t.Errorf("got code %q, want %q", models.CodeOf(err), models.ErrCodeNavTimeout)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("the original context error must stay reachable through errors.Is")
	}
	if stats := e.Stats(); stats.ActivePages != 0 {
		t.Errorf("no page lease should remain, got %d", stats.ActivePages)
	}
}
