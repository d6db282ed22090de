package governor

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joblens/harvester/models"
)

const (
	slotSuffix   = ".slot"
	slotPollBase = 200 * time.Millisecond
	// slotPollJitter desynchronizes retries from sibling processes.
	slotPollJitter = 150 * time.Millisecond
)

// SlotLimiter is a counting semaphore shared between processes: a directory
// of uniquely named marker files, one per held slot. A process holds a slot
// while its marker exists; markers are removed on release and on signal exit.
type SlotLimiter struct {
	dir    string
	cap    int
	wait   time.Duration
	strict bool
}

// NewSlotLimiter creates a limiter over dir with the given cap.
// A cap of 0 (or less) disables global limiting entirely.
func NewSlotLimiter(dir string, cap int, wait time.Duration, strict bool) *SlotLimiter {
	return &SlotLimiter{dir: dir, cap: cap, wait: wait, strict: strict}
}

// Enabled reports whether global slot limiting is in effect.
func (s *SlotLimiter) Enabled() bool { return s != nil && s.cap > 0 }

// Acquire claims a global slot: it drops a uniquely named marker into the
// shared directory and polls (with jitter) until the live-marker count is
// within the cap or the wait timeout elapses. The returned release func is
// safe to call regardless of outcome.
//
// On timeout, soft mode removes the marker and lets the task proceed
// slotless; strict mode removes the marker and fails with GLOBAL_SLOT_TIMEOUT.
func (s *SlotLimiter) Acquire(ctx context.Context) (release func(), err error) {
	noop := func() {}
	if !s.Enabled() {
		return noop, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return noop, models.NewScrapeError(models.ErrCodeInternal, "failed to create slot directory", err)
	}

	host, _ := os.Hostname()
	marker := filepath.Join(s.dir, fmt.Sprintf("%s-%d-%s%s", host, os.Getpid(), uuid.New().String(), slotSuffix))
	if err := os.WriteFile(marker, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		return noop, models.NewScrapeError(models.ErrCodeInternal, "failed to create slot marker", err)
	}

	remove := func() { _ = os.Remove(marker) }
	deadline := time.Now().Add(s.wait)

	for {
		n, countErr := s.countMarkers()
		if countErr == nil && n <= s.cap {
			return remove, nil
		}

		if time.Now().After(deadline) {
			remove()
			if s.strict {
				return noop, models.NewScrapeError(models.ErrCodeSlotTimeout,
					fmt.Sprintf("no global slot within %s (cap %d)", s.wait, s.cap), countErr)
			}
			// Soft mode: proceed without holding a slot.
			return noop, nil
		}

		pause := slotPollBase + time.Duration(rand.Int63n(int64(slotPollJitter)))
		select {
		case <-ctx.Done():
			remove()
			return noop, models.NewScrapeError(models.ErrCodeSlotTimeout,
				"canceled while waiting for a global slot", ctx.Err())
		case <-time.After(pause):
		}
	}
}

// countMarkers counts live slot markers in the shared directory.
func (s *SlotLimiter) countMarkers() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), slotSuffix) {
			n++
		}
	}
	return n, nil
}
