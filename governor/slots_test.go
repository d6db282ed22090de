package governor

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/joblens/harvester/models"
)

func markerCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		t.Fatalf("ReadDir: %v", err)
	}
	n := 0
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), slotSuffix) {
			n++
		}
	}
	return n
}

func TestSlotLimiter_Disabled(t *testing.T) {
	s := NewSlotLimiter(t.TempDir(), 0, time.Second, true)
	if s.Enabled() {
		t.Fatal("cap 0 should disable the limiter")
	}
	release, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatalf("disabled Acquire failed: %v", err)
	}
	release()
}

func TestSlotLimiter_AcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	s := NewSlotLimiter(dir, 2, time.Second, true)

	release, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if n := markerCount(t, dir); n != 1 {
		t.Errorf("marker count = %d while holding, want 1", n)
	}

	release()
	if n := markerCount(t, dir); n != 0 {
		t.Errorf("marker count = %d after release, want 0", n)
	}
}

func TestSlotLimiter_StrictTimeout(t *testing.T) {
	dir := t.TempDir()

	holder := NewSlotLimiter(dir, 1, time.Second, true)
	releaseHeld, err := holder.Acquire(context.Background())
	if err != nil {
		t.Fatalf("holder Acquire failed: %v", err)
	}
	defer releaseHeld()

	strict := NewSlotLimiter(dir, 1, 300*time.Millisecond, true)
	_, err = strict.Acquire(context.Background())
	if err == nil {
		t.Fatal("strict Acquire succeeded with the cap exhausted")
	}
	var se *models.ScrapeError
	if !errors.As(err, &se) || se.Code != models.ErrCodeSlotTimeout {
		t.Errorf("error = %v, want code %s", err, models.ErrCodeSlotTimeout)
	}
	if n := markerCount(t, dir); n != 1 {
		t.Errorf("marker count = %d after strict timeout, want 1 (only the holder's)", n)
	}
}

func TestSlotLimiter_SoftTimeoutProceedsSlotless(t *testing.T) {
	dir := t.TempDir()

	holder := NewSlotLimiter(dir, 1, time.Second, false)
	releaseHeld, err := holder.Acquire(context.Background())
	if err != nil {
		t.Fatalf("holder Acquire failed: %v", err)
	}
	defer releaseHeld()

	soft := NewSlotLimiter(dir, 1, 300*time.Millisecond, false)
	release, err := soft.Acquire(context.Background())
	if err != nil {
		t.Fatalf("soft Acquire should proceed slotless, got: %v", err)
	}
	release()

	// The slotless task must not leave a marker behind.
	if n := markerCount(t, dir); n != 1 {
		t.Errorf("marker count = %d after soft timeout, want 1", n)
	}
}

func TestSlotLimiter_AcquireHonorsContext(t *testing.T) {
	dir := t.TempDir()

	holder := NewSlotLimiter(dir, 1, time.Minute, true)
	releaseHeld, err := holder.Acquire(context.Background())
	if err != nil {
		t.Fatalf("holder Acquire failed: %v", err)
	}
	defer releaseHeld()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	waiter := NewSlotLimiter(dir, 1, time.Minute, true)
	_, err = waiter.Acquire(ctx)
	if err == nil {
		t.Fatal("Acquire succeeded, want context cancellation")
	}
	// The cancellation surfaces typed, with the original cause preserved.
	if models.CodeOf(err) != models.ErrCodeSlotTimeout {
		t.Errorf("got code %q, want %q", models.CodeOf(err), models.ErrCodeSlotTimeout)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("the context error must stay reachable through errors.Is")
	}
	if n := markerCount(t, dir); n != 1 {
		t.Errorf("marker count = %d after cancelled wait, want 1", n)
	}
}
