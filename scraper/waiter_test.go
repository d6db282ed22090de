package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/joblens/harvester/models"
)

func TestRunPlan_RequiredFailureShortCircuits(t *testing.T) {
	var ran []string
	plan := []waitCondition{
		{name: "first", run: func() error {
			ran = append(ran, "first")
			return nil
		}},
		{name: "gate", required: true, run: func() error {
			ran = append(ran, "gate")
			return context.DeadlineExceeded
		}},
		{name: "after", run: func() error {
			ran = append(ran, "after")
			return nil
		}},
	}

	err := runPlan(plan)
	if err == nil {
		t.Fatal("expected required failure to propagate")
	}
	if models.CodeOf(err) != models.ErrCodeNavTimeout {
		t.Errorf("expected a timeout code, got %q", models.CodeOf(err))
	}
	if len(ran) != 2 || ran[1] != "gate" {
		t.Errorf("plan should stop at the required failure, ran %v", ran)
	}
}

func TestRunPlan_BestEffortFailuresAreSwallowed(t *testing.T) {
	var ran []string
	plan := []waitCondition{
		{name: "flaky", run: func() error {
			ran = append(ran, "flaky")
			return errors.New("no landmark")
		}},
		{name: "last", run: func() error {
			ran = append(ran, "last")
			return nil
		}},
	}

	if err := runPlan(plan); err != nil {
		t.Fatalf("best-effort failures must not propagate: %v", err)
	}
	if len(ran) != 2 {
		t.Errorf("all conditions should run, ran %v", ran)
	}
}

func TestRunPlan_ExecutesInDeclaredOrder(t *testing.T) {
	var ran []string
	mk := func(name string) waitCondition {
		return waitCondition{name: name, run: func() error {
			ran = append(ran, name)
			return nil
		}}
	}
	plan := []waitCondition{mk("a"), mk("b"), mk("c")}

	if err := runPlan(plan); err != nil {
		t.Fatal(err)
	}
	for i, want := range []string{"a", "b", "c"} {
		if ran[i] != want {
			t.Fatalf("order broken: %v", ran)
		}
	}
}
