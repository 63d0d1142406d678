package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"
)

func delayedCallRow(id, articleID int64, remainingTries int64, lastAttempt time.Time) []driver.Value {
	return []driver.Value{id, articleID, "500", remainingTries, lastAttempt, lastAttempt}
}

var delayedCallColumns = []string{
	"delayed_call_id", "article_id", "failure_reason", "remaining_tries", "last_attempt_at", "create_at",
}

func TestProcessDelayedCallsSkipsRecentItems(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `delayed_calls`"),
			columns: delayedCallColumns,
			rows: [][]driver.Value{
				delayedCallRow(1, 42, 5, time.Now().Add(-1*time.Hour)),
			},
		},
	}
	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	resubmitCalled := false
	service := NewDelayedCallService(gormDB, func(ctx context.Context, articleID uint) (*RQCOutcome, error) {
		resubmitCalled = true
		return &RQCOutcome{Success: true}, nil
	})

	summary, err := service.ProcessDelayedCalls(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resubmitCalled {
		t.Fatal("an item younger than the back-off must not be attempted")
	}
	if summary.Skipped != 1 || summary.Processed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestProcessDelayedCallsDropsExhaustedWithoutAttempt(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `delayed_calls`"),
			columns: delayedCallColumns,
			rows: [][]driver.Value{
				delayedCallRow(1, 42, 0, time.Now().Add(-48*time.Hour)),
			},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("DELETE FROM `delayed_calls`"),
		},
		{
			// Exhaustion notification: no journal contact found.
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `journals`"),
			columns: []string{"journal_id", "name", "domain", "contact_email"},
			rows:    [][]driver.Value{},
		},
	}
	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	service := NewDelayedCallService(gormDB, func(ctx context.Context, articleID uint) (*RQCOutcome, error) {
		t.Fatal("an exhausted item must not be attempted again")
		return nil, nil
	})

	summary, err := service.ProcessDelayedCalls(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Exhausted != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestProcessDelayedCallsDecrementsOnFailure(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `delayed_calls`"),
			columns: delayedCallColumns,
			rows: [][]driver.Value{
				delayedCallRow(1, 42, 5, time.Now().Add(-48*time.Hour)),
			},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("UPDATE `delayed_calls`"),
		},
	}
	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	service := NewDelayedCallService(gormDB, func(ctx context.Context, articleID uint) (*RQCOutcome, error) {
		if articleID != 42 {
			t.Fatalf("unexpected article id %d", articleID)
		}
		return &RQCOutcome{StatusCode: 503}, nil
	})

	summary, err := service.ProcessDelayedCalls(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Failed != 1 || summary.Succeeded != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestProcessDelayedCallsDeletesOnSuccess(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `delayed_calls`"),
			columns: delayedCallColumns,
			rows: [][]driver.Value{
				delayedCallRow(1, 42, 5, time.Now().Add(-48*time.Hour)),
			},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("DELETE FROM `delayed_calls`"),
		},
	}
	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	service := NewDelayedCallService(gormDB, func(ctx context.Context, articleID uint) (*RQCOutcome, error) {
		return &RQCOutcome{Success: true, StatusCode: 200}, nil
	})

	summary, err := service.ProcessDelayedCalls(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Succeeded != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}

func TestProcessDelayedCallsIsolatesItemErrors(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM `delayed_calls`"),
			columns: delayedCallColumns,
			rows: [][]driver.Value{
				delayedCallRow(1, 42, 5, time.Now().Add(-48*time.Hour)),
				delayedCallRow(2, 43, 5, time.Now().Add(-48*time.Hour)),
			},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("DELETE FROM `delayed_calls`"),
		},
	}
	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	service := NewDelayedCallService(gormDB, func(ctx context.Context, articleID uint) (*RQCOutcome, error) {
		if articleID == 42 {
			return nil, errors.New("payload assembly failed")
		}
		return &RQCOutcome{Success: true}, nil
	})

	summary, err := service.ProcessDelayedCalls(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Errors != 1 || summary.Succeeded != 1 {
		t.Fatalf("one failing item must not block the rest: %+v", summary)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatal(err)
	}
}
