package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/closing_backend/config"
	"bitbucket.org/mmdatafocus/closing_backend/models"
	"bitbucket.org/mmdatafocus/closing_backend/stream"
	"bitbucket.org/mmdatafocus/closing_backend/utils"
)

func newTestFindingsLedger(t *testing.T, preset stream.Preset) (*FindingsLedger, *models.Store, string) {
	t.Helper()
	store, assetId := newTestEntry(t, models.AssetStatusReview, models.ValidationStatusSuccess, models.EbsStatusPending, true)
	return NewFindingsLedger(store, config.GetLogger(), preset), store, assetId
}

func waitForGeneration(t *testing.T, l *FindingsLedger, assetId string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for l.Generating(assetId) {
		if time.Now().After(deadline) {
			t.Fatal("generation never finished")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestGenerateProducesGeneratedDocument(t *testing.T) {
	l, store, assetId := newTestFindingsLedger(t, fastStreamPreset())
	ctx := context.Background()

	if err := l.Generate(ctx, assetId); err != nil {
		t.Fatal(err)
	}
	waitForGeneration(t, l, assetId)

	f, err := store.Findings(assetId)
	if err != nil {
		t.Fatal(err)
	}
	if f.Status != models.FindingsStatusGenerated {
		t.Fatalf("expected Generated, got %q", f.Status)
	}
	if f.Content == "" || f.GeneratedAt == nil {
		t.Fatalf("expected content and timestamp, got %+v", f)
	}
}

func TestGenerateRejectsConcurrentRun(t *testing.T) {
	slow := stream.Preset{ThinkingDelay: 200 * time.Millisecond, MaxDelay: time.Millisecond}
	l, _, assetId := newTestFindingsLedger(t, slow)
	ctx := context.Background()

	if err := l.Generate(ctx, assetId); err != nil {
		t.Fatal(err)
	}
	if err := l.Generate(ctx, assetId); !errors.Is(err, utils.ErrorStreamBusy) {
		t.Fatalf("expected ErrorStreamBusy, got %v", err)
	}
	if err := l.StopGeneration(ctx, assetId); err != nil {
		t.Fatal(err)
	}
}

func TestStopGenerationLeavesStatusNotStarted(t *testing.T) {
	slow := stream.Preset{ThinkingDelay: 200 * time.Millisecond, MaxDelay: time.Millisecond}
	l, store, assetId := newTestFindingsLedger(t, slow)
	ctx := context.Background()

	if err := l.Generate(ctx, assetId); err != nil {
		t.Fatal(err)
	}
	if err := l.StopGeneration(ctx, assetId); err != nil {
		t.Fatal(err)
	}
	if l.Generating(assetId) {
		t.Fatal("stop must clear the generating flag")
	}

	f, err := store.Findings(assetId)
	if err != nil {
		t.Fatal(err)
	}
	if f.Status != models.FindingsStatusNotStarted {
		t.Fatalf("cancelled run must not advance status, got %q", f.Status)
	}
	if err := l.Finalize(ctx, assetId); !errors.Is(err, utils.ErrorIllegalTransition) {
		t.Fatalf("finalize must be illegal after a cancelled run, got %v", err)
	}

	if err := l.StopGeneration(ctx, assetId); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound with nothing streaming, got %v", err)
	}
}

func TestCompletedGenerationLeavesNoSession(t *testing.T) {
	// All-zero pacing: the run can finish before Generate's caller
	// resumes, which used to re-register a session for a finished run.
	l, _, assetId := newTestFindingsLedger(t, stream.Preset{})
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if err := l.Generate(ctx, assetId); err != nil {
			t.Fatal(err)
		}
		waitForGeneration(t, l, assetId)

		l.mu.Lock()
		_, stale := l.sessions[assetId]
		l.mu.Unlock()
		if stale {
			t.Fatal("finished run left a session registered")
		}
	}
}

func TestFinalizeAndRegenerate(t *testing.T) {
	l, store, assetId := newTestFindingsLedger(t, fastStreamPreset())
	ctx := context.Background()

	if err := l.Finalize(ctx, assetId); !errors.Is(err, utils.ErrorIllegalTransition) {
		t.Fatalf("finalize before generation must fail, got %v", err)
	}

	if err := l.Generate(ctx, assetId); err != nil {
		t.Fatal(err)
	}
	waitForGeneration(t, l, assetId)
	if err := l.Finalize(ctx, assetId); err != nil {
		t.Fatal(err)
	}
	f, _ := store.Findings(assetId)
	if f.Status != models.FindingsStatusFinalized {
		t.Fatalf("expected Finalized, got %q", f.Status)
	}
	if err := l.Finalize(ctx, assetId); !errors.Is(err, utils.ErrorIllegalTransition) {
		t.Fatalf("finalizing twice must fail, got %v", err)
	}

	// a new run drops the adopted document back to Generated
	if err := l.Generate(ctx, assetId); err != nil {
		t.Fatal(err)
	}
	waitForGeneration(t, l, assetId)
	f, _ = store.Findings(assetId)
	if f.Status != models.FindingsStatusGenerated {
		t.Fatalf("regeneration must reset adoption, got %q", f.Status)
	}
}
