package workflow

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/closing_backend/config"
	"bitbucket.org/mmdatafocus/closing_backend/models"
	"bitbucket.org/mmdatafocus/closing_backend/utils"
)

func newTestDiscussion(t *testing.T) (*DiscussionLedger, string, *models.Thread) {
	t.Helper()
	store, assetId := newTestEntry(t, models.AssetStatusReview, models.ValidationStatusSuccess, models.EbsStatusPending, true)
	l := NewDiscussionLedger(store, config.GetLogger(), 0)
	thread, err := l.CreateThread(context.Background(), assetId, models.NewThread{
		Author:      "aye.chan",
		Description: "please double check line 2",
	})
	if err != nil {
		t.Fatal(err)
	}
	return l, assetId, thread
}

func reply(t *testing.T, l *DiscussionLedger, assetId, threadId, content string) *models.Reply {
	t.Helper()
	r, err := l.AddReply(context.Background(), assetId, threadId, models.NewReply{
		Author:  "thura.ko",
		Content: content,
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestCreateThreadOnUnknownEntryFails(t *testing.T) {
	store, _ := newTestEntry(t, models.AssetStatusReview, models.ValidationStatusSuccess, models.EbsStatusPending, true)
	l := NewDiscussionLedger(store, config.GetLogger(), 0)

	_, err := l.CreateThread(context.Background(), "no-such-entry", models.NewThread{
		Author: "x", Description: "y",
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound, got %v", err)
	}
}

func TestAtMostOneAcceptedReply(t *testing.T) {
	l, assetId, thread := newTestDiscussion(t)
	ctx := context.Background()

	a := reply(t, l, assetId, thread.ID, "checked, the amount ties out")
	b := reply(t, l, assetId, thread.ID, "correction: it ties after the reclass")

	if err := l.AcceptReply(ctx, assetId, thread.ID, a.ID); err != nil {
		t.Fatal(err)
	}
	if got := thread.AcceptedReply(); got == nil || got.ID != a.ID {
		t.Fatalf("expected reply %s accepted, got %+v", a.ID, got)
	}

	// accepting another reply moves the flag, never duplicates it
	if err := l.AcceptReply(ctx, assetId, thread.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	accepted := 0
	for _, r := range thread.Replies {
		if r.IsAccepted {
			accepted++
		}
	}
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted reply, got %d", accepted)
	}
	if got := thread.AcceptedReply(); got.ID != b.ID {
		t.Fatalf("expected acceptance to move to %s, got %s", b.ID, got.ID)
	}

	if err := l.UnacceptReply(ctx, assetId, thread.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	if thread.AcceptedReply() != nil {
		t.Fatal("expected no accepted reply after unaccept")
	}
}

func TestAcceptUnknownReplyFails(t *testing.T) {
	l, assetId, thread := newTestDiscussion(t)

	err := l.AcceptReply(context.Background(), assetId, thread.ID, "no-such-reply")
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound, got %v", err)
	}
}

func TestResolveReopenLegality(t *testing.T) {
	l, assetId, thread := newTestDiscussion(t)
	ctx := context.Background()

	if err := l.ReopenThread(ctx, assetId, thread.ID); !errors.Is(err, utils.ErrorIllegalTransition) {
		t.Fatalf("reopening an open thread must fail, got %v", err)
	}
	if err := l.ResolveThread(ctx, assetId, thread.ID); err != nil {
		t.Fatal(err)
	}
	if thread.Status != models.ThreadStatusResolved {
		t.Fatalf("expected resolved, got %q", thread.Status)
	}
	if err := l.ResolveThread(ctx, assetId, thread.ID); !errors.Is(err, utils.ErrorIllegalTransition) {
		t.Fatalf("resolving twice must fail, got %v", err)
	}
	if err := l.ReopenThread(ctx, assetId, thread.ID); err != nil {
		t.Fatal(err)
	}
	if thread.Status != models.ThreadStatusOpen {
		t.Fatalf("expected open, got %q", thread.Status)
	}

	// replies still land on a reopened thread
	reply(t, l, assetId, thread.ID, "reopened for the new upload")
	if len(thread.Replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(thread.Replies))
	}
}
