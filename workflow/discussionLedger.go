package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/closing_backend/config"
	"bitbucket.org/mmdatafocus/closing_backend/models"
	"bitbucket.org/mmdatafocus/closing_backend/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DiscussionLedger owns the threaded discussions of each entry. Every
// mutation simulates network latency first and then applies atomically
// under the entry lock, so no partial write is ever visible mid-flight.
type DiscussionLedger struct {
	store   *models.Store
	logger  *logrus.Logger
	latency time.Duration
}

func NewDiscussionLedger(store *models.Store, logger *logrus.Logger, latency time.Duration) *DiscussionLedger {
	return &DiscussionLedger{store: store, logger: logger, latency: latency}
}

func (l *DiscussionLedger) CreateThread(ctx context.Context, assetId string, input models.NewThread) (*models.Thread, error) {
	if _, err := l.store.Asset(assetId); err != nil {
		return nil, err
	}
	t := &models.Thread{
		ID:          uuid.NewString(),
		AssetId:     assetId,
		Status:      models.ThreadStatusOpen,
		Author:      input.Author,
		Description: input.Description,
		Replies:     []*models.Reply{},
		CreatedAt:   time.Now().UTC(),
	}
	sleep(l.latency)
	err := l.store.WithEntry(assetId, func() error {
		return l.store.AppendThread(assetId, t)
	})
	if err != nil {
		config.LogError(l.logger, moduleName, "CreateThread", assetId, input, err)
		return nil, err
	}
	return t, nil
}

func (l *DiscussionLedger) AddReply(ctx context.Context, assetId, threadId string, input models.NewReply) (*models.Reply, error) {
	if _, err := l.store.Thread(assetId, threadId); err != nil {
		return nil, err
	}
	r := &models.Reply{
		ID:          uuid.NewString(),
		Author:      input.Author,
		Content:     input.Content,
		Attachments: input.Attachments,
		CreatedAt:   time.Now().UTC(),
	}
	sleep(l.latency)
	err := l.store.WithEntry(assetId, func() error {
		t, err := l.store.Thread(assetId, threadId)
		if err != nil {
			return err
		}
		t.Replies = append(t.Replies, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// AcceptReply marks one reply as the accepted answer. Acceptance on all
// sibling replies is cleared first inside the same critical section, so
// the thread can never hold two accepted replies.
func (l *DiscussionLedger) AcceptReply(ctx context.Context, assetId, threadId, replyId string) error {
	sleep(l.latency)
	return l.store.WithEntry(assetId, func() error {
		t, err := l.store.Thread(assetId, threadId)
		if err != nil {
			return err
		}
		target := t.ReplyById(replyId)
		if target == nil {
			return utils.ErrorRecordNotFound
		}
		for _, r := range t.Replies {
			r.IsAccepted = false
		}
		target.IsAccepted = true
		return nil
	})
}

func (l *DiscussionLedger) UnacceptReply(ctx context.Context, assetId, threadId, replyId string) error {
	sleep(l.latency)
	return l.store.WithEntry(assetId, func() error {
		t, err := l.store.Thread(assetId, threadId)
		if err != nil {
			return err
		}
		target := t.ReplyById(replyId)
		if target == nil {
			return utils.ErrorRecordNotFound
		}
		target.IsAccepted = false
		return nil
	})
}

func (l *DiscussionLedger) ResolveThread(ctx context.Context, assetId, threadId string) error {
	return l.setThreadStatus(assetId, threadId, models.ThreadStatusOpen, models.ThreadStatusResolved)
}

func (l *DiscussionLedger) ReopenThread(ctx context.Context, assetId, threadId string) error {
	return l.setThreadStatus(assetId, threadId, models.ThreadStatusResolved, models.ThreadStatusOpen)
}

func (l *DiscussionLedger) setThreadStatus(assetId, threadId string, from, to models.ThreadStatus) error {
	sleep(l.latency)
	return l.store.WithEntry(assetId, func() error {
		t, err := l.store.Thread(assetId, threadId)
		if err != nil {
			return err
		}
		if t.Status != from {
			return utils.ErrorIllegalTransition
		}
		t.Status = to
		return nil
	})
}
