package workflow

import (
	"context"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/closing_backend/models"
	"bitbucket.org/mmdatafocus/closing_backend/stream"
	"bitbucket.org/mmdatafocus/closing_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FindingsLedger drives the per-entry AI findings document. Status moves
// forward only (NotStarted -> Generated -> Finalized); starting a new
// generation run drops a Finalized document back to Generated. The
// findings stream slot is independent of the check-test slot.
type FindingsLedger struct {
	store  *models.Store
	logger *logrus.Logger
	preset stream.Preset

	mu        sync.Mutex
	streaming map[string]bool            // assetId -> generation active
	sessions  map[string]*stream.Session // assetId -> active session
	subs      map[string][]chan string
}

func NewFindingsLedger(store *models.Store, logger *logrus.Logger, preset stream.Preset) *FindingsLedger {
	return &FindingsLedger{
		store:     store,
		logger:    logger,
		preset:    preset,
		streaming: map[string]bool{},
		sessions:  map[string]*stream.Session{},
		subs:      map[string][]chan string{},
	}
}

// Generate starts streaming a findings document for the entry. A second
// call while one is active is rejected.
func (l *FindingsLedger) Generate(ctx context.Context, assetId string) error {
	_, span := tracer.Start(ctx, "findings.generate",
		trace.WithAttributes(attribute.String("asset.id", assetId)))
	defer span.End()

	if _, err := l.store.Findings(assetId); err != nil {
		return err
	}

	l.mu.Lock()
	if l.streaming[assetId] {
		l.mu.Unlock()
		return utils.ErrorStreamBusy
	}
	l.streaming[assetId] = true
	l.mu.Unlock()

	session := stream.Start(cannedFindings, l.preset, stream.Hooks{
		OnThinking: func() {
			l.store.WithEntry(assetId, func() error {
				f, err := l.store.Findings(assetId)
				if err != nil {
					return err
				}
				// a new run resets any earlier adoption
				f.Status = models.FindingsStatusNotStarted
				f.Content = ""
				f.GeneratedAt = nil
				return nil
			})
		},
		OnUpdate: func(buffer string) {
			l.store.WithEntry(assetId, func() error {
				if f, err := l.store.Findings(assetId); err == nil {
					f.Content = buffer
				}
				return nil
			})
			l.publish(assetId, buffer)
		},
		OnComplete: func(full string) {
			l.store.WithEntry(assetId, func() error {
				f, err := l.store.Findings(assetId)
				if err != nil {
					return err
				}
				now := time.Now().UTC()
				f.Content = full
				f.Status = models.FindingsStatusGenerated
				f.GeneratedAt = &now
				return nil
			})
			l.logger.WithFields(logrus.Fields{
				"module":  moduleName,
				"assetId": assetId,
			}).Info("findings generated")
			l.finish(assetId)
		},
	})

	// The run may already have completed and released the slot. Only
	// register the session while the slot is still held, or a stale
	// entry would linger in the map.
	l.mu.Lock()
	if l.streaming[assetId] {
		l.sessions[assetId] = session
	}
	l.mu.Unlock()
	return nil
}

// StopGeneration cancels an active findings stream. The partial content
// stays visible but the status remains NotStarted.
func (l *FindingsLedger) StopGeneration(ctx context.Context, assetId string) error {
	l.mu.Lock()
	session := l.sessions[assetId]
	l.mu.Unlock()
	if session == nil {
		return utils.ErrorRecordNotFound
	}
	session.Stop()
	l.finish(assetId)
	return nil
}

// Finalize adopts a generated findings document. Legal only from
// Generated.
func (l *FindingsLedger) Finalize(ctx context.Context, assetId string) error {
	return l.store.WithEntry(assetId, func() error {
		f, err := l.store.Findings(assetId)
		if err != nil {
			return err
		}
		if f.Status != models.FindingsStatusGenerated {
			return utils.ErrorIllegalTransition
		}
		f.Status = models.FindingsStatusFinalized
		return nil
	})
}

// Generating reports whether the entry's findings stream is active.
func (l *FindingsLedger) Generating(assetId string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.streaming[assetId]
}

// Subscribe attaches a content listener (SSE surface); the channel
// closes when generation completes or stops.
func (l *FindingsLedger) Subscribe(assetId string) (<-chan string, func()) {
	ch := make(chan string, 16)
	l.mu.Lock()
	l.subs[assetId] = append(l.subs[assetId], ch)
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		chans := l.subs[assetId]
		for i, c := range chans {
			if c == ch {
				l.subs[assetId] = append(chans[:i], chans[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

func (l *FindingsLedger) publish(assetId, buffer string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.subs[assetId] {
		select {
		case ch <- buffer:
		default:
		}
	}
}

func (l *FindingsLedger) finish(assetId string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.streaming, assetId)
	delete(l.sessions, assetId)
	for _, ch := range l.subs[assetId] {
		close(ch)
	}
	delete(l.subs, assetId)
}
