package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/closing_backend/config"
	"bitbucket.org/mmdatafocus/closing_backend/models"
	"bitbucket.org/mmdatafocus/closing_backend/stream"
	"bitbucket.org/mmdatafocus/closing_backend/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CheckLedger owns the quality checks of every journal entry: creation,
// acknowledge/unacknowledge, the manual override path, and AI re-runs
// through the stream engine. One AI stream per entry may be active; the
// slot is a single value, not a queue.
type CheckLedger struct {
	store     *models.Store
	logger    *logrus.Logger
	saveDelay time.Duration
	preset    stream.Preset

	mu             sync.Mutex
	streamingCheck map[string]string          // assetId -> checkId
	sessions       map[string]*stream.Session // checkId -> active session
	subs           map[string][]chan string   // checkId -> buffer subscribers
	saving         map[string]bool            // checkId -> prompt save in flight
}

func NewCheckLedger(store *models.Store, logger *logrus.Logger, saveDelay time.Duration, preset stream.Preset) *CheckLedger {
	return &CheckLedger{
		store:          store,
		logger:         logger,
		saveDelay:      saveDelay,
		preset:         preset,
		streamingCheck: map[string]string{},
		sessions:       map[string]*stream.Session{},
		subs:           map[string][]chan string{},
		saving:         map[string]bool{},
	}
}

// AddCheck creates a check on the entry. Manual checks start with a
// Failed system result, which reads as "pending user action"; System and
// AI checks start passed. Acknowledged always starts false.
func (l *CheckLedger) AddCheck(ctx context.Context, assetId string, input models.NewQualityCheck) (*models.QualityCheck, error) {
	_, span := tracer.Start(ctx, "checks.add",
		trace.WithAttributes(attribute.String("asset.id", assetId)))
	defer span.End()

	c := &models.QualityCheck{
		ID:          uuid.NewString(),
		AssetId:     assetId,
		Assertion:   input.Assertion,
		Title:       input.Title,
		Description: input.Description,
		Type:        input.Type,
		Prompt:      input.Prompt,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	switch input.Type {
	case models.CheckTypeManual:
		c.SystemResult = models.CheckResultFailed
	default:
		c.SystemResult = models.CheckResultPass
	}

	err := l.store.WithEntry(assetId, func() error {
		return l.store.AppendCheck(assetId, c)
	})
	if err != nil {
		config.LogError(l.logger, moduleName, "AddCheck", assetId, input, err)
		return nil, err
	}
	return c, nil
}

// AcknowledgeCheck marks a passed result as reviewed. Legal only while
// the system result is Pass; anything else is rejected untouched.
func (l *CheckLedger) AcknowledgeCheck(ctx context.Context, assetId, checkId string) error {
	return l.setAcknowledged(ctx, assetId, checkId, true)
}

func (l *CheckLedger) UnacknowledgeCheck(ctx context.Context, assetId, checkId string) error {
	return l.setAcknowledged(ctx, assetId, checkId, false)
}

func (l *CheckLedger) setAcknowledged(ctx context.Context, assetId, checkId string, value bool) error {
	return l.store.WithEntry(assetId, func() error {
		c, err := l.store.Check(assetId, checkId)
		if err != nil {
			return err
		}
		if c.SystemResult != models.CheckResultPass {
			return utils.ErrorIllegalTransition
		}
		c.Acknowledged = value
		c.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// AcknowledgeAll bulk-acknowledges every check whose result can be
// acknowledged (system Pass or user Pass). Returns how many changed.
func (l *CheckLedger) AcknowledgeAll(ctx context.Context, assetId string) (int, error) {
	changed := 0
	err := l.store.WithEntry(assetId, func() error {
		checks, err := l.store.Checks(assetId)
		if err != nil {
			return err
		}
		for _, c := range checks {
			if c.SystemResult != models.CheckResultPass && c.UserResult != models.CheckResultPass {
				continue
			}
			if !c.Acknowledged {
				c.Acknowledged = true
				c.UpdatedAt = time.Now().UTC()
				changed++
			}
		}
		return nil
	})
	return changed, err
}

// MarkSuccess is the override path for a failed result and the
// completion path for manual checks. The attestation is mandatory.
func (l *CheckLedger) MarkSuccess(ctx context.Context, assetId, checkId, attestation string) error {
	if attestation == "" {
		return utils.ErrorAttestationRequired
	}
	return l.store.WithEntry(assetId, func() error {
		c, err := l.store.Check(assetId, checkId)
		if err != nil {
			return err
		}
		c.UserResult = models.CheckResultPass
		c.Attestation = attestation
		c.Acknowledged = true
		c.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// RevertUserResult undoes MarkSuccess, returning the check to its
// pre-override state.
func (l *CheckLedger) RevertUserResult(ctx context.Context, assetId, checkId string) error {
	return l.store.WithEntry(assetId, func() error {
		c, err := l.store.Check(assetId, checkId)
		if err != nil {
			return err
		}
		c.UserResult = ""
		c.Attestation = ""
		c.Acknowledged = false
		c.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// UpdatePrompt writes the local edit buffer; nothing is committed until
// SavePrompt.
func (l *CheckLedger) UpdatePrompt(ctx context.Context, assetId, checkId, text string) error {
	return l.store.WithEntry(assetId, func() error {
		c, err := l.store.Check(assetId, checkId)
		if err != nil {
			return err
		}
		if c.Type != models.CheckTypeAI {
			return utils.ErrorIllegalTransition
		}
		c.PromptDraft = text
		return nil
	})
}

// SavePrompt commits the edit buffer after the simulated persistence
// delay. One save per check may be in flight.
func (l *CheckLedger) SavePrompt(ctx context.Context, assetId, checkId string) error {
	l.mu.Lock()
	if l.saving[checkId] {
		l.mu.Unlock()
		return utils.ErrorOperationInFlight
	}
	l.saving[checkId] = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.saving, checkId)
		l.mu.Unlock()
	}()

	if _, err := l.store.Check(assetId, checkId); err != nil {
		return err
	}
	sleep(l.saveDelay)

	return l.store.WithEntry(assetId, func() error {
		c, err := l.store.Check(assetId, checkId)
		if err != nil {
			return err
		}
		if c.Type != models.CheckTypeAI {
			return utils.ErrorIllegalTransition
		}
		if c.PromptDraft != "" {
			c.Prompt = c.PromptDraft
			c.PromptDraft = ""
		}
		c.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// TestAiCheck re-runs an AI check: streams the canned verifier text for
// the check's assertion into AiResult, then applies the canned outcome
// and resets any user override so the new result gets re-reviewed.
func (l *CheckLedger) TestAiCheck(ctx context.Context, assetId, checkId string) error {
	_, span := tracer.Start(ctx, "checks.testAi",
		trace.WithAttributes(attribute.String("asset.id", assetId), attribute.String("check.id", checkId)))
	defer span.End()

	var assertion models.Assertion
	err := l.store.WithEntry(assetId, func() error {
		c, err := l.store.Check(assetId, checkId)
		if err != nil {
			return err
		}
		if c.Type != models.CheckTypeAI {
			return errors.New("only AI checks can be tested")
		}
		assertion = c.Assertion
		return nil
	})
	if err != nil {
		return err
	}

	l.mu.Lock()
	if l.streamingCheck[assetId] != "" {
		l.mu.Unlock()
		return utils.ErrorStreamBusy
	}
	l.streamingCheck[assetId] = checkId
	l.mu.Unlock()

	canned := cannedResponseFor(assertion)

	session := stream.Start(canned.Text, l.preset, stream.Hooks{
		OnThinking: func() {
			l.store.WithEntry(assetId, func() error {
				if c, err := l.store.Check(assetId, checkId); err == nil {
					c.AiResult = ""
				}
				return nil
			})
		},
		OnUpdate: func(buffer string) {
			l.store.WithEntry(assetId, func() error {
				if c, err := l.store.Check(assetId, checkId); err == nil {
					c.AiResult = buffer
				}
				return nil
			})
			l.publish(checkId, buffer)
		},
		OnComplete: func(full string) {
			l.store.WithEntry(assetId, func() error {
				c, err := l.store.Check(assetId, checkId)
				if err != nil {
					return err
				}
				c.AiResult = full
				c.SystemResult = canned.Result
				// a re-run invalidates any earlier review
				c.UserResult = ""
				c.Attestation = ""
				c.Acknowledged = false
				c.UpdatedAt = time.Now().UTC()
				return nil
			})
			l.logger.WithFields(logrus.Fields{
				"module":  moduleName,
				"assetId": assetId,
				"checkId": checkId,
				"result":  canned.Result,
			}).Info("ai check completed")
			l.finishStream(assetId, checkId)
		},
	})

	// A short run can complete, and finishStream can release the slot,
	// before we get here. Only register the session while the slot is
	// still ours, or a stale entry would linger in the map.
	l.mu.Lock()
	if l.streamingCheck[assetId] == checkId {
		l.sessions[checkId] = session
	}
	l.mu.Unlock()
	return nil
}

// StopAiTest cancels the entry's active AI stream, keeping whatever
// partial text already accumulated. Results are left untouched.
func (l *CheckLedger) StopAiTest(ctx context.Context, assetId string) error {
	l.mu.Lock()
	checkId := l.streamingCheck[assetId]
	session := l.sessions[checkId]
	l.mu.Unlock()
	if checkId == "" || session == nil {
		return utils.ErrorRecordNotFound
	}
	// Stop outside l.mu: it blocks on in-flight hooks which take l.mu.
	session.Stop()
	l.finishStream(assetId, checkId)
	return nil
}

// StreamingCheckId returns the entry's active streaming check, if any.
func (l *CheckLedger) StreamingCheckId(assetId string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.streamingCheck[assetId]
}

// Subscribe attaches a buffer listener for the check's stream (SSE
// surface). The channel closes when the stream completes or stops.
func (l *CheckLedger) Subscribe(checkId string) (<-chan string, func()) {
	ch := make(chan string, 16)
	l.mu.Lock()
	l.subs[checkId] = append(l.subs[checkId], ch)
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		chans := l.subs[checkId]
		for i, c := range chans {
			if c == ch {
				l.subs[checkId] = append(chans[:i], chans[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

func (l *CheckLedger) publish(checkId, buffer string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.subs[checkId] {
		select {
		case ch <- buffer:
		default:
			// slow subscriber: drop, it will catch up on the next snapshot
		}
	}
}

func (l *CheckLedger) finishStream(assetId, checkId string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.streamingCheck[assetId] == checkId {
		delete(l.streamingCheck, assetId)
	}
	delete(l.sessions, checkId)
	for _, ch := range l.subs[checkId] {
		close(ch)
	}
	delete(l.subs, checkId)
}
