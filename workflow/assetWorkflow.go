package workflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/closing_backend/config"
	"bitbucket.org/mmdatafocus/closing_backend/models"
	"bitbucket.org/mmdatafocus/closing_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const moduleName = "workflow"

var tracer = otel.Tracer("closing-backend")

// ControllerConfig carries the timing knobs for the async transitions.
type ControllerConfig struct {
	// ValidateDelay is how long validation stays in VALIDATING.
	ValidateDelay time.Duration
	// EbsSettleDelay is the settle time before the auto-triggered
	// EBS upload completion.
	EbsSettleDelay time.Duration
}

// Controller owns the journal entry lifecycle: which transition is legal
// from which state, and the side effects that follow. One operation per
// (entry, action) may be in flight at a time; a concurrent duplicate is
// rejected with ErrorOperationInFlight so the caller can keep its
// triggering control disabled.
type Controller struct {
	store  *models.Store
	logger *logrus.Logger
	cfg    ControllerConfig

	mu        sync.Mutex
	inflight  map[string]bool
	ebsTimers map[string]*time.Timer

	listeners []func(assetId string, ref models.StatusRef)
}

func NewController(store *models.Store, logger *logrus.Logger, cfg ControllerConfig) *Controller {
	return &Controller{
		store:     store,
		logger:    logger,
		cfg:       cfg,
		inflight:  map[string]bool{},
		ebsTimers: map[string]*time.Timer{},
	}
}

// OnStatusChange registers a listener for status transitions (used by
// the SSE surface). Register before serving; not synchronized against
// concurrent transitions.
func (w *Controller) OnStatusChange(fn func(assetId string, ref models.StatusRef)) {
	w.listeners = append(w.listeners, fn)
}

// Apply dispatches a transport action verb onto the matching operation.
func (w *Controller) Apply(ctx context.Context, assetId string, action models.WorkflowAction, reason string) error {
	switch action {
	case models.WorkflowActionValidate:
		return w.Validate(ctx, assetId)
	case models.WorkflowActionSubmit:
		return w.SubmitForReview(ctx, assetId)
	case models.WorkflowActionRevert:
		return w.Revert(ctx, assetId)
	case models.WorkflowActionApprove:
		return w.Approve(ctx, assetId)
	case models.WorkflowActionReject:
		return w.Reject(ctx, assetId, reason)
	case models.WorkflowActionReverse:
		return w.Reverse(ctx, assetId)
	case models.WorkflowActionCompleteEbsUpload:
		return w.CompleteEbsUpload(ctx, assetId)
	}
	return errors.New("invalid workflow action")
}

// Validate runs the preparation gate: VALIDATING for the configured
// delay, then SUCCESS (and promotion to SUBMISSION) when the entry
// balances, or FAILED with a reason while the entry stays put. A failed
// validation is a business outcome, not an error return.
func (w *Controller) Validate(ctx context.Context, assetId string) error {
	_, span := tracer.Start(ctx, "workflow.validate",
		trace.WithAttributes(attribute.String("asset.id", assetId)))
	defer span.End()

	if err := w.begin(assetId, models.WorkflowActionValidate); err != nil {
		return err
	}
	defer w.end(assetId, models.WorkflowActionValidate)

	err := w.store.WithEntry(assetId, func() error {
		a, err := w.store.Asset(assetId)
		if err != nil {
			return err
		}
		if a.Status != models.AssetStatusPreparation {
			return utils.ErrorIllegalTransition
		}
		a.ValidationStatus = models.ValidationStatusValidating
		w.store.Touch(assetId)
		return nil
	})
	if err != nil {
		return err
	}
	w.notify(assetId)

	// Once scheduled the resolution runs to completion; validation has
	// no cancellation point.
	sleep(w.cfg.ValidateDelay)

	err = w.store.WithEntry(assetId, func() error {
		a, err := w.store.Asset(assetId)
		if err != nil {
			return err
		}
		if a.Status != models.AssetStatusPreparation || a.ValidationStatus != models.ValidationStatusValidating {
			return nil
		}
		if a.Balanced() {
			a.ValidationStatus = models.ValidationStatusSuccess
			a.Status = models.AssetStatusSubmission
			a.RejectionReason = ""
		} else {
			a.ValidationStatus = models.ValidationStatusFailed
			a.RejectionReason = validationFailureReason(a)
		}
		w.store.Touch(assetId)
		w.logger.WithFields(logrus.Fields{
			"module":  moduleName,
			"assetId": assetId,
			"outcome": a.ValidationStatus,
		}).Info("validation resolved")
		return nil
	})
	if err != nil {
		config.LogError(w.logger, moduleName, "Validate", assetId, nil, err)
		return err
	}
	w.notify(assetId)
	return nil
}

func validationFailureReason(a *models.Asset) string {
	if len(a.Lines) == 0 {
		return "journal entry has no lines"
	}
	return "journal entry is not balanced: debits " + a.TotalDebit().StringFixed(2) +
		", credits " + a.TotalCredit().StringFixed(2)
}

// SubmitForReview moves SUBMISSION -> REVIEW.
func (w *Controller) SubmitForReview(ctx context.Context, assetId string) error {
	return w.transition(ctx, assetId, models.WorkflowActionSubmit, func(a *models.Asset) error {
		if a.Status != models.AssetStatusSubmission {
			return utils.ErrorIllegalTransition
		}
		a.Status = models.AssetStatusReview
		return nil
	})
}

// Revert moves SUBMISSION back to PREPARATION. Validation and EBS
// sub-states are left untouched.
func (w *Controller) Revert(ctx context.Context, assetId string) error {
	return w.transition(ctx, assetId, models.WorkflowActionRevert, func(a *models.Asset) error {
		if a.Status != models.AssetStatusSubmission {
			return utils.ErrorIllegalTransition
		}
		a.Status = models.AssetStatusPreparation
		return nil
	})
}

// Approve moves REVIEW -> EBS_UPLOAD(UPLOADING) and schedules the
// auto-triggered completion after the settle delay.
func (w *Controller) Approve(ctx context.Context, assetId string) error {
	err := w.transition(ctx, assetId, models.WorkflowActionApprove, func(a *models.Asset) error {
		if a.Status != models.AssetStatusReview {
			return utils.ErrorIllegalTransition
		}
		a.Status = models.AssetStatusEbsUpload
		a.EbsStatus = models.EbsStatusUploading
		if user, ok := utils.GetUsernameFromContext(ctx); ok {
			a.ReviewedBy = user
		}
		return nil
	})
	if err != nil {
		return err
	}
	w.scheduleEbsSettle(assetId)
	return nil
}

// Reject moves REVIEW back to PREPARATION and records the reason. The
// reason surfaces as a persistent banner on the entry.
func (w *Controller) Reject(ctx context.Context, assetId string, reason string) error {
	return w.transition(ctx, assetId, models.WorkflowActionReject, func(a *models.Asset) error {
		if a.Status != models.AssetStatusReview {
			return utils.ErrorIllegalTransition
		}
		a.Status = models.AssetStatusPreparation
		if reason == "" {
			reason = "rejected by reviewer"
		}
		a.RejectionReason = reason
		if user, ok := utils.GetUsernameFromContext(ctx); ok {
			a.ReviewedBy = user
		}
		return nil
	})
}

// CompleteEbsUpload finishes the posting step. Normally invoked by the
// settle timer; the explicit path exists for the transport and cancels
// the pending timer so the effect applies exactly once per sojourn.
func (w *Controller) CompleteEbsUpload(ctx context.Context, assetId string) error {
	err := w.transition(ctx, assetId, models.WorkflowActionCompleteEbsUpload, func(a *models.Asset) error {
		if a.Status != models.AssetStatusEbsUpload || a.EbsStatus != models.EbsStatusUploading {
			return utils.ErrorIllegalTransition
		}
		a.EbsStatus = models.EbsStatusSuccess
		return nil
	})
	if err != nil {
		return err
	}
	w.cancelEbsSettle(assetId)
	return nil
}

// Reverse rolls the whole workflow back to a fresh PREPARATION. Posted
// entries are not deleted downstream; this is compensating-transaction
// semantics for the demo flow, legal only once the EBS upload succeeded.
func (w *Controller) Reverse(ctx context.Context, assetId string) error {
	err := w.transition(ctx, assetId, models.WorkflowActionReverse, func(a *models.Asset) error {
		if a.EbsStatus != models.EbsStatusSuccess {
			return utils.ErrorIllegalTransition
		}
		a.Status = models.AssetStatusPreparation
		a.ValidationStatus = models.ValidationStatusPending
		a.EbsStatus = models.EbsStatusPending
		a.RejectionReason = ""
		return nil
	})
	if err != nil {
		return err
	}
	w.cancelEbsSettle(assetId)
	return nil
}

// transition is the shared shape of the synchronous operations: guard
// duplicate invocation, apply the mutation under the entry lock, notify.
func (w *Controller) transition(ctx context.Context, assetId string, action models.WorkflowAction, apply func(*models.Asset) error) error {
	_, span := tracer.Start(ctx, "workflow."+string(action),
		trace.WithAttributes(attribute.String("asset.id", assetId)))
	defer span.End()

	if err := w.begin(assetId, action); err != nil {
		return err
	}
	defer w.end(assetId, action)

	err := w.store.WithEntry(assetId, func() error {
		a, err := w.store.Asset(assetId)
		if err != nil {
			return err
		}
		before := a.Status
		if err := apply(a); err != nil {
			return err
		}
		w.store.Touch(assetId)
		fields := logrus.Fields{
			"module":  moduleName,
			"assetId": assetId,
			"action":  action,
			"from":    before,
			"to":      a.Status,
		}
		if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
			fields["correlationId"] = cid
		}
		if user, ok := utils.GetUsernameFromContext(ctx); ok {
			fields["user"] = user
		}
		w.logger.WithFields(fields).Info("workflow transition")
		return nil
	})
	if err != nil {
		if !errors.Is(err, utils.ErrorIllegalTransition) {
			config.LogError(w.logger, moduleName, string(action), assetId, nil, err)
		}
		return err
	}
	w.notify(assetId)
	return nil
}

// scheduleEbsSettle arms the delayed auto-completion for the current
// EBS_UPLOAD sojourn. The timer map doubles as the triggered-once guard:
// a second schedule while a timer is armed is a no-op, and leaving the
// state disarms it.
func (w *Controller) scheduleEbsSettle(assetId string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, armed := w.ebsTimers[assetId]; armed {
		return
	}
	w.ebsTimers[assetId] = time.AfterFunc(w.cfg.EbsSettleDelay, func() {
		w.autoCompleteEbs(assetId)
	})
}

func (w *Controller) cancelEbsSettle(assetId string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.ebsTimers[assetId]; ok {
		t.Stop()
		delete(w.ebsTimers, assetId)
	}
}

func (w *Controller) autoCompleteEbs(assetId string) {
	w.mu.Lock()
	delete(w.ebsTimers, assetId)
	w.mu.Unlock()

	err := w.store.WithEntry(assetId, func() error {
		a, err := w.store.Asset(assetId)
		if err != nil {
			return err
		}
		// re-check: the entry may have left the state while settling
		if a.Status != models.AssetStatusEbsUpload || a.EbsStatus != models.EbsStatusUploading {
			return nil
		}
		a.EbsStatus = models.EbsStatusSuccess
		w.store.Touch(assetId)
		w.logger.WithFields(logrus.Fields{
			"module":  moduleName,
			"assetId": assetId,
		}).Info("ebs upload settled")
		return nil
	})
	if err != nil {
		config.LogError(w.logger, moduleName, "autoCompleteEbs", assetId, nil, err)
		return
	}
	w.notify(assetId)
}

func (w *Controller) begin(assetId string, action models.WorkflowAction) error {
	key := assetId + "|" + string(action)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inflight[key] {
		return utils.ErrorOperationInFlight
	}
	w.inflight[key] = true
	return nil
}

func (w *Controller) end(assetId string, action models.WorkflowAction) {
	key := assetId + "|" + string(action)
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inflight, key)
}

func (w *Controller) notify(assetId string) {
	ref, err := w.store.StatusRef(assetId)
	if err != nil {
		config.LogError(w.logger, moduleName, "notify", assetId, nil, err)
		return
	}
	for _, fn := range w.listeners {
		fn(assetId, ref)
	}
}

func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
