package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bitbucket.org/mmdatafocus/closing_backend/models"
	"bitbucket.org/mmdatafocus/closing_backend/utils"
	"bitbucket.org/mmdatafocus/closing_backend/workflow"
)

func (a *app) routes(r *gin.Engine) {
	assets := r.Group("/assets")
	{
		assets.GET("", a.listAssets)
		assets.GET("/:id", a.getAsset)
		assets.PATCH("/:id/status", a.patchStatus)
		assets.GET("/:id/status/stream", a.streamStatus)
		assets.GET("/:id/progress", a.getProgress)

		assets.POST("/:id/checks", a.addCheck)
		assets.POST("/:id/checks/acknowledge-all", a.acknowledgeAll)
		assets.POST("/:id/checks/:checkId/acknowledge", a.acknowledgeCheck)
		assets.POST("/:id/checks/:checkId/unacknowledge", a.unacknowledgeCheck)
		assets.POST("/:id/checks/:checkId/success", a.markCheckSuccess)
		assets.POST("/:id/checks/:checkId/revert-user-result", a.revertUserResult)
		assets.POST("/:id/checks/:checkId/test", a.testAiCheck)
		assets.POST("/:id/checks/:checkId/stop", a.stopAiTest)
		assets.POST("/:id/checks/:checkId/prompt", a.savePrompt)
		assets.GET("/:id/checks/:checkId/stream", a.streamCheck)

		assets.POST("/:id/uploads/:uploadId/attach", a.attachUpload)
		assets.POST("/:id/uploads/:uploadId/detach", a.detachUpload)

		assets.POST("/:id/threads", a.createThread)
		assets.POST("/:id/threads/:threadId/replies", a.addReply)
		assets.POST("/:id/threads/:threadId/replies/:replyId/accept", a.acceptReply)
		assets.POST("/:id/threads/:threadId/replies/:replyId/unaccept", a.unacceptReply)
		assets.POST("/:id/threads/:threadId/resolve", a.resolveThread)
		assets.POST("/:id/threads/:threadId/reopen", a.reopenThread)

		assets.POST("/:id/findings/generate", a.generateFindings)
		assets.POST("/:id/findings/stop", a.stopFindings)
		assets.POST("/:id/findings/finalize", a.finalizeFindings)
		assets.GET("/:id/findings/stream", a.streamFindings)
	}
	r.GET("/periods", a.listPeriods)
}

// respondError maps the error taxonomy onto transport codes: conflicts
// (illegal transition, duplicate op, busy stream) are 409, missing
// records 404, invalid input 422, everything else 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorIllegalTransition),
		errors.Is(err, utils.ErrorOperationInFlight),
		errors.Is(err, utils.ErrorStreamBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorAttestationRequired):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// bindJSON binds the request body and writes the 400 itself on failure.
// Field-level validation failures are expanded per field.
func bindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(verrs)})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	return false
}

type assetSummary struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Period   string            `json:"period"`
	Status   models.StatusRef  `json:"status_ref"`
	Progress workflow.Progress `json:"progress"`
}

func (a *app) listAssets(c *gin.Context) {
	period := c.Query("period")
	if period != "" && !utils.IsValidPeriod(period) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be YYYY-MM"})
		return
	}
	items := []assetSummary{}
	for _, asset := range a.store.ListByPeriod(period) {
		// id/title/period are fixed at seed time; the status triplet is
		// not, so it goes through the locked snapshot.
		ref, err := a.store.StatusRef(asset.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		progress, err := workflow.ProjectProgress(a.store, asset.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		items = append(items, assetSummary{
			ID:       asset.ID,
			Title:    asset.Title,
			Period:   asset.Period,
			Status:   ref,
			Progress: progress,
		})
	}
	c.JSON(http.StatusOK, gin.H{"assets": items})
}

func (a *app) listPeriods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"periods": a.store.Periods()})
}

func (a *app) getAsset(c *gin.Context) {
	assetId := c.Param("id")
	_, span := tracer.Start(c.Request.Context(), "http.getAsset",
		trace.WithAttributes(attribute.String("asset.id", assetId)))
	defer span.End()
	err := a.store.WithEntry(assetId, func() error {
		asset, err := a.store.Asset(assetId)
		if err != nil {
			return err
		}
		checks, err := a.store.Checks(assetId)
		if err != nil {
			return err
		}
		uploads, err := a.store.Uploads(assetId)
		if err != nil {
			return err
		}
		threads, err := a.store.Threads(assetId)
		if err != nil {
			return err
		}
		findings, err := a.store.Findings(assetId)
		if err != nil {
			return err
		}
		type checkView struct {
			*models.QualityCheck
			Done bool `json:"done"`
		}
		views := make([]checkView, 0, len(checks))
		for _, ch := range checks {
			views = append(views, checkView{QualityCheck: ch, Done: models.CheckDone(ch)})
		}
		// serialize while still holding the entry lock: the settle timer
		// and stream hooks mutate these records from other goroutines
		c.JSON(http.StatusOK, gin.H{
			"asset":           asset,
			"checks":          views,
			"uploads":         uploads,
			"threads":         threads,
			"findings":        findings,
			"streaming_check": a.checks.StreamingCheckId(assetId),
			"pending_checks":  models.PendingCheckCount(checks),
			"acknowledgeable": models.AcknowledgeableCount(checks),
		})
		return nil
	})
	if err != nil {
		respondError(c, err)
	}
}

type statusPatch struct {
	Action models.WorkflowAction `json:"action" binding:"required"`
	Reason string                `json:"reason"`
}

func (a *app) patchStatus(c *gin.Context) {
	assetId := c.Param("id")
	var body statusPatch
	if !bindJSON(c, &body) {
		return
	}
	if !body.Action.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow action"})
		return
	}
	if err := a.controller.Apply(c.Request.Context(), assetId, body.Action, body.Reason); err != nil {
		respondError(c, err)
		return
	}
	ref, err := a.store.StatusRef(assetId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ref)
}

func (a *app) getProgress(c *gin.Context) {
	progress, err := workflow.ProjectProgress(a.store, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (a *app) addCheck(c *gin.Context) {
	var input models.NewQualityCheck
	if !bindJSON(c, &input) {
		return
	}
	check, err := a.checks.AddCheck(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, check)
}

func (a *app) acknowledgeCheck(c *gin.Context) {
	a.checkOp(c, a.checks.AcknowledgeCheck)
}

func (a *app) unacknowledgeCheck(c *gin.Context) {
	a.checkOp(c, a.checks.UnacknowledgeCheck)
}

func (a *app) revertUserResult(c *gin.Context) {
	a.checkOp(c, a.checks.RevertUserResult)
}

func (a *app) testAiCheck(c *gin.Context) {
	assetId, checkId := c.Param("id"), c.Param("checkId")
	if err := a.checks.TestAiCheck(c.Request.Context(), assetId, checkId); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"streaming_check": checkId})
}

func (a *app) stopAiTest(c *gin.Context) {
	if err := a.checks.StopAiTest(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) checkOp(c *gin.Context, op func(ctx context.Context, assetId, checkId string) error) {
	if err := op(c.Request.Context(), c.Param("id"), c.Param("checkId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) acknowledgeAll(c *gin.Context) {
	changed, err := a.checks.AcknowledgeAll(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": changed})
}

type attestationBody struct {
	Attestation string `json:"attestation" binding:"required"`
}

func (a *app) markCheckSuccess(c *gin.Context) {
	var body attestationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "attestation text is required"})
		return
	}
	if err := a.checks.MarkSuccess(c.Request.Context(), c.Param("id"), c.Param("checkId"), body.Attestation); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type promptBody struct {
	Prompt string `json:"prompt" binding:"required"`
}

func (a *app) savePrompt(c *gin.Context) {
	var body promptBody
	if !bindJSON(c, &body) {
		return
	}
	assetId, checkId := c.Param("id"), c.Param("checkId")
	if err := a.checks.UpdatePrompt(c.Request.Context(), assetId, checkId, body.Prompt); err != nil {
		respondError(c, err)
		return
	}
	if err := a.checks.SavePrompt(c.Request.Context(), assetId, checkId); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type attachBody struct {
	FileName string `json:"file_name" binding:"required"`
}

func (a *app) attachUpload(c *gin.Context) {
	var body attachBody
	if !bindJSON(c, &body) {
		return
	}
	if err := a.uploads.Attach(c.Request.Context(), c.Param("id"), c.Param("uploadId"), body.FileName); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) detachUpload(c *gin.Context) {
	if err := a.uploads.Detach(c.Request.Context(), c.Param("id"), c.Param("uploadId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) createThread(c *gin.Context) {
	var input models.NewThread
	if !bindJSON(c, &input) {
		return
	}
	thread, err := a.discussions.CreateThread(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, thread)
}

func (a *app) addReply(c *gin.Context) {
	var input models.NewReply
	if !bindJSON(c, &input) {
		return
	}
	reply, err := a.discussions.AddReply(c.Request.Context(), c.Param("id"), c.Param("threadId"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

func (a *app) acceptReply(c *gin.Context) {
	if err := a.discussions.AcceptReply(c.Request.Context(), c.Param("id"), c.Param("threadId"), c.Param("replyId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) unacceptReply(c *gin.Context) {
	if err := a.discussions.UnacceptReply(c.Request.Context(), c.Param("id"), c.Param("threadId"), c.Param("replyId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) resolveThread(c *gin.Context) {
	if err := a.discussions.ResolveThread(c.Request.Context(), c.Param("id"), c.Param("threadId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) reopenThread(c *gin.Context) {
	if err := a.discussions.ReopenThread(c.Request.Context(), c.Param("id"), c.Param("threadId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) generateFindings(c *gin.Context) {
	if err := a.findings.Generate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (a *app) stopFindings(c *gin.Context) {
	if err := a.findings.StopGeneration(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *app) finalizeFindings(c *gin.Context) {
	if err := a.findings.Finalize(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
