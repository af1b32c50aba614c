package models

import "time"

// QualityCheck is a verifiable gate on a journal entry. Completion is
// derived by CheckDone, never stored on the struct, so the flag can not
// drift from the fields it is computed from.
type QualityCheck struct {
	ID          string    `json:"id"`
	AssetId     string    `json:"asset_id"`
	Assertion   Assertion `json:"assertion"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        CheckType `json:"type"`

	// SystemResult is the machine outcome. Manual checks carry Failed
	// until the user attests, which reads as "pending user action".
	SystemResult CheckResult `json:"system_result"`

	// AiResult and Prompt are only populated for AI checks. PromptDraft
	// is the unsaved edit buffer.
	AiResult    string `json:"ai_result,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
	PromptDraft string `json:"-"`

	// UserResult/Attestation form the manual override path. Empty
	// UserResult means no override.
	UserResult  CheckResult `json:"user_result,omitempty"`
	Attestation string      `json:"attestation,omitempty"`

	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CheckDone is the single source of truth for per-check completion:
//   - Manual: done iff the user marked it Pass.
//   - System/AI: done iff (SystemResult = Pass and acknowledged) or the
//     user overrode it to Pass.
func CheckDone(c *QualityCheck) bool {
	if c.Type == CheckTypeManual {
		return c.UserResult == CheckResultPass
	}
	if c.SystemResult == CheckResultPass && c.Acknowledged {
		return true
	}
	return c.UserResult == CheckResultPass
}

func PendingCheckCount(checks []*QualityCheck) int {
	pending := 0
	for _, c := range checks {
		if !CheckDone(c) {
			pending++
		}
	}
	return pending
}

func DoneCheckCount(checks []*QualityCheck) int {
	return len(checks) - PendingCheckCount(checks)
}

// AcknowledgeableCount counts checks the bulk-acknowledge action would
// touch: passed system results not yet acknowledged.
func AcknowledgeableCount(checks []*QualityCheck) int {
	n := 0
	for _, c := range checks {
		if c.SystemResult == CheckResultPass && !c.Acknowledged {
			n++
		}
	}
	return n
}

// NewQualityCheck is the add-check input.
type NewQualityCheck struct {
	Assertion   Assertion `json:"assertion" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Type        CheckType `json:"type" binding:"required"`
	Description string    `json:"description"`
	Prompt      string    `json:"prompt"`
}
