package models

import "errors"

// AssetStatus is the lifecycle step of a journal entry. The order of the
// steps is total; Order() is what the UI uses to render a step as
// completed, active or pending.
type AssetStatus string

const (
	AssetStatusGeneration  AssetStatus = "GENERATION"
	AssetStatusPreparation AssetStatus = "PREPARATION"
	AssetStatusSubmission  AssetStatus = "SUBMISSION"
	AssetStatusReview      AssetStatus = "REVIEW"
	AssetStatusEbsUpload   AssetStatus = "EBS_UPLOAD"
)

var assetStatusOrder = map[AssetStatus]int{
	AssetStatusGeneration:  0,
	AssetStatusPreparation: 1,
	AssetStatusSubmission:  2,
	AssetStatusReview:      3,
	AssetStatusEbsUpload:   4,
}

func (s AssetStatus) Order() int {
	return assetStatusOrder[s]
}

func (s AssetStatus) IsValid() bool {
	_, ok := assetStatusOrder[s]
	return ok
}

// ValidationStatus is a sub-state of the PREPARATION step.
type ValidationStatus string

const (
	ValidationStatusPending    ValidationStatus = "PENDING"
	ValidationStatusValidating ValidationStatus = "VALIDATING"
	ValidationStatusSuccess    ValidationStatus = "SUCCESS"
	ValidationStatusFailed     ValidationStatus = "FAILED"
)

// EbsStatus is a sub-state of the EBS_UPLOAD step. It is only meaningful
// while the asset status is EBS_UPLOAD.
type EbsStatus string

const (
	EbsStatusPending   EbsStatus = "PENDING"
	EbsStatusUploading EbsStatus = "UPLOADING"
	EbsStatusSuccess   EbsStatus = "SUCCESS"
	EbsStatusFailed    EbsStatus = "FAILED"
)

type CheckType string

const (
	CheckTypeSystem CheckType = "System"
	CheckTypeAI     CheckType = "AI"
	CheckTypeManual CheckType = "Manual"
)

func (t *CheckType) UnmarshalText(b []byte) error {
	switch CheckType(b) {
	case CheckTypeSystem, CheckTypeAI, CheckTypeManual:
		*t = CheckType(b)
		return nil
	}
	return errors.New("invalid check type")
}

// CheckResult is a verification outcome. The empty value means "unset",
// which is how a user result starts out.
type CheckResult string

const (
	CheckResultPass   CheckResult = "Pass"
	CheckResultFailed CheckResult = "Failed"
)

// Assertion is the audit taxonomy category a quality check validates.
type Assertion string

const (
	AssertionAccuracy      Assertion = "Accuracy"
	AssertionCompleteness  Assertion = "Completeness"
	AssertionCutoff        Assertion = "Cutoff"
	AssertionExistence     Assertion = "Existence"
	AssertionValuation     Assertion = "Valuation"
	AssertionBusinessLogic Assertion = "Business Logic"
	AssertionTimeliness    Assertion = "Timeliness"
)

var allAssertions = []Assertion{
	AssertionAccuracy,
	AssertionCompleteness,
	AssertionCutoff,
	AssertionExistence,
	AssertionValuation,
	AssertionBusinessLogic,
	AssertionTimeliness,
}

func (a Assertion) IsValid() bool {
	for _, v := range allAssertions {
		if a == v {
			return true
		}
	}
	return false
}

func (a *Assertion) UnmarshalText(b []byte) error {
	v := Assertion(b)
	if !v.IsValid() {
		return errors.New("invalid assertion")
	}
	*a = v
	return nil
}

type ThreadStatus string

const (
	ThreadStatusOpen     ThreadStatus = "open"
	ThreadStatusResolved ThreadStatus = "resolved"
)

// FindingsStatus moves forward only (NotStarted -> Generated -> Finalized);
// a new generation run resets Finalized back to Generated.
type FindingsStatus string

const (
	FindingsStatusNotStarted FindingsStatus = "NotStarted"
	FindingsStatusGenerated  FindingsStatus = "Generated"
	FindingsStatusFinalized  FindingsStatus = "Finalized"
)

// WorkflowAction is the PATCH /assets/:id/status action verb.
type WorkflowAction string

const (
	WorkflowActionValidate          WorkflowAction = "validate"
	WorkflowActionSubmit            WorkflowAction = "submit"
	WorkflowActionRevert            WorkflowAction = "revert"
	WorkflowActionApprove           WorkflowAction = "approve"
	WorkflowActionReject            WorkflowAction = "reject"
	WorkflowActionReverse           WorkflowAction = "reverse"
	WorkflowActionCompleteEbsUpload WorkflowAction = "completeEbsUpload"
)

func (a WorkflowAction) IsValid() bool {
	switch a {
	case WorkflowActionValidate, WorkflowActionSubmit, WorkflowActionRevert,
		WorkflowActionApprove, WorkflowActionReject, WorkflowActionReverse,
		WorkflowActionCompleteEbsUpload:
		return true
	}
	return false
}
