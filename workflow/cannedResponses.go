package workflow

import "bitbucket.org/mmdatafocus/closing_backend/models"

// cannedAiResponse is the scripted outcome of an AI check run. Nothing
// here is real inference; the library exists so re-runs are repeatable
// and so each assertion streams plausible verifier prose.
type cannedAiResponse struct {
	Result models.CheckResult
	Text   string
}

var cannedAiResponses = map[models.Assertion]cannedAiResponse{
	models.AssertionAccuracy: {
		Result: models.CheckResultPass,
		Text: `I recomputed every line against the source figures.

All amounts tie to the supporting schedules within rounding tolerance. Total debits and total credits agree, and each line maps to the account named in its description.

No discrepancies found. This assertion is satisfied.`,
	},
	models.AssertionCompleteness: {
		Result: models.CheckResultPass,
		Text: `I compared the population on this entry against the full driver list for the period.

Every expected item is represented exactly once. Nothing in the driver list is missing from the entry, and the entry contains no item outside the driver list.

Conclusion: complete. No omissions detected.`,
	},
	models.AssertionCutoff: {
		Result: models.CheckResultFailed,
		Text: `I checked the transaction dates underlying this entry against the period boundary.

Two source documents are dated after the period end but are included in the amount. That places expense in the wrong period.

| Document | Date | Amount |
| --- | --- | --- |
| INV-4471 | 2026-09-02 | 1,250.00 |
| INV-4506 | 2026-09-04 | 830.00 |

Conclusion: cutoff is violated for the two documents above. Exclude them or provide an attestation explaining why inclusion is correct.`,
	},
	models.AssertionExistence: {
		Result: models.CheckResultPass,
		Text: `I traced each item on this entry back to its source record.

Every referenced asset or balance exists in the underlying register as of the period end. No orphaned references.

Existence is supported.`,
	},
	models.AssertionValuation: {
		Result: models.CheckResultPass,
		Text: `I recomputed the valuation from first principles using the stated method and the register inputs.

| Class | Expected | Recorded | Variance |
| --- | --- | --- | --- |
| Buildings | 18,020.10 | 18,020.10 | 0.00 |
| Machinery | 15,876.40 | 15,876.40 | 0.00 |
| IT equipment | 8,414.25 | 8,414.25 | 0.00 |

All variances are zero. Valuation is consistent with policy.`,
	},
	models.AssertionBusinessLogic: {
		Result: models.CheckResultFailed,
		Text: `I evaluated the entry against the stated business rule.

One item in the base fails the rule: balance B-2203 was settled on the 28th but still contributes to the computed amount. The rule excludes settled balances.

Recommendation: rebuild the base excluding B-2203, or attest with a reason if the inclusion is intentional.`,
	},
	models.AssertionTimeliness: {
		Result: models.CheckResultPass,
		Text: `I checked the preparation and posting timestamps against the close calendar.

The entry was prepared inside the close window with time to spare before the deadline.

Timeliness is satisfied.`,
	},
}

func cannedResponseFor(a models.Assertion) cannedAiResponse {
	if r, ok := cannedAiResponses[a]; ok {
		return r
	}
	return cannedAiResponse{
		Result: models.CheckResultFailed,
		Text:   "No verifier is configured for this assertion.",
	}
}

// cannedFindings is the scripted AI findings document streamed by the
// findings generator.
const cannedFindings = `## Review findings

This journal entry is structurally sound: lines balance, references resolve, and the amounts tie to their supporting schedules.

Two observations for the reviewer:

1. The largest line moves more than twenty percent versus the prior period. The movement is explained by the driver data, but it is large enough to deserve a note on the entry.
2. One supporting upload was attached after preparation began. Confirm the prepared amounts reflect the final version of that file.

| Area | Status |
| --- | --- |
| Balance | OK |
| Support | OK, see observation 2 |
| Period movement | Explained, see observation 1 |

Nothing here blocks approval. Recommend approving once the observations are acknowledged in the discussion thread.`
