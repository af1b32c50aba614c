package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is a journal entry moving through the close/approval workflow.
type Asset struct {
	ID               string           `json:"id"`
	Period           string           `json:"period"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	PreparedBy       string           `json:"prepared_by"`
	ReviewedBy       string           `json:"reviewed_by"`
	Status           AssetStatus      `json:"status"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	EbsStatus        EbsStatus        `json:"ebs_status"`
	RejectionReason  string           `json:"rejection_reason,omitempty"`
	Lines            []AssetLine      `json:"lines"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// AssetLine is a single debit/credit leg of the journal entry.
type AssetLine struct {
	AccountName string          `json:"account_name"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

func (a *Asset) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, l := range a.Lines {
		total = total.Add(l.Debit)
	}
	return total
}

func (a *Asset) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, l := range a.Lines {
		total = total.Add(l.Credit)
	}
	return total
}

// Balanced reports whether total debits equal total credits. Validation
// fails entries that are empty or out of balance.
func (a *Asset) Balanced() bool {
	return len(a.Lines) > 0 && a.TotalDebit().Equal(a.TotalCredit())
}

// StatusRef is the status triplet the transport reads and writes.
type StatusRef struct {
	Status           AssetStatus      `json:"status"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	EbsStatus        EbsStatus        `json:"ebs_status"`
	RejectionReason  string           `json:"rejection_reason,omitempty"`
}

func (a *Asset) StatusRef() StatusRef {
	return StatusRef{
		Status:           a.Status,
		ValidationStatus: a.ValidationStatus,
		EbsStatus:        a.EbsStatus,
		RejectionReason:  a.RejectionReason,
	}
}
