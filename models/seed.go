package models

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SeedDemo loads the demo close period into the store. The server seeds
// this at startup since state lives in process memory only.
func SeedDemo(s *Store) error {
	type seedCheck struct {
		assertion Assertion
		title     string
		typ       CheckType
		desc      string
		prompt    string
	}
	type seedUpload struct {
		name string
		desc string
	}
	type seedLine struct {
		account string
		desc    string
		debit   string
		credit  string
	}
	type seedAsset struct {
		id      string
		title   string
		desc    string
		status  AssetStatus
		lines   []seedLine
		checks  []seedCheck
		uploads []seedUpload
	}

	period := "2026-08"
	seeds := []seedAsset{
		{
			id:     "JE-2026-08-0001",
			title:  "Monthly payroll accrual",
			desc:   "Accrue August payroll expense and related liabilities.",
			status: AssetStatusPreparation,
			lines: []seedLine{
				{"Payroll Expense", "Gross salaries", "185000.00", "0"},
				{"Payroll Tax Expense", "Employer taxes", "14152.50", "0"},
				{"Accrued Payroll", "Net pay payable", "0", "185000.00"},
				{"Payroll Taxes Payable", "Taxes payable", "0", "14152.50"},
			},
			checks: []seedCheck{
				{AssertionAccuracy, "Debits equal credits", CheckTypeSystem, "Journal lines must balance to zero.", ""},
				{AssertionCompleteness, "All departments included", CheckTypeAI, "Verify every active department is represented in the accrual.", "Compare the department list on this entry against the active cost centers for the period."},
				{AssertionCutoff, "Expense recorded in correct period", CheckTypeManual, "Confirm the accrual covers services rendered in August only.", ""},
			},
			uploads: []seedUpload{
				{"Payroll register", "August payroll register export"},
				{"Tax calculation worksheet", "Employer tax computation support"},
			},
		},
		{
			id:     "JE-2026-08-0002",
			title:  "Depreciation run",
			desc:   "August straight-line depreciation for all asset classes.",
			status: AssetStatusReview,
			lines: []seedLine{
				{"Depreciation Expense", "Monthly depreciation", "42310.75", "0"},
				{"Accumulated Depreciation", "Monthly depreciation", "0", "42310.75"},
			},
			checks: []seedCheck{
				{AssertionValuation, "Depreciation rates match policy", CheckTypeAI, "Recompute depreciation from the fixed-asset register and compare.", "Recalculate straight-line depreciation per asset class and flag variances above 1%."},
				{AssertionExistence, "Assets exist in register", CheckTypeSystem, "Every depreciated asset must appear in the register.", ""},
			},
			uploads: []seedUpload{
				{"Fixed asset register", "Register snapshot as of month end"},
			},
		},
		{
			id:     "JE-2026-08-0003",
			title:  "FX revaluation",
			desc:   "Revalue open foreign-currency balances at the closing rate.",
			status: AssetStatusPreparation,
			lines: []seedLine{
				// Deliberately out of balance; validation must fail.
				{"FX Loss", "EUR receivables revaluation", "8120.40", "0"},
				{"Accounts Receivable", "EUR receivables revaluation", "0", "8050.40"},
			},
			checks: []seedCheck{
				{AssertionAccuracy, "Closing rate matches treasury feed", CheckTypeSystem, "Rate used must equal the published closing rate.", ""},
				{AssertionBusinessLogic, "Only open balances revalued", CheckTypeAI, "Settled balances must be excluded from the revaluation base.", "List any balance in the revaluation base that was settled before month end."},
				{AssertionTimeliness, "Posted before close deadline", CheckTypeManual, "Entry must be posted before the day-5 close deadline.", ""},
			},
			uploads: []seedUpload{
				{"Closing rate sheet", "Treasury closing rates"},
				{"Open balance listing", "Open FX balances at month end"},
			},
		},
	}

	for _, sa := range seeds {
		asset := &Asset{
			ID:               sa.id,
			Period:           period,
			Title:            sa.title,
			Description:      sa.desc,
			PreparedBy:       "aye.chan",
			ReviewedBy:       "min.htet",
			Status:           sa.status,
			ValidationStatus: ValidationStatusPending,
			EbsStatus:        EbsStatusPending,
		}
		if sa.status.Order() > AssetStatusPreparation.Order() {
			asset.ValidationStatus = ValidationStatusSuccess
		}
		for _, l := range sa.lines {
			debit, err := decimal.NewFromString(l.debit)
			if err != nil {
				return fmt.Errorf("seed %s: %w", sa.id, err)
			}
			credit, err := decimal.NewFromString(l.credit)
			if err != nil {
				return fmt.Errorf("seed %s: %w", sa.id, err)
			}
			asset.Lines = append(asset.Lines, AssetLine{
				AccountName: l.account,
				Description: l.desc,
				Debit:       debit,
				Credit:      credit,
			})
		}

		var checks []*QualityCheck
		for _, sc := range sa.checks {
			c := &QualityCheck{
				ID:          uuid.NewString(),
				AssetId:     sa.id,
				Assertion:   sc.assertion,
				Title:       sc.title,
				Description: sc.desc,
				Type:        sc.typ,
				Prompt:      sc.prompt,
			}
			switch sc.typ {
			case CheckTypeManual:
				c.SystemResult = CheckResultFailed
			default:
				c.SystemResult = CheckResultPass
			}
			checks = append(checks, c)
		}

		var uploads []*Upload
		for _, su := range sa.uploads {
			uploads = append(uploads, &Upload{
				ID:          uuid.NewString(),
				AssetId:     sa.id,
				Name:        su.name,
				Description: su.desc,
			})
		}

		if err := s.AddAsset(asset, checks, uploads); err != nil {
			return err
		}
	}
	return nil
}
