package models

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/closing_backend/utils"
	"github.com/shopspring/decimal"
)

func testAsset(id, period string) *Asset {
	return &Asset{
		ID:               id,
		Period:           period,
		Status:           AssetStatusPreparation,
		ValidationStatus: ValidationStatusPending,
		EbsStatus:        EbsStatusPending,
	}
}

func TestAddAssetRejectsDuplicateId(t *testing.T) {
	s := NewStore()
	if err := s.AddAsset(testAsset("JE-1", "2026-08"), nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.AddAsset(testAsset("JE-1", "2026-08"), nil, nil); err == nil {
		t.Fatal("expected an error on duplicate id")
	}
}

func TestAddAssetInitializesCollections(t *testing.T) {
	s := NewStore()
	if err := s.AddAsset(testAsset("JE-1", "2026-08"), nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Checks("JE-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Uploads("JE-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Threads("JE-1"); err != nil {
		t.Fatal(err)
	}
	f, err := s.Findings("JE-1")
	if err != nil {
		t.Fatal(err)
	}
	if f.Status != FindingsStatusNotStarted {
		t.Fatalf("expected NotStarted findings, got %q", f.Status)
	}
}

func TestWithEntryUnknownId(t *testing.T) {
	s := NewStore()
	err := s.WithEntry("missing", func() error { return nil })
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound, got %v", err)
	}
}

func TestListByPeriodAndPeriods(t *testing.T) {
	s := NewStore()
	for _, a := range []*Asset{
		testAsset("JE-1", "2026-07"),
		testAsset("JE-2", "2026-08"),
		testAsset("JE-3", "2026-08"),
	} {
		if err := s.AddAsset(a, nil, nil); err != nil {
			t.Fatal(err)
		}
	}

	if got := s.ListByPeriod("2026-08"); len(got) != 2 {
		t.Fatalf("expected 2 entries for 2026-08, got %d", len(got))
	}
	all := s.ListByPeriod("")
	if len(all) != 3 {
		t.Fatalf("expected 3 entries unfiltered, got %d", len(all))
	}
	// insertion order is the contract
	if all[0].ID != "JE-1" || all[2].ID != "JE-3" {
		t.Fatalf("unexpected order: %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}

	periods := s.Periods()
	if len(periods) != 2 || periods[0] != "2026-07" || periods[1] != "2026-08" {
		t.Fatalf("unexpected periods: %v", periods)
	}
}

func TestBalanced(t *testing.T) {
	a := testAsset("JE-1", "2026-08")
	if a.Balanced() {
		t.Fatal("entry with no lines must not be balanced")
	}
	a.Lines = []AssetLine{
		{AccountName: "Expense", Debit: decimal.RequireFromString("50.25")},
		{AccountName: "Expense", Debit: decimal.RequireFromString("49.75")},
		{AccountName: "Accrual", Credit: decimal.RequireFromString("100.00")},
	}
	if !a.Balanced() {
		t.Fatalf("expected balanced, debits %s credits %s", a.TotalDebit(), a.TotalCredit())
	}
	a.Lines[2].Credit = decimal.RequireFromString("100.01")
	if a.Balanced() {
		t.Fatal("expected unbalanced after credit bump")
	}
}
