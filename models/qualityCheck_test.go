package models

import "testing"

func TestCheckDone(t *testing.T) {
	cases := []struct {
		name  string
		check QualityCheck
		want  bool
	}{
		{"manual unset", QualityCheck{Type: CheckTypeManual, SystemResult: CheckResultFailed}, false},
		{"manual passed by user", QualityCheck{Type: CheckTypeManual, SystemResult: CheckResultFailed, UserResult: CheckResultPass}, true},
		{"manual acknowledged but not passed", QualityCheck{Type: CheckTypeManual, SystemResult: CheckResultFailed, Acknowledged: true}, false},
		{"system pass unacknowledged", QualityCheck{Type: CheckTypeSystem, SystemResult: CheckResultPass}, false},
		{"system pass acknowledged", QualityCheck{Type: CheckTypeSystem, SystemResult: CheckResultPass, Acknowledged: true}, true},
		{"system failed", QualityCheck{Type: CheckTypeSystem, SystemResult: CheckResultFailed}, false},
		{"system failed overridden", QualityCheck{Type: CheckTypeSystem, SystemResult: CheckResultFailed, UserResult: CheckResultPass, Acknowledged: true}, true},
		{"ai pass acknowledged", QualityCheck{Type: CheckTypeAI, SystemResult: CheckResultPass, Acknowledged: true}, true},
		{"ai failed overridden without ack", QualityCheck{Type: CheckTypeAI, SystemResult: CheckResultFailed, UserResult: CheckResultPass}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CheckDone(&tc.check); got != tc.want {
				t.Fatalf("CheckDone = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCheckCounts(t *testing.T) {
	checks := []*QualityCheck{
		{Type: CheckTypeSystem, SystemResult: CheckResultPass, Acknowledged: true},            // done
		{Type: CheckTypeSystem, SystemResult: CheckResultPass},                                // pending, acknowledgeable
		{Type: CheckTypeAI, SystemResult: CheckResultFailed},                                  // pending
		{Type: CheckTypeManual, SystemResult: CheckResultFailed, UserResult: CheckResultPass}, // done
	}
	if got := DoneCheckCount(checks); got != 2 {
		t.Fatalf("DoneCheckCount = %d, want 2", got)
	}
	if got := PendingCheckCount(checks); got != 2 {
		t.Fatalf("PendingCheckCount = %d, want 2", got)
	}
	if got := AcknowledgeableCount(checks); got != 1 {
		t.Fatalf("AcknowledgeableCount = %d, want 1", got)
	}
}
