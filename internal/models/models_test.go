package models

import "testing"

func TestOcrStatusValid(t *testing.T) {
	for _, s := range []OcrStatus{StatusPending, StatusProcessing, StatusCompleted, StatusFailed} {
		if !s.Valid() {
			t.Fatalf("%s must be valid", s)
		}
	}
	if OcrStatus("done").Valid() {
		t.Fatalf("unknown status must not be valid")
	}
}

func TestOcrStatusAffordances(t *testing.T) {
	if !StatusFailed.CanRetry() {
		t.Fatalf("failed notes must be retryable")
	}
	for _, s := range []OcrStatus{StatusPending, StatusProcessing, StatusCompleted} {
		if s.CanRetry() {
			t.Fatalf("%s must not be retryable", s)
		}
	}

	if !StatusCompleted.CanEdit() {
		t.Fatalf("completed notes must be editable")
	}
	for _, s := range []OcrStatus{StatusPending, StatusProcessing, StatusFailed} {
		if s.CanEdit() {
			t.Fatalf("%s must not be editable", s)
		}
	}
}

func TestParseOcrStatus(t *testing.T) {
	if got := ParseOcrStatus("completed"); got != StatusCompleted {
		t.Fatalf("expected completed, got %s", got)
	}
	// Rows written before the status column existed parse as pending.
	if got := ParseOcrStatus(""); got != StatusPending {
		t.Fatalf("expected pending fallback, got %s", got)
	}
	if got := ParseOcrStatus("garbage"); got != StatusPending {
		t.Fatalf("expected pending fallback, got %s", got)
	}
}
