package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransferCloneIsDeep(t *testing.T) {
	completed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	original := &Transfer{
		ID:           "t-1",
		User:         &UserSummary{ID: "u-1", Email: "ada@example.com"},
		BankAccounts: []BankAccountSnapshot{{BankName: "GTBank", AccountNumber: "0123456789"}},
		StatusHistory: []StatusHistoryEntry{
			{FromStatus: StatusPending, ToStatus: StatusCompleted, CreatedAt: completed},
		},
		CompletedAt: &completed,
	}
	clone := original.Clone()
	clone.User.Email = "changed@example.com"
	clone.BankAccounts[0].BankName = "Other"
	clone.StatusHistory[0].Remarks = "edited"
	*clone.CompletedAt = completed.Add(time.Hour)

	if original.User.Email != "ada@example.com" {
		t.Fatalf("user summary shared with clone")
	}
	if original.BankAccounts[0].BankName != "GTBank" {
		t.Fatalf("bank accounts shared with clone")
	}
	if original.StatusHistory[0].Remarks != "" {
		t.Fatalf("status history shared with clone")
	}
	if !original.CompletedAt.Equal(completed) {
		t.Fatalf("completed_at shared with clone")
	}
	var nilTransfer *Transfer
	if nilTransfer.Clone() != nil {
		t.Fatalf("expected nil clone of nil transfer")
	}
}

func TestTransferNetMatches(t *testing.T) {
	transfer := &Transfer{
		Amount:    decimal.RequireFromString("1000.005"),
		Fee:       decimal.RequireFromString("15.00"),
		NetAmount: decimal.RequireFromString("985.01"),
	}
	if !transfer.NetMatches(2) {
		t.Fatalf("expected net amount to match at two places")
	}
	transfer.NetAmount = decimal.RequireFromString("984.00")
	if transfer.NetMatches(2) {
		t.Fatalf("expected mismatch to be reported")
	}
}

func TestTransferDecodesDecimalAmountsWithoutFloatLoss(t *testing.T) {
	payload := []byte(`{"id":"t-1","amount":"0.123456789012345678","fee":0.1,"net_amount":"0.023456789012345678","status":"awaiting_crypto"}`)
	var transfer Transfer
	if err := json.Unmarshal(payload, &transfer); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if transfer.Amount.String() != "0.123456789012345678" {
		t.Fatalf("unexpected amount: %s", transfer.Amount)
	}
	if transfer.Status != StatusAwaitingCrypto {
		t.Fatalf("unexpected status: %q", transfer.Status)
	}
}

func TestOrderedHistoryDoesNotMutate(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	transfer := &Transfer{StatusHistory: []StatusHistoryEntry{
		{ToStatus: StatusCompleted, CreatedAt: base.Add(2 * time.Hour)},
		{ToStatus: StatusProcessing, CreatedAt: base.Add(time.Hour)},
	}}
	ordered := transfer.OrderedHistory()
	if ordered[0].ToStatus != StatusProcessing || ordered[1].ToStatus != StatusCompleted {
		t.Fatalf("unexpected order: %#v", ordered)
	}
	if transfer.StatusHistory[0].ToStatus != StatusCompleted {
		t.Fatalf("expected stored history untouched")
	}
}

func TestNewPagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		total       int
		skip, limit int
		wantPage    int
		wantPages   int
		wantNext    bool
		wantPrev    bool
	}{
		{name: "third page of five", total: 45, skip: 20, limit: 10, wantPage: 3, wantPages: 5, wantNext: true, wantPrev: true},
		{name: "first page", total: 45, skip: 0, limit: 10, wantPage: 1, wantPages: 5, wantNext: true},
		{name: "last page", total: 45, skip: 40, limit: 10, wantPage: 5, wantPages: 5, wantPrev: true},
		{name: "empty", total: 0, skip: 0, limit: 10, wantPage: 1, wantPages: 1},
		{name: "no limit", total: 7, skip: 0, limit: 0, wantPage: 1, wantPages: 1},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := NewPagination(tc.total, tc.skip, tc.limit)
			if got.CurrentPage != tc.wantPage || got.TotalPages != tc.wantPages {
				t.Fatalf("expected page %d/%d, got %d/%d", tc.wantPage, tc.wantPages, got.CurrentPage, got.TotalPages)
			}
			if got.HasNext != tc.wantNext || got.HasPrev != tc.wantPrev {
				t.Fatalf("unexpected next/prev: %#v", got)
			}
		})
	}
}

func TestSessionExpiresWithin(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	session := &Session{AccessToken: "a", ExpiresAt: now.Add(20 * time.Second)}
	if !session.ExpiresWithin(now, 30*time.Second) {
		t.Fatalf("expected session to expire within window")
	}
	if session.ExpiresWithin(now, 10*time.Second) {
		t.Fatalf("expected session outside the smaller window")
	}
	if (&Session{AccessToken: "a"}).ExpiresWithin(now, time.Hour) {
		t.Fatalf("expected unknown expiry to never report expiring")
	}
}
