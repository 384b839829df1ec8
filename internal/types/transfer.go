package types

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type TransferType string

const (
	TransferTypeCryptoToFiat TransferType = "crypto_to_fiat"
	TransferTypeFiatToCrypto TransferType = "fiat_to_crypto"
)

func (t TransferType) Label() string {
	switch t {
	case TransferTypeCryptoToFiat:
		return "crypto → fiat"
	case TransferTypeFiatToCrypto:
		return "fiat → crypto"
	default:
		return strings.ReplaceAll(string(t), "_", " ")
	}
}

type UserSummary struct {
	ID           string `json:"id"`
	CustomerCode string `json:"customer_code,omitempty"`
	Email        string `json:"email,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
}

func (u *UserSummary) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	if u.Email != "" {
		return u.Email
	}
	return u.CustomerCode
}

// BankAccountSnapshot is copied onto the transfer when it is created and
// never changes afterwards.
type BankAccountSnapshot struct {
	ID            string    `json:"id,omitempty"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	AccountName   string    `json:"account_name"`
	Currency      string    `json:"currency,omitempty"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

type StatusHistoryEntry struct {
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	ActorID    string    `json:"actor_id,omitempty"`
	ActorName  string    `json:"actor_name,omitempty"`
	Remarks    string    `json:"remarks,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Transfer struct {
	ID                    string                `json:"id"`
	Reference             string                `json:"reference"`
	UserID                string                `json:"user_id"`
	User                  *UserSummary          `json:"user,omitempty"`
	Type                  TransferType          `json:"type"`
	Amount                decimal.Decimal       `json:"amount"`
	Fee                   decimal.Decimal       `json:"fee"`
	NetAmount             decimal.Decimal       `json:"net_amount"`
	Currency              string                `json:"currency"`
	Status                Status                `json:"status"`
	StatusMessage         string                `json:"status_message,omitempty"`
	TxHash                string                `json:"tx_hash,omitempty"`
	DepositAddress        string                `json:"deposit_address,omitempty"`
	AdminWalletAddress    string                `json:"admin_wallet_address,omitempty"`
	Network               string                `json:"network,omitempty"`
	Confirmations         int                   `json:"confirmations,omitempty"`
	RequiredConfirmations int                   `json:"required_confirmations,omitempty"`
	BankAccounts          []BankAccountSnapshot `json:"bank_accounts,omitempty"`
	AdminRemarks          string                `json:"admin_remarks,omitempty"`
	InternalNotes         string                `json:"internal_notes,omitempty"`
	StatusHistory         []StatusHistoryEntry  `json:"status_history,omitempty"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
	CompletedAt           *time.Time            `json:"completed_at,omitempty"`
	ExpiresAt             *time.Time            `json:"expires_at,omitempty"`
}

func (t *Transfer) Clone() *Transfer {
	if t == nil {
		return nil
	}
	out := *t
	if t.User != nil {
		user := *t.User
		out.User = &user
	}
	if t.BankAccounts != nil {
		out.BankAccounts = append([]BankAccountSnapshot{}, t.BankAccounts...)
	}
	if t.StatusHistory != nil {
		out.StatusHistory = append([]StatusHistoryEntry{}, t.StatusHistory...)
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		out.CompletedAt = &completed
	}
	if t.ExpiresAt != nil {
		expires := *t.ExpiresAt
		out.ExpiresAt = &expires
	}
	return &out
}

// NetMatches reports whether net_amount equals amount minus fee at the given
// display precision. The server value is always what gets shown.
func (t *Transfer) NetMatches(places int32) bool {
	if t == nil {
		return false
	}
	expected := t.Amount.Sub(t.Fee).Round(places)
	return expected.Equal(t.NetAmount.Round(places))
}

// OrderedHistory returns status history sorted oldest first without touching
// the stored slice.
func (t *Transfer) OrderedHistory() []StatusHistoryEntry {
	if t == nil || len(t.StatusHistory) == 0 {
		return nil
	}
	out := append([]StatusHistoryEntry{}, t.StatusHistory...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func CloneTransfers(in []*Transfer) []*Transfer {
	if in == nil {
		return nil
	}
	out := make([]*Transfer, 0, len(in))
	for _, transfer := range in {
		out = append(out, transfer.Clone())
	}
	return out
}

type PendingCount struct {
	PendingCount int       `json:"pending_count"`
	Timestamp    time.Time `json:"timestamp"`
}

// TransferUpdate is the PUT body for a single transfer. Nil fields are left
// untouched by the backend.
type TransferUpdate struct {
	Status          *Status `json:"status,omitempty"`
	StatusMessage   *string `json:"status_message,omitempty"`
	ProcessingNotes *string `json:"processing_notes,omitempty"`
	AdminRemarks    *string `json:"admin_remarks,omitempty"`
	InternalNotes   *string `json:"internal_notes,omitempty"`
}

type BulkStatusUpdate struct {
	TransferIDs   []string `json:"transfer_ids"`
	Status        Status   `json:"status"`
	StatusMessage string   `json:"status_message,omitempty"`
}

type BulkStatusResult struct {
	Updated   int      `json:"updated"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
	Message   string   `json:"message,omitempty"`
}

func StringPtr(value string) *string {
	return &value
}

func StatusPtr(value Status) *Status {
	return &value
}
