package sandbox

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"payadmin/internal/types"
)

var seedCustomers = []types.Customer{
	{CustomerCode: "CUS-1001", Email: "ada.okafor@example.com", FirstName: "Ada", LastName: "Okafor", Phone: "+2348030000001", KYCStatus: "verified"},
	{CustomerCode: "CUS-1002", Email: "tunde.bello@example.com", FirstName: "Tunde", LastName: "Bello", Phone: "+2348030000002", KYCStatus: "verified"},
	{CustomerCode: "CUS-1003", Email: "ngozi.eze@example.com", FirstName: "Ngozi", LastName: "Eze", Phone: "+2348030000003", KYCStatus: "pending"},
	{CustomerCode: "CUS-1004", Email: "kemi.adeyemi@example.com", FirstName: "Kemi", LastName: "Adeyemi", Phone: "+2348030000004", KYCStatus: "verified"},
	{CustomerCode: "CUS-1005", Email: "emeka.nwosu@example.com", FirstName: "Emeka", LastName: "Nwosu", Phone: "+2348030000005", KYCStatus: "rejected"},
}

var seedStatuses = []types.Status{
	types.StatusPending,
	types.StatusAwaitingCrypto,
	types.StatusCryptoReceived,
	types.StatusProcessing,
	types.StatusPending,
	types.StatusCompleted,
	types.StatusFailed,
	types.StatusOnHold,
	types.StatusCompleted,
	types.StatusCancelled,
	types.StatusPending,
	types.StatusExpired,
}

var seedBanks = []types.BankAccountSnapshot{
	{BankName: "Guaranty Trust Bank", AccountNumber: "0123456789", AccountName: "Ada Okafor", Currency: "NGN"},
	{BankName: "Access Bank", AccountNumber: "0987654321", AccountName: "Tunde Bello", Currency: "NGN"},
	{BankName: "Zenith Bank", AccountNumber: "1122334455", AccountName: "Ngozi Eze", Currency: "NGN"},
}

// SeedTransferCount is how many transfers seed inserts.
const SeedTransferCount = 24

// seed fills an empty sandbox with deterministic demo data. It does nothing
// when transfers already exist.
func (s *Server) seed(ctx context.Context) error {
	var existing int
	if err := s.db.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfers`).Scan(&existing); err != nil {
		return fmt.Errorf("inspect sandbox db: %w", err)
	}
	if existing > 0 {
		return nil
	}
	base := s.db.now().UTC().Add(-48 * time.Hour).Truncate(time.Minute)

	customerIDs := make([]string, 0, len(seedCustomers))
	for i, customer := range seedCustomers {
		customer.ID = fmt.Sprintf("cus_%04d", i+1)
		customer.IsActive = customer.KYCStatus != "rejected"
		customer.CreatedAt = base.Add(-time.Duration(30-i) * 24 * time.Hour)
		if err := s.db.insertCustomer(ctx, customer); err != nil {
			return fmt.Errorf("seed customer: %w", err)
		}
		customerIDs = append(customerIDs, customer.ID)
	}

	for i := 0; i < SeedTransferCount; i++ {
		transfer := seedTransfer(i, customerIDs[i%len(customerIDs)], base.Add(time.Duration(i)*time.Hour))
		if err := s.db.insertTransfer(ctx, transfer); err != nil {
			return fmt.Errorf("seed transfer: %w", err)
		}
	}

	wallets := []types.Wallet{
		{ID: "wal_ton", Label: "Hot wallet (TON)", Network: "TON", Currency: "TON", Address: "UQBsandboxTonHotWallet000000000000000000000000001", Balance: decimal.RequireFromString("1520.250000000")},
		{ID: "wal_usdt", Label: "Hot wallet (USDT)", Network: "TRC20", Currency: "USDT", Address: "TSandboxUsdtHotWallet0000000000001", Balance: decimal.RequireFromString("48210.75")},
		{ID: "wal_btc", Label: "Cold wallet (BTC)", Network: "BTC", Currency: "BTC", Address: "bc1qsandboxcoldwallet0000000000000000001", Balance: decimal.RequireFromString("2.13450000")},
	}
	for _, wallet := range wallets {
		wallet.IsActive = true
		wallet.CreatedAt = base
		if err := s.db.insertWallet(ctx, wallet); err != nil {
			return fmt.Errorf("seed wallet: %w", err)
		}
	}

	settings := []types.SystemSetting{
		{Key: "transfer.fee_percent", Value: "1.5", Description: "Fee charged on every transfer"},
		{Key: "transfer.min_amount_ngn", Value: "5000", Description: "Smallest fiat payout"},
		{Key: "transfer.quote_ttl_minutes", Value: "30", Description: "How long a deposit address stays valid"},
		{Key: "kyc.required_above_ngn", Value: "500000", Description: "KYC threshold"},
	}
	for _, setting := range settings {
		if err := s.db.putSetting(ctx, setting); err != nil {
			return fmt.Errorf("seed setting: %w", err)
		}
	}
	return s.db.recordAudit(ctx, types.AuditLog{
		ActorID:    "system",
		ActorName:  "system",
		Action:     "sandbox.seed",
		EntityType: "sandbox",
		Details:    map[string]any{"transfers": SeedTransferCount},
	})
}

func seedTransfer(i int, customerID string, created time.Time) *types.Transfer {
	status := seedStatuses[i%len(seedStatuses)]
	kind := types.TransferTypeCryptoToFiat
	currency := "NGN"
	if i%3 == 2 {
		kind = types.TransferTypeFiatToCrypto
		currency = "USDT"
	}
	amount := decimal.NewFromInt(int64(25000 + i*7350)).Add(decimal.New(int64(i%4)*25, -2))
	fee := amount.Mul(decimal.RequireFromString("0.015")).Round(2)
	transfer := &types.Transfer{
		ID:                    fmt.Sprintf("trf_%04d", i+1),
		Reference:             fmt.Sprintf("TRX-%06d", 240100+i),
		UserID:                customerID,
		Type:                  kind,
		Amount:                amount,
		Fee:                   fee,
		NetAmount:             amount.Sub(fee),
		Currency:              currency,
		Status:                status,
		Network:               "TON",
		DepositAddress:        fmt.Sprintf("UQBsandboxDeposit%032d", i+1),
		RequiredConfirmations: 12,
		CreatedAt:             created,
		UpdatedAt:             created,
	}
	if status != types.StatusPending && status != types.StatusAwaitingCrypto {
		transfer.TxHash = fmt.Sprintf("%064x", 0xabc000+i)
		transfer.Confirmations = 12
	}
	if kind == types.TransferTypeCryptoToFiat {
		transfer.BankAccounts = []types.BankAccountSnapshot{seedBanks[i%len(seedBanks)]}
	}
	switch status {
	case types.StatusCompleted:
		completed := created.Add(2 * time.Hour)
		transfer.CompletedAt = &completed
		transfer.StatusMessage = "Payout confirmed"
	case types.StatusFailed:
		transfer.StatusMessage = "Bank rejected payout"
	case types.StatusExpired:
		expires := created.Add(30 * time.Minute)
		transfer.ExpiresAt = &expires
	}
	return transfer
}
