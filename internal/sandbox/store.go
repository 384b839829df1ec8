package sandbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payadmin/internal/types"
)

var (
	errNotFound     = errors.New("not found")
	errInvalidState = errors.New("invalid state")
)

// db wraps the sandbox sqlite database. Every method takes a context and
// returns domain types from internal/types.
type db struct {
	sql *sql.DB
	now func() time.Time
}

func openDB(path string, now func() time.Time) (*db, error) {
	if strings.TrimSpace(path) == "" {
		path = ":memory:"
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sandbox db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect sandbox db: %w", err)
	}
	d := &db{sql: conn, now: now}
	if err := d.createTables(); err != nil {
		conn.Close()
		return nil, err
	}
	return d, nil
}

func (d *db) close() error {
	return d.sql.Close()
}

func (d *db) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS admins (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'admin',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL,
			last_login_at INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			jti TEXT PRIMARY KEY,
			admin_id TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			revoked INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (admin_id) REFERENCES admins(id)
		)`,
		`CREATE TABLE IF NOT EXISTS customers (
			id TEXT PRIMARY KEY,
			customer_code TEXT UNIQUE NOT NULL,
			email TEXT NOT NULL,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			kyc_status TEXT NOT NULL DEFAULT 'pending',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transfers (
			id TEXT PRIMARY KEY,
			reference TEXT UNIQUE NOT NULL,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			amount TEXT NOT NULL,
			fee TEXT NOT NULL,
			net_amount TEXT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			status_message TEXT NOT NULL DEFAULT '',
			tx_hash TEXT NOT NULL DEFAULT '',
			deposit_address TEXT NOT NULL DEFAULT '',
			admin_wallet_address TEXT NOT NULL DEFAULT '',
			network TEXT NOT NULL DEFAULT '',
			confirmations INTEGER NOT NULL DEFAULT 0,
			required_confirmations INTEGER NOT NULL DEFAULT 0,
			bank_accounts TEXT NOT NULL DEFAULT '[]',
			admin_remarks TEXT NOT NULL DEFAULT '',
			internal_notes TEXT NOT NULL DEFAULT '',
			processing_notes TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			completed_at INTEGER,
			expires_at INTEGER,
			FOREIGN KEY (user_id) REFERENCES customers(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transfers_status ON transfers(status)`,
		`CREATE TABLE IF NOT EXISTS status_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			transfer_id TEXT NOT NULL,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			actor_id TEXT NOT NULL DEFAULT '',
			actor_name TEXT NOT NULL DEFAULT '',
			remarks TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			FOREIGN KEY (transfer_id) REFERENCES transfers(id)
		)`,
		`CREATE TABLE IF NOT EXISTS wallets (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			network TEXT NOT NULL,
			currency TEXT NOT NULL,
			address TEXT NOT NULL,
			balance TEXT NOT NULL DEFAULT '0',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			actor_id TEXT NOT NULL,
			actor_name TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL DEFAULT '',
			details TEXT NOT NULL DEFAULT '{}',
			ip_address TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL
		)`,
	}
	for _, query := range queries {
		if _, err := d.sql.Exec(query); err != nil {
			return fmt.Errorf("create sandbox schema: %w", err)
		}
	}
	return nil
}

type adminRecord struct {
	profile      types.AdminProfile
	passwordHash string
	active       bool
}

func (d *db) insertAdmin(ctx context.Context, profile types.AdminProfile, passwordHash string) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO admins (id, email, password_hash, first_name, last_name, role, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		profile.ID, strings.ToLower(profile.Email), passwordHash, profile.FirstName, profile.LastName, profile.Role, d.now().UnixMilli(),
	)
	return err
}

func (d *db) adminByEmail(ctx context.Context, email string) (adminRecord, error) {
	return d.scanAdmin(d.sql.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, role, password_hash, is_active FROM admins WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	))
}

func (d *db) adminByID(ctx context.Context, id string) (adminRecord, error) {
	return d.scanAdmin(d.sql.QueryRowContext(ctx,
		`SELECT id, email, first_name, last_name, role, password_hash, is_active FROM admins WHERE id = ?`, id,
	))
}

func (d *db) scanAdmin(row *sql.Row) (adminRecord, error) {
	var rec adminRecord
	err := row.Scan(&rec.profile.ID, &rec.profile.Email, &rec.profile.FirstName, &rec.profile.LastName,
		&rec.profile.Role, &rec.passwordHash, &rec.active)
	if errors.Is(err, sql.ErrNoRows) {
		return adminRecord{}, errNotFound
	}
	return rec, err
}

func (d *db) touchLogin(ctx context.Context, adminID string) error {
	_, err := d.sql.ExecContext(ctx, `UPDATE admins SET last_login_at = ? WHERE id = ?`, d.now().UnixMilli(), adminID)
	return err
}

func (d *db) saveRefreshToken(ctx context.Context, jti, adminID string, expiresAt time.Time) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO refresh_tokens (jti, admin_id, expires_at) VALUES (?, ?, ?)`,
		jti, adminID, expiresAt.UnixMilli(),
	)
	return err
}

// consumeRefreshToken revokes jti and reports whether it was still usable.
func (d *db) consumeRefreshToken(ctx context.Context, jti string) (bool, error) {
	res, err := d.sql.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1 WHERE jti = ? AND revoked = 0 AND expires_at > ?`,
		jti, d.now().UnixMilli(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (d *db) revokeRefreshTokens(ctx context.Context, adminID string) error {
	_, err := d.sql.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = 1 WHERE admin_id = ?`, adminID)
	return err
}

func (d *db) insertCustomer(ctx context.Context, customer types.Customer) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO customers (id, customer_code, email, first_name, last_name, phone, kyc_status, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID, customer.CustomerCode, customer.Email, customer.FirstName, customer.LastName,
		customer.Phone, customer.KYCStatus, customer.IsActive, customer.CreatedAt.UnixMilli(),
	)
	return err
}

const transferColumns = `t.id, t.reference, t.user_id, t.type, t.amount, t.fee, t.net_amount, t.currency,
	t.status, t.status_message, t.tx_hash, t.deposit_address, t.admin_wallet_address, t.network,
	t.confirmations, t.required_confirmations, t.bank_accounts, t.admin_remarks, t.internal_notes,
	t.created_at, t.updated_at, t.completed_at, t.expires_at,
	c.customer_code, c.email, c.first_name, c.last_name`

func (d *db) insertTransfer(ctx context.Context, transfer *types.Transfer) error {
	banks, err := json.Marshal(nonNilBanks(transfer.BankAccounts))
	if err != nil {
		return err
	}
	if transfer.ID == "" {
		transfer.ID = uuid.NewString()
	}
	if transfer.Status == "" {
		transfer.Status = types.StatusPending
	}
	if transfer.CreatedAt.IsZero() {
		transfer.CreatedAt = d.now().UTC()
	}
	if transfer.UpdatedAt.IsZero() {
		transfer.UpdatedAt = transfer.CreatedAt
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO transfers (id, reference, user_id, type, amount, fee, net_amount, currency, status, status_message,
			tx_hash, deposit_address, admin_wallet_address, network, confirmations, required_confirmations, bank_accounts,
			admin_remarks, internal_notes, created_at, updated_at, completed_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transfer.ID, transfer.Reference, transfer.UserID, string(transfer.Type),
		transfer.Amount.String(), transfer.Fee.String(), transfer.NetAmount.String(), transfer.Currency,
		string(transfer.Status), transfer.StatusMessage, transfer.TxHash, transfer.DepositAddress,
		transfer.AdminWalletAddress, transfer.Network, transfer.Confirmations, transfer.RequiredConfirmations,
		string(banks), transfer.AdminRemarks, transfer.InternalNotes,
		transfer.CreatedAt.UnixMilli(), transfer.UpdatedAt.UnixMilli(),
		nullMillis(transfer.CompletedAt), nullMillis(transfer.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert transfer %s: %w", transfer.Reference, err)
	}
	return d.appendHistory(ctx, transfer.ID, types.StatusHistoryEntry{
		FromStatus: "",
		ToStatus:   transfer.Status,
		ActorName:  "system",
		Remarks:    "Transfer created",
		CreatedAt:  transfer.CreatedAt,
	})
}

type transferQuery struct {
	skip   int
	limit  int
	status types.Status
	kind   types.TransferType
	search string
}

func (q transferQuery) where() (string, []any) {
	var clauses []string
	var args []any
	if q.status != "" {
		clauses = append(clauses, "t.status = ?")
		args = append(args, string(q.status))
	}
	if q.kind != "" {
		clauses = append(clauses, "t.type = ?")
		args = append(args, string(q.kind))
	}
	if q.search != "" {
		like := "%" + strings.ToLower(q.search) + "%"
		clauses = append(clauses, "(LOWER(t.reference) LIKE ? OR LOWER(c.email) LIKE ? OR LOWER(t.tx_hash) LIKE ? OR LOWER(c.customer_code) LIKE ?)")
		args = append(args, like, like, like, like)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (d *db) listTransfers(ctx context.Context, q transferQuery) ([]*types.Transfer, int, error) {
	where, args := q.where()
	var total int
	if err := d.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transfers t JOIN customers c ON c.id = t.user_id`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transfers: %w", err)
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT `+transferColumns+` FROM transfers t JOIN customers c ON c.id = t.user_id`+where+
			` ORDER BY t.created_at DESC, t.reference DESC LIMIT ? OFFSET ?`,
		append(args, q.limit, q.skip)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()
	out := []*types.Transfer{}
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, transfer)
	}
	return out, total, rows.Err()
}

func (d *db) getTransfer(ctx context.Context, id string) (*types.Transfer, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT `+transferColumns+` FROM transfers t JOIN customers c ON c.id = t.user_id WHERE t.id = ?`, id)
	transfer, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	history, err := d.history(ctx, id)
	if err != nil {
		return nil, err
	}
	transfer.StatusHistory = history
	return transfer, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row scanner) (*types.Transfer, error) {
	var (
		t                      types.Transfer
		user                   types.UserSummary
		kind, status, banks    string
		created, updated       int64
		completedAt, expiresAt sql.NullInt64
		amount, fee, net       decimal.Decimal
	)
	err := row.Scan(&t.ID, &t.Reference, &t.UserID, &kind, &amount, &fee, &net, &t.Currency,
		&status, &t.StatusMessage, &t.TxHash, &t.DepositAddress, &t.AdminWalletAddress, &t.Network,
		&t.Confirmations, &t.RequiredConfirmations, &banks, &t.AdminRemarks, &t.InternalNotes,
		&created, &updated, &completedAt, &expiresAt,
		&user.CustomerCode, &user.Email, &user.FirstName, &user.LastName,
	)
	if err != nil {
		return nil, err
	}
	t.Type = types.TransferType(kind)
	t.Status = types.Status(status)
	t.Amount, t.Fee, t.NetAmount = amount, fee, net
	t.CreatedAt = time.UnixMilli(created).UTC()
	t.UpdatedAt = time.UnixMilli(updated).UTC()
	t.CompletedAt = millisPtr(completedAt)
	t.ExpiresAt = millisPtr(expiresAt)
	user.ID = t.UserID
	t.User = &user
	if banks != "" {
		if err := json.Unmarshal([]byte(banks), &t.BankAccounts); err != nil {
			return nil, fmt.Errorf("decode bank accounts of %s: %w", t.ID, err)
		}
		if len(t.BankAccounts) == 0 {
			t.BankAccounts = nil
		}
	}
	return &t, nil
}

func (d *db) history(ctx context.Context, transferID string) ([]types.StatusHistoryEntry, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT from_status, to_status, actor_id, actor_name, remarks, created_at FROM status_history WHERE transfer_id = ? ORDER BY created_at, id`,
		transferID,
	)
	if err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	defer rows.Close()
	var out []types.StatusHistoryEntry
	for rows.Next() {
		var (
			entry    types.StatusHistoryEntry
			from, to string
			created  int64
		)
		if err := rows.Scan(&from, &to, &entry.ActorID, &entry.ActorName, &entry.Remarks, &created); err != nil {
			return nil, err
		}
		entry.FromStatus = types.Status(from)
		entry.ToStatus = types.Status(to)
		entry.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (d *db) appendHistory(ctx context.Context, transferID string, entry types.StatusHistoryEntry) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO status_history (transfer_id, from_status, to_status, actor_id, actor_name, remarks, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		transferID, string(entry.FromStatus), string(entry.ToStatus), entry.ActorID, entry.ActorName, entry.Remarks, entry.CreatedAt.UnixMilli(),
	)
	return err
}

// transferChange is an admin update after validation.
type transferChange struct {
	status          *types.Status
	statusMessage   *string
	processingNotes *string
	adminRemarks    *string
	internalNotes   *string
}

// updateTransfer applies change inside one transaction and records a
// status history entry when the status moves.
func (d *db) updateTransfer(ctx context.Context, id string, change transferChange, actor types.AdminProfile) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var current string
	if err := tx.QueryRowContext(ctx, `SELECT status FROM transfers WHERE id = ?`, id).Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errNotFound
		}
		return err
	}
	from := types.Status(current)
	now := d.now().UTC()

	sets := []string{"updated_at = ?"}
	args := []any{now.UnixMilli()}
	if change.status != nil && *change.status != from {
		if err := types.ValidateTransition(from, *change.status); err != nil {
			return fmt.Errorf("%w: %v", errInvalidState, err)
		}
		sets = append(sets, "status = ?")
		args = append(args, string(*change.status))
		if *change.status == types.StatusCompleted {
			sets = append(sets, "completed_at = ?")
			args = append(args, now.UnixMilli())
		}
		remarks := ""
		if change.statusMessage != nil {
			remarks = *change.statusMessage
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO status_history (transfer_id, from_status, to_status, actor_id, actor_name, remarks, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, string(from), string(*change.status), actor.ID, actor.DisplayName(), remarks, now.UnixMilli(),
		); err != nil {
			return err
		}
	}
	for column, value := range map[string]*string{
		"status_message":   change.statusMessage,
		"processing_notes": change.processingNotes,
		"admin_remarks":    change.adminRemarks,
		"internal_notes":   change.internalNotes,
	} {
		if value != nil {
			sets = append(sets, column+" = ?")
			args = append(args, *value)
		}
	}
	args = append(args, id)
	if _, err := tx.ExecContext(ctx, `UPDATE transfers SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return err
	}
	if err := insertAudit(ctx, tx, types.AuditLog{
		ActorID:    actor.ID,
		ActorName:  actor.DisplayName(),
		Action:     "transfer.update",
		EntityType: "transfer",
		EntityID:   id,
		Details:    describeChange(from, change),
		CreatedAt:  now,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func describeChange(from types.Status, change transferChange) map[string]any {
	details := map[string]any{}
	if change.status != nil && *change.status != from {
		details["from_status"] = string(from)
		details["to_status"] = string(*change.status)
	}
	if change.statusMessage != nil {
		details["status_message"] = *change.statusMessage
	}
	return details
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAudit(ctx context.Context, conn execer, entry types.AuditLog) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	_, err = conn.ExecContext(ctx,
		`INSERT INTO audit_logs (actor_id, actor_name, action, entity_type, entity_id, details, ip_address, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ActorID, entry.ActorName, entry.Action, entry.EntityType, entry.EntityID, string(details), entry.IPAddress, entry.CreatedAt.UnixMilli(),
	)
	return err
}

func (d *db) recordAudit(ctx context.Context, entry types.AuditLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = d.now().UTC()
	}
	return insertAudit(ctx, d.sql, entry)
}

func (d *db) pendingCount(ctx context.Context) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transfers WHERE status IN (?, ?, ?)`,
		string(types.StatusPending), string(types.StatusAwaitingCrypto), string(types.StatusCryptoReceived),
	).Scan(&n)
	return n, err
}

func (d *db) listCustomers(ctx context.Context, skip, limit int, search string) ([]types.Customer, int, error) {
	where, args := "", []any{}
	if search = strings.ToLower(strings.TrimSpace(search)); search != "" {
		like := "%" + search + "%"
		where = ` WHERE LOWER(email) LIKE ? OR LOWER(customer_code) LIKE ? OR LOWER(first_name || ' ' || last_name) LIKE ?`
		args = append(args, like, like, like)
	}
	var total int
	if err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, customer_code, email, first_name, last_name, phone, kyc_status, is_active, created_at FROM customers`+where+
			` ORDER BY created_at DESC, customer_code LIMIT ? OFFSET ?`,
		append(args, limit, skip)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []types.Customer{}
	for rows.Next() {
		var (
			c       types.Customer
			created int64
		)
		if err := rows.Scan(&c.ID, &c.CustomerCode, &c.Email, &c.FirstName, &c.LastName, &c.Phone, &c.KYCStatus, &c.IsActive, &created); err != nil {
			return nil, 0, err
		}
		c.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (d *db) listAdmins(ctx context.Context, skip, limit int) ([]types.Admin, int, error) {
	var total int
	if err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, email, first_name, last_name, role, is_active, created_at, last_login_at FROM admins ORDER BY email LIMIT ? OFFSET ?`,
		limit, skip,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []types.Admin{}
	for rows.Next() {
		var (
			a         types.Admin
			created   int64
			lastLogin sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.Role, &a.IsActive, &created, &lastLogin); err != nil {
			return nil, 0, err
		}
		a.CreatedAt = time.UnixMilli(created).UTC()
		a.LastLogin = millisPtr(lastLogin)
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (d *db) insertWallet(ctx context.Context, wallet types.Wallet) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO wallets (id, label, network, currency, address, balance, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		wallet.ID, wallet.Label, wallet.Network, wallet.Currency, wallet.Address, wallet.Balance.String(), wallet.IsActive, wallet.CreatedAt.UnixMilli(),
	)
	return err
}

func (d *db) listWallets(ctx context.Context, skip, limit int) ([]types.Wallet, int, error) {
	var total int
	if err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallets`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, label, network, currency, address, balance, is_active, created_at FROM wallets ORDER BY label LIMIT ? OFFSET ?`,
		limit, skip,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []types.Wallet{}
	for rows.Next() {
		var (
			w       types.Wallet
			created int64
		)
		if err := rows.Scan(&w.ID, &w.Label, &w.Network, &w.Currency, &w.Address, &w.Balance, &w.IsActive, &created); err != nil {
			return nil, 0, err
		}
		w.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, w)
	}
	return out, total, rows.Err()
}

func (d *db) listAuditLogs(ctx context.Context, skip, limit int) ([]types.AuditLog, int, error) {
	var total int
	if err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, actor_id, actor_name, action, entity_type, entity_id, details, ip_address, created_at FROM audit_logs ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, skip,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []types.AuditLog{}
	for rows.Next() {
		var (
			entry   types.AuditLog
			id      int64
			details string
			created int64
		)
		if err := rows.Scan(&id, &entry.ActorID, &entry.ActorName, &entry.Action, &entry.EntityType, &entry.EntityID, &details, &entry.IPAddress, &created); err != nil {
			return nil, 0, err
		}
		if details != "" {
			if err := json.Unmarshal([]byte(details), &entry.Details); err != nil {
				return nil, 0, fmt.Errorf("decode audit details: %w", err)
			}
		}
		entry.ID = strconv.FormatInt(id, 10)
		entry.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, entry)
	}
	return out, total, rows.Err()
}

func (d *db) putSetting(ctx context.Context, setting types.SystemSetting) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO settings (key, value, description, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, description = excluded.description, updated_at = excluded.updated_at`,
		setting.Key, setting.Value, setting.Description, d.now().UnixMilli(),
	)
	return err
}

func (d *db) listSettings(ctx context.Context) ([]types.SystemSetting, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT key, value, description, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []types.SystemSetting{}
	for rows.Next() {
		var (
			s       types.SystemSetting
			updated int64
		)
		if err := rows.Scan(&s.Key, &s.Value, &s.Description, &updated); err != nil {
			return nil, err
		}
		s.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func millisPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

func nonNilBanks(in []types.BankAccountSnapshot) []types.BankAccountSnapshot {
	if in == nil {
		return []types.BankAccountSnapshot{}
	}
	return in
}
