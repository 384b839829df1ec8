package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	xansi "github.com/charmbracelet/x/ansi"
	"github.com/shopspring/decimal"

	"payadmin/internal/app"
	"payadmin/internal/client"
	"payadmin/internal/config"
	"payadmin/internal/logging"
	"payadmin/internal/store"
	"payadmin/internal/types"
)

type fakeCommandClient struct {
	mu sync.Mutex

	loginEmail    string
	loginPassword string
	loginErr      error
	logoutCalls   int
	logoutErr     error
	profile       *types.AdminProfile

	pendingCount int
	pendingErr   error
	pendingCalls int
	onPending    func()

	transfers  map[string]*types.Transfer
	listTotal  int
	listCalls  []client.ListTransfersParams
	updates    []types.TransferUpdate
	bulkCalls  []types.BulkStatusUpdate
	customers  []types.Customer
	recordArgs []client.ListParams

	state  store.AppStateStore
	closed int
}

func newFakeCommandClient(transfers ...*types.Transfer) *fakeCommandClient {
	fake := &fakeCommandClient{
		transfers: map[string]*types.Transfer{},
		state:     store.NewMemoryRepository().AppState(),
	}
	for _, transfer := range transfers {
		fake.transfers[transfer.ID] = transfer
	}
	return fake
}

func fixedFactory(fake *fakeCommandClient) clientFactory {
	return func(opts ...client.Option) (commandClient, error) {
		return fake, nil
	}
}

func (f *fakeCommandClient) Login(_ context.Context, email, password string) (*types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginEmail = email
	f.loginPassword = password
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &types.Session{AccessToken: "token", Admin: f.profile}, nil
}

func (f *fakeCommandClient) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeCommandClient) Me(context.Context) (*types.AdminProfile, error) {
	if f.profile == nil {
		return nil, client.ErrNotAuthenticated
	}
	return f.profile, nil
}

func (f *fakeCommandClient) PendingCount(context.Context) (types.PendingCount, error) {
	f.mu.Lock()
	f.pendingCalls++
	count, err, hook := f.pendingCount, f.pendingErr, f.onPending
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return types.PendingCount{}, err
	}
	return types.PendingCount{PendingCount: count, Timestamp: time.Now()}, nil
}

func (f *fakeCommandClient) ListTransfers(_ context.Context, params client.ListTransfersParams) (*client.TransferList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, params)
	var items []*types.Transfer
	for _, transfer := range f.transfers {
		if params.StatusFilter != "" && transfer.Status != params.StatusFilter {
			continue
		}
		items = append(items, transfer.Clone())
	}
	total := f.listTotal
	if total == 0 {
		total = len(items)
	}
	return &client.TransferList{Transfers: items, TotalCount: total}, nil
}

func (f *fakeCommandClient) GetTransfer(_ context.Context, id string) (*types.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	transfer, ok := f.transfers[id]
	if !ok {
		return nil, &client.APIError{StatusCode: 404, Message: "Transfer not found"}
	}
	return transfer.Clone(), nil
}

func (f *fakeCommandClient) UpdateTransfer(_ context.Context, id string, update types.TransferUpdate) (*types.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
	transfer, ok := f.transfers[id]
	if !ok {
		return nil, &client.APIError{StatusCode: 404, Message: "Transfer not found"}
	}
	if update.Status != nil {
		transfer.Status = *update.Status
	}
	if update.StatusMessage != nil {
		transfer.StatusMessage = *update.StatusMessage
	}
	return transfer.Clone(), nil
}

func (f *fakeCommandClient) BulkUpdateStatus(_ context.Context, update types.BulkStatusUpdate) (*types.BulkStatusResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkCalls = append(f.bulkCalls, update)
	return &types.BulkStatusResult{Updated: len(update.TransferIDs)}, nil
}

func (f *fakeCommandClient) ListCustomers(_ context.Context, params client.ListParams) (*client.RecordList[types.Customer], error) {
	f.recordArgs = append(f.recordArgs, params)
	return &client.RecordList[types.Customer]{Items: f.customers, TotalCount: len(f.customers)}, nil
}

func (f *fakeCommandClient) ListAdmins(_ context.Context, params client.ListParams) (*client.RecordList[types.Admin], error) {
	f.recordArgs = append(f.recordArgs, params)
	return &client.RecordList[types.Admin]{}, nil
}

func (f *fakeCommandClient) ListWallets(_ context.Context, params client.ListParams) (*client.RecordList[types.Wallet], error) {
	f.recordArgs = append(f.recordArgs, params)
	return &client.RecordList[types.Wallet]{}, nil
}

func (f *fakeCommandClient) ListAuditLogs(_ context.Context, params client.ListParams) (*client.RecordList[types.AuditLog], error) {
	f.recordArgs = append(f.recordArgs, params)
	return &client.RecordList[types.AuditLog]{}, nil
}

func (f *fakeCommandClient) ListSettings(context.Context) (*client.RecordList[types.SystemSetting], error) {
	return &client.RecordList[types.SystemSetting]{}, nil
}

func (f *fakeCommandClient) AppState() store.AppStateStore {
	return f.state
}

func (f *fakeCommandClient) BaseURL() string {
	return "http://admin.test/api/v1"
}

func (f *fakeCommandClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// syncBuffer is written from poller goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testWiring(fake *fakeCommandClient, stdout *bytes.Buffer) commandWiring {
	return commandWiring{
		stdout:    stdout,
		stderr:    &bytes.Buffer{},
		cfg:       config.Default(),
		logger:    logging.Nop(),
		newClient: fixedFactory(fake),
		signalContext: func() (context.Context, context.CancelFunc) {
			return context.WithCancel(context.Background())
		},
		version: "test",
	}
}

func cmdTransfer(id, ref string, status types.Status) *types.Transfer {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return &types.Transfer{
		ID:        id,
		Reference: ref,
		Type:      types.TransferTypeCryptoToFiat,
		Amount:    decimal.RequireFromString("150.00"),
		Fee:       decimal.RequireFromString("1.50"),
		NetAmount: decimal.RequireFromString("148.50"),
		Currency:  "USDT",
		Status:    status,
		User:      &types.UserSummary{ID: "u1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestBuildCommandsRegistersEverySubcommand(t *testing.T) {
	commands := buildCommands(testWiring(newFakeCommandClient(), &bytes.Buffer{}))
	for _, name := range []string{"login", "logout", "whoami", "pending", "watch", "transfers", "records", "ui", "config", "sandbox", "version"} {
		if _, ok := commands[name]; !ok {
			t.Fatalf("expected %q to be registered", name)
		}
	}
}

func TestLoginFallsBackToConfiguredCredentials(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := newFakeCommandClient()
	fake.profile = &types.AdminProfile{Email: "ops@example.com", FirstName: "Ops", LastName: "Admin"}
	cfg := config.Default()
	cfg.API.Email = "ops@example.com"
	cfg.API.Password = "from-env"

	cmd := NewLoginCommand(stdout, &bytes.Buffer{}, cfg, fixedFactory(fake))
	if err := cmd.Run(nil); err != nil {
		t.Fatalf("expected login to succeed, got err=%v", err)
	}
	if fake.loginEmail != "ops@example.com" || fake.loginPassword != "from-env" {
		t.Fatalf("unexpected credentials: %q / %q", fake.loginEmail, fake.loginPassword)
	}
	if got := stdout.String(); !strings.Contains(got, "signed in as Ops Admin") {
		t.Fatalf("unexpected stdout: %q", got)
	}
	if fake.closed != 1 {
		t.Fatalf("expected client to be closed, got %d", fake.closed)
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	fake := newFakeCommandClient()
	cmd := NewLoginCommand(&bytes.Buffer{}, &bytes.Buffer{}, config.Default(), fixedFactory(fake))
	if err := cmd.Run([]string{"--email", "ops@example.com"}); err == nil {
		t.Fatalf("expected missing password to fail")
	}
	if fake.loginEmail != "" {
		t.Fatalf("expected no login attempt")
	}
}

func TestLoginShowsBackendMessage(t *testing.T) {
	fake := newFakeCommandClient()
	fake.loginErr = &client.APIError{StatusCode: 401, Message: "Invalid email or password"}
	cmd := NewLoginCommand(&bytes.Buffer{}, &bytes.Buffer{}, config.Default(), fixedFactory(fake))
	err := cmd.Run([]string{"--email", "ops@example.com", "--password", "nope"})
	if err == nil || err.Error() != "Invalid email or password" {
		t.Fatalf("expected backend message, got %v", err)
	}
}

func TestLogoutSucceedsWhenServerRejects(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	fake := newFakeCommandClient()
	fake.logoutErr = errors.New("connection refused")
	cmd := NewLogoutCommand(stdout, stderr, fixedFactory(fake))
	if err := cmd.Run(nil); err != nil {
		t.Fatalf("expected logout to succeed, got err=%v", err)
	}
	if fake.logoutCalls != 1 {
		t.Fatalf("expected one logout call, got %d", fake.logoutCalls)
	}
	if !strings.Contains(stderr.String(), client.GenericErrorMessage) {
		t.Fatalf("expected server failure on stderr, got %q", stderr.String())
	}
	if stdout.String() != "signed out\n" {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
}

func TestWhoAmIWritesJSON(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := newFakeCommandClient()
	fake.profile = &types.AdminProfile{ID: "a1", Email: "ops@example.com", Role: "super_admin"}
	cmd := NewWhoAmICommand(stdout, &bytes.Buffer{}, fixedFactory(fake))
	if err := cmd.Run([]string{"--format", "json"}); err != nil {
		t.Fatalf("expected whoami to succeed, got err=%v", err)
	}
	var profile types.AdminProfile
	if err := json.Unmarshal(stdout.Bytes(), &profile); err != nil {
		t.Fatalf("expected valid json, got err=%v raw=%q", err, stdout.String())
	}
	if profile.Email != "ops@example.com" || profile.Role != "super_admin" {
		t.Fatalf("unexpected profile: %#v", profile)
	}
}

func TestWhoAmIWithoutSession(t *testing.T) {
	cmd := NewWhoAmICommand(&bytes.Buffer{}, &bytes.Buffer{}, fixedFactory(newFakeCommandClient()))
	err := cmd.Run(nil)
	if err == nil || !strings.Contains(err.Error(), "not signed in") {
		t.Fatalf("expected not signed in error, got %v", err)
	}
}

func TestPendingPrintsCount(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := newFakeCommandClient()
	fake.pendingCount = 7
	cmd := NewPendingCommand(stdout, &bytes.Buffer{}, fixedFactory(fake), logging.Nop())
	if err := cmd.Run(nil); err != nil {
		t.Fatalf("expected pending to succeed, got err=%v", err)
	}
	if stdout.String() != "7\n" {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
}

func TestPendingSurfacesBackendError(t *testing.T) {
	fake := newFakeCommandClient()
	fake.pendingErr = &client.APIError{StatusCode: 503, Message: "Maintenance in progress"}
	cmd := NewPendingCommand(&bytes.Buffer{}, &bytes.Buffer{}, fixedFactory(fake), logging.Nop())
	err := cmd.Run(nil)
	if err == nil || err.Error() != "Maintenance in progress" {
		t.Fatalf("expected backend message, got %v", err)
	}
}

func TestWatchPrintsRefreshesUntilInterrupted(t *testing.T) {
	stdout := &syncBuffer{}
	fake := newFakeCommandClient()
	fake.pendingCount = 4
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wiring := testWiring(fake, &bytes.Buffer{})
	wiring.stdout = stdout
	wiring.signalContext = func() (context.Context, context.CancelFunc) {
		return ctx, cancel
	}
	cmd := NewWatchCommand(wiring)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Run([]string{"--interval", "1h"})
	}()
	waitFor(t, func() bool { return strings.Contains(stdout.String(), "4 pending") })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("watch did not stop after interrupt")
	}
	if fake.closed != 1 {
		t.Fatalf("expected client to be closed, got %d", fake.closed)
	}
}

func TestWatchRejectsNonPositiveInterval(t *testing.T) {
	cmd := NewWatchCommand(testWiring(newFakeCommandClient(), &bytes.Buffer{}))
	if err := cmd.Run([]string{"--interval", "0s"}); err == nil {
		t.Fatalf("expected interval validation error")
	}
}

func TestNotificationSettingsForHeadlessRuns(t *testing.T) {
	cfg := config.Default()

	headless := notificationSettings(cfg, false)
	if len(headless.Methods) != 1 || headless.Methods[0] != types.NotificationMethodLog {
		t.Fatalf("expected only log without a toast queue, got %v", headless.Methods)
	}
	withToast := notificationSettings(cfg, true)
	if len(withToast.Methods) != 2 || withToast.Methods[0] != types.NotificationMethodToast {
		t.Fatalf("expected configured methods with a toast queue, got %v", withToast.Methods)
	}

	cfg.Notifications.Telegram.Token = "bot-token"
	cfg.Notifications.Telegram.ChatID = 42
	telegram := notificationSettings(cfg, false)
	if len(telegram.Methods) != 2 || telegram.Methods[1] != types.NotificationMethodTelegram {
		t.Fatalf("expected telegram to be added, got %v", telegram.Methods)
	}
}

func TestTransfersListMapsFiltersAndPrintsTable(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := newFakeCommandClient(cmdTransfer("t1", "TR-1001", types.StatusPending))
	fake.listTotal = 6
	cmd := NewTransfersCommand(stdout, &bytes.Buffer{}, config.Default(), fixedFactory(fake), logging.Nop())

	err := cmd.Run([]string{"list", "--kind", "pending", "--search", "ada", "--page", "2", "--limit", "5"})
	if err != nil {
		t.Fatalf("expected list to succeed, got err=%v", err)
	}
	if len(fake.listCalls) != 1 {
		t.Fatalf("expected one list call, got %d", len(fake.listCalls))
	}
	params := fake.listCalls[0]
	if params.StatusFilter != types.StatusPending || params.Search != "ada" || params.Skip != 5 || params.Limit != 5 {
		t.Fatalf("unexpected list params: %#v", params)
	}
	out := stdout.String()
	if !strings.Contains(out, "REFERENCE") || !strings.Contains(out, "TR-1001") || !strings.Contains(out, "Ada Lovelace") {
		t.Fatalf("expected transfer row, got %q", out)
	}
	if !strings.Contains(out, "page 2 of 2, 6 total") {
		t.Fatalf("expected pagination footer, got %q", out)
	}
}

func TestTransfersListYAMLUsesAPIFieldNames(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := newFakeCommandClient(cmdTransfer("t1", "TR-1001", types.StatusPending))
	cmd := NewTransfersCommand(stdout, &bytes.Buffer{}, config.Default(), fixedFactory(fake), logging.Nop())
	if err := cmd.Run([]string{"list", "--format", "yaml"}); err != nil {
		t.Fatalf("expected list to succeed, got err=%v", err)
	}
	out := stdout.String()
	for _, want := range []string{"kind:", "reference:", "TR-1001", "net_amount:", "total_count:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in yaml output, got %q", want, out)
		}
	}
	if strings.Contains(out, "{") {
		t.Fatalf("expected block style yaml, got %q", out)
	}
}

func TestTransfersListRejectsUnknownView(t *testing.T) {
	fake := newFakeCommandClient()
	cmd := NewTransfersCommand(&bytes.Buffer{}, &bytes.Buffer{}, config.Default(), fixedFactory(fake), logging.Nop())
	if err := cmd.Run([]string{"list", "--kind", "archived"}); err == nil {
		t.Fatalf("expected unknown view error")
	}
	if len(fake.listCalls) != 0 {
		t.Fatalf("expected no request, got %d", len(fake.listCalls))
	}
}

func TestTransfersShowRendersMarkdown(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := newFakeCommandClient(cmdTransfer("t1", "TR-1001", types.StatusOnHold))
	cmd := NewTransfersCommand(stdout, &bytes.Buffer{}, config.Default(), fixedFactory(fake), logging.Nop())
	if err := cmd.Run([]string{"show", "t1", "--width", "80"}); err != nil {
		t.Fatalf("expected show to succeed, got err=%v", err)
	}
	out := xansi.Strip(stdout.String())
	if !strings.Contains(out, "TR-1001") || !strings.Contains(out, "148.50") {
		t.Fatalf("expected transfer details, got %q", out)
	}
}

func TestTransfersShowMissingTransfer(t *testing.T) {
	cmd := NewTransfersCommand(&bytes.Buffer{}, &bytes.Buffer{}, config.Default(), fixedFactory(newFakeCommandClient()), logging.Nop())
	err := cmd.Run([]string{"show", "missing"})
	if err == nil || err.Error() != "Transfer not found" {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTransfersApproveAcceptsTrailingFlags(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := newFakeCommandClient(cmdTransfer("t1", "TR-1001", types.StatusPending))
	cmd := NewTransfersCommand(stdout, &bytes.Buffer{}, config.Default(), fixedFactory(fake), logging.Nop())

	if err := cmd.Run([]string{"approve", "t1", "--notes", "matched bank statement"}); err != nil {
		t.Fatalf("expected approve to succeed, got err=%v", err)
	}
	if len(fake.updates) != 1 {
		t.Fatalf("expected one update, got %d", len(fake.updates))
	}
	update := fake.updates[0]
	if update.Status == nil || *update.Status != types.StatusCompleted {
		t.Fatalf("expected completed, got %#v", update.Status)
	}
	if update.InternalNotes == nil || *update.InternalNotes != "matched bank statement" {
		t.Fatalf("expected notes, got %#v", update.InternalNotes)
	}
	out := stdout.String()
	if !strings.Contains(out, "success: Transfer updated") || !strings.Contains(out, "TR-1001: pending -> completed") {
		t.Fatalf("unexpected stdout: %q", out)
	}
}

func TestTransfersRejectFinalTransferIsRefused(t *testing.T) {
	fake := newFakeCommandClient(cmdTransfer("t1", "TR-1001", types.StatusCompleted))
	cmd := NewTransfersCommand(&bytes.Buffer{}, &bytes.Buffer{}, config.Default(), fixedFactory(fake), logging.Nop())
	err := cmd.Run([]string{"reject", "--reason", "duplicate", "t1"})
	if err == nil || !strings.Contains(err.Error(), "invalid status transition") {
		t.Fatalf("expected transition error, got %v", err)
	}
	if len(fake.updates) != 0 {
		t.Fatalf("expected no update request, got %d", len(fake.updates))
	}
}

func TestTransfersSetStatusBuildsUpdate(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := newFakeCommandClient(cmdTransfer("t1", "TR-1001", types.StatusPending))
	cmd := NewTransfersCommand(stdout, &bytes.Buffer{}, config.Default(), fixedFactory(fake), logging.Nop())

	err := cmd.Run([]string{"set-status", "t1", "--status", "On Hold", "--remarks", "awaiting KYC"})
	if err != nil {
		t.Fatalf("expected set-status to succeed, got err=%v", err)
	}
	update := fake.updates[0]
	if *update.Status != types.StatusOnHold {
		t.Fatalf("expected on_hold, got %q", *update.Status)
	}
	if update.AdminRemarks == nil || *update.AdminRemarks != "awaiting KYC" {
		t.Fatalf("expected remarks, got %#v", update.AdminRemarks)
	}
	if update.StatusMessage != nil || update.InternalNotes != nil {
		t.Fatalf("expected unset fields to stay nil: %#v", update)
	}
}

func TestTransfersSetStatusRequiresStatus(t *testing.T) {
	fake := newFakeCommandClient(cmdTransfer("t1", "TR-1001", types.StatusPending))
	cmd := NewTransfersCommand(&bytes.Buffer{}, &bytes.Buffer{}, config.Default(), fixedFactory(fake), logging.Nop())
	if err := cmd.Run([]string{"set-status", "t1"}); err == nil {
		t.Fatalf("expected missing status error")
	}
	if len(fake.updates) != 0 {
		t.Fatalf("expected no update, got %d", len(fake.updates))
	}
}

func TestTransfersBulkSendsOneRequest(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := newFakeCommandClient()
	cmd := NewTransfersCommand(stdout, &bytes.Buffer{}, config.Default(), fixedFactory(fake), logging.Nop())

	if err := cmd.Run([]string{"bulk", "--status", "failed", "t1", "t2", "t1"}); err != nil {
		t.Fatalf("expected bulk to succeed, got err=%v", err)
	}
	if len(fake.bulkCalls) != 1 {
		t.Fatalf("expected one bulk call, got %d", len(fake.bulkCalls))
	}
	bulk := fake.bulkCalls[0]
	if strings.Join(bulk.TransferIDs, ",") != "t1,t2" || bulk.Status != types.StatusFailed {
		t.Fatalf("unexpected bulk request: %#v", bulk)
	}
	if len(fake.listCalls) != 1 {
		t.Fatalf("expected the all view to be reloaded, got %d list calls", len(fake.listCalls))
	}
	if !strings.Contains(stdout.String(), "Bulk update: 2 updated, 0 failed") {
		t.Fatalf("unexpected stdout: %q", stdout.String())
	}
}

func TestTransfersUnknownSubcommand(t *testing.T) {
	cmd := NewTransfersCommand(&bytes.Buffer{}, &bytes.Buffer{}, config.Default(), fixedFactory(newFakeCommandClient()), logging.Nop())
	if err := cmd.Run([]string{"archive", "t1"}); err == nil {
		t.Fatalf("expected unknown subcommand error")
	}
	if err := cmd.Run(nil); err == nil {
		t.Fatalf("expected usage error")
	}
}

func TestRecordsCustomersTable(t *testing.T) {
	stdout := &bytes.Buffer{}
	fake := newFakeCommandClient()
	fake.customers = []types.Customer{{ID: "c1", CustomerCode: "C-0001", Email: "ada@example.com", FirstName: "Ada", IsActive: true}}
	cmd := NewRecordsCommand(stdout, &bytes.Buffer{}, fixedFactory(fake))

	if err := cmd.Run([]string{"customers", "--page", "3", "--limit", "10", "--search", "ada"}); err != nil {
		t.Fatalf("expected records to succeed, got err=%v", err)
	}
	if len(fake.recordArgs) != 1 {
		t.Fatalf("expected one request, got %d", len(fake.recordArgs))
	}
	if params := fake.recordArgs[0]; params.Skip != 20 || params.Limit != 10 || params.Search != "ada" {
		t.Fatalf("unexpected params: %#v", params)
	}
	out := stdout.String()
	if !strings.Contains(out, "C-0001") || !strings.Contains(out, "yes") || !strings.Contains(out, "1 shown, 1 total") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRecordsEmptyJSONIsAnArray(t *testing.T) {
	stdout := &bytes.Buffer{}
	cmd := NewRecordsCommand(stdout, &bytes.Buffer{}, fixedFactory(newFakeCommandClient()))
	if err := cmd.Run([]string{"wallets", "--format", "json"}); err != nil {
		t.Fatalf("expected records to succeed, got err=%v", err)
	}
	if !strings.Contains(stdout.String(), `"items": []`) {
		t.Fatalf("expected empty items array, got %q", stdout.String())
	}
}

func TestRecordsUnknownType(t *testing.T) {
	cmd := NewRecordsCommand(&bytes.Buffer{}, &bytes.Buffer{}, fixedFactory(newFakeCommandClient()))
	if err := cmd.Run([]string{"invoices"}); err == nil {
		t.Fatalf("expected unknown record type error")
	}
}

func TestConfigRedactsSecrets(t *testing.T) {
	stdout := &bytes.Buffer{}
	cfg := config.Default()
	cfg.API.Password = "hunter2"
	cfg.Notifications.Telegram.Token = "bot-secret"
	cmd := NewConfigCommand(stdout, &bytes.Buffer{}, cfg)

	if err := cmd.Run([]string{"--format", "json"}); err != nil {
		t.Fatalf("expected config to succeed, got err=%v", err)
	}
	out := stdout.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "bot-secret") {
		t.Fatalf("expected secrets to be redacted, got %q", out)
	}
	if !strings.Contains(out, redacted) || !strings.Contains(out, `"base_url"`) {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestConfigDefaultsAsTOML(t *testing.T) {
	stdout := &bytes.Buffer{}
	cfg := config.Default()
	cfg.API.BaseURL = "https://admin.example.com/api/v1"
	cmd := NewConfigCommand(stdout, &bytes.Buffer{}, cfg)
	if err := cmd.Run([]string{"--defaults"}); err != nil {
		t.Fatalf("expected config to succeed, got err=%v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "base_url") || strings.Contains(out, "admin.example.com") {
		t.Fatalf("expected default values, got %q", out)
	}
}

func TestUICommandWiresDashboard(t *testing.T) {
	fake := newFakeCommandClient()
	wiring := testWiring(fake, &bytes.Buffer{})
	var configured bool
	wiring.configureUILogging = func(config.Config) logging.Logger {
		configured = true
		return logging.Nop()
	}
	var got app.Options
	wiring.runUI = func(ctx context.Context, opts app.Options) error {
		got = opts
		return nil
	}
	cmd := NewUICommand(wiring)

	if err := cmd.Run([]string{"--page-size", "50", "--interval", "10s"}); err != nil {
		t.Fatalf("expected ui to succeed, got err=%v", err)
	}
	if !configured {
		t.Fatalf("expected ui logging to be configured")
	}
	if got.Service == nil || got.Tracker == nil || got.Toasts == nil {
		t.Fatalf("expected service, tracker and toasts: %#v", got)
	}
	if got.PageSize != 50 || got.PollInterval != 10*time.Second {
		t.Fatalf("unexpected sizing: page=%d interval=%s", got.PageSize, got.PollInterval)
	}
	if got.State != fake.state {
		t.Fatalf("expected app state from the client repository")
	}
	if fake.closed != 1 {
		t.Fatalf("expected client to be closed, got %d", fake.closed)
	}
}

func TestUICommandReturnsRunError(t *testing.T) {
	wiring := testWiring(newFakeCommandClient(), &bytes.Buffer{})
	wiring.runUI = func(context.Context, app.Options) error {
		return errors.New("no tty")
	}
	if err := NewUICommand(wiring).Run(nil); err == nil || err.Error() != "no tty" {
		t.Fatalf("expected run error, got %v", err)
	}
}

func TestTextTableAlignsWideRunes(t *testing.T) {
	table := newTextTable("NAME", "VALUE")
	table.Append("名前", "1")
	table.Append("a", "2")
	out := &bytes.Buffer{}
	if err := table.Render(out); err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "NAME  VALUE\n名前  1\na     2\n"
	if out.String() != want {
		t.Fatalf("unexpected table:\n%q\nwant\n%q", out.String(), want)
	}
}

func TestParseInterspersedCollectsPositionals(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		ids   string
		notes string
	}{
		{name: "flags first", args: []string{"--notes", "x", "t1"}, ids: "t1", notes: "x"},
		{name: "flags last", args: []string{"t1", "--notes", "y"}, ids: "t1", notes: "y"},
		{name: "mixed", args: []string{"t1", "--notes", "z", "t2"}, ids: "t1,t2", notes: "z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newTestFlagSet()
			notes := fs.String("notes", "", "")
			positional, err := parseInterspersed(fs, tt.args)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if strings.Join(positional, ",") != tt.ids || *notes != tt.notes {
				t.Fatalf("got ids=%v notes=%q", positional, *notes)
			}
		})
	}
}

func newTestFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
