package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	tea "charm.land/bubbletea/v2"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/shopspring/decimal"

	"payadmin/internal/pending"
	"payadmin/internal/store"
	"payadmin/internal/transfers"
	"payadmin/internal/types"
)

type fetchCall struct {
	kind    transfers.Kind
	filters transfers.Filters
}

type actionCall struct {
	action string
	id     string
	text   string
	update types.TransferUpdate
}

type fakeService struct {
	mu          sync.Mutex
	views       map[transfers.Kind]transfers.View
	transfers   map[string]*types.Transfer
	selected    *types.Transfer
	fetches     []fetchCall
	detailIDs   []string
	actions     []actionCall
	lastErr     string
	authExpired bool
}

func newFakeService(items ...*types.Transfer) *fakeService {
	svc := &fakeService{
		views:     map[transfers.Kind]transfers.View{},
		transfers: map[string]*types.Transfer{},
	}
	for _, item := range items {
		svc.transfers[item.ID] = item
	}
	return svc
}

func (f *fakeService) setView(kind transfers.Kind, page types.Pagination, items ...*types.Transfer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views[kind] = transfers.View{Kind: kind, Items: items, Page: page, Loaded: true}
}

func (f *fakeService) FetchCollection(ctx context.Context, kind transfers.Kind, filters transfers.Filters) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, fetchCall{kind: kind, filters: filters})
	return f.lastErr == ""
}

func (f *fakeService) FetchOne(ctx context.Context, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailIDs = append(f.detailIDs, id)
	transfer, ok := f.transfers[id]
	if !ok {
		return false
	}
	f.selected = transfer.Clone()
	return true
}

func (f *fakeService) UpdateStatus(ctx context.Context, id string, update types.TransferUpdate) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, actionCall{action: "update", id: id, update: update})
	return true
}

func (f *fakeService) Approve(ctx context.Context, id, notes string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, actionCall{action: "approve", id: id, text: notes})
	if transfer, ok := f.transfers[id]; ok {
		updated := transfer.Clone()
		updated.Status = types.StatusCompleted
		f.selected = updated
	}
	return true
}

func (f *fakeService) Reject(ctx context.Context, id, reason string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, actionCall{action: "reject", id: id, text: reason})
	return true
}

func (f *fakeService) Collection(kind transfers.Kind) transfers.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	view := f.views[kind]
	view.Kind = kind
	view.Items = types.CloneTransfers(view.Items)
	return view
}

func (f *fakeService) Selected() *types.Transfer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.selected.Clone()
}

func (f *fakeService) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func (f *fakeService) AuthExpired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authExpired
}

func (f *fakeService) lastFetch(t *testing.T) fetchCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.fetches) == 0 {
		t.Fatalf("expected a collection fetch")
	}
	return f.fetches[len(f.fetches)-1]
}

func (f *fakeService) actionLog() []actionCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]actionCall{}, f.actions...)
}

type fakePending struct {
	snapshot pending.Snapshot
}

func (f *fakePending) Snapshot() pending.Snapshot { return f.snapshot }

func (f *fakePending) Refresh(ctx context.Context) pending.Snapshot { return f.snapshot }

func uiTransfer(id, reference string, status types.Status) *types.Transfer {
	return &types.Transfer{
		ID:        id,
		Reference: reference,
		Type:      types.TransferTypeCryptoToFiat,
		Amount:    decimal.RequireFromString("250"),
		Fee:       decimal.RequireFromString("2.5"),
		NetAmount: decimal.RequireFromString("247.5"),
		Currency:  "NGN",
		Status:    status,
		TxHash:    "0x" + id,
		User:      &types.UserSummary{ID: "cus_" + id, FirstName: "Ada", LastName: "Obi"},
	}
}

func keyPress(key string) tea.KeyPressMsg {
	switch key {
	case "tab":
		return tea.KeyPressMsg{Code: tea.KeyTab}
	case "shift+tab":
		return tea.KeyPressMsg{Code: tea.KeyTab, Mod: tea.ModShift}
	case "enter":
		return tea.KeyPressMsg{Code: tea.KeyEnter}
	case "esc":
		return tea.KeyPressMsg{Code: tea.KeyEscape}
	case "down":
		return tea.KeyPressMsg{Code: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl}
	}
	r := []rune(key)[0]
	return tea.KeyPressMsg{Code: r, Text: key}
}

// press sends a key and feeds any resulting message back into the model.
// Commands from an open prompt are cursor blinks and are not run.
func press(t *testing.T, m *Model, key string) {
	t.Helper()
	_, cmd := m.Update(keyPress(key))
	if m.mode != modeNone {
		return
	}
	run(t, m, cmd)
}

func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case collectionLoadedMsg, detailLoadedMsg, actionDoneMsg, pendingMsg:
		m.Update(msg)
	}
}

func viewText(m *Model) string {
	view := m.View()
	return xansi.Strip(fmt.Sprint(view.Content))
}

func loadedModel(t *testing.T, svc *fakeService, opts ...ModelOption) *Model {
	t.Helper()
	m := NewModel(svc, opts...)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	run(t, m, m.fetchCollection())
	return m
}

func TestModelStartsOnPendingView(t *testing.T) {
	first := uiTransfer("t1", "TRX-1", types.StatusPending)
	svc := newFakeService(first)
	svc.setView(transfers.KindPending, types.NewPagination(1, 0, 20), first)

	m := loadedModel(t, svc)

	call := svc.lastFetch(t)
	if call.kind != transfers.KindPending || call.filters.Limit != transfers.DefaultPageSize {
		t.Fatalf("unexpected initial fetch %+v", call)
	}
	out := viewText(m)
	if !strings.Contains(out, "TRX-1") || !strings.Contains(out, "250.00 NGN") {
		t.Fatalf("expected transfer row in view:\n%s", out)
	}
}

func TestTabSwitchesViewAndResetsPage(t *testing.T) {
	svc := newFakeService()
	m := loadedModel(t, svc)
	m.filters = m.filters.ForPage(3)

	press(t, m, "tab")

	call := svc.lastFetch(t)
	if call.kind != transfers.KindFailed {
		t.Fatalf("expected failed view after pending, got %s", call.kind)
	}
	if call.filters.Skip != 0 {
		t.Fatalf("expected first page, got skip %d", call.filters.Skip)
	}

	press(t, m, "shift+tab")
	press(t, m, "shift+tab")
	if got := svc.lastFetch(t).kind; got != transfers.KindAll {
		t.Fatalf("expected all view, got %s", got)
	}
}

func TestSearchPromptFetchesWithSearch(t *testing.T) {
	svc := newFakeService()
	m := loadedModel(t, svc)

	press(t, m, "/")
	if m.mode != modeSearch {
		t.Fatalf("expected search prompt")
	}
	m.input.SetValue("  ada@example.com ")
	press(t, m, "enter")

	call := svc.lastFetch(t)
	if call.filters.Search != "ada@example.com" {
		t.Fatalf("expected trimmed search, got %q", call.filters.Search)
	}
	if m.mode != modeNone {
		t.Fatalf("expected prompt closed")
	}
}

func TestTypeFilterCycles(t *testing.T) {
	svc := newFakeService()
	m := loadedModel(t, svc)

	press(t, m, "t")
	if got := svc.lastFetch(t).filters.Type; got != types.TransferTypeCryptoToFiat {
		t.Fatalf("expected crypto_to_fiat, got %q", got)
	}
	press(t, m, "t")
	press(t, m, "t")
	if got := svc.lastFetch(t).filters.Type; got != "" {
		t.Fatalf("expected filter cleared, got %q", got)
	}
}

func TestNextPageOnlyWhenAvailable(t *testing.T) {
	svc := newFakeService()
	svc.setView(transfers.KindPending, types.NewPagination(45, 0, 20), uiTransfer("t1", "TRX-1", types.StatusPending))
	m := loadedModel(t, svc)
	fetches := len(svc.fetches)

	press(t, m, "p")
	if len(svc.fetches) != fetches {
		t.Fatalf("expected no fetch before the first page")
	}
	press(t, m, "n")
	if got := svc.lastFetch(t).filters.Skip; got != 20 {
		t.Fatalf("expected skip 20 for page 2, got %d", got)
	}
}

func TestApprovePromptTargetsHighlightedTransfer(t *testing.T) {
	first := uiTransfer("t1", "TRX-1", types.StatusPending)
	second := uiTransfer("t2", "TRX-2", types.StatusPending)
	svc := newFakeService(first, second)
	svc.setView(transfers.KindPending, types.NewPagination(2, 0, 20), first, second)
	m := loadedModel(t, svc)

	press(t, m, "down")
	press(t, m, "a")
	if m.mode != modeApprove || m.promptID != "t2" {
		t.Fatalf("expected approve prompt for t2, got mode=%v id=%q", m.mode, m.promptID)
	}
	m.input.SetValue("verified payout")
	press(t, m, "enter")

	actions := svc.actionLog()
	if len(actions) != 1 || actions[0].action != "approve" || actions[0].id != "t2" || actions[0].text != "verified payout" {
		t.Fatalf("unexpected actions %+v", actions)
	}
	if m.inFlight != 0 {
		t.Fatalf("expected no requests in flight, got %d", m.inFlight)
	}
}

func TestRejectAndSetStatusPrompts(t *testing.T) {
	first := uiTransfer("t1", "TRX-1", types.StatusPending)
	svc := newFakeService(first)
	svc.setView(transfers.KindPending, types.NewPagination(1, 0, 20), first)
	m := loadedModel(t, svc)

	press(t, m, "r")
	m.input.SetValue("Bank details mismatch")
	press(t, m, "enter")

	press(t, m, "s")
	m.input.SetValue("On Hold")
	press(t, m, "enter")

	actions := svc.actionLog()
	if len(actions) != 2 {
		t.Fatalf("expected two actions, got %+v", actions)
	}
	if actions[0].action != "reject" || actions[0].text != "Bank details mismatch" {
		t.Fatalf("unexpected reject %+v", actions[0])
	}
	update := actions[1].update
	if actions[1].action != "update" || update.Status == nil || *update.Status != types.StatusOnHold {
		t.Fatalf("expected on_hold update, got %+v", actions[1])
	}
}

func TestEmptyStatusPromptIsRefused(t *testing.T) {
	first := uiTransfer("t1", "TRX-1", types.StatusPending)
	svc := newFakeService(first)
	svc.setView(transfers.KindPending, types.NewPagination(1, 0, 20), first)
	m := loadedModel(t, svc)

	press(t, m, "s")
	press(t, m, "enter")

	if len(svc.actionLog()) != 0 {
		t.Fatalf("expected no update without a status")
	}
	if m.toastLevel != types.NoticeWarning {
		t.Fatalf("expected warning toast, got %v", m.toastLevel)
	}
}

func TestActionWithoutRowsShowsWarning(t *testing.T) {
	svc := newFakeService()
	m := loadedModel(t, svc)

	press(t, m, "a")

	if m.mode != modeNone {
		t.Fatalf("expected no prompt without a transfer")
	}
	if !strings.Contains(m.toastText, "no transfer selected") {
		t.Fatalf("unexpected toast %q", m.toastText)
	}
}

func TestEscCancelsPrompt(t *testing.T) {
	first := uiTransfer("t1", "TRX-1", types.StatusPending)
	svc := newFakeService(first)
	svc.setView(transfers.KindPending, types.NewPagination(1, 0, 20), first)
	m := loadedModel(t, svc)

	press(t, m, "a")
	press(t, m, "esc")

	if m.mode != modeNone || len(svc.actionLog()) != 0 {
		t.Fatalf("expected prompt canceled without action")
	}
}

func TestEnterOpensDetailAndEscReturns(t *testing.T) {
	first := uiTransfer("t1", "TRX-1", types.StatusPending)
	first.AdminRemarks = "Awaiting bank confirmation"
	svc := newFakeService(first)
	svc.setView(transfers.KindPending, types.NewPagination(1, 0, 20), first)
	m := loadedModel(t, svc)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})

	press(t, m, "enter")

	if !m.detailOpen || m.detailID != "t1" {
		t.Fatalf("expected detail for t1")
	}
	if len(svc.detailIDs) != 1 || svc.detailIDs[0] != "t1" {
		t.Fatalf("expected one detail fetch, got %v", svc.detailIDs)
	}
	if out := viewText(m); !strings.Contains(out, "Awaiting bank confirmation") {
		t.Fatalf("expected detail body in view:\n%s", out)
	}

	press(t, m, "esc")
	if m.detailOpen {
		t.Fatalf("expected detail closed")
	}
}

func TestApproveFromDetailRefreshesDetail(t *testing.T) {
	first := uiTransfer("t1", "TRX-1", types.StatusPending)
	svc := newFakeService(first)
	svc.setView(transfers.KindPending, types.NewPagination(1, 0, 20), first)
	m := loadedModel(t, svc)

	press(t, m, "enter")
	press(t, m, "a")
	press(t, m, "enter")

	if m.detail == nil || m.detail.Status != types.StatusCompleted {
		t.Fatalf("expected detail to show the server's completed transfer, got %+v", m.detail)
	}
}

func TestLateResultForOtherViewLeavesTableAlone(t *testing.T) {
	pendingItem := uiTransfer("t1", "TRX-1", types.StatusPending)
	failedItem := uiTransfer("t2", "TRX-2", types.StatusFailed)
	svc := newFakeService(pendingItem, failedItem)
	svc.setView(transfers.KindPending, types.NewPagination(1, 0, 20), pendingItem)
	svc.setView(transfers.KindFailed, types.NewPagination(1, 0, 20), failedItem)
	m := loadedModel(t, svc)

	m.Update(collectionLoadedMsg{kind: transfers.KindFailed, ok: true})

	if len(m.view.Items) != 1 || m.view.Items[0].ID != "t1" {
		t.Fatalf("expected pending rows to stay, got %+v", m.view.Items)
	}
}

func TestPendingBadgeReflectsSnapshot(t *testing.T) {
	svc := newFakeService()
	m := loadedModel(t, svc)

	m.Update(pendingMsg{snapshot: pending.Snapshot{Count: 8, Initialized: true}})
	if out := viewText(m); !strings.Contains(out, "8 pending") {
		t.Fatalf("expected pending badge:\n%s", out)
	}

	m.Update(pendingMsg{snapshot: pending.Snapshot{Count: 8, Initialized: true, Err: "An unexpected error occurred"}})
	out := viewText(m)
	if !strings.Contains(out, "8 pending (stale)") {
		t.Fatalf("expected stale badge:\n%s", out)
	}
	if !strings.Contains(out, "Pending count: An unexpected error occurred") {
		t.Fatalf("expected pending error in status line:\n%s", out)
	}
}

func TestFocusWakesPoller(t *testing.T) {
	wakes := 0
	m := NewModel(newFakeService(), WithPendingWaker(func() { wakes++ }))

	_, cmd := m.Update(tea.FocusMsg{})

	if wakes != 1 {
		t.Fatalf("expected one wake, got %d", wakes)
	}
	if cmd != nil {
		t.Fatalf("expected no direct refresh when a waker is set")
	}
}

func TestFocusRefreshesWithoutPoller(t *testing.T) {
	source := &fakePending{snapshot: pending.Snapshot{Count: 3, Initialized: true}}
	m := NewModel(newFakeService(), WithPending(source))

	_, cmd := m.Update(tea.FocusMsg{})
	run(t, m, cmd)

	if m.snapshot.Count != 3 {
		t.Fatalf("expected refreshed snapshot, got %+v", m.snapshot)
	}
}

func TestAuthExpiryShowsSignInHint(t *testing.T) {
	svc := newFakeService()
	svc.lastErr = "Your session has expired. Please sign in again."
	svc.authExpired = true
	m := loadedModel(t, svc)

	if out := viewText(m); !strings.Contains(out, "payadmin login") {
		t.Fatalf("expected sign-in hint:\n%s", out)
	}
}

func TestStateRoundTripsThroughStore(t *testing.T) {
	repo := store.NewMemoryRepository()
	first := uiTransfer("t1", "TRX-1", types.StatusFailed)
	svc := newFakeService(first)
	svc.setView(transfers.KindFailed, types.NewPagination(1, 0, 10), first)

	m := NewModel(svc, WithStateStore(repo.AppState()), WithPageSize(10))
	press(t, m, "tab")
	press(t, m, "enter")
	press(t, m, "q")

	state, err := repo.AppState().Load(context.Background())
	if err != nil || state == nil {
		t.Fatalf("load state: %v", err)
	}
	if state.ActiveView != "failed" || state.SelectedID != "t1" || state.PageSize != 10 {
		t.Fatalf("unexpected saved state %+v", state)
	}

	restored := NewModel(svc, WithStateStore(repo.AppState()))
	if restored.kind != transfers.KindFailed || restored.restoreID != "t1" || restored.filters.Limit != 10 {
		t.Fatalf("expected state restored, got kind=%s id=%q limit=%d", restored.kind, restored.restoreID, restored.filters.Limit)
	}
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c"} {
		m := NewModel(newFakeService())
		_, cmd := m.Update(keyPress(key))
		if cmd == nil {
			t.Fatalf("%s: expected quit command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s: expected QuitMsg", key)
		}
	}
}
