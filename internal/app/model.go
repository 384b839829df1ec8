package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/table"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"payadmin/internal/logging"
	"payadmin/internal/pending"
	"payadmin/internal/store"
	"payadmin/internal/transfers"
	"payadmin/internal/types"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	// header, filter line, divider, status, toast, help
	chromeLines = 6
)

// TransferService is the part of the transfer collection manager the
// dashboard drives. *transfers.Manager satisfies it.
type TransferService interface {
	FetchCollection(ctx context.Context, kind transfers.Kind, filters transfers.Filters) bool
	FetchOne(ctx context.Context, id string) bool
	UpdateStatus(ctx context.Context, id string, update types.TransferUpdate) bool
	Approve(ctx context.Context, id, notes string) bool
	Reject(ctx context.Context, id, reason string) bool
	Collection(kind transfers.Kind) transfers.View
	Selected() *types.Transfer
	LastError() string
	AuthExpired() bool
}

// PendingSource is the pending-count tracker as seen by the dashboard.
type PendingSource interface {
	Snapshot() pending.Snapshot
	Refresh(ctx context.Context) pending.Snapshot
}

type Model struct {
	ctx         context.Context
	service     TransferService
	pending     PendingSource
	wakePending func()
	state       store.AppStateStore
	logger      logging.Logger
	now         func() time.Time

	width  int
	height int

	kind       transfers.Kind
	filters    transfers.Filters
	pageSize   int
	view       transfers.View
	table      table.Model
	snapshot   pending.Snapshot
	lastError  string
	authLost   bool
	restoreID  string
	inFlight   int
	detailOpen bool
	detailID   string
	detail     *types.Transfer
	scroll     int

	mode  inputMode
	input textinput.Model
	// target of the action prompt, fixed when the prompt opens
	promptID string

	toastText    string
	toastLevel   types.NoticeLevel
	toastUntil   time.Time
	queuedToasts []queuedToast

	requestScopes map[string]requestScope
	quitting      bool
}

type ModelOption func(*Model)

func WithContext(ctx context.Context) ModelOption {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

func WithPending(source PendingSource) ModelOption {
	return func(m *Model) {
		m.pending = source
	}
}

// WithPendingWaker replaces direct refreshes with a wake call, typically the
// poller's, so focus changes never stack refreshes.
func WithPendingWaker(wake func()) ModelOption {
	return func(m *Model) {
		m.wakePending = wake
	}
}

func WithStateStore(state store.AppStateStore) ModelOption {
	return func(m *Model) {
		m.state = state
	}
}

func WithLogger(logger logging.Logger) ModelOption {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithPageSize(size int) ModelOption {
	return func(m *Model) {
		if size > 0 {
			m.pageSize = size
		}
	}
}

func withClock(now func() time.Time) ModelOption {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

func NewModel(service TransferService, opts ...ModelOption) *Model {
	m := &Model{
		ctx:        context.Background(),
		service:    service,
		logger:     logging.Nop(),
		now:        time.Now,
		width:      defaultWidth,
		height:     defaultHeight,
		kind:       transfers.KindPending,
		pageSize:   transfers.DefaultPageSize,
		toastLevel: types.NoticeInfo,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	m.filters = transfers.Filters{Limit: m.pageSize}
	m.table = newTransferTable()
	m.input = textinput.New()
	m.input.CharLimit = 500
	m.restoreState()
	m.resize()
	return m
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.fetchCollection(),
		tickCmd(),
		tea.RequestBackgroundColor,
	}
	if m.restoreID != "" {
		m.openDetail(m.restoreID)
		m.restoreID = ""
		cmds = append(cmds, m.fetchDetail())
	}
	if m.wakePending == nil {
		cmds = append(cmds, m.refreshPending())
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case tea.BackgroundColorMsg:
		setMarkdownBackgroundDark(msg.IsDark())
		return m, nil
	case tea.FocusMsg:
		return m, m.wake()
	case tea.KeyPressMsg:
		return m, m.handleKey(msg)
	case tickMsg:
		m.maybeShowNextToast(time.Time(msg))
		return m, tickCmd()
	case noticeMsg:
		m.showNotice(msg.notice)
		return m, nil
	case pendingMsg:
		m.snapshot = msg.snapshot
		return m, nil
	case collectionLoadedMsg:
		m.inFlight = max(m.inFlight-1, 0)
		if msg.kind == m.kind {
			m.syncCollection()
		}
		m.syncError()
		return m, nil
	case detailLoadedMsg:
		m.inFlight = max(m.inFlight-1, 0)
		if msg.ok && msg.id == m.detailID {
			m.detail = m.service.Selected()
		}
		m.syncCollection()
		m.syncError()
		return m, nil
	case actionDoneMsg:
		m.inFlight = max(m.inFlight-1, 0)
		m.syncCollection()
		if m.detailOpen && msg.ok {
			if selected := m.service.Selected(); selected != nil && selected.ID == m.detailID {
				m.detail = selected
			}
		}
		m.syncError()
		if msg.ok {
			m.logger.Info("transfer_action_applied", logging.F("action", msg.action), logging.F("transfer_id", msg.id))
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) View() tea.View {
	var b strings.Builder
	if m.quitting {
		view := tea.NewView("")
		return view
	}
	width := max(m.width, 20)
	b.WriteString(m.headerLine(width))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(truncateToWidth(m.filterLine(), width)))
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	if m.detailOpen {
		b.WriteString(m.detailBody(width, m.bodyHeight()))
	} else {
		b.WriteString(m.listBody())
	}
	b.WriteString("\n")
	if m.mode != modeNone {
		b.WriteString(promptFrameStyle.Render(m.promptLabel() + " " + m.input.View()))
		b.WriteString("\n")
	}
	b.WriteString(m.statusLine(width))
	b.WriteString("\n")
	b.WriteString(m.toastLine(width))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(truncateToWidth(m.helpLine(), width)))

	view := tea.NewView(b.String())
	view.AltScreen = true
	view.ReportFocus = true
	return view
}

func (m *Model) headerLine(width int) string {
	title := headerStyle.Render("payadmin")
	tabs := make([]string, 0, len(transfers.Kinds()))
	for _, kind := range transfers.Kinds() {
		label := kind.Title()
		if kind == m.kind {
			tabs = append(tabs, tabActiveStyle.Render(label))
			continue
		}
		tabs = append(tabs, tabStyle.Render(label))
	}
	left := title + "  " + strings.Join(tabs, "")
	badge := m.pendingBadge()
	gap := width - lipgloss.Width(left) - lipgloss.Width(badge)
	if gap < 1 {
		return truncateToWidth(left, width)
	}
	return left + strings.Repeat(" ", gap) + badge
}

func (m *Model) pendingBadge() string {
	snap := m.snapshot
	if m.pending != nil && !snap.Initialized && !snap.Loading && snap.Err == "" {
		snap = m.pending.Snapshot()
	}
	switch {
	case !snap.Initialized && snap.Err != "":
		return errorStyle.Render("pending unavailable")
	case !snap.Initialized:
		return pendingIdleStyle.Render("pending …")
	}
	label := fmt.Sprintf("%d pending", snap.Count)
	if snap.Err != "" {
		label += " (stale)"
	}
	if snap.Count == 0 {
		return pendingIdleStyle.Render(label)
	}
	return pendingBadgeStyle.Render(label)
}

func (m *Model) filterLine() string {
	parts := []string{}
	if m.filters.Search != "" {
		parts = append(parts, "search: "+m.filters.Search)
	}
	typeLabel := "all types"
	if m.filters.Type != "" {
		typeLabel = m.filters.Type.Label()
	}
	parts = append(parts, typeLabel)
	page := m.view.Page
	if m.view.Loaded {
		parts = append(parts, fmt.Sprintf("page %d/%d", max(page.CurrentPage, 1), max(page.TotalPages, 1)))
		parts = append(parts, fmt.Sprintf("%d total", page.TotalCount))
	}
	if m.inFlight > 0 {
		parts = append(parts, "loading…")
	}
	return strings.Join(parts, " · ")
}

func (m *Model) listBody() string {
	if !m.view.Loaded && len(m.view.Items) == 0 {
		if m.lastError != "" {
			return errorStyle.Render("Could not load transfers.")
		}
		return statusStyle.Render("Loading transfers…")
	}
	if len(m.view.Items) == 0 {
		return statusStyle.Render("No transfers in this view.")
	}
	return m.table.View()
}

func (m *Model) detailBody(width, height int) string {
	if m.detail == nil {
		if m.lastError != "" {
			return errorStyle.Render("Could not load transfer.")
		}
		return statusStyle.Render("Loading transfer…")
	}
	rendered := RenderMarkdown(TransferMarkdown(m.detail), width)
	lines := strings.Split(rendered, "\n")
	m.scroll = min(m.scroll, max(len(lines)-height, 0))
	end := min(m.scroll+height, len(lines))
	return strings.Join(lines[m.scroll:end], "\n")
}

func (m *Model) statusLine(width int) string {
	switch {
	case m.authLost:
		return errorStyle.Render(truncateToWidth("Session expired. Run `payadmin login` and reopen the dashboard.", width))
	case m.lastError != "":
		return errorStyle.Render(truncateToWidth(m.lastError, width))
	case m.snapshot.Err != "":
		return errorStyle.Render(truncateToWidth("Pending count: "+m.snapshot.Err, width))
	}
	if !m.snapshot.RefreshedAt.IsZero() {
		return statusStyle.Render("pending count refreshed " + m.snapshot.RefreshedAt.Local().Format("15:04:05"))
	}
	return ""
}

func (m *Model) helpLine() string {
	switch {
	case m.mode != modeNone:
		return "enter submit · esc cancel"
	case m.detailOpen:
		return "a approve · r reject · s status · y copy ref · Y copy tx · ↑/↓ scroll · esc back · q quit"
	default:
		return "tab view · / search · t type · n/p page · enter open · a approve · r reject · s status · ctrl+r refresh · q quit"
	}
}

func (m *Model) bodyHeight() int {
	height := m.height - chromeLines
	if m.mode != modeNone {
		height -= 3
	}
	return max(height, 3)
}

func (m *Model) resize() {
	m.table.SetWidth(m.width)
	m.table.SetHeight(m.bodyHeight())
	m.table.SetColumns(transferColumns(m.width))
	m.input.SetWidth(max(m.width-20, 10))
}

// syncCollection pulls the cached view for the active kind and rebuilds the
// table, keeping the cursor on the same transfer where possible.
func (m *Model) syncCollection() {
	if m.service == nil {
		return
	}
	currentID := m.currentRowID()
	m.view = m.service.Collection(m.kind)
	m.table.SetRows(transferRows(m.view.Items))
	cursor := 0
	for i, transfer := range m.view.Items {
		if transfer.ID == currentID {
			cursor = i
			break
		}
	}
	if len(m.view.Items) > 0 {
		m.table.SetCursor(min(cursor, len(m.view.Items)-1))
	}
}

func (m *Model) syncError() {
	if m.service == nil {
		return
	}
	m.lastError = m.service.LastError()
	m.authLost = m.service.AuthExpired()
}

func (m *Model) currentRowID() string {
	transfer := m.currentTransfer()
	if transfer == nil {
		return ""
	}
	return transfer.ID
}

// currentTransfer is the detail transfer when the detail pane is open and the
// highlighted row otherwise.
func (m *Model) currentTransfer() *types.Transfer {
	if m.detailOpen {
		return m.detail
	}
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.view.Items) {
		return nil
	}
	return m.view.Items[cursor]
}

func (m *Model) openDetail(id string) {
	m.detailOpen = true
	m.detailID = id
	m.detail = nil
	m.scroll = 0
	if m.service == nil {
		return
	}
	for _, transfer := range m.view.Items {
		if transfer.ID == id {
			m.detail = transfer
			break
		}
	}
}

func (m *Model) closeDetail() {
	m.cancelRequestScope(requestScopeDetail)
	m.detailOpen = false
	m.detailID = ""
	m.detail = nil
	m.scroll = 0
}

func (m *Model) switchKind(kind transfers.Kind) tea.Cmd {
	if kind == m.kind {
		return nil
	}
	m.kind = kind
	m.filters = m.filters.ForPage(1)
	m.syncCollection()
	return m.fetchCollection()
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	m.cancelAllRequestScopes()
	m.saveState()
	return tea.Quit
}
