package app

import (
	"strings"

	tea "charm.land/bubbletea/v2"

	"payadmin/internal/transfers"
	"payadmin/internal/types"
)

type inputMode int

const (
	modeNone inputMode = iota
	modeSearch
	modeApprove
	modeReject
	modeStatus
)

var typeFilterCycle = []types.TransferType{
	"",
	types.TransferTypeCryptoToFiat,
	types.TransferTypeFiatToCrypto,
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if m.mode != modeNone {
		return m.handlePromptKey(msg)
	}
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		return m.quit()
	case "tab":
		return m.switchKind(m.relativeKind(1))
	case "shift+tab":
		return m.switchKind(m.relativeKind(-1))
	case "1", "2", "3", "4":
		kinds := transfers.Kinds()
		index := int(key[0] - '1')
		if index < len(kinds) {
			return m.switchKind(kinds[index])
		}
		return nil
	case "ctrl+r", "R":
		cmds := []tea.Cmd{m.fetchCollection(), m.wake()}
		if m.detailOpen {
			cmds = append(cmds, m.fetchDetail())
		}
		return tea.Batch(cmds...)
	case "y":
		if transfer := m.currentTransfer(); transfer != nil {
			m.copyWithStatus(transfer.Reference, "reference")
		}
		return nil
	case "Y":
		if transfer := m.currentTransfer(); transfer != nil {
			m.copyWithStatus(transfer.TxHash, "tx hash")
		}
		return nil
	case "a":
		return m.openPrompt(modeApprove, "")
	case "r":
		return m.openPrompt(modeReject, "")
	case "s":
		return m.openPrompt(modeStatus, "")
	}
	if m.detailOpen {
		return m.handleDetailKey(key)
	}
	return m.handleListKey(msg)
}

func (m *Model) handleListKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "/":
		return m.openPrompt(modeSearch, m.filters.Search)
	case "t":
		m.filters.Type = nextTypeFilter(m.filters.Type)
		return m.refilter()
	case "n", "right":
		if !m.view.Page.HasNext {
			return nil
		}
		m.filters = m.filters.ForPage(m.view.Page.CurrentPage + 1)
		return m.fetchCollection()
	case "p", "left":
		if !m.view.Page.HasPrev {
			return nil
		}
		m.filters = m.filters.ForPage(m.view.Page.CurrentPage - 1)
		return m.fetchCollection()
	case "enter":
		transfer := m.currentTransfer()
		if transfer == nil {
			return nil
		}
		m.openDetail(transfer.ID)
		return m.fetchDetail()
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return cmd
}

func (m *Model) handleDetailKey(key string) tea.Cmd {
	switch key {
	case "esc", "backspace":
		m.closeDetail()
	case "up", "k":
		m.scroll = max(m.scroll-1, 0)
	case "down", "j":
		m.scroll++
	case "pgup":
		m.scroll = max(m.scroll-m.bodyHeight(), 0)
	case "pgdown", " ":
		m.scroll += m.bodyHeight()
	case "home", "g":
		m.scroll = 0
	}
	return nil
}

// openPrompt starts a text prompt. Action prompts are bound to the transfer
// under the cursor at the moment they open.
func (m *Model) openPrompt(mode inputMode, value string) tea.Cmd {
	if mode != modeSearch {
		transfer := m.currentTransfer()
		if transfer == nil {
			m.showToast(types.NoticeWarning, "no transfer selected")
			return nil
		}
		m.promptID = transfer.ID
	}
	m.mode = mode
	m.input.Reset()
	m.input.SetValue(value)
	m.input.Placeholder = promptPlaceholder(mode)
	m.resize()
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.mode = modeNone
	m.promptID = ""
	m.input.Blur()
	m.input.Reset()
	m.resize()
}

func (m *Model) handlePromptKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.closePrompt()
		return nil
	case "enter":
		return m.submitPrompt()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) submitPrompt() tea.Cmd {
	mode := m.mode
	id := m.promptID
	value := strings.TrimSpace(m.input.Value())
	m.closePrompt()
	switch mode {
	case modeSearch:
		m.filters.Search = value
		return m.refilter()
	case modeApprove:
		return m.approveCmd(id, value)
	case modeReject:
		return m.rejectCmd(id, value)
	case modeStatus:
		if value == "" {
			m.showToast(types.NoticeWarning, "status is required")
			return nil
		}
		return m.setStatusCmd(id, types.ParseStatus(value))
	}
	return nil
}

func (m *Model) promptLabel() string {
	switch m.mode {
	case modeSearch:
		return "Search:"
	case modeApprove:
		return "Approve, notes:"
	case modeReject:
		return "Reject, reason:"
	case modeStatus:
		return "New status:"
	default:
		return ""
	}
}

func promptPlaceholder(mode inputMode) string {
	switch mode {
	case modeSearch:
		return "reference, email or tx hash"
	case modeApprove:
		return "optional internal notes"
	case modeReject:
		return "shown to the customer"
	case modeStatus:
		names := make([]string, 0, len(types.KnownStatuses()))
		for _, status := range types.KnownStatuses() {
			names = append(names, string(status))
		}
		return strings.Join(names, ", ")
	default:
		return ""
	}
}

// refilter restarts the active view on its first page. Fetches still running
// for other views were issued with the old filters and are dropped.
func (m *Model) refilter() tea.Cmd {
	m.cancelRequestScopesWithPrefix(requestScopeCollectionPrefix)
	m.filters = m.filters.ForPage(1)
	return m.fetchCollection()
}

func (m *Model) relativeKind(step int) transfers.Kind {
	kinds := transfers.Kinds()
	current := 0
	for i, kind := range kinds {
		if kind == m.kind {
			current = i
			break
		}
	}
	next := (current + step + len(kinds)) % len(kinds)
	return kinds[next]
}

func nextTypeFilter(current types.TransferType) types.TransferType {
	for i, value := range typeFilterCycle {
		if value == current {
			return typeFilterCycle[(i+1)%len(typeFilterCycle)]
		}
	}
	return typeFilterCycle[0]
}
