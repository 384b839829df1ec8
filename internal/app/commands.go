package app

import (
	"context"
	"time"

	tea "charm.land/bubbletea/v2"

	"payadmin/internal/notify"
	"payadmin/internal/pending"
	"payadmin/internal/transfers"
	"payadmin/internal/types"
)

type tickMsg time.Time

type noticeMsg struct {
	notice notify.Notice
}

type pendingMsg struct {
	snapshot pending.Snapshot
}

type collectionLoadedMsg struct {
	kind transfers.Kind
	ok   bool
}

type detailLoadedMsg struct {
	id string
	ok bool
}

type actionDoneMsg struct {
	action string
	id     string
	ok     bool
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(at time.Time) tea.Msg {
		return tickMsg(at)
	})
}

// fetchCollection loads the active view. A fetch still running for the same
// view is canceled; the manager discards its late result.
func (m *Model) fetchCollection() tea.Cmd {
	if m.service == nil {
		return nil
	}
	service := m.service
	kind := m.kind
	filters := m.filters
	ctx := m.replaceRequestScope(collectionRequestScopeName(kind))
	m.inFlight++
	return func() tea.Msg {
		ok := service.FetchCollection(ctx, kind, filters)
		return collectionLoadedMsg{kind: kind, ok: ok}
	}
}

func (m *Model) fetchDetail() tea.Cmd {
	if m.service == nil || m.detailID == "" {
		return nil
	}
	service := m.service
	id := m.detailID
	ctx := m.replaceRequestScope(requestScopeDetail)
	m.inFlight++
	return func() tea.Msg {
		ok := service.FetchOne(ctx, id)
		return detailLoadedMsg{id: id, ok: ok}
	}
}

// Mutations run on the model's base context so switching views never
// cancels a write halfway.
func (m *Model) approveCmd(id, notes string) tea.Cmd {
	return m.actionCmd("approve", id, func(ctx context.Context, service TransferService) bool {
		return service.Approve(ctx, id, notes)
	})
}

func (m *Model) rejectCmd(id, reason string) tea.Cmd {
	return m.actionCmd("reject", id, func(ctx context.Context, service TransferService) bool {
		return service.Reject(ctx, id, reason)
	})
}

func (m *Model) setStatusCmd(id string, status types.Status) tea.Cmd {
	return m.actionCmd("set_status", id, func(ctx context.Context, service TransferService) bool {
		return service.UpdateStatus(ctx, id, types.TransferUpdate{Status: types.StatusPtr(status)})
	})
}

func (m *Model) actionCmd(action, id string, run func(context.Context, TransferService) bool) tea.Cmd {
	if m.service == nil || id == "" {
		return nil
	}
	service := m.service
	ctx := m.baseContext()
	m.inFlight++
	return func() tea.Msg {
		return actionDoneMsg{action: action, id: id, ok: run(ctx, service)}
	}
}

func (m *Model) refreshPending() tea.Cmd {
	if m.pending == nil {
		return nil
	}
	source := m.pending
	ctx := m.baseContext()
	return func() tea.Msg {
		return pendingMsg{snapshot: source.Refresh(ctx)}
	}
}

// wake asks for a pending-count refresh through the poller when there is one.
func (m *Model) wake() tea.Cmd {
	if m.wakePending != nil {
		m.wakePending()
		return nil
	}
	return m.refreshPending()
}
