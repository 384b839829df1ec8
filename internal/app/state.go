package app

import (
	"context"
	"time"

	"payadmin/internal/logging"
	"payadmin/internal/transfers"
	"payadmin/internal/types"
)

const stateTimeout = 2 * time.Second

// restoreState applies the persisted view, filters and open transfer. A
// missing or unreadable state leaves the defaults in place.
func (m *Model) restoreState() {
	if m.state == nil {
		return
	}
	ctx, cancel := context.WithTimeout(m.baseContext(), stateTimeout)
	defer cancel()
	state, err := m.state.Load(ctx)
	if err != nil {
		m.logger.Warn("app_state_load_failed", logging.F("error", err))
		return
	}
	if state == nil {
		return
	}
	if kind, ok := transfers.ParseKind(state.ActiveView); ok && state.ActiveView != "" {
		m.kind = kind
	}
	m.filters.Search = state.Search
	m.filters.Type = types.TransferType(state.TypeFilter)
	if state.PageSize > 0 {
		m.pageSize = state.PageSize
		m.filters.Limit = state.PageSize
	}
	m.restoreID = state.SelectedID
}

func (m *Model) saveState() {
	if m.state == nil {
		return
	}
	state := &types.AppState{
		ActiveView: m.kind.String(),
		Search:     m.filters.Search,
		TypeFilter: string(m.filters.Type),
		PageSize:   m.pageSize,
	}
	if m.detailOpen {
		state.SelectedID = m.detailID
	}
	ctx, cancel := context.WithTimeout(context.Background(), stateTimeout)
	defer cancel()
	if err := m.state.Save(ctx, state); err != nil {
		m.logger.Warn("app_state_save_failed", logging.F("error", err))
	}
}
