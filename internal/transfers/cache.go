package transfers

import "payadmin/internal/types"

// View is a read-only copy of one cached collection.
type View struct {
	Kind    Kind
	Items   []*types.Transfer
	Page    types.Pagination
	Filters Filters
	Loaded  bool
	Loading bool
}

func (c *collection) withItems(items []*types.Transfer, page types.Pagination) *collection {
	return &collection{
		items:   items,
		page:    page,
		filters: c.filters,
		loaded:  c.loaded,
	}
}

// replaceByID returns a new slice with every entry matching updated.ID
// swapped for a copy of updated. The input slice is never modified.
func replaceByID(items []*types.Transfer, updated *types.Transfer) ([]*types.Transfer, bool) {
	found := false
	out := make([]*types.Transfer, len(items))
	for i, transfer := range items {
		if transfer.ID == updated.ID {
			out[i] = updated.Clone()
			found = true
			continue
		}
		out[i] = transfer
	}
	if !found {
		return items, false
	}
	return out, true
}

func removeByID(items []*types.Transfer, id string) []*types.Transfer {
	out := make([]*types.Transfer, 0, len(items))
	for _, transfer := range items {
		if transfer.ID != id {
			out = append(out, transfer)
		}
	}
	return out
}

func prepend(items []*types.Transfer, transfer *types.Transfer, limit int) []*types.Transfer {
	out := make([]*types.Transfer, 0, len(items)+1)
	out = append(out, transfer.Clone())
	out = append(out, items...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Collection returns a copy of the cached view.
func (m *Manager) Collection(kind Kind) View {
	m.mu.Lock()
	defer m.mu.Unlock()
	view := View{Kind: kind, Loading: m.loading[kind.String()] > 0}
	if c := m.collections[kind]; c != nil {
		view.Items = types.CloneTransfers(c.items)
		view.Page = c.page
		view.Filters = c.filters
		view.Loaded = c.loaded
	}
	return view
}

// Selected returns a copy of the transfer in the detail slot.
func (m *Manager) Selected() *types.Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected.Clone()
}

// Find returns a copy of the cached transfer with id from any view.
func (m *Manager) Find(id string) (*types.Transfer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected != nil && m.selected.ID == id {
		return m.selected.Clone(), true
	}
	for _, kind := range Kinds() {
		c := m.collections[kind]
		if c == nil {
			continue
		}
		for _, transfer := range c.items {
			if transfer.ID == id {
				return transfer.Clone(), true
			}
		}
	}
	return nil, false
}

// Loading reports whether an operation is in flight. Keys are view names,
// "selected", "update" and "bulk".
func (m *Manager) Loading(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading[key] > 0
}

func (m *Manager) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// AuthExpired reports whether the last failure means the admin must sign in
// again.
func (m *Manager) AuthExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authExpired
}

// ClearError drops the stored error, e.g. after the banner was dismissed.
func (m *Manager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearErrorLocked()
}
