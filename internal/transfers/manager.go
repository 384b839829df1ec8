package transfers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"payadmin/internal/client"
	"payadmin/internal/logging"
	"payadmin/internal/notify"
	"payadmin/internal/types"
)

const (
	noticeSource     = "transfers"
	DefaultPageSize  = 20
	approveMessage   = "Transfer approved by admin"
	rejectMessage    = "Transfer rejected by admin"
	selectedQueryKey = "selected"
)

// API is the slice of the admin client the manager needs.
type API interface {
	ListTransfers(ctx context.Context, params client.ListTransfersParams) (*client.TransferList, error)
	GetTransfer(ctx context.Context, id string) (*types.Transfer, error)
	UpdateTransfer(ctx context.Context, id string, update types.TransferUpdate) (*types.Transfer, error)
	BulkUpdateStatus(ctx context.Context, update types.BulkStatusUpdate) (*types.BulkStatusResult, error)
}

// Counter receives optimistic adjustments when a transfer leaves or
// re-enters the pending group.
type Counter interface {
	Increment()
	Decrement()
}

type nopCounter struct{}

func (nopCounter) Increment() {}
func (nopCounter) Decrement() {}

type collection struct {
	items   []*types.Transfer
	page    types.Pagination
	filters Filters
	loaded  bool
}

// Manager owns the cached transfer views and is the only place a status
// change is requested from. Every cache write swaps in a freshly built slice
// under mu, so readers never observe a half-applied update.
//
// Each applied update bumps epoch. While reads are in flight the written
// entities are kept in written, and a read issued before a write re-applies
// them to its response so it cannot bring back an older copy.
type Manager struct {
	api             API
	counter         Counter
	notifier        notify.Notifier
	logger          logging.Logger
	pageSize        int
	validateChanges bool

	mu          sync.Mutex
	collections map[Kind]*collection
	selected    *types.Transfer
	issued      map[string]uint64
	loading     map[string]int
	epoch       uint64
	reads       int
	written     map[string]writtenTransfer
	lastErr     string
	authExpired bool
}

type writtenTransfer struct {
	epoch    uint64
	transfer *types.Transfer
}

type Option func(*Manager)

func WithNotifier(notifier notify.Notifier) Option {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithPageSize(size int) Option {
	return func(m *Manager) {
		if size > 0 {
			m.pageSize = size
		}
	}
}

// WithTransitionValidation toggles the client-side transition check run
// before a status change is sent.
func WithTransitionValidation(enabled bool) Option {
	return func(m *Manager) {
		m.validateChanges = enabled
	}
}

func NewManager(api API, counter Counter, opts ...Option) *Manager {
	if counter == nil {
		counter = nopCounter{}
	}
	m := &Manager{
		api:             api,
		counter:         counter,
		notifier:        notify.Nop(),
		logger:          logging.Nop(),
		pageSize:        DefaultPageSize,
		validateChanges: true,
		collections:     map[Kind]*collection{},
		issued:          map[string]uint64{},
		loading:         map[string]int{},
		written:         map[string]writtenTransfer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// FetchCollection loads one page of a view and replaces the cached view
// wholesale. A response that was overtaken by a newer fetch of the same
// view is dropped and reported as false.
func (m *Manager) FetchCollection(ctx context.Context, kind Kind, filters Filters) bool {
	kind, known := ParseKind(string(kind))
	if !known {
		m.fail(invalidf("unknown transfer view %q", string(kind)), "Could not load transfers")
		return false
	}
	filters = filters.normalize(m.pageSize)
	key := kind.String()
	seq, epoch := m.beginRead(key)
	defer m.endRead(key)

	var list *client.TransferList
	err := guard(func() error {
		var err error
		list, err = m.api.ListTransfers(ctx, kind.params(filters))
		return err
	})
	if err == nil && list == nil {
		err = errors.New("empty transfer list response")
	}

	m.mu.Lock()
	if !m.latestLocked(key, seq) {
		m.mu.Unlock()
		m.logger.Debug("transfers_fetch_stale", logging.F("view", key), logging.F("seq", int64(seq)))
		return false
	}
	if err != nil {
		m.mu.Unlock()
		if isCanceled(err) {
			m.logger.Debug("transfers_fetch_canceled", logging.F("view", key))
			return false
		}
		m.fail(err, "Could not load transfers")
		return false
	}
	total := max(list.TotalCount, 0)
	view := &collection{
		items:   types.CloneTransfers(nonNil(list.Transfers)),
		page:    types.NewPagination(total, filters.Skip, filters.Limit),
		filters: filters,
		loaded:  true,
	}
	for _, written := range m.writtenSinceLocked(epoch) {
		if next, changed := place(kind, view, written); changed {
			view = next
		}
	}
	m.collections[kind] = view
	m.clearErrorLocked()
	m.mu.Unlock()
	m.logger.Debug("transfers_fetched", logging.F("view", key), logging.F("count", len(list.Transfers)), logging.F("total", total))
	return true
}

// FetchOne loads a transfer into the selected slot and patches every cached
// view that already holds the same id.
func (m *Manager) FetchOne(ctx context.Context, id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		m.fail(invalidf("transfer id is required"), "Could not load transfer")
		return false
	}
	seq, epoch := m.beginRead(selectedQueryKey)
	defer m.endRead(selectedQueryKey)

	var transfer *types.Transfer
	err := guard(func() error {
		var err error
		transfer, err = m.api.GetTransfer(ctx, id)
		return err
	})
	if err == nil && isEmpty(transfer) {
		err = errEmptyTransfer
	}

	m.mu.Lock()
	if !m.latestLocked(selectedQueryKey, seq) {
		m.mu.Unlock()
		m.logger.Debug("transfers_fetch_stale", logging.F("view", selectedQueryKey), logging.F("seq", int64(seq)))
		return false
	}
	if err != nil {
		m.mu.Unlock()
		if isCanceled(err) {
			m.logger.Debug("transfers_fetch_canceled", logging.F("view", selectedQueryKey))
			return false
		}
		m.fail(err, "Could not load transfer")
		return false
	}
	if written, ok := m.written[transfer.ID]; ok && written.epoch > epoch {
		transfer = written.transfer
	}
	m.selected = transfer.Clone()
	for kind, view := range m.collections {
		if replaced, changed := replaceByID(view.items, transfer); changed {
			m.collections[kind] = view.withItems(replaced, view.page)
		}
	}
	m.clearErrorLocked()
	m.mu.Unlock()
	return true
}

// UpdateStatus is the single entry point for status changes. On success the
// server's entity replaces every cached copy, view membership follows the
// new status and the pending counter is adjusted. On failure nothing cached
// changes.
func (m *Manager) UpdateStatus(ctx context.Context, id string, update types.TransferUpdate) bool {
	const op = "update"
	id = strings.TrimSpace(id)
	if id == "" {
		m.fail(invalidf("transfer id is required"), "Update failed")
		return false
	}
	if update.Status == nil || strings.TrimSpace(string(*update.Status)) == "" {
		m.fail(invalidf("a target status is required"), "Update failed")
		return false
	}
	target := types.ParseStatus(string(*update.Status))
	update.Status = &target

	previous, seen := m.cachedStatus(id)
	if m.validateChanges {
		if err := types.ValidateTransition(previous, target); err != nil {
			m.fail(&inputError{err: err}, "Update failed")
			return false
		}
	}

	m.begin(op)
	defer m.end(op)

	var updated *types.Transfer
	err := guard(func() error {
		var err error
		updated, err = m.api.UpdateTransfer(ctx, id, update)
		return err
	})
	if err == nil && isEmpty(updated) {
		err = errEmptyTransfer
	}
	if err != nil {
		m.fail(err, "Update failed")
		return false
	}
	if updated.ID == "" {
		updated.ID = id
	}

	m.mu.Lock()
	// Re-read the previous status under the lock; a concurrent mutation may
	// have landed while the request was in flight.
	if status, ok := m.cachedStatusLocked(id); ok {
		previous, seen = status, true
	}
	m.applyLocked(updated)
	m.clearErrorLocked()
	m.mu.Unlock()

	if seen {
		wasPending := previous.IsPendingEquivalent()
		isPending := updated.Status.IsPendingEquivalent()
		switch {
		case wasPending && !isPending:
			m.counter.Decrement()
		case !wasPending && isPending:
			m.counter.Increment()
		}
	}
	m.logger.Info("transfer_status_updated",
		logging.F("id", id),
		logging.F("from", string(previous)),
		logging.F("to", string(updated.Status)),
	)
	m.notifier.Notify(notify.Success(noticeSource,
		"Transfer updated",
		fmt.Sprintf("%s is now %s", displayRef(updated), updated.Status.Label()),
	))
	return true
}

// Approve marks a transfer completed. Notes go to the internal notes.
func (m *Manager) Approve(ctx context.Context, id, notes string) bool {
	update := types.TransferUpdate{
		Status:        types.StatusPtr(types.StatusCompleted),
		StatusMessage: types.StringPtr(approveMessage),
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		update.InternalNotes = types.StringPtr(notes)
	}
	return m.UpdateStatus(ctx, id, update)
}

// Reject marks a transfer failed. The reason is shown to the customer.
func (m *Manager) Reject(ctx context.Context, id, reason string) bool {
	message := rejectMessage
	update := types.TransferUpdate{Status: types.StatusPtr(types.StatusFailed)}
	if reason = strings.TrimSpace(reason); reason != "" {
		message = reason
		update.AdminRemarks = types.StringPtr(reason)
	}
	update.StatusMessage = types.StringPtr(message)
	return m.UpdateStatus(ctx, id, update)
}

// BulkUpdateStatus sends one batched request and then reloads the "all" view
// with its last filters instead of patching entries one by one.
func (m *Manager) BulkUpdateStatus(ctx context.Context, ids []string, status types.Status, message string) bool {
	const op = "bulk"
	cleaned := make([]string, 0, len(ids))
	seen := map[string]struct{}{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, id)
	}
	if len(cleaned) == 0 {
		m.fail(invalidf("select at least one transfer"), "Bulk update failed")
		return false
	}
	status = types.ParseStatus(string(status))
	if m.validateChanges && !status.Known() {
		m.fail(&inputError{err: fmt.Errorf("%w: %q", types.ErrUnknownStatus, string(status))}, "Bulk update failed")
		return false
	}

	m.begin(op)
	defer m.end(op)

	var result *types.BulkStatusResult
	err := guard(func() error {
		var err error
		result, err = m.api.BulkUpdateStatus(ctx, types.BulkStatusUpdate{
			TransferIDs:   cleaned,
			Status:        status,
			StatusMessage: strings.TrimSpace(message),
		})
		return err
	})
	if err != nil {
		m.fail(err, "Bulk update failed")
		return false
	}
	if result == nil {
		result = &types.BulkStatusResult{Updated: len(cleaned)}
	}
	m.logger.Info("transfers_bulk_updated",
		logging.F("status", string(status)),
		logging.F("requested", len(cleaned)),
		logging.F("updated", result.Updated),
		logging.F("failed", result.Failed),
	)
	level := notify.Success
	if result.Failed > 0 {
		level = notify.Warning
	}
	m.notifier.Notify(level(noticeSource,
		"Bulk update",
		fmt.Sprintf("%d updated, %d failed", result.Updated, result.Failed),
	))

	m.mu.Lock()
	filters := Filters{}
	if view := m.collections[KindAll]; view != nil {
		filters = view.filters
	}
	m.mu.Unlock()
	return m.FetchCollection(ctx, KindAll, filters)
}

// applyLocked writes a server entity into every place it belongs.
func (m *Manager) applyLocked(updated *types.Transfer) {
	m.selected = updated.Clone()
	for kind, view := range m.collections {
		if next, changed := place(kind, view, updated); changed {
			m.collections[kind] = next
		}
	}
	m.epoch++
	if m.reads > 0 {
		m.written[updated.ID] = writtenTransfer{epoch: m.epoch, transfer: updated.Clone()}
	}
}

// place returns view with updated replaced, removed or inserted according to
// the view's status and filters.
func place(kind Kind, view *collection, updated *types.Transfer) (*collection, bool) {
	items, page := view.items, view.page
	replaced, present := replaceByID(items, updated)
	belongs := kind.Contains(updated.Status) && view.filters.admits(updated)
	switch {
	case present && belongs:
		items = replaced
	case present && !belongs && kind != KindAll:
		items = removeByID(items, updated.ID)
		page = page.WithTotal(page.TotalCount - 1)
	case present:
		items = replaced
	case belongs && kind != KindAll && view.page.CurrentPage <= 1:
		items = prepend(items, updated, view.filters.Limit)
		page = page.WithTotal(page.TotalCount + 1)
	case belongs && kind != KindAll:
		page = page.WithTotal(page.TotalCount + 1)
	default:
		return view, false
	}
	return view.withItems(items, page), true
}

// writtenSinceLocked lists the entities written after epoch, oldest first.
func (m *Manager) writtenSinceLocked(epoch uint64) []*types.Transfer {
	newer := make([]writtenTransfer, 0, len(m.written))
	for _, written := range m.written {
		if written.epoch > epoch {
			newer = append(newer, written)
		}
	}
	sort.Slice(newer, func(i, j int) bool { return newer[i].epoch < newer[j].epoch })
	out := make([]*types.Transfer, 0, len(newer))
	for _, written := range newer {
		out = append(out, written.transfer)
	}
	return out
}

func (m *Manager) cachedStatus(id string) (types.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cachedStatusLocked(id)
}

func (m *Manager) cachedStatusLocked(id string) (types.Status, bool) {
	if m.selected != nil && m.selected.ID == id {
		return m.selected.Status, true
	}
	for _, kind := range Kinds() {
		view := m.collections[kind]
		if view == nil {
			continue
		}
		for _, transfer := range view.items {
			if transfer.ID == id {
				return transfer.Status, true
			}
		}
	}
	return "", false
}

func (m *Manager) begin(key string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued[key]++
	m.loading[key]++
	return m.issued[key]
}

func (m *Manager) end(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loading[key] > 0 {
		m.loading[key]--
	}
}

// beginRead also returns the write epoch the read was issued at.
func (m *Manager) beginRead(key string) (uint64, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued[key]++
	m.loading[key]++
	m.reads++
	return m.issued[key], m.epoch
}

func (m *Manager) endRead(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loading[key] > 0 {
		m.loading[key]--
	}
	if m.reads > 0 {
		m.reads--
	}
	if m.reads == 0 {
		clear(m.written)
	}
}

func (m *Manager) latestLocked(key string, seq uint64) bool {
	return m.issued[key] == seq
}

func (m *Manager) fail(err error, title string) {
	message := client.UserMessage(err)
	var invalid *inputError
	if errors.As(err, &invalid) {
		message = invalid.Error()
	}
	m.mu.Lock()
	m.lastErr = message
	m.authExpired = client.IsAuthError(err)
	m.mu.Unlock()
	m.logger.Warn("transfers_operation_failed", logging.F("title", title), logging.F("error", err))
	m.notifier.Notify(notify.Error(noticeSource, title, message))
}

func (m *Manager) clearErrorLocked() {
	m.lastErr = ""
	m.authExpired = false
}

// guard runs fn and turns a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanicked, r)
		}
	}()
	return fn()
}

func displayRef(transfer *types.Transfer) string {
	if ref := strings.TrimSpace(transfer.Reference); ref != "" {
		return ref
	}
	return transfer.ID
}

// isEmpty catches a success envelope whose data was null or blank.
func isEmpty(transfer *types.Transfer) bool {
	return transfer == nil || strings.TrimSpace(string(transfer.Status)) == ""
}

func nonNil(in []*types.Transfer) []*types.Transfer {
	out := make([]*types.Transfer, 0, len(in))
	for _, transfer := range in {
		if transfer != nil {
			out = append(out, transfer)
		}
	}
	return out
}
