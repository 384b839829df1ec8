package transfers

import (
	"strings"

	"payadmin/internal/client"
	"payadmin/internal/types"
)

// Kind names one cached view of transfers.
type Kind string

const (
	KindAll       Kind = "all"
	KindPending   Kind = "pending"
	KindFailed    Kind = "failed"
	KindCompleted Kind = "completed"
)

func Kinds() []Kind {
	return []Kind{KindAll, KindPending, KindFailed, KindCompleted}
}

func ParseKind(raw string) (Kind, bool) {
	kind := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if kind == "" {
		return KindAll, true
	}
	for _, known := range Kinds() {
		if kind == known {
			return kind, true
		}
	}
	return kind, false
}

func (k Kind) String() string {
	return string(k)
}

func (k Kind) Title() string {
	switch k {
	case KindPending:
		return "Pending"
	case KindFailed:
		return "Failed"
	case KindCompleted:
		return "Completed"
	default:
		return "All"
	}
}

// Contains reports whether a transfer with status belongs in this view. A
// status view holds exactly the status it asks the server for, so a local
// move never shows an entry the next reload would drop.
func (k Kind) Contains(status types.Status) bool {
	if k == KindAll {
		return true
	}
	return status == k.status()
}

// status is the server-side status filter of a status view.
func (k Kind) status() types.Status {
	switch k {
	case KindPending:
		return types.StatusPending
	case KindFailed:
		return types.StatusFailed
	case KindCompleted:
		return types.StatusCompleted
	default:
		return ""
	}
}

func (k Kind) params(filters Filters) client.ListTransfersParams {
	params := client.ListTransfersParams{
		Skip:         filters.Skip,
		Limit:        filters.Limit,
		TypeFilter:   filters.Type,
		Search:       filters.Search,
		StatusFilter: k.status(),
	}
	if k == KindAll {
		params.StatusFilter = filters.Status
	}
	return params
}

// Filters narrows a view. Status only applies to the "all" view; the other
// views fix their own status filter.
type Filters struct {
	Search string             `json:"search,omitempty"`
	Type   types.TransferType `json:"type,omitempty"`
	Status types.Status       `json:"status,omitempty"`
	Skip   int                `json:"skip"`
	Limit  int                `json:"limit"`
}

// ForPage returns a copy positioned on the 1-indexed page.
func (f Filters) ForPage(page int) Filters {
	if page < 1 {
		page = 1
	}
	out := f
	out.Skip = (page - 1) * max(f.Limit, 0)
	return out
}

func (f Filters) normalize(defaultLimit int) Filters {
	out := f
	out.Search = strings.TrimSpace(f.Search)
	out.Type = types.TransferType(strings.TrimSpace(string(f.Type)))
	if f.Status != "" {
		out.Status = types.ParseStatus(string(f.Status))
	}
	out.Skip = max(f.Skip, 0)
	if out.Limit <= 0 {
		out.Limit = defaultLimit
	}
	return out
}

// admits checks the filters that can be evaluated locally. Free-text search
// is left to the server.
func (f Filters) admits(transfer *types.Transfer) bool {
	if f.Type != "" && transfer.Type != f.Type {
		return false
	}
	if f.Status != "" && transfer.Status != f.Status {
		return false
	}
	return true
}
