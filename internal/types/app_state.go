package types

// AppState is the dashboard state persisted between runs.
type AppState struct {
	ActiveView string `json:"active_view"`
	Search     string `json:"search,omitempty"`
	TypeFilter string `json:"type_filter,omitempty"`
	PageSize   int    `json:"page_size,omitempty"`
	SelectedID string `json:"selected_id,omitempty"`
}
