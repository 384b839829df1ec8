package client

import (
	"encoding/json"

	"payadmin/internal/types"
)

// envelope is the uniform response wrapper of the admin API. Some error
// paths use message or detail instead of error.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Detail  any             `json:"detail"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
	TokenType    string              `json:"token_type"`
	ExpiresIn    int                 `json:"expires_in,omitempty"`
	Admin        *types.AdminProfile `json:"admin,omitempty"`
}

type ListTransfersParams struct {
	Skip         int
	Limit        int
	StatusFilter types.Status
	TypeFilter   types.TransferType
	Search       string
}

type TransferList struct {
	Transfers  []*types.Transfer `json:"transfers"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size,omitempty"`
	TotalPages int               `json:"total_pages"`
	HasNext    bool              `json:"has_next"`
	HasPrev    bool              `json:"has_prev"`
}

type ListParams struct {
	Skip   int
	Limit  int
	Search string
}

type RecordList[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
}
