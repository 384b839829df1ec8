package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"payadmin/internal/logging"
	"payadmin/internal/store"
	"payadmin/internal/types"
)

const (
	defaultBaseURL = "http://127.0.0.1:8000/api/v1"
	refreshWindow  = 30 * time.Second
	requestIDKey   = "X-Request-ID"
)

var (
	ErrNotAuthenticated = errors.New("not signed in")
	ErrSessionExpired   = errors.New("session expired; sign in again")
)

// RequestObserver receives one call per HTTP round trip.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

type Client struct {
	baseURL  string
	http     *http.Client
	sessions store.SessionStore
	logger   logging.Logger
	observer RequestObserver
	now      func() time.Time

	refreshGroup singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http = &http.Client{Timeout: timeout}
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithObserver(observer RequestObserver) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

func New(baseURL string, sessions store.SessionStore, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if sessions == nil {
		sessions = store.NewMemorySessionStore(nil)
	}
	c := &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 15 * time.Second},
		sessions: sessions,
		logger:   logging.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Session returns the stored session, or nil when signed out.
func (c *Client) Session(ctx context.Context) (*types.Session, error) {
	return c.sessions.Load(ctx)
}

func (c *Client) Login(ctx context.Context, email, password string) (*types.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	var resp TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", LoginRequest{Email: email, Password: password}, false, &resp); err != nil {
		return nil, err
	}
	session, err := c.sessionFromTokens(resp, nil)
	if err != nil {
		return nil, err
	}
	if err := c.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

// Logout revokes the refresh token when possible and always clears the local
// session.
func (c *Client) Logout(ctx context.Context) error {
	session, err := c.sessions.Load(ctx)
	if err != nil {
		return err
	}
	var logoutErr error
	if session.Valid() {
		body := RefreshRequest{RefreshToken: session.RefreshToken}
		logoutErr = c.send(ctx, session.AccessToken, http.MethodPost, "/auth/logout", body, nil)
		if apiErr := asAPIError(logoutErr); apiErr != nil && apiErr.StatusCode == http.StatusUnauthorized {
			logoutErr = nil
		}
	}
	if err := c.sessions.Clear(ctx); err != nil {
		return err
	}
	return logoutErr
}

func (c *Client) Me(ctx context.Context) (*types.AdminProfile, error) {
	var admin types.AdminProfile
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, true, &admin); err != nil {
		return nil, err
	}
	return &admin, nil
}

func (c *Client) PendingCount(ctx context.Context) (types.PendingCount, error) {
	var count types.PendingCount
	if err := c.doJSON(ctx, http.MethodGet, "/admin/transfers/pending-count", nil, true, &count); err != nil {
		return types.PendingCount{}, err
	}
	return count, nil
}

func (c *Client) ListTransfers(ctx context.Context, params ListTransfersParams) (*TransferList, error) {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(max(params.Skip, 0)))
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.StatusFilter != "" {
		query.Set("status_filter", string(params.StatusFilter))
	}
	if params.TypeFilter != "" {
		query.Set("type_filter", string(params.TypeFilter))
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		query.Set("search", search)
	}
	var resp TransferList
	if err := c.doJSON(ctx, http.MethodGet, "/admin/transfers?"+query.Encode(), nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetTransfer(ctx context.Context, id string) (*types.Transfer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("transfer id is required")
	}
	var transfer types.Transfer
	if err := c.doJSON(ctx, http.MethodGet, "/admin/transfers/"+url.PathEscape(id), nil, true, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (c *Client) UpdateTransfer(ctx context.Context, id string, update types.TransferUpdate) (*types.Transfer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("transfer id is required")
	}
	var transfer types.Transfer
	if err := c.doJSON(ctx, http.MethodPut, "/admin/transfers/"+url.PathEscape(id), update, true, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

func (c *Client) BulkUpdateStatus(ctx context.Context, update types.BulkStatusUpdate) (*types.BulkStatusResult, error) {
	if len(update.TransferIDs) == 0 {
		return nil, errors.New("at least one transfer id is required")
	}
	var result types.BulkStatusResult
	if err := c.doJSON(ctx, http.MethodPost, "/admin/transfers/bulk-update-status", update, true, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListCustomers(ctx context.Context, params ListParams) (*RecordList[types.Customer], error) {
	return listRecords[types.Customer](ctx, c, "/admin/users", params)
}

func (c *Client) ListAdmins(ctx context.Context, params ListParams) (*RecordList[types.Admin], error) {
	return listRecords[types.Admin](ctx, c, "/admin/admins", params)
}

func (c *Client) ListWallets(ctx context.Context, params ListParams) (*RecordList[types.Wallet], error) {
	return listRecords[types.Wallet](ctx, c, "/admin/wallets", params)
}

func (c *Client) ListAuditLogs(ctx context.Context, params ListParams) (*RecordList[types.AuditLog], error) {
	return listRecords[types.AuditLog](ctx, c, "/admin/audit-logs", params)
}

func (c *Client) ListSettings(ctx context.Context) (*RecordList[types.SystemSetting], error) {
	return listRecords[types.SystemSetting](ctx, c, "/admin/settings", ListParams{})
}

func listRecords[T any](ctx context.Context, c *Client, path string, params ListParams) (*RecordList[T], error) {
	query := url.Values{}
	if params.Skip > 0 {
		query.Set("skip", strconv.Itoa(params.Skip))
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		query.Set("search", search)
	}
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var resp RecordList[T]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// doJSON performs one API call. Authenticated calls refresh the access token
// ahead of expiry and retry exactly once after a 401.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, requireAuth bool, out any) error {
	if !requireAuth {
		return c.send(ctx, "", method, path, body, out)
	}
	session, err := c.sessions.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !session.Valid() {
		return ErrNotAuthenticated
	}
	refreshed := false
	if session.CanRefresh() && session.ExpiresWithin(c.now(), refreshWindow) {
		session, err = c.refreshShared(ctx, session)
		if err != nil {
			return err
		}
		refreshed = true
	}

	err = c.send(ctx, session.AccessToken, method, path, body, out)
	if !isUnauthorized(err) {
		return err
	}
	// One refresh per request: a 401 after the early refresh ends the session.
	if refreshed || !session.CanRefresh() {
		c.clearSession(ctx)
		return ErrSessionExpired
	}
	session, err = c.refreshShared(ctx, session)
	if err != nil {
		return err
	}
	err = c.send(ctx, session.AccessToken, method, path, body, out)
	if isUnauthorized(err) {
		c.clearSession(ctx)
		return ErrSessionExpired
	}
	return err
}

// refreshShared collapses concurrent refreshes of the same session into one
// request. A caller whose token was already replaced by another refresh just
// picks up the stored session.
func (c *Client) refreshShared(ctx context.Context, stale *types.Session) (*types.Session, error) {
	current, err := c.sessions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !current.Valid() {
		return nil, ErrSessionExpired
	}
	if current.AccessToken != stale.AccessToken && !current.ExpiresWithin(c.now(), refreshWindow) {
		return current, nil
	}
	result, err, _ := c.refreshGroup.Do(current.RefreshToken, func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx), current)
	})
	if err != nil {
		return nil, err
	}
	return result.(*types.Session), nil
}

func (c *Client) refresh(ctx context.Context, session *types.Session) (*types.Session, error) {
	var resp TokenResponse
	err := c.send(ctx, "", http.MethodPost, "/auth/refresh", RefreshRequest{RefreshToken: session.RefreshToken}, &resp)
	if err != nil {
		if apiErr := asAPIError(err); apiErr != nil && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			c.logger.Info("session_refresh_rejected", logging.F("status", apiErr.StatusCode))
			c.clearSession(ctx)
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	next, err := c.sessionFromTokens(resp, session)
	if err != nil {
		return nil, err
	}
	if err := c.sessions.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	c.logger.Debug("session_refreshed", logging.F("expires_at", next.ExpiresAt))
	return next, nil
}

func (c *Client) clearSession(ctx context.Context) {
	if err := c.sessions.Clear(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("session_clear_failed", logging.F("error", err))
	}
}

func (c *Client) sessionFromTokens(resp TokenResponse, previous *types.Session) (*types.Session, error) {
	if strings.TrimSpace(resp.AccessToken) == "" {
		return nil, errors.New("login response did not include an access token")
	}
	session := &types.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		Admin:        resp.Admin,
	}
	if previous != nil {
		if session.RefreshToken == "" {
			session.RefreshToken = previous.RefreshToken
		}
		if session.Admin == nil {
			session.Admin = previous.Admin
		}
	}
	if resp.ExpiresIn > 0 {
		session.ExpiresAt = c.now().UTC().Add(time.Duration(resp.ExpiresIn) * time.Second)
	} else if exp, ok := tokenExpiry(resp.AccessToken); ok {
		session.ExpiresAt = exp
	}
	return session, nil
}

func (c *Client) send(ctx context.Context, token, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = buf
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDKey, requestID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	route := routeLabel(path)
	started := c.now()
	resp, err := c.http.Do(req)
	elapsed := c.now().Sub(started)
	if err != nil {
		c.observe(method, route, 0, elapsed)
		c.logger.Warn("api_request_failed",
			logging.F("method", method),
			logging.F("route", route),
			logging.F("request_id", requestID),
			logging.F("error", err),
		)
		return fmt.Errorf("%s %s: %w", method, route, err)
	}
	defer resp.Body.Close()
	c.observe(method, route, resp.StatusCode, elapsed)
	c.logger.Debug("api_request",
		logging.F("method", method),
		logging.F("route", route),
		logging.F("status", resp.StatusCode),
		logging.F("elapsed", elapsed),
		logging.F("request_id", requestID),
	)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return decodeResponse(resp, data, out)
}

func (c *Client) observe(method, route string, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, route, status, elapsed)
	}
}

func decodeResponse(resp *http.Response, data []byte, out any) error {
	var env envelope
	hasEnvelope := false
	if len(bytes.TrimSpace(data)) > 0 && json.Unmarshal(data, &env) == nil {
		hasEnvelope = env.Success != nil || len(env.Data) > 0
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := env.errorText()
		if message == "" {
			message = resp.Status
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}
	if env.Success != nil && !*env.Success {
		message := env.errorText()
		if message == "" {
			message = "request failed"
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}
	if out == nil {
		return nil
	}
	raw := data
	if hasEnvelope {
		raw = env.Data
	}
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (e envelope) errorText() string {
	if msg := strings.TrimSpace(e.Error); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	switch detail := e.Detail.(type) {
	case string:
		return strings.TrimSpace(detail)
	case []any:
		parts := make([]string, 0, len(detail))
		for _, item := range detail {
			if entry, ok := item.(map[string]any); ok {
				if msg, ok := entry["msg"].(string); ok {
					parts = append(parts, msg)
				}
			}
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

// routeLabel collapses ids out of a path so request metrics keep a bounded
// label set.
func routeLabel(path string) string {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}
	const prefix = "/admin/transfers/"
	if strings.HasPrefix(path, prefix) {
		rest := strings.TrimPrefix(path, prefix)
		switch rest {
		case "pending-count", "bulk-update-status":
			return path
		}
		return prefix + ":id"
	}
	return path
}

func isUnauthorized(err error) bool {
	apiErr := asAPIError(err)
	return apiErr != nil && apiErr.StatusCode == http.StatusUnauthorized
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

func asAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

const GenericErrorMessage = "An unexpected error occurred"

// UserMessage turns an error into text fit for an admin: the backend's own
// message when there is one, a generic fallback otherwise.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrSessionExpired):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrNotAuthenticated):
		return "You are not signed in."
	}
	if apiErr := asAPIError(err); apiErr != nil {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" && !looksLikeStatusLine(msg, apiErr.StatusCode) {
			return msg
		}
	}
	return GenericErrorMessage
}

func looksLikeStatusLine(msg string, status int) bool {
	return strings.HasPrefix(msg, strconv.Itoa(status)+" ")
}

// IsAuthError reports whether err means the admin must sign in again.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrNotAuthenticated)
}
