package sandbox

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"payadmin/internal/logging"
	"payadmin/internal/types"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenPair struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	TokenType    string             `json:"token_type"`
	ExpiresIn    int                `json:"expires_in"`
	Admin        types.AdminProfile `json:"admin"`
}

type transferPage struct {
	Transfers  []*types.Transfer `json:"transfers"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
	HasNext    bool              `json:"has_next"`
	HasPrev    bool              `json:"has_prev"`
}

type recordPage[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Email and password are required")
		return
	}
	rec, err := s.db.adminByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, errNotFound) {
		s.internalError(c, err)
		return
	}
	if err != nil || !rec.active || bcrypt.CompareHashAndPassword([]byte(rec.passwordHash), []byte(req.Password)) != nil {
		fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	pair, err := s.issuePair(c, rec.profile)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if err := s.db.touchLogin(c.Request.Context(), rec.profile.ID); err != nil {
		s.logger.Warn("sandbox_touch_login_failed", logging.F("error", err))
	}
	ok(c, http.StatusOK, pair)
}

func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Refresh token is required")
		return
	}
	claims, err := s.tokens.parse(req.RefreshToken, tokenRefresh)
	if err != nil {
		fail(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	usable, err := s.db.consumeRefreshToken(c.Request.Context(), claims.ID)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if !usable {
		fail(c, http.StatusUnauthorized, "Refresh token has been revoked")
		return
	}
	rec, err := s.db.adminByID(c.Request.Context(), claims.Subject)
	if err != nil || !rec.active {
		fail(c, http.StatusUnauthorized, "Admin account not found")
		return
	}
	pair, err := s.issuePair(c, rec.profile)
	if err != nil {
		s.internalError(c, err)
		return
	}
	ok(c, http.StatusOK, pair)
}

func (s *Server) issuePair(c *gin.Context, profile types.AdminProfile) (tokenPair, error) {
	access, _, err := s.tokens.issue(tokenAccess, profile.ID, profile.Email, profile.Role, s.epoch.Load(), s.tokens.accessTTL)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, claims, err := s.tokens.issue(tokenRefresh, profile.ID, "", "", 0, refreshTTL)
	if err != nil {
		return tokenPair{}, err
	}
	if err := s.db.saveRefreshToken(c.Request.Context(), claims.ID, profile.ID, claims.ExpiresAt.Time); err != nil {
		return tokenPair{}, err
	}
	return tokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.tokens.accessTTL.Seconds()),
		Admin:        profile,
	}, nil
}

func (s *Server) logout(c *gin.Context) {
	admin := currentAdmin(c)
	if err := s.db.revokeRefreshTokens(c.Request.Context(), admin.ID); err != nil {
		s.internalError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) me(c *gin.Context) {
	ok(c, http.StatusOK, currentAdmin(c))
}

func (s *Server) pendingCount(c *gin.Context) {
	n, err := s.db.pendingCount(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	ok(c, http.StatusOK, types.PendingCount{PendingCount: n, Timestamp: s.db.now().UTC()})
}

func (s *Server) listTransfers(c *gin.Context) {
	skip, limit, valid := pageParams(c)
	if !valid {
		return
	}
	q := transferQuery{
		skip:   skip,
		limit:  limit,
		kind:   types.TransferType(strings.TrimSpace(c.Query("type_filter"))),
		search: strings.TrimSpace(c.Query("search")),
	}
	if raw := strings.TrimSpace(c.Query("status_filter")); raw != "" {
		q.status = types.ParseStatus(raw)
	}
	transfers, total, err := s.db.listTransfers(c.Request.Context(), q)
	if err != nil {
		s.internalError(c, err)
		return
	}
	page := types.NewPagination(total, skip, limit)
	ok(c, http.StatusOK, transferPage{
		Transfers:  transfers,
		TotalCount: total,
		Page:       page.CurrentPage,
		PageSize:   limit,
		TotalPages: page.TotalPages,
		HasNext:    page.HasNext,
		HasPrev:    page.HasPrev,
	})
}

func (s *Server) getTransfer(c *gin.Context) {
	transfer, err := s.db.getTransfer(c.Request.Context(), c.Param("id"))
	if errors.Is(err, errNotFound) {
		fail(c, http.StatusNotFound, "Transfer not found")
		return
	}
	if err != nil {
		s.internalError(c, err)
		return
	}
	ok(c, http.StatusOK, transfer)
}

func (s *Server) updateTransfer(c *gin.Context) {
	var req types.TransferUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	change := transferChange{
		statusMessage:   req.StatusMessage,
		processingNotes: req.ProcessingNotes,
		adminRemarks:    req.AdminRemarks,
		internalNotes:   req.InternalNotes,
	}
	if req.Status != nil {
		status := types.ParseStatus(string(*req.Status))
		if !status.Known() {
			fail(c, http.StatusBadRequest, "Invalid status: "+string(*req.Status))
			return
		}
		change.status = &status
	}
	id := c.Param("id")
	if err := s.db.updateTransfer(c.Request.Context(), id, change, currentAdmin(c)); err != nil {
		s.writeUpdateError(c, err)
		return
	}
	s.getTransfer(c)
}

func (s *Server) writeUpdateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errNotFound):
		fail(c, http.StatusNotFound, "Transfer not found")
	case errors.Is(err, errInvalidState):
		fail(c, http.StatusBadRequest, transitionMessage(err))
	default:
		s.internalError(c, err)
	}
}

func transitionMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, types.ErrInvalidTransition.Error()+": "); i >= 0 {
		msg = msg[i+len(types.ErrInvalidTransition.Error())+2:]
	}
	return "Cannot change status: " + msg
}

func (s *Server) bulkUpdateStatus(c *gin.Context) {
	var req types.BulkStatusUpdate
	if err := c.ShouldBindJSON(&req); err != nil || len(req.TransferIDs) == 0 {
		fail(c, http.StatusBadRequest, "transfer_ids and status are required")
		return
	}
	status := types.ParseStatus(string(req.Status))
	if !status.Known() {
		fail(c, http.StatusBadRequest, "Invalid status: "+string(req.Status))
		return
	}
	change := transferChange{status: &status}
	if msg := strings.TrimSpace(req.StatusMessage); msg != "" {
		change.statusMessage = &msg
	}
	result := types.BulkStatusResult{}
	admin := currentAdmin(c)
	for _, id := range req.TransferIDs {
		if err := s.db.updateTransfer(c.Request.Context(), id, change, admin); err != nil {
			if !errors.Is(err, errNotFound) && !errors.Is(err, errInvalidState) {
				s.internalError(c, err)
				return
			}
			result.Failed++
			result.FailedIDs = append(result.FailedIDs, id)
			continue
		}
		result.Updated++
	}
	result.Message = strconv.Itoa(result.Updated) + " transfers updated"
	ok(c, http.StatusOK, result)
}

func (s *Server) listCustomers(c *gin.Context) {
	skip, limit, valid := pageParams(c)
	if !valid {
		return
	}
	items, total, err := s.db.listCustomers(c.Request.Context(), skip, limit, c.Query("search"))
	respondPage(s, c, items, total, err)
}

func (s *Server) listAdmins(c *gin.Context) {
	skip, limit, valid := pageParams(c)
	if !valid {
		return
	}
	items, total, err := s.db.listAdmins(c.Request.Context(), skip, limit)
	respondPage(s, c, items, total, err)
}

func (s *Server) listWallets(c *gin.Context) {
	skip, limit, valid := pageParams(c)
	if !valid {
		return
	}
	items, total, err := s.db.listWallets(c.Request.Context(), skip, limit)
	respondPage(s, c, items, total, err)
}

func (s *Server) listAuditLogs(c *gin.Context) {
	skip, limit, valid := pageParams(c)
	if !valid {
		return
	}
	items, total, err := s.db.listAuditLogs(c.Request.Context(), skip, limit)
	respondPage(s, c, items, total, err)
}

func (s *Server) listSettings(c *gin.Context) {
	items, err := s.db.listSettings(c.Request.Context())
	respondPage(s, c, items, len(items), err)
}

func respondPage[T any](s *Server, c *gin.Context, items []T, total int, err error) {
	if err != nil {
		s.internalError(c, err)
		return
	}
	ok(c, http.StatusOK, recordPage[T]{Items: items, TotalCount: total})
}

// pageParams reads skip and limit. It writes the 400 itself and reports
// false when they are malformed.
func pageParams(c *gin.Context) (int, int, bool) {
	skip, limit := 0, defaultListLimit
	if raw := c.Query("skip"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, "skip must be a non-negative integer")
			return 0, 0, false
		}
		skip = n
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			fail(c, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxListLimit))
			return 0, 0, false
		}
		limit = n
	}
	return skip, limit, true
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error("sandbox_internal_error",
		logging.F("path", c.Request.URL.Path),
		logging.F("request_id", c.GetString("request_id")),
		logging.F("error", err),
	)
	fail(c, http.StatusInternalServerError, "Internal server error")
}
