package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"payadmin/internal/logging"
	"payadmin/internal/types"
)

const (
	DefaultAdminEmail    = "admin@payadmin.local"
	DefaultAdminPassword = "sandbox-admin"
	DefaultAccessTTL     = 15 * time.Minute
	APIPrefix            = "/api/v1"

	defaultListLimit = 20
	maxListLimit     = 100
	ctxAdminKey      = "sandbox.admin"
)

type Options struct {
	DBPath    string
	JWTSecret string
	AccessTTL time.Duration
	Seed      bool
	Logger    logging.Logger
	Now       func() time.Time
}

// Server is a local stand-in for the admin API. It speaks the same envelope
// and endpoints so the console can be exercised without the real backend.
type Server struct {
	db     *db
	tokens tokenIssuer
	logger logging.Logger
	engine *gin.Engine
	epoch  atomic.Int64
}

func New(ctx context.Context, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = DefaultAccessTTL
	}
	secret := strings.TrimSpace(opts.JWTSecret)
	if secret == "" {
		secret = uuid.NewString()
	}
	store, err := openDB(opts.DBPath, opts.Now)
	if err != nil {
		return nil, err
	}
	s := &Server{
		db:     store,
		tokens: tokenIssuer{secret: []byte(secret), accessTTL: opts.AccessTTL, now: opts.Now},
		logger: opts.Logger,
	}
	if _, err := s.ensureAdmin(ctx, DefaultAdminEmail, DefaultAdminPassword, "Sandbox", "Admin", "super_admin"); err != nil {
		store.close()
		return nil, err
	}
	if opts.Seed {
		if err := s.seed(ctx); err != nil {
			store.close()
			return nil, err
		}
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Close() error {
	return s.db.close()
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("sandbox_listening", logging.F("addr", "http://"+listener.Addr().String()+APIPrefix))
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens keep working, which is what a client sees when its access token
// times out.
func (s *Server) ExpireAccessTokens() {
	s.epoch.Add(1)
}

// CreateTransfer inserts a transfer as if a customer had just initiated it.
func (s *Server) CreateTransfer(ctx context.Context, transfer *types.Transfer) error {
	if transfer == nil {
		return errors.New("transfer is required")
	}
	if transfer.NetAmount.IsZero() {
		transfer.NetAmount = transfer.Amount.Sub(transfer.Fee)
	}
	return s.db.insertTransfer(ctx, transfer)
}

// SetStatus changes a transfer on behalf of the backend itself, e.g. a chain
// watcher confirming a deposit.
func (s *Server) SetStatus(ctx context.Context, id string, status types.Status, message string) error {
	change := transferChange{status: &status}
	if message != "" {
		change.statusMessage = &message
	}
	return s.db.updateTransfer(ctx, id, change, types.AdminProfile{ID: "system", FirstName: "system"})
}

func (s *Server) ensureAdmin(ctx context.Context, email, password, first, last, role string) (types.AdminProfile, error) {
	if existing, err := s.db.adminByEmail(ctx, email); err == nil {
		return existing.profile, nil
	} else if !errors.Is(err, errNotFound) {
		return types.AdminProfile{}, err
	}
	// Sandbox credentials are not secrets; the minimum cost keeps tests fast.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return types.AdminProfile{}, fmt.Errorf("hash sandbox password: %w", err)
	}
	profile := types.AdminProfile{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(email),
		FirstName: first,
		LastName:  last,
		Role:      role,
	}
	if err := s.db.insertAdmin(ctx, profile, string(hash)); err != nil {
		return types.AdminProfile{}, fmt.Errorf("create sandbox admin: %w", err)
	}
	return profile, nil
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(s.requestID(), s.accessLog(), gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("sandbox_panic", logging.F("path", c.Request.URL.Path), logging.F("panic", fmt.Sprint(recovered)))
		fail(c, http.StatusInternalServerError, "Internal server error")
	}))
	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "Not found")
	})

	api := r.Group(APIPrefix)
	auth := api.Group("/auth")
	auth.POST("/login", s.login)
	auth.POST("/refresh", s.refresh)
	auth.POST("/logout", s.requireAdmin(), s.logout)
	auth.GET("/me", s.requireAdmin(), s.me)

	admin := api.Group("/admin", s.requireAdmin())
	admin.GET("/transfers/pending-count", s.pendingCount)
	admin.GET("/transfers", s.listTransfers)
	admin.POST("/transfers/bulk-update-status", s.bulkUpdateStatus)
	admin.GET("/transfers/:id", s.getTransfer)
	admin.PUT("/transfers/:id", s.updateTransfer)
	admin.GET("/users", s.listCustomers)
	admin.GET("/admins", s.listAdmins)
	admin.GET("/wallets", s.listWallets)
	admin.GET("/audit-logs", s.listAuditLogs)
	admin.GET("/settings", s.listSettings)
	return r
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("sandbox_request",
			logging.F("method", c.Request.Method),
			logging.F("path", c.Request.URL.Path),
			logging.F("status", c.Writer.Status()),
			logging.F("latency", time.Since(start)),
			logging.F("request_id", c.GetString("request_id")),
		)
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			fail(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		claims, err := s.tokens.parse(strings.TrimSpace(raw), tokenAccess)
		if err != nil || claims.Epoch < s.epoch.Load() {
			fail(c, http.StatusUnauthorized, "Token has expired")
			return
		}
		rec, err := s.db.adminByID(c.Request.Context(), claims.Subject)
		if err != nil || !rec.active {
			fail(c, http.StatusUnauthorized, "Admin account not found")
			return
		}
		c.Set(ctxAdminKey, rec.profile)
		c.Next()
	}
}

func currentAdmin(c *gin.Context) types.AdminProfile {
	profile, _ := c.MustGet(ctxAdminKey).(types.AdminProfile)
	return profile
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}
