package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pamperspets/petshaus/internal/auth"
	"github.com/pamperspets/petshaus/internal/config"
	"github.com/pamperspets/petshaus/internal/domain/user"
	"github.com/pamperspets/petshaus/internal/http/middlewares"
	"github.com/pamperspets/petshaus/internal/observability"
	"github.com/pamperspets/petshaus/internal/repo/postgres"
	"github.com/pamperspets/petshaus/internal/security"
)

type UserWriter interface {
	Create(ctx context.Context, email, passwordHash, name string) (user.User, error)
}

// CredentialVerifier is the callback that turns credentials into a session
// identity; see internal/auth.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (user.Identity, error)
}

type RefreshTokenStore interface {
	BeginTx(ctx context.Context) (postgres.Tx, error)
	Create(ctx context.Context, tx postgres.Tx, row postgres.RefreshTokenRow) error
	GetForUpdate(ctx context.Context, tx postgres.Tx, id string) (postgres.RefreshTokenRow, error)
	Revoke(ctx context.Context, tx postgres.Tx, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, tx postgres.Tx, userID string) error
}

type AuthHandler struct {
	userWriter   UserWriter
	verifier     CredentialVerifier
	jwt          *auth.Manager
	refreshStore RefreshTokenStore
	cfg          config.Config
	log          *slog.Logger
	metrics      *observability.Prom
}

func NewAuthHandler(userWriter UserWriter, verifier CredentialVerifier, jwtManager *auth.Manager, refreshStore RefreshTokenStore, cfg config.Config, log *slog.Logger, metrics *observability.Prom) *AuthHandler {
	return &AuthHandler{
		userWriter:   userWriter,
		verifier:     verifier,
		jwt:          jwtManager,
		refreshStore: refreshStore,
		cfg:          cfg,
		log:          log,
		metrics:      metrics,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest carries no binding tags: a missing field must come back as
// the same invalid_credentials failure as a wrong password, not as a
// field-level validation error that confirms an account exists.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account and returns its identity. The password
// hash never appears in the response, and the payload is never logged;
// log lines carry the email domain at most.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		h.countSignup("invalid")
		return
	}

	h.log.InfoContext(ctx.Request.Context(), "registration attempt",
		"email_domain", observability.EmailDomain(req.Email))

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	var hash string
	err := h.observeHash(func() error {
		var hashErr error
		hash, hashErr = security.HashPassword(req.Password, h.cfg.BcryptCost)
		return hashErr
	})

	if err != nil {
		h.countSignup("error")
		RespondInternal(ctx, "Could not create account")
		return
	}

	u, err := h.userWriter.Create(cctx, req.Email, hash, req.Name)

	if err != nil {
		if errors.Is(err, postgres.ErrEmailTaken) {
			h.countSignup("duplicate")
			RespondBadRequest(ctx, "email_taken", "This email is already registered.", nil)
			return
		}

		h.countSignup("error")
		h.log.ErrorContext(ctx.Request.Context(), "registration failed", "err", err)
		RespondInternal(ctx, "Could not create account")
		return
	}

	h.countSignup("created")

	ctx.JSON(http.StatusCreated, u.Identity())
}

// Login verifies credentials through the verifier callback and, on
// success, hands the identity to the session layer: a signed access token
// in the body and a rotated refresh token in an HttpOnly cookie.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if err := ctx.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(ctx, "invalid_request", "Invalid request body", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	identity, err := h.verifier.Verify(cctx, req.Email, req.Password)

	if err != nil {
		h.countLogin("rejected")
		RespondUnauthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(identity)

	if err != nil {
		h.countLogin("error")
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	rawRefreshToken, jti, expiresAt, err := h.jwt.GenerateRefreshToken(identity)

	if err != nil {
		h.countLogin("error")
		RespondInternal(ctx, "Could not generate refresh token")
		return
	}

	if err := h.storeRefreshToken(cctx, identity.ID, jti, rawRefreshToken, expiresAt); err != nil {
		h.countLogin("error")
		h.log.ErrorContext(ctx.Request.Context(), "session store failed", "err", err)
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.setRefreshCookie(ctx, rawRefreshToken, expiresAt)

	h.countLogin("ok")

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"user":        identity,
	})
}

func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		RespondUnauthorized(ctx, "no_refresh", "Missing refresh token")
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)

	if err != nil {
		RespondUnauthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	// rotation under a row lock

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	tx, err := h.refreshStore.BeginTx(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	row, err := h.refreshStore.GetForUpdate(cctx, tx, claims.JTI)

	if err != nil {
		RespondUnauthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	if row.RevokedAt != nil {
		// a revoked token coming back means the cookie leaked or was
		// replayed; kill every live session for the account
		if err := h.refreshStore.RevokeAllForUser(cctx, tx, row.UserID); err == nil {
			_ = tx.Commit(cctx)
		}

		h.log.WarnContext(ctx.Request.Context(), "refresh token reuse detected", "user_id", row.UserID)
		RespondUnauthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	if time.Now().UTC().After(row.ExpiresAt) {
		RespondUnauthorized(ctx, "expired_refresh", "Refresh token expired.")
		return
	}

	// the presented token must match the stored hash (prevents token substitution)

	if row.TokenHash != h.jwt.HashRefreshToken(raw) {
		RespondUnauthorized(ctx, "invalid_refresh", "Invalid refresh token")
		return
	}

	identity := claims.Identity()

	newRaw, newJTI, newExpiresAt, err := h.jwt.GenerateRefreshToken(identity)
	if err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	// revoke old, insert new

	if err := h.refreshStore.Revoke(cctx, tx, row.ID, &newJTI); err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	newRow := postgres.RefreshTokenRow{
		ID:        newJTI,
		UserID:    row.UserID,
		TokenHash: h.jwt.HashRefreshToken(newRaw),
		ExpiresAt: newExpiresAt,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.refreshStore.Create(cctx, tx, newRow); err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	if err := tx.Commit(cctx); err != nil {
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(identity)
	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.setRefreshCookie(ctx, newRaw, newExpiresAt)

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	raw, err := ctx.Cookie(h.refreshCookieName())

	if err != nil || raw == "" {
		// still clear cookie to be safe
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	tx, err := h.refreshStore.BeginTx(cctx)
	if err != nil {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
		return
	}
	defer func() { _ = tx.Rollback(cctx) }()

	// revoke that one token (idempotent)
	_ = h.refreshStore.Revoke(cctx, tx, claims.JTI, nil)
	_ = tx.Commit(cctx)

	h.clearRefreshCookie(ctx)
	ctx.Status(http.StatusNoContent)
}

// Me returns the session identity for the navbar's logged-in state.
func (h *AuthHandler) Me(ctx *gin.Context) {
	identity, ok := middlewares.IdentityFromContext(ctx)

	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Not signed in")
		return
	}

	ctx.JSON(http.StatusOK, identity)
}

// Helper functions

func (h *AuthHandler) storeRefreshToken(ctx context.Context, userID, jti, raw string, expiresAt time.Time) error {
	tx, err := h.refreshStore.BeginTx(ctx)

	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := postgres.RefreshTokenRow{
		ID:        jti,
		UserID:    userID,
		TokenHash: h.jwt.HashRefreshToken(raw),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.refreshStore.Create(ctx, tx, row); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (h *AuthHandler) refreshCookieName() string {
	return "refresh_token"
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	secure := h.cfg.Env == "prod"

	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		h.refreshCookieName(),
		raw,
		maxAge,
		"/auth",
		"",
		secure,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	secure := h.cfg.Env == "prod"
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(
		h.refreshCookieName(),
		"",
		-1,
		"/auth",
		"",
		secure,
		true,
	)
}

func (h *AuthHandler) countSignup(result string) {
	if h.metrics != nil {
		h.metrics.SignupsTotal.WithLabelValues(result).Inc()
	}
}

func (h *AuthHandler) countLogin(result string) {
	if h.metrics != nil {
		h.metrics.LoginsTotal.WithLabelValues(result).Inc()
	}
}

func (h *AuthHandler) observeHash(fn func() error) error {
	if h.metrics != nil {
		return h.metrics.ObserveHash(fn)
	}
	return fn()
}
