package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pamperspets/petshaus/internal/config"
	"github.com/pamperspets/petshaus/internal/db"
	apphttp "github.com/pamperspets/petshaus/internal/http"
)

func testConfig() config.Config {
	return config.Config{
		Env:                 "test",
		BcryptCost:          4,
		JWTSecret:           "test-secret-key",
		JWTAccessTTLMinutes: 60,
		JWTRefreshTTLDays:   7,
	}
}

func setupRouter(t *testing.T) (*gin.Engine, *pgxpool.Pool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := os.Getenv("TEST_DB_DSN")

	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping integration test")
	}

	ctx := context.Background()

	if err := db.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("migrations failed: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)

	if err != nil {
		t.Fatalf("failed to create pgx pool: %v", err)
	}

	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return apphttp.NewRouter(logger, pool, nil, testConfig()), pool
}

func resetDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		TRUNCATE refresh_tokens, users
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func countUsers(t *testing.T, pool *pgxpool.Pool, email string) int {
	t.Helper()

	var n int
	err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM users WHERE email = $1`, email).Scan(&n)
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return n
}

// Walks the whole flow: register, duplicate, bad login, good login.
func TestRegistrationAndLoginFlow(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)

	// register

	w := doRequest(router, http.MethodPost, "/auth/register",
		`{"name":"Ana","email":"ana@x.com","password":"secret123"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("register got %d, want 201, body=%s", w.Code, w.Body.String())
	}

	if strings.Contains(w.Body.String(), "password") {
		t.Fatalf("register response must not contain a password key: %s", w.Body.String())
	}

	if n := countUsers(t, pool, "ana@x.com"); n != 1 {
		t.Fatalf("expected 1 ana@x.com record, got %d", n)
	}

	// duplicate registration leaves the store untouched

	w = doRequest(router, http.MethodPost, "/auth/register",
		`{"name":"Ana Again","email":"ana@x.com","password":"different9"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register got %d, want 400, body=%s", w.Code, w.Body.String())
	}

	if !strings.Contains(w.Body.String(), "email_taken") {
		t.Fatalf("expected email_taken, body=%s", w.Body.String())
	}

	if n := countUsers(t, pool, "ana@x.com"); n != 1 {
		t.Fatalf("store changed on duplicate: %d records", n)
	}

	// uniqueness is case-insensitive

	w = doRequest(router, http.MethodPost, "/auth/register",
		`{"name":"Ana Caps","email":"ANA@X.COM","password":"different9"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("case-variant register got %d, want 400, body=%s", w.Code, w.Body.String())
	}

	// wrong password

	w = doRequest(router, http.MethodPost, "/auth/login",
		`{"email":"ana@x.com","password":"wrongwrong"}`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong-password login got %d, want 401", w.Code)
	}

	// correct login returns the identity

	w = doRequest(router, http.MethodPost, "/auth/login",
		`{"email":"ana@x.com","password":"secret123"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("login got %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var loginBody struct {
		AccessToken string `json:"accessToken"`
		User        struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &loginBody); err != nil {
		t.Fatalf("unmarshal login body: %v", err)
	}

	if loginBody.User.Name != "Ana" || loginBody.User.Email != "ana@x.com" || loginBody.User.ID == "" {
		t.Fatalf("unexpected identity: %+v", loginBody.User)
	}

	// the session identity round-trips through /me

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+loginBody.AccessToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("/me got %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	if !strings.Contains(rec.Body.String(), `"ana@x.com"`) {
		t.Fatalf("/me should return the session identity, body=%s", rec.Body.String())
	}
}

func TestRegister_RequiresJSONContentType(t *testing.T) {
	router, pool := setupRouter(t)
	resetDB(t, pool)

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		bytes.NewBufferString(`{"name":"Ana","email":"ana@x.com","password":"secret123"}`))
	req.Header.Set("Content-Type", "text/plain")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("got %d, want 415", w.Code)
	}
}
