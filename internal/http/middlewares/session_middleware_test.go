package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pamperspets/petshaus/internal/auth"
	"github.com/pamperspets/petshaus/internal/domain/user"
	"github.com/pamperspets/petshaus/internal/http/middlewares"
)

func sessionRouter(m *middlewares.SessionMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/me", m.RequireSession(), func(c *gin.Context) {
		id, ok := middlewares.IdentityFromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, id)
	})

	return r
}

func TestRequireSession_AllowsValidToken(t *testing.T) {
	manager := auth.NewManager("test-secret-key", time.Minute, time.Hour)
	r := sessionRouter(middlewares.NewSessionMiddleware(manager))

	token, err := manager.GenerateAccessToken(user.Identity{ID: "u-1", Name: "Ana", Email: "ana@x.com"})
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200, body=%s", w.Code, w.Body.String())
	}
}

func TestRequireSession_RejectsMissingAndBadTokens(t *testing.T) {
	manager := auth.NewManager("test-secret-key", time.Minute, time.Hour)
	r := sessionRouter(middlewares.NewSessionMiddleware(manager))

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer not-a-token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("got status %d, want 401", w.Code)
			}
		})
	}
}

func TestRequireSession_RejectsRefreshTokenAsAccess(t *testing.T) {
	manager := auth.NewManager("test-secret-key", time.Minute, time.Hour)
	r := sessionRouter(middlewares.NewSessionMiddleware(manager))

	raw, _, _, err := manager.GenerateRefreshToken(user.Identity{ID: "u-1", Name: "Ana", Email: "ana@x.com"})
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}
}
