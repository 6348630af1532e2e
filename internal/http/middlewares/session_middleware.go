package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pamperspets/petshaus/internal/auth"
	"github.com/pamperspets/petshaus/internal/domain/user"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type SessionMiddleware struct {
	jwt TokenVerifier
}

func NewSessionMiddleware(jwt TokenVerifier) *SessionMiddleware {
	return &SessionMiddleware{jwt: jwt}
}

// RequireSession rejects requests without a valid Bearer access token and
// stashes the session identity on the gin context for handlers.
func (m *SessionMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing or invalid Authorization header",
				},
			})
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing or invalid access token",
				},
			})
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Invalid or expired access token",
				},
			})
			return
		}

		c.Set(string(CtxUserID), claims.UserID)
		c.Set(string(CtxEmail), claims.Email)
		c.Set(string(CtxName), claims.Name)

		c.Next()
	}
}

// Helpers so handlers don't need to know the magic keys.

func IdentityFromContext(c *gin.Context) (user.Identity, bool) {
	id, ok := stringFromContext(c, CtxUserID)
	if !ok {
		return user.Identity{}, false
	}

	name, _ := stringFromContext(c, CtxName)
	email, _ := stringFromContext(c, CtxEmail)

	return user.Identity{ID: id, Name: name, Email: email}, true
}

func stringFromContext(c *gin.Context, key ctxKey) (string, bool) {
	v, ok := c.Get(string(key))
	if !ok {
		return "", false
	}

	s, ok := v.(string)
	return s, ok && s != ""
}
