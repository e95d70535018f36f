package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gadget-hub/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubValidator accepts exactly one token.
type stubValidator struct {
	token  string
	claims *auth.Claims
}

func (v *stubValidator) ValidateToken(tokenStr string) (*auth.Claims, error) {
	if tokenStr != v.token {
		return nil, errors.New("invalid token")
	}
	return v.claims, nil
}

func protectedRouter(validator TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/protected", authMiddleware(validator), func(c *gin.Context) {
		claims := claimsFrom(c)
		c.JSON(http.StatusOK, gin.H{"email": claims.Email})
	})
	return router
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	router := protectedRouter(&stubValidator{token: "good"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Authentication required")
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	router := protectedRouter(&stubValidator{token: "good"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRejectsInvalidToken(t *testing.T) {
	router := protectedRouter(&stubValidator{token: "good"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer stale")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired session")
}

func TestAuthMiddlewareInjectsClaims(t *testing.T) {
	validator := &stubValidator{
		token:  "good",
		claims: &auth.Claims{UserID: "user-1", Email: "alice@example.com"},
	}
	router := protectedRouter(validator)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice@example.com")
}
