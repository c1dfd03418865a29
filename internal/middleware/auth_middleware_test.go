package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/sushiloyalty/loyalty-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

func newEngine(guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/guarded", guard, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": c.GetString(UserEmailKey), "id": c.GetString(UserIDKey)})
	})
	return r
}

func get(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAPIKeyMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("right"), bcrypt.MinCost)
	require.NoError(t, err)
	r := newEngine(APIKeyMiddleware(string(hash)))

	require.Equal(t, http.StatusUnauthorized, get(r, nil).Code)
	require.Equal(t, http.StatusUnauthorized, get(r, map[string]string{APIKeyHeader: "wrong"}).Code)
	require.Equal(t, http.StatusOK, get(r, map[string]string{APIKeyHeader: "right"}).Code)

	// With no hash configured nothing gets through.
	closed := newEngine(APIKeyMiddleware(""))
	require.Equal(t, http.StatusUnauthorized, get(closed, map[string]string{APIKeyHeader: "right"}).Code)
}

func TestJWTAuthMiddleware(t *testing.T) {
	tokens := jwt.NewTokenService("secret", "sushi-storefront")
	r := newEngine(JWTAuthMiddleware(tokens))

	require.Equal(t, http.StatusUnauthorized, get(r, nil).Code)
	require.Equal(t, http.StatusUnauthorized, get(r, map[string]string{"Authorization": "Token abc"}).Code)

	expired, err := tokens.Issue("u1", "a@x.com", -time.Minute)
	require.NoError(t, err)
	w := get(r, map[string]string{"Authorization": "Bearer " + expired})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "Token has expired")

	valid, err := tokens.Issue("u1", "A@x.com", time.Hour)
	require.NoError(t, err)
	w = get(r, map[string]string{"Authorization": "Bearer " + valid})
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"email":"a@x.com","id":"u1"}`, w.Body.String())
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
