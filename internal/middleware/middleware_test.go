package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-test-secret"

func sign(t *testing.T, claims jwt.MapClaims, key string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func TestParseToken(t *testing.T) {
	auth := NewAuth(secret)
	future := time.Now().Add(time.Hour).Unix()

	claims, err := auth.ParseToken(sign(t, jwt.MapClaims{"sub": "u1", "role": "admin", "exp": future}, secret))
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: "u1", Role: "admin"}, claims)

	tests := map[string]jwt.MapClaims{
		"expired":      {"sub": "u1", "role": "admin", "exp": time.Now().Add(-time.Minute).Unix()},
		"no expiry":    {"sub": "u1", "role": "admin"},
		"missing role": {"sub": "u1", "exp": future},
	}
	for name, c := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ParseToken(sign(t, c, secret))
			assert.Error(t, err)
		})
	}

	_, err = auth.ParseToken(sign(t, jwt.MapClaims{"sub": "u1", "role": "admin", "exp": future}, "other-secret"))
	assert.Error(t, err)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := NewAuth(secret)
	r := gin.New()
	r.GET("/admin", auth.RequireRole("admin"), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c)+":"+UserRole(c))
	})

	token := func(role string) string {
		return sign(t, jwt.MapClaims{"sub": "u1", "role": role, "exp": time.Now().Add(time.Hour).Unix()}, secret)
	}

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", "", http.StatusUnauthorized},
		{"bad token", "Bearer abc", "", http.StatusUnauthorized},
		{"wrong role", "Bearer " + token("staff"), "", http.StatusForbidden},
		{"bearer", "Bearer " + token("admin"), "", http.StatusOK},
		{"cookie", "", token("admin"), http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, "u1:admin", rec.Body.String())
			}
		})
	}
}

func TestIPRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewIPRateLimiter(3)
	r := gin.New()
	r.GET("/", limiter.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, hit("10.0.0.1"))
	}
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, hit("10.0.0.2"), "limits are per IP")

	limiter.mu.Lock()
	limiter.limiters["10.0.0.1"].lastSeen = time.Now().Add(-time.Hour)
	limiter.mu.Unlock()
	limiter.Cleanup(time.Minute)

	limiter.mu.Lock()
	assert.Len(t, limiter.limiters, 1)
	assert.Contains(t, limiter.limiters, "10.0.0.2")
	limiter.mu.Unlock()

	limiter.Cleanup(-time.Minute)
	limiter.mu.Lock()
	assert.Empty(t, limiter.limiters)
	limiter.mu.Unlock()
}
