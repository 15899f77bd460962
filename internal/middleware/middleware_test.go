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
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testSecret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func authRouter() *gin.Engine {
	r := gin.New()
	r.GET("/users/:userId", Auth(testSecret, "userId"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(SubjectKey))
	})
	return r
}

func doGet(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := authRouter()
	exp := time.Now().Add(time.Hour).Unix()

	valid := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1", "exp": exp})
	w := doGet(r, "/users/user-1", valid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", w.Body.String())

	w = doGet(r, "/users/user-2", valid)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doGet(r, "/users/user-1", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix()})
	w = doGet(r, "/users/user-1", expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	noExp := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	w = doGet(r, "/users/user-1", noExp)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	wrongAlg := signToken(t, jwt.SigningMethodHS512, jwt.MapClaims{"sub": "user-1", "exp": exp})
	w = doGet(r, "/users/user-1", wrongAlg)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestParseSubject_MissingSubject(t *testing.T) {
	token := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	_, err := ParseSubject(token, testSecret)
	assert.Error(t, err)
}

func TestParseSubject_EmptySecretRejectsEverything(t *testing.T) {
	claims := jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("your-secret-key-change-in-production"))
	require.NoError(t, err)

	_, err = ParseSubject(forged, nil)
	assert.ErrorIs(t, err, ErrNoSigningSecret)
	_, err = ParseSubject(forged, []byte(""))
	assert.ErrorIs(t, err, ErrNoSigningSecret)

	_, err = ParseSubject(forged, testSecret)
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("10.0.0.1"))

	now = now.Add(2 * time.Minute)
	rl.cleanup()
	assert.Empty(t, rl.requests)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewRateLimiter(1, time.Minute)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, doGet(r, "/ping", "").Code)
	w := doGet(r, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Rate limit exceeded")
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	doGet(r, "/ping?x=1", "")
	doGet(r, "/fail", "")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, "/ping?x=1", entries[0].ContextMap()["path"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusInternalServerError), entries[1].ContextMap()["status"])
}
