package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iparthanth/classroom-live/internal/domain"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func newIdentityRouter() (*gin.Engine, *domain.CurrentUser) {
	gin.SetMode(gin.TestMode)
	var captured domain.CurrentUser
	router := gin.New()
	router.Use(Identity(testSecret))
	router.GET("/probe", func(c *gin.Context) {
		userAny, _ := c.Get(ContextUserKey)
		captured = userAny.(domain.CurrentUser)
		c.Status(http.StatusOK)
	})
	return router, &captured
}

func TestIdentity_ValidToken(t *testing.T) {
	router, captured := newIdentityRouter()

	tokenStr := signToken(t, jwt.MapClaims{
		"user_id":      float64(42),
		"role":         "teacher",
		"display_name": "Ms. Finch",
		"exp":          time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(42), captured.ID)
	assert.Equal(t, domain.RoleTeacher, captured.Role)
	assert.Equal(t, "Ms. Finch", captured.DisplayName)
}

func TestIdentity_MissingHeader(t *testing.T) {
	router, _ := newIdentityRouter()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentity_MalformedHeader(t *testing.T) {
	router, _ := newIdentityRouter()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentity_WrongSignature(t *testing.T) {
	router, _ := newIdentityRouter()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":      float64(42),
		"role":         "student",
		"display_name": "Ann",
	})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentity_ExpiredToken(t *testing.T) {
	router, _ := newIdentityRouter()

	tokenStr := signToken(t, jwt.MapClaims{
		"user_id":      float64(42),
		"role":         "student",
		"display_name": "Ann",
		"exp":          time.Now().Add(-time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentity_UnknownRoleRejected(t *testing.T) {
	router, _ := newIdentityRouter()

	tokenStr := signToken(t, jwt.MapClaims{
		"user_id":      float64(42),
		"role":         "janitor",
		"display_name": "Ann",
	})
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentity_MissingDisplayName(t *testing.T) {
	router, _ := newIdentityRouter()

	tokenStr := signToken(t, jwt.MapClaims{
		"user_id": float64(42),
		"role":    "student",
	})
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
