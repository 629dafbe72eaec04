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

func signTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
	require.NoError(t, err)
	return signed
}

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthRequiredSetsIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var userID, email, role string
	r := gin.New()
	r.GET("/guarded", AuthRequired(), func(c *gin.Context) {
		userID = c.GetString("user_id")
		email = c.GetString("email")
		role = c.GetString("role")
		c.Status(http.StatusOK)
	})

	token := signTestToken(t, jwt.MapClaims{
		"user_id": "42",
		"email":   "client@cedra.be",
		"role":    "customer",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(token))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", userID)
	assert.Equal(t, "client@cedra.be", email, "l'email du token est propagé au contexte")
	assert.Equal(t, "customer", role)
}

func TestAuthRequiredRejectsMissingToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/guarded", AuthRequired(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdminBlocksCustomer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/guarded", AuthRequired(), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	customer := signTestToken(t, jwt.MapClaims{
		"user_id": "7", "email": "client@cedra.be", "role": "customer",
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(customer))
	assert.Equal(t, http.StatusForbidden, w.Code, "un client connecté n'atteint pas l'administration")

	admin := signTestToken(t, jwt.MapClaims{
		"user_id": "1", "email": "admin@cedra.be", "role": "admin",
	})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(admin))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAdminWithoutRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// rôle absent du contexte : refus, jamais de laisser-passer par défaut
	r := gin.New()
	r.GET("/guarded", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/guarded", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
