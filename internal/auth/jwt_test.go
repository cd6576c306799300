package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cardbook/tests/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginAndCheck(t *testing.T) {
	h := NewAuthHandlers(testutils.GetTestConfig())

	rec := httptest.NewRecorder()
	h.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"username":"test_admin","password":"test_password"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "token")

	token, err := h.GenerateJWT("test_admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/check-auth", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.CheckAuthHandler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := NewAuthHandlers(testutils.GetTestConfig())

	rec := httptest.NewRecorder()
	h.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/api/login",
		strings.NewReader(`{"username":"test_admin","password":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.LoginHandler(rec, httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseBearer(t *testing.T) {
	cfg := testutils.GetTestConfig()
	h := NewAuthHandlers(cfg)
	token, err := h.GenerateJWT("test_admin")
	require.NoError(t, err)

	claims, err := ParseBearer("Bearer "+token, cfg.JwtKey)
	require.NoError(t, err)
	assert.Equal(t, "test_admin", claims.Username)

	_, err = ParseBearer("", cfg.JwtKey)
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = ParseBearer(token, cfg.JwtKey)
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = ParseBearer("Bearer "+token, []byte("other-key"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
