package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/role-authority/middleware"
	"github.com/upb/role-authority/token"
	"go.uber.org/zap"
)

// MockTokenIssuer is a mock implementation of TokenIssuer
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) Issue(subject, email string, roles []string) (string, error) {
	args := m.Called(subject, email, roles)
	return args.String(0), args.Error(1)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.AuthTokenCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", middleware.AuthTokenCookieName)
	return nil
}

func TestSessionHandler_Login(t *testing.T) {
	t.Run("issues a verifiable token", func(t *testing.T) {
		cfg := token.Config{Secret: []byte("0123456789abcdef0123456789abcdef"), Issuer: "role-authority", TTL: time.Hour}
		h := NewSessionHandler(token.NewIssuer(cfg), time.Hour, true, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"subject":"alice","email":"alice@example.com","roles":["admin"]}`))
		w := httptest.NewRecorder()
		h.HandleLogin(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var got LoginResponse
		decodeData(t, w, &got)
		assert.Equal(t, 3600, got.ExpiresIn)

		cookie := sessionCookie(t, w)
		assert.Equal(t, got.Token, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Secure)

		claims, err := token.NewValidator(cfg).ValidateToken(context.Background(), got.Token)
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Subject)
		assert.Equal(t, []string{"admin"}, claims.Roles)
	})

	t.Run("validates the body", func(t *testing.T) {
		issuer := new(MockTokenIssuer)
		h := NewSessionHandler(issuer, time.Hour, false, zap.NewNop())

		for _, body := range []string{`{}`, `{"subject":"a","email":"nope"}`, `{"subject":"a","roles":["bad role"]}`} {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
			w := httptest.NewRecorder()
			h.HandleLogin(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
		issuer.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("issuer failure", func(t *testing.T) {
		issuer := new(MockTokenIssuer)
		issuer.On("Issue", "alice", "", []string(nil)).Return("", errors.New("no key")).Once()
		h := NewSessionHandler(issuer, time.Hour, false, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"subject":"alice"}`))
		w := httptest.NewRecorder()
		h.HandleLogin(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		issuer.AssertExpectations(t)
	})
}

func TestSessionHandler_Logout(t *testing.T) {
	h := NewSessionHandler(new(MockTokenIssuer), time.Hour, false, zap.NewNop())

	w := httptest.NewRecorder()
	h.HandleLogout(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	cookie := sessionCookie(t, w)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge)
}
