package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whoAmI(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(UserFrom(r.Context())))
}

func TestAuthenticatorMiddleware(t *testing.T) {
	auth, err := NewAuthenticator("secret", "insurance")
	require.NoError(t, err)
	h := auth.Middleware(http.HandlerFunc(whoAmI))

	valid, err := auth.IssueToken("alice", time.Hour)
	require.NoError(t, err)
	expired, err := auth.IssueToken("alice", -time.Minute)
	require.NoError(t, err)

	other, err := NewAuthenticator("other-secret", "insurance")
	require.NoError(t, err)
	forged, err := other.IssueToken("mallory", time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "alice", Issuer: "someone-else",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{name: "anonymous", wantStatus: http.StatusOK},
		{name: "valid", header: "Bearer " + valid, wantStatus: http.StatusOK, wantUser: "alice"},
		{name: "expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + forged, wantStatus: http.StatusUnauthorized},
		{name: "wrong issuer", header: "Bearer " + wrongIssuer, wantStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantUser, rec.Body.String())
			}
		})
	}
}

func TestNewAuthenticatorRequiresSecret(t *testing.T) {
	_, err := NewAuthenticator("", "")
	assert.Error(t, err)
}
