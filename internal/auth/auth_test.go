package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realticket/internal/domain"
)

func TestParseKeyring(t *testing.T) {
	k, err := ParseKeyring("0xadmin:s3cret, 0xbouncer:door ,")
	require.NoError(t, err)
	assert.Equal(t, 2, k.Len())

	require.NoError(t, k.Verify("0xadmin", "s3cret"))
	require.NoError(t, k.Verify("0xbouncer", "door"))
	assert.ErrorIs(t, k.Verify("0xadmin", "door"), ErrInvalidCredentials)
	assert.ErrorIs(t, k.Verify("0xnobody", "s3cret"), ErrInvalidCredentials)

	_, err = ParseKeyring("0xadmin")
	assert.Error(t, err)
	_, err = ParseKeyring(":secret")
	assert.Error(t, err)
}

func TestCredentialSalts(t *testing.T) {
	c1, err := newCredential("same")
	require.NoError(t, err)
	c2, err := newCredential("same")
	require.NoError(t, err)
	assert.NotEqual(t, c1.salt, c2.salt)
	assert.NotEqual(t, c1.hash, c2.hash)
	assert.Len(t, c1.hash, argonKeyLen)

	assert.True(t, c1.matches("same"))
	assert.True(t, c2.matches("same"))
	assert.False(t, c1.matches("Same"))
	assert.False(t, c1.matches(""))
}

func TestAuthenticateMiddleware(t *testing.T) {
	k := NewKeyring()
	require.NoError(t, k.Add("0xalice", "pw"))

	var seen domain.Address
	h := Authenticate(k)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = Caller(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name    string
		account string
		key     string
		want    int
	}{
		{"valid", "0xalice", "pw", http.StatusNoContent},
		{"wrong key", "0xalice", "nope", http.StatusUnauthorized},
		{"missing key", "0xalice", "", http.StatusUnauthorized},
		{"unknown account", "0xbob", "pw", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderAccount, tt.account)
			req.Header.Set(HeaderAPIKey, tt.key)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, domain.Address("0xalice"), seen)
			} else {
				assert.Empty(t, seen)
				assert.Contains(t, rec.Body.String(), `"code":"unauthenticated"`)
			}
		})
	}
}

func TestRateLimiterPerAccount(t *testing.T) {
	l := NewRateLimiter(1)

	assert.True(t, l.Allow("0xalice"))
	assert.True(t, l.Allow("0xalice"))
	assert.False(t, l.Allow("0xalice"), "burst of two exhausted")
	assert.True(t, l.Allow("0xbob"), "accounts have separate buckets")

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithCaller(req.Context(), "0xalice"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
