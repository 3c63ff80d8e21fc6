package session

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/EcoAssist/backend/internal/testutil"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testPolicy() Policy {
	p := DefaultPolicy()
	p.Now = func() time.Time { return fixedNow }
	return p
}

func TestBootstrapReady(t *testing.T) {
	exp := fixedNow.Add(2 * time.Hour)
	token := testutil.MakeUserToken(t, "alice", exp)

	s := Bootstrap(token, nil, testPolicy())

	require.Equal(t, StatusReady, s.Status)
	assert.Equal(t, "alice", s.UserID)
	assert.True(t, exp.Equal(s.ExpiresAt))
	assert.NotEmpty(t, s.SessionID)
	assert.Empty(t, s.Error)
}

func TestBootstrapMissingToken(t *testing.T) {
	s := Bootstrap("", map[string]any{"userId": "bob"}, testPolicy())

	assert.Equal(t, StatusError, s.Status)
	assert.Equal(t, ErrorMissingToken, s.ErrorKind)
	assert.Equal(t, MessageMissingToken, s.Error)
}

func TestBootstrapUserPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		claims   jwt.MapClaims
		metadata map[string]any
		want     string
	}{
		{"subject wins", jwt.MapClaims{"sub": "alice"}, map[string]any{"userId": "bob"}, "alice"},
		{"metadata next", jwt.MapClaims{}, map[string]any{"userId": "bob"}, "bob"},
		{"empty subject skipped", jwt.MapClaims{"sub": ""}, map[string]any{"userId": "bob"}, "bob"},
		{"non string metadata skipped", jwt.MapClaims{}, map[string]any{"userId": 12}, "eco-user"},
		{"fallback", jwt.MapClaims{}, nil, "eco-user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Bootstrap(testutil.MakeToken(t, tt.claims), tt.metadata, testPolicy())
			require.True(t, s.Ready())
			assert.Equal(t, tt.want, s.UserID)
		})
	}
}

func TestBootstrapDefaultExpiry(t *testing.T) {
	s := Bootstrap(testutil.MakeToken(t, jwt.MapClaims{"sub": "alice"}), nil, testPolicy())
	assert.Equal(t, fixedNow.Add(30*time.Minute), s.ExpiresAt)
}

func TestBootstrapDisplayName(t *testing.T) {
	s := Bootstrap(testutil.MakeToken(t, jwt.MapClaims{"sub": "alice", "preferred_username": "Alice M"}), nil, testPolicy())
	assert.Equal(t, "Alice M", s.DisplayName)

	s = Bootstrap(testutil.MakeToken(t, jwt.MapClaims{"sub": "alice", "name": "Alice Moyo", "preferred_username": "am"}), nil, testPolicy())
	assert.Equal(t, "Alice Moyo", s.DisplayName)
}

func TestBootstrapIgnoresSignature(t *testing.T) {
	token := testutil.MakeUserToken(t, "alice", fixedNow.Add(time.Hour))
	tampered := token[:len(token)-4] + "AAAA"

	s := Bootstrap(tampered, nil, testPolicy())
	assert.True(t, s.Ready())
	assert.Equal(t, "alice", s.UserID)
}

func TestBootstrapDecodeErrors(t *testing.T) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))

	tests := []struct {
		name  string
		token string
	}{
		{"single segment", "not-a-token"},
		{"empty payload", header + "..sig"},
		{"payload not object", header + "." + base64.RawURLEncoding.EncodeToString([]byte("[1,2]")) + ".sig"},
		{"bad base64", header + ".!!!.sig"},
		{"payload not json", header + "." + base64.RawURLEncoding.EncodeToString([]byte("hello")) + ".sig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Bootstrap(tt.token, nil, testPolicy())
			assert.Equal(t, StatusError, s.Status)
			assert.Equal(t, ErrorTokenDecode, s.ErrorKind)
			assert.Contains(t, s.Error, "Failed to parse mobile token")
		})
	}
}

func TestBootstrapReadsOnlyPayload(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"alice"}`))
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name  string
		token string
	}{
		{"header without alg", enc(`{"typ":"JWT"}`) + "." + payload + ".sig"},
		{"unknown alg", enc(`{"alg":"ES256K","typ":"JWT"}`) + "." + payload + ".sig"},
		{"junk header", "%%%." + payload + ".sig"},
		{"no signature", enc(`{"alg":"none"}`) + "." + payload},
		{"padded payload", "h." + base64.URLEncoding.EncodeToString([]byte(`{"sub":"alice"}`)) + ".s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Bootstrap(tt.token, nil, testPolicy())
			require.True(t, s.Ready(), s.Error)
			assert.Equal(t, "alice", s.UserID)
		})
	}
}

func TestBootstrapAcceptsBothAlphabets(t *testing.T) {
	// "name" chosen so the encoding contains both '+' and '/' in the std alphabet
	claims := []byte(`{"sub":"alice","name":"??>>~~"}`)
	std := base64.StdEncoding.EncodeToString(claims)
	url := base64.RawURLEncoding.EncodeToString(claims)
	require.NotEqual(t, std, url)

	for name, segment := range map[string]string{"std": std, "url": url} {
		t.Run(name, func(t *testing.T) {
			s := Bootstrap("h."+segment+".s", nil, testPolicy())
			require.True(t, s.Ready(), s.Error)
			assert.Equal(t, "alice", s.UserID)
			assert.Equal(t, "??>>~~", s.DisplayName)
		})
	}
}

func TestBootstrapExpiredToken(t *testing.T) {
	token := testutil.MakeUserToken(t, "alice", fixedNow.Add(-time.Minute))

	s := Bootstrap(token, nil, testPolicy())
	assert.True(t, s.Ready(), "expired tokens are accepted by default")

	policy := testPolicy()
	policy.RejectExpired = true
	s = Bootstrap(token, nil, policy)
	assert.Equal(t, StatusError, s.Status)
	assert.Equal(t, ErrorTokenExpired, s.ErrorKind)
}

func TestBootstrapSessionIDsAreUnique(t *testing.T) {
	token := testutil.MakeUserToken(t, "alice", fixedNow.Add(time.Hour))
	assert.NotEqual(t, Bootstrap(token, nil, testPolicy()).SessionID, Bootstrap(token, nil, testPolicy()).SessionID)
}
