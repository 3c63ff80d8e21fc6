// Package testutil provides testing utilities and helpers for backend tests.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDeeplinkOpener is a mock implementation of render.DeeplinkOpener.
type MockDeeplinkOpener struct {
	mock.Mock
}

// OpenDeeplink mocks the OpenDeeplink method.
func (m *MockDeeplinkOpener) OpenDeeplink(url string) error {
	args := m.Called(url)
	return args.Error(0)
}

// NewMockDeeplinkOpener creates an opener that accepts any URL.
func NewMockDeeplinkOpener(t *testing.T) *MockDeeplinkOpener {
	t.Helper()
	m := new(MockDeeplinkOpener)
	m.On("OpenDeeplink", mock.Anything).Return(nil).Maybe()
	return m
}

// PostbackRecorder collects postback payloads in arrival order.
type PostbackRecorder struct {
	mu       sync.Mutex
	payloads []map[string]any
}

// Record appends a payload. Its signature matches render.PostbackFunc.
func (r *PostbackRecorder) Record(payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
}

// Payloads returns a copy of everything recorded so far.
func (r *PostbackRecorder) Payloads() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]map[string]any, len(r.payloads))
	copy(out, r.payloads)
	return out
}

// Len returns the number of recorded payloads.
func (r *PostbackRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

// MakeToken signs claims into a three segment bearer token. The signing key is
// irrelevant to the gateway, which never verifies signatures.
func MakeToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// MakeUserToken returns a token for sub that expires at exp.
func MakeUserToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	return MakeToken(t, jwt.MapClaims{"sub": sub, "exp": exp.Unix()})
}

// Eventually waits until cond holds or fails the test after a second.
func Eventually(t *testing.T, cond func() bool, msgAndArgs ...interface{}) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond, msgAndArgs...)
}
