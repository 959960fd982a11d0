package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCSRFTokenBoundToUser(t *testing.T) {
	svc := NewCSRFService("csrf-secret", time.Hour)

	token := svc.Issue(42)
	assert.Len(t, strings.Split(token, "."), 3)
	assert.NoError(t, svc.Verify(token, 42))
	assert.ErrorIs(t, svc.Verify(token, 43), ErrInvalidCSRFToken)
	assert.ErrorIs(t, svc.Verify(token, 0), ErrInvalidCSRFToken)

	anon := svc.Issue(0)
	assert.NoError(t, svc.Verify(anon, 0))
	assert.ErrorIs(t, svc.Verify(anon, 42), ErrInvalidCSRFToken)

	other := NewCSRFService("another-secret", time.Hour)
	assert.ErrorIs(t, other.Verify(token, 42), ErrInvalidCSRFToken)
}

func TestCSRFTokenTampering(t *testing.T) {
	svc := NewCSRFService("csrf-secret", time.Hour)
	parts := strings.Split(svc.Issue(7), ".")

	extended := parts[0] + ".9999999999." + parts[2]
	assert.ErrorIs(t, svc.Verify(extended, 7), ErrInvalidCSRFToken)

	renonced := "0123456789abcdef0123456789abcdef." + parts[1] + "." + parts[2]
	assert.ErrorIs(t, svc.Verify(renonced, 7), ErrInvalidCSRFToken)

	for _, bad := range []string{"", "abc", "a.b", "a.b.c.d", parts[0] + "." + parts[1] + "."} {
		assert.ErrorIs(t, svc.Verify(bad, 7), ErrInvalidCSRFToken, bad)
	}
}

func TestCSRFTokenExpiry(t *testing.T) {
	svc := NewCSRFService("csrf-secret", time.Minute)
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }
	token := svc.Issue(5)

	svc.now = func() time.Time { return start.Add(59 * time.Second) }
	assert.NoError(t, svc.Verify(token, 5))

	svc.now = func() time.Time { return start.Add(2 * time.Minute) }
	assert.ErrorIs(t, svc.Verify(token, 5), ErrInvalidCSRFToken)
}

func TestCSRFDefaultTTL(t *testing.T) {
	assert.Equal(t, 2*time.Hour, NewCSRFService("s", 0).TTL())
}
