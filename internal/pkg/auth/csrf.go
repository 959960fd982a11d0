package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCSRFToken is returned for malformed, forged or expired tokens
var ErrInvalidCSRFToken = errors.New("invalid csrf token")

// CSRFService issues and checks signed double-submit tokens.
// Token layout: nonce.expiryUnix.signature, where the signature covers
// nonce, expiry and the bound user ID (0 for anonymous).
type CSRFService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCSRFService creates a CSRF token service
func NewCSRFService(secret string, ttl time.Duration) *CSRFService {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &CSRFService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns the lifetime of issued tokens
func (s *CSRFService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a token bound to userID
func (s *CSRFService) Issue(userID int64) string {
	nonce := strings.ReplaceAll(uuid.New().String(), "-", "")
	expiry := strconv.FormatInt(s.now().Add(s.ttl).Unix(), 10)
	return nonce + "." + expiry + "." + s.sign(nonce, expiry, userID)
}

// Verify checks signature, expiry and user binding
func (s *CSRFService) Verify(token string, userID int64) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ErrInvalidCSRFToken
	}
	nonce, expiry, sig := parts[0], parts[1], parts[2]

	expected := s.sign(nonce, expiry, userID)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return ErrInvalidCSRFToken
	}

	exp, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil || s.now().Unix() > exp {
		return ErrInvalidCSRFToken
	}
	return nil
}

func (s *CSRFService) sign(nonce, expiry string, userID int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(nonce))
	mac.Write([]byte{'|'})
	mac.Write([]byte(expiry))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strconv.FormatInt(userID, 10)))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
