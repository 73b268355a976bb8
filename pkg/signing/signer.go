package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const fieldSep = "\x1f"

var (
	ErrMalformed = errors.New("invalid token format")
	ErrSignature = errors.New("invalid token signature")
	ErrExpired   = errors.New("token expired")
)

// Signer issues and validates short-lived HMAC tokens that bind an id to a
// set of opaque fields.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSigner constructs a signer with the provided secret and TTL.
func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL reports the lifetime of generated tokens.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Generate returns a token of the form id.expiry.fields.signature.
func (s *Signer) Generate(id string, fields ...string) (string, time.Time, error) {
	if id == "" || strings.Contains(id, ".") {
		return "", time.Time{}, fmt.Errorf("token id must be non-empty and dot-free")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(strings.Join(fields, fieldSep)))
	signature := s.sign(id, exp, encoded)
	return strings.Join([]string{id, exp, encoded, signature}, "."), expiresAt, nil
}

// Parse validates a token and returns its id and fields.
func (s *Signer) Parse(token string) (id string, fields []string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", nil, time.Time{}, ErrMalformed
	}
	id, exp, encoded, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(id, exp, encoded)), []byte(signature)) {
		return "", nil, time.Time{}, ErrSignature
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return "", nil, time.Time{}, ErrMalformed
	}
	expiresAt = time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return "", nil, time.Time{}, ErrExpired
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, time.Time{}, ErrMalformed
	}
	if len(raw) > 0 {
		fields = strings.Split(string(raw), fieldSep)
	}
	return id, fields, expiresAt, nil
}

func (s *Signer) sign(id, exp, encoded string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(id + "|" + exp + "|" + encoded))
	return hex.EncodeToString(mac.Sum(nil))
}
