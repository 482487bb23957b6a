package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenMalformed = errors.New("malformed download token")
	ErrTokenSignature = errors.New("invalid download token signature")
	ErrTokenExpired   = errors.New("download token expired")
)

// DownloadGrant is the payload carried by a signed download token.
type DownloadGrant struct {
	Subject   string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner creates and validates signed download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate signs a token granting access to relPath on behalf of subject.
func (s *SignedURLSigner) Generate(subject, relPath string) (string, time.Time, error) {
	if subject == "" || relPath == "" {
		return "", time.Time{}, errors.New("subject and path required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	fields := []string{
		base64.RawURLEncoding.EncodeToString([]byte(subject)),
		strconv.FormatInt(expiresAt.Unix(), 10),
		base64.RawURLEncoding.EncodeToString([]byte(relPath)),
	}
	fields = append(fields, s.sign(fields))
	return strings.Join(fields, "."), expiresAt, nil
}

// Parse validates a token and returns the grant it carries.
func (s *SignedURLSigner) Parse(token string) (*DownloadGrant, error) {
	fields := strings.Split(token, ".")
	if len(fields) != 4 {
		return nil, ErrTokenMalformed
	}
	if !hmac.Equal([]byte(s.sign(fields[:3])), []byte(fields[3])) {
		return nil, ErrTokenSignature
	}
	subject, err := base64.RawURLEncoding.DecodeString(fields[0])
	if err != nil {
		return nil, ErrTokenMalformed
	}
	expUnix, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, ErrTokenMalformed
	}
	path, err := base64.RawURLEncoding.DecodeString(fields[2])
	if err != nil {
		return nil, ErrTokenMalformed
	}
	grant := &DownloadGrant{Subject: string(subject), Path: string(path), ExpiresAt: time.Unix(expUnix, 0)}
	if s.now().After(grant.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return grant, nil
}

func (s *SignedURLSigner) sign(fields []string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(mac.Sum(nil))
}
