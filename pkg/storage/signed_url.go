package storage

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

var (
	// ErrInvalidToken marks malformed or tampered download tokens.
	ErrInvalidToken = errors.New("invalid download token")
	// ErrTokenExpired marks a well-formed token past its expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// DownloadClaims is what a verified token grants access to.
type DownloadClaims struct {
	JobID     string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues HMAC-SHA256 download tokens of the form
// jobID.expiry.base64(path).signature.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a token granting access to path for the signer's TTL.
func (s *SignedURLSigner) Generate(jobID, path string) (string, time.Time, error) {
	if jobID == "" || path == "" {
		return "", time.Time{}, fmt.Errorf("job id and path are required")
	}
	if strings.Contains(jobID, ".") {
		return "", time.Time{}, fmt.Errorf("job id must not contain dots")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	expiry := strconv.FormatInt(expiresAt.Unix(), 10)
	encodedPath := base64.RawURLEncoding.EncodeToString([]byte(path))
	token := strings.Join([]string{jobID, expiry, encodedPath, s.sign(jobID, expiry, encodedPath)}, ".")
	return token, expiresAt, nil
}

// Verify checks the signature and expiry and returns the embedded claims.
func (s *SignedURLSigner) Verify(token string) (*DownloadClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return nil, ErrInvalidToken
	}
	jobID, expiry, encodedPath, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(jobID, expiry, encodedPath)), []byte(signature)) {
		return nil, ErrInvalidToken
	}
	unix, err := strconv.ParseInt(expiry, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}
	path, err := base64.RawURLEncoding.DecodeString(encodedPath)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims := &DownloadClaims{JobID: jobID, Path: string(path), ExpiresAt: time.Unix(unix, 0)}
	if s.now().After(claims.ExpiresAt) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

func (s *SignedURLSigner) sign(jobID, expiry, encodedPath string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(jobID + "|" + expiry + "|" + encodedPath))
	return hex.EncodeToString(mac.Sum(nil))
}
