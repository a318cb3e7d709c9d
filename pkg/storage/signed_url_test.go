package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndVerify(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("job-1", "finance/file.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := signer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "job-1", claims.JobID)
	require.Equal(t, "finance/file.csv", claims.Path)
	require.True(t, expiresAt.Equal(claims.ExpiresAt))
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return base }
	token, _, err := signer.Generate("job-1", "finance/file.csv")
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	claims, err := signer.Verify(token)
	require.True(t, errors.Is(err, ErrTokenExpired))
	require.Equal(t, "job-1", claims.JobID)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "finance/file.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "job-2"
	_, err = signer.Verify(strings.Join(parts, "."))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewSignedURLSigner("other", time.Hour).Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = signer.Verify("garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}
