package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/tutor-cockpit-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	assert.False(t, repo.Enabled())

	var dest map[string]int
	err := repo.Get(ctx, "dashboard:today", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "dashboard:today", map[string]int{"a": 1}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "dashboard:*"))
	require.NoError(t, repo.Close())
}
