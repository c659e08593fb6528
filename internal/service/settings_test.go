package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/mess-connect/internal/cache"
	"github.com/iliyamo/mess-connect/internal/kv"
	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/repository"
)

func TestSettingsService_ReadThroughAndInvalidate(t *testing.T) {
	repos := repository.New(kv.NewMemoryStore())
	c := cache.NewMemory[model.Setting](time.Hour)
	s := NewSettingsService(repos.Settings, c, discardLogger())
	ctx := context.Background()

	st, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.MonthlyFee)

	_, err = s.SetMonthlyFee(ctx, 3000)
	require.NoError(t, err)
	st, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), st.MonthlyFee)

	// a write behind the service's back is hidden until invalidation
	_, err = repos.Settings.Update(ctx, map[string]any{"monthlyFee": 10})
	require.NoError(t, err)
	st, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), st.MonthlyFee)

	s.Invalidate(ctx)
	st, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), st.MonthlyFee)

	st, err = s.SetMessRules(ctx, "No wastage")
	require.NoError(t, err)
	assert.Equal(t, "No wastage", st.MessRules)
	assert.Equal(t, int64(10), st.MonthlyFee)
}

func TestSettingsService_TTLFallback(t *testing.T) {
	repos := repository.New(kv.NewMemoryStore())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := cache.NewMemory[model.Setting](5 * time.Minute).WithClock(func() time.Time { return now })
	s := NewSettingsService(repos.Settings, c, discardLogger())
	ctx := context.Background()

	_, err := s.SetMonthlyFee(ctx, 100)
	require.NoError(t, err)
	_, err = s.Get(ctx)
	require.NoError(t, err)

	_, err = repos.Settings.Update(ctx, map[string]any{"monthlyFee": 200})
	require.NoError(t, err)
	now = now.Add(5 * time.Minute)

	st, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), st.MonthlyFee)
}
