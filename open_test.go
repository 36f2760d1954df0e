package orderlens

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	b, err := Open(context.Background(), DefaultConfig())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, b.Store)
	assert.IsType(t, &MemoryCache{}, b.Cache)
	assert.NoError(t, b.Close())
}

func TestOpenSQLiteSharesDatabaseWithCache(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Driver = DriverSQLite
	cfg.DSN = filepath.Join(t.TempDir(), "orders.db")
	cfg.CacheBackend = CacheBackendSQL
	cfg.LogLevel = "error"
	require.NoError(t, cfg.Validate())

	b, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer b.Close()
	require.IsType(t, &GormStore{}, b.Store)
	require.IsType(t, &GormCache{}, b.Cache)

	require.NoError(t, b.Store.Insert(ctx, testCourses, testOrders()))
	svc := NewService(b.Store, NewResultCache(b.Cache))
	res, err := svc.Filter(ctx, FilterRequest{Page: 1, PerPage: 10, Conditions: Where("order.status", "select_equals", "SU")})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)

	agg, err := svc.Analytics(ctx, AnalyticsRequest{Type: "total_income", Sid: res.Sid})
	require.NoError(t, err)
	assert.Equal(t, Scalar{Value: 20}, agg)

	sweepCtx, cancel := context.WithCancel(ctx)
	b.StartSweeper(sweepCtx, time.Hour, NewLogger(0))
	cancel()
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver = "oracle"
	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}
