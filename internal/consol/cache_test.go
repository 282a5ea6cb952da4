package consol

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func cacheFixture(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, 10*time.Minute), mr
}

func TestCacheStoreAndGetRun(t *testing.T) {
	cache, _ := cacheFixture(t)
	res := &ConsolidatedResult{
		RunID:  "run-42",
		Period: "2024-03",
		Group: EntityFinancials{
			Revenue:         decimal.RequireFromString("1234.56"),
			IncomeStatement: map[string]decimal.Decimal{"Sales Revenue": decimal.RequireFromString("1234.56")},
			BalanceSheet:    map[string]decimal.Decimal{},
		},
		Entities:       map[string]EntityFinancials{},
		Eliminations:   []Elimination{},
		Validation:     ValidationResult{Passed: true, Errors: []string{}, Warnings: []string{}},
		Reconciliation: map[string]any{},
	}
	require.NoError(t, cache.StoreRun(context.Background(), res))

	got, err := cache.GetRun(context.Background(), "run-42")
	require.NoError(t, err)
	require.Equal(t, "2024-03", got.Period)
	require.True(t, got.Group.Revenue.Equal(res.Group.Revenue))
	require.True(t, got.Group.IncomeStatement["Sales Revenue"].Equal(res.Group.IncomeStatement["Sales Revenue"]))
}

func TestCacheMiss(t *testing.T) {
	cache, _ := cacheFixture(t)
	_, err := cache.GetRun(context.Background(), "absent")
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheTTLApplied(t *testing.T) {
	cache, mr := cacheFixture(t)
	require.NoError(t, cache.StoreRun(context.Background(), &ConsolidatedResult{RunID: "run-ttl"}))

	mr.FastForward(11 * time.Minute)
	_, err := cache.GetRun(context.Background(), "run-ttl")
	require.ErrorIs(t, err, ErrCacheMiss)
}
