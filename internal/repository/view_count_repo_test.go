package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gonghojin/prompt-center-sub001/internal/repository"
	"github.com/gonghojin/prompt-center-sub001/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func TestViewCountRepo_IncrementCreatesAndAccumulates(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewViewCountRepo(testutil.NewTestDB(t))

	got, err := repo.LoadViewCount(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, got, "never viewed prompt has no row")

	c, err := repo.IncrementViewCount(ctx, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.TotalViewCount)

	c, err = repo.IncrementViewCount(ctx, 7, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.TotalViewCount)
}

func TestViewCountRepo_ConcurrentIncrementsAreNotLost(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewViewCountRepo(testutil.NewTestDB(t))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementViewCount(ctx, 1, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := repo.LoadViewCount(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(20), c.TotalViewCount)
}

func TestViewCountRepo_RaiseOnlyRaises(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewViewCountRepo(testutil.NewTestDB(t))

	raised, err := repo.RaiseViewCount(ctx, 2, 4)
	require.NoError(t, err)
	assert.True(t, raised, "missing row is created at the floor")

	raised, err = repo.RaiseViewCount(ctx, 2, 3)
	require.NoError(t, err)
	assert.False(t, raised)

	raised, err = repo.RaiseViewCount(ctx, 2, 9)
	require.NoError(t, err)
	assert.True(t, raised)

	c, err := repo.LoadViewCount(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(9), c.TotalViewCount)
}

func TestViewCountRepo_MergeDelta(t *testing.T) {
	tests := []struct {
		name    string
		initial int64
		delta   int64
		floor   int64
		want    int64
	}{
		{name: "delta only", initial: 10, delta: 5, floor: 15, want: 15},
		{name: "log ahead of delta", initial: 10, delta: 2, floor: 14, want: 14},
		{name: "log behind", initial: 10, delta: 3, floor: 8, want: 13},
		{name: "first flush", initial: 0, delta: 4, floor: 4, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := repository.NewViewCountRepo(testutil.NewTestDB(t))
			if tt.initial > 0 {
				_, err := repo.IncrementViewCount(ctx, 1, tt.initial)
				require.NoError(t, err)
			}

			c, err := repo.MergeDelta(ctx, 1, tt.delta, tt.floor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.TotalViewCount)
		})
	}
}

func TestViewCountRepo_LoadManyAndSum(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewViewCountRepo(testutil.NewTestDB(t))

	_, err := repo.IncrementViewCount(ctx, 1, 4)
	require.NoError(t, err)
	_, err = repo.IncrementViewCount(ctx, 2, 6)
	require.NoError(t, err)

	counts, err := repo.LoadViewCounts(ctx, []uint64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[uint64]int64{1: 4, 2: 6}, counts)

	total, err := repo.SumTotalViewCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
}

func TestViewCountRepo_MergeDeltaRollsBackOnRaiseFailure(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	repo := repository.NewViewCountRepo(db)
	_, err := repo.IncrementViewCount(ctx, 1, 5)
	require.NoError(t, err)

	// 抬高步骤写入的是常量，自增写入的是表达式
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_raise", func(tx *gorm.DB) {
		values, ok := tx.Statement.Dest.(map[string]interface{})
		if !ok {
			return
		}
		if _, isExpr := values["total_view_count"].(clause.Expr); !isExpr {
			_ = tx.AddError(errors.New("raise rejected"))
		}
	}))

	_, err = repo.MergeDelta(ctx, 1, 2, 100)
	require.Error(t, err)

	c, err := repo.LoadViewCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.TotalViewCount, "increment rolled back with the raise")

	c, err = repo.MergeDelta(ctx, 1, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.TotalViewCount)
}
