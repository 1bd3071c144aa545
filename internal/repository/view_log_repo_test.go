package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/gonghojin/prompt-center-sub001/internal/model"
	"github.com/gonghojin/prompt-center-sub001/internal/repository"
	"github.com/gonghojin/prompt-center-sub001/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func TestViewLogRepo_SaveIsIdempotentOnID(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewViewLogRepo(testutil.NewTestDB(t))

	log := &model.ViewLog{
		ID:         "5b0f9a2e-0000-4000-8000-000000000001",
		PromptID:   1,
		IPAddress:  "10.0.0.1",
		ViewerType: "IP_BASED_USER",
		ViewedAt:   base,
	}
	require.NoError(t, repo.SaveViewLog(ctx, log))

	dup := *log
	require.NoError(t, repo.SaveViewLog(ctx, &dup), "redelivered record is not an error")

	n, err := repo.CountByPrompt(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestViewLogRepo_CountBetweenIsHalfOpen(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	repo := repository.NewViewLogRepo(db)

	testutil.SeedViewLogs(t, db, 1, 3, base)                   // base, +1s, +2s
	testutil.SeedViewLogs(t, db, 2, 2, base.Add(time.Hour))    // other prompt
	testutil.SeedViewLogs(t, db, 1, 1, base.Add(24*time.Hour)) // exactly at end

	id := uint64(1)
	n, err := repo.CountBetween(ctx, &id, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = repo.CountBetween(ctx, nil, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = repo.CountBetween(ctx, &id, base.Add(time.Second), base.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestViewLogRepo_UnderCountedAndPaging(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	logRepo := repository.NewViewLogRepo(db)
	countRepo := repository.NewViewCountRepo(db)

	testutil.SeedViewLogs(t, db, 1, 4, base)
	testutil.SeedViewLogs(t, db, 2, 2, base)
	testutil.SeedViewLogs(t, db, 3, 1, base.Add(-48*time.Hour))
	_, err := countRepo.IncrementViewCount(ctx, 2, 2)
	require.NoError(t, err)
	_, err = countRepo.IncrementViewCount(ctx, 1, 1)
	require.NoError(t, err)

	recent, err := logRepo.FindRecentPromptIDs(ctx, base.Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, recent)

	under, err := logRepo.FindUnderCounted(ctx, []uint64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, under, 2)
	assert.Equal(t, repository.PromptLogCount{PromptID: 1, LogCount: 4, DurableCount: 1}, *under[0])
	assert.Equal(t, repository.PromptLogCount{PromptID: 3, LogCount: 1, DurableCount: 0}, *under[1])

	page, err := logRepo.ListLogCounts(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(2), page[1].PromptID)

	page, err = logRepo.ListLogCounts(ctx, page[1].PromptID, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(3), page[0].PromptID)
}
