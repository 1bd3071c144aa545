package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
	"github.com/gonghojin/prompt-center-sub001/internal/model"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/database"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB 每个测试独立的内存 SQLite，已建表
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// NewTestRedis miniredis 与连接它的客户端
func NewTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// TestViewConfig 测试用的短窗口配置
func TestViewConfig() config.ViewConfig {
	cfg := config.DefaultViewConfig()
	cfg.DedupWindow = time.Minute
	cfg.CountCacheTTL = time.Hour
	cfg.BatchSize = 50
	cfg.CacheTimeout = time.Second
	cfg.CacheFailureThreshold = 3
	cfg.CacheHealthInterval = 50 * time.Millisecond
	cfg.RecordTimeout = 2 * time.Second
	cfg.LogRetryAttempts = 2
	cfg.LogRetryDelay = time.Millisecond
	cfg.StatsCacheTTL = 0
	cfg.Location = "UTC"
	return cfg
}

// SeedPrompt 插入一个 prompt 模板
func SeedPrompt(t testing.TB, db *gorm.DB, id uint64, title string, categoryID uint64) *model.PromptTemplate {
	t.Helper()

	p := &model.PromptTemplate{
		ID:           id,
		Title:        title,
		CategoryID:   categoryID,
		CategoryName: fmt.Sprintf("category-%d", categoryID),
		AuthorName:   "author",
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// SeedViewLogs 给 prompt 插入 n 条浏览日志，时间从 at 开始每条递增一秒
func SeedViewLogs(t testing.TB, db *gorm.DB, promptID uint64, n int, at time.Time) {
	t.Helper()

	for i := 0; i < n; i++ {
		require.NoError(t, db.Create(&model.ViewLog{
			ID:         fmt.Sprintf("seed-%d-%d-%d", promptID, at.Unix(), i),
			PromptID:   promptID,
			IPAddress:  "10.0.0.1",
			ViewerType: "IP_BASED_USER",
			ViewedAt:   at.UTC().Add(time.Duration(i) * time.Second),
		}).Error)
	}
}
