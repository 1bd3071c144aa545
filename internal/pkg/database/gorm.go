package database

import (
	"fmt"
	log "log/slog"
	"time"

	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
	"github.com/gonghojin/prompt-center-sub001/internal/model"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewGormDB 初始化并返回 *gorm.DB 实例，处理连接池配置
func NewGormDB(cfg *config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.NewGormLogger(),
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Minute)

	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database connection check failed: %w", err)
	}

	if cfg.AutoMigrate {
		if err = Migrate(db); err != nil {
			return nil, err
		}
	}

	log.Info("Database connection established successfully.")
	return db, nil
}

// Migrate 建表，仅包含浏览量统计相关的表
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.PromptTemplate{}, &model.ViewLog{}, &model.ViewCount{}); err != nil {
		return fmt.Errorf("failed to migrate view tables: %w", err)
	}
	return nil
}
