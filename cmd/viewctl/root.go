package main

import (
	"github.com/goccy/go-json"
	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/database"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/logger"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/redis"
	"github.com/gonghojin/prompt-center-sub001/internal/wire"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var cfgDir string

var rootCmd = &cobra.Command{
	Use:   "viewctl",
	Short: "Prompt view counter maintenance",
	Long: `viewctl runs maintenance tasks against the view counter stores:

  - migrate the view tables
  - run a reconcile pass (flush cached deltas, raise lagging counts)
  - validate log counts against durable counts
  - force sync a single prompt`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadConfigFrom(cfgDir); err != nil {
			return err
		}
		logger.InitLogger()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "./configs", "directory containing config.yaml")
	rootCmd.AddCommand(migrateCmd, reconcileCmd, validateCmd, syncCmd)
}

func openDB() (*gorm.DB, error) {
	dbCfg := config.Cfg.DB
	return database.NewGormDB(&dbCfg)
}

func buildServices() (*wire.Services, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	if err = redis.InitRedis(config.Cfg.Redis); err != nil {
		return nil, err
	}
	return wire.BuildServices(db, redis.Rdb, config.Cfg), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
