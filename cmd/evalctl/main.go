// evalctl 运维命令行：数据库迁移与种子数据导入
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/config"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/database"
	applogger "github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "evalctl",
	Short:         "教研室评估平台运维工具",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")
	rootCmd.AddCommand(newMigrateCmd(), newSeedCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}

// bootstrap 加载配置、日志并连接数据库；调用方负责 cleanup
func bootstrap() (*config.Config, *zap.Logger, *gorm.DB, func(), error) {
	if configPath == "" {
		configPath = os.Getenv("TEVAL_CONFIG")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger, _, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = logger.Sync()
	}
	return cfg, logger, db, cleanup, nil
}
