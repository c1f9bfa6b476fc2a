package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "数据库迁移",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "应用全部未执行的迁移",
		RunE: func(_ *cobra.Command, _ []string) error {
			_, logger, db, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return database.RunMigrations(sqlDB, logger)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "回滚迁移",
		RunE: func(_ *cobra.Command, _ []string) error {
			_, logger, db, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return database.RollbackMigrations(sqlDB, steps, logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "回滚的版本数")

	version := &cobra.Command{
		Use:   "version",
		Short: "显示当前迁移版本",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, _, db, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			v, dirty, err := database.MigrationVersion(sqlDB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
			return nil
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}
