package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/repository"
	"github.com/6999-web/teaching-research-data-intergrated-management-platform-sub000/internal/seed"
)

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "从 YAML 文件导入教研室与账号",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fh, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("打开种子文件失败: %w", err)
			}
			defer fh.Close()
			f, err := seed.Parse(fh)
			if err != nil {
				return err
			}

			_, logger, db, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := seed.Apply(cmd.Context(), repository.NewRepository(db), f, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "教研室 %d，账号 %d，跳过 %d\n", res.OfficesCreated, res.UsersCreated, res.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "config/seed.yaml", "种子文件路径")
	return cmd
}
