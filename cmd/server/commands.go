package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/RodrigoBertipalha/AppColheita/internal/model"
	"github.com/RodrigoBertipalha/AppColheita/internal/service"
)

// ────────────────────── import ──────────────────────

func (c *cli) importCommand() *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "导入田块表格",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// 田块记录源文件位置，导出时按该路径重新打开
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.svc.Import.Import(cmd.Context(), &service.ImportRequest{
				Path:     path,
				Strategy: strategy,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "田块 %q (id=%d) 导入完成: 策略 %s, 处理 %d 行, 新增 %d 行, 跳过 %d 行\n",
				result.Field.Name, result.Field.ID, result.Strategy,
				result.RowsProcessed, result.NewRows, result.RowsSkipped)
			if result.BackupPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "导入前备份: %s\n", result.BackupPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", model.ImportStrategyMerge, "导入策略: replace / merge")
	return cmd
}

// ────────────────────── export ──────────────────────

func (c *cli) exportCommand() *cobra.Command {
	var (
		fieldID uint
		outDir  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出带收获状态的表格",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if fieldID == 0 {
				current, err := a.svc.Field.Current(ctx)
				if err != nil {
					return err
				}
				fieldID = current.ID
			}

			result, err := a.svc.Export.Export(ctx, fieldID, outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已导出 %d 个地块: %s\n", result.Plots, result.Path)
			return nil
		},
	}
	cmd.Flags().UintVarP(&fieldID, "field", "f", 0, "田块 ID（默认当前田块）")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "输出目录（默认 export.output_dir）")
	return cmd
}

// ────────────────────── migrate ──────────────────────

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			a.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "数据库迁移完成")
			return nil
		},
	}
}

// ────────────────────── backup / restore ──────────────────────

func (c *cli) backupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "立即备份 SQLite 数据库",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			path, err := a.svc.Backup.Backup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "备份完成: %s\n", path)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "列出已有备份",
		RunE: func(cmd *cobra.Command, _ []string) error {
			backups, err := service.NewBackupService(nil, &c.cfg.Database, &c.cfg.Backup, c.logger).List()
			if err != nil {
				return err
			}
			for _, b := range backups {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", b.Path, b.SizeBytes, b.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	})
	return cmd
}

func (c *cli) restoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "用最新备份覆盖数据库（需先停止服务）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// 恢复时不能持有数据库连接
			svc := service.NewBackupService(nil, &c.cfg.Database, &c.cfg.Backup, c.logger)
			path, err := svc.RestoreLatest(context.WithoutCancel(cmd.Context()))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已从 %s 恢复\n", path)
			return nil
		},
	}
}
