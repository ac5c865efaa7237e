package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RodrigoBertipalha/AppColheita/config"
	applogger "github.com/RodrigoBertipalha/AppColheita/pkg/logger"
)

// cli 各子命令共享的配置与日志
type cli struct {
	configPath string
	envFile    string
	cfg        *config.Config
	logger     *zap.Logger
}

func main() {
	c := &cli{}
	if err := c.rootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "colheita",
		Short:         "田间收获记录服务",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "启动前加载的 .env 文件")

	root.AddCommand(
		c.serveCommand(),
		c.importCommand(),
		c.exportCommand(),
		c.migrateCommand(),
		c.backupCommand(),
		c.restoreCommand(),
	)
	return root
}

// setup 依次加载 .env、配置文件与日志
func (c *cli) setup() error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("加载 %s 失败: %w", c.envFile, err)
		}
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}

	c.cfg = cfg
	c.logger = logger
	return nil
}
