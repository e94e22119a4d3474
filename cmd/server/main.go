package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/vmq-next/internal/app"
	"github.com/vmq-next/internal/config"
	"github.com/vmq-next/internal/logger"
	"github.com/vmq-next/internal/models"
	"github.com/vmq-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiGreen = "\033[32m"
	ansiCyan  = "\033[36m"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var mode string
	rootCmd := &cobra.Command{
		Use:           "vmq",
		Short:         "V免签 收款监控与订单服务",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(mode)
		},
	}
	rootCmd.Flags().StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")

	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(resetKeyCmd())
	return rootCmd
}

func runServer(mode string) error {
	switch mode {
	case app.ModeAll, app.ModeAPI, app.ModeWorker:
	default:
		return fmt.Errorf("未知的启动模式: %s", mode)
	}
	printStartupBanner()

	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	stdLog := logger.StdLogger()
	if cfg.Server.Mode == "release" {
		if isWeakSecret(cfg.JWT.SecretKey) {
			return fmt.Errorf("JWT secret 过弱或仍为默认值，请在生产环境中配置强随机密钥")
		}
		gin.SetMode(gin.ReleaseMode)
	} else if isWeakSecret(cfg.JWT.SecretKey) {
		stdLog.Printf("警告: JWT secret 过弱或仍为默认值，建议在生产环境中更换")
	}

	return app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	})
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "立即关闭所有已超时的待支付订单",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			container := provider.NewContainerWithDB(cfg, models.DB, nil)
			result, err := container.OrderService.SweepExpired()
			if err != nil {
				return fmt.Errorf("清理过期订单失败: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "closed=%d released=%d\n", result.Closed, result.Released)
			return nil
		},
	}
}

func resetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-key",
		Short: "重新生成通讯密钥",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := bootstrap()
			if err != nil {
				return err
			}
			container := provider.NewContainerWithDB(cfg, models.DB, nil)
			key, err := container.SettingService.ResetSigningKey()
			if err != nil {
				return fmt.Errorf("重置密钥失败: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

// bootstrap 加载配置、初始化日志与数据库并写入默认设置
func bootstrap() (*config.Config, error) {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, cfg.Server.Mode == "debug"); err != nil {
		return nil, fmt.Errorf("数据库初始化失败: %w", err)
	}
	if err := models.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	if err := models.InitDefaultSettings(os.Getenv("VMQ_DEFAULT_ADMIN_USERNAME"), ""); err != nil {
		logger.Warnw("init_default_settings_failed", "error", err)
	}
	return cfg, nil
}

func printStartupBanner() {
	fmt.Println(ansiCyan + "██╗   ██╗███╗   ███╗ ██████╗ " + ansiReset)
	fmt.Println(ansiCyan + "██║   ██║████╗ ████║██╔═══██╗" + ansiReset)
	fmt.Println(ansiCyan + "██║   ██║██╔████╔██║██║   ██║" + ansiReset)
	fmt.Println(ansiCyan + "╚██╗ ██╔╝██║╚██╔╝██║██║▄▄ ██║" + ansiReset)
	fmt.Println(ansiCyan + " ╚████╔╝ ██║ ╚═╝ ██║╚██████╔╝" + ansiReset)
	fmt.Println(ansiCyan + "  ╚═══╝  ╚═╝     ╚═╝ ╚══▀▀═╝ " + ansiReset)
	fmt.Println(ansiGreen + ansiBold + "V免签 " + Version + ansiReset)
	fmt.Println(ansiDim + "--------------------------------------------------------------" + ansiReset)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key") {
		return true
	}
	return false
}
