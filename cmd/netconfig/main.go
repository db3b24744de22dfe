package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sshcollectorpro/netconfig/internal/app"
	"github.com/sshcollectorpro/netconfig/internal/config"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

// cliIdentity 命令行使用的操作员身份
const cliIdentity = "cli"

var (
	cfgFile  string
	logLevel string
	username string
	password string
	enablePw string
)

var rootCmd = &cobra.Command{
	Use:           "netconfig",
	Short:         "Query and configure Cisco devices over SSH",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")
	rootCmd.PersistentFlags().StringVarP(&username, "username", "u", "", "login username, overrides configured credentials")
	rootCmd.PersistentFlags().StringVarP(&password, "password", "p", "", "login password")
	rootCmd.PersistentFlags().StringVar(&enablePw, "enable", "", "enable password")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// newApp 加载配置；命令行给出账号时改用静态凭据
func newApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg.Log.Level = logLevel
	if err := logger.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if username != "" {
		cfg.Credentials.Backend = "static"
		cfg.Credentials.Static = map[string]config.StaticCredential{
			"default": {Username: username, Password: password, Privileged: enablePw},
		}
	}
	return app.New(ctx, cfg)
}

func parseDeviceID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid device id %q", s)
	}
	return uint(id), nil
}
