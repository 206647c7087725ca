package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-dynforms/pkg/config"
)

var (
	// Global flags
	configFile string
	envFile    string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dynforms",
	Short: "Fill dynamic forms from a remote catalog, online or offline",
	Long: `dynforms loads form definitions from a catalog endpoint or file, lets you
fill them in the terminal, and keeps your progress in a local cache so an
interrupted or offline session can be resumed and submitted later.

Settings come from, in increasing precedence: built-in defaults, the YAML
file given with --config, the .env file, DYNFORMS_* environment variables,
and flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(config.LoadOptions{File: configFile, EnvFile: envFile})
		if err != nil {
			return err
		}
		if err := config.ApplyFlags(&loaded, cmd.Flags()); err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		zcfg := zap.NewProductionConfig()
		if cfg.Debug() {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file")
	config.RegisterFlags(rootCmd.PersistentFlags())

	cacheCmd.AddCommand(cacheShowCmd, cacheClearCmd)
	rootCmd.AddCommand(formsCmd, fillCmd, cacheCmd, lintCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
