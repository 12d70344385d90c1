package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/config"
	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/logging"
	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/version"
)

var (
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan).SprintFunc()
)

var closeLogs = func() error { return nil }

var rootCmd = &cobra.Command{
	Use:     "uftpsync",
	Short:   "Move climate model output between HPC systems via the UFTP client",
	Version: version.Detailed(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logFile, _ := cmd.Flags().GetString("log-file")

		closer, err := logging.Setup(verbose, logFile)
		if err != nil {
			return fmt.Errorf("log setup: %w", err)
		}
		closeLogs = closer
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().SortFlags = false
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigName, "transfer config file")
	rootCmd.PersistentFlags().String("log-file", "", "also append logs to this file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	// env overrides: UFTPSYNC_USER, UFTPSYNC_IDENTITY, UFTPSYNC_RETRIES
	viper.SetEnvPrefix("UFTPSYNC")
	viper.AutomaticEnv()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	_ = closeLogs()
	if err != nil {
		os.Exit(1)
	}
}

// configPath resolves the config file argument: an explicit positional arg
// wins over the persistent --config flag.
func configPath(cmd *cobra.Command, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	path, _ := cmd.Flags().GetString("config")
	return path
}
