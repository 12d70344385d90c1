package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/config"
	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/transfer"
	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/uftp"
)

func init() {
	rootCmd.AddCommand(newUploadCmd())
}

func newUploadCmd() *cobra.Command {
	var (
		verify    bool
		statePath string
	)

	cmd := &cobra.Command{
		Use:   "upload [config]",
		Short: "Upload all transfer groups, resuming completed files",
		Long: `Upload iterates the transfer groups of the config, creates remote
directories, skips files recorded as done in the resume state and uploads
the rest with bounded retries. With --verify each upload is checked
against the server-reported checksum instead of keeping resume state.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadTransferConfig(configPath(cmd, args))
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			client := uftp.NewClient(cfg.UFTP)

			var uploader *transfer.Uploader
			if verify {
				uploader = transfer.NewVerifyingUploader(client, cfg.MaxRetries)
			} else {
				if statePath == "" {
					statePath = cfg.Path + ".state.json"
				}
				store, err := transfer.LoadStore(statePath)
				if err != nil {
					return err
				}
				if err := store.Lock(); err != nil {
					return err
				}
				defer store.Unlock()
				uploader = transfer.NewUploader(client, store, cfg.MaxRetries)
			}

			stats, err := uploader.Run(cmd.Context(), cfg.Groups)
			if err != nil {
				return err
			}

			printSummary(cmd, stats)
			if stats.HasFailures() {
				return fmt.Errorf("%d file(s) failed to upload", stats.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "verify uploads against server checksums (no resume state)")
	cmd.Flags().Int("retries", 0, "max upload attempts per file (overrides config)")
	cmd.Flags().StringVar(&statePath, "state", "", "resume state file (default <config>.state.json)")
	viper.BindPFlag("retries", cmd.Flags().Lookup("retries"))

	return cmd
}

// loadTransferConfig reads the YAML config, applies flag/env overrides and
// validates the result.
func loadTransferConfig(path string) (*config.Config, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	cfg, err := config.LoadFromReader(fd)
	if err != nil {
		return nil, fmt.Errorf("config '%s': %w", path, err)
	}
	cfg.Path = path

	if v := viper.GetString("user"); v != "" {
		cfg.UFTP.User = v
	}
	if v := viper.GetString("identity"); v != "" {
		cfg.UFTP.Identity = v
	}
	if v := viper.GetInt("retries"); v > 0 {
		cfg.MaxRetries = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config '%s': %w", path, err)
	}
	return cfg, nil
}

func printSummary(cmd *cobra.Command, stats *transfer.Stats) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%s %d file(s), %s transferred\n", green("uploaded"), stats.Uploaded, humanize.Bytes(uint64(stats.Bytes)))
	if stats.Skipped > 0 {
		fmt.Fprintf(out, "%s %d file(s) already done\n", cyan("skipped"), stats.Skipped)
	}
	if stats.Excluded > 0 {
		fmt.Fprintf(out, "%s %d file(s) by pattern\n", cyan("excluded"), stats.Excluded)
	}
	if stats.Unverified > 0 {
		fmt.Fprintf(out, "%s %d file(s) uploaded but checksum never matched\n", red("unverified"), stats.Unverified)
	}
	if stats.Failed > 0 {
		fmt.Fprintf(out, "%s %d file(s)\n", red("failed"), stats.Failed)
	}
}
