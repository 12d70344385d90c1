package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/checker"
	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/config"
)

func init() {
	rootCmd.AddCommand(newCheckCmd())
}

func newCheckCmd() *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   "check [config]",
		Short: "Report which expected files are missing on this system",
		Long: `Check runs on the receiving system: for every file of every transfer
group it tests whether remote_base/file exists locally, then writes the
missing full paths to the report file. Purely read-only, nothing is
transferred.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromFile(configPath(cmd, args))
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			report := checker.Scan(cfg.Groups)
			if err := report.WriteMissing(reportPath); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %d file(s)\n", green("found"), report.Found)
			fmt.Fprintf(out, "%s %d file(s), listed in %s\n", red("missing"), report.Missing, reportPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&reportPath, "report", "o", "missing_files.txt", "file to write the missing paths to")

	return cmd
}
