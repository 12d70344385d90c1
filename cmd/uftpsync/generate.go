package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/confgen"
	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/config"
)

func init() {
	rootCmd.AddCommand(newGenerateCmd())
}

func newGenerateCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "generate <genspec>",
		Short: "Expand a generator spec into a transfer config",
		Long: `Generate unrolls the year/month/variable loops of a generator spec
through its path pattern and writes a regular transfer config with
explicit file lists.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := confgen.LoadSpec(args[0])
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			cfg, err := spec.Generate()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(outPath); err != nil {
				return err
			}

			total := 0
			for _, g := range cfg.Groups {
				total += len(g.Files)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d group(s), %d file(s) -> %s\n", green("generated"), len(cfg.Groups), total, outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", config.DefaultConfigName, "transfer config file to write")

	return cmd
}
