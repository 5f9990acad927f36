// Command lsup-admin is the storage engine's operator CLI: bootstrap,
// rebuild, stats, import, and dump, built on github.com/spf13/cobra
// subcommands paired with viper for layered config (file, flag,
// environment).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lakesuperior/lsup-store/config"
	"github.com/lakesuperior/lsup-store/lsuperrors"
)

func main() {
	os.Exit(run())
}

func run() int {
	var cfgFile string
	v := config.New()

	root := &cobra.Command{
		Use:   "lsup-admin",
		Short: "Administer a LAKEsuperior storage engine file",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a config file (toml/yaml/json)")
	root.PersistentFlags().String("store-path", "", "bbolt data file path (overrides config)")
	root.PersistentFlags().String("hash-seed", "", "term hash seed, 32 hex chars (overrides config)")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("reading config file: %w", err)
			}
		}
		if p, _ := cmd.Flags().GetString("store-path"); p != "" {
			v.Set("store.path", p)
		}
		if s, _ := cmd.Flags().GetString("hash-seed"); s != "" {
			v.Set("term.hash_seed_hex", s)
		}
		return nil
	}

	root.AddCommand(
		newBootstrapCmd(v),
		newRebuildCmd(v),
		newStatsCmd(v),
		newImportCmd(v),
		newDumpCmd(v),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lsup-admin:", err)
		return lsuperrors.ExitCode(err)
	}
	return 0
}
