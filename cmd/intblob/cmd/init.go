package cmd

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/intblob/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file",
	Long: `Write a YAML config file holding the data directory, backend, blob name
and record layout. Global flags given on the command line are stored in it.

Examples:
  intblob init
  intblob init --config ./intblob.yaml --width 8 --byte-order big --force`,
	Args: cobra.NoArgs,
	// The config file may not exist yet, so skip building the container
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		path := configPath
		if path == "" {
			path = config.GetDefaultConfigPath()
		}

		// Start from defaults, not from an existing file
		cfg := config.DefaultConfig()
		applyFlagOverrides(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		return writeConfigFile(path, cfg, force, cmd.OutOrStdout())
	},
}

func writeConfigFile(path string, cfg *config.Config, force bool, out io.Writer) error {
	if config.ConfigExists(path) && !force {
		return errors.Newf("config already exists at %s, use --force to overwrite", path)
	}

	if err := config.SaveConfig(cfg, path); err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote config to %s\n", path)
	fmt.Fprintf(out, "Blob: %s/%s (%s backend, %d-byte %s-endian records)\n",
		cfg.DataDir, cfg.BlobName, cfg.Backend, cfg.Record.Width, cfg.Record.ByteOrder)
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}
