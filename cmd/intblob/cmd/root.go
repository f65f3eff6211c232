package cmd

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/intblob/pkg/config"
	"github.com/ssargent/intblob/pkg/di"
)

var (
	configPath  string
	dataDir     string
	blobName    string
	backend     string
	width       int
	byteOrder   string
	logLevel    string
	metricsFile string
	bufferSize  int

	// container is built by the root PersistentPreRunE and closed by execute
	container *di.Container
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "intblob",
	Short: "intblob - fixed-width integer blob encoder/decoder",
	Long: `intblob writes an ordered sequence of signed integers to a flat binary
blob and reads it back.

Each integer occupies a fixed number of bytes (4 by default, little-endian)
and records are laid end to end with no header. Writer and reader must be
configured with the same width and byte order.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		c, err := di.NewContainer(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to initialize")
		}
		container = c
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}

func execute() error {
	err := rootCmd.Execute()
	if container != nil {
		if closeErr := container.Close(); closeErr != nil {
			rootCmd.PrintErrln("Error:", closeErr)
			err = errors.CombineErrors(err, closeErr)
		}
		container = nil
	}
	return err
}

// resolveConfig loads the config file (when present) and applies flag overrides
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	cfg := config.DefaultConfig()
	path := configPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	if flags.Changed("config") || config.ConfigExists(path) {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyFlagOverrides(cmd, cfg)
	return cfg, cfg.Validate()
}

// applyFlagOverrides copies explicitly set global flags into cfg
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("name") {
		cfg.BlobName = blobName
	}
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	if flags.Changed("width") {
		cfg.Record.Width = width
	}
	if flags.Changed("byte-order") {
		cfg.Record.ByteOrder = byteOrder
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.Textfile = metricsFile
	}
	if flags.Changed("buffer-size") {
		cfg.BufferSize = bufferSize
	}
}

func init() {
	defaults := config.DefaultConfig()

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file (default "+config.GetDefaultConfigPath()+" when present)")
	flags.StringVarP(&dataDir, "data-dir", "d", defaults.DataDir, "Data directory for the blob store")
	flags.StringVarP(&blobName, "name", "n", defaults.BlobName, "Blob name within the store")
	flags.StringVar(&backend, "backend", defaults.Backend, "Blob store backend: file or pebble")
	flags.IntVarP(&width, "width", "w", defaults.Record.Width, "Record width in bytes: 1, 2, 4 or 8")
	flags.StringVar(&byteOrder, "byte-order", defaults.Record.ByteOrder, "Record byte order: little, big or native")
	flags.StringVar(&logLevel, "log-level", defaults.Logging.Level, "Log level (logs go to stderr)")
	flags.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format on exit")
	flags.IntVar(&bufferSize, "buffer-size", defaults.BufferSize, "Read/write buffer size in bytes")
}
