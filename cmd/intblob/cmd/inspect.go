package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/intblob/pkg/stream"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show blob size and record count",
	Long: `Show the blob size, the number of complete records and any trailing
bytes, using the configured record width.

Example:
  intblob inspect --width 4`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(container.Stream(), container.Config().BlobName, cmd.OutOrStdout())
	},
}

func runInspect(s *stream.Stream, name string, out io.Writer) error {
	insp, err := s.Inspect(name)
	if err != nil {
		return err
	}

	status := "ok"
	if insp.Truncated() {
		status = fmt.Sprintf("truncated (%d trailing bytes)", insp.Trailing)
	}

	fmt.Fprintf(out, "Blob:       %s\n", insp.Name)
	fmt.Fprintf(out, "Bytes:      %d\n", insp.Bytes)
	fmt.Fprintf(out, "Records:    %d\n", insp.Records)
	fmt.Fprintf(out, "Width:      %d\n", insp.Width)
	fmt.Fprintf(out, "Byte order: %s\n", insp.ByteOrder)
	fmt.Fprintf(out, "Status:     %s\n", status)
	return nil
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
