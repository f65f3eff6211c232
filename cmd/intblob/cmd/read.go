package cmd

import (
	"bufio"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/intblob/pkg/stream"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Decode the blob to stdout, one value per line",
	Long: `Decode the blob and print each value on its own line in stored order.

If the blob cannot be opened nothing is printed. If it ends in a partial
record the complete values are printed and the command fails.

Example:
  intblob read --data-dir ./data`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRead(container.Stream(), container.Config().BlobName, cmd.OutOrStdout())
	},
}

func runRead(s *stream.Stream, name string, out io.Writer) error {
	it, err := s.Iterate(name)
	if err != nil {
		return err
	}
	defer it.Close()

	w := bufio.NewWriter(out)
	line := make([]byte, 0, 24)
	for it.Next() {
		line = strconv.AppendInt(line[:0], it.Value(), 10)
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return errors.Wrap(err, "write output")
		}
	}

	// Values decoded before a truncated record are still printed
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "write output")
	}

	return it.Err()
}

func init() {
	rootCmd.AddCommand(readCmd)
}
