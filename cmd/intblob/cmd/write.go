package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ssargent/intblob/pkg/stream"
)

// defaultValues is written when no values are given
var defaultValues = []int64{100, 200, 300}

// writeCmd represents the write command
var writeCmd = &cobra.Command{
	Use:   "write [values...]",
	Short: "Encode integers into the blob",
	Long: `Encode integers into the blob, replacing its previous contents.

Without arguments the values 100 200 300 are written. Negative values must
follow "--" so they are not parsed as flags.

Examples:
  intblob write
  intblob write 1 2 3
  intblob write --width 8 -- -1 9223372036854775807`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWrite(container.Stream(), container.Config().BlobName, args, cmd.OutOrStdout())
	},
}

func runWrite(s *stream.Stream, name string, args []string, out io.Writer) error {
	values, err := parseValues(args)
	if err != nil {
		return err
	}

	result, err := s.Encode(name, values)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %d records (%d bytes) to %s\n", result.Records, result.Bytes, result.Name)
	return nil
}

func parseValues(args []string) ([]int64, error) {
	if len(args) == 0 {
		return append([]int64(nil), defaultValues...), nil
	}

	values := make([]int64, 0, len(args))
	for i, arg := range args {
		v, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %d", i+1)
		}
		values = append(values, v)
	}
	return values, nil
}

func init() {
	rootCmd.AddCommand(writeCmd)
}
