// Command xopen is a small gzip(1)-style front end for the xopen library.
// It compresses or decompresses a single stream, picking the best available
// backend for the requested format.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/absfs/xopen"
)

var (
	flagDecompress bool
	flagOutput     string
	flagFormat     string
	flagLevel      int
	flagThreads    int
)

var rootCmd = &cobra.Command{
	Use:   "xopen [input]",
	Short: "Compress or decompress a stream",
	Long: `Compress or decompress a single stream.

The input defaults to standard input ("-") and the output to standard
output. When compressing, the format is taken from the output suffix or
from --format; when decompressing, it is detected from the input suffix or
from the content's magic bytes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := "-"
		if len(args) == 1 {
			input = args[0]
		}
		if flagDecompress {
			return decompress(input, flagOutput)
		}
		return compress(input, flagOutput)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().BoolVarP(&flagDecompress, "decompress", "d", false, "decompress instead of compress")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "-", "output file (\"-\" for stdout)")
	rootCmd.Flags().StringVarP(&flagFormat, "format", "f", "", "compression format (gzip, bzip2, xz, zstd, lz4, brotli, snappy, none)")
	rootCmd.Flags().IntVarP(&flagLevel, "level", "l", -1, "compression level")
	rootCmd.Flags().IntVarP(&flagThreads, "threads", "p", -1, "thread count (0 disables external processes)")
}

func formatOptions() []xopen.Option {
	var opts []xopen.Option
	if flagFormat != "" {
		opts = append(opts, xopen.WithFormat(xopen.Format(flagFormat)))
	}
	if flagLevel >= 0 {
		opts = append(opts, xopen.WithLevel(flagLevel))
	}
	if flagThreads >= 0 {
		opts = append(opts, xopen.WithThreads(flagThreads))
	}
	return opts
}

func compress(input, output string) error {
	src, err := xopen.Open(input, xopen.WithFormat(xopen.FormatNone))
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := xopen.Open(output, append(formatOptions(), xopen.WithMode(xopen.ModeWrite))...)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("compress %s: %w", input, err)
	}
	return dst.Close()
}

func decompress(input, output string) error {
	src, err := xopen.Open(input, formatOptions()...)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := xopen.Open(output, xopen.WithMode(xopen.ModeWrite), xopen.WithFormat(xopen.FormatNone))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("decompress %s: %w", input, err)
	}
	if err := src.Close(); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
