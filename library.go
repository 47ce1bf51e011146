package xopen

import (
	stdbzip2 "compress/bzip2"
	"io"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/dsnet/compress/bzip2"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// In-process engine constructors. Writers produced here leave the gzip
// header Name empty and ModTime zero, so output depends only on the input
// bytes and the level.

const pgzipBlockSize = 1 << 20

func newPgzipWriter(w io.Writer, level, threads int) (io.WriteCloser, error) {
	zw, err := pgzip.NewWriterLevel(w, level)
	if err != nil {
		return nil, err
	}
	// These writers encode ModTime as-is, so the zero time.Time would
	// land in the MTIME field as a garbage constant instead of zero.
	zw.ModTime = time.Unix(0, 0)
	if err := zw.SetConcurrency(pgzipBlockSize, threads); err != nil {
		zw.Close()
		return nil, err
	}
	return zw, nil
}

func newPgzipReader(r io.Reader, threads int) (io.ReadCloser, error) {
	return pgzip.NewReaderN(r, pgzipBlockSize, threads)
}

func newGzipWriter(w io.Writer, level, _ int) (io.WriteCloser, error) {
	zw, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return nil, err
	}
	zw.ModTime = time.Unix(0, 0)
	return zw, nil
}

func newGzipReader(r io.Reader, _ int) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

func newBzip2Writer(w io.Writer, level, _ int) (io.WriteCloser, error) {
	return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: level})
}

func newBzip2Reader(r io.Reader, _ int) (io.ReadCloser, error) {
	return io.NopCloser(stdbzip2.NewReader(r)), nil
}

// The xz library has no numeric preset levels; the effective level from the
// selection is accepted and ignored.
func newXzWriter(w io.Writer, _, _ int) (io.WriteCloser, error) {
	return xz.NewWriter(w)
}

func newXzReader(r io.Reader, _ int) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}

func newZstdWriter(w io.Writer, level, threads int) (io.WriteCloser, error) {
	return zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(threads),
	)
}

func newZstdReader(r io.Reader, threads int) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(threads))
	if err != nil {
		return nil, err
	}
	return zr.IOReadCloser(), nil
}

var lz4Levels = [...]lz4.CompressionLevel{
	lz4.Fast, lz4.Level1, lz4.Level2, lz4.Level3, lz4.Level4,
	lz4.Level5, lz4.Level6, lz4.Level7, lz4.Level8, lz4.Level9,
}

func newLZ4Writer(w io.Writer, level, _ int) (io.WriteCloser, error) {
	zw := lz4.NewWriter(w)
	if err := zw.Apply(lz4.CompressionLevelOption(lz4Levels[clamp(level, 0, len(lz4Levels)-1)])); err != nil {
		return nil, err
	}
	return zw, nil
}

func newLZ4Reader(r io.Reader, _ int) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

func newBrotliWriter(w io.Writer, level, _ int) (io.WriteCloser, error) {
	return brotli.NewWriterLevel(w, level), nil
}

func newBrotliReader(r io.Reader, _ int) (io.ReadCloser, error) {
	return io.NopCloser(brotli.NewReader(r)), nil
}

func newSnappyWriter(w io.Writer, _, _ int) (io.WriteCloser, error) {
	return snappy.NewBufferedWriter(w), nil
}

func newSnappyReader(r io.Reader, _ int) (io.ReadCloser, error) {
	return io.NopCloser(snappy.NewReader(r)), nil
}
