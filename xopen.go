package xopen

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
)

// Format identifies a compression format.
type Format string

const (
	FormatGzip   Format = "gzip"
	FormatBzip2  Format = "bzip2"
	FormatXz     Format = "xz"
	FormatZstd   Format = "zstd"
	FormatLZ4    Format = "lz4"
	FormatBrotli Format = "brotli"
	FormatSnappy Format = "snappy"

	// FormatNone means plain, uncompressed I/O.
	FormatNone Format = "none"
)

// Mode selects the stream direction and whether the text adapter is applied.
// The single-letter abbreviations "r", "w" and "a" are accepted and mean
// binary mode.
type Mode string

const (
	ModeRead       Mode = "rb"
	ModeWrite      Mode = "wb"
	ModeAppend     Mode = "ab"
	ModeReadText   Mode = "rt"
	ModeWriteText  Mode = "wt"
	ModeAppendText Mode = "at"
)

// parseMode normalizes the single-letter abbreviations.
func parseMode(m Mode) (Mode, error) {
	switch m {
	case "r":
		return ModeRead, nil
	case "w":
		return ModeWrite, nil
	case "a":
		return ModeAppend, nil
	case ModeRead, ModeWrite, ModeAppend, ModeReadText, ModeWriteText, ModeAppendText:
		return m, nil
	}
	return "", fmt.Errorf("xopen: mode %q not supported", string(m))
}

func (m Mode) reading() bool   { return m[0] == 'r' }
func (m Mode) appending() bool { return m[0] == 'a' }
func (m Mode) text() bool      { return m[len(m)-1] == 't' }

var (
	// ErrFormatDetection is returned when neither the name nor the content
	// identifies a compression format and no explicit format was given.
	ErrFormatDetection = errors.New("xopen: cannot detect compression format")

	// ErrNoBackend is matched (via errors.Is) by BackendError.
	ErrNoBackend = errors.New("xopen: no backend available")

	// ErrUnsupportedOperation is returned for backward seeks and for any
	// seek on a write stream.
	ErrUnsupportedOperation = errors.New("xopen: unsupported operation")

	// ErrClosed is returned by operations other than Close on a closed File.
	ErrClosed = errors.New("xopen: file already closed")
)

// BackendError reports that no engine candidate could satisfy a request.
type BackendError struct {
	Format  Format
	Threads int // requested thread count, -1 if unset
	Level   int // requested level, -1 if unset
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("xopen: no backend available for format %s (threads=%d, level=%d)",
		e.Format, e.Threads, e.Level)
}

func (e *BackendError) Is(target error) bool { return target == ErrNoBackend }

// ProcessError reports that an external (de)compression process failed.
// Stderr holds the diagnostic output captured from the process, capped at
// maxStderrBytes.
type ProcessError struct {
	Program string
	Exit    int // exit status, or -1 when killed by a signal
	Stderr  string
	Err     error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("xopen: %s exited with status %d", e.Program, e.Exit)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ProcessError) Unwrap() error { return e.Err }

const (
	// threadsUnset and levelUnset mark options the caller did not supply.
	threadsUnset = -1
	levelUnset   = -1
)

// options collects everything Open needs beyond the name.
type options struct {
	mode    Mode
	format  Format
	hasFmt  bool
	level   int
	threads int
	fs      afero.Fs
	catalog *Catalog
	text    *TextConfig
}

// Option configures Open.
type Option func(*options)

// WithMode sets the open mode. The default is ModeRead.
func WithMode(m Mode) Option { return func(o *options) { o.mode = m } }

// WithFormat overrides format detection. Pass FormatNone to force plain,
// uncompressed I/O.
func WithFormat(f Format) Option {
	return func(o *options) { o.format = f; o.hasFmt = true }
}

// WithLevel sets the compression level. It is clamped to the range the
// chosen engine supports. When unset the per-format default applies
// (gzip 1, xz 6, zstd 3, bzip2 9).
func WithLevel(level int) Option { return func(o *options) { o.level = level } }

// WithThreads sets the thread count for engines that support threading.
// 0 forces single-threaded, in-process operation: no external process is
// spawned. When unset the default is min(number of CPUs, 4).
func WithThreads(n int) Option { return func(o *options) { o.threads = n } }

// WithFilesystem replaces the filesystem used to open named resources.
// The default is the OS filesystem.
func WithFilesystem(fs afero.Fs) Option { return func(o *options) { o.fs = fs } }

// WithCatalog replaces the engine catalog. Useful for tests that need full
// control over which engines appear available.
func WithCatalog(c *Catalog) Option { return func(o *options) { o.catalog = c } }

// WithText enables the text adapter with the given configuration. Opening
// with a text mode ("rt", "wt", "at") and no WithText is equivalent to
// WithText(&TextConfig{}).
func WithText(cfg *TextConfig) Option { return func(o *options) { o.text = cfg } }

func applyOptions(opts []Option) (*options, error) {
	o := &options{
		mode:    ModeRead,
		level:   levelUnset,
		threads: threadsUnset,
	}
	for _, opt := range opts {
		opt(o)
	}
	mode, err := parseMode(o.mode)
	if err != nil {
		return nil, err
	}
	o.mode = mode
	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}
	if o.catalog == nil {
		o.catalog = DefaultCatalog()
	}
	if o.mode.text() && o.text == nil {
		o.text = &TextConfig{}
	}
	return o, nil
}
