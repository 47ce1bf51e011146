package xopen

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/afero"
)

// File is the uniform stream handle returned by Open, regardless of which
// format and engine back it. A File supports sequential Read or Write
// (depending on the open mode), forward-only Seek on read streams, Tell,
// and Close. It is not safe for concurrent use by multiple goroutines.
type File struct {
	name    string
	mode    Mode
	format  Format
	engine  string // chosen engine name, "" for plain passthrough
	reading bool

	r io.Reader
	w io.Writer

	text       io.Closer // text adapter wrapper, closed first
	stream     io.Closer // engine stream, closed second
	underlying io.Closer // the opened resource, closed last; nil for stdio

	offset int64
	closed bool
}

// Open opens name for transparent compressed I/O. The format is taken from
// WithFormat when given, else from the name suffix, else (when reading a
// name without any extension) from the content's magic bytes. The name "-"
// means standard input or standard output depending on the mode; closing
// the returned File does not close the real stdio handles.
func Open(name string, opts ...Option) (*File, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if o.mode.reading() {
		return openReader(name, o)
	}
	return openWriter(name, o)
}

func openReader(name string, o *options) (*File, error) {
	var src io.Reader
	var underlying io.Closer
	if name == "-" {
		src = os.Stdin
	} else {
		f, err := o.fs.Open(name)
		if err != nil {
			return nil, err
		}
		src = f
		underlying = f
	}

	format := o.format
	if !o.hasFmt {
		var err error
		format, err = detectFormat(name, func() ([]byte, error) {
			br := bufio.NewReader(src)
			src = br
			prefix, err := br.Peek(magicLen)
			if err != nil && err != io.EOF {
				return nil, err
			}
			return prefix, nil
		})
		if err != nil {
			closeQuietly(underlying)
			return nil, err
		}
	}

	f := &File{
		name:       name,
		mode:       o.mode,
		format:     format,
		reading:    true,
		underlying: underlying,
	}

	if format == FormatNone {
		f.r = src
	} else {
		sel, err := o.catalog.Select(format, o.threads, o.level)
		if err != nil {
			closeQuietly(underlying)
			return nil, err
		}
		f.engine = sel.Engine.Name
		switch sel.Engine.Kind {
		case EngineProcess:
			ps, err := startPipedReader(sel, src)
			if err != nil {
				closeQuietly(underlying)
				return nil, err
			}
			f.r = ps
			f.stream = ps
		default:
			rc, err := sel.Engine.newReader(src, sel.Threads)
			if err != nil {
				closeQuietly(underlying)
				return nil, err
			}
			f.r = rc
			f.stream = rc
		}
	}

	if o.text != nil {
		tr, err := newTextReader(f.r, o.text)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.r = tr
	}

	if f.stream != nil {
		// Whatever path exits the File's lifetime, the process and its
		// pipes are released exactly once.
		runtime.SetFinalizer(f, (*File).Close)
	}
	return f, nil
}

func openWriter(name string, o *options) (*File, error) {
	format := o.format
	if !o.hasFmt {
		if name == "-" {
			return nil, fmt.Errorf("%w: writing to standard output requires WithFormat", ErrFormatDetection)
		}
		// For writing the suffix alone decides; an unrecognized or
		// absent suffix means plain output.
		format, _ = DetectFormatFromName(name)
	}

	var sel Selection
	if format != FormatNone {
		var err error
		sel, err = o.catalog.Select(format, o.threads, o.level)
		if err != nil {
			return nil, err
		}
	}

	var dst io.Writer
	var underlying io.Closer
	if name == "-" {
		dst = os.Stdout
	} else {
		var af afero.File
		var err error
		if o.mode.appending() {
			af, err = o.fs.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o666)
		} else {
			af, err = o.fs.Create(name)
		}
		if err != nil {
			return nil, err
		}
		dst = af
		underlying = af
	}

	f := &File{
		name:       name,
		mode:       o.mode,
		format:     format,
		underlying: underlying,
	}

	if format == FormatNone {
		f.w = dst
	} else {
		f.engine = sel.Engine.Name
		switch sel.Engine.Kind {
		case EngineProcess:
			ps, err := startPipedWriter(sel, dst)
			if err != nil {
				closeQuietly(underlying)
				return nil, err
			}
			f.w = ps
			f.stream = ps
		default:
			wc, err := sel.Engine.newWriter(dst, sel.Level, sel.Threads)
			if err != nil {
				closeQuietly(underlying)
				return nil, err
			}
			f.w = wc
			f.stream = wc
		}
	}

	if o.text != nil {
		tw, err := newTextWriter(f.w, o.text)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.w = tw
		f.text = tw
	}

	if f.stream != nil {
		runtime.SetFinalizer(f, (*File).Close)
	}
	return f, nil
}

// Name returns the name the File was opened with.
func (f *File) Name() string { return f.name }

// Format returns the compression format in effect.
func (f *File) Format() Format { return f.format }

// Engine returns the name of the chosen engine, or "" for plain I/O.
func (f *File) Engine() string { return f.engine }

func (f *File) Read(b []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	if !f.reading {
		return 0, fmt.Errorf("%w: read on write stream", ErrUnsupportedOperation)
	}
	n, err := f.r.Read(b)
	f.offset += int64(n)
	return n, err
}

func (f *File) Write(b []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	if f.reading {
		return 0, fmt.Errorf("%w: write on read stream", ErrUnsupportedOperation)
	}
	n, err := f.w.Write(b)
	f.offset += int64(n)
	return n, err
}

// Seek supports forward seeking on read streams only, implemented by
// reading and discarding bytes. Seeking backward, relative to the end, or
// on a write stream returns ErrUnsupportedOperation.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, ErrClosed
	}
	if !f.reading {
		return 0, fmt.Errorf("%w: seek on write stream", ErrUnsupportedOperation)
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = f.offset + offset
	default:
		return 0, fmt.Errorf("%w: seek relative to end", ErrUnsupportedOperation)
	}
	if target < f.offset {
		return 0, fmt.Errorf("%w: backward seek from %d to %d", ErrUnsupportedOperation, f.offset, target)
	}
	if _, err := io.CopyN(io.Discard, f, target-f.offset); err != nil && err != io.EOF {
		return f.offset, err
	}
	return f.offset, nil
}

// Tell returns the logical offset: bytes delivered by Read or accepted by
// Write so far.
func (f *File) Tell() int64 { return f.offset }

// Close flushes and closes the stream, releases any child process, and
// closes the underlying resource. It is idempotent: the second and later
// calls return nil. A non-zero exit status of a child process is reported
// as a ProcessError.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	runtime.SetFinalizer(f, nil)

	var first error
	for _, c := range []io.Closer{f.text, f.stream, f.underlying} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func closeQuietly(c io.Closer) {
	if c != nil {
		c.Close()
	}
}
