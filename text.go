package xopen

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// TextPolicy selects how characters that cannot be represented in the
// target encoding are handled when writing.
type TextPolicy int

const (
	// TextStrict fails the write with an encoding error.
	TextStrict TextPolicy = iota
	// TextReplace substitutes the encoding's replacement character.
	TextReplace
)

// TextConfig configures the text adapter layered on top of the binary
// stream by the text open modes (or WithText). The zero value means UTF-8
// with universal newline handling: "\r\n" and "\r" both read as "\n", and
// "\n" is written unchanged.
type TextConfig struct {
	// Encoding is the IANA name of the character encoding ("ISO-8859-1",
	// "windows-1252", ...). Empty means UTF-8 passthrough.
	Encoding string

	// Policy applies when writing characters the encoding cannot
	// represent. Reading always replaces invalid input with U+FFFD.
	Policy TextPolicy

	// Newline is written in place of each "\n". Empty means "\n".
	Newline string
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("xopen: unknown text encoding %q", name)
	}
	return enc, nil
}

// newTextReader layers decoding and universal newline translation on top
// of a binary reader.
func newTextReader(r io.Reader, cfg *TextConfig) (io.Reader, error) {
	if cfg.Encoding != "" {
		enc, err := lookupEncoding(cfg.Encoding)
		if err != nil {
			return nil, err
		}
		r = enc.NewDecoder().Reader(r)
	}
	return &newlineReader{r: r}, nil
}

// newlineReader translates "\r\n" and lone "\r" into "\n".
type newlineReader struct {
	r         io.Reader
	pendingCR bool
}

func (nr *newlineReader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	n, err := nr.r.Read(b)
	out := b[:0]
	for _, c := range b[:n] {
		if nr.pendingCR {
			nr.pendingCR = false
			if c == '\n' {
				// The LF of a CRLF pair; the CR already became "\n".
				continue
			}
		}
		if c == '\r' {
			nr.pendingCR = true
			out = append(out, '\n')
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 && n > 0 && err == nil {
		return nr.Read(b)
	}
	return len(out), err
}

// newTextWriter layers newline translation and encoding on top of a binary
// writer. Closing it flushes the encoder; the binary stream below is left
// open.
func newTextWriter(w io.Writer, cfg *TextConfig) (*textWriter, error) {
	tw := &textWriter{w: w, newline: []byte("\n")}
	if cfg.Newline != "" {
		tw.newline = []byte(cfg.Newline)
	}
	if cfg.Encoding != "" {
		enc, err := lookupEncoding(cfg.Encoding)
		if err != nil {
			return nil, err
		}
		e := enc.NewEncoder()
		if cfg.Policy == TextReplace {
			e = encoding.ReplaceUnsupported(e)
		}
		t := transform.NewWriter(w, e)
		tw.w = t
		tw.flush = t
	}
	return tw, nil
}

type textWriter struct {
	w       io.Writer
	flush   io.Closer // the transform writer, when an encoding is in use
	newline []byte
}

// Write accepts text with "\n" line endings and reports len(b) on success
// even when newline translation changes the number of encoded bytes.
func (tw *textWriter) Write(b []byte) (int, error) {
	if bytes.Equal(tw.newline, []byte("\n")) {
		return tw.w.Write(b)
	}
	written := 0
	for {
		i := bytes.IndexByte(b[written:], '\n')
		if i < 0 {
			break
		}
		if _, err := tw.w.Write(b[written : written+i]); err != nil {
			return written, err
		}
		if _, err := tw.w.Write(tw.newline); err != nil {
			return written + i, err
		}
		written += i + 1
	}
	if written < len(b) {
		if _, err := tw.w.Write(b[written:]); err != nil {
			return written, err
		}
	}
	return len(b), nil
}

func (tw *textWriter) Close() error {
	if tw.flush != nil {
		return tw.flush.Close()
	}
	return nil
}
