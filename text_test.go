package xopen

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestNewlineReaderUniversal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain\nlines\n", "plain\nlines\n"},
		{"dos\r\nlines\r\n", "dos\nlines\n"},
		{"mac\rlines\r", "mac\nlines\n"},
		{"mixed\r\nand\rand\n", "mixed\nand\nand\n"},
		{"trailing cr\r", "trailing cr\n"},
		{"", ""},
	}
	for _, tt := range tests {
		r, err := newTextReader(strings.NewReader(tt.in), &TextConfig{})
		if err != nil {
			t.Fatalf("newTextReader: %v", err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("ReadAll(%q): %v", tt.in, err)
		}
		if string(got) != tt.want {
			t.Errorf("read %q: got %q, want %q", tt.in, got, tt.want)
		}
	}
}

// A CRLF pair split across two reads must still collapse to one "\n".
func TestNewlineReaderSplitCRLF(t *testing.T) {
	r, err := newTextReader(oneByteReader{strings.NewReader("a\r\nb")}, &TextConfig{})
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "a\nb", string(got))
}

// oneByteReader yields one byte per Read call.
type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(b []byte) (int, error) {
	if len(b) > 1 {
		b = b[:1]
	}
	return o.r.Read(b)
}

func TestTextWriterNewlineTranslation(t *testing.T) {
	var buf bytes.Buffer
	w, err := newTextWriter(&buf, &TextConfig{Newline: "\r\n"})
	if err != nil {
		t.Fatalf("newTextWriter: %v", err)
	}
	n, err := w.Write([]byte("one\ntwo\nthree"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len("one\ntwo\nthree") {
		t.Errorf("Write reported %d bytes, want %d", n, len("one\ntwo\nthree"))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := buf.String(); got != "one\r\ntwo\r\nthree" {
		t.Errorf("got %q, want %q", got, "one\r\ntwo\r\nthree")
	}
}

func TestTextEncodingRoundTrip(t *testing.T) {
	text := "café naïve\n"
	cfg := &TextConfig{Encoding: "ISO-8859-1"}

	var buf bytes.Buffer
	w, err := newTextWriter(&buf, cfg)
	require.NoError(t, err)
	_, err = w.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Latin-1 encodes each of these runes as a single byte.
	require.Len(t, buf.Bytes(), len([]rune(text)))

	r, err := newTextReader(&buf, cfg)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, text, string(got))
}

func TestTextEncodingPolicies(t *testing.T) {
	unrepresentable := "snowman ☃\n"

	var strict bytes.Buffer
	w, err := newTextWriter(&strict, &TextConfig{Encoding: "ISO-8859-1", Policy: TextStrict})
	require.NoError(t, err)
	_, werr := w.Write([]byte(unrepresentable))
	cerr := w.Close()
	require.True(t, werr != nil || cerr != nil,
		"strict policy must reject an unrepresentable character")

	var replaced bytes.Buffer
	w, err = newTextWriter(&replaced, &TextConfig{Encoding: "ISO-8859-1", Policy: TextReplace})
	require.NoError(t, err)
	_, err = w.Write([]byte(unrepresentable))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Contains(t, replaced.String(), "snowman ")
}

func TestTextUnknownEncoding(t *testing.T) {
	_, err := newTextReader(strings.NewReader(""), &TextConfig{Encoding: "no-such-charset"})
	require.Error(t, err)
	_, err = newTextWriter(io.Discard, &TextConfig{Encoding: "no-such-charset"})
	require.Error(t, err)
}

// Text mode layered over compression through the public API.
func TestOpenTextMode(t *testing.T) {
	fs := afero.NewMemMapFs()

	f, err := Open("doc.gz", memOpts(fs, WithMode(ModeWriteText),
		WithText(&TextConfig{Encoding: "ISO-8859-1", Newline: "\r\n"}))...)
	require.NoError(t, err)
	_, err = io.WriteString(f, "résumé\nline two\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	g, err := Open("doc.gz", memOpts(fs, WithMode(ModeReadText),
		WithText(&TextConfig{Encoding: "ISO-8859-1"}))...)
	require.NoError(t, err)
	got, err := io.ReadAll(g)
	require.NoError(t, err)
	require.Equal(t, "résumé\nline two\n", string(got))
	require.NoError(t, g.Close())
}
