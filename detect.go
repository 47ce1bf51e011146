package xopen

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Suffix mapping (format -> conventional extension). Matching is
// case-sensitive on these literal strings.
var suffixMap = map[Format]string{
	FormatGzip:   ".gz",
	FormatBzip2:  ".bz2",
	FormatXz:     ".xz",
	FormatZstd:   ".zst",
	FormatLZ4:    ".lz4",
	FormatBrotli: ".br",
	FormatSnappy: ".sz",
}

// Magic-byte signatures, checked in this order. Brotli has no signature and
// can only be detected by suffix.
var magicSignatures = []struct {
	format Format
	magic  []byte
}{
	{FormatGzip, []byte{0x1f, 0x8b}},
	{FormatBzip2, []byte{0x42, 0x5a, 0x68}}, // "BZh"
	{FormatXz, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FormatZstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{FormatLZ4, []byte{0x04, 0x22, 0x4d, 0x18}},
	{FormatSnappy, []byte{0xff, 0x06, 0x00, 0x00, 0x73, 0x4e, 0x61, 0x50}},
}

// magicLen is the longest signature above; a prefix of this size is enough
// to distinguish every detectable format.
const magicLen = 8

// Suffix returns the conventional file extension for a format, or "" for
// FormatNone.
func Suffix(f Format) string {
	return suffixMap[f]
}

// DetectFormatFromName detects the format from the name suffix. The second
// return value is false when the name carries no recognized suffix.
func DetectFormatFromName(name string) (Format, bool) {
	for format, suffix := range suffixMap {
		if strings.HasSuffix(name, suffix) {
			return format, true
		}
	}
	return FormatNone, false
}

// DetectFormatFromContent matches a content prefix against the known
// magic-byte signatures. The second return value is false when no signature
// matches.
func DetectFormatFromContent(prefix []byte) (Format, bool) {
	for _, sig := range magicSignatures {
		if len(prefix) >= len(sig.magic) && bytes.Equal(prefix[:len(sig.magic)], sig.magic) {
			return sig.format, true
		}
	}
	return FormatNone, false
}

// detectFormat decides the format for a named resource. The suffix takes
// precedence over the content: a recognized suffix is trusted even when the
// content does not carry the matching signature. An unrecognized suffix
// means no compression. Only a name without any extension falls through to
// content sniffing (sniff may be nil when no content is available, e.g. when
// writing).
//
// When neither hint yields a format the error is ErrFormatDetection; it is
// never silently mapped to FormatNone.
func detectFormat(name string, sniff func() ([]byte, error)) (Format, error) {
	if format, ok := DetectFormatFromName(name); ok {
		slog.Debug("xopen: format detected", "name", name, "format", format, "by", "suffix")
		return format, nil
	}
	if name != "" && name != "-" && filepath.Ext(name) != "" {
		// A name hint exists but its suffix is not a compression
		// extension: plain I/O.
		return FormatNone, nil
	}
	if sniff != nil {
		prefix, err := sniff()
		if err != nil {
			return FormatNone, err
		}
		if format, ok := DetectFormatFromContent(prefix); ok {
			slog.Debug("xopen: format detected", "name", name, "format", format, "by", "content")
			return format, nil
		}
	}
	return FormatNone, fmt.Errorf("%w: %q", ErrFormatDetection, name)
}
