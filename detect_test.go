package xopen

import (
	"errors"
	"testing"
)

func TestDetectFormatFromName(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     Format
		wantOk   bool
	}{
		{"gzip", "file.txt.gz", FormatGzip, true},
		{"bzip2", "file.bz2", FormatBzip2, true},
		{"xz", "archive.tar.xz", FormatXz, true},
		{"zstd", "data.zst", FormatZstd, true},
		{"lz4", "data.lz4", FormatLZ4, true},
		{"brotli", "page.html.br", FormatBrotli, true},
		{"snappy", "frames.sz", FormatSnappy, true},
		{"plain text", "file.txt", FormatNone, false},
		{"no extension", "README", FormatNone, false},
		{"uppercase not recognized", "file.GZ", FormatNone, false},
		{"stdin", "-", FormatNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectFormatFromName(tt.filename)
			if ok != tt.wantOk {
				t.Fatalf("DetectFormatFromName(%q) ok = %v, want %v", tt.filename, ok, tt.wantOk)
			}
			if got != tt.want {
				t.Fatalf("DetectFormatFromName(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestDetectFormatFromContent(t *testing.T) {
	tests := []struct {
		name   string
		prefix []byte
		want   Format
		wantOk bool
	}{
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, FormatGzip, true},
		{"bzip2", []byte("BZh91AY"), FormatBzip2, true},
		{"xz", []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x00}, FormatXz, true},
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x24}, FormatZstd, true},
		{"lz4", []byte{0x04, 0x22, 0x4d, 0x18}, FormatLZ4, true},
		{"snappy", []byte{0xff, 0x06, 0x00, 0x00, 0x73, 0x4e, 0x61, 0x50}, FormatSnappy, true},
		{"plain text", []byte("hello, world"), FormatNone, false},
		{"empty", nil, FormatNone, false},
		{"too short for xz", []byte{0xfd, 0x37}, FormatNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectFormatFromContent(tt.prefix)
			if ok != tt.wantOk {
				t.Fatalf("DetectFormatFromContent ok = %v, want %v", ok, tt.wantOk)
			}
			if got != tt.want {
				t.Fatalf("DetectFormatFromContent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectFormatSuffixBeatsContent(t *testing.T) {
	// A recognized suffix is trusted without sniffing.
	format, err := detectFormat("data.zst", func() ([]byte, error) {
		t.Fatal("sniff must not be called when the suffix is recognized")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("detectFormat: %v", err)
	}
	if format != FormatZstd {
		t.Fatalf("detectFormat = %v, want %v", format, FormatZstd)
	}
}

func TestDetectFormatUnrecognizedSuffixIsPlain(t *testing.T) {
	format, err := detectFormat("notes.txt", nil)
	if err != nil {
		t.Fatalf("detectFormat: %v", err)
	}
	if format != FormatNone {
		t.Fatalf("detectFormat = %v, want %v", format, FormatNone)
	}
}

func TestDetectFormatNoHints(t *testing.T) {
	_, err := detectFormat("README", func() ([]byte, error) {
		return []byte("plain text contents"), nil
	})
	if !errors.Is(err, ErrFormatDetection) {
		t.Fatalf("detectFormat error = %v, want ErrFormatDetection", err)
	}
}

func TestSuffix(t *testing.T) {
	if got := Suffix(FormatGzip); got != ".gz" {
		t.Fatalf("Suffix(FormatGzip) = %q, want %q", got, ".gz")
	}
	if got := Suffix(FormatNone); got != "" {
		t.Fatalf("Suffix(FormatNone) = %q, want empty", got)
	}
}
