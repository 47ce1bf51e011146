// Package xopen opens compressed files transparently.
//
// It gives callers one streaming abstraction for reading and writing
// compressed data, hiding both the compression format and the engine that
// performs the actual work: an external helper process (pigz, gzip, pbzip2,
// bzip2, xz, zstd) or an in-process Go codec.
//
// # Quick Start
//
//	// Read: format detected from the suffix, falling back to magic bytes.
//	f, err := xopen.Open("data.txt.gz")
//	if err != nil { ... }
//	defer f.Close()
//	data, err := io.ReadAll(f)
//
//	// Write: format chosen from the suffix.
//	f, err := xopen.Open("out.zst",
//	    xopen.WithMode(xopen.ModeWrite),
//	    xopen.WithLevel(7),
//	    xopen.WithThreads(4))
//
// # Formats
//
// gzip (.gz), bzip2 (.bz2), xz (.xz), zstd (.zst), lz4 (.lz4),
// brotli (.br) and framed snappy (.sz). Any other suffix means plain,
// uncompressed I/O. When reading a name without an extension the format is
// sniffed from the first bytes of the content.
//
// # Engines
//
// For each format a priority-ordered list of engines is considered; the
// first one that is available and can honor the requested thread count and
// level wins. External tools are preferred when they can run threaded; the
// in-process codecs are always available and act as the last resort.
// WithThreads(0) disables external processes entirely.
//
// External compressors communicate over pipes. Each open stream owns
// exactly one child process for its whole lifetime; background goroutines
// keep every pipe drained so the child can never deadlock against the
// caller, and Close always reaps the process and reports a non-zero exit
// status together with its captured stderr.
//
// # Reproducibility
//
// Gzip output never embeds the modification time or original file name,
// so compressing the same bytes twice with the same engine and level
// produces identical output.
//
// # Text mode
//
// The modes "rt", "wt" and "at" (or WithText) layer a text adapter over
// the binary stream: a configurable character encoding, an error policy
// for unencodable characters, and newline translation.
package xopen
