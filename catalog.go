package xopen

import (
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// EngineKind distinguishes external helper processes from in-process codecs.
type EngineKind int

const (
	EngineProcess EngineKind = iota
	EngineLibrary
)

// Engine describes one candidate implementation for a format: its identity,
// the thread counts and levels it accepts, and how to instantiate it.
// Engines are static and shared; all mutable probe state lives in Catalog.
type Engine struct {
	Name   string
	Format Format
	Kind   EngineKind

	MinThreads, MaxThreads int
	MinLevel, MaxLevel     int

	// Process engines only.
	prog *progSpec

	// Library engines only.
	newWriter func(w io.Writer, level, threads int) (io.WriteCloser, error)
	newReader func(r io.Reader, threads int) (io.ReadCloser, error)
}

// progSpec holds what is needed to build the command line of an external
// compression tool.
type progSpec struct {
	program     string
	threadsFlag string // e.g. "-p" (pigz, pbzip2) or "-T" (xz, zstd); "" = none
	noNameFlag  string // gzip family: "-n" suppresses name/mtime header fields
	quiet       bool   // zstd prints progress to stderr unless -q is given
}

func (s *progSpec) compressArgs(level, threads int) []string {
	args := []string{"-c"}
	if s.quiet {
		args = append(args, "-q")
	}
	if s.noNameFlag != "" {
		args = append(args, s.noNameFlag)
	}
	if s.threadsFlag != "" && threads > 0 {
		args = append(args, fmt.Sprintf("%s%d", s.threadsFlag, threads))
	}
	args = append(args, fmt.Sprintf("-%d", level))
	return args
}

func (s *progSpec) decompressArgs(threads int) []string {
	args := []string{"-c", "-d"}
	if s.quiet {
		args = append(args, "-q")
	}
	if s.threadsFlag != "" && threads > 0 {
		args = append(args, fmt.Sprintf("%s%d", s.threadsFlag, threads))
	}
	return args
}

// Catalog holds the per-format candidate lists plus a lazily populated,
// process-wide cache of availability probe results. The zero value is not
// usable; construct with NewCatalog or use DefaultCatalog.
type Catalog struct {
	engines map[Format][]*Engine

	// lookPath is replaceable in tests.
	lookPath func(string) (string, error)
	probes   sync.Map // program name -> bool
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the shared catalog describing the built-in engines.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		defaultCatalog = NewCatalog()
	})
	return defaultCatalog
}

// NewCatalog builds a catalog with the built-in engine table. Each call
// returns an independent probe cache, which is what tests usually want.
func NewCatalog() *Catalog {
	c := &Catalog{
		engines:  make(map[Format][]*Engine),
		lookPath: exec.LookPath,
	}
	c.register(
		// gzip: pigz is preferred (multithreaded and faster even on one
		// core), then plain gzip, then the in-process codecs.
		&Engine{
			Name: "pigz", Format: FormatGzip, Kind: EngineProcess,
			MinThreads: 1, MaxThreads: 64, MinLevel: 0, MaxLevel: 9,
			prog: &progSpec{program: "pigz", threadsFlag: "-p", noNameFlag: "-n"},
		},
		&Engine{
			Name: "gzip", Format: FormatGzip, Kind: EngineProcess,
			MinThreads: 1, MaxThreads: 1, MinLevel: 1, MaxLevel: 9,
			prog: &progSpec{program: "gzip", noNameFlag: "-n"},
		},
		&Engine{
			Name: "pgzip", Format: FormatGzip, Kind: EngineLibrary,
			MinThreads: 2, MaxThreads: 64, MinLevel: 1, MaxLevel: 9,
			newWriter: newPgzipWriter, newReader: newPgzipReader,
		},
		&Engine{
			Name: "gzip-go", Format: FormatGzip, Kind: EngineLibrary,
			MinThreads: 1, MaxThreads: 1, MinLevel: 1, MaxLevel: 9,
			newWriter: newGzipWriter, newReader: newGzipReader,
		},

		// bzip2
		&Engine{
			Name: "pbzip2", Format: FormatBzip2, Kind: EngineProcess,
			MinThreads: 1, MaxThreads: 64, MinLevel: 1, MaxLevel: 9,
			prog: &progSpec{program: "pbzip2", threadsFlag: "-p"},
		},
		&Engine{
			Name: "bzip2", Format: FormatBzip2, Kind: EngineProcess,
			MinThreads: 1, MaxThreads: 1, MinLevel: 1, MaxLevel: 9,
			prog: &progSpec{program: "bzip2"},
		},
		&Engine{
			Name: "bzip2-go", Format: FormatBzip2, Kind: EngineLibrary,
			MinThreads: 1, MaxThreads: 1, MinLevel: 1, MaxLevel: 9,
			newWriter: newBzip2Writer, newReader: newBzip2Reader,
		},

		// xz
		&Engine{
			Name: "xz", Format: FormatXz, Kind: EngineProcess,
			MinThreads: 1, MaxThreads: 64, MinLevel: 0, MaxLevel: 9,
			prog: &progSpec{program: "xz", threadsFlag: "-T"},
		},
		&Engine{
			Name: "xz-go", Format: FormatXz, Kind: EngineLibrary,
			MinThreads: 1, MaxThreads: 1, MinLevel: 0, MaxLevel: 9,
			newWriter: newXzWriter, newReader: newXzReader,
		},

		// zstd
		&Engine{
			Name: "zstd", Format: FormatZstd, Kind: EngineProcess,
			MinThreads: 1, MaxThreads: 64, MinLevel: 1, MaxLevel: 19,
			prog: &progSpec{program: "zstd", threadsFlag: "-T", quiet: true},
		},
		&Engine{
			Name: "zstd-go", Format: FormatZstd, Kind: EngineLibrary,
			MinThreads: 1, MaxThreads: 64, MinLevel: 1, MaxLevel: 22,
			newWriter: newZstdWriter, newReader: newZstdReader,
		},

		// Library-only formats.
		&Engine{
			Name: "lz4-go", Format: FormatLZ4, Kind: EngineLibrary,
			MinThreads: 1, MaxThreads: 1, MinLevel: 0, MaxLevel: 9,
			newWriter: newLZ4Writer, newReader: newLZ4Reader,
		},
		&Engine{
			Name: "brotli-go", Format: FormatBrotli, Kind: EngineLibrary,
			MinThreads: 1, MaxThreads: 1, MinLevel: 0, MaxLevel: 11,
			newWriter: newBrotliWriter, newReader: newBrotliReader,
		},
		&Engine{
			Name: "snappy-go", Format: FormatSnappy, Kind: EngineLibrary,
			MinThreads: 1, MaxThreads: 1, MinLevel: 0, MaxLevel: 0,
			newWriter: newSnappyWriter, newReader: newSnappyReader,
		},
	)
	return c
}

func (c *Catalog) register(engines ...*Engine) {
	for _, e := range engines {
		c.engines[e.Format] = append(c.engines[e.Format], e)
	}
}

// Candidates returns the priority-ordered candidate list for a format. The
// returned slice must not be modified.
func (c *Catalog) Candidates(f Format) []*Engine {
	return c.engines[f]
}

// Available reports whether an engine can be used in the current
// environment. Library engines are always available; process engines
// require their executable on PATH. Probe results are cached for the
// catalog's lifetime and safe for concurrent use.
func (c *Catalog) Available(e *Engine) bool {
	if e.Kind == EngineLibrary {
		return true
	}
	if cached, ok := c.probes.Load(e.prog.program); ok {
		return cached.(bool)
	}
	_, err := c.lookPath(e.prog.program)
	found := err == nil
	c.probes.Store(e.prog.program, found)
	return found
}
