package xopen

import (
	"log/slog"
	"runtime"
)

// Selection is the outcome of picking an engine for a format, thread and
// level request. Threads and Level hold the effective values after clamping
// to the chosen engine's range.
type Selection struct {
	Engine  *Engine
	Threads int
	Level   int
}

// Per-format default compression levels, applied when the caller supplied
// none.
var defaultLevels = map[Format]int{
	FormatGzip:   1,
	FormatBzip2:  9,
	FormatXz:     6,
	FormatZstd:   3,
	FormatLZ4:    0,
	FormatBrotli: 6,
	FormatSnappy: 0,
}

// defaultThreads caps the automatic thread count: more than four threads
// rarely helps the compressors this package drives.
func defaultThreads() int {
	if n := runtime.NumCPU(); n < 4 {
		return n
	}
	return 4
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Select walks the candidate list for a format in priority order and
// returns the first engine that is available and can honor the request
// after clamping threads and level into its declared range.
//
// threads == threadsUnset means min(NumCPU, 4); threads == 0 forces
// in-process operation and removes every process engine from consideration.
// level == levelUnset means the per-format default.
//
// Select is a pure function over the current environment; availability
// probes are cached inside the catalog.
func (c *Catalog) Select(format Format, threads, level int) (Selection, error) {
	candidates := c.engines[format]
	if len(candidates) == 0 {
		return Selection{}, &BackendError{Format: format, Threads: threads, Level: level}
	}

	effThreads := threads
	if effThreads == threadsUnset {
		effThreads = defaultThreads()
	}
	inProcessOnly := effThreads == 0

	effLevel := level
	if effLevel == levelUnset {
		effLevel = defaultLevels[format]
	}

	for _, e := range candidates {
		// threads == 0 means single-threaded and in-process: skip
		// process engines and library engines that only run threaded.
		if inProcessOnly && (e.Kind == EngineProcess || e.MinThreads > 1) {
			continue
		}
		if !c.Available(e) {
			continue
		}
		sel := Selection{
			Engine:  e,
			Threads: clamp(effThreads, e.MinThreads, e.MaxThreads),
			Level:   clamp(effLevel, e.MinLevel, e.MaxLevel),
		}
		slog.Debug("xopen: backend selected",
			"format", format, "engine", e.Name,
			"threads", sel.Threads, "level", sel.Level)
		return sel, nil
	}
	return Selection{}, &BackendError{Format: format, Threads: threads, Level: level}
}
