package xopen

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// allToolsCatalog pretends every executable exists.
func allToolsCatalog() *Catalog {
	c := NewCatalog()
	c.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }
	return c
}

// noToolsCatalog pretends PATH is empty.
func noToolsCatalog() *Catalog {
	c := NewCatalog()
	c.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	return c
}

func TestSelectPrefersProcessEngines(t *testing.T) {
	c := allToolsCatalog()
	sel, err := c.Select(FormatGzip, threadsUnset, levelUnset)
	require.NoError(t, err)
	require.Equal(t, "pigz", sel.Engine.Name)
	require.Equal(t, EngineProcess, sel.Engine.Kind)
}

func TestSelectFallsBackToLibrary(t *testing.T) {
	c := noToolsCatalog()
	for _, format := range []Format{FormatGzip, FormatBzip2, FormatXz, FormatZstd} {
		sel, err := c.Select(format, threadsUnset, levelUnset)
		require.NoError(t, err, "format %s", format)
		require.Equal(t, EngineLibrary, sel.Engine.Kind, "format %s", format)
	}
}

func TestSelectZeroThreadsNeverPicksProcess(t *testing.T) {
	c := allToolsCatalog()
	probed := false
	c.lookPath = func(name string) (string, error) {
		probed = true
		return "/usr/bin/" + name, nil
	}
	for _, format := range []Format{FormatGzip, FormatBzip2, FormatXz, FormatZstd} {
		sel, err := c.Select(format, 0, levelUnset)
		require.NoError(t, err, "format %s", format)
		require.Equal(t, EngineLibrary, sel.Engine.Kind, "format %s", format)
		require.Equal(t, 1, sel.Threads, "format %s", format)
	}
	require.False(t, probed, "threads=0 must not probe for executables")
}

func TestSelectDefaultLevels(t *testing.T) {
	c := noToolsCatalog()
	tests := []struct {
		format Format
		want   int
	}{
		{FormatGzip, 1},
		{FormatBzip2, 9},
		{FormatXz, 6},
		{FormatZstd, 3},
	}
	for _, tt := range tests {
		sel, err := c.Select(tt.format, 0, levelUnset)
		require.NoError(t, err)
		require.Equal(t, tt.want, sel.Level, "format %s", tt.format)
	}
}

func TestSelectClampsLevelAndThreads(t *testing.T) {
	c := allToolsCatalog()

	// pigz caps at level 9 and 64 threads.
	sel, err := c.Select(FormatGzip, 1000, 99)
	require.NoError(t, err)
	require.Equal(t, "pigz", sel.Engine.Name)
	require.Equal(t, 9, sel.Level)
	require.Equal(t, 64, sel.Threads)

	// zstd-go accepts the full zstd level range.
	c2 := noToolsCatalog()
	sel, err = c2.Select(FormatZstd, 0, 22)
	require.NoError(t, err)
	require.Equal(t, "zstd-go", sel.Engine.Name)
	require.Equal(t, 22, sel.Level)
}

func TestSelectDefaultThreadsCapped(t *testing.T) {
	c := allToolsCatalog()
	sel, err := c.Select(FormatGzip, threadsUnset, levelUnset)
	require.NoError(t, err)
	require.LessOrEqual(t, sel.Threads, 4)
	require.GreaterOrEqual(t, sel.Threads, 1)
}

func TestSelectUnknownFormat(t *testing.T) {
	c := NewCatalog()
	_, err := c.Select(Format("7z"), threadsUnset, levelUnset)
	require.ErrorIs(t, err, ErrNoBackend)

	var be *BackendError
	require.ErrorAs(t, err, &be)
	require.Equal(t, Format("7z"), be.Format)
}

func TestSelectSingleThreadPrefersSingleThreadedLibrary(t *testing.T) {
	// With threads=0 the threaded pgzip engine (minimum two workers) is
	// skipped in favor of the single-threaded gzip-go.
	c := noToolsCatalog()
	sel, err := c.Select(FormatGzip, 0, levelUnset)
	require.NoError(t, err)
	require.Equal(t, "gzip-go", sel.Engine.Name)
}
