package xopen

import "io"

// Convenience wrappers for whole-file operations.

// ReadFile opens name for reading, decompresses it fully and returns the
// plain bytes.
func ReadFile(name string, opts ...Option) ([]byte, error) {
	f, err := Open(name, append(opts, WithMode(ModeRead))...)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return data, nil
}

// WriteFile compresses data and writes it to name, choosing the format
// from the suffix unless overridden.
func WriteFile(name string, data []byte, opts ...Option) error {
	f, err := Open(name, append(opts, WithMode(ModeWrite))...)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
