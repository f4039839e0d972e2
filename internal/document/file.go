package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cexplorer/internal/aspect"
)

// ReadFile reads the document at path, choosing the codec by extension.
func ReadFile(path string) (aspect.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := FormatFromPath(path)
	s, err := Decode(f, data)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse %s document: %w", path, f, err)
	}
	return s, nil
}

// WriteFile writes s to path atomically, choosing the codec by extension.
func WriteFile(path string, s aspect.Store) error {
	data, err := Encode(FormatFromPath(path), s)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return writeAtomic(path, data)
}

// Convert rewrites the document at in into out, changing format by extension.
func Convert(in, out string) error {
	s, err := ReadFile(in)
	if err != nil {
		return err
	}
	return WriteFile(out, s)
}

func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}
