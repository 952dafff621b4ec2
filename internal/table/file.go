package table

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nvandessel/dasstrial/internal/models"
)

// WriteWideFile writes the wide table to path, creating parent directories.
func WriteWideFile(path string, records []models.WideRecord) error {
	return writeFile(path, func(w io.Writer) error { return WriteWide(w, records) })
}

// WriteLongFile writes the long table to path as CSV.
func WriteLongFile(path string, records []models.LongRecord) error {
	return writeFile(path, func(w io.Writer) error { return WriteLong(w, records) })
}

// WriteLongArrowFile writes the long table to path as an Arrow IPC stream.
func WriteLongArrowFile(path string, records []models.LongRecord) error {
	return writeFile(path, func(w io.Writer) error { return WriteLongArrow(w, records) })
}

// ReadWideFile reads a wide CSV table from path.
func ReadWideFile(path string) ([]models.WideRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening wide table: %w", err)
	}
	defer f.Close()
	return ReadWide(bufio.NewReader(f))
}

// ReadLongFile reads a long table from path. Files ending in .arrow are read
// as Arrow IPC, anything else as CSV.
func ReadLongFile(path string) ([]models.LongRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening long table: %w", err)
	}
	defer f.Close()
	if filepath.Ext(path) == ".arrow" {
		return ReadLongArrow(bufio.NewReader(f))
	}
	return ReadLong(bufio.NewReader(f))
}

// writeFile writes to a temp file next to path and renames it into place,
// so a failed write never leaves a truncated table behind.
func writeFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	return os.Rename(tmpName, path)
}
