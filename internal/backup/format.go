package backup

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/dasstrial/internal/models"
	"github.com/nvandessel/dasstrial/internal/store"
)

// FormatVersion is the bundle format written by Write.
const FormatVersion = 1

// MaxDecompressedSize is the maximum allowed size of a decompressed bundle payload (200MB).
const MaxDecompressedSize = 200 * 1024 * 1024

// Header is the plain-text first line of a bundle file.
type Header struct {
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	Checksum   string    `json:"checksum"`
	RunCount   int       `json:"run_count"`
	RowCount   int       `json:"row_count"`
	Compressed bool      `json:"compressed"`
}

// Run is one archived run with its long rows.
type Run struct {
	Meta store.RunMeta        `json:"meta"`
	Rows []models.LongRecord `json:"rows"`
}

// Bundle is the payload of a bundle file.
type Bundle struct {
	CreatedAt time.Time `json:"created_at"`
	Runs      []Run     `json:"runs"`
}

// RowCount returns the number of long rows across all runs.
func (b *Bundle) RowCount() int {
	n := 0
	for _, r := range b.Runs {
		n += len(r.Rows)
	}
	return n
}

// Write writes b as a header line followed by the gzip-compressed payload.
func Write(path string, b *Bundle) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	var compressed bytes.Buffer
	gzw, err := gzip.NewWriterLevel(&compressed, gzip.DefaultCompression)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gzw.Write(payload); err != nil {
		return fmt.Errorf("compressing payload: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}

	header := Header{
		Version:    FormatVersion,
		CreatedAt:  b.CreatedAt,
		Checksum:   checksum(compressed.Bytes()),
		RunCount:   len(b.Runs),
		RowCount:   b.RowCount(),
		Compressed: true,
	}
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshaling header: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}

	w := bufio.NewWriter(f)
	w.Write(headerBytes)
	w.WriteByte('\n')
	w.Write(compressed.Bytes())
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing bundle: %w", err)
	}
	return f.Close()
}

// Read reads a bundle file, verifies the checksum, and decompresses the payload.
func Read(path string) (*Bundle, error) {
	header, compressedData, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	if err := verify(header, compressedData); err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressedData))
	if err != nil {
		return nil, fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	decompressed, err := io.ReadAll(io.LimitReader(gzr, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	if int64(len(decompressed)) > MaxDecompressedSize {
		return nil, fmt.Errorf("decompressed payload exceeds maximum size of %d bytes", MaxDecompressedSize)
	}

	var b Bundle
	if err := json.Unmarshal(decompressed, &b); err != nil {
		return nil, fmt.Errorf("parsing bundle data: %w", err)
	}
	return &b, nil
}

// ReadHeader reads only the header line of a bundle file.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return parseHeader(bufio.NewReader(f))
}

// VerifyChecksum checks the integrity of a bundle file without decompressing it.
func VerifyChecksum(path string) error {
	header, compressedData, err := readRaw(path)
	if err != nil {
		return err
	}
	return verify(header, compressedData)
}

func readRaw(path string) (*Header, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	header, err := parseHeader(reader)
	if err != nil {
		return nil, nil, err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("reading compressed payload: %w", err)
	}
	return header, data, nil
}

func parseHeader(r *bufio.Reader) (*Header, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}
	var header Header
	if err := json.Unmarshal(bytes.TrimSpace(line), &header); err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported bundle version %d", header.Version)
	}
	return &header, nil
}

func verify(header *Header, compressedData []byte) error {
	if actual := checksum(compressedData); actual != header.Checksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", header.Checksum, actual)
	}
	return nil
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}
