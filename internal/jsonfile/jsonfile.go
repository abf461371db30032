// Package jsonfile reads and writes JSON documents whose compression is
// selected by file extension: ".zst"/".zstd" for zstd, ".lz4" for lz4,
// anything else is stored uncompressed.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/banshee-data/gtdb/internal/fsutil"
)

// Compression identifies the on-disk compression of a JSON file.
type Compression int

const (
	None Compression = iota
	Zstd
	LZ4
)

func (c Compression) String() string {
	switch c {
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return "none"
	}
}

// Format names accepted by Extension.
const (
	FormatJSON = "json"
	FormatZstd = "zst"
	FormatLZ4  = "lz4"
)

// Extension returns the file extension (with leading dot) for a format name.
func Extension(format string) (string, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		return ".json", nil
	case FormatZstd, "zstd":
		return ".json.zst", nil
	case FormatLZ4:
		return ".json.lz4", nil
	default:
		return "", fmt.Errorf("unknown index format %q (want json, zst or lz4)", format)
	}
}

// CompressionFor returns the compression implied by path's extension.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return Zstd
	case ".lz4":
		return LZ4
	default:
		return None
	}
}

// Marshal encodes v as JSON and compresses it according to path.
func Marshal(path string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	switch CompressionFor(path) {
	case Zstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(raw, nil), nil
	case LZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return raw, nil
	}
}

// Unmarshal decompresses data according to path and decodes it into v.
func Unmarshal(path string, data []byte, v any) error {
	raw := data
	switch CompressionFor(path) {
	case Zstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer dec.Close()
		raw, err = dec.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("zstd decompress %s: %w", filepath.Base(path), err)
		}
	case LZ4:
		var err error
		raw, err = io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return fmt.Errorf("lz4 decompress %s: %w", filepath.Base(path), err)
		}
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Write marshals v and atomically replaces path on fsys.
func Write(fsys fsutil.FileSystem, path string, v any) error {
	data, err := Marshal(path, v)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(fsys, path, data, 0o644)
}

// Read loads path from fsys into v.
func Read(fsys fsutil.FileSystem, path string, v any) error {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Unmarshal(path, data, v)
}
