package metadata

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Serialize converts a snapshot to indented JSON. The output is
// deterministic: the same snapshot always produces the same bytes, which
// keeps generated artifacts diff-friendly.
func Serialize(snapshot *Snapshot) ([]byte, error) {
	if snapshot == nil {
		return nil, fmt.Errorf("snapshot cannot be nil")
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	return data, nil
}

// Load parses a snapshot from serialized bytes, transparently decompressing
// gzip input, and rejects snapshots with an unknown format version.
func Load(data []byte) (*Snapshot, error) {
	if isGzip(data) {
		decompressed, err := decompress(data)
		if err != nil {
			return nil, err
		}
		data = decompressed
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if snapshot.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot format version %q (supported: %q)",
			snapshot.FormatVersion, FormatVersion)
	}
	return &snapshot, nil
}

// WriteFile writes a snapshot to outputPath, creating parent directories as
// needed. A path ending in .gz is written gzip-compressed.
func WriteFile(snapshot *Snapshot, outputPath string) error {
	if outputPath == "" {
		return fmt.Errorf("output path cannot be empty")
	}

	data, err := Serialize(snapshot)
	if err != nil {
		return err
	}
	if strings.HasSuffix(outputPath, ".gz") {
		if data, err = compress(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot to %s: %w", outputPath, err)
	}
	return nil
}

// LoadFile reads and parses a snapshot file.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot from %s: %w", path, err)
	}
	snapshot, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snapshot, nil
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	decompressed, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	return decompressed, nil
}
