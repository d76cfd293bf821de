package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeDeterministic(t *testing.T) {
	s := sampleSnapshot()

	first, err := Serialize(s)
	require.NoError(t, err)
	second, err := Serialize(s)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Contains(t, string(first), `"format_version": "1"`)
}

func TestSerializeNil(t *testing.T) {
	_, err := Serialize(nil)
	require.Error(t, err)
}

func TestLoadRoundTrip(t *testing.T) {
	original := sampleSnapshot()
	data, err := Serialize(original)
	require.NoError(t, err)

	loaded, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestLoadRejectsUnknownFormatVersion(t *testing.T) {
	_, err := Load([]byte(`{"format_version": "99", "root_namespace": "x", "entities": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported snapshot format version")
}

func TestLoadRejectsGarbage(t *testing.T) {
	_, err := Load([]byte("not json"))
	require.Error(t, err)
}

func TestWriteFileAndLoadFile(t *testing.T) {
	s := sampleSnapshot()
	path := filepath.Join(t.TempDir(), "build", "strata.meta.json")

	require.NoError(t, WriteFile(s, path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestWriteFileCompressed(t *testing.T) {
	s := sampleSnapshot()
	path := filepath.Join(t.TempDir(), "strata.meta.json.gz")

	require.NoError(t, WriteFile(s, path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, isGzip(raw), "expected gzip output for .gz path")

	plain, err := Serialize(s)
	require.NoError(t, err)
	assert.Less(t, len(raw), len(plain))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestWriteFileEmptyPath(t *testing.T) {
	require.Error(t, WriteFile(sampleSnapshot(), ""))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
