package jsonfile

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gtdb/internal/fsutil"
)

type sample struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

func TestCompressionFor(t *testing.T) {
	assert.Equal(t, None, CompressionFor("dbinfos.json"))
	assert.Equal(t, Zstd, CompressionFor("dbinfos.json.zst"))
	assert.Equal(t, Zstd, CompressionFor("dbinfos.json.ZSTD"))
	assert.Equal(t, LZ4, CompressionFor("dbinfos.json.lz4"))
	assert.Equal(t, "zstd", Zstd.String())
}

func TestExtension(t *testing.T) {
	for format, want := range map[string]string{
		"":     ".json",
		"json": ".json",
		"zst":  ".json.zst",
		"zstd": ".json.zst",
		"LZ4":  ".json.lz4",
	} {
		got, err := Extension(format)
		require.NoError(t, err, format)
		assert.Equal(t, want, got, format)
	}

	_, err := Extension("pkl")
	assert.Error(t, err)
}

func TestWriteRead_AllCompressions(t *testing.T) {
	in := sample{Name: "car", Values: []float64{1.5, -2, 3.25}}

	for _, path := range []string{"/out/a.json", "/out/a.json.zst", "/out/a.json.lz4"} {
		t.Run(path, func(t *testing.T) {
			mfs := fsutil.NewMemoryFileSystem()
			require.NoError(t, Write(mfs, path, in))

			var out sample
			require.NoError(t, Read(mfs, path, &out))
			if diff := cmp.Diff(in, out); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMarshal_CompressedDiffersFromPlain(t *testing.T) {
	in := sample{Name: "pedestrian", Values: make([]float64, 256)}

	plain, err := Marshal("x.json", in)
	require.NoError(t, err)
	zst, err := Marshal("x.json.zst", in)
	require.NoError(t, err)

	assert.False(t, bytes.Equal(plain, zst))
	assert.Less(t, len(zst), len(plain))
}

func TestUnmarshal_Corrupt(t *testing.T) {
	var out sample
	assert.Error(t, Unmarshal("x.json.zst", []byte("not zstd"), &out))
	assert.Error(t, Unmarshal("x.json", []byte("{"), &out))
}

func TestRead_Missing(t *testing.T) {
	var out sample
	err := Read(fsutil.NewMemoryFileSystem(), "/nope.json", &out)
	assert.Error(t, err)
}
