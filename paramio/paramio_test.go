package paramio

import (
	"bytes"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeIsBigEndian(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, []float32{1, -2}))
	assert.Equal(t, []byte{0x3f, 0x80, 0x00, 0x00, 0xc0, 0x00, 0x00, 0x00}, buf.Bytes())
}

func TestDecode(t *testing.T) {
	want := []float32{0, 1.5, -0.25, float32(math.Inf(1)), math.SmallestNonzeroFloat32}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, want))
	assert.Equal(t, len(want)*Width, buf.Len())

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = Decode(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = Decode(bytes.NewReader([]byte{0x3f, 0x80, 0x00, 0x00, 0x01}))
	assert.Error(t, err)
}

func TestFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "paramio")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	f := File{Path: filepath.Join(dir, "trained_data.bytes")}
	_, err = f.Load()
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)), "%v", err)

	want := []float32{0.1, 0.2, 0.3}
	require.NoError(t, f.Save(want))
	got, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	info, err := os.Stat(f.Path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(want)*Width), info.Size())

	// overwrite with a shorter vector
	require.NoError(t, f.Save([]float32{7}))
	got, err = f.Load()
	require.NoError(t, err)
	assert.Equal(t, []float32{7}, got)

	entries, err := ioutil.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files left behind")
}

func TestFileSaveFailureKeepsOld(t *testing.T) {
	dir, err := ioutil.TempDir("", "paramio")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	f := File{Path: filepath.Join(dir, "params")}
	require.NoError(t, f.Save([]float32{1, 2}))

	bad := File{Path: filepath.Join(dir, "missing", "params")}
	assert.Error(t, bad.Save([]float32{3}))

	got, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, got)
}

func TestFileTruncated(t *testing.T) {
	dir, err := ioutil.TempDir("", "paramio")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "params")
	require.NoError(t, ioutil.WriteFile(path, []byte{1, 2, 3, 4, 5, 6}, 0644))
	_, err = File{Path: path}.Load()
	assert.Error(t, err)
	assert.False(t, os.IsNotExist(errors.Cause(err)))
}
