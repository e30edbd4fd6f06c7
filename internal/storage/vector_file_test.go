package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aikinexis/flint/internal/types"
)

func TestVectorFile_AppendGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	vf, err := OpenVectorFile(path, 3)
	require.NoError(t, err)
	defer vf.Close()

	id0, err := vf.Append(types.Vector{0.1, 0.2, 0.3})
	require.NoError(t, err)
	id1, err := vf.Append(types.Vector{1, 0, -1})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id0)
	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(2), vf.Count())

	got, err := vf.Get(1)
	require.NoError(t, err)
	assert.Equal(t, types.Vector{1, 0, -1}, got)
}

func TestVectorFile_GrowthBeyondInitialCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	vf, err := OpenVectorFile(path, 2)
	require.NoError(t, err)
	defer vf.Close()

	// Past the initial 256-vector capacity to force resize + remap.
	for i := 0; i < 300; i++ {
		_, err := vf.Append(types.Vector{float64(i), float64(-i)})
		require.NoError(t, err)
	}
	require.Equal(t, uint64(300), vf.Count())

	got, err := vf.Get(299)
	require.NoError(t, err)
	assert.Equal(t, types.Vector{299, -299}, got)
}

func TestVectorFile_ReopenPreservesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")

	vf, err := OpenVectorFile(path, 2)
	require.NoError(t, err)
	_, err = vf.Append(types.Vector{0.5, 0.25})
	require.NoError(t, err)
	require.NoError(t, vf.Close())

	reopened, err := OpenVectorFile(path, 2)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, uint64(1), reopened.Count())
	got, err := reopened.Get(0)
	require.NoError(t, err)
	assert.Equal(t, types.Vector{0.5, 0.25}, got)
}

func TestVectorFile_DimensionMismatchRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")

	vf, err := OpenVectorFile(path, 4)
	require.NoError(t, err)
	require.NoError(t, vf.Close())

	_, err = OpenVectorFile(path, 8)
	assert.Error(t, err, "stored dimension must match the requested one")
}

func TestVectorFile_AppendWrongDimension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	vf, err := OpenVectorFile(path, 3)
	require.NoError(t, err)
	defer vf.Close()

	_, err = vf.Append(types.Vector{1, 2})
	assert.Error(t, err)
}

func TestVectorFile_GetOutOfBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	vf, err := OpenVectorFile(path, 2)
	require.NoError(t, err)
	defer vf.Close()

	_, err = vf.Get(0)
	assert.Error(t, err)
}
