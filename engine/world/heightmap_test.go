package world

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequentialHeightmap returns a zeroed header followed by samples 0, 1, 2, ... (wrapping at 2^16).
func sequentialHeightmap() []byte {
	buf := make([]byte, HeightmapHeaderSize, HeightmapHeaderSize+2*HeightmapResolution*HeightmapResolution)
	for i := range HeightmapResolution * HeightmapResolution {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(i))
	}
	return buf
}

func TestReadHeightmapSequential(t *testing.T) {
	data := sequentialHeightmap()
	require.Len(t, data, 20+2*513*513)

	h, err := ReadHeightmap(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Len(t, h.Samples(), HeightmapResolution*HeightmapResolution)
	assert.Equal(t, uint16(0), h.At(0, 0))
	assert.Equal(t, uint16(1), h.At(1, 0))
	assert.Equal(t, uint16(513), h.At(0, 1))
	assert.Equal(t, uint16(10*513+7), h.At(7, 10))
	assert.Equal(t, uint16((512*513+512)%65536), h.At(512, 512))
	assert.Equal(t, [HeightmapHeaderSize]byte{}, h.Header())
}

func TestHeightmapAtClamps(t *testing.T) {
	h, err := ReadHeightmap(bytes.NewReader(sequentialHeightmap()))
	require.NoError(t, err)

	assert.Equal(t, h.At(0, 0), h.At(-5, -1))
	assert.Equal(t, h.At(512, 3), h.At(900, 3))
}

func TestReadHeightmapTruncated(t *testing.T) {
	full := sequentialHeightmap()
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short header", full[:10]},
		{"header only", full[:HeightmapHeaderSize]},
		{"missing last sample", full[:len(full)-2]},
		{"odd byte", full[:len(full)-1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHeightmap(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, ErrHeightmapTruncated)
		})
	}
}

func TestHeightmapMip(t *testing.T) {
	h, err := ReadHeightmap(bytes.NewReader(sequentialHeightmap()))
	require.NoError(t, err)

	mip0, size0, err := h.Mip(0)
	require.NoError(t, err)
	assert.Equal(t, HeightmapResolution, size0)
	assert.Equal(t, h.Samples(), mip0)

	mip1, size1, err := h.Mip(1)
	require.NoError(t, err)
	assert.Equal(t, 257, size1)
	require.Len(t, mip1, 257*257)
	assert.Equal(t, h.At(2, 0), mip1[1])
	assert.Equal(t, h.At(512, 512), mip1[len(mip1)-1])

	mip9, size9, err := h.Mip(HeightmapMaxMip)
	require.NoError(t, err)
	assert.Equal(t, 2, size9)
	assert.Equal(t, []uint16{h.At(0, 0), h.At(512, 0), h.At(0, 512), h.At(512, 512)}, mip9)

	_, _, err = h.Mip(10)
	assert.Error(t, err)
	_, _, err = h.Mip(-1)
	assert.Error(t, err)
}

func TestLoadHeightmap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heightmap.hmp")
	require.NoError(t, os.WriteFile(path, sequentialHeightmap(), 0o644))

	h, err := LoadHeightmap(path)
	require.NoError(t, err)
	assert.Equal(t, uint16(513), h.At(0, 1))

	_, err = LoadHeightmap(filepath.Join(t.TempDir(), "missing.hmp"))
	assert.Error(t, err)
}
