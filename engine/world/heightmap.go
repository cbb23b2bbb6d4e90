package world

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	// HeightmapHeaderSize is the number of header bytes preceding the samples.
	HeightmapHeaderSize = 20
	// HeightmapResolution is the number of samples along each edge of a cell heightmap.
	HeightmapResolution = 513
	// HeightmapMaxMip is the coarsest mip level; it keeps the four corner samples.
	HeightmapMaxMip = 9
)

// ErrHeightmapTruncated is returned when the input ends before every sample was read.
var ErrHeightmapTruncated = errors.New("world: heightmap truncated")

// Heightmap is a 513x513 grid of 16-bit height samples stored row-major.
type Heightmap struct {
	header  [HeightmapHeaderSize]byte
	samples []uint16
}

// ReadHeightmap parses a heightmap: a 20-byte header followed by 513*513 little-endian uint16
// samples in row-major order. Trailing bytes are ignored.
//
// Parameters:
//   - r: the source
//
// Returns:
//   - *Heightmap: the parsed heightmap
//   - error: ErrHeightmapTruncated on short input, or the read error
func ReadHeightmap(r io.Reader) (*Heightmap, error) {
	h := &Heightmap{samples: make([]uint16, HeightmapResolution*HeightmapResolution)}

	if _, err := io.ReadFull(r, h.header[:]); err != nil {
		return nil, heightmapReadError("header", err)
	}
	if err := binary.Read(r, binary.LittleEndian, h.samples); err != nil {
		return nil, heightmapReadError("samples", err)
	}
	return h, nil
}

func heightmapReadError(part string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: reading %s: %w", ErrHeightmapTruncated, part, err)
	}
	return fmt.Errorf("reading heightmap %s: %w", part, err)
}

// LoadHeightmap reads a heightmap file.
//
// Parameters:
//   - path: the file path
//
// Returns:
//   - *Heightmap: the parsed heightmap
//   - error: error if the file cannot be opened or parsed
func LoadHeightmap(path string) (*Heightmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open heightmap: %w", err)
	}
	defer f.Close()

	h, err := ReadHeightmap(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// Header returns the raw header bytes.
func (h *Heightmap) Header() [HeightmapHeaderSize]byte {
	return h.header
}

// At returns the sample at column x and row y, clamping coordinates to the grid edge.
func (h *Heightmap) At(x, y int) uint16 {
	x = min(max(x, 0), HeightmapResolution-1)
	y = min(max(y, 0), HeightmapResolution-1)
	return h.samples[y*HeightmapResolution+x]
}

// Samples returns the row-major samples. The slice aliases the heightmap.
func (h *Heightmap) Samples() []uint16 {
	return h.samples
}

// Mip returns a square grid of (512>>level)+1 samples per edge taking every 2^level-th sample,
// so every mip keeps the cell's edge samples and neighbouring cells stay seamless.
//
// Parameters:
//   - level: the mip level in [0, HeightmapMaxMip]
//
// Returns:
//   - []uint16: the row-major mip samples
//   - int: the mip edge length
//   - error: error if level is out of range
func (h *Heightmap) Mip(level int) ([]uint16, int, error) {
	if level < 0 || level > HeightmapMaxMip {
		return nil, 0, fmt.Errorf("heightmap mip level %d out of range [0, %d]", level, HeightmapMaxMip)
	}
	size := ((HeightmapResolution - 1) >> level) + 1
	step := 1 << level
	out := make([]uint16, 0, size*size)
	for y := range size {
		for x := range size {
			out = append(out, h.samples[y*step*HeightmapResolution+x*step])
		}
	}
	return out, size, nil
}
