package streaming

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer/renderertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStreamingBufferDefaults(t *testing.T) {
	dev := renderertest.NewDevice()
	sb, err := NewStreamingBuffer(dev)
	require.NoError(t, err)

	assert.Equal(t, DefaultStreamingCapacity, sb.Capacity())
	assert.Equal(t, uint64(4*1024*1024), sb.Capacity())
	assert.Zero(t, sb.Offset())

	desc, ok := dev.Buffer(sb.Buffer())
	require.True(t, ok)
	assert.True(t, desc.HostVisible)
	assert.Equal(t, sb.Capacity(), desc.Size)
	assert.NotZero(t, desc.Usage&renderer.BufferUsageVertex)
}

func TestStreamingBufferOverflowBoundary(t *testing.T) {
	dev := renderertest.NewDevice()
	sb, err := NewStreamingBuffer(dev, WithCapacity(256))
	require.NoError(t, err)

	sb.BeginFrame()
	at, err := sb.Write(make([]byte, 256))
	require.NoError(t, err, "writing exactly the capacity succeeds")
	assert.Zero(t, at)
	assert.Equal(t, uint64(256), sb.Offset())

	sb.BeginFrame()
	_, err = sb.Write(make([]byte, 100))
	require.NoError(t, err)
	_, err = sb.Write(make([]byte, 157))
	require.ErrorIs(t, err, ErrStreamingOverflow)
	assert.Equal(t, uint64(100), sb.Offset(), "offset unchanged after overflow")

	var oe *OverflowError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, OverflowError{Offset: 100, Requested: 157, Capacity: 256}, *oe)

	at, err = sb.Write(make([]byte, 156))
	require.NoError(t, err, "the remaining space is still usable")
	assert.Equal(t, uint64(100), at)

	stats := sb.Stats()
	assert.Equal(t, uint64(1), stats.Overflows)
	assert.Equal(t, uint64(256), stats.PeakBytes)
	assert.Equal(t, uint64(2), stats.Frames)
	assert.Equal(t, uint64(256), stats.LastFrameBytes)
}

func TestStreamingBufferOffsetsAreMonotonic(t *testing.T) {
	dev := renderertest.NewDevice()
	sb, err := NewStreamingBuffer(dev, WithCapacity(1024))
	require.NoError(t, err)

	sb.BeginFrame()
	var prev uint64
	for i := range 10 {
		chunk := bytes.Repeat([]byte{byte(i + 1)}, 10+i)
		at, err := sb.Write(chunk)
		require.NoError(t, err)
		assert.Equal(t, prev, at)
		prev = at + uint64(len(chunk))
		assert.Equal(t, prev, sb.Offset())
		assert.Equal(t, chunk, dev.Mapped(sb.Buffer())[at:prev])
	}

	at, err := sb.Write(nil)
	require.NoError(t, err)
	assert.Equal(t, prev, at)
	assert.Equal(t, prev, sb.Offset(), "empty writes do not advance")

	sb.BeginFrame()
	assert.Zero(t, sb.Offset())
}

func TestStreamingBufferFlush(t *testing.T) {
	dev := renderertest.NewDevice()
	sb, err := NewStreamingBuffer(dev, WithCapacity(512))
	require.NoError(t, err)

	sb.BeginFrame()
	require.NoError(t, sb.Flush())
	assert.Empty(t, dev.Flushes(), "nothing written, nothing flushed")

	_, err = sb.Write(make([]byte, 96))
	require.NoError(t, err)
	require.NoError(t, sb.Flush())
	require.Len(t, dev.Flushes(), 1)
	assert.Equal(t, renderertest.Flush{Buffer: sb.Buffer(), Range: common.Range{Offset: 0, Size: 96}}, dev.Flushes()[0])
}

func TestStreamingBufferDestroy(t *testing.T) {
	dev := renderertest.NewDevice()
	sb, err := NewStreamingBuffer(dev, WithCapacity(64), WithBufferLabel("Instances"))
	require.NoError(t, err)
	assert.Equal(t, 1, dev.Live(renderertest.KindBuffer))

	sb.Destroy()
	assert.Zero(t, dev.Live(renderertest.KindBuffer))
	sb.Destroy()
	assert.Zero(t, dev.InvalidDestroys())

	_, err = sb.Write([]byte{1})
	assert.ErrorIs(t, err, ErrBufferDestroyed)
	assert.ErrorIs(t, sb.Flush(), ErrBufferDestroyed)

	events := dev.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "Instances", events[0].Label)
}

func TestNewStreamingBufferCreateFailure(t *testing.T) {
	dev := renderertest.NewDevice()
	boom := errors.New("out of memory")
	dev.Fail(renderertest.KindBuffer, boom)

	_, err := NewStreamingBuffer(dev)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, dev.Live(""))
}
