package streaming

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
)

// DefaultStreamingCapacity is the default streaming buffer size: 4 MiB.
const DefaultStreamingCapacity uint64 = 4 << 20

var (
	// ErrStreamingOverflow is the sentinel wrapped by every *OverflowError.
	ErrStreamingOverflow = errors.New("streaming: buffer overflow")
	// ErrBufferDestroyed is returned by writes to a destroyed streaming buffer.
	ErrBufferDestroyed = errors.New("streaming: buffer destroyed")
)

// OverflowError reports a write that did not fit in the remaining capacity.
type OverflowError struct {
	Offset    uint64
	Requested uint64
	Capacity  uint64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("streaming: write of %d bytes at offset %d exceeds capacity %d", e.Requested, e.Offset, e.Capacity)
}

func (e *OverflowError) Unwrap() error {
	return ErrStreamingOverflow
}

// StreamingStats are the lifetime counters of a streaming buffer.
type StreamingStats struct {
	Frames    uint64
	Overflows uint64
	// PeakBytes is the highest write offset reached in any frame.
	PeakBytes uint64
	// LastFrameBytes is the write offset at the end of the most recent frame.
	LastFrameBytes uint64
}

// streamingBuffer is the implementation of the StreamingBuffer interface.
type streamingBuffer struct {
	device   renderer.Device
	buffer   renderer.Buffer
	mapping  []byte
	label    string
	capacity uint64
	offset   uint64
	stats    StreamingStats
}

// StreamingBuffer is a fixed-capacity, persistently mapped, host-visible GPU buffer written
// linearly once per frame. The write offset only grows within a frame and never passes the
// capacity.
//
// A StreamingBuffer is owned by the frame goroutine. The caller must make sure the GPU finished
// reading the previous frame (Device.WaitForQueueIdle) before calling BeginFrame.
type StreamingBuffer interface {
	// BeginFrame resets the write offset to 0.
	BeginFrame()

	// Write copies p into the mapping at the current offset and advances the offset by len(p).
	// A zero-length write returns the current offset without advancing.
	//
	// Parameters:
	//   - p: the bytes to write
	//
	// Returns:
	//   - uint64: the offset p was written at
	//   - error: *OverflowError if p does not fit; the offset is left unchanged
	Write(p []byte) (uint64, error)

	// Flush makes the bytes written this frame visible to the GPU.
	//
	// Returns:
	//   - error: error if the device rejects the flush
	Flush() error

	// Offset returns the current write offset.
	Offset() uint64

	// Capacity returns the buffer capacity in bytes.
	Capacity() uint64

	// Buffer returns the underlying GPU buffer.
	Buffer() renderer.Buffer

	// Stats returns the lifetime counters.
	Stats() StreamingStats

	// Destroy releases the GPU buffer. Further writes fail with ErrBufferDestroyed.
	Destroy()
}

var _ StreamingBuffer = &streamingBuffer{}

// NewStreamingBuffer allocates a host-visible vertex buffer on dev and maps it once.
//
// Parameters:
//   - dev: the device the buffer is created on
//   - opts: optional StreamingBufferOption functions
//
// Returns:
//   - StreamingBuffer: the streaming buffer
//   - error: error if the buffer cannot be created or mapped
func NewStreamingBuffer(dev renderer.Device, opts ...StreamingBufferOption) (StreamingBuffer, error) {
	s := &streamingBuffer{
		device:   dev,
		label:    "StreamingBuffer",
		capacity: DefaultStreamingCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}

	buf, err := dev.CreateBuffer(renderer.BufferDescriptor{
		Label:       s.label,
		Size:        s.capacity,
		Usage:       renderer.BufferUsageVertex | renderer.BufferUsageTransferDst,
		HostVisible: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming buffer: %w", err)
	}

	mapping, err := dev.MapBuffer(buf)
	if err != nil {
		dev.DestroyBuffer(buf)
		return nil, fmt.Errorf("failed to map streaming buffer: %w", err)
	}
	if uint64(len(mapping)) < s.capacity {
		dev.DestroyBuffer(buf)
		return nil, fmt.Errorf("streaming buffer mapping is %d bytes, want %d", len(mapping), s.capacity)
	}

	s.buffer = buf
	s.mapping = mapping[:s.capacity]
	return s, nil
}

func (s *streamingBuffer) BeginFrame() {
	if s.stats.Frames > 0 {
		s.stats.LastFrameBytes = s.offset
	}
	s.stats.Frames++
	s.offset = 0
}

func (s *streamingBuffer) Write(p []byte) (uint64, error) {
	if s.mapping == nil {
		return 0, ErrBufferDestroyed
	}
	n := uint64(len(p))
	if n > s.capacity-s.offset {
		s.stats.Overflows++
		return s.offset, &OverflowError{Offset: s.offset, Requested: n, Capacity: s.capacity}
	}

	at := s.offset
	copy(s.mapping[at:], p)
	s.offset += n
	s.stats.PeakBytes = max(s.stats.PeakBytes, s.offset)
	return at, nil
}

func (s *streamingBuffer) Flush() error {
	if s.mapping == nil {
		return ErrBufferDestroyed
	}
	if s.offset == 0 {
		return nil
	}
	return s.device.FlushMappedRange(s.buffer, common.Range{Offset: 0, Size: s.offset})
}

func (s *streamingBuffer) Offset() uint64 {
	return s.offset
}

func (s *streamingBuffer) Capacity() uint64 {
	return s.capacity
}

func (s *streamingBuffer) Buffer() renderer.Buffer {
	return s.buffer
}

func (s *streamingBuffer) Stats() StreamingStats {
	return s.stats
}

func (s *streamingBuffer) Destroy() {
	if s.mapping == nil {
		return
	}
	s.device.DestroyBuffer(s.buffer)
	s.mapping = nil
	s.buffer = 0
	s.offset = 0
}
