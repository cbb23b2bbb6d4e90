package streaming

// StreamingBufferOption is a functional option applied to a streaming buffer during construction
// via NewStreamingBuffer.
type StreamingBufferOption func(*streamingBuffer)

// WithCapacity sets the buffer capacity in bytes. Zero keeps the default.
//
// Parameters:
//   - bytes: the capacity
//
// Returns:
//   - StreamingBufferOption: a function that applies the capacity to a streaming buffer
func WithCapacity(bytes uint64) StreamingBufferOption {
	return func(s *streamingBuffer) {
		if bytes > 0 {
			s.capacity = bytes
		}
	}
}

// WithBufferLabel sets the debug label of the underlying GPU buffer.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - StreamingBufferOption: a function that applies the label to a streaming buffer
func WithBufferLabel(label string) StreamingBufferOption {
	return func(s *streamingBuffer) {
		s.label = label
	}
}
