package draw

import "github.com/Carmen-Shannon/oxy-world/engine/renderer"

// RecorderBuilderOption is a functional option applied to a recorder during construction via NewRecorder.
type RecorderBuilderOption func(*recorder)

// WithPushConstantStages sets the shader stages the push constants are pushed for.
// It must match the stages the pipeline layout declares.
//
// Parameters:
//   - stages: the shader stages
//
// Returns:
//   - RecorderBuilderOption: a function that applies the stages to a recorder
func WithPushConstantStages(stages renderer.ShaderStage) RecorderBuilderOption {
	return func(r *recorder) {
		r.stages = stages
	}
}

// WithDebugLabel wraps every recording in a debug region with the given label. An empty label
// disables the region.
//
// Parameters:
//   - label: the debug region label
//
// Returns:
//   - RecorderBuilderOption: a function that applies the label to a recorder
func WithDebugLabel(label string) RecorderBuilderOption {
	return func(r *recorder) {
		r.label = label
	}
}
