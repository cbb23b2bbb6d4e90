package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// DeviceBuilderOption is a functional option applied to a WebGPU device during construction via NewWGPUDevice.
type DeviceBuilderOption func(*wgpuDevice)

// WithCompatibleSurface makes adapter selection prefer an adapter that can present to the given surface.
// The surface is only used for adapter selection; the device never presents to it.
//
// Parameters:
//   - desc: the surface descriptor, typically from wgpuglfw.GetSurfaceDescriptor
//
// Returns:
//   - DeviceBuilderOption: a function that applies the surface option to a device
func WithCompatibleSurface(desc *wgpu.SurfaceDescriptor) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.surfaceDescriptor = desc
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the force software renderer option to a device
func WithForceSoftwareRenderer(force bool) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.forceFallbackAdapter = force
	}
}

// WithMaxPushConstantSize sets the push constant block size requested from the adapter.
// The default of 128 bytes matches the minimum guaranteed by most native backends.
//
// Parameters:
//   - size: the push constant size in bytes
//
// Returns:
//   - DeviceBuilderOption: a function that applies the push constant option to a device
func WithMaxPushConstantSize(size uint32) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.maxPushConstantSize = size
	}
}

// WithDeviceLabel sets the debug label of the underlying wgpu device.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - DeviceBuilderOption: a function that applies the label option to a device
func WithDeviceLabel(label string) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.label = label
	}
}
