package window

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/events"
	"github.com/cogentcore/webgpu/wgpu"
)

var nextWindowID atomic.Uint32

// Window provides platform windowing and input event handling.
// Framebuffer size changes are published as events.ResizeEvent to the window's bus, tagged with
// the window's ID, so renderers can subscribe without registering callbacks on the window.
type Window interface {
	// ID returns the identifier carried by this window's resize events.
	//
	// Returns:
	//   - events.WindowID: the window identifier
	ID() events.WindowID

	// Events returns the bus this window publishes resize events to.
	//
	// Returns:
	//   - events.Bus: the resize event bus
	Events() events.Bus

	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving scroll delta (positive = up/zoom in, negative = down/zoom out)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetMiddleMouseDownCallback sets the callback for middle mouse button press.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMiddleMouseDownCallback(callback func(x, y int32))

	// SetMiddleMouseUpCallback sets the callback for middle mouse button release.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMiddleMouseUpCallback(callback func(x, y int32))

	// SetMouseMoveCallback sets the callback for mouse movement.
	//
	// Parameters:
	//   - callback: function receiving mouse x, y position
	SetMouseMoveCallback(callback func(x, y int32))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Dimensions returns the current framebuffer size in pixels. High-DPI displays report more
	// pixels than the requested window size.
	//
	// Returns:
	//   - common.Dimensions: the framebuffer size, empty while minimized
	Dimensions() common.Dimensions
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	id  events.WindowID
	bus events.Bus

	// title is the window title displayed in the title bar.
	title string

	// maxWidth is the maximum allowed window width during resize.
	maxWidth int

	// maxHeight is the maximum allowed window height during resize.
	maxHeight int

	// minWidth is the minimum allowed window width during resize.
	minWidth int

	// minHeight is the minimum allowed window height during resize.
	minHeight int

	// width and height are the requested size until the window is created, then the framebuffer size.
	width  int
	height int

	// platform is the GLFW window, nil until spawned.
	platform *glfwWindow

	// onUpdate is called each iteration of the message loop (if set).
	onUpdate func()

	// onScroll is called for mouse wheel events.
	// Positive delta = scroll up (zoom in), negative = scroll down (zoom out).
	onScroll func(delta float32)

	// onKeyDown is called when a key is pressed.
	onKeyDown func(keyCode uint32)

	// onKeyUp is called when a key is released.
	onKeyUp func(keyCode uint32)

	// onMiddleMouseDown is called when the middle mouse button is pressed.
	onMiddleMouseDown func(x, y int32)

	// onMiddleMouseUp is called when the middle mouse button is released.
	onMiddleMouseUp func(x, y int32)

	// onMouseMove is called when the mouse moves within the window.
	onMouseMove func(x, y int32)
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order. Without WithEventBus the window
// creates its own bus.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		id:        events.WindowID(nextWindowID.Add(1)),
		title:     "oxy-world",
		maxWidth:  1600,
		maxHeight: 1200,
		minWidth:  600,
		minHeight: 200,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	if w.bus == nil {
		w.bus = events.NewBus()
	}
	gw, err := openGLFWWindow(w)
	if err != nil {
		panic(fmt.Sprintf("failed to create platform window: %v", err))
	}
	w.platform = gw
	return w
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) ID() events.WindowID {
	return w.id
}

func (w *engineWindow) Events() events.Bus {
	return w.bus
}

// resized records a framebuffer size change and publishes it.
func (w *engineWindow) resized(width, height int) {
	w.width = width
	w.height = height
	w.bus.Publish(events.ResizeEvent{
		Window: w.id,
		Width:  uint32(max(width, 0)),
		Height: uint32(max(height, 0)),
	})
}

func (w *engineWindow) keyEvent(keyCode uint32, down bool) {
	switch {
	case down && w.onKeyDown != nil:
		w.onKeyDown(keyCode)
	case !down && w.onKeyUp != nil:
		w.onKeyUp(keyCode)
	}
}

func (w *engineWindow) scrollEvent(delta float32) {
	if w.onScroll != nil {
		w.onScroll(delta)
	}
}

func (w *engineWindow) middleMouseEvent(x, y int32, down bool) {
	switch {
	case down && w.onMiddleMouseDown != nil:
		w.onMiddleMouseDown(x, y)
	case !down && w.onMiddleMouseUp != nil:
		w.onMiddleMouseUp(x, y)
	}
}

func (w *engineWindow) mouseMoveEvent(x, y int32) {
	if w.onMouseMove != nil {
		w.onMouseMove(x, y)
	}
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMiddleMouseDownCallback(callback func(x, y int32)) {
	w.onMiddleMouseDown = callback
}

func (w *engineWindow) SetMiddleMouseUpCallback(callback func(x, y int32)) {
	w.onMiddleMouseUp = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y int32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return w.platform.surfaceDescriptor()
}

func (w *engineWindow) IsRunning() bool {
	return w.platform.running()
}

func (w *engineWindow) Close() error {
	return w.platform.destroy()
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if open := w.platform.poll(); !open {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Dimensions() common.Dimensions {
	return common.Dimensions{Width: uint32(max(w.width, 0)), Height: uint32(max(w.height, 0))}
}
