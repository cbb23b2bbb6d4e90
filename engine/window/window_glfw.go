package window

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow owns the GLFW handle backing an engineWindow.
type glfwWindow struct {
	handle *glfw.Window
	closed bool
}

// openGLFWWindow initializes GLFW and creates a window without a client API, since WebGPU
// renders into its own surface. Input is forwarded to the owner's callbacks and framebuffer size
// changes to its event bus.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
//
// Parameters:
//   - w: the window being spawned; its requested size is replaced by the framebuffer size
//
// Returns:
//   - *glfwWindow: the platform window
//   - error: error if GLFW or the window cannot be created
func openGLFWWindow(w *engineWindow) (*glfwWindow, error) {
	// GLFW calls must come from the thread that initialized it.
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	handle, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	handle.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)

	gw := &glfwWindow{handle: handle}
	gw.forwardInput(w)
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized(width, height)
	})

	w.width, w.height = handle.GetFramebufferSize()
	return gw, nil
}

// forwardInput routes GLFW input callbacks to the window's handlers.
func (gw *glfwWindow) forwardInput(w *engineWindow) {
	gw.handle.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.requestClose()
			return
		}
		w.keyEvent(uint32(key), action != glfw.Release)
	})
	gw.handle.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		w.scrollEvent(float32(yoff))
	})
	gw.handle.SetMouseButtonCallback(func(win *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonMiddle {
			return
		}
		x, y := win.GetCursorPos()
		w.middleMouseEvent(int32(x), int32(y), action == glfw.Press)
	})
	gw.handle.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.mouseMoveEvent(int32(x), int32(y))
	})
}

// surfaceDescriptor describes the native surface through the wgpuglfw bridge.
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func (gw *glfwWindow) surfaceDescriptor() *wgpu.SurfaceDescriptor {
	if gw == nil || gw.closed {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(gw.handle)
}

func (gw *glfwWindow) requestClose() {
	gw.handle.SetShouldClose(true)
}

func (gw *glfwWindow) running() bool {
	return gw != nil && !gw.closed && !gw.handle.ShouldClose()
}

// poll processes pending GLFW events without blocking and reports whether the window is still open.
func (gw *glfwWindow) poll() bool {
	if gw == nil || gw.closed {
		return false
	}
	glfw.PollEvents()
	return gw.running()
}

// destroy releases the window and terminates GLFW.
func (gw *glfwWindow) destroy() error {
	if gw == nil || gw.closed {
		return errors.New("window is not open")
	}
	gw.closed = true
	gw.handle.Destroy()
	glfw.Terminate()
	return nil
}
