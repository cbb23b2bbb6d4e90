package window

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unopened returns a window that was never spawned, so no display is needed.
func unopened() *engineWindow {
	return &engineWindow{id: 3, bus: events.NewBus(), width: 1280, height: 720}
}

func TestResizedPublishesFramebufferSize(t *testing.T) {
	w := unopened()
	sub := w.Events().Subscribe()

	w.resized(1920, 1080)
	e, ok := sub.Latest(w.ID())
	require.True(t, ok)
	assert.Equal(t, events.ResizeEvent{Window: 3, Width: 1920, Height: 1080}, e)
	assert.Equal(t, common.Dimensions{Width: 1920, Height: 1080}, w.Dimensions())

	w.resized(-1, 0)
	e, ok = sub.Latest(w.ID())
	require.True(t, ok)
	assert.Equal(t, events.ResizeEvent{Window: 3}, e)
	assert.True(t, w.Dimensions().Empty())
}

func TestInputDispatch(t *testing.T) {
	w := unopened()

	var downs, ups []uint32
	var scroll float32
	var middle []bool
	var moved [2]int32
	w.SetKeyDownCallback(func(k uint32) { downs = append(downs, k) })
	w.SetKeyUpCallback(func(k uint32) { ups = append(ups, k) })
	w.SetScrollCallback(func(d float32) { scroll += d })
	w.SetMiddleMouseDownCallback(func(x, y int32) { middle = append(middle, true) })
	w.SetMiddleMouseUpCallback(func(x, y int32) { middle = append(middle, false) })
	w.SetMouseMoveCallback(func(x, y int32) { moved = [2]int32{x, y} })

	w.keyEvent(65, true)
	w.keyEvent(65, false)
	w.scrollEvent(1.5)
	w.scrollEvent(-0.5)
	w.middleMouseEvent(1, 2, true)
	w.middleMouseEvent(1, 2, false)
	w.mouseMoveEvent(40, 30)

	assert.Equal(t, []uint32{65}, downs)
	assert.Equal(t, []uint32{65}, ups)
	assert.Equal(t, float32(1), scroll)
	assert.Equal(t, []bool{true, false}, middle)
	assert.Equal(t, [2]int32{40, 30}, moved)
}

func TestInputDispatchWithoutCallbacks(t *testing.T) {
	w := unopened()

	assert.NotPanics(t, func() {
		w.keyEvent(65, true)
		w.scrollEvent(1)
		w.middleMouseEvent(0, 0, false)
		w.mouseMoveEvent(0, 0)
	})
}

func TestUnopenedWindow(t *testing.T) {
	w := unopened()

	assert.False(t, w.IsRunning())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
	assert.NotPanics(t, w.ProcessMessages)
}
