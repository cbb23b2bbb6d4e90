package world_renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/camera"
	"github.com/Carmen-Shannon/oxy-world/engine/events"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer/renderertest"
	"github.com/Carmen-Shannon/oxy-world/engine/resource"
	"github.com/Carmen-Shannon/oxy-world/engine/streaming"
	"github.com/Carmen-Shannon/oxy-world/engine/world"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	levelBounds = common.AABB{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1000, 1000, 1000}}
	levelCenter = mgl32.Vec3{500, 500, 500}
	screen      = common.Dimensions{Width: 800, Height: 600}
)

func testRegistry(t *testing.T) resource.Registry {
	t.Helper()
	reg := resource.NewRegistry()
	reg.RegisterMaterial("stone", renderer.DescriptorSet(100))
	reg.RegisterMaterial("bark", renderer.DescriptorSet(101))
	for name, n := range map[string]int{"rock": 3, "tree": 2} {
		lods := make([]resource.MeshLOD, n)
		for i := range lods {
			lods[i] = resource.MeshLOD{
				VertexBuffer: renderer.Buffer(200),
				Vertex:       common.Range{Offset: uint64(i) * 4400, Size: 4400},
				IndexBuffer:  renderer.Buffer(201),
				Index:        common.Range{Offset: uint64(i) * 600, Size: 600},
				IndexCount:   300,
			}
		}
		_, err := reg.RegisterMesh(name, lods)
		require.NoError(t, err)
	}
	return reg
}

func placed(id world.ObjectID, mesh, material string, pos mgl32.Vec3) world.StaticObject {
	return world.NewStaticObject(id, 0, mesh, material, mgl32.Translate3D(pos[0], pos[1], pos[2]),
		common.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}})
}

// visibleObjects sit around the level center, in front of testCamera.
func visibleObjects() []world.StaticObject {
	return []world.StaticObject{
		placed(1, "rock", "stone", levelCenter),
		placed(2, "tree", "bark", levelCenter.Add(mgl32.Vec3{10, 0, 0})),
		placed(3, "rock", "stone", levelCenter.Add(mgl32.Vec3{-10, 5, 0})),
		placed(4, "rock", "bark", levelCenter.Add(mgl32.Vec3{0, -5, 10})),
	}
}

func testWorld(t *testing.T, objs ...world.StaticObject) world.World {
	t.Helper()
	w := world.NewWorld()
	require.NoError(t, w.SetActiveLevel(world.Level{Name: "test", Bounds: levelBounds}))
	require.NoError(t, w.LoadObjects(objs...))
	return w
}

// testCamera looks at the level center from 100 units away along +Z.
func testCamera() camera.Camera {
	ctrl := camera.NewOrbitController(camera.WithTarget(levelCenter), camera.WithRadius(100), camera.WithAzimuth(0), camera.WithElevation(0.1))
	return camera.NewCamera(camera.WithController(ctrl), camera.WithAspect(screen.Aspect()))
}

func newReady(t *testing.T, dev *renderertest.Device, w world.World, opts ...WorldRendererBuilderOption) WorldRenderer {
	t.Helper()
	wr := NewWorldRenderer(dev, w, testRegistry(t), opts...)
	require.NoError(t, wr.Init(screen))
	return wr
}

func recordFrame(t *testing.T, wr WorldRenderer) (*renderertest.CommandBuffer, error) {
	t.Helper()
	cmd := &renderertest.CommandBuffer{}
	require.NoError(t, cmd.Begin())
	err := wr.BuildAndRecordFrame(testCamera(), cmd)
	require.NoError(t, cmd.End())
	return cmd, err
}

func renderPassOf(t *testing.T, dev *renderertest.Device) renderer.RenderPassDescriptor {
	t.Helper()
	for _, e := range dev.Events() {
		if e.Kind == renderertest.KindRenderPass && !e.Destroy {
			desc, ok := dev.RenderPass(renderer.RenderPass(e.Handle))
			require.True(t, ok)
			return desc
		}
	}
	t.Fatal("no render pass created")
	return renderer.RenderPassDescriptor{}
}

func TestInitCreatesGBuffer(t *testing.T) {
	dev := renderertest.NewDevice()
	wr := NewWorldRenderer(dev, testWorld(t), testRegistry(t))
	assert.Equal(t, StateUninitialized, wr.State())
	assert.ErrorIs(t, wr.BuildAndRecordFrame(testCamera(), &renderertest.CommandBuffer{}), ErrNotInitialized)
	assert.ErrorIs(t, wr.OnResize(10, 10), ErrNotInitialized)

	require.NoError(t, wr.Init(screen))
	assert.Equal(t, StateReady, wr.State())
	assert.Equal(t, screen, wr.Dimensions())

	assert.Equal(t, 3, dev.Live(renderertest.KindTexture))
	assert.Equal(t, 3, dev.Live(renderertest.KindTextureView))
	assert.Equal(t, 1, dev.Live(renderertest.KindFramebuffer))
	assert.Equal(t, 1, dev.Live(renderertest.KindRenderPass))
	assert.Equal(t, 1, dev.Live(renderertest.KindPipeline))
	assert.Equal(t, 1, dev.Live(renderertest.KindSampler))
	assert.Equal(t, 1, dev.Live(renderertest.KindBuffer))
	assert.NotZero(t, wr.Sampler())
	assert.NotZero(t, wr.Pipeline())

	views := wr.GBufferViews()
	for _, v := range []renderer.TextureView{views.AlbedoRoughness, views.NormalMetalness, views.Depth} {
		assert.True(t, dev.IsLive(uint64(v)))
	}

	pass := renderPassOf(t, dev)
	require.Len(t, pass.Attachments, 3)
	wantFormats := []renderer.Format{renderer.FormatRGBA8Unorm, renderer.FormatRGBA8Unorm, renderer.FormatDepth32Float}
	for i, a := range pass.Attachments {
		assert.Equal(t, wantFormats[i], a.Format)
		assert.Equal(t, renderer.LoadOpClear, a.LoadOp)
		assert.Equal(t, renderer.StoreOpStore, a.StoreOp)
		assert.Equal(t, renderer.TextureLayoutShaderReadOnly, a.FinalLayout)
	}

	assert.ErrorIs(t, wr.Init(screen), ErrAlreadyInitialized)
	assert.Equal(t, 3, dev.Created(renderertest.KindTexture))
}

func TestInitFailureReleasesEverything(t *testing.T) {
	dev := renderertest.NewDevice()
	wr := NewWorldRenderer(dev, testWorld(t), testRegistry(t))

	assert.Error(t, wr.Init(common.Dimensions{Width: 800}))
	assert.Zero(t, dev.Live(""))

	boom := errors.New("boom")
	for _, kind := range []renderertest.Kind{renderertest.KindSampler, renderertest.KindFramebuffer, renderertest.KindPipeline, renderertest.KindBuffer} {
		dev.Fail(kind, boom)
		err := wr.Init(screen)
		assert.ErrorIs(t, err, boom, "failing %s", kind)
		assert.Equal(t, StateUninitialized, wr.State())
		assert.Zero(t, dev.Live(""), "leak after failing %s", kind)
		dev.Fail(kind, nil)
	}
	assert.Zero(t, dev.InvalidDestroys())

	require.NoError(t, wr.Init(screen))
	assert.Equal(t, StateReady, wr.State())
}

func TestOnResize(t *testing.T) {
	dev := renderertest.NewDevice()
	wr := newReady(t, dev, testWorld(t))
	before := wr.GBufferViews()

	require.NoError(t, wr.OnResize(screen.Width, screen.Height))
	assert.Equal(t, 3, dev.Created(renderertest.KindTexture), "unchanged size recreates nothing")
	assert.Zero(t, wr.Stats().Resizes)

	waits := dev.Waits()
	require.NoError(t, wr.OnResize(1024, 768))
	assert.Greater(t, dev.Waits(), waits)
	assert.Equal(t, common.Dimensions{Width: 1024, Height: 768}, wr.Dimensions())
	assert.Equal(t, 6, dev.Created(renderertest.KindTexture))
	assert.Equal(t, 3, dev.Destroyed(renderertest.KindTexture))
	assert.Equal(t, 3, dev.Live(renderertest.KindTexture))
	assert.Equal(t, 1, dev.Live(renderertest.KindFramebuffer))
	assert.Equal(t, 1, dev.Live(renderertest.KindPipeline), "the pipeline survives resizes")
	assert.Equal(t, uint64(1), wr.Stats().Resizes)

	after := wr.GBufferViews()
	assert.NotEqual(t, before, after)
	assert.False(t, dev.IsLive(uint64(before.Depth)))

	var destroyed []renderertest.Kind
	for _, e := range dev.Events() {
		if e.Destroy {
			destroyed = append(destroyed, e.Kind)
		}
	}
	require.NotEmpty(t, destroyed)
	assert.Equal(t, renderertest.KindFramebuffer, destroyed[0], "framebuffer goes before its attachments")

	require.NoError(t, wr.OnResize(0, 0))
	assert.Equal(t, common.Dimensions{Width: 1024, Height: 768}, wr.Dimensions(), "minimized windows keep the G-buffer")

	cmd, err := recordFrame(t, wr)
	require.NoError(t, err)
	begin := cmd.Filter(renderertest.OpBeginRenderPass)
	require.Len(t, begin, 1)
	assert.Equal(t, renderer.Rect{Width: 1024, Height: 768}, begin[0].Rect)
}

func TestPollEventsAppliesLatestResizeOfOwnWindow(t *testing.T) {
	dev := renderertest.NewDevice()
	bus := events.NewBus()
	wr := newReady(t, dev, testWorld(t), WithEventBus(bus, 1))
	assert.Equal(t, 1, bus.Subscribers())

	require.NoError(t, wr.PollEvents())
	assert.Equal(t, screen, wr.Dimensions())

	bus.Publish(events.ResizeEvent{Window: 1, Width: 640, Height: 480})
	bus.Publish(events.ResizeEvent{Window: 1, Width: 1280, Height: 720})
	bus.Publish(events.ResizeEvent{Window: 2, Width: 300, Height: 300})
	require.NoError(t, wr.PollEvents())
	assert.Equal(t, common.Dimensions{Width: 1280, Height: 720}, wr.Dimensions())
	assert.Equal(t, uint64(1), wr.Stats().Resizes)

	wr.Destroy()
	assert.Zero(t, bus.Subscribers())
}

func TestBuildAndRecordFrame(t *testing.T) {
	dev := renderertest.NewDevice()
	behind := placed(9, "rock", "stone", levelCenter.Add(mgl32.Vec3{0, 0, 300}))
	wr := newReady(t, dev, testWorld(t, append(visibleObjects(), behind)...))

	cmd, err := recordFrame(t, wr)
	require.NoError(t, err)

	ops := cmd.Ops()
	require.GreaterOrEqual(t, len(ops), 4)
	assert.Equal(t, []renderertest.Op{renderertest.OpBeginRenderPass, renderertest.OpSetViewport, renderertest.OpSetScissor}, ops[:3])
	assert.Equal(t, renderertest.OpEndRenderPass, ops[len(ops)-1])
	assert.Equal(t, 1, cmd.Count(renderertest.OpBindPipeline))

	begin := cmd.Filter(renderertest.OpBeginRenderPass)[0]
	require.Len(t, begin.Clear, 3)
	assert.Equal(t, float32(1), begin.Clear[AttachmentDepth].Depth)
	assert.Equal(t, renderer.Rect{Width: screen.Width, Height: screen.Height}, begin.Rect)
	view := cmd.Filter(renderertest.OpSetViewport)[0].View
	assert.Equal(t, float32(screen.Width), view.Width)
	assert.Equal(t, float32(1), view.MaxDepth)

	var instances uint32
	for _, d := range cmd.Filter(renderertest.OpDrawIndexed) {
		instances += d.InstanceCount
	}
	assert.Equal(t, uint32(4), instances, "the object behind the camera is culled")

	stats := wr.Stats()
	assert.Equal(t, uint64(1), stats.FramesBuilt)
	assert.Zero(t, stats.FramesDropped)
	assert.Equal(t, 4, stats.LastVisible)
	assert.Equal(t, 4, stats.LastInstances)
	assert.Equal(t, cmd.Count(renderertest.OpDrawIndexed), stats.LastDrawCalls)
	assert.Equal(t, uint64(4*common.Mat4Size), stats.Streaming.PeakBytes)

	flushes := dev.Flushes()
	require.Len(t, flushes, 1)
	assert.Equal(t, common.Range{Size: 4 * common.Mat4Size}, flushes[0].Range)
}

func TestFrameCommandLogIsDeterministic(t *testing.T) {
	for _, workers := range []int{1, 4} {
		dev := renderertest.NewDevice()
		wr := newReady(t, dev, testWorld(t, visibleObjects()...), WithCullWorkers(workers))

		first, err := recordFrame(t, wr)
		require.NoError(t, err)
		second, err := recordFrame(t, wr)
		require.NoError(t, err)
		assert.Equal(t, first.Commands(), second.Commands(), "workers=%d", workers)
		assert.Equal(t, uint64(2), wr.Stats().FramesBuilt)
	}
}

func TestDroppedFramesRecordNothing(t *testing.T) {
	tests := []struct {
		name     string
		objs     []world.StaticObject
		opts     []WorldRendererBuilderOption
		stage    FrameStage
		sentinel error
		check    func(t *testing.T, s Stats)
	}{
		{
			name:     "streaming overflow",
			objs:     visibleObjects(),
			opts:     []WorldRendererBuilderOption{WithStreamingCapacity(uint64(common.Mat4Size))},
			stage:    StagePack,
			sentinel: streaming.ErrStreamingOverflow,
			check: func(t *testing.T, s Stats) {
				assert.Equal(t, uint64(1), s.DroppedOverflow)
				assert.Equal(t, uint64(1), s.Streaming.Overflows)
			},
		},
		{
			name:     "unknown material",
			objs:     append(visibleObjects(), placed(7, "rock", "glass", levelCenter)),
			stage:    StageBuild,
			sentinel: resource.ErrResourceKey,
			check: func(t *testing.T, s Stats) {
				assert.Equal(t, uint64(1), s.DroppedResourceKey)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := renderertest.NewDevice()
			wr := newReady(t, dev, testWorld(t, tt.objs...), tt.opts...)

			cmd, err := recordFrame(t, wr)
			var fe *FrameError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.stage, fe.Stage)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Empty(t, cmd.Commands())

			s := wr.Stats()
			assert.Equal(t, uint64(1), s.FramesDropped)
			assert.Zero(t, s.FramesBuilt)
			tt.check(t, s)
		})
	}
}

func TestFrameWithoutActiveLevelClearsGBuffer(t *testing.T) {
	dev := renderertest.NewDevice()
	wr := newReady(t, dev, world.NewWorld())

	cmd, err := recordFrame(t, wr)
	require.NoError(t, err)
	assert.Equal(t, []renderertest.Op{
		renderertest.OpBeginRenderPass,
		renderertest.OpSetViewport,
		renderertest.OpSetScissor,
		renderertest.OpEndRenderPass,
	}, cmd.Ops())
	assert.Zero(t, wr.Stats().LastVisible)
}

func TestClearValuesFollowOptions(t *testing.T) {
	dev := renderertest.NewDevice()
	albedo := [4]float32{0.1, 0.2, 0.3, 1}
	normal := [4]float32{0.5, 0.5, 1, 0}
	wr := newReady(t, dev, testWorld(t, visibleObjects()...),
		WithClearColors(albedo, normal),
		WithPipelineOptions(pipeline.WithDepthCompare(renderer.CompareOpGreater)),
	)

	cmd, err := recordFrame(t, wr)
	require.NoError(t, err)
	values := cmd.Filter(renderertest.OpBeginRenderPass)[0].Clear
	assert.Equal(t, albedo, values[AttachmentAlbedoRoughness].Color)
	assert.Equal(t, normal, values[AttachmentNormalMetalness].Color)
	assert.Zero(t, values[AttachmentDepth].Depth, "reversed depth clears to zero")

	desc, ok := dev.Pipeline(wr.Pipeline())
	require.True(t, ok)
	assert.Equal(t, renderer.CompareOpGreater, desc.DepthCompare)
}

func TestDestroy(t *testing.T) {
	dev := renderertest.NewDevice()
	wr := newReady(t, dev, testWorld(t, visibleObjects()...))
	_, err := recordFrame(t, wr)
	require.NoError(t, err)

	wr.Destroy()
	assert.Equal(t, StateDestroyed, wr.State())
	assert.Zero(t, dev.Live(""))
	assert.Zero(t, dev.InvalidDestroys())

	var destroyed []renderertest.Kind
	for _, e := range dev.Events() {
		if e.Destroy {
			destroyed = append(destroyed, e.Kind)
		}
	}
	require.NotEmpty(t, destroyed)
	assert.Equal(t, renderertest.KindBuffer, destroyed[0])
	assert.Equal(t, renderertest.KindPipeline, destroyed[1])
	assert.Equal(t, renderertest.KindFramebuffer, destroyed[2])
	assert.Equal(t, renderertest.KindSampler, destroyed[len(destroyed)-1])
	assert.Equal(t, renderertest.KindRenderPass, destroyed[len(destroyed)-2])

	assert.PanicsWithValue(t, ErrUseAfterDestroy, func() { wr.Destroy() })
	assert.PanicsWithValue(t, ErrUseAfterDestroy, func() { _ = wr.Init(screen) })
	assert.PanicsWithValue(t, ErrUseAfterDestroy, func() { _ = wr.OnResize(10, 10) })
	assert.PanicsWithValue(t, ErrUseAfterDestroy, func() { _ = wr.PollEvents() })
	assert.PanicsWithValue(t, ErrUseAfterDestroy, func() { _ = wr.GBufferViews() })
	assert.PanicsWithValue(t, ErrUseAfterDestroy, func() {
		_ = wr.BuildAndRecordFrame(testCamera(), &renderertest.CommandBuffer{})
	})
}

func TestDestroyBeforeInit(t *testing.T) {
	dev := renderertest.NewDevice()
	wr := NewWorldRenderer(dev, testWorld(t), testRegistry(t))
	wr.Destroy()
	assert.Equal(t, StateDestroyed, wr.State())
	assert.Zero(t, dev.Waits())
	assert.Zero(t, dev.InvalidDestroys())
}

func TestFrameErrorMessage(t *testing.T) {
	err := &FrameError{Stage: StagePack, Err: streaming.ErrStreamingOverflow}
	assert.Equal(t, "world renderer: frame dropped at pack: streaming: buffer overflow", err.Error())
	assert.Equal(t, "Ready", StateReady.String())
	assert.Equal(t, "State(7)", State(7).String())
}
