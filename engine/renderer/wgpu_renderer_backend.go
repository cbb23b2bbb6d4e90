package renderer

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	// shadow is the persistent host mapping of a HostVisible buffer. WebGPU forbids GPU use of
	// a mapped buffer, so writes land here and FlushMappedRange uploads them with WriteBuffer.
	shadow []byte
}

type wgpuTexture struct {
	texture *wgpu.Texture
	format  Format
}

type wgpuPipeline struct {
	pipeline         *wgpu.RenderPipeline
	layout           *wgpu.PipelineLayout
	bindGroupLayouts []*wgpu.BindGroupLayout
	setLayouts       [][]DescriptorBinding
	modules          []*wgpu.ShaderModule
}

type wgpuFramebuffer struct {
	pass   RenderPass
	views  []TextureView
	width  uint32
	height uint32
}

// wgpuDevice implements Device on top of cogentcore/webgpu. WebGPU has no render pass or
// framebuffer objects, so both are kept as host-side descriptions and resolved into a
// wgpu.RenderPassDescriptor when a pass begins.
type wgpuDevice struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	label                string
	surfaceDescriptor    *wgpu.SurfaceDescriptor
	forceFallbackAdapter bool
	maxPushConstantSize  uint32

	next         uint64
	textures     map[Texture]wgpuTexture
	views        map[TextureView]*wgpu.TextureView
	viewFormats  map[TextureView]Format
	buffers      map[Buffer]*wgpuBuffer
	samplers     map[Sampler]*wgpu.Sampler
	renderPasses map[RenderPass]RenderPassDescriptor
	framebuffers map[Framebuffer]wgpuFramebuffer
	pipelines    map[Pipeline]*wgpuPipeline
	sets         map[DescriptorSet]*wgpu.BindGroup
}

var _ Device = &wgpuDevice{}

// NewWGPUDevice requests a WebGPU adapter and device with push constant support.
//
// Parameters:
//   - opts: optional DeviceBuilderOption functions
//
// Returns:
//   - Device: the created device
//   - error: error if no adapter or device could be acquired
func NewWGPUDevice(opts ...DeviceBuilderOption) (Device, error) {
	runtime.LockOSThread()
	d := &wgpuDevice{
		mu:                  &sync.Mutex{},
		label:               "World Device",
		maxPushConstantSize: 128,
		textures:            make(map[Texture]wgpuTexture),
		views:               make(map[TextureView]*wgpu.TextureView),
		viewFormats:         make(map[TextureView]Format),
		buffers:             make(map[Buffer]*wgpuBuffer),
		samplers:            make(map[Sampler]*wgpu.Sampler),
		renderPasses:        make(map[RenderPass]RenderPassDescriptor),
		framebuffers:        make(map[Framebuffer]wgpuFramebuffer),
		pipelines:           make(map[Pipeline]*wgpuPipeline),
		sets:                make(map[DescriptorSet]*wgpu.BindGroup),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	if d.surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(d.surfaceDescriptor)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label:            d.label,
		RequiredFeatures: []wgpu.FeatureName{wgpu.NativeFeaturePushConstants},
		RequiredLimits:   &wgpu.RequiredLimits{Limits: requiredLimits(d.maxPushConstantSize)},
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	return d, nil
}

// requiredLimits returns the default limits raised for the G-buffer pipeline: one bind group per
// descriptor set and room for the push constant block.
func requiredLimits(maxPushConstantSize uint32) wgpu.Limits {
	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 4
	limits.MaxPushConstantSize = maxPushConstantSize
	return limits
}

func (d *wgpuDevice) Backend() RendererBackendType {
	return BackendTypeWGPU
}

func (d *wgpuDevice) handle() uint64 {
	d.next++
	return d.next
}

func (d *wgpuDevice) CreateTexture(desc TextureDescriptor) (Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	format, err := wgpuTextureFormat(desc.Format)
	if err != nil {
		return 0, err
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpuTextureUsage(desc.Usage),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create texture %q: %w", desc.Label, err)
	}

	h := Texture(d.handle())
	d.textures[h] = wgpuTexture{texture: tex, format: desc.Format}
	return h, nil
}

func (d *wgpuDevice) DestroyTexture(t Texture) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if tex, ok := d.textures[t]; ok {
		tex.texture.Release()
		delete(d.textures, t)
	}
}

func (d *wgpuDevice) CreateTextureView(t Texture) (TextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, ok := d.textures[t]
	if !ok {
		return 0, ErrInvalidHandle
	}
	view, err := tex.texture.CreateView(nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create texture view: %w", err)
	}

	h := TextureView(d.handle())
	d.views[h] = view
	d.viewFormats[h] = tex.format
	return h, nil
}

func (d *wgpuDevice) DestroyTextureView(v TextureView) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if view, ok := d.views[v]; ok {
		view.Release()
		delete(d.views, v)
		delete(d.viewFormats, v)
	}
}

func (d *wgpuDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// WriteBuffer requires 4-byte aligned sizes.
	size := (desc.Size + 3) &^ 3
	usage := wgpuBufferUsage(desc.Usage)
	if desc.HostVisible {
		usage |= wgpu.BufferUsageCopyDst
	}
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create buffer %q: %w", desc.Label, err)
	}

	b := &wgpuBuffer{buffer: buf, size: desc.Size}
	if desc.HostVisible {
		b.shadow = make([]byte, size)
	}
	h := Buffer(d.handle())
	d.buffers[h] = b
	return h, nil
}

func (d *wgpuDevice) DestroyBuffer(b Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if buf, ok := d.buffers[b]; ok {
		buf.buffer.Release()
		delete(d.buffers, b)
	}
}

func (d *wgpuDevice) MapBuffer(b Buffer) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[b]
	if !ok {
		return nil, ErrInvalidHandle
	}
	if buf.shadow == nil {
		return nil, ErrNotMappable
	}
	return buf.shadow[:buf.size:buf.size], nil
}

func (d *wgpuDevice) FlushMappedRange(b Buffer, r common.Range) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, ok := d.buffers[b]
	if !ok {
		return ErrInvalidHandle
	}
	if buf.shadow == nil {
		return ErrNotMappable
	}
	if r.End() > buf.size {
		return fmt.Errorf("flush range [%d, %d) exceeds buffer size %d", r.Offset, r.End(), buf.size)
	}
	if r.Size == 0 {
		return nil
	}

	start := r.Offset &^ 3
	end := min((r.End()+3)&^3, uint64(len(buf.shadow)))
	d.queue.WriteBuffer(buf.buffer, start, buf.shadow[start:end])
	return nil
}

func (d *wgpuDevice) CreateSampler(desc SamplerDescriptor) (Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	address := wgpu.AddressModeRepeat
	if desc.AddressMode == AddressModeClampToEdge {
		address = wgpu.AddressModeClampToEdge
	}
	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  address,
		AddressModeV:  address,
		AddressModeW:  address,
		MagFilter:     wgpuFilterMode(desc.MagFilter),
		MinFilter:     wgpuFilterMode(desc.MinFilter),
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0.0,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create sampler %q: %w", desc.Label, err)
	}

	h := Sampler(d.handle())
	d.samplers[h] = samp
	return h, nil
}

func (d *wgpuDevice) DestroySampler(s Sampler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if samp, ok := d.samplers[s]; ok {
		samp.Release()
		delete(d.samplers, s)
	}
}

func (d *wgpuDevice) CreateRenderPass(desc RenderPassDescriptor) (RenderPass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	depth := 0
	for _, a := range desc.Attachments {
		if _, err := wgpuTextureFormat(a.Format); err != nil {
			return 0, err
		}
		if a.Format.IsDepth() {
			depth++
		}
	}
	if depth > 1 {
		return 0, fmt.Errorf("render pass %q has %d depth attachments", desc.Label, depth)
	}

	h := RenderPass(d.handle())
	desc.Attachments = append([]AttachmentDescription(nil), desc.Attachments...)
	d.renderPasses[h] = desc
	return h, nil
}

func (d *wgpuDevice) DestroyRenderPass(p RenderPass) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.renderPasses, p)
}

func (d *wgpuDevice) CreateFramebuffer(desc FramebufferDescriptor) (Framebuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pass, ok := d.renderPasses[desc.Pass]
	if !ok {
		return 0, ErrInvalidHandle
	}
	if len(desc.Attachments) != len(pass.Attachments) {
		return 0, fmt.Errorf("framebuffer %q has %d attachments, render pass expects %d", desc.Label, len(desc.Attachments), len(pass.Attachments))
	}
	for i, v := range desc.Attachments {
		format, ok := d.viewFormats[v]
		if !ok {
			return 0, fmt.Errorf("framebuffer %q attachment %d: %w", desc.Label, i, ErrInvalidHandle)
		}
		if format != pass.Attachments[i].Format {
			return 0, fmt.Errorf("framebuffer %q attachment %d format mismatch", desc.Label, i)
		}
	}

	h := Framebuffer(d.handle())
	d.framebuffers[h] = wgpuFramebuffer{
		pass:   desc.Pass,
		views:  append([]TextureView(nil), desc.Attachments...),
		width:  desc.Width,
		height: desc.Height,
	}
	return h, nil
}

func (d *wgpuDevice) DestroyFramebuffer(f Framebuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.framebuffers, f)
}

func (d *wgpuDevice) CreatePipeline(desc PipelineDescriptor, pass RenderPass) (Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rp, ok := d.renderPasses[pass]
	if !ok {
		return 0, ErrInvalidHandle
	}

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: desc.ShaderSource,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create shader module %q: %w", desc.Label, err)
	}
	p := &wgpuPipeline{
		modules:    []*wgpu.ShaderModule{module},
		setLayouts: desc.SetLayouts,
	}

	for set, bindings := range desc.SetLayouts {
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(bindings))
		for _, b := range bindings {
			entries = append(entries, wgpuBindGroupLayoutEntry(b))
		}
		layout, layoutErr := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s Set %d", desc.Label, set),
			Entries: entries,
		})
		if layoutErr != nil {
			d.releasePipeline(p)
			return 0, fmt.Errorf("failed to create bind group layout for set %d: %w", set, layoutErr)
		}
		p.bindGroupLayouts = append(p.bindGroupLayouts, layout)
	}

	layoutDesc := &wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: p.bindGroupLayouts,
	}
	if desc.PushConstantSize > 0 {
		layoutDesc.PushConstantRanges = []wgpu.PushConstantRange{
			{
				Stages: wgpuShaderStage(desc.PushConstantStages),
				Start:  0,
				End:    desc.PushConstantSize,
			},
		}
	}
	p.layout, err = d.device.CreatePipelineLayout(layoutDesc)
	if err != nil {
		d.releasePipeline(p)
		return 0, fmt.Errorf("failed to create pipeline layout %q: %w", desc.Label, err)
	}

	vertexLayouts := make([]wgpu.VertexBufferLayout, 0, len(desc.VertexBindings))
	for _, vb := range desc.VertexBindings {
		attrs := make([]wgpu.VertexAttribute, 0, len(vb.Attributes))
		for _, a := range vb.Attributes {
			vf, vfErr := wgpuVertexFormat(a.Format)
			if vfErr != nil {
				d.releasePipeline(p)
				return 0, vfErr
			}
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         vf,
				Offset:         uint64(a.Offset),
				ShaderLocation: a.Location,
			})
		}
		step := wgpu.VertexStepModeVertex
		if vb.InputRate == VertexInputRateInstance {
			step = wgpu.VertexStepModeInstance
		}
		vertexLayouts = append(vertexLayouts, wgpu.VertexBufferLayout{
			ArrayStride: uint64(vb.Stride),
			StepMode:    step,
			Attributes:  attrs,
		})
	}

	var targets []wgpu.ColorTargetState
	var depthStencil *wgpu.DepthStencilState
	for _, a := range rp.Attachments {
		format, _ := wgpuTextureFormat(a.Format)
		if a.Format.IsDepth() {
			compare := wgpuCompareFunction(desc.DepthCompare)
			if !desc.DepthTest {
				compare = wgpu.CompareFunctionAlways
			}
			depthStencil = &wgpu.DepthStencilState{
				Format:            format,
				DepthWriteEnabled: desc.DepthWrite,
				DepthCompare:      compare,
				StencilFront: wgpu.StencilFaceState{
					Compare: wgpu.CompareFunctionAlways,
				},
				StencilBack: wgpu.StencilFaceState{
					Compare: wgpu.CompareFunctionAlways,
				},
			}
			continue
		}
		targets = append(targets, wgpu.ColorTargetState{
			Format:    format,
			WriteMask: wgpu.ColorWriteMaskAll,
		})
	}

	frontFace := wgpu.FrontFaceCCW
	if desc.ClockwiseFront {
		frontFace = wgpu.FrontFaceCW
	}

	p.pipeline, err = d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label + " Render Pipeline",
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: desc.VertexEntry,
			Buffers:    vertexLayouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: desc.FragmentEntry,
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: frontFace,
			CullMode:  wgpuCullMode(desc.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depthStencil,
	})
	if err != nil {
		d.releasePipeline(p)
		return 0, fmt.Errorf("failed to create render pipeline %q: %w", desc.Label, err)
	}

	h := Pipeline(d.handle())
	d.pipelines[h] = p
	return h, nil
}

func (d *wgpuDevice) releasePipeline(p *wgpuPipeline) {
	if p.pipeline != nil {
		p.pipeline.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
	for _, l := range p.bindGroupLayouts {
		l.Release()
	}
	for _, m := range p.modules {
		m.Release()
	}
}

func (d *wgpuDevice) DestroyPipeline(p Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pl, ok := d.pipelines[p]; ok {
		d.releasePipeline(pl)
		delete(d.pipelines, p)
	}
}

func (d *wgpuDevice) CreateDescriptorSet(desc DescriptorSetDescriptor) (DescriptorSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pipelines[desc.Pipeline]
	if !ok {
		return 0, ErrInvalidHandle
	}
	if int(desc.Set) >= len(p.bindGroupLayouts) {
		return 0, fmt.Errorf("pipeline has no descriptor set %d", desc.Set)
	}

	layout := p.setLayouts[desc.Set]
	entries := make([]wgpu.BindGroupEntry, 0, len(desc.Writes))
	for _, w := range desc.Writes {
		var binding *DescriptorBinding
		for i := range layout {
			if layout[i].Binding == w.Binding {
				binding = &layout[i]
				break
			}
		}
		if binding == nil {
			return 0, fmt.Errorf("descriptor set %q has no binding %d", desc.Label, w.Binding)
		}

		entry := wgpu.BindGroupEntry{Binding: w.Binding}
		switch binding.Type {
		case DescriptorTypeSampledTexture:
			view, ok := d.views[w.TextureView]
			if !ok {
				return 0, fmt.Errorf("binding %d: %w", w.Binding, ErrInvalidHandle)
			}
			entry.TextureView = view
		case DescriptorTypeSampler:
			samp, ok := d.samplers[w.Sampler]
			if !ok {
				return 0, fmt.Errorf("binding %d: %w", w.Binding, ErrInvalidHandle)
			}
			entry.Sampler = samp
		case DescriptorTypeUniformBuffer:
			buf, ok := d.buffers[w.Buffer]
			if !ok {
				return 0, fmt.Errorf("binding %d: %w", w.Binding, ErrInvalidHandle)
			}
			entry.Buffer = buf.buffer
			entry.Offset = w.Range.Offset
			entry.Size = w.Range.Size
			if w.Range.Size == 0 {
				entry.Size = wgpu.WholeSize
			}
		}
		entries = append(entries, entry)
	}

	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label + " Bind Group",
		Layout:  p.bindGroupLayouts[desc.Set],
		Entries: entries,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create bind group %q: %w", desc.Label, err)
	}

	h := DescriptorSet(d.handle())
	d.sets[h] = bg
	return h, nil
}

func (d *wgpuDevice) DestroyDescriptorSet(s DescriptorSet) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if bg, ok := d.sets[s]; ok {
		bg.Release()
		delete(d.sets, s)
	}
}

func (d *wgpuDevice) NewCommandBuffer() (CommandBuffer, error) {
	return &wgpuCommandBuffer{device: d}, nil
}

func (d *wgpuDevice) SubmitToQueue(cmds ...CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	finished := make([]*wgpu.CommandBuffer, 0, len(cmds))
	for i, c := range cmds {
		wc, ok := c.(*wgpuCommandBuffer)
		if !ok {
			return fmt.Errorf("command buffer %d was not created by this device", i)
		}
		if wc.finished == nil {
			return fmt.Errorf("command buffer %d has not ended recording", i)
		}
		finished = append(finished, wc.finished)
	}
	for i, cb := range finished {
		d.queue.Submit(cb)
		cb.Release()
		cmds[i].(*wgpuCommandBuffer).finished = nil
	}
	return nil
}

func (d *wgpuDevice) WaitForQueueIdle() error {
	if d.device == nil {
		return errors.New("device has been released")
	}
	d.device.Poll(true, nil)
	return nil
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for h, bg := range d.sets {
		bg.Release()
		delete(d.sets, h)
	}
	for h, p := range d.pipelines {
		d.releasePipeline(p)
		delete(d.pipelines, h)
	}
	clear(d.framebuffers)
	clear(d.renderPasses)
	for h, s := range d.samplers {
		s.Release()
		delete(d.samplers, h)
	}
	for h, b := range d.buffers {
		b.buffer.Release()
		delete(d.buffers, h)
	}
	for h, v := range d.views {
		v.Release()
		delete(d.views, h)
	}
	clear(d.viewFormats)
	for h, t := range d.textures {
		t.texture.Release()
		delete(d.textures, h)
	}

	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

// wgpuCommandBuffer records into a wgpu.CommandEncoder. Invalid handles do not abort recording;
// the first failure is kept and returned from End so the caller can drop the frame.
type wgpuCommandBuffer struct {
	device   *wgpuDevice
	encoder  *wgpu.CommandEncoder
	pass     *wgpu.RenderPassEncoder
	finished *wgpu.CommandBuffer
	err      error
}

var _ CommandBuffer = &wgpuCommandBuffer{}

func (c *wgpuCommandBuffer) fail(format string, args ...any) {
	if c.err == nil {
		c.err = fmt.Errorf(format, args...)
		log.Printf("[WGPUCommandBuffer] %v", c.err)
	}
}

func (c *wgpuCommandBuffer) Begin() error {
	if c.encoder != nil {
		c.encoder.Release()
	}
	if c.finished != nil {
		c.finished.Release()
		c.finished = nil
	}
	c.pass = nil
	c.err = nil

	encoder, err := c.device.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}
	c.encoder = encoder
	return nil
}

func (c *wgpuCommandBuffer) End() error {
	if c.encoder == nil {
		return errors.New("command buffer is not recording")
	}
	if c.pass != nil {
		return errors.New("render pass still open")
	}

	finished, err := c.encoder.Finish(nil)
	c.encoder.Release()
	c.encoder = nil
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	c.finished = finished
	return c.err
}

func (c *wgpuCommandBuffer) Release() {
	if c.pass != nil {
		c.pass.Release()
		c.pass = nil
	}
	if c.encoder != nil {
		c.encoder.Release()
		c.encoder = nil
	}
	if c.finished != nil {
		c.finished.Release()
		c.finished = nil
	}
}

func (c *wgpuCommandBuffer) BeginRenderPass(pass RenderPass, fb Framebuffer, area Rect, clear []ClearValue) {
	if c.encoder == nil || c.pass != nil {
		c.fail("BeginRenderPass outside recording or inside an open pass")
		return
	}

	d := c.device
	d.mu.Lock()
	rp, okPass := d.renderPasses[pass]
	f, okFb := d.framebuffers[fb]
	var desc wgpu.RenderPassDescriptor
	if okPass && okFb {
		desc.Label = rp.Label
		for i, a := range rp.Attachments {
			view := d.views[f.views[i]]
			var cv ClearValue
			if i < len(clear) {
				cv = clear[i]
			}
			if a.Format.IsDepth() {
				desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
					View:            view,
					DepthLoadOp:     wgpuLoadOp(a.LoadOp),
					DepthStoreOp:    wgpuStoreOp(a.StoreOp),
					DepthClearValue: cv.Depth,
				}
				continue
			}
			desc.ColorAttachments = append(desc.ColorAttachments, wgpu.RenderPassColorAttachment{
				View:    view,
				LoadOp:  wgpuLoadOp(a.LoadOp),
				StoreOp: wgpuStoreOp(a.StoreOp),
				ClearValue: wgpu.Color{
					R: float64(cv.Color[0]),
					G: float64(cv.Color[1]),
					B: float64(cv.Color[2]),
					A: float64(cv.Color[3]),
				},
			})
		}
	}
	d.mu.Unlock()

	if !okPass || !okFb {
		c.fail("BeginRenderPass: %w", ErrInvalidHandle)
		return
	}
	if f.pass != pass {
		c.fail("BeginRenderPass: framebuffer was created for a different render pass")
		return
	}

	c.pass = c.encoder.BeginRenderPass(&desc)
	c.pass.SetScissorRect(uint32(area.X), uint32(area.Y), area.Width, area.Height)
}

func (c *wgpuCommandBuffer) EndRenderPass() {
	if c.pass == nil {
		c.fail("EndRenderPass without an open pass")
		return
	}
	c.pass.End()
	c.pass = nil
}

func (c *wgpuCommandBuffer) BeginDebugRegion(label string, _ [4]float32) {
	switch {
	case c.pass != nil:
		c.pass.PushDebugGroup(label)
	case c.encoder != nil:
		c.encoder.PushDebugGroup(label)
	}
}

func (c *wgpuCommandBuffer) EndDebugRegion() {
	switch {
	case c.pass != nil:
		c.pass.PopDebugGroup()
	case c.encoder != nil:
		c.encoder.PopDebugGroup()
	}
}

func (c *wgpuCommandBuffer) BindPipeline(p Pipeline) {
	if c.pass == nil {
		return
	}
	c.device.mu.Lock()
	pl, ok := c.device.pipelines[p]
	c.device.mu.Unlock()
	if !ok {
		c.fail("BindPipeline: %w", ErrInvalidHandle)
		return
	}
	c.pass.SetPipeline(pl.pipeline)
}

func (c *wgpuCommandBuffer) SetViewport(v Viewport) {
	if c.pass == nil {
		return
	}
	c.pass.SetViewport(v.X, v.Y, v.Width, v.Height, v.MinDepth, v.MaxDepth)
}

func (c *wgpuCommandBuffer) SetScissor(r Rect) {
	if c.pass == nil {
		return
	}
	c.pass.SetScissorRect(uint32(r.X), uint32(r.Y), r.Width, r.Height)
}

func (c *wgpuCommandBuffer) BindDescriptorSet(index uint32, set DescriptorSet) {
	if c.pass == nil {
		return
	}
	c.device.mu.Lock()
	bg, ok := c.device.sets[set]
	c.device.mu.Unlock()
	if !ok {
		c.fail("BindDescriptorSet: %w", ErrInvalidHandle)
		return
	}
	c.pass.SetBindGroup(index, bg, nil)
}

func (c *wgpuCommandBuffer) BindVertexBuffer(slot uint32, b Buffer, r common.Range) {
	if c.pass == nil {
		return
	}
	c.device.mu.Lock()
	buf, ok := c.device.buffers[b]
	c.device.mu.Unlock()
	if !ok {
		c.fail("BindVertexBuffer: %w", ErrInvalidHandle)
		return
	}
	c.pass.SetVertexBuffer(slot, buf.buffer, r.Offset, r.Size)
}

func (c *wgpuCommandBuffer) BindIndexBuffer(b Buffer, r common.Range) {
	if c.pass == nil {
		return
	}
	c.device.mu.Lock()
	buf, ok := c.device.buffers[b]
	c.device.mu.Unlock()
	if !ok {
		c.fail("BindIndexBuffer: %w", ErrInvalidHandle)
		return
	}
	c.pass.SetIndexBuffer(buf.buffer, wgpu.IndexFormatUint32, r.Offset, r.Size)
}

func (c *wgpuCommandBuffer) PushConstants(stages ShaderStage, offset uint32, data []byte) {
	if c.pass == nil {
		return
	}
	c.pass.SetPushConstants(wgpuShaderStage(stages), offset, data)
}

func (c *wgpuCommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	if c.pass == nil {
		return
	}
	c.pass.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func wgpuTextureFormat(f Format) (wgpu.TextureFormat, error) {
	switch f {
	case FormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm, nil
	case FormatRGBA16Float:
		return wgpu.TextureFormatRGBA16Float, nil
	case FormatDepth32Float:
		return wgpu.TextureFormatDepth32Float, nil
	}
	return 0, fmt.Errorf("format %d is not a texture format", f)
}

func wgpuVertexFormat(f Format) (wgpu.VertexFormat, error) {
	switch f {
	case FormatFloat32x2:
		return wgpu.VertexFormatFloat32x2, nil
	case FormatFloat32x3:
		return wgpu.VertexFormatFloat32x3, nil
	case FormatFloat32x4:
		return wgpu.VertexFormatFloat32x4, nil
	}
	return 0, fmt.Errorf("format %d is not a vertex format", f)
}

func wgpuTextureUsage(u TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage
	if u&(TextureUsageColorAttachment|TextureUsageDepthStencilAttachment) != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}
	if u&TextureUsageSampled != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if u&TextureUsageTransferDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	return out
}

func wgpuBufferUsage(u BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u&BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if u&BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if u&BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if u&BufferUsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}
	if u&BufferUsageTransferDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	return out
}

func wgpuShaderStage(s ShaderStage) wgpu.ShaderStage {
	out := wgpu.ShaderStageNone
	if s&ShaderStageVertex != 0 {
		out |= wgpu.ShaderStageVertex
	}
	if s&ShaderStageFragment != 0 {
		out |= wgpu.ShaderStageFragment
	}
	return out
}

func wgpuBindGroupLayoutEntry(b DescriptorBinding) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    b.Binding,
		Visibility: wgpuShaderStage(b.Stages),
	}
	switch b.Type {
	case DescriptorTypeSampledTexture:
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
	case DescriptorTypeSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case DescriptorTypeUniformBuffer:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	}
	return entry
}

func wgpuFilterMode(f FilterMode) wgpu.FilterMode {
	if f == FilterModeNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

func wgpuCompareFunction(c CompareOp) wgpu.CompareFunction {
	switch c {
	case CompareOpLessEqual:
		return wgpu.CompareFunctionLessEqual
	case CompareOpGreater:
		return wgpu.CompareFunctionGreater
	case CompareOpGreaterEqual:
		return wgpu.CompareFunctionGreaterEqual
	case CompareOpAlways:
		return wgpu.CompareFunctionAlways
	}
	return wgpu.CompareFunctionLess
}

func wgpuCullMode(c CullMode) wgpu.CullMode {
	switch c {
	case CullModeFront:
		return wgpu.CullModeFront
	case CullModeNone:
		return wgpu.CullModeNone
	}
	return wgpu.CullModeBack
}

// wgpuLoadOp maps LoadOpDontCare to clear, the cheapest op WebGPU offers.
func wgpuLoadOp(op LoadOp) wgpu.LoadOp {
	if op == LoadOpLoad {
		return wgpu.LoadOpLoad
	}
	return wgpu.LoadOpClear
}

func wgpuStoreOp(op StoreOp) wgpu.StoreOp {
	if op == StoreOpDontCare {
		return wgpu.StoreOpDiscard
	}
	return wgpu.StoreOpStore
}
