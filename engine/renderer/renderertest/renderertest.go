// Package renderertest provides an in-memory renderer.Device and renderer.CommandBuffer that
// record every call. Handles are tracked per kind so tests can assert on leaks and on
// destruction order, and command buffers keep a log that can be compared frame to frame.
package renderertest

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
)

// Kind names a class of device object.
type Kind string

const (
	KindTexture       Kind = "texture"
	KindTextureView   Kind = "texture_view"
	KindBuffer        Kind = "buffer"
	KindSampler       Kind = "sampler"
	KindRenderPass    Kind = "render_pass"
	KindFramebuffer   Kind = "framebuffer"
	KindPipeline      Kind = "pipeline"
	KindDescriptorSet Kind = "descriptor_set"
)

// Event is one entry of the device lifecycle log.
type Event struct {
	Destroy bool
	Kind    Kind
	Handle  uint64
	Label   string
}

// Flush records one FlushMappedRange call.
type Flush struct {
	Buffer renderer.Buffer
	Range  common.Range
}

type object struct {
	kind  Kind
	label string
}

// Device is a recording renderer.Device. The zero value is not usable; call NewDevice.
type Device struct {
	mu sync.Mutex

	next    uint64
	live    map[uint64]object
	events  []Event
	invalid int

	textures    map[renderer.Texture]renderer.TextureDescriptor
	viewTexture map[renderer.TextureView]renderer.Texture
	buffers     map[renderer.Buffer]renderer.BufferDescriptor
	mapped      map[renderer.Buffer][]byte
	passes      map[renderer.RenderPass]renderer.RenderPassDescriptor
	framebuffer map[renderer.Framebuffer]renderer.FramebufferDescriptor
	pipelines   map[renderer.Pipeline]renderer.PipelineDescriptor
	sets        map[renderer.DescriptorSet]renderer.DescriptorSetDescriptor

	failures  map[Kind]error
	flushes   []Flush
	submitted []*CommandBuffer
	waits     int
	released  bool

	// commandBuffers counts buffers from NewCommandBuffer that were not released.
	commandBuffers int
}

var _ renderer.Device = &Device{}

// NewDevice returns an empty recording device.
func NewDevice() *Device {
	return &Device{
		live:        make(map[uint64]object),
		textures:    make(map[renderer.Texture]renderer.TextureDescriptor),
		viewTexture: make(map[renderer.TextureView]renderer.Texture),
		buffers:     make(map[renderer.Buffer]renderer.BufferDescriptor),
		mapped:      make(map[renderer.Buffer][]byte),
		passes:      make(map[renderer.RenderPass]renderer.RenderPassDescriptor),
		framebuffer: make(map[renderer.Framebuffer]renderer.FramebufferDescriptor),
		pipelines:   make(map[renderer.Pipeline]renderer.PipelineDescriptor),
		sets:        make(map[renderer.DescriptorSet]renderer.DescriptorSetDescriptor),
		failures:    make(map[Kind]error),
	}
}

// Fail makes every following Create call of the given kind return err. A nil err clears it.
func (d *Device) Fail(kind Kind, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err == nil {
		delete(d.failures, kind)
		return
	}
	d.failures[kind] = err
}

// Live returns the number of live handles of the given kind, or of every kind when kind is empty.
func (d *Device) Live(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, o := range d.live {
		if kind == "" || o.kind == kind {
			n++
		}
	}
	return n
}

// IsLive reports whether the handle is currently live.
func (d *Device) IsLive(handle uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.live[handle]
	return ok
}

// Events returns a copy of the lifecycle log.
func (d *Device) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Clone(d.events)
}

// Created counts Create events of a kind.
func (d *Device) Created(kind Kind) int {
	return d.count(kind, false)
}

// Destroyed counts Destroy events of a kind.
func (d *Device) Destroyed(kind Kind) int {
	return d.count(kind, true)
}

func (d *Device) count(kind Kind, destroy bool) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, e := range d.events {
		if e.Kind == kind && e.Destroy == destroy {
			n++
		}
	}
	return n
}

// InvalidDestroys counts Destroy calls on handles that were not live, excluding zero handles.
func (d *Device) InvalidDestroys() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.invalid
}

// Texture returns the descriptor a live texture was created with.
func (d *Device) Texture(t renderer.Texture) (renderer.TextureDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	desc, ok := d.textures[t]
	return desc, ok
}

// Framebuffer returns the descriptor a live framebuffer was created with.
func (d *Device) Framebuffer(f renderer.Framebuffer) (renderer.FramebufferDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	desc, ok := d.framebuffer[f]
	return desc, ok
}

// RenderPass returns the descriptor a live render pass was created with.
func (d *Device) RenderPass(p renderer.RenderPass) (renderer.RenderPassDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	desc, ok := d.passes[p]
	return desc, ok
}

// Pipeline returns the descriptor a live pipeline was created with.
func (d *Device) Pipeline(p renderer.Pipeline) (renderer.PipelineDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	desc, ok := d.pipelines[p]
	return desc, ok
}

// DescriptorSet returns the descriptor a live descriptor set was created with.
func (d *Device) DescriptorSet(s renderer.DescriptorSet) (renderer.DescriptorSetDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	desc, ok := d.sets[s]
	return desc, ok
}

// Flushes returns every FlushMappedRange call in order.
func (d *Device) Flushes() []Flush {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Clone(d.flushes)
}

// Submitted returns every submitted command buffer in submission order.
func (d *Device) Submitted() []*CommandBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Clone(d.submitted)
}

// Waits returns the number of WaitForQueueIdle calls.
func (d *Device) Waits() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.waits
}

// Released reports whether Release was called.
func (d *Device) Released() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.released
}

func (d *Device) create(kind Kind, label string) (uint64, error) {
	if err := d.failures[kind]; err != nil {
		return 0, err
	}
	d.next++
	d.live[d.next] = object{kind: kind, label: label}
	d.events = append(d.events, Event{Kind: kind, Handle: d.next, Label: label})
	return d.next, nil
}

func (d *Device) lookup(kind Kind, h uint64) bool {
	o, ok := d.live[h]
	return ok && o.kind == kind
}

func (d *Device) destroy(kind Kind, h uint64) bool {
	if h == 0 {
		return false
	}
	if !d.lookup(kind, h) {
		d.invalid++
		return false
	}
	o := d.live[h]
	delete(d.live, h)
	d.events = append(d.events, Event{Destroy: true, Kind: kind, Handle: h, Label: o.label})
	return true
}

func (d *Device) Backend() renderer.RendererBackendType {
	return renderer.BackendTypeWGPU
}

func (d *Device) CreateTexture(desc renderer.TextureDescriptor) (renderer.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if desc.Width == 0 || desc.Height == 0 {
		return 0, fmt.Errorf("texture %q has zero size", desc.Label)
	}
	h, err := d.create(KindTexture, desc.Label)
	if err != nil {
		return 0, err
	}
	d.textures[renderer.Texture(h)] = desc
	return renderer.Texture(h), nil
}

func (d *Device) DestroyTexture(t renderer.Texture) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroy(KindTexture, uint64(t)) {
		delete(d.textures, t)
	}
}

func (d *Device) CreateTextureView(t renderer.Texture) (renderer.TextureView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	desc, ok := d.textures[t]
	if !ok {
		return 0, renderer.ErrInvalidHandle
	}
	h, err := d.create(KindTextureView, desc.Label+" View")
	if err != nil {
		return 0, err
	}
	d.viewTexture[renderer.TextureView(h)] = t
	return renderer.TextureView(h), nil
}

func (d *Device) DestroyTextureView(v renderer.TextureView) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroy(KindTextureView, uint64(v)) {
		delete(d.viewTexture, v)
	}
}

func (d *Device) CreateBuffer(desc renderer.BufferDescriptor) (renderer.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h, err := d.create(KindBuffer, desc.Label)
	if err != nil {
		return 0, err
	}
	b := renderer.Buffer(h)
	d.buffers[b] = desc
	if desc.HostVisible {
		d.mapped[b] = make([]byte, desc.Size)
	}
	return b, nil
}

func (d *Device) DestroyBuffer(b renderer.Buffer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroy(KindBuffer, uint64(b)) {
		delete(d.buffers, b)
		delete(d.mapped, b)
	}
}

func (d *Device) MapBuffer(b renderer.Buffer) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.lookup(KindBuffer, uint64(b)) {
		return nil, renderer.ErrInvalidHandle
	}
	m, ok := d.mapped[b]
	if !ok {
		return nil, renderer.ErrNotMappable
	}
	return m, nil
}

func (d *Device) FlushMappedRange(b renderer.Buffer, r common.Range) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, ok := d.mapped[b]
	if !ok {
		return renderer.ErrNotMappable
	}
	if r.End() > uint64(len(m)) {
		return fmt.Errorf("flush range [%d, %d) exceeds buffer size %d", r.Offset, r.End(), len(m))
	}
	d.flushes = append(d.flushes, Flush{Buffer: b, Range: r})
	return nil
}

// Buffer returns the descriptor a live buffer was created with.
func (d *Device) Buffer(b renderer.Buffer) (renderer.BufferDescriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	desc, ok := d.buffers[b]
	return desc, ok
}

// Mapped returns the host mapping of a HostVisible buffer without going through MapBuffer.
func (d *Device) Mapped(b renderer.Buffer) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.mapped[b]
}

func (d *Device) CreateSampler(desc renderer.SamplerDescriptor) (renderer.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h, err := d.create(KindSampler, desc.Label)
	return renderer.Sampler(h), err
}

func (d *Device) DestroySampler(s renderer.Sampler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.destroy(KindSampler, uint64(s))
}

func (d *Device) CreateRenderPass(desc renderer.RenderPassDescriptor) (renderer.RenderPass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h, err := d.create(KindRenderPass, desc.Label)
	if err != nil {
		return 0, err
	}
	d.passes[renderer.RenderPass(h)] = desc
	return renderer.RenderPass(h), nil
}

func (d *Device) DestroyRenderPass(p renderer.RenderPass) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroy(KindRenderPass, uint64(p)) {
		delete(d.passes, p)
	}
}

func (d *Device) CreateFramebuffer(desc renderer.FramebufferDescriptor) (renderer.Framebuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pass, ok := d.passes[desc.Pass]
	if !ok {
		return 0, renderer.ErrInvalidHandle
	}
	if len(desc.Attachments) != len(pass.Attachments) {
		return 0, fmt.Errorf("framebuffer %q has %d attachments, render pass expects %d", desc.Label, len(desc.Attachments), len(pass.Attachments))
	}
	for i, v := range desc.Attachments {
		t, ok := d.viewTexture[v]
		if !ok {
			return 0, fmt.Errorf("framebuffer %q attachment %d: %w", desc.Label, i, renderer.ErrInvalidHandle)
		}
		tex := d.textures[t]
		if tex.Width != desc.Width || tex.Height != desc.Height {
			return 0, fmt.Errorf("framebuffer %q attachment %d is %dx%d, want %dx%d", desc.Label, i, tex.Width, tex.Height, desc.Width, desc.Height)
		}
	}
	h, err := d.create(KindFramebuffer, desc.Label)
	if err != nil {
		return 0, err
	}
	d.framebuffer[renderer.Framebuffer(h)] = desc
	return renderer.Framebuffer(h), nil
}

func (d *Device) DestroyFramebuffer(f renderer.Framebuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroy(KindFramebuffer, uint64(f)) {
		delete(d.framebuffer, f)
	}
}

func (d *Device) CreatePipeline(desc renderer.PipelineDescriptor, pass renderer.RenderPass) (renderer.Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.lookup(KindRenderPass, uint64(pass)) {
		return 0, renderer.ErrInvalidHandle
	}
	h, err := d.create(KindPipeline, desc.Label)
	if err != nil {
		return 0, err
	}
	d.pipelines[renderer.Pipeline(h)] = desc
	return renderer.Pipeline(h), nil
}

func (d *Device) DestroyPipeline(p renderer.Pipeline) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroy(KindPipeline, uint64(p)) {
		delete(d.pipelines, p)
	}
}

func (d *Device) CreateDescriptorSet(desc renderer.DescriptorSetDescriptor) (renderer.DescriptorSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pipelines[desc.Pipeline]
	if !ok {
		return 0, renderer.ErrInvalidHandle
	}
	if int(desc.Set) >= len(p.SetLayouts) {
		return 0, fmt.Errorf("pipeline %q has no descriptor set %d", p.Label, desc.Set)
	}
	h, err := d.create(KindDescriptorSet, desc.Label)
	if err != nil {
		return 0, err
	}
	d.sets[renderer.DescriptorSet(h)] = desc
	return renderer.DescriptorSet(h), nil
}

func (d *Device) DestroyDescriptorSet(s renderer.DescriptorSet) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.destroy(KindDescriptorSet, uint64(s)) {
		delete(d.sets, s)
	}
}

func (d *Device) NewCommandBuffer() (renderer.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.commandBuffers++
	return &CommandBuffer{device: d}, nil
}

// LiveCommandBuffers returns how many command buffers from NewCommandBuffer are not yet released.
func (d *Device) LiveCommandBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.commandBuffers
}

// ErrStillRecording is returned by SubmitToQueue for command buffers that were not ended.
var ErrStillRecording = errors.New("renderertest: command buffer still recording")

func (d *Device) SubmitToQueue(cmds ...renderer.CommandBuffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, c := range cmds {
		cb, ok := c.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("command buffer %d was not created by this device", i)
		}
		if cb.released {
			return fmt.Errorf("command buffer %d was released", i)
		}
		if cb.recording {
			return ErrStillRecording
		}
	}
	for _, c := range cmds {
		d.submitted = append(d.submitted, c.(*CommandBuffer))
	}
	return nil
}

func (d *Device) WaitForQueueIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.waits++
	return nil
}

func (d *Device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.released = true
}
