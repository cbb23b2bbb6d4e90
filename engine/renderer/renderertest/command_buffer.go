package renderertest

import (
	"errors"
	"slices"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
)

// Op names a recorded command.
type Op string

const (
	OpBeginRenderPass   Op = "BeginRenderPass"
	OpEndRenderPass     Op = "EndRenderPass"
	OpBeginDebugRegion  Op = "BeginDebugRegion"
	OpEndDebugRegion    Op = "EndDebugRegion"
	OpBindPipeline      Op = "BindPipeline"
	OpSetViewport       Op = "SetViewport"
	OpSetScissor        Op = "SetScissor"
	OpBindDescriptorSet Op = "BindDescriptorSet"
	OpBindVertexBuffer  Op = "BindVertexBuffer"
	OpBindIndexBuffer   Op = "BindIndexBuffer"
	OpPushConstants     Op = "PushConstants"
	OpDrawIndexed       Op = "DrawIndexed"
)

// Command is one recorded call. Only the fields meaningful for Op are set.
type Command struct {
	Op Op
	// Handle is the pipeline, descriptor set, buffer or render pass the command refers to.
	Handle uint64
	// Framebuffer is set for OpBeginRenderPass.
	Framebuffer renderer.Framebuffer
	// Index is the descriptor set index, vertex slot or push constant offset.
	Index  uint32
	Range  common.Range
	Stages renderer.ShaderStage
	Data   []byte
	Label  string
	Rect   renderer.Rect
	View   renderer.Viewport
	Clear  []renderer.ClearValue

	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// CommandBuffer is a recording renderer.CommandBuffer.
type CommandBuffer struct {
	device    *Device
	released  bool
	recording bool
	inPass    bool
	ended     bool
	begins    int
	commands  []Command
}

var _ renderer.CommandBuffer = &CommandBuffer{}

// Commands returns a copy of the recorded commands since the last Begin.
func (c *CommandBuffer) Commands() []Command {
	return slices.Clone(c.commands)
}

// Ops returns the ops of the recorded commands since the last Begin.
func (c *CommandBuffer) Ops() []Op {
	ops := make([]Op, len(c.commands))
	for i, cmd := range c.commands {
		ops[i] = cmd.Op
	}
	return ops
}

// Count returns how many commands with the given op were recorded.
func (c *CommandBuffer) Count(op Op) int {
	n := 0
	for _, cmd := range c.commands {
		if cmd.Op == op {
			n++
		}
	}
	return n
}

// Filter returns the recorded commands with the given op.
func (c *CommandBuffer) Filter(op Op) []Command {
	var out []Command
	for _, cmd := range c.commands {
		if cmd.Op == op {
			out = append(out, cmd)
		}
	}
	return out
}

// Ended reports whether End has been called successfully since the last Begin.
func (c *CommandBuffer) Ended() bool {
	return c.ended
}

// Begins returns how many times Begin was called.
func (c *CommandBuffer) Begins() int {
	return c.begins
}

func (c *CommandBuffer) record(cmd Command) {
	c.commands = append(c.commands, cmd)
}

func (c *CommandBuffer) Begin() error {
	if c.released {
		return errors.New("renderertest: Begin after Release")
	}
	c.begins++
	c.recording = true
	c.inPass = false
	c.ended = false
	c.commands = nil
	return nil
}

func (c *CommandBuffer) End() error {
	if !c.recording {
		return errors.New("renderertest: End without Begin")
	}
	if c.inPass {
		return errors.New("renderertest: render pass still open")
	}
	c.recording = false
	c.ended = true
	return nil
}

// Release drops the recording state and, for buffers from NewCommandBuffer, returns the buffer
// to its device.
func (c *CommandBuffer) Release() {
	if c.released {
		return
	}
	c.released = true
	c.recording = false
	c.inPass = false
	if c.device != nil {
		c.device.mu.Lock()
		c.device.commandBuffers--
		c.device.mu.Unlock()
	}
}

// Released reports whether Release has been called.
func (c *CommandBuffer) Released() bool {
	return c.released
}

func (c *CommandBuffer) BeginRenderPass(pass renderer.RenderPass, fb renderer.Framebuffer, area renderer.Rect, clear []renderer.ClearValue) {
	c.inPass = true
	c.record(Command{Op: OpBeginRenderPass, Handle: uint64(pass), Framebuffer: fb, Rect: area, Clear: slices.Clone(clear)})
}

func (c *CommandBuffer) EndRenderPass() {
	c.inPass = false
	c.record(Command{Op: OpEndRenderPass})
}

func (c *CommandBuffer) BeginDebugRegion(label string, _ [4]float32) {
	c.record(Command{Op: OpBeginDebugRegion, Label: label})
}

func (c *CommandBuffer) EndDebugRegion() {
	c.record(Command{Op: OpEndDebugRegion})
}

func (c *CommandBuffer) BindPipeline(p renderer.Pipeline) {
	c.record(Command{Op: OpBindPipeline, Handle: uint64(p)})
}

func (c *CommandBuffer) SetViewport(v renderer.Viewport) {
	c.record(Command{Op: OpSetViewport, View: v})
}

func (c *CommandBuffer) SetScissor(r renderer.Rect) {
	c.record(Command{Op: OpSetScissor, Rect: r})
}

func (c *CommandBuffer) BindDescriptorSet(index uint32, set renderer.DescriptorSet) {
	c.record(Command{Op: OpBindDescriptorSet, Index: index, Handle: uint64(set)})
}

func (c *CommandBuffer) BindVertexBuffer(slot uint32, b renderer.Buffer, r common.Range) {
	c.record(Command{Op: OpBindVertexBuffer, Index: slot, Handle: uint64(b), Range: r})
}

func (c *CommandBuffer) BindIndexBuffer(b renderer.Buffer, r common.Range) {
	c.record(Command{Op: OpBindIndexBuffer, Handle: uint64(b), Range: r})
}

func (c *CommandBuffer) PushConstants(stages renderer.ShaderStage, offset uint32, data []byte) {
	c.record(Command{Op: OpPushConstants, Stages: stages, Index: offset, Data: slices.Clone(data)})
}

func (c *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	c.record(Command{
		Op:            OpDrawIndexed,
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		BaseVertex:    baseVertex,
		FirstInstance: firstInstance,
	})
}
