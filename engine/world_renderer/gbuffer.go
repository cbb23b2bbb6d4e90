package world_renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-world/common"
	"github.com/Carmen-Shannon/oxy-world/engine/renderer"
)

// G-buffer attachment indices, in render pass order.
const (
	AttachmentAlbedoRoughness = iota
	AttachmentNormalMetalness
	AttachmentDepth
	attachmentCount
)

type attachmentSpec struct {
	label  string
	format renderer.Format
	usage  renderer.TextureUsage
}

var gbufferAttachments = [attachmentCount]attachmentSpec{
	AttachmentAlbedoRoughness: {
		label:  "GBufferAlbedoRoughness",
		format: renderer.FormatRGBA8Unorm,
		usage:  renderer.TextureUsageColorAttachment | renderer.TextureUsageSampled,
	},
	AttachmentNormalMetalness: {
		label:  "GBufferNormalMetalness",
		format: renderer.FormatRGBA8Unorm,
		usage:  renderer.TextureUsageColorAttachment | renderer.TextureUsageSampled,
	},
	AttachmentDepth: {
		label:  "GBufferDepth",
		format: renderer.FormatDepth32Float,
		usage:  renderer.TextureUsageDepthStencilAttachment | renderer.TextureUsageSampled,
	},
}

// GBufferViews are the sampled views of the G-buffer attachments, valid until the next resize.
type GBufferViews struct {
	AlbedoRoughness renderer.TextureView
	NormalMetalness renderer.TextureView
	Depth           renderer.TextureView
}

// gbufferPassDescriptor describes the geometry pass: every attachment is cleared on load, stored,
// and left ready for sampling by the lighting pass.
func gbufferPassDescriptor() renderer.RenderPassDescriptor {
	desc := renderer.RenderPassDescriptor{
		Label:       "GBufferPass",
		Attachments: make([]renderer.AttachmentDescription, attachmentCount),
	}
	for i, a := range gbufferAttachments {
		desc.Attachments[i] = renderer.AttachmentDescription{
			Format:        a.format,
			LoadOp:        renderer.LoadOpClear,
			StoreOp:       renderer.StoreOpStore,
			InitialLayout: renderer.TextureLayoutUndefined,
			FinalLayout:   renderer.TextureLayoutShaderReadOnly,
		}
	}
	return desc
}

// gbuffer holds the dimension-dependent resources of the geometry pass.
type gbuffer struct {
	dims        common.Dimensions
	textures    [attachmentCount]renderer.Texture
	views       [attachmentCount]renderer.TextureView
	framebuffer renderer.Framebuffer
}

// createGBuffer allocates the attachment textures, their views and a framebuffer binding them to
// pass. Anything created before a failure is destroyed again.
//
// Parameters:
//   - dev: the device to allocate on
//   - pass: the G-buffer render pass
//   - dims: the attachment size
//
// Returns:
//   - *gbuffer: the G-buffer resources
//   - error: error if any allocation fails
func createGBuffer(dev renderer.Device, pass renderer.RenderPass, dims common.Dimensions) (*gbuffer, error) {
	g := &gbuffer{dims: dims}

	for i, a := range gbufferAttachments {
		tex, err := dev.CreateTexture(renderer.TextureDescriptor{
			Label:  a.label,
			Width:  dims.Width,
			Height: dims.Height,
			Format: a.format,
			Usage:  a.usage,
		})
		if err != nil {
			g.destroy(dev)
			return nil, fmt.Errorf("failed to create %s texture: %w", a.label, err)
		}
		g.textures[i] = tex

		view, err := dev.CreateTextureView(tex)
		if err != nil {
			g.destroy(dev)
			return nil, fmt.Errorf("failed to create %s view: %w", a.label, err)
		}
		g.views[i] = view
	}

	fb, err := dev.CreateFramebuffer(renderer.FramebufferDescriptor{
		Label:       "GBufferFramebuffer",
		Pass:        pass,
		Attachments: g.views[:],
		Width:       dims.Width,
		Height:      dims.Height,
	})
	if err != nil {
		g.destroy(dev)
		return nil, fmt.Errorf("failed to create G-buffer framebuffer: %w", err)
	}
	g.framebuffer = fb
	return g, nil
}

// destroy releases the G-buffer in reverse creation order. Zero handles are skipped by the device.
func (g *gbuffer) destroy(dev renderer.Device) {
	dev.DestroyFramebuffer(g.framebuffer)
	for i := attachmentCount - 1; i >= 0; i-- {
		dev.DestroyTextureView(g.views[i])
		dev.DestroyTexture(g.textures[i])
	}
	*g = gbuffer{}
}

func (g *gbuffer) sampledViews() GBufferViews {
	return GBufferViews{
		AlbedoRoughness: g.views[AttachmentAlbedoRoughness],
		NormalMetalness: g.views[AttachmentNormalMetalness],
		Depth:           g.views[AttachmentDepth],
	}
}
