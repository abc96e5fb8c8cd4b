package gpu

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// maxColorAttachments and maxShaderStages are the frame parameters from §6.
const (
	maxColorAttachments = 8
	maxShaderStages     = 5
	maxDescriptorSets   = 4
)

// Attachment describes one color or depth attachment for BeginRendering.
type Attachment struct {
	Texture TextureHandle
	Clear   *[4]float32 // nil keeps LoadOpLoad; non-nil clears to this color before the pass
}

// CommandBuffer is the high-level recorder that binds to exactly one backend
// command buffer and one device (§4.E). It is not safe for concurrent use —
// the engine records all commands from a single main thread (§5).
type CommandBuffer struct {
	device  *Device
	handle  vk.CommandBuffer

	boundPipeline PipelineHandle
	boundBindPoint BindPoint
	boundLayout    vk.PipelineLayout
}

func (cb *CommandBuffer) Handle() vk.CommandBuffer { return cb.handle }

func toVkLayout(l TextureLayout) vk.ImageLayout {
	switch l {
	case LayoutGeneral:
		return vk.ImageLayoutGeneral
	case LayoutReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case LayoutColorAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case LayoutDepthStencilAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case LayoutTransferSrc:
		return vk.ImageLayoutTransferSrcOptimal
	case LayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case LayoutPresentSrc:
		return vk.ImageLayoutPresentSrc
	default:
		return vk.ImageLayoutUndefined
	}
}

// TransitionImage issues a synchronization-2 image barrier to newLayout,
// conservatively covering all stages/accesses (§4.E), and records the new
// layout on the texture. A transition to the texture's current layout is
// elided entirely — no barrier is recorded (§8 layout-tracking property).
func (cb *CommandBuffer) TransitionImage(tex TextureHandle, newLayout TextureLayout) {
	current, ok := cb.device.TextureLayout(tex)
	if !ok || current == newLayout {
		return
	}

	aspect := cb.device.TextureAspect(tex)
	if newLayout == LayoutDepthStencilAttachment {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}

	barrier := vk.ImageMemoryBarrier2{
		SType:               vk.StructureTypeImageMemoryBarrier2,
		SrcStageMask:        vk.PipelineStageFlags2(vk.PipelineStageAllCommandsBit),
		DstStageMask:        vk.PipelineStageFlags2(vk.PipelineStageAllCommandsBit),
		SrcAccessMask:       vk.AccessFlags2(vk.AccessMemoryWriteBit),
		DstAccessMask:       vk.AccessFlags2(vk.AccessMemoryWriteBit | vk.AccessMemoryReadBit),
		OldLayout:           toVkLayout(current),
		NewLayout:           toVkLayout(newLayout),
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               cb.device.textureImage(tex),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: vk.RemainingMipLevels,
			LayerCount: vk.RemainingArrayLayers,
		},
	}
	dep := vk.DependencyInfo{
		SType:                   vk.StructureTypeDependencyInfo,
		ImageMemoryBarrierCount: 1,
		PImageMemoryBarriers:    []vk.ImageMemoryBarrier2{barrier},
	}
	vk.CmdPipelineBarrier2(cb.handle, &dep)

	cb.device.setTextureLayout(tex, newLayout)
}

// BufferBarrier issues a synchronization-2 buffer memory barrier over
// [offset, offset+size) with the given access/stage masks (§4.E).
func (cb *CommandBuffer) BufferBarrier(buf BufferHandle, srcAccess, dstAccess vk.AccessFlags2, srcStage, dstStage vk.PipelineStageFlags2, offset, size uint64) {
	b := cb.device.buffers.Access(buf)
	if b == nil {
		return
	}
	barrier := vk.BufferMemoryBarrier2{
		SType:               vk.StructureTypeBufferMemoryBarrier2,
		SrcStageMask:        srcStage,
		DstStageMask:        dstStage,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              b.Native,
		Offset:              vk.DeviceSize(offset),
		Size:                vk.DeviceSize(size),
	}
	dep := vk.DependencyInfo{
		SType:                    vk.StructureTypeDependencyInfo,
		BufferMemoryBarrierCount: 1,
		PBufferMemoryBarriers:    []vk.BufferMemoryBarrier2{barrier},
	}
	vk.CmdPipelineBarrier2(cb.handle, &dep)
}

// ClearImage transitions tex to General and clears it to rgba (§4.E).
func (cb *CommandBuffer) ClearImage(tex TextureHandle, rgba [4]float32) {
	cb.TransitionImage(tex, LayoutGeneral)
	clearColor := vk.ClearColorValue{}
	clearColor.SetFloat32(rgba[:])
	aspect := cb.device.TextureAspect(tex)
	rng := vk.ImageSubresourceRange{AspectMask: aspect, LevelCount: vk.RemainingMipLevels, LayerCount: vk.RemainingArrayLayers}
	vk.CmdClearColorImage(cb.handle, cb.device.textureImage(tex), vk.ImageLayoutGeneral, &clearColor, 1, []vk.ImageSubresourceRange{rng})
}

// Rect2D is a plain (x, y, width, height) rectangle for blits, scissors, and
// viewports expressed in the caller's own coordinates.
type Rect2D struct {
	X, Y, Width, Height int32
}

// BlitImage blits src's srcRect into dst's dstRect with the given filter.
// Both textures must already be in their respective transfer layouts —
// TransitionImage is the caller's responsibility (§4.E).
func (cb *CommandBuffer) BlitImage(src TextureHandle, srcRect Rect2D, dst TextureHandle, dstRect Rect2D, filter vk.Filter) {
	blit := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: cb.device.TextureAspect(src), LayerCount: 1},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: cb.device.TextureAspect(dst), LayerCount: 1},
	}
	blit.SrcOffsets[0] = vk.Offset3D{X: srcRect.X, Y: srcRect.Y}
	blit.SrcOffsets[1] = vk.Offset3D{X: srcRect.X + srcRect.Width, Y: srcRect.Y + srcRect.Height, Z: 1}
	blit.DstOffsets[0] = vk.Offset3D{X: dstRect.X, Y: dstRect.Y}
	blit.DstOffsets[1] = vk.Offset3D{X: dstRect.X + dstRect.Width, Y: dstRect.Y + dstRect.Height, Z: 1}

	vk.CmdBlitImage(cb.handle,
		cb.device.textureImage(src), vk.ImageLayoutTransferSrcOptimal,
		cb.device.textureImage(dst), vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{blit}, filter)
}

func (cb *CommandBuffer) copyRawBuffer(src, dst vk.Buffer, size vk.DeviceSize) {
	region := vk.BufferCopy{Size: size}
	vk.CmdCopyBuffer(cb.handle, src, dst, 1, []vk.BufferCopy{region})
}

// CopyBuffer copies size bytes from src to dst.
func (cb *CommandBuffer) CopyBuffer(src, dst BufferHandle, size uint64) {
	s := cb.device.buffers.Access(src)
	d := cb.device.buffers.Access(dst)
	if s == nil || d == nil {
		return
	}
	cb.copyRawBuffer(s.Native, d.Native, vk.DeviceSize(size))
}

// CopyBufferToTexture copies src into dst's given mip level at byte offset.
func (cb *CommandBuffer) CopyBufferToTexture(src vk.Buffer, dst TextureHandle, mip uint32, offset uint64) {
	width, height := cb.device.TextureDimensions(dst)
	region := vk.BufferImageCopy{
		BufferOffset: vk.DeviceSize(offset),
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: cb.device.TextureAspect(dst),
			MipLevel:   mip,
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cb.handle, src, cb.device.textureImage(dst), vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

// BindPipeline binds h and records its bind point and layout so subsequent
// BindDescriptorSet/PushConstants calls know where to route (§4.E).
func (cb *CommandBuffer) BindPipeline(h PipelineHandle) {
	p := cb.device.pipelines.Access(h)
	if p == nil {
		return
	}
	bindPoint := vk.PipelineBindPointGraphics
	if p.BindPoint == BindPointCompute {
		bindPoint = vk.PipelineBindPointCompute
	}
	vk.CmdBindPipeline(cb.handle, bindPoint, p.Native)
	cb.boundPipeline = h
	cb.boundBindPoint = p.BindPoint
	cb.boundLayout = p.Layout
}

// BindDescriptorSet binds h at setIndex against the currently bound
// pipeline's layout.
func (cb *CommandBuffer) BindDescriptorSet(h DescriptorSetHandle, setIndex uint32) {
	s := cb.device.descriptorSets.Access(h)
	if s == nil {
		return
	}
	bindPoint := vk.PipelineBindPointGraphics
	if cb.boundBindPoint == BindPointCompute {
		bindPoint = vk.PipelineBindPointCompute
	}
	vk.CmdBindDescriptorSets(cb.handle, bindPoint, cb.boundLayout, setIndex, 1, []vk.DescriptorSet{s.Native}, 0, nil)
}

// BindBindlessSet binds the device's single bindless descriptor set at set
// index 0, the convention every pipeline created by CreateGraphicsPipeline
// or CreateComputePipeline follows.
func (cb *CommandBuffer) BindBindlessSet() {
	bindPoint := vk.PipelineBindPointGraphics
	if cb.boundBindPoint == BindPointCompute {
		bindPoint = vk.PipelineBindPointCompute
	}
	vk.CmdBindDescriptorSets(cb.handle, bindPoint, cb.boundLayout, 0, 1, []vk.DescriptorSet{cb.device.bindless.Set}, 0, nil)
}

// BindIndexBuffer binds h as the 32-bit index buffer (§4.E: "assumes 32-bit
// indices").
func (cb *CommandBuffer) BindIndexBuffer(h BufferHandle) {
	b := cb.device.buffers.Access(h)
	if b == nil {
		return
	}
	vk.CmdBindIndexBuffer(cb.handle, b.Native, 0, vk.IndexTypeUint32)
}

// BeginRendering starts dynamic rendering over up to 8 color attachments and
// an optional depth attachment (§4.E, §6). load=Load/store=Store unless the
// attachment requests a clear.
func (cb *CommandBuffer) BeginRendering(color []Attachment, depth *Attachment) {
	if len(color) > maxColorAttachments {
		panic("gpu: too many color attachments")
	}

	colorInfos := make([]vk.RenderingAttachmentInfo, len(color))
	var width, height uint32
	for i, a := range color {
		w, h := cb.device.TextureDimensions(a.Texture)
		width, height = w, h
		info := vk.RenderingAttachmentInfo{
			SType:       vk.StructureTypeRenderingAttachmentInfo,
			ImageView:   cb.device.TextureView(a.Texture),
			ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
			LoadOp:      vk.AttachmentLoadOpLoad,
			StoreOp:     vk.AttachmentStoreOpStore,
		}
		if a.Clear != nil {
			info.LoadOp = vk.AttachmentLoadOpClear
			info.ClearValue.Color.SetFloat32(a.Clear[:])
		}
		colorInfos[i] = info
	}

	renderInfo := vk.RenderingInfo{
		SType:                vk.StructureTypeRenderingInfo,
		RenderArea:           vk.Rect2D{Extent: vk.Extent2D{Width: width, Height: height}},
		LayerCount:           1,
		ColorAttachmentCount: uint32(len(colorInfos)),
		PColorAttachments:    colorInfos,
	}

	if depth != nil {
		w, h := cb.device.TextureDimensions(depth.Texture)
		width, height = w, h
		renderInfo.RenderArea.Extent = vk.Extent2D{Width: width, Height: height}
		depthInfo := vk.RenderingAttachmentInfo{
			SType:       vk.StructureTypeRenderingAttachmentInfo,
			ImageView:   cb.device.TextureView(depth.Texture),
			ImageLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
			LoadOp:      vk.AttachmentLoadOpLoad,
			StoreOp:     vk.AttachmentStoreOpStore,
		}
		if depth.Clear != nil {
			depthInfo.LoadOp = vk.AttachmentLoadOpClear
			depthInfo.ClearValue.DepthStencil = vk.ClearDepthStencilValue{Depth: depth.Clear[0]}
		}
		renderInfo.PDepthAttachment = &depthInfo
	}

	vk.CmdBeginRendering(cb.handle, &renderInfo)
}

// EndRendering ends the dynamic-rendering scope begun by BeginRendering.
func (cb *CommandBuffer) EndRendering() {
	vk.CmdEndRendering(cb.handle)
}

// SetViewport sets a single dynamic viewport.
func (cb *CommandBuffer) SetViewport(r Rect2D) {
	vp := vk.Viewport{
		X: float32(r.X), Y: float32(r.Y),
		Width: float32(r.Width), Height: float32(r.Height),
		MinDepth: 0, MaxDepth: 1,
	}
	vk.CmdSetViewport(cb.handle, 0, 1, []vk.Viewport{vp})
}

// SetScissor sets a single dynamic scissor rectangle.
func (cb *CommandBuffer) SetScissor(r Rect2D) {
	sc := vk.Rect2D{
		Offset: vk.Offset2D{X: r.X, Y: r.Y},
		Extent: vk.Extent2D{Width: uint32(r.Width), Height: uint32(r.Height)},
	}
	vk.CmdSetScissor(cb.handle, 0, 1, []vk.Rect2D{sc})
}

// Draw issues a non-indexed draw call.
func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	vk.CmdDraw(cb.handle, vertexCount, instanceCount, firstVertex, firstInstance)
}

// DrawIndexed issues an indexed draw call.
func (cb *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	vk.CmdDrawIndexed(cb.handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

// Dispatch issues a compute dispatch.
func (cb *CommandBuffer) Dispatch(groupsX, groupsY, groupsZ uint32) {
	vk.CmdDispatch(cb.handle, groupsX, groupsY, groupsZ)
}

// PushConstants uploads value as the push-constant block for the currently
// bound pipeline. Stage visibility is inferred from the bound pipeline's
// bind point: all graphics stages for a graphics pipeline, compute for a
// compute pipeline (§4.E).
func (cb *CommandBuffer) PushConstants(value unsafe.Pointer, size uint32) {
	stages := vk.ShaderStageFlags(vk.ShaderStageAllGraphics)
	if cb.boundBindPoint == BindPointCompute {
		stages = vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	}
	vk.CmdPushConstants(cb.handle, cb.boundLayout, stages, 0, size, value)
}
