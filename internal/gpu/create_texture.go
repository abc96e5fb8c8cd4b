package gpu

import vk "github.com/vulkan-go/vulkan"

func toVkImageType(t TextureType) vk.ImageType {
	switch t {
	case TextureType1D:
		return vk.ImageType1d
	case TextureType3D:
		return vk.ImageType3d
	default:
		return vk.ImageType2d
	}
}

func toVkImageViewType(t TextureType) vk.ImageViewType {
	switch t {
	case TextureType1D:
		return vk.ImageViewType1d
	case TextureType3D:
		return vk.ImageViewType3d
	default:
		return vk.ImageViewType2d
	}
}

func toVkImageUsage(usage TextureUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlagBits
	if usage.Has(TextureUsageRenderTarget) {
		flags |= vk.ImageUsageColorAttachmentBit
	}
	if usage.Has(TextureUsageStorageImage) {
		flags |= vk.ImageUsageStorageBit
	}
	if usage.Has(TextureUsageTransferSrc) {
		flags |= vk.ImageUsageTransferSrcBit
	}
	if usage.Has(TextureUsageTransferDst) {
		flags |= vk.ImageUsageTransferDstBit
	}
	if usage.Has(TextureUsageSampled) {
		flags |= vk.ImageUsageSampledBit
	}
	return vk.ImageUsageFlags(flags)
}

func imageAspectFor(format vk.Format) vk.ImageAspectFlags {
	switch format {
	case vk.FormatD32Sfloat, vk.FormatD16Unorm:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	case vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD16UnormS8Uint:
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	default:
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
}

// CreateTexture allocates an image and view and, when spec.Bindless is set,
// acquires a sampled and/or storage bindless slot based on spec.Usage
// (§4.D). Sampled and storage slots are tracked independently per the
// resolved open question in §9 — a texture created with both flags gets two
// slots, one per array.
func (d *Device) CreateTexture(spec TextureSpec) TextureHandle {
	mipCount := spec.MipCount
	if mipCount == 0 {
		mipCount = 1
	}
	depth := spec.Depth
	if depth == 0 {
		depth = 1
	}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: toVkImageType(spec.Type),
		Format:    spec.Format,
		Extent:    vk.Extent3D{Width: spec.Width, Height: spec.Height, Depth: depth},
		MipLevels: mipCount,
		ArrayLayers: 1,
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       toVkImageUsage(spec.Usage),
		SharingMode: vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var image vk.Image
	mustSucceed(vk.CreateImage(d.handle, &imageInfo, nil, &image), "create image")

	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.handle, image, &reqs)
	mem, err := d.mem.allocate(reqs, deviceLocalProperties(), false)
	if err != nil {
		d.fatal("allocate image memory", err)
	}
	mustSucceed(vk.BindImageMemory(d.handle, image, mem, 0), "bind image memory")

	aspect := imageAspectFor(spec.Format)
	view := d.createImageView(image, spec.Format, aspect)

	sampledSlot, storageSlot := int32(-1), int32(-1)
	if spec.Bindless {
		if spec.Usage.Has(TextureUsageSampled) || spec.Usage.Has(TextureUsageRenderTarget) {
			sampledSlot = d.bindless.sampledImages.acquire()
			d.writeBindlessSampledImage(sampledSlot, view)
		}
		if spec.Usage.Has(TextureUsageStorageImage) {
			storageSlot = d.bindless.storageImages.acquire()
			d.writeBindlessStorageImage(storageSlot, view)
		}
	}

	h := d.textures.Acquire()
	*d.textures.Access(h) = Texture{
		Hot: TextureHot{
			Image:       image,
			View:        view,
			Layout:      LayoutUndefined,
			Width:       spec.Width,
			Height:      spec.Height,
			Depth:       depth,
			MipCount:    mipCount,
			SampledSlot: sampledSlot,
			StorageSlot: storageSlot,
		},
		Cold: TextureCold{
			Format: spec.Format,
			Type:   spec.Type,
			Usage:  spec.Usage,
			Name:   spec.Name,
			Aspect: aspect,
			Memory: mem,
		},
	}
	return h
}

// UploadTextureUsingStagingBuffer transitions tex to TransferDst, copies
// bytes in from a transient host-visible staging buffer via an immediate
// submit, and transitions to ReadOnly when keepReadOnly is set (§4.D).
func (d *Device) UploadTextureUsingStagingBuffer(tex TextureHandle, bytes []byte, keepReadOnly bool) {
	t := d.textures.Access(tex)
	if t == nil {
		return
	}

	staging, stagingMem, mappedBytes := d.createRawBuffer(uint64(len(bytes)), BufferUsageTransferSrc, true)
	copy(mappedBytes, bytes)

	d.ImmediateSubmit(func(cmd *CommandBuffer) {
		cmd.TransitionImage(tex, LayoutTransferDst)
		cmd.CopyBufferToTexture(staging, tex, 0, 0)
		if keepReadOnly {
			cmd.TransitionImage(tex, LayoutReadOnly)
		}
	})

	vk.UnmapMemory(d.handle, stagingMem)
	vk.DestroyBuffer(d.handle, staging, nil)
	vk.FreeMemory(d.handle, stagingMem, nil)
}

// DestroyTexture enqueues tex's image, view, and memory for deferred
// destruction and releases its bindless slots immediately. Swapchain
// textures are non-destroyable by user code (§3) — the call is a no-op for
// them, logged as a warning since it signals a caller bug.
func (d *Device) DestroyTexture(h TextureHandle) {
	t := d.textures.Access(h)
	if t == nil {
		return
	}
	if t.Cold.Swapchain {
		if d.log != nil && d.log.Warn != nil {
			d.log.Warn.Printf("gpu: ignoring DestroyTexture on swapchain-owned texture %v", h)
		}
		return
	}

	image, view, mem := t.Hot.Image, t.Hot.View, t.Cold.Memory
	if t.Hot.SampledSlot >= 0 {
		d.bindless.sampledImages.release(t.Hot.SampledSlot)
	}
	if t.Hot.StorageSlot >= 0 {
		d.bindless.storageImages.release(t.Hot.StorageSlot)
	}
	d.textures.Release(h)

	d.queueForDestroy(destroyImage, func(dev *Device) {
		vk.DestroyImageView(dev.handle, view, nil)
		vk.DestroyImage(dev.handle, image, nil)
		vk.FreeMemory(dev.handle, mem, nil)
	})
}

// CreateSampler allocates a backend sampler and a bindless sampler slot.
func (d *Device) CreateSampler(spec SamplerSpec) SamplerHandle {
	samplerInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    spec.Filter,
		MinFilter:    spec.Filter,
		AddressModeU: spec.AddressMode,
		AddressModeV: spec.AddressMode,
		AddressModeW: spec.AddressMode,
		MaxLod:       vk.MaxLod,
	}
	var sampler vk.Sampler
	mustSucceed(vk.CreateSampler(d.handle, &samplerInfo, nil, &sampler), "create sampler")

	slot := d.bindless.samplers.acquire()
	d.writeBindlessSampler(slot, sampler)

	h := d.samplers.Acquire()
	*d.samplers.Access(h) = Sampler{
		Native:       sampler,
		Filter:       spec.Filter,
		AddressMode:  spec.AddressMode,
		BindlessSlot: slot,
	}
	return h
}

// DestroySampler enqueues the sampler for deferred destruction and releases
// its bindless slot immediately.
func (d *Device) DestroySampler(h SamplerHandle) {
	s := d.samplers.Access(h)
	if s == nil {
		return
	}
	native := s.Native
	if s.BindlessSlot >= 0 {
		d.bindless.samplers.release(s.BindlessSlot)
	}
	d.samplers.Release(h)

	d.queueForDestroy(destroySampler, func(dev *Device) {
		vk.DestroySampler(dev.handle, native, nil)
	})
}

// TextureLayout returns the texture's last-recorded layout, used by
// CommandBuffer.TransitionImage to decide whether a transition is a no-op.
func (d *Device) TextureLayout(h TextureHandle) (TextureLayout, bool) {
	t := d.textures.Access(h)
	if t == nil {
		return LayoutUndefined, false
	}
	return t.Hot.Layout, true
}

// TextureAspect returns the texture's image aspect mask (color vs depth),
// used by the command buffer wrapper to pick the right aspect for a barrier.
func (d *Device) TextureAspect(h TextureHandle) vk.ImageAspectFlags {
	t := d.textures.Access(h)
	if t == nil {
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	return t.Cold.Aspect
}

// TextureDimensions returns a texture's width/height, used by the command
// buffer wrapper for BeginRendering's render area and CopyBufferToTexture's
// copy extent.
func (d *Device) TextureDimensions(h TextureHandle) (width, height uint32) {
	t := d.textures.Access(h)
	if t == nil {
		return 0, 0
	}
	return t.Hot.Width, t.Hot.Height
}

// TextureView returns the native image view backing h, for building
// dynamic-rendering attachment descriptions.
func (d *Device) TextureView(h TextureHandle) vk.ImageView {
	t := d.textures.Access(h)
	if t == nil {
		return nil
	}
	return t.Hot.View
}

// TextureFormat returns the backend format a texture was created with.
func (d *Device) TextureFormat(h TextureHandle) vk.Format {
	t := d.textures.Access(h)
	if t == nil {
		return vk.FormatUndefined
	}
	return t.Cold.Format
}

// setTextureLayout records the layout TransitionImage just issued a barrier
// for. Unexported: only the command buffer wrapper, which is the only thing
// that issues image barriers, is allowed to mutate this field (§4.E:
// "Observable side effects... the wrapper may mutate the layout field").
func (d *Device) setTextureLayout(h TextureHandle, layout TextureLayout) {
	t := d.textures.Access(h)
	if t == nil {
		return
	}
	t.Hot.Layout = layout
}

func (d *Device) textureImage(h TextureHandle) vk.Image {
	t := d.textures.Access(h)
	if t == nil {
		return nil
	}
	return t.Hot.Image
}

// SwapchainExtent returns the current swapchain dimensions, used by
// callers registering the acquired swapchain texture as an external
// frame-graph resource.
func (d *Device) SwapchainExtent() (width, height uint32) {
	return d.swapchainExtent.Width, d.swapchainExtent.Height
}
