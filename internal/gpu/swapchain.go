package gpu

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/coregfx/turbo/internal/config"
)

// preferredSwapchainFormat is the 8-bit sRGB BGRA format §4.D asks for.
var preferredSwapchainFormat = vk.FormatB8g8r8a8Srgb

func choosePresentMode(available []vk.PresentMode, vsync bool) vk.PresentMode {
	has := func(want vk.PresentMode) bool {
		for _, m := range available {
			if m == want {
				return true
			}
		}
		return false
	}
	if !vsync && has(vk.PresentModeImmediate) {
		return vk.PresentModeImmediate
	}
	if has(vk.PresentModeMailbox) {
		return vk.PresentModeMailbox
	}
	return vk.PresentModeFifo
}

func chooseSurfaceFormat(available []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range available {
		f.Deref()
		if f.Format == preferredSwapchainFormat && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	if len(available) > 0 {
		available[0].Deref()
		return available[0]
	}
	return vk.SurfaceFormat{Format: preferredSwapchainFormat, ColorSpace: vk.ColorSpaceSrgbNonlinear}
}

func (d *Device) createSwapchain(cfg config.Config) {
	var caps vk.SurfaceCapabilities
	mustSucceed(vk.GetPhysicalDeviceSurfaceCapabilities(d.physicalDevice, d.surface, &caps), "query surface capabilities")
	caps.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(d.physicalDevice, d.surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(d.physicalDevice, d.surface, &formatCount, formats)
	surfaceFormat := chooseSurfaceFormat(formats)

	var presentModeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(d.physicalDevice, d.surface, &presentModeCount, nil)
	presentModes := make([]vk.PresentMode, presentModeCount)
	vk.GetPhysicalDeviceSurfacePresentModes(d.physicalDevice, d.surface, &presentModeCount, presentModes)
	presentMode := choosePresentMode(presentModes, cfg.VSync)

	width, height := d.surfaceProvider.FramebufferSize()
	extent := vk.Extent2D{Width: uint32(width), Height: uint32(height)}

	// §6: max swapchain images = 5.
	imageCount := caps.MinImageCount + 1
	if imageCount > 5 {
		imageCount = 5
	}
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.surface,
		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     d.swapchain,
	}

	var swapchain vk.Swapchain
	mustSucceed(vk.CreateSwapchain(d.handle, &createInfo, nil, &swapchain), "create swapchain")

	if d.swapchain != nil {
		d.destroySwapchainViews()
		vk.DestroySwapchain(d.handle, d.swapchain, nil)
	}

	d.swapchain = swapchain
	d.swapchainFormat = surfaceFormat.Format
	d.swapchainExtent = extent
}

func (d *Device) destroySwapchainViews() {
	for _, h := range d.swapchainImages {
		tex := d.textures.Access(h)
		if tex != nil {
			vk.DestroyImageView(d.handle, tex.Hot.View, nil)
		}
		d.textures.Release(h)
	}
	d.swapchainImages = nil
}

// registerSwapchainTextures fetches the backend swapchain images, creates a
// view for each, and registers them in the Texture pool with Cold.Swapchain
// set so user code cannot route them through DestroyTexture (§3).
func (d *Device) registerSwapchainTextures() {
	var count uint32
	vk.GetSwapchainImages(d.handle, d.swapchain, &count, nil)
	images := make([]vk.Image, count)
	vk.GetSwapchainImages(d.handle, d.swapchain, &count, images)

	d.swapchainImages = make([]TextureHandle, count)
	for i, img := range images {
		view := d.createImageView(img, d.swapchainFormat, vk.ImageAspectFlags(vk.ImageAspectColorBit))

		h := d.textures.Acquire()
		*d.textures.Access(h) = Texture{
			Hot: TextureHot{
				Image:       img,
				View:        view,
				Layout:      LayoutUndefined,
				Width:       d.swapchainExtent.Width,
				Height:      d.swapchainExtent.Height,
				Depth:       1,
				MipCount:    1,
				SampledSlot: -1,
				StorageSlot: -1,
			},
			Cold: TextureCold{
				Format:    d.swapchainFormat,
				Type:      TextureType2D,
				Usage:     TextureUsageRenderTarget,
				Name:      "swapchain",
				Aspect:    vk.ImageAspectFlags(vk.ImageAspectColorBit),
				Swapchain: true,
			},
		}
		d.swapchainImages[i] = h
	}
}

func (d *Device) createImageView(image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) vk.ImageView {
	var view vk.ImageView
	mustSucceed(vk.CreateImageView(d.handle, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			LevelCount:     1,
			LayerCount:     1,
		},
	}, nil, &view), "create image view")
	return view
}

// ResizeSwapchain waits the device idle, destroys the per-image views and
// recreates the swapchain at the platform's current framebuffer size, then
// re-registers the new images into the texture pool (§4.D: "Resize
// Swapchain"). App.tick calls it right before the next BeginFrame after a
// stale result, never mid-frame (§7: SwapchainStale policy).
func (d *Device) ResizeSwapchain(cfg config.Config) {
	vk.DeviceWaitIdle(d.handle)
	d.createSwapchain(cfg)
	d.registerSwapchainTextures()
	d.swapchainStale = false

	if d.log != nil && d.log.Info != nil {
		d.log.Info.Printf("gpu: swapchain resized to %dx%d", d.swapchainExtent.Width, d.swapchainExtent.Height)
	}
}
