// Package gpu implements the GPU resource management layer: instance/device
// bring-up, the generational resource pools, the bindless descriptor table,
// the per-frame ring, and the high-level command buffer recorder. It is the
// Go-native, Vulkan-backed rendition of §4.C/§4.D/§4.E of the design.
package gpu

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/coregfx/turbo/internal/config"
	"github.com/coregfx/turbo/internal/handle"
	"github.com/coregfx/turbo/internal/logging"
)

// SurfaceProvider is the seam the device depends on for everything
// window/surface related (§1: window and swapchain-surface creation is an
// external collaborator). internal/platform implements this; gpu does not
// import internal/platform so the dependency only runs one way.
type SurfaceProvider interface {
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	FramebufferSize() (width, height int)
}

// requiredDeviceExtensions lists the device extensions createLogicalDevice
// enables, alongside the buffer device address, descriptor indexing
// (partially bound + runtime arrays), dynamic rendering and
// synchronization-2 feature structs it chains. Init does not query the
// physical device for support beforehand, and BC texture compression is not
// enabled.
var requiredDeviceExtensions = []string{
	"VK_KHR_swapchain",
	"VK_KHR_dynamic_rendering",
	"VK_KHR_synchronization2",
	"VK_KHR_buffer_device_address",
	"VK_EXT_descriptor_indexing",
}

// Device is the top-level GPU resource manager (§4.D). It owns the instance,
// physical/logical device, queues, the bindless table, every resource pool,
// the destroy queues, and the frame ring.
type Device struct {
	log *logging.Loggers

	instance       vk.Instance
	physicalDevice vk.PhysicalDevice
	handle         vk.Device
	queues         queueFamilies
	graphicsQueue  vk.Queue

	mem *memoryAllocator

	surface           vk.Surface
	surfaceProvider   SurfaceProvider
	swapchain         vk.Swapchain
	swapchainFormat   vk.Format
	swapchainExtent   vk.Extent2D
	swapchainImages   []TextureHandle

	framesInFlight      int
	frames              []frameSlot
	frameIndex          int
	acquiredImageIndex  uint32
	swapchainStale      bool

	immediatePool   vk.CommandPool
	immediateBuffer vk.CommandBuffer
	immediateFence  vk.Fence

	bindless *BindlessTable

	buffers        *handle.Pool[Buffer, bufferKind]
	textures       *handle.Pool[Texture, textureKind]
	samplers       *handle.Pool[Sampler, samplerKind]
	pipelines      *handle.Pool[Pipeline, pipelineKind]
	setLayouts     *handle.Pool[DescriptorSetLayout, descriptorSetLayoutKind]
	descriptorSets *handle.Pool[DescriptorSet, descriptorSetKind]

	longLivedDescriptorPool vk.DescriptorPool

	shutdownDestroyQueue *DestroyQueue
}

// Init brings up the instance, physical/logical device, queues, memory
// allocator, swapchain, bindless table, and frame ring in that order (§4.D).
// Any failure here is FatalInit (§7) and nothing is returned: a failed
// backend call panics with a *backendError, while a failure to create the
// surface or to find a suitable physical device is logged and exits the
// process with exitcode.RHICriticalError.
func Init(cfg config.Config, surface SurfaceProvider, log *logging.Loggers) *Device {
	d := &Device{
		log:             log,
		surfaceProvider: surface,
		framesInFlight:  cfg.FramesInFlight,
	}
	if d.framesInFlight <= 0 {
		d.framesInFlight = 2
	}

	d.createInstance(cfg)
	d.selectPhysicalDeviceAndSurface(surface)
	d.createLogicalDevice()
	d.mem = newMemoryAllocator(d.handle, d.physicalDevice)
	d.createSwapchain(cfg)
	d.bindless = newBindlessTable()
	d.createBindlessTable()
	d.createLongLivedDescriptorPool()
	d.createImmediateContext()
	d.createFrameRing(d.framesInFlight)

	d.buffers = handle.NewPool[Buffer, bufferKind](32)
	d.samplers = handle.NewPool[Sampler, samplerKind](32)
	d.pipelines = handle.NewPool[Pipeline, pipelineKind](32)
	d.setLayouts = handle.NewPool[DescriptorSetLayout, descriptorSetLayoutKind](32)
	d.descriptorSets = handle.NewPool[DescriptorSet, descriptorSetKind](32)
	d.textures = handle.NewPool[Texture, textureKind](32)
	d.shutdownDestroyQueue = newDestroyQueue()

	d.registerSwapchainTextures()

	if log != nil && log.Info != nil {
		log.Info.Printf("gpu: device initialized, %d frames in flight", d.framesInFlight)
	}
	return d
}

func (d *Device) createInstance(cfg config.Config) {
	extensions := append([]string{}, d.surfaceProvider.RequiredInstanceExtensions()...)

	var layers []string
	if cfg.EnableValidation {
		layers = []string{"VK_LAYER_KHRONOS_validation"}
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         vk.MakeVersion(1, 3, 0),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PApplicationName:   safeString(cfg.AppName),
		PEngineName:        safeString("turbo"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}

	var instance vk.Instance
	mustSucceed(vk.CreateInstance(&createInfo, nil, &instance), "create instance")
	d.instance = instance
}

func (d *Device) selectPhysicalDeviceAndSurface(surface SurfaceProvider) {
	vkSurface, err := surface.CreateSurface(d.instance)
	if err != nil {
		d.fatal("create window surface", err)
	}
	d.surface = vkSurface

	var count uint32
	vk.EnumeratePhysicalDevices(d.instance, &count, nil)
	if count == 0 {
		d.fatal("select physical device", &backendError{action: "enumerate physical devices", result: vk.ErrorInitializationFailed})
	}
	candidates := make([]vk.PhysicalDevice, count)
	vk.EnumeratePhysicalDevices(d.instance, &count, candidates)

	var best vk.PhysicalDevice
	var bestQueues queueFamilies
	bestIsDiscrete := false
	found := false

	for _, gpu := range candidates {
		qf, ok := selectQueueFamilies(gpu, d.surface)
		if !ok {
			continue
		}
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(gpu, &props)
		discrete := isDiscreteGPU(props)

		if !found || (discrete && !bestIsDiscrete) {
			best = gpu
			bestQueues = qf
			bestIsDiscrete = discrete
			found = true
		}
	}

	if !found {
		d.fatal("select physical device", &backendError{action: "no suitable device with combined graphics+present queue", result: vk.ErrorInitializationFailed})
	}

	d.physicalDevice = best
	d.queues = bestQueues
}

func (d *Device) createLogicalDevice() {
	priority := float32(1.0)
	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: d.queues.graphicsPresent,
		QueueCount:       1,
		PQueuePriorities: []float32{priority},
	}

	dynamicRendering := vk.PhysicalDeviceDynamicRenderingFeatures{
		SType:            vk.StructureTypePhysicalDeviceDynamicRenderingFeatures,
		DynamicRendering: vk.True,
	}
	sync2 := vk.PhysicalDeviceSynchronization2Features{
		SType:            vk.StructureTypePhysicalDeviceSynchronization2Features,
		PNext:            unsafePointer(&dynamicRendering),
		Synchronization2: vk.True,
	}
	bufferAddress := vk.PhysicalDeviceBufferDeviceAddressFeatures{
		SType:               vk.StructureTypePhysicalDeviceBufferDeviceAddressFeatures,
		PNext:               unsafePointer(&sync2),
		BufferDeviceAddress: vk.True,
	}
	descriptorIndexing := vk.PhysicalDeviceDescriptorIndexingFeatures{
		SType:                                       vk.StructureTypePhysicalDeviceDescriptorIndexingFeatures,
		PNext:                                       unsafePointer(&bufferAddress),
		DescriptorBindingPartiallyBound:             vk.True,
		RuntimeDescriptorArray:                      vk.True,
		DescriptorBindingVariableDescriptorCount:    vk.True,
		DescriptorBindingUpdateUnusedWhilePending:   vk.True,
		ShaderSampledImageArrayNonUniformIndexing:   vk.True,
	}

	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		PNext:                   unsafePointer(&descriptorIndexing),
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       []vk.DeviceQueueCreateInfo{queueInfo},
		EnabledExtensionCount:   uint32(len(requiredDeviceExtensions)),
		PpEnabledExtensionNames: safeStrings(requiredDeviceExtensions),
	}

	var dev vk.Device
	mustSucceed(vk.CreateDevice(d.physicalDevice, &createInfo, nil, &dev), "create logical device")
	d.handle = dev

	var queue vk.Queue
	vk.GetDeviceQueue(dev, d.queues.graphicsPresent, 0, &queue)
	d.graphicsQueue = queue
}

func (d *Device) createLongLivedDescriptorPool() {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1024},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1024},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 1024},
	}
	var pool vk.DescriptorPool
	mustSucceed(vk.CreateDescriptorPool(d.handle, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1024,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
	}, nil, &pool), "create long-lived descriptor pool")
	d.longLivedDescriptorPool = pool
}

func (d *Device) createImmediateContext() {
	var pool vk.CommandPool
	mustSucceed(vk.CreateCommandPool(d.handle, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.queues.graphicsPresent,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool), "create immediate command pool")
	d.immediatePool = pool

	bufs := make([]vk.CommandBuffer, 1)
	mustSucceed(vk.AllocateCommandBuffers(d.handle, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, bufs), "allocate immediate command buffer")
	d.immediateBuffer = bufs[0]

	var fence vk.Fence
	mustSucceed(vk.CreateFence(d.handle, &vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}, nil, &fence),
		"create immediate fence")
	d.immediateFence = fence
}

// ImmediateSubmit records fn onto a one-shot command buffer, submits it, and
// blocks until the backend signals its fence (§4.D, §5). Used for uploads
// and layout transitions issued outside the frame graph's own schedule.
func (d *Device) ImmediateSubmit(fn func(cmd *CommandBuffer)) {
	mustSucceed(vk.ResetFences(d.handle, 1, []vk.Fence{d.immediateFence}), "reset immediate fence")
	mustSucceed(vk.ResetCommandBuffer(d.immediateBuffer, 0), "reset immediate command buffer")

	mustSucceed(vk.BeginCommandBuffer(d.immediateBuffer, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}), "begin immediate command buffer")

	cmd := &CommandBuffer{device: d, handle: d.immediateBuffer}
	fn(cmd)

	mustSucceed(vk.EndCommandBuffer(d.immediateBuffer), "end immediate command buffer")

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{d.immediateBuffer},
	}
	mustSucceed(vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{submit}, d.immediateFence), "submit immediate command buffer")
	mustSucceed(vk.WaitForFences(d.handle, 1, []vk.Fence{d.immediateFence}, vk.True, vk.MaxUint64), "wait immediate fence")
}

// BeginFrame waits on the current slot's fence, acquires the next swapchain
// image, resets and begins that slot's command buffer, flushes its deferred
// destroy queue, and resets its per-frame descriptor pool (§4.D). It returns
// false when the frame must be skipped because the swapchain was out of
// date — the caller should retry on the next tick rather than record.
func (d *Device) BeginFrame() (*CommandBuffer, bool) {
	slot := d.currentFrame()

	mustSucceed(vk.WaitForFences(d.handle, 1, []vk.Fence{slot.fence}, vk.True, vk.MaxUint64), "wait frame fence")

	var imageIndex uint32
	ret := vk.AcquireNextImage(d.handle, d.swapchain, vk.MaxUint64, slot.imageAcquired, vk.NullFence, &imageIndex)
	if isSwapchainStale(ret) {
		d.swapchainStale = true
		return nil, false
	}
	mustSucceed(ret, "acquire next swapchain image")
	d.acquiredImageIndex = imageIndex

	mustSucceed(vk.ResetFences(d.handle, 1, []vk.Fence{slot.fence}), "reset frame fence")
	mustSucceed(vk.ResetCommandPool(d.handle, slot.commandPool, 0), "reset frame command pool")
	mustSucceed(vk.BeginCommandBuffer(slot.commandBuffer, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}), "begin frame command buffer")

	slot.destroyQueue.Flush(d)
	mustSucceed(vk.ResetDescriptorPool(d.handle, slot.descriptorPool, 0), "reset per-frame descriptor pool")

	return &CommandBuffer{device: d, handle: slot.commandBuffer}, true
}

// PresentFrame transitions the acquired swapchain texture to PresentSrc, ends
// the slot's command buffer, submits with the acquire/render semaphore pair,
// presents, and advances the frame index (§4.D). When present reports
// OutOfDate/Suboptimal the swapchain is marked stale; App.tick rebuilds it
// before the next BeginFrame.
func (d *Device) PresentFrame(cmd *CommandBuffer) {
	slot := d.currentFrame()

	cmd.TransitionImage(d.swapchainImages[d.acquiredImageIndex], LayoutPresentSrc)
	mustSucceed(vk.EndCommandBuffer(slot.commandBuffer), "end frame command buffer")

	waitStage := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	submit := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{slot.imageAcquired},
		PWaitDstStageMask:    []vk.PipelineStageFlags{waitStage},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{slot.commandBuffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{slot.renderComplete},
	}
	mustSucceed(vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{submit}, slot.fence), "submit frame command buffer")

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount:  1,
		PWaitSemaphores:     []vk.Semaphore{slot.renderComplete},
		SwapchainCount:      1,
		PSwapchains:         []vk.Swapchain{d.swapchain},
		PImageIndices:       []uint32{d.acquiredImageIndex},
	}
	ret := vk.QueuePresent(d.graphicsQueue, &presentInfo)
	if isSwapchainStale(ret) {
		d.swapchainStale = true
	} else {
		mustSucceed(ret, "present swapchain image")
	}

	d.frameIndex = (d.frameIndex + 1) % d.framesInFlight
}

// FramesInFlight reports the configured frame-ring depth.
func (d *Device) FramesInFlight() int { return d.framesInFlight }

// SwapchainStale reports whether BeginFrame or PresentFrame observed an
// OutOfDate/Suboptimal result since the last successful resize.
func (d *Device) SwapchainStale() bool { return d.swapchainStale }

// AcquiredSwapchainTexture returns the handle for the image BeginFrame most
// recently acquired, for registering as a frame-graph external resource.
func (d *Device) AcquiredSwapchainTexture() TextureHandle {
	return d.swapchainImages[d.acquiredImageIndex]
}

// Shutdown waits the device idle, drains every per-frame and the shutdown
// destroy queue, and tears down the frame ring, bindless table, swapchain,
// and device/instance (§4.B: "on shutdown: drain all after device idle").
func (d *Device) Shutdown() {
	vk.DeviceWaitIdle(d.handle)

	for i := range d.frames {
		d.frames[i].destroyQueue.Flush(d)
	}
	d.shutdownDestroyQueue.Flush(d)

	d.destroyFrameRing()
	vk.DestroyDescriptorPool(d.handle, d.bindless.Pool, nil)
	vk.DestroyDescriptorSetLayout(d.handle, d.bindless.Layout, nil)
	vk.DestroyDescriptorPool(d.handle, d.longLivedDescriptorPool, nil)
	vk.DestroyFence(d.handle, d.immediateFence, nil)
	vk.FreeCommandBuffers(d.handle, d.immediatePool, 1, []vk.CommandBuffer{d.immediateBuffer})
	vk.DestroyCommandPool(d.handle, d.immediatePool, nil)

	d.destroySwapchainViews()
	vk.DestroySwapchain(d.handle, d.swapchain, nil)
	vk.DestroySurface(d.instance, d.surface, nil)
	vk.DestroyDevice(d.handle, nil)
	vk.DestroyInstance(d.instance, nil)

	if d.log != nil && d.log.Info != nil {
		d.log.Info.Printf("gpu: device shut down")
	}
}

func safeString(s string) string {
	return s + "\x00"
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}
