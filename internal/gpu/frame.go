package gpu

import vk "github.com/vulkan-go/vulkan"

// frameSlot is one entry of the frame ring (§3): the fence/semaphore/command
// pool bundle that is recycled round-robin across frames-in-flight. A slot
// is only reused once its fence has been waited, which is what bounds the
// destroy queue's deferral window to frames-in-flight frames.
type frameSlot struct {
	fence              vk.Fence
	imageAcquired      vk.Semaphore
	renderComplete     vk.Semaphore
	commandPool        vk.CommandPool
	commandBuffer      vk.CommandBuffer
	destroyQueue       *DestroyQueue
	descriptorPool     vk.DescriptorPool
}

func (d *Device) createFrameRing(framesInFlight int) {
	d.frames = make([]frameSlot, framesInFlight)

	for i := range d.frames {
		f := &d.frames[i]

		var fence vk.Fence
		mustSucceed(vk.CreateFence(d.handle, &vk.FenceCreateInfo{
			SType: vk.StructureTypeFenceCreateInfo,
			Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
		}, nil, &fence), "create frame fence")
		f.fence = fence

		var acquired, complete vk.Semaphore
		semInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
		mustSucceed(vk.CreateSemaphore(d.handle, &semInfo, nil, &acquired), "create image-acquired semaphore")
		mustSucceed(vk.CreateSemaphore(d.handle, &semInfo, nil, &complete), "create render-complete semaphore")
		f.imageAcquired = acquired
		f.renderComplete = complete

		var pool vk.CommandPool
		mustSucceed(vk.CreateCommandPool(d.handle, &vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			QueueFamilyIndex: d.queues.graphicsPresent,
			Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		}, nil, &pool), "create frame command pool")
		f.commandPool = pool

		bufs := make([]vk.CommandBuffer, 1)
		mustSucceed(vk.AllocateCommandBuffers(d.handle, &vk.CommandBufferAllocateInfo{
			SType:              vk.StructureTypeCommandBufferAllocateInfo,
			CommandPool:        pool,
			Level:              vk.CommandBufferLevelPrimary,
			CommandBufferCount: 1,
		}, bufs), "allocate frame command buffer")
		f.commandBuffer = bufs[0]

		f.destroyQueue = newDestroyQueue()

		poolSizes := []vk.DescriptorPoolSize{
			{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 256},
			{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: 256},
			{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 256},
		}
		var descPool vk.DescriptorPool
		mustSucceed(vk.CreateDescriptorPool(d.handle, &vk.DescriptorPoolCreateInfo{
			SType:         vk.StructureTypeDescriptorPoolCreateInfo,
			MaxSets:       256,
			PoolSizeCount: uint32(len(poolSizes)),
			PPoolSizes:    poolSizes,
			Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		}, nil, &descPool), "create per-frame descriptor pool")
		f.descriptorPool = descPool
	}
}

func (d *Device) destroyFrameRing() {
	for i := range d.frames {
		f := &d.frames[i]
		f.destroyQueue.Flush(d)
		vk.DestroyDescriptorPool(d.handle, f.descriptorPool, nil)
		vk.FreeCommandBuffers(d.handle, f.commandPool, 1, []vk.CommandBuffer{f.commandBuffer})
		vk.DestroyCommandPool(d.handle, f.commandPool, nil)
		vk.DestroySemaphore(d.handle, f.imageAcquired, nil)
		vk.DestroySemaphore(d.handle, f.renderComplete, nil)
		vk.DestroyFence(d.handle, f.fence, nil)
	}
	d.frames = nil
}

// currentFrame returns the slot for the frame index currently in flight.
func (d *Device) currentFrame() *frameSlot {
	return &d.frames[d.frameIndex]
}
