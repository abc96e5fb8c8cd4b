package gpu

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

func toVkBufferUsage(usage BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if usage.Has(BufferUsageVertex) {
		flags |= vk.BufferUsageVertexBufferBit
	}
	if usage.Has(BufferUsageIndex) {
		flags |= vk.BufferUsageIndexBufferBit
	}
	if usage.Has(BufferUsageUniform) {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if usage.Has(BufferUsageStorage) {
		flags |= vk.BufferUsageStorageBufferBit
	}
	if usage.Has(BufferUsageTransferSrc) {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if usage.Has(BufferUsageTransferDst) {
		flags |= vk.BufferUsageTransferDstBit
	}
	if usage.Has(BufferUsageIndirect) {
		flags |= vk.BufferUsageIndirectBufferBit
	}
	flags |= vk.BufferUsageShaderDeviceAddressBit
	return vk.BufferUsageFlags(flags)
}

func (d *Device) createRawBuffer(size uint64, usage BufferUsage, mapped bool) (vk.Buffer, vk.DeviceMemory, []byte) {
	bufInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       toVkBufferUsage(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buf vk.Buffer
	mustSucceed(vk.CreateBuffer(d.handle, &bufInfo, nil, &buf), "create buffer")

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.handle, buf, &reqs)

	properties := deviceLocalProperties()
	if mapped {
		properties = hostVisibleProperties()
	}
	mem, err := d.mem.allocate(reqs, properties, true)
	if err != nil {
		d.fatal("allocate buffer memory", err)
	}
	mustSucceed(vk.BindBufferMemory(d.handle, buf, mem, 0), "bind buffer memory")

	var mappedBytes []byte
	if mapped {
		var data unsafe.Pointer
		mustSucceed(vk.MapMemory(d.handle, mem, 0, vk.DeviceSize(size), 0, &data), "map buffer memory")
		mappedBytes = unsafe.Slice((*byte)(data), int(size))
	}
	return buf, mem, mappedBytes
}

// CreateBuffer allocates a backend buffer per spec (host-visible and
// persistently mapped for MemoryUsageCreateMapped, device-local otherwise),
// uploads initial bytes through a staging buffer + immediate submit when the
// buffer is device-local, retrieves its device address, and — when the
// usage set includes uniform or storage — allocates and writes a bindless
// slot (§4.D).
func (d *Device) CreateBuffer(spec BufferSpec) BufferHandle {
	mapped := spec.Memory == MemoryUsageCreateMapped
	buf, mem, mappedBytes := d.createRawBuffer(spec.Size, spec.Usage, mapped)

	if len(spec.Initial) > 0 && !mapped {
		d.uploadBufferViaStaging(buf, spec.Initial)
	} else if len(spec.Initial) > 0 && mapped {
		copy(mappedBytes, spec.Initial)
	}

	addrInfo := vk.BufferDeviceAddressInfo{
		SType:  vk.StructureTypeBufferDeviceAddressInfo,
		Buffer: buf,
	}
	addr := vk.GetBufferDeviceAddress(d.handle, &addrInfo)

	slot := int32(-1)
	if spec.Usage.Has(BufferUsageUniform) || spec.Usage.Has(BufferUsageStorage) {
		slot = d.bindless.buffers.acquire()
		d.writeBindlessBuffer(slot, buf, vk.DeviceSize(spec.Size))
	}

	h := d.buffers.Acquire()
	*d.buffers.Access(h) = Buffer{
		Native:        buf,
		Memory:        mem,
		Usage:         spec.Usage,
		Size:          vk.DeviceSize(spec.Size),
		DeviceAddress: addr,
		Mapped:        mappedBytes,
		BindlessSlot:  slot,
		Name:          spec.Name,
	}
	return h
}

func (d *Device) uploadBufferViaStaging(dst vk.Buffer, data []byte) {
	staging, stagingMem, mappedBytes := d.createRawBuffer(uint64(len(data)), BufferUsageTransferSrc, true)
	copy(mappedBytes, data)

	d.ImmediateSubmit(func(cmd *CommandBuffer) {
		cmd.copyRawBuffer(staging, dst, vk.DeviceSize(len(data)))
	})

	vk.UnmapMemory(d.handle, stagingMem)
	vk.DestroyBuffer(d.handle, staging, nil)
	vk.FreeMemory(d.handle, stagingMem, nil)
}

// DestroyBuffer enqueues buf for deferred destruction, releasing its
// bindless slot (if any) immediately — the slot is free-listed right away
// because shader-visible descriptor state is not itself in flight once
// writeBindless* for a replacement has not yet run, matching §4.D's
// "Textures and buffers with bindless slots release those slots."
func (d *Device) DestroyBuffer(h BufferHandle) {
	buf := d.buffers.Access(h)
	if buf == nil {
		return
	}
	native := buf.Native
	mem := buf.Memory
	mappedBytes := buf.Mapped
	if buf.BindlessSlot >= 0 {
		d.bindless.buffers.release(buf.BindlessSlot)
	}
	d.buffers.Release(h)

	d.queueForDestroy(destroyBuffer, func(dev *Device) {
		if mappedBytes != nil {
			vk.UnmapMemory(dev.handle, mem)
		}
		vk.DestroyBuffer(dev.handle, native, nil)
		vk.FreeMemory(dev.handle, mem, nil)
	})
}

// queueForDestroy routes through the current frame's destroy queue so the
// physical free happens no earlier than frames-in-flight frames from now
// (§4.B). Before the frame ring exists (during Init/Shutdown races) it falls
// back to the shutdown queue, which Shutdown drains directly.
func (d *Device) queueForDestroy(kind destroyerKind, fn destroyer) {
	if len(d.frames) == 0 {
		d.shutdownDestroyQueue.push(kind, fn)
		return
	}
	d.currentFrame().destroyQueue.push(kind, fn)
}
