package gpu

import vk "github.com/vulkan-go/vulkan"

// memoryAllocator is the engine's minimal stand-in for a VMA-style
// allocator: no binding to a VMA-equivalent library exists anywhere in the
// reference corpus (DESIGN.md), so allocation goes straight through
// vk.AllocateMemory the way the teacher's CoreBuffer does, with one
// allocation per resource rather than a suballocated arena. This is the
// correct scope for the core spec (§4.D never asks for suballocation), just
// not the scope a production VMA wrapper would eventually grow into.
type memoryAllocator struct {
	device     vk.Device
	memProps   vk.PhysicalDeviceMemoryProperties
}

func newMemoryAllocator(device vk.Device, gpu vk.PhysicalDevice) *memoryAllocator {
	a := &memoryAllocator{device: device}
	vk.GetPhysicalDeviceMemoryProperties(gpu, &a.memProps)
	a.memProps.Deref()
	return a
}

func (a *memoryAllocator) findMemoryType(typeBits uint32, want vk.MemoryPropertyFlags) (uint32, bool) {
	for i := uint32(0); i < a.memProps.MemoryTypeCount; i++ {
		a.memProps.MemoryTypes[i].Deref()
		typeOK := typeBits&(1<<i) != 0
		propsOK := a.memProps.MemoryTypes[i].PropertyFlags&want == want
		if typeOK && propsOK {
			return i, true
		}
	}
	return 0, false
}

// allocate allocates and optionally adds SHADER_DEVICE_ADDRESS capability
// (needAddress) to memory satisfying reqs with the given property flags.
func (a *memoryAllocator) allocate(reqs vk.MemoryRequirements, properties vk.MemoryPropertyFlags, needAddress bool) (vk.DeviceMemory, error) {
	reqs.Deref()
	typeIndex, ok := a.findMemoryType(reqs.MemoryTypeBits, properties)
	if !ok {
		return nil, &backendError{action: "find memory type", result: vk.ErrorOutOfDeviceMemory}
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typeIndex,
	}
	var flagsInfo vk.MemoryAllocateFlagsInfo
	if needAddress {
		flagsInfo = vk.MemoryAllocateFlagsInfo{
			SType: vk.StructureTypeMemoryAllocateFlagsInfo,
			Flags: vk.MemoryAllocateFlags(vk.MemoryAllocateDeviceAddressBit),
		}
		allocInfo.PNext = unsafePointer(&flagsInfo)
	}

	var mem vk.DeviceMemory
	ret := vk.AllocateMemory(a.device, &allocInfo, nil, &mem)
	if ret != vk.Success {
		return nil, &backendError{action: "allocate device memory", result: ret}
	}
	return mem, nil
}

func hostVisibleProperties() vk.MemoryPropertyFlags {
	return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
}

func deviceLocalProperties() vk.MemoryPropertyFlags {
	return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
}
