package gpu

import vk "github.com/vulkan-go/vulkan"

// queueFamilies records the graphics+present family selected at Init. The
// device requires both roles on the same family (§4.D) — unlike the
// teacher's CoreQueue, which exposes a general "find any suitable family"
// search usable for separate graphics/present/compute families, this engine
// narrows that search to the single-family case the spec mandates, and
// keeps the transfer family separate when the backend actually exposes a
// dedicated transfer-only queue.
type queueFamilies struct {
	graphicsPresent uint32
	transfer        uint32
	hasTransfer     bool
}

// selectQueueFamilies walks a physical device's queue family properties
// (mirroring the teacher's CoreQueue.FindSuitableQueue loop) looking for one
// family that supports both graphics and present, preferring a family that
// also supports compute so the same queue can be used for compute passes.
// It separately looks for a transfer-only family to offload uploads from the
// graphics queue when one exists.
func selectQueueFamilies(gpu vk.PhysicalDevice, surface vk.Surface) (queueFamilies, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)

	var qf queueFamilies
	found := false
	foundHasCompute := false

	for i := uint32(0); i < count; i++ {
		props[i].Deref()
		flags := props[i].QueueFlags

		hasGraphics := flags&vk.QueueFlags(vk.QueueGraphicsBit) != 0
		hasCompute := flags&vk.QueueFlags(vk.QueueComputeBit) != 0
		var presentSupport vk.Bool32
		if surface != vk.NullSurface {
			vk.GetPhysicalDeviceSurfaceSupport(gpu, i, surface, &presentSupport)
		} else {
			presentSupport = vk.True
		}

		if hasGraphics && presentSupport == vk.True {
			if !found || (hasCompute && !foundHasCompute) {
				qf.graphicsPresent = i
				foundHasCompute = hasCompute
				found = true
			}
			continue
		}

		isTransferOnly := flags&vk.QueueFlags(vk.QueueTransferBit) != 0 &&
			flags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 &&
			flags&vk.QueueFlags(vk.QueueComputeBit) == 0
		if isTransferOnly && !qf.hasTransfer {
			qf.transfer = i
			qf.hasTransfer = true
		}
	}

	return qf, found
}

// isDiscreteGPU reports whether properties describes a discrete GPU,
// used to rank candidate physical devices (§4.D: "preferring discrete with
// both graphics and present on the same queue family").
func isDiscreteGPU(props vk.PhysicalDeviceProperties) bool {
	props.Deref()
	return props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu
}
