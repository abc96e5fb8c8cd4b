package gpu

import vk "github.com/vulkan-go/vulkan"

// Bindless array capacities. §6 requires at least 512 entries per array;
// the engine uses exactly that floor, matching the bare minimum the spec
// guarantees shaders can rely on.
const bindlessArrayCapacity = 512

const (
	bindlessBindingSampler      = 0
	bindlessBindingSampledImage = 1
	bindlessBindingStorageImage = 2
	bindlessBindingBuffer       = 3
)

// slotFreeList is a LIFO free list over [0, capacity). Handing back the most
// recently freed slot first is what makes scenario 6 in §8 (destroy every
// other texture, create more, observe LIFO slot reuse) hold.
type slotFreeList struct {
	next  int32
	cap   int32
	freed []int32
}

func newSlotFreeList(capacity int32) *slotFreeList {
	return &slotFreeList{cap: capacity}
}

func (f *slotFreeList) acquire() int32 {
	if n := len(f.freed); n > 0 {
		slot := f.freed[n-1]
		f.freed = f.freed[:n-1]
		return slot
	}
	if f.next >= f.cap {
		panic("gpu: bindless array exhausted")
	}
	slot := f.next
	f.next++
	return slot
}

func (f *slotFreeList) release(slot int32) {
	if slot < 0 {
		return
	}
	f.freed = append(f.freed, slot)
}

// BindlessTable is the single set-0 descriptor set with four arrays of
// bindlessArrayCapacity entries each (§4.D, §6). Each array keeps a separate free-list, per the spec's
// resolved open question: sampled and storage slots are never shared even
// for the same texture, because a texture may hold one, the other, or both.
type BindlessTable struct {
	Layout vk.DescriptorSetLayout
	Pool   vk.DescriptorPool
	Set    vk.DescriptorSet

	samplers      *slotFreeList
	sampledImages *slotFreeList
	storageImages *slotFreeList
	buffers       *slotFreeList
}

func newBindlessTable() *BindlessTable {
	return &BindlessTable{
		samplers:      newSlotFreeList(bindlessArrayCapacity),
		sampledImages: newSlotFreeList(bindlessArrayCapacity),
		storageImages: newSlotFreeList(bindlessArrayCapacity),
		buffers:       newSlotFreeList(bindlessArrayCapacity),
	}
}

func (d *Device) createBindlessTable() {
	bindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         bindlessBindingSampler,
			DescriptorType:  vk.DescriptorTypeSampler,
			DescriptorCount: bindlessArrayCapacity,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAllBit),
		},
		{
			Binding:         bindlessBindingSampledImage,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			DescriptorCount: bindlessArrayCapacity,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAllBit),
		},
		{
			Binding:         bindlessBindingStorageImage,
			DescriptorType:  vk.DescriptorTypeStorageImage,
			DescriptorCount: bindlessArrayCapacity,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAllBit),
		},
		{
			Binding:         bindlessBindingBuffer,
			DescriptorType:  vk.DescriptorTypeStorageBuffer,
			DescriptorCount: bindlessArrayCapacity,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageAllBit),
		},
	}

	bindingFlags := make([]vk.DescriptorBindingFlags, len(bindings))
	for i := range bindingFlags {
		bindingFlags[i] = vk.DescriptorBindingFlags(
			vk.DescriptorBindingPartiallyBoundBit | vk.DescriptorBindingVariableDescriptorCountBit)
	}
	flagsInfo := vk.DescriptorSetLayoutBindingFlagsCreateInfo{
		SType:         vk.StructureTypeDescriptorSetLayoutBindingFlagsCreateInfo,
		BindingCount:  uint32(len(bindingFlags)),
		PBindingFlags: bindingFlags,
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		PNext:        unsafePointer(&flagsInfo),
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
		Flags:        vk.DescriptorSetLayoutCreateFlags(vk.DescriptorSetLayoutCreateUpdateAfterBindPoolBit),
	}

	var layout vk.DescriptorSetLayout
	mustSucceed(vk.CreateDescriptorSetLayout(d.handle, &layoutInfo, nil, &layout), "create bindless descriptor set layout")
	d.bindless.Layout = layout

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeSampler, DescriptorCount: bindlessArrayCapacity},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: bindlessArrayCapacity},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: bindlessArrayCapacity},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: bindlessArrayCapacity},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateUpdateAfterBindBit),
	}
	var pool vk.DescriptorPool
	mustSucceed(vk.CreateDescriptorPool(d.handle, &poolInfo, nil, &pool), "create bindless descriptor pool")
	d.bindless.Pool = pool

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	mustSucceed(vk.AllocateDescriptorSets(d.handle, &allocInfo, sets), "allocate bindless descriptor set")
	d.bindless.Set = sets[0]
}

func (d *Device) writeBindlessSampledImage(slot int32, view vk.ImageView) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          d.bindless.Set,
		DstBinding:      bindlessBindingSampledImage,
		DstArrayElement: uint32(slot),
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeSampledImage,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageView:   view,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	}
	vk.UpdateDescriptorSets(d.handle, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

func (d *Device) writeBindlessStorageImage(slot int32, view vk.ImageView) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          d.bindless.Set,
		DstBinding:      bindlessBindingStorageImage,
		DstArrayElement: uint32(slot),
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeStorageImage,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageView:   view,
			ImageLayout: vk.ImageLayoutGeneral,
		}},
	}
	vk.UpdateDescriptorSets(d.handle, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

func (d *Device) writeBindlessSampler(slot int32, sampler vk.Sampler) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          d.bindless.Set,
		DstBinding:      bindlessBindingSampler,
		DstArrayElement: uint32(slot),
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler: sampler,
		}},
	}
	vk.UpdateDescriptorSets(d.handle, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

func (d *Device) writeBindlessBuffer(slot int32, buf vk.Buffer, size vk.DeviceSize) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          d.bindless.Set,
		DstBinding:      bindlessBindingBuffer,
		DstArrayElement: uint32(slot),
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeStorageBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buf,
			Offset: 0,
			Range:  size,
		}},
	}
	vk.UpdateDescriptorSets(d.handle, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}
