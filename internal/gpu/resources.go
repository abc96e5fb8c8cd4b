package gpu

import vk "github.com/vulkan-go/vulkan"

// Buffer is the plain-data record for a live GPU buffer. It never holds a
// reference to another record — relationships (e.g. "this descriptor set
// binds this buffer") are expressed as handles resolved back through the
// device's pools at use time (§4.C).
type Buffer struct {
	Native        vk.Buffer
	Memory        vk.DeviceMemory
	Usage         BufferUsage
	Size          vk.DeviceSize
	DeviceAddress vk.DeviceAddress
	Mapped        []byte // non-nil only for MemoryUsageCreateMapped buffers
	BindlessSlot  int32  // -1 if this buffer never acquired a bindless slot
	Name          string
}

// TextureHot is the hot-path half of a texture record: the fields the
// command buffer wrapper and frame-graph barrier compiler touch on every
// pass. Split from TextureCold for cache locality, per §3.
type TextureHot struct {
	Image         vk.Image
	View          vk.ImageView
	Layout        TextureLayout
	Width         uint32
	Height        uint32
	Depth         uint32
	MipCount      uint32
	SampledSlot   int32 // -1 if not bindless-sampled
	StorageSlot   int32 // -1 if not bindless-storage
}

// TextureCold holds the metadata that creation-time and destruction-time
// code needs but the per-pass hot loop never touches.
type TextureCold struct {
	Format    vk.Format
	Type      TextureType
	Usage     TextureUsage
	Name      string
	Aspect    vk.ImageAspectFlags
	Memory    vk.DeviceMemory
	Swapchain bool // swapchain-owned textures are non-destroyable by user code
}

// Texture bundles the hot/cold split behind one pool entry; callers that only
// need layout or dimensions pay for loading both halves, which in practice is
// the common case for a pool-backed resource table (unlike a tight per-frame
// array, the device's Texture pool is not iterated every pass).
type Texture struct {
	Hot  TextureHot
	Cold TextureCold
}

// Sampler is the plain-data record for a live GPU sampler.
type Sampler struct {
	Native       vk.Sampler
	Filter       vk.Filter
	AddressMode  vk.SamplerAddressMode
	BindlessSlot int32
}

// Pipeline is the plain-data record for a live graphics or compute pipeline.
type Pipeline struct {
	Native            vk.Pipeline
	Layout            vk.PipelineLayout
	BindPoint         BindPoint
	SetLayouts        []DescriptorSetLayoutHandle
	PushConstantSize  uint32
}

// DescriptorSetLayout is the plain-data record for a descriptor set layout.
type DescriptorSetLayout struct {
	Native   vk.DescriptorSetLayout
	SetIndex uint32
	Bindings []vk.DescriptorSetLayoutBinding
}

// DescriptorSet is the plain-data record for an allocated descriptor set.
type DescriptorSet struct {
	Native   vk.DescriptorSet
	SetIndex uint32
	Layout   DescriptorSetLayoutHandle
	PerFrame bool // allocated from the current frame's per-frame pool
}

// BufferSpec describes a buffer creation request.
type BufferSpec struct {
	Usage   BufferUsage
	Memory  MemoryUsage
	Size    uint64
	Initial []byte // optional initial contents, uploaded via staging for device-local buffers
	Name    string
}

// TextureSpec describes a texture creation request.
type TextureSpec struct {
	Format   vk.Format
	Type     TextureType
	Width    uint32
	Height   uint32
	Depth    uint32
	MipCount uint32
	Usage    TextureUsage
	Name     string
	Bindless bool
}

// SamplerSpec describes a sampler creation request.
type SamplerSpec struct {
	Filter      vk.Filter
	AddressMode vk.SamplerAddressMode
}
