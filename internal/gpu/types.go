package gpu

import "github.com/coregfx/turbo/internal/handle"

// Phantom kind markers for each resource pool. These are never instantiated;
// they exist purely so handle.Handle[K] type-checks prevent a BufferHandle
// from being passed where a TextureHandle is expected.
type (
	bufferKind             struct{}
	textureKind             struct{}
	samplerKind             struct{}
	pipelineKind            struct{}
	descriptorSetLayoutKind struct{}
	descriptorSetKind       struct{}
)

// Handle aliases exported to callers outside the package.
type (
	BufferHandle             = handle.Handle[bufferKind]
	TextureHandle            = handle.Handle[textureKind]
	SamplerHandle            = handle.Handle[samplerKind]
	PipelineHandle           = handle.Handle[pipelineKind]
	DescriptorSetLayoutHandle = handle.Handle[descriptorSetLayoutKind]
	DescriptorSetHandle      = handle.Handle[descriptorSetKind]
)

// BindPoint distinguishes graphics and compute pipelines.
type BindPoint int

const (
	BindPointGraphics BindPoint = iota
	BindPointCompute
)

// TextureType mirrors the three native image dimensionalities the device
// supports.
type TextureType int

const (
	TextureType1D TextureType = iota
	TextureType2D
	TextureType3D
)

// TextureLayout is the engine's closed enum of layouts a texture can be
// transitioned between. It is deliberately smaller than the backend's full
// image-layout enum — the frame graph and command buffer wrapper only ever
// need these eight.
type TextureLayout int

const (
	LayoutUndefined TextureLayout = iota
	LayoutGeneral
	LayoutReadOnly
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPresentSrc
)

func (l TextureLayout) String() string {
	switch l {
	case LayoutUndefined:
		return "Undefined"
	case LayoutGeneral:
		return "General"
	case LayoutReadOnly:
		return "ReadOnly"
	case LayoutColorAttachment:
		return "ColorAttachment"
	case LayoutDepthStencilAttachment:
		return "DepthStencilAttachment"
	case LayoutTransferSrc:
		return "TransferSrc"
	case LayoutTransferDst:
		return "TransferDst"
	case LayoutPresentSrc:
		return "PresentSrc"
	default:
		return "Unknown"
	}
}

// TextureUsage is a bitmask of the roles a texture may be created for.
type TextureUsage uint32

const (
	TextureUsageRenderTarget TextureUsage = 1 << iota
	TextureUsageStorageImage
	TextureUsageTransferSrc
	TextureUsageTransferDst
	TextureUsageSampled
)

func (u TextureUsage) Has(flag TextureUsage) bool { return u&flag != 0 }

// BufferUsage is a bitmask of the roles a buffer may be created for.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStorage
	BufferUsageTransferSrc
	BufferUsageTransferDst
	BufferUsageIndirect
)

func (u BufferUsage) Has(flag BufferUsage) bool { return u&flag != 0 }

// MemoryUsage controls whether CreateBuffer allocates a persistently-mapped
// host-visible allocation or a device-local one filled via staging.
type MemoryUsage int

const (
	MemoryUsageDeviceLocal MemoryUsage = iota
	MemoryUsageCreateMapped
)
