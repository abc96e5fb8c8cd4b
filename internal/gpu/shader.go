package gpu

import (
	"fmt"
	"os"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// ShaderStage names the single stage a ShaderCompiler compiles one source
// into — the engine never asks for multi-stage modules in one call (§4.G).
type ShaderStage int

const (
	StageVertex ShaderStage = iota
	StageFragment
	StageCompute
)

// ShaderCompiler turns a source path into SPIR-V words. It is the one seam
// in the engine that legitimately wants runtime polymorphism rather than a
// closed sum type (§9 Design Notes): swapping a file-based compiler for one
// that shells out to a live compiler, or one that reads from an asset
// archive, should never require touching device.go.
type ShaderCompiler interface {
	Compile(path string, stage ShaderStage) ([]uint32, error)
}

// FileShaderCompiler reads pre-compiled SPIR-V (.spv) files straight off
// disk, the same ioutil.ReadFile-then-hand-to-Vulkan path the teacher's
// CoreShader.LoadShaderModule uses — just without the teacher's
// os.Exit(1)-on-error, since a compile failure here is recoverable by the
// caller (e.g. fall back to a default pipeline) rather than always fatal.
type FileShaderCompiler struct{}

func NewFileShaderCompiler() *FileShaderCompiler { return &FileShaderCompiler{} }

func (c *FileShaderCompiler) Compile(path string, _ ShaderStage) ([]uint32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gpu: read shader %q: %w", path, err)
	}
	return sliceUint32(raw), nil
}

// sliceUint32 reinterprets a SPIR-V byte blob as the uint32 words Vulkan
// expects for VkShaderModuleCreateInfo.pCode.
func sliceUint32(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
	}
	return out
}

type shaderCacheKey struct {
	path  string
	stage ShaderStage
}

// CachingShaderCompiler decorates another ShaderCompiler with an in-memory
// cache keyed by (path, stage), so repeated PipelineSpec entries referencing
// the same shader source only hit disk/compiler once per process (§4.G).
type CachingShaderCompiler struct {
	inner ShaderCompiler

	mu    sync.Mutex
	cache map[shaderCacheKey][]uint32
}

func NewCachingShaderCompiler(inner ShaderCompiler) *CachingShaderCompiler {
	return &CachingShaderCompiler{inner: inner, cache: make(map[shaderCacheKey][]uint32)}
}

func (c *CachingShaderCompiler) Compile(path string, stage ShaderStage) ([]uint32, error) {
	key := shaderCacheKey{path: path, stage: stage}

	c.mu.Lock()
	if words, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return words, nil
	}
	c.mu.Unlock()

	words, err := c.inner.Compile(path, stage)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = words
	c.mu.Unlock()
	return words, nil
}

func createShaderModule(dev vk.Device, words []uint32) vk.ShaderModule {
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(words) * 4),
		PCode:    words,
	}
	var module vk.ShaderModule
	mustSucceed(vk.CreateShaderModule(dev, &info, nil, &module), "create shader module")
	return module
}
