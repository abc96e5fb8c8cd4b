package gpu

import vk "github.com/vulkan-go/vulkan"

// DescriptorSetLayoutSpec describes a non-bindless descriptor set layout —
// used for the small, per-pass sets a pipeline binds alongside the device's
// one bindless set (set 0), e.g. a per-frame uniform set at set 1 (§4.C).
type DescriptorSetLayoutSpec struct {
	SetIndex uint32
	Bindings []vk.DescriptorSetLayoutBinding
}

// CreateDescriptorSetLayout allocates a backend descriptor set layout from
// an explicit binding list. Unlike the bindless table, these layouts are not
// update-after-bind and are sized exactly to their binding list.
func (d *Device) CreateDescriptorSetLayout(spec DescriptorSetLayoutSpec) DescriptorSetLayoutHandle {
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(spec.Bindings)),
		PBindings:    spec.Bindings,
	}
	var layout vk.DescriptorSetLayout
	mustSucceed(vk.CreateDescriptorSetLayout(d.handle, &info, nil, &layout), "create descriptor set layout")

	h := d.setLayouts.Acquire()
	*d.setLayouts.Access(h) = DescriptorSetLayout{
		Native:   layout,
		SetIndex: spec.SetIndex,
		Bindings: spec.Bindings,
	}
	return h
}

// DestroyDescriptorSetLayout enqueues the layout for deferred destruction.
func (d *Device) DestroyDescriptorSetLayout(h DescriptorSetLayoutHandle) {
	l := d.setLayouts.Access(h)
	if l == nil {
		return
	}
	native := l.Native
	d.setLayouts.Release(h)
	d.queueForDestroy(destroyDescriptorSetLayout, func(dev *Device) {
		vk.DestroyDescriptorSetLayout(dev.handle, native, nil)
	})
}

// DescriptorSetSpec describes a descriptor set allocation request.
type DescriptorSetSpec struct {
	Layout DescriptorSetLayoutHandle

	// PerFrame allocates from the current frame's per-frame pool, which is
	// reset (and every set it holds implicitly freed) at the start of every
	// BeginFrame — appropriate for per-frame uniform sets rebuilt each tick.
	// When false, the set is allocated from the device's long-lived pool and
	// must be freed explicitly via DestroyDescriptorSet.
	PerFrame bool
}

// CreateDescriptorSet allocates a descriptor set from either the current
// frame's transient pool or the device's long-lived pool (§4.C).
func (d *Device) CreateDescriptorSet(spec DescriptorSetSpec) DescriptorSetHandle {
	layout := d.setLayouts.Access(spec.Layout)
	if layout == nil {
		panic("gpu: CreateDescriptorSet given a stale layout handle")
	}

	pool := d.longLivedDescriptorPool
	if spec.PerFrame {
		pool = d.currentFrame().descriptorPool
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout.Native},
	}
	sets := make([]vk.DescriptorSet, 1)
	mustSucceed(vk.AllocateDescriptorSets(d.handle, &allocInfo, sets), "allocate descriptor set")

	h := d.descriptorSets.Acquire()
	*d.descriptorSets.Access(h) = DescriptorSet{
		Native:   sets[0],
		SetIndex: layout.SetIndex,
		Layout:   spec.Layout,
		PerFrame: spec.PerFrame,
	}
	return h
}

// WriteDescriptorSetBuffer points binding on set at buf's full range.
func (d *Device) WriteDescriptorSetBuffer(set DescriptorSetHandle, binding uint32, descriptorType vk.DescriptorType, buf BufferHandle) {
	s := d.descriptorSets.Access(set)
	b := d.buffers.Access(buf)
	if s == nil || b == nil {
		return
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.Native,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  descriptorType,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: b.Native,
			Offset: 0,
			Range:  b.Size,
		}},
	}
	vk.UpdateDescriptorSets(d.handle, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

// DestroyDescriptorSet frees a long-lived set. Per-frame sets must not be
// passed here — they are implicitly freed when their owning frame's pool is
// reset, and explicitly freeing one would double-free during ResetDescriptorPool.
func (d *Device) DestroyDescriptorSet(h DescriptorSetHandle) {
	s := d.descriptorSets.Access(h)
	if s == nil || s.PerFrame {
		return
	}
	native := s.Native
	d.descriptorSets.Release(h)
	vk.FreeDescriptorSets(d.handle, d.longLivedDescriptorPool, 1, []vk.DescriptorSet{native})
}

// PipelineSpec describes a graphics or compute pipeline creation request. A
// graphics pipeline always targets dynamic rendering (§4.C) — there is no
// VkRenderPass/VkFramebuffer anywhere in this engine.
type PipelineSpec struct {
	BindPoint BindPoint

	VertexShaderPath   string
	FragmentShaderPath string
	ComputeShaderPath  string

	ColorFormats []vk.Format
	DepthFormat  vk.Format // vk.FormatUndefined if the pipeline has no depth attachment

	Topology     vk.PrimitiveTopology
	CullMode     vk.CullModeFlagBits
	DepthTest    bool
	DepthWrite   bool
	BlendEnable  bool

	SetLayouts       []DescriptorSetLayoutHandle // set 0 is always the device's bindless set, appended automatically
	PushConstantSize uint32

	Name string
}

func (d *Device) buildPipelineLayout(spec PipelineSpec) vk.PipelineLayout {
	setLayouts := make([]vk.DescriptorSetLayout, 0, len(spec.SetLayouts)+1)
	setLayouts = append(setLayouts, d.bindless.Layout)
	for _, h := range spec.SetLayouts {
		l := d.setLayouts.Access(h)
		if l == nil {
			panic("gpu: PipelineSpec references a stale set layout handle")
		}
		setLayouts = append(setLayouts, l.Native)
	}

	var pushRanges []vk.PushConstantRange
	if spec.PushConstantSize > 0 {
		stages := vk.ShaderStageFlags(vk.ShaderStageAllGraphics)
		if spec.BindPoint == BindPointCompute {
			stages = vk.ShaderStageFlags(vk.ShaderStageComputeBit)
		}
		pushRanges = []vk.PushConstantRange{{
			StageFlags: stages,
			Offset:     0,
			Size:       spec.PushConstantSize,
		}}
	}

	info := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(setLayouts)),
		PSetLayouts:            setLayouts,
		PushConstantRangeCount: uint32(len(pushRanges)),
		PPushConstantRanges:    pushRanges,
	}
	var layout vk.PipelineLayout
	mustSucceed(vk.CreatePipelineLayout(d.handle, &info, nil, &layout), "create pipeline layout")
	return layout
}

// CreateGraphicsPipeline compiles spec's vertex/fragment shaders through
// compiler, builds a dynamic-rendering graphics pipeline (no render pass
// object), and registers it in the pipeline pool (§4.C, §4.G).
func (d *Device) CreateGraphicsPipeline(compiler ShaderCompiler, spec PipelineSpec) PipelineHandle {
	vertWords, err := compiler.Compile(spec.VertexShaderPath, StageVertex)
	if err != nil {
		d.fatal("compile vertex shader", err)
	}
	fragWords, err := compiler.Compile(spec.FragmentShaderPath, StageFragment)
	if err != nil {
		d.fatal("compile fragment shader", err)
	}
	vertModule := createShaderModule(d.handle, vertWords)
	fragModule := createShaderModule(d.handle, fragWords)
	defer vk.DestroyShaderModule(d.handle, vertModule, nil)
	defer vk.DestroyShaderModule(d.handle, fragModule, nil)

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(vk.ShaderStageVertexBit),
			Module: vertModule,
			PName:  safeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(vk.ShaderStageFragmentBit),
			Module: fragModule,
			PName:  safeString("main"),
		},
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{SType: vk.StructureTypePipelineVertexInputStateCreateInfo}

	topology := spec.Topology
	if topology == 0 {
		topology = vk.PrimitiveTopologyTriangleList
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: topology,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeFlags(spec.CullMode),
		FrontFace:   vk.FrontFaceCounterClockwise,
		LineWidth:   1.0,
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	blendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
		BlendEnable:    boolToVk(spec.BlendEnable),
	}
	if spec.BlendEnable {
		blendAttachment.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		blendAttachment.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		blendAttachment.ColorBlendOp = vk.BlendOpAdd
		blendAttachment.SrcAlphaBlendFactor = vk.BlendFactorOne
		blendAttachment.DstAlphaBlendFactor = vk.BlendFactorZero
		blendAttachment.AlphaBlendOp = vk.BlendOpAdd
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachment},
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  boolToVk(spec.DepthTest),
		DepthWriteEnable: boolToVk(spec.DepthWrite),
		DepthCompareOp:   vk.CompareOpLess,
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	renderingInfo := vk.PipelineRenderingCreateInfo{
		SType:                vk.StructureTypePipelineRenderingCreateInfo,
		ColorAttachmentCount: uint32(len(spec.ColorFormats)),
		PColorAttachmentFormats: spec.ColorFormats,
		DepthAttachmentFormat:   spec.DepthFormat,
	}

	layout := d.buildPipelineLayout(spec)

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:               unsafePointer(&renderingInfo),
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              layout,
	}

	pipelines := make([]vk.Pipeline, 1)
	mustSucceed(vk.CreateGraphicsPipelines(d.handle, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{pipelineInfo}, nil, pipelines), "create graphics pipeline")

	h := d.pipelines.Acquire()
	*d.pipelines.Access(h) = Pipeline{
		Native:           pipelines[0],
		Layout:           layout,
		BindPoint:        BindPointGraphics,
		SetLayouts:       spec.SetLayouts,
		PushConstantSize: spec.PushConstantSize,
	}
	return h
}

// CreateComputePipeline compiles spec's compute shader and registers a
// compute pipeline.
func (d *Device) CreateComputePipeline(compiler ShaderCompiler, spec PipelineSpec) PipelineHandle {
	words, err := compiler.Compile(spec.ComputeShaderPath, StageCompute)
	if err != nil {
		d.fatal("compile compute shader", err)
	}
	module := createShaderModule(d.handle, words)
	defer vk.DestroyShaderModule(d.handle, module, nil)

	layout := d.buildPipelineLayout(spec)

	info := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFlagBits(vk.ShaderStageComputeBit),
			Module: module,
			PName:  safeString("main"),
		},
		Layout: layout,
	}

	pipelines := make([]vk.Pipeline, 1)
	mustSucceed(vk.CreateComputePipelines(d.handle, vk.NullPipelineCache, 1, []vk.ComputePipelineCreateInfo{info}, nil, pipelines), "create compute pipeline")

	h := d.pipelines.Acquire()
	*d.pipelines.Access(h) = Pipeline{
		Native:           pipelines[0],
		Layout:           layout,
		BindPoint:        BindPointCompute,
		SetLayouts:       spec.SetLayouts,
		PushConstantSize: spec.PushConstantSize,
	}
	return h
}

// DestroyPipeline enqueues the pipeline and its layout for deferred
// destruction, in that order (§4.B — the layout must outlive the pipeline).
func (d *Device) DestroyPipeline(h PipelineHandle) {
	p := d.pipelines.Access(h)
	if p == nil {
		return
	}
	native, layout := p.Native, p.Layout
	d.pipelines.Release(h)

	d.queueForDestroy(destroyPipeline, func(dev *Device) {
		vk.DestroyPipeline(dev.handle, native, nil)
	})
	d.queueForDestroy(destroyPipelineLayout, func(dev *Device) {
		vk.DestroyPipelineLayout(dev.handle, layout, nil)
	})
}

func boolToVk(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
