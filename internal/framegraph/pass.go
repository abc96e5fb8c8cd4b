package framegraph

import "github.com/coregfx/turbo/internal/gpu"

// accessKind distinguishes the ways a pass can touch a resource version,
// which determines the layout Compile demands it be barriered into before
// the pass executes.
type accessKind int

const (
	accessRead accessKind = iota
	accessWrite
	accessColorAttachment
	accessDepthStencilAttachment
)

// access records one resource touch within a single pass's setup callback,
// in the order setup made the call — Compile walks these per pass to build
// per-resource {first_use, last_use} ranges (§4.F.2).
type access struct {
	resource ResourceID
	version  Version
	kind     accessKind
	slot     int // color attachment slot, meaningful only for accessColorAttachment
}

// PassSetup is supplied to a pass's setup callback and records its resource
// declarations (§4.F.1). It never touches the backend — Compile consumes the
// recorded accesses afterward.
type PassSetup struct {
	graph *Builder
	pass  *passRecord
}

// CreateTexture declares a new transient texture scoped to this graph,
// returning its initial (zero-revision) version. If some pass accesses it,
// Compile allocates it before any pass executes, and Release hands it to the
// device's destroy path after the whole schedule has executed; neither step
// is placed at the texture's own first or last use.
func (s *PassSetup) CreateTexture(name string, spec gpu.TextureSpec) Version {
	id := s.graph.newResource(resourceEntry{kind: resourceTransient, name: name, spec: spec})
	return Version{ID: id, Rev: 0}
}

// RegisterExternalTexture adopts an already-live texture (e.g. the acquired
// swapchain image) into the graph with an initial and final layout the
// schedule must transition to/from (§6 step 4).
func (s *PassSetup) RegisterExternalTexture(name string, h gpu.TextureHandle, initial, final gpu.TextureLayout) Version {
	id := s.graph.newResource(resourceEntry{
		kind:         resourceExternal,
		name:         name,
		handle:       h,
		backing:      h,
		initialState: initial,
		finalState:   final,
	})
	return Version{ID: id, Rev: 0}
}

// ReadTexture declares that this pass reads v, demanding it be in layout
// before the pass executes.
func (s *PassSetup) ReadTexture(v Version, layout gpu.TextureLayout) {
	s.pass.reads = append(s.pass.reads, readAccess{version: v, layout: layout})
	s.pass.accesses = append(s.pass.accesses, access{resource: v.ID, version: v, kind: accessRead})
}

// WriteTexture declares that this pass writes v, producing the next version
// of its resource (§4.F.1: "WriteTexture bumps the handle's version").
func (s *PassSetup) WriteTexture(v Version) Version {
	next := Version{ID: v.ID, Rev: v.Rev + 1}
	s.pass.writes = append(s.pass.writes, next)
	s.pass.accesses = append(s.pass.accesses, access{resource: v.ID, version: next, kind: accessWrite})
	return next
}

// AddAttachment binds v as color attachment slot, implicitly requiring a
// ColorAttachment-layout transition and producing the next version exactly
// like WriteTexture, since a color attachment is always written.
func (s *PassSetup) AddAttachment(v Version, slot int) Version {
	next := Version{ID: v.ID, Rev: v.Rev + 1}
	s.pass.writes = append(s.pass.writes, next)
	s.pass.colorAttachments = append(s.pass.colorAttachments, attachmentRef{version: next, slot: slot})
	s.pass.accesses = append(s.pass.accesses, access{resource: v.ID, version: next, kind: accessColorAttachment, slot: slot})
	return next
}

// SetDepthStencilAttachment binds v as the pass's depth/stencil attachment.
func (s *PassSetup) SetDepthStencilAttachment(v Version) Version {
	next := Version{ID: v.ID, Rev: v.Rev + 1}
	s.pass.writes = append(s.pass.writes, next)
	s.pass.depthAttachment = &attachmentRef{version: next}
	s.pass.accesses = append(s.pass.accesses, access{resource: v.ID, version: next, kind: accessDepthStencilAttachment})
	return next
}

type readAccess struct {
	version Version
	layout  gpu.TextureLayout
}

type attachmentRef struct {
	version Version
	slot    int
}

// ExecuteFunc records a pass's draw/dispatch calls against the already
// barrier-prepared command buffer. It receives the resolved texture handles
// for everything the pass declared, keyed by ResourceID.
type ExecuteFunc func(cmd *gpu.CommandBuffer, resolve func(ResourceID) gpu.TextureHandle)

// passRecord is one AddPass call's full bookkeeping: its declared accesses
// (used by Compile) and its execute callback (used by Execute).
type passRecord struct {
	name    string
	reads   []readAccess
	writes  []Version
	accesses []access

	colorAttachments []attachmentRef
	depthAttachment  *attachmentRef

	execute ExecuteFunc
	tags    *PassTags

	// barriers is populated by Compile: the per-resource transitions that
	// must be issued immediately before this pass's execute callback runs.
	barriers []compiledBarrier
}

type compiledBarrier struct {
	resource ResourceID
	from     gpu.TextureLayout
	to       gpu.TextureLayout
}
