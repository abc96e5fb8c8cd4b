package framegraph

import "github.com/coregfx/turbo/internal/gpu"

// Builder accumulates one frame's passes via AddPass, then Compile resolves
// transient lifetimes and barriers, and Execute replays the schedule. A
// Builder is scoped to exactly one frame — callers build, compile, execute,
// and discard it every tick (§6 steps 3, 5, 6).
type Builder struct {
	device *gpu.Device

	resources []resourceEntry
	passes    []*passRecord

	// finalBarriers are issued once after every pass has executed, for
	// external resources whose declared final layout differs from whatever
	// the last pass left them in (e.g. the swapchain image's
	// ColorAttachment→PresentSrc transition in scenario 3).
	finalBarriers []compiledBarrier

	compiled bool
}

// NewBuilder constructs a frame graph bound to device. Every resource the
// graph allocates or resolves goes through this device.
func NewBuilder(device *gpu.Device) *Builder {
	return &Builder{device: device}
}

func (b *Builder) newResource(e resourceEntry) ResourceID {
	id := ResourceID(len(b.resources))
	b.resources = append(b.resources, e)
	return id
}

// AddPass registers a pass: setup runs immediately to record its resource
// declarations, execute is deferred until Execute replays the schedule
// (§4.F.1). Passes execute in exactly the order they were added.
func (b *Builder) AddPass(name string, setup func(*PassSetup), execute ExecuteFunc) {
	if b.compiled {
		panic("framegraph: AddPass called after Compile")
	}
	pr := &passRecord{name: name}
	b.passes = append(b.passes, pr)
	setup(&PassSetup{graph: b, pass: pr})
	pr.execute = execute
}

func layoutFor(a access) gpu.TextureLayout {
	switch a.kind {
	case accessColorAttachment:
		return gpu.LayoutColorAttachment
	case accessDepthStencilAttachment:
		return gpu.LayoutDepthStencilAttachment
	case accessWrite:
		return gpu.LayoutGeneral
	default: // accessRead — layout travels with the read, looked up separately
		return gpu.LayoutUndefined
	}
}

// schedule is the pure output of planSchedule: per-resource first/last use
// pass indices and whether any pass touched it at all. Kept separate from
// the Builder so tests can exercise the planning logic without a device.
type schedule struct {
	firstUse []int
	lastUse  []int
	touched  []bool
}

// planSchedule walks passes in insertion order and, for each resource
// access, computes the layout transition (if any) required before that pass
// runs (§4.F.2, §8 "frame-graph barrier sufficiency"/"determinism"
// properties), writing results into each pass's barriers field and the
// builder's finalBarriers. It touches nothing device-dependent, so it is the
// seam framegraph's own tests exercise directly.
func (b *Builder) planSchedule() schedule {
	currentLayout := make([]gpu.TextureLayout, len(b.resources))
	s := schedule{
		firstUse: make([]int, len(b.resources)),
		lastUse:  make([]int, len(b.resources)),
		touched:  make([]bool, len(b.resources)),
	}

	for i, r := range b.resources {
		if r.kind == resourceExternal {
			currentLayout[i] = r.initialState
		} else {
			currentLayout[i] = gpu.LayoutUndefined
		}
		s.firstUse[i] = -1
		s.lastUse[i] = -1
	}

	for passIdx, pr := range b.passes {
		// Read accesses carry their own required layout.
		for _, r := range pr.reads {
			id := r.version.ID
			if !s.touched[id] {
				s.firstUse[id] = passIdx
				s.touched[id] = true
			}
			s.lastUse[id] = passIdx
			if currentLayout[id] != r.layout {
				pr.barriers = append(pr.barriers, compiledBarrier{resource: id, from: currentLayout[id], to: r.layout})
				currentLayout[id] = r.layout
			}
		}

		// Attachment/plain-write accesses each carry an implied layout.
		for _, a := range pr.accesses {
			if a.kind == accessRead {
				continue
			}
			id := a.resource
			if !s.touched[id] {
				s.firstUse[id] = passIdx
				s.touched[id] = true
			}
			s.lastUse[id] = passIdx
			want := layoutFor(a)
			if currentLayout[id] != want {
				pr.barriers = append(pr.barriers, compiledBarrier{resource: id, from: currentLayout[id], to: want})
				currentLayout[id] = want
			}
		}
	}

	for id, r := range b.resources {
		if r.kind != resourceExternal {
			continue
		}
		if currentLayout[id] != r.finalState {
			b.finalBarriers = append(b.finalBarriers, compiledBarrier{resource: ResourceID(id), from: currentLayout[id], to: r.finalState})
			currentLayout[id] = r.finalState
		}
	}

	return s
}

// Compile plans the schedule and then allocates, right here, every transient
// resource that some pass actually touched; allocation is not deferred to
// the resource's first use.
func (b *Builder) Compile() {
	if b.compiled {
		panic("framegraph: Compile called twice")
	}

	s := b.planSchedule()

	for id := range b.resources {
		r := &b.resources[id]
		if r.kind != resourceTransient {
			continue
		}
		if !s.touched[id] {
			continue // declared but never accessed by any pass; nothing to allocate
		}
		r.backing = b.device.CreateTexture(r.spec)
	}

	b.compiled = true
}

// resolve looks up the live texture handle backing a resource, for passes'
// execute callbacks and for Execute's own barrier issuance.
func (b *Builder) resolve(id ResourceID) gpu.TextureHandle {
	return b.resources[id].backing
}

func (cb compiledBarrier) apply(cmd *gpu.CommandBuffer, b *Builder) {
	cmd.TransitionImage(b.resolve(cb.resource), cb.to)
}

// Execute replays the compiled schedule: for each pass, issue its barriers
// then invoke its execute callback; afterward issue the final barriers that
// bring external resources to their declared final layout (§6 step 6, §8
// scenario 3's post-schedule PresentSrc transition).
func (b *Builder) Execute(cmd *gpu.CommandBuffer) {
	if !b.compiled {
		panic("framegraph: Execute called before Compile")
	}
	for _, pr := range b.passes {
		for _, br := range pr.barriers {
			br.apply(cmd, b)
		}
		pr.execute(cmd, b.resolve)
	}
	for _, br := range b.finalBarriers {
		br.apply(cmd, b)
	}
}

// Release returns every transient resource this graph allocated back to the
// device's destroy path. Called once after Execute, so every transient is
// released together after the last pass rather than after its own last use;
// the physical destruction is deferred by the device's own per-frame destroy
// queue (§4.B).
func (b *Builder) Release() {
	for _, r := range b.resources {
		if r.kind == resourceTransient && r.backing.IsValid() {
			b.device.DestroyTexture(r.backing)
		}
	}
}
