// Package framegraph implements the declarative render-graph scheduler
// (§4.F): callers declare what each pass reads, writes, and creates, and
// Compile resolves transient-resource lifetimes and barrier placement before
// Execute replays the schedule against a command buffer. No culling or
// reordering happens — the declared AddPass order is the schedule.
package framegraph

import "github.com/coregfx/turbo/internal/gpu"

// ResourceID names a logical resource within one graph — stable across the
// resource's versions. A fresh ResourceID is minted by CreateTexture or
// RegisterExternalTexture; WriteTexture never changes it, only the version.
type ResourceID int

// Version pairs a ResourceID with the revision produced by the write that
// last touched it, modeling the graph as a DAG over (resource, version)
// pairs per §4.F. The zero Version of a freshly created or registered
// resource is its pre-write state.
type Version struct {
	ID  ResourceID
	Rev int
}

type resourceKind int

const (
	resourceTransient resourceKind = iota
	resourceExternal
)

// resourceEntry tracks one logical resource across the whole graph: its kind
// and name, and — for transients — the spec Compile uses to allocate it from
// the device's texture pool. currentRev is not advanced by WriteTexture or
// the attachment calls; revisions live only in the Version values they
// return.
type resourceEntry struct {
	kind resourceKind
	name string

	// transient-only
	spec gpu.TextureSpec

	// external-only
	handle       gpu.TextureHandle
	initialState gpu.TextureLayout
	finalState   gpu.TextureLayout

	currentRev int

	// backing is the real texture handle once Compile has allocated (or, for
	// externals, adopted) it. Execute reads through this, never spec.
	backing gpu.TextureHandle
}
