package framegraph

import "fmt"

// PassTags is a generic, JSON-shaped property bag a pass can attach
// free-form metadata to — debug categories, profiling buckets, anything a
// downstream tool wants to group passes by without the graph itself knowing
// what the keys mean. Adapted from the teacher's Usage property bag
// (vulkan-go-asche's usage.go), narrowed from a linked-list chain of bags
// down to the single flat bag every caller of the teacher's type actually
// built.
type PassTags struct {
	Name        string
	StringProps map[string]string
	IntProps    map[string]int
	BoolProps   map[string]bool
	FloatProps  map[string]float32
}

func newPassTags(name string) *PassTags {
	return &PassTags{
		Name:        name,
		StringProps: make(map[string]string),
		IntProps:    make(map[string]int),
		BoolProps:   make(map[string]bool),
		FloatProps:  make(map[string]float32),
	}
}

func (t *PassTags) String() string {
	return fmt.Sprintf("%s: strings=%v ints=%v bools=%v floats=%v", t.Name, t.StringProps, t.IntProps, t.BoolProps, t.FloatProps)
}

// Tag attaches a free-form string property to the pass currently being set
// up, for downstream profiling/debug tools to group passes by (e.g.
// "category" -> "shadow", "category" -> "postprocess").
func (s *PassSetup) Tag(key, value string) {
	if s.pass.tags == nil {
		s.pass.tags = newPassTags(s.pass.name)
	}
	s.pass.tags.StringProps[key] = value
}

// Tags returns the tags attached to pass index i, or nil if none were set.
func (b *Builder) Tags(passIndex int) *PassTags {
	if passIndex < 0 || passIndex >= len(b.passes) {
		return nil
	}
	return b.passes[passIndex].tags
}
