package framegraph

import (
	"testing"

	"github.com/coregfx/turbo/internal/gpu"
)

// buildTwoPassScenario constructs §8 scenario 3 ("Frame-graph two-pass"):
// pass P1 creates transient T and writes it as color attachment 0; pass P2
// reads T ReadOnly and writes external swapchain S as color attachment 0.
func buildTwoPassScenario() *Builder {
	b := NewBuilder(nil)

	var t0, s0 Version
	b.AddPass("P1", func(s *PassSetup) {
		t0 = s.CreateTexture("T", gpu.TextureSpec{Width: 256, Height: 256})
		t0 = s.AddAttachment(t0, 0)
	}, func(*gpu.CommandBuffer, func(ResourceID) gpu.TextureHandle) {})

	b.AddPass("P2", func(setup *PassSetup) {
		setup.ReadTexture(t0, gpu.LayoutReadOnly)
		s0 = setup.RegisterExternalTexture("S", gpu.TextureHandle{}, gpu.LayoutUndefined, gpu.LayoutPresentSrc)
		s0 = setup.AddAttachment(s0, 0)
	}, func(*gpu.CommandBuffer, func(ResourceID) gpu.TextureHandle) {})

	_ = s0
	return b
}

func TestTwoPassBarrierSufficiency(t *testing.T) {
	b := buildTwoPassScenario()
	b.planSchedule()

	p1 := b.passes[0]
	if len(p1.barriers) != 1 {
		t.Fatalf("pass P1: want 1 barrier, got %d", len(p1.barriers))
	}
	if p1.barriers[0].from != gpu.LayoutUndefined || p1.barriers[0].to != gpu.LayoutColorAttachment {
		t.Fatalf("pass P1 barrier: want Undefined->ColorAttachment, got %v->%v", p1.barriers[0].from, p1.barriers[0].to)
	}

	p2 := b.passes[1]
	if len(p2.barriers) != 2 {
		t.Fatalf("pass P2: want 2 barriers (T read + S attachment), got %d", len(p2.barriers))
	}
	if p2.barriers[0].to != gpu.LayoutReadOnly {
		t.Fatalf("pass P2 first barrier: want ->ReadOnly, got ->%v", p2.barriers[0].to)
	}
	if p2.barriers[1].to != gpu.LayoutColorAttachment {
		t.Fatalf("pass P2 second barrier: want ->ColorAttachment, got ->%v", p2.barriers[1].to)
	}

	if len(b.finalBarriers) != 1 {
		t.Fatalf("want 1 post-schedule barrier for S, got %d", len(b.finalBarriers))
	}
	if b.finalBarriers[0].from != gpu.LayoutColorAttachment || b.finalBarriers[0].to != gpu.LayoutPresentSrc {
		t.Fatalf("final barrier: want ColorAttachment->PresentSrc, got %v->%v", b.finalBarriers[0].from, b.finalBarriers[0].to)
	}
}

func TestScheduleDeterminism(t *testing.T) {
	b1 := buildTwoPassScenario()
	b1.planSchedule()

	b2 := buildTwoPassScenario()
	b2.planSchedule()

	if len(b1.passes) != len(b2.passes) {
		t.Fatalf("pass count mismatch: %d vs %d", len(b1.passes), len(b2.passes))
	}
	for i := range b1.passes {
		p1, p2 := b1.passes[i], b2.passes[i]
		if len(p1.barriers) != len(p2.barriers) {
			t.Fatalf("pass %d: barrier count mismatch %d vs %d", i, len(p1.barriers), len(p2.barriers))
		}
		for j := range p1.barriers {
			if p1.barriers[j] != p2.barriers[j] {
				t.Fatalf("pass %d barrier %d differs: %+v vs %+v", i, j, p1.barriers[j], p2.barriers[j])
			}
		}
	}
	if len(b1.finalBarriers) != len(b2.finalBarriers) {
		t.Fatalf("final barrier count mismatch: %d vs %d", len(b1.finalBarriers), len(b2.finalBarriers))
	}
}

func TestTransientLifetimeCreatorOnly(t *testing.T) {
	b := NewBuilder(nil)
	b.AddPass("only-writer", func(s *PassSetup) {
		v := s.CreateTexture("T", gpu.TextureSpec{Width: 64, Height: 64})
		s.WriteTexture(v)
	}, func(*gpu.CommandBuffer, func(ResourceID) gpu.TextureHandle) {})

	sched := b.planSchedule()
	if sched.firstUse[0] != sched.lastUse[0] {
		t.Fatalf("want firstUse == lastUse for a created-and-written-only resource, got %d != %d", sched.firstUse[0], sched.lastUse[0])
	}
}

func TestUntouchedResourceNotAllocated(t *testing.T) {
	b := NewBuilder(nil)
	b.AddPass("declares-but-never-uses", func(s *PassSetup) {
		s.CreateTexture("unused", gpu.TextureSpec{Width: 64, Height: 64})
	}, func(*gpu.CommandBuffer, func(ResourceID) gpu.TextureHandle) {})

	sched := b.planSchedule()
	if sched.touched[0] {
		t.Fatalf("a resource that no pass accessed should not be marked touched")
	}
}

func TestPassTags(t *testing.T) {
	b := NewBuilder(nil)
	b.AddPass("tagged", func(s *PassSetup) {
		s.Tag("category", "shadow")
	}, func(*gpu.CommandBuffer, func(ResourceID) gpu.TextureHandle) {})

	tags := b.Tags(0)
	if tags == nil || tags.StringProps["category"] != "shadow" {
		t.Fatalf("want tag category=shadow, got %+v", tags)
	}
}
