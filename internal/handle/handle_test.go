package handle_test

import (
	"testing"

	"github.com/coregfx/turbo/internal/handle"
)

type widgetKind struct{}

func TestPoolIdempotence(t *testing.T) {
	p := handle.NewPool[int, widgetKind](4)

	var live []handle.Handle[widgetKind]
	for i := 0; i < 10; i++ {
		h := p.Acquire()
		*p.Access(h) = i
		live = append(live, h)
	}
	if p.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", p.Len())
	}

	p.Release(live[3])
	live = append(live[:3], live[4:]...)
	if p.Len() != 9 {
		t.Fatalf("Len() = %d, want 9", p.Len())
	}

	for i, h := range live {
		v := p.Access(h)
		if v == nil {
			t.Fatalf("Access(%v) = nil, want present", h)
		}
		_ = i
	}
}

func TestAccessAbsentAfterRelease(t *testing.T) {
	p := handle.NewPool[int, widgetKind](4)
	h := p.Acquire()
	p.Release(h)
	if v := p.Access(h); v != nil {
		t.Fatalf("Access() after Release() = %v, want nil", v)
	}
}

func TestGenerationMonotonicity(t *testing.T) {
	p := handle.NewPool[int, widgetKind](4)
	h1 := p.Acquire()
	p.Release(h1)
	h2 := p.Acquire()

	if h1.Index() != h2.Index() {
		t.Fatalf("expected reacquire to reuse the same index, got %d and %d", h1.Index(), h2.Index())
	}
	if h2.Generation() <= h1.Generation() {
		t.Fatalf("h2 generation %d is not greater than h1 generation %d", h2.Generation(), h1.Generation())
	}
	if v := p.Access(h1); v != nil {
		t.Fatalf("stale handle h1 resolved to %v, want nil", v)
	}
}

func TestHandleStableAcrossGrowth(t *testing.T) {
	p := handle.NewPool[int, widgetKind](2)
	h := p.Acquire()
	*p.Access(h) = 42

	// Exhaust the pool repeatedly to force several doublings.
	for i := 0; i < 100; i++ {
		p.Acquire()
	}

	v := p.Access(h)
	if v == nil || *v != 42 {
		t.Fatalf("Access(h) after growth = %v, want 42", v)
	}
}

func TestReleaseUnknownHandleIsNoop(t *testing.T) {
	p := handle.NewPool[int, widgetKind](4)
	stale := handle.New[widgetKind](0, 7)
	p.Release(stale) // must not panic
	if p.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", p.Len())
	}
}

func TestInvalidHandle(t *testing.T) {
	h := handle.InvalidHandle[widgetKind]()
	if h.IsValid() {
		t.Fatalf("InvalidHandle().IsValid() = true, want false")
	}
	p := handle.NewPool[int, widgetKind](4)
	if v := p.Access(h); v != nil {
		t.Fatalf("Access(invalid) = %v, want nil", v)
	}
}

// TestPoolExhaustedPanics pins §8 scenario 4's exact boundary: generation
// 4095 is handed out successfully, and only the acquire that would follow
// it — wrapping the slot to generation 4096 — panics with PoolExhausted.
func TestPoolExhaustedPanics(t *testing.T) {
	p := handle.NewPool[int, widgetKind](1)
	h := p.Acquire() // generation 0

	for want := uint32(1); want <= 4095; want++ {
		p.Release(h)
		h = p.Acquire()
		if h.Generation() != want {
			t.Fatalf("acquire #%d: generation = %d, want %d", want, h.Generation(), want)
		}
	}

	p.Release(h)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on the acquire that would wrap generation past 4095, got none")
		}
	}()
	p.Acquire()
}
