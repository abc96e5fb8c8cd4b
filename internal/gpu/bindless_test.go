package gpu

import "testing"

// TestBindlessSlotContiguousAllocation covers §8 scenario 6's first half:
// filling a capacity-512 array yields slots [0, 511].
func TestBindlessSlotContiguousAllocation(t *testing.T) {
	f := newSlotFreeList(512)
	for want := int32(0); want < 512; want++ {
		if got := f.acquire(); got != want {
			t.Fatalf("slot %d: want %d, got %d", want, want, got)
		}
	}
}

func TestBindlessSlotExhaustionPanics(t *testing.T) {
	f := newSlotFreeList(1)
	f.acquire()

	defer func() {
		if recover() == nil {
			t.Fatalf("want panic on exhausted free list")
		}
	}()
	f.acquire()
}

// TestBindlessSlotLIFOReuse covers §8 scenario 6's second half: releasing
// every other slot and reacquiring hands back the most recently freed slot
// first.
func TestBindlessSlotLIFOReuse(t *testing.T) {
	f := newSlotFreeList(8)
	acquired := make([]int32, 8)
	for i := range acquired {
		acquired[i] = f.acquire()
	}

	// Release slots 1, 3, 5, 7 in that order.
	f.release(1)
	f.release(3)
	f.release(5)
	f.release(7)

	want := []int32{7, 5, 3, 1}
	for _, w := range want {
		if got := f.acquire(); got != w {
			t.Fatalf("want LIFO reuse %d, got %d", w, got)
		}
	}
}

func TestBindlessSlotReleaseNegativeIsNoop(t *testing.T) {
	f := newSlotFreeList(4)
	f.release(-1)
	if got := f.acquire(); got != 0 {
		t.Fatalf("want first acquire to be slot 0, got %d", got)
	}
}
