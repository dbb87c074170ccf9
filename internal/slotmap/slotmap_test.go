package slotmap

import (
	"errors"
	"sync"
	"testing"
)

// variants lists every concurrency discipline behind the shared contract.
var variants = []struct {
	name string
	make func(uint32) (Bitmap, error)
}{
	{"mutex", func(n uint32) (Bitmap, error) { return NewMutex(n, false) }},
	{"mutex+hint", func(n uint32) (Bitmap, error) { return NewMutex(n, true) }},
	{"spin", func(n uint32) (Bitmap, error) { return NewSpin(n, false) }},
	{"spin+hint", func(n uint32) (Bitmap, error) { return NewSpin(n, true) }},
	{"lockfree", func(n uint32) (Bitmap, error) { return NewLockFree(n) }},
	{"lockfree+hint", func(n uint32) (Bitmap, error) { return NewLockFreeHint(n) }},
}

func TestIndexMapping(t *testing.T) {
	for slot := uint32(0); slot < 256; slot++ {
		w, bit := wordAndBit(slot)
		if got := slotIndex(w, bit); got != slot {
			t.Fatalf("slot %d round-tripped to %d (word=%d bit=%d)", slot, got, w, bit)
		}
		if bit > 63 {
			t.Fatalf("slot %d mapped to bit %d", slot, bit)
		}
	}
}

func TestHighestFreeBit(t *testing.T) {
	cases := []struct {
		word uint64
		want uint
	}{
		{fullyFree, 63},
		{1, 0},
		{1 << 62, 62},
		{0b100, 2},
		{1<<63 | 1, 63},
	}
	for _, tc := range cases {
		if got := highestFreeBit(tc.word); got != tc.want {
			t.Errorf("highestFreeBit(%#x) = %d, want %d", tc.word, got, tc.want)
		}
	}
}

func TestNew_InvalidSlotCount(t *testing.T) {
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			for _, n := range []uint32{0, 1, 63, 65, 100, 127} {
				if _, err := v.make(n); !errors.Is(err, ErrInvalidSlotCount) {
					t.Errorf("numSlots=%d: expected ErrInvalidSlotCount, got %v", n, err)
				}
			}
			if _, err := v.make(64); err != nil {
				t.Errorf("numSlots=64: unexpected error %v", err)
			}
		})
	}
}

func TestExhaustion(t *testing.T) {
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			bm, err := v.make(64)
			if err != nil {
				t.Fatal(err)
			}
			seen := make(map[uint32]bool)
			for i := 0; i < 64; i++ {
				slot, ok := bm.AllocateOne()
				if !ok {
					t.Fatalf("allocation %d failed before exhaustion", i)
				}
				if seen[slot] {
					t.Fatalf("slot %d handed out twice", slot)
				}
				seen[slot] = true
			}
			if _, ok := bm.AllocateOne(); ok {
				t.Error("65th allocation succeeded on a full bitmap")
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			bm, err := v.make(64)
			if err != nil {
				t.Fatal(err)
			}
			slot, ok := bm.AllocateOne()
			if !ok {
				t.Fatal("first allocation failed")
			}
			if !bm.FreeSlot(slot) {
				t.Fatalf("freeing allocated slot %d reported no-op", slot)
			}
			again, ok := bm.AllocateOne()
			if !ok {
				t.Fatal("reallocation after free failed")
			}
			if again != slot {
				t.Errorf("expected freed slot %d to be reused, got %d", slot, again)
			}
		})
	}
}

func TestDoubleFree(t *testing.T) {
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			bm, err := v.make(64)
			if err != nil {
				t.Fatal(err)
			}
			slot, ok := bm.AllocateOne()
			if !ok {
				t.Fatal("allocation failed")
			}
			if !bm.FreeSlot(slot) {
				t.Fatal("first free reported no-op")
			}
			if bm.FreeSlot(slot) {
				t.Error("double free not detected")
			}
			if bm.FreeSlot(bm.NumSlots()) {
				t.Error("out-of-range free not rejected")
			}
			if bm.FreeSlot(bm.NumSlots() + 100) {
				t.Error("far out-of-range free not rejected")
			}
		})
	}
}

func TestConcurrentUniqueness(t *testing.T) {
	const (
		numSlots   = 512
		goroutines = 8
	)

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			bm, err := v.make(numSlots)
			if err != nil {
				t.Fatal(err)
			}

			results := make(chan uint32, numSlots)
			var wg sync.WaitGroup
			wg.Add(goroutines)
			for g := 0; g < goroutines; g++ {
				go func() {
					defer wg.Done()
					for {
						slot, ok := bm.AllocateOne()
						if !ok {
							return
						}
						results <- slot
					}
				}()
			}
			wg.Wait()
			close(results)

			seen := make(map[uint32]bool)
			for slot := range results {
				if slot >= numSlots {
					t.Errorf("slot %d out of range", slot)
				}
				if seen[slot] {
					t.Errorf("slot %d allocated twice", slot)
				}
				seen[slot] = true
			}
			if len(seen) != numSlots {
				t.Errorf("expected %d distinct slots, got %d", numSlots, len(seen))
			}
		})
	}
}

func BenchmarkAllocateFree(b *testing.B) {
	const numSlots = 1 << 16

	for _, v := range variants {
		b.Run(v.name, func(b *testing.B) {
			bm, err := v.make(numSlots)
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			b.ReportAllocs()

			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					slot, ok := bm.AllocateOne()
					if ok {
						bm.FreeSlot(slot)
					}
				}
			})
		})
	}
}

func BenchmarkAllocateOnly(b *testing.B) {
	for _, v := range variants {
		b.Run(v.name, func(b *testing.B) {
			bm, err := v.make(1 << 20)
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, ok := bm.AllocateOne(); !ok {
					b.StopTimer()
					for s := uint32(0); s < bm.NumSlots(); s++ {
						bm.FreeSlot(s)
					}
					b.StartTimer()
				}
			}
		})
	}
}

func TestConcurrentChurn(t *testing.T) {
	const (
		numSlots   = 128
		goroutines = 8
		rounds     = 2000
	)

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			bm, err := v.make(numSlots)
			if err != nil {
				t.Fatal(err)
			}

			var wg sync.WaitGroup
			wg.Add(goroutines)
			for g := 0; g < goroutines; g++ {
				go func() {
					defer wg.Done()
					for i := 0; i < rounds; i++ {
						slot, ok := bm.AllocateOne()
						if !ok {
							continue
						}
						if !bm.FreeSlot(slot) {
							t.Errorf("free of freshly claimed slot %d reported no-op", slot)
							return
						}
					}
				}()
			}
			wg.Wait()

			// Everything was returned, so the bitmap must be fully free.
			free := 0
			for _, w := range bm.Words() {
				for mask := w; mask != 0; mask &= mask - 1 {
					free++
				}
			}
			if free != numSlots {
				t.Errorf("expected %d free slots after churn, got %d", numSlots, free)
			}
		})
	}
}
