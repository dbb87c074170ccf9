package region

import (
	"sync/atomic"
)

// Region is a contiguous range of anonymous, demand-paged memory obtained
// directly from the operating system. It owns the underlying byte slice and
// is responsible for returning it in one piece.
type Region struct {
	data     []byte
	size     int
	released atomic.Bool
	// release is the platform-specific function to return the memory.
	release func([]byte) error
}

// Reserve obtains size bytes of zero-initialized anonymous memory.
// The memory lives outside the Go heap and is invisible to the garbage
// collector until Release is called.
func Reserve(size int) (*Region, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	// Platform-specific reservation
	data, releaseFunc, err := osReserve(size)
	if err != nil {
		return nil, err
	}

	r := &Region{
		data:    data,
		size:    size,
		release: releaseFunc,
	}

	return r, nil
}

// Release returns the memory to the operating system. It is idempotent.
func (r *Region) Release() error {
	if r.released.Swap(true) {
		return nil // Already released
	}
	if r.release != nil && r.data != nil {
		return r.release(r.data)
	}
	return nil
}

// Bytes returns the underlying byte slice.
// Warning: The slice is valid only until Release() is called.
// Accessing the slice after Release() results in undefined behavior (likely a crash).
func (r *Region) Bytes() []byte {
	if r.released.Load() {
		return nil
	}
	return r.data
}

// Size returns the size of the region in bytes.
func (r *Region) Size() int {
	return r.size
}

// Advise provides hints to the kernel about how the memory will be accessed.
func (r *Region) Advise(pattern AccessPattern) error {
	if r.released.Load() {
		return ErrReleased
	}
	if r.data == nil {
		return nil
	}
	return osAdvise(r.data, pattern)
}
