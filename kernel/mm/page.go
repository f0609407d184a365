package mm

import (
	"math"

	"helios/kernel"
)

const (
	// PageShift is the log2 of the page size supported by the MMU.
	PageShift = 12

	// PageSize defines the page size in bytes supported by the MMU.
	PageSize = 1 << PageShift
)

// Frame describes a physical memory page index.
type Frame uintptr

// InvalidFrame is returned by page allocators when they fail to reserve the
// requested frame.
const InvalidFrame = Frame(math.MaxUint64)

// Valid returns true if this is a valid frame.
func (f Frame) Valid() bool {
	return f != InvalidFrame
}

// Address returns the physical memory address pointed to by this Frame.
func (f Frame) Address() uintptr {
	return uintptr(f << PageShift)
}

// FrameFromAddress returns the Frame that contains the given physical address.
// Addresses that are not page-aligned are rounded down to the containing
// frame.
func FrameFromAddress(physAddr uintptr) Frame {
	return Frame((physAddr & ^(uintptr(PageSize - 1))) >> PageShift)
}

// Page describes a virtual memory page index.
type Page uintptr

// Address returns the virtual memory address pointed to by this Page.
func (p Page) Address() uintptr {
	return uintptr(p << PageShift)
}

// PageFromAddress returns the Page that contains the given virtual address.
// Addresses that are not page-aligned are rounded down to the containing page.
func PageFromAddress(virtAddr uintptr) Page {
	return Page((virtAddr & ^(uintptr(PageSize - 1))) >> PageShift)
}

// FrameAllocatorFn is a function that can allocate count contiguous physical
// frames, returning the first frame of the allocated block.
type FrameAllocatorFn func(count int) (Frame, *kernel.Error)

var (
	errNoAllocator = &kernel.Error{Module: "mm", Message: "no frame allocator registered"}

	// frameAllocator points to the frame allocator function registered via
	// SetFrameAllocator.
	frameAllocator FrameAllocatorFn
)

// SetFrameAllocator registers a frame allocator function that will be used
// whenever physical frames need to be allocated.
func SetFrameAllocator(allocFn FrameAllocatorFn) { frameAllocator = allocFn }

// AllocFrames reserves count contiguous physical frames using the currently
// registered frame allocator.
func AllocFrames(count int) (Frame, *kernel.Error) {
	if frameAllocator == nil {
		return InvalidFrame, errNoAllocator
	}
	return frameAllocator(count)
}
