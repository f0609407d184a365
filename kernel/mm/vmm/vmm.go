// Package vmm exposes the physical-to-virtual mapping primitive consumed by
// the boot code. The actual page-table manager is registered by the platform
// bootstrap code via SetMapper; this package wraps it with region-granular
// helpers and the page-table lock.
package vmm

import (
	"helios/kernel"
	"helios/kernel/mm"
	"helios/kernel/sync"
)

// PageTableEntryFlag describes the attributes of a page mapping.
type PageTableEntryFlag uintptr

// The list of page mapping attributes.
const (
	// FlagPresent marks the mapping as valid. Mappings that specify no
	// other flag are read-only.
	FlagPresent PageTableEntryFlag = 1 << iota

	// FlagRW makes the mapping writable.
	FlagRW

	// FlagExec makes the mapping executable.
	FlagExec

	// FlagNoCache disables caching for the mapping; required for
	// memory-mapped device registers.
	FlagNoCache
)

// Mapper is the interface implemented by the platform's page-table manager.
type Mapper interface {
	// Map establishes a mapping between a virtual page and a physical
	// frame.
	Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag) *kernel.Error

	// Unmap removes the mapping for a virtual page.
	Unmap(page mm.Page) *kernel.Error

	// ReserveRegion reserves a page-aligned region of the given size in
	// the kernel virtual address space and returns its first page.
	ReserveRegion(size uintptr) (mm.Page, *kernel.Error)
}

var (
	errNoMapper = &kernel.Error{Module: "vmm", Message: "no page-table manager registered"}

	// ErrLockReentry is the panic value raised when a page-table operation
	// is attempted while the page-table lock is already held. Mapping
	// operations must never nest; this is a programming error, not a
	// recoverable race.
	ErrLockReentry = &kernel.Error{Module: "vmm", Message: "page-table lock re-entered"}

	// pageTableLock serializes all access to the page-table manager.
	pageTableLock sync.Spinlock

	activeMapper Mapper
)

// SetMapper registers the platform page-table manager.
func SetMapper(m Mapper) { activeMapper = m }

func lock() {
	if !pageTableLock.TryToAcquire() {
		panic(ErrLockReentry)
	}
}

// Map establishes a mapping between a virtual page and a physical memory
// frame.
func Map(page mm.Page, frame mm.Frame, flags PageTableEntryFlag) *kernel.Error {
	lock()
	defer pageTableLock.Release()
	if activeMapper == nil {
		return errNoMapper
	}
	return activeMapper.Map(page, frame, flags)
}

// Unmap removes a mapping previously installed via Map, MapRegion or
// IdentityMapRegion.
func Unmap(page mm.Page) *kernel.Error {
	lock()
	defer pageTableLock.Release()
	if activeMapper == nil {
		return errNoMapper
	}
	return activeMapper.Unmap(page)
}

// MapRegion establishes a mapping to the physical memory region which starts
// at the given frame and spans size bytes. The size argument is always rounded
// up to the nearest page boundary. MapRegion reserves the next available
// region in the kernel virtual address space and returns the Page that
// corresponds to the region start.
func MapRegion(frame mm.Frame, size uintptr, flags PageTableEntryFlag) (mm.Page, *kernel.Error) {
	lock()
	defer pageTableLock.Release()
	if activeMapper == nil {
		return 0, errNoMapper
	}

	size = roundUpPages(size)
	startPage, err := activeMapper.ReserveRegion(size)
	if err != nil {
		return 0, err
	}

	pageCount := size >> mm.PageShift
	for page := startPage; pageCount > 0; pageCount, page, frame = pageCount-1, page+1, frame+1 {
		if err := activeMapper.Map(page, frame, flags); err != nil {
			return 0, err
		}
	}

	return startPage, nil
}

// IdentityMapRegion establishes an identity mapping to the physical memory
// region which starts at the given frame and spans size bytes. The size
// argument is always rounded up to the nearest page boundary.
// IdentityMapRegion returns the Page that corresponds to the region start.
func IdentityMapRegion(startFrame mm.Frame, size uintptr, flags PageTableEntryFlag) (mm.Page, *kernel.Error) {
	lock()
	defer pageTableLock.Release()
	if activeMapper == nil {
		return 0, errNoMapper
	}

	startPage := mm.Page(startFrame)
	pageCount := mm.Page(roundUpPages(size) >> mm.PageShift)

	for curPage := startPage; curPage < startPage+pageCount; curPage++ {
		if err := activeMapper.Map(curPage, mm.Frame(curPage), flags); err != nil {
			return 0, err
		}
	}

	return startPage, nil
}

// PageOffset returns the offset within the page specified by a virtual
// address.
func PageOffset(virtAddr uintptr) uintptr {
	return virtAddr & (mm.PageSize - 1)
}

func roundUpPages(size uintptr) uintptr {
	return (size + (mm.PageSize - 1)) & ^uintptr(mm.PageSize-1)
}
