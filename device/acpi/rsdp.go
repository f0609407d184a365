package acpi

import (
	"helios/device/acpi/table"
	"helios/kernel"
	"helios/kernel/mm"
	"helios/kernel/mm/vmm"
	"unsafe"
)

var (
	// The root pointer must be located in the physical memory window
	// 0xe0000 to 0xfffff on a 16-byte boundary.
	rsdpWindowLow uintptr = 0xe0000
	rsdpWindowHi  uintptr = 0xfffff
	rsdpAlignment uintptr = 16

	mapFn   = vmm.Map
	unmapFn = vmm.Unmap
)

// locateRSDP returns a copy of the platform's root pointer structure or nil if
// none could be found. If the previous boot stage supplied the structure's
// physical address, only its checksum is validated and no memory scan takes
// place. Otherwise the fixed scan window is mapped read-only and searched at
// 16-byte steps for a candidate with a valid signature and checksum.
//
// A nil return is not fatal to the caller; boot continues without
// firmware-table support.
func locateRSDP(suppliedAddr uintptr) *table.RSDP {
	if suppliedAddr != 0 {
		return validateSuppliedRSDP(suppliedAddr)
	}
	return scanForRSDP()
}

// validateSuppliedRSDP maps the page(s) containing a firmware-supplied root
// pointer and validates its checksum. The supplied address is never re-scanned
// or second-guessed; a failing checksum yields nil.
func validateSuppliedRSDP(physAddr uintptr) *table.RSDP {
	if err := mapRange(physAddr, table.RSDPSize, vmm.FlagPresent, nil); err != nil {
		return nil
	}

	candidate := (*table.RSDP)(unsafe.Pointer(physAddr))
	if !candidate.Valid() {
		return nil
	}

	found := *candidate
	return &found
}

// scanForRSDP searches the fixed physical window for the root pointer
// signature. The window mapping is temporary and gets torn down before the
// function returns; the returned structure is a copy.
func scanForRSDP() *table.RSDP {
	var found *table.RSDP

	// Cleanup the temporary identity mappings when the function returns
	defer func() {
		for curPage := mm.PageFromAddress(rsdpWindowLow); curPage <= mm.PageFromAddress(rsdpWindowHi); curPage++ {
			unmapFn(curPage)
		}
	}()

	for curPage := mm.PageFromAddress(rsdpWindowLow); curPage <= mm.PageFromAddress(rsdpWindowHi); curPage++ {
		if err := mapFn(curPage, mm.Frame(curPage), vmm.FlagPresent); err != nil {
			return nil
		}
	}

	for curPtr := rsdpWindowLow; curPtr+table.RSDPSize <= rsdpWindowHi+1; curPtr += rsdpAlignment {
		candidate := (*table.RSDP)(unsafe.Pointer(curPtr))
		if !candidate.Valid() {
			continue
		}

		rsdp := *candidate
		found = &rsdp
		break
	}

	return found
}

// mapRange identity-maps the physical range [physAddr, physAddr+length),
// rounding to page granularity. Pages already present in the seen set are
// skipped so tables sharing a page are never double-mapped; newly mapped pages
// are recorded in it.
func mapRange(physAddr, length uintptr, flags vmm.PageTableEntryFlag, seen map[mm.Page]bool) *kernel.Error {
	if length == 0 {
		length = 1
	}

	firstPage := mm.PageFromAddress(physAddr)
	lastPage := mm.PageFromAddress(physAddr + length - 1)
	for page := firstPage; page <= lastPage; page++ {
		if seen != nil && seen[page] {
			continue
		}
		if err := mapFn(page, mm.Frame(page), flags); err != nil {
			return err
		}
		if seen != nil {
			seen[page] = true
		}
	}

	return nil
}
