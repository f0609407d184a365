package acpi

import (
	"io"
	"sync/atomic"
	"unsafe"

	"helios/device/acpi/table"
	"helios/kernel"
	"helios/kernel/kfmt"
	"helios/kernel/mm"
	"helios/kernel/mm/vmm"
)

// Signature is the key under which mapped tables are cataloged. Multiple
// tables may share a signature name but differ in their OEM identifiers;
// duplicate tables are preserved, not deduplicated.
type Signature struct {
	Name       string
	OEMID      [6]byte
	OEMTableID [8]byte
}

type registryEntry struct {
	sig    Signature
	header *table.SDTHeader
}

// registry catalogs every firmware table that was successfully mapped during
// boot. It is built exactly once and is effectively append-only; once
// construction completes it is only ever read.
type registry struct {
	entries     []registryEntry
	mappedPages map[mm.Page]bool
}

var (
	errRegistryBuilt = &kernel.Error{Module: "acpi", Message: "table registry has already been built"}

	// registryState guards the one-time registry construction: 0 when the
	// registry has not been built, 1 while a build is in flight or done.
	registryState uint32

	// activeRegistry is published by buildRegistry after construction
	// completes. While nil, lookups return empty results.
	activeRegistry *registry
)

// FindTable returns the mapped tables carrying the given signature name. It
// returns zero, one or many matches and is safe to call before the registry
// has been built, in which case the result is empty.
func FindTable(name string) []*table.SDTHeader {
	reg := activeRegistry
	if reg == nil {
		return nil
	}

	var matches []*table.SDTHeader
	for _, entry := range reg.entries {
		if entry.sig.Name == name {
			matches = append(matches, entry.header)
		}
	}
	return matches
}

// buildRegistry maps and catalogs every table listed by the root descriptor.
// Only one build may ever take place; concurrent or repeated builders are
// rejected. Individual tables that cannot be mapped are logged and skipped
// without aborting the rest of the build.
func buildRegistry(rsdp *table.RSDP, w io.Writer) *kernel.Error {
	if !atomic.CompareAndSwapUint32(&registryState, 0, 1) {
		return errRegistryBuilt
	}

	reg := &registry{mappedPages: make(map[mm.Page]bool)}

	rootHeader, err := reg.mapTable(rsdp.SDTAddr())
	if err != nil {
		kfmt.Fprintf(w, "unable to map root table at 0x%x: %s\n", rsdp.SDTAddr(), err.Message)
		return err
	}

	list := rootList{header: rootHeader, wide: rsdp.Revision >= 2}
	kfmt.Fprintf(w, "%s at 0x%x: %d tables\n",
		rootHeader.Signature[:], rsdp.SDTAddr(), list.entryCount())

	for it := list.iter(); ; {
		sdtAddr, ok := it.next()
		if !ok {
			break
		}

		header, err := reg.mapTable(sdtAddr)
		if err != nil {
			kfmt.Fprintf(w, "unable to map table at 0x%x: %s [skipping]\n", sdtAddr, err.Message)
			continue
		}

		reg.insert(header)
		kfmt.Fprintf(w, "%s at 0x%16x %6x (%6s %8s)\n",
			header.Signature[:],
			sdtAddr,
			header.Length,
			header.OEMID[:],
			header.OEMTableID[:],
		)
	}

	activeRegistry = reg
	return nil
}

// insert appends a mapped table to the registry keyed by its signature tuple.
func (r *registry) insert(header *table.SDTHeader) {
	r.entries = append(r.entries, registryEntry{
		sig: Signature{
			Name:       string(header.Signature[:]),
			OEMID:      header.OEMID,
			OEMTableID: header.OEMTableID,
		},
		header: header,
	})
}

// mapTable maps the table starting at the given physical address and returns
// its header. The fixed-size header is mapped first so the declared length can
// be read; the mapping is then expanded to cover the remainder of the table.
// Both operations round to page granularity and reuse pages that a previous
// table mapping already established.
func (r *registry) mapTable(tableAddr uintptr) (*table.SDTHeader, *kernel.Error) {
	if err := mapRange(tableAddr, table.SDTHeaderSize, vmm.FlagPresent, r.mappedPages); err != nil {
		return nil, err
	}

	header := (*table.SDTHeader)(unsafe.Pointer(tableAddr))
	if err := mapRange(tableAddr, uintptr(header.Length), vmm.FlagPresent, r.mappedPages); err != nil {
		return nil, err
	}

	return header, nil
}
