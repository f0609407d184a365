// Package cpu provides access to the small set of architecture-specific
// processor primitives required during early boot. The concrete
// implementations are installed by the platform bootstrap code via Install
// before any device driver runs; the defaults are safe no-ops which also
// allows the boot code paths to be exercised by unit tests.
package cpu

// Primitives groups the processor operations that the boot code consumes.
type Primitives struct {
	// Yield emits a processor hint (e.g. PAUSE on x86, YIELD on arm64)
	// inside busy-wait loops.
	Yield func()

	// FlushTLB invalidates all address-translation caches on the calling
	// processor.
	FlushTLB func()

	// ActivePageTable returns the physical address of the page table that
	// is currently active on the calling processor.
	ActivePageTable func() uintptr
}

var installed = Primitives{
	Yield:           func() {},
	FlushTLB:        func() {},
	ActivePageTable: func() uintptr { return 0 },
}

// Install registers the architecture implementations for the processor
// primitives. Nil fields leave the previously installed implementation in
// place.
func Install(p Primitives) {
	if p.Yield != nil {
		installed.Yield = p.Yield
	}
	if p.FlushTLB != nil {
		installed.FlushTLB = p.FlushTLB
	}
	if p.ActivePageTable != nil {
		installed.ActivePageTable = p.ActivePageTable
	}
}

// Yield emits a processor yield hint.
func Yield() { installed.Yield() }

// FlushTLB invalidates all address-translation caches on this processor.
func FlushTLB() { installed.FlushTLB() }

// ActivePageTable returns the physical address of the active page table.
func ActivePageTable() uintptr { return installed.ActivePageTable() }
