package acpi

import (
	"io"

	"helios/device/acpi/table"
	"helios/kernel/kfmt"
	"helios/kernel/mm"
	"helios/kernel/mm/vmm"
)

// hpetWindowSize covers the high-precision event timer register block.
const hpetWindowSize = 0x400

// hpetDevice describes the mapped high-precision event timer block. At most
// one block is adopted; systems with several use the first one listed.
type hpetDevice struct {
	desc table.HPET
	base uintptr
}

var activeHPET *hpetDevice

// initHPET maps the high-precision event timer block described by the
// firmware, if any.
func initHPET(w io.Writer) {
	matches := FindTable("HPET")
	if len(matches) == 0 {
		kfmt.Fprintf(w, "high-precision event timer unavailable\n")
		return
	}

	desc := table.DecodeHPET(matches[0])
	if desc == nil {
		kfmt.Fprintf(w, "malformed high-precision event timer table\n")
		return
	}

	if desc.BaseAddress.Space != table.AddressSpaceSysMemory {
		kfmt.Fprintf(w, "unsupported timer register space %d\n", desc.BaseAddress.Space)
		return
	}

	if activeHPET != nil {
		return
	}

	base := uintptr(desc.BaseAddress.Address)
	page, err := consumerMapRegionFn(mm.FrameFromAddress(base), hpetWindowSize, vmm.FlagPresent|vmm.FlagRW|vmm.FlagNoCache)
	if err != nil {
		kfmt.Fprintf(w, "unable to map timer block at 0x%x: %s\n", base, err.Message)
		return
	}

	activeHPET = &hpetDevice{
		desc: *desc,
		base: page.Address() + vmm.PageOffset(base),
	}
	kfmt.Fprintf(w, "hpet %d at 0x%x (vendor 0x%x, min tick %d)\n",
		desc.HPETNumber, base, desc.PCIVendorID, desc.MinPeriodicClkTick)
}
