package acpi

import (
	"io"

	"helios/device/acpi/table"
	"helios/device/uart"
	"helios/kernel/kfmt"
	"helios/kernel/mm"
	"helios/kernel/mm/vmm"
)

// Console redirection interface types.
const ifaceTypePL011 = 3

// uartWindowSize covers the PL011 register block.
const uartWindowSize = 0x1000

// initConsole adopts the serial console nominated by the firmware's console
// redirection table. Any failure leaves the current console in place.
func initConsole(w io.Writer) {
	matches := FindTable("SPCR")
	if len(matches) == 0 {
		kfmt.Fprintf(w, "console redirection table unavailable\n")
		return
	}

	spcr := table.DecodeSPCR(matches[0])
	if spcr == nil {
		kfmt.Fprintf(w, "malformed console redirection table\n")
		return
	}

	// Firmware on headless systems publishes the table with a zero base to
	// indicate that no console is wired up.
	if spcr.BaseAddress.Address == 0 {
		return
	}

	if spcr.Revision < 2 || spcr.InterfaceType != ifaceTypePL011 {
		kfmt.Fprintf(w, "unsupported console type %d (revision %d)\n", spcr.InterfaceType, spcr.Revision)
		return
	}

	gas := spcr.BaseAddress
	if gas.Space != table.AddressSpaceSysMemory || gas.BitWidth != 32 || gas.BitOffset != 0 || gas.AccessSize != 3 {
		kfmt.Fprintf(w, "unsupported console register layout (space %d, width %d)\n", gas.Space, gas.BitWidth)
		return
	}

	base := uintptr(gas.Address)
	page, err := consumerMapRegionFn(mm.FrameFromAddress(base), uartWindowSize, vmm.FlagPresent|vmm.FlagRW|vmm.FlagNoCache)
	if err != nil {
		kfmt.Fprintf(w, "unable to map console at 0x%x: %s\n", base, err.Message)
		return
	}

	console := &uart.PL011{}
	console.Init(page.Address() + vmm.PageOffset(base))
	uart.ActiveConsole = console
	kfmt.SetOutputSink(console)

	kfmt.Fprintf(w, "console: %s at 0x%x (irq %d)\n", console.DriverName(), base, spcr.GSIV)
}
