// Package kmain hosts the kernel's Go entry point.
package kmain

import (
	"helios/device/acpi"
	"helios/kernel/hal"
)

// Kmain is the only Go symbol that is visible (exported) from the platform
// initialization code. It is invoked after the bootstrap assembly has set up
// the boot page tables, a minimal g0 struct and the frame allocator and
// page-table manager hooks.
//
// The bootstrap code passes the physical address of the ACPI root pointer if
// the boot loader supplied one; rsdpPtr is 0 otherwise and the fixed memory
// window is scanned instead.
//
//go:noinline
func Kmain(rsdpPtr uintptr) {
	acpi.SetRSDPAddr(rsdpPtr)
	hal.DetectHardware()
}
