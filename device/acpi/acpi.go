// Package acpi implements the driver that discovers the firmware-supplied
// ACPI tables and hands them to their consumers: the serial console, the
// interrupt controller and CPU bring-up code and the platform timers.
package acpi

import (
	"io"

	"helios/device"
	"helios/device/acpi/madt"
	"helios/kernel"
	"helios/kernel/kfmt"
	"helios/kernel/mm/vmm"
)

// rsdpAddr holds the root pointer address handed over by the previous boot
// stage, or 0 when the boot loader supplied none and the fixed memory window
// must be scanned instead.
var rsdpAddr uintptr

// consumerMapRegionFn maps the device register windows referenced by the
// discovered tables.
var consumerMapRegionFn = vmm.MapRegion

// SetRSDPAddr records the root pointer address supplied by the boot loader.
// It must be called before hardware detection runs.
func SetRSDPAddr(physAddr uintptr) { rsdpAddr = physAddr }

type acpiDriver struct{}

// DriverName returns the name of this driver.
func (drv *acpiDriver) DriverName() string { return "acpi" }

// DriverVersion returns the version of this driver.
func (drv *acpiDriver) DriverVersion() (uint16, uint16, uint16) { return 6, 4, 0 }

// DriverInit locates the root pointer, builds the table registry and runs the
// table consumers. A missing or invalid root pointer is not fatal: each
// consumer reports its table as unavailable and the boot proceeds without
// firmware-table support.
func (drv *acpiDriver) DriverInit(w io.Writer) *kernel.Error {
	if rsdp := locateRSDP(rsdpAddr); rsdp != nil {
		if err := buildRegistry(rsdp, w); err != nil {
			kfmt.Fprintf(w, "table discovery failed: %s\n", err.Message)
		}
	} else {
		kfmt.Fprintf(w, "no root pointer found; firmware tables unavailable\n")
	}

	// The console consumer runs first so the remaining consumers log to the
	// firmware-nominated console.
	initConsole(w)
	initInterruptControllers(w)
	initHPET(w)
	initTimers(w)

	return nil
}

// initInterruptControllers parses the interrupt controller table and hands it
// to the platform bring-up strategy.
func initInterruptControllers(w io.Writer) {
	matches := FindTable("APIC")
	if len(matches) == 0 {
		kfmt.Fprintf(w, "interrupt controller table unavailable\n")
		return
	}

	m, err := madt.Parse(matches[0])
	if err != nil {
		kfmt.Fprintf(w, "malformed interrupt controller table: %s\n", err.Message)
		return
	}

	madt.BringUp(m, w)
}

func probeForACPI() device.Driver {
	return &acpiDriver{}
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order: device.DetectOrderACPI,
		Probe: probeForACPI,
	})
}
