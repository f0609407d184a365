// Package apic implements a driver for the local APIC, the per-CPU interrupt
// controller used on x86 systems. During boot the driver's main job is to
// deliver the INIT and STARTUP inter-processor interrupts that pull secondary
// CPUs out of their firmware parking loop.
package apic

import (
	"sync/atomic"
	"unsafe"

	"helios/kernel"
	"helios/kernel/mm"
	"helios/kernel/mm/vmm"
)

// Local APIC register offsets.
const (
	regID     = 0x020
	regICRLow = 0x300
	regICRHi  = 0x310
)

// ICR delivery constants.
const (
	icrDeliveryINIT    = 0x4500
	icrDeliveryStartup = 0x4600
	icrDeliveryPending = 1 << 12
)

// msrICR is the combined 64-bit interrupt command register used in x2 mode.
const msrICR = 0x830

// lapicWindowSize covers the local APIC register block.
const lapicWindowSize = 0x400

var mapRegionFn = vmm.MapRegion

// msrWriteFn writes a model-specific register. The real implementation is
// installed by the platform bootstrap code; it is only exercised in x2 mode.
var msrWriteFn = func(msr uint32, val uint64) {}

// InstallMSRWriter registers the model-specific register write primitive used
// for x2-mode IPI delivery.
func InstallMSRWriter(fn func(msr uint32, val uint64)) {
	if fn != nil {
		msrWriteFn = fn
	}
}

// LocalAPIC drives the boot CPU's local APIC through its memory-mapped
// register window or, in x2 mode, through model-specific registers.
type LocalAPIC struct {
	base uintptr
	x2   bool
}

// EnableX2 switches IPI delivery to x2 mode, where the interrupt command
// register is a single model-specific register and the destination occupies
// its upper 32 bits.
func (l *LocalAPIC) EnableX2() { l.x2 = true }

// Init maps the local APIC register window located at the given physical
// address. The window is mapped uncached as it is a device register block.
func (l *LocalAPIC) Init(physAddr uintptr) *kernel.Error {
	page, err := mapRegionFn(mm.FrameFromAddress(physAddr), lapicWindowSize, vmm.FlagPresent|vmm.FlagRW|vmm.FlagNoCache)
	if err != nil {
		return err
	}

	l.base = page.Address() + vmm.PageOffset(physAddr)
	return nil
}

// ID returns the local APIC ID of the CPU executing this code.
func (l *LocalAPIC) ID() uint8 {
	return uint8(l.read(regID) >> 24)
}

func (l *LocalAPIC) read(reg uintptr) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(l.base + reg)))
}

func (l *LocalAPIC) write(reg uintptr, val uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(l.base + reg)), val)
}

// sendIPI delivers an inter-processor interrupt to the CPU with the given
// APIC ID and waits for the delivery-status bit to clear. Writing the low ICR
// half triggers the send, so the destination must be set up first. In x2 mode
// the command is a single register write and the delivery-status bit does not
// exist.
func (l *LocalAPIC) sendIPI(destID uint8, low uint32) {
	if l.x2 {
		msrWriteFn(msrICR, uint64(destID)<<32|uint64(low))
		return
	}

	l.write(regICRHi, uint32(destID)<<24)
	l.write(regICRLow, low)

	for l.read(regICRLow)&icrDeliveryPending != 0 {
	}
}

// SignalInit delivers an INIT IPI that resets the target CPU into its
// wait-for-startup state.
func (l *LocalAPIC) SignalInit(destID uint8) {
	l.sendIPI(destID, icrDeliveryINIT)
}

// SignalStartup delivers a STARTUP IPI that starts the target CPU executing
// in real mode at physical address vector<<12.
func (l *LocalAPIC) SignalStartup(destID uint8, vector uint8) {
	l.sendIPI(destID, icrDeliveryStartup|uint32(vector))
}
