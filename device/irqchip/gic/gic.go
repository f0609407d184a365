// Package gic implements drivers for the ARM generic interrupt controller
// distributor and CPU interfaces (versions 1 through 3).
package gic

import (
	"sync/atomic"
	"unsafe"

	"helios/kernel"
)

// Distributor register offsets.
const (
	gicdCTLR      = 0x000
	gicdTYPER     = 0x004
	gicdISENABLER = 0x100
	gicdICENABLER = 0x180
)

// CPU interface register offsets (GICv1/v2 memory-mapped interface).
const (
	giccCTLR = 0x000
	giccPMR  = 0x004
	giccIAR  = 0x00c
	giccEOIR = 0x010
)

var errIRQOutOfRange = &kernel.Error{Module: "gic", Message: "interrupt number exceeds the distributor's line count"}

func mmioRead32(base uintptr, off uintptr) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(base + off)))
}

func mmioWrite32(base uintptr, off uintptr, val uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(base + off)), val)
}

// DistIf drives the GIC distributor, the block that routes shared interrupts
// to the CPU interfaces. The distributor layout is common to all GIC versions
// for the registers used here.
type DistIf struct {
	base     uintptr
	irqCount uint32
}

// Init enables interrupt forwarding on the distributor mapped at base and
// reads back the number of supported interrupt lines.
func (d *DistIf) Init(base uintptr) {
	d.base = base

	// ITLinesNumber encodes the line count as 32*(N+1)
	typer := mmioRead32(d.base, gicdTYPER)
	d.irqCount = 32 * ((typer & 0x1f) + 1)

	mmioWrite32(d.base, gicdCTLR, 1)
}

// IRQCount returns the number of interrupt lines the distributor supports.
func (d *DistIf) IRQCount() uint32 {
	return d.irqCount
}

// Enable unmasks the given interrupt line on the distributor.
func (d *DistIf) Enable(girq uint32) *kernel.Error {
	if girq >= d.irqCount {
		return errIRQOutOfRange
	}
	mmioWrite32(d.base, gicdISENABLER+uintptr(girq/32)*4, 1<<(girq%32))
	return nil
}

// Disable masks the given interrupt line on the distributor.
func (d *DistIf) Disable(girq uint32) *kernel.Error {
	if girq >= d.irqCount {
		return errIRQOutOfRange
	}
	mmioWrite32(d.base, gicdICENABLER+uintptr(girq/32)*4, 1<<(girq%32))
	return nil
}

// CpuIf drives a legacy (GICv1/v2) memory-mapped CPU interface paired with a
// distributor.
type CpuIf struct {
	dist *DistIf
	base uintptr
}

// Init enables interrupt delivery on the CPU interface mapped at base and
// opens the priority mask so interrupts of any priority are delivered.
func (c *CpuIf) Init(dist *DistIf, base uintptr) {
	c.dist = dist
	c.base = base

	mmioWrite32(c.base, giccPMR, 0xff)
	mmioWrite32(c.base, giccCTLR, 1)
}

// Name returns the controller's name.
func (c *CpuIf) Name() string { return "gicv2" }

// Enable unmasks the given interrupt line.
func (c *CpuIf) Enable(girq uint32) *kernel.Error { return c.dist.Enable(girq) }

// Disable masks the given interrupt line.
func (c *CpuIf) Disable(girq uint32) *kernel.Error { return c.dist.Disable(girq) }

// Ack acknowledges the highest-priority pending interrupt and returns its
// number.
func (c *CpuIf) Ack() uint32 {
	return mmioRead32(c.base, giccIAR) & 0xffffff
}

// EOI signals completion of the handler for the given interrupt.
func (c *CpuIf) EOI(girq uint32) {
	mmioWrite32(c.base, giccEOIR, girq)
}
