package gic

import "helios/kernel"

// SysRegOps abstracts the system-register accesses used by the GICv3 CPU
// interface. Unlike earlier versions, the v3 CPU interface is not memory
// mapped; it is programmed through dedicated system registers. The default
// implementation is a no-op so the driver can be exercised on hosts without
// the registers.
type SysRegOps struct {
	EnableGroup1 func()
	SetPMR       func(mask uint8)
	ReadIAR      func() uint32
	WriteEOIR    func(girq uint32)
	EnableSRE    func()
}

func nopEnable()          {}
func nopSetPMR(uint8)     {}
func nopReadIAR() uint32  { return 1023 }
func nopWriteEOIR(uint32) {}

var sysRegs = SysRegOps{
	EnableGroup1: nopEnable,
	SetPMR:       nopSetPMR,
	ReadIAR:      nopReadIAR,
	WriteEOIR:    nopWriteEOIR,
	EnableSRE:    nopEnable,
}

// InstallSysRegOps overrides the system-register accessors used by the GICv3
// CPU interface. Nil fields keep their previous implementation.
func InstallSysRegOps(ops SysRegOps) {
	if ops.EnableGroup1 != nil {
		sysRegs.EnableGroup1 = ops.EnableGroup1
	}
	if ops.SetPMR != nil {
		sysRegs.SetPMR = ops.SetPMR
	}
	if ops.ReadIAR != nil {
		sysRegs.ReadIAR = ops.ReadIAR
	}
	if ops.WriteEOIR != nil {
		sysRegs.WriteEOIR = ops.WriteEOIR
	}
	if ops.EnableSRE != nil {
		sysRegs.EnableSRE = ops.EnableSRE
	}
}

// V3CpuIf drives a GICv3 CPU interface through system registers. It requires
// no memory mapping of its own and pairs with a distributor for masking.
type V3CpuIf struct {
	dist *DistIf
}

// Init enables the system-register interface and opens the priority mask so
// interrupts of any priority are delivered.
func (c *V3CpuIf) Init(dist *DistIf) {
	c.dist = dist

	sysRegs.EnableSRE()
	sysRegs.SetPMR(0xff)
	sysRegs.EnableGroup1()
}

// Name returns the controller's name.
func (c *V3CpuIf) Name() string { return "gicv3" }

// Enable unmasks the given interrupt line.
func (c *V3CpuIf) Enable(girq uint32) *kernel.Error { return c.dist.Enable(girq) }

// Disable masks the given interrupt line.
func (c *V3CpuIf) Disable(girq uint32) *kernel.Error { return c.dist.Disable(girq) }

// Ack acknowledges the highest-priority pending interrupt and returns its
// number.
func (c *V3CpuIf) Ack() uint32 {
	return sysRegs.ReadIAR() & 0xffffff
}

// EOI signals completion of the handler for the given interrupt.
func (c *V3CpuIf) EOI(girq uint32) {
	sysRegs.WriteEOIR(girq)
}
