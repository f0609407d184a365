package madt

import (
	"io"

	"helios/device/irqchip"
	"helios/device/irqchip/gic"
	"helios/kernel/kfmt"
	"helios/kernel/mm"
	"helios/kernel/mm/vmm"
)

// Register window sizes for the memory-mapped GIC blocks.
const (
	gicdWindowSize = 0x10000
	giccWindowSize = 0x2000
)

var gicMapRegionFn = vmm.MapRegion

// gicBringUp initializes the generic interrupt controller described by the
// table. Secondary CPUs are not started through inter-processor interrupts on
// this path; they are released by firmware and announce themselves through
// the parking protocol.
type gicBringUp struct {
	dist gic.DistIf
}

func (s *gicBringUp) Name() string { return "gic" }

func (s *gicBringUp) BringUp(m *MADT, w io.Writer) {
	var (
		cpuIfaces []GICC
		dist      *GICD
	)

	for it := m.Iter(); ; {
		entry, ok := it.Next()
		if !ok {
			break
		}

		switch rec := entry.(type) {
		case GICC:
			cpuIfaces = append(cpuIfaces, rec)
		case GICD:
			if dist != nil {
				kfmt.Fprintf(w, "ignoring extra distributor record (id %d)\n", rec.GICID)
				continue
			}
			gicd := rec
			dist = &gicd
		}
	}

	if dist == nil {
		kfmt.Fprintf(w, "no distributor record found; interrupt controller left uninitialized\n")
		return
	}

	distPage, err := gicMapRegionFn(mm.FrameFromAddress(dist.BaseAddr), gicdWindowSize, vmm.FlagPresent|vmm.FlagRW|vmm.FlagNoCache)
	if err != nil {
		kfmt.Fprintf(w, "unable to map distributor at 0x%x: %s\n", dist.BaseAddr, err.Message)
		return
	}

	s.dist.Init(distPage.Address() + vmm.PageOffset(dist.BaseAddr))
	kfmt.Fprintf(w, "gicv%d distributor at 0x%x: %d interrupt lines\n",
		dist.Version, dist.BaseAddr, s.dist.IRQCount())

	switch dist.Version {
	case 1, 2:
		s.bringUpLegacyCpuIf(cpuIfaces, w)
	case 3:
		cpu := &gic.V3CpuIf{}
		cpu.Init(&s.dist)
		irqchip.Register(cpu)
	default:
		kfmt.Fprintf(w, "unsupported distributor version %d; no CPU interface registered\n", dist.Version)
	}

	for _, iface := range cpuIfaces {
		state := "enabled"
		if iface.Flags&FlagEnabled == 0 {
			state = "disabled"
		}
		kfmt.Fprintf(w, "cpu uid %d (mpidr 0x%x): %s\n", iface.ACPIProcessorUID, iface.MPIDR, state)
	}
}

// bringUpLegacyCpuIf maps and enables the memory-mapped CPU interface of a
// GICv1/v2 system. The boot CPU's interface window is taken from the first
// CPU record; all CPU interfaces of a legacy GIC alias the same physical
// window, so the remaining records need no mapping of their own.
func (s *gicBringUp) bringUpLegacyCpuIf(cpuIfaces []GICC, w io.Writer) {
	if len(cpuIfaces) == 0 {
		kfmt.Fprintf(w, "no CPU interface records found; interrupt delivery left disabled\n")
		return
	}

	base := cpuIfaces[0].BaseAddr
	cpuPage, err := gicMapRegionFn(mm.FrameFromAddress(base), giccWindowSize, vmm.FlagPresent|vmm.FlagRW|vmm.FlagNoCache)
	if err != nil {
		kfmt.Fprintf(w, "unable to map CPU interface at 0x%x: %s\n", base, err.Message)
		return
	}

	cpu := &gic.CpuIf{}
	cpu.Init(&s.dist, cpuPage.Address()+vmm.PageOffset(base))
	irqchip.Register(cpu)
}
