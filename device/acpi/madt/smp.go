package madt

import (
	"io"
	"sync/atomic"
	"unsafe"

	"helios/device/apic"
	"helios/kernel"
	"helios/kernel/cpu"
	"helios/kernel/kfmt"
	"helios/kernel/mm"
	"helios/kernel/mm/vmm"
)

// The trampoline is the real-mode stub each secondary CPU executes after its
// STARTUP IPI. It must live below 1M on a page boundary; its page number
// doubles as the STARTUP vector.
var trampolineAddr uintptr = 0x8000

// Control block field offsets relative to trampolineAddr+8. The trampoline
// stub reads these to locate its page table, stack and 64-bit entry point;
// the last field is written back by the CPU once it is fully up.
const (
	controlBlockOff  = 8
	fieldCPUID       = 8
	fieldPageTable   = 16
	fieldStackStart  = 24
	fieldStackEnd    = 32
	fieldEntry       = 40
	controlBlockSize = 48
)

// apStackPages is the number of contiguous frames allocated for each
// secondary CPU's boot stack.
const apStackPages = 16

var (
	smpMapFn   = vmm.Map
	smpUnmapFn = vmm.Unmap
	allocFn    = mm.AllocFrames

	// trampolineImage holds the real-mode stub copied below 1M before the
	// first STARTUP IPI. The platform bootstrap code installs it.
	trampolineImage []byte

	// apEntryAddr is the 64-bit entry point secondary CPUs jump to once the
	// trampoline has switched them to long mode.
	apEntryAddr uintptr

	// onlineCount tracks the CPUs that have announced themselves via
	// SignalAPReady. The boot CPU counts as one.
	onlineCount uint64 = 1
)

// SetTrampolineImage installs the real-mode stub that secondary CPUs execute
// after their STARTUP IPI.
func SetTrampolineImage(image []byte) { trampolineImage = image }

// SetAPEntryPoint installs the address secondary CPUs jump to once the
// trampoline has brought them into 64-bit mode.
func SetAPEntryPoint(entryAddr uintptr) { apEntryAddr = entryAddr }

// SignalAPReady is invoked by each secondary CPU once it is fully up. It
// releases the boot CPU, which blocks until the CPU it last started checks in.
func SignalAPReady() {
	readyPtr := (*uint64)(unsafe.Pointer(trampolineAddr + controlBlockOff))
	atomic.AddUint64(&onlineCount, 1)
	atomic.StoreUint64(readyPtr, 1)
}

// OnlineCPUCount returns the number of CPUs that have completed bring-up,
// including the boot CPU.
func OnlineCPUCount() uint64 { return atomic.LoadUint64(&onlineCount) }

// ipiSender abstracts the inter-processor interrupt primitives the bring-up
// sequence needs from the local APIC.
type ipiSender interface {
	ID() uint8
	SignalInit(destID uint8)
	SignalStartup(destID uint8, vector uint8)
}

// apicBringUp starts the secondary CPUs enumerated by the table using the
// INIT/STARTUP inter-processor interrupt sequence.
type apicBringUp struct {
	lapic  apic.LocalAPIC
	sender ipiSender
}

func (s *apicBringUp) Name() string { return "apic" }

func (s *apicBringUp) BringUp(m *MADT, w io.Writer) {
	if m.Flags&FlagPCATCompat != 0 {
		kfmt.Fprintf(w, "platform carries legacy 8259 controllers; leaving them masked\n")
	}

	if s.sender == nil {
		if err := s.lapic.Init(m.LocalControllerAddr); err != nil {
			kfmt.Fprintf(w, "unable to map local APIC at 0x%x: %s\n", m.LocalControllerAddr, err.Message)
			return
		}
		s.sender = &s.lapic
	}

	if len(trampolineImage) == 0 {
		kfmt.Fprintf(w, "no trampoline installed; secondary CPUs left parked\n")
		return
	}

	if err := s.prepareTrampoline(); err != nil {
		kfmt.Fprintf(w, "unable to prepare trampoline at 0x%x: %s\n", trampolineAddr, err.Message)
		return
	}
	defer smpUnmapFn(mm.PageFromAddress(trampolineAddr))

	bootID := s.sender.ID()
	for it := m.Iter(); ; {
		entry, ok := it.Next()
		if !ok {
			break
		}

		rec, isCPU := entry.(LocalAPIC)
		if !isCPU || rec.APICID == bootID {
			continue
		}

		if rec.Flags&FlagEnabled == 0 {
			kfmt.Fprintf(w, "cpu %d (apic id %d): disabled by firmware; skipping\n", rec.ProcessorID, rec.APICID)
			continue
		}

		s.startCPU(rec, w)
	}

	kfmt.Fprintf(w, "%d cpu(s) online\n", OnlineCPUCount())
}

// prepareTrampoline identity-maps the trampoline page writable and executable
// and copies the real-mode stub into it.
func (s *apicBringUp) prepareTrampoline() *kernel.Error {
	page := mm.PageFromAddress(trampolineAddr)
	if err := smpMapFn(page, mm.Frame(page), vmm.FlagPresent|vmm.FlagRW|vmm.FlagExec); err != nil {
		return err
	}

	kernel.Memcopy(
		uintptr(unsafe.Pointer(&trampolineImage[0])),
		trampolineAddr,
		uintptr(len(trampolineImage)),
	)
	return nil
}

// startCPU walks one secondary CPU through the INIT/STARTUP sequence and
// blocks until it announces itself. A CPU whose stack cannot be allocated is
// logged and skipped; the remaining CPUs are still started.
func (s *apicBringUp) startCPU(rec LocalAPIC, w io.Writer) {
	stackFrame, err := allocFn(apStackPages)
	if err != nil {
		kfmt.Fprintf(w, "cpu %d (apic id %d): unable to allocate boot stack: %s\n", rec.ProcessorID, rec.APICID, err.Message)
		return
	}

	block := trampolineAddr + controlBlockOff
	stackStart := stackFrame.Address()

	atomic.StoreUint64((*uint64)(unsafe.Pointer(block)), 0)
	atomic.StoreUint64((*uint64)(unsafe.Pointer(block+fieldCPUID)), uint64(rec.APICID))
	atomic.StoreUint64((*uint64)(unsafe.Pointer(block+fieldPageTable)), uint64(cpu.ActivePageTable()))
	atomic.StoreUint64((*uint64)(unsafe.Pointer(block+fieldStackStart)), uint64(stackStart))
	atomic.StoreUint64((*uint64)(unsafe.Pointer(block+fieldStackEnd)), uint64(stackStart+apStackPages*mm.PageSize))
	atomic.StoreUint64((*uint64)(unsafe.Pointer(block+fieldEntry)), uint64(apEntryAddr))

	s.sender.SignalInit(rec.APICID)
	s.sender.SignalStartup(rec.APICID, uint8(trampolineAddr>>mm.PageShift))

	// The CPU flips the ready word once it reaches SignalAPReady. There is
	// no timeout; a CPU that never checks in indicates broken firmware data
	// and hanging here makes the fault visible instead of masking it.
	readyPtr := (*uint64)(unsafe.Pointer(block))
	for atomic.LoadUint64(readyPtr) == 0 {
		cpu.Yield()
	}

	// The new CPU shares the boot page tables; make sure the mappings it
	// established during bring-up are visible here.
	cpu.FlushTLB()

	kfmt.Fprintf(w, "cpu %d (apic id %d): online\n", rec.ProcessorID, rec.APICID)
}
