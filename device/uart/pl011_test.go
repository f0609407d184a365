package uart

import (
	"testing"
	"unsafe"
)

func TestPL011Write(t *testing.T) {
	regs := make([]uint32, 0x12)

	var dev PL011
	dev.Init(uintptr(unsafe.Pointer(&regs[0])))

	n, err := dev.Write([]byte("ok"))
	if err != nil || n != 2 {
		t.Fatalf("expected write to report (2, nil); got (%d, %v)", n, err)
	}

	// The fake flag register always reads an empty FIFO, so the last byte
	// written lands in the data register.
	if exp, got := uint32('k'), regs[regDR/4]; got != exp {
		t.Fatalf("expected data register to hold %q; got %q", exp, got)
	}
}
