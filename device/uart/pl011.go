// Package uart implements a driver for the PL011 serial port. When the
// firmware console redirection table nominates a PL011, the boot code adopts
// it as the primary kernel console.
package uart

import (
	"sync/atomic"
	"unsafe"
)

// PL011 register offsets.
const (
	regDR = 0x00
	regFR = 0x18
)

// Flag register bits.
const frTXFF = 1 << 5

// PL011 drives an ARM PrimeCell UART through its memory-mapped register
// window. The device is assumed to have been configured by the firmware; the
// driver only transmits.
type PL011 struct {
	base uintptr
}

// Init binds the driver to the register window mapped at base.
func (u *PL011) Init(base uintptr) {
	u.base = base
}

// DriverName returns the name of this driver.
func (u *PL011) DriverName() string { return "pl011" }

// Write transmits the contents of data, waiting out a full transmit FIFO
// before each byte. It implements io.Writer and never fails.
func (u *PL011) Write(data []byte) (int, error) {
	fr := (*uint32)(unsafe.Pointer(u.base + regFR))
	dr := (*uint32)(unsafe.Pointer(u.base + regDR))

	for _, b := range data {
		for atomic.LoadUint32(fr)&frTXFF != 0 {
		}
		atomic.StoreUint32(dr, uint32(b))
	}

	return len(data), nil
}

// ActiveConsole points to the serial console adopted during boot or nil when
// no console redirection information was available.
var ActiveConsole *PL011
