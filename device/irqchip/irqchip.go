// Package irqchip maintains the set of active interrupt controller drivers
// and routes global interrupt numbers to registered handlers.
package irqchip

import (
	"helios/kernel"
	"helios/kernel/sync"
)

// Chip is the interface implemented by interrupt controller drivers.
type Chip interface {
	// Name returns the controller's name.
	Name() string

	// Enable unmasks the interrupt with the given global number.
	Enable(girq uint32) *kernel.Error

	// Disable masks the interrupt with the given global number.
	Disable(girq uint32) *kernel.Error

	// Ack acknowledges a pending interrupt and returns its global number.
	Ack() uint32

	// EOI signals completion of the handler for the given global number.
	EOI(girq uint32)
}

// HandlerFn is invoked when the interrupt it was registered for fires.
type HandlerFn func(girq uint32)

var (
	errNoChip = &kernel.Error{Module: "irqchip", Message: "no interrupt controller registered"}

	chipLock sync.Spinlock
	chips    []Chip

	handlers map[uint32]HandlerFn
)

// Register appends an interrupt controller to the active set. Controllers are
// consulted in registration order.
func Register(chip Chip) {
	chipLock.Acquire()
	chips = append(chips, chip)
	chipLock.Release()
}

// Chips returns the registered interrupt controllers in registration order.
func Chips() []Chip {
	return chips
}

// RegisterHandler associates a handler with a global interrupt number. A later
// registration for the same number replaces the earlier one.
func RegisterHandler(girq uint32, fn HandlerFn) {
	chipLock.Acquire()
	if handlers == nil {
		handlers = make(map[uint32]HandlerFn)
	}
	handlers[girq] = fn
	chipLock.Release()
}

// Enable unmasks the given global interrupt number on the first registered
// controller.
func Enable(girq uint32) *kernel.Error {
	if len(chips) == 0 {
		return errNoChip
	}
	return chips[0].Enable(girq)
}

// Dispatch acknowledges a pending interrupt on the first registered
// controller, invokes its handler if one exists and signals completion.
func Dispatch() {
	if len(chips) == 0 {
		return
	}

	chip := chips[0]
	girq := chip.Ack()
	if fn := handlers[girq]; fn != nil {
		fn(girq)
	}
	chip.EOI(girq)
}
