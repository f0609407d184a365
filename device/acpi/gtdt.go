package acpi

import (
	"io"

	"helios/device/acpi/table"
	"helios/device/irqchip"
	"helios/device/timer"
	"helios/kernel/kfmt"
)

// timerTickRate is the tick frequency in Hz programmed into the architectural
// timer.
const timerTickRate = 100

var systemTimer timer.GenericTimer

// initTimers configures the architectural per-CPU timer described by the
// firmware's timer table and routes its interrupt.
func initTimers(w io.Writer) {
	matches := FindTable("GTDT")
	if len(matches) == 0 {
		kfmt.Fprintf(w, "platform timer table unavailable\n")
		return
	}

	gtdt := table.DecodeGTDT(matches[0])
	if gtdt == nil {
		kfmt.Fprintf(w, "malformed platform timer table\n")
		return
	}

	gsiv := gtdt.NonSecureEL1TimerGSIV
	if err := systemTimer.Init(gsiv, timerTickRate); err != nil {
		kfmt.Fprintf(w, "unable to initialize system timer: %s\n", err.Message)
		return
	}

	irqchip.RegisterHandler(gsiv, systemTimer.IRQHandler)
	if err := irqchip.Enable(gsiv); err != nil {
		kfmt.Fprintf(w, "unable to enable timer interrupt %d: %s\n", gsiv, err.Message)
		return
	}

	kfmt.Fprintf(w, "system timer: %d Hz tick (irq %d, counter at %d Hz)\n",
		timerTickRate, gsiv, systemTimer.ClkFreq)
}
