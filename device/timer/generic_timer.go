// Package timer implements a driver for the ARM generic timer, the
// architectural per-CPU timer described by the firmware's timer table.
package timer

import "helios/kernel"

var errNoFrequency = &kernel.Error{Module: "timer", Message: "counter frequency register reads zero"}

// readFreqFn returns the architectural counter frequency in Hz. The real
// implementation reads CNTFRQ_EL0; tests install their own.
var readFreqFn = func() uint64 { return 0 }

// InstallFreqReader overrides the counter frequency source.
func InstallFreqReader(fn func() uint64) { readFreqFn = fn }

// GenericTimer drives the per-CPU architectural timer.
type GenericTimer struct {
	// ClkFreq is the counter frequency in Hz.
	ClkFreq uint64

	// ReloadCount is the counter delta programmed on each tick.
	ReloadCount uint64

	// GSIV is the global interrupt number the timer fires on.
	GSIV uint32

	ticks uint64
}

// Init reads the counter frequency and derives the reload count for the given
// tick rate in Hz.
func (gt *GenericTimer) Init(gsiv uint32, tickRate uint64) *kernel.Error {
	gt.ClkFreq = readFreqFn()
	if gt.ClkFreq == 0 {
		return errNoFrequency
	}

	gt.GSIV = gsiv
	gt.ReloadCount = gt.ClkFreq / tickRate
	return nil
}

// IRQHandler advances the tick counter. It is registered with the interrupt
// router for the timer's GSIV.
func (gt *GenericTimer) IRQHandler(girq uint32) {
	gt.ticks++
}

// Ticks returns the number of timer interrupts serviced so far.
func (gt *GenericTimer) Ticks() uint64 { return gt.ticks }
