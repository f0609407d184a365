package madt

import "io"

// Strategy initializes the platform's interrupt controllers and, where the
// architecture supports it, starts the secondary CPUs described by the table.
// Exactly one strategy is active; it is selected by the per-arch default and
// can be overridden before hardware detection runs.
type Strategy interface {
	// Name returns the strategy's name for log output.
	Name() string

	// BringUp processes the parsed table. Failures are logged to w; they
	// never abort the boot.
	BringUp(m *MADT, w io.Writer)
}

var activeStrategy Strategy = defaultStrategy

// GICStrategy returns the bring-up strategy for platforms with a generic
// interrupt controller.
func GICStrategy() Strategy { return &gicBringUp{} }

// APICStrategy returns the bring-up strategy for platforms with local APICs.
func APICStrategy() Strategy { return &apicBringUp{} }

// SetBringUpStrategy overrides the platform bring-up strategy. It must be
// called before hardware detection runs.
func SetBringUpStrategy(s Strategy) {
	if s != nil {
		activeStrategy = s
	}
}

// BringUp hands the parsed table to the active strategy.
func BringUp(m *MADT, w io.Writer) {
	activeStrategy.BringUp(m, w)
}
