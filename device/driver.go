// Package device defines the driver model used by the hardware detection code
// and keeps track of the drivers registered by the various device packages.
package device

import (
	"io"

	"helios/kernel"
)

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. If the driver init code
	// needs to log some output, it can use the supplied io.Writer in
	// conjunction with a call to kfmt.Fprintf.
	DriverInit(io.Writer) *kernel.Error
}

// ProbeFn is a function that scans for the presence of a particular piece of
// hardware and returns a driver for it.
type ProbeFn func() Driver

// DetectOrder specifies when each driver's probe function is invoked relative
// to the firmware-table discovery step.
type DetectOrder int

// The list of supported detection orders.
const (
	// DetectOrderEarly drivers are probed before anything else.
	DetectOrderEarly DetectOrder = -128

	// DetectOrderBeforeACPI drivers are probed just before the ACPI table
	// discovery driver.
	DetectOrderBeforeACPI DetectOrder = -64

	// DetectOrderACPI is reserved for drivers that consume the discovered
	// firmware tables.
	DetectOrderACPI DetectOrder = 0

	// DetectOrderLast drivers are probed after all other drivers.
	DetectOrderLast DetectOrder = 127
)

// DriverInfo describes a driver registered with this package.
type DriverInfo struct {
	// Order specifies when the probe function will be invoked.
	Order DetectOrder

	// Probe is invoked by the hal package to detect the presence of the
	// hardware handled by this driver.
	Probe ProbeFn
}

// DriverInfoList is a sortable list of registered drivers.
type DriverInfoList []*DriverInfo

// Len returns the length of the driver list.
func (l DriverInfoList) Len() int { return len(l) }

// Swap exchanges two list entries.
func (l DriverInfoList) Swap(i, j int) { l[i], l[j] = l[j], l[i] }

// Less compares two list entries by detection order.
func (l DriverInfoList) Less(i, j int) bool { return l[i].Order < l[j].Order }

var registeredDrivers DriverInfoList

// RegisterDriver adds the supplied driver info to the list of registered
// drivers. It is meant to be called from the init() block of device packages.
func RegisterDriver(info *DriverInfo) {
	registeredDrivers = append(registeredDrivers, info)
}

// DriverList returns the list of registered drivers.
func DriverList() DriverInfoList {
	return registeredDrivers
}
