// Package hal drives hardware detection: it probes the registered device
// drivers in detection order and initializes the ones whose hardware is
// present.
package hal

import (
	"bytes"
	"sort"

	"helios/device"
	"helios/kernel/kfmt"
)

var (
	// activeDrivers tracks all initialized device drivers.
	activeDrivers []device.Driver

	strBuf bytes.Buffer
)

// ActiveDrivers returns the drivers that were successfully initialized.
func ActiveDrivers() []device.Driver {
	return activeDrivers
}

// DetectHardware probes for hardware devices and initializes the appropriate
// drivers.
func DetectHardware() {
	// Get driver list and sort by detection priority
	drivers := device.DriverList()
	sort.Sort(drivers)

	probe(drivers)
}

// probe executes the probe function for each driver and initializes each
// driver that reports its hardware present. Driver output is tagged with the
// driver's name and version.
func probe(driverInfoList device.DriverInfoList) {
	var w = kfmt.PrefixWriter{Sink: kfmt.GetOutputSink()}

	for _, info := range driverInfoList {
		drv := info.Probe()
		if drv == nil {
			continue
		}

		strBuf.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&strBuf, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		w.Prefix = strBuf.Bytes()

		if err := drv.DriverInit(&w); err != nil {
			kfmt.Fprintf(&w, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&w, "initialized\n")
		activeDrivers = append(activeDrivers, drv)
	}
}
