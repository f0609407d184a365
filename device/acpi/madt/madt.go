// Package madt parses the multiple APIC description table, the firmware
// table that enumerates the platform's interrupt controllers and CPUs, and
// drives the bring-up of secondary CPUs based on its contents.
package madt

import (
	"encoding/binary"

	"helios/device/acpi/table"
	"helios/kernel"
)

// Interrupt controller record tags.
const (
	tagLocalAPIC               = 0x0
	tagIOAPIC                  = 0x1
	tagInterruptSourceOverride = 0x2
	tagGICC                    = 0xb
	tagGICD                    = 0xc
)

// FlagPCATCompat is set in the table flags when the platform also carries a
// legacy dual-8259 setup that must be masked before using the APICs.
const FlagPCATCompat = 1 << 0

// FlagEnabled is set in a CPU record's flags when the firmware considers the
// processor usable.
const FlagEnabled = 1 << 0

var errBadSignature = &kernel.Error{Module: "acpi.madt", Message: "not a MADT table"}

// MADT provides access to the decoded table prefix and an iterator over its
// interrupt controller records.
type MADT struct {
	// LocalControllerAddr is the physical address of the boot CPU's local
	// interrupt controller.
	LocalControllerAddr uintptr

	// Flags holds the table-wide flags.
	Flags uint32

	records []byte
}

// Parse validates the table signature and decodes the fixed prefix. It
// returns an error for tables with the wrong signature or a data region too
// short to hold the prefix.
func Parse(header *table.SDTHeader) (*MADT, *kernel.Error) {
	if string(header.Signature[:]) != "APIC" {
		return nil, errBadSignature
	}

	data := header.Data()
	if len(data) < 8 {
		return nil, errBadSignature
	}

	return &MADT{
		LocalControllerAddr: uintptr(binary.LittleEndian.Uint32(data[0:])),
		Flags:               binary.LittleEndian.Uint32(data[4:]),
		records:             data[8:],
	}, nil
}

// Entry is implemented by all interrupt controller record types.
type Entry interface {
	entryTag() uint8
}

// LocalAPIC describes a processor and its local APIC.
type LocalAPIC struct {
	ProcessorID uint8
	APICID      uint8
	Flags       uint32
}

// IOAPIC describes an I/O APIC and the interrupt range it serves.
type IOAPIC struct {
	ID      uint8
	Addr    uintptr
	GSIBase uint32
}

// InterruptSourceOverride describes a legacy interrupt that was rewired to a
// different global interrupt number.
type InterruptSourceOverride struct {
	Bus    uint8
	Source uint8
	GSI    uint32
	Flags  uint16
}

// GICC describes a processor and its GIC CPU interface.
type GICC struct {
	CPUInterfaceNumber  uint32
	ACPIProcessorUID    uint32
	Flags               uint32
	ParkingVersion      uint32
	PerformanceGSIV     uint32
	ParkedAddr          uintptr
	BaseAddr            uintptr
	GICVAddr            uintptr
	GICHAddr            uintptr
	VGICMaintenanceGSIV uint32
	GICRBaseAddr        uintptr
	MPIDR               uint64
	EfficiencyClass     uint8
	SPEOverflowGSIV     uint16
}

// GICD describes the GIC distributor.
type GICD struct {
	GICID            uint32
	BaseAddr         uintptr
	SystemVectorBase uint32
	Version          uint8
}

// Unknown carries the tag of a record type the parser does not understand.
// Unknown records are skipped using their declared length.
type Unknown struct {
	Tag uint8
}

func (LocalAPIC) entryTag() uint8               { return tagLocalAPIC }
func (IOAPIC) entryTag() uint8                  { return tagIOAPIC }
func (InterruptSourceOverride) entryTag() uint8 { return tagInterruptSourceOverride }
func (GICC) entryTag() uint8                    { return tagGICC }
func (GICD) entryTag() uint8                    { return tagGICD }
func (u Unknown) entryTag() uint8               { return u.Tag }

// Iter returns an iterator over the table's interrupt controller records.
func (m *MADT) Iter() EntryIter {
	return EntryIter{data: m.records}
}

// EntryIter walks the variable-length interrupt controller records. Each
// record starts with a tag byte and a length byte covering the whole record.
// Iteration stops at the first record that is truncated, declares a length
// shorter than its own two-byte header or overruns the table.
type EntryIter struct {
	data []byte
	off  int
}

// Next decodes the next record. The second return value is false once the
// table is exhausted or malformed.
func (it *EntryIter) Next() (Entry, bool) {
	if it.off+1 >= len(it.data) {
		return nil, false
	}

	tag := it.data[it.off]
	entryLen := int(it.data[it.off+1])
	if entryLen < 2 || it.off+entryLen > len(it.data) {
		return nil, false
	}

	rec := it.data[it.off : it.off+entryLen]
	it.off += entryLen

	return decodeEntry(tag, rec), true
}

// decodeEntry decodes a single record. Records of a known type that are
// shorter than their fixed layout decode as Unknown; longer records are
// allowed for the controller record kinds newer firmware revisions extend.
func decodeEntry(tag uint8, rec []byte) Entry {
	switch {
	case tag == tagLocalAPIC && len(rec) == 8:
		return LocalAPIC{
			ProcessorID: rec[2],
			APICID:      rec[3],
			Flags:       binary.LittleEndian.Uint32(rec[4:]),
		}
	case tag == tagIOAPIC && len(rec) == 12:
		return IOAPIC{
			ID:      rec[2],
			Addr:    uintptr(binary.LittleEndian.Uint32(rec[4:])),
			GSIBase: binary.LittleEndian.Uint32(rec[8:]),
		}
	case tag == tagInterruptSourceOverride && len(rec) == 10:
		return InterruptSourceOverride{
			Bus:    rec[2],
			Source: rec[3],
			GSI:    binary.LittleEndian.Uint32(rec[4:]),
			Flags:  binary.LittleEndian.Uint16(rec[8:]),
		}
	case tag == tagGICC && len(rec) >= 80:
		return GICC{
			CPUInterfaceNumber:  binary.LittleEndian.Uint32(rec[4:]),
			ACPIProcessorUID:    binary.LittleEndian.Uint32(rec[8:]),
			Flags:               binary.LittleEndian.Uint32(rec[12:]),
			ParkingVersion:      binary.LittleEndian.Uint32(rec[16:]),
			PerformanceGSIV:     binary.LittleEndian.Uint32(rec[20:]),
			ParkedAddr:          uintptr(binary.LittleEndian.Uint64(rec[24:])),
			BaseAddr:            uintptr(binary.LittleEndian.Uint64(rec[32:])),
			GICVAddr:            uintptr(binary.LittleEndian.Uint64(rec[40:])),
			GICHAddr:            uintptr(binary.LittleEndian.Uint64(rec[48:])),
			VGICMaintenanceGSIV: binary.LittleEndian.Uint32(rec[56:]),
			GICRBaseAddr:        uintptr(binary.LittleEndian.Uint64(rec[60:])),
			MPIDR:               binary.LittleEndian.Uint64(rec[68:]),
			EfficiencyClass:     rec[76],
			SPEOverflowGSIV:     binary.LittleEndian.Uint16(rec[78:]),
		}
	case tag == tagGICD && len(rec) >= 24:
		return GICD{
			GICID:            binary.LittleEndian.Uint32(rec[4:]),
			BaseAddr:         uintptr(binary.LittleEndian.Uint64(rec[8:])),
			SystemVectorBase: binary.LittleEndian.Uint32(rec[16:]),
			Version:          rec[20],
		}
	default:
		return Unknown{Tag: tag}
	}
}
