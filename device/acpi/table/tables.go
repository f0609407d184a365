// Package table defines the binary layouts of the firmware-supplied ACPI
// tables consumed during boot. All tables use little-endian encoding with no
// implicit padding. Apart from the fixed-size SDT header, which is overlaid
// directly onto mapped firmware memory, table payloads are always accessed
// through bounds-checked byte slices; firmware data is untrusted and must
// never be blindly reinterpreted as a typed structure.
package table

import (
	"encoding/binary"
	"reflect"
	"unsafe"
)

// SDTHeaderSize is the size in bytes of the common system descriptor table
// header.
const SDTHeaderSize = 36

// SDTHeader defines the common header shared by all ACPI tables. Its Go field
// layout contains no padding and matches the 36-byte wire format exactly, so
// it can be safely overlaid onto mapped firmware memory.
type SDTHeader struct {
	// The signature defines the table type.
	Signature [4]byte

	// The total length of the table including this header.
	Length uint32

	Revision uint8

	// A value that when added to the sum of all other bytes in the table
	// should result in the value 0.
	Checksum uint8

	// OEM specific information
	OEMID       [6]byte
	OEMTableID  [8]byte
	OEMRevision uint32

	// Information about the tool that generated this table
	CreatorID       uint32
	CreatorRevision uint32
}

// DataLen returns the length of the table's data region. Tables whose declared
// length is smaller than the header size yield a zero-length data region.
func (h *SDTHeader) DataLen() int {
	if h.Length < SDTHeaderSize {
		return 0
	}
	return int(h.Length) - SDTHeaderSize
}

// Data overlays a byte slice onto the table's data region, the bytes between
// the end of the header and the table's declared length. The caller must have
// mapped the entire table beforehand.
func (h *SDTHeader) Data() []byte {
	dataLen := h.DataLen()
	return *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  dataLen,
		Cap:  dataLen,
		Data: uintptr(unsafe.Pointer(h)) + SDTHeaderSize,
	}))
}

const (
	// RSDPSize is the size in bytes of the ACPI 2.0+ root pointer
	// structure.
	RSDPSize = 36

	// rsdpChecksumLen is the number of leading RSDP bytes covered by the
	// version 1.0 checksum.
	rsdpChecksumLen = 20
)

// RSDPSignature is the fixed 8-byte signature of the root pointer structure.
var RSDPSignature = [8]byte{'R', 'S', 'D', ' ', 'P', 'T', 'R', ' '}

// RSDP defines the root system description pointer, the anchor structure used
// as the entry-point for locating all other firmware tables. The layout covers
// both the ACPI 1.0 structure (first 20 bytes) and the 2.0+ extension. All
// fields up to and including XSDTAddr sit at their wire offsets; the structure
// must only ever be read through a mapping of at least RSDPSize bytes.
type RSDP struct {
	Signature [8]byte

	// A value that when added to the sum of the first 20 bytes of this
	// structure should result in the value 0.
	Checksum uint8

	OEMID    [6]byte
	Revision uint8

	// Physical address of the root table using 32-bit entries.
	RSDTAddr uint32

	// The total length of this structure (ACPI 2.0+).
	Length uint32

	// Physical address of the root table using 64-bit entries (ACPI 2.0+).
	XSDTAddr uint64

	ExtendedChecksum uint8
	_                [3]byte
}

// Valid reports whether the root pointer carries the expected signature and
// whether the sum of its first 20 bytes is 0 mod 256.
func (r *RSDP) Valid() bool {
	if r.Signature != RSDPSignature {
		return false
	}
	return Checksum(uintptr(unsafe.Pointer(r)), rsdpChecksumLen) == 0
}

// SDTAddr returns the physical address of the root table. Root pointers with
// revision 2 or greater use the wide 64-bit root list address; older revisions
// use the narrow 32-bit one.
func (r *RSDP) SDTAddr() uintptr {
	if r.Revision >= 2 {
		return uintptr(r.XSDTAddr)
	}
	return uintptr(r.RSDTAddr)
}

// Checksum sums length bytes starting at addr interpreting each byte as an
// unsigned 8-bit value.
func Checksum(addr uintptr, length uintptr) uint8 {
	var sum uint8
	for ptr := addr; ptr < addr+length; ptr++ {
		sum += *(*uint8)(unsafe.Pointer(ptr))
	}
	return sum
}

// GenericAddress describes a register range located in a particular address
// space (a 12-byte GAS structure).
type GenericAddress struct {
	Space      uint8
	BitWidth   uint8
	BitOffset  uint8
	AccessSize uint8
	Address    uint64
}

// AddressSpaceSysMemory identifies GAS ranges located in system memory.
const AddressSpaceSysMemory = 0

// DecodeGenericAddress decodes a GAS structure from the first 12 bytes of
// data. The caller must guarantee len(data) >= 12.
func DecodeGenericAddress(data []byte) GenericAddress {
	return GenericAddress{
		Space:      data[0],
		BitWidth:   data[1],
		BitOffset:  data[2],
		AccessSize: data[3],
		Address:    binary.LittleEndian.Uint64(data[4:]),
	}
}

// GTDTMinLen is the minimum declared length of a generic timer description
// table.
const GTDTMinLen = SDTHeaderSize + 60

// GTDT describes the platform's generic timers.
type GTDT struct {
	CntControlBase uintptr

	SecureEL1TimerGSIV     uint32
	SecureEL1TimerFlags    uint32
	NonSecureEL1TimerGSIV  uint32
	NonSecureEL1TimerFlags uint32
	VirtualEL1TimerGSIV    uint32
	VirtualEL1TimerFlags   uint32
	EL2TimerGSIV           uint32
	EL2TimerFlags          uint32

	CntReadBase         uintptr
	PlatformTimerCount  uint32
	PlatformTimerOffset uint32
}

// DecodeGTDT decodes a generic timer description table. It returns nil if the
// table carries the wrong signature or its declared length is smaller than the
// fixed GTDT structure.
func DecodeGTDT(header *SDTHeader) *GTDT {
	if string(header.Signature[:]) != "GTDT" || header.Length < GTDTMinLen {
		return nil
	}

	data := header.Data()
	return &GTDT{
		CntControlBase:         uintptr(binary.LittleEndian.Uint64(data[0:])),
		SecureEL1TimerGSIV:     binary.LittleEndian.Uint32(data[12:]),
		SecureEL1TimerFlags:    binary.LittleEndian.Uint32(data[16:]),
		NonSecureEL1TimerGSIV:  binary.LittleEndian.Uint32(data[20:]),
		NonSecureEL1TimerFlags: binary.LittleEndian.Uint32(data[24:]),
		VirtualEL1TimerGSIV:    binary.LittleEndian.Uint32(data[28:]),
		VirtualEL1TimerFlags:   binary.LittleEndian.Uint32(data[32:]),
		EL2TimerGSIV:           binary.LittleEndian.Uint32(data[36:]),
		EL2TimerFlags:          binary.LittleEndian.Uint32(data[40:]),
		CntReadBase:            uintptr(binary.LittleEndian.Uint64(data[44:])),
		PlatformTimerCount:     binary.LittleEndian.Uint32(data[52:]),
		PlatformTimerOffset:    binary.LittleEndian.Uint32(data[56:]),
	}
}

// HPETMinLen is the minimum declared length of a high-precision event timer
// description table.
const HPETMinLen = SDTHeaderSize + 20

// HPET describes the platform's high-precision event timer block.
type HPET struct {
	HWRevID              uint8
	ComparatorDescriptor uint8
	PCIVendorID          uint16
	BaseAddress          GenericAddress
	HPETNumber           uint8
	MinPeriodicClkTick   uint16
	OEMAttribute         uint8
}

// DecodeHPET decodes a high-precision event timer description table. It
// returns nil if the table carries the wrong signature or its declared length
// is smaller than the fixed HPET structure.
func DecodeHPET(header *SDTHeader) *HPET {
	if string(header.Signature[:]) != "HPET" || header.Length < HPETMinLen {
		return nil
	}

	data := header.Data()
	return &HPET{
		HWRevID:              data[0],
		ComparatorDescriptor: data[1],
		PCIVendorID:          binary.LittleEndian.Uint16(data[2:]),
		BaseAddress:          DecodeGenericAddress(data[4:16]),
		HPETNumber:           data[16],
		MinPeriodicClkTick:   binary.LittleEndian.Uint16(data[17:]),
		OEMAttribute:         data[19],
	}
}

// SPCRMinLen is the minimum declared length of a serial port console
// redirection table.
const SPCRMinLen = SDTHeaderSize + 40

// SPCR describes the firmware's console redirection configuration.
type SPCR struct {
	Revision      uint8
	InterfaceType uint8
	BaseAddress   GenericAddress
	InterruptType uint8
	IRQ           uint8
	GSIV          uint32
	BaudRate      uint8
	Parity        uint8
	StopBits      uint8
	FlowControl   uint8
	TerminalType  uint8
}

// DecodeSPCR decodes a serial port console redirection table. It returns nil
// if the table carries the wrong signature or its declared length is smaller
// than the fixed SPCR structure.
func DecodeSPCR(header *SDTHeader) *SPCR {
	if string(header.Signature[:]) != "SPCR" || header.Length < SPCRMinLen {
		return nil
	}

	data := header.Data()
	return &SPCR{
		Revision:      header.Revision,
		InterfaceType: data[0],
		BaseAddress:   DecodeGenericAddress(data[4:16]),
		InterruptType: data[16],
		IRQ:           data[17],
		GSIV:          binary.LittleEndian.Uint32(data[18:]),
		BaudRate:      data[22],
		Parity:        data[23],
		StopBits:      data[24],
		FlowControl:   data[25],
		TerminalType:  data[26],
	}
}
