package acpi

import (
	"encoding/binary"

	"helios/device/acpi/table"
)

// rootList provides a uniform view over the two possible root-list encodings:
// a sequence of narrow 32-bit physical addresses or a sequence of wide 64-bit
// ones, stored contiguously in the root table's data region. The view is lazy
// and restartable; each call to iter starts over from the first entry.
type rootList struct {
	header *table.SDTHeader
	wide   bool
}

// entrySize returns the encoded size of a single root-list entry.
func (l *rootList) entrySize() int {
	if l.wide {
		return 8
	}
	return 4
}

// entryCount returns the number of complete entries in the root list. Trailing
// bytes that do not form a complete entry are ignored.
func (l *rootList) entryCount() int {
	return l.header.DataLen() / l.entrySize()
}

// iter returns an iterator over the physical addresses in the root list.
func (l *rootList) iter() rootListIter {
	return rootListIter{data: l.header.Data(), entrySize: l.entrySize()}
}

type rootListIter struct {
	data      []byte
	entrySize int
	off       int
}

// next returns the next physical address in the root list. The second return
// value is false once the list is exhausted.
func (it *rootListIter) next() (uintptr, bool) {
	if it.off+it.entrySize > len(it.data) {
		return 0, false
	}

	var addr uintptr
	if it.entrySize == 8 {
		addr = uintptr(binary.LittleEndian.Uint64(it.data[it.off:]))
	} else {
		addr = uintptr(binary.LittleEndian.Uint32(it.data[it.off:]))
	}
	it.off += it.entrySize

	return addr, true
}
