package table

import (
	"encoding/binary"
	"testing"
	"unsafe"
)

// newTable assembles a synthetic table with the given signature and data
// region and returns the backing buffer together with an overlaid header.
func newTable(sig string, revision uint8, data []byte) ([]byte, *SDTHeader) {
	buf := make([]byte, SDTHeaderSize+len(data))
	copy(buf, sig)
	binary.LittleEndian.PutUint32(buf[4:], uint32(len(buf)))
	buf[8] = revision
	copy(buf[SDTHeaderSize:], data)

	header := (*SDTHeader)(unsafe.Pointer(&buf[0]))
	header.Checksum = -Checksum(uintptr(unsafe.Pointer(header)), uintptr(len(buf)))
	return buf, header
}

func newRSDP(revision uint8, rsdtAddr uint32, xsdtAddr uint64) ([]byte, *RSDP) {
	buf := make([]byte, RSDPSize)
	copy(buf, RSDPSignature[:])
	copy(buf[9:], "HELIOS")
	buf[15] = revision
	binary.LittleEndian.PutUint32(buf[16:], rsdtAddr)
	binary.LittleEndian.PutUint32(buf[20:], RSDPSize)
	binary.LittleEndian.PutUint64(buf[24:], xsdtAddr)

	rsdp := (*RSDP)(unsafe.Pointer(&buf[0]))
	rsdp.Checksum = -Checksum(uintptr(unsafe.Pointer(rsdp)), 20)
	return buf, rsdp
}

func TestRSDPChecksumRoundTrip(t *testing.T) {
	buf, rsdp := newRSDP(2, 0xbadf00, 0xc0ffee)
	if !rsdp.Valid() {
		t.Fatal("expected freshly built root pointer to be valid")
	}

	// Flipping any checksummed byte past the signature must invalidate the
	// descriptor; repairing the checksum byte must restore validity.
	for i := 8; i < 20; i++ {
		buf[i] ^= 0x5a
		if rsdp.Valid() {
			t.Errorf("expected flipped byte %d to invalidate the root pointer", i)
		}

		rsdp.Checksum = 0
		rsdp.Checksum = -Checksum(uintptr(unsafe.Pointer(rsdp)), 20)
		if !rsdp.Valid() {
			t.Errorf("expected repaired root pointer to be valid again after flipping byte %d", i)
		}
	}

	// A corrupted signature is rejected regardless of the checksum.
	buf[0] ^= 0x5a
	rsdp.Checksum = 0
	rsdp.Checksum = -Checksum(uintptr(unsafe.Pointer(rsdp)), 20)
	if rsdp.Valid() {
		t.Error("expected corrupted signature to be rejected")
	}
}

func TestRSDPAddressSelection(t *testing.T) {
	_, rsdp1 := newRSDP(0, 0xbadf00, 0xc0ffee)
	if exp, got := uintptr(0xbadf00), rsdp1.SDTAddr(); got != exp {
		t.Fatalf("expected revision-0 root pointer to select the narrow address 0x%x; got 0x%x", exp, got)
	}

	_, rsdp2 := newRSDP(2, 0xbadf00, 0xc0ffee)
	if exp, got := uintptr(0xc0ffee), rsdp2.SDTAddr(); got != exp {
		t.Fatalf("expected revision-2 root pointer to select the wide address 0x%x; got 0x%x", exp, got)
	}
}

func TestSDTHeaderDataRegion(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	buf, header := newTable("TEST", 1, payload)

	if exp, got := len(payload), header.DataLen(); got != exp {
		t.Fatalf("expected data length %d; got %d", exp, got)
	}

	data := header.Data()
	for i, b := range payload {
		if data[i] != b {
			t.Fatalf("expected data byte %d to be %d; got %d", i, b, data[i])
		}
	}

	// A corrupt length smaller than the header must yield an empty region
	binary.LittleEndian.PutUint32(buf[4:], SDTHeaderSize-1)
	if got := header.DataLen(); got != 0 {
		t.Fatalf("expected truncated table to report a zero-length data region; got %d", got)
	}
}

func TestDecodeGTDT(t *testing.T) {
	data := make([]byte, 60)
	binary.LittleEndian.PutUint64(data[0:], 0x2a810000)
	binary.LittleEndian.PutUint32(data[20:], 30) // non-secure EL1 timer GSIV
	binary.LittleEndian.PutUint32(data[24:], 4)

	_, header := newTable("GTDT", 2, data)
	gtdt := DecodeGTDT(header)
	if gtdt == nil {
		t.Fatal("expected GTDT to decode")
	}

	if exp, got := uintptr(0x2a810000), gtdt.CntControlBase; got != exp {
		t.Errorf("expected counter control base 0x%x; got 0x%x", exp, got)
	}
	if exp, got := uint32(30), gtdt.NonSecureEL1TimerGSIV; got != exp {
		t.Errorf("expected non-secure EL1 timer GSIV %d; got %d", exp, got)
	}

	// Wrong signature and short length must both be rejected
	_, wrongSig := newTable("GTDX", 2, data)
	if DecodeGTDT(wrongSig) != nil {
		t.Error("expected wrong signature to be rejected")
	}
	_, short := newTable("GTDT", 2, data[:32])
	if DecodeGTDT(short) != nil {
		t.Error("expected short table to be rejected")
	}
}

func TestDecodeHPET(t *testing.T) {
	data := make([]byte, 20)
	data[0] = 1 // hw rev
	binary.LittleEndian.PutUint16(data[2:], 0x8086)
	data[4] = AddressSpaceSysMemory
	binary.LittleEndian.PutUint64(data[8:], 0xfed00000)
	data[16] = 0 // hpet number
	binary.LittleEndian.PutUint16(data[17:], 0x1000)

	_, header := newTable("HPET", 1, data)
	hpet := DecodeHPET(header)
	if hpet == nil {
		t.Fatal("expected HPET to decode")
	}

	if exp, got := uint64(0xfed00000), hpet.BaseAddress.Address; got != exp {
		t.Errorf("expected register window at 0x%x; got 0x%x", exp, got)
	}
	if exp, got := uint16(0x1000), hpet.MinPeriodicClkTick; got != exp {
		t.Errorf("expected min periodic tick %d; got %d", exp, got)
	}

	_, short := newTable("HPET", 1, data[:8])
	if DecodeHPET(short) != nil {
		t.Error("expected short table to be rejected")
	}
}

func TestDecodeSPCR(t *testing.T) {
	data := make([]byte, 40)
	data[0] = 3 // interface type: PL011
	data[4] = AddressSpaceSysMemory
	data[5] = 32 // bit width
	data[7] = 3  // access size
	binary.LittleEndian.PutUint64(data[8:], 0x9000000)
	binary.LittleEndian.PutUint32(data[18:], 33) // GSIV

	_, header := newTable("SPCR", 2, data)
	spcr := DecodeSPCR(header)
	if spcr == nil {
		t.Fatal("expected SPCR to decode")
	}

	if exp, got := uint8(3), spcr.InterfaceType; got != exp {
		t.Errorf("expected interface type %d; got %d", exp, got)
	}
	if exp, got := uint64(0x9000000), spcr.BaseAddress.Address; got != exp {
		t.Errorf("expected register window at 0x%x; got 0x%x", exp, got)
	}
	if exp, got := uint32(33), spcr.GSIV; got != exp {
		t.Errorf("expected GSIV %d; got %d", exp, got)
	}
}
