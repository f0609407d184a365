package acpi

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unsafe"

	"helios/device/acpi/table"
	"helios/kernel"
	"helios/kernel/mm"
	"helios/kernel/mm/vmm"
)

func TestRootListIteration(t *testing.T) {
	// The narrow and wide encodings of the same address list must yield the
	// same sequence.
	addrs := []uintptr{0x1000, 0x2000, 0x3000}

	narrow := make([]byte, 4*len(addrs))
	wide := make([]byte, 8*len(addrs))
	for i, addr := range addrs {
		binary.LittleEndian.PutUint32(narrow[i*4:], uint32(addr))
		binary.LittleEndian.PutUint64(wide[i*8:], uint64(addr))
	}

	rsdt := newSDT("RSDT", 1, narrow)
	xsdt := newSDT("XSDT", 1, wide)

	specs := []rootList{
		{header: (*table.SDTHeader)(unsafe.Pointer(&rsdt[0])), wide: false},
		{header: (*table.SDTHeader)(unsafe.Pointer(&xsdt[0])), wide: true},
	}

	for specIndex, list := range specs {
		if exp, got := len(addrs), list.entryCount(); got != exp {
			t.Fatalf("[spec %d] expected %d entries; got %d", specIndex, exp, got)
		}

		var got []uintptr
		for it := list.iter(); ; {
			addr, ok := it.next()
			if !ok {
				break
			}
			got = append(got, addr)
		}

		if len(got) != len(addrs) {
			t.Fatalf("[spec %d] expected %d addresses; got %d", specIndex, len(addrs), len(got))
		}
		for i, addr := range addrs {
			if got[i] != addr {
				t.Errorf("[spec %d] expected address %d to be 0x%x; got 0x%x", specIndex, i, addr, got[i])
			}
		}
	}
}

func TestRootListIgnoresTrailingBytes(t *testing.T) {
	// Three trailing bytes do not form a complete narrow entry.
	data := make([]byte, 7)
	binary.LittleEndian.PutUint32(data, 0x1000)
	rsdt := newSDT("RSDT", 1, data)

	list := rootList{header: (*table.SDTHeader)(unsafe.Pointer(&rsdt[0]))}
	if exp, got := 1, list.entryCount(); got != exp {
		t.Fatalf("expected %d entry; got %d", exp, got)
	}

	it := list.iter()
	if addr, ok := it.next(); !ok || addr != 0x1000 {
		t.Fatalf("expected the first entry to decode; got (0x%x, %t)", addr, ok)
	}
	if _, ok := it.next(); ok {
		t.Fatal("expected iteration to stop at the incomplete entry")
	}
}

func TestBuildRegistryAndFindTable(t *testing.T) {
	resetACPIState(t)
	stubACPIMaps(t)

	// Two tables sharing a signature must both be preserved.
	hpet1 := newSDT("HPET", 1, make([]byte, 20))
	hpet2 := newSDT("HPET", 1, make([]byte, 20))
	gtdt := newSDT("GTDT", 2, make([]byte, 60))

	if FindTable("HPET") != nil {
		t.Fatal("expected lookups before the registry is built to come up empty")
	}

	rsdp, _ := newFirmwareImage(hpet1, hpet2, gtdt)
	found := locateRSDP(bufAddr(rsdp))
	if found == nil {
		t.Fatal("expected the root pointer to be accepted")
	}

	var out bytes.Buffer
	if err := buildRegistry(found, &out); err != nil {
		t.Fatal(err)
	}

	if got := len(FindTable("HPET")); got != 2 {
		t.Fatalf("expected both duplicate tables to be preserved; got %d", got)
	}
	if got := len(FindTable("GTDT")); got != 1 {
		t.Fatalf("expected one timer table; got %d", got)
	}
	if FindTable("FACP") != nil {
		t.Fatal("expected lookups for absent tables to come up empty")
	}

	// The registry is built exactly once.
	if err := buildRegistry(found, &out); err != errRegistryBuilt {
		t.Fatalf("expected a second build to be rejected; got %v", err)
	}
}

func TestBuildRegistrySkipsUnmappableTables(t *testing.T) {
	resetACPIState(t)
	stubACPIMaps(t)

	hpet := newSDT("HPET", 1, make([]byte, 20))

	// Place the timer table on a page of its own so failing that page's
	// mapping cannot affect any other table.
	backing := make([]byte, 2*mm.PageSize)
	off := mm.PageSize - (bufAddr(backing) & (mm.PageSize - 1))
	gtdt := backing[off : off+table.SDTHeaderSize+60]
	copy(gtdt, newSDT("GTDT", 2, make([]byte, 60)))

	errMap := &kernel.Error{Module: "test", Message: "map failed"}
	badPage := mm.PageFromAddress(bufAddr(gtdt))
	mapFn = func(page mm.Page, frame mm.Frame, flags vmm.PageTableEntryFlag) *kernel.Error {
		if page == badPage {
			return errMap
		}
		return nil
	}

	rsdp, _ := newFirmwareImage(gtdt, hpet)
	found := locateRSDP(bufAddr(rsdp))
	if found == nil {
		t.Fatal("expected the root pointer to be accepted")
	}

	var out bytes.Buffer
	if err := buildRegistry(found, &out); err != nil {
		t.Fatal(err)
	}

	if FindTable("GTDT") != nil {
		t.Fatal("expected the unmappable table to be skipped")
	}
	if got := len(FindTable("HPET")); got != 1 {
		t.Fatalf("expected the remaining table to be cataloged; got %d", got)
	}
	if !bytes.Contains(out.Bytes(), []byte("[skipping]")) {
		t.Fatalf("expected the skipped table to be logged; got %q", out.String())
	}
}
