package vmm

import (
	"testing"

	"helios/kernel"
	"helios/kernel/mm"
)

type stubMapper struct {
	mapped    map[mm.Page]mm.Frame
	unmapped  []mm.Page
	nextFree  mm.Page
	mapErr    *kernel.Error
	reentrant bool
}

func newStubMapper() *stubMapper {
	return &stubMapper{mapped: make(map[mm.Page]mm.Frame), nextFree: 0x1000}
}

func (m *stubMapper) Map(page mm.Page, frame mm.Frame, _ PageTableEntryFlag) *kernel.Error {
	if m.reentrant {
		// Trigger a nested call through the public API
		return Map(page, frame, FlagPresent)
	}
	if m.mapErr != nil {
		return m.mapErr
	}
	m.mapped[page] = frame
	return nil
}

func (m *stubMapper) Unmap(page mm.Page) *kernel.Error {
	m.unmapped = append(m.unmapped, page)
	return nil
}

func (m *stubMapper) ReserveRegion(size uintptr) (mm.Page, *kernel.Error) {
	page := m.nextFree
	m.nextFree += mm.Page(size >> mm.PageShift)
	return page, nil
}

func TestMapRegion(t *testing.T) {
	defer SetMapper(nil)

	mapper := newStubMapper()
	SetMapper(mapper)

	// 2.5 pages must be rounded up to 3
	startPage, err := MapRegion(mm.Frame(0x2c000), 2*mm.PageSize+mm.PageSize/2, FlagPresent)
	if err != nil {
		t.Fatal(err)
	}

	if exp, got := 3, len(mapper.mapped); got != exp {
		t.Fatalf("expected %d pages to be mapped; got %d", exp, got)
	}

	for i := mm.Page(0); i < 3; i++ {
		if frame, ok := mapper.mapped[startPage+i]; !ok || frame != mm.Frame(0x2c000)+mm.Frame(i) {
			t.Errorf("expected page %d to map frame 0x%x; got 0x%x", startPage+i, uintptr(0x2c000+i), uintptr(frame))
		}
	}
}

func TestIdentityMapRegion(t *testing.T) {
	defer SetMapper(nil)

	mapper := newStubMapper()
	SetMapper(mapper)

	startPage, err := IdentityMapRegion(mm.Frame(0xe0), 0x20000, FlagPresent)
	if err != nil {
		t.Fatal(err)
	}

	if exp := mm.Page(0xe0); startPage != exp {
		t.Fatalf("expected identity mapping to start at page 0x%x; got 0x%x", uintptr(exp), uintptr(startPage))
	}

	if exp, got := 32, len(mapper.mapped); got != exp {
		t.Fatalf("expected %d pages to be mapped; got %d", exp, got)
	}

	if frame := mapper.mapped[mm.Page(0xe0)]; frame != mm.Frame(0xe0) {
		t.Fatalf("expected identity mapping for frame 0xe0; got 0x%x", uintptr(frame))
	}
}

func TestMapErrors(t *testing.T) {
	defer SetMapper(nil)

	SetMapper(nil)
	if err := Map(0, 0, FlagPresent); err != errNoMapper {
		t.Fatal("expected Map to fail when no mapper is registered")
	}

	expErr := &kernel.Error{Module: "test", Message: "map failed"}
	mapper := newStubMapper()
	mapper.mapErr = expErr
	SetMapper(mapper)

	if _, err := MapRegion(0, mm.PageSize, FlagPresent); err != expErr {
		t.Fatal("expected MapRegion to propagate the mapper error")
	}
	if _, err := IdentityMapRegion(0, mm.PageSize, FlagPresent); err != expErr {
		t.Fatal("expected IdentityMapRegion to propagate the mapper error")
	}
}

func TestLockReentryPanics(t *testing.T) {
	defer SetMapper(nil)

	mapper := newStubMapper()
	mapper.reentrant = true
	SetMapper(mapper)

	defer func() {
		if r := recover(); r != ErrLockReentry {
			t.Fatalf("expected re-entrant mapping to panic with ErrLockReentry; got %v", r)
		}
		pageTableLock.Release()
	}()

	Map(0, 0, FlagPresent)
}
