package hal

import (
	"bytes"
	"io"
	"testing"

	"helios/device"
	"helios/kernel"
	"helios/kernel/kfmt"
)

type testDriver struct {
	name    string
	initErr *kernel.Error
	inited  bool
}

func (d *testDriver) DriverName() string { return d.name }
func (d *testDriver) DriverVersion() (uint16, uint16, uint16) {
	return 1, 0, 0
}
func (d *testDriver) DriverInit(w io.Writer) *kernel.Error {
	d.inited = true
	return d.initErr
}

func TestProbe(t *testing.T) {
	defer func() {
		activeDrivers = nil
		kfmt.SetOutputSink(nil)
	}()

	var out bytes.Buffer
	kfmt.SetOutputSink(&out)

	good := &testDriver{name: "good"}
	bad := &testDriver{name: "bad", initErr: &kernel.Error{Module: "bad", Message: "no hardware"}}

	probe(device.DriverInfoList{
		{Probe: func() device.Driver { return nil }},
		{Probe: func() device.Driver { return good }},
		{Probe: func() device.Driver { return bad }},
	})

	if !good.inited || !bad.inited {
		t.Fatal("expected both probed drivers to be initialized")
	}
	if len(activeDrivers) != 1 || activeDrivers[0] != device.Driver(good) {
		t.Fatalf("expected only the successful driver to be tracked; got %v", activeDrivers)
	}

	if !bytes.Contains(out.Bytes(), []byte("[hal] good(1.0.0): initialized")) {
		t.Fatalf("expected the successful driver to be logged; got %q", out.String())
	}
	if !bytes.Contains(out.Bytes(), []byte("[hal] bad(1.0.0): init failed: no hardware")) {
		t.Fatalf("expected the failed driver to be logged; got %q", out.String())
	}
}
