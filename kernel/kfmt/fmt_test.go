package kfmt

import (
	"bytes"
	"testing"
)

func TestFprintf(t *testing.T) {
	specs := []struct {
		format string
		args   []interface{}
		exp    string
	}{
		{"no verbs", nil, "no verbs"},
		{"literal %%", nil, "literal %"},
		{"%s and %s", []interface{}{"foo", []byte("bar")}, "foo and bar"},
		{"%6s|", []interface{}{"abc"}, "   abc|"},
		{"%d", []interface{}{42}, "42"},
		{"%d", []interface{}{int8(-1)}, "-1"},
		{"%5d|", []interface{}{123}, "  123|"},
		{"%x", []interface{}{uint32(0xfee00000)}, "fee00000"},
		{"%8x|", []interface{}{uintptr(0xe0000)}, "000e0000|"},
		{"%o", []interface{}{uint8(8)}, "10"},
		{"%t %t", []interface{}{true, false}, "true false"},
		{"%t", []interface{}{"not a bool"}, "%!(WRONGTYPE)"},
		{"%d", nil, "(MISSING)"},
		{"%q", []interface{}{1}, "%!(NOVERB)%!(EXTRA)"},
		{"done", []interface{}{1}, "done%!(EXTRA)"},
	}

	var buf bytes.Buffer
	for specIndex, spec := range specs {
		buf.Reset()
		Fprintf(&buf, spec.format, spec.args...)
		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestEarlyPrintBuffer(t *testing.T) {
	defer func() {
		outputSink = nil
		earlyPrintBuffer.rIndex = 0
		earlyPrintBuffer.wIndex = 0
	}()
	outputSink = nil

	Printf("buffered: %d\n", 1)

	var buf bytes.Buffer
	SetOutputSink(&buf)

	if exp, got := "buffered: 1\n", buf.String(); got != exp {
		t.Fatalf("expected early output %q to be copied to the sink; got %q", exp, got)
	}

	Printf("direct: %d\n", 2)
	if exp, got := "buffered: 1\ndirect: 2\n", buf.String(); got != exp {
		t.Fatalf("expected output %q; got %q", exp, got)
	}
}

func TestPrefixWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &PrefixWriter{Sink: &buf, Prefix: []byte("[acpi] ")}

	w.Write([]byte("first line\nsecond "))
	w.Write([]byte("line\n"))

	if exp, got := "[acpi] first line\n[acpi] second line\n", buf.String(); got != exp {
		t.Fatalf("expected output %q; got %q", exp, got)
	}
}
