// Package kfmt provides a minimal, allocation-free Printf implementation that
// can be safely used at any point during kernel boot, even before the Go
// runtime has been fully bootstrapped.
package kfmt

import (
	"io"
)

// maxBufSize defines the buffer size for formatting numbers.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	// singleByte is used as a shared buffer for passing single characters
	// to doWrite.
	singleByte = []byte(" ")

	// numFmtBuf holds the digits of a formatted number in reverse order.
	numFmtBuf [maxBufSize]byte

	// earlyPrintBuffer buffers Printf output generated before an output
	// sink has been attached.
	earlyPrintBuffer ringBuffer

	// outputSink is the io.Writer where Printf sends its output. While nil,
	// output is redirected to earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the target for calls to Printf to w and copies any data
// accumulated in the early print buffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the current Printf output target. If no sink has been
// attached yet, the early print buffer is returned instead.
func GetOutputSink() io.Writer {
	if outputSink == nil {
		return &earlyPrintBuffer
	}
	return outputSink
}

// Printf formats its arguments and writes the result to the currently active
// output sink. It supports the following subset of fmt.Printf verbs:
//
//	%s string or byte slice
//	%o base 8 integer
//	%d base 10 integer
//	%x base 16 integer, lower-case
//	%t "true" or "false"
//
// An optional decimal width may precede the verb. Strings and base-10 values
// shorter than the width are left-padded with spaces; base-8 and base-16
// values are left-padded with zeroes.
//
// Pointer formatting (%p) is intentionally not supported as it would pull in
// the reflect package whose use of runtime.convT2E crashes the kernel before
// memory management is available.
func Printf(format string, args ...interface{}) {
	Fprintf(GetOutputSink(), format, args...)
}

// Fprintf behaves exactly like Printf but writes the formatted output to w.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		nextArgIndex int
		fmtLen       = len(format)
	)

	for i := 0; i < fmtLen; i++ {
		if format[i] != '%' {
			writeByte(w, format[i])
			continue
		}

		// Scan the optional width followed by the verb
		var padLen int
		i++
	parseFmt:
		for ; i < fmtLen; i++ {
			nextCh := format[i]
			switch {
			case nextCh == '%':
				writeByte(w, '%')
				break parseFmt
			case nextCh >= '0' && nextCh <= '9':
				padLen = (padLen * 10) + int(nextCh-'0')
				continue
			case nextCh == 'd' || nextCh == 'x' || nextCh == 'o' || nextCh == 's' || nextCh == 't':
				if nextArgIndex >= len(args) {
					doWrite(w, errMissingArg)
					break parseFmt
				}

				switch nextCh {
				case 'o':
					fmtInt(w, args[nextArgIndex], 8, padLen)
				case 'd':
					fmtInt(w, args[nextArgIndex], 10, padLen)
				case 'x':
					fmtInt(w, args[nextArgIndex], 16, padLen)
				case 's':
					fmtString(w, args[nextArgIndex], padLen)
				case 't':
					fmtBool(w, args[nextArgIndex])
				}

				nextArgIndex++
				break parseFmt
			default:
				doWrite(w, errNoVerb)
				break parseFmt
			}
		}
	}

	for ; nextArgIndex < len(args); nextArgIndex++ {
		doWrite(w, errExtraArg)
	}
}

// fmtBool prints a formatted version of boolean value v.
func fmtBool(w io.Writer, v interface{}) {
	bVal, isBool := v.(bool)
	if !isBool {
		doWrite(w, errWrongArgType)
		return
	}

	if bVal {
		doWrite(w, trueValue)
	} else {
		doWrite(w, falseValue)
	}
}

// fmtString prints a formatted version of string or []byte value v, applying
// the padding specified by padLen.
func fmtString(w io.Writer, v interface{}, padLen int) {
	switch castedVal := v.(type) {
	case string:
		fmtRepeat(w, ' ', padLen-len(castedVal))
		// converting the string to a byte slice triggers a memory
		// allocation so we need to do this one byte at a time.
		for i := 0; i < len(castedVal); i++ {
			writeByte(w, castedVal[i])
		}
	case []byte:
		fmtRepeat(w, ' ', padLen-len(castedVal))
		doWrite(w, castedVal)
	default:
		doWrite(w, errWrongArgType)
	}
}

// fmtRepeat writes count bytes with value ch.
func fmtRepeat(w io.Writer, ch byte, count int) {
	for i := 0; i < count; i++ {
		writeByte(w, ch)
	}
}

// fmtInt prints out a formatted version of v in the requested base, applying
// the padding specified by padLen. All built-in signed and unsigned integer
// types are supported.
func fmtInt(w io.Writer, v interface{}, base, padLen int) {
	var (
		uval     uint64
		negative bool
		padCh    byte = ' '
	)

	if base != 10 {
		padCh = '0'
	}

	switch val := v.(type) {
	case uint8:
		uval = uint64(val)
	case uint16:
		uval = uint64(val)
	case uint32:
		uval = uint64(val)
	case uint64:
		uval = val
	case uint:
		uval = uint64(val)
	case uintptr:
		uval = uint64(val)
	case int8:
		negative, uval = intAbs(int64(val))
	case int16:
		negative, uval = intAbs(int64(val))
	case int32:
		negative, uval = intAbs(int64(val))
	case int64:
		negative, uval = intAbs(val)
	case int:
		negative, uval = intAbs(int64(val))
	default:
		doWrite(w, errWrongArgType)
		return
	}

	digits := 0
	for {
		d := byte(uval % uint64(base))
		if d < 10 {
			numFmtBuf[digits] = '0' + d
		} else {
			numFmtBuf[digits] = 'a' + d - 10
		}
		digits++

		uval /= uint64(base)
		if uval == 0 {
			break
		}
	}

	if negative {
		numFmtBuf[digits] = '-'
		digits++
	}

	if padLen >= maxBufSize {
		padLen = maxBufSize - 1
	}
	fmtRepeat(w, padCh, padLen-digits)

	for i := digits - 1; i >= 0; i-- {
		writeByte(w, numFmtBuf[i])
	}
}

// intAbs splits a signed value into its sign and magnitude.
func intAbs(v int64) (negative bool, uval uint64) {
	if v < 0 {
		return true, uint64(-v)
	}
	return false, uint64(v)
}

func writeByte(w io.Writer, b byte) {
	singleByte[0] = b
	doWrite(w, singleByte)
}

func doWrite(w io.Writer, p []byte) {
	if w != nil {
		w.Write(p)
	}
}
