// Package wire holds the byte-level vocabulary of the TN3270/TN3270E wire
// protocol: AID codes, order bytes, Telnet option numbers, and the
// TN3270E message header. It has no behavior of its own -- datastream and
// negotiate both import it so that neither has to import the other.
package wire

import "fmt"

// AID is an Attention Identifier: the one-byte code identifying which key
// (Enter/PFn/PAn/Clear/SysReq) triggered an inbound transmission.
type AID byte

// AID code points, per GA23-0059 and spec.md section 6.
const (
	AIDNoAID  AID = 0x60
	AIDEnter  AID = 0x7D
	AIDClear  AID = 0x6D
	AIDSysReq AID = 0xF0
	AIDPA1    AID = 0x6C
	AIDPA2    AID = 0x6E
	AIDPA3    AID = 0x6B
	AIDPF1    AID = 0xF1
	AIDPF2    AID = 0xF2
	AIDPF3    AID = 0xF3
	AIDPF4    AID = 0xF4
	AIDPF5    AID = 0xF5
	AIDPF6    AID = 0xF6
	AIDPF7    AID = 0xF7
	AIDPF8    AID = 0xF8
	AIDPF9    AID = 0xF9
	AIDPF10   AID = 0x7A
	AIDPF11   AID = 0x7B
	AIDPF12   AID = 0x7C
	AIDPF13   AID = 0xC1
	AIDPF14   AID = 0xC2
	AIDPF15   AID = 0xC3
	AIDPF16   AID = 0xC4
	AIDPF17   AID = 0xC5
	AIDPF18   AID = 0xC6
	AIDPF19   AID = 0xC7
	AIDPF20   AID = 0xC8
	AIDPF21   AID = 0xC9
	AIDPF22   AID = 0x4A
	AIDPF23   AID = 0x4B
	AIDPF24   AID = 0x4C
)

var aidNames = map[AID]string{
	AIDNoAID: "NO_AID", AIDEnter: "ENTER", AIDClear: "CLEAR",
	AIDSysReq: "SYSREQ", AIDPA1: "PA1", AIDPA2: "PA2", AIDPA3: "PA3",
	AIDPF1: "PF1", AIDPF2: "PF2", AIDPF3: "PF3", AIDPF4: "PF4",
	AIDPF5: "PF5", AIDPF6: "PF6", AIDPF7: "PF7", AIDPF8: "PF8",
	AIDPF9: "PF9", AIDPF10: "PF10", AIDPF11: "PF11", AIDPF12: "PF12",
	AIDPF13: "PF13", AIDPF14: "PF14", AIDPF15: "PF15", AIDPF16: "PF16",
	AIDPF17: "PF17", AIDPF18: "PF18", AIDPF19: "PF19", AIDPF20: "PF20",
	AIDPF21: "PF21", AIDPF22: "PF22", AIDPF23: "PF23", AIDPF24: "PF24",
}

// String returns a debug-friendly name for the AID, e.g. "ENTER" or
// "PF7". Unknown AID bytes render as a hex literal.
func (a AID) String() string {
	if name, ok := aidNames[a]; ok {
		return name
	}
	return fmt.Sprintf("AID(0x%02X)", byte(a))
}

// PF returns the AID for PF key n (1-24), or false if n is out of range.
func PF(n int) (AID, bool) {
	switch {
	case n >= 1 && n <= 9:
		return AID(0xF0 + byte(n)), true
	case n >= 10 && n <= 12:
		return AID(0x7A - 10 + byte(n)), true
	case n >= 13 && n <= 21:
		return AID(0xC1 - 13 + byte(n)), true
	case n == 22:
		return AIDPF22, true
	case n == 23:
		return AIDPF23, true
	case n == 24:
		return AIDPF24, true
	}
	return AIDNoAID, false
}

// PA returns the AID for PA key n (1-3), or false if n is out of range.
func PA(n int) (AID, bool) {
	switch n {
	case 1:
		return AIDPA1, true
	case 2:
		return AIDPA2, true
	case 3:
		return AIDPA3, true
	}
	return AIDNoAID, false
}

// Order is a 3270 order byte, consumed inside a Write command's payload.
type Order byte

// Order bytes per spec.md section 6.
const (
	OrderSF  Order = 0x1D // Start Field
	OrderSFE Order = 0x29 // Start Field Extended
	OrderSBA Order = 0x11 // Set Buffer Address
	OrderSA  Order = 0x28 // Set Attribute
	OrderIC  Order = 0x13 // Insert Cursor
	OrderPT  Order = 0x05 // Program Tab
	OrderRA  Order = 0x3C // Repeat to Address
	OrderEUA Order = 0x12 // Erase Unprotected to Address
	OrderMF  Order = 0x2C // Modify Field
	OrderGE  Order = 0x08 // Graphic Escape
)

// Command is the first byte of an outbound (host-to-terminal) 3270
// command, following any TN3270E header.
type Command byte

const (
	CmdWrite         Command = 0xF1
	CmdEraseWrite    Command = 0xF5
	CmdEraseWriteAlt Command = 0x7E
	CmdEraseAllUnp   Command = 0x6F
	CmdWriteStructd  Command = 0xF3
	CmdReadBuffer    Command = 0xF2
	CmdReadModified  Command = 0xF6
	CmdReadModAll    Command = 0x6E
	CmdNOP           Command = 0x03
)

// Write Control Character bit masks (first byte following a Write command).
const (
	WCCResetMDT        byte = 0x01
	WCCKeyboardRestore byte = 0x02
	WCCSoundAlarm      byte = 0x04
	WCCStartPrinter    byte = 0x08
	WCCReset           byte = 0x40
)

// Telnet option numbers relevant to TN3270/TN3270E (RFC 854/855/1576/2355).
const (
	OptBinary  byte = 0
	OptEcho    byte = 1
	OptSGA     byte = 3
	OptTType   byte = 24
	OptEOR     byte = 25
	OptTN3270E byte = 40
)

// TN3270E sub-negotiation message types (RFC 2355 section 4).
const (
	TN3270EAssociate  byte = 0
	TN3270EConnect    byte = 1
	TN3270EDeviceType byte = 2
	TN3270EFunctions  byte = 3
	TN3270EIs         byte = 4
	TN3270EReason     byte = 5
	TN3270EReject     byte = 6
	TN3270ERequest    byte = 7
	TN3270ESend       byte = 8
)

// TTYPE sub-negotiation message types (RFC 1091).
const (
	TTypeSend byte = 0
	TTypeIs   byte = 1
)

// Function is a single bit in the TN3270E function bitmap negotiated
// between client and host.
type Function uint8

const (
	FuncBindImage     Function = 1 << 0
	FuncDataStreamCtl Function = 1 << 1
	FuncResponses     Function = 1 << 2
	FuncSCSCtlCodes   Function = 1 << 3
	FuncSysReq        Function = 1 << 4
)

var functionBytes = []struct {
	fn   Function
	code byte
}{
	{FuncBindImage, 0},
	{FuncDataStreamCtl, 1},
	{FuncResponses, 2},
	{FuncSCSCtlCodes, 3},
	{FuncSysReq, 4},
}

// EncodeFunctions converts a Function bitmap into the wire-format list of
// function code bytes used in a FUNCTIONS REQUEST/IS sub-negotiation.
func EncodeFunctions(fns Function) []byte {
	var out []byte
	for _, fb := range functionBytes {
		if fns&fb.fn != 0 {
			out = append(out, fb.code)
		}
	}
	return out
}

// DecodeFunctions converts a wire-format list of function code bytes into
// a Function bitmap. Unknown codes are silently ignored (per spec.md
// section 4.5's "unknown sub-option codes are logged and acknowledged").
func DecodeFunctions(codes []byte) Function {
	var fns Function
	for _, c := range codes {
		for _, fb := range functionBytes {
			if fb.code == c {
				fns |= fb.fn
			}
		}
	}
	return fns
}

// Header is the 5-byte TN3270E message header prepended to each
// data-stream record once full TN3270E mode is negotiated, whichever
// TN3270E functions were agreed.
type Header struct {
	DataType     byte
	RequestFlag  byte
	ResponseFlag byte
	SeqNumber    uint16
}

// TN3270E DATA-TYPE values (RFC 2355 section 3.1).
const (
	DataType3270Data byte = 0
	DataTypeSCSData  byte = 1
	DataTypeResponse byte = 2
	DataTypeBindImg  byte = 3
	DataTypeUnbind   byte = 4
	DataTypeNVTData  byte = 5
	DataTypeRequest  byte = 6
	DataTypeSSCPLU   byte = 7
	DataTypePrintEOJ byte = 8
)

// HeaderLen is the on-wire size of a TN3270E header.
const HeaderLen = 5

// Encode serializes the header to its 5-byte wire form.
func (h Header) Encode() []byte {
	return []byte{
		h.DataType, h.RequestFlag, h.ResponseFlag,
		byte(h.SeqNumber >> 8), byte(h.SeqNumber),
	}
}

// DecodeHeader parses a 5-byte TN3270E header. ok is false if b is too
// short.
func DecodeHeader(b []byte) (h Header, ok bool) {
	if len(b) < HeaderLen {
		return Header{}, false
	}
	return Header{
		DataType:     b[0],
		RequestFlag:  b[1],
		ResponseFlag: b[2],
		SeqNumber:    uint16(b[3])<<8 | uint16(b[4]),
	}, true
}
