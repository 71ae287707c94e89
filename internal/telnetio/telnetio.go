// Package telnetio implements the byte-level Telnet framing layer: IAC
// escaping/doubling and sub-negotiation buffering (RFC 854/855). It knows
// nothing about TN3270E option semantics -- internal/negotiate builds on
// top of the events this package emits.
package telnetio

import (
	"fmt"

	"github.com/charmbracelet/log"
)

// Telnet command bytes (RFC 854).
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	GA   byte = 249
	EOR  byte = 239 // RFC 885, sent as IAC EOR (not inside IAC SB/SE)
	SE   byte = 240
)

// EventKind tags the variants of Event (spec.md's "tagged union, not a
// string-keyed map" design note).
type EventKind int

const (
	EventData EventKind = iota
	EventEndOfRecord
	EventCommand
	EventSubNegotiation
)

// Event is one decoded unit from the Telnet byte stream.
type Event struct {
	Kind EventKind

	// Data holds the EventData payload: a run of plain (non-IAC) bytes.
	Data []byte

	// Command and Option hold the EventCommand payload: Command is one of
	// WILL/WONT/DO/DONT, Option is the negotiated option number.
	Command byte
	Option  byte

	// SubOption and SubData hold the EventSubNegotiation payload: SubOption
	// is the option the sub-negotiation concerns, SubData is everything
	// between it and the terminating IAC SE.
	SubOption byte
	SubData   []byte
}

func (e Event) String() string {
	switch e.Kind {
	case EventData:
		return fmt.Sprintf("Data(%d bytes)", len(e.Data))
	case EventEndOfRecord:
		return "EndOfRecord"
	case EventCommand:
		return fmt.Sprintf("Command(%02X %02X)", e.Command, e.Option)
	case EventSubNegotiation:
		return fmt.Sprintf("SubNegotiation(%02X, %d bytes)", e.SubOption, len(e.SubData))
	default:
		return "Event(?)"
	}
}

// decodeState names the Framer's position inside the current byte run.
type decodeState int

const (
	stateStream decodeState = iota
	stateSawIAC
	stateSawIACOption
	stateInSubnegotiation
	stateInSubnegotiationIAC
)

// Framer incrementally decodes a raw Telnet byte stream into Events. It
// is fed arbitrary-sized chunks as they arrive off the wire -- a read
// that splits an IAC sequence across two Feed calls is handled correctly
// by carrying decodeState between calls.
type Framer struct {
	state decodeState
	log   *log.Logger

	pendingCommand byte // WILL/WONT/DO/DONT awaiting its option byte
	subOption      byte
	subBuf         []byte
	dataBuf        []byte
}

// NewFramer creates an empty Framer. logger may be nil, in which case
// log.Default() is used.
func NewFramer(logger *log.Logger) *Framer {
	if logger == nil {
		logger = log.Default()
	}
	return &Framer{log: logger}
}

// Feed decodes the next chunk of raw bytes, returning every Event
// completed by this call. Consecutive data bytes are coalesced into one
// EventData, split only where a command, sub-negotiation or EOR
// intervenes; sub-negotiations and commands always
// terminate in a single Feed call or carry over internally until they
// do.
func (f *Framer) Feed(chunk []byte) ([]Event, error) {
	var events []Event

	flushData := func() {
		if len(f.dataBuf) > 0 {
			events = append(events, Event{Kind: EventData, Data: f.dataBuf})
			f.dataBuf = nil
		}
	}

	for _, b := range chunk {
		switch f.state {
		case stateStream:
			if b == IAC {
				f.state = stateSawIAC
				continue
			}
			f.dataBuf = append(f.dataBuf, b)

		case stateSawIAC:
			switch b {
			case IAC:
				// Escaped literal 0xFF.
				f.dataBuf = append(f.dataBuf, IAC)
				f.state = stateStream
			case WILL, WONT, DO, DONT:
				flushData()
				f.pendingCommand = b
				f.state = stateSawIACOption
			case SB:
				flushData()
				f.subBuf = nil
				f.state = stateInSubnegotiation
			case EOR:
				flushData()
				events = append(events, Event{Kind: EventEndOfRecord})
				f.state = stateStream
			case GA:
				flushData()
				f.state = stateStream
			default:
				// Other commands (NOP, BRK, etc.) with no further
				// payload: surface as a Command event with Option 0.
				flushData()
				events = append(events, Event{Kind: EventCommand, Command: b})
				f.state = stateStream
			}

		case stateSawIACOption:
			flushData()
			events = append(events, Event{Kind: EventCommand, Command: f.pendingCommand, Option: b})
			f.state = stateStream

		case stateInSubnegotiation:
			if b == IAC {
				f.state = stateInSubnegotiationIAC
				continue
			}
			f.subBuf = append(f.subBuf, b)

		case stateInSubnegotiationIAC:
			switch b {
			case SE:
				var opt byte
				var data []byte
				if len(f.subBuf) > 0 {
					opt = f.subBuf[0]
					data = f.subBuf[1:]
				}
				events = append(events, Event{Kind: EventSubNegotiation, SubOption: opt, SubData: data})
				f.subBuf = nil
				f.state = stateStream
			case IAC:
				f.subBuf = append(f.subBuf, IAC)
				f.state = stateInSubnegotiation
			default:
				// Malformed: IAC inside a subnegotiation followed by
				// something other than IAC or SE. Treat as end, matching
				// the donor's "unexpected -- treat as end" fallback.
				f.log.Warn("malformed telnet subnegotiation, ending early", "byte", b)
				var opt byte
				var data []byte
				if len(f.subBuf) > 0 {
					opt = f.subBuf[0]
					data = f.subBuf[1:]
				}
				events = append(events, Event{Kind: EventSubNegotiation, SubOption: opt, SubData: data})
				f.subBuf = nil
				f.state = stateStream
			}
		}
	}

	flushData()
	return events, nil
}

// EncodeData escapes a data payload for the wire by doubling any literal
// IAC byte.
func EncodeData(p []byte) []byte {
	out := make([]byte, 0, len(p))
	for _, b := range p {
		if b == IAC {
			out = append(out, IAC, IAC)
			continue
		}
		out = append(out, b)
	}
	return out
}

// EncodeEndOfRecord appends the IAC EOR marker used by binary TN3270
// sessions to delimit logical records.
func EncodeEndOfRecord(p []byte) []byte {
	return append(EncodeData(p), IAC, EOR)
}

// EncodeCommand builds a 3-byte IAC command sequence, e.g. IAC DO
// option.
func EncodeCommand(command, option byte) []byte {
	return []byte{IAC, command, option}
}

// EncodeSubNegotiation wraps data in IAC SB option ... IAC SE, doubling
// any literal IAC bytes inside data.
func EncodeSubNegotiation(option byte, data []byte) []byte {
	out := []byte{IAC, SB, option}
	out = append(out, EncodeData(data)...)
	out = append(out, IAC, SE)
	return out
}
