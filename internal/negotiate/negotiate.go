// Package negotiate implements the Telnet option and TN3270E
// sub-negotiation state machine: it consumes internal/telnetio Events
// and produces outbound byte sequences plus NegotiationState
// transitions. It is a pure synchronous state machine -- it never reads
// a socket or sleeps; the session drives it with events and clock
// checks.
package negotiate

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dtg01100/pure3270-sub003/internal/telnetio"
	"github.com/dtg01100/pure3270-sub003/internal/wire"
)

// State is a NegotiationState value (spec.md section 3's tagged variant).
type State int

const (
	Disconnected State = iota
	TcpOpen
	TelnetNegotiating
	TN3270EOffered
	TN3270ESubnegotiating
	TN3270Ready
	BasicTN3270Ready
	NVTMode
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case TcpOpen:
		return "TcpOpen"
	case TelnetNegotiating:
		return "TelnetNegotiating"
	case TN3270EOffered:
		return "TN3270EOffered"
	case TN3270ESubnegotiating:
		return "TN3270ESubnegotiating"
	case TN3270Ready:
		return "TN3270Ready"
	case BasicTN3270Ready:
		return "BasicTN3270Ready"
	case NVTMode:
		return "NVTMode"
	case Closing:
		return "Closing"
	case Closed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// terminal reports whether s accepts no further transitions.
func (s State) terminal() bool { return s == Closed }

// ready reports whether s is one of the three states in which the
// session may process ordinary 3270/NVT traffic.
func (s State) ready() bool {
	return s == TN3270Ready || s == BasicTN3270Ready || s == NVTMode
}

// transitions lists, for each state, the states it may validly move to.
// Any move not listed here is a StateError (spec.md section 4.5's
// "every transition is validated" invariant).
var transitions = map[State][]State{
	Disconnected:          {TcpOpen, Closed},
	TcpOpen:               {TelnetNegotiating, BasicTN3270Ready, NVTMode, Closing, Closed},
	TelnetNegotiating:     {TN3270EOffered, BasicTN3270Ready, NVTMode, Closing, Closed},
	TN3270EOffered:        {TN3270ESubnegotiating, BasicTN3270Ready, NVTMode, Closing, Closed},
	TN3270ESubnegotiating: {TN3270Ready, BasicTN3270Ready, NVTMode, Closing, Closed},
	TN3270Ready:           {Closing, Closed},
	BasicTN3270Ready:      {Closing, Closed},
	NVTMode:               {Closing, Closed},
	Closing:               {Closed},
	Closed:                {},
}

// StateError reports an attempted transition not present in transitions.
type StateError struct {
	From, To State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("negotiate: invalid transition %s -> %s", e.From, e.To)
}

// optionFlags tracks the DO/DONT/WILL/WONT history of a single Telnet
// option, mirroring the per-option flag bitmap style used by real
// Telnet servers to avoid re-offering an option the peer already
// acknowledged.
type optionFlags uint8

const (
	flagWill optionFlags = 1 << iota
	flagWont
	flagDo
	flagDont
)

// Snapshot is an immutable view of the negotiator's agreed state, safe
// to hand to callers outside the reader task.
type Snapshot struct {
	State      State
	DeviceType string
	LUName     string
	Functions  wire.Function
	Options    map[byte]bool // option -> true if WILL/DO agreed by both sides
}

// Negotiator drives the TN3270/TN3270E negotiation state machine.
type Negotiator struct {
	state State
	log   *log.Logger

	options [256]optionFlags

	deviceType       string
	luName           string
	requestedDevice  string
	functions        wire.Function
	requestedFuncs   wire.Function
	functionsRound   int
	forceMode        ForceMode

	overallDeadline time.Time
	stepDeadline    time.Time
}

// ForceMode overrides auto-negotiation, per spec.md's `force_mode`
// configuration option.
type ForceMode int

const (
	ForceAuto ForceMode = iota
	ForceTN3270E
	ForceTN3270
	ForceNVT
)

// New creates a Negotiator that will advertise deviceType when asked,
// already in TcpOpen: the caller creates it once the socket is
// connected.
func New(deviceType string, forceMode ForceMode, logger *log.Logger) *Negotiator {
	if logger == nil {
		logger = log.Default()
	}
	return &Negotiator{
		state:           TcpOpen,
		log:             logger,
		requestedDevice: deviceType,
		forceMode:       forceMode,
	}
}

// State returns the current NegotiationState.
func (n *Negotiator) State() State { return n.state }

// Snapshot returns an immutable view of the negotiator's state.
func (n *Negotiator) Snapshot() Snapshot {
	opts := make(map[byte]bool, 4)
	for _, o := range []byte{wire.OptBinary, wire.OptEOR, wire.OptSGA, wire.OptTType, wire.OptTN3270E} {
		opts[o] = n.options[o]&flagWill != 0 && n.options[o]&flagDo != 0
	}
	return Snapshot{
		State:      n.state,
		DeviceType: n.deviceType,
		LUName:     n.luName,
		Functions:  n.functions,
		Options:    opts,
	}
}

func (n *Negotiator) transition(to State) error {
	for _, allowed := range transitions[n.state] {
		if allowed == to {
			n.log.Debug("negotiation transition", "from", n.state, "to", to)
			n.state = to
			return nil
		}
	}
	err := &StateError{From: n.state, To: to}
	n.log.Error("invalid negotiation transition", "from", n.state, "to", to)
	return err
}

// SetDeadlines records the absolute step and overall deadlines the
// caller computed from the configured timing profile.
func (n *Negotiator) SetDeadlines(overall, step time.Time) {
	n.overallDeadline = overall
	n.stepDeadline = step
}

// CheckTimeout inspects now against the recorded deadlines and, if
// exceeded, drives the fallback transition described by spec.md section
// 4.5 point 3: basic TN3270 if BINARY+EOR+TTYPE are agreed, else NVT.
// It is a no-op once the negotiator has reached a ready or closed state.
func (n *Negotiator) CheckTimeout(now time.Time) error {
	if n.state.ready() || n.state.terminal() {
		return nil
	}
	overallExceeded := !n.overallDeadline.IsZero() && now.After(n.overallDeadline)
	stepExceeded := !n.stepDeadline.IsZero() && now.After(n.stepDeadline)
	if !overallExceeded && !stepExceeded {
		return nil
	}
	return n.fallback()
}

func (n *Negotiator) fallback() error {
	if n.basicReady() {
		n.log.Warn("TN3270E negotiation did not complete in time, falling back to basic TN3270")
		return n.transition(BasicTN3270Ready)
	}
	n.log.Warn("3270 negotiation unreachable, falling back to NVT mode")
	return n.transition(NVTMode)
}

func (n *Negotiator) basicReady() bool {
	agreed := func(opt byte) bool {
		return n.options[opt]&flagWill != 0 && n.options[opt]&flagDo != 0
	}
	return agreed(wire.OptBinary) && agreed(wire.OptEOR) && agreed(wire.OptTType)
}

// HandleEvent processes one Telnet event and returns the bytes (already
// Telnet-framed) the caller should write back, if any.
func (n *Negotiator) HandleEvent(ev telnetio.Event) ([]byte, error) {
	if n.state.ready() || n.state.terminal() {
		return nil, nil
	}
	if n.state == TcpOpen {
		if err := n.transition(TelnetNegotiating); err != nil {
			return nil, err
		}
	}

	switch ev.Kind {
	case telnetio.EventCommand:
		return n.handleCommand(ev.Command, ev.Option)
	case telnetio.EventSubNegotiation:
		return n.handleSubNegotiation(ev.SubOption, ev.SubData)
	default:
		return nil, nil
	}
}

func (n *Negotiator) handleCommand(cmd, opt byte) ([]byte, error) {
	switch cmd {
	case telnetio.DO:
		return n.handleDo(opt)
	case telnetio.WILL:
		return n.handleWill(opt)
	case telnetio.DONT:
		n.options[opt] |= flagDont
		return nil, nil
	case telnetio.WONT:
		n.options[opt] |= flagWont
		return nil, nil
	}
	return nil, nil
}

func (n *Negotiator) handleDo(opt byte) ([]byte, error) {
	n.options[opt] |= flagDo
	switch opt {
	case wire.OptTN3270E:
		if n.forceMode == ForceTN3270 || n.forceMode == ForceNVT {
			n.options[opt] |= flagWont
			return telnetio.EncodeCommand(telnetio.WONT, opt), nil
		}
		n.options[opt] |= flagWill
		if err := n.transition(TN3270EOffered); err != nil {
			return nil, err
		}
		out := telnetio.EncodeCommand(telnetio.WILL, opt)
		out = append(out, telnetio.EncodeSubNegotiation(wire.OptTN3270E,
			[]byte{wire.TN3270ESend, wire.TN3270EDeviceType})...)
		return out, nil
	case wire.OptTType, wire.OptBinary, wire.OptEOR, wire.OptSGA:
		n.options[opt] |= flagWill
		return telnetio.EncodeCommand(telnetio.WILL, opt), nil
	default:
		n.options[opt] |= flagWont
		return telnetio.EncodeCommand(telnetio.WONT, opt), nil
	}
}

func (n *Negotiator) handleWill(opt byte) ([]byte, error) {
	n.options[opt] |= flagWill
	switch opt {
	case wire.OptBinary, wire.OptEOR:
		n.options[opt] |= flagDo
		return telnetio.EncodeCommand(telnetio.DO, opt), nil
	default:
		n.options[opt] |= flagDont
		return telnetio.EncodeCommand(telnetio.DONT, opt), nil
	}
}

func (n *Negotiator) handleSubNegotiation(opt byte, data []byte) ([]byte, error) {
	switch opt {
	case wire.OptTType:
		return n.handleTType(data)
	case wire.OptTN3270E:
		return n.handleTN3270E(data)
	default:
		n.log.Warn("unknown sub-negotiation option, acknowledging with empty response", "option", opt)
		return telnetio.EncodeSubNegotiation(opt, nil), nil
	}
}

func (n *Negotiator) handleTType(data []byte) ([]byte, error) {
	if len(data) == 0 || data[0] != wire.TTypeSend {
		return nil, nil
	}
	payload := append([]byte{wire.TTypeIs}, []byte(n.requestedDevice)...)
	return telnetio.EncodeSubNegotiation(wire.OptTType, payload), nil
}

func (n *Negotiator) handleTN3270E(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	switch data[0] {
	case wire.TN3270EDeviceType:
		return n.handleDeviceTypeIs(data[1:])
	case wire.TN3270EFunctions:
		return n.handleFunctions(data[1:])
	default:
		n.log.Warn("unknown TN3270E sub-option, acknowledging and continuing", "code", data[0])
		return telnetio.EncodeSubNegotiation(wire.OptTN3270E, nil), nil
	}
}

// handleDeviceTypeIs parses `IS <type> [CONNECT <lu>]` and begins the
// FUNCTIONS exchange.
func (n *Negotiator) handleDeviceTypeIs(data []byte) ([]byte, error) {
	if len(data) == 0 || data[0] != wire.TN3270EIs {
		return nil, nil
	}
	rest := data[1:]
	var typeBytes, luBytes []byte
	if idx := indexOf(rest, wire.TN3270EConnect); idx >= 0 {
		typeBytes, luBytes = rest[:idx], rest[idx+1:]
	} else {
		typeBytes = rest
	}
	n.deviceType = string(typeBytes)
	n.luName = string(luBytes)

	if err := n.transition(TN3270ESubnegotiating); err != nil {
		return nil, err
	}
	n.requestedFuncs = wire.FuncBindImage | wire.FuncResponses | wire.FuncSysReq
	n.functionsRound = 1
	payload := append([]byte{wire.TN3270EFunctions, wire.TN3270ERequest}, wire.EncodeFunctions(n.requestedFuncs)...)
	return telnetio.EncodeSubNegotiation(wire.OptTN3270E, payload), nil
}

// handleFunctions parses `REQUEST <bitmap>` or `IS <bitmap>`, intersects
// with our own request, and converges within two rounds (spec.md
// section 4.5 point 2).
func (n *Negotiator) handleFunctions(data []byte) ([]byte, error) {
	if len(data) < 1 {
		return nil, nil
	}
	msgType, codes := data[0], data[1:]
	peerFuncs := wire.DecodeFunctions(codes)

	switch msgType {
	case wire.TN3270ERequest:
		agreed := n.requestedFuncs & peerFuncs
		n.functions = agreed
		payload := append([]byte{wire.TN3270EFunctions, wire.TN3270EIs}, wire.EncodeFunctions(agreed)...)
		if err := n.transition(TN3270Ready); err != nil {
			return nil, err
		}
		return telnetio.EncodeSubNegotiation(wire.OptTN3270E, payload), nil
	case wire.TN3270EIs:
		n.functions = n.requestedFuncs & peerFuncs
		if n.functions == peerFuncs || n.functionsRound >= 2 {
			return nil, n.transition(TN3270Ready)
		}
		n.functionsRound++
		n.requestedFuncs = n.functions
		payload := append([]byte{wire.TN3270EFunctions, wire.TN3270ERequest}, wire.EncodeFunctions(n.requestedFuncs)...)
		return telnetio.EncodeSubNegotiation(wire.OptTN3270E, payload), nil
	}
	return nil, nil
}

func indexOf(b []byte, target byte) int {
	for i, v := range b {
		if v == target {
			return i
		}
	}
	return -1
}

// Close transitions the negotiator to Closed from any non-terminal
// state, matching spec.md's "Closed is terminal" lifecycle rule.
func (n *Negotiator) Close() {
	if n.state == Closed {
		return
	}
	if n.state != Closing {
		_ = n.transition(Closing)
	}
	_ = n.transition(Closed)
}
