// Package tn3270 is a pure-Go TN3270/TN3270E terminal client: it dials a
// host, negotiates Telnet and TN3270E options, keeps a 3270 screen
// buffer current, and lets a caller drive the keyboard via Action
// values. See SPEC_FULL.md for the protocol scope this implements.
package tn3270

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/dtg01100/pure3270-sub003/config"
	"github.com/dtg01100/pure3270-sub003/internal/buffer"
	"github.com/dtg01100/pure3270-sub003/internal/codepage"
	"github.com/dtg01100/pure3270-sub003/internal/datastream"
	"github.com/dtg01100/pure3270-sub003/internal/negotiate"
	"github.com/dtg01100/pure3270-sub003/internal/telnetio"
	"github.com/dtg01100/pure3270-sub003/internal/wire"
)

// Session is a single TN3270/TN3270E connection to a host. It owns the
// negotiation state machine, the screen buffer, and the background
// reader that keeps the buffer current between calls to SendAction and
// ReadScreen.
type Session struct {
	cfg config.Config
	log *log.Logger

	mu     sync.Mutex
	conn   net.Conn
	framer *telnetio.Framer
	neg    *negotiate.Negotiator
	parser *datastream.Parser
	buf    *buffer.Buffer
	flags  modeFlags
	seq    uint16

	cancel   context.CancelFunc
	group    *errgroup.Group
	done     chan struct{}
	closeErr error
}

// NewSession creates a Session from cfg. Connect must be called before
// any other method is used.
func NewSession(cfg config.Config, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{cfg: cfg, log: logger}
}

// Connect dials address ("host:port"), negotiates TN3270/TN3270E (or
// falls back to basic TN3270 or NVT per the configured timing profile
// and force mode), and starts the background reader/watchdog pair that
// keeps the screen buffer current.
func (s *Session) Connect(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return newError(StateError, "session already connected", nil)
	}

	conn, err := s.dial(ctx, address)
	if err != nil {
		return newError(IOError, "dial failed", err)
	}

	cp := codepage.Default()
	if s.cfg.CodePage != "" {
		if found, ok := codepage.Get(s.cfg.CodePage); ok {
			cp = found
		}
	}

	deviceType := s.cfg.DeviceType
	if s.cfg.PrinterSession {
		deviceType = "IBM-3287-1"
	}

	s.conn = conn
	s.framer = telnetio.NewFramer(s.log)
	s.neg = negotiate.New(deviceType, forceModeOf(s.cfg.ForceMode), s.log)
	s.buf = buffer.New(s.cfg.Rows, s.cfg.Cols, cp)
	s.buf.SetCircumventProtection(s.cfg.CircumventProtection)
	s.parser = datastream.NewParser(s.buf)
	s.flags = modeFlags{}

	overall, step := s.cfg.Deadlines(time.Now())
	s.neg.SetDeadlines(overall, step)

	if err := s.negotiateLoop(overall); err != nil {
		_ = conn.Close()
		s.conn = nil
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(runCtx)
	s.cancel = cancel
	s.group = g
	s.done = make(chan struct{})

	g.Go(func() error {
		defer cancel()
		return s.readLoop(gctx)
	})
	g.Go(func() error { return s.watchdog(gctx) })

	go func() {
		s.closeErr = g.Wait()
		close(s.done)
	}()

	return nil
}

func (s *Session) dial(ctx context.Context, address string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	if !s.cfg.TLS {
		return conn, nil
	}
	host, _, splitErr := net.SplitHostPort(address)
	if splitErr != nil {
		host = address
	}
	return tls.Client(conn, &tls.Config{ServerName: host}), nil
}

func forceModeOf(m config.ForceMode) negotiate.ForceMode {
	switch m {
	case config.ForceTN3270E:
		return negotiate.ForceTN3270E
	case config.ForceTN3270:
		return negotiate.ForceTN3270
	case config.ForceNVT:
		return negotiate.ForceNVT
	default:
		return negotiate.ForceAuto
	}
}

// negotiateLoop drives the synchronous handshake: read a chunk, feed it
// to the framer, hand Telnet command/sub-negotiation events to the
// negotiator, write back whatever it produces, and repeat until the
// negotiator reaches a ready state or overallDeadline passes. It runs
// before the background reader starts, so it owns conn exclusively.
func (s *Session) negotiateLoop(overallDeadline time.Time) error {
	var stray []byte
	readBuf := make([]byte, 4096)

	for {
		if s.neg.State().ready() {
			return nil
		}
		if s.neg.State().terminal() {
			return newError(NegotiationFailure, "peer closed connection during negotiation", nil)
		}

		step := time.Now().Add(2 * time.Second)
		if step.After(overallDeadline) {
			step = overallDeadline
		}
		if err := s.conn.SetReadDeadline(step); err != nil {
			return newError(IOError, "set read deadline", err)
		}

		n, err := s.conn.Read(readBuf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				if cerr := s.neg.CheckTimeout(time.Now()); cerr != nil {
					return newError(StateError, "negotiation fallback failed", cerr)
				}
				if !s.neg.State().ready() && time.Now().After(overallDeadline) {
					return newError(NegotiationFailure, "negotiation deadline exceeded", nil)
				}
				continue
			}
			return newError(IOError, "read during negotiation", err)
		}
		if n == 0 {
			s.neg.Close()
			return newError(NegotiationFailure, "peer closed connection during negotiation", nil)
		}

		events, ferr := s.framer.Feed(readBuf[:n])
		if ferr != nil {
			return newError(IOError, "telnet framing error", ferr)
		}
		for _, ev := range events {
			switch ev.Kind {
			case telnetio.EventCommand, telnetio.EventSubNegotiation:
				out, herr := s.neg.HandleEvent(ev)
				if herr != nil {
					return newError(StateError, "negotiation error", herr)
				}
				if len(out) > 0 {
					if _, werr := s.conn.Write(out); werr != nil {
						return newError(IOError, "write during negotiation", werr)
					}
				}
				// Each negotiation step gets its own step timeout.
				_, stepDeadline := s.cfg.Deadlines(time.Now())
				s.neg.SetDeadlines(overallDeadline, stepDeadline)
			case telnetio.EventData:
				stray = append(stray, ev.Data...)
			case telnetio.EventEndOfRecord:
				stray = nil
			}
		}
	}
}

// readLoop is the background goroutine that keeps reading off conn
// after negotiation completes, feeding decoded records into the screen
// buffer and answering structured-field queries as they arrive. An
// empty read (peer close) drives the negotiator to Closed in the same
// tick, per the connection-loss lifecycle rule.
func (s *Session) readLoop(ctx context.Context) error {
	var record []byte
	readBuf := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(30 * time.Second)); err != nil {
			return newError(IOError, "set read deadline", err)
		}
		n, err := s.conn.Read(readBuf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			s.mu.Lock()
			s.neg.Close()
			s.mu.Unlock()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return newError(IOError, "read failed", err)
		}
		if n == 0 {
			s.mu.Lock()
			s.neg.Close()
			s.mu.Unlock()
			return nil
		}

		events, ferr := s.framer.Feed(readBuf[:n])
		if ferr != nil {
			return newError(IOError, "telnet framing error", ferr)
		}
		for _, ev := range events {
			switch ev.Kind {
			case telnetio.EventCommand, telnetio.EventSubNegotiation:
				s.mu.Lock()
				out, herr := s.neg.HandleEvent(ev)
				var werr error
				if herr == nil && len(out) > 0 {
					_, werr = s.conn.Write(out)
				}
				s.mu.Unlock()
				if herr != nil {
					return newError(StateError, "negotiation error after handshake", herr)
				}
				if werr != nil {
					return newError(IOError, "write failed", werr)
				}
			case telnetio.EventData:
				record = append(record, ev.Data...)
			case telnetio.EventEndOfRecord:
				rec := record
				record = nil
				if err := s.handleRecord(rec); err != nil {
					return err
				}
			}
		}
	}
}

// watchdog exits (and so tears the whole errgroup down) as soon as its
// context is cancelled, which happens when readLoop returns or Close is
// called -- the reader and watchdog always stop together.
func (s *Session) watchdog(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// handleRecord decodes one complete Telnet record -- stripping the
// TN3270E header first if the session negotiated full TN3270E mode --
// and applies it to the screen buffer, answering a Query structured
// field inline if the host asked for one.
func (s *Session) handleRecord(record []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload := record
	dataType := wire.DataType3270Data
	if s.neg.State() == negotiate.TN3270Ready {
		h, ok := wire.DecodeHeader(record)
		if !ok {
			return nil
		}
		dataType = h.DataType
		payload = record[wire.HeaderLen:]
	}

	switch dataType {
	case wire.DataType3270Data:
		err := s.parser.Decode(payload)
		var qn datastream.QueryNeeded
		if errors.As(err, &qn) {
			reply := datastream.EncodeQueryReply(s.buf, qn.ReplyModeOnly)
			return s.sendFramed(reply, wire.DataType3270Data)
		}
		if err != nil {
			dsErr := classifyDataStreamError(err)
			s.log.Warn("data stream decode error", "kind", dsErr.Kind, "msg", dsErr.Msg)
		}
	case wire.DataTypeNVTData:
		s.log.Debug("NVT data ignored", "bytes", len(payload))
	default:
		s.log.Debug("unhandled TN3270E data type", "type", dataType)
	}
	return nil
}

// sendFramed wraps payload in a TN3270E header (if the session
// negotiated full TN3270E mode) and an EOR marker, then writes it.
// Callers must hold s.mu.
func (s *Session) sendFramed(payload []byte, dataType byte) error {
	out := payload
	if s.neg.State() == negotiate.TN3270Ready {
		s.seq++
		h := wire.Header{DataType: dataType, SeqNumber: s.seq}
		out = append(h.Encode(), payload...)
	}
	_, err := s.conn.Write(telnetio.EncodeEndOfRecord(out))
	return err
}

// SendAction applies a keyboard action to the screen buffer and, if the
// action triggers a host-bound transmission (Enter/PF/PA/Clear/SysReq),
// sends it.
func (s *Session) SendAction(a Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || s.neg == nil || s.neg.State() == negotiate.Closed {
		return newError(NotConnected, "session not connected", nil)
	}

	effect, err := applyAction(s.buf, &s.flags, a)
	if err != nil {
		return err
	}
	if !effect.triggered {
		return nil
	}

	var payload []byte
	if effect.fullRead {
		payload = datastream.EncodeReadModified(s.buf, effect.aid)
	} else {
		payload = []byte{byte(effect.aid)}
	}
	if err := s.sendFramed(payload, wire.DataType3270Data); err != nil {
		return newError(IOError, "send action failed", err)
	}
	return nil
}

// ReadScreen renders the current screen buffer as a slice of one string
// per row.
func (s *Session) ReadScreen() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		return nil, newError(NotConnected, "session not connected", nil)
	}
	return s.buf.AsciiRender(), nil
}

// NegotiationState reports the negotiator's current state.
func (s *Session) NegotiationState() negotiate.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.neg == nil {
		return negotiate.Disconnected
	}
	return s.neg.State()
}

// Trace raises or lowers the session's log verbosity to Debug level,
// the equivalent of s3270's -trace option.
func (s *Session) Trace(on bool) {
	if on {
		s.log.SetLevel(log.DebugLevel)
	} else {
		s.log.SetLevel(log.InfoLevel)
	}
}

// Close tears down the connection and stops the background reader and
// watchdog goroutines. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	cancel := s.cancel
	done := s.done
	if s.neg != nil {
		s.neg.Close()
	}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if done != nil {
		<-done
	}

	s.mu.Lock()
	s.conn = nil
	s.mu.Unlock()
	return nil
}
