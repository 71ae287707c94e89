package tn3270

import (
	"github.com/dtg01100/pure3270-sub003/internal/buffer"
	"github.com/dtg01100/pure3270-sub003/internal/wire"
)

// ActionKind enumerates the s3270-equivalent operations a caller can
// perform against a session (spec.md section 4.7). Modeling this as an
// enum plus a pure dispatch function, rather than a string-keyed map of
// closures, is a direct answer to spec.md section 9's "avoid open
// polymorphism" design note.
type ActionKind int

const (
	ActionEnter ActionKind = iota
	ActionPF
	ActionPA
	ActionClear
	ActionSysReq
	ActionReset

	ActionCursorUp
	ActionCursorDown
	ActionCursorLeft
	ActionCursorRight
	ActionTab
	ActionBackTab
	ActionNewline
	ActionHome
	ActionEndOfField
	ActionNextWord
	ActionPrevWord

	ActionInsertText
	ActionDeleteChar
	ActionEraseEOF
	ActionEraseInput

	ActionSetInsertMode
	ActionSetCircumventProtection
)

// Action is a single requested operation. Only the fields relevant to
// Kind are read: N for ActionPF/ActionPA, Text for ActionInsertText, On
// for the two mode-flag actions.
type Action struct {
	Kind ActionKind
	N    int
	Text string
	On   bool
}

// Convenience constructors -- these are what SendAction callers actually
// write, e.g. Session.SendAction(PF(3)).

func Enter() Action                       { return Action{Kind: ActionEnter} }
func PF(n int) Action                     { return Action{Kind: ActionPF, N: n} }
func PA(n int) Action                     { return Action{Kind: ActionPA, N: n} }
func Clear() Action                       { return Action{Kind: ActionClear} }
func SysReq() Action                      { return Action{Kind: ActionSysReq} }
func Reset() Action                       { return Action{Kind: ActionReset} }
func CursorUp() Action                    { return Action{Kind: ActionCursorUp} }
func CursorDown() Action                  { return Action{Kind: ActionCursorDown} }
func CursorLeft() Action                  { return Action{Kind: ActionCursorLeft} }
func CursorRight() Action                 { return Action{Kind: ActionCursorRight} }
func Tab() Action                         { return Action{Kind: ActionTab} }
func BackTab() Action                     { return Action{Kind: ActionBackTab} }
func Newline() Action                     { return Action{Kind: ActionNewline} }
func Home() Action                        { return Action{Kind: ActionHome} }
func EndOfField() Action                  { return Action{Kind: ActionEndOfField} }
func NextWord() Action                    { return Action{Kind: ActionNextWord} }
func PrevWord() Action                    { return Action{Kind: ActionPrevWord} }
func InsertText(s string) Action          { return Action{Kind: ActionInsertText, Text: s} }
func DeleteChar() Action                  { return Action{Kind: ActionDeleteChar} }
func EraseEOF() Action                    { return Action{Kind: ActionEraseEOF} }
func EraseInput() Action                  { return Action{Kind: ActionEraseInput} }
func InsertMode(on bool) Action           { return Action{Kind: ActionSetInsertMode, On: on} }
func CircumventProtection(on bool) Action { return Action{Kind: ActionSetCircumventProtection, On: on} }

// modeFlags holds insert mode, one of the two session-scoped mode bits
// spec.md section 4.7 names; the other, circumvent protection, is kept
// on the Buffer itself. Resolved Open Question 4 (see DESIGN.md) scopes
// both to the session, not the individual action call.
type modeFlags struct {
	insertMode bool
}

// aidSend describes the outbound transmission an action triggers, if
// any. Enter/PF send a full Read-Modified stream; Clear/PA/SysReq send
// the bare AID with no field data, matching real 3270 terminal behavior.
type aidSend struct {
	aid       wire.AID
	fullRead  bool
	triggered bool
}

// applyAction is the pure function from (action, buffer+flags) to
// effect that spec.md section 9 asks for in place of open polymorphism.
// It mutates buf and flags in place and reports what, if anything,
// should be transmitted to the host.
func applyAction(buf *buffer.Buffer, flags *modeFlags, a Action) (aidSend, error) {
	switch a.Kind {
	case ActionEnter:
		return aidSend{aid: wire.AIDEnter, fullRead: true, triggered: true}, nil

	case ActionPF:
		aid, ok := wire.PF(a.N)
		if !ok {
			return aidSend{}, newError(IOError, "pf key out of range 1-24", nil)
		}
		return aidSend{aid: aid, fullRead: true, triggered: true}, nil

	case ActionPA:
		aid, ok := wire.PA(a.N)
		if !ok {
			return aidSend{}, newError(IOError, "pa key out of range 1-3", nil)
		}
		return aidSend{aid: aid, fullRead: false, triggered: true}, nil

	case ActionClear:
		buf.Clear()
		return aidSend{aid: wire.AIDClear, fullRead: false, triggered: true}, nil

	case ActionSysReq:
		return aidSend{aid: wire.AIDSysReq, fullRead: false, triggered: true}, nil

	case ActionReset:
		buf.ClearKeyboardInhibit()
		return aidSend{}, nil

	case ActionCursorUp:
		moveCursor(buf, -colsOf(buf))
	case ActionCursorDown:
		moveCursor(buf, colsOf(buf))
	case ActionCursorLeft:
		moveCursor(buf, -1)
	case ActionCursorRight:
		moveCursor(buf, 1)
	case ActionTab:
		buf.SetCursor(buf.NextUnprotected(buf.GetCursor()))
	case ActionBackTab:
		buf.SetCursor(prevUnprotected(buf, buf.GetCursor()))
	case ActionNewline:
		doNewline(buf)
	case ActionHome:
		buf.SetCursor(buf.NextUnprotected(buf.Addr(-1)))
	case ActionEndOfField:
		if f, ok := buf.FieldAt(buf.GetCursor()); ok {
			buf.SetCursor(buf.Addr(f.StartAddress + f.Length - 1))
		}
	case ActionNextWord:
		buf.SetCursor(findWordBoundary(buf, buf.GetCursor(), 1))
	case ActionPrevWord:
		buf.SetCursor(findWordBoundary(buf, buf.GetCursor(), -1))

	case ActionInsertText:
		insertText(buf, flags, a.Text)
	case ActionDeleteChar:
		deleteChar(buf)
	case ActionEraseEOF:
		buf.EraseToEndOfField()
	case ActionEraseInput:
		buf.EraseUnprotected()

	case ActionSetInsertMode:
		flags.insertMode = a.On
	case ActionSetCircumventProtection:
		buf.SetCircumventProtection(a.On)
	}
	return aidSend{}, nil
}

func colsOf(buf *buffer.Buffer) int {
	_, cols := buf.Dimensions()
	return cols
}

func moveCursor(buf *buffer.Buffer, delta int) {
	buf.SetCursor(buf.Addr(buf.GetCursor() + delta))
}

// doNewline moves to column 0 of the next row, then forward to the first
// unprotected position at or after it (classic 3270 Newline behavior).
func doNewline(buf *buffer.Buffer) {
	cols := colsOf(buf)
	row := buf.GetCursor() / cols
	target := buf.Addr((row + 1) * cols)
	if f, ok := buf.FieldAt(target); buf.IsFieldAttributeAt(target) || (ok && f.Protected) {
		target = buf.NextUnprotected(buf.Addr(target - 1))
	}
	buf.SetCursor(target)
}

// prevUnprotected scans backward for the start of the nearest unprotected
// field before from, wrapping around the buffer -- the mirror image of
// Buffer.NextUnprotected, which only searches forward.
func prevUnprotected(buf *buffer.Buffer, from int) int {
	fields := buf.Fields()
	if len(fields) == 0 {
		return from
	}
	n := buf.Size()
	best := -1
	bestDist := n + 1
	for _, f := range fields {
		if f.Protected {
			continue
		}
		dist := buf.Addr(from - f.StartAddress - 1)
		if dist < bestDist {
			bestDist = dist
			best = f.StartAddress
		}
	}
	if best == -1 {
		return from
	}
	return best
}

const ebcdicSpace byte = 0x40

// findWordBoundary walks dir (+1 or -1) cells from from looking for a
// content/space transition, wrapping at the buffer edge.
func findWordBoundary(buf *buffer.Buffer, from, dir int) int {
	n := buf.Size()
	pos := from
	sawContent := false
	for i := 0; i < n; i++ {
		pos = buf.Addr(pos + dir)
		isSpace := buf.IsFieldAttributeAt(pos) || buf.CellByte(pos) == ebcdicSpace
		if !isSpace {
			sawContent = true
		} else if sawContent {
			return pos
		}
	}
	return from
}

// insertText encodes s with the buffer's code page and writes it one
// byte at a time starting at the cursor, either overtyping or shifting
// right depending on insertMode. When the cursor sits on a field-
// attribute cell it first moves to the next unprotected field. A byte
// typed into a protected field's data cell is not moved on: Buffer.Write
// rejects it and sets keyboard inhibit, and the cursor still advances.
func insertText(buf *buffer.Buffer, flags *modeFlags, s string) {
	for _, b := range buf.Codepage().Encode(s) {
		if buf.IsFieldAttributeAt(buf.GetCursor()) {
			buf.SetCursor(buf.NextUnprotected(buf.GetCursor()))
		}
		if flags.insertMode {
			insertByteAt(buf, buf.GetCursor(), b)
		} else {
			buf.Write(buf.GetCursor(), b)
			buf.SetCursor(buf.Addr(buf.GetCursor() + 1))
		}
	}
}

// insertByteAt shifts the field containing addr one cell to the right
// (dropping its last cell) to make room for b at addr.
func insertByteAt(buf *buffer.Buffer, addr int, b byte) {
	f, ok := buf.FieldAt(addr)
	if !ok {
		buf.Write(addr, b)
		buf.SetCursor(buf.Addr(addr + 1))
		return
	}
	end := buf.Addr(f.StartAddress + f.Length - 1)
	pos := end
	for pos != addr {
		prev := buf.Addr(pos - 1)
		buf.Write(pos, buf.CellByte(prev))
		pos = prev
	}
	buf.Write(addr, b)
	buf.SetCursor(buf.Addr(addr + 1))
}

// deleteChar shifts the remainder of the current field one cell left,
// filling the vacated end-of-field cell with space.
func deleteChar(buf *buffer.Buffer) {
	f, ok := buf.FieldAt(buf.GetCursor())
	if !ok {
		return
	}
	end := buf.Addr(f.StartAddress + f.Length - 1)
	pos := buf.GetCursor()
	for pos != end {
		next := buf.Addr(pos + 1)
		buf.Write(pos, buf.CellByte(next))
		pos = next
	}
	buf.Write(end, ebcdicSpace)
}
