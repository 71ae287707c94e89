package tn3270

import (
	"testing"

	"github.com/dtg01100/pure3270-sub003/internal/buffer"
	"pgregory.net/rapid"
)

// TestCursorMovementStaysInBounds checks that no sequence of cursor
// movement actions ever drives the cursor address outside [0, Size()),
// the modular-addressing invariant spec.md section 3 requires of every
// buffer mutation.
func TestCursorMovementStaysInBounds(t *testing.T) {
	movers := []Action{
		CursorUp(), CursorDown(), CursorLeft(), CursorRight(),
		Tab(), BackTab(), Newline(), Home(), EndOfField(),
		NextWord(), PrevWord(),
	}

	rapid.Check(t, func(rt *rapid.T) {
		buf := buffer.New(24, 80, nil)
		flags := &modeFlags{}
		steps := rapid.IntRange(0, 50).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			a := movers[rapid.IntRange(0, len(movers)-1).Draw(rt, "action")]
			_, err := applyAction(buf, flags, a)
			if err != nil {
				rt.Fatalf("unexpected error: %v", err)
			}
			cur := buf.GetCursor()
			if cur < 0 || cur >= buf.Size() {
				rt.Fatalf("cursor %d out of bounds after %v", cur, a)
			}
		}
	})
}

// TestInsertThenDeleteIsIdentityOnOvertype checks that, outside insert
// mode, inserting a single character and then deleting it at the same
// position restores the field's prior content -- delete_char's
// shift-left should exactly undo a plain overtype write followed by a
// cursor retreat.
func TestInsertThenDeleteIsIdentityOnOvertype(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		buf := buffer.New(1, 80, nil)
		buf.SetFieldAttribute(0, false, false, buffer.DisplayNormal)
		for i := 1; i < 80; i++ {
			buf.Write(i, 0x40)
		}
		before := make([]byte, 80)
		for i := range before {
			before[i] = buf.CellByte(i)
		}

		pos := rapid.IntRange(1, 79).Draw(rt, "pos")
		buf.SetCursor(pos)
		flags := &modeFlags{}

		_, err := applyAction(buf, flags, InsertText("A"))
		if err != nil {
			rt.Fatalf("insert failed: %v", err)
		}
		buf.SetCursor(pos)
		_, err = applyAction(buf, flags, DeleteChar())
		if err != nil {
			rt.Fatalf("delete failed: %v", err)
		}

		for i := range before {
			if buf.CellByte(i) != before[i] {
				rt.Fatalf("cell %d changed: got %02X want %02X", i, buf.CellByte(i), before[i])
			}
		}
	})
}
