package tn3270

import (
	"testing"

	"github.com/dtg01100/pure3270-sub003/internal/buffer"
	"github.com/dtg01100/pure3270-sub003/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestApplyActionEnterTriggersFullReadModified(t *testing.T) {
	buf := buffer.New(24, 80, nil)
	flags := &modeFlags{}

	effect, err := applyAction(buf, flags, Enter())
	require.NoError(t, err)
	require.True(t, effect.triggered)
	require.True(t, effect.fullRead)
	require.Equal(t, wire.AIDEnter, effect.aid)
}

func TestApplyActionPFOutOfRangeErrors(t *testing.T) {
	buf := buffer.New(24, 80, nil)
	flags := &modeFlags{}

	_, err := applyAction(buf, flags, PF(25))
	require.Error(t, err)
}

func TestApplyActionPASendsBareAID(t *testing.T) {
	buf := buffer.New(24, 80, nil)
	flags := &modeFlags{}

	effect, err := applyAction(buf, flags, PA(1))
	require.NoError(t, err)
	require.True(t, effect.triggered)
	require.False(t, effect.fullRead)
	require.Equal(t, wire.AIDPA1, effect.aid)
}

func TestApplyActionClearErasesBufferAndSendsAID(t *testing.T) {
	buf := buffer.New(1, 80, nil)
	buf.SetCircumventProtection(true)
	buf.Write(0, 0xC1)
	flags := &modeFlags{}

	effect, err := applyAction(buf, flags, Clear())
	require.NoError(t, err)
	require.Equal(t, wire.AIDClear, effect.aid)
	require.False(t, effect.fullRead)
	require.Equal(t, byte(0x40), buf.CellByte(0))
}

func TestApplyActionCursorMovementWraps(t *testing.T) {
	buf := buffer.New(1, 80, nil)
	buf.SetCursor(0)
	flags := &modeFlags{}

	_, err := applyAction(buf, flags, CursorLeft())
	require.NoError(t, err)
	require.Equal(t, 79, buf.GetCursor())
}

func TestApplyActionTabMovesToNextUnprotectedField(t *testing.T) {
	buf := buffer.New(1, 80, nil)
	buf.SetFieldAttribute(0, true, false, buffer.DisplayNormal)   // protected
	buf.SetFieldAttribute(10, false, false, buffer.DisplayNormal) // unprotected
	buf.SetCursor(0)
	flags := &modeFlags{}

	_, err := applyAction(buf, flags, Tab())
	require.NoError(t, err)
	require.Equal(t, 11, buf.GetCursor())
}

func TestApplyActionInsertTextOvertypesByDefault(t *testing.T) {
	buf := buffer.New(1, 80, nil)
	buf.SetCircumventProtection(true)
	buf.SetCursor(5)
	flags := &modeFlags{}

	_, err := applyAction(buf, flags, InsertText("AB"))
	require.NoError(t, err)
	require.Equal(t, byte(0xC1), buf.CellByte(5))
	require.Equal(t, byte(0xC2), buf.CellByte(6))
	require.Equal(t, 7, buf.GetCursor())
}

func TestApplyActionInsertModeShiftsFieldRight(t *testing.T) {
	buf := buffer.New(1, 80, nil)
	buf.SetFieldAttribute(0, false, false, buffer.DisplayNormal)
	buf.Write(1, 0xC1) // 'A'
	buf.Write(2, 0xC2) // 'B'
	buf.SetCursor(1)

	flags := &modeFlags{}
	_, err := applyAction(buf, flags, InsertMode(true))
	require.NoError(t, err)
	require.True(t, flags.insertMode)

	_, err = applyAction(buf, flags, InsertText("X"))
	require.NoError(t, err)
	require.Equal(t, byte(0xE7), buf.CellByte(1)) // 'X' in CP037 EBCDIC, placed at the cursor
	require.Equal(t, byte(0xC1), buf.CellByte(2)) // shifted 'A'
}

func TestApplyActionDeleteCharShiftsFieldLeft(t *testing.T) {
	buf := buffer.New(1, 80, nil)
	buf.SetFieldAttribute(0, false, false, buffer.DisplayNormal)
	buf.Write(1, 0xC1)
	buf.Write(2, 0xC2)
	buf.SetCursor(1)

	flags := &modeFlags{}
	_, err := applyAction(buf, flags, DeleteChar())
	require.NoError(t, err)
	require.Equal(t, byte(0xC2), buf.CellByte(1))
	require.Equal(t, byte(0x40), buf.CellByte(2))
}

func TestApplyActionCircumventProtectionTogglesBuffer(t *testing.T) {
	buf := buffer.New(1, 80, nil)
	buf.SetFieldAttribute(0, true, false, buffer.DisplayNormal)
	flags := &modeFlags{}

	_, err := applyAction(buf, flags, CircumventProtection(true))
	require.NoError(t, err)

	buf.Write(0, 0xC1)
	require.False(t, buf.KeyboardInhibited())
}
