package buffer

import (
	"testing"

	"github.com/dtg01100/pure3270-sub003/internal/codepage"
	"github.com/stretchr/testify/require"
)

func TestAddrWraparound(t *testing.T) {
	b := New(24, 80, nil)
	require.Equal(t, 0, b.Addr(1920))
	require.Equal(t, 1919, b.Addr(-1))
	require.Equal(t, 4, b.Addr(1924))
}

func TestWriteProtectedFieldInhibitsKeyboard(t *testing.T) {
	b := New(24, 80, nil)
	b.SetFieldAttribute(0, true, false, DisplayNormal)
	b.Write(1, 0xC1)
	require.True(t, b.KeyboardInhibited())
	require.Equal(t, codepage.EBCDICSpace, b.CellByte(1))
}

func TestCircumventProtectionAllowsWrite(t *testing.T) {
	b := New(24, 80, nil)
	b.SetFieldAttribute(0, true, false, DisplayNormal)
	b.SetCircumventProtection(true)
	b.Write(1, 0xC1)
	require.False(t, b.KeyboardInhibited())
	require.Equal(t, byte(0xC1), b.CellByte(1))
}

func TestFieldAttributeHiddenFromRender(t *testing.T) {
	// Seed scenario: a field-attribute byte at address 160 (row 2, col 0
	// on an 80-column screen) always renders as space, and the field it
	// opens starts at 161.
	b := New(24, 80, nil)
	b.SetFieldAttribute(160, false, false, DisplayNormal)

	rows := b.AsciiRender()
	require.Equal(t, byte(' '), rows[2][0])

	fields := b.Fields()
	var found bool
	for _, f := range fields {
		if f.StartAddress == 161 {
			found = true
		}
	}
	require.True(t, found, "expected a field starting at 161")
}

func TestMarkModifiedSetsFieldMDT(t *testing.T) {
	b := New(24, 80, nil)
	b.SetFieldAttribute(0, false, false, DisplayNormal)
	b.Write(1, 0xC1)

	fields := b.Fields()
	require.Len(t, fields, 1)
	require.True(t, fields[0].ModifiedData)
}

func TestEraseUnprotectedSkipsProtectedFields(t *testing.T) {
	b := New(24, 80, nil)
	b.SetFieldAttribute(0, true, false, DisplayNormal)  // protected field, cols 1-5
	b.SetFieldAttribute(6, false, false, DisplayNormal) // unprotected field, cols 7+
	b.circumventProtection = true
	for i := 1; i <= 5; i++ {
		b.Write(i, 0xC1)
	}
	b.Write(7, 0xC2)
	b.circumventProtection = false

	b.EraseUnprotected()

	for i := 1; i <= 5; i++ {
		require.Equal(t, byte(0xC1), b.CellByte(i), "protected cell should be untouched")
	}
	require.Equal(t, codepage.EBCDICSpace, b.CellByte(7))
}

func TestRepeatToAddressWraparound(t *testing.T) {
	// Seed scenario: 24x80 buffer, fill from 1900 up to address 4 with
	// EBCDIC space. Cells 1900..1919 then 0..3 become space; cell 4 keeps
	// its old byte.
	b := New(24, 80, nil)
	for i := range make([]int, 1920) {
		b.Write(i, 0xC1)
	}
	b.RepeatToAddress(1900, 4, codepage.EBCDICSpace)

	for i := 1900; i < 1920; i++ {
		require.Equal(t, codepage.EBCDICSpace, b.CellByte(i))
	}
	for i := 0; i < 4; i++ {
		require.Equal(t, codepage.EBCDICSpace, b.CellByte(i))
	}
	require.Equal(t, byte(0xC1), b.CellByte(4))
}

func TestSnapshotIsIndependent(t *testing.T) {
	b := New(24, 80, nil)
	b.Write(0, 0xC1)
	snap := b.Snapshot()
	b.Write(0, 0xC2)

	require.Equal(t, byte(0xC1), snap.CellByte(0))
	require.Equal(t, byte(0xC2), b.CellByte(0))
}

func TestNoFieldAttributesMeansOneImplicitUnprotectedField(t *testing.T) {
	b := New(24, 80, nil)
	fields := b.Fields()
	require.Len(t, fields, 1)
	require.Equal(t, 0, fields[0].StartAddress)
	require.Equal(t, b.Size(), fields[0].Length)
	require.False(t, fields[0].Protected)
}
