package datastream

import (
	"testing"

	"github.com/dtg01100/pure3270-sub003/internal/buffer"
	"github.com/dtg01100/pure3270-sub003/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestDecodeAddress12Bit(t *testing.T) {
	// Seed scenario: SBA 0x40 0xC1 -- top bits 01 select 12-bit mode,
	// address = (0x00 << 6) | 0x01 = 1.
	addr, bits := DecodeAddress(0x40, 0xC1)
	require.Equal(t, 1, addr)
	require.Equal(t, 12, bits)
}

func TestDecodeAddress14Bit(t *testing.T) {
	addr, bits := DecodeAddress(0x00, 0x04)
	require.Equal(t, 4, addr)
	require.Equal(t, 14, bits)
}

func TestSBAOrderMovesCursor(t *testing.T) {
	buf := buffer.New(24, 80, nil)
	p := NewParser(buf)

	// Each Write starts at the cursor, so IC must follow SBA in the same
	// Write; a later Write without IC leaves the cursor where it is.
	cmd := []byte{byte(wire.CmdWrite), 0x00, byte(wire.OrderSBA), 0x40, 0xC1, byte(wire.OrderIC)}
	require.NoError(t, p.Decode(cmd))

	cmd = []byte{byte(wire.CmdWrite), 0x00}
	require.NoError(t, p.Decode(cmd))
	require.Equal(t, 1, buf.GetCursor())
}

func TestRAOrderWraparound(t *testing.T) {
	// Seed scenario: 24x80 buffer, cursor at 1900. Apply RA to address 4
	// with EBCDIC space. Cells 1900..1919 then 0..3 become space; the
	// parser's write address moves to 4 (the cursor itself is unchanged).
	buf := buffer.New(24, 80, nil)
	buf.SetCircumventProtection(true)
	for i := 0; i < buf.Size(); i++ {
		buf.Write(i, 0xC1)
	}
	buf.SetCursor(1900)

	p := NewParser(buf)
	addr := EncodeAddress14(4)
	cmd := append([]byte{byte(wire.CmdWrite), 0x00, byte(wire.OrderRA)}, addr[0], addr[1], ebcdicSpace)
	require.NoError(t, p.Decode(cmd))

	for i := 1900; i < 1920; i++ {
		require.Equal(t, ebcdicSpace, buf.CellByte(i))
	}
	for i := 0; i < 4; i++ {
		require.Equal(t, ebcdicSpace, buf.CellByte(i))
	}
}

func TestSFThenWriteSetsMDTOnRead(t *testing.T) {
	// Seed scenario S4: protected field "USER:" at address 0, unprotected
	// field at address 6. User input at address 7 marks that field
	// modified, and EncodeReadModified emits an SBA + the typed bytes.
	buf := buffer.New(1, 80, nil)
	p := NewParser(buf)

	write := []byte{
		byte(wire.CmdWrite), 0x00,
		byte(wire.OrderSF), 0x20, // protected field at 0
	}
	require.NoError(t, p.Decode(write))

	sba := EncodeAddress12(6)
	write2 := []byte{
		byte(wire.CmdWrite), 0x00,
		byte(wire.OrderSBA), sba[0], sba[1],
		byte(wire.OrderSF), 0x00, // unprotected field at 6
	}
	require.NoError(t, p.Decode(write2))

	buf.Write(7, 0xC1)
	buf.Write(8, 0xC2)
	buf.Write(9, 0xC3)

	out := EncodeReadModified(buf, wire.AIDEnter)
	require.Equal(t, byte(wire.AIDEnter), out[0])
	require.Equal(t, byte(wire.OrderSBA), out[3])
}

func TestHostWriteIntoProtectedFieldIsNotDropped(t *testing.T) {
	// A host drawing a label ("USER:") writes data bytes into the
	// protected field it just defined with SF. Host-originated content
	// must land regardless of protection -- only user input respects it.
	buf := buffer.New(1, 80, nil)
	p := NewParser(buf)

	write := []byte{byte(wire.CmdWrite), 0x00, byte(wire.OrderSF), 0x20}
	write = append(write, []byte("USER:")...)
	require.NoError(t, p.Decode(write))

	for i, want := range []byte("USER:") {
		require.Equal(t, want, buf.CellByte(i+1))
	}
}

func TestHostPrefillDoesNotSetMDT(t *testing.T) {
	// A host pre-filling an unprotected field's default value must not
	// set that field's MDT -- MDT tracks user modification only, not
	// host content (spec.md section 4.2).
	buf := buffer.New(1, 80, nil)
	p := NewParser(buf)

	write := []byte{byte(wire.CmdWrite), 0x00, byte(wire.OrderSF), 0x00}
	write = append(write, []byte("def")...)
	require.NoError(t, p.Decode(write))

	out := EncodeReadModified(buf, wire.AIDEnter)
	// Only the AID byte and cursor position should appear -- no
	// SBA/field-content block for a field the user never touched.
	require.Len(t, out, 3)
}

func TestUnknownCommandIsUnknownOrderError(t *testing.T) {
	buf := buffer.New(24, 80, nil)
	p := NewParser(buf)
	err := p.Decode([]byte{0xAB})
	var dsErr *Error
	require.ErrorAs(t, err, &dsErr)
	require.Equal(t, ErrUnknownOrder, dsErr.Kind)
}

func TestTruncatedWCCIsTruncatedError(t *testing.T) {
	buf := buffer.New(24, 80, nil)
	p := NewParser(buf)
	err := p.Decode([]byte{byte(wire.CmdWrite)})
	var dsErr *Error
	require.ErrorAs(t, err, &dsErr)
	require.Equal(t, ErrTruncated, dsErr.Kind)
}

func TestReadPartitionQueryReturnsQueryNeeded(t *testing.T) {
	buf := buffer.New(24, 80, nil)
	p := NewParser(buf)

	payload := []byte{0x00, 0x05, sfReadPartition, 0xFF, rpQuery}
	cmd := append([]byte{byte(wire.CmdWriteStructd)}, payload...)
	err := p.Decode(cmd)

	var qn QueryNeeded
	require.ErrorAs(t, err, &qn)
}

func TestEncodeQueryReplyStartsWithStructuredFieldAID(t *testing.T) {
	buf := buffer.New(24, 80, nil)
	out := EncodeQueryReply(buf, false)
	require.Equal(t, byte(aidStructuredField), out[0])
	require.Equal(t, sfQueryReply, out[3])
	require.Equal(t, qrUsableArea, out[4])
}

func TestEncodeQueryReplyModeOnlyOmitsOtherFields(t *testing.T) {
	buf := buffer.New(24, 80, nil)
	out := EncodeQueryReply(buf, true)
	require.Equal(t, qrReplyModes, out[4])
	require.Len(t, out, 1+2+1+1+3) // AID + length + ID + type + 3-byte payload
}

const ebcdicSpace byte = 0x40
