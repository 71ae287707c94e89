package datastream

import (
	"github.com/dtg01100/pure3270-sub003/internal/buffer"
	"github.com/dtg01100/pure3270-sub003/internal/wire"
)

// Structured field IDs the parser recognizes inside a Write Structured
// Field (WSF) command payload. Each field is self-describing (2-byte
// length prefix), so any ID not named here is simply skipped rather than
// rejected.
const (
	sfReadPartition byte = 0x01
	sfEraseReset    byte = 0x03
	sfSetReplyMode  byte = 0x09
	sfOutbound3270  byte = 0x40
)

// Read Partition query-type bytes (the byte following the partition ID
// in a Read Partition structured field).
const (
	rpQuery     byte = 0x02
	rpQueryList byte = 0x03
)

// decodeStructuredFields walks a WSF command's payload, which is a
// sequence of self-length-prefixed structured fields: a 2-byte length
// (including the length bytes themselves), a 1-byte ID, then ID-specific
// data.
func (p *Parser) decodeStructuredFields(data []byte) error {
	i := 0
	for i < len(data) {
		if i+2 > len(data) {
			return truncated("structured field length")
		}
		length := int(data[i])<<8 | int(data[i+1])
		if length < 3 || i+length > len(data) {
			return truncated("structured field body")
		}
		id := data[i+2]
		body := data[i+3 : i+length]

		switch id {
		case sfReadPartition:
			if len(body) >= 2 && (body[1] == rpQuery || body[1] == rpQueryList) {
				return QueryNeeded{ReplyModeOnly: body[1] == rpQueryList}
			}
		case sfEraseReset:
			p.buf.Clear()
		case sfOutbound3270:
			// An Outbound 3270DS field wraps an ordinary 3270 command
			// (partition-addressed); apply it the same way a plain Write
			// would be applied.
			if len(body) >= 3 {
				if err := p.decodeWrite(body[2:], false, false); err != nil {
					return err
				}
			}
		case sfSetReplyMode:
			// Reply mode (field/extended-field/character) affects only
			// how the terminal would encode a subsequent Read Modified
			// response; nothing to apply to the buffer itself here.
		}

		i += length
	}
	return nil
}

// Query Reply structured field ID and the device-characteristics type
// codes this client answers with (GA23-0059's QR_* reply types). Only the
// subset spec.md section 4.3 names is implemented.
const (
	sfQueryReply byte = 0x81

	qrSummary           byte = 0x80
	qrUsableArea        byte = 0x81
	qrAlphaPartitions   byte = 0x84
	qrColor             byte = 0x86
	qrHighlighting      byte = 0x87
	qrReplyModes        byte = 0x88
	qrImplicitPartition byte = 0x96
)

// aidStructuredField is the inbound AID value signalling "this response
// is entirely structured fields, not screen data" (GA23-0059's AID_SF).
const aidStructuredField wire.AID = 0x88

// EncodeQueryReply builds the terminal's response to a Read Partition
// Query (or Query List) structured field: a run of self-length-prefixed
// Query Reply fields describing the terminal's usable area, partition,
// color, and highlighting capabilities. replyModeOnly restricts the
// response to the Reply Modes field alone, per the Query List request's
// narrower scope.
func EncodeQueryReply(buf *buffer.Buffer, replyModeOnly bool) []byte {
	out := []byte{byte(aidStructuredField)}

	if replyModeOnly {
		out = append(out, queryReplyField(qrReplyModes, []byte{0x00, 0x01, 0x02})...)
		return out
	}

	rows, cols := buf.Dimensions()
	usableArea := []byte{
		0x01, 0x00, // flags: 12-bit addressing, character-cell units
		byte(cols >> 8), byte(cols),
		byte(rows >> 8), byte(rows),
		0x01, 0x00, // units per centimeter, x (placeholder cell geometry)
		0x01, 0x00, // units per centimeter, y
		byte(cols), byte(rows),
	}
	out = append(out, queryReplyField(qrUsableArea, usableArea)...)
	out = append(out, queryReplyField(qrAlphaPartitions, []byte{0x00, byte(rows), byte(cols), 0x00, 0x00})...)
	out = append(out, queryReplyField(qrColor, []byte{0x00, 0x08})...)
	out = append(out, queryReplyField(qrHighlighting, []byte{0x00, 0x04})...)
	out = append(out, queryReplyField(qrReplyModes, []byte{0x00, 0x01, 0x02})...)
	out = append(out, queryReplyField(qrImplicitPartition, []byte{0x00, 0x00, byte(cols >> 8), byte(cols), byte(rows >> 8), byte(rows)})...)
	out = append(out, queryReplyField(qrSummary, []byte{qrUsableArea, qrAlphaPartitions, qrColor, qrHighlighting, qrReplyModes, qrImplicitPartition})...)
	return out
}

// queryReplyField wraps payload in the 2-byte-length + ID + type framing
// common to every structured field this package emits.
func queryReplyField(queryType byte, payload []byte) []byte {
	length := 2 + 1 + 1 + len(payload)
	out := []byte{byte(length >> 8), byte(length), sfQueryReply, queryType}
	return append(out, payload...)
}

// EncodeReadModified builds the AID-stream response to a Read Modified
// (or Read Modified All) command: the triggering AID, the cursor
// address, then each modified field's address and content.
func EncodeReadModified(buf *buffer.Buffer, aid wire.AID) []byte {
	out := []byte{byte(aid)}
	addr := EncodeAddress12(buf.GetCursor())
	out = append(out, addr[0], addr[1])
	for _, f := range buf.Fields() {
		if !f.ModifiedData {
			continue
		}
		sba := EncodeAddress12(f.StartAddress)
		out = append(out, byte(wire.OrderSBA), sba[0], sba[1])
		out = append(out, buf.FieldContent(f)...)
	}
	return out
}

// EncodeReadBuffer builds the full unformatted Read Buffer response: the
// AID, the cursor address, then every cell in the buffer in order
// (preceded by an SF order at each field-attribute cell).
func EncodeReadBuffer(buf *buffer.Buffer, aid wire.AID) []byte {
	out := []byte{byte(aid)}
	addr := EncodeAddress12(buf.GetCursor())
	out = append(out, addr[0], addr[1])
	n := buf.Size()
	for i := 0; i < n; i++ {
		b := buf.CellByte(i)
		if buf.IsFieldAttributeAt(i) {
			out = append(out, byte(wire.OrderSF), b)
			continue
		}
		out = append(out, b)
	}
	return out
}
