// Package buffer implements the 3270 presentation space: a fixed grid of
// EBCDIC cells with field structure discovered by scanning the grid, not
// stored as an independent table (spec.md section 3).
package buffer

import "github.com/dtg01100/pure3270-sub003/internal/codepage"

// Color is an extended-attribute foreground/background color. Inherit
// means "use the containing field's color," the default per spec.md
// section 3.
type Color byte

const (
	ColorInherit Color = iota
	ColorBlue
	ColorRed
	ColorPink
	ColorGreen
	ColorTurquoise
	ColorYellow
	ColorWhite
)

// Highlight is an extended-attribute display emphasis.
type Highlight byte

const (
	HighlightInherit Highlight = iota
	HighlightBlink
	HighlightReverse
	HighlightUnderscore
)

// CharacterSet selects an alternate character set for a cell (e.g. the
// APL/graphic-escape set); Inherit defers to the field's character set.
type CharacterSet byte

const (
	CharsetInherit CharacterSet = iota
	CharsetGraphicEscape
)

// DisplayMode is a field's visibility/intensity mode.
type DisplayMode byte

const (
	DisplayNormal DisplayMode = iota
	DisplayIntensified
	DisplayNonDisplay
)

// Cell is one screen position.
type Cell struct {
	EBCDIC           byte
	IsFieldAttribute bool

	Foreground Color
	Background Color
	Highlight  Highlight
	Charset    CharacterSet
}

// fieldAttrs holds the parsed meaning of a field-attribute byte, stored
// in the attribute cell alongside the raw byte so Fields() can recover it
// without re-decoding.
type fieldAttrs struct {
	protected bool
	numeric   bool
	display   DisplayMode
	modified  bool
	parsed    bool // true once SF/SFE has stored attributes at this cell
}

// Field is a contiguous run of cells bounded by two field-attribute cells
// (or wrapping the end of the buffer), computed on demand by Fields().
type Field struct {
	StartAddress int
	Length       int
	Protected    bool
	Numeric      bool
	Display      DisplayMode
	ModifiedData bool
}

// Buffer is a rows x cols grid of Cells plus the session-visible state a
// Write Control Character leaves behind.
type Buffer struct {
	rows, cols int
	cells      []Cell
	attrs      []fieldAttrs
	cursor     int

	alternateSize bool

	wccKeyboardLocked bool
	wccResetMDT       bool
	wccAlarm          bool

	codepage codepage.Codepage

	// circumventProtection, when true, allows writes to protected cells
	// and field-attribute cells without setting keyboard inhibit. Used
	// for tests and debug tooling per spec.md section 4.7.
	circumventProtection bool

	keyboardInhibit bool
}

// New creates a Buffer of the given dimensions. cp may be nil, in which
// case codepage.Default() is used.
func New(rows, cols int, cp codepage.Codepage) *Buffer {
	if cp == nil {
		cp = codepage.Default()
	}
	b := &Buffer{
		rows: rows, cols: cols,
		cells:    make([]Cell, rows*cols),
		attrs:    make([]fieldAttrs, rows*cols),
		codepage: cp,
	}
	b.Clear()
	return b
}

// Size returns rows*cols.
func (b *Buffer) Size() int { return b.rows * b.cols }

// Dimensions returns the buffer's row and column counts.
func (b *Buffer) Dimensions() (rows, cols int) { return b.rows, b.cols }

// Addr wraps a linear address into [0, Size()) -- spec.md section 3's
// "addressing arithmetic is modulo rows*cols" invariant.
func (b *Buffer) Addr(a int) int {
	n := b.Size()
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

// SetCircumventProtection toggles whether writes to protected or
// field-attribute cells are allowed (spec.md section 4.7's debug mode).
func (b *Buffer) SetCircumventProtection(on bool) { b.circumventProtection = on }

// KeyboardInhibited reports whether a protected-cell write attempt has
// locked the keyboard since the last clear of that condition.
func (b *Buffer) KeyboardInhibited() bool { return b.keyboardInhibit }

// ClearKeyboardInhibit clears the keyboard-inhibit condition, e.g. after
// the user presses Reset.
func (b *Buffer) ClearKeyboardInhibit() { b.keyboardInhibit = false }

// GetCursor returns the current cursor address.
func (b *Buffer) GetCursor() int { return b.cursor }

// SetCursor moves the cursor, wrapping the address into range.
func (b *Buffer) SetCursor(addr int) { b.cursor = b.Addr(addr) }

// Clear fills every cell with EBCDIC space, resets the cursor to 0, and
// clears all MDTs and field attributes (spec.md section 4.2).
func (b *Buffer) Clear() {
	for i := range b.cells {
		b.cells[i] = Cell{EBCDIC: codepage.EBCDICSpace}
		b.attrs[i] = fieldAttrs{}
	}
	b.cursor = 0
	b.keyboardInhibit = false
}

// Write places an EBCDIC byte at address, clearing any field-attribute
// flag on that cell unless called through SetFieldAttribute. Writing at a
// protected cell or field-attribute cell sets keyboard inhibit and is
// otherwise a no-op, unless circumvent-protection is on (spec.md section
// 4.2's "Rules").
func (b *Buffer) Write(address int, eb byte) {
	address = b.Addr(address)
	if !b.circumventProtection {
		if b.cells[address].IsFieldAttribute {
			b.keyboardInhibit = true
			return
		}
		if f, ok := b.fieldContaining(address); ok && f.protected {
			b.keyboardInhibit = true
			return
		}
	}
	b.cells[address].EBCDIC = eb
	b.cells[address].IsFieldAttribute = false
	b.markModified(address)
}

// Place writes an EBCDIC byte at address the way a host data stream
// does: it ignores protection (a host may draw into a protected field,
// e.g. a label) and never sets MDT, since MDT tracks only user
// modifications (spec.md section 4.1/4.2). Used exclusively by the
// data-stream parser; actions.go's user-input path uses Write.
func (b *Buffer) Place(address int, eb byte) {
	address = b.Addr(address)
	b.cells[address].EBCDIC = eb
	b.cells[address].IsFieldAttribute = false
}

// SetFieldAttribute marks the cell at address as a field-attribute cell
// and records the parsed attribute byte. Used exclusively by the
// data-stream parser's SF/SFE handling.
func (b *Buffer) SetFieldAttribute(address int, protected, numeric bool, display DisplayMode) {
	address = b.Addr(address)
	b.cells[address] = Cell{EBCDIC: attrByte(protected, numeric, display), IsFieldAttribute: true}
	b.attrs[address] = fieldAttrs{protected: protected, numeric: numeric, display: display, parsed: true}
}

// SetExtended sets the extended attributes (color/highlight/charset) of
// the field-attribute cell at address, for SFE/SA processing.
func (b *Buffer) SetExtended(address int, fg, bg Color, hl Highlight, cs CharacterSet) {
	address = b.Addr(address)
	b.cells[address].Foreground = fg
	b.cells[address].Background = bg
	b.cells[address].Highlight = hl
	b.cells[address].Charset = cs
}

// attrByte synthesizes a plausible 3270 field-attribute byte from parsed
// fields, for round-tripping through AsciiRender/ReadBuffer.
func attrByte(protected, numeric bool, display DisplayMode) byte {
	var b byte
	if protected {
		b |= 0x20
	}
	if numeric {
		b |= 0x10
	}
	switch display {
	case DisplayIntensified:
		b |= 0x08
	case DisplayNonDisplay:
		b |= 0x0C
	}
	return b
}

// markModified sets the MDT of the field containing address, the "on any
// user modification inside an unprotected field" rule from spec.md
// section 4.2.
func (b *Buffer) markModified(address int) {
	start := b.fieldStart(address)
	b.attrs[start].modified = true
}

// AsciiRender returns a row-major text snapshot. Field-attribute cells
// always render as a space, regardless of the byte stored there (spec.md
// section 4.2's mandatory rule, tested directly by seed scenario S6).
// NUL cells render as space too (spec.md section 4.1).
func (b *Buffer) AsciiRender() []string {
	rows := make([]string, b.rows)
	for r := 0; r < b.rows; r++ {
		raw := make([]byte, b.cols)
		for c := 0; c < b.cols; c++ {
			cell := b.cells[r*b.cols+c]
			switch {
			case cell.IsFieldAttribute, cell.EBCDIC == 0x00:
				raw[c] = codepage.EBCDICSpace
			default:
				raw[c] = cell.EBCDIC
			}
		}
		text, _ := b.codepage.Decode(raw)
		rows[r] = text
	}
	return rows
}

// fieldStart returns the address of the field-attribute cell that begins
// the field containing address (scanning backward, with wraparound), or
// 0 if no field-attribute cell exists anywhere in the buffer (the
// implicit field at buffer head, per spec.md section 3).
func (b *Buffer) fieldStart(address int) int {
	n := b.Size()
	for i := 0; i < n; i++ {
		pos := b.Addr(address - i)
		if b.cells[pos].IsFieldAttribute {
			return pos
		}
	}
	return 0
}

// fieldContaining returns the parsed attributes of the field containing
// address, and whether any field-attribute cell exists in the buffer at
// all. A buffer with no field-attribute cells has no protected regions.
func (b *Buffer) fieldContaining(address int) (fieldAttrs, bool) {
	n := b.Size()
	for i := 0; i < n; i++ {
		pos := b.Addr(address - i)
		if b.cells[pos].IsFieldAttribute {
			return b.attrs[pos], true
		}
	}
	return fieldAttrs{}, false
}

// Fields scans the grid once and returns the ordered list of Fields.
// Fields are a view, not stored state (spec.md section 3's invariant).
func (b *Buffer) Fields() []Field {
	n := b.Size()
	var starts []int
	for i := 0; i < n; i++ {
		if b.cells[i].IsFieldAttribute {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		// The implicit field at buffer head, unprotected, covering the
		// whole buffer.
		return []Field{{StartAddress: 0, Length: n}}
	}

	fields := make([]Field, 0, len(starts))
	for i, s := range starts {
		var length int
		if len(starts) == 1 {
			length = n - 1
		} else {
			next := starts[(i+1)%len(starts)]
			if next <= s {
				length = (n - s - 1) + next
			} else {
				length = next - s - 1
			}
		}
		a := b.attrs[s]
		fields = append(fields, Field{
			StartAddress: b.Addr(s + 1),
			Length:       length,
			Protected:    a.protected,
			Numeric:      a.numeric,
			Display:      a.display,
			ModifiedData: a.modified,
		})
	}
	return fields
}

// FieldAt returns the field containing address, and whether one exists.
// With no field-attribute cells the implicit whole-buffer field always
// contains address; otherwise a field-attribute cell itself belongs to
// no field, and FieldAt reports false for it.
func (b *Buffer) FieldAt(address int) (Field, bool) {
	address = b.Addr(address)
	for _, f := range b.Fields() {
		if within(f, address, b.Size()) {
			return f, true
		}
	}
	return Field{}, false
}

func within(f Field, address, size int) bool {
	if f.Length <= 0 {
		return false
	}
	end := (f.StartAddress + f.Length - 1) % size
	if f.StartAddress <= end {
		return address >= f.StartAddress && address <= end
	}
	// Field wraps the end of the buffer.
	return address >= f.StartAddress || address <= end
}

// NextUnprotected returns the address of the first unprotected field
// after from (exclusive), wrapping around the buffer. If no unprotected
// field exists, it returns from unchanged.
func (b *Buffer) NextUnprotected(from int) int {
	fields := b.Fields()
	if len(fields) == 0 {
		return from
	}
	n := b.Size()
	best := -1
	bestDist := n + 1
	for _, f := range fields {
		if f.Protected {
			continue
		}
		dist := b.Addr(f.StartAddress - from - 1)
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

// EraseUnprotected replaces the content of every unprotected field with
// spaces and clears its MDT; protected cells are untouched (spec.md
// section 4.2).
func (b *Buffer) EraseUnprotected() {
	for _, f := range b.Fields() {
		if f.Protected {
			continue
		}
		for i := 0; i < f.Length; i++ {
			pos := b.Addr(f.StartAddress + i)
			b.cells[pos] = Cell{EBCDIC: codepage.EBCDICSpace}
		}
		start := b.Addr(f.StartAddress - 1)
		if b.cells[start].IsFieldAttribute {
			b.attrs[start].modified = false
		}
	}
}

// EraseToEndOfField clears from the cursor to the end of its containing
// field (spec.md section 4.2).
func (b *Buffer) EraseToEndOfField() {
	f, ok := b.FieldAt(b.cursor)
	if !ok {
		return
	}
	end := (f.StartAddress + f.Length - 1) % b.Size()
	pos := b.cursor
	for {
		b.cells[pos] = Cell{EBCDIC: codepage.EBCDICSpace}
		if pos == end {
			break
		}
		pos = b.Addr(pos + 1)
	}
}

// RepeatToAddress fills from current up to (not including) target with
// the given EBCDIC byte, wrapping if target <= current; target == current
// fills the whole buffer (spec.md section 4.3's RA order, seed scenario
// S1). It does not move the cursor; the parser sets its own write address
// to target afterwards. Like Place, this is host-originated content:
// protection is ignored and MDT is left untouched.
func (b *Buffer) RepeatToAddress(current, target int, eb byte) {
	current = b.Addr(current)
	target = b.Addr(target)
	pos := current
	for {
		b.Place(pos, eb)
		pos = b.Addr(pos + 1)
		if pos == target {
			break
		}
	}
}

// EraseUnprotectedToAddress clears unprotected cells from current to
// target with the same wraparound semantics as RepeatToAddress (spec.md
// section 4.3's EUA order).
func (b *Buffer) EraseUnprotectedToAddress(current, target int) {
	current = b.Addr(current)
	target = b.Addr(target)
	pos := current
	for {
		if f, ok := b.fieldContaining(pos); !ok || !f.protected {
			if !b.cells[pos].IsFieldAttribute {
				b.cells[pos] = Cell{EBCDIC: codepage.EBCDICSpace}
			}
		}
		pos = b.Addr(pos + 1)
		if pos == target {
			break
		}
	}
}

// SetWCC records the Write Control Character flags observed on the most
// recent Write/Erase command.
func (b *Buffer) SetWCC(resetMDT, keyboardRestore, alarm bool) {
	b.wccResetMDT = resetMDT
	b.wccAlarm = alarm
	if resetMDT {
		b.ClearAllMDT()
	}
	if keyboardRestore {
		b.wccKeyboardLocked = false
		b.keyboardInhibit = false
	}
}

// ClearAllMDT clears the modified-data-tag of every field.
func (b *Buffer) ClearAllMDT() {
	for i := range b.attrs {
		b.attrs[i].modified = false
	}
}

// KeyboardLocked reports the most recently applied WCC keyboard-restore
// state (inverted: true means locked).
func (b *Buffer) KeyboardLocked() bool { return b.wccKeyboardLocked }

// AlarmSounded reports whether the most recent WCC requested the alarm.
func (b *Buffer) AlarmSounded() bool { return b.wccAlarm }

// Snapshot returns an independent copy of the buffer's cell grid,
// suitable for handing across a goroutine boundary without risking a
// data race with the reader task that continues to mutate the original.
func (b *Buffer) Snapshot() *Buffer {
	cp := *b
	cp.cells = append([]Cell(nil), b.cells...)
	cp.attrs = append([]fieldAttrs(nil), b.attrs...)
	return &cp
}

// CellByte returns the raw EBCDIC byte stored at address (the attribute
// byte itself, for a field-attribute cell).
func (b *Buffer) CellByte(address int) byte {
	return b.cells[b.Addr(address)].EBCDIC
}

// IsFieldAttributeAt reports whether address holds a field-attribute
// cell.
func (b *Buffer) IsFieldAttributeAt(address int) bool {
	return b.cells[b.Addr(address)].IsFieldAttribute
}

// FieldContent returns the raw EBCDIC bytes of f's data cells, excluding
// its own field-attribute cell.
func (b *Buffer) FieldContent(f Field) []byte {
	out := make([]byte, f.Length)
	for i := 0; i < f.Length; i++ {
		out[i] = b.cells[b.Addr(f.StartAddress+i)].EBCDIC
	}
	return out
}

// Codepage returns the code page this buffer renders with.
func (b *Buffer) Codepage() codepage.Codepage { return b.codepage }

// SetCodepage replaces the code page used for AsciiRender.
func (b *Buffer) SetCodepage(cp codepage.Codepage) { b.codepage = cp }
