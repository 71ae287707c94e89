package buffer

import (
	"testing"

	"pgregory.net/rapid"
)

// TestAddrIsAlwaysInRange checks the "addressing arithmetic is modulo
// rows*cols" invariant for arbitrary (including negative) inputs.
func TestAddrIsAlwaysInRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rows := rapid.IntRange(1, 43).Draw(rt, "rows")
		cols := rapid.IntRange(1, 132).Draw(rt, "cols")
		a := rapid.IntRange(-10000, 10000).Draw(rt, "a")

		b := New(rows, cols, nil)
		got := b.Addr(a)
		if got < 0 || got >= b.Size() {
			rt.Fatalf("Addr(%d) = %d, want in [0, %d)", a, got, b.Size())
		}
	})
}

// TestRepeatToAddressFillsExactCount checks that RepeatToAddress always
// fills exactly the wraparound distance between current and target (the
// whole buffer when the two are equal), and otherwise never touches the
// target cell itself.
func TestRepeatToAddressFillsExactCount(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := New(24, 80, nil)
		n := b.Size()
		current := rapid.IntRange(0, n-1).Draw(rt, "current")
		target := rapid.IntRange(0, n-1).Draw(rt, "target")

		for i := 0; i < n; i++ {
			b.Write(i, 0xC1)
		}
		b.RepeatToAddress(current, target, 0x40)

		want := b.Addr(target - current)
		if want == 0 {
			want = n
		}
		var got int
		pos := current
		for {
			if b.CellByte(pos) != 0x40 {
				rt.Fatalf("cell %d not filled", pos)
			}
			got++
			pos = b.Addr(pos + 1)
			if pos == target {
				break
			}
		}
		if got != want {
			rt.Fatalf("filled %d cells, want %d", got, want)
		}
		if current != target && b.CellByte(target) == 0x40 {
			rt.Fatalf("target cell %d was overwritten", target)
		}
	})
}

// TestFieldsPartitionTheBuffer checks that Fields() always returns a set
// of fields whose lengths sum to the buffer size minus the number of
// field-attribute cells (the full size when there are none), regardless
// of how many field-attribute cells are present.
func TestFieldsPartitionTheBuffer(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		b := New(24, 80, nil)
		n := b.Size()
		count := rapid.IntRange(0, 5).Draw(rt, "attrCount")
		for i := 0; i < count; i++ {
			addr := rapid.IntRange(0, n-1).Draw(rt, "addr")
			b.SetFieldAttribute(addr, false, false, DisplayNormal)
		}

		fields := b.Fields()
		total := 0
		for _, f := range fields {
			total += f.Length
		}
		attrCells := 0
		for i := 0; i < n; i++ {
			if b.IsFieldAttributeAt(i) {
				attrCells++
			}
		}
		want := n - attrCells
		if attrCells == 0 {
			want = n
		}
		if total != want {
			rt.Fatalf("fields sum to %d cells, want %d", total, want)
		}
	})
}
