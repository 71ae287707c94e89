package datastream

import (
	"testing"

	"pgregory.net/rapid"
)

// TestAddress12RoundTrips checks that every address in the 12-bit range
// survives an EncodeAddress12/DecodeAddress round trip.
func TestAddress12RoundTrips(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		addr := rapid.IntRange(0, 4095).Draw(rt, "addr")
		enc := EncodeAddress12(addr)
		got, bits := DecodeAddress(enc[0], enc[1])
		if bits != 12 {
			rt.Fatalf("encoded address decoded as %d-bit, want 12-bit", bits)
		}
		if got != addr {
			rt.Fatalf("round-trip %d -> %v -> %d", addr, enc, got)
		}
	})
}

// TestAddress14RoundTrips checks the same invariant for 14-bit encoding.
func TestAddress14RoundTrips(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		addr := rapid.IntRange(0, 0x3FFF).Draw(rt, "addr")
		enc := EncodeAddress14(addr)
		got, bits := DecodeAddress(enc[0], enc[1])
		if bits != 14 {
			rt.Fatalf("encoded address decoded as %d-bit, want 14-bit", bits)
		}
		if got != addr {
			rt.Fatalf("round-trip %d -> %v -> %d", addr, enc, got)
		}
	})
}
