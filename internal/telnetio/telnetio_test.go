package telnetio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlainDataPassesThrough(t *testing.T) {
	f := NewFramer(nil)
	events, err := f.Feed([]byte("hello"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, EventData, events[0].Kind)
	require.Equal(t, []byte("hello"), events[0].Data)
}

func TestEscapedIACIsLiteral255(t *testing.T) {
	f := NewFramer(nil)
	events, err := f.Feed([]byte{1, 2, IAC, IAC, 3})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, []byte{1, 2, IAC, 3}, events[0].Data)
}

func TestDoOptionEmitsCommandEvent(t *testing.T) {
	f := NewFramer(nil)
	events, err := f.Feed([]byte{IAC, DO, 24})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, EventCommand, events[0].Kind)
	require.Equal(t, byte(DO), events[0].Command)
	require.Equal(t, byte(24), events[0].Option)
}

func TestCommandSplitAcrossFeedCalls(t *testing.T) {
	f := NewFramer(nil)
	events, err := f.Feed([]byte{IAC, WILL})
	require.NoError(t, err)
	require.Len(t, events, 0)

	events, err = f.Feed([]byte{0})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, byte(WILL), events[0].Command)
	require.Equal(t, byte(0), events[0].Option)
}

func TestSubNegotiationBuffering(t *testing.T) {
	f := NewFramer(nil)
	events, err := f.Feed([]byte{IAC, SB, 24, 0, 'I', 'B', 'M', IAC, SE})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, EventSubNegotiation, events[0].Kind)
	require.Equal(t, byte(24), events[0].SubOption)
	require.Equal(t, []byte{0, 'I', 'B', 'M'}, events[0].SubData)
}

func TestSubNegotiationWithEscapedIAC(t *testing.T) {
	f := NewFramer(nil)
	events, err := f.Feed([]byte{IAC, SB, 40, 1, IAC, IAC, 2, IAC, SE})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, []byte{1, IAC, 2}, events[0].SubData)
}

func TestEndOfRecordEvent(t *testing.T) {
	f := NewFramer(nil)
	events, err := f.Feed([]byte{'x', 'y', IAC, EOR})
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, EventData, events[0].Kind)
	require.Equal(t, EventEndOfRecord, events[1].Kind)
}

func TestEncodeDataDoublesIAC(t *testing.T) {
	out := EncodeData([]byte{1, IAC, 2})
	require.Equal(t, []byte{1, IAC, IAC, 2}, out)
}

func TestEncodeSubNegotiationRoundTrips(t *testing.T) {
	wire := EncodeSubNegotiation(40, []byte{2, 'I', 'B', 'M'})
	f := NewFramer(nil)
	events, err := f.Feed(wire)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, byte(40), events[0].SubOption)
	require.Equal(t, []byte{2, 'I', 'B', 'M'}, events[0].SubData)
}
