package input

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkSource hands out one pre-encoded chunk per Read call.
type chunkSource struct {
	chunks [][]byte
	err    error
}

func (s *chunkSource) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if len(s.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, s.chunks[0])
	s.chunks[0] = s.chunks[0][n:]
	if len(s.chunks[0]) == 0 {
		s.chunks = s.chunks[1:]
	}
	return n, nil
}

func encode(events ...Event) []byte {
	var b []byte
	for _, ev := range events {
		b = AppendEvent(b, ev)
	}
	return b
}

func TestEventRoundTrip(t *testing.T) {
	ev := Event{Time: 1_500_000_000_123_000, Type: EvAbs, Code: AbsMagY, Value: -42}
	b := AppendEvent(nil, ev)
	require.Len(t, b, EventSize)

	got, err := DecodeEvent(b)
	require.NoError(t, err)
	assert.Equal(t, ev, got)
}

func TestReaderPreservesArrivalOrder(t *testing.T) {
	src := &chunkSource{chunks: [][]byte{encode(
		Abs(AbsAccelX, 1),
		Abs(AbsAccelY, 2),
		Event{Type: EvSyn, Time: 3000},
	)}}
	r := NewReader(4)

	n, err := r.Fill(src)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	var codes []uint16
	for {
		ev, ok := r.Next()
		if !ok {
			break
		}
		codes = append(codes, ev.Code)
		if ev.IsSync() {
			assert.Equal(t, int64(3000), ev.Time)
		}
		r.Advance()
	}
	assert.Equal(t, []uint16{AbsAccelX, AbsAccelY, 0}, codes)
	assert.Equal(t, 0, r.Len())
}

func TestReaderFillRespectsFreeSpace(t *testing.T) {
	src := &chunkSource{chunks: [][]byte{encode(
		Abs(AbsLight, 1), Abs(AbsLight, 2), Abs(AbsLight, 3),
		Abs(AbsLight, 4), Abs(AbsLight, 5), Abs(AbsLight, 6),
	)}}
	r := NewReader(4)

	n, err := r.Fill(src)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// full ring reads nothing
	n, err = r.Fill(src)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	r.Advance()
	r.Advance()
	n, err = r.Fill(src)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var values []int32
	for ev, ok := r.Next(); ok; ev, ok = r.Next() {
		values = append(values, ev.Value)
		r.Advance()
	}
	assert.Equal(t, []int32{3, 4, 5, 6}, values)
}

func TestReaderEmptySource(t *testing.T) {
	r := NewReader(2)
	n, err := r.Fill(&chunkSource{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, ok := r.Next()
	assert.False(t, ok)
	r.Advance()
	assert.Equal(t, 0, r.Len())
}

func TestReaderErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewReader(2).Fill(&chunkSource{err: boom})
	require.ErrorIs(t, err, boom)

	_, err = NewReader(2).Fill(&chunkSource{chunks: [][]byte{make([]byte, EventSize-1)}})
	require.Error(t, err)
}
