package pycfmt

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLittleEndian(t *testing.T) {
	s := NewStream([]byte{
		0x34, 0x12, // uint16
		0x78, 0x56, 0x34, 0x12, // uint32
		0xfe, 0xff, 0xff, 0xff, // int32 -2
		0x01, 0, 0, 0, 0, 0, 0, 0x80, // uint64
	})

	u16, err := s.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	u32, err := s.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), u32)

	i32, err := s.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-2), i32)

	u64, err := s.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x8000000000000001), u64)

	assert.Equal(t, 0, s.Remaining())
}

func TestReadFloat64(t *testing.T) {
	buf := make([]byte, 8)
	bits := math.Float64bits(1.5)
	for i := range buf {
		buf[i] = byte(bits >> (8 * i))
	}
	f, err := NewStream(buf).ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)
}

func TestTruncatedDoesNotAdvance(t *testing.T) {
	s := NewStream([]byte{1, 2, 3})
	_, err := s.ReadByte()
	require.NoError(t, err)

	_, err = s.ReadUint32()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncated))

	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 1, de.Offset)
	assert.Equal(t, 1, s.Position(), "failed read must not move the cursor")
}

func TestReadBytesCopies(t *testing.T) {
	data := []byte{9, 8, 7}
	s := NewStream(data)
	b, err := s.ReadBytes(2)
	require.NoError(t, err)
	b[0] = 0
	assert.Equal(t, byte(9), data[0])

	_, err = s.ReadBytes(-1)
	assert.True(t, errors.Is(err, ErrTruncated))
}

func TestNewStreamAtClamps(t *testing.T) {
	s := NewStreamAt([]byte{1, 2}, 10)
	assert.Equal(t, 2, s.Position())
	assert.Equal(t, 0, s.Remaining())
	assert.Error(t, s.Skip(1))
}
