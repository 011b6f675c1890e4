package breader

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadFixedWidthLittleEndian(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}
	r := New(buf)

	u8, err := r.ReadU8()
	require.NoError(t, err)
	require.Equal(t, uint8(0x01), u8)

	u16, err := r.ReadU16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x0302), u16)

	u32, err := r.ReadU32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x07060504), u32)
}

func TestReadHash256DoesNotReverseBytes(t *testing.T) {
	buf := make([]byte, 32)
	for i := range buf {
		buf[i] = byte(i)
	}
	r := New(buf)
	h, err := r.ReadHash256()
	require.NoError(t, err)
	require.Equal(t, buf, h[:])
	require.Equal(t, 32, r.Pos())
}

func TestReadBytesReturnsSubsliceNotCopy(t *testing.T) {
	buf := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	r := New(buf)
	b, err := r.ReadBytes(2)
	require.NoError(t, err)
	buf[0] = 0xFF
	require.Equal(t, byte(0xFF), b[0], "ReadBytes must alias the backing slice, not copy it")
}

func TestShortBufferErrors(t *testing.T) {
	r := New([]byte{0x01})
	_, err := r.ReadU32()
	require.ErrorIs(t, err, ErrShortBuffer)

	r2 := New(nil)
	_, err = r2.ReadU8()
	require.ErrorIs(t, err, ErrShortBuffer)
}

func TestReadVarInt(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
		want uint64
	}{
		{"single byte", []byte{0x05}, 5},
		{"uint16", []byte{0xFD, 0x00, 0x01}, 256},
		{"uint32", []byte{0xFE, 0x00, 0x00, 0x00, 0x01}, 1 << 24},
		{"uint64", []byte{0xFF, 0x01, 0, 0, 0, 0, 0, 0, 0}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := New(tc.buf).ReadVarInt()
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestSkipAndRemaining(t *testing.T) {
	r := New([]byte{1, 2, 3, 4, 5})
	require.NoError(t, r.Skip(2))
	require.Equal(t, []byte{3, 4, 5}, r.Remaining())
	require.Equal(t, 3, r.Len())
	require.ErrorIs(t, r.Skip(10), ErrShortBuffer)
}
