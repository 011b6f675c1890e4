package chainparse

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/jratcliff63367/blockchain21/internal/model"
	"github.com/stretchr/testify/require"
)

func TestParseHeader(t *testing.T) {
	var buf bytes.Buffer
	writeU32(&buf, 1)                // version
	buf.Write(make([]byte, 32))      // prev hash
	buf.Write(make([]byte, 32))      // merkle root
	writeU32(&buf, 1231006505)       // time (genesis)
	writeU32(&buf, 0x1d00ffff)       // bits
	writeU32(&buf, 2083236893)       // nonce

	blk, err := ParseHeader(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, uint32(1), blk.Version)
	require.Equal(t, uint32(1231006505), blk.Time)
	require.Equal(t, uint32(0x1d00ffff), blk.Bits)
	require.False(t, blk.ComputedHash.IsZero())
}

func TestParseBlockBodySingleCoinbaseTransaction(t *testing.T) {
	var buf bytes.Buffer
	writeVarInt(&buf, 1) // 1 transaction

	buf.Write(coinbaseTxBytes(50 * 100_000_000))

	blk, err := ParseBlockBody(model.Block{}, buf.Bytes())
	require.NoError(t, err)
	require.Len(t, blk.Transactions, 1)

	tx := blk.Transactions[0]
	require.Len(t, tx.Inputs, 1)
	require.True(t, tx.Inputs[0].IsCoinbase())
	require.Len(t, tx.Outputs, 1)
	require.Equal(t, int64(50*100_000_000), tx.Outputs[0].Value)
	require.False(t, tx.Hash.IsZero())
}

func TestParseBlockBodyRejectsZeroOutputTransaction(t *testing.T) {
	var buf bytes.Buffer
	writeVarInt(&buf, 1)

	var tx bytes.Buffer
	writeU32(&tx, 1)
	writeVarInt(&tx, 1) // 1 input
	tx.Write(make([]byte, 32))
	writeU32(&tx, 0xFFFFFFFF)
	writeVarInt(&tx, 0) // empty script
	writeU32(&tx, 0xFFFFFFFF)
	writeVarInt(&tx, 0) // 0 outputs
	writeU32(&tx, 0)    // locktime
	buf.Write(tx.Bytes())

	_, err := ParseBlockBody(model.Block{}, buf.Bytes())
	require.Error(t, err)
}

func TestParseBlockBodyRejectsZeroInputNonCoinbaseTransaction(t *testing.T) {
	var buf bytes.Buffer
	writeVarInt(&buf, 2) // 2 transactions

	buf.Write(coinbaseTxBytes(50 * 100_000_000)) // valid singleton coinbase

	var tx bytes.Buffer
	writeU32(&tx, 1)
	writeVarInt(&tx, 0) // 0 inputs: only legal for tx index 0
	writeVarInt(&tx, 1) // 1 output
	var val [8]byte
	binary.LittleEndian.PutUint64(val[:], 1000)
	tx.Write(val[:])
	writeVarInt(&tx, 0) // empty script
	writeU32(&tx, 0)    // locktime
	buf.Write(tx.Bytes())

	_, err := ParseBlockBody(model.Block{}, buf.Bytes())
	require.Error(t, err)
}

func TestParseBlockBodyRejectsOversizeInputCount(t *testing.T) {
	var buf bytes.Buffer
	writeVarInt(&buf, 1) // 1 transaction

	var tx bytes.Buffer
	writeU32(&tx, 1)
	writeVarInt(&tx, MaxInputsPerTx+1)
	buf.Write(tx.Bytes())

	_, err := ParseBlockBody(model.Block{}, buf.Bytes())
	require.ErrorIs(t, err, ErrOversizeField)
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeVarInt(buf *bytes.Buffer, v uint64) {
	switch {
	case v < 0xFD:
		buf.WriteByte(byte(v))
	case v <= 0xFFFF:
		buf.WriteByte(0xFD)
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		buf.Write(b[:])
	default:
		buf.WriteByte(0xFE)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v))
		buf.Write(b[:])
	}
}

func coinbaseTxBytes(valueSats int64) []byte {
	var tx bytes.Buffer
	writeU32(&tx, 1) // version

	writeVarInt(&tx, 1)             // 1 input
	tx.Write(make([]byte, 32))      // prev hash (zero)
	writeU32(&tx, 0xFFFFFFFF)       // prev index (coinbase marker)
	writeVarInt(&tx, 4)             // coinbase script length
	tx.Write([]byte{0x01, 0x02, 0x03, 0x04})
	writeU32(&tx, 0xFFFFFFFF) // sequence

	writeVarInt(&tx, 1) // 1 output
	var val [8]byte
	binary.LittleEndian.PutUint64(val[:], uint64(valueSats))
	tx.Write(val[:])
	p2pkh := append([]byte{0x76, 0xa9, 20}, make([]byte, 20)...)
	p2pkh = append(p2pkh, 0x88, 0xac)
	writeVarInt(&tx, uint64(len(p2pkh)))
	tx.Write(p2pkh)

	writeU32(&tx, 0) // locktime
	return tx.Bytes()
}
