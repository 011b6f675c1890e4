package scan

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/jratcliff63367/blockchain21/internal/chainparse"
	"github.com/jratcliff63367/blockchain21/internal/model"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func header80(time, nonce uint32) []byte {
	var buf bytes.Buffer
	writeU32(&buf, 1)           // version
	buf.Write(make([]byte, 32)) // prev hash
	buf.Write(make([]byte, 32)) // merkle root
	writeU32(&buf, time)
	writeU32(&buf, 0x1d00ffff) // bits
	writeU32(&buf, nonce)
	return buf.Bytes()
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// frame assembles one magic+length+header+body block frame. length covers
// header+body, per spec §4.C ("skips length-80 bytes after the header").
func frame(body []byte, time, nonce uint32) []byte {
	hdr := header80(time, nonce)
	var buf bytes.Buffer
	writeU32(&buf, BlockMagic)
	writeU32(&buf, uint32(len(hdr)+len(body)))
	buf.Write(hdr)
	buf.Write(body)
	return buf.Bytes()
}

func TestScanNextAdvancesPastMultipleBlocksWithoutResync(t *testing.T) {
	dir := t.TempDir()

	body1 := bytes.Repeat([]byte{0xAA}, 37)
	body2 := bytes.Repeat([]byte{0xBB}, 91)

	var data bytes.Buffer
	data.Write(frame(body1, 1600000000, 1))
	data.Write(frame(body2, 1600000100, 2))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blk00000.dat"), data.Bytes(), 0o644))

	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core).Sugar()

	sc, err := New(dir, 0, log)
	require.NoError(t, err)
	defer sc.Close()

	blocksScanned := 0
	for {
		scanned, complete, err := sc.ScanNext()
		require.NoError(t, err)
		if complete {
			break
		}
		if scanned {
			blocksScanned++
		}
	}
	require.Equal(t, 2, blocksScanned)

	for _, entry := range logs.All() {
		require.NotContains(t, entry.Message, "resynced")
	}

	hdrs := sc.Headers()
	require.Len(t, hdrs, 2)

	var first, second model.BlockHeader
	var foundFirst, foundSecond bool
	for _, h := range hdrs {
		switch h.Time {
		case 1600000000:
			first, foundFirst = h, true
		case 1600000100:
			second, foundSecond = h, true
		}
	}
	require.True(t, foundFirst)
	require.True(t, foundSecond)

	// The second frame's header must start immediately after the first
	// frame's magic(4)+length(4)+header(80)+body, not len(body1) bytes
	// after the header (the off-by-80 that skipped too little) and not
	// HeaderSize bytes after the header alone (skipped too much).
	require.Equal(t, first.FileOffset+uint64(chainparse.HeaderSize+len(body1)+8), second.FileOffset)

	bodyOut1, err := sc.ReadBlockBody(first)
	require.NoError(t, err)
	require.Equal(t, body1, bodyOut1)

	bodyOut2, err := sc.ReadBlockBody(second)
	require.NoError(t, err)
	require.Equal(t, body2, bodyOut2)
}
