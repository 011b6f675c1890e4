// Package index implements components G and H: the pass-1 transaction-
// stream indexer and the address dedup table.
//
// Grounded on _examples/original_source/PublicKeyDatabase.cpp's
// PublicKeyDatabaseImpl (addBlock, getPublicKeyIndex, savePublicKeyFile) and
// its Transaction/TransactionInput/TransactionOutput save()/read() binary
// layouts, which this package follows field-for-field.
package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jratcliff63367/blockchain21/internal/model"
)

// FileMagic is the 16-byte zero-terminated magic prefixing both
// TransactionFile.bin and PublicKeys.bin, per spec §6.
var FileMagic = [16]byte{'0', '1', '2', '3', '4', '5', '6', '7', '8', '9', 'A', 'B', 'C', 'D', 'E', 0}

// TxWriter appends PersistedTransaction records to TransactionFile.bin,
// keeping the reserved header count slot up to date via periodic
// checkpoints (spec §4.G step 6 / §5 "on every pass-1 checkpoint all files
// are flushed").
type TxWriter struct {
	f       *os.File
	w       *bufio.Writer
	offset  uint64 // next write offset, i.e. the current file size
	txCount uint32
}

// NewTxWriter creates (truncating) TransactionFile.bin at path and reserves
// its header slot.
func NewTxWriter(path string) (*TxWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	tw := &TxWriter{f: f, w: bufio.NewWriter(f)}
	if err := tw.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	tw.offset = uint64(len(FileMagic) + 4)
	return tw, nil
}

func (tw *TxWriter) writeHeader() error {
	if _, err := tw.f.WriteAt(FileMagic[:], 0); err != nil {
		return err
	}
	var cnt [4]byte
	binary.LittleEndian.PutUint32(cnt[:], tw.txCount)
	_, err := tw.f.WriteAt(cnt[:], int64(len(FileMagic)))
	return err
}

// Checkpoint flushes buffered writes and rewrites the header count slot so
// the on-disk state is recoverable mid-run.
func (tw *TxWriter) Checkpoint() error {
	if err := tw.w.Flush(); err != nil {
		return err
	}
	if err := tw.f.Sync(); err != nil {
		return err
	}
	return tw.writeHeader()
}

// Append writes one PersistedTransaction and returns the file offset it was
// written at (this is the value downstream inputs reference via
// ProducingOffset).
func (tw *TxWriter) Append(tx model.PersistedTransaction) (uint64, error) {
	offset := tw.offset
	n, err := writeTransaction(tw.w, tx)
	if err != nil {
		return 0, err
	}
	tw.offset += uint64(n)
	tw.txCount++
	return offset, nil
}

// Count returns the number of transactions appended so far.
func (tw *TxWriter) Count() uint32 { return tw.txCount }

// NextOffset returns the file offset the next Append call will write at.
func (tw *TxWriter) NextOffset() uint64 { return tw.offset }

// Close flushes, writes the final header, and closes the file.
func (tw *TxWriter) Close() error {
	if err := tw.Checkpoint(); err != nil {
		tw.f.Close()
		return err
	}
	return tw.f.Close()
}

func writeTransaction(w io.Writer, tx model.PersistedTransaction) (int, error) {
	buf := make([]byte, 0, 64+len(tx.Inputs)*28+len(tx.Outputs)*20)
	buf = append(buf, tx.Hash[:]...)
	buf = appendU32(buf, tx.BlockNumber)
	buf = appendU32(buf, tx.Version)
	buf = appendU32(buf, tx.Time)
	buf = appendU32(buf, tx.LockTime)
	buf = appendU32(buf, tx.RawLength)
	buf = appendU32(buf, uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = appendU64(buf, in.ProducingOffset)
		buf = appendU32(buf, in.PrevIndex)
		buf = appendI64(buf, in.Value)
		buf = appendU32(buf, in.ScriptLength)
		buf = appendU32(buf, in.ProducingTime)
	}
	buf = appendU32(buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = appendI64(buf, out.Value)
		buf = appendU32(buf, out.AddressIndex)
		buf = appendU32(buf, uint32(out.KeyType))
		buf = appendU32(buf, out.ScriptLength)
	}
	n, err := w.Write(buf)
	return n, err
}

// TxReader provides random-access reads of persisted transactions by file
// offset, used by pass 2 and analytics.
type TxReader struct {
	f   *os.File
	cnt uint32
}

// OpenTxReader opens TransactionFile.bin read-only and validates its magic.
func OpenTxReader(path string) (*TxReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var hdr [20]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("index: read header: %w", err)
	}
	if [16]byte(hdr[:16]) != FileMagic {
		f.Close()
		return nil, errors.New("index: bad TransactionFile.bin magic")
	}
	cnt := binary.LittleEndian.Uint32(hdr[16:20])
	return &TxReader{f: f, cnt: cnt}, nil
}

// Count returns the transaction count recorded in the header.
func (tr *TxReader) Count() uint32 { return tr.cnt }

// ReadAt reads one PersistedTransaction starting at the given file offset.
func (tr *TxReader) ReadAt(offset uint64) (model.PersistedTransaction, error) {
	var tx model.PersistedTransaction
	sr := io.NewSectionReader(tr.f, int64(offset), 1<<40)
	br := bufio.NewReader(sr)

	if _, err := io.ReadFull(br, tx.Hash[:]); err != nil {
		return tx, err
	}
	var err error
	if tx.BlockNumber, err = readU32(br); err != nil {
		return tx, err
	}
	if tx.Version, err = readU32(br); err != nil {
		return tx, err
	}
	if tx.Time, err = readU32(br); err != nil {
		return tx, err
	}
	if tx.LockTime, err = readU32(br); err != nil {
		return tx, err
	}
	if tx.RawLength, err = readU32(br); err != nil {
		return tx, err
	}
	nIn, err := readU32(br)
	if err != nil {
		return tx, err
	}
	tx.Inputs = make([]model.PersistedInput, nIn)
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		if in.ProducingOffset, err = readU64(br); err != nil {
			return tx, err
		}
		if in.PrevIndex, err = readU32(br); err != nil {
			return tx, err
		}
		if in.Value, err = readI64(br); err != nil {
			return tx, err
		}
		if in.ScriptLength, err = readU32(br); err != nil {
			return tx, err
		}
		if in.ProducingTime, err = readU32(br); err != nil {
			return tx, err
		}
	}
	nOut, err := readU32(br)
	if err != nil {
		return tx, err
	}
	tx.Outputs = make([]model.PersistedOutput, nOut)
	for i := range tx.Outputs {
		out := &tx.Outputs[i]
		if out.Value, err = readI64(br); err != nil {
			return tx, err
		}
		if out.AddressIndex, err = readU32(br); err != nil {
			return tx, err
		}
		var kt uint32
		if kt, err = readU32(br); err != nil {
			return tx, err
		}
		out.KeyType = model.KeyType(kt)
		if out.ScriptLength, err = readU32(br); err != nil {
			return tx, err
		}
	}
	return tx, nil
}

// Close closes the underlying file.
func (tr *TxReader) Close() error { return tr.f.Close() }

func appendU32(b []byte, v uint32) []byte {
	var t [4]byte
	binary.LittleEndian.PutUint32(t[:], v)
	return append(b, t[:]...)
}

func appendU64(b []byte, v uint64) []byte {
	var t [8]byte
	binary.LittleEndian.PutUint64(t[:], v)
	return append(b, t[:]...)
}

func appendI64(b []byte, v int64) []byte { return appendU64(b, uint64(v)) }

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readI64(r io.Reader) (int64, error) {
	v, err := readU64(r)
	return int64(v), err
}
