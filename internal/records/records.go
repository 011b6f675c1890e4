// Package records implements component I: the per-address record builder
// (pass 2).
//
// No original_source/ implementation of this pass survived in the filtered
// pack (see DESIGN.md Open Questions) — designed directly from spec.md
// §4.I, following the same fixed-layout binary-record discipline
// original_source/PublicKeyDatabase.cpp uses for its own save()/read() pairs.
package records

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jratcliff63367/blockchain21/internal/index"
	"github.com/jratcliff63367/blockchain21/internal/model"
)

// producingCacheSize bounds the hot-offset cache below; block reward outputs
// and long-lived change outputs are read back far more often than the
// average transaction, so a small bounded cache absorbs most of the re-read
// traffic without holding the whole stream in memory.
const producingCacheSize = 4096

// Build re-reads the transaction stream sequentially and emits one
// AddressRecord per known address, per spec §4.I.
func Build(txPath string, addressCount uint32) ([]model.AddressRecord, error) {
	tr, err := index.OpenTxReader(txPath)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	producingCache, err := lru.New[uint64, model.PersistedTransaction](producingCacheSize)
	if err != nil {
		return nil, err
	}

	records := make([]model.AddressRecord, addressCount)
	for i := range records {
		records[i].Index = uint32(i)
	}

	offset := uint64(len(index.FileMagic) + 4)
	for txNum := uint32(0); txNum < tr.Count(); txNum++ {
		tx, err := tr.ReadAt(offset)
		if err != nil {
			return nil, err
		}

		hasCoinbase := false
		spentByAddr := make(map[uint32]bool)
		for _, in := range tx.Inputs {
			if in.PrevIndex == 0xFFFFFFFF {
				// Coinbase inputs carry no producing-offset lookup.
				hasCoinbase = true
				continue
			}
			producing, ok := producingCache.Get(in.ProducingOffset)
			if !ok {
				var perr error
				producing, perr = tr.ReadAt(in.ProducingOffset)
				if perr != nil {
					continue // spec §4.J: log-and-ignore on incomplete pass-1 state; pass 2 mirrors this tolerance
				}
				producingCache.Add(in.ProducingOffset, producing)
			}
			if int(in.PrevIndex) >= len(producing.Outputs) {
				continue
			}
			spentOut := producing.Outputs[in.PrevIndex]
			k := spentOut.AddressIndex
			spentByAddr[k] = true
			if int(k) < len(records) {
				records[k].Entries = append(records[k].Entries, model.PerAddressTx{
					Offset:   offset,
					Value:    spentOut.Value,
					Time:     tx.Time,
					Spend:    true,
					Coinbase: false,
					Change:   false,
				})
				records[k].KeyType = spentOut.KeyType
			}
		}

		coinbaseConsumed := false
		for _, out := range tx.Outputs {
			k := out.AddressIndex
			if int(k) >= len(records) {
				continue
			}
			isCoinbase := hasCoinbase && !coinbaseConsumed
			if isCoinbase {
				coinbaseConsumed = true
			}
			change := spentByAddr[k]
			records[k].Entries = append(records[k].Entries, model.PerAddressTx{
				Offset:   offset,
				Value:    out.Value,
				Time:     tx.Time,
				Spend:    false,
				Coinbase: isCoinbase,
				Change:   change,
			})
			records[k].KeyType = out.KeyType
		}

		offset += transactionByteLength(tx)
	}

	for i := range records {
		var bal int64
		for _, e := range records[i].Entries {
			if e.Spend {
				bal -= e.Value
			} else {
				bal += e.Value
			}
		}
		records[i].Balance = bal
		if n := len(records[i].Entries); n > 0 {
			last := records[i].Entries[n-1]
			if last.Spend {
				records[i].LastSend = last.Time
			} else {
				records[i].LastReceive = last.Time
			}
		}
	}
	return records, nil
}

// transactionByteLength recomputes the exact on-disk size of a
// PersistedTransaction so pass 2 can walk the stream without a separate
// offset index, mirroring writeTransaction's layout in internal/index.
func transactionByteLength(tx model.PersistedTransaction) uint64 {
	const fixed = 32 + 4 + 4 + 4 + 4 + 4 + 4 + 4
	const inputSize = 8 + 4 + 8 + 4 + 4
	const outputSize = 8 + 4 + 4 + 4
	return uint64(fixed + len(tx.Inputs)*inputSize + len(tx.Outputs)*outputSize)
}

// RecordFileMagic is PublicKeyRecords.bin's 16-byte magic, shared with
// TransactionFile.bin/PublicKeys.bin per spec §6.
var RecordFileMagic = index.FileMagic

// Save writes records to PublicKeyRecords.bin following the exact layout in
// spec §6: magic, addr-count, an offset table, a duplicate region reserved
// for sorted pointers, then the records themselves (each
// keyType/index/count/daysOld/balance/lastSend/lastReceive header followed
// by count×32-byte entries).
func Save(path string, records []model.AddressRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if _, err := w.Write(RecordFileMagic[:]); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(records))); err != nil {
		return err
	}

	headerSize := uint64(len(RecordFileMagic) + 4)
	offsetTableSize := uint64(len(records)) * 8
	recordsStart := headerSize + offsetTableSize*2 // offset table + reserved sorted-pointer region

	offsets := make([]uint64, len(records))
	cur := recordsStart
	for i, r := range records {
		offsets[i] = cur
		cur += 28 + uint64(len(r.Entries))*32
	}

	for _, o := range offsets {
		if err := writeU64(w, o); err != nil {
			return err
		}
	}
	// Reserved region for sorted pointers (populated by analytics at query
	// time, not persisted here — spec §6/§4.J).
	for range offsets {
		if err := writeU64(w, 0); err != nil {
			return err
		}
	}

	for _, r := range records {
		if err := writeU32(w, uint32(r.KeyType)); err != nil {
			return err
		}
		if err := writeU32(w, r.Index); err != nil {
			return err
		}
		if err := writeU32(w, uint32(len(r.Entries))); err != nil {
			return err
		}
		if err := writeU32(w, r.DaysOld); err != nil {
			return err
		}
		if err := writeU64(w, uint64(r.Balance)); err != nil {
			return err
		}
		if err := writeU32(w, r.LastSend); err != nil {
			return err
		}
		if err := writeU32(w, r.LastReceive); err != nil {
			return err
		}
		for _, e := range r.Entries {
			if err := writeU64(w, e.Offset); err != nil {
				return err
			}
			if err := writeU64(w, uint64(e.Value)); err != nil {
				return err
			}
			if err := writeU32(w, e.Time); err != nil {
				return err
			}
			var flags uint32
			if e.Spend {
				flags |= 1
			}
			if e.Coinbase {
				flags |= 2
			}
			if e.Change {
				flags |= 4
			}
			if err := writeU32(w, flags); err != nil {
				return err
			}
			if err := writeU64(w, uint64(e.CachedBalance)); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// Load reads PublicKeyRecords.bin back into memory for the analytics engine.
func Load(path string) ([]model.AddressRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var magic [16]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, err
	}
	if magic != RecordFileMagic {
		return nil, errors.New("records: bad PublicKeyRecords.bin magic")
	}
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}

	// Skip the offset table and the reserved sorted-pointer region; Load
	// re-derives positions sequentially instead of seeking by them.
	if _, err := io.CopyN(io.Discard, r, int64(count)*8*2); err != nil {
		return nil, err
	}

	records := make([]model.AddressRecord, count)
	for i := range records {
		kt, err := readU32(r)
		if err != nil {
			return nil, err
		}
		records[i].KeyType = model.KeyType(kt)
		if records[i].Index, err = readU32(r); err != nil {
			return nil, err
		}
		n, err := readU32(r)
		if err != nil {
			return nil, err
		}
		if records[i].DaysOld, err = readU32(r); err != nil {
			return nil, err
		}
		bal, err := readU64(r)
		if err != nil {
			return nil, err
		}
		records[i].Balance = int64(bal)
		if records[i].LastSend, err = readU32(r); err != nil {
			return nil, err
		}
		if records[i].LastReceive, err = readU32(r); err != nil {
			return nil, err
		}
		records[i].Entries = make([]model.PerAddressTx, n)
		for j := range records[i].Entries {
			e := &records[i].Entries[j]
			if e.Offset, err = readU64(r); err != nil {
				return nil, err
			}
			v, err := readU64(r)
			if err != nil {
				return nil, err
			}
			e.Value = int64(v)
			if e.Time, err = readU32(r); err != nil {
				return nil, err
			}
			flags, err := readU32(r)
			if err != nil {
				return nil, err
			}
			e.Spend = flags&1 != 0
			e.Coinbase = flags&2 != 0
			e.Change = flags&4 != 0
			cb, err := readU64(r)
			if err != nil {
				return nil, err
			}
			e.CachedBalance = int64(cb)
		}
	}
	return records, nil
}

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeU64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

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
