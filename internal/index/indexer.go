package index

import (
	"fmt"

	"github.com/jratcliff63367/blockchain21/internal/model"
	"go.uber.org/zap"
)

const checkpointEvery = 1000

type utxoKey struct {
	offset uint64
	index  uint32
}

type txIndexEntry struct {
	offset uint64
	time   uint32
}

// Indexer drives pass 1: it consumes blocks in canonical order and produces
// TransactionFile.bin + PublicKeys.bin while maintaining the live UTXO map
// and the transaction hash→offset index.
//
// Grounded on PublicKeyDatabaseImpl::addBlock.
type Indexer struct {
	txw  *TxWriter
	addr *AddressTable
	log  *zap.SugaredLogger

	txIndex  map[model.Hash256]txIndexEntry
	utxo     map[utxoKey]int64
	sinceCkp int

	DuplicateCount int
}

// NewIndexer creates the pass-1 output files at txPath and addrPath.
func NewIndexer(txPath, addrPath string, log *zap.SugaredLogger) (*Indexer, error) {
	txw, err := NewTxWriter(txPath)
	if err != nil {
		return nil, err
	}
	at, err := NewAddressTable(addrPath)
	if err != nil {
		txw.Close()
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Indexer{
		txw:     txw,
		addr:    at,
		log:     log,
		txIndex: make(map[model.Hash256]txIndexEntry),
		utxo:    make(map[utxoKey]int64),
	}, nil
}

// AddBlock indexes every transaction of blk, which must already be in
// canonical order. Per spec §4.G/§7, a missing producing transaction on a
// non-coinbase input is fatal; an unclassifiable output is not.
func (ix *Indexer) AddBlock(blockNumber uint32, blk model.Block) error {
	for _, tx := range blk.Transactions {
		persisted := model.PersistedTransaction{
			Hash:        tx.Hash,
			BlockNumber: blockNumber,
			Version:     tx.Version,
			Time:        blk.Time,
			LockTime:    tx.LockTime,
			RawLength:   tx.RawLength,
		}

		for _, in := range tx.Inputs {
			pin := model.PersistedInput{
				PrevIndex:    in.PrevIndex,
				ScriptLength: uint32(len(in.Script)),
			}
			if in.IsCoinbase() {
				persisted.Inputs = append(persisted.Inputs, pin)
				continue
			}
			entry, ok := ix.txIndex[in.PrevHash]
			if !ok {
				return fmt.Errorf("index: missing producing transaction %s for input", in.PrevHash)
			}
			pin.ProducingOffset = entry.offset
			pin.ProducingTime = entry.time

			key := utxoKey{offset: entry.offset, index: in.PrevIndex}
			value, ok := ix.utxo[key]
			if ok {
				delete(ix.utxo, key)
			}
			pin.Value = value
			persisted.Inputs = append(persisted.Inputs, pin)
		}

		// The file offset this transaction will be written at must be known
		// before we can record UTXO entries keyed on it, so we reserve it
		// up front and write the record once all fields are assembled.
		reservedOffset := ix.txw.NextOffset()

		for outIdx, out := range tx.Outputs {
			// Unclassifiable/keyless outputs (UNKNOWN, STEALTH, ZERO_LENGTH)
			// still intern a (zeroed) placeholder address, per spec §4.F/§7:
			// "substitute a placeholder address; flag warning", non-fatal.
			var addr model.Address
			switch {
			case out.KeyType == model.KeyMultisig:
				addr = out.Composite
			case out.KeyCount > 0:
				addr = out.Keys[0]
			}
			addrIdx, err := ix.addr.Intern(addr)
			if err != nil {
				return err
			}
			ix.utxo[utxoKey{offset: reservedOffset, index: uint32(outIdx)}] = out.Value
			persisted.Outputs = append(persisted.Outputs, model.PersistedOutput{
				Value:        out.Value,
				AddressIndex: addrIdx,
				KeyType:      out.KeyType,
				ScriptLength: uint32(len(out.Script)),
			})
		}

		actualOffset, err := ix.txw.Append(persisted)
		if err != nil {
			return err
		}
		if actualOffset != reservedOffset {
			return fmt.Errorf("index: internal offset mismatch: reserved %d wrote %d", reservedOffset, actualOffset)
		}

		if _, exists := ix.txIndex[tx.Hash]; exists {
			ix.DuplicateCount++
			ix.log.Warnw("duplicate transaction hash during indexing", "hash", tx.Hash.String())
		} else {
			ix.txIndex[tx.Hash] = txIndexEntry{offset: actualOffset, time: blk.Time}
		}

		ix.sinceCkp++
		if ix.sinceCkp >= checkpointEvery {
			if err := ix.Checkpoint(); err != nil {
				return err
			}
			ix.sinceCkp = 0
		}
	}
	return nil
}

// Checkpoint flushes both pass-1 files and rewrites their header count
// slots, per spec §4.G step 6.
func (ix *Indexer) Checkpoint() error {
	if err := ix.txw.Checkpoint(); err != nil {
		return err
	}
	return ix.addr.Checkpoint()
}

// TxCount returns the number of transactions written so far.
func (ix *Indexer) TxCount() uint32 { return ix.txw.Count() }

// AddressCount returns the number of unique addresses interned so far.
func (ix *Indexer) AddressCount() uint32 { return ix.addr.Count() }

// Close finalizes both pass-1 files.
func (ix *Indexer) Close() error {
	err1 := ix.txw.Close()
	err2 := ix.addr.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
