// Package chainparse implements component E: the block/transaction parser.
//
// Grounded on _examples/original_source/BlockChain.cpp's
// BlockImpl::processBlockData/readTransaction/readInput/readOutput, adapted
// to Go's slice+cursor idiom via internal/breader instead of raw pointer
// arithmetic. Output classification is delegated to internal/script
// (component F); the parser itself only frames the byte layout.
package chainparse

import (
	"errors"
	"fmt"

	"github.com/jratcliff63367/blockchain21/internal/breader"
	"github.com/jratcliff63367/blockchain21/internal/btcaddr"
	"github.com/jratcliff63367/blockchain21/internal/model"
	"github.com/jratcliff63367/blockchain21/internal/script"
)

// Reasonable limits, fatal if exceeded — spec §4.E.
const (
	MaxInputsPerTx        = 32 * 1024
	MaxOutputsPerTx       = 32 * 1024
	MaxTransactionsPerBlk = 32 * 1024
	MaxScriptLength       = 32 * 1024
	MaxBlockSize          = 32 * 1024 * 1024
)

// ErrOversizeField is returned when a declared count or length exceeds the
// sanity ceiling; callers must treat this as fatal.
var ErrOversizeField = errors.New("chainparse: oversize field")

// ParseBlockBody parses the body of one block (everything after the 80-byte
// header) given the already-parsed header fields. buf must begin at the
// varint transaction count.
func ParseBlockBody(header model.Block, buf []byte) (model.Block, error) {
	blk := header
	r := breader.New(buf)

	nTx, err := r.ReadVarInt()
	if err != nil {
		return blk, fmt.Errorf("chainparse: read tx count: %w", err)
	}
	if nTx > MaxTransactionsPerBlk {
		return blk, fmt.Errorf("%w: %d transactions", ErrOversizeField, nTx)
	}

	blk.Transactions = make([]model.BlockTransaction, 0, nTx)
	for i := uint64(0); i < nTx; i++ {
		tx, err := parseTransaction(r, i == 0)
		if err != nil {
			return blk, fmt.Errorf("chainparse: tx %d: %w", i, err)
		}
		blk.Transactions = append(blk.Transactions, tx)
	}
	return blk, nil
}

// parseTransaction parses one transaction starting at r's current position,
// per spec §4.E steps 1-5. isFirst marks whether this is the block's
// singleton coinbase slot, the only position where a 0-input transaction is
// valid per spec §8.
func parseTransaction(r *breader.Reader, isFirst bool) (model.BlockTransaction, error) {
	var tx model.BlockTransaction
	start := r.Pos()
	tx.FileOffset = uint64(start)

	version, err := r.ReadU32()
	if err != nil {
		return tx, err
	}
	tx.Version = version

	nIn, err := r.ReadVarInt()
	if err != nil {
		return tx, err
	}
	if nIn > MaxInputsPerTx {
		return tx, fmt.Errorf("%w: %d inputs", ErrOversizeField, nIn)
	}
	if nIn == 0 && !isFirst {
		return tx, errors.New("chainparse: transaction has zero inputs and is not the block's coinbase")
	}
	tx.Inputs = make([]model.BlockInput, 0, nIn)
	for i := uint64(0); i < nIn; i++ {
		in, err := parseInput(r)
		if err != nil {
			return tx, fmt.Errorf("input %d: %w", i, err)
		}
		tx.Inputs = append(tx.Inputs, in)
	}

	nOut, err := r.ReadVarInt()
	if err != nil {
		return tx, err
	}
	if nOut > MaxOutputsPerTx {
		return tx, fmt.Errorf("%w: %d outputs", ErrOversizeField, nOut)
	}
	if nOut == 0 {
		return tx, errors.New("chainparse: transaction has zero outputs")
	}
	tx.Outputs = make([]model.BlockOutput, 0, nOut)
	for i := uint64(0); i < nOut; i++ {
		out, err := parseOutput(r)
		if err != nil {
			return tx, fmt.Errorf("output %d: %w", i, err)
		}
		tx.Outputs = append(tx.Outputs, out)
	}

	lockTime, err := r.ReadU32()
	if err != nil {
		return tx, err
	}
	tx.LockTime = lockTime

	end := r.Pos()
	tx.RawLength = uint32(end - start)

	raw, err := sliceBetween(r, start, end)
	if err != nil {
		return tx, err
	}
	tx.Hash = btcaddr.Sha256d(raw)
	return tx, nil
}

func parseInput(r *breader.Reader) (model.BlockInput, error) {
	var in model.BlockInput
	prevHash, err := r.ReadHash256()
	if err != nil {
		return in, err
	}
	in.PrevHash = prevHash

	prevIndex, err := r.ReadU32()
	if err != nil {
		return in, err
	}
	in.PrevIndex = prevIndex

	scriptLen, err := r.ReadVarInt()
	if err != nil {
		return in, err
	}
	if scriptLen > MaxScriptLength {
		return in, fmt.Errorf("%w: script length %d", ErrOversizeField, scriptLen)
	}
	sc, err := r.ReadBytes(int(scriptLen))
	if err != nil {
		return in, err
	}
	in.Script = sc

	seq, err := r.ReadU32()
	if err != nil {
		return in, err
	}
	in.Sequence = seq
	return in, nil
}

func parseOutput(r *breader.Reader) (model.BlockOutput, error) {
	value, err := r.ReadI64()
	if err != nil {
		return model.BlockOutput{}, err
	}
	scriptLen, err := r.ReadVarInt()
	if err != nil {
		return model.BlockOutput{}, err
	}
	if scriptLen > MaxScriptLength {
		return model.BlockOutput{}, fmt.Errorf("%w: script length %d", ErrOversizeField, scriptLen)
	}
	sc, err := r.ReadBytes(int(scriptLen))
	if err != nil {
		return model.BlockOutput{}, err
	}
	return script.Classify(value, sc), nil
}

// sliceBetween re-derives the raw byte range [start,end) of the buffer r was
// created from, for transaction-hash computation. Reader exposes no direct
// slice-by-absolute-range accessor, so this moves the cursor to start, reads
// end-start bytes with ReadBytes, and restores the cursor.
func sliceBetween(r *breader.Reader, start, end int) ([]byte, error) {
	cur := r.Pos()
	r.SetPos(start)
	b, err := r.ReadBytes(end - start)
	r.SetPos(cur)
	return b, err
}
