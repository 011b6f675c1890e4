package chainparse

import (
	"github.com/jratcliff63367/blockchain21/internal/breader"
	"github.com/jratcliff63367/blockchain21/internal/btcaddr"
	"github.com/jratcliff63367/blockchain21/internal/model"
)

// HeaderSize is the fixed size of a Bitcoin block header.
const HeaderSize = 80

// ParseHeader parses the 80-byte block header and computes its double-SHA256
// hash. buf must be at least HeaderSize bytes; only the first 80 are read.
func ParseHeader(buf []byte) (model.Block, error) {
	var blk model.Block
	r := breader.New(buf[:HeaderSize])

	version, err := r.ReadU32()
	if err != nil {
		return blk, err
	}
	prev, err := r.ReadHash256()
	if err != nil {
		return blk, err
	}
	merkle, err := r.ReadHash256()
	if err != nil {
		return blk, err
	}
	t, err := r.ReadU32()
	if err != nil {
		return blk, err
	}
	bits, err := r.ReadU32()
	if err != nil {
		return blk, err
	}
	nonce, err := r.ReadU32()
	if err != nil {
		return blk, err
	}

	blk.Version = version
	blk.PrevHash = prev
	blk.MerkleRoot = merkle
	blk.Time = t
	blk.Bits = bits
	blk.Nonce = nonce
	blk.ComputedHash = btcaddr.Sha256d(buf[:HeaderSize])
	return blk, nil
}
