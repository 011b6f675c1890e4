package scan

import "github.com/jratcliff63367/blockchain21/internal/model"

// BuildChain walks backward from tip through headers' PrevHash pointers to
// build the forward-ordered (genesis-first) canonical chain, dropping
// orphans. Grounded on BlockChainImpl::buildBlockChain's two-pass algorithm:
// first count the chain length by walking tip→genesis, then fill the array
// from the known length backward.
func BuildChain(headers map[model.Hash256]model.BlockHeader, tip model.Hash256) []model.BlockHeader {
	length := 0
	for h, ok := tip, true; ok; {
		bh, found := headers[h]
		if !found {
			break
		}
		length++
		if bh.PrevHash.IsZero() {
			break
		}
		h, ok = bh.PrevHash, true
	}

	chain := make([]model.BlockHeader, length)
	idx := length - 1
	for h, ok := tip, true; ok && idx >= 0; {
		bh, found := headers[h]
		if !found {
			break
		}
		chain[idx] = bh
		idx--
		if bh.PrevHash.IsZero() {
			break
		}
		h, ok = bh.PrevHash, true
	}
	return chain
}

// OrphanCount reports |headers| - |chain|, the number of scanned blocks not
// reachable from the tip.
func OrphanCount(headers map[model.Hash256]model.BlockHeader, chain []model.BlockHeader) int {
	return len(headers) - len(chain)
}
