// Package scan implements components C and D: the block-file scanner and
// the canonical chain builder.
//
// Grounded on _examples/original_source/BlockChain.cpp's
// BlockChainImpl::openBlock/readBlockHeader/scanBlockChain (component C) and
// BlockChainImpl::buildBlockChain (component D).
package scan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/jratcliff63367/blockchain21/internal/chainparse"
	"github.com/jratcliff63367/blockchain21/internal/mmapfile"
	"github.com/jratcliff63367/blockchain21/internal/model"
	"go.uber.org/zap"
)

// BlockMagic is the 4-byte little-endian magic prefixing every frame in a
// blk?????.dat file (Bitcoin main-net).
const BlockMagic = 0xD9B4BEF9

// MaxBlockSize is the sanity ceiling on a declared frame length; anything
// larger is a fatal oversize-field error (spec §4.C/§7).
const MaxBlockSize = 32 * 1024 * 1024

// ErrOversizeBlock is returned when a frame declares an implausible length.
var ErrOversizeBlock = errors.New("scan: declared block length exceeds sanity ceiling")

// Scanner iterates the blk?????.dat files of a data directory in ascending
// numeric order, framing each block by its magic+length header and
// recording a BlockHeader for every valid frame it finds.
type Scanner struct {
	dir        string
	files      []string
	fileIdx    int
	cur        *mmapfile.File
	curBytes   []byte
	pos        int
	maxBlocks  uint32
	scanned    uint32
	log        *zap.SugaredLogger
	headers    map[model.Hash256]model.BlockHeader
	tip        model.Hash256
	tipValid   bool
}

// New opens a Scanner over dir, capped at maxBlocks headers (0 means
// unlimited).
func New(dir string, maxBlocks uint32, log *zap.SugaredLogger) (*Scanner, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "blk[0-9][0-9][0-9][0-9][0-9].dat"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scanner{
		dir:       dir,
		files:     matches,
		maxBlocks: maxBlocks,
		log:       log,
		headers:   make(map[model.Hash256]model.BlockHeader),
	}, nil
}

// Headers returns the set of all headers discovered so far, keyed by hash.
func (s *Scanner) Headers() map[model.Hash256]model.BlockHeader { return s.headers }

// Tip returns the most recently scanned header's hash (the chain builder's
// walk-backward starting point).
func (s *Scanner) Tip() (model.Hash256, bool) { return s.tip, s.tipValid }

func (s *Scanner) openNextFile() (bool, error) {
	if s.cur != nil {
		s.cur.Close()
		s.cur = nil
	}
	if s.fileIdx >= len(s.files) {
		return false, nil
	}
	mf, err := mmapfile.Open(s.files[s.fileIdx])
	if err != nil {
		return false, fmt.Errorf("scan: open %s: %w", s.files[s.fileIdx], err)
	}
	s.cur = mf
	s.curBytes = mf.Data()
	s.pos = 0
	s.fileIdx++
	return true, nil
}

// ScanNext advances the scan by up to one block frame. It returns
// (scannedOne, complete, error): complete is true once every file has been
// exhausted or the max-block cap has been hit.
func (s *Scanner) ScanNext() (bool, bool, error) {
	if s.maxBlocks != 0 && s.scanned >= s.maxBlocks {
		return false, true, nil
	}
	for {
		if s.cur == nil {
			ok, err := s.openNextFile()
			if err != nil {
				return false, false, err
			}
			if !ok {
				return false, true, nil
			}
		}

		if s.pos+8 > len(s.curBytes) {
			// Trailing partial frame or clean EOF: move to the next file.
			s.cur.Close()
			s.cur = nil
			continue
		}

		magic := binary.LittleEndian.Uint32(s.curBytes[s.pos:])
		if magic != BlockMagic {
			if isZeroRun(s.curBytes[s.pos:]) {
				// Trailing zero-byte run: clean EOF for this file.
				s.cur.Close()
				s.cur = nil
				continue
			}
			skip, found := s.resync()
			if !found {
				s.cur.Close()
				s.cur = nil
				continue
			}
			s.log.Infow("resynced to next block magic", "skipped_bytes", skip, "file", s.files[s.fileIdx-1])
		}

		length := binary.LittleEndian.Uint32(s.curBytes[s.pos+4:])
		if length > MaxBlockSize {
			return false, false, fmt.Errorf("%w: %d", ErrOversizeBlock, length)
		}
		bodyStart := s.pos + 8
		if bodyStart+chainparse.HeaderSize > len(s.curBytes) {
			s.cur.Close()
			s.cur = nil
			continue
		}

		hdrBuf := s.curBytes[bodyStart : bodyStart+chainparse.HeaderSize]
		parsed, err := chainparse.ParseHeader(hdrBuf)
		if err != nil {
			return false, false, err
		}

		bh := model.BlockHeader{
			Hash:       parsed.ComputedHash,
			PrevHash:   parsed.PrevHash,
			FileIndex:  uint32(s.fileIdx - 1),
			FileOffset: uint64(bodyStart),
			Length:     length,
			Time:       parsed.Time,
		}
		s.headers[bh.Hash] = bh
		s.tip = bh.Hash
		s.tipValid = true
		s.scanned++

		next := bodyStart + int(length)
		if next <= s.pos {
			next = s.pos + 8 // defensive: never stall
		}
		s.pos = next

		return true, false, nil
	}
}

// resync performs the linear recovery scan for the next magic value within
// one block-size window, per spec §4.C / scenario E6.
func (s *Scanner) resync() (int, bool) {
	window := s.pos + MaxBlockSize
	if window > len(s.curBytes) {
		window = len(s.curBytes)
	}
	for i := s.pos + 1; i+4 <= window; i++ {
		if binary.LittleEndian.Uint32(s.curBytes[i:]) == BlockMagic {
			skipped := i - s.pos
			s.pos = i
			return skipped, true
		}
	}
	return 0, false
}

func isZeroRun(b []byte) bool {
	limit := len(b)
	if limit > 64 {
		limit = 64
	}
	for i := 0; i < limit; i++ {
		if b[i] != 0 {
			return false
		}
	}
	return true
}

// Close releases the currently open file, if any.
func (s *Scanner) Close() error {
	if s.cur != nil {
		return s.cur.Close()
	}
	return nil
}

// ReadBlockBody returns the raw body bytes (post-header) for the given
// header, opening its file afresh on every call (the scanner's currently
// mapped file is not reused). Used by the driver to hand full block bytes to chainparse for
// transaction parsing.
func (s *Scanner) ReadBlockBody(h model.BlockHeader) ([]byte, error) {
	path := s.files[h.FileIndex]
	mf, err := mmapfile.Open(path)
	if err != nil {
		return nil, err
	}
	defer mf.Close()
	data := mf.Data()
	bodyStart := int(h.FileOffset) + chainparse.HeaderSize
	end := int(h.FileOffset) + int(h.Length)
	if end > len(data) {
		end = len(data)
	}
	if bodyStart > end {
		bodyStart = end
	}
	body := make([]byte, end-bodyStart)
	copy(body, data[bodyStart:end])
	return body, nil
}
