package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/jratcliff63367/blockchain21/internal/btcaddr"
	"github.com/jratcliff63367/blockchain21/internal/model"
)

// AddressTable interns 25-byte addresses into sequential indices, backing
// PublicKeys.bin. Grounded on PublicKeyDatabaseImpl's PublicKey/
// getPublicKeyIndex, whose unordered_set<PublicKey> is CRC-32-bucketed for
// speed; in Go a plain map[model.Address]uint32 already gives O(1) lookup.
// Intern computes CRC32 of each address but neither stores nor persists it;
// the map holds only the sequential index.
type AddressTable struct {
	path    string
	f       *os.File
	w       *bufio.Writer
	offset  uint64
	indices map[model.Address]uint32
	order   []model.Address
}

// NewAddressTable creates (truncating) PublicKeys.bin at path.
func NewAddressTable(path string) (*AddressTable, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	at := &AddressTable{
		path:    path,
		f:       f,
		w:       bufio.NewWriter(f),
		indices: make(map[model.Address]uint32),
	}
	if err := at.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	at.offset = uint64(len(FileMagic) + 4)
	return at, nil
}

func (at *AddressTable) writeHeader() error {
	if _, err := at.f.WriteAt(FileMagic[:], 0); err != nil {
		return err
	}
	var cnt [4]byte
	binary.LittleEndian.PutUint32(cnt[:], uint32(len(at.order)))
	_, err := at.f.WriteAt(cnt[:], int64(len(FileMagic)))
	return err
}

// Intern returns the sequential index for addr, assigning a new one (and
// appending the address to PublicKeys.bin) on first sight. CRC32(addr) is
// computed and discarded here; a production bucket index would cache it
// alongside indices, but Go's map already supplies the O(1) lookup it exists
// to approximate.
func (at *AddressTable) Intern(addr model.Address) (uint32, error) {
	_ = btcaddr.CRC32(addr[:], 0)
	if idx, ok := at.indices[addr]; ok {
		return idx, nil
	}
	idx := uint32(len(at.order))
	at.indices[addr] = idx
	at.order = append(at.order, addr)
	if _, err := at.w.Write(addr[:]); err != nil {
		return 0, err
	}
	at.offset += 25
	return idx, nil
}

// Count returns the number of unique addresses interned so far.
func (at *AddressTable) Count() uint32 { return uint32(len(at.order)) }

// Checkpoint flushes and rewrites the header count slot.
func (at *AddressTable) Checkpoint() error {
	if err := at.w.Flush(); err != nil {
		return err
	}
	if err := at.f.Sync(); err != nil {
		return err
	}
	return at.writeHeader()
}

// Close flushes, writes the final header, and closes the file.
func (at *AddressTable) Close() error {
	if err := at.Checkpoint(); err != nil {
		at.f.Close()
		return err
	}
	return at.f.Close()
}

// AddressList is a read-only view of PublicKeys.bin, used by pass 2 and
// analytics to resolve an address index back to its 25-byte address.
type AddressList struct {
	Addresses []model.Address
}

// LoadAddressList reads PublicKeys.bin fully into memory — at mainnet scale
// this is tens of millions of 25-byte entries (well under a gigabyte), small
// enough to hold resident for the lifetime of pass 2 / analytics.
func LoadAddressList(path string) (*AddressList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var hdr [20]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	if [16]byte(hdr[:16]) != FileMagic {
		return nil, errors.New("index: bad PublicKeys.bin magic")
	}
	count := binary.LittleEndian.Uint32(hdr[16:20])

	out := make([]model.Address, count)
	for i := range out {
		if _, err := io.ReadFull(r, out[i][:]); err != nil {
			return nil, err
		}
	}
	return &AddressList{Addresses: out}, nil
}
