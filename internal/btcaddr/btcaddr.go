// Package btcaddr implements the hash and address primitives of component A:
// SHA-256d, RIPEMD-160, CRC-32 bucketing, Base58Check encode/decode, and
// address derivation from the public-key variants the classifier recognizes.
//
// Grounded on _examples/original_source/BitcoinAddress.cpp. The double-SHA256
// work reuses github.com/btcsuite/btcd/chaincfg/chainhash (already a teacher
// dependency); RIPEMD-160 comes from golang.org/x/crypto/ripemd160 since the
// standard library carries none; Base58Check from github.com/mr-tron/base58.
package btcaddr

import (
	"bytes"
	"errors"
	"hash/crc32"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/jratcliff63367/blockchain21/internal/model"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // no modern replacement for this legacy chain hash
)

const (
	PrefixP2PKH = 0x00
	PrefixP2SH  = 0x05
)

var (
	// ErrBadChecksum is returned by Base58CheckDecode when the trailing
	// 4 bytes do not match SHA256(SHA256(payload)).
	ErrBadChecksum = errors.New("btcaddr: base58check checksum mismatch")
	// ErrBadLength is returned when the decoded payload is not exactly 25 bytes.
	ErrBadLength = errors.New("btcaddr: base58check decoded length must be 25")
)

// Sha256d computes the double-SHA256 digest used throughout Bitcoin.
func Sha256d(b []byte) model.Hash256 {
	return model.Hash256(chainhash.DoubleHashH(b))
}

// Ripemd160 computes RIPEMD-160(b).
func Ripemd160(b []byte) [20]byte {
	h := ripemd160.New()
	h.Write(b)
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// CRC32 computes the IEEE CRC-32 of b seeded with seed, used by the indexer
// (component H) to fast-bucket addresses before falling back to full
// byte comparison. Grounded on original_source/CRC32.h's contract; the
// computation itself is exactly what hash/crc32 already provides.
func CRC32(b []byte, seed uint32) uint32 {
	table := crc32.IEEETable
	return crc32.Update(seed, table, b)
}

// Base58CheckEncode renders a 25-byte address as its familiar ASCII form.
func Base58CheckEncode(addr model.Address) string {
	return base58.Encode(addr[:])
}

// Base58CheckDecode parses an ASCII address, verifying both its length and
// its checksum. Unlike original_source/BitcoinAddress.cpp's
// bitcoinAsciiToAddress (whose checksum comparison ORs the four checksum
// bytes together instead of requiring all four to match), this requires a
// full 4-byte match — flipping any single input bit must break decoding.
func Base58CheckDecode(ascii string) (model.Address, error) {
	var addr model.Address
	decoded, err := base58.Decode(ascii)
	if err != nil {
		return addr, err
	}
	if len(decoded) != 25 {
		return addr, ErrBadLength
	}
	copy(addr[:], decoded)
	sum := Sha256d(addr[:21])
	if !bytes.Equal(sum[:4], addr[21:25]) {
		return addr, ErrBadChecksum
	}
	return addr, nil
}

func withChecksum(prefix byte, body []byte) model.Address {
	var addr model.Address
	addr[0] = prefix
	copy(addr[1:21], body)
	sum := Sha256d(addr[:21])
	copy(addr[21:25], sum[:4])
	return addr
}

// UncompressedP2PKToAddress derives the legacy pay-to-pubkey address for an
// uncompressed public key. pubkey MUST be 65 bytes starting with 0x04.
func UncompressedP2PKToAddress(pubkey []byte) (model.Address, error) {
	if len(pubkey) != 65 || pubkey[0] != 0x04 {
		return model.Address{}, errors.New("btcaddr: uncompressed pubkey must be 65 bytes starting 0x04")
	}
	h := Ripemd160(chainhash.HashB(pubkey))
	return withChecksum(PrefixP2PKH, h[:]), nil
}

// CompressedP2PKToAddress derives the legacy pay-to-pubkey address for a
// compressed public key. pubkey MUST be 33 bytes starting with 0x02 or 0x03.
func CompressedP2PKToAddress(pubkey []byte) (model.Address, error) {
	if len(pubkey) != 33 || (pubkey[0] != 0x02 && pubkey[0] != 0x03) {
		return model.Address{}, errors.New("btcaddr: compressed pubkey must be 33 bytes starting 0x02/0x03")
	}
	h := Ripemd160(chainhash.HashB(pubkey))
	return withChecksum(PrefixP2PKH, h[:]), nil
}

// ResolveTruncatedParity picks a leading parity byte (0x02/0x03) for a
// 32-byte truncated-compressed key candidate (spec §4.F's
// TRUNCATED_COMPRESSED pattern drops it) by testing which parity decodes to
// a point on the secp256k1 curve, trying 0x02 first. Any x-coordinate on the
// curve decodes under both parities, so the result is 0x02 whenever x is a
// valid x-coordinate, and 0x02 is also returned when neither parses. The y
// parity of the original key is not recovered.
func ResolveTruncatedParity(x []byte) byte {
	for _, parity := range []byte{0x02, 0x03} {
		candidate := append([]byte{parity}, x...)
		if _, err := btcec.ParsePubKey(candidate); err == nil {
			return parity
		}
	}
	return 0x02
}

// Ripemd160ToAddress wraps a 20-byte hash with the given network prefix.
// Used for both P2PKH (PrefixP2PKH) and P2SH (PrefixP2SH).
func Ripemd160ToAddress(h [20]byte, prefix byte) model.Address {
	return withChecksum(prefix, h[:])
}

// CompositeMultisigAddress synthesizes the composite address for a multisig
// output: RIPEMD-160 of the concatenation of all five 25-byte key slots
// (including zeroed/unused slots), wrapped as a network-0 (P2PKH prefix)
// address.
func CompositeMultisigAddress(slots [5]model.Address) model.Address {
	var buf bytes.Buffer
	for _, s := range slots {
		buf.Write(s[:])
	}
	h := Ripemd160(buf.Bytes())
	return withChecksum(PrefixP2PKH, h[:])
}
