// Package script implements component F: the output-address classifier.
//
// Grounded directly on _examples/original_source/BlockChain.cpp's
// readOutput(), which this package follows pattern-for-pattern (including
// the ordering, which matters: the first matching pattern wins). This is
// deliberately NOT grounded on the teacher's pkg/analyzer/script.go
// ClassifyOutputScript, whose P2PKH/P2SH/P2WPKH/P2WSH/P2TR taxonomy is the
// modern SegWit/Taproot era — the wrong era for this system's legacy
// KeyType enum.
package script

import (
	"github.com/jratcliff63367/blockchain21/internal/btcaddr"
	"github.com/jratcliff63367/blockchain21/internal/model"
)

// Bitcoin script opcodes relevant to output classification.
const (
	opPushData1     = 0x4c
	op0             = 0x00
	op1             = 0x51
	op5             = 0x55
	op16            = 0x60
	opReturn        = 0x6a
	opDup           = 0x76
	opEqual         = 0x87
	opEqualVerify   = 0x88
	opHash160       = 0xa9
	opCheckSig      = 0xac
	opCheckMultisig = 0xae
)

const maxKeySlots = 5

// Classify inspects a challenge script and fills in a model.BlockOutput's
// KeyType, key slots, composite address, and display string. It never
// returns an error: unrecognized scripts classify as KeyUnknown with a
// placeholder address and the Warning flag set, per spec §4.F/§7.
func Classify(value int64, scriptPubKey []byte) model.BlockOutput {
	out := model.BlockOutput{Value: value, Script: scriptPubKey}

	switch {
	case len(scriptPubKey) == 0:
		out.KeyType = model.KeyZeroLength
		out.Warning = true
		return out

	case len(scriptPubKey) == 67 && scriptPubKey[0] == 65 && scriptPubKey[66] == opCheckSig:
		setSingleKey(&out, model.KeyUncompressedP2PK, scriptPubKey[1:66], true)
		return out

	case len(scriptPubKey) == 40 && scriptPubKey[0] == opReturn:
		out.KeyType = model.KeyStealth
		out.AsciiAddress = ""
		return out

	case len(scriptPubKey) == 66 && scriptPubKey[65] == opCheckSig:
		setSingleKey(&out, model.KeyUncompressedP2PK, scriptPubKey[0:65], true)
		return out

	case len(scriptPubKey) == 35 && scriptPubKey[34] == opCheckSig:
		setSingleKey(&out, model.KeyCompressedP2PK, scriptPubKey[1:34], false)
		return out

	case len(scriptPubKey) == 33 && scriptPubKey[0] == 0x20:
		setSingleKey(&out, model.KeyTruncatedCompressed, scriptPubKey[1:33], false)
		return out

	case len(scriptPubKey) == 23 && scriptPubKey[0] == opHash160 && scriptPubKey[1] == 20 && scriptPubKey[22] == opEqual:
		var h [20]byte
		copy(h[:], scriptPubKey[2:22])
		out.KeyType = model.KeyP2SH
		addKey(&out, btcaddr.Ripemd160ToAddress(h, btcaddr.PrefixP2SH))
		finalizeDisplay(&out)
		return out

	case len(scriptPubKey) >= 25 && scriptPubKey[0] == opDup && scriptPubKey[1] == opHash160 && scriptPubKey[2] == 20:
		var h [20]byte
		copy(h[:], scriptPubKey[3:23])
		out.KeyType = model.KeyP2PKH
		addKey(&out, btcaddr.Ripemd160ToAddress(h, btcaddr.PrefixP2PKH))
		finalizeDisplay(&out)
		return out
	}

	if isMultisig(scriptPubKey) {
		classifyMultisig(&out, scriptPubKey)
		return out
	}

	if off, ok := scanEmbeddedP2PKH(scriptPubKey); ok {
		var h [20]byte
		copy(h[:], scriptPubKey[off+3:off+23])
		out.KeyType = model.KeyP2PKH
		addKey(&out, btcaddr.Ripemd160ToAddress(h, btcaddr.PrefixP2PKH))
		finalizeDisplay(&out)
		return out
	}

	out.KeyType = model.KeyUnknown
	out.Warning = true
	finalizeDisplay(&out)
	return out
}

func setSingleKey(out *model.BlockOutput, kt model.KeyType, pubkey []byte, uncompressed bool) {
	out.KeyType = kt
	var addr model.Address
	var err error
	if uncompressed {
		addr, err = btcaddr.UncompressedP2PKToAddress(pubkey)
	} else if kt == model.KeyCompressedP2PK {
		addr, err = btcaddr.CompressedP2PKToAddress(pubkey)
	} else {
		// TRUNCATED_COMPRESSED: the leading parity byte (0x02/0x03) was not
		// captured by the pattern; ResolveTruncatedParity supplies one that
		// decodes on the secp256k1 curve (0x02 for any valid x).
		parity := btcaddr.ResolveTruncatedParity(pubkey)
		candidate := append([]byte{parity}, pubkey...)
		addr, err = btcaddr.CompressedP2PKToAddress(candidate)
	}
	if err != nil {
		out.Warning = true
		finalizeDisplay(out)
		return
	}
	addKey(out, addr)
	finalizeDisplay(out)
}

func addKey(out *model.BlockOutput, addr model.Address) {
	if out.KeyCount < maxKeySlots {
		out.Keys[out.KeyCount] = addr
		out.KeyCount++
	}
}

func finalizeDisplay(out *model.BlockOutput) {
	if out.KeyCount == 0 {
		out.AsciiAddress = ""
		return
	}
	if out.KeyType == model.KeyMultisig {
		out.AsciiAddress = btcaddr.Base58CheckEncode(out.Composite)
		return
	}
	out.AsciiAddress = btcaddr.Base58CheckEncode(out.Keys[0])
}

// isMultisig reports whether script ends with OP_CHECKMULTISIG, is longer
// than 25 bytes, starts with an OP_0..OP_5 "m" opcode, and whose penultimate
// byte (the "n" opcode, before OP_CHECKMULTISIG) is OP_1..OP_5.
func isMultisig(s []byte) bool {
	if len(s) <= 25 {
		return false
	}
	if s[len(s)-1] != opCheckMultisig {
		return false
	}
	m := s[0]
	if m < op0 || m > op5 {
		return false
	}
	n := s[len(s)-2]
	if n < op1 || n > op5 {
		return false
	}
	return true
}

// classifyMultisig walks the inner bytes of a multisig script, extracting up
// to 5 public keys (0x21-length-prefixed compressed, 0x41-length-prefixed
// uncompressed), deriving an address for each, and synthesizing the
// composite address from all 5 slots (zeroed where unused).
func classifyMultisig(out *model.BlockOutput, s []byte) {
	out.KeyType = model.KeyMultisig
	i := 1 // skip the leading "m" opcode
	end := len(s) - 2
	for i < end && out.KeyCount < maxKeySlots {
		switch s[i] {
		case 0x21: // compressed pubkey push
			if i+1+33 > end {
				i = end
				continue
			}
			pk := s[i+1 : i+1+33]
			if addr, err := btcaddr.CompressedP2PKToAddress(pk); err == nil {
				addKey(out, addr)
			}
			i += 1 + 33
		case 0x41: // uncompressed pubkey push
			if i+1+65 > end {
				i = end
				continue
			}
			pk := s[i+1 : i+1+65]
			if addr, err := btcaddr.UncompressedP2PKToAddress(pk); err == nil {
				addKey(out, addr)
			}
			i += 1 + 65
		default:
			i++
		}
	}
	var slots [5]model.Address
	copy(slots[:], out.Keys[:])
	out.Composite = btcaddr.CompositeMultisigAddress(slots)
	finalizeDisplay(out)
}

// scanEmbeddedP2PKH is the last-resort heuristic match: scan for an
// OP_DUP OP_HASH160 0x14 <20 bytes> OP_EQUALVERIFY OP_CHECKSIG pattern
// anywhere in the script. Per spec §9 this pattern is heuristic and must
// only be tried after every other pattern has failed.
func scanEmbeddedP2PKH(s []byte) (int, bool) {
	const patLen = 25
	for off := 0; off+patLen <= len(s); off++ {
		if s[off] == opDup && s[off+1] == opHash160 && s[off+2] == 20 &&
			s[off+23] == opEqualVerify && s[off+24] == opCheckSig {
			return off, true
		}
	}
	return 0, false
}
