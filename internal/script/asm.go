package script

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Disassemble converts script bytes to human-readable ASM, for the
// supplemented deep-dive inspector (SPEC_FULL.md §6.2). Adapted from the
// teacher's pkg/analyzer/script.go DisassembleScript/opcodeToName, which are
// taxonomy-agnostic and so carry over unchanged from the SegWit-era
// classifier they originally served.
func Disassemble(s []byte) string {
	if len(s) == 0 {
		return ""
	}
	var parts []string
	i := 0
	for i < len(s) {
		op := s[i]
		i++
		switch {
		case op == 0x00:
			parts = append(parts, "OP_0")
		case op >= 0x01 && op <= 0x4b:
			n := int(op)
			if i+n > len(s) {
				parts = append(parts, fmt.Sprintf("OP_PUSHBYTES_%d", n))
				i = len(s)
				break
			}
			parts = append(parts, fmt.Sprintf("OP_PUSHBYTES_%d %s", n, hex.EncodeToString(s[i:i+n])))
			i += n
		case op == opPushData1:
			if i >= len(s) {
				parts = append(parts, "OP_PUSHDATA1")
				break
			}
			n := int(s[i])
			i++
			if i+n > len(s) {
				n = len(s) - i
			}
			parts = append(parts, fmt.Sprintf("OP_PUSHDATA1 %s", hex.EncodeToString(s[i:i+n])))
			i += n
		case op == 0x4d:
			if i+1 >= len(s) {
				parts = append(parts, "OP_PUSHDATA2")
				break
			}
			n := int(binary.LittleEndian.Uint16(s[i : i+2]))
			i += 2
			if i+n > len(s) {
				n = len(s) - i
			}
			parts = append(parts, fmt.Sprintf("OP_PUSHDATA2 %s", hex.EncodeToString(s[i:i+n])))
			i += n
		case op == 0x4e:
			if i+3 >= len(s) {
				parts = append(parts, "OP_PUSHDATA4")
				break
			}
			n := int(binary.LittleEndian.Uint32(s[i : i+4]))
			i += 4
			if i+n > len(s) {
				n = len(s) - i
			}
			parts = append(parts, fmt.Sprintf("OP_PUSHDATA4 %s", hex.EncodeToString(s[i:i+n])))
			i += n
		default:
			parts = append(parts, opcodeName(op))
		}
	}
	return strings.Join(parts, " ")
}

func opcodeName(op byte) string {
	switch op {
	case 0x4f:
		return "OP_1NEGATE"
	case 0x50:
		return "OP_RESERVED"
	case 0x51, 0x52, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59, 0x5a, 0x5b, 0x5c, 0x5d, 0x5e, 0x5f, 0x60:
		return fmt.Sprintf("OP_%d", int(op)-0x50)
	case 0x61:
		return "OP_NOP"
	case 0x63:
		return "OP_IF"
	case 0x64:
		return "OP_NOTIF"
	case 0x67:
		return "OP_ELSE"
	case 0x68:
		return "OP_ENDIF"
	case 0x69:
		return "OP_VERIFY"
	case opReturn:
		return "OP_RETURN"
	case 0x6b:
		return "OP_TOALTSTACK"
	case 0x6c:
		return "OP_FROMALTSTACK"
	case 0x6d:
		return "OP_2DROP"
	case 0x6e:
		return "OP_2DUP"
	case opDup:
		return "OP_DUP"
	case 0x7c:
		return "OP_SWAP"
	case opEqual:
		return "OP_EQUAL"
	case opEqualVerify:
		return "OP_EQUALVERIFY"
	case 0xa6:
		return "OP_RIPEMD160"
	case 0xa7:
		return "OP_SHA1"
	case 0xa8:
		return "OP_SHA256"
	case opHash160:
		return "OP_HASH160"
	case 0xaa:
		return "OP_HASH256"
	case 0xab:
		return "OP_CODESEPARATOR"
	case opCheckSig:
		return "OP_CHECKSIG"
	case 0xad:
		return "OP_CHECKSIGVERIFY"
	case opCheckMultisig:
		return "OP_CHECKMULTISIG"
	case 0xaf:
		return "OP_CHECKMULTISIGVERIFY"
	case 0xb1:
		return "OP_CHECKLOCKTIMEVERIFY"
	case 0xb2:
		return "OP_CHECKSEQUENCEVERIFY"
	}
	return fmt.Sprintf("OP_UNKNOWN_0x%02x", op)
}

// ParseOpReturn extracts and concatenates the data pushes of a STEALTH/
// OP_RETURN output, for display purposes only (not used by the classifier).
func ParseOpReturn(s []byte) (dataHex string, dataUTF8 *string, protocol string) {
	if len(s) == 0 || s[0] != opReturn {
		return "", nil, "unknown"
	}
	var all []byte
	i := 1
	for i < len(s) {
		op := s[i]
		i++
		var n int
		switch {
		case op >= 0x01 && op <= 0x4b:
			n = int(op)
		case op == opPushData1:
			if i >= len(s) {
				i = len(s)
				continue
			}
			n = int(s[i])
			i++
		case op == 0x4d:
			if i+1 >= len(s) {
				i = len(s)
				continue
			}
			n = int(binary.LittleEndian.Uint16(s[i : i+2]))
			i += 2
		default:
			i = len(s)
			continue
		}
		if i+n > len(s) {
			break
		}
		all = append(all, s[i:i+n]...)
		i += n
	}
	dataHex = hex.EncodeToString(all)
	if len(all) > 0 && isValidUTF8(all) {
		str := string(all)
		dataUTF8 = &str
	}
	switch {
	case len(all) >= 4 && bytes.Equal(all[:4], []byte{0x6f, 0x6d, 0x6e, 0x69}):
		protocol = "omni"
	case len(all) >= 5 && bytes.Equal(all[:5], []byte{0x01, 0x09, 0xf9, 0x11, 0x02}):
		protocol = "opentimestamps"
	default:
		protocol = "unknown"
	}
	return dataHex, dataUTF8, protocol
}

func isValidUTF8(data []byte) bool {
	for _, r := range string(data) {
		if r == '�' {
			return false
		}
	}
	return true
}
