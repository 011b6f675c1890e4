package script

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/jratcliff63367/blockchain21/internal/model"
	"github.com/stretchr/testify/require"
)

func TestClassifyP2PKH(t *testing.T) {
	script := append([]byte{opDup, opHash160, 20}, make([]byte, 20)...)
	script = append(script, opEqualVerify, opCheckSig)
	out := Classify(5000, script)
	require.Equal(t, model.KeyP2PKH, out.KeyType)
	require.Equal(t, 1, out.KeyCount)
	require.NotEmpty(t, out.AsciiAddress)
	require.False(t, out.Warning)
}

func TestClassifyP2SH(t *testing.T) {
	script := append([]byte{opHash160, 20}, make([]byte, 20)...)
	script = append(script, opEqual)
	out := Classify(0, script)
	require.Equal(t, model.KeyP2SH, out.KeyType)
}

func TestClassifyCompressedP2PK(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pub := priv.PubKey().SerializeCompressed()
	script := append([]byte{0x21}, pub...)
	script = append(script, opCheckSig)
	out := Classify(0, script)
	require.Equal(t, model.KeyCompressedP2PK, out.KeyType)
	require.Equal(t, 1, out.KeyCount)
}

func TestClassifyUncompressedP2PK(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pub := priv.PubKey().SerializeUncompressed()
	script := append([]byte{0x41}, pub...)
	script = append(script, opCheckSig)
	out := Classify(0, script)
	require.Equal(t, model.KeyUncompressedP2PK, out.KeyType)
}

func TestClassifyStealthOpReturn(t *testing.T) {
	script := make([]byte, 40)
	script[0] = opReturn
	out := Classify(0, script)
	require.Equal(t, model.KeyStealth, out.KeyType)
	require.Empty(t, out.AsciiAddress)
}

func TestClassifyZeroLength(t *testing.T) {
	out := Classify(0, nil)
	require.Equal(t, model.KeyZeroLength, out.KeyType)
	require.True(t, out.Warning)
}

func TestClassifyUnknownSetsWarning(t *testing.T) {
	out := Classify(0, []byte{0x01, 0x02, 0x03})
	require.Equal(t, model.KeyUnknown, out.KeyType)
	require.True(t, out.Warning)
}

func TestClassifyMultisigTwoOfThree(t *testing.T) {
	var script []byte
	script = append(script, op1+1) // m=2
	for i := 0; i < 3; i++ {
		priv, err := btcec.NewPrivateKey()
		require.NoError(t, err)
		pub := priv.PubKey().SerializeCompressed()
		script = append(script, 0x21)
		script = append(script, pub...)
	}
	script = append(script, op1+2) // n=3 (op1..op5 consecutive)
	script = append(script, opCheckMultisig)

	out := Classify(0, script)
	require.Equal(t, model.KeyMultisig, out.KeyType)
	require.Equal(t, 3, out.KeyCount)
	require.NotEmpty(t, out.AsciiAddress)
}

func TestClassifyOrderPrefersUncompressedP2PKOverEmbeddedHeuristic(t *testing.T) {
	// A 67-byte script matching the exact uncompressed-P2PK pattern must
	// never fall through to the embedded-P2PKH heuristic, even if one
	// happens to be byte-coincident somewhere inside it.
	script := make([]byte, 67)
	script[0] = 65
	script[66] = opCheckSig
	out := Classify(0, script)
	require.Equal(t, model.KeyUncompressedP2PK, out.KeyType)
}
