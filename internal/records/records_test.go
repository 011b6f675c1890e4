package records

import (
	"path/filepath"
	"testing"

	"github.com/jratcliff63367/blockchain21/internal/index"
	"github.com/jratcliff63367/blockchain21/internal/model"
	"github.com/stretchr/testify/require"
)

func buildTwoBlockChain(t *testing.T) (txPath string, addressCount uint32) {
	t.Helper()
	dir := t.TempDir()
	txPath = filepath.Join(dir, "TransactionFile.bin")
	addrPath := filepath.Join(dir, "PublicKeys.bin")

	ix, err := index.NewIndexer(txPath, addrPath, nil)
	require.NoError(t, err)

	var miner model.Address
	miner[0] = 0xAA
	coinbaseHash := model.Hash256{0x01}
	require.NoError(t, ix.AddBlock(0, model.Block{
		Time: 1600000000,
		Transactions: []model.BlockTransaction{
			{
				Hash:   coinbaseHash,
				Inputs: []model.BlockInput{{PrevIndex: 0xFFFFFFFF}},
				Outputs: []model.BlockOutput{
					{Value: 5000000000, KeyType: model.KeyP2PKH, Keys: [5]model.Address{miner}, KeyCount: 1},
				},
			},
		},
	}))

	var payee model.Address
	payee[0] = 0xBB
	require.NoError(t, ix.AddBlock(1, model.Block{
		Time: 1600000100,
		Transactions: []model.BlockTransaction{
			{
				Hash:   model.Hash256{0x02},
				Inputs: []model.BlockInput{{PrevHash: coinbaseHash, PrevIndex: 0}},
				Outputs: []model.BlockOutput{
					{Value: 4900000000, KeyType: model.KeyP2PKH, Keys: [5]model.Address{payee}, KeyCount: 1},
				},
			},
		},
	}))

	addressCount = ix.AddressCount()
	require.NoError(t, ix.Close())
	return txPath, addressCount
}

func TestBuildProducesCoinbaseAndSpendEntries(t *testing.T) {
	txPath, addrCount := buildTwoBlockChain(t)

	recs, err := Build(txPath, addrCount)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	miner := recs[0]
	require.Len(t, miner.Entries, 2)
	require.True(t, miner.Entries[0].Coinbase)
	require.False(t, miner.Entries[0].Spend)
	require.Equal(t, int64(5000000000), miner.Entries[0].Value)
	require.True(t, miner.Entries[1].Spend)
	require.Equal(t, int64(0), miner.Balance)

	payee := recs[1]
	require.Len(t, payee.Entries, 1)
	require.False(t, payee.Entries[0].Spend)
	require.Equal(t, int64(4900000000), payee.Balance)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	txPath, addrCount := buildTwoBlockChain(t)
	recs, err := Build(txPath, addrCount)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "PublicKeyRecords.bin")
	require.NoError(t, Save(path, recs))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded, len(recs))
	for i := range recs {
		require.Equal(t, recs[i].KeyType, loaded[i].KeyType)
		require.Equal(t, recs[i].Balance, loaded[i].Balance)
		require.Equal(t, recs[i].LastSend, loaded[i].LastSend)
		require.Equal(t, recs[i].LastReceive, loaded[i].LastReceive)
		require.Len(t, loaded[i].Entries, len(recs[i].Entries))
		for j := range recs[i].Entries {
			require.Equal(t, recs[i].Entries[j].Value, loaded[i].Entries[j].Value)
			require.Equal(t, recs[i].Entries[j].Spend, loaded[i].Entries[j].Spend)
			require.Equal(t, recs[i].Entries[j].Coinbase, loaded[i].Entries[j].Coinbase)
		}
	}
}
