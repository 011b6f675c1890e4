package analytics

import (
	"path/filepath"
	"testing"

	"github.com/jratcliff63367/blockchain21/internal/index"
	"github.com/jratcliff63367/blockchain21/internal/model"
	"github.com/jratcliff63367/blockchain21/internal/records"
	"github.com/stretchr/testify/require"
)

func buildChain(t *testing.T) (txPath string, addresses []model.Address) {
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
		Time: 1600086400, // one day later
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

	require.NoError(t, ix.Close())

	al, err := index.LoadAddressList(addrPath)
	require.NoError(t, err)
	return txPath, al.Addresses
}

func TestBalanceAtRespectsCutoff(t *testing.T) {
	txPath, addresses := buildChain(t)
	recs, err := records.Build(txPath, uint32(len(addresses)))
	require.NoError(t, err)

	e := NewEngine(recs, addresses, 1700000000)
	// Miner received at t=1600000000 and spent the whole output at t=1600086400.
	require.Equal(t, int64(5000000000), e.BalanceAt(0, 1600000000))
	require.Equal(t, int64(0), e.BalanceAt(0, 1600086400))
}

func TestTopBalancesOrdersDescending(t *testing.T) {
	txPath, addresses := buildChain(t)
	recs, err := records.Build(txPath, uint32(len(addresses)))
	require.NoError(t, err)

	e := NewEngine(recs, addresses, 1700000000)
	rows := e.TopBalances(10, 1700000000)
	require.Len(t, rows, 2)
	require.GreaterOrEqual(t, rows[0].BalanceSats, rows[1].BalanceSats)
}

func TestDailyStatisticsBucketsByDay(t *testing.T) {
	txPath, addresses := buildChain(t)
	buckets, zombies, err := DailyStatistics(txPath, addresses)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	require.Empty(t, zombies)

	require.Equal(t, uint64(1), buckets[0].Transactions)
	require.Equal(t, uint64(1), buckets[1].Transactions)
	require.Equal(t, uint64(1), buckets[1].InputCount)
}

func TestEngineNowReturnsConfiguredCutoff(t *testing.T) {
	e := NewEngine(nil, nil, 12345)
	require.Equal(t, uint32(12345), e.Now())
}
