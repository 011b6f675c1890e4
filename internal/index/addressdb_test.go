package index

import (
	"path/filepath"
	"testing"

	"github.com/jratcliff63367/blockchain21/internal/model"
	"github.com/stretchr/testify/require"
)

func TestAddressTableInternsDeduplicated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "PublicKeys.bin")
	at, err := NewAddressTable(path)
	require.NoError(t, err)

	var a, b model.Address
	a[0] = 1
	b[0] = 2

	idxA1, err := at.Intern(a)
	require.NoError(t, err)
	idxB, err := at.Intern(b)
	require.NoError(t, err)
	idxA2, err := at.Intern(a)
	require.NoError(t, err)

	require.Equal(t, idxA1, idxA2, "interning the same address twice must return the same index")
	require.NotEqual(t, idxA1, idxB)
	require.Equal(t, uint32(2), at.Count())
	require.NoError(t, at.Close())
}

func TestLoadAddressListRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "PublicKeys.bin")
	at, err := NewAddressTable(path)
	require.NoError(t, err)

	var addrs []model.Address
	for i := byte(0); i < 5; i++ {
		var a model.Address
		a[0] = i
		addrs = append(addrs, a)
		_, err := at.Intern(a)
		require.NoError(t, err)
	}
	require.NoError(t, at.Close())

	al, err := LoadAddressList(path)
	require.NoError(t, err)
	require.Equal(t, addrs, al.Addresses)
}
