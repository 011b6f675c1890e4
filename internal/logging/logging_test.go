package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatNumberGroupsThousands(t *testing.T) {
	cases := map[int64]string{
		0:          "0",
		5:          "5",
		999:        "999",
		1000:       "1,000",
		1234567:    "1,234,567",
		-1234:      "-1,234",
		-1:         "-1",
		1000000000: "1,000,000,000",
	}
	for n, want := range cases {
		require.Equal(t, want, FormatNumber(n))
	}
}

func TestNewBuildsSugaredLogger(t *testing.T) {
	l, err := New("")
	require.NoError(t, err)
	require.NotNil(t, l)
}
