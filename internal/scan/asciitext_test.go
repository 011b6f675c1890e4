package scan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindAsciiRunsFindsMaximalRuns(t *testing.T) {
	data := append([]byte{0x00, 0x01}, []byte("hello world")...)
	data = append(data, 0x00)
	data = append(data, []byte("hi")...) // too short at minLen=5

	runs := FindAsciiRuns(data, 5)
	require.Equal(t, []string{"hello world"}, runs)
}

func TestFindAsciiRunsZeroMinLenDisabled(t *testing.T) {
	require.Nil(t, FindAsciiRuns([]byte("anything"), 0))
}

func TestFindAsciiRunsTrailingRun(t *testing.T) {
	data := append([]byte{0x00}, []byte("trailing")...)
	runs := FindAsciiRuns(data, 3)
	require.Equal(t, []string{"trailing"}, runs)
}
