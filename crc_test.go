package phantomfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCrc32Cksum_knownVector(t *testing.T) {
	// "123456789" is the standard check vector for CRC-32/CKSUM, whose
	// published check value is 0x765e7680.
	got := crc32Cksum([]byte("123456789"))
	require.Equal(t, uint32(0x765e7680), got)
}

func TestCrc32Cksum_empty(t *testing.T) {
	got := crc32Cksum(nil)
	require.Equal(t, uint32(0xffffffff), got)
}
