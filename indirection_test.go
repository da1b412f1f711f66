package phantomfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadByIndirection_depthOne(t *testing.T) {
	mv := newMemVolume(SectorSize * 8)
	v := NewVolume(mv)

	dataSector := NewSector128(3)
	payload := make([]byte, SectorSize*2)
	copy(payload, "direct content, one indirection level")

	_, err := v.Seek(SeekStartSectorAt(dataSector))
	require.NoError(t, err)
	require.NoError(t, v.WriteAll(payload))

	out := make([]byte, 32)
	n, err := v.readByIndirection(dataSector, 1, 0, uint64(len(payload)), out)
	require.NoError(t, err)
	require.Equal(t, 32, n)
	require.Equal(t, "direct content, one indirection ", string(out))
}

func TestReadByIndirection_depthTwo(t *testing.T) {
	mv := newMemVolume(SectorSize * 8)
	v := NewVolume(mv)

	arraySector := NewSector128(2)
	dataSector := NewSector128(5)

	span := VolumeSpan{BaseSector: dataSector, Extent: 2}
	spanRaw, err := span.Pack()
	require.NoError(t, err)

	_, err = v.Seek(SeekStartSectorAt(arraySector))
	require.NoError(t, err)
	require.NoError(t, v.WriteAll(spanRaw))
	require.NoError(t, v.WriteZeroes(SectorSize-VolumeSpanSize))

	payload := make([]byte, SectorSize*2)
	copy(payload, "content behind one level of array indirection")

	_, err = v.Seek(SeekStartSectorAt(dataSector))
	require.NoError(t, err)
	require.NoError(t, v.WriteAll(payload))

	out := make([]byte, 16)
	n, err := v.readByIndirection(arraySector, 2, 0, uint64(len(payload)), out)
	require.NoError(t, err)
	require.Equal(t, 16, n)
	require.Equal(t, "content behind o", string(out))
}

func TestReadFullyByIndirection_exhaustedContent(t *testing.T) {
	mv := newMemVolume(SectorSize * 8)
	v := NewVolume(mv)

	dataSector := NewSector128(1)

	_, err := v.Seek(SeekStartSectorAt(dataSector))
	require.NoError(t, err)
	require.NoError(t, v.WriteZeroes(SectorSize))

	out := make([]byte, 32)
	err = v.readFullyByIndirection(dataSector, 1, SectorSize-10, SectorSize, out)
	require.Error(t, err)
	require.Equal(t, ErrUnexpectedEOF, KindOf(err))
}

func TestReadFromStream_inline(t *testing.T) {
	mv := newMemVolume(SectorSize)
	v := NewVolume(mv)

	sl := &StreamListing{Size: 10}
	copy(sl.InlineData[:], "0123456789")

	out := make([]byte, 5)
	n, err := v.readFromStream(sl, 2, out)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "23456", string(out))
}
