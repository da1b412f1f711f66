package phantomfs

import (
	"testing"

	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/require"
)

// bumpAllocator is a minimal test-only AllocateContiguousSpace backend: it
// never reclaims space, just hands out the next free sector run.
func bumpAllocator(next *uint64) func(length uint64) (Sector128, error) {
	return func(length uint64) (Sector128, error) {
		sectors := (length + SectorSize - 1) / SectorSize
		s := NewSector128(*next)
		*next += sectors

		return s, nil
	}
}

func newFormattedEngine(t *testing.T) *Engine {
	t.Helper()

	mv := newMemVolume(SectorSize * testVolumeSectors)
	vol := NewVolume(mv)

	e, err := CreateFilesystem(vol, "", uuid.NewV4(), testVolumeSectors)
	require.NoError(t, err)
	require.NoError(t, e.Sync())

	next := uint64(10)
	e.SetAllocator(bumpAllocator(&next))

	return e
}

func TestEngine_CreateObject_thenGetObjByID(t *testing.T) {
	e := newFormattedEngine(t)

	id, err := e.CreateObject(ObjectTypeDirectory)
	require.NoError(t, err)
	require.Equal(t, ObjectId(1), id)

	obj, err := e.GetObjByID(id)
	require.NoError(t, err)
	require.True(t, obj.IsLive())
	require.Equal(t, ObjectTypeDirectory, obj.Type)
	require.Equal(t, uint64(StreamBlockSize), obj.StreamsSize)

	streams, err := e.readStreamsArray(obj)
	require.NoError(t, err)
	require.Equal(t, "Streams", string(streams[StreamIDStreams].NameBytes()))
	require.Equal(t, "Strings", string(streams[StreamIDStrings].NameBytes()))
	require.Equal(t, "SecurityDescriptor", string(streams[StreamIDSecurityDescriptor].NameBytes()))
	require.True(t, streams[StreamIDStreams].Flags.Has(StreamFlagRequired))
}

func TestEngine_CreateObject_distinctSlots(t *testing.T) {
	e := newFormattedEngine(t)

	id1, err := e.CreateObject(ObjectTypeRegularFile)
	require.NoError(t, err)

	id2, err := e.CreateObject(ObjectTypeDirectory)
	require.NoError(t, err)

	require.NotEqual(t, id1, id2)
}

func TestEngine_GetObjByID_outOfRange(t *testing.T) {
	e := newFormattedEngine(t)

	_, err := e.GetObjByID(ObjectId(e.Descriptor().ObjtabSize/ObjectSize + 1))
	require.Error(t, err)
	require.Equal(t, ErrNotFound, KindOf(err))
}

func TestEngine_GetObjByID_zeroIsInvalid(t *testing.T) {
	e := newFormattedEngine(t)

	_, err := e.GetObjByID(0)
	require.Error(t, err)
	require.Equal(t, ErrInvalidInput, KindOf(err))
}

func TestEngine_CreateObject_unsupportedWithoutAllocator(t *testing.T) {
	mv := newMemVolume(SectorSize * testVolumeSectors)
	vol := NewVolume(mv)

	e, err := CreateFilesystem(vol, "", uuid.NewV4(), testVolumeSectors)
	require.NoError(t, err)
	require.NoError(t, e.Sync())

	_, err = e.CreateObject(ObjectTypeRegularFile)
	require.Error(t, err)
	require.Equal(t, ErrUnsupported, KindOf(err))
}
