package phantomfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// writeStreamSlot overwrites one slot of obj's on-disk Streams array, for
// tests that need a stream CreateObject doesn't pre-populate.
func writeStreamSlot(t *testing.T, e *Engine, obj *Object, slot StreamId, sl *StreamListing) {
	t.Helper()

	_, err := e.vol.Seek(SeekStartSectorAt(obj.StreamsRef))
	require.NoError(t, err)

	_, err = e.vol.Seek(SeekCurrAt(int64(slot) * StreamListingSize))
	require.NoError(t, err)

	raw, err := sl.Pack()
	require.NoError(t, err)
	require.NoError(t, e.vol.WriteAll(raw))
}

const streamIDDirectoryContent StreamId = 3

func makeDirectoryWithEntry(t *testing.T, e *Engine, childName string, childID ObjectId) (dirID ObjectId, dirObj *Object) {
	t.Helper()

	dirID, err := e.CreateObject(ObjectTypeDirectory)
	require.NoError(t, err)

	dirObj, err = e.GetObjByID(dirID)
	require.NoError(t, err)

	contentRef, err := e.AllocateContiguousSpace(DirectoryElementSize)
	require.NoError(t, err)

	elem := &DirectoryElement{ObjIdx: childID}
	copy(elem.Name[:], childName)

	raw, err := elem.Pack()
	require.NoError(t, err)

	_, err = e.vol.Seek(SeekStartSectorAt(contentRef))
	require.NoError(t, err)
	require.NoError(t, e.vol.WriteAll(raw))

	listing := &StreamListing{
		Flags:      StreamFlagRequired.WithIndirection(1),
		ContentRef: contentRef,
		Size:       DirectoryElementSize,
	}
	copy(listing.Name[:], WellKnownStreamDirectoryContent)

	writeStreamSlot(t, e, dirObj, streamIDDirectoryContent, listing)

	return dirID, dirObj
}

func TestEngine_FindStreamByName(t *testing.T) {
	e := newFormattedEngine(t)

	_, dirObj := makeDirectoryWithEntry(t, e, "child.txt", 7)

	sl, err := e.FindStreamByName(dirObj, WellKnownStreamDirectoryContent)
	require.NoError(t, err)
	require.Equal(t, uint64(DirectoryElementSize), sl.Size)

	_, err = e.FindStreamByName(dirObj, "NoSuchStream")
	require.Error(t, err)
	require.Equal(t, ErrNotFound, KindOf(err))
}

func TestEngine_FindStreamByID(t *testing.T) {
	e := newFormattedEngine(t)

	_, dirObj := makeDirectoryWithEntry(t, e, "child.txt", 7)

	sl, err := e.FindStreamByID(dirObj, StreamIDStreams)
	require.NoError(t, err)
	require.Equal(t, "Streams", string(sl.NameBytes()))
}

func TestEngine_SearchDirectory_found(t *testing.T) {
	e := newFormattedEngine(t)

	childID, err := e.CreateObject(ObjectTypeRegularFile)
	require.NoError(t, err)

	_, dirObj := makeDirectoryWithEntry(t, e, "child.txt", childID)

	found, err := e.SearchDirectory(dirObj, "child.txt")
	require.NoError(t, err)
	require.Equal(t, childID, found)
}

func TestEngine_SearchDirectory_notFound(t *testing.T) {
	e := newFormattedEngine(t)

	_, dirObj := makeDirectoryWithEntry(t, e, "child.txt", 7)

	_, err := e.SearchDirectory(dirObj, "missing.txt")
	require.Error(t, err)
	require.Equal(t, ErrNotFound, KindOf(err))
}

func TestCompareName(t *testing.T) {
	require.Equal(t, 0, compareName("abc", "abc"))
	require.Less(t, compareName("ab", "abc"), 0)
	require.Greater(t, compareName("abd", "abc"), 0)
}
