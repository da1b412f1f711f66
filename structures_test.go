package phantomfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootDescriptor_packUnpackRoundTrip(t *testing.T) {
	rd := &RootDescriptor{
		Magic:            WellKnownMagic,
		VersionMajor:     1,
		VersionMinor:     0,
		RequiredFeatures: 0,
		OptionalFeatures: 0,
		RootObjectId:     1,
		ObjtabSize:       1024,
		ObjtabEnd:        NewSector128(4096),
		AllocTabSize:     1024,
		AllocTabBegin:    2,
		HeaderSize:       RootDescriptorSize,
	}
	rd.SetVolumeId(Uuid{Lo: 1, Hi: 2})

	raw, err := rd.Pack()
	require.NoError(t, err)
	require.Len(t, raw, RootDescriptorSize)

	rd2, err := UnpackRootDescriptor(raw)
	require.NoError(t, err)
	require.Equal(t, rd.Magic, rd2.Magic)
	require.Equal(t, rd.RootObjectId, rd2.RootObjectId)
	require.Equal(t, rd.ObjtabEnd, rd2.ObjtabEnd)
	require.Equal(t, rd.VolumeId(), rd2.VolumeId())
}

func TestObject_packUnpackRoundTrip(t *testing.T) {
	o := &Object{
		StrongRef:          1,
		WeakRef:            1,
		StreamsSize:        StreamBlockSize,
		StreamsRef:         NewSector128(16),
		StreamsIndirection: 1,
		Type:               ObjectTypeDirectory,
	}

	raw, err := o.Pack()
	require.NoError(t, err)
	require.Len(t, raw, ObjectSize)

	o2, err := UnpackObject(raw)
	require.NoError(t, err)
	require.True(t, o2.IsLive())
	require.Equal(t, ObjectTypeDirectory, o2.Type)
	require.Equal(t, o.StreamsRef, o2.StreamsRef)
}

func TestStreamListing_packUnpackRoundTrip(t *testing.T) {
	sl := &StreamListing{
		Flags:      StreamFlagRequired.WithIndirection(1),
		ContentRef: NewSector128(7),
		Size:       2048,
	}
	copy(sl.Name[:], "Streams")

	raw, err := sl.Pack()
	require.NoError(t, err)
	require.Len(t, raw, StreamListingSize)

	sl2, err := UnpackStreamListing(raw)
	require.NoError(t, err)
	require.Equal(t, "Streams", string(sl2.NameBytes()))
	require.True(t, sl2.Flags.Has(StreamFlagRequired))
	require.Equal(t, uint8(1), sl2.Flags.Indirection())
}

func TestStreamFlags_indirectionRoundTrip(t *testing.T) {
	f := StreamFlags(0).WithIndirection(9)
	require.Equal(t, uint8(9), f.Indirection())

	f2 := f | StreamFlagRequired
	require.True(t, f2.Has(StreamFlagRequired))
	require.Equal(t, uint8(9), f2.Indirection())
}

func TestDirectoryElement_packUnpackRoundTrip(t *testing.T) {
	de := &DirectoryElement{
		ObjIdx: 5,
		Flags:  DirectoryElementHidden,
	}
	copy(de.Name[:], "secret.txt")

	raw, err := de.Pack()
	require.NoError(t, err)
	require.Len(t, raw, DirectoryElementSize)

	de2, err := UnpackDirectoryElement(raw)
	require.NoError(t, err)
	require.True(t, de2.IsPresent())
	require.Equal(t, "secret.txt", string(de2.NameBytes()))
	require.True(t, de2.Flags.Has(DirectoryElementHidden))
}

func TestSecurityDescRowFlags_mode(t *testing.T) {
	f := SecurityDescRowFlags(0).WithMode(SecurityModeDeny)
	require.Equal(t, SecurityModeDeny, f.Mode())
	require.False(t, f.IsRequired())

	f2 := f | SecurityRowRequired
	require.True(t, f2.IsRequired())
	require.Equal(t, SecurityModeDeny, f2.Mode())
}

func TestVolumeSpan_packUnpackRoundTrip(t *testing.T) {
	vs := &VolumeSpan{BaseSector: NewSector128(99), Extent: 3}

	raw, err := vs.Pack()
	require.NoError(t, err)
	require.Len(t, raw, VolumeSpanSize)

	vs2, err := UnpackVolumeSpan(raw)
	require.NoError(t, err)
	require.Equal(t, vs.BaseSector, vs2.BaseSector)
	require.Equal(t, vs.Extent, vs2.Extent)
}
