package phantomfs

import (
	"encoding/binary"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/go-restruct/restruct"
)

// defaultEncoding is the byte order used for every on-disk record. PhantomFS
// requires little-endian throughout; go-restruct needs this passed
// explicitly at every Pack/Unpack call, same as the teacher's parseN helpers
// do for exFAT's own little-endian structures.
var defaultEncoding = binary.LittleEndian

// Uint128 is a generic little-endian 128-bit on-disk value used for fields
// that are not sector numbers (see Sector128 for those): low 64 bits
// followed by high 64 bits.
type Uint128 struct {
	Lo uint64
	Hi uint64
}

// IsZero reports whether both words are zero.
func (u Uint128) IsZero() bool {
	return u.Lo == 0 && u.Hi == 0
}

// String returns a descriptive string.
func (u Uint128) String() string {
	return fmt.Sprintf("0x%016x%016x", u.Hi, u.Lo)
}

// ObjectId is a 1-based slot index into the object table. Zero is reserved
// to mean "absent", mirroring the niche-optional Option<NonZeroU64> encoding
// original_source/src/object.rs uses throughout.
type ObjectId uint64

// IsNone reports whether this ObjectId is the absent sentinel.
func (id ObjectId) IsNone() bool {
	return id == 0
}

// StreamId names one of an object's up to 16 stream slots. Unlike ObjectId,
// zero is a valid stream id (the Streams stream itself).
type StreamId uint64

// Well-known stream ids pre-populated by CreateObject, in the order
// original_source/src/fs.rs's create_object builds them.
const (
	StreamIDStreams            StreamId = 0
	StreamIDStrings            StreamId = 1
	StreamIDSecurityDescriptor StreamId = 2
)

// NameRef is an optional reference into an object's Strings stream: zero
// means "use the inline name array instead".
type NameRef uint64

// IsNone reports whether this reference is absent.
func (r NameRef) IsNone() bool {
	return r == 0
}

// PhantomFSMagic is the 4-byte on-disk magic number identifying a
// RootDescriptor sector.
type PhantomFSMagic [4]byte

// WellKnownMagic is the only magic value get_or_read_descriptor accepts.
var WellKnownMagic = PhantomFSMagic{0xF3, 0x50, 0x48, 0x53}

func (m PhantomFSMagic) String() string {
	return fmt.Sprintf("%02X%02X%02X%02X", m[0], m[1], m[2], m[3])
}

// RootDescriptor is the 128-byte record describing the volume as a whole. It
// lives at StartSector(1) and is mirrored into the in-memory engine by
// GetOrReadDescriptor.
type RootDescriptor struct {
	Magic            PhantomFSMagic
	VersionMajor     uint16
	VersionMinor     uint16
	RequiredFeatures uint32
	OptionalFeatures uint32
	VolumeIdLo       uint64
	VolumeIdHi       uint64
	RootObjectId     ObjectId
	ObjtabSize       uint64
	ObjtabEnd        Sector128
	AllocTabSize     uint64
	AllocTabBegin    uint64
	LabelRef         NameRef
	Label            [32]byte
	HeaderSize       uint32
	Crc              uint32
}

// RootDescriptorSize is the fixed on-disk size of a RootDescriptor.
const RootDescriptorSize = 128

// VolumeId returns the root descriptor's volume UUID.
func (rd *RootDescriptor) VolumeId() Uuid {
	return Uuid{Lo: rd.VolumeIdLo, Hi: rd.VolumeIdHi}
}

// SetVolumeId stores a volume UUID into the descriptor.
func (rd *RootDescriptor) SetVolumeId(id Uuid) {
	rd.VolumeIdLo = id.Lo
	rd.VolumeIdHi = id.Hi
}

// Pack serializes the descriptor to its 128-byte on-disk form.
func (rd *RootDescriptor) Pack() ([]byte, error) {
	buf, err := restruct.Pack(defaultEncoding, rd)
	if err != nil {
		return nil, wrapError(ErrUnknown, "failed to pack root descriptor", err)
	}

	return buf, nil
}

// UnpackRootDescriptor parses a 128-byte buffer into a RootDescriptor,
// without validating magic/version/CRC (see Engine.GetOrReadDescriptor for
// that).
func UnpackRootDescriptor(raw []byte) (*RootDescriptor, error) {
	rd := &RootDescriptor{}
	if err := restruct.Unpack(raw, defaultEncoding, rd); err != nil {
		return nil, wrapError(ErrInvalidData, "failed to unpack root descriptor", err)
	}

	return rd, nil
}

// Dump writes a human-readable rendering of the descriptor, in the style of
// the teacher's BootSectorHeader.Dump.
func (rd *RootDescriptor) Dump() string {
	return fmt.Sprintf(
		"RootDescriptor<MAGIC=(%s) VERSION=(%d.%d) VOLUME-ID=(%s) ROOT-OBJECT=(%d) "+
			"OBJTAB-SIZE=(%s) OBJTAB-END=(%s) ALLOC-TAB=(begin=%d size=%s) LABEL-REF=(%d) HEADER-SIZE=(%d) CRC=(0x%08x)>",
		rd.Magic, rd.VersionMajor, rd.VersionMinor, rd.VolumeId(), rd.RootObjectId,
		humanize.Bytes(rd.ObjtabSize), rd.ObjtabEnd, rd.AllocTabBegin, humanize.Bytes(rd.AllocTabSize),
		rd.LabelRef, rd.HeaderSize, rd.Crc)
}

// ObjectType identifies what kind of filesystem entity an Object represents.
type ObjectType uint16

const (
	ObjectTypeRegularFile ObjectType = 0
	ObjectTypeDirectory   ObjectType = 1
	ObjectTypeSymlink     ObjectType = 2
	ObjectTypePosixFifo   ObjectType = 3
	ObjectTypeUnixSocket  ObjectType = 4
	ObjectTypeBlockDevice ObjectType = 5
	ObjectTypeCharDevice  ObjectType = 6
	ObjectTypeCustomType  ObjectType = 65535
)

// String returns the type's name.
func (t ObjectType) String() string {
	switch t {
	case ObjectTypeRegularFile:
		return "RegularFile"
	case ObjectTypeDirectory:
		return "Directory"
	case ObjectTypeSymlink:
		return "Symlink"
	case ObjectTypePosixFifo:
		return "PosixFifo"
	case ObjectTypeUnixSocket:
		return "UnixSocket"
	case ObjectTypeBlockDevice:
		return "BlockDevice"
	case ObjectTypeCharDevice:
		return "CharDevice"
	case ObjectTypeCustomType:
		return "CustomType"
	default:
		return fmt.Sprintf("Unknown(%d)", uint16(t))
	}
}

// ObjectFlags is presently empty; the field exists for forward
// compatibility and is preserved verbatim across a read/modify/write cycle.
type ObjectFlags uint32

// Object is the 64-byte per-slot record in the object table.
type Object struct {
	StrongRef          uint32
	WeakRef            uint32
	StreamsSize        uint64
	StreamsRef         Sector128
	StreamsIndirection uint8
	Reserved0          [5]byte
	Type               ObjectType
	Flags              ObjectFlags
	Reserved1          [20]byte
}

// ObjectSize is the fixed on-disk size of an Object record.
const ObjectSize = 64

// IsLive reports whether the slot is occupied (weak_ref != 0), matching
// get_obj_by_id's liveness check.
func (o *Object) IsLive() bool {
	return o.WeakRef != 0
}

// Pack serializes the object to its 64-byte on-disk form.
func (o *Object) Pack() ([]byte, error) {
	buf, err := restruct.Pack(defaultEncoding, o)
	if err != nil {
		return nil, wrapError(ErrUnknown, "failed to pack object", err)
	}

	return buf, nil
}

// UnpackObject parses a 64-byte buffer into an Object.
func UnpackObject(raw []byte) (*Object, error) {
	o := &Object{}
	if err := restruct.Unpack(raw, defaultEncoding, o); err != nil {
		return nil, wrapError(ErrInvalidData, "failed to unpack object", err)
	}

	return o, nil
}

// Dump writes a human-readable rendering of the object.
func (o *Object) Dump() string {
	return fmt.Sprintf(
		"Object<STRONG=(%d) WEAK=(%d) STREAMS=(ref=%s size=%s indirection=%d) TYPE=(%s) FLAGS=(0x%08x)>",
		o.StrongRef, o.WeakRef, o.StreamsRef, humanize.Bytes(o.StreamsSize), o.StreamsIndirection, o.Type, uint32(o.Flags))
}

// StreamFlags is a 64-bit bitflag field. Bits 0-3 are the well-known flags
// below, bits 4-7 (mask 0xF0) hold the indirection depth for the stream's
// content, and the top 12 bits (mask 0xFFF0000000000000) are reserved for
// implementation use and preserved verbatim.
type StreamFlags uint64

const (
	StreamFlagRequired          StreamFlags = 0x1
	StreamFlagWriteRequired     StreamFlags = 0x2
	StreamFlagEnumerateRequired StreamFlags = 0x4
	StreamFlagPreserved         StreamFlags = 0x8
	StreamFlagIndirectionMask   StreamFlags = 0xF0
	StreamFlagImplUseMask       StreamFlags = 0xFFF0000000000000
)

// Indirection returns the indirection-depth nibble packed into bits 4-7.
func (f StreamFlags) Indirection() uint8 {
	return uint8((f & StreamFlagIndirectionMask) >> 4)
}

// WithIndirection returns a copy of f with the indirection nibble replaced.
func (f StreamFlags) WithIndirection(depth uint8) StreamFlags {
	return (f &^ StreamFlagIndirectionMask) | (StreamFlags(depth)<<4 & StreamFlagIndirectionMask)
}

// Has reports whether every bit in mask is set.
func (f StreamFlags) Has(mask StreamFlags) bool {
	return f&mask == mask
}

// String returns a descriptive string of the set well-known bits.
func (f StreamFlags) String() string {
	s := ""

	if f.Has(StreamFlagRequired) {
		s += "REQUIRED|"
	}

	if f.Has(StreamFlagWriteRequired) {
		s += "WRITE_REQUIRED|"
	}

	if f.Has(StreamFlagEnumerateRequired) {
		s += "ENUMERATE_REQUIRED|"
	}

	if f.Has(StreamFlagPreserved) {
		s += "PRESERVED|"
	}

	return fmt.Sprintf("StreamFlags<0x%016x %sindirection=%d>", uint64(f), s, f.Indirection())
}

// StreamListing is the 128-byte per-slot record describing one of an
// object's streams. An object's Streams stream is itself an array of up to
// 16 of these.
type StreamListing struct {
	Name       [32]byte
	NameRef    NameRef
	Flags      StreamFlags
	ContentRef Sector128
	Size       uint64
	Reserved   [3]uint64
	InlineData [32]byte
}

// StreamListingSize is the fixed on-disk size of a StreamListing.
const StreamListingSize = 128

// MaxStreamsPerObject is the number of slots in an object's Streams stream.
const MaxStreamsPerObject = 16

// Pack serializes the listing to its 128-byte on-disk form.
func (sl *StreamListing) Pack() ([]byte, error) {
	buf, err := restruct.Pack(defaultEncoding, sl)
	if err != nil {
		return nil, wrapError(ErrUnknown, "failed to pack stream listing", err)
	}

	return buf, nil
}

// UnpackStreamListing parses a 128-byte buffer into a StreamListing.
func UnpackStreamListing(raw []byte) (*StreamListing, error) {
	sl := &StreamListing{}
	if err := restruct.Unpack(raw, defaultEncoding, sl); err != nil {
		return nil, wrapError(ErrInvalidData, "failed to unpack stream listing", err)
	}

	return sl, nil
}

// NameBytes returns the inline name trimmed at the first NUL, for a listing
// whose NameRef is absent.
func (sl *StreamListing) NameBytes() []byte {
	return trimNulName(sl.Name[:])
}

// Dump writes a human-readable rendering of the listing.
func (sl *StreamListing) Dump() string {
	return fmt.Sprintf(
		"StreamListing<NAME=(%q) NAME-REF=(%d) FLAGS=(%s) CONTENT=(ref=%s size=%s)>",
		sl.NameBytes(), sl.NameRef, sl.Flags, sl.ContentRef, humanize.Bytes(sl.Size))
}

func trimNulName(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}

	return b
}

// DirectoryElementFlags marks properties of a single directory entry.
type DirectoryElementFlags uint64

const (
	DirectoryElementWeak   DirectoryElementFlags = 0x1
	DirectoryElementHidden DirectoryElementFlags = 0x2
)

// Has reports whether every bit in mask is set.
func (f DirectoryElementFlags) Has(mask DirectoryElementFlags) bool {
	return f&mask == mask
}

func (f DirectoryElementFlags) String() string {
	s := ""

	if f.Has(DirectoryElementWeak) {
		s += "WEAK|"
	}

	if f.Has(DirectoryElementHidden) {
		s += "HIDDEN|"
	}

	return fmt.Sprintf("DirectoryElementFlags<0x%016x %s>", uint64(f), s)
}

// DirectoryElement is the 64-byte record for one entry of a directory's
// DirectoryContent stream.
type DirectoryElement struct {
	ObjIdx    ObjectId
	NameIndex NameRef
	Flags     DirectoryElementFlags
	Name      [40]byte
}

// DirectoryElementSize is the fixed on-disk size of a DirectoryElement.
const DirectoryElementSize = 64

// IsPresent reports whether this slot names a live object.
func (de *DirectoryElement) IsPresent() bool {
	return !de.ObjIdx.IsNone()
}

// NameBytes returns the inline name trimmed at the first NUL, for an element
// whose NameIndex is absent.
func (de *DirectoryElement) NameBytes() []byte {
	return trimNulName(de.Name[:])
}

// Pack serializes the element to its 64-byte on-disk form.
func (de *DirectoryElement) Pack() ([]byte, error) {
	buf, err := restruct.Pack(defaultEncoding, de)
	if err != nil {
		return nil, wrapError(ErrUnknown, "failed to pack directory element", err)
	}

	return buf, nil
}

// UnpackDirectoryElement parses a 64-byte buffer into a DirectoryElement.
func UnpackDirectoryElement(raw []byte) (*DirectoryElement, error) {
	de := &DirectoryElement{}
	if err := restruct.Unpack(raw, defaultEncoding, de); err != nil {
		return nil, wrapError(ErrInvalidData, "failed to unpack directory element", err)
	}

	return de, nil
}

// Dump writes a human-readable rendering of the element.
func (de *DirectoryElement) Dump() string {
	return fmt.Sprintf("DirectoryElement<OBJECT=(%d) NAME-INDEX=(%d) FLAGS=(%s) NAME=(%q)>",
		de.ObjIdx, de.NameIndex, de.Flags, de.NameBytes())
}

// SecurityDescRowMode is the low byte of SecurityDescRowFlags, naming the
// action a SecurityDescriptorRow takes for its principal.
type SecurityDescRowMode uint8

const (
	SecurityModePermit  SecurityDescRowMode = 0
	SecurityModeDeny    SecurityDescRowMode = 1
	SecurityModeForbid  SecurityDescRowMode = 2
	SecurityModeInherit SecurityDescRowMode = 3
)

func (m SecurityDescRowMode) String() string {
	switch m {
	case SecurityModePermit:
		return "Permit"
	case SecurityModeDeny:
		return "Deny"
	case SecurityModeForbid:
		return "Forbid"
	case SecurityModeInherit:
		return "Inherit"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// SecurityDescRowFlags packs the row's mode into its low byte (mask 0xFF),
// a Required bit at 0x100, and implementation-reserved bits in the top
// byte.
type SecurityDescRowFlags uint64

const (
	SecurityRowModeMask     SecurityDescRowFlags = 0xFF
	SecurityRowRequired     SecurityDescRowFlags = 0x100
	SecurityRowImplBitsMask SecurityDescRowFlags = 0xFF00000000000000
)

// Mode returns the row's action.
func (f SecurityDescRowFlags) Mode() SecurityDescRowMode {
	return SecurityDescRowMode(f & SecurityRowModeMask)
}

// WithMode returns a copy of f with the mode byte replaced.
func (f SecurityDescRowFlags) WithMode(m SecurityDescRowMode) SecurityDescRowFlags {
	return (f &^ SecurityRowModeMask) | (SecurityDescRowFlags(m) & SecurityRowModeMask)
}

// IsRequired reports whether an unrecognized principal must deny access
// rather than be skipped.
func (f SecurityDescRowFlags) IsRequired() bool {
	return f&SecurityRowRequired == SecurityRowRequired
}

func (f SecurityDescRowFlags) String() string {
	req := ""
	if f.IsRequired() {
		req = " required"
	}

	return fmt.Sprintf("SecurityDescRowFlags<mode=%s%s>", f.Mode(), req)
}

// SecurityDescriptorRow is the 64-byte record for one principal's
// permissions over a stream.
type SecurityDescriptorRow struct {
	Principal         Uint128
	StreamId          StreamId
	FlagsAndMode      SecurityDescRowFlags
	PermissionNameRef NameRef
	PermissionName    [24]byte
}

// SecurityDescriptorRowSize is the fixed on-disk size of a
// SecurityDescriptorRow.
const SecurityDescriptorRowSize = 64

// Pack serializes the row to its 64-byte on-disk form.
func (r *SecurityDescriptorRow) Pack() ([]byte, error) {
	buf, err := restruct.Pack(defaultEncoding, r)
	if err != nil {
		return nil, wrapError(ErrUnknown, "failed to pack security descriptor row", err)
	}

	return buf, nil
}

// UnpackSecurityDescriptorRow parses a 64-byte buffer into a
// SecurityDescriptorRow.
func UnpackSecurityDescriptorRow(raw []byte) (*SecurityDescriptorRow, error) {
	r := &SecurityDescriptorRow{}
	if err := restruct.Unpack(raw, defaultEncoding, r); err != nil {
		return nil, wrapError(ErrInvalidData, "failed to unpack security descriptor row", err)
	}

	return r, nil
}

// Dump writes a human-readable rendering of the row.
func (r *SecurityDescriptorRow) Dump() string {
	return fmt.Sprintf("SecurityDescriptorRow<PRINCIPAL=(%s) STREAM=(%d) FLAGS=(%s)>",
		r.Principal, r.StreamId, r.FlagsAndMode)
}

// LegacySecurityDescriptor is the 16-byte POSIX-mode fallback security
// record, for objects that only need the traditional uid/gid/mode triad.
type LegacySecurityDescriptor struct {
	SdUid    uint32
	SdGid    uint32
	SdMode   uint16
	Reserved [6]byte
}

// LegacySecurityDescriptorSize is the fixed on-disk size.
const LegacySecurityDescriptorSize = 16

// Pack serializes the descriptor to its 16-byte on-disk form.
func (l *LegacySecurityDescriptor) Pack() ([]byte, error) {
	buf, err := restruct.Pack(defaultEncoding, l)
	if err != nil {
		return nil, wrapError(ErrUnknown, "failed to pack legacy security descriptor", err)
	}

	return buf, nil
}

// UnpackLegacySecurityDescriptor parses a 16-byte buffer into a
// LegacySecurityDescriptor.
func UnpackLegacySecurityDescriptor(raw []byte) (*LegacySecurityDescriptor, error) {
	l := &LegacySecurityDescriptor{}
	if err := restruct.Unpack(raw, defaultEncoding, l); err != nil {
		return nil, wrapError(ErrInvalidData, "failed to unpack legacy security descriptor", err)
	}

	return l, nil
}

func (l *LegacySecurityDescriptor) String() string {
	return fmt.Sprintf("LegacySecurityDescriptor<UID=(%d) GID=(%d) MODE=(0%o)>", l.SdUid, l.SdGid, l.SdMode)
}

// DeviceId is a 16-byte opaque backing-device identifier stored alongside a
// BlockDevice/CharDevice object. Its String() method lives in uuid.go next
// to the other identifier formatting helpers.
type DeviceId struct {
	DevIdLo uint64
	DevIdHi uint64
}

// DeviceIdSize is the fixed on-disk size.
const DeviceIdSize = 16

// LegacyDeviceNumber is the 8-byte classic major/minor device pair.
type LegacyDeviceNumber struct {
	Major uint32
	Minor uint32
}

// LegacyDeviceNumberSize is the fixed on-disk size.
const LegacyDeviceNumberSize = 8

func (n LegacyDeviceNumber) String() string {
	return fmt.Sprintf("%d:%d", n.Major, n.Minor)
}

// VolumeSpan is one node of the multi-level indirection tree: a contiguous
// run of sectors, or (at an interior level) a pointer to the next level's
// array of spans.
type VolumeSpan struct {
	BaseSector Sector128
	Extent     uint64
	Reserved   uint64
}

// VolumeSpanSize is the fixed on-disk size of a VolumeSpan.
const VolumeSpanSize = 32

// SpansPerSector is how many VolumeSpan entries fit in one 1024-byte sector,
// used by the indirection walker to step through an interior level's array.
const SpansPerSector = SectorSize / VolumeSpanSize

// Pack serializes the span to its 32-byte on-disk form.
func (vs *VolumeSpan) Pack() ([]byte, error) {
	buf, err := restruct.Pack(defaultEncoding, vs)
	if err != nil {
		return nil, wrapError(ErrUnknown, "failed to pack volume span", err)
	}

	return buf, nil
}

// UnpackVolumeSpan parses a 32-byte buffer into a VolumeSpan.
func UnpackVolumeSpan(raw []byte) (*VolumeSpan, error) {
	vs := &VolumeSpan{}
	if err := restruct.Unpack(raw, defaultEncoding, vs); err != nil {
		return nil, wrapError(ErrInvalidData, "failed to unpack volume span", err)
	}

	return vs, nil
}

func (vs *VolumeSpan) String() string {
	return fmt.Sprintf("VolumeSpan<BASE=(%s) EXTENT=(%d)>", vs.BaseSector, vs.Extent)
}
