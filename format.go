package phantomfs

import (
	uuid "github.com/satori/go.uuid"
)

// ObjectTableReservedSize is the byte size CreateFilesystem reserves for the
// object table on a freshly formatted volume: exactly spec.md §4.6's
// "final 1024 bytes of the volume", i.e. room for 16 Object slots. The table
// is not grown: CreateObject fails with ErrUnsupported once all 16 are live.
const ObjectTableReservedSize = 1024

// AllocTableReservedSize is the byte size CreateFilesystem reserves for the
// allocation-tracking table that a real AllocateContiguousSpace
// implementation would consult.
const AllocTableReservedSize = 1024

// CreateFilesystem lays out a brand-new PhantomFS volume on vol, which must
// already be exactly volumeSectors sectors long. It zeroes the object table
// region at the tail of the volume, writes the allocation table's initial
// VolumeSpan (sectors 0 through 7) at sector 2, and leaves the new
// RootDescriptor cached on the returned Engine — call Sync to persist it.
//
// Matches original_source/src/fs.rs's create_filesystem: objtab_end is
// volumeSectors, the sector just past the volume's last byte, objtab_size/alloc_tab_size/alloc_tab_begin are all
// measured in bytes (alloc_tab_begin = 2048, the byte offset of sector 2,
// per spec.md §4.6 — not a sector number), and root_object_id is set to 1
// per spec.md §4.6 (the root directory object is expected to be allocated
// at the first CreateObject call against a freshly formatted volume).
func CreateFilesystem(vol *Volume, label string, volumeUUID uuid.UUID, volumeSectors uint64) (e *Engine, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverToError(r)
		}
	}()

	if volumeSectors < 4 {
		panicWith(ErrInvalidInput, "volume too small to format")
	}

	objtabEnd := NewSector128(volumeSectors)

	desc := &RootDescriptor{
		Magic:         WellKnownMagic,
		VersionMajor:  FormatVersionMajor,
		VersionMinor:  FormatVersionMinor,
		RootObjectId:  1,
		ObjtabSize:    ObjectTableReservedSize,
		ObjtabEnd:     objtabEnd,
		AllocTabSize:  AllocTableReservedSize,
		AllocTabBegin: 2 * SectorSize,
		HeaderSize:    RootDescriptorSize,
	}

	desc.SetVolumeId(UuidFromGoogleUUID(volumeUUID))
	copy(desc.Label[:], label)

	if _, serr := vol.Seek(SeekStartSectorAt(objtabEnd)); serr != nil {
		panicIfErr(serr)
	}

	if _, serr := vol.Seek(SeekCurrAt(-int64(ObjectTableReservedSize))); serr != nil {
		panicIfErr(serr)
	}

	panicIfErr(vol.WriteZeroes(ObjectTableReservedSize))

	rootSpan := VolumeSpan{BaseSector: NewSector128(0), Extent: 8}

	if _, serr := vol.Seek(SeekStartSectorAt(NewSector128(2))); serr != nil {
		panicIfErr(serr)
	}

	spanRaw, perr := rootSpan.Pack()
	panicIfErr(perr)

	panicIfErr(vol.WriteAll(spanRaw))
	panicIfErr(vol.WriteZeroes(SectorSize - VolumeSpanSize))

	e = &Engine{vol: vol, desc: desc}

	return e, nil
}
