package phantomfs

// Engine is the in-memory handle onto an open PhantomFS volume: the backing
// stream plus a cached RootDescriptor. Every exported method follows the
// teacher's recover-at-top-of-method discipline, turning any internal panic
// (always a *Error, via panicWith/panicIfErr) into a returned error.
type Engine struct {
	vol     *Volume
	desc    *RootDescriptor
	allocFn func(length uint64) (Sector128, error)
}

// NewEngine wraps an already-seekable backing stream. Call GetOrReadDescriptor
// before any other operation.
func NewEngine(vol *Volume) *Engine {
	return &Engine{vol: vol}
}

// SetAllocator installs the function AllocateContiguousSpace delegates to.
// Without one, space allocation is unsupported (see AllocateContiguousSpace).
func (e *Engine) SetAllocator(fn func(length uint64) (Sector128, error)) {
	e.allocFn = fn
}

// Descriptor returns the cached RootDescriptor, or nil if none has been
// read or created yet.
func (e *Engine) Descriptor() *RootDescriptor {
	return e.desc
}

// GetOrReadDescriptor returns the cached descriptor, reading and validating
// it from StartSector(1) on first use. Validation follows
// original_source/src/fs.rs's get_or_read_descriptor: magic, the major
// version, header size, and the CRC-32/CKSUM over all 128 bytes with the
// trailing Crc field taken as zero.
func (e *Engine) GetOrReadDescriptor() (rd *RootDescriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverToError(r)
		}
	}()

	if e.desc != nil {
		return e.desc, nil
	}

	if _, serr := e.vol.Seek(SeekStartSectorAt(NewSector128(1))); serr != nil {
		panicIfErr(serr)
	}

	raw := make([]byte, RootDescriptorSize)
	panicIfErr(e.vol.ReadFully(raw))

	rd, uerr := UnpackRootDescriptor(raw)
	panicIfErr(uerr)

	if rd.Magic != WellKnownMagic {
		panicWith(ErrInvalidData, "bad magic number")
	}

	if rd.VersionMajor != FormatVersionMajor {
		panicWithf(ErrInvalidData, "unsupported major version: (%d)", rd.VersionMajor)
	}

	if int(rd.HeaderSize) < RootDescriptorSize {
		panicWithf(ErrInvalidData, "header size too small: (%d)", rd.HeaderSize)
	}

	zeroedCrc := make([]byte, len(raw))
	copy(zeroedCrc, raw[:len(raw)-4])

	want := crc32Cksum(zeroedCrc)
	if want != rd.Crc {
		panicWithf(ErrInvalidData, "crc mismatch: (want 0x%08x got 0x%08x)", want, rd.Crc)
	}

	e.desc = rd

	return rd, nil
}

// FormatVersionMajor is the only root descriptor major version this engine
// understands.
const FormatVersionMajor = 1

// FormatVersionMinor is the minor version this engine writes when creating a
// new volume.
const FormatVersionMinor = 0

// Sync recomputes the descriptor's CRC and writes it back to
// StartSector(1). original_source/src/fs.rs's sync writes the descriptor
// without ever recomputing the CRC field, which means any in-memory mutation
// made through this engine (root_object_id, objtab growth, label) would be
// written with a stale checksum; this implementation recomputes it here
// instead, which is the only reasonable correction once sync is the sole
// place a descriptor is ever persisted.
func (e *Engine) Sync() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverToError(r)
		}
	}()

	if e.desc == nil {
		panicWith(ErrInvalidInput, "no descriptor to sync")
	}

	e.desc.Crc = 0

	raw, perr := e.desc.Pack()
	panicIfErr(perr)

	e.desc.Crc = crc32Cksum(raw)

	raw, perr = e.desc.Pack()
	panicIfErr(perr)

	if _, serr := e.vol.Seek(SeekStartSectorAt(NewSector128(1))); serr != nil {
		panicIfErr(serr)
	}

	panicIfErr(e.vol.WriteAll(raw))

	return nil
}

func (e *Engine) objectPosition(id ObjectId) (uint64, error) {
	if id.IsNone() {
		return 0, newError(ErrInvalidInput, "object id zero is not valid")
	}

	pos := uint64(id) * ObjectSize
	if pos > e.desc.ObjtabSize {
		return 0, newError(ErrNotFound, "object id out of range")
	}

	return pos, nil
}

// GetObjByID loads the Object record for id. A slot within range but with a
// zero weak_ref (never allocated, or tombstoned to zero) is reported as
// ErrNotFound, matching get_obj_by_id's liveness check.
func (e *Engine) GetObjByID(id ObjectId) (obj *Object, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverToError(r)
		}
	}()

	if e.desc == nil {
		panicWith(ErrInvalidInput, "descriptor not loaded")
	}

	pos, perr := e.objectPosition(id)
	panicIfErr(perr)

	if _, serr := e.vol.Seek(SeekStartSectorAt(e.desc.ObjtabEnd)); serr != nil {
		panicIfErr(serr)
	}

	if _, serr := e.vol.Seek(SeekCurrAt(-int64(pos))); serr != nil {
		panicIfErr(serr)
	}

	raw := make([]byte, ObjectSize)
	panicIfErr(e.vol.ReadFully(raw))

	obj, uerr := UnpackObject(raw)
	panicIfErr(uerr)

	if !obj.IsLive() {
		panicWithf(ErrNotFound, "object slot is not live: (%d)", id)
	}

	return obj, nil
}

// putObject writes obj back to id's slot, unconditionally (used by both
// CreateObject and ordinary metadata updates).
func (e *Engine) putObject(id ObjectId, obj *Object) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverToError(r)
		}
	}()

	pos, perr := e.objectPosition(id)
	panicIfErr(perr)

	if _, serr := e.vol.Seek(SeekStartSectorAt(e.desc.ObjtabEnd)); serr != nil {
		panicIfErr(serr)
	}

	if _, serr := e.vol.Seek(SeekCurrAt(-int64(pos))); serr != nil {
		panicIfErr(serr)
	}

	raw, perr2 := obj.Pack()
	panicIfErr(perr2)

	panicIfErr(e.vol.WriteAll(raw))

	return nil
}

// StreamBlockSize is the fixed allocation CreateObject reserves for a fresh
// object's Streams array (16 slots x 128 bytes).
const StreamBlockSize = MaxStreamsPerObject * StreamListingSize

// CreateObject scans the object table from slot 1 upward for the first
// unoccupied slot, allocates contiguous backing storage for its 16-entry
// Streams array, pre-populates the three well-known stream listings
// (Streams, Strings, SecurityDescriptor, all REQUIRED), and writes both the
// Streams array and the Object record before returning.
//
// original_source/src/fs.rs's create_object builds this same 16-entry array
// in memory and positions streams[0] at the block it just allocated, but
// returns without ever writing that array to disk — a caller reading the
// object back would see a stream listing full of garbage. This
// implementation writes the array as the last step before returning, which
// is the only way CreateObject can hand back a usable object.
func (e *Engine) CreateObject(ty ObjectType) (id ObjectId, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverToError(r)
		}
	}()

	if e.desc == nil {
		panicWith(ErrInvalidInput, "descriptor not loaded")
	}

	slots := e.desc.ObjtabSize / ObjectSize

	var found ObjectId

	for i := uint64(1); i <= slots; i++ {
		candidate := ObjectId(i)

		obj, gerr := e.GetObjByID(candidate)
		if gerr != nil && !IsNotFound(gerr) {
			panicIfErr(gerr)
		}

		if gerr == nil && obj.IsLive() {
			continue
		}

		found = candidate

		break
	}

	if found.IsNone() {
		panicWith(ErrUnsupported, "object table exhausted")
	}

	streamsRef, aerr := e.AllocateContiguousSpace(StreamBlockSize)
	panicIfErr(aerr)

	listings := [MaxStreamsPerObject]StreamListing{}

	listings[StreamIDStreams] = StreamListing{
		Flags:      StreamFlagRequired.WithIndirection(1),
		ContentRef: streamsRef,
		Size:       StreamBlockSize,
	}
	copy(listings[StreamIDStreams].Name[:], "Streams")

	listings[StreamIDStrings] = StreamListing{
		Flags: StreamFlagRequired,
	}
	copy(listings[StreamIDStrings].Name[:], "Strings")

	listings[StreamIDSecurityDescriptor] = StreamListing{
		Flags: StreamFlagRequired,
	}
	copy(listings[StreamIDSecurityDescriptor].Name[:], "SecurityDescriptor")

	if _, serr := e.vol.Seek(SeekStartSectorAt(streamsRef)); serr != nil {
		panicIfErr(serr)
	}

	for i := range listings {
		raw, perr := listings[i].Pack()
		panicIfErr(perr)
		panicIfErr(e.vol.WriteAll(raw))
	}

	obj := &Object{
		StrongRef:          1,
		WeakRef:            1,
		StreamsSize:        StreamBlockSize,
		StreamsRef:         streamsRef,
		StreamsIndirection: 1,
		Type:               ty,
	}

	panicIfErr(e.putObject(found, obj))

	return found, nil
}

// AllocateContiguousSpace reserves length bytes of contiguous sector space
// and returns the sector at which it begins.
//
// original_source/src/fs.rs leaves this as an unimplemented todo!(). This
// engine delegates to the function installed via SetAllocator and returns
// ErrUnsupported when none is installed; it does not itself read or update
// the allocation table at AllocTabBegin.
func (e *Engine) AllocateContiguousSpace(length uint64) (Sector128, error) {
	if e.allocFn == nil {
		return Sector128{}, newError(ErrUnsupported, "space allocation is not implemented")
	}

	return e.allocFn(length)
}
