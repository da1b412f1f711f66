package phantomfs

import "bytes"

// readStreamsArray loads every live StreamListing slot of obj into memory.
// Objects always have exactly MaxStreamsPerObject slots; slots beyond the
// ones CreateObject pre-populates carry a zero NameRef and an empty inline
// name; FindStreamByID reports such a slot as ErrNotFound, and
// FindStreamByName compares its empty name like any other.
func (e *Engine) readStreamsArray(obj *Object) ([MaxStreamsPerObject]StreamListing, error) {
	var out [MaxStreamsPerObject]StreamListing

	raw := make([]byte, StreamBlockSize)
	if err := e.vol.readFullyByIndirection(obj.StreamsRef, obj.StreamsIndirection, 0, obj.StreamsSize, raw); err != nil {
		return out, err
	}

	for i := 0; i < MaxStreamsPerObject; i++ {
		sl, err := UnpackStreamListing(raw[i*StreamListingSize : (i+1)*StreamListingSize])
		if err != nil {
			return out, err
		}

		out[i] = *sl
	}

	return out, nil
}

// nameOf resolves a listing/element's effective name: the inline array when
// NameRef/NameIndex is absent, or otherwise the NUL-terminated string that
// starts at byte offset NameRef of the object's Strings stream.
func (e *Engine) nameOf(obj *Object, streams *[MaxStreamsPerObject]StreamListing, nameRef NameRef, inline []byte) (string, error) {
	if nameRef.IsNone() {
		return string(trimNulName(inline)), nil
	}

	strings := streams[StreamIDStrings]
	out := make([]byte, 0, 64)
	chunk := make([]byte, 64)

	for offset := uint64(nameRef); ; {
		n, err := e.vol.readFromStream(&strings, offset, chunk)
		if err != nil || n == 0 {
			return string(out), err
		}

		if idx := indexByte(chunk[:n], 0); idx >= 0 {
			return string(append(out, chunk[:idx]...)), nil
		}

		out = append(out, chunk[:n]...)
		offset += uint64(n)
	}
}

// compareName compares a resolved name against target using direct
// byte-lexicographic, shorter-is-less ordering.
//
// original_source/src/fs.rs's cmp_nullstr_by_indirection reads the stored
// name one chunk at a time and compares chunk-by-chunk against the target,
// but stops as soon as any chunk differs in length from what was requested,
// without accounting for the possibility that the stored string is simply
// shorter than the target (the documented comparison defect). This engine
// loads the full resolved name first and then does a straightforward
// bytes.Compare, which needs no such special-casing.
func compareName(name string, target string) int {
	return bytes.Compare([]byte(name), []byte(target))
}

// FindStreamByID returns the StreamListing named by id, searching the
// object's pre-loaded streams array. id is a simple slot index; see
// FindStreamByName for name-addressed lookup.
func (e *Engine) FindStreamByID(obj *Object, id StreamId) (sl *StreamListing, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverToError(r)
		}
	}()

	if uint64(id) >= MaxStreamsPerObject {
		panicWithf(ErrNotFound, "stream id out of range: (%d)", id)
	}

	streams, rerr := e.readStreamsArray(obj)
	panicIfErr(rerr)

	listing := streams[id]

	if !listing.Flags.Has(StreamFlagRequired) && listing.Size == 0 && listing.NameRef.IsNone() && trimNulNameLen(listing.Name[:]) == 0 {
		panicWithf(ErrNotFound, "stream slot is empty: (%d)", id)
	}

	return &listing, nil
}

func trimNulNameLen(b []byte) int {
	return len(trimNulName(b))
}

// FindStreamByName performs a linear scan of obj's streams array, comparing
// each slot's resolved name against name. Matches
// original_source/src/fs.rs's find_stream_by_id (named by-name here since
// Go already uses StreamId for the slot-index lookup above).
func (e *Engine) FindStreamByName(obj *Object, name string) (sl *StreamListing, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverToError(r)
		}
	}()

	streams, rerr := e.readStreamsArray(obj)
	panicIfErr(rerr)

	for i := range streams {
		listing := &streams[i]

		resolved, nerr := e.nameOf(obj, &streams, listing.NameRef, listing.Name[:])
		panicIfErr(nerr)

		if compareName(resolved, name) == 0 {
			return listing, nil
		}
	}

	panicWithf(ErrNotFound, "no stream named: (%q)", name)

	return nil, nil
}

// WellKnownStreamDirectoryContent is the well-known name of the stream
// holding a directory's DirectoryElement array; SearchDirectory looks the
// stream up by this name.
const WellKnownStreamDirectoryContent = "DirectoryContent"

// SearchDirectory looks up name among dirObj's DirectoryContent entries and
// returns the ObjectId it names. Matches
// original_source/src/fs.rs's search_directory.
func (e *Engine) SearchDirectory(dirObj *Object, name string) (id ObjectId, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recoverToError(r)
		}
	}()

	content, serr := e.FindStreamByName(dirObj, WellKnownStreamDirectoryContent)
	panicIfErr(serr)

	streams, rerr := e.readStreamsArray(dirObj)
	panicIfErr(rerr)

	if content.Size%DirectoryElementSize != 0 {
		panicWith(ErrInvalidData, "directory content size is not a multiple of the element size")
	}

	count := content.Size / DirectoryElementSize

	raw := make([]byte, DirectoryElementSize)

	for i := uint64(0); i < count; i++ {
		if err := e.vol.readFullyFromStream(content, i*DirectoryElementSize, raw); err != nil {
			panicIfErr(err)
		}

		elem, uerr := UnpackDirectoryElement(raw)
		panicIfErr(uerr)

		if !elem.IsPresent() {
			continue
		}

		resolved, nerr := e.nameOf(dirObj, &streams, elem.NameIndex, elem.Name[:])
		panicIfErr(nerr)

		if compareName(resolved, name) == 0 {
			return elem.ObjIdx, nil
		}
	}

	panicWithf(ErrNotFound, "no directory entry named: (%q)", name)

	return 0, nil
}
