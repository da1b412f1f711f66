package phantomfs

import (
	"errors"
	"fmt"
	"io"
)

// Volume wraps a byte-addressable random-access backing stream (a file, a
// partition, a raw device) with the sector-aware seek contract and
// retry-on-Interrupted read/write discipline the format requires. Every
// PhantomFS operation seeks explicitly before it reads or writes, so a
// Volume never assumes the cursor is where the previous call left it
// (mirrors the teacher's parseN/readMainReserved style of always reading
// from the current position right after an explicit seek).
type Volume struct {
	rws io.ReadWriteSeeker
}

// NewVolume wraps an existing backing stream.
func NewVolume(rws io.ReadWriteSeeker) *Volume {
	return &Volume{rws: rws}
}

// isInterrupted reports whether err represents a transient, retryable
// condition. Plain io.ReadWriteSeeker implementations over local files
// essentially never produce one, but the retry loop exists because the
// contract requires it regardless of backing-stream implementation.
func isInterrupted(err error) bool {
	return errors.Is(err, io.ErrNoProgress)
}

// Read fills some prefix of out and returns the number of bytes read. A
// transient failure returns ErrInterrupted. Reaching the true end of the
// backing stream with nothing copied surfaces ErrUnexpectedEOF directly,
// rather than a bare (0, nil) that ReadFully could mistake for a spurious
// zero-byte read and retry forever.
func (v *Volume) Read(out []byte) (n int, err error) {
	n, rawErr := v.rws.Read(out)

	switch {
	case rawErr == nil:
		return n, nil
	case rawErr == io.EOF:
		if n > 0 {
			return n, nil
		}

		return 0, newError(ErrUnexpectedEOF, "read reached end of backing stream")
	case isInterrupted(rawErr):
		return n, newError(ErrInterrupted, "transient read failure")
	default:
		return n, wrapError(ErrUnknown, "read failed", rawErr)
	}
}

// ReadFully loops Read until out is filled. Interrupted is retried; a
// zero-byte read on a non-empty target is itself treated as Interrupted (and
// thus retried), matching original_source/src/io.rs's read_fully; a
// persistent short read surfaces ErrUnexpectedEOF.
func (v *Volume) ReadFully(out []byte) error {
	for len(out) > 0 {
		n, err := v.Read(out)

		switch {
		case err != nil && KindOf(err) == ErrInterrupted:
			continue
		case err != nil:
			return err
		case n == 0:
			continue
		default:
			out = out[n:]
		}
	}

	return nil
}

// Write writes a prefix of buf and returns the number of bytes written.
func (v *Volume) Write(buf []byte) (n int, err error) {
	n, rawErr := v.rws.Write(buf)
	if rawErr != nil {
		if isInterrupted(rawErr) {
			return n, newError(ErrInterrupted, "transient write failure")
		}

		return n, wrapError(ErrUnknown, "write failed", rawErr)
	}

	return n, nil
}

// WriteAll writes every byte of buf, retrying on Interrupted.
func (v *Volume) WriteAll(buf []byte) error {
	for len(buf) > 0 {
		n, err := v.Write(buf)

		switch {
		case err != nil && KindOf(err) == ErrInterrupted:
			continue
		case err != nil:
			return err
		case n == 0:
			return newError(ErrUnexpectedEOF, "write made no progress")
		default:
			buf = buf[n:]
		}
	}

	return nil
}

// WriteZeroes writes exactly n zero bytes.
func (v *Volume) WriteZeroes(n uint64) error {
	const chunkSize = 4096

	zeroes := make([]byte, chunkSize)

	for n > 0 {
		chunk := uint64(chunkSize)
		if n < chunk {
			chunk = n
		}

		if err := v.WriteAll(zeroes[:chunk]); err != nil {
			return err
		}

		n -= chunk
	}

	return nil
}

func sectorToByte(s Sector128) (int64, error) {
	b, err := s.Uint64()
	if err != nil {
		return 0, err
	}

	if b > (1<<63-1)/SectorSize {
		return 0, newError(ErrUnsupported, fmt.Sprintf("sector overflows 64-bit byte offset: (%d)", b))
	}

	return int64(b) * SectorSize, nil
}

// Seek positions the cursor per the SeekPos contract (§4.1) and returns the
// resulting (sector, offset).
func (v *Volume) Seek(pos SeekPos) (VolLocation, error) {
	var whence int
	var offset int64

	switch pos.Kind {
	case SeekStart:
		whence = io.SeekStart
		offset = pos.Byte

	case SeekStartSector:
		b, err := sectorToByte(pos.Sector)
		if err != nil {
			return VolLocation{}, err
		}

		whence = io.SeekStart
		offset = b

	case SeekEndSector:
		b, err := sectorToByte(pos.Sector)
		if err != nil {
			return VolLocation{}, err
		}

		whence = io.SeekEnd
		offset = b

	case SeekEnd:
		whence = io.SeekEnd
		offset = pos.Byte

	case SeekCurr:
		whence = io.SeekCurrent
		offset = pos.Byte

	case SeekAbsPos:
		if pos.Offset >= SectorSize {
			return VolLocation{}, newError(ErrInvalidInput, fmt.Sprintf("offset not less than sector size: (%d)", pos.Offset))
		}

		b, err := sectorToByte(pos.Sector)
		if err != nil {
			return VolLocation{}, err
		}

		whence = io.SeekStart
		offset = b + int64(pos.Offset)

	default:
		return VolLocation{}, newError(ErrUnsupported, fmt.Sprintf("unsupported seek kind: (%d)", pos.Kind))
	}

	abs, err := v.rws.Seek(offset, whence)
	if err != nil {
		return VolLocation{}, wrapError(ErrUnknown, "seek failed", err)
	}

	if abs < 0 {
		return VolLocation{}, newError(ErrInvalidInput, "seek produced a negative position")
	}

	return VolLocation{
		Sector: NewSector128(uint64(abs) / SectorSize),
		Offset: uint32(uint64(abs) % SectorSize),
	}, nil
}

// StreamPosition returns the current cursor position without disturbing it.
func (v *Volume) StreamPosition() (VolLocation, error) {
	return v.Seek(SeekCurrAt(0))
}

// StreamLength returns the total length of the stream, restoring the
// pre-call position afterward.
func (v *Volume) StreamLength() (uint64, error) {
	cur, err := v.rws.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, wrapError(ErrUnknown, "seek failed", err)
	}

	end, err := v.rws.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, wrapError(ErrUnknown, "seek failed", err)
	}

	if _, err := v.rws.Seek(cur, io.SeekStart); err != nil {
		return 0, wrapError(ErrUnknown, "seek failed", err)
	}

	return uint64(end), nil
}
