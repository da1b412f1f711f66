package phantomfs

import (
	"encoding/binary"
	"fmt"

	uuid "github.com/satori/go.uuid"
)

// Uuid is a volume or object-owner identifier, stored on-disk as two
// little-endian 64-bit words (matching original_source/src/uuid.rs's
// Uuid{lo, hi}).
type Uuid struct {
	Lo uint64
	Hi uint64
}

// UuidFromGoogleUUID splits a github.com/satori/go.uuid value into the
// two-uint64 on-disk representation.
func UuidFromGoogleUUID(u uuid.UUID) Uuid {
	raw := u.Bytes()

	return Uuid{
		Lo: binary.BigEndian.Uint64(raw[0:8]),
		Hi: binary.BigEndian.Uint64(raw[8:16]),
	}
}

// ToGoogleUUID reassembles the two-uint64 on-disk representation into a
// github.com/satori/go.uuid value, e.g. for Dump() or a CLI's human-readable
// output.
func (u Uuid) ToGoogleUUID() uuid.UUID {
	var raw [16]byte

	binary.BigEndian.PutUint64(raw[0:8], u.Lo)
	binary.BigEndian.PutUint64(raw[8:16], u.Hi)

	out, err := uuid.FromBytes(raw[:])
	if err != nil {
		// FromBytes only fails on a length mismatch, which raw's fixed size
		// rules out.
		panic(err)
	}

	return out
}

// IsZero returns whether this is the all-zero UUID.
func (u Uuid) IsZero() bool {
	return u.Lo == 0 && u.Hi == 0
}

// String returns the canonical UUID string form.
func (u Uuid) String() string {
	if u.IsZero() {
		return "00000000-0000-0000-0000-000000000000"
	}

	return u.ToGoogleUUID().String()
}

// String returns a descriptive string.
func (d DeviceId) String() string {
	return fmt.Sprintf("DeviceId<0x%016x%016x>", d.DevIdHi, d.DevIdLo)
}
