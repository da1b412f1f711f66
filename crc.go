package phantomfs

// CRC-32/CKSUM: width=32 poly=0x04c11db7 init=0x00000000 refin=false
// refout=false xorout=0xffffffff. This is the variant
// original_source/src/fs.rs computes via crc::Crc::<u32>::new(&crc::CRC_32_CKSUM).
// Go's stdlib hash/crc32 only implements the reflected form (IEEE/
// Castagnoli/Koopman), which is a different bit pattern; no library in the
// retrieval pack provides the non-reflected variant either (see DESIGN.md),
// so this is a direct, small table-driven implementation rather than a
// library call.

var crc32CksumTable [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24

		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ 0x04c11db7
			} else {
				crc <<= 1
			}
		}

		crc32CksumTable[i] = crc
	}
}

// crc32Cksum computes the CRC-32/CKSUM checksum of data.
func crc32Cksum(data []byte) uint32 {
	crc := uint32(0)

	for _, b := range data {
		crc = (crc << 8) ^ crc32CksumTable[byte(crc>>24)^b]
	}

	return crc ^ 0xffffffff
}
