package frame

// CRC-16/ARC: reflected polynomial 0x8005, init 0, no final xor.
const crcPoly = 0xa001

var crcTable = makeCRCTable()

func makeCRCTable() (t [256]uint16) {
	for i := range t {
		crc := uint16(i)
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ crcPoly
			} else {
				crc >>= 1
			}
		}
		t[i] = crc
	}
	return
}

// CRC16 calculates the frame checksum of b.
func CRC16(b []byte) uint16 {
	var crc uint16
	for _, v := range b {
		crc = crc>>8 ^ crcTable[byte(crc)^v]
	}
	return crc
}
