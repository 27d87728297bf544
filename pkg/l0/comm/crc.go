package comm

import "github.com/sigurn/crc16"

// BitOrder selects the bit order CRC-16/CCITT is computed in.
type BitOrder int

const (
	// LSBFirst is the reflected variant (polynomial 0x8408), used on the wire.
	LSBFirst BitOrder = iota
	// MSBFirst is the straight variant (polynomial 0x1021).
	MSBFirst
)

const (
	crcInit        uint16 = 0xffff
	crcPoly        uint16 = 0x1021
	crcPolyReverse uint16 = 0x8408
)

// Both presets use init 0xffff with no final xor, the same as checksumBitwise.
var (
	crcTableMSB = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)
	crcTableLSB = crc16.MakeTable(crc16.CRC16_MCRF4XX)
)

// String implements fmt.Stringer.
func (o BitOrder) String() string {
	if o == MSBFirst {
		return "msb-first"
	}
	return "lsb-first"
}

// Checksum calculates CRC-16/CCITT of data with initial remainder 0xffff.
func Checksum(data []byte, order BitOrder) uint16 {
	if order == MSBFirst {
		return crc16.Checksum(data, crcTableMSB)
	}
	return crc16.Checksum(data, crcTableLSB)
}

// checksumBitwise is the bit-by-bit definition Checksum must agree with.
func checksumBitwise(data []byte, order BitOrder) uint16 {
	rem := crcInit
	for _, b := range data {
		if order == MSBFirst {
			rem ^= uint16(b) << 8
			for i := 0; i < 8; i++ {
				if rem&0x8000 != 0 {
					rem = (rem << 1) ^ crcPoly
				} else {
					rem <<= 1
				}
			}
			continue
		}
		rem ^= uint16(b)
		for i := 0; i < 8; i++ {
			if rem&1 != 0 {
				rem = (rem >> 1) ^ crcPolyReverse
			} else {
				rem >>= 1
			}
		}
	}
	return rem
}
