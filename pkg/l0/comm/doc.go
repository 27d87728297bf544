// Package comm provides L0 protocol support.
package comm

// L0 protocol is communicated between L0 firmware (a microcontroller) and
// the L1 host over a peer-to-peer byte stream (e.g. serial port).
//
// Every packet is a command byte, a length byte, the payload and a
// CRC-16/CCITT (LSB first) checksum in big-endian order. The whole packet is
// COBS stuffed so 0x00 never appears inside, and 0x00 terminates each frame.
// A receiver resynchronizes on the next 0x00 after any corrupted frame.
//
// Producer: L0 firmware and L1 host (symmetric)
// Consumer: L0 firmware and L1 host (symmetric)
