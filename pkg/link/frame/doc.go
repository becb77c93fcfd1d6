// Package frame implements the wire format exchanged with the radio
// peripheral over the host bus.
package frame

// Every transfer over the bus is one frame:
//
//   +---------+----------+--------+---------+----------+-----+---------+
//   | cur_len | next_len | offset | message | checksum | pad | payload |
//   +---------+----------+--------+---------+----------+-----+---------+
//     u16 LE    u16 LE     u16 LE   u16 LE    u16 LE
//
// message packs the sequence number in the high byte and the type tag in
// the low byte. The payload starts at offset from the beginning of the
// frame, and offset is chosen so that offset+cur_len is a multiple of the
// bus alignment. next_len is filled by the peripheral to announce the size
// of the frame it has queued next; the host always sends 0.
//
// checksum is CRC-16/ARC computed over the payload only.
