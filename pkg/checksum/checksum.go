// Package checksum provides the frame check sequence policies used to seal
// and validate packets. Policies are stateless values behind one contract so
// a frame layout can be parameterized by any of them.
package checksum

import (
    "fmt"
    "hash/crc32"
)

// Policy computes a fixed-width integrity value over a byte range.
// Compute must be deterministic and free of side effects. Size reports the
// on-wire width of the value in bytes; values narrower than 32 bits occupy
// the low bits of the returned uint32.
type Policy interface {
    Name() string
    Size() int
    Compute(data []byte) uint32
}

// FromName resolves a policy by its configuration name.
func FromName(name string) (Policy, error) {
    switch name {
    case "crc32":
        return CRC32{}, nil
    case "crc16":
        return CRC16{}, nil
    case "sum16":
        return Sum16{}, nil
    default:
        return nil, fmt.Errorf("checksum: unknown policy %q", name)
    }
}

// CRC32 is the reflected IEEE 802.3 CRC-32: init all-ones, final XOR
// all-ones, least-significant-bit-first per byte.
type CRC32 struct{}

func (CRC32) Name() string { return "crc32" }
func (CRC32) Size() int    { return 4 }
func (CRC32) Compute(data []byte) uint32 { return crc32.ChecksumIEEE(data) }

// CRC16 is CRC-16/CCITT-FALSE: polynomial 0x1021, init 0xFFFF, no
// reflection, no final XOR. Check value of "123456789" is 0x29B1.
type CRC16 struct{}

func (CRC16) Name() string { return "crc16" }
func (CRC16) Size() int    { return 2 }

func (CRC16) Compute(data []byte) uint32 {
    crc := uint16(0xFFFF)
    for _, b := range data {
        crc = crc<<8 ^ crc16Table[byte(crc>>8)^b]
    }
    return uint32(crc)
}

var crc16Table = makeCRC16Table()

func makeCRC16Table() (t [256]uint16) {
    for i := 0; i < 256; i++ {
        crc := uint16(i) << 8
        for bit := 0; bit < 8; bit++ {
            if crc&0x8000 != 0 {
                crc = crc<<1 ^ 0x1021
            } else {
                crc <<= 1
            }
        }
        t[i] = crc
    }
    return t
}

// Sum16 is an additive 16-bit checksum: bytes summed as unsigned 8-bit
// values into a 16-bit accumulator, wrapping on overflow.
type Sum16 struct{}

func (Sum16) Name() string { return "sum16" }
func (Sum16) Size() int    { return 2 }

func (Sum16) Compute(data []byte) uint32 {
    var sum uint16
    for _, b := range data {
        sum += uint16(b)
    }
    return uint32(sum)
}
