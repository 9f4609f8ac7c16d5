// Package protocol implements the ecomm packet core: the bit-packed header
// codec, the fixed-size packet model, and the seal/validate state machine.
package protocol

import (
    "errors"
    "fmt"

    "github.com/MarikTik/ecomm/pkg/checksum"
)

// Fixed header layout (24 bits packed MSB-first into 3 bytes, network order):
//
//  bit 23..22  Version   u2   (configured range [0,3])
//  bit 21..19  Type      u3
//  bit 18..16  Priority  u3
//  bit 15..12  Flags     u4
//  bit 11      Encrypted
//  bit 10      Fragmented
//  bit 9       Validated
//  bit 8       Reserved
//  bit 7..0    Sender/Receiver addresses (addrBits each, MSB-first),
//              then padding down to bit 0
//
// Address width is derived once from the configured device count; the
// field widths always sum to exactly HeaderBits.
const (
    HeaderSize = 3  // bytes
    headerBits = 24
    TaskIDSize = 2 // bytes, big-endian uint16

    versionBits  = 2
    typeBits     = 3
    priorityBits = 3
    flagBits     = 4
    markerBits   = 4 // encrypted, fragmented, validated, reserved
    fixedBits    = versionBits + typeBits + priorityBits + flagBits + markerBits
    addrBudget   = headerBits - fixedBits // shared by both address fields
)

const (
    MaxVersion  = 1<<versionBits - 1
    MaxPriority = 1<<priorityBits - 1
    MaxDevices  = 255
)

// Sentinel errors. Configuration errors are fatal and surface before any
// packet is constructed; field errors are local to the offending call.
var (
    ErrConfig       = errors.New("protocol: invalid configuration")
    ErrInvalidField = errors.New("protocol: field out of range")
    ErrPayloadSize  = errors.New("protocol: payload exceeds layout size")
)

// Config is the deployment-wide protocol configuration. It is resolved once
// at startup and read-only afterwards; every value outside its valid range
// fails Layout construction.
type Config struct {
    Version uint8 // wire format version, range [0,3]
    Devices int   // number of addressable devices, range [1,255]
    BoardID uint8 // local device address, must be < Devices
}

// Layout binds a Config and a payload size into a concrete frame geometry.
// All sizes are fixed for the Layout's lifetime.
type Layout struct {
    cfg         Config
    addrBits    uint
    payloadSize int
}

// NewLayout validates cfg and the payload size and derives the header field
// widths. A device count whose address width does not fit the header budget
// is a configuration error, never a silent truncation.
func NewLayout(cfg Config, payloadSize int) (Layout, error) {
    if cfg.Version > MaxVersion {
        return Layout{}, fmt.Errorf("%w: version %d not in [0,%d]", ErrConfig, cfg.Version, MaxVersion)
    }
    if cfg.Devices < 1 || cfg.Devices > MaxDevices {
        return Layout{}, fmt.Errorf("%w: devices %d not in [1,%d]", ErrConfig, cfg.Devices, MaxDevices)
    }
    if int(cfg.BoardID) >= cfg.Devices {
        return Layout{}, fmt.Errorf("%w: board id %d not addressable with %d devices", ErrConfig, cfg.BoardID, cfg.Devices)
    }
    if payloadSize < 1 {
        return Layout{}, fmt.Errorf("%w: payload size %d", ErrConfig, payloadSize)
    }
    ab := bitsFor(cfg.Devices - 1)
    if 2*ab > addrBudget {
        return Layout{}, fmt.Errorf("%w: %d devices need %d address bits, %d available",
            ErrConfig, cfg.Devices, 2*ab, addrBudget)
    }
    pad := addrBudget - 2*ab
    if fixedBits+2*ab+pad != headerBits {
        // Unreachable by construction; guards the width-sum invariant.
        return Layout{}, fmt.Errorf("%w: header widths sum to %d bits", ErrConfig, fixedBits+2*ab+pad)
    }
    return Layout{cfg: cfg, addrBits: ab, payloadSize: payloadSize}, nil
}

// MustLayout is a convenience for tests and fixed deployments; it panics on
// configuration errors, which are resolved before runtime begins.
func MustLayout(cfg Config, payloadSize int) Layout {
    l, err := NewLayout(cfg, payloadSize)
    if err != nil { panic(err) }
    return l
}

// bitsFor returns the width needed to represent values 0..n (min 1).
func bitsFor(n int) uint {
    bits := uint(1)
    for n >>= 1; n > 0; n >>= 1 {
        bits++
    }
    return bits
}

// Version returns the configured wire format version.
func (l Layout) Version() uint8 { return l.cfg.Version }

// BoardID returns the local device address.
func (l Layout) BoardID() uint8 { return l.cfg.BoardID }

// MaxAddress returns the largest valid device address.
func (l Layout) MaxAddress() uint8 { return uint8(l.cfg.Devices - 1) }

// AddressBits returns the derived per-address field width.
func (l Layout) AddressBits() uint { return l.addrBits }

// PayloadSize returns the fixed payload size in bytes.
func (l Layout) PayloadSize() int { return l.payloadSize }

// BodySize returns header + task id + payload in bytes, the byte range a
// checksum policy is computed over.
func (l Layout) BodySize() int { return HeaderSize + TaskIDSize + l.payloadSize }

// FrameSize returns the full framed-packet size for a given policy.
func (l Layout) FrameSize(pol checksum.Policy) int { return l.BodySize() + pol.Size() }
