package protocol

import (
    "fmt"
    "io"

    "github.com/MarikTik/ecomm/pkg/checksum"
)

// Verdict classifies a received candidate frame.
type Verdict uint8

const (
    Valid Verdict = iota
    Invalid
    Malformed
)

func (v Verdict) String() string {
    switch v {
    case Valid:
        return "valid"
    case Invalid:
        return "invalid"
    case Malformed:
        return "malformed"
    default:
        return "unknown"
    }
}

// Validator binds a frame layout to a checksum policy. Sealing marks a
// packet as checked and stores its frame check sequence; validation
// recomputes and compares. Both are pure with respect to everything but
// the packet/buffer handed in.
type Validator struct {
    lay Layout
    pol checksum.Policy
}

// NewValidator binds lay to pol. The pairing is fixed for the validator's
// lifetime, as is the frame size it produces and accepts.
func NewValidator(lay Layout, pol checksum.Policy) *Validator {
    return &Validator{lay: lay, pol: pol}
}

// Layout returns the bound frame layout.
func (v *Validator) Layout() Layout { return v.lay }

// Policy returns the bound checksum policy.
func (v *Validator) Policy() checksum.Policy { return v.pol }

// FrameSize returns the fixed framed-packet size in bytes.
func (v *Validator) FrameSize() int { return v.lay.FrameSize(v.pol) }

// Seal sets the header's validated marker, encodes the full frame into buf
// and stores the checksum computed over header+task+payload (never over the
// checksum storage itself). Sealing an already-sealed packet recomputes and
// overwrites consistently. Returns the frame length.
func (v *Validator) Seal(p *Packet, buf []byte) (int, error) {
    size := v.FrameSize()
    if len(buf) < size {
        return 0, io.ErrShortBuffer
    }
    if len(p.payload) != v.lay.payloadSize {
        return 0, fmt.Errorf("%w: packet payload %d, layout %d", ErrPayloadSize, len(p.payload), v.lay.payloadSize)
    }
    p.Header.Validated = true
    body := v.lay.BodySize()
    if err := v.lay.encodeBody(p, buf[:body]); err != nil {
        return 0, err
    }
    p.fcs = v.pol.Compute(buf[:body])
    putFCS(buf[body:size], p.fcs)
    return size, nil
}

// Validate decodes one candidate frame. A buffer of the wrong length is
// Malformed. A packet whose validated marker is unset passes vacuously,
// having declared itself unchecked. Otherwise the checksum is recomputed over
// the sealed byte range and compared bit-for-bit.
func (v *Validator) Validate(frame []byte) (Packet, Verdict) {
    if len(frame) != v.FrameSize() {
        return Packet{}, Malformed
    }
    body := v.lay.BodySize()
    p, err := v.lay.decodeBody(frame[:body])
    if err != nil {
        return Packet{}, Malformed
    }
    if !p.Header.Validated {
        return p, Valid
    }
    p.fcs = getFCS(frame[body:])
    if v.pol.Compute(frame[:body]) != p.fcs {
        return Packet{}, Invalid
    }
    return p, Valid
}

// putFCS stores the low len(buf) bytes of fcs big-endian (network order).
func putFCS(buf []byte, fcs uint32) {
    for i := len(buf) - 1; i >= 0; i-- {
        buf[i] = byte(fcs)
        fcs >>= 8
    }
}

// getFCS reads a big-endian value of len(buf) bytes.
func getFCS(buf []byte) uint32 {
    var fcs uint32
    for _, b := range buf {
        fcs = fcs<<8 | uint32(b)
    }
    return fcs
}
