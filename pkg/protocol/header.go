package protocol

import (
    "fmt"
    "io"
)

// MsgType is the 3-bit message kind carried in the header.
type MsgType uint8

const (
    MsgData MsgType = iota
    MsgAck
    MsgCommand
    MsgError
    MsgHeartbeat
    MsgRoute

    maxMsgType = 1<<typeBits - 1
)

func (t MsgType) String() string {
    switch t {
    case MsgData:
        return "data"
    case MsgAck:
        return "ack"
    case MsgCommand:
        return "command"
    case MsgError:
        return "error"
    case MsgHeartbeat:
        return "heartbeat"
    case MsgRoute:
        return "route"
    default:
        return "unknown"
    }
}

// Flags bitmask (4 bits on the wire).
const (
    FlagAckRequest uint8 = 1 << 0 // receiver should acknowledge
    FlagBroadcast  uint8 = 1 << 1 // addressed to all devices
    FlagCompressed uint8 = 1 << 2 // payload compressed
    FlagUser       uint8 = 1 << 3 // application-defined

    maxFlags = 1<<flagBits - 1
)

// Header is the decoded form of the 24-bit packet header. The Validated
// marker is owned by the validator's seal transition; everything else is
// set by the caller at construction.
type Header struct {
    Version    uint8
    Type       MsgType
    Priority   uint8
    Flags      uint8
    Encrypted  bool
    Fragmented bool
    Validated  bool
    Sender     uint8
    Receiver   uint8
}

// NewHeader builds an addressed header for the local board, validating every
// field against the layout. The version is taken from the configuration.
func (l Layout) NewHeader(t MsgType, priority uint8, receiver uint8) (Header, error) {
    h := Header{
        Version:  l.cfg.Version,
        Type:     t,
        Priority: priority,
        Sender:   l.cfg.BoardID,
        Receiver: receiver,
    }
    if err := l.CheckHeader(h); err != nil {
        return Header{}, err
    }
    return h, nil
}

// CheckHeader reports the first field whose value is outside its declared
// range. Out-of-range values are a caller contract violation and are never
// silently truncated.
func (l Layout) CheckHeader(h Header) error {
    switch {
    case h.Version > MaxVersion:
        return fmt.Errorf("%w: version %d", ErrInvalidField, h.Version)
    case h.Type > maxMsgType:
        return fmt.Errorf("%w: type %d", ErrInvalidField, h.Type)
    case h.Priority > MaxPriority:
        return fmt.Errorf("%w: priority %d", ErrInvalidField, h.Priority)
    case h.Flags > maxFlags:
        return fmt.Errorf("%w: flags %#x", ErrInvalidField, h.Flags)
    case h.Sender > l.MaxAddress():
        return fmt.Errorf("%w: sender %d", ErrInvalidField, h.Sender)
    case h.Receiver > l.MaxAddress():
        return fmt.Errorf("%w: receiver %d", ErrInvalidField, h.Receiver)
    }
    return nil
}

// EncodeHeader packs h into buf (at least HeaderSize bytes, MSB-first).
// The bit placement is fixed by the layout and never changes at runtime.
func (l Layout) EncodeHeader(h Header, buf []byte) error {
    if len(buf) < HeaderSize {
        return io.ErrShortBuffer
    }
    if err := l.CheckHeader(h); err != nil {
        return err
    }
    var w uint32
    w |= uint32(h.Version) << (headerBits - versionBits)
    w |= uint32(h.Type) << (headerBits - versionBits - typeBits)
    w |= uint32(h.Priority) << (headerBits - versionBits - typeBits - priorityBits)
    w |= uint32(h.Flags) << (addrBudget + markerBits)
    if h.Encrypted {
        w |= 1 << (addrBudget + 3)
    }
    if h.Fragmented {
        w |= 1 << (addrBudget + 2)
    }
    if h.Validated {
        w |= 1 << (addrBudget + 1)
    }
    // reserved bit (addrBudget+0) stays zero
    w |= uint32(h.Sender) << (uint(addrBudget) - l.addrBits)
    w |= uint32(h.Receiver) << (uint(addrBudget) - 2*l.addrBits)
    buf[0] = byte(w >> 16)
    buf[1] = byte(w >> 8)
    buf[2] = byte(w)
    return nil
}

// DecodeHeader unpacks a header from buf. Decoding is lossless for every
// value EncodeHeader accepts; arbitrary bit patterns decode without error.
// Field range enforcement belongs to construction, integrity to the
// validator.
func (l Layout) DecodeHeader(buf []byte) (Header, error) {
    if len(buf) < HeaderSize {
        return Header{}, io.ErrShortBuffer
    }
    w := uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
    addrMask := uint32(1)<<l.addrBits - 1
    return Header{
        Version:    uint8(w >> (headerBits - versionBits) & (1<<versionBits - 1)),
        Type:       MsgType(w >> (headerBits - versionBits - typeBits) & maxMsgType),
        Priority:   uint8(w >> (headerBits - versionBits - typeBits - priorityBits) & MaxPriority),
        Flags:      uint8(w >> (addrBudget + markerBits) & maxFlags),
        Encrypted:  w&(1<<(addrBudget+3)) != 0,
        Fragmented: w&(1<<(addrBudget+2)) != 0,
        Validated:  w&(1<<(addrBudget+1)) != 0,
        Sender:     uint8(w >> (uint(addrBudget) - l.addrBits) & addrMask),
        Receiver:   uint8(w >> (uint(addrBudget) - 2*l.addrBits) & addrMask),
    }, nil
}
