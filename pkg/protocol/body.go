package protocol

import (
    "encoding/binary"
    "fmt"

    "github.com/MarikTik/ecomm/pkg/protocol/codec"
)

// Format is a compact on-wire indicator of payload encoding, carried as the
// first byte of a data packet's payload.
type Format uint8

const (
    FormatRaw Format = iota
    FormatJSON
    FormatCBOR
    FormatProto
)

func (f Format) String() string {
    switch f {
    case FormatJSON:
        return "application/json"
    case FormatCBOR:
        return "application/cbor"
    case FormatProto:
        return "application/x-protobuf"
    default:
        return "application/octet-stream"
    }
}

// CodecFor returns a codec instance for a given format.
func CodecFor(r *codec.Registry, f Format) (codec.Codec, error) {
    if c := r.Get(f.String()); c != nil {
        return c, nil
    }
    switch f {
    case FormatJSON:
        return codec.JSON(), nil
    case FormatCBOR:
        return codec.CBOR()
    case FormatProto:
        return codec.Proto(), nil
    default:
        return nil, fmt.Errorf("protocol: unknown format %d", f)
    }
}

// bodyHeaderSize is the format byte plus a big-endian u16 body length. The
// length is required because the packet payload is fixed-size and
// zero-padded; codecs must not see the padding.
const bodyHeaderSize = 3

// EncodeBody serializes v using the codec for f and prefixes the result with
// a format byte and the encoded length. The result must still fit the
// layout's fixed payload size when handed to NewPacket.
func EncodeBody(r *codec.Registry, f Format, v any) ([]byte, error) {
    c, err := CodecFor(r, f)
    if err != nil { return nil, err }
    b, err := c.Marshal(v)
    if err != nil { return nil, err }
    if len(b) > 0xFFFF {
        return nil, fmt.Errorf("protocol: body too large: %d", len(b))
    }
    out := make([]byte, bodyHeaderSize+len(b))
    out[0] = byte(f)
    binary.BigEndian.PutUint16(out[1:3], uint16(len(b)))
    copy(out[bodyHeaderSize:], b)
    return out, nil
}

// DecodeBody decodes a payload produced by EncodeBody into v, ignoring any
// zero padding beyond the recorded body length.
func DecodeBody(r *codec.Registry, payload []byte, v any) (Format, error) {
    if len(payload) < bodyHeaderSize {
        return FormatRaw, fmt.Errorf("protocol: payload too short for body header")
    }
    f := Format(payload[0])
    n := int(binary.BigEndian.Uint16(payload[1:3]))
    if bodyHeaderSize+n > len(payload) {
        return f, fmt.Errorf("protocol: body length %d exceeds payload", n)
    }
    c, err := CodecFor(r, f)
    if err != nil { return f, err }
    if err := c.Unmarshal(payload[bodyHeaderSize:bodyHeaderSize+n], v); err != nil { return f, err }
    return f, nil
}

// NewPacketWithBody encodes v according to format and returns an unchecked
// packet carrying the encoded body.
func NewPacketWithBody(l Layout, h Header, taskID uint16, f Format, v any, r *codec.Registry) (Packet, error) {
    b, err := EncodeBody(r, f, v)
    if err != nil {
        return Packet{}, err
    }
    return NewPacket(l, h, taskID, b)
}
