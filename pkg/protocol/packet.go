package protocol

import (
    "encoding/binary"
    "fmt"
)

// Packet is a fixed-size protocol unit: header, task identifier, and a
// payload of the layout's configured size. The frame check sequence is an
// implementation detail of the validator; packets constructed here are
// unchecked until sealed.
type Packet struct {
    Header  Header
    TaskID  uint16
    payload []byte
    fcs     uint32
}

// NewPacket constructs an unchecked packet. The payload may be shorter than
// the layout's fixed size (it is zero-padded) but never longer.
func NewPacket(l Layout, h Header, taskID uint16, payload []byte) (Packet, error) {
    if err := l.CheckHeader(h); err != nil {
        return Packet{}, err
    }
    if len(payload) > l.payloadSize {
        return Packet{}, fmt.Errorf("%w: %d > %d", ErrPayloadSize, len(payload), l.payloadSize)
    }
    p := Packet{Header: h, TaskID: taskID, payload: make([]byte, l.payloadSize)}
    copy(p.payload, payload)
    return p, nil
}

// Payload returns the fixed-size payload bytes.
func (p *Packet) Payload() []byte { return p.payload }

// FCS returns the stored frame check sequence. It is zero until the packet
// has been sealed by a validator.
func (p *Packet) FCS() uint32 { return p.fcs }

// encodeBody writes header + task id + payload into buf, the byte range a
// checksum policy covers. buf must hold at least BodySize bytes.
func (l Layout) encodeBody(p *Packet, buf []byte) error {
    if err := l.EncodeHeader(p.Header, buf[:HeaderSize]); err != nil {
        return err
    }
    binary.BigEndian.PutUint16(buf[HeaderSize:HeaderSize+TaskIDSize], p.TaskID)
    copy(buf[HeaderSize+TaskIDSize:l.BodySize()], p.payload)
    return nil
}

// decodeBody parses header + task id + payload from buf. The payload is
// copied out so the packet survives scratch buffer reuse.
func (l Layout) decodeBody(buf []byte) (Packet, error) {
    h, err := l.DecodeHeader(buf[:HeaderSize])
    if err != nil {
        return Packet{}, err
    }
    p := Packet{
        Header:  h,
        TaskID:  binary.BigEndian.Uint16(buf[HeaderSize : HeaderSize+TaskIDSize]),
        payload: make([]byte, l.payloadSize),
    }
    copy(p.payload, buf[HeaderSize+TaskIDSize:l.BodySize()])
    return p, nil
}
