package protocol

import (
    "errors"
    "testing"
)

func testLayout(t *testing.T, devices, payload int) Layout {
    t.Helper()
    l, err := NewLayout(Config{Version: 1, Devices: devices, BoardID: 0}, payload)
    if err != nil { t.Fatalf("layout: %v", err) }
    return l
}

func TestLayoutAddressWidths(t *testing.T) {
    cases := []struct {
        devices int
        bits    uint
    }{
        {1, 1}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {8, 3}, {9, 4}, {16, 4},
    }
    for _, c := range cases {
        l := testLayout(t, c.devices, 8)
        if l.AddressBits() != c.bits {
            t.Fatalf("devices=%d: addr bits = %d, want %d", c.devices, l.AddressBits(), c.bits)
        }
    }
}

func TestLayoutConfigErrors(t *testing.T) {
    cases := []struct {
        name    string
        cfg     Config
        payload int
    }{
        {"version", Config{Version: 4, Devices: 2}, 8},
        {"devices low", Config{Devices: 0}, 8},
        {"devices high", Config{Devices: 256}, 8},
        {"board", Config{Devices: 2, BoardID: 2}, 8},
        {"payload", Config{Devices: 2}, 0},
        {"addr budget", Config{Devices: 17}, 8}, // 5 bits each exceed the 8 shared bits
    }
    for _, c := range cases {
        if _, err := NewLayout(c.cfg, c.payload); !errors.Is(err, ErrConfig) {
            t.Fatalf("%s: err = %v, want ErrConfig", c.name, err)
        }
    }
}

func TestHeaderRoundtrip(t *testing.T) {
    l := testLayout(t, 16, 8)
    buf := make([]byte, HeaderSize)
    for version := uint8(0); version <= MaxVersion; version++ {
        for typ := MsgType(0); typ <= maxMsgType; typ++ {
            for prio := uint8(0); prio <= MaxPriority; prio++ {
                h := Header{Version: version, Type: typ, Priority: prio, Flags: 0x5, Sender: 3, Receiver: 12}
                if err := l.EncodeHeader(h, buf); err != nil { t.Fatalf("encode: %v", err) }
                got, err := l.DecodeHeader(buf)
                if err != nil { t.Fatalf("decode: %v", err) }
                if got != h { t.Fatalf("roundtrip: %+v != %+v", got, h) }
            }
        }
    }
}

func TestHeaderRoundtripMarkersAndAddresses(t *testing.T) {
    l := testLayout(t, 16, 8)
    buf := make([]byte, HeaderSize)
    for flags := uint8(0); flags <= maxFlags; flags++ {
        for bits := 0; bits < 8; bits++ {
            for sender := uint8(0); sender <= l.MaxAddress(); sender++ {
                h := Header{
                    Version:    2,
                    Type:       MsgCommand,
                    Priority:   6,
                    Flags:      flags,
                    Encrypted:  bits&1 != 0,
                    Fragmented: bits&2 != 0,
                    Validated:  bits&4 != 0,
                    Sender:     sender,
                    Receiver:   l.MaxAddress() - sender,
                }
                if err := l.EncodeHeader(h, buf); err != nil { t.Fatalf("encode: %v", err) }
                got, err := l.DecodeHeader(buf)
                if err != nil { t.Fatalf("decode: %v", err) }
                if got != h { t.Fatalf("roundtrip: %+v != %+v", got, h) }
            }
        }
    }
}

func TestHeaderRoundtripNarrowAddresses(t *testing.T) {
    // Two devices leave 1 address bit each and 6 bits of padding.
    l := testLayout(t, 2, 8)
    buf := make([]byte, HeaderSize)
    for sender := uint8(0); sender <= 1; sender++ {
        h := Header{Version: 1, Type: MsgData, Priority: 7, Sender: sender, Receiver: 1 - sender}
        if err := l.EncodeHeader(h, buf); err != nil { t.Fatalf("encode: %v", err) }
        got, err := l.DecodeHeader(buf)
        if err != nil { t.Fatalf("decode: %v", err) }
        if got != h { t.Fatalf("roundtrip: %+v != %+v", got, h) }
    }
}

func TestHeaderBitPlacement(t *testing.T) {
    // Pinned wire image so the bit layout cannot drift silently.
    l := testLayout(t, 16, 8)
    h := Header{
        Version: 1, Type: MsgError, Priority: 5, Flags: 0xA,
        Encrypted: true, Validated: true,
        Sender: 0x3, Receiver: 0xC,
    }
    buf := make([]byte, HeaderSize)
    if err := l.EncodeHeader(h, buf); err != nil { t.Fatalf("encode: %v", err) }
    want := []byte{0x5D, 0xAA, 0x3C}
    for i := range want {
        if buf[i] != want[i] {
            t.Fatalf("byte %d = %#02x, want %#02x (frame % x)", i, buf[i], want[i], buf)
        }
    }
}

func TestHeaderFieldRangeRejection(t *testing.T) {
    l := testLayout(t, 4, 8)
    base := Header{Version: 1, Type: MsgData, Priority: 0}
    cases := []struct {
        name   string
        mutate func(*Header)
    }{
        {"version", func(h *Header) { h.Version = 4 }},
        {"priority", func(h *Header) { h.Priority = 8 }},
        {"flags", func(h *Header) { h.Flags = 0x10 }},
        {"sender", func(h *Header) { h.Sender = 4 }},
        {"receiver", func(h *Header) { h.Receiver = 4 }},
    }
    buf := make([]byte, HeaderSize)
    for _, c := range cases {
        h := base
        c.mutate(&h)
        if err := l.EncodeHeader(h, buf); !errors.Is(err, ErrInvalidField) {
            t.Fatalf("%s: err = %v, want ErrInvalidField", c.name, err)
        }
    }
}

func TestNewHeaderUsesBoardIdentity(t *testing.T) {
    l, err := NewLayout(Config{Version: 3, Devices: 8, BoardID: 5}, 8)
    if err != nil { t.Fatalf("layout: %v", err) }
    h, err := l.NewHeader(MsgHeartbeat, 2, 1)
    if err != nil { t.Fatalf("new header: %v", err) }
    if h.Version != 3 || h.Sender != 5 || h.Receiver != 1 {
        t.Fatalf("header identity: %+v", h)
    }
    if _, err := l.NewHeader(MsgData, 0, 8); !errors.Is(err, ErrInvalidField) {
        t.Fatalf("receiver out of range: err = %v", err)
    }
}
