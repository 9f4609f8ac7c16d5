package protocol

import (
    "testing"

    "github.com/MarikTik/ecomm/pkg/checksum"
    "github.com/MarikTik/ecomm/pkg/protocol/codec"
)

func TestBodyRoundtripThroughSealedFrame(t *testing.T) {
    l := testLayout(t, 4, 64)
    v := NewValidator(l, checksum.CRC16{})
    reg := codec.NewRegistry()

    h, err := l.NewHeader(MsgData, 2, 1)
    if err != nil { t.Fatalf("header: %v", err) }
    in := map[string]any{"cmd": "set", "value": float64(42)}
    p, err := NewPacketWithBody(l, h, 7, FormatJSON, in, reg)
    if err != nil { t.Fatalf("packet with body: %v", err) }

    frame := make([]byte, v.FrameSize())
    if _, err := v.Seal(&p, frame); err != nil { t.Fatalf("seal: %v", err) }
    got, verdict := v.Validate(frame)
    if verdict != Valid { t.Fatalf("verdict = %v", verdict) }

    var out map[string]any
    f, err := DecodeBody(reg, got.Payload(), &out)
    if err != nil { t.Fatalf("decode body: %v", err) }
    if f != FormatJSON { t.Fatalf("format = %v", f) }
    if out["cmd"] != "set" || out["value"].(float64) != 42 {
        t.Fatalf("body mismatch: %#v", out)
    }
}

func TestBodyRejectsOversize(t *testing.T) {
    l := testLayout(t, 4, 8)
    reg := codec.NewRegistry()
    h, err := l.NewHeader(MsgData, 0, 1)
    if err != nil { t.Fatalf("header: %v", err) }
    long := map[string]any{"k": "a payload that cannot fit in eight bytes"}
    if _, err := NewPacketWithBody(l, h, 1, FormatJSON, long, reg); err == nil {
        t.Fatalf("oversized body should be rejected")
    }
}

func TestDecodeBodyGuards(t *testing.T) {
    reg := codec.NewRegistry()
    var out any
    if _, err := DecodeBody(reg, nil, &out); err == nil {
        t.Fatalf("empty payload should fail")
    }
    // length prefix larger than the remaining payload
    if _, err := DecodeBody(reg, []byte{byte(FormatJSON), 0xFF, 0xFF, '{'}, &out); err == nil {
        t.Fatalf("lying length prefix should fail")
    }
}
