package hub

import (
    "bytes"
    "testing"

    "github.com/MarikTik/ecomm/pkg/checksum"
    "github.com/MarikTik/ecomm/pkg/protocol"
    "github.com/MarikTik/ecomm/pkg/transport"
    "github.com/MarikTik/ecomm/pkg/transport/mem"
)

func pairLinks(t *testing.T) (transport.Transport, transport.Transport) {
    t.Helper()
    a, b := mem.Pair(4)
    return a, b
}

// fakeLink scripts a transport: queued rx frames are served one per poll,
// and every call is recorded.
type fakeLink struct {
    kind      transport.Kind
    acceptTx  bool
    rxFrames  [][]byte
    sent      [][]byte
    sendCalls int
    recvCalls int
    closed    bool
}

func (f *fakeLink) Kind() transport.Kind { return f.kind }

func (f *fakeLink) TrySend(frame []byte) bool {
    f.sendCalls++
    f.sent = append(f.sent, append([]byte(nil), frame...))
    return f.acceptTx
}

func (f *fakeLink) TryReceive(buf []byte) (int, bool) {
    f.recvCalls++
    if len(f.rxFrames) == 0 {
        return 0, false
    }
    frame := f.rxFrames[0]
    f.rxFrames = f.rxFrames[1:]
    return copy(buf, frame), true
}

func (f *fakeLink) Close() error { f.closed = true; return nil }

func newFake(accept bool, rx ...[]byte) *fakeLink {
    return &fakeLink{kind: transport.KindMem, acceptTx: accept, rxFrames: rx}
}

func testValidator(t *testing.T) *protocol.Validator {
    t.Helper()
    lay, err := protocol.NewLayout(protocol.Config{Version: 1, Devices: 4, BoardID: 0}, 8)
    if err != nil { t.Fatalf("layout: %v", err) }
    return protocol.NewValidator(lay, checksum.CRC16{})
}

func testPacket(t *testing.T, v *protocol.Validator) protocol.Packet {
    t.Helper()
    lay := v.Layout()
    h, err := lay.NewHeader(protocol.MsgData, 1, 2)
    if err != nil { t.Fatalf("header: %v", err) }
    p, err := protocol.NewPacket(lay, h, 42, []byte{1, 2, 3})
    if err != nil { t.Fatalf("packet: %v", err) }
    return p
}

func sealed(t *testing.T, v *protocol.Validator) []byte {
    t.Helper()
    p := testPacket(t, v)
    frame := make([]byte, v.FrameSize())
    if _, err := v.Seal(&p, frame); err != nil { t.Fatalf("seal: %v", err) }
    return frame
}

func TestNewRejectsEmptyAndMixed(t *testing.T) {
    v := testValidator(t)
    if _, err := New(v, nil); err != ErrNoLinks {
        t.Fatalf("empty links: err = %v", err)
    }
    serial := &fakeLink{kind: transport.KindSerial}
    if _, err := New(v, []transport.Transport{newFake(true), serial}); err == nil {
        t.Fatalf("mixed kinds should be rejected")
    }
}

func TestSendBroadcastsSealed(t *testing.T) {
    v := testValidator(t)
    t1 := newFake(true)
    t2 := newFake(false)
    h, err := New(v, []transport.Transport{t1, t2})
    if err != nil { t.Fatalf("new: %v", err) }

    p := testPacket(t, v)
    if !h.Send(&p) {
        t.Fatalf("send should succeed when one link accepts")
    }
    if !p.Header.Validated {
        t.Fatalf("send must seal the packet")
    }
    if t1.sendCalls != 1 || t2.sendCalls != 1 {
        t.Fatalf("send calls = %d, %d; want exactly one each", t1.sendCalls, t2.sendCalls)
    }
    if len(t1.sent[0]) != v.FrameSize() {
        t.Fatalf("sent frame length = %d, want %d", len(t1.sent[0]), v.FrameSize())
    }
    if !bytes.Equal(t1.sent[0], t2.sent[0]) {
        t.Fatalf("links observed different frames")
    }
    if _, verdict := v.Validate(t1.sent[0]); verdict != protocol.Valid {
        t.Fatalf("broadcast frame does not validate: %v", verdict)
    }
}

func TestSendAllReject(t *testing.T) {
    v := testValidator(t)
    h, err := New(v, []transport.Transport{newFake(false), newFake(false)})
    if err != nil { t.Fatalf("new: %v", err) }
    p := testPacket(t, v)
    if h.Send(&p) {
        t.Fatalf("send should report false when every link rejects")
    }
}

func TestTryReceiveFirstValidWins(t *testing.T) {
    v := testValidator(t)
    t1 := newFake(true)                               // no data
    t2 := newFake(true, []byte{0xBA, 0xD0})           // malformed
    t3 := newFake(true, sealed(t, v))                 // valid
    h, err := New(v, []transport.Transport{t1, t2, t3})
    if err != nil { t.Fatalf("new: %v", err) }

    p, ok := h.TryReceive()
    if !ok { t.Fatalf("expected a packet") }
    if p.TaskID != 42 { t.Fatalf("task id = %d", p.TaskID) }
    if t1.recvCalls != 1 || t2.recvCalls != 1 || t3.recvCalls != 1 {
        t.Fatalf("poll counts = %d, %d, %d; want exactly one each",
            t1.recvCalls, t2.recvCalls, t3.recvCalls)
    }
}

func TestTryReceiveStopsAtFirstValid(t *testing.T) {
    v := testValidator(t)
    t1 := newFake(true, sealed(t, v))
    t2 := newFake(true, sealed(t, v))
    h, err := New(v, []transport.Transport{t1, t2})
    if err != nil { t.Fatalf("new: %v", err) }

    if _, ok := h.TryReceive(); !ok { t.Fatalf("expected a packet") }
    if t1.recvCalls != 1 || t2.recvCalls != 0 {
        t.Fatalf("poll counts = %d, %d; polling must stop at the first valid packet",
            t1.recvCalls, t2.recvCalls)
    }
    // the second link's frame surfaces on the next poll pass
    if _, ok := h.TryReceive(); !ok { t.Fatalf("expected the second packet") }
    if t2.recvCalls != 1 { t.Fatalf("second link polled %d times", t2.recvCalls) }
}

func TestTryReceiveDiscardsInvalid(t *testing.T) {
    v := testValidator(t)
    corrupted := sealed(t, v)
    corrupted[len(corrupted)-1] ^= 0xFF
    t1 := newFake(true, corrupted)
    t2 := newFake(true)
    h, err := New(v, []transport.Transport{t1, t2})
    if err != nil { t.Fatalf("new: %v", err) }

    if _, ok := h.TryReceive(); ok {
        t.Fatalf("corrupted frame must not surface")
    }
    if t1.recvCalls != 1 || t2.recvCalls != 1 {
        t.Fatalf("discard must not stop the pass: %d, %d", t1.recvCalls, t2.recvCalls)
    }
}

func TestTryReceiveEmptyPass(t *testing.T) {
    v := testValidator(t)
    t1 := newFake(true)
    h, err := New(v, []transport.Transport{t1})
    if err != nil { t.Fatalf("new: %v", err) }
    if _, ok := h.TryReceive(); ok {
        t.Fatalf("no data should yield no packet")
    }
    if t1.recvCalls != 1 {
        t.Fatalf("exactly one poll per pass, got %d", t1.recvCalls)
    }
}

func TestHubOverMemPair(t *testing.T) {
    v := testValidator(t)
    // Round-trip through the real in-process driver.
    a, b := pairLinks(t)
    ha, err := New(v, []transport.Transport{a})
    if err != nil { t.Fatalf("new: %v", err) }
    hb, err := New(v, []transport.Transport{b})
    if err != nil { t.Fatalf("new: %v", err) }

    p := testPacket(t, v)
    if !ha.Send(&p) { t.Fatalf("send over mem pair") }
    got, ok := hb.TryReceive()
    if !ok { t.Fatalf("receive over mem pair") }
    if got.TaskID != p.TaskID || !bytes.Equal(got.Payload(), p.Payload()) {
        t.Fatalf("round trip mismatch")
    }
    if err := ha.Close(); err != nil { t.Fatalf("close: %v", err) }
}

func TestHubClose(t *testing.T) {
    v := testValidator(t)
    t1, t2 := newFake(true), newFake(true)
    h, err := New(v, []transport.Transport{t1, t2})
    if err != nil { t.Fatalf("new: %v", err) }
    if err := h.Close(); err != nil { t.Fatalf("close: %v", err) }
    if !t1.closed || !t2.closed {
        t.Fatalf("close must reach every link")
    }
}
