// Package transport defines the capability contract a concrete link must
// satisfy to participate in a hub, and names the link kinds the drivers
// under this package implement.
package transport

// Kind identifies the concrete link type. A hub owns links of one kind only.
type Kind int

const (
    KindUnknown Kind = iota
    KindMem
    KindSerial
    KindUDP
    KindQUIC
    KindWinPipe
)

func (k Kind) String() string {
    switch k {
    case KindMem:
        return "mem"
    case KindSerial:
        return "serial"
    case KindUDP:
        return "udp"
    case KindQUIC:
        return "quic"
    case KindWinPipe:
        return "winpipe"
    default:
        return "unknown"
    }
}

// Transport is the minimal capability a concrete medium must expose.
// Both calls are non-blocking: they complete without waiting on the medium.
//
// Drivers deliver whole candidate frames, not byte streams; any framing a
// stream medium needs (fixed-size reads on a UART, length prefixes on a
// pipe) is the driver's concern and invisible to the hub.
type Transport interface {
    Kind() Kind

    // TrySend hands one frame to the medium. The return value reports
    // whether the medium accepted the bytes, not whether they were
    // delivered.
    TrySend(frame []byte) bool

    // TryReceive copies the next pending candidate frame into buf and
    // returns the number of bytes copied. ok is false when no frame is
    // pending this call. Frames longer than buf are truncated; the
    // validator rejects the result either way.
    TryReceive(buf []byte) (n int, ok bool)

    Close() error
}
