// Package serial implements a UART link driver. The wire is a raw byte
// stream, so the driver slices it into fixed-size candidate frames: both
// ends must be configured with the same frame size, which is the framed
// packet size of the deployment's layout/policy pair.
package serial

import (
    "fmt"
    "io"
    "sync"

    goserial "go.bug.st/serial"

    "github.com/MarikTik/ecomm/pkg/transport"
)

const rxDepth = 16

// Link is a serial port carrying fixed-size frames.
type Link struct {
    port      goserial.Port
    frameSize int
    rx        chan []byte
    closeOnce sync.Once
    closeCh   chan struct{}
}

// Open opens the named device at the given baud rate and starts the receive
// pump. frameSize must match the deployment's framed packet size.
func Open(device string, baud, frameSize int) (*Link, error) {
    if frameSize < 1 {
        return nil, fmt.Errorf("serial: invalid frame size %d", frameSize)
    }
    port, err := goserial.Open(device, &goserial.Mode{BaudRate: baud})
    if err != nil {
        return nil, fmt.Errorf("serial: open %s: %w", device, err)
    }
    l := &Link{
        port:      port,
        frameSize: frameSize,
        rx:        make(chan []byte, rxDepth),
        closeCh:   make(chan struct{}),
    }
    go l.recvLoop()
    return l, nil
}

func (l *Link) Kind() transport.Kind { return transport.KindSerial }

// TrySend writes one frame to the port. A partial write means the medium
// did not accept the frame.
func (l *Link) TrySend(frame []byte) bool {
    n, err := l.port.Write(frame)
    return err == nil && n == len(frame)
}

func (l *Link) TryReceive(buf []byte) (int, bool) {
    select {
    case frame := <-l.rx:
        return copy(buf, frame), true
    default:
        return 0, false
    }
}

func (l *Link) recvLoop() {
    for {
        frame := make([]byte, l.frameSize)
        if _, err := io.ReadFull(l.port, frame); err != nil {
            return
        }
        select { case l.rx <- frame: default: }
    }
}

func (l *Link) Close() error {
    var err error
    l.closeOnce.Do(func() {
        close(l.closeCh)
        err = l.port.Close()
    })
    return err
}
