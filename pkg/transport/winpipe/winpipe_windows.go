//go:build windows

// Package winpipe implements a Windows named-pipe driver for host-side bench
// testing of device firmware. The pipe is a byte stream, so frames are read
// as fixed-size slices like on a serial link.
package winpipe

import (
    "context"
    "fmt"
    "io"
    "net"
    "sync"

    "github.com/Microsoft/go-winio"

    "github.com/MarikTik/ecomm/pkg/transport"
)

const rxDepth = 16

// Link is one end of a named pipe carrying fixed-size frames.
type Link struct {
    conn      net.Conn
    frameSize int
    rx        chan []byte
    closeOnce sync.Once
    closeCh   chan struct{}
}

// Dial connects to an existing pipe.
func Dial(ctx context.Context, pipeName string, frameSize int) (transport.Transport, error) {
    if frameSize < 1 {
        return nil, fmt.Errorf("winpipe: invalid frame size %d", frameSize)
    }
    conn, err := winio.DialPipeContext(ctx, pipeName)
    if err != nil { return nil, err }
    return newLink(conn, frameSize), nil
}

// Listen creates the pipe and adopts the first inbound connection; the
// listener is closed afterwards, a link being point-to-point.
func Listen(ctx context.Context, pipeName string, frameSize int) (transport.Transport, error) {
    if frameSize < 1 {
        return nil, fmt.Errorf("winpipe: invalid frame size %d", frameSize)
    }
    ln, err := winio.ListenPipe(pipeName, nil)
    if err != nil { return nil, err }
    defer ln.Close()
    go func() { <-ctx.Done(); _ = ln.Close() }()
    conn, err := ln.Accept()
    if err != nil { return nil, err }
    return newLink(conn, frameSize), nil
}

func newLink(conn net.Conn, frameSize int) *Link {
    l := &Link{
        conn:      conn,
        frameSize: frameSize,
        rx:        make(chan []byte, rxDepth),
        closeCh:   make(chan struct{}),
    }
    go l.recvLoop()
    return l
}

func (l *Link) Kind() transport.Kind { return transport.KindWinPipe }

func (l *Link) TrySend(frame []byte) bool {
    n, err := l.conn.Write(frame)
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
        if _, err := io.ReadFull(l.conn, frame); err != nil {
            return
        }
        select { case l.rx <- frame: default: }
    }
}

func (l *Link) Close() error {
    var err error
    l.closeOnce.Do(func() {
        close(l.closeCh)
        err = l.conn.Close()
    })
    return err
}
