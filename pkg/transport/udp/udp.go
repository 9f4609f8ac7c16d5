// Package udp implements a datagram socket driver: one datagram carries one
// candidate frame. A receive pump drains the socket into a bounded queue so
// TryReceive never blocks.
package udp

import (
    "net"
    "sync"

    "github.com/MarikTik/ecomm/pkg/transport"
)

const rxDepth = 32

// Link is a UDP endpoint bound to a local address and aimed at one remote.
type Link struct {
    conn      *net.UDPConn
    raddr     *net.UDPAddr
    rx        chan []byte
    closeOnce sync.Once
}

// Open binds local and resolves remote, then starts the receive pump.
func Open(local, remote string) (*Link, error) {
    laddr, err := net.ResolveUDPAddr("udp", local)
    if err != nil { return nil, err }
    raddr, err := net.ResolveUDPAddr("udp", remote)
    if err != nil { return nil, err }
    conn, err := net.ListenUDP("udp", laddr)
    if err != nil { return nil, err }
    l := &Link{
        conn:  conn,
        raddr: raddr,
        rx:    make(chan []byte, rxDepth),
    }
    go l.recvLoop()
    return l, nil
}

func (l *Link) Kind() transport.Kind { return transport.KindUDP }

// LocalAddr returns the bound socket address.
func (l *Link) LocalAddr() net.Addr { return l.conn.LocalAddr() }

func (l *Link) TrySend(frame []byte) bool {
    _, err := l.conn.WriteToUDP(frame, l.raddr)
    return err == nil
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
    buf := make([]byte, 64*1024)
    for {
        n, _, err := l.conn.ReadFromUDP(buf)
        if err != nil {
            return
        }
        frame := make([]byte, n)
        copy(frame, buf[:n])
        // drop when the loop is not draining fast enough
        select { case l.rx <- frame: default: }
    }
}

// Close closes the socket, which also unblocks the receive pump.
func (l *Link) Close() error {
    var err error
    l.closeOnce.Do(func() { err = l.conn.Close() })
    return err
}
