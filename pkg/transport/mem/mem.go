// Package mem provides an in-process transport pair. Useful for tests and
// as a stand-in for a shared-memory style link between two loops.
package mem

import (
    "sync"

    "github.com/MarikTik/ecomm/pkg/transport"
)

const defaultDepth = 16

// Pair returns two linked endpoints: frames accepted by one side become
// pending candidate frames on the other. depth bounds each direction's
// queue; a non-positive depth selects the default.
func Pair(depth int) (*Link, *Link) {
    if depth <= 0 {
        depth = defaultDepth
    }
    a := &Link{rx: make(chan []byte, depth), closeCh: make(chan struct{})}
    b := &Link{rx: make(chan []byte, depth), closeCh: make(chan struct{})}
    a.peer, b.peer = b, a
    return a, b
}

// Link is one endpoint of an in-process pair.
type Link struct {
    peer      *Link
    rx        chan []byte
    closeOnce sync.Once
    closeCh   chan struct{}
}

func (l *Link) Kind() transport.Kind { return transport.KindMem }

// TrySend queues one frame on the peer. A full peer queue or a closed
// endpoint rejects the frame.
func (l *Link) TrySend(frame []byte) bool {
    select {
    case <-l.closeCh:
        return false
    case <-l.peer.closeCh:
        return false
    default:
    }
    cp := append([]byte(nil), frame...)
    select {
    case l.peer.rx <- cp:
        return true
    default:
        return false
    }
}

func (l *Link) TryReceive(buf []byte) (int, bool) {
    select {
    case frame := <-l.rx:
        return copy(buf, frame), true
    default:
        return 0, false
    }
}

func (l *Link) Close() error {
    l.closeOnce.Do(func() { close(l.closeCh) })
    return nil
}
