// Package hub multiplexes packet send/receive across a fixed set of
// transport links. It seals on the way out, validates on the way in, and
// guarantees at most one valid packet is surfaced per poll.
package hub

import (
    "errors"
    "fmt"

    "go.uber.org/zap"

    "github.com/MarikTik/ecomm/pkg/protocol"
    "github.com/MarikTik/ecomm/pkg/transport"
)

var (
    ErrNoLinks    = errors.New("hub: at least one transport is required")
    ErrMixedKinds = errors.New("hub: all transports must share one kind")
)

// Hub owns an ordered, fixed set of links of one kind. The set is fixed at
// construction; there is no dynamic add/remove. The hub holds no locks: it
// is built for a single-loop caller, and concurrent use requires external
// synchronization.
type Hub struct {
    val   *protocol.Validator
    links []transport.Transport
    tx    []byte
    rx    []byte
    log   *zap.Logger
}

// Option customizes a Hub.
type Option func(*Hub)

// WithLogger attaches a logger for discard diagnostics. The default is a
// no-op logger; the hot path never formats anything above debug level.
func WithLogger(log *zap.Logger) Option {
    return func(h *Hub) { h.log = log }
}

// New builds a hub over links, in registration order. All links must share
// one transport kind.
func New(val *protocol.Validator, links []transport.Transport, opts ...Option) (*Hub, error) {
    if len(links) == 0 {
        return nil, ErrNoLinks
    }
    kind := links[0].Kind()
    for _, l := range links[1:] {
        if l.Kind() != kind {
            return nil, fmt.Errorf("%w: %v and %v", ErrMixedKinds, kind, l.Kind())
        }
    }
    h := &Hub{
        val:   val,
        links: append([]transport.Transport(nil), links...),
        tx:    make([]byte, val.FrameSize()),
        rx:    make([]byte, val.FrameSize()),
        log:   zap.NewNop(),
    }
    for _, o := range opts {
        o(h)
    }
    return h, nil
}

// FrameSize returns the fixed frame size the hub sends and accepts.
func (h *Hub) FrameSize() int { return h.val.FrameSize() }

// Links returns the number of owned links.
func (h *Hub) Links() int { return len(h.links) }

// Send seals p and broadcasts the frame to every link in registration
// order, continuing past per-link rejections. It reports true iff at least
// one link accepted the bytes.
func (h *Hub) Send(p *protocol.Packet) bool {
    n, err := h.val.Seal(p, h.tx)
    if err != nil {
        h.log.Error("seal failed", zap.Error(err))
        return false
    }
    accepted := false
    for i, l := range h.links {
        if l.TrySend(h.tx[:n]) {
            accepted = true
        } else {
            h.log.Debug("link rejected frame", zap.Int("link", i), zap.Stringer("kind", l.Kind()))
        }
    }
    return accepted
}

// TryReceive polls every link exactly once, in registration order, and
// returns the first packet that arrives and validates. Invalid and
// malformed candidates are discarded silently (they are normal on noisy
// links) and polling continues within the same call. It never blocks.
func (h *Hub) TryReceive() (protocol.Packet, bool) {
    for i, l := range h.links {
        n, ok := l.TryReceive(h.rx)
        if !ok {
            continue
        }
        p, verdict := h.val.Validate(h.rx[:n])
        if verdict == protocol.Valid {
            return p, true
        }
        h.log.Debug("candidate discarded",
            zap.Int("link", i),
            zap.Stringer("verdict", verdict),
            zap.Int("bytes", n))
    }
    return protocol.Packet{}, false
}

// Close closes every owned link, returning the first error.
func (h *Hub) Close() error {
    var first error
    for _, l := range h.links {
        if err := l.Close(); err != nil && first == nil {
            first = err
        }
    }
    return first
}
