// ecomm-bridge runs a host-side ecomm node: it owns a hub over the
// configured links, surfaces every valid inbound packet to the log, and
// emits a periodic heartbeat.
package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "go.uber.org/zap"

    "github.com/MarikTik/ecomm/pkg/checksum"
    "github.com/MarikTik/ecomm/pkg/config"
    "github.com/MarikTik/ecomm/pkg/hub"
    "github.com/MarikTik/ecomm/pkg/observability"
    "github.com/MarikTik/ecomm/pkg/protocol"
    "github.com/MarikTik/ecomm/pkg/transport"
    "github.com/MarikTik/ecomm/pkg/transport/mem"
    "github.com/MarikTik/ecomm/pkg/transport/quic"
    "github.com/MarikTik/ecomm/pkg/transport/serial"
    "github.com/MarikTik/ecomm/pkg/transport/udp"
    "github.com/MarikTik/ecomm/pkg/transport/winpipe"
)

func main() {
    os.Exit(run(ParseFlags(os.Args[1:])))
}

// run is the main entry point after CLI parsing.
func run(opts Options) int {
    cfg, err := config.Load(opts.ConfigPath)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
        return 1
    }

    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
        return 1
    }
    defer func() { _ = logger.Sync() }()

    zap.L().Info("ecomm-bridge started", zap.String("app", cfg.AppName))

    pol, err := checksum.FromName(cfg.Protocol.Checksum)
    if err != nil {
        zap.L().Error("bad checksum policy", zap.Error(err))
        return 1
    }
    lay, err := protocol.NewLayout(protocol.Config{
        Version: uint8(cfg.Protocol.Version),
        Devices: cfg.Protocol.Devices,
        BoardID: uint8(cfg.Protocol.BoardID),
    }, cfg.Protocol.PayloadSize)
    if err != nil {
        zap.L().Error("bad protocol configuration", zap.Error(err))
        return 1
    }
    val := protocol.NewValidator(lay, pol)
    zap.L().Info("frame geometry fixed",
        zap.String("checksum", pol.Name()),
        zap.Int("frame_size", val.FrameSize()),
        zap.Uint("address_bits", lay.AddressBits()))

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    links, err := buildLinks(ctx, cfg, val.FrameSize())
    if err != nil {
        zap.L().Error("failed to start links", zap.Error(err))
        return 1
    }

    h, err := hub.New(val, links, hub.WithLogger(logger))
    if err != nil {
        zap.L().Error("failed to build hub", zap.Error(err))
        return 1
    }
    defer func() { _ = h.Close() }()

    zap.L().Info("bridge is running; press Ctrl+C to exit", zap.Int("links", h.Links()))
    return loop(ctx, cfg, lay, h)
}

// loop is the embedded-style main loop: one non-blocking poll pass per
// iteration plus a periodic heartbeat.
func loop(ctx context.Context, cfg *config.Config, lay protocol.Layout, h *hub.Hub) int {
    poll := time.Duration(cfg.PollIntervalMS) * time.Millisecond
    heartbeat := time.NewTicker(time.Second)
    defer heartbeat.Stop()

    for {
        select {
        case <-ctx.Done():
            zap.L().Info("shutting down")
            return 0
        case <-heartbeat.C:
            if err := sendHeartbeat(lay, h); err != nil {
                zap.L().Warn("heartbeat", zap.Error(err))
            }
        default:
        }

        if p, ok := h.TryReceive(); ok {
            zap.L().Info("packet",
                zap.Stringer("type", p.Header.Type),
                zap.Uint8("sender", p.Header.Sender),
                zap.Uint16("task", p.TaskID),
                zap.Uint32("fcs", p.FCS()))
        } else if poll > 0 {
            time.Sleep(poll)
        }
    }
}

func sendHeartbeat(lay protocol.Layout, h *hub.Hub) error {
    hdr, err := lay.NewHeader(protocol.MsgHeartbeat, 0, lay.BoardID())
    if err != nil {
        return err
    }
    hdr.Flags |= protocol.FlagBroadcast
    p, err := protocol.NewPacket(lay, hdr, 0, nil)
    if err != nil {
        return err
    }
    if !h.Send(&p) {
        zap.L().Debug("heartbeat not accepted by any link")
    }
    return nil
}

// buildLinks starts every configured transport instance.
func buildLinks(ctx context.Context, cfg *config.Config, frameSize int) ([]transport.Transport, error) {
    links := make([]transport.Transport, 0, len(cfg.Links))
    for _, lc := range cfg.Links {
        var (
            l   transport.Transport
            err error
        )
        switch lc.Kind {
        case "mem":
            // loopback pair: useful for smoke tests of the full stack
            a, b := mem.Pair(0)
            go echo(ctx, b, frameSize)
            l = a
        case "udp":
            l, err = udp.Open(lc.Local, lc.Remote)
        case "serial":
            l, err = serial.Open(lc.Device, lc.Baud, frameSize)
        case "quic":
            if lc.Listen {
                l, err = quic.Accept(ctx, lc.Address)
            } else {
                l, err = quic.Dial(ctx, lc.Address)
            }
        case "winpipe":
            if lc.Listen {
                l, err = winpipe.Listen(ctx, lc.Address, frameSize)
            } else {
                l, err = winpipe.Dial(ctx, lc.Address, frameSize)
            }
        }
        if err != nil {
            return nil, err
        }
        links = append(links, l)
    }
    return links, nil
}

// echo reflects frames back on a mem loopback peer until ctx is done.
func echo(ctx context.Context, peer transport.Transport, frameSize int) {
    defer peer.Close()
    buf := make([]byte, frameSize)
    for {
        if n, ok := peer.TryReceive(buf); ok {
            peer.TrySend(buf[:n])
            continue
        }
        select {
        case <-ctx.Done():
            return
        case <-time.After(time.Millisecond):
        }
    }
}
