// Package quic implements a wireless-socket driver over QUIC datagrams:
// one datagram carries one candidate frame, so no stream framing is needed
// and loss behaves like loss on any other unreliable link.
package quic

import (
    "context"
    "crypto/rand"
    "crypto/rsa"
    "crypto/tls"
    "crypto/x509"
    "math/big"
    "net"
    "sync"
    "time"

    quicgo "github.com/quic-go/quic-go"

    "github.com/MarikTik/ecomm/pkg/transport"
)

const (
    alpn    = "ecomm"
    rxDepth = 32
)

// Link is one end of a QUIC connection used in datagram mode.
type Link struct {
    conn      quicgo.Connection
    ln        *quicgo.Listener // accepting side only; owns the UDP socket
    rx        chan []byte
    cancel    context.CancelFunc
    closeOnce sync.Once
}

// Dial connects to a listening peer.
func Dial(ctx context.Context, address string) (*Link, error) {
    tlsConf := &tls.Config{
        InsecureSkipVerify: true, // link integrity lives in the frame checksum, not the channel
        NextProtos:         []string{alpn},
        MinVersion:         tls.VersionTLS13,
    }
    conn, err := quicgo.DialAddr(ctx, address, tlsConf, &quicgo.Config{EnableDatagrams: true})
    if err != nil { return nil, err }
    return newLink(conn, nil), nil
}

// Listener waits for the inbound connection of an accepting link.
type Listener struct {
    ln *quicgo.Listener
}

// Listen binds address for one inbound link.
func Listen(address string) (*Listener, error) {
    cert, err := selfSignedCert()
    if err != nil { return nil, err }
    tlsConf := &tls.Config{
        Certificates: []tls.Certificate{cert},
        NextProtos:   []string{alpn},
        MinVersion:   tls.VersionTLS13,
    }
    ln, err := quicgo.ListenAddr(address, tlsConf, &quicgo.Config{EnableDatagrams: true})
    if err != nil { return nil, err }
    return &Listener{ln: ln}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Accept adopts the next inbound connection. Ownership of the listener
// passes to the returned link, which keeps it open for the connection's
// lifetime and closes it in Close; a link is a point-to-point medium.
func (l *Listener) Accept(ctx context.Context) (*Link, error) {
    conn, err := l.ln.Accept(ctx)
    if err != nil {
        _ = l.ln.Close()
        return nil, err
    }
    return newLink(conn, l.ln), nil
}

// Close releases the listener without accepting.
func (l *Listener) Close() error { return l.ln.Close() }

// Accept listens on address and adopts the first inbound connection.
func Accept(ctx context.Context, address string) (*Link, error) {
    ln, err := Listen(address)
    if err != nil { return nil, err }
    return ln.Accept(ctx)
}

func newLink(conn quicgo.Connection, ln *quicgo.Listener) *Link {
    ctx, cancel := context.WithCancel(context.Background())
    l := &Link{conn: conn, ln: ln, rx: make(chan []byte, rxDepth), cancel: cancel}
    go l.recvLoop(ctx)
    return l
}

func (l *Link) Kind() transport.Kind { return transport.KindQUIC }

func (l *Link) TrySend(frame []byte) bool {
    return l.conn.SendDatagram(frame) == nil
}

func (l *Link) TryReceive(buf []byte) (int, bool) {
    select {
    case frame := <-l.rx:
        return copy(buf, frame), true
    default:
        return 0, false
    }
}

func (l *Link) recvLoop(ctx context.Context) {
    for {
        frame, err := l.conn.ReceiveDatagram(ctx)
        if err != nil {
            return
        }
        select { case l.rx <- frame: default: }
    }
}

func (l *Link) Close() error {
    var err error
    l.closeOnce.Do(func() {
        l.cancel()
        err = l.conn.CloseWithError(0, "")
        if l.ln != nil {
            _ = l.ln.Close()
        }
    })
    return err
}

// selfSignedCert generates a short-lived self-signed TLS certificate for
// local listeners.
func selfSignedCert() (tls.Certificate, error) {
    priv, err := rsa.GenerateKey(rand.Reader, 2048)
    if err != nil { return tls.Certificate{}, err }
    tmpl := x509.Certificate{
        SerialNumber: big.NewInt(time.Now().UnixNano()),
        NotBefore:    time.Now().Add(-time.Minute),
        NotAfter:     time.Now().Add(24 * time.Hour),
        KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
        ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
        BasicConstraintsValid: true,
        DNSNames:     []string{"localhost"},
    }
    der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
    if err != nil { return tls.Certificate{}, err }
    return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}, nil
}
