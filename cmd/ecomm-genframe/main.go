// ecomm-genframe emits a deterministic corpus of binary frames for interop
// testing against firmware implementations: sealed frames for every
// checksum policy, an unchecked frame, plus corrupted and truncated ones.
package main

import (
    "encoding/hex"
    "flag"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strings"

    "github.com/MarikTik/ecomm/pkg/checksum"
    "github.com/MarikTik/ecomm/pkg/protocol"
    "github.com/MarikTik/ecomm/pkg/protocol/codec"
)

func main() {
    outDir := flag.String("out", "testdata/frame", "output directory for binary frames")
    devices := flag.Int("devices", 4, "configured device count")
    payload := flag.Int("payload", 32, "fixed payload size in bytes")
    flag.Parse()
    if err := os.MkdirAll(*outDir, 0o755); err != nil { log.Fatal(err) }

    lay, err := protocol.NewLayout(protocol.Config{Version: 1, Devices: *devices, BoardID: 0}, *payload)
    if err != nil { log.Fatal(err) }

    h, err := lay.NewHeader(protocol.MsgData, 2, 1)
    if err != nil { log.Fatal(err) }

    reg := codec.NewRegistry()
    p, err := protocol.NewPacketWithBody(lay, h, 1001, protocol.FormatJSON, map[string]any{"ok": true, "n": 42}, reg)
    if err != nil { log.Fatal(err) }

    // 1) One sealed frame per policy
    for _, pol := range []checksum.Policy{checksum.CRC32{}, checksum.CRC16{}, checksum.Sum16{}} {
        val := protocol.NewValidator(lay, pol)
        frame := make([]byte, val.FrameSize())
        if _, err := val.Seal(&p, frame); err != nil { log.Fatal(err) }
        writeOut(*outDir, "frame_"+pol.Name()+".bin", frame)
    }

    val := protocol.NewValidator(lay, checksum.CRC32{})
    frame := make([]byte, val.FrameSize())
    if _, err := val.Seal(&p, frame); err != nil { log.Fatal(err) }

    // 2) Corrupted frame: one payload bit flipped after sealing
    bad := append([]byte(nil), frame...)
    bad[protocol.HeaderSize+protocol.TaskIDSize] ^= 0x01
    writeOut(*outDir, "frame_corrupt.bin", bad)

    // 3) Truncated frame
    writeOut(*outDir, "frame_truncated.bin", frame[:len(frame)-3])

    // 4) Unchecked frame: validated marker unset, checksum field garbage
    uh := h
    unchecked := make([]byte, val.FrameSize())
    if err := lay.EncodeHeader(uh, unchecked[:protocol.HeaderSize]); err != nil { log.Fatal(err) }
    for i := lay.BodySize(); i < len(unchecked); i++ { unchecked[i] = 0x5A }
    writeOut(*outDir, "frame_unchecked.bin", unchecked)

    fmt.Println("Generated interop frames in", *outDir)
}

func writeOut(dir, name string, b []byte) {
    p := filepath.Join(dir, name)
    if err := os.WriteFile(p, b, 0o644); err != nil { log.Fatal(err) }
    fmt.Printf("%-24s %5d bytes  head: %s\n", name, len(b), shortHex(b, 32))
}

func shortHex(b []byte, n int) string {
    if len(b) == 0 { return "" }
    if n > len(b) { n = len(b) }
    enc := hex.EncodeToString(b[:n])
    var out []string
    for i := 0; i < len(enc); i += 4 {
        j := i + 4
        if j > len(enc) { j = len(enc) }
        out = append(out, enc[i:j])
    }
    return strings.Join(out, " ")
}
