//go:build !windows

package winpipe

import (
    "context"
    "fmt"

    "github.com/MarikTik/ecomm/pkg/transport"
)

// Dial is unavailable off Windows.
func Dial(_ context.Context, _ string, _ int) (transport.Transport, error) {
    return nil, fmt.Errorf("winpipe: named pipes are not supported on this platform")
}

// Listen is unavailable off Windows.
func Listen(_ context.Context, _ string, _ int) (transport.Transport, error) {
    return nil, fmt.Errorf("winpipe: named pipes are not supported on this platform")
}
