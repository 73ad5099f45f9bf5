// Package forwarder relays a raw query datagram to one of a pair of
// upstream resolvers, with a single failover retry. It deliberately does
// none of what a production forwarding resolver usually does — no
// connection pooling, no singleflight coalescing, no upstream health
// tracking, no TCP fallback — because spec.md §4.3 calls for exactly one
// ephemeral socket per call and a bounded two-address failover, and the
// Engine's single-threaded loop blocks on this call for its duration.
package forwarder

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrUpstreamExhausted is returned when both the primary and secondary
// upstream fail or time out.
var ErrUpstreamExhausted = errors.New("forwarder: upstream exhausted")

// Forwarder holds a pair of upstream host:port addresses and a per-attempt
// timeout. Presets address port 53, matching spec.md §4.3's IPv4 pairs.
type Forwarder struct {
	Primary   string
	Secondary string
	Timeout   time.Duration
}

// RecvBufferSize bounds the reply datagram the forwarder will accept.
const RecvBufferSize = 4096

// Quad9 is the Quad9-style preset upstream pair.
var Quad9 = Forwarder{Primary: "9.9.9.9:53", Secondary: "149.112.112.112:53", Timeout: 3 * time.Second}

// Cloudflare is the Cloudflare-style preset upstream pair.
var Cloudflare = Forwarder{Primary: "1.1.1.1:53", Secondary: "1.0.0.1:53", Timeout: 3 * time.Second}

// FromPreset resolves a named upstream preset (spec.md §4.3), applying
// timeout if it's non-zero or the preset's default otherwise.
func FromPreset(name string, timeout time.Duration) (Forwarder, error) {
	var f Forwarder
	switch name {
	case "quad9":
		f = Quad9
	case "cloudflare":
		f = Cloudflare
	default:
		return Forwarder{}, fmt.Errorf("forwarder: unknown upstream preset %q", name)
	}
	if timeout > 0 {
		f.Timeout = timeout
	}
	return f, nil
}

// Forward sends query verbatim (same ID, flags and question section) to the
// primary address, waiting up to f.Timeout for a reply. On timeout or
// socket error it retries once against the secondary. On second failure it
// returns ErrUpstreamExhausted.
func (f Forwarder) Forward(query []byte) ([]byte, error) {
	resp, err := f.forwardTo(f.Primary, query)
	if err == nil {
		return resp, nil
	}

	resp, err = f.forwardTo(f.Secondary, query)
	if err == nil {
		return resp, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUpstreamExhausted, err)
}

func (f Forwarder) forwardTo(addr string, query []byte) ([]byte, error) {
	conn, err := net.DialTimeout("udp", addr, f.Timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(f.Timeout)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	if _, err := conn.Write(query); err != nil {
		return nil, fmt.Errorf("write to %s: %w", addr, err)
	}

	buf := make([]byte, RecvBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read from %s: %w", addr, err)
	}
	return buf[:n:n], nil
}
