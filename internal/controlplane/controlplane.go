// Package controlplane implements the Unix stream control socket the
// Engine polls cooperatively each event-loop iteration: one accept, one
// command, one response, no persistent sessions, per spec.md §4.4.
package controlplane

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/jroosing/charon/internal/dnswire"
	"github.com/jroosing/charon/internal/store"
)

// DefaultSocketPath is the default bind path for the control socket.
const DefaultSocketPath = "/run/charon.sock"

// defaultAddTTL is used for an `add` command whose rdata omits the
// optional trailing TTL field.
const defaultAddTTL = 300

// pollDeadline bounds how long Poll blocks waiting for a client connection;
// a short deadline keeps the Engine's single thread responsive to the UDP
// path and TTL eviction, per spec.md §5's suspension-point guidance.
const pollDeadline = time.Millisecond

// StatsExtra supplies the system snapshot the `stats` reply is enriched
// with (SPEC_FULL.md §4's supplemented stats feature). A nil func means
// stats replies carry only the cache count.
type StatsExtra func() string

// ControlPlane owns the Unix socket listener and mutates store in response
// to commands.
type ControlPlane struct {
	listener *net.UnixListener
	store    *store.Store
	extra    StatsExtra
}

// Listen binds the control socket at path, unlinking any stale socket file
// left by a previous, uncleanly terminated process (spec.md §4.4).
func Listen(path string, st *store.Store, extra StatsExtra) (*ControlPlane, error) {
	if err := unix.Unlink(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale control socket: %w", err)
	}

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("resolve control socket address: %w", err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on control socket: %w", err)
	}

	return &ControlPlane{listener: ln, store: st, extra: extra}, nil
}

// Close closes the listener and removes the socket file.
func (c *ControlPlane) Close() error {
	path := c.listener.Addr().String()
	err := c.listener.Close()
	_ = os.Remove(path)
	return err
}

// Poll performs a single accept bounded by pollDeadline. If a client
// connection is waiting, it reads one command line, dispatches it, writes
// one response line, and closes the connection. If none arrives within
// pollDeadline, Poll returns with no error.
func (c *ControlPlane) Poll() error {
	if err := c.listener.SetDeadline(time.Now().Add(pollDeadline)); err != nil {
		return fmt.Errorf("set control socket deadline: %w", err)
	}

	conn, err := c.listener.Accept()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil
		}
		return fmt.Errorf("accept control connection: %w", err)
	}
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil && line == "" {
		return nil
	}

	resp := c.dispatch(strings.TrimSpace(line))
	_, err = conn.Write([]byte(resp))
	return err
}

func (c *ControlPlane) dispatch(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "ERR: unknown command. expected one of: flush, evict, stats, add, del\n"
	}

	switch strings.ToLower(fields[0]) {
	case "flush":
		return c.handleFlush()
	case "evict":
		return c.handleEvict()
	case "stats":
		return c.handleStats()
	case "add":
		return c.handleAdd(fields[1:])
	case "del":
		return c.handleDel(fields[1:])
	default:
		return fmt.Sprintf("ERR: unknown command %q\n", fields[0])
	}
}

func (c *ControlPlane) handleFlush() string {
	if err := c.store.FlushCache(); err != nil {
		return fmt.Sprintf("ERR: %v\n", err)
	}
	return "OK: cache flushed\n"
}

func (c *ControlPlane) handleEvict() string {
	if err := c.store.EvictExpired(); err != nil {
		return fmt.Sprintf("ERR: %v\n", err)
	}
	return "OK: expired entries evicted\n"
}

func (c *ControlPlane) handleStats() string {
	count, err := c.store.CacheCount()
	if err != nil {
		return fmt.Sprintf("ERR: %v\n", err)
	}
	if c.extra == nil {
		return fmt.Sprintf("OK: cache_count=%d\n", count)
	}
	return fmt.Sprintf("OK: cache_count=%d %s\n", count, c.extra())
}

func (c *ControlPlane) handleAdd(args []string) string {
	if len(args) < 3 {
		return "ERR: usage: add NAME TYPE RDATA [TTL]\n"
	}
	name := args[0]
	rtype, ok := recordTypeFromName(args[1])
	if !ok {
		return fmt.Sprintf("ERR: unknown record type %q\n", args[1])
	}

	rest, ttl := dnswire.SplitTrailingTTL(rtype, args[2:], defaultAddTTL)
	if len(rest) == 0 {
		return "ERR: missing rdata\n"
	}

	data, err := dnswire.ParseRDataFields(rtype, rest)
	if err != nil {
		return fmt.Sprintf("ERR: %v\n", err)
	}
	text, err := dnswire.RDataText(rtype, data)
	if err != nil {
		return fmt.Sprintf("ERR: %v\n", err)
	}

	// Validate the rdata encodes cleanly before ever touching the store,
	// per spec.md §4.4: bad arguments produce ERR and no mutation.
	probe := dnswire.Record{Name: name, Type: rtype, Class: dnswire.ClassIN, TTL: ttl, Data: data}
	if _, err := probe.Marshal(); err != nil {
		return fmt.Sprintf("ERR: %v\n", err)
	}

	if err := c.store.AddLocal(rtype, name, text, ttl); err != nil {
		return fmt.Sprintf("ERR: %v\n", err)
	}
	return "OK: record added\n"
}

func (c *ControlPlane) handleDel(args []string) string {
	if len(args) != 2 {
		return "ERR: usage: del NAME TYPE\n"
	}
	rtype, ok := recordTypeFromName(args[1])
	if !ok {
		return fmt.Sprintf("ERR: unknown record type %q\n", args[1])
	}
	if err := c.store.DeleteLocal(args[0], rtype); err != nil {
		return fmt.Sprintf("ERR: %v\n", err)
	}
	return "OK: record deleted\n"
}

func recordTypeFromName(tok string) (dnswire.RecordType, bool) {
	switch strings.ToUpper(tok) {
	case "A":
		return dnswire.TypeA, true
	case "AAAA":
		return dnswire.TypeAAAA, true
	case "CNAME":
		return dnswire.TypeCNAME, true
	case "NS":
		return dnswire.TypeNS, true
	case "PTR":
		return dnswire.TypePTR, true
	case "MX":
		return dnswire.TypeMX, true
	case "TXT":
		return dnswire.TypeTXT, true
	case "SOA":
		return dnswire.TypeSOA, true
	default:
		return 0, false
	}
}
