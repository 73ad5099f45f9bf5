// Package engine implements Charon's single-threaded cooperative event
// loop: poll the control socket, evict expired cache entries, receive one
// UDP query, run the three-tier lookup pipeline, and reply — in that
// order, every iteration, per spec.md §4.5 and §5.
package engine

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/jroosing/charon/internal/controlplane"
	"github.com/jroosing/charon/internal/dnswire"
	"github.com/jroosing/charon/internal/forwarder"
	"github.com/jroosing/charon/internal/store"
)

// recvDeadline bounds how long a single ReadFromUDP call may block, so the
// loop keeps revisiting the control socket and TTL eviction under idle
// load, per spec.md §5's suspension-point requirement.
const recvDeadline = 200 * time.Millisecond

// Engine owns the UDP socket, the Store, the Forwarder and the
// ControlPlane. It is not safe for concurrent use — by design, per
// spec.md §5, it is only ever driven by a single goroutine.
type Engine struct {
	conn            *net.UDPConn
	store           *store.Store
	fwd             forwarder.Forwarder
	cp              *controlplane.ControlPlane
	log             *slog.Logger
	defaultCacheTTL uint32
}

// New binds the UDP listen socket and wires the Store, Forwarder and
// ControlPlane the loop will drive. defaultCacheTTL (spec.md §6's
// cache_ttl key) is substituted for any forwarded RR whose own wire TTL
// is 0, so an upstream answer that carries no usable TTL of its own is
// still cached for the configured time. Non-zero TTLs are used unchanged.
func New(listenAddr string, st *store.Store, fwd forwarder.Forwarder, cp *controlplane.ControlPlane, log *slog.Logger, defaultCacheTTL uint32) (*Engine, error) {
	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{conn: conn, store: st, fwd: fwd, cp: cp, log: log, defaultCacheTTL: defaultCacheTTL}, nil
}

// Close releases the UDP socket. The ControlPlane is closed separately by
// whoever constructed it.
func (e *Engine) Close() error {
	return e.conn.Close()
}

// RunOnce executes exactly one event-loop iteration: control-socket poll,
// TTL eviction, one bounded UDP receive, the query pipeline, and a reply
// when a datagram was present. It never returns an error for per-query or
// per-command failures — those become DNS responses, ERR lines, or silent
// drops, per spec.md §7's propagation policy. It returns an error only for
// a failure in the loop's own plumbing (socket I/O other than a read
// timeout).
func (e *Engine) RunOnce() error {
	if err := e.cp.Poll(); err != nil {
		e.log.Warn("control socket poll failed", "error", err)
	}

	if err := e.store.EvictExpired(); err != nil {
		e.log.Warn("evict expired failed", "error", err)
	}

	if err := e.conn.SetReadDeadline(time.Now().Add(recvDeadline)); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}

	buf := make([]byte, dnswire.MaxIncomingMessageSize)
	n, clientAddr, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil
		}
		return fmt.Errorf("read udp: %w", err)
	}

	resp, ok := e.handleQuery(buf[:n])
	if !ok {
		return nil
	}
	if _, err := e.conn.WriteToUDP(resp, clientAddr); err != nil {
		e.log.Warn("write udp response failed", "error", err, "client", clientAddr)
	}
	return nil
}

// Run drives RunOnce forever until stop is closed.
func (e *Engine) Run(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		if err := e.RunOnce(); err != nil {
			return err
		}
	}
}

// handleQuery runs the three-tier pipeline against a single received
// datagram, returning the bytes to send back and whether a reply should be
// sent at all (false means "drop silently", for runt datagrams per
// spec.md §4.5 step 1).
func (e *Engine) handleQuery(msg []byte) ([]byte, bool) {
	if len(msg) < dnswire.HeaderSize {
		return nil, false
	}

	req, err := dnswire.ParseRequestBounded(msg)
	if err != nil {
		return e.serverFailureFor(msg)
	}

	question := req.Questions[0]

	if records, err := e.store.LookupLocal(question.Name, question.Type); err == nil && len(records) > 0 {
		e.log.Debug("query answered from local zone", "name", question.Name, "type", question.Type, "records", len(records))
		return e.synthesizeResponse(req, records), true
	} else if err != nil {
		e.log.Warn("lookup local failed", "error", err)
	}

	if cached, err := e.store.LookupCache(question.Name, question.Type); err == nil && len(cached) > 0 {
		e.log.Debug("query answered from cache", "name", question.Name, "type", question.Type, "records", len(cached))
		return e.synthesizeResponse(req, cachedRecords(cached)), true
	} else if err != nil {
		e.log.Warn("lookup cache failed", "error", err)
	}

	resp, err := e.fwd.Forward(msg)
	if err != nil {
		// forwarder.ErrUpstreamExhausted is the only error Forward returns;
		// any other error (e.g. ID mismatch if a caller adds that check
		// later) still maps to ServerFailure per spec.md §4.5.
		e.log.Warn("forward failed", "error", err)
		return e.respondError(req, dnswire.RCodeServFail), true
	}

	e.log.Debug("query forwarded upstream", "name", question.Name, "type", question.Type)
	e.cacheForwardedAnswers(resp)
	return resp, true
}

// cacheForwardedAnswers parses a forwarded reply's answer section and
// caches each RR individually with its own TTL, per the per-RR caching
// decision recorded in DESIGN.md (SPEC_FULL.md §6 open question 1). An RR
// carrying a zero TTL is cached with defaultCacheTTL instead; any other
// TTL is kept as the upstream sent it.
func (e *Engine) cacheForwardedAnswers(resp []byte) {
	pkt, err := dnswire.ParsePacket(resp)
	if err != nil {
		return
	}
	for _, rr := range pkt.Answers {
		text, err := dnswire.RDataText(rr.Type, rr.Data)
		if err != nil {
			continue
		}
		ttl := rr.TTL
		if ttl == 0 {
			ttl = e.defaultCacheTTL
		}
		if err := e.store.CacheRecord(rr.Type, rr.Name, text, ttl); err != nil {
			e.log.Warn("cache forwarded answer failed", "error", err)
		}
	}
}

// cachedRecords strips the remaining-TTL wrapper down to the bare Records
// synthesizeResponse needs.
func cachedRecords(cached []store.CachedRecord) []dnswire.Record {
	out := make([]dnswire.Record, len(cached))
	for i, c := range cached {
		out[i] = c.Record
	}
	return out
}

// synthesizeResponse builds a local or cached answer per spec.md §4.5's
// synthesis rules: copy ID/RD, set QR/AA/RA/NoError, echo the question,
// append each record, validating during encode and truncating (TC bit) if
// the UDP response would overflow.
func (e *Engine) synthesizeResponse(req dnswire.Packet, records []dnswire.Record) []byte {
	resp := dnswire.Packet{
		Header: dnswire.Header{
			ID:      req.Header.ID,
			Flags:   dnswire.QRFlag | dnswire.AAFlag | dnswire.RAFlag | (req.Header.Flags & dnswire.RDFlag) | uint16(dnswire.RCodeNoError),
			QDCount: uint16(len(req.Questions)),
		},
		Questions: req.Questions,
	}

	for _, rr := range records {
		candidate := resp
		candidate.Answers = append(append([]dnswire.Record{}, resp.Answers...), rr)
		encoded, err := candidate.Marshal()
		if err != nil {
			continue
		}
		if len(encoded) > dnswire.MaxUDPResponseSize {
			resp.Header.Flags |= dnswire.TCFlag
			break
		}
		resp.Answers = candidate.Answers
	}
	resp.Header.ANCount = uint16(len(resp.Answers))

	encoded, err := resp.Marshal()
	if err != nil {
		return e.respondError(req, dnswire.RCodeServFail)
	}
	return encoded
}

// respondError builds a failure reply carrying rcode, the query's ID/RD
// and (when parseable) its question section, per spec.md §4.5's failure
// reply rule.
func (e *Engine) respondError(req dnswire.Packet, rcode dnswire.RCode) []byte {
	errResp := dnswire.BuildErrorResponse(req, rcode)
	encoded, err := errResp.Marshal()
	if err != nil {
		// Even the minimal error packet failed to encode; fall back to a
		// bare header with no question section rather than send nothing.
		bare := dnswire.Packet{Header: dnswire.Header{
			ID:    req.Header.ID,
			Flags: dnswire.QRFlag | uint16(rcode),
		}}
		encoded, _ = bare.Marshal()
	}
	return encoded
}

// serverFailureFor builds a ServerFailure reply from a datagram that
// failed ParseRequestBounded, recovering the header (and question, if
// present) on a best-effort basis.
func (e *Engine) serverFailureFor(msg []byte) ([]byte, bool) {
	off := 0
	h, err := dnswire.ParseHeader(msg, &off)
	if err != nil {
		return nil, false
	}

	req := dnswire.Packet{Header: h}
	if h.QDCount >= 1 {
		if q, err := dnswire.ParseQuestion(msg, &off); err == nil {
			req.Questions = []dnswire.Question{q}
		}
	}
	return e.respondError(req, dnswire.RCodeServFail), true
}
