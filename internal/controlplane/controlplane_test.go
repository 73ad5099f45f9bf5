package controlplane

import (
	"bufio"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jroosing/charon/internal/dnswire"
	"github.com/jroosing/charon/internal/store"
)

func newTestControlPlane(t *testing.T) (*ControlPlane, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "charon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cp, err := Listen(filepath.Join(dir, "charon.sock"), st, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cp.Close() })
	return cp, st
}

// send dials the control socket, writes line, and polls until the
// ControlPlane has serviced it, returning the response.
func send(t *testing.T, cp *ControlPlane, line string) string {
	t.Helper()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if err := cp.Poll(); err != nil {
				return
			}
			select {
			case <-done:
				return
			default:
			}
		}
	}()

	conn, err := net.Dial("unix", cp.listener.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(line + "\n"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	resp, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	return resp
}

func TestFlush_OverSocket(t *testing.T) {
	cp, st := newTestControlPlane(t)
	require.NoError(t, st.CacheRecord(dnswire.TypeA, "cached.example.com", "192.0.2.9", 60))

	resp := send(t, cp, "flush")
	require.Equal(t, "OK: cache flushed\n", resp)

	count, err := st.CacheCount()
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestEvict(t *testing.T) {
	cp, _ := newTestControlPlane(t)
	resp := dispatchDirect(t, cp, "evict")
	require.Equal(t, "OK: expired entries evicted\n", resp)
}

func TestStats_NoExtra(t *testing.T) {
	cp, _ := newTestControlPlane(t)
	resp := dispatchDirect(t, cp, "stats")
	require.Equal(t, "OK: cache_count=0\n", resp)
}

func TestStats_WithExtra(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "charon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cp, err := Listen(filepath.Join(dir, "charon.sock"), st, func() string { return "cpu=1.0 mem=2.0" })
	require.NoError(t, err)
	t.Cleanup(func() { _ = cp.Close() })

	resp := dispatchDirect(t, cp, "stats")
	require.Equal(t, "OK: cache_count=0 cpu=1.0 mem=2.0\n", resp)
}

func TestAddAndDel(t *testing.T) {
	cp, st := newTestControlPlane(t)

	resp := dispatchDirect(t, cp, "add www.example.com A 192.0.2.1 60")
	require.Equal(t, "OK: record added\n", resp)

	recs, err := st.LookupLocal("www.example.com", dnswire.TypeA)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	resp = dispatchDirect(t, cp, "del www.example.com A")
	require.Equal(t, "OK: record deleted\n", resp)

	recs, err = st.LookupLocal("www.example.com", dnswire.TypeA)
	require.NoError(t, err)
	require.Len(t, recs, 0)
}

func TestAdd_SOAWithoutTrailingTTL(t *testing.T) {
	cp, st := newTestControlPlane(t)

	// 7 rdata fields, no trailing TTL: the last field (300) is SOA's own
	// MINIMUM, not an omitted TTL.
	resp := dispatchDirect(t, cp, "add example.com SOA ns1.example.com hostmaster.example.com 2024010100 3600 600 604800 300")
	require.Equal(t, "OK: record added\n", resp)

	recs, err := st.LookupLocal("example.com", dnswire.TypeSOA)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.EqualValues(t, defaultAddTTL, recs[0].TTL)

	soa := recs[0].Data.(dnswire.SOAData)
	require.EqualValues(t, 300, soa.Minimum)
}

func TestAdd_BadRData(t *testing.T) {
	cp, st := newTestControlPlane(t)
	resp := dispatchDirect(t, cp, "add www.example.com A not-an-ip")
	require.Contains(t, resp, "ERR:")

	recs, err := st.LookupLocal("www.example.com", dnswire.TypeA)
	require.NoError(t, err)
	require.Len(t, recs, 0)
}

func TestUnknownCommand(t *testing.T) {
	cp, _ := newTestControlPlane(t)
	resp := dispatchDirect(t, cp, "bogus")
	require.Contains(t, resp, "ERR:")
}

// dispatchDirect bypasses the socket plumbing send exercises, calling
// dispatch directly for tests that don't need end-to-end socket coverage.
func dispatchDirect(t *testing.T, cp *ControlPlane, line string) string {
	t.Helper()
	return cp.dispatch(line)
}
