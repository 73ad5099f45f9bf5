// Package zone loads Charon's local-record seed file: one record per line,
// in the flat `NAME TYPE RDATA [TTL]` format spec.md §4.2 defines. This is
// deliberately not BIND zone-file syntax; there are no $ORIGIN/$TTL
// directives, no parenthesized multi-line records and no relative names.
package zone

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jroosing/charon/internal/dnswire"
)

// DefaultTTL is used for any record whose line omits a trailing TTL field.
const DefaultTTL = 3600

// LoadFile reads and parses a zone seed file from disk.
func LoadFile(path string) ([]dnswire.Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open zone file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads records from r. It returns the accepted records and the
// number of lines skipped for being malformed or unrecognized; per
// spec.md §4.2, a bad line is skipped rather than aborting the whole load.
func Parse(r io.Reader) ([]dnswire.Record, int, error) {
	var records []dnswire.Record
	skipped := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		rec, ok := parseLine(line)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read zone file: %w", err)
	}
	return records, skipped, nil
}

func stripComment(line string) string {
	if i := strings.IndexAny(line, "#;"); i >= 0 {
		return line[:i]
	}
	return line
}

// parseLine parses one `NAME TYPE RDATA... [TTL]` line. Whether a trailing
// TTL is present is decided per-type by dnswire.SplitTrailingTTL, not by
// guessing from the last field alone (a SOA record's own MINIMUM field is
// numeric too, and must not be mistaken for an omitted TTL).
func parseLine(line string) (dnswire.Record, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return dnswire.Record{}, false
	}

	// Casing is preserved as written; the store indexes a normalized form
	// separately and matches case-insensitively (spec.md §3 invariant 2).
	name := strings.TrimSuffix(fields[0], ".")
	rtype, ok := typeFromName(fields[1])
	if !ok {
		return dnswire.Record{}, false
	}

	rest, ttl := dnswire.SplitTrailingTTL(rtype, fields[2:], DefaultTTL)
	if len(rest) == 0 {
		return dnswire.Record{}, false
	}

	data, err := dnswire.ParseRDataFields(rtype, rest)
	if err != nil {
		return dnswire.Record{}, false
	}

	rec := dnswire.Record{Name: name, Type: rtype, Class: dnswire.ClassIN, TTL: ttl, Data: data}
	if _, err := rec.Marshal(); err != nil {
		return dnswire.Record{}, false
	}
	return rec, true
}

func typeFromName(tok string) (dnswire.RecordType, bool) {
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

