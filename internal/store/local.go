package store

import (
	"fmt"
	"strings"

	"github.com/jroosing/charon/internal/dnswire"
	"github.com/jroosing/charon/internal/zone"
)

// AddLocal appends an authoritative record. It never deduplicates against
// existing records with the same (name, type) key (spec.md §4.2). The name
// is stored exactly as given; name_norm carries the lowercased form used
// for case-insensitive matching, so lookups can return the original casing
// (spec.md §3 invariant 2: "returned records preserve the stored casing").
func (s *Store) AddLocal(rtype dnswire.RecordType, name, rdataText string, ttl uint32) error {
	_, err := s.db.Exec(
		`INSERT INTO local_records (name, name_norm, type, rdata_text, ttl) VALUES (?, ?, ?, ?, ?)`,
		name, dnswire.NormalizeName(name), int(rtype), rdataText, ttl,
	)
	if err != nil {
		return fmt.Errorf("add local record: %w", err)
	}
	return nil
}

// LookupLocal returns every local record matching (name, type), matched
// case-insensitively via name_norm. Each returned record carries the name
// as originally stored, not the lookup's casing. An empty slice means a
// miss, not an error.
func (s *Store) LookupLocal(name string, rtype dnswire.RecordType) ([]dnswire.Record, error) {
	rows, err := s.db.Query(
		`SELECT name, rdata_text, ttl FROM local_records WHERE name_norm = ? AND type = ?`,
		dnswire.NormalizeName(name), int(rtype),
	)
	if err != nil {
		return nil, fmt.Errorf("lookup local: %w", err)
	}
	defer rows.Close()

	var records []dnswire.Record
	for rows.Next() {
		var storedName, rdataText string
		var ttl uint32
		if err := rows.Scan(&storedName, &rdataText, &ttl); err != nil {
			return nil, fmt.Errorf("lookup local: %w", err)
		}
		data, err := parseStoredRData(rtype, rdataText)
		if err != nil {
			continue // spec.md §7: RecordEncodingFailure skips the record, not the whole RRset
		}
		records = append(records, dnswire.Record{Name: storedName, Type: rtype, Class: dnswire.ClassIN, TTL: ttl, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup local: %w", err)
	}
	return records, nil
}

// HasAnyLocal reports whether any record (of any type) exists for name,
// used to distinguish NXDOMAIN from NODATA (spec.md §4.2).
func (s *Store) HasAnyLocal(name string) (bool, error) {
	var exists int
	err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM local_records WHERE name_norm = ?)`, dnswire.NormalizeName(name)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has any local: %w", err)
	}
	return exists == 1, nil
}

// DeleteLocal removes all records with the given (name, type) key, matched
// case-insensitively via name_norm.
func (s *Store) DeleteLocal(name string, rtype dnswire.RecordType) error {
	_, err := s.db.Exec(`DELETE FROM local_records WHERE name_norm = ? AND type = ?`, dnswire.NormalizeName(name), int(rtype))
	if err != nil {
		return fmt.Errorf("delete local: %w", err)
	}
	return nil
}

// LoadZoneFile parses path in the flat zone format (internal/zone) and
// inserts every accepted record, returning the count inserted. Malformed
// lines are skipped by the zone parser and do not fail the load.
func (s *Store) LoadZoneFile(path string) (int, error) {
	records, _, err := zone.LoadFile(path)
	if err != nil {
		return 0, fmt.Errorf("load zone file: %w", err)
	}

	count := 0
	for _, rec := range records {
		text, err := dnswire.RDataText(rec.Type, rec.Data)
		if err != nil {
			continue
		}
		if err := s.AddLocal(rec.Type, rec.Name, text, rec.TTL); err != nil {
			return count, fmt.Errorf("load zone file: %w", err)
		}
		count++
	}
	return count, nil
}

// parseStoredRData converts the flat text column back into typed rdata.
// TXT is passed through verbatim rather than split-and-rejoined so internal
// whitespace the record was stored with survives a round trip.
func parseStoredRData(rtype dnswire.RecordType, text string) (any, error) {
	if rtype == dnswire.TypeTXT {
		return dnswire.ParseRDataFields(rtype, []string{text})
	}
	return dnswire.ParseRDataFields(rtype, strings.Fields(text))
}
