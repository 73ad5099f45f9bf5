package store

import (
	"fmt"
	"time"

	"github.com/jroosing/charon/internal/dnswire"
	"github.com/jroosing/charon/internal/helpers"
)

// CachedRecord pairs a forwarded-answer Record with its remaining TTL at
// the moment of lookup (spec.md §3, CacheEntry.remaining).
type CachedRecord struct {
	Record       dnswire.Record
	RemainingTTL uint32
}

// CacheRecord inserts a forwarded-answer record with inserted_at = now. The
// name is stored exactly as given (typically the owner name an upstream
// returned); name_norm carries the lowercased form used for case-insensitive
// matching, so a later lookup under a different casing still returns the
// name as the upstream sent it (spec.md §3 invariant 2).
func (s *Store) CacheRecord(rtype dnswire.RecordType, name, rdataText string, ttl uint32) error {
	_, err := s.db.Exec(
		`INSERT INTO cache_entries (name, name_norm, type, rdata_text, ttl, inserted_at) VALUES (?, ?, ?, ?, ?, ?)`,
		name, dnswire.NormalizeName(name), int(rtype), rdataText, ttl, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache record: %w", err)
	}
	return nil
}

// LookupCache returns every live cache entry matching (name, type), matched
// case-insensitively via name_norm, with remaining_ttl computed from the
// time elapsed since insertion. Expired entries (remaining <= 0) are never
// returned even if not yet evicted. Each returned record carries the name
// as originally cached, not the lookup's casing.
func (s *Store) LookupCache(name string, rtype dnswire.RecordType) ([]CachedRecord, error) {
	rows, err := s.db.Query(
		`SELECT name, rdata_text, ttl, inserted_at FROM cache_entries WHERE name_norm = ? AND type = ?`,
		dnswire.NormalizeName(name), int(rtype),
	)
	if err != nil {
		return nil, fmt.Errorf("lookup cache: %w", err)
	}
	defer rows.Close()

	now := time.Now().Unix()
	var out []CachedRecord
	for rows.Next() {
		var storedName, rdataText string
		var ttl uint32
		var insertedAt int64
		if err := rows.Scan(&storedName, &rdataText, &ttl, &insertedAt); err != nil {
			return nil, fmt.Errorf("lookup cache: %w", err)
		}

		remaining := int64(ttl) - (now - insertedAt)
		if remaining <= 0 {
			continue
		}

		data, err := parseStoredRData(rtype, rdataText)
		if err != nil {
			continue
		}
		out = append(out, CachedRecord{
			Record:       dnswire.Record{Name: storedName, Type: rtype, Class: dnswire.ClassIN, TTL: uint32(remaining), Data: data},
			RemainingTTL: helpers.ClampInt64ToUint32(remaining),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup cache: %w", err)
	}
	return out, nil
}

// FlushCache deletes all cache entries.
func (s *Store) FlushCache() error {
	if _, err := s.db.Exec(`DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("flush cache: %w", err)
	}
	return nil
}

// EvictExpired deletes cache entries whose remaining TTL has reached zero
// (inserted_at + ttl <= now), the same entries LookupCache treats as expired.
func (s *Store) EvictExpired() error {
	now := time.Now().Unix()
	if _, err := s.db.Exec(`DELETE FROM cache_entries WHERE inserted_at + ttl <= ?`, now); err != nil {
		return fmt.Errorf("evict expired: %w", err)
	}
	return nil
}

// CacheCount returns the number of cache entries, live and expired alike,
// matching spec.md §4.2's contract for cache_count.
func (s *Store) CacheCount() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return count, nil
}
