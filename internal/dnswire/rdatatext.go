package dnswire

import (
	"fmt"
	"strconv"
	"strings"
)

// RDataText renders a Record's Data back to the presentation-form text the
// store persists rdata as (spec.md §9 design notes: "textual rdata in
// storage"). It is the inverse of ParseRDataFields.
func RDataText(rtype RecordType, data any) (string, error) {
	switch rtype {
	case TypeA, TypeAAAA, TypeCNAME, TypeNS, TypePTR, TypeTXT:
		s, ok := data.(string)
		if !ok {
			return "", fmt.Errorf("%w: rdata for type %v must be a string", ErrWireFormat, rtype)
		}
		return s, nil
	case TypeMX:
		mx, ok := data.(MXData)
		if !ok {
			return "", fmt.Errorf("%w: MX rdata must be MXData", ErrWireFormat)
		}
		return fmt.Sprintf("%d %s", mx.Preference, mx.Exchange), nil
	case TypeSOA:
		soa, ok := data.(SOAData)
		if !ok {
			return "", fmt.Errorf("%w: SOA rdata must be SOAData", ErrWireFormat)
		}
		return fmt.Sprintf("%s %s %d %d %d %d %d",
			soa.MName, soa.RName, soa.Serial, soa.Refresh, soa.Retry, soa.Expire, soa.Minimum), nil
	default:
		return "", fmt.Errorf("%w: type %v has no text rdata representation", ErrWireFormat, rtype)
	}
}

// FixedRDataFieldCount reports the exact number of rdata fields rtype's
// presentation form takes, and whether that count is fixed at all. TXT (and
// any other variable-arity type) reports ok=false: its field count can't be
// used to tell rdata apart from a trailing optional TTL.
func FixedRDataFieldCount(rtype RecordType) (int, bool) {
	switch rtype {
	case TypeA, TypeAAAA, TypeCNAME, TypeNS, TypePTR:
		return 1, true
	case TypeMX:
		return 2, true
	case TypeSOA:
		return 7, true
	default:
		return 0, false
	}
}

// SplitTrailingTTL separates an optional trailing TTL field from rdata
// fields, for callers (zone files, the `add` control command) that accept
// `RDATA... [TTL]` on one line. For fixed-arity types it strips the last
// field as a TTL only when there's exactly one field more than the type
// requires, so a SOA line with its 7 required fields and no TTL keeps its
// MINIMUM field intact rather than having it mistaken for a TTL. For
// variable-arity types (TXT) it falls back to stripping a trailing numeric
// token whenever more than one field is present.
func SplitTrailingTTL(rtype RecordType, fields []string, defaultTTL uint32) ([]string, uint32) {
	ttl := defaultTTL
	want, fixed := FixedRDataFieldCount(rtype)
	if fixed {
		if len(fields) != want+1 {
			return fields, ttl
		}
	} else if len(fields) <= 1 {
		return fields, ttl
	}
	if n, err := strconv.ParseUint(fields[len(fields)-1], 10, 32); err == nil {
		ttl = uint32(n)
		fields = fields[:len(fields)-1]
	}
	return fields, ttl
}

// ParseRDataFields parses whitespace-separated rdata fields (as read from
// the store, a zone file line, or a control-plane `add` command) into the
// Data value appropriate for rtype. It does not validate A/AAAA literals
// beyond presence; marshaling rejects bad addresses later.
func ParseRDataFields(rtype RecordType, fields []string) (any, error) {
	switch rtype {
	case TypeA, TypeAAAA, TypeCNAME, TypeNS, TypePTR:
		if len(fields) != 1 {
			return nil, fmt.Errorf("%w: %v rdata takes exactly one field", ErrWireFormat, rtype)
		}
		if rtype == TypeCNAME || rtype == TypeNS || rtype == TypePTR {
			return NormalizeName(fields[0]), nil
		}
		return fields[0], nil
	case TypeTXT:
		return strings.Join(fields, " "), nil
	case TypeMX:
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: MX rdata must be: <preference> <exchange>", ErrWireFormat)
		}
		pref, err := strconv.ParseUint(fields[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: MX preference must be 0..65535", ErrWireFormat)
		}
		return MXData{Preference: uint16(pref), Exchange: NormalizeName(fields[1])}, nil
	case TypeSOA:
		if len(fields) != 7 {
			return nil, fmt.Errorf("%w: SOA rdata must be: MNAME RNAME SERIAL REFRESH RETRY EXPIRE MINIMUM", ErrWireFormat)
		}
		nums := make([]uint64, 5)
		for i, f := range fields[2:] {
			n, err := strconv.ParseUint(f, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid SOA numeric field %q", ErrWireFormat, f)
			}
			nums[i] = n
		}
		return SOAData{
			MName:   NormalizeName(fields[0]),
			RName:   NormalizeName(fields[1]),
			Serial:  uint32(nums[0]),
			Refresh: uint32(nums[1]),
			Retry:   uint32(nums[2]),
			Expire:  uint32(nums[3]),
			Minimum: uint32(nums[4]),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported record type %v", ErrWireFormat, rtype)
	}
}
