package dnswire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Record is a single resource record. Data holds the decoded RDATA and its
// concrete type depends on Type: MXData for MX, SOAData for SOA, a
// presentation-form domain name (string) for CNAME/NS/PTR, a dotted-quad or
// colon-hex string for A/AAAA, a string for TXT, or raw []byte for any type
// Charon does not interpret (e.g. OPT).
type Record struct {
	Name  string
	Type  RecordType
	Class RecordClass
	TTL   uint32
	Data  any
}

// MXData is the RDATA of an MX record.
type MXData struct {
	Preference uint16
	Exchange   string
}

// SOAData is the RDATA of an SOA record, carried verbatim for passthrough
// (Charon does not synthesize SOA records, only stores and replays them).
type SOAData struct {
	MName   string
	RName   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// Marshal serializes the record to wire format.
func (r Record) Marshal() ([]byte, error) {
	name, err := EncodeName(r.Name)
	if err != nil {
		return nil, fmt.Errorf("marshal record %q: %w", r.Name, err)
	}
	rdata, err := marshalRData(r.Type, r.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal record %q rdata: %w", r.Name, err)
	}

	out := make([]byte, 0, len(name)+10+len(rdata))
	out = append(out, name...)
	out = binary.BigEndian.AppendUint16(out, uint16(r.Type))
	out = binary.BigEndian.AppendUint16(out, uint16(r.Class))
	out = binary.BigEndian.AppendUint32(out, r.TTL)
	out = binary.BigEndian.AppendUint16(out, uint16(len(rdata)))
	out = append(out, rdata...)
	return out, nil
}

func marshalRData(t RecordType, data any) ([]byte, error) {
	switch t {
	case TypeA:
		ip, ok := data.(string)
		if !ok {
			return nil, fmt.Errorf("%w: A rdata must be a dotted-quad string", ErrWireFormat)
		}
		return ParseIPv4(ip)
	case TypeAAAA:
		ip, ok := data.(string)
		if !ok {
			return nil, fmt.Errorf("%w: AAAA rdata must be an IPv6 string", ErrWireFormat)
		}
		return ParseIPv6(ip)
	case TypeCNAME, TypeNS, TypePTR:
		name, ok := data.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %v rdata must be a domain name string", ErrWireFormat, t)
		}
		return EncodeName(name)
	case TypeMX:
		mx, ok := data.(MXData)
		if !ok {
			return nil, fmt.Errorf("%w: MX rdata must be MXData", ErrWireFormat)
		}
		exchange, err := EncodeName(mx.Exchange)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 0, 2+len(exchange))
		out = binary.BigEndian.AppendUint16(out, mx.Preference)
		out = append(out, exchange...)
		return out, nil
	case TypeSOA:
		soa, ok := data.(SOAData)
		if !ok {
			return nil, fmt.Errorf("%w: SOA rdata must be SOAData", ErrWireFormat)
		}
		return marshalSOA(soa)
	case TypeTXT:
		text, ok := data.(string)
		if !ok {
			return nil, fmt.Errorf("%w: TXT rdata must be a string", ErrWireFormat)
		}
		return marshalTXT(text), nil
	default:
		raw, ok := data.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported rdata for type %v", ErrWireFormat, t)
		}
		return raw, nil
	}
}

func marshalSOA(soa SOAData) ([]byte, error) {
	mname, err := EncodeName(soa.MName)
	if err != nil {
		return nil, err
	}
	rname, err := EncodeName(soa.RName)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(mname)+len(rname)+20)
	out = append(out, mname...)
	out = append(out, rname...)
	out = binary.BigEndian.AppendUint32(out, soa.Serial)
	out = binary.BigEndian.AppendUint32(out, soa.Refresh)
	out = binary.BigEndian.AppendUint32(out, soa.Retry)
	out = binary.BigEndian.AppendUint32(out, soa.Expire)
	out = binary.BigEndian.AppendUint32(out, soa.Minimum)
	return out, nil
}

// marshalTXT splits text into <=255-byte chunks, each length-prefixed, as
// RFC 1035 §3.3.14 requires for character-strings.
func marshalTXT(text string) []byte {
	out := make([]byte, 0, len(text)+len(text)/255+1)
	for len(text) > 0 {
		chunk := text
		if len(chunk) > 255 {
			chunk = chunk[:255]
		}
		out = append(out, byte(len(chunk)))
		out = append(out, chunk...)
		text = text[len(chunk):]
	}
	if len(out) == 0 {
		out = append(out, 0)
	}
	return out
}

// ParseRecord reads a Record from msg at *off, advancing *off past it.
func ParseRecord(msg []byte, off *int) (Record, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return Record{}, fmt.Errorf("parse record name: %w", err)
	}
	if *off+10 > len(msg) {
		return Record{}, fmt.Errorf("%w: truncated record header", ErrWireFormat)
	}

	rtype := RecordType(binary.BigEndian.Uint16(msg[*off : *off+2]))
	class := RecordClass(binary.BigEndian.Uint16(msg[*off+2 : *off+4]))
	ttl := binary.BigEndian.Uint32(msg[*off+4 : *off+8])
	rdlen := int(binary.BigEndian.Uint16(msg[*off+8 : *off+10]))
	*off += 10

	if *off+rdlen > len(msg) {
		return Record{}, fmt.Errorf("%w: truncated rdata for %q", ErrWireFormat, name)
	}
	rdataEnd := *off + rdlen

	data, err := parseRData(msg, off, rdataEnd, rtype)
	if err != nil {
		return Record{}, fmt.Errorf("parse record %q rdata: %w", name, err)
	}
	*off = rdataEnd

	return Record{
		Name:  NormalizeName(name),
		Type:  rtype,
		Class: class,
		TTL:   ttl,
		Data:  data,
	}, nil
}

func parseRData(msg []byte, off *int, rdataEnd int, rtype RecordType) (any, error) {
	switch rtype {
	case TypeA:
		if rdataEnd-*off != 4 {
			return nil, fmt.Errorf("%w: A rdata must be 4 bytes", ErrWireFormat)
		}
		ip := net.IP(msg[*off:rdataEnd])
		return ip.String(), nil
	case TypeAAAA:
		if rdataEnd-*off != 16 {
			return nil, fmt.Errorf("%w: AAAA rdata must be 16 bytes", ErrWireFormat)
		}
		ip := net.IP(msg[*off:rdataEnd])
		return ip.String(), nil
	case TypeCNAME, TypeNS, TypePTR:
		name, err := DecodeName(msg, off)
		if err != nil {
			return nil, err
		}
		return NormalizeName(name), nil
	case TypeMX:
		if *off+2 > rdataEnd {
			return nil, fmt.Errorf("%w: truncated MX preference", ErrWireFormat)
		}
		pref := binary.BigEndian.Uint16(msg[*off : *off+2])
		*off += 2
		exchange, err := DecodeName(msg, off)
		if err != nil {
			return nil, err
		}
		return MXData{Preference: pref, Exchange: NormalizeName(exchange)}, nil
	case TypeSOA:
		return parseSOA(msg, off)
	case TypeTXT:
		return parseTXT(msg, off, rdataEnd)
	default:
		raw := make([]byte, rdataEnd-*off)
		copy(raw, msg[*off:rdataEnd])
		return raw, nil
	}
}

func parseSOA(msg []byte, off *int) (SOAData, error) {
	mname, err := DecodeName(msg, off)
	if err != nil {
		return SOAData{}, err
	}
	rname, err := DecodeName(msg, off)
	if err != nil {
		return SOAData{}, err
	}
	if *off+20 > len(msg) {
		return SOAData{}, fmt.Errorf("%w: truncated SOA fixed fields", ErrWireFormat)
	}
	soa := SOAData{
		MName:   NormalizeName(mname),
		RName:   NormalizeName(rname),
		Serial:  binary.BigEndian.Uint32(msg[*off : *off+4]),
		Refresh: binary.BigEndian.Uint32(msg[*off+4 : *off+8]),
		Retry:   binary.BigEndian.Uint32(msg[*off+8 : *off+12]),
		Expire:  binary.BigEndian.Uint32(msg[*off+12 : *off+16]),
		Minimum: binary.BigEndian.Uint32(msg[*off+16 : *off+20]),
	}
	*off += 20
	return soa, nil
}

func parseTXT(msg []byte, off *int, rdataEnd int) (string, error) {
	var out []byte
	for *off < rdataEnd {
		length := int(msg[*off])
		*off++
		if *off+length > rdataEnd {
			return "", fmt.Errorf("%w: truncated TXT chunk", ErrWireFormat)
		}
		out = append(out, msg[*off:*off+length]...)
		*off += length
	}
	return string(out), nil
}
