package dnswire

import "fmt"

// Bounds on an incoming query, enforced before the full packet is decoded.
// These exist to keep a single malformed or hostile datagram from forcing
// unbounded allocation in the engine's event loop. ParseRequestBounded
// checks MaxIncomingMessageSize and MaxRRPerSection; it does not consult
// MaxQuestions, since it requires exactly one question.
const (
	MaxIncomingMessageSize = 4096
	MaxQuestions           = 4
	MaxRRPerSection        = 100
)

// MaxUDPResponseSize is the largest response Charon will send over UDP
// without setting TC (spec.md §4.1 RCODE/truncation policy).
const MaxUDPResponseSize = 512

// ParseRequestBounded decodes an incoming query, rejecting messages that are
// too large, are themselves responses, use an opcode other than standard
// query, or carry more than one question.
func ParseRequestBounded(msg []byte) (Packet, error) {
	if len(msg) > MaxIncomingMessageSize {
		return Packet{}, fmt.Errorf("%w: message too large (%d > %d)", ErrWireFormat, len(msg), MaxIncomingMessageSize)
	}

	off := 0
	h, err := ParseHeader(msg, &off)
	if err != nil {
		return Packet{}, err
	}
	if IsResponse(h.Flags) {
		return Packet{}, fmt.Errorf("%w: query has QR set", ErrWireFormat)
	}
	if Opcode(h.Flags) != 0 {
		return Packet{}, fmt.Errorf("%w: unsupported opcode %d", ErrWireFormat, Opcode(h.Flags))
	}
	if h.QDCount != 1 {
		return Packet{}, fmt.Errorf("%w: expected exactly one question, got %d", ErrWireFormat, h.QDCount)
	}
	if err := validateSectionCounts(h); err != nil {
		return Packet{}, err
	}

	return ParsePacket(msg)
}

func validateSectionCounts(h Header) error {
	for name, count := range map[string]uint16{
		"answer":     h.ANCount,
		"authority":  h.NSCount,
		"additional": h.ARCount,
	} {
		if int(count) > MaxRRPerSection {
			return fmt.Errorf("%w: %s section too large (%d > %d)", ErrWireFormat, name, count, MaxRRPerSection)
		}
	}
	return nil
}

// BuildErrorResponse constructs a response to req carrying rcode and no
// records, preserving the query's ID, question and RD bit as spec.md §4.5
// requires of failure replies.
func BuildErrorResponse(req Packet, rcode RCode) Packet {
	flags := QRFlag | (req.Header.Flags & RDFlag) | RAFlag | uint16(rcode)
	return Packet{
		Header: Header{
			ID:      req.Header.ID,
			Flags:   flags,
			QDCount: uint16(len(req.Questions)),
		},
		Questions: req.Questions,
	}
}
