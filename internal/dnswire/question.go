package dnswire

import (
	"encoding/binary"
	"fmt"
)

// Question is a single entry in a message's question section.
type Question struct {
	Name  string
	Type  RecordType
	Class RecordClass
}

// Marshal serializes the question to wire format.
func (q Question) Marshal() ([]byte, error) {
	name, err := EncodeName(q.Name)
	if err != nil {
		return nil, fmt.Errorf("marshal question: %w", err)
	}
	out := make([]byte, 0, len(name)+4)
	out = append(out, name...)
	out = binary.BigEndian.AppendUint16(out, uint16(q.Type))
	out = binary.BigEndian.AppendUint16(out, uint16(q.Class))
	return out, nil
}

// ParseQuestion reads a Question from msg at *off, advancing *off past it.
// The parsed name is normalized (lowercased, trailing dot stripped).
func ParseQuestion(msg []byte, off *int) (Question, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return Question{}, fmt.Errorf("parse question name: %w", err)
	}
	if *off+4 > len(msg) {
		return Question{}, fmt.Errorf("%w: truncated question (type/class)", ErrWireFormat)
	}
	q := Question{
		Name:  NormalizeName(name),
		Type:  RecordType(binary.BigEndian.Uint16(msg[*off : *off+2])),
		Class: RecordClass(binary.BigEndian.Uint16(msg[*off+2 : *off+4])),
	}
	*off += 4
	return q, nil
}
