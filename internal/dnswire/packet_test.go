package dnswire

import "testing"

func TestPacketMarshalParseRoundTrip(t *testing.T) {
	p := Packet{
		Header:    Header{ID: 42, Flags: QRFlag | RAFlag, QDCount: 1, ANCount: 1},
		Questions: []Question{{Name: "example.com", Type: TypeA, Class: ClassIN}},
		Answers:   []Record{{Name: "example.com", Type: TypeA, Class: ClassIN, TTL: 60, Data: "192.0.2.1"}},
	}
	b, err := p.Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	got, err := ParsePacket(b)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got.Header.ID != 42 || len(got.Questions) != 1 || len(got.Answers) != 1 {
		t.Fatalf("got %+v", got)
	}
	if got.Answers[0].Data.(string) != "192.0.2.1" {
		t.Fatalf("got %v", got.Answers[0].Data)
	}
}

func TestParsePacket_NoQuestions(t *testing.T) {
	p := Packet{Header: Header{ID: 1}}
	b, err := p.Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	got, err := ParsePacket(b)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(got.Questions) != 0 {
		t.Fatalf("got %d questions", len(got.Questions))
	}
}
