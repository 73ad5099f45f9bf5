package dnswire

import "testing"

func buildQuery(t *testing.T, flags uint16, qdCount uint16) []byte {
	t.Helper()
	p := Packet{
		Header: Header{ID: 7, Flags: flags, QDCount: qdCount},
	}
	for i := uint16(0); i < qdCount; i++ {
		p.Questions = append(p.Questions, Question{Name: "example.com", Type: TypeA, Class: ClassIN})
	}
	b, err := p.Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	return b
}

func TestParseRequestBounded_Valid(t *testing.T) {
	b := buildQuery(t, RDFlag, 1)
	pkt, err := ParseRequestBounded(b)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(pkt.Questions) != 1 {
		t.Fatalf("got %d questions", len(pkt.Questions))
	}
}

func TestParseRequestBounded_RejectsResponse(t *testing.T) {
	b := buildQuery(t, QRFlag, 1)
	if _, err := ParseRequestBounded(b); err == nil {
		t.Fatal("expected error for QR set")
	}
}

func TestParseRequestBounded_RejectsMultipleQuestions(t *testing.T) {
	b := buildQuery(t, RDFlag, 2)
	if _, err := ParseRequestBounded(b); err == nil {
		t.Fatal("expected error for QDCount != 1")
	}
}

func TestParseRequestBounded_RejectsOversized(t *testing.T) {
	big := make([]byte, MaxIncomingMessageSize+1)
	if _, err := ParseRequestBounded(big); err == nil {
		t.Fatal("expected error for oversized message")
	}
}

func TestBuildErrorResponse(t *testing.T) {
	req := Packet{
		Header:    Header{ID: 99, Flags: RDFlag, QDCount: 1},
		Questions: []Question{{Name: "example.com", Type: TypeA, Class: ClassIN}},
	}
	resp := BuildErrorResponse(req, RCodeServFail)
	if resp.Header.ID != 99 {
		t.Fatalf("got ID %d", resp.Header.ID)
	}
	if !IsResponse(resp.Header.Flags) {
		t.Fatal("expected QR set")
	}
	if resp.Header.Flags&RDFlag == 0 {
		t.Fatal("expected RD preserved")
	}
	if RCodeFromFlags(resp.Header.Flags) != RCodeServFail {
		t.Fatalf("got rcode %v", RCodeFromFlags(resp.Header.Flags))
	}
	if len(resp.Questions) != 1 {
		t.Fatalf("got %d questions", len(resp.Questions))
	}
}
