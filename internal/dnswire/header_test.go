package dnswire

import "testing"

func TestHeaderMarshalParseRoundTrip(t *testing.T) {
	h := Header{ID: 0xABCD, Flags: QRFlag | RDFlag | RAFlag, QDCount: 1, ANCount: 2}
	b := h.Marshal()
	if len(b) != HeaderSize {
		t.Fatalf("len=%d want %d", len(b), HeaderSize)
	}

	off := 0
	got, err := ParseHeader(b, &off)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got != h {
		t.Fatalf("got %+v want %+v", got, h)
	}
	if off != HeaderSize {
		t.Fatalf("off=%d", off)
	}
}

func TestParseHeader_Truncated(t *testing.T) {
	off := 0
	if _, err := ParseHeader([]byte{1, 2, 3}, &off); err == nil {
		t.Fatal("expected error")
	}
}

func TestRCodeFromFlags(t *testing.T) {
	flags := QRFlag | uint16(RCodeServFail)
	if got := RCodeFromFlags(flags); got != RCodeServFail {
		t.Fatalf("got %v", got)
	}
}

func TestOpcode(t *testing.T) {
	flags := uint16(2) << 11
	if got := Opcode(flags); got != 2 {
		t.Fatalf("got %d", got)
	}
}
