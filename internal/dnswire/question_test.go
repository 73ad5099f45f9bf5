package dnswire

import "testing"

func TestQuestionMarshalParseRoundTrip(t *testing.T) {
	q := Question{Name: "Example.com", Type: TypeA, Class: ClassIN}
	b, err := q.Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	off := 0
	got, err := ParseQuestion(b, &off)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got.Name != "example.com" {
		t.Fatalf("got name %q", got.Name)
	}
	if got.Type != TypeA || got.Class != ClassIN {
		t.Fatalf("got %+v", got)
	}
	if off != len(b) {
		t.Fatalf("off=%d want %d", off, len(b))
	}
}

func TestParseQuestion_Truncated(t *testing.T) {
	b := []byte{0} // root name, no type/class
	off := 0
	if _, err := ParseQuestion(b, &off); err == nil {
		t.Fatal("expected error")
	}
}
