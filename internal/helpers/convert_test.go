package helpers

import "testing"

func TestClampInt(t *testing.T) {
	if got := ClampInt(5, 0, 10); got != 5 {
		t.Fatalf("got %d", got)
	}
	if got := ClampInt(-5, 0, 10); got != 0 {
		t.Fatalf("got %d", got)
	}
	if got := ClampInt(15, 0, 10); got != 10 {
		t.Fatalf("got %d", got)
	}
}

func TestClampIntToUint16(t *testing.T) {
	if got := ClampIntToUint16(-1); got != 0 {
		t.Fatalf("got %d", got)
	}
	if got := ClampIntToUint16(70000); got != 65535 {
		t.Fatalf("got %d", got)
	}
}

func TestClampInt64ToUint32(t *testing.T) {
	if got := ClampInt64ToUint32(-10); got != 0 {
		t.Fatalf("got %d", got)
	}
	if got := ClampInt64ToUint32(300); got != 300 {
		t.Fatalf("got %d", got)
	}
}
