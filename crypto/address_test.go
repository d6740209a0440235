package crypto

import "testing"

func TestAddressRoundTrip(t *testing.T) {
	raw := make([]byte, 20)
	raw[19] = 0xAB
	addr, err := NewAddress(Prefix, raw)
	if err != nil {
		t.Fatalf("new address: %v", err)
	}
	encoded := addr.String()
	if encoded == "" {
		t.Fatalf("expected non-empty encoding")
	}
	decoded, err := DecodeAddress(encoded)
	if err != nil {
		t.Fatalf("decode address: %v", err)
	}
	if decoded.Key() != addr.Key() {
		t.Fatalf("round-trip mismatch: got %s want %s", decoded.Key(), addr.Key())
	}
}

func TestNewAddressRejectsWrongLength(t *testing.T) {
	if _, err := NewAddress(Prefix, []byte{1, 2, 3}); err != ErrInvalidAddressLength {
		t.Fatalf("expected ErrInvalidAddressLength, got %v", err)
	}
}

func TestIsZero(t *testing.T) {
	var addr Address
	if !addr.IsZero() {
		t.Fatalf("zero-value address should be zero")
	}
	raw := make([]byte, 20)
	raw[0] = 1
	nonZero := MustNewAddress(Prefix, raw)
	if nonZero.IsZero() {
		t.Fatalf("non-zero address reported as zero")
	}
}
