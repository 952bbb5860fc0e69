package utils

import "testing"

func TestHashStringNormalizes(t *testing.T) {
	a := HashString("How do I update my payment method?")
	b := HashString("  how do i update my PAYMENT method?\n")
	if a != b {
		t.Fatalf("expected equal keys, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256 length 64, got %d", len(a))
	}
	if HashString("payment") == HashString("payments") {
		t.Fatal("distinct inputs must not collide")
	}
}
