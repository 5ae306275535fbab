package password

import "testing"

func TestHashVerify_RoundTrip(t *testing.T) {
	h := NewHasher(4) // min cost keeps the test fast

	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatalf("hash equals plaintext")
	}
	if !h.Verify("correct horse battery staple", hash) {
		t.Fatalf("expected password to verify")
	}
	if h.Verify("wrong password", hash) {
		t.Fatalf("wrong password verified")
	}
}

func TestVerify_MalformedHash(t *testing.T) {
	h := NewHasher(4)

	for _, hash := range []string{"", "not-a-bcrypt-hash", "$2a$garbage"} {
		if h.Verify("anything", hash) {
			t.Fatalf("malformed hash %q verified", hash)
		}
	}
}

func TestNewHasher_CostFallback(t *testing.T) {
	if h := NewHasher(0); h.cost != DefaultCost {
		t.Fatalf("expected fallback cost %d, got %d", DefaultCost, h.cost)
	}
	if h := NewHasher(99); h.cost != DefaultCost {
		t.Fatalf("expected fallback cost %d, got %d", DefaultCost, h.cost)
	}
}

func TestStrength(t *testing.T) {
	cases := []struct {
		password string
		want     int
	}{
		{"", 0},
		{"abc", 1},                 // lowercase only
		{"abcdefgh", 2},            // length>=8 + lowercase
		{"Abcdefgh", 3},            // + uppercase
		{"Abcdefg1", 4},            // + digit
		{"Abcdef1!", 5},            // + symbol, capped
		{"Abcdefghijk1!", 5},       // all six criteria, still capped at 5
		{"abcdefghijkl", 3},        // two length points + lowercase
		{"ABCDEF123456", 4},        // lengths + upper + digit
		{"p@ssW0rd", 5},
	}

	for _, tc := range cases {
		if got := Strength(tc.password); got != tc.want {
			t.Errorf("Strength(%q) = %d, want %d", tc.password, got, tc.want)
		}
	}
}
