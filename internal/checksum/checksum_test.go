package checksum

import "testing"

func TestSum(t *testing.T) {
	// Known SHA-256 of the empty input.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %q", got)
	}
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Error("different inputs must not collide")
	}
}

func TestShort(t *testing.T) {
	s := Short([]byte("design"))
	if len(s) != 12 {
		t.Errorf("len = %d, want 12", len(s))
	}
	if Sum([]byte("design"))[:12] != s {
		t.Error("Short must be a prefix of Sum")
	}
}
