package util

import "testing"

func TestContentHash(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		a := ContentHash([]byte("staged image bytes"))
		b := ContentHash([]byte("staged image bytes"))
		if a != b {
			t.Errorf("Expected equal hashes, got %s and %s", a, b)
		}
	})

	t.Run("Different content", func(t *testing.T) {
		a := ContentHash([]byte("one"))
		b := ContentHash([]byte("two"))
		if a == b {
			t.Error("Expected different hashes for different content")
		}
	})

	t.Run("Hex length", func(t *testing.T) {
		if got := ContentHash(nil); len(got) != 64 {
			t.Errorf("Expected 64 hex chars, got %d", len(got))
		}
	})

	t.Run("String helper", func(t *testing.T) {
		if ContentHashString("abc") != ContentHash([]byte("abc")) {
			t.Error("Expected string helper to match byte version")
		}
	})
}
