package ids

import (
	"testing"
	"time"
)

func TestNewLength(t *testing.T) {
	id := New()
	if len(id) != 26 {
		t.Fatalf("expected 26-character id, got %d (%q)", len(id), id)
	}
}

func TestMonotonicAcrossTime(t *testing.T) {
	t1 := time.Now()
	t2 := t1.Add(5 * time.Second)

	id1 := NewAt(t1)
	id2 := NewAt(t2)

	if !(id1 < id2) {
		t.Fatalf("expected id1 < id2 lexicographically, got %q >= %q", id1, id2)
	}
}

func TestContentHash(t *testing.T) {
	h1 := ContentHash("hello world")
	h2 := ContentHash("hello world")
	h3 := ContentHash("hello World")

	if h1 != h2 {
		t.Fatalf("expected identical hashes for identical content")
	}
	if h1 == h3 {
		t.Fatalf("expected different hashes for different content")
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64-char hex hash, got %d", len(h1))
	}
}
