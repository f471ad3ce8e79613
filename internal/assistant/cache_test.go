package assistant

import "testing"

func TestCache_PutKeepsFirstValue(t *testing.T) {
	c := NewCache[string, string]()
	if got := c.Put("k", "first"); got != "first" {
		t.Fatalf("unexpected stored value: %s", got)
	}
	if got := c.Put("k", "second"); got != "first" {
		t.Fatalf("expected existing value to win, got %s", got)
	}
	v, ok := c.Get("k")
	if !ok || v != "first" {
		t.Fatalf("unexpected get result: %q %v", v, ok)
	}
}

func TestCache_Reset(t *testing.T) {
	c := NewCache[string, int]()
	c.Put("a", 1)
	c.Put("b", 2)
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	c.Reset()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after reset, got %d", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after reset")
	}
}

func TestNewAnswerKey_SensitiveToTranscriptAndQuestion(t *testing.T) {
	base := NewAnswerKey("transcript one", "What was decided?")
	if base != NewAnswerKey("transcript one", "What was decided?") {
		t.Fatal("expected equal keys for equal inputs")
	}
	if base == NewAnswerKey("transcript two", "What was decided?") {
		t.Fatal("expected different keys for different transcripts")
	}
	if base == NewAnswerKey("transcript one", "What was decided? ") {
		t.Fatal("expected different keys for different question text")
	}
}

func TestContentHash(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := ContentHash([]byte("abc")); got != want {
		t.Fatalf("unexpected hash: %s", got)
	}
}
