package transcript

import "testing"

func TestHash_DeterministicAndDistinct(t *testing.T) {
	a := Hash("User: Hi, I'm Asha.")
	b := Hash("User: Hi, I'm Asha.")
	if a != b {
		t.Fatalf("same text produced different hashes: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if Hash("different") == a {
		t.Fatalf("distinct texts collided")
	}
}

func TestParseTurns(t *testing.T) {
	text := "AI: Hello, how can I help?\nUser: I'm looking for a Series A intro.\nnoise line\nAI: Got it."
	msgs := ParseTurns(text)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(msgs))
	}
	if msgs[0].Role != RoleBot || msgs[0].Message != "Hello, how can I help?" {
		t.Fatalf("unexpected first turn: %+v", msgs[0])
	}
	if msgs[1].Role != RoleUser || msgs[1].Message != "I'm looking for a Series A intro." {
		t.Fatalf("unexpected second turn: %+v", msgs[1])
	}
	if msgs[2].Role != RoleBot {
		t.Fatalf("unexpected third turn: %+v", msgs[2])
	}
}

func TestParseTurns_EmptyAndUnprefixed(t *testing.T) {
	if got := ParseTurns(""); len(got) != 0 {
		t.Fatalf("expected no turns, got %d", len(got))
	}
	if got := ParseTurns("free text without tags"); len(got) != 0 {
		t.Fatalf("expected no turns, got %d", len(got))
	}
}
