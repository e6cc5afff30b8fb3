package core

import "testing"

func TestAppendMemoryBlockCreatesWhenMissing(t *testing.T) {
	e, _, _ := newTestEngine(t)
	res, err := e.AppendMemoryBlock("agent1", nil, "notes", "first line")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != BlockOK || res.Value != "first line" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestAppendMemoryBlockJoinsWithNewline(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.AppendMemoryBlock("agent1", nil, "notes", "first"); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	res, err := e.AppendMemoryBlock("agent1", nil, "notes", "second")
	if err != nil {
		t.Fatalf("append 2: %v", err)
	}
	if res.Value != "first\nsecond" {
		t.Fatalf("expected joined value, got %q", res.Value)
	}
}

func TestRecallMemoryBlockMissingIsNotError(t *testing.T) {
	e, _, _ := newTestEngine(t)
	res, err := e.RecallMemoryBlock("agent1", nil, "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != BlockNotFound {
		t.Fatalf("expected block_not_found, got %+v", res)
	}
}

func TestReplaceMemoryBlockRejectsEmptyOldText(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.AppendMemoryBlock("agent1", nil, "notes", "hello world"); err != nil {
		t.Fatalf("append: %v", err)
	}
	res, err := e.ReplaceMemoryBlock("agent1", nil, "notes", "", "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != BlockEmptyOldText {
		t.Fatalf("expected empty_old_text, got %+v", res)
	}
}

func TestReplaceMemoryBlockReportsTextNotFound(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.AppendMemoryBlock("agent1", nil, "notes", "hello world"); err != nil {
		t.Fatalf("append: %v", err)
	}
	res, err := e.ReplaceMemoryBlock("agent1", nil, "notes", "nope", "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != BlockTextNotFound {
		t.Fatalf("expected text_not_found, got %+v", res)
	}
}

func TestReplaceMemoryBlockReplacesAllOccurrences(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.AppendMemoryBlock("agent1", nil, "notes", "cat cat dog cat"); err != nil {
		t.Fatalf("append: %v", err)
	}
	res, err := e.ReplaceMemoryBlock("agent1", nil, "notes", "cat", "bird")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != BlockOK || res.Replacements != 3 || res.Value != "bird bird dog bird" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestReplaceMemoryBlockMissingBlock(t *testing.T) {
	e, _, _ := newTestEngine(t)
	res, err := e.ReplaceMemoryBlock("agent1", nil, "missing", "a", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != BlockNotFound {
		t.Fatalf("expected block_not_found, got %+v", res)
	}
}
