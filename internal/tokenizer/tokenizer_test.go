package tokenizer_test

import (
	"errors"
	"testing"

	"github.com/temirov/repopack/internal/tokenizer"
)

type runeCounter struct{}

func (runeCounter) Name() string { return "runes" }

func (runeCounter) CountString(input string) (int, error) { return len([]rune(input)), nil }

func TestCount(t *testing.T) {
	tokens, countError := tokenizer.Count(runeCounter{}, "héllo")
	if countError != nil {
		t.Fatalf("Count error: %v", countError)
	}
	if tokens != 5 {
		t.Fatalf("expected 5 tokens, got %d", tokens)
	}
	if _, nilError := tokenizer.Count(nil, "x"); !errors.Is(nilError, tokenizer.ErrNilCounter) {
		t.Fatalf("expected ErrNilCounter, got %v", nilError)
	}
}

func TestNewCounterDefault(t *testing.T) {
	counter, counterError := tokenizer.NewCounter("")
	if counterError != nil {
		t.Fatalf("NewCounter error: %v", counterError)
	}
	if counter.Name() != tokenizer.DefaultModel {
		t.Fatalf("expected model %s, got %q", tokenizer.DefaultModel, counter.Name())
	}
	tokens, countError := counter.CountString("hello world")
	if countError != nil {
		t.Fatalf("CountString error: %v", countError)
	}
	if tokens <= 0 {
		t.Fatalf("expected positive token count, got %d", tokens)
	}
}

func TestRegistryReusesCounters(t *testing.T) {
	registry := tokenizer.NewRegistry()
	first, firstError := registry.Counter("gpt-4o")
	if firstError != nil {
		t.Fatalf("Counter error: %v", firstError)
	}
	second, secondError := registry.Counter("gpt-4o")
	if secondError != nil {
		t.Fatalf("Counter error: %v", secondError)
	}
	if first != second {
		t.Fatalf("expected the registry to return the cached counter")
	}
}
