// Package tokenizer counts tokens with OpenAI-compatible BPE encodings.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel        = "gpt-4o"
	defaultEncodingName = "o200k_base"

	errorInitializeEncodingFormat = "initialize tokenizer encoding %s: %w"
)

// ErrNilCounter is returned when counting with a nil Counter.
var ErrNilCounter = errors.New("nil tokenizer counter")

// Counter estimates token counts for text content. Implementations are safe
// for concurrent use.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

type encodingCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func (counter encodingCounter) Name() string {
	return counter.name
}

func (counter encodingCounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, ErrNilCounter
	}
	return len(counter.encoding.Encode(input, nil, nil)), nil
}

// NewCounter returns a Counter for model. Models unknown to tiktoken fall back
// to the o200k_base encoding.
func NewCounter(model string) (Counter, error) {
	normalizedModel := strings.ToLower(strings.TrimSpace(model))
	if normalizedModel == "" {
		normalizedModel = DefaultModel
	}
	if encoding, encodingError := tiktoken.EncodingForModel(normalizedModel); encodingError == nil && encoding != nil {
		return encodingCounter{encoding: encoding, name: normalizedModel}, nil
	}
	encoding, encodingError := tiktoken.GetEncoding(defaultEncodingName)
	if encodingError != nil {
		return nil, fmt.Errorf(errorInitializeEncodingFormat, defaultEncodingName, encodingError)
	}
	return encodingCounter{encoding: encoding, name: defaultEncodingName}, nil
}

// Registry reuses counters per model across runs of a long-lived process.
type Registry struct {
	mutex    sync.Mutex
	counters map[string]Counter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]Counter)}
}

// Counter returns the cached counter for model, creating it on first use.
func (registry *Registry) Counter(model string) (Counter, error) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	if counter, found := registry.counters[model]; found {
		return counter, nil
	}
	counter, counterError := NewCounter(model)
	if counterError != nil {
		return nil, counterError
	}
	registry.counters[model] = counter
	return counter, nil
}

// Count returns the number of tokens in content. A nil counter is an error.
func Count(counter Counter, content string) (int, error) {
	if counter == nil {
		return 0, ErrNilCounter
	}
	return counter.CountString(content)
}
