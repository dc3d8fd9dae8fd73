// Package clipboard copies rendered output to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

const errorCopyFormat = "copy to clipboard: %w"

// ErrUnavailable is returned when the platform offers no clipboard utility.
var ErrUnavailable = errors.New("clipboard unavailable")

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// WriterFunc writes text to a clipboard.
type WriterFunc func(text string) error

// Service implements Copier using github.com/atotto/clipboard.
type Service struct {
	write     WriterFunc
	available func() bool
}

// NewService constructs a Service backed by the system clipboard.
func NewService() *Service {
	return &Service{
		write:     clipboard.WriteAll,
		available: func() bool { return !clipboard.Unsupported },
	}
}

// NewServiceWithWriter constructs a Service that sends text to write.
func NewServiceWithWriter(write WriterFunc) *Service {
	return &Service{write: write, available: func() bool { return true }}
}

// Copy writes text to the clipboard.
func (service *Service) Copy(text string) error {
	if !service.available() {
		return ErrUnavailable
	}
	if writeError := service.write(text); writeError != nil {
		return fmt.Errorf(errorCopyFormat, writeError)
	}
	return nil
}

var _ Copier = (*Service)(nil)
