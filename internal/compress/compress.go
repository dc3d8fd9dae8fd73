// Package compress reduces source files to their structural outline:
// imports, type declarations and definition signatures.
package compress

import (
	"context"
)

const (
	// ChunkSeparator joins the extracted chunks of one file.
	ChunkSeparator = "\n⋮----\n"

	errorParseFormat = "parse %s: %w"
)

// Compressor extracts outlines from supported source files.
type Compressor struct{}

// New returns a Compressor.
func New() *Compressor {
	return &Compressor{}
}

// Supports reports whether filePath has a grammar available.
func (compressor *Compressor) Supports(filePath string) bool {
	return supportsPath(filePath)
}

// Compress returns the outline of content. Unsupported files and files with
// no extractable structure are returned unchanged.
func (compressor *Compressor) Compress(ctx context.Context, filePath string, content string) (string, error) {
	if !supportsPath(filePath) {
		return content, nil
	}
	return compressSource(ctx, filePath, content)
}
