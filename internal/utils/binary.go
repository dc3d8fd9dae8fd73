package utils

import (
	"fmt"
	"os"
	"unicode/utf8"
)

// sniffLength defines the maximum number of bytes inspected when detecting binary content.
const sniffLength = 8000

const errorReadTextFileFormat = "reading %s: %w"

// IsBinary reports whether the provided byte slice appears to contain binary data.
// Only the first sniffLength bytes are inspected.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	sample := data
	if len(sample) > sniffLength {
		sample = sample[:sniffLength]
		for trim := 0; trim < utf8.UTFMax && len(sample) > 0 && !utf8.Valid(sample); trim++ {
			sample = sample[:len(sample)-1]
		}
	}
	if !utf8.Valid(sample) {
		return true
	}
	for _, byteValue := range sample {
		if byteValue == 0 {
			return true
		}
	}
	return false
}

// ReadTextFile reads the file at path. The boolean result is false when the
// file content looks binary, in which case the returned text is empty.
//
// #nosec G304
func ReadTextFile(path string) (string, bool, error) {
	fileData, readError := os.ReadFile(path)
	if readError != nil {
		return "", false, fmt.Errorf(errorReadTextFileFormat, path, readError)
	}
	if IsBinary(fileData) || !utf8.Valid(fileData) {
		return "", false, nil
	}
	return string(fileData), true, nil
}
