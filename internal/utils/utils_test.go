package utils_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/temirov/repopack/internal/utils"
)

func TestParseByteSize(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expected      int
		expectInvalid bool
	}{
		{name: "kilobytes", input: "500kb", expected: 500 * 1024},
		{name: "megabytes", input: "2mb", expected: 2 * 1024 * 1024},
		{name: "fractional megabytes", input: "2.5MB", expected: int(2.5 * 1024 * 1024)},
		{name: "gigabytes", input: "1gb", expected: 1024 * 1024 * 1024},
		{name: "plain bytes", input: "4096", expected: 4096},
		{name: "bytes suffix", input: "10b", expected: 10},
		{name: "surrounding whitespace", input: "  1kb ", expected: 1024},
		{name: "empty", input: "", expectInvalid: true},
		{name: "zero", input: "0kb", expectInvalid: true},
		{name: "negative", input: "-1mb", expectInvalid: true},
		{name: "garbage", input: "lots", expectInvalid: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			parsed, parseError := utils.ParseByteSize(testCase.input)
			if testCase.expectInvalid {
				if !errors.Is(parseError, utils.ErrInvalidByteSize) {
					t.Fatalf("expected ErrInvalidByteSize for %q, got %v", testCase.input, parseError)
				}
				return
			}
			if parseError != nil {
				t.Fatalf("unexpected error for %q: %v", testCase.input, parseError)
			}
			if parsed != testCase.expected {
				t.Fatalf("expected %d, got %d", testCase.expected, parsed)
			}
		})
	}
}

func TestFormatFileSize(t *testing.T) {
	testCases := []struct {
		name     string
		bytes    int64
		expected string
	}{
		{name: "negative", bytes: -1, expected: "0b"},
		{name: "bytes", bytes: 512, expected: "512b"},
		{name: "one kilobyte", bytes: 1024, expected: "1kb"},
		{name: "fractional kilobyte", bytes: 1536, expected: "1.5kb"},
		{name: "ten megabytes", bytes: 10 * 1024 * 1024, expected: "10mb"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if result := utils.FormatFileSize(testCase.bytes); result != testCase.expected {
				t.Fatalf("expected %s, got %s", testCase.expected, result)
			}
		})
	}
}

func TestIsBinary(t *testing.T) {
	testCases := []struct {
		name     string
		data     []byte
		expected bool
	}{
		{name: "empty", data: nil, expected: false},
		{name: "ascii", data: []byte("package main\n"), expected: false},
		{name: "multibyte", data: []byte("héllo 世界"), expected: false},
		{name: "null byte", data: []byte{'a', 0, 'b'}, expected: true},
		{name: "invalid utf8", data: []byte{0xff, 0xfe, 0xfd}, expected: true},
		{name: "long text with rune cut at sniff boundary", data: []byte(strings.Repeat("a", 7999) + "世界"), expected: false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if result := utils.IsBinary(testCase.data); result != testCase.expected {
				t.Fatalf("expected %v, got %v", testCase.expected, result)
			}
		})
	}
}

func TestReadTextFile(t *testing.T) {
	rootDirectory := t.TempDir()
	textFilePath := filepath.Join(rootDirectory, "notes.txt")
	binaryFilePath := filepath.Join(rootDirectory, "image.bin")
	if writeError := os.WriteFile(textFilePath, []byte("hello"), 0o644); writeError != nil {
		t.Fatalf("write text file: %v", writeError)
	}
	if writeError := os.WriteFile(binaryFilePath, []byte{0x00, 0x01}, 0o644); writeError != nil {
		t.Fatalf("write binary file: %v", writeError)
	}

	content, isText, readError := utils.ReadTextFile(textFilePath)
	if readError != nil || !isText || content != "hello" {
		t.Fatalf("unexpected text result: %q %v %v", content, isText, readError)
	}
	content, isText, readError = utils.ReadTextFile(binaryFilePath)
	if readError != nil || isText || content != "" {
		t.Fatalf("unexpected binary result: %q %v %v", content, isText, readError)
	}
	if _, _, readError = utils.ReadTextFile(filepath.Join(rootDirectory, "missing.txt")); readError == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestPathHelpers(t *testing.T) {
	if normalized := utils.NormalizeRelativePath(`./src\pkg\main.go`); normalized != "src/pkg/main.go" {
		t.Fatalf("unexpected normalized path %q", normalized)
	}
	segments := utils.SplitPathSegments("./a//b/c.txt")
	if !reflect.DeepEqual(segments, []string{"a", "b", "c.txt"}) {
		t.Fatalf("unexpected segments %v", segments)
	}
	deduplicated := utils.DeduplicatePatterns([]string{"*.log", "dist/", "*.log", "Dist/"})
	if !reflect.DeepEqual(deduplicated, []string{"*.log", "dist/", "Dist/"}) {
		t.Fatalf("unexpected deduplicated patterns %v", deduplicated)
	}
	rootDirectory := t.TempDir()
	if relative := utils.RelativePathOrSelf(filepath.Join(rootDirectory, "a", "b.txt"), rootDirectory); relative != "a/b.txt" {
		t.Fatalf("unexpected relative path %q", relative)
	}
	if relative := utils.RelativePathOrSelf(rootDirectory, rootDirectory); relative != "." {
		t.Fatalf("expected self path, got %q", relative)
	}
}
