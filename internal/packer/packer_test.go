package packer_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/temirov/repopack/internal/config"
	"github.com/temirov/repopack/internal/output"
	"github.com/temirov/repopack/internal/packer"
)

const (
	sourceFileName   = "main.go"
	sourceContent    = "package main\n\nfunc main() {}\n"
	readmeFileName   = "README.md"
	readmeContent    = "# Project\n"
	ignoredDirectory = "node_modules"
	logFileName      = "debug.log"
)

func writeFixture(testingHandle *testing.T, root string, relativePath string, content string) {
	testingHandle.Helper()
	absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
	if mkdirError := os.MkdirAll(filepath.Dir(absolutePath), 0o755); mkdirError != nil {
		testingHandle.Fatalf("mkdir %s: %v", absolutePath, mkdirError)
	}
	if writeError := os.WriteFile(absolutePath, []byte(content), 0o644); writeError != nil {
		testingHandle.Fatalf("write %s: %v", absolutePath, writeError)
	}
}

func newFixture(testingHandle *testing.T) string {
	testingHandle.Helper()
	root := testingHandle.TempDir()
	writeFixture(testingHandle, root, sourceFileName, sourceContent)
	writeFixture(testingHandle, root, readmeFileName, readmeContent)
	writeFixture(testingHandle, root, "internal/app/app.go", "package app\n")
	writeFixture(testingHandle, root, ignoredDirectory+"/lib/index.js", "module.exports = 1\n")
	writeFixture(testingHandle, root, logFileName, "trace\n")
	return root
}

func testConfiguration(style string) config.ApplicationConfiguration {
	configuration := config.DefaultConfiguration()
	configuration.Output.Style = style
	configuration.Output.Git.SortByChanges = config.BoolPointer(false)
	configuration.Tokens.Enabled = config.BoolPointer(false)
	return configuration
}

func newSession(testingHandle *testing.T) *packer.Session {
	testingHandle.Helper()
	session, sessionError := packer.NewSession(nil)
	if sessionError != nil {
		testingHandle.Fatalf("new session: %v", sessionError)
	}
	return session
}

func TestPackAppliesDefaultAndCommandLinePatterns(testingHandle *testing.T) {
	root := newFixture(testingHandle)
	session := newSession(testingHandle)

	result, packError := session.Pack(context.Background(), packer.Request{
		Directories:         []string{root},
		Configuration:       testConfiguration(output.StylePlain),
		CommandLinePatterns: []string{"*.log"},
	})
	if packError != nil {
		testingHandle.Fatalf("pack: %v", packError)
	}
	expectedPaths := map[string]bool{sourceFileName: true, readmeFileName: true, "internal/app/app.go": true}
	if len(result.Files) != len(expectedPaths) {
		testingHandle.Fatalf("expected %d files, got %+v", len(expectedPaths), result.Files)
	}
	for _, file := range result.Files {
		if !expectedPaths[file.Path] {
			testingHandle.Fatalf("unexpected file %s", file.Path)
		}
	}
	if strings.Contains(result.Output, ignoredDirectory) || strings.Contains(result.Output, logFileName) {
		testingHandle.Fatalf("ignored entries leaked into output:\n%s", result.Output)
	}
	if !strings.Contains(result.Output, sourceContent) {
		testingHandle.Fatalf("expected file content in output")
	}
	if result.Totals.Files != len(expectedPaths) {
		testingHandle.Fatalf("expected totals for %d files, got %+v", len(expectedPaths), result.Totals)
	}
	if result.Split || len(result.Parts) != 0 {
		testingHandle.Fatalf("expected a single output")
	}
	if result.TokenTree != "" {
		testingHandle.Fatalf("token tree should be empty when disabled")
	}
}

func TestPackFullDirectoryStructureListsIgnoredEntries(testingHandle *testing.T) {
	root := newFixture(testingHandle)
	session := newSession(testingHandle)
	configuration := testConfiguration(output.StyleMarkdown)
	configuration.Output.IncludeFullDirectoryStructure = config.BoolPointer(true)

	result, packError := session.Pack(context.Background(), packer.Request{Directories: []string{root}, Configuration: configuration})
	if packError != nil {
		testingHandle.Fatalf("pack: %v", packError)
	}
	if !strings.Contains(result.Output, ignoredDirectory+"/") {
		testingHandle.Fatalf("full structure should list %s:\n%s", ignoredDirectory, result.Output)
	}
	for _, file := range result.Files {
		if strings.HasPrefix(file.Path, ignoredDirectory) {
			testingHandle.Fatalf("ignored file %s must not be packed", file.Path)
		}
	}
}

func TestPackRejectsInvalidRequests(testingHandle *testing.T) {
	root := newFixture(testingHandle)
	testCases := []struct {
		name          string
		directories   []string
		style         string
		splitOutput   string
		expectedError error
	}{
		{name: "unknown style", directories: []string{root}, style: "yaml", expectedError: output.ErrUnsupportedStyle},
		{name: "missing directory", directories: []string{filepath.Join(root, "missing")}, style: output.StyleXML, expectedError: packer.ErrInvalidDirectory},
		{name: "file as directory", directories: []string{filepath.Join(root, sourceFileName)}, style: output.StyleXML, expectedError: packer.ErrInvalidDirectory},
		{name: "bad split size", directories: []string{root}, style: output.StyleXML, splitOutput: "lots"},
	}
	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(subTest *testing.T) {
			configuration := testConfiguration(testCase.style)
			configuration.Output.SplitOutput = testCase.splitOutput
			_, packError := newSession(subTest).Pack(context.Background(), packer.Request{Directories: testCase.directories, Configuration: configuration})
			if packError == nil {
				subTest.Fatalf("expected an error")
			}
			if testCase.expectedError != nil && !errors.Is(packError, testCase.expectedError) {
				subTest.Fatalf("expected %v, got %v", testCase.expectedError, packError)
			}
		})
	}
}

func TestPackSplitsOutput(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	for _, directoryName := range []string{"alpha", "beta", "gamma"} {
		writeFixture(testingHandle, root, directoryName+"/file.txt", strings.Repeat(directoryName, 200))
	}
	configuration := testConfiguration(output.StylePlain)
	configuration.Output.SplitOutput = "2kb"
	configuration.Output.FileSummary = config.BoolPointer(false)
	configuration.Output.FilePath = filepath.Join(testingHandle.TempDir(), "bundle.txt")

	result, packError := newSession(testingHandle).Pack(context.Background(), packer.Request{Directories: []string{root}, Configuration: configuration})
	if packError != nil {
		testingHandle.Fatalf("pack: %v", packError)
	}
	if !result.Split || len(result.Parts) < 2 {
		testingHandle.Fatalf("expected multiple parts, got %d", len(result.Parts))
	}
	for partIndex, part := range result.Parts {
		if part.ByteLength > 2048 {
			testingHandle.Fatalf("part %d exceeds limit: %d", partIndex+1, part.ByteLength)
		}
		if !strings.HasSuffix(part.Destination, ".txt") || !strings.Contains(part.Destination, "bundle.") {
			testingHandle.Fatalf("unexpected destination %s", part.Destination)
		}
	}
	if result.Output != "" {
		testingHandle.Fatalf("split result should not carry single output")
	}
}

func TestPackMultipleDirectoriesPrefixesPaths(testingHandle *testing.T) {
	firstRoot := filepath.Join(testingHandle.TempDir(), "service")
	secondRoot := filepath.Join(testingHandle.TempDir(), "client")
	writeFixture(testingHandle, firstRoot, sourceFileName, sourceContent)
	writeFixture(testingHandle, secondRoot, readmeFileName, readmeContent)

	result, packError := newSession(testingHandle).Pack(context.Background(), packer.Request{
		Directories:   []string{firstRoot, secondRoot},
		Configuration: testConfiguration(output.StyleJSON),
	})
	if packError != nil {
		testingHandle.Fatalf("pack: %v", packError)
	}
	expectedPaths := []string{"service/" + sourceFileName, "client/" + readmeFileName}
	if len(result.Files) != len(expectedPaths) {
		testingHandle.Fatalf("expected %d files, got %+v", len(expectedPaths), result.Files)
	}
	for fileIndex, expectedPath := range expectedPaths {
		if result.Files[fileIndex].Path != expectedPath {
			testingHandle.Fatalf("file %d: expected %s, got %s", fileIndex, expectedPath, result.Files[fileIndex].Path)
		}
	}
}

func TestPackMultipleDirectoriesWithSameBaseName(testingHandle *testing.T) {
	parentDirectory := testingHandle.TempDir()
	firstRoot := filepath.Join(parentDirectory, "a", "src")
	secondRoot := filepath.Join(parentDirectory, "b", "src")
	writeFixture(testingHandle, firstRoot, "x.go", "package first\n")
	writeFixture(testingHandle, secondRoot, "x.go", "package second\n")

	result, packError := newSession(testingHandle).Pack(context.Background(), packer.Request{
		Directories:   []string{firstRoot, secondRoot},
		Configuration: testConfiguration(output.StyleJSON),
	})
	if packError != nil {
		testingHandle.Fatalf("pack: %v", packError)
	}
	expectedContents := map[string]string{"src/x.go": "package first\n", "src-2/x.go": "package second\n"}
	if len(result.Files) != len(expectedContents) {
		testingHandle.Fatalf("expected %d files, got %+v", len(expectedContents), result.Files)
	}
	for _, file := range result.Files {
		if expectedContents[file.Path] != file.Content {
			testingHandle.Fatalf("unexpected file %s with content %q", file.Path, file.Content)
		}
	}

	var decoded struct {
		Files map[string]struct {
			Content string `json:"content"`
		} `json:"files"`
	}
	if decodeError := json.Unmarshal([]byte(result.Output), &decoded); decodeError != nil {
		testingHandle.Fatalf("decode: %v", decodeError)
	}
	if len(decoded.Files) != len(expectedContents) {
		testingHandle.Fatalf("expected %d decoded files, got %v", len(expectedContents), decoded.Files)
	}
}

func TestPackIncludeEmptyDirectories(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	writeFixture(testingHandle, root, sourceFileName, sourceContent)
	if mkdirError := os.MkdirAll(filepath.Join(root, "emptydir", "nested"), 0o755); mkdirError != nil {
		testingHandle.Fatalf("mkdir: %v", mkdirError)
	}

	testCases := []struct {
		name          string
		includeEmpty  bool
		expectPresent bool
	}{
		{name: "omitted by default", includeEmpty: false, expectPresent: false},
		{name: "listed on request", includeEmpty: true, expectPresent: true},
	}
	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(testingHandle *testing.T) {
			configuration := testConfiguration(output.StylePlain)
			configuration.Output.IncludeEmptyDirectories = config.BoolPointer(testCase.includeEmpty)
			result, packError := newSession(testingHandle).Pack(context.Background(), packer.Request{Directories: []string{root}, Configuration: configuration})
			if packError != nil {
				testingHandle.Fatalf("pack: %v", packError)
			}
			present := strings.Contains(result.Output, "emptydir/\n  nested/\n")
			if present != testCase.expectPresent {
				testingHandle.Fatalf("expected empty directories present=%v:\n%s", testCase.expectPresent, result.Output)
			}
			if len(result.Files) != 1 || result.Files[0].Path != sourceFileName {
				testingHandle.Fatalf("empty directories must not add files, got %+v", result.Files)
			}
		})
	}
}

func TestPackExcludesOwnOutputFile(testingHandle *testing.T) {
	root := newFixture(testingHandle)
	outputPath := filepath.Join(root, "bundle.xml")
	writeFixture(testingHandle, root, "bundle.xml", "<previous/>")
	writeFixture(testingHandle, root, "bundle.1.xml", "<previous part/>")
	configuration := testConfiguration(output.StyleXML)
	configuration.Output.FilePath = outputPath

	result, packError := newSession(testingHandle).Pack(context.Background(), packer.Request{Directories: []string{root}, Configuration: configuration})
	if packError != nil {
		testingHandle.Fatalf("pack: %v", packError)
	}
	for _, file := range result.Files {
		if strings.HasPrefix(file.Path, "bundle.") {
			testingHandle.Fatalf("previous output %s was packed", file.Path)
		}
	}
}

func TestPackTokenCountTreeRequiresTokens(testingHandle *testing.T) {
	root := newFixture(testingHandle)
	configuration := testConfiguration(output.StylePlain)
	configuration.Output.TokenCountTree = config.IntPointer(0)

	result, packError := newSession(testingHandle).Pack(context.Background(), packer.Request{Directories: []string{root}, Configuration: configuration})
	if packError != nil {
		testingHandle.Fatalf("pack: %v", packError)
	}
	if !strings.Contains(result.TokenTree, "Token Count Tree") {
		testingHandle.Fatalf("expected token tree report, got %q", result.TokenTree)
	}
}

func TestResolveDestination(testingHandle *testing.T) {
	testCases := []struct {
		filePath string
		style    string
		expected string
	}{
		{filePath: "", style: output.StyleMarkdown, expected: "repopack-output.md"},
		{filePath: "repopack-output.xml", style: output.StyleJSON, expected: "repopack-output.json"},
		{filePath: "custom.txt", style: output.StyleXML, expected: "custom.txt"},
	}
	for _, testCase := range testCases {
		if resolved := packer.ResolveDestination(testCase.filePath, testCase.style); resolved != testCase.expected {
			testingHandle.Fatalf("ResolveDestination(%q, %q) = %q, want %q", testCase.filePath, testCase.style, resolved, testCase.expected)
		}
	}
}

func TestSessionClearEmptiesCaches(testingHandle *testing.T) {
	root := newFixture(testingHandle)
	session := newSession(testingHandle)
	request := packer.Request{
		Directories:         []string{root},
		Configuration:       testConfiguration(output.StylePlain),
		CommandLinePatterns: []string{"**/*.generated.go"},
	}
	if _, packError := session.Pack(context.Background(), request); packError != nil {
		testingHandle.Fatalf("pack: %v", packError)
	}
	if matchEntries, _ := session.CacheSizes(); matchEntries == 0 {
		testingHandle.Fatalf("expected glob matches to be cached")
	}
	session.Clear()
	if matchEntries, changeEntries := session.CacheSizes(); matchEntries != 0 || changeEntries != 0 {
		testingHandle.Fatalf("expected empty caches, got %d and %d", matchEntries, changeEntries)
	}
}
