// Package config resolves ignore patterns and loads application configuration.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/repopack/internal/utils"
)

const (
	commentLinePrefix = "#"

	logMessagePatternSourceUnreadable = "ignoring unreadable pattern source"
	errorCloseIgnoreFileFormat        = "closing %s: %w"
)

// PatternSource identifies where an ignore pattern originated.
type PatternSource string

// Known pattern sources in resolution order.
const (
	PatternSourceDefault     PatternSource = "default"
	PatternSourceGitignore   PatternSource = "gitignore"
	PatternSourceDotIgnore   PatternSource = "dotignore"
	PatternSourceCustom      PatternSource = "custom"
	PatternSourceCommandLine PatternSource = "cli"
)

// TaggedPattern pairs an ignore pattern with its source.
type TaggedPattern struct {
	Pattern string
	Source  PatternSource
}

// IgnorePatternSet is the ordered result of resolving all enabled pattern sources.
type IgnorePatternSet []TaggedPattern

// Patterns returns the pattern strings in resolution order.
func (patternSet IgnorePatternSet) Patterns() []string {
	patterns := make([]string, 0, len(patternSet))
	for _, taggedPattern := range patternSet {
		patterns = append(patterns, taggedPattern.Pattern)
	}
	return patterns
}

// FromSource returns the patterns contributed by source in resolution order.
func (patternSet IgnorePatternSet) FromSource(source PatternSource) []string {
	var patterns []string
	for _, taggedPattern := range patternSet {
		if taggedPattern.Source == source {
			patterns = append(patterns, taggedPattern.Pattern)
		}
	}
	return patterns
}

// PatternOptions selects which pattern sources contribute to resolution.
type PatternOptions struct {
	UseDefaultPatterns  bool
	UseGitignore        bool
	UseDotIgnore        bool
	CustomPatterns      []string
	CommandLinePatterns []string
}

// ResolvePatterns merges every enabled pattern source for baseDirectory into a
// single ordered set. Sources accumulate in the order defaults, .gitignore,
// .ignore, custom, command line. Only exact duplicate strings are dropped, the
// first occurrence winning. An unreadable pattern file contributes nothing and
// is logged.
func ResolvePatterns(baseDirectory string, options PatternOptions, logger *zap.Logger) IgnorePatternSet {
	logger = utils.LoggerOrNop(logger)
	var patternSet IgnorePatternSet
	encounteredPatterns := make(map[string]struct{})
	appendPatterns := func(patterns []string, source PatternSource) {
		for _, pattern := range patterns {
			trimmedPattern := strings.TrimSpace(pattern)
			if trimmedPattern == "" {
				continue
			}
			if _, exists := encounteredPatterns[trimmedPattern]; exists {
				continue
			}
			encounteredPatterns[trimmedPattern] = struct{}{}
			patternSet = append(patternSet, TaggedPattern{Pattern: trimmedPattern, Source: source})
		}
	}
	loadFileSource := func(fileName string, source PatternSource) {
		ignoreFilePath := filepath.Join(baseDirectory, fileName)
		filePatterns, loadError := LoadIgnoreFilePatterns(ignoreFilePath)
		if loadError != nil {
			logger.Warn(logMessagePatternSourceUnreadable,
				zap.String("path", ignoreFilePath),
				zap.String("source", string(source)),
				zap.Error(loadError))
			return
		}
		appendPatterns(filePatterns, source)
	}

	if options.UseDefaultPatterns {
		appendPatterns(DefaultIgnorePatterns, PatternSourceDefault)
	}
	if options.UseGitignore {
		loadFileSource(utils.GitIgnoreFileName, PatternSourceGitignore)
	}
	if options.UseDotIgnore {
		loadFileSource(utils.IgnoreFileName, PatternSourceDotIgnore)
	}
	appendPatterns(options.CustomPatterns, PatternSourceCustom)
	appendPatterns(options.CommandLinePatterns, PatternSourceCommandLine)
	return patternSet
}

// LoadIgnoreFilePatterns reads an ignore file and returns its patterns. Blank
// lines and lines starting with "#" are skipped. A missing file yields no
// patterns and no error.
//
// #nosec G304
func LoadIgnoreFilePatterns(ignoreFilePath string) (patterns []string, loadError error) {
	fileHandle, openFileError := os.Open(ignoreFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer func() {
		if closeError := fileHandle.Close(); closeError != nil && loadError == nil {
			loadError = fmt.Errorf(errorCloseIgnoreFileFormat, ignoreFilePath, closeError)
		}
	}()

	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, commentLinePrefix) {
			continue
		}
		patterns = append(patterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, scanError
	}
	return patterns, nil
}
