// Package utils contains general helpers shared across repopack packages.
package utils

import (
	"path/filepath"
	"strings"
)

// Ignore file constants used across the project.
const (
	// IgnoreFileName is the name of the project's dot-ignore file.
	IgnoreFileName = ".ignore"
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
)

const (
	pathSegmentSeparator = "/"
	currentDirectoryPath = "."
)

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{}, len(patterns))
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; exists {
			continue
		}
		encounteredPatterns[pattern] = struct{}{}
		result = append(result, pattern)
	}
	return result
}

// NormalizeRelativePath converts a relative path into forward-slash form without
// a leading "./" prefix.
func NormalizeRelativePath(relativePath string) string {
	normalizedPath := strings.ReplaceAll(relativePath, "\\", pathSegmentSeparator)
	for strings.HasPrefix(normalizedPath, currentDirectoryPath+pathSegmentSeparator) {
		normalizedPath = strings.TrimPrefix(normalizedPath, currentDirectoryPath+pathSegmentSeparator)
	}
	return normalizedPath
}

// SplitPathSegments splits a normalized relative path into its non-empty segments.
func SplitPathSegments(relativePath string) []string {
	rawSegments := strings.Split(NormalizeRelativePath(relativePath), pathSegmentSeparator)
	segments := make([]string, 0, len(rawSegments))
	for _, segment := range rawSegments {
		if segment == "" || segment == currentDirectoryPath {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}

// RelativePathOrSelf calculates the forward-slash relative path from root to fullPath.
// Returns the cleaned fullPath if relative calculation fails.
// Returns "." if fullPath and root resolve to the same directory.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	absoluteRoot, absoluteError := filepath.Abs(root)
	if absoluteError != nil {
		return cleanPath
	}
	cleanAbsoluteRoot := filepath.Clean(absoluteRoot)
	if cleanPath == cleanAbsoluteRoot {
		return currentDirectoryPath
	}
	relativePath, relativeError := filepath.Rel(cleanAbsoluteRoot, cleanPath)
	if relativeError != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}
