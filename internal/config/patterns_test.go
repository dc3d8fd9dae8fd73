package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeIgnoreFile(t *testing.T, directory string, name string, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(directory, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestResolvePatternsAccumulatesEnabledSources(t *testing.T) {
	baseDirectory := t.TempDir()
	writeIgnoreFile(t, baseDirectory, ".gitignore", "# build output\n\nbin/\n*.log\n")
	writeIgnoreFile(t, baseDirectory, ".ignore", "secrets.txt\nbin/\n")

	testCases := []struct {
		name     string
		options  PatternOptions
		expected IgnorePatternSet
	}{
		{
			name: "files_custom_and_cli",
			options: PatternOptions{
				UseGitignore:        true,
				UseDotIgnore:        true,
				CustomPatterns:      []string{"docs/", " *.log "},
				CommandLinePatterns: []string{"fixtures/"},
			},
			expected: IgnorePatternSet{
				{Pattern: "bin/", Source: PatternSourceGitignore},
				{Pattern: "*.log", Source: PatternSourceGitignore},
				{Pattern: "secrets.txt", Source: PatternSourceDotIgnore},
				{Pattern: "docs/", Source: PatternSourceCustom},
				{Pattern: "fixtures/", Source: PatternSourceCommandLine},
			},
		},
		{
			name:    "disabled_sources_contribute_nothing",
			options: PatternOptions{CustomPatterns: []string{"docs/"}},
			expected: IgnorePatternSet{
				{Pattern: "docs/", Source: PatternSourceCustom},
			},
		},
		{
			name:     "dot_ignore_only",
			options:  PatternOptions{UseDotIgnore: true},
			expected: IgnorePatternSet{{Pattern: "secrets.txt", Source: PatternSourceDotIgnore}, {Pattern: "bin/", Source: PatternSourceDotIgnore}},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resolved := ResolvePatterns(baseDirectory, testCase.options, nil)
			if !reflect.DeepEqual(resolved, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, resolved)
			}
			resolvedAgain := ResolvePatterns(baseDirectory, testCase.options, nil)
			if !reflect.DeepEqual(resolved, resolvedAgain) {
				t.Fatalf("resolution is not idempotent: %v vs %v", resolved, resolvedAgain)
			}
		})
	}
}

func TestResolvePatternsIncludesDefaults(t *testing.T) {
	resolved := ResolvePatterns(t.TempDir(), PatternOptions{UseDefaultPatterns: true, UseGitignore: true}, nil)
	defaults := resolved.FromSource(PatternSourceDefault)
	if !reflect.DeepEqual(defaults, DefaultIgnorePatterns) {
		t.Fatalf("expected default patterns in order")
	}
	if len(resolved.FromSource(PatternSourceGitignore)) != 0 {
		t.Fatalf("missing .gitignore must contribute nothing")
	}
}

func TestResolvePatternsToleratesUnreadableSource(t *testing.T) {
	baseDirectory := t.TempDir()
	if err := os.Mkdir(filepath.Join(baseDirectory, ".gitignore"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	resolved := ResolvePatterns(baseDirectory, PatternOptions{UseGitignore: true, CustomPatterns: []string{"x/"}}, nil)
	if !reflect.DeepEqual(resolved.Patterns(), []string{"x/"}) {
		t.Fatalf("expected only custom pattern, got %v", resolved.Patterns())
	}
}
