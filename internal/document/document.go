// Package document builds the style-agnostic content model consumed by renderers.
package document

import (
	"github.com/temirov/repopack/internal/filetree"
)

// ProcessedFile is a file whose content has been finalized for output.
// Path is relative and slash separated. CharCount is the number of Unicode
// code points in Content; TokenCount is zero when token counting is disabled.
type ProcessedFile struct {
	Path       string
	Content    string
	CharCount  int
	TokenCount int
}

// GitDiff holds pre-formatted diff text for the working tree and the index.
type GitDiff struct {
	WorkTree string
	Staged   string
}

// IsEmpty reports whether neither diff carries content.
func (diff *GitDiff) IsEmpty() bool {
	return diff == nil || (diff.WorkTree == "" && diff.Staged == "")
}

// Commit is one entry of a commit log.
type Commit struct {
	Date    string
	Message string
	Files   []string
}

// GitLog holds recent commits, newest first.
type GitLog struct {
	Commits []Commit
}

// IsEmpty reports whether the log has no commits.
func (log *GitLog) IsEmpty() bool {
	return log == nil || len(log.Commits) == 0
}

// Options selects which sections appear in a rendered document.
// EmptyDirectories lists relative directory paths shown in the reconstructed
// tree even though they contain no files.
type Options struct {
	HeaderText             string
	FileSummary            bool
	DirectoryStructure     bool
	Files                  bool
	ShowFileStats          bool
	FullDirectoryStructure bool
	TokenCounting          bool
	IncludeDiffs           bool
	IncludeLogs            bool
	EmptyDirectories       []string
}

// Totals aggregates file statistics.
type Totals struct {
	Files      int
	Characters int
	Tokens     int
}

// Model is a snapshot of everything a renderer needs. A Model is built fresh
// for every render and is never modified afterwards.
type Model struct {
	Options Options
	Files   []ProcessedFile
	Tree    filetree.Directory
	Totals  Totals
	Diff    *GitDiff
	Log     *GitLog
}

// Build assembles a Model. fullTree is displayed only when
// options.FullDirectoryStructure is set; otherwise the tree is reconstructed
// from the file paths so that it lists exactly the rendered files plus
// options.EmptyDirectories.
func Build(files []ProcessedFile, fullTree filetree.Directory, options Options, diff *GitDiff, log *GitLog) Model {
	model := Model{
		Options: options,
		Files:   files,
	}
	if options.FullDirectoryStructure && fullTree != nil {
		model.Tree = fullTree
	} else {
		model.Tree = BuildTreeFromFiles(files)
		filetree.AddDirectoryPaths(model.Tree, options.EmptyDirectories)
	}

	model.Totals.Files = len(files)
	for _, file := range files {
		model.Totals.Characters += file.CharCount
		if options.TokenCounting {
			model.Totals.Tokens += file.TokenCount
		}
	}

	if options.IncludeDiffs && !diff.IsEmpty() {
		model.Diff = diff
	}
	if options.IncludeLogs && !log.IsEmpty() {
		model.Log = log
	}
	return model
}

// BuildTreeFromFiles reconstructs a directory tree from processed file paths
// without touching the filesystem.
func BuildTreeFromFiles(files []ProcessedFile) filetree.Directory {
	paths := make([]string, 0, len(files))
	for _, file := range files {
		paths = append(paths, file.Path)
	}
	return filetree.FromPaths(paths)
}
