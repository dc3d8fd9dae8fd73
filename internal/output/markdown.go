package output

import (
	"fmt"
	"path"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/temirov/repopack/internal/document"
	"github.com/temirov/repopack/internal/filetree"
)

const (
	markdownMinimumFenceLength = 3
	markdownFenceCharacter     = "`"

	markdownFileHeaderFormat  = "## File: %s\n"
	markdownFileStatsFormat   = "_Characters: %s, Tokens: %s_\n\n"
	markdownCommitFormat      = "## Commit: %s\n**Message:** %s\n\n"
	markdownStatisticsFormat  = "- Total Files: %s\n- Total Characters: %s\n- Total Tokens: %s\n"
	markdownFileEntryTemplate = "A level two heading with the file path followed by the content in a fenced code block"
	markdownDiffLanguage      = "diff"
)

var markdownLanguageByExtension = map[string]string{
	".c":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".cs":    "csharp",
	".css":   "css",
	".go":    "go",
	".h":     "c",
	".hpp":   "cpp",
	".html":  "html",
	".java":  "java",
	".js":    "javascript",
	".json":  "json",
	".jsx":   "jsx",
	".kt":    "kotlin",
	".md":    "markdown",
	".php":   "php",
	".py":    "python",
	".rb":    "ruby",
	".rs":    "rust",
	".scss":  "scss",
	".sh":    "bash",
	".sql":   "sql",
	".swift": "swift",
	".toml":  "toml",
	".ts":    "typescript",
	".tsx":   "tsx",
	".xml":   "xml",
	".yaml":  "yaml",
	".yml":   "yaml",
}

type markdownRenderer struct{}

func (markdownRenderer) Style() string {
	return StyleMarkdown
}

func (markdownRenderer) Render(model document.Model) (string, error) {
	var builder strings.Builder
	options := model.Options

	if options.FileSummary {
		builder.WriteString(generationHeaderText + "\n\n")
		builder.WriteString("# File Summary\n\n")
		writeMarkdownSubsection(&builder, "Purpose", purposeText)
		writeMarkdownSubsection(&builder, "File Format", fileFormatDescription(sectionItems(model, markdownFileEntryTemplate)))
		writeMarkdownSubsection(&builder, "Usage Guidelines", usageGuidelinesText)
		writeMarkdownSubsection(&builder, "Notes", notesText)
	}
	if options.HeaderText != "" {
		builder.WriteString("# User Provided Header\n")
		builder.WriteString(options.HeaderText + "\n\n")
	}
	if options.DirectoryStructure {
		builder.WriteString("# Directory Structure\n")
		writeFencedBlock(&builder, "", filetree.Format(model.Tree))
	}
	if options.Files {
		builder.WriteString("# Files\n\n")
		for _, file := range model.Files {
			fmt.Fprintf(&builder, markdownFileHeaderFormat, file.Path)
			if options.ShowFileStats {
				fmt.Fprintf(&builder, markdownFileStatsFormat, humanize.Comma(int64(file.CharCount)), humanize.Comma(int64(file.TokenCount)))
			}
			writeFencedBlock(&builder, LanguageForPath(file.Path), file.Content)
		}
	}
	if model.Diff != nil {
		builder.WriteString("# Git Diffs\n")
		if model.Diff.WorkTree != "" {
			builder.WriteString("## Working Tree Changes\n")
			writeFencedBlock(&builder, markdownDiffLanguage, model.Diff.WorkTree)
		}
		if model.Diff.Staged != "" {
			builder.WriteString("## Staged Changes\n")
			writeFencedBlock(&builder, markdownDiffLanguage, model.Diff.Staged)
		}
	}
	if model.Log != nil {
		builder.WriteString("# Git Logs\n\n")
		for _, commit := range model.Log.Commits {
			fmt.Fprintf(&builder, markdownCommitFormat, commit.Date, commit.Message)
			if len(commit.Files) > 0 {
				builder.WriteString("**Files:**\n")
				for _, changedFile := range commit.Files {
					builder.WriteString("- " + changedFile + "\n")
				}
				builder.WriteString("\n")
			}
		}
	}
	builder.WriteString("# Statistics\n")
	fmt.Fprintf(&builder, markdownStatisticsFormat,
		humanize.Comma(int64(model.Totals.Files)),
		humanize.Comma(int64(model.Totals.Characters)),
		humanize.Comma(int64(model.Totals.Tokens)))
	return builder.String(), nil
}

// LanguageForPath returns the code fence language hint for a file path, or an
// empty string when the extension is unknown.
func LanguageForPath(filePath string) string {
	return markdownLanguageByExtension[strings.ToLower(path.Ext(filePath))]
}

// fenceFor returns a backtick fence longer than any backtick run in content.
func fenceFor(content string) string {
	longestRun, currentRun := 0, 0
	for _, character := range content {
		if character == '`' {
			currentRun++
			if currentRun > longestRun {
				longestRun = currentRun
			}
			continue
		}
		currentRun = 0
	}
	fenceLength := markdownMinimumFenceLength
	if longestRun >= fenceLength {
		fenceLength = longestRun + 1
	}
	return strings.Repeat(markdownFenceCharacter, fenceLength)
}

func writeFencedBlock(builder *strings.Builder, language string, content string) {
	fence := fenceFor(content)
	builder.WriteString(fence + language + "\n")
	builder.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		builder.WriteString("\n")
	}
	builder.WriteString(fence + "\n\n")
}

func writeMarkdownSubsection(builder *strings.Builder, title string, body string) {
	builder.WriteString("## " + title + "\n")
	builder.WriteString(body + "\n\n")
}
