package output

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/temirov/repopack/internal/document"
	"github.com/temirov/repopack/internal/filetree"
)

const (
	plainSectionSeparator   = "================================================================"
	plainFileSeparator      = "================"
	plainSeparatorCharacter = "="
	plainCommitSeparator    = "----------------"

	plainFileHeaderFormat  = "File: %s\n"
	plainFileStatsFormat   = "Characters: %s, Tokens: %s\n"
	plainCommitFormat      = "Date: %s\nMessage: %s\n"
	plainStatisticsFormat  = "Total Files: %s\nTotal Characters: %s\nTotal Tokens: %s\n"
	plainFileEntryTemplate = "File path header line followed by the original file content"
)

type plainRenderer struct{}

func (plainRenderer) Style() string {
	return StylePlain
}

func (plainRenderer) Render(model document.Model) (string, error) {
	var builder strings.Builder
	options := model.Options

	if options.FileSummary {
		builder.WriteString(generationHeaderText + "\n\n")
		writePlainSection(&builder, "File Summary")
		writePlainSubsection(&builder, "Purpose", purposeText)
		writePlainSubsection(&builder, "File Format", fileFormatDescription(sectionItems(model, plainFileEntryTemplate)))
		writePlainSubsection(&builder, "Usage Guidelines", usageGuidelinesText)
		writePlainSubsection(&builder, "Notes", notesText)
	}
	if options.HeaderText != "" {
		writePlainSection(&builder, "User Provided Header")
		builder.WriteString(options.HeaderText + "\n\n")
	}
	if options.DirectoryStructure {
		writePlainSection(&builder, "Directory Structure")
		builder.WriteString(filetree.Format(model.Tree) + "\n\n")
	}
	if options.Files {
		writePlainSection(&builder, "Files")
		for _, file := range model.Files {
			fileSeparator := plainFileSeparatorFor(file.Content)
			builder.WriteString(fileSeparator + "\n")
			fmt.Fprintf(&builder, plainFileHeaderFormat, file.Path)
			if options.ShowFileStats {
				fmt.Fprintf(&builder, plainFileStatsFormat, humanize.Comma(int64(file.CharCount)), humanize.Comma(int64(file.TokenCount)))
			}
			builder.WriteString(fileSeparator + "\n")
			builder.WriteString(file.Content + "\n\n")
		}
	}
	if model.Diff != nil {
		writePlainSection(&builder, "Git Diffs")
		writePlainSubsection(&builder, "Working Tree Changes", model.Diff.WorkTree)
		writePlainSubsection(&builder, "Staged Changes", model.Diff.Staged)
	}
	if model.Log != nil {
		writePlainSection(&builder, "Git Logs")
		for _, commit := range model.Log.Commits {
			builder.WriteString(plainCommitSeparator + "\n")
			fmt.Fprintf(&builder, plainCommitFormat, commit.Date, commit.Message)
			for _, changedFile := range commit.Files {
				builder.WriteString("  " + changedFile + "\n")
			}
			builder.WriteString("\n")
		}
	}
	writePlainSection(&builder, "Statistics")
	fmt.Fprintf(&builder, plainStatisticsFormat,
		humanize.Comma(int64(model.Totals.Files)),
		humanize.Comma(int64(model.Totals.Characters)),
		humanize.Comma(int64(model.Totals.Tokens)))
	builder.WriteString("\n")
	writePlainSection(&builder, "End of Codebase")
	return builder.String(), nil
}

func writePlainSection(builder *strings.Builder, title string) {
	builder.WriteString(plainSectionSeparator + "\n")
	builder.WriteString(title + "\n")
	builder.WriteString(plainSectionSeparator + "\n")
}

// plainFileSeparatorFor returns a separator longer than any line of content
// made only of separator characters.
func plainFileSeparatorFor(content string) string {
	longestBanner := 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line != "" && strings.Trim(line, plainSeparatorCharacter) == "" && len(line) > longestBanner {
			longestBanner = len(line)
		}
	}
	if longestBanner < len(plainFileSeparator) {
		return plainFileSeparator
	}
	return strings.Repeat(plainSeparatorCharacter, longestBanner+1)
}

func writePlainSubsection(builder *strings.Builder, title string, body string) {
	if body == "" {
		return
	}
	builder.WriteString(title + ":\n")
	builder.WriteString(strings.Repeat("-", len(title)+1) + "\n")
	builder.WriteString(body + "\n\n")
}
