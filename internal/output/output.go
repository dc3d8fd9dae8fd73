// Package output renders content models into the supported document styles.
package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/repopack/internal/document"
)

// Supported output styles.
const (
	StylePlain    = "plain"
	StyleXML      = "xml"
	StyleMarkdown = "markdown"
	StyleJSON     = "json"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	generationHeaderText   = "This file is a merged representation of the entire codebase, combined into a single document by repopack."
	fileFormatIntroduction = "The content is organized as follows:\n"

	errorUnsupportedStyleFormat = "%w: %q (expected one of %s)"
)

const purposeText = "This file contains a packed representation of the repository's contents.\n" +
	"It is designed to be easily consumable by AI systems for analysis, code review,\n" +
	"or other automated processes."

const usageGuidelinesText = "- This file should be treated as read-only. Any changes should be made to the\n" +
	"  original repository files, not this packed version.\n" +
	"- When processing this file, use the file path to distinguish\n" +
	"  between different files in the repository.\n" +
	"- Be aware that this file may contain sensitive information. Handle it with\n" +
	"  the same level of security as you would the original repository."

const notesText = "- Some files may have been excluded based on .gitignore rules and ignore patterns.\n" +
	"- Binary files are not included in this packed representation.\n" +
	"- Files are sorted by Git change count when change sorting is enabled\n" +
	"  (files with more changes are at the bottom)."

// ErrUnsupportedStyle is returned for unknown style names.
var ErrUnsupportedStyle = errors.New("unsupported output style")

// Renderer turns a content model into a document. Rendering is deterministic:
// equal models always produce byte-identical output.
type Renderer interface {
	Style() string
	Render(model document.Model) (string, error)
}

// SupportedStyles lists the style names accepted by NewRenderer.
func SupportedStyles() []string {
	return []string{StyleXML, StyleMarkdown, StylePlain, StyleJSON}
}

// NewRenderer returns the renderer for style. Style names are case-insensitive.
func NewRenderer(style string) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case StylePlain:
		return plainRenderer{}, nil
	case StyleXML:
		return xmlRenderer{}, nil
	case StyleMarkdown:
		return markdownRenderer{}, nil
	case StyleJSON:
		return jsonRenderer{}, nil
	default:
		return nil, fmt.Errorf(errorUnsupportedStyleFormat, ErrUnsupportedStyle, style, strings.Join(SupportedStyles(), ", "))
	}
}

// FileExtension returns the conventional file extension for style.
func FileExtension(style string) string {
	switch strings.ToLower(style) {
	case StyleMarkdown:
		return ".md"
	case StylePlain:
		return ".txt"
	case StyleJSON:
		return ".json"
	default:
		return ".xml"
	}
}

func fileFormatDescription(items []string) string {
	var builder strings.Builder
	builder.WriteString(fileFormatIntroduction)
	for itemIndex, item := range items {
		if itemIndex > 0 {
			builder.WriteString("\n")
		}
		fmt.Fprintf(&builder, "%d. %s", itemIndex+1, item)
	}
	return builder.String()
}

// sectionItems names the sections present in model for the file format description.
func sectionItems(model document.Model, fileEntryDescription string) []string {
	items := []string{"This summary section"}
	if model.Options.HeaderText != "" {
		items = append(items, "User provided header text")
	}
	if model.Options.DirectoryStructure {
		items = append(items, "Repository structure")
	}
	if model.Options.Files {
		items = append(items, "Repository files, each consisting of:\n  "+fileEntryDescription)
	}
	if model.Diff != nil {
		items = append(items, "Git diffs of the working tree and staged changes")
	}
	if model.Log != nil {
		items = append(items, "Recent Git commit history")
	}
	items = append(items, "Statistics about the packed files")
	return items
}
