package output

import (
	"encoding/xml"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/temirov/repopack/internal/document"
	"github.com/temirov/repopack/internal/filetree"
)

const (
	xmlHeader             = xml.Header
	xmlRootElement        = "repository"
	xmlFileEntryTemplate  = "A <file> element with the path as an attribute and the file content as character data"
	errorXMLMarshalFormat = "marshal xml document: %w"
)

// sanitizeXMLText replaces runes outside the XML 1.0 Char production with
// U+FFFD. encoding/xml writes CDATA sections verbatim.
func sanitizeXMLText(text string) string {
	firstInvalid := strings.IndexFunc(text, func(character rune) bool { return !isXMLCharacter(character) })
	if firstInvalid < 0 {
		return text
	}
	var builder strings.Builder
	builder.Grow(len(text))
	builder.WriteString(text[:firstInvalid])
	for _, character := range text[firstInvalid:] {
		if !isXMLCharacter(character) {
			character = utf8.RuneError
		}
		builder.WriteRune(character)
	}
	return builder.String()
}

// isXMLCharacter reports whether character matches the XML 1.0 Char production.
func isXMLCharacter(character rune) bool {
	switch {
	case character == '\t', character == '\n', character == '\r':
		return true
	case character >= 0x20 && character <= 0xD7FF:
		return true
	case character >= 0xE000 && character <= 0xFFFD:
		return true
	case character >= 0x10000 && character <= utf8.MaxRune:
		return true
	default:
		return false
	}
}

func newXMLText(text string) xmlText {
	return xmlText{Text: sanitizeXMLText(text)}
}

// xmlText carries multi-line text as a CDATA section so that line breaks survive verbatim.
type xmlText struct {
	Text string `xml:",cdata"`
}

type xmlFileSummary struct {
	GenerationHeader xmlText `xml:"generation_header"`
	Purpose          xmlText `xml:"purpose"`
	FileFormat       xmlText `xml:"file_format"`
	UsageGuidelines  xmlText `xml:"usage_guidelines"`
	Notes            xmlText `xml:"notes"`
}

type xmlFile struct {
	Path       string `xml:"path,attr"`
	CharCount  *int   `xml:"chars,attr,omitempty"`
	TokenCount *int   `xml:"tokens,attr,omitempty"`
	Content    string `xml:",cdata"`
}

type xmlFiles struct {
	Entries []xmlFile `xml:"file"`
}

type xmlGitDiffs struct {
	WorkTree *xmlText `xml:"git_diff_work_tree,omitempty"`
	Staged   *xmlText `xml:"git_diff_staged,omitempty"`
}

type xmlCommit struct {
	Date    string   `xml:"date"`
	Message xmlText  `xml:"message"`
	Files   []string `xml:"files>file,omitempty"`
}

type xmlGitLogs struct {
	Commits []xmlCommit `xml:"git_log_commit"`
}

type xmlStatistics struct {
	TotalFiles      int `xml:"total_files"`
	TotalCharacters int `xml:"total_characters"`
	TotalTokens     int `xml:"total_tokens"`
}

type xmlDocument struct {
	XMLName            xml.Name        `xml:"repository"`
	FileSummary        *xmlFileSummary `xml:"file_summary,omitempty"`
	UserProvidedHeader *xmlText        `xml:"user_provided_header,omitempty"`
	DirectoryStructure *xmlText        `xml:"directory_structure,omitempty"`
	Files              *xmlFiles       `xml:"files,omitempty"`
	GitDiffs           *xmlGitDiffs    `xml:"git_diffs,omitempty"`
	GitLogs            *xmlGitLogs     `xml:"git_logs,omitempty"`
	Statistics         xmlStatistics   `xml:"statistics"`
}

type xmlRenderer struct{}

func (xmlRenderer) Style() string {
	return StyleXML
}

func (xmlRenderer) Render(model document.Model) (string, error) {
	options := model.Options
	xmlDocumentValue := xmlDocument{
		XMLName: xml.Name{Local: xmlRootElement},
		Statistics: xmlStatistics{
			TotalFiles:      model.Totals.Files,
			TotalCharacters: model.Totals.Characters,
			TotalTokens:     model.Totals.Tokens,
		},
	}
	if options.FileSummary {
		xmlDocumentValue.FileSummary = &xmlFileSummary{
			GenerationHeader: newXMLText(generationHeaderText),
			Purpose:          newXMLText(purposeText),
			FileFormat:       newXMLText(fileFormatDescription(sectionItems(model, xmlFileEntryTemplate))),
			UsageGuidelines:  newXMLText(usageGuidelinesText),
			Notes:            newXMLText(notesText),
		}
	}
	if options.HeaderText != "" {
		xmlDocumentValue.UserProvidedHeader = &xmlText{Text: sanitizeXMLText(options.HeaderText)}
	}
	if options.DirectoryStructure {
		xmlDocumentValue.DirectoryStructure = &xmlText{Text: sanitizeXMLText(filetree.Format(model.Tree))}
	}
	if options.Files {
		files := &xmlFiles{Entries: make([]xmlFile, 0, len(model.Files))}
		for _, file := range model.Files {
			entry := xmlFile{Path: file.Path, Content: sanitizeXMLText(file.Content)}
			if options.ShowFileStats {
				charCount, tokenCount := file.CharCount, file.TokenCount
				entry.CharCount = &charCount
				entry.TokenCount = &tokenCount
			}
			files.Entries = append(files.Entries, entry)
		}
		xmlDocumentValue.Files = files
	}
	if model.Diff != nil {
		diffs := &xmlGitDiffs{}
		if model.Diff.WorkTree != "" {
			diffs.WorkTree = &xmlText{Text: sanitizeXMLText(model.Diff.WorkTree)}
		}
		if model.Diff.Staged != "" {
			diffs.Staged = &xmlText{Text: sanitizeXMLText(model.Diff.Staged)}
		}
		xmlDocumentValue.GitDiffs = diffs
	}
	if model.Log != nil {
		logs := &xmlGitLogs{Commits: make([]xmlCommit, 0, len(model.Log.Commits))}
		for _, commit := range model.Log.Commits {
			logs.Commits = append(logs.Commits, xmlCommit{
				Date:    commit.Date,
				Message: newXMLText(commit.Message),
				Files:   commit.Files,
			})
		}
		xmlDocumentValue.GitLogs = logs
	}

	encoded, xmlMarshalError := xml.MarshalIndent(xmlDocumentValue, indentPrefix, indentSpacer)
	if xmlMarshalError != nil {
		return "", fmt.Errorf(errorXMLMarshalFormat, xmlMarshalError)
	}
	return xmlHeader + string(encoded) + "\n", nil
}
