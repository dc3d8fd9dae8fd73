package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/temirov/repopack/internal/document"
	"github.com/temirov/repopack/internal/filetree"
)

const (
	errorJSONEncodeFormat = "encode json document: %w"
)

const jsonFileFormatText = "The content is organized as a JSON object with the following structure:\n" +
	"1. fileSummary: Contains metadata about this file\n" +
	"2. directoryStructure: Text representation of the repository structure\n" +
	"3. files: Object mapping file paths to their contents\n" +
	"4. statistics: Summary statistics about the repository"

type jsonFileSummary struct {
	GenerationHeader string `json:"generationHeader"`
	Purpose          string `json:"purpose"`
	FileFormat       string `json:"fileFormat"`
	UsageGuidelines  string `json:"usageGuidelines"`
	Notes            string `json:"notes"`
}

type jsonFileEntry struct {
	Content    string `json:"content"`
	CharCount  *int   `json:"charCount,omitempty"`
	TokenCount *int   `json:"tokenCount,omitempty"`
}

type jsonNamedFile struct {
	path  string
	entry jsonFileEntry
}

// jsonFiles encodes as an object whose keys keep file order.
type jsonFiles []jsonNamedFile

func (files jsonFiles) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')
	for fileIndex, file := range files {
		if fileIndex > 0 {
			buffer.WriteByte(',')
		}
		if encodeError := encodeJSONValue(&buffer, file.path); encodeError != nil {
			return nil, encodeError
		}
		buffer.WriteByte(':')
		if encodeError := encodeJSONValue(&buffer, file.entry); encodeError != nil {
			return nil, encodeError
		}
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

type jsonGitDiffs struct {
	WorkTree string `json:"workTree,omitempty"`
	Staged   string `json:"staged,omitempty"`
}

type jsonCommit struct {
	Date    string   `json:"date"`
	Message string   `json:"message"`
	Files   []string `json:"files"`
}

type jsonStatistics struct {
	TotalFiles      int `json:"totalFiles"`
	TotalCharacters int `json:"totalCharacters"`
	TotalTokens     int `json:"totalTokens"`
}

type jsonDocument struct {
	FileSummary        *jsonFileSummary `json:"fileSummary,omitempty"`
	UserProvidedHeader string           `json:"userProvidedHeader,omitempty"`
	DirectoryStructure *string          `json:"directoryStructure,omitempty"`
	Files              *jsonFiles       `json:"files,omitempty"`
	GitDiffs           *jsonGitDiffs    `json:"gitDiffs,omitempty"`
	GitLogs            []jsonCommit     `json:"gitLogs,omitempty"`
	Statistics         jsonStatistics   `json:"statistics"`
}

type jsonRenderer struct{}

func (jsonRenderer) Style() string {
	return StyleJSON
}

func (jsonRenderer) Render(model document.Model) (string, error) {
	options := model.Options
	jsonDocumentValue := jsonDocument{
		UserProvidedHeader: options.HeaderText,
		Statistics: jsonStatistics{
			TotalFiles:      model.Totals.Files,
			TotalCharacters: model.Totals.Characters,
			TotalTokens:     model.Totals.Tokens,
		},
	}
	if options.FileSummary {
		jsonDocumentValue.FileSummary = &jsonFileSummary{
			GenerationHeader: generationHeaderText,
			Purpose:          purposeText,
			FileFormat:       jsonFileFormatText,
			UsageGuidelines:  usageGuidelinesText,
			Notes:            notesText,
		}
	}
	if options.DirectoryStructure {
		directoryStructure := filetree.Format(model.Tree)
		jsonDocumentValue.DirectoryStructure = &directoryStructure
	}
	if options.Files {
		files := make(jsonFiles, 0, len(model.Files))
		for _, file := range model.Files {
			entry := jsonFileEntry{Content: file.Content}
			if options.ShowFileStats {
				charCount, tokenCount := file.CharCount, file.TokenCount
				entry.CharCount = &charCount
				entry.TokenCount = &tokenCount
			}
			files = append(files, jsonNamedFile{path: file.Path, entry: entry})
		}
		jsonDocumentValue.Files = &files
	}
	if model.Diff != nil {
		jsonDocumentValue.GitDiffs = &jsonGitDiffs{WorkTree: model.Diff.WorkTree, Staged: model.Diff.Staged}
	}
	if model.Log != nil {
		for _, commit := range model.Log.Commits {
			changedFiles := commit.Files
			if changedFiles == nil {
				changedFiles = []string{}
			}
			jsonDocumentValue.GitLogs = append(jsonDocumentValue.GitLogs, jsonCommit{
				Date:    commit.Date,
				Message: commit.Message,
				Files:   changedFiles,
			})
		}
	}

	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent(indentPrefix, indentSpacer)
	if encodeError := encoder.Encode(jsonDocumentValue); encodeError != nil {
		return "", fmt.Errorf(errorJSONEncodeFormat, encodeError)
	}
	return string(bytes.TrimSuffix(buffer.Bytes(), []byte("\n"))), nil
}

func encodeJSONValue(buffer *bytes.Buffer, value any) error {
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	if encodeError := encoder.Encode(value); encodeError != nil {
		return encodeError
	}
	buffer.Truncate(buffer.Len() - 1)
	return nil
}
