// Package split partitions a rendered document into size-bounded parts
// without dividing any root-entry group.
package split

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/temirov/repopack/internal/document"
	"github.com/temirov/repopack/internal/output"
	"github.com/temirov/repopack/internal/utils"
)

const (
	logMessageEvaluatingGroup = "evaluating split candidate"

	errorInvalidPartSizeFormat = "%w: %d"
	errorRenderPartFormat      = "render part %d: %w"
	errorGroupTooLargeFormat   = "cannot split output: root entry '%s' exceeds max size. Part size %s bytes > limit %s bytes"
)

// ErrInvalidPartSize is returned when the byte limit is not positive.
var ErrInvalidPartSize = errors.New("invalid max bytes per part")

// GroupTooLargeError reports a root-entry group whose rendering alone exceeds the limit.
type GroupTooLargeError struct {
	RootEntry string
	Size      int
	Limit     int
}

func (groupError *GroupTooLargeError) Error() string {
	return fmt.Sprintf(errorGroupTooLargeFormat, groupError.RootEntry, humanize.Comma(int64(groupError.Size)), humanize.Comma(int64(groupError.Limit)))
}

// Group holds every candidate path and processed file sharing a root entry.
type Group struct {
	RootEntry string
	Files     []document.ProcessedFile
	AllPaths  []string
}

// Part is one rendered, size-bounded output unit.
type Part struct {
	Index       int
	Destination string
	Content     string
	ByteLength  int
	Groups      []Group
}

// Input carries the material to split. AllPaths lists every candidate path,
// including ones whose content was not rendered.
type Input struct {
	Files    []document.ProcessedFile
	AllPaths []string
	Diff     *document.GitDiff
	Log      *document.GitLog
}

// Options configures Plan.
type Options struct {
	MaxBytes        int
	BaseDestination string
	Document        document.Options
	Logger          *zap.Logger
}

// RootEntry returns the first path segment of relativePath.
func RootEntry(relativePath string) string {
	normalizedPath := strings.ReplaceAll(relativePath, "\\", "/")
	rootEntry, _, _ := strings.Cut(normalizedPath, "/")
	return rootEntry
}

// BuildGroups groups candidate paths and files by root entry, ordered by root
// entry in byte order.
func BuildGroups(files []document.ProcessedFile, allPaths []string) []Group {
	groupsByRootEntry := make(map[string]*Group)
	groupFor := func(rootEntry string) *Group {
		group, exists := groupsByRootEntry[rootEntry]
		if !exists {
			group = &Group{RootEntry: rootEntry}
			groupsByRootEntry[rootEntry] = group
		}
		return group
	}
	for _, candidatePath := range allPaths {
		group := groupFor(RootEntry(candidatePath))
		group.AllPaths = append(group.AllPaths, candidatePath)
	}
	for _, file := range files {
		rootEntry := RootEntry(file.Path)
		_, known := groupsByRootEntry[rootEntry]
		group := groupFor(rootEntry)
		if !known {
			group.AllPaths = append(group.AllPaths, file.Path)
		}
		group.Files = append(group.Files, file)
	}

	groups := make([]Group, 0, len(groupsByRootEntry))
	for _, group := range groupsByRootEntry {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(leftIndex, rightIndex int) bool {
		return groups[leftIndex].RootEntry < groups[rightIndex].RootEntry
	})
	return groups
}

// Destination inserts the 1-based part index before the extension of
// baseDestination, or appends it when there is no extension.
// "output.md" becomes "output.1.md"; "output" and ".out" become "output.1" and ".out.1".
func Destination(baseDestination string, partIndex int) string {
	indexText := strconv.Itoa(partIndex)
	extension := filepath.Ext(baseDestination)
	stem := strings.TrimSuffix(baseDestination, extension)
	if extension == "" || stem == "" || strings.HasSuffix(stem, string(filepath.Separator)) || strings.HasSuffix(stem, "/") {
		return baseDestination + "." + indexText
	}
	return stem + "." + indexText + extension
}

// Plan greedily packs groups into parts. Every candidate batch is rebuilt and
// fully re-rendered, and its UTF-8 byte length is compared against
// options.MaxBytes. Only the first part carries the git diff and log blocks.
func Plan(ctx context.Context, input Input, options Options, renderer output.Renderer) ([]Part, error) {
	if options.MaxBytes <= 0 {
		return nil, fmt.Errorf(errorInvalidPartSizeFormat, ErrInvalidPartSize, options.MaxBytes)
	}
	groups := BuildGroups(input.Files, input.AllPaths)
	if len(groups) == 0 {
		return []Part{}, nil
	}
	logger := utils.LoggerOrNop(options.Logger)

	planner := partPlanner{input: input, options: options, renderer: renderer, rootEntries: make(map[string]bool, len(groups))}
	for _, group := range groups {
		planner.rootEntries[group.RootEntry] = true
	}
	var parts []Part
	var currentGroups []Group
	currentContent := ""

	for _, group := range groups {
		if contextError := ctx.Err(); contextError != nil {
			return nil, contextError
		}
		partIndex := len(parts) + 1
		candidateGroups := append(append([]Group(nil), currentGroups...), group)
		logger.Debug(logMessageEvaluatingGroup, zap.Int("part", partIndex), zap.String("root_entry", group.RootEntry))
		candidateContent, renderError := planner.render(candidateGroups, partIndex)
		if renderError != nil {
			return nil, renderError
		}
		if len(candidateContent) <= options.MaxBytes {
			currentGroups, currentContent = candidateGroups, candidateContent
			continue
		}
		if len(currentGroups) == 0 {
			return nil, &GroupTooLargeError{RootEntry: group.RootEntry, Size: len(candidateContent), Limit: options.MaxBytes}
		}

		parts = append(parts, planner.part(partIndex, currentGroups, currentContent))

		partIndex = len(parts) + 1
		logger.Debug(logMessageEvaluatingGroup, zap.Int("part", partIndex), zap.String("root_entry", group.RootEntry))
		singleContent, singleRenderError := planner.render([]Group{group}, partIndex)
		if singleRenderError != nil {
			return nil, singleRenderError
		}
		if len(singleContent) > options.MaxBytes {
			return nil, &GroupTooLargeError{RootEntry: group.RootEntry, Size: len(singleContent), Limit: options.MaxBytes}
		}
		currentGroups, currentContent = []Group{group}, singleContent
	}
	if len(currentGroups) > 0 {
		parts = append(parts, planner.part(len(parts)+1, currentGroups, currentContent))
	}
	return parts, nil
}

type partPlanner struct {
	input       Input
	options     Options
	renderer    output.Renderer
	rootEntries map[string]bool
}

func (planner partPlanner) render(groups []Group, partIndex int) (string, error) {
	var files []document.ProcessedFile
	for _, group := range groups {
		files = append(files, group.Files...)
	}
	documentOptions := planner.options.Document
	documentOptions.FullDirectoryStructure = false
	documentOptions.EmptyDirectories = planner.emptyDirectoriesFor(groups, partIndex)
	diff, log := planner.input.Diff, planner.input.Log
	if partIndex > 1 {
		documentOptions.IncludeDiffs = false
		documentOptions.IncludeLogs = false
		diff, log = nil, nil
	}
	model := document.Build(files, nil, documentOptions, diff, log)
	rendered, renderError := planner.renderer.Render(model)
	if renderError != nil {
		return "", fmt.Errorf(errorRenderPartFormat, partIndex, renderError)
	}
	return rendered, nil
}

// emptyDirectoriesFor keeps the empty directories under the root entries of
// groups. Empty directories whose root entry has no group go to the first part.
func (planner partPlanner) emptyDirectoriesFor(groups []Group, partIndex int) []string {
	emptyDirectories := planner.options.Document.EmptyDirectories
	if len(emptyDirectories) == 0 {
		return nil
	}
	partRootEntries := make(map[string]bool, len(groups))
	for _, group := range groups {
		partRootEntries[group.RootEntry] = true
	}
	var selected []string
	for _, emptyDirectory := range emptyDirectories {
		rootEntry := RootEntry(emptyDirectory)
		if partRootEntries[rootEntry] || (partIndex == 1 && !planner.rootEntries[rootEntry]) {
			selected = append(selected, emptyDirectory)
		}
	}
	return selected
}

func (planner partPlanner) part(partIndex int, groups []Group, content string) Part {
	return Part{
		Index:       partIndex,
		Destination: Destination(planner.options.BaseDestination, partIndex),
		Content:     content,
		ByteLength:  len(content),
		Groups:      groups,
	}
}
