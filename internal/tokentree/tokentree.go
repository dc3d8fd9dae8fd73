// Package tokentree aggregates per-file token counts into a directory tree.
package tokentree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	branchConnector = "├── "
	lastConnector   = "└── "
	branchPadding   = "│   "
	lastPadding     = "    "

	fileLineFormat      = "%s%s%s (%s tokens)"
	directoryLineFormat = "%s%s%s/ (%s tokens)"

	reportTitle              = "🔢 Token Count Tree:"
	reportRuleCharacter      = "─"
	reportRuleLength         = 20
	reportThresholdFormat    = "Showing entries with %d+ tokens:"
	emptyTreeMessage         = "No files found."
	emptyFilteredTreeMessage = "No files or directories found with %d+ tokens."
)

// FileTokens is a leaf entry of a Node.
type FileTokens struct {
	Name   string
	Tokens int
}

// Node is one directory level. TokenSum equals the sum of Files tokens plus
// the TokenSum of every child.
type Node struct {
	Files    []FileTokens
	TokenSum int
	Children map[string]*Node
}

func newNode() *Node {
	return &Node{Children: make(map[string]*Node)}
}

// Build constructs the tree from relative paths to token counts. Backslashes
// are treated as separators; entries with an empty file name are skipped.
func Build(tokenCounts map[string]int) *Node {
	root := newNode()
	for filePath, tokens := range tokenCounts {
		segments := strings.Split(strings.ReplaceAll(filePath, "\\", "/"), "/")
		fileName := segments[len(segments)-1]
		if fileName == "" {
			continue
		}
		current := root
		for _, segment := range segments[:len(segments)-1] {
			child, exists := current.Children[segment]
			if !exists {
				child = newNode()
				current.Children[segment] = child
			}
			current = child
		}
		current.Files = append(current.Files, FileTokens{Name: fileName, Tokens: tokens})
	}
	sumTokens(root)
	return root
}

func sumTokens(node *Node) int {
	total := 0
	for _, file := range node.Files {
		total += file.Tokens
	}
	for _, child := range node.Children {
		total += sumTokens(child)
	}
	node.TokenSum = total
	return total
}

// Format renders node as a connector-drawn listing. At each level files come
// before directories, each sorted by name. Entries below minTokens are hidden
// without changing any displayed sum.
func Format(node *Node, minTokens int) string {
	var lines []string
	if node != nil {
		lines = formatLevel(node, minTokens, "")
	}
	if len(lines) == 0 {
		if minTokens > 0 {
			return fmt.Sprintf(emptyFilteredTreeMessage, minTokens)
		}
		return emptyTreeMessage
	}
	return strings.Join(lines, "\n")
}

func formatLevel(node *Node, minTokens int, prefix string) []string {
	var visibleFiles []FileTokens
	for _, file := range node.Files {
		if file.Tokens >= minTokens {
			visibleFiles = append(visibleFiles, file)
		}
	}
	sort.SliceStable(visibleFiles, func(leftIndex, rightIndex int) bool {
		return visibleFiles[leftIndex].Name < visibleFiles[rightIndex].Name
	})
	var visibleDirectories []string
	for name, child := range node.Children {
		if child.TokenSum >= minTokens {
			visibleDirectories = append(visibleDirectories, name)
		}
	}
	sort.Strings(visibleDirectories)

	var lines []string
	for fileIndex, file := range visibleFiles {
		connector := branchConnector
		if fileIndex == len(visibleFiles)-1 && len(visibleDirectories) == 0 {
			connector = lastConnector
		}
		lines = append(lines, fmt.Sprintf(fileLineFormat, prefix, connector, file.Name, humanize.Comma(int64(file.Tokens))))
	}
	for directoryIndex, name := range visibleDirectories {
		child := node.Children[name]
		connector, childPadding := branchConnector, branchPadding
		if directoryIndex == len(visibleDirectories)-1 {
			connector, childPadding = lastConnector, lastPadding
		}
		lines = append(lines, fmt.Sprintf(directoryLineFormat, prefix, connector, name, humanize.Comma(int64(child.TokenSum))))
		lines = append(lines, formatLevel(child, minTokens, prefix+childPadding)...)
	}
	return lines
}

// Report builds the tree from tokenCounts and renders it under a title.
func Report(tokenCounts map[string]int, minTokens int) string {
	lines := []string{reportTitle, strings.Repeat(reportRuleCharacter, reportRuleLength)}
	if minTokens > 0 {
		lines = append(lines, fmt.Sprintf(reportThresholdFormat, minTokens))
	}
	lines = append(lines, Format(Build(tokenCounts), minTokens))
	return strings.Join(lines, "\n")
}
