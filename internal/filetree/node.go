// Package filetree builds directory tree representations of a source tree.
package filetree

import (
	"sort"
	"strings"

	"github.com/temirov/repopack/internal/utils"
)

const (
	pathSeparator         = "/"
	formatIndentation     = "  "
	formatDirectorySuffix = "/"
)

// Node is a tree entry: either a File leaf or a Directory.
type Node interface {
	isNode()
}

// File marks a leaf entry.
type File struct{}

func (File) isNode() {}

// Directory maps child names to their nodes. A directory exclusively owns its children.
type Directory map[string]Node

func (Directory) isNode() {}

// IsDirectory reports whether node is a Directory.
func IsDirectory(node Node) bool {
	_, isDirectory := node.(Directory)
	return isDirectory
}

// SortedNames returns the child names of directory in display order:
// directories before files, names compared case-insensitively with a
// byte-order tiebreak.
func SortedNames(directory Directory) []string {
	names := make([]string, 0, len(directory))
	for name := range directory {
		names = append(names, name)
	}
	sort.Slice(names, func(leftIndex, rightIndex int) bool {
		leftName, rightName := names[leftIndex], names[rightIndex]
		leftIsDirectory, rightIsDirectory := IsDirectory(directory[leftName]), IsDirectory(directory[rightName])
		if leftIsDirectory != rightIsDirectory {
			return leftIsDirectory
		}
		leftFolded, rightFolded := strings.ToLower(leftName), strings.ToLower(rightName)
		if leftFolded != rightFolded {
			return leftFolded < rightFolded
		}
		return leftName < rightName
	})
	return names
}

// Flatten lists the relative paths of all files in directory in display order.
func Flatten(directory Directory) []string {
	var paths []string
	flattenInto(directory, "", &paths)
	return paths
}

func flattenInto(directory Directory, prefix string, paths *[]string) {
	for _, name := range SortedNames(directory) {
		childPath := prefix + name
		if childDirectory, isDirectory := directory[name].(Directory); isDirectory {
			flattenInto(childDirectory, childPath+pathSeparator, paths)
			continue
		}
		*paths = append(*paths, childPath)
	}
}

// EmptyDirectoryPaths lists the relative paths of directories that have no
// entries, in display order.
func EmptyDirectoryPaths(directory Directory) []string {
	var paths []string
	collectEmptyDirectories(directory, "", &paths)
	return paths
}

func collectEmptyDirectories(directory Directory, prefix string, paths *[]string) {
	for _, name := range SortedNames(directory) {
		childDirectory, isDirectory := directory[name].(Directory)
		if !isDirectory {
			continue
		}
		childPath := prefix + name
		if len(childDirectory) == 0 {
			*paths = append(*paths, childPath)
			continue
		}
		collectEmptyDirectories(childDirectory, childPath+pathSeparator, paths)
	}
}

// AddDirectoryPaths ensures every relative path in relativePaths exists in
// root as a directory. Existing entries are left untouched.
func AddDirectoryPaths(root Directory, relativePaths []string) {
	for _, relativePath := range relativePaths {
		current := root
		for _, segment := range utils.SplitPathSegments(relativePath) {
			child, isDirectory := current[segment].(Directory)
			if !isDirectory {
				if _, exists := current[segment]; exists {
					break
				}
				child = Directory{}
				current[segment] = child
			}
			current = child
		}
	}
}

// FromPaths builds a tree whose leaves are exactly the given relative file
// paths. Backslashes are normalized; empty paths are skipped.
func FromPaths(relativePaths []string) Directory {
	root := Directory{}
	for _, relativePath := range relativePaths {
		segments := utils.SplitPathSegments(relativePath)
		if len(segments) == 0 {
			continue
		}
		current := root
		for _, segment := range segments[:len(segments)-1] {
			child, isDirectory := current[segment].(Directory)
			if !isDirectory {
				child = Directory{}
				current[segment] = child
			}
			current = child
		}
		leafName := segments[len(segments)-1]
		if _, exists := current[leafName]; !exists {
			current[leafName] = File{}
		}
	}
	return root
}

// Format renders directory as an indented text block: one entry per line,
// two spaces per nesting level, directories suffixed with "/".
func Format(directory Directory) string {
	var builder strings.Builder
	formatInto(&builder, directory, "")
	return strings.TrimSuffix(builder.String(), "\n")
}

func formatInto(builder *strings.Builder, directory Directory, indentation string) {
	for _, name := range SortedNames(directory) {
		builder.WriteString(indentation)
		builder.WriteString(name)
		if childDirectory, isDirectory := directory[name].(Directory); isDirectory {
			builder.WriteString(formatDirectorySuffix)
			builder.WriteString("\n")
			formatInto(builder, childDirectory, indentation+formatIndentation)
			continue
		}
		builder.WriteString("\n")
	}
}
