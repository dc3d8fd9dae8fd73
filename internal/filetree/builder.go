package filetree

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/repopack/internal/utils"
)

const (
	// DefaultConcurrency bounds the number of top-level directories walked in parallel.
	DefaultConcurrency = 8

	logMessageSkipDirectory = "skipping unreadable directory"
	logMessageSkipEntry     = "skipping unreadable entry"

	errorAbsolutePathFormat = "getting absolute path for %s: %w"
	errorStatRootFormat     = "inspecting root %s: %w"
	errorReadRootFormat     = "reading root directory %s: %w"
)

// ErrRootNotDirectory is returned when the walk root is not a directory.
var ErrRootNotDirectory = errors.New("root is not a directory")

// Builder produces filtered trees. Matcher may be nil, in which case nothing is ignored.
type Builder struct {
	Matcher                 *Matcher
	IncludeEmptyDirectories bool
	Concurrency             int
	Logger                  *zap.Logger
}

// BuildFiltered walks rootDirectoryPath and returns the tree of entries that
// survive the matcher. Ignored directories are pruned without being read.
// Empty directories are kept only when IncludeEmptyDirectories is set.
func (builder Builder) BuildFiltered(ctx context.Context, rootDirectoryPath string) (Directory, error) {
	treeWalker := walker{
		accept: func(relativePath string, isDirectory bool) bool {
			return !builder.Matcher.Matches(relativePath, isDirectory)
		},
		keepEmptyDirectories: builder.IncludeEmptyDirectories,
		concurrency:          builder.Concurrency,
		logger:               utils.LoggerOrNop(builder.Logger),
	}
	return treeWalker.build(ctx, rootDirectoryPath)
}

// BuildFull walks rootDirectoryPath and returns every entry, ignored or not.
// Unreadable subdirectories appear as empty directories.
func BuildFull(ctx context.Context, rootDirectoryPath string, logger *zap.Logger) (Directory, error) {
	treeWalker := walker{
		accept:               func(string, bool) bool { return true },
		keepEmptyDirectories: true,
		concurrency:          DefaultConcurrency,
		logger:               utils.LoggerOrNop(logger),
	}
	return treeWalker.build(ctx, rootDirectoryPath)
}

type walker struct {
	accept               func(relativePath string, isDirectory bool) bool
	keepEmptyDirectories bool
	concurrency          int
	logger               *zap.Logger
}

type topLevelEntry struct {
	name        string
	isDirectory bool
	subtree     Directory
}

func (treeWalker walker) build(ctx context.Context, rootDirectoryPath string) (Directory, error) {
	absoluteRootPath, absoluteError := filepath.Abs(rootDirectoryPath)
	if absoluteError != nil {
		return nil, fmt.Errorf(errorAbsolutePathFormat, rootDirectoryPath, absoluteError)
	}
	rootInformation, statError := os.Stat(absoluteRootPath)
	if statError != nil {
		return nil, fmt.Errorf(errorStatRootFormat, absoluteRootPath, statError)
	}
	if !rootInformation.IsDir() {
		return nil, fmt.Errorf(errorStatRootFormat, absoluteRootPath, ErrRootNotDirectory)
	}
	directoryEntries, readError := os.ReadDir(absoluteRootPath)
	if readError != nil {
		return nil, fmt.Errorf(errorReadRootFormat, absoluteRootPath, readError)
	}

	entries := make([]topLevelEntry, len(directoryEntries))
	concurrency := treeWalker.concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for entryIndex, directoryEntry := range directoryEntries {
		entryName := directoryEntry.Name()
		isDirectory, isUsable := treeWalker.classify(filepath.Join(absoluteRootPath, entryName), directoryEntry)
		if !isUsable || !treeWalker.accept(entryName, isDirectory) {
			continue
		}
		entries[entryIndex] = topLevelEntry{name: entryName, isDirectory: isDirectory}
		if !isDirectory {
			continue
		}
		entryIndex := entryIndex
		group.Go(func() error {
			subtree, walkError := treeWalker.walkDirectory(groupContext, filepath.Join(absoluteRootPath, entryName), entryName)
			if walkError != nil {
				return walkError
			}
			entries[entryIndex].subtree = subtree
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, waitError
	}

	root := Directory{}
	for _, entry := range entries {
		if entry.name == "" {
			continue
		}
		if !entry.isDirectory {
			root[entry.name] = File{}
			continue
		}
		if len(entry.subtree) == 0 && !treeWalker.keepEmptyDirectories {
			continue
		}
		root[entry.name] = entry.subtree
	}
	return root, nil
}

// walkDirectory returns the subtree below absolutePath. Read failures yield an
// empty directory; only context cancellation is reported as an error.
func (treeWalker walker) walkDirectory(ctx context.Context, absolutePath string, relativePath string) (Directory, error) {
	if contextError := ctx.Err(); contextError != nil {
		return nil, contextError
	}
	subtree := Directory{}
	directoryEntries, readError := os.ReadDir(absolutePath)
	if readError != nil {
		treeWalker.logger.Warn(logMessageSkipDirectory, zap.String("path", relativePath), zap.Error(readError))
		return subtree, nil
	}
	for _, directoryEntry := range directoryEntries {
		entryName := directoryEntry.Name()
		childAbsolutePath := filepath.Join(absolutePath, entryName)
		childRelativePath := relativePath + pathSeparator + entryName
		isDirectory, isUsable := treeWalker.classify(childAbsolutePath, directoryEntry)
		if !isUsable || !treeWalker.accept(childRelativePath, isDirectory) {
			continue
		}
		if !isDirectory {
			subtree[entryName] = File{}
			continue
		}
		childSubtree, walkError := treeWalker.walkDirectory(ctx, childAbsolutePath, childRelativePath)
		if walkError != nil {
			return nil, walkError
		}
		if len(childSubtree) == 0 && !treeWalker.keepEmptyDirectories {
			continue
		}
		subtree[entryName] = childSubtree
	}
	return subtree, nil
}

// classify resolves whether an entry is a directory. Symbolic links to
// directories are not followed; symbolic links to files are treated as files.
func (treeWalker walker) classify(absolutePath string, directoryEntry fs.DirEntry) (bool, bool) {
	if directoryEntry.Type()&fs.ModeSymlink == 0 {
		return directoryEntry.IsDir(), true
	}
	targetInformation, statError := os.Stat(absolutePath)
	if statError != nil {
		treeWalker.logger.Warn(logMessageSkipEntry, zap.String("path", absolutePath), zap.Error(statError))
		return false, false
	}
	if targetInformation.IsDir() {
		return false, false
	}
	return false, true
}
