package gitmeta

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/repopack/internal/document"
	"github.com/temirov/repopack/internal/utils"
)

const (
	// DefaultMaxCommits bounds the history scanned for change counts.
	DefaultMaxCommits = 100

	logMessageGitUnavailable = "git unavailable, change sorting skipped"
	logMessageChangeCounts   = "change counts unavailable"
	logMessageCachedCounts   = "using cached change counts"
)

// ChangeCountCache memoizes per-directory change counts and Git availability.
// It is safe for concurrent use.
type ChangeCountCache struct {
	client       *Client
	mutex        sync.Mutex
	counts       map[string]map[string]int
	availability map[string]bool
}

// NewChangeCountCache creates an empty cache backed by client.
func NewChangeCountCache(client *Client) *ChangeCountCache {
	return &ChangeCountCache{
		client:       client,
		counts:       make(map[string]map[string]int),
		availability: make(map[string]bool),
	}
}

// Counts returns how often each file changed in the last maxCommits commits of
// directory. The boolean is false when Git is unavailable or the history
// cannot be read.
func (cache *ChangeCountCache) Counts(ctx context.Context, directory string, maxCommits int) (map[string]int, bool) {
	if maxCommits <= 0 {
		maxCommits = DefaultMaxCommits
	}
	logger := utils.LoggerOrNop(cache.client.Logger)
	cacheKey := directory + ":" + strconv.Itoa(maxCommits)

	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	if cachedCounts, found := cache.counts[cacheKey]; found {
		logger.Debug(logMessageCachedCounts, zap.String("directory", directory))
		return cachedCounts, true
	}
	if !cache.isAvailable(ctx, directory) {
		logger.Debug(logMessageGitUnavailable, zap.String("directory", directory))
		return nil, false
	}
	fileNames, logError := cache.client.ChangedFileNames(ctx, directory, maxCommits)
	if logError != nil {
		logger.Debug(logMessageChangeCounts, zap.String("directory", directory), zap.Error(logError))
		return nil, false
	}
	changeCounts := make(map[string]int, len(fileNames))
	for _, fileName := range fileNames {
		changeCounts[fileName]++
	}
	cache.counts[cacheKey] = changeCounts
	return changeCounts, true
}

func (cache *ChangeCountCache) isAvailable(ctx context.Context, directory string) bool {
	if available, found := cache.availability[directory]; found {
		return available
	}
	available := cache.client.IsRepository(ctx, directory)
	cache.availability[directory] = available
	return available
}

// SortFiles orders files by change frequency in directory. Files are returned
// unchanged when no counts are available.
func (cache *ChangeCountCache) SortFiles(ctx context.Context, directory string, maxCommits int, files []document.ProcessedFile) []document.ProcessedFile {
	changeCounts, available := cache.Counts(ctx, directory, maxCommits)
	if !available || len(changeCounts) == 0 {
		return files
	}
	return SortByChanges(files, changeCounts)
}

// Len reports the number of cached count tables.
func (cache *ChangeCountCache) Len() int {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	return len(cache.counts)
}

// Clear drops cached counts and availability results.
func (cache *ChangeCountCache) Clear() {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	cache.counts = make(map[string]map[string]int)
	cache.availability = make(map[string]bool)
}

// SortByChanges returns a copy of files stably ordered by ascending change
// count, so the most frequently changed files come last.
func SortByChanges(files []document.ProcessedFile, changeCounts map[string]int) []document.ProcessedFile {
	sortedFiles := append([]document.ProcessedFile(nil), files...)
	sort.SliceStable(sortedFiles, func(leftIndex, rightIndex int) bool {
		return changeCounts[sortedFiles[leftIndex].Path] < changeCounts[sortedFiles[rightIndex].Path]
	})
	return sortedFiles
}
