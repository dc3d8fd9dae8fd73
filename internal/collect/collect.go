// Package collect reads the files of a filtered tree into processed files.
package collect

import (
	"context"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/repopack/internal/compress"
	"github.com/temirov/repopack/internal/document"
	"github.com/temirov/repopack/internal/filetree"
	"github.com/temirov/repopack/internal/tokenizer"
	"github.com/temirov/repopack/internal/utils"
)

const (
	// DefaultConcurrency bounds the number of files read in parallel.
	DefaultConcurrency = 16

	logMessageReadFailed     = "skipping unreadable file"
	logMessageBinarySkipped  = "skipping binary file"
	logMessageCompressFailed = "compression failed, keeping original content"

	errorCountTokensFormat = "count tokens for %s: %w"
)

// Options configures Collect. A nil Counter disables token counting and a nil
// Compressor disables compression.
type Options struct {
	Counter     tokenizer.Counter
	Compressor  *compress.Compressor
	Concurrency int
	Logger      *zap.Logger
}

// Result lists every candidate path of the tree and the files whose content
// was read. Both keep the tree's display order.
type Result struct {
	AllPaths []string
	Files    []document.ProcessedFile
}

// Collect reads every file of tree below rootDirectoryPath. Unreadable and
// binary files are listed in AllPaths but produce no ProcessedFile.
func Collect(ctx context.Context, rootDirectoryPath string, tree filetree.Directory, options Options) (Result, error) {
	logger := utils.LoggerOrNop(options.Logger)
	allPaths := filetree.Flatten(tree)
	slots := make([]*document.ProcessedFile, len(allPaths))

	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for pathIndex, relativePath := range allPaths {
		pathIndex, relativePath := pathIndex, relativePath
		group.Go(func() error {
			if contextError := groupContext.Err(); contextError != nil {
				return contextError
			}
			processedFile, processError := processFile(groupContext, rootDirectoryPath, relativePath, options, logger)
			if processError != nil {
				return processError
			}
			slots[pathIndex] = processedFile
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return Result{}, waitError
	}

	result := Result{AllPaths: allPaths, Files: make([]document.ProcessedFile, 0, len(slots))}
	for _, processedFile := range slots {
		if processedFile != nil {
			result.Files = append(result.Files, *processedFile)
		}
	}
	return result, nil
}

func processFile(ctx context.Context, rootDirectoryPath string, relativePath string, options Options, logger *zap.Logger) (*document.ProcessedFile, error) {
	absolutePath := filepath.Join(rootDirectoryPath, filepath.FromSlash(relativePath))
	content, isText, readError := utils.ReadTextFile(absolutePath)
	if readError != nil {
		logger.Warn(logMessageReadFailed, zap.String("path", relativePath), zap.Error(readError))
		return nil, nil
	}
	if !isText {
		logger.Debug(logMessageBinarySkipped, zap.String("path", relativePath))
		return nil, nil
	}
	if options.Compressor != nil && options.Compressor.Supports(relativePath) {
		compressed, compressError := options.Compressor.Compress(ctx, relativePath, content)
		if compressError != nil {
			logger.Warn(logMessageCompressFailed, zap.String("path", relativePath), zap.Error(compressError))
		} else {
			content = compressed
		}
	}

	processedFile := &document.ProcessedFile{
		Path:      relativePath,
		Content:   content,
		CharCount: utf8.RuneCountInString(content),
	}
	if options.Counter != nil {
		tokens, countError := options.Counter.CountString(content)
		if countError != nil {
			return nil, fmt.Errorf(errorCountTokensFormat, relativePath, countError)
		}
		processedFile.TokenCount = tokens
	}
	return processedFile, nil
}

// TokenCounts maps each file path to its token count.
func TokenCounts(files []document.ProcessedFile) map[string]int {
	tokenCounts := make(map[string]int, len(files))
	for _, file := range files {
		tokenCounts[file.Path] = file.TokenCount
	}
	return tokenCounts
}
