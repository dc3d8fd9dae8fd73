// Package packer runs the full pipeline: pattern resolution, tree building,
// collection, ordering, rendering and splitting.
package packer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/repopack/internal/collect"
	"github.com/temirov/repopack/internal/compress"
	"github.com/temirov/repopack/internal/config"
	"github.com/temirov/repopack/internal/document"
	"github.com/temirov/repopack/internal/filetree"
	"github.com/temirov/repopack/internal/gitmeta"
	"github.com/temirov/repopack/internal/output"
	"github.com/temirov/repopack/internal/split"
	"github.com/temirov/repopack/internal/tokenizer"
	"github.com/temirov/repopack/internal/tokentree"
	"github.com/temirov/repopack/internal/utils"
)

const (
	currentDirectory       = "."
	defaultGitLogCommitCap = 50

	logMessagePacking        = "packing directory"
	logMessageGitDiffSkipped = "git diff unavailable"
	logMessageGitLogSkipped  = "git log unavailable"
	logMessagePacked         = "packed"

	directoryPrefixFormat = "%s-%d"

	errorInvalidDirectoryFormat = "%w: %s"
	errorSplitSizeFormat        = "parse split size %q: %w"
	errorTokenizerFormat        = "initialize tokenizer: %w"
	errorBuildTreeFormat        = "build tree for %s: %w"
	errorCollectFormat          = "collect files for %s: %w"
	errorRenderFormat           = "render %s output: %w"
)

// ErrInvalidDirectory is returned when a requested directory does not exist or
// is not a directory.
var ErrInvalidDirectory = errors.New("invalid directory")

// Request describes one pack operation. Configuration must already be merged
// with config.DefaultConfiguration.
type Request struct {
	Directories         []string
	Configuration       config.ApplicationConfiguration
	CommandLinePatterns []string
}

// Result is the outcome of Pack. Exactly one of Output and Parts is set
// unless the split produced no parts.
type Result struct {
	Style       string
	Destination string
	Output      string
	Parts       []split.Part
	Split       bool
	Files       []document.ProcessedFile
	AllPaths    []string
	Totals      document.Totals
	TokenTree   string
}

// Session owns the caches shared by consecutive Pack calls. It is safe for
// concurrent use.
type Session struct {
	matchCache   *filetree.MatchCache
	changeCounts *gitmeta.ChangeCountCache
	gitClient    *gitmeta.Client
	tokenizers   *tokenizer.Registry
	compressor   *compress.Compressor
	logger       *zap.Logger
}

// NewSession creates a Session with empty caches.
func NewSession(logger *zap.Logger) (*Session, error) {
	matchCache, cacheError := filetree.NewMatchCache(filetree.DefaultMatchCacheSize)
	if cacheError != nil {
		return nil, cacheError
	}
	logger = utils.LoggerOrNop(logger)
	gitClient := gitmeta.NewClient(logger)
	return &Session{
		matchCache:   matchCache,
		changeCounts: gitmeta.NewChangeCountCache(gitClient),
		gitClient:    gitClient,
		tokenizers:   tokenizer.NewRegistry(),
		compressor:   compress.New(),
		logger:       logger,
	}, nil
}

// Clear empties the glob match cache and the change count cache.
func (session *Session) Clear() {
	session.matchCache.Clear()
	session.changeCounts.Clear()
}

// CacheSizes reports the number of entries held by the match and change count caches.
func (session *Session) CacheSizes() (int, int) {
	return session.matchCache.Len(), session.changeCounts.Len()
}

// Pack runs the pipeline for request. Configuration problems are reported
// before any directory is read.
func (session *Session) Pack(ctx context.Context, request Request) (Result, error) {
	configuration := request.Configuration
	outputConfiguration := configuration.Output

	renderer, rendererError := output.NewRenderer(outputConfiguration.Style)
	if rendererError != nil {
		return Result{}, rendererError
	}
	splitMaxBytes := 0
	if strings.TrimSpace(outputConfiguration.SplitOutput) != "" {
		parsedSize, parseError := utils.ParseByteSize(outputConfiguration.SplitOutput)
		if parseError != nil {
			return Result{}, fmt.Errorf(errorSplitSizeFormat, outputConfiguration.SplitOutput, parseError)
		}
		splitMaxBytes = parsedSize
	}
	directories, directoryError := validateDirectories(request.Directories)
	if directoryError != nil {
		return Result{}, directoryError
	}
	var counter tokenizer.Counter
	if config.BoolValue(configuration.Tokens.Enabled) {
		registryCounter, counterError := session.tokenizers.Counter(configuration.Tokens.Model)
		if counterError != nil {
			return Result{}, fmt.Errorf(errorTokenizerFormat, counterError)
		}
		counter = registryCounter
	}
	destination := ResolveDestination(outputConfiguration.FilePath, renderer.Style())

	var files []document.ProcessedFile
	var allPaths []string
	var emptyDirectories []string
	fullTree := filetree.Directory{}
	prefixes := directoryPrefixes(directories)
	for directoryIndex, directory := range directories {
		session.logger.Debug(logMessagePacking, zap.String("directory", directory))
		collected, packError := session.collectDirectory(ctx, directory, request, counter, destination)
		if packError != nil {
			return Result{}, packError
		}
		prefix := prefixes[directoryIndex]
		files = append(files, prefixFiles(collected.files, prefix)...)
		allPaths = append(allPaths, prefixPaths(collected.allPaths, prefix)...)
		emptyDirectories = append(emptyDirectories, prefixPaths(collected.emptyDirectories, prefix)...)
		if collected.fullTree != nil {
			mergeTree(fullTree, collected.fullTree, prefix)
		}
	}

	primaryDirectory := directories[0]
	gitConfiguration := outputConfiguration.Git
	if config.BoolValue(gitConfiguration.SortByChanges) && len(directories) == 1 {
		files = session.changeCounts.SortFiles(ctx, primaryDirectory, config.IntValue(gitConfiguration.SortByChangesMaxCommits, gitmeta.DefaultMaxCommits), files)
	}
	var diff *document.GitDiff
	if config.BoolValue(gitConfiguration.IncludeDiffs) {
		gitDiff, diffError := session.gitClient.Diff(ctx, primaryDirectory)
		if diffError != nil {
			session.logger.Debug(logMessageGitDiffSkipped, zap.String("directory", primaryDirectory), zap.Error(diffError))
		}
		diff = gitDiff
	}
	var gitLog *document.GitLog
	if config.BoolValue(gitConfiguration.IncludeLogs) {
		commitLog, logError := session.gitClient.Log(ctx, primaryDirectory, config.IntValue(gitConfiguration.IncludeLogsCount, defaultGitLogCommitCap))
		if logError != nil {
			session.logger.Debug(logMessageGitLogSkipped, zap.String("directory", primaryDirectory), zap.Error(logError))
		}
		gitLog = commitLog
	}

	documentOptions := DocumentOptions(configuration)
	documentOptions.EmptyDirectories = emptyDirectories
	result := Result{
		Style:       renderer.Style(),
		Destination: destination,
		Files:       files,
		AllPaths:    allPaths,
	}
	if !documentOptions.FullDirectoryStructure {
		fullTree = nil
	}
	model := document.Build(files, fullTree, documentOptions, diff, gitLog)
	result.Totals = model.Totals

	if splitMaxBytes > 0 {
		parts, planError := split.Plan(ctx, split.Input{Files: files, AllPaths: allPaths, Diff: diff, Log: gitLog}, split.Options{
			MaxBytes:        splitMaxBytes,
			BaseDestination: destination,
			Document:        documentOptions,
			Logger:          session.logger,
		}, renderer)
		if planError != nil {
			return Result{}, planError
		}
		result.Split = true
		result.Parts = parts
	} else {
		rendered, renderError := renderer.Render(model)
		if renderError != nil {
			return Result{}, fmt.Errorf(errorRenderFormat, renderer.Style(), renderError)
		}
		result.Output = rendered
	}

	if minimumTokens := config.IntValue(outputConfiguration.TokenCountTree, -1); minimumTokens >= 0 {
		result.TokenTree = tokentree.Report(collect.TokenCounts(files), minimumTokens)
	}
	session.logger.Debug(logMessagePacked, zap.Int("files", result.Totals.Files), zap.Int("parts", len(result.Parts)))
	return result, nil
}

type directoryCollection struct {
	files            []document.ProcessedFile
	allPaths         []string
	fullTree         filetree.Directory
	emptyDirectories []string
}

func (session *Session) collectDirectory(ctx context.Context, directory string, request Request, counter tokenizer.Counter, destination string) (directoryCollection, error) {
	configuration := request.Configuration
	commandLinePatterns := append(append([]string{}, request.CommandLinePatterns...), outputExclusionPatterns(directory, destination)...)
	patternSet := config.ResolvePatterns(directory, config.PatternOptions{
		UseDefaultPatterns:  config.BoolValue(configuration.Ignore.UseDefaultPatterns),
		UseGitignore:        config.BoolValue(configuration.Ignore.UseGitignore),
		UseDotIgnore:        config.BoolValue(configuration.Ignore.UseDotIgnore),
		CustomPatterns:      configuration.Ignore.CustomPatterns,
		CommandLinePatterns: commandLinePatterns,
	}, session.logger)

	includeEmptyDirectories := config.BoolValue(configuration.Output.IncludeEmptyDirectories)
	builder := filetree.Builder{
		Matcher:                 filetree.NewMatcher(patternSet.Patterns(), session.matchCache),
		IncludeEmptyDirectories: includeEmptyDirectories,
		Logger:                  session.logger,
	}
	filteredTree, buildError := builder.BuildFiltered(ctx, directory)
	if buildError != nil {
		return directoryCollection{}, fmt.Errorf(errorBuildTreeFormat, directory, buildError)
	}
	var fullTree filetree.Directory
	if config.BoolValue(configuration.Output.IncludeFullDirectoryStructure) {
		fullTree, buildError = filetree.BuildFull(ctx, directory, session.logger)
		if buildError != nil {
			return directoryCollection{}, fmt.Errorf(errorBuildTreeFormat, directory, buildError)
		}
	}

	collectOptions := collect.Options{Counter: counter, Logger: session.logger}
	if config.BoolValue(configuration.Output.Compress) {
		collectOptions.Compressor = session.compressor
	}
	collected, collectError := collect.Collect(ctx, directory, filteredTree, collectOptions)
	if collectError != nil {
		return directoryCollection{}, fmt.Errorf(errorCollectFormat, directory, collectError)
	}
	result := directoryCollection{files: collected.Files, allPaths: collected.AllPaths, fullTree: fullTree}
	if includeEmptyDirectories {
		result.emptyDirectories = filetree.EmptyDirectoryPaths(filteredTree)
	}
	return result, nil
}

// DocumentOptions derives render options from a merged configuration.
func DocumentOptions(configuration config.ApplicationConfiguration) document.Options {
	outputConfiguration := configuration.Output
	return document.Options{
		HeaderText:             outputConfiguration.HeaderText,
		FileSummary:            config.BoolValue(outputConfiguration.FileSummary),
		DirectoryStructure:     config.BoolValue(outputConfiguration.DirectoryStructure),
		Files:                  config.BoolValue(outputConfiguration.Files),
		ShowFileStats:          config.BoolValue(outputConfiguration.ShowFileStats),
		FullDirectoryStructure: config.BoolValue(outputConfiguration.IncludeFullDirectoryStructure),
		TokenCounting:          config.BoolValue(configuration.Tokens.Enabled),
		IncludeDiffs:           config.BoolValue(outputConfiguration.Git.IncludeDiffs),
		IncludeLogs:            config.BoolValue(outputConfiguration.Git.IncludeLogs),
	}
}

// ResolveDestination returns the output path. The default file name takes the
// extension of the selected style.
func ResolveDestination(filePath string, style string) string {
	if filePath == "" || filePath == utils.DefaultOutputFileName {
		return strings.TrimSuffix(utils.DefaultOutputFileName, filepath.Ext(utils.DefaultOutputFileName)) + output.FileExtension(style)
	}
	return filePath
}

func validateDirectories(directories []string) ([]string, error) {
	if len(directories) == 0 {
		directories = []string{currentDirectory}
	}
	absoluteDirectories := make([]string, 0, len(directories))
	for _, directory := range directories {
		absoluteDirectory, absoluteError := filepath.Abs(directory)
		if absoluteError != nil {
			return nil, fmt.Errorf(errorInvalidDirectoryFormat, ErrInvalidDirectory, directory)
		}
		directoryInformation, statError := os.Stat(absoluteDirectory)
		if statError != nil || !directoryInformation.IsDir() {
			return nil, fmt.Errorf(errorInvalidDirectoryFormat, ErrInvalidDirectory, directory)
		}
		absoluteDirectories = append(absoluteDirectories, absoluteDirectory)
	}
	return absoluteDirectories, nil
}

// outputExclusionPatterns keeps the output file and its split parts out of
// the pack when they live inside directory.
func outputExclusionPatterns(directory string, destination string) []string {
	absoluteDestination, absoluteError := filepath.Abs(destination)
	if absoluteError != nil {
		return nil
	}
	relativeDestination, relativeError := filepath.Rel(directory, absoluteDestination)
	if relativeError != nil || strings.HasPrefix(relativeDestination, "..") {
		return nil
	}
	relativeDestination = filepath.ToSlash(relativeDestination)
	extension := path.Ext(relativeDestination)
	stem := strings.TrimSuffix(relativeDestination, extension)
	return []string{"/" + relativeDestination, "/" + stem + ".*" + extension}
}

// directoryPrefixes names each packed directory by its base name when more
// than one directory is packed. Repeated base names get a numeric suffix.
func directoryPrefixes(directories []string) []string {
	prefixes := make([]string, len(directories))
	if len(directories) < 2 {
		return prefixes
	}
	usedPrefixes := make(map[string]bool, len(directories))
	for _, directory := range directories {
		usedPrefixes[filepath.Base(directory)] = true
	}
	assignedPrefixes := make(map[string]bool, len(directories))
	for directoryIndex, directory := range directories {
		baseName := filepath.Base(directory)
		prefix := baseName
		for suffix := 2; assignedPrefixes[prefix]; suffix++ {
			prefix = fmt.Sprintf(directoryPrefixFormat, baseName, suffix)
			if usedPrefixes[prefix] {
				prefix = baseName
			}
		}
		assignedPrefixes[prefix] = true
		prefixes[directoryIndex] = prefix
	}
	return prefixes
}

func prefixFiles(files []document.ProcessedFile, prefix string) []document.ProcessedFile {
	if prefix == "" {
		return files
	}
	prefixed := make([]document.ProcessedFile, len(files))
	for fileIndex, file := range files {
		file.Path = prefix + "/" + file.Path
		prefixed[fileIndex] = file
	}
	return prefixed
}

func prefixPaths(paths []string, prefix string) []string {
	if prefix == "" {
		return paths
	}
	prefixed := make([]string, len(paths))
	for pathIndex, relativePath := range paths {
		prefixed[pathIndex] = prefix + "/" + relativePath
	}
	return prefixed
}

func mergeTree(target filetree.Directory, source filetree.Directory, prefix string) {
	if prefix == "" {
		for name, node := range source {
			target[name] = node
		}
		return
	}
	target[prefix] = source
}
