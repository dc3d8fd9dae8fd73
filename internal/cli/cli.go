// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/repopack/internal/config"
	"github.com/temirov/repopack/internal/output"
	"github.com/temirov/repopack/internal/packer"
	"github.com/temirov/repopack/internal/services/clipboard"
	"github.com/temirov/repopack/internal/utils"
)

const (
	rootUse              = utils.ApplicationName + " [directories...]"
	rootShortDescription = "pack a repository into a single document"
	rootLongDescription  = `repopack assembles a source tree into one deterministic document for language models.
Ignore rules come from built-in defaults, .gitignore, .ignore, configuration and --ignore.
Use --style to select xml, markdown, plain or json output and --split-output to
divide large results into size-bounded parts.`
	rootUsageExample = `  # Pack the current directory as XML
  repopack

  # Pack two directories as markdown to stdout
  repopack --style markdown --stdout ./api ./web

  # Split the output into parts of at most 2 MiB
  repopack --split-output 2mb -o bundle.xml`

	styleFlagName                         = "style"
	outputFlagName                        = "output"
	outputFlagShorthand                   = "o"
	stdoutFlagName                        = "stdout"
	copyFlagName                          = "copy"
	headerTextFlagName                    = "header-text"
	noFileSummaryFlagName                 = "no-file-summary"
	noDirectoryStructureFlagName          = "no-directory-structure"
	noFilesFlagName                       = "no-files"
	includeFullDirectoryStructureFlagName = "include-full-directory-structure"
	includeEmptyDirectoriesFlagName       = "include-empty-directories"
	showFileStatsFlagName                 = "show-file-stats"
	noTokensFlagName                      = "no-tokens"
	modelFlagName                         = "model"
	tokenCountTreeFlagName                = "token-count-tree"
	splitOutputFlagName                   = "split-output"
	includeDiffsFlagName                  = "include-diffs"
	includeLogsFlagName                   = "include-logs"
	includeLogsCountFlagName              = "include-logs-count"
	sortByChangesFlagName                 = "sort-by-changes"
	compressFlagName                      = "compress"
	noGitignoreFlagName                   = "no-gitignore"
	noDotIgnoreFlagName                   = "no-dot-ignore"
	noDefaultPatternsFlagName             = "no-default-patterns"
	ignoreFlagName                        = "ignore"
	ignoreFlagShorthand                   = "i"
	configFlagName                        = "config"
	quietFlagName                         = "quiet"
	versionFlagName                       = "version"

	styleFlagDescription                         = "output style: xml, markdown, plain or json"
	outputFlagDescription                        = "output file path"
	stdoutFlagDescription                        = "write output to standard output instead of a file"
	copyFlagDescription                          = "copy output to the clipboard"
	headerTextFlagDescription                    = "text to include in the file header"
	noFileSummaryFlagDescription                 = "omit the file summary section"
	noDirectoryStructureFlagDescription          = "omit the directory structure section"
	noFilesFlagDescription                       = "omit file contents"
	includeFullDirectoryStructureFlagDescription = "show the complete directory tree, including ignored entries"
	includeEmptyDirectoriesFlagDescription       = "keep empty directories in the structure"
	showFileStatsFlagDescription                 = "show character and token counts for each file"
	noTokensFlagDescription                      = "disable token counting"
	modelFlagDescription                         = "tokenizer model used for token counting"
	tokenCountTreeFlagDescription                = "print a token count tree, optionally only for entries with at least N tokens"
	splitOutputFlagDescription                   = "split output into parts no larger than the given size (e.g. 500kb, 2mb)"
	includeDiffsFlagDescription                  = "include git work tree and staged diffs"
	includeLogsFlagDescription                   = "include the git commit log"
	includeLogsCountFlagDescription              = "number of commits to include with --include-logs"
	sortByChangesFlagDescription                 = "order files by git change frequency"
	compressFlagDescription                      = "keep only signatures, types and comments of supported source files"
	noGitignoreFlagDescription                   = "do not use .gitignore"
	noDotIgnoreFlagDescription                   = "do not use .ignore"
	noDefaultPatternsFlagDescription             = "do not use the built-in ignore patterns"
	ignoreFlagDescription                        = "additional ignore pattern (repeatable, comma separated)"
	configFlagDescription                        = "path to a configuration file"
	quietFlagDescription                         = "suppress all output except errors"
	versionFlagDescription                       = "display application version"

	versionTemplate         = utils.ApplicationName + " version: %s\n"
	summaryFormat           = "Packed %s files (%s characters, %s tokens) into %s (%s)\n"
	summaryPartFormat       = "  %s (%s)\n"
	summarySplitFormat      = "Packed %s files (%s characters, %s tokens) into %d parts:\n"
	ignorePatternSeparator  = ","
	outputFilePermissions   = 0o644
	outputDirectoryMode     = 0o755
	logMessageCopyFailed    = "failed to copy output to clipboard"
	logMessageCopied        = "copied output to clipboard"
	logMessageConfiguration = "loaded configuration"

	errorWorkingDirectoryFormat = "unable to determine working directory: %w"
	errorWriteOutputFormat      = "write output %s: %w"
	errorFlagConflictFormat     = "%w: --%s cannot be used with --%s"
)

// ErrConflictingFlags is returned when mutually exclusive options are combined.
var ErrConflictingFlags = errors.New("conflicting options")

// Dependencies carries the collaborators used by the commands.
type Dependencies struct {
	Logger           *zap.Logger
	LogLevel         *zap.AtomicLevel
	Stdout           io.Writer
	Stderr           io.Writer
	Clipboard        clipboard.Copier
	WorkingDirectory string
}

func (dependencies Dependencies) normalized() (Dependencies, error) {
	normalized := dependencies
	normalized.Logger = utils.LoggerOrNop(normalized.Logger)
	if normalized.Stdout == nil {
		normalized.Stdout = os.Stdout
	}
	if normalized.Stderr == nil {
		normalized.Stderr = os.Stderr
	}
	if normalized.Clipboard == nil {
		normalized.Clipboard = clipboard.NewService()
	}
	if normalized.WorkingDirectory == "" {
		workingDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return Dependencies{}, fmt.Errorf(errorWorkingDirectoryFormat, workingDirectoryError)
		}
		normalized.WorkingDirectory = workingDirectory
	}
	return normalized, nil
}

// Execute runs the repopack application.
func Execute(ctx context.Context, dependencies Dependencies) error {
	rootCommand, commandError := NewRootCommand(dependencies)
	if commandError != nil {
		return commandError
	}
	arguments := normalizeBooleanFlagArguments(rootCommand, os.Args[1:])
	arguments = normalizeThresholdFlagArguments(rootCommand, arguments)
	rootCommand.SetArgs(arguments)
	return rootCommand.ExecuteContext(ctx)
}

// packFlags holds the values of the pack flags. Pointer fields stay nil
// unless the flag is given.
type packFlags struct {
	style                         string
	outputPath                    string
	stdout                        bool
	copyToClipboard               *bool
	headerText                    string
	fileSummary                   *bool
	directoryStructure            *bool
	files                         *bool
	includeFullDirectoryStructure *bool
	includeEmptyDirectories       *bool
	showFileStats                 *bool
	tokens                        *bool
	model                         string
	tokenCountTree                *int
	splitOutput                   string
	includeDiffs                  *bool
	includeLogs                   *bool
	includeLogsCount              int
	sortByChanges                 *bool
	compress                      *bool
	useGitignore                  *bool
	useDotIgnore                  *bool
	useDefaultPatterns            *bool
	ignorePatterns                []string
	configPath                    string
	quiet                         bool
	showVersion                   bool
}

// NewRootCommand builds the root Cobra command and its subcommands.
func NewRootCommand(dependencies Dependencies) (*cobra.Command, error) {
	normalizedDependencies, dependencyError := dependencies.normalized()
	if dependencyError != nil {
		return nil, dependencyError
	}
	var flags packFlags

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if flags.quiet && normalizedDependencies.LogLevel != nil {
				normalizedDependencies.LogLevel.SetLevel(zapcore.ErrorLevel)
			}
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			if flags.showVersion {
				_, printError := fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return printError
			}
			return runPack(command.Context(), normalizedDependencies, flags, arguments)
		},
	}
	rootCommand.SetOut(normalizedDependencies.Stdout)
	rootCommand.SetErr(normalizedDependencies.Stderr)

	flagSet := rootCommand.Flags()
	flagSet.StringVar(&flags.style, styleFlagName, "", styleFlagDescription)
	flagSet.StringVarP(&flags.outputPath, outputFlagName, outputFlagShorthand, "", outputFlagDescription)
	flagSet.BoolVar(&flags.stdout, stdoutFlagName, false, stdoutFlagDescription)
	registerOptionalBooleanFlag(flagSet, &flags.copyToClipboard, copyFlagName, copyFlagDescription)
	flagSet.StringVar(&flags.headerText, headerTextFlagName, "", headerTextFlagDescription)
	registerInvertedBooleanFlag(flagSet, &flags.fileSummary, noFileSummaryFlagName, noFileSummaryFlagDescription)
	registerInvertedBooleanFlag(flagSet, &flags.directoryStructure, noDirectoryStructureFlagName, noDirectoryStructureFlagDescription)
	registerInvertedBooleanFlag(flagSet, &flags.files, noFilesFlagName, noFilesFlagDescription)
	registerOptionalBooleanFlag(flagSet, &flags.includeFullDirectoryStructure, includeFullDirectoryStructureFlagName, includeFullDirectoryStructureFlagDescription)
	registerOptionalBooleanFlag(flagSet, &flags.includeEmptyDirectories, includeEmptyDirectoriesFlagName, includeEmptyDirectoriesFlagDescription)
	registerOptionalBooleanFlag(flagSet, &flags.showFileStats, showFileStatsFlagName, showFileStatsFlagDescription)
	registerInvertedBooleanFlag(flagSet, &flags.tokens, noTokensFlagName, noTokensFlagDescription)
	flagSet.StringVar(&flags.model, modelFlagName, "", modelFlagDescription)
	registerThresholdFlag(flagSet, &flags.tokenCountTree, tokenCountTreeFlagName, tokenCountTreeFlagDescription)
	flagSet.StringVar(&flags.splitOutput, splitOutputFlagName, "", splitOutputFlagDescription)
	registerOptionalBooleanFlag(flagSet, &flags.includeDiffs, includeDiffsFlagName, includeDiffsFlagDescription)
	registerOptionalBooleanFlag(flagSet, &flags.includeLogs, includeLogsFlagName, includeLogsFlagDescription)
	flagSet.IntVar(&flags.includeLogsCount, includeLogsCountFlagName, 0, includeLogsCountFlagDescription)
	registerOptionalBooleanFlag(flagSet, &flags.sortByChanges, sortByChangesFlagName, sortByChangesFlagDescription)
	registerOptionalBooleanFlag(flagSet, &flags.compress, compressFlagName, compressFlagDescription)
	registerInvertedBooleanFlag(flagSet, &flags.useGitignore, noGitignoreFlagName, noGitignoreFlagDescription)
	registerInvertedBooleanFlag(flagSet, &flags.useDotIgnore, noDotIgnoreFlagName, noDotIgnoreFlagDescription)
	registerInvertedBooleanFlag(flagSet, &flags.useDefaultPatterns, noDefaultPatternsFlagName, noDefaultPatternsFlagDescription)
	flagSet.StringArrayVarP(&flags.ignorePatterns, ignoreFlagName, ignoreFlagShorthand, nil, ignoreFlagDescription)
	rootCommand.PersistentFlags().StringVar(&flags.configPath, configFlagName, "", configFlagDescription)
	rootCommand.PersistentFlags().BoolVar(&flags.quiet, quietFlagName, false, quietFlagDescription)
	flagSet.BoolVar(&flags.showVersion, versionFlagName, false, versionFlagDescription)

	rootCommand.AddCommand(
		createInitCommand(normalizedDependencies),
		createServeCommand(normalizedDependencies, &flags),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand, nil
}

// overrides converts the given flags into a configuration overlay.
func (flags packFlags) overrides() config.ApplicationConfiguration {
	overlay := config.ApplicationConfiguration{
		Output: config.OutputConfiguration{
			FilePath:                      flags.outputPath,
			Style:                         flags.style,
			HeaderText:                    flags.headerText,
			FileSummary:                   flags.fileSummary,
			DirectoryStructure:            flags.directoryStructure,
			Files:                         flags.files,
			ShowFileStats:                 flags.showFileStats,
			IncludeEmptyDirectories:       flags.includeEmptyDirectories,
			IncludeFullDirectoryStructure: flags.includeFullDirectoryStructure,
			TokenCountTree:                flags.tokenCountTree,
			SplitOutput:                   flags.splitOutput,
			CopyToClipboard:               flags.copyToClipboard,
			Compress:                      flags.compress,
			Git: config.GitConfiguration{
				IncludeDiffs:  flags.includeDiffs,
				IncludeLogs:   flags.includeLogs,
				SortByChanges: flags.sortByChanges,
			},
		},
		Ignore: config.IgnoreConfiguration{
			UseGitignore:       flags.useGitignore,
			UseDotIgnore:       flags.useDotIgnore,
			UseDefaultPatterns: flags.useDefaultPatterns,
		},
		Tokens: config.TokenConfiguration{
			Enabled: flags.tokens,
			Model:   flags.model,
		},
	}
	if flags.includeLogsCount > 0 {
		overlay.Output.Git.IncludeLogsCount = config.IntPointer(flags.includeLogsCount)
	}
	return overlay
}

func (flags packFlags) commandLinePatterns() []string {
	var patterns []string
	for _, rawPattern := range flags.ignorePatterns {
		for _, pattern := range strings.Split(rawPattern, ignorePatternSeparator) {
			if trimmed := strings.TrimSpace(pattern); trimmed != "" {
				patterns = append(patterns, trimmed)
			}
		}
	}
	return patterns
}

// resolveConfiguration merges defaults, configuration files and flags, in
// that order of increasing precedence.
func resolveConfiguration(dependencies Dependencies, flags packFlags) (config.ApplicationConfiguration, error) {
	loaded, loadError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: dependencies.WorkingDirectory,
		ExplicitFilePath: flags.configPath,
	})
	if loadError != nil {
		return config.ApplicationConfiguration{}, loadError
	}
	merged := config.DefaultConfiguration().Merge(loaded).Merge(flags.overrides())
	dependencies.Logger.Debug(logMessageConfiguration, zap.String("style", merged.Output.Style), zap.String("file_path", merged.Output.FilePath))
	return merged, nil
}

func validateFlagConflicts(flags packFlags, configuration config.ApplicationConfiguration) error {
	if strings.TrimSpace(configuration.Output.SplitOutput) == "" {
		return nil
	}
	if flags.stdout {
		return fmt.Errorf(errorFlagConflictFormat, ErrConflictingFlags, splitOutputFlagName, stdoutFlagName)
	}
	if config.BoolValue(configuration.Output.CopyToClipboard) {
		return fmt.Errorf(errorFlagConflictFormat, ErrConflictingFlags, splitOutputFlagName, copyFlagName)
	}
	return nil
}

func runPack(ctx context.Context, dependencies Dependencies, flags packFlags, arguments []string) error {
	configuration, configurationError := resolveConfiguration(dependencies, flags)
	if configurationError != nil {
		return configurationError
	}
	if conflictError := validateFlagConflicts(flags, configuration); conflictError != nil {
		return conflictError
	}
	configuration.Output.FilePath = resolvePath(dependencies.WorkingDirectory, packer.ResolveDestination(configuration.Output.FilePath, configuration.Output.Style))
	directories := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		directories = append(directories, resolvePath(dependencies.WorkingDirectory, argument))
	}
	if len(directories) == 0 {
		directories = append(directories, dependencies.WorkingDirectory)
	}

	session, sessionError := packer.NewSession(dependencies.Logger)
	if sessionError != nil {
		return sessionError
	}
	result, packError := session.Pack(ctx, packer.Request{
		Directories:         directories,
		Configuration:       configuration,
		CommandLinePatterns: flags.commandLinePatterns(),
	})
	if packError != nil {
		return packError
	}
	destination := result.Destination

	reportWriter := dependencies.Stdout
	if flags.stdout {
		reportWriter = dependencies.Stderr
	}
	if result.Split {
		for _, part := range result.Parts {
			if writeError := writeOutputFile(part.Destination, part.Content); writeError != nil {
				return writeError
			}
		}
		if !flags.quiet {
			printSplitSummary(reportWriter, dependencies.WorkingDirectory, result)
		}
	} else {
		if flags.stdout {
			if _, writeError := io.WriteString(dependencies.Stdout, result.Output); writeError != nil {
				return fmt.Errorf(errorWriteOutputFormat, stdoutFlagName, writeError)
			}
		} else {
			if writeError := writeOutputFile(destination, result.Output); writeError != nil {
				return writeError
			}
			if !flags.quiet {
				printSummary(reportWriter, dependencies.WorkingDirectory, destination, result)
			}
		}
		if config.BoolValue(configuration.Output.CopyToClipboard) {
			if copyError := dependencies.Clipboard.Copy(result.Output); copyError != nil {
				dependencies.Logger.Warn(logMessageCopyFailed, zap.Error(copyError))
			} else {
				dependencies.Logger.Info(logMessageCopied)
			}
		}
	}
	if result.TokenTree != "" && !flags.quiet {
		_, _ = fmt.Fprintln(reportWriter, result.TokenTree)
	}
	return nil
}

func resolvePath(workingDirectory string, candidate string) string {
	if filepath.IsAbs(candidate) {
		return candidate
	}
	return filepath.Join(workingDirectory, candidate)
}

func writeOutputFile(destination string, content string) error {
	if mkdirError := os.MkdirAll(filepath.Dir(destination), outputDirectoryMode); mkdirError != nil {
		return fmt.Errorf(errorWriteOutputFormat, destination, mkdirError)
	}
	if writeError := os.WriteFile(destination, []byte(content), outputFilePermissions); writeError != nil {
		return fmt.Errorf(errorWriteOutputFormat, destination, writeError)
	}
	return nil
}

func printSummary(writer io.Writer, workingDirectory string, destination string, result packer.Result) {
	_, _ = fmt.Fprintf(writer, summaryFormat,
		humanize.Comma(int64(result.Totals.Files)),
		humanize.Comma(int64(result.Totals.Characters)),
		humanize.Comma(int64(result.Totals.Tokens)),
		utils.RelativePathOrSelf(destination, workingDirectory),
		utils.FormatFileSize(int64(len(result.Output))),
	)
}

func printSplitSummary(writer io.Writer, workingDirectory string, result packer.Result) {
	_, _ = fmt.Fprintf(writer, summarySplitFormat,
		humanize.Comma(int64(result.Totals.Files)),
		humanize.Comma(int64(result.Totals.Characters)),
		humanize.Comma(int64(result.Totals.Tokens)),
		len(result.Parts),
	)
	for _, part := range result.Parts {
		_, _ = fmt.Fprintf(writer, summaryPartFormat, utils.RelativePathOrSelf(part.Destination, workingDirectory), utils.FormatFileSize(int64(part.ByteLength)))
	}
}

func isConfigurationError(err error) bool {
	return errors.Is(err, output.ErrUnsupportedStyle) ||
		errors.Is(err, utils.ErrInvalidByteSize) ||
		errors.Is(err, packer.ErrInvalidDirectory) ||
		errors.Is(err, ErrConflictingFlags)
}
