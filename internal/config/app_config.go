package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/repopack/internal/utils"
)

const (
	defaultOutputStyle             = "xml"
	defaultTokenizerModel          = "gpt-4o"
	defaultIncludeLogsCount        = 50
	defaultSortByChangesMaxCommits = 100
	defaultServerAddress           = "127.0.0.1:8765"

	errorWorkingDirectoryFormat      = "determine working directory: %w"
	errorResolveConfigPathFormat     = "resolve configuration path %s: %w"
	errorStatConfigurationFormat     = "stat configuration %s: %w"
	errorConfigurationIsDirFormat    = "configuration path %s is a directory"
	errorReadConfigurationFormat     = "read configuration from %s: %w"
	errorDecodeConfigurationFormat   = "decode configuration from %s: %w"
	errorExplicitConfigMissingFormat = "configuration file %s does not exist"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds every configurable default. Optional values
// are pointers so that a later source only overrides what it sets.
type ApplicationConfiguration struct {
	Output OutputConfiguration `mapstructure:"output" yaml:"output"`
	Ignore IgnoreConfiguration `mapstructure:"ignore" yaml:"ignore"`
	Tokens TokenConfiguration  `mapstructure:"tokens" yaml:"tokens"`
	Server ServerConfiguration `mapstructure:"server" yaml:"server"`
}

// OutputConfiguration controls how the packed document is rendered and written.
type OutputConfiguration struct {
	FilePath                      string           `mapstructure:"file_path" yaml:"file_path"`
	Style                         string           `mapstructure:"style" yaml:"style"`
	HeaderText                    string           `mapstructure:"header_text" yaml:"header_text"`
	FileSummary                   *bool            `mapstructure:"file_summary" yaml:"file_summary"`
	DirectoryStructure            *bool            `mapstructure:"directory_structure" yaml:"directory_structure"`
	Files                         *bool            `mapstructure:"files" yaml:"files"`
	ShowFileStats                 *bool            `mapstructure:"show_file_stats" yaml:"show_file_stats"`
	IncludeEmptyDirectories       *bool            `mapstructure:"include_empty_directories" yaml:"include_empty_directories"`
	IncludeFullDirectoryStructure *bool            `mapstructure:"include_full_directory_structure" yaml:"include_full_directory_structure"`
	TokenCountTree                *int             `mapstructure:"token_count_tree" yaml:"token_count_tree"`
	SplitOutput                   string           `mapstructure:"split_output" yaml:"split_output"`
	CopyToClipboard               *bool            `mapstructure:"copy_to_clipboard" yaml:"copy_to_clipboard"`
	Compress                      *bool            `mapstructure:"compress" yaml:"compress"`
	Git                           GitConfiguration `mapstructure:"git" yaml:"git"`
}

// GitConfiguration controls version-control sections and ordering.
type GitConfiguration struct {
	IncludeDiffs            *bool `mapstructure:"include_diffs" yaml:"include_diffs"`
	IncludeLogs             *bool `mapstructure:"include_logs" yaml:"include_logs"`
	IncludeLogsCount        *int  `mapstructure:"include_logs_count" yaml:"include_logs_count"`
	SortByChanges           *bool `mapstructure:"sort_by_changes" yaml:"sort_by_changes"`
	SortByChangesMaxCommits *int  `mapstructure:"sort_by_changes_max_commits" yaml:"sort_by_changes_max_commits"`
}

// IgnoreConfiguration selects ignore pattern sources.
type IgnoreConfiguration struct {
	CustomPatterns     []string `mapstructure:"custom_patterns" yaml:"custom_patterns"`
	UseGitignore       *bool    `mapstructure:"use_gitignore" yaml:"use_gitignore"`
	UseDotIgnore       *bool    `mapstructure:"use_dot_ignore" yaml:"use_dot_ignore"`
	UseDefaultPatterns *bool    `mapstructure:"use_default_patterns" yaml:"use_default_patterns"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled" yaml:"enabled"`
	Model   string `mapstructure:"model" yaml:"model"`
}

// ServerConfiguration controls the HTTP server mode.
type ServerConfiguration struct {
	Address string `mapstructure:"address" yaml:"address"`
}

// DefaultConfiguration returns a configuration with every optional value set.
func DefaultConfiguration() ApplicationConfiguration {
	return ApplicationConfiguration{
		Output: OutputConfiguration{
			FilePath:                      utils.DefaultOutputFileName,
			Style:                         defaultOutputStyle,
			FileSummary:                   BoolPointer(true),
			DirectoryStructure:            BoolPointer(true),
			Files:                         BoolPointer(true),
			ShowFileStats:                 BoolPointer(false),
			IncludeEmptyDirectories:       BoolPointer(false),
			IncludeFullDirectoryStructure: BoolPointer(false),
			TokenCountTree:                IntPointer(-1),
			CopyToClipboard:               BoolPointer(false),
			Compress:                      BoolPointer(false),
			Git: GitConfiguration{
				IncludeDiffs:            BoolPointer(false),
				IncludeLogs:             BoolPointer(false),
				IncludeLogsCount:        IntPointer(defaultIncludeLogsCount),
				SortByChanges:           BoolPointer(true),
				SortByChangesMaxCommits: IntPointer(defaultSortByChangesMaxCommits),
			},
		},
		Ignore: IgnoreConfiguration{
			CustomPatterns:     []string{},
			UseGitignore:       BoolPointer(true),
			UseDotIgnore:       BoolPointer(true),
			UseDefaultPatterns: BoolPointer(true),
		},
		Tokens: TokenConfiguration{
			Enabled: BoolPointer(true),
			Model:   defaultTokenizerModel,
		},
		Server: ServerConfiguration{
			Address: defaultServerAddress,
		},
	}
}

// LoadApplicationConfiguration loads configuration from the global file and
// then the local or explicit file, later files overriding earlier ones.
// The result does not include DefaultConfiguration values.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return ApplicationConfiguration{}, fmt.Errorf(errorWorkingDirectoryFormat, workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, homeError := os.UserHomeDir(); homeError == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfiguration, loadError := loadConfigurationFromPath(globalPath)
		if loadError != nil {
			return ApplicationConfiguration{}, loadError
		}
		merged = merged.Merge(globalConfiguration)
	}

	localPath, resolveError := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveError != nil {
		return ApplicationConfiguration{}, resolveError
	}
	if options.ExplicitFilePath != "" {
		if _, statError := os.Stat(localPath); os.IsNotExist(statError) {
			return ApplicationConfiguration{}, fmt.Errorf(errorExplicitConfigMissingFormat, localPath)
		}
	}
	localConfiguration, loadError := loadConfigurationFromPath(localPath)
	if loadError != nil {
		return ApplicationConfiguration{}, loadError
	}
	merged = merged.Merge(localConfiguration)
	merged.Ignore.CustomPatterns = utils.DeduplicatePatterns(merged.Ignore.CustomPatterns)
	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.ConfigFileName), nil
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath, nil
	}
	if workingDirectory == "" {
		absolutePath, absoluteError := filepath.Abs(explicitPath)
		if absoluteError != nil {
			return "", fmt.Errorf(errorResolveConfigPathFormat, explicitPath, absoluteError)
		}
		return absolutePath, nil
	}
	return filepath.Join(workingDirectory, explicitPath), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	fileInformation, statError := os.Stat(path)
	if statError != nil {
		if os.IsNotExist(statError) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf(errorStatConfigurationFormat, path, statError)
	}
	if fileInformation.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf(errorConfigurationIsDirFormat, path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readError := reader.ReadInConfig(); readError != nil {
		return ApplicationConfiguration{}, fmt.Errorf(errorReadConfigurationFormat, path, readError)
	}
	var configuration ApplicationConfiguration
	if decodeError := reader.Unmarshal(&configuration); decodeError != nil {
		return ApplicationConfiguration{}, fmt.Errorf(errorDecodeConfigurationFormat, path, decodeError)
	}
	return configuration, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (configuration ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := configuration
	result.Output = result.Output.merge(override.Output)
	result.Ignore = result.Ignore.merge(override.Ignore)
	result.Tokens = result.Tokens.merge(override.Tokens)
	if override.Server.Address != "" {
		result.Server.Address = override.Server.Address
	}
	return result
}

func (configuration OutputConfiguration) merge(override OutputConfiguration) OutputConfiguration {
	result := configuration
	if override.FilePath != "" {
		result.FilePath = override.FilePath
	}
	if override.Style != "" {
		result.Style = override.Style
	}
	if override.HeaderText != "" {
		result.HeaderText = override.HeaderText
	}
	if override.SplitOutput != "" {
		result.SplitOutput = override.SplitOutput
	}
	result.FileSummary = overrideBool(result.FileSummary, override.FileSummary)
	result.DirectoryStructure = overrideBool(result.DirectoryStructure, override.DirectoryStructure)
	result.Files = overrideBool(result.Files, override.Files)
	result.ShowFileStats = overrideBool(result.ShowFileStats, override.ShowFileStats)
	result.IncludeEmptyDirectories = overrideBool(result.IncludeEmptyDirectories, override.IncludeEmptyDirectories)
	result.IncludeFullDirectoryStructure = overrideBool(result.IncludeFullDirectoryStructure, override.IncludeFullDirectoryStructure)
	result.TokenCountTree = overrideInt(result.TokenCountTree, override.TokenCountTree)
	result.CopyToClipboard = overrideBool(result.CopyToClipboard, override.CopyToClipboard)
	result.Compress = overrideBool(result.Compress, override.Compress)
	result.Git = result.Git.merge(override.Git)
	return result
}

func (configuration GitConfiguration) merge(override GitConfiguration) GitConfiguration {
	result := configuration
	result.IncludeDiffs = overrideBool(result.IncludeDiffs, override.IncludeDiffs)
	result.IncludeLogs = overrideBool(result.IncludeLogs, override.IncludeLogs)
	result.IncludeLogsCount = overrideInt(result.IncludeLogsCount, override.IncludeLogsCount)
	result.SortByChanges = overrideBool(result.SortByChanges, override.SortByChanges)
	result.SortByChangesMaxCommits = overrideInt(result.SortByChangesMaxCommits, override.SortByChangesMaxCommits)
	return result
}

func (configuration IgnoreConfiguration) merge(override IgnoreConfiguration) IgnoreConfiguration {
	result := configuration
	if len(override.CustomPatterns) > 0 {
		result.CustomPatterns = append(append([]string{}, result.CustomPatterns...), override.CustomPatterns...)
	}
	result.UseGitignore = overrideBool(result.UseGitignore, override.UseGitignore)
	result.UseDotIgnore = overrideBool(result.UseDotIgnore, override.UseDotIgnore)
	result.UseDefaultPatterns = overrideBool(result.UseDefaultPatterns, override.UseDefaultPatterns)
	return result
}

func (configuration TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := configuration
	result.Enabled = overrideBool(result.Enabled, override.Enabled)
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

// BoolPointer returns a pointer to a copy of value.
func BoolPointer(value bool) *bool {
	return &value
}

// IntPointer returns a pointer to a copy of value.
func IntPointer(value int) *int {
	return &value
}

// BoolValue dereferences value, treating nil as false.
func BoolValue(value *bool) bool {
	return value != nil && *value
}

// IntValue dereferences value, treating nil as fallback.
func IntValue(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}

func overrideBool(current *bool, override *bool) *bool {
	if override == nil {
		return current
	}
	return BoolPointer(*override)
}

func overrideInt(current *int, override *int) *int {
	if override == nil {
		return current
	}
	return IntPointer(*override)
}
