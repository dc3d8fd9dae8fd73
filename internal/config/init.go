package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/temirov/repopack/internal/utils"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes configuration into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes configuration into the global configuration directory.
	InitTargetGlobal InitTarget = "global"

	configurationYAMLIndent = 2

	errorInitWorkingDirectoryFormat  = "determine working directory for configuration: %w"
	errorInitHomeDirectoryFormat     = "resolve home directory for configuration: %w"
	errorInitCreateDirectoryFormat   = "create configuration directory %s: %w"
	errorInitUnsupportedTargetFormat = "unsupported init target %q"
	errorInitExistsFormat            = "configuration file already exists at %s"
	errorInitInspectFormat           = "inspect configuration path %s: %w"
	errorInitEncodeFormat            = "encode default configuration: %w"
	errorInitWriteFormat             = "write configuration to %s: %w"
)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
}

// DefaultConfigurationYAML renders DefaultConfiguration as YAML.
func DefaultConfigurationYAML() ([]byte, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(configurationYAMLIndent)
	if encodeError := encoder.Encode(DefaultConfiguration()); encodeError != nil {
		return nil, fmt.Errorf(errorInitEncodeFormat, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return nil, fmt.Errorf(errorInitEncodeFormat, closeError)
	}
	return buffer.Bytes(), nil
}

// InitializeConfiguration writes the default configuration to the requested target
// and returns the written path.
func InitializeConfiguration(options InitOptions) (string, error) {
	target := options.Target
	if target == "" {
		target = InitTargetLocal
	}
	var destinationPath string
	switch target {
	case InitTargetLocal:
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			currentDirectory, workingDirectoryError := os.Getwd()
			if workingDirectoryError != nil {
				return "", fmt.Errorf(errorInitWorkingDirectoryFormat, workingDirectoryError)
			}
			workingDirectory = currentDirectory
		}
		destinationPath = filepath.Join(workingDirectory, utils.ConfigFileName)
	case InitTargetGlobal:
		homeDirectory, homeError := os.UserHomeDir()
		if homeError != nil {
			return "", fmt.Errorf(errorInitHomeDirectoryFormat, homeError)
		}
		configurationDirectory := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName)
		if createError := os.MkdirAll(configurationDirectory, 0o755); createError != nil {
			return "", fmt.Errorf(errorInitCreateDirectoryFormat, configurationDirectory, createError)
		}
		destinationPath = filepath.Join(configurationDirectory, utils.ConfigFileName)
	default:
		return "", fmt.Errorf(errorInitUnsupportedTargetFormat, target)
	}

	if _, statError := os.Stat(destinationPath); statError == nil {
		if !options.Force {
			return "", fmt.Errorf(errorInitExistsFormat, destinationPath)
		}
	} else if !os.IsNotExist(statError) {
		return "", fmt.Errorf(errorInitInspectFormat, destinationPath, statError)
	}

	configurationYAML, encodeError := DefaultConfigurationYAML()
	if encodeError != nil {
		return "", encodeError
	}
	if writeError := os.WriteFile(destinationPath, configurationYAML, 0o600); writeError != nil {
		return "", fmt.Errorf(errorInitWriteFormat, destinationPath, writeError)
	}
	return destinationPath, nil
}
