package utils

// Application-wide file and directory names.
const (
	// ApplicationName is the binary and configuration namespace.
	ApplicationName = "repopack"
	// ConfigFileName is the name of the YAML configuration file.
	ConfigFileName = "config.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding the global configuration.
	GlobalConfigDirectoryName = "." + ApplicationName
	// DefaultOutputFileName is the destination used when no output path is configured.
	DefaultOutputFileName = ApplicationName + "-output.xml"
)

// Messages emitted by the entry point.
const (
	// LoggerInitializationFailedMessageFormat reports that the logger could not be constructed.
	LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes fatal execution errors.
	ApplicationExecutionFailedMessage = "application execution failed"
)
