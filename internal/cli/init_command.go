package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/repopack/internal/config"
)

const (
	initUse                    = "init"
	initShortDescription       = "write a default configuration file"
	initLongDescription        = "Write the default configuration to ./config.yaml, or to ~/.repopack/config.yaml with --global."
	initGlobalFlagName         = "global"
	initForceFlagName          = "force"
	initGlobalFlagDescription  = "write the global configuration"
	initForceFlagDescription   = "overwrite an existing configuration file"
	initCompletedMessageFormat = "Wrote configuration to %s\n"
)

func createInitCommand(dependencies Dependencies) *cobra.Command {
	var global bool
	var force bool
	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			writtenPath, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: dependencies.WorkingDirectory,
			})
			if initError != nil {
				return initError
			}
			_, printError := fmt.Fprintf(command.OutOrStdout(), initCompletedMessageFormat, writtenPath)
			return printError
		},
	}
	initCommand.Flags().BoolVar(&global, initGlobalFlagName, false, initGlobalFlagDescription)
	initCommand.Flags().BoolVar(&force, initForceFlagName, false, initForceFlagDescription)
	return initCommand
}
