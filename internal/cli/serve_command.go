package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/repopack/internal/config"
	"github.com/temirov/repopack/internal/packer"
	"github.com/temirov/repopack/internal/services/server"
)

const (
	serveUse                      = "serve"
	serveShortDescription         = "serve pack commands over HTTP"
	serveLongDescription          = "Start an HTTP server exposing /capabilities, /commands/pack and /commands/clear_caches. Caches persist between requests until cleared."
	serveAddressFlagName          = "address"
	serveAddressDescription       = "listen address (host:port)"
	serveListeningFormat          = "Serving on http://%s\n"
	packCommandName               = "pack"
	clearCachesCommandName        = "clear_caches"
	packCommandDescription        = "Pack directories into a single document or size-bounded parts"
	clearCachesCommandDescription = "Clear the glob match and git change count caches"
)

func createServeCommand(dependencies Dependencies, flags *packFlags) *cobra.Command {
	var address string
	serveCommand := &cobra.Command{
		Use:   serveUse,
		Short: serveShortDescription,
		Long:  serveLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			loaded, loadError := config.LoadApplicationConfiguration(config.LoadOptions{
				WorkingDirectory: dependencies.WorkingDirectory,
				ExplicitFilePath: flags.configPath,
			})
			if loadError != nil {
				return loadError
			}
			baseConfiguration := config.DefaultConfiguration().Merge(loaded)
			if address != "" {
				baseConfiguration.Server.Address = address
			}
			session, sessionError := packer.NewSession(dependencies.Logger)
			if sessionError != nil {
				return sessionError
			}
			commandServer := server.NewServer(server.Config{
				Address:      baseConfiguration.Server.Address,
				Capabilities: serverCapabilities(),
				Executors:    serverExecutors(session, baseConfiguration, dependencies.WorkingDirectory),
				Logger:       dependencies.Logger,
			})
			return commandServer.Run(command.Context(), func(boundAddress string) {
				_, _ = fmt.Fprintf(command.ErrOrStderr(), serveListeningFormat, boundAddress)
			})
		},
	}
	serveCommand.Flags().StringVar(&address, serveAddressFlagName, "", serveAddressDescription)
	return serveCommand
}

func serverCapabilities() []server.Capability {
	return []server.Capability{
		{Name: packCommandName, Description: packCommandDescription},
		{Name: clearCachesCommandName, Description: clearCachesCommandDescription},
	}
}
