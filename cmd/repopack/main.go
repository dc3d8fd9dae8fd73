package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/repopack/internal/cli"
	"github.com/temirov/repopack/internal/utils"
)

// main is the entry point for the repopack command.
func main() {
	logLevel := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(logLevel)
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if applicationExecutionError := cli.Execute(ctx, cli.Dependencies{Logger: loggerInstance, LogLevel: &logLevel}); applicationExecutionError != nil {
		loggerInstance.Error(utils.ApplicationExecutionFailedMessage, zap.Error(applicationExecutionError))
		stop()
		_ = loggerInstance.Sync()
		os.Exit(1)
	}
}
