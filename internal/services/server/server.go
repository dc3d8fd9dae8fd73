// Package server exposes pack commands over HTTP for long-lived sessions.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/repopack/internal/utils"
)

const (
	defaultListenAddress    = "127.0.0.1:0"
	defaultShutdownDuration = 5 * time.Second
	defaultMaximumBodyBytes = 1 << 20
	headerContentType       = "Content-Type"
	headerRequestIdentifier = "X-Request-ID"
	mimeTypeJSON            = "application/json"
	capabilitiesPath        = "/capabilities"
	rootPath                = "/"
	commandsPrefix          = "/commands/"
	errorFieldName          = "error"
	errorCommandNotFound    = "command not found"

	errorListenFormat   = "listen on %s: %w"
	errorServeFormat    = "serve: %w"
	errorShutdownFormat = "shutdown: %w"
	errorReadBodyFormat = "read request body: %v"
	errorEncodeFormat   = "encode response: %v"

	logMessageListening       = "server listening"
	logMessageCommandStarted  = "command started"
	logMessageCommandFinished = "command finished"
	logMessageCommandFailed   = "command failed"
)

// Capability describes a command exposed by the server.
type Capability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CommandRequest holds the raw payload supplied by clients.
type CommandRequest struct {
	RequestIdentifier string
	Payload           json.RawMessage
}

// CommandExecutor executes a command based on an incoming request. The
// returned value is encoded as the JSON response body.
type CommandExecutor interface {
	Execute(ctx context.Context, request CommandRequest) (any, error)
}

// CommandExecutorFunc adapts a function into a CommandExecutor.
type CommandExecutorFunc func(context.Context, CommandRequest) (any, error)

// Execute invokes the underlying function.
func (executor CommandExecutorFunc) Execute(ctx context.Context, request CommandRequest) (any, error) {
	return executor(ctx, request)
}

// CommandExecutionError represents a failure accompanied by an HTTP status code.
type CommandExecutionError struct {
	statusCode int
	err        error
}

// Error returns the error string.
func (executionError CommandExecutionError) Error() string {
	return executionError.err.Error()
}

// Unwrap exposes the wrapped error.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.err
}

// StatusCode reports the associated HTTP status code.
func (executionError CommandExecutionError) StatusCode() int {
	return executionError.statusCode
}

// NewCommandExecutionError creates a new CommandExecutionError.
func NewCommandExecutionError(statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return CommandExecutionError{statusCode: statusCode, err: err}
}

// Config defines runtime options for the server.
type Config struct {
	Address          string
	Capabilities     []Capability
	Executors        map[string]CommandExecutor
	ShutdownTimeout  time.Duration
	MaximumBodyBytes int64
	Logger           *zap.Logger
}

// Server serves capability metadata and executes commands over HTTP.
type Server struct {
	config Config
}

// NewServer creates a new Server with defaults applied.
func NewServer(config Config) Server {
	normalized := config
	if normalized.Address == "" {
		normalized.Address = defaultListenAddress
	}
	if normalized.ShutdownTimeout <= 0 {
		normalized.ShutdownTimeout = defaultShutdownDuration
	}
	if normalized.MaximumBodyBytes <= 0 {
		normalized.MaximumBodyBytes = defaultMaximumBodyBytes
	}
	if normalized.Capabilities == nil {
		normalized.Capabilities = []Capability{}
	}
	if normalized.Executors == nil {
		normalized.Executors = map[string]CommandExecutor{}
	}
	normalized.Logger = utils.LoggerOrNop(normalized.Logger)
	return Server{config: normalized}
}

// Handler returns the HTTP routes served by Run.
func (server Server) Handler() http.Handler {
	router := http.NewServeMux()
	router.HandleFunc(capabilitiesPath, server.handleCapabilities)
	router.HandleFunc(rootPath, server.handleRoot)
	router.HandleFunc(commandsPrefix, server.handleCommand)
	return router
}

// Run starts the server and blocks until the provided context is canceled.
// The notify callback receives the bound address once the listener is active.
func (server Server) Run(ctx context.Context, notify func(string)) error {
	listener, listenErr := net.Listen("tcp", server.config.Address)
	if listenErr != nil {
		return fmt.Errorf(errorListenFormat, server.config.Address, listenErr)
	}
	actualAddress := listener.Addr().String()

	httpServer := &http.Server{Handler: server.Handler()}
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		serveErr := httpServer.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf(errorServeFormat, serveErr)
		}
		return nil
	})

	server.config.Logger.Info(logMessageListening, zap.String("address", actualAddress))
	if notify != nil {
		notify(actualAddress)
	}

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.config.ShutdownTimeout)
		defer cancel()
		shutdownErr := httpServer.Shutdown(shutdownCtx)
		if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) && !errors.Is(shutdownErr, http.ErrServerClosed) {
			return fmt.Errorf(errorShutdownFormat, shutdownErr)
		}
		return nil
	})

	return group.Wait()
}

func (server Server) handleCapabilities(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	payload := struct {
		Capabilities []Capability `json:"capabilities"`
	}{Capabilities: server.config.Capabilities}
	server.writeJSON(writer, http.StatusOK, payload)
}

func (server Server) handleRoot(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if request.URL.Path != rootPath {
		writer.WriteHeader(http.StatusNotFound)
		return
	}
	writer.WriteHeader(http.StatusOK)
}

func (server Server) handleCommand(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	requestIdentifier := strings.TrimSpace(request.Header.Get(headerRequestIdentifier))
	if requestIdentifier == "" {
		requestIdentifier = uuid.NewString()
	}
	writer.Header().Set(headerRequestIdentifier, requestIdentifier)

	commandName := strings.TrimPrefix(request.URL.Path, commandsPrefix)
	if commandName == "" || strings.Contains(commandName, "/") {
		server.writeJSON(writer, http.StatusNotFound, map[string]string{errorFieldName: errorCommandNotFound})
		return
	}
	executor, found := server.config.Executors[commandName]
	if !found {
		server.writeJSON(writer, http.StatusNotFound, map[string]string{errorFieldName: errorCommandNotFound})
		return
	}
	body, readErr := io.ReadAll(http.MaxBytesReader(writer, request.Body, server.config.MaximumBodyBytes))
	if readErr != nil {
		server.writeJSON(writer, http.StatusBadRequest, map[string]string{errorFieldName: fmt.Sprintf(errorReadBodyFormat, readErr)})
		return
	}

	logger := server.config.Logger.With(zap.String("request_id", requestIdentifier), zap.String("command", commandName))
	logger.Debug(logMessageCommandStarted)
	startTime := time.Now()
	commandResponse, executeErr := executor.Execute(request.Context(), CommandRequest{RequestIdentifier: requestIdentifier, Payload: json.RawMessage(body)})
	if executeErr != nil {
		statusCode := server.statusCodeFromError(executeErr)
		logger.Warn(logMessageCommandFailed, zap.Int("status", statusCode), zap.Error(executeErr))
		server.writeJSON(writer, statusCode, map[string]string{errorFieldName: executeErr.Error()})
		return
	}
	logger.Debug(logMessageCommandFinished, zap.Duration("elapsed", time.Since(startTime)))
	server.writeJSON(writer, http.StatusOK, commandResponse)
}

func (server Server) writeJSON(writer http.ResponseWriter, statusCode int, payload any) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if encodeErr := encoder.Encode(payload); encodeErr != nil {
		fallback := map[string]string{errorFieldName: fmt.Sprintf(errorEncodeFormat, encodeErr)}
		writer.Header().Set(headerContentType, mimeTypeJSON)
		writer.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(writer).Encode(fallback)
		return
	}
	writer.Header().Set(headerContentType, mimeTypeJSON)
	writer.WriteHeader(statusCode)
	_, _ = writer.Write(buffer.Bytes())
}

func (server Server) statusCodeFromError(err error) int {
	var executionError CommandExecutionError
	if errors.As(err, &executionError) {
		return executionError.StatusCode()
	}
	return http.StatusInternalServerError
}
