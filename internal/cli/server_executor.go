package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/temirov/repopack/internal/config"
	"github.com/temirov/repopack/internal/packer"
	"github.com/temirov/repopack/internal/services/server"
	"github.com/temirov/repopack/internal/split"
)

const (
	errorDecodePackRequestFormat = "decode pack request: %w"
	errorPackFormat              = "pack: %w"
)

// packCommandRequest is the JSON body of POST /commands/pack. Unset fields
// keep the server's configuration.
type packCommandRequest struct {
	Directory                     string   `json:"directory"`
	Directories                   []string `json:"directories"`
	Style                         string   `json:"style"`
	HeaderText                    string   `json:"headerText"`
	Ignore                        []string `json:"ignore"`
	SplitOutput                   string   `json:"splitOutput"`
	OutputPath                    string   `json:"outputPath"`
	FileSummary                   *bool    `json:"fileSummary"`
	DirectoryStructure            *bool    `json:"directoryStructure"`
	Files                         *bool    `json:"files"`
	ShowFileStats                 *bool    `json:"showFileStats"`
	IncludeEmptyDirectories       *bool    `json:"includeEmptyDirectories"`
	IncludeFullDirectoryStructure *bool    `json:"includeFullDirectoryStructure"`
	Compress                      *bool    `json:"compress"`
	IncludeDiffs                  *bool    `json:"includeDiffs"`
	IncludeLogs                   *bool    `json:"includeLogs"`
	IncludeLogsCount              *int     `json:"includeLogsCount"`
	SortByChanges                 *bool    `json:"sortByChanges"`
	TokenCountTree                *int     `json:"tokenCountTree"`
	Tokens                        *bool    `json:"tokens"`
	Model                         string   `json:"model"`
}

type packCommandResponse struct {
	Style       string             `json:"style"`
	Destination string             `json:"destination"`
	Output      string             `json:"output,omitempty"`
	Parts       []packPartResponse `json:"parts,omitempty"`
	Totals      packTotalsResponse `json:"totals"`
	Files       []packFileResponse `json:"files"`
	TokenTree   string             `json:"tokenTree,omitempty"`
}

type packPartResponse struct {
	Index       int    `json:"index"`
	Destination string `json:"destination"`
	ByteLength  int    `json:"byteLength"`
	Content     string `json:"content"`
}

type packTotalsResponse struct {
	Files      int `json:"files"`
	Characters int `json:"characters"`
	Tokens     int `json:"tokens"`
}

type packFileResponse struct {
	Path       string `json:"path"`
	Characters int    `json:"characters"`
	Tokens     int    `json:"tokens"`
}

type clearCachesResponse struct {
	Cleared            bool `json:"cleared"`
	MatchCacheEntries  int  `json:"matchCacheEntries"`
	ChangeCacheEntries int  `json:"changeCacheEntries"`
}

func serverExecutors(session *packer.Session, baseConfiguration config.ApplicationConfiguration, workingDirectory string) map[string]server.CommandExecutor {
	return map[string]server.CommandExecutor{
		packCommandName: server.CommandExecutorFunc(func(ctx context.Context, request server.CommandRequest) (any, error) {
			return executePackCommand(ctx, session, baseConfiguration, workingDirectory, request)
		}),
		clearCachesCommandName: server.CommandExecutorFunc(func(context.Context, server.CommandRequest) (any, error) {
			matchEntries, changeEntries := session.CacheSizes()
			session.Clear()
			return clearCachesResponse{Cleared: true, MatchCacheEntries: matchEntries, ChangeCacheEntries: changeEntries}, nil
		}),
	}
}

func executePackCommand(ctx context.Context, session *packer.Session, baseConfiguration config.ApplicationConfiguration, workingDirectory string, request server.CommandRequest) (any, error) {
	var payload packCommandRequest
	if len(strings.TrimSpace(string(request.Payload))) > 0 {
		if decodeError := json.Unmarshal(request.Payload, &payload); decodeError != nil {
			return nil, server.NewCommandExecutionError(http.StatusBadRequest, fmt.Errorf(errorDecodePackRequestFormat, decodeError))
		}
	}
	configuration := baseConfiguration.Merge(payload.overrides())
	configuration.Output.FilePath = resolvePath(workingDirectory, packer.ResolveDestination(configuration.Output.FilePath, configuration.Output.Style))

	directories := payload.Directories
	if payload.Directory != "" {
		directories = append([]string{payload.Directory}, directories...)
	}
	resolvedDirectories := make([]string, 0, len(directories))
	for _, directory := range directories {
		resolvedDirectories = append(resolvedDirectories, resolvePath(workingDirectory, filepath.FromSlash(directory)))
	}
	if len(resolvedDirectories) == 0 {
		resolvedDirectories = append(resolvedDirectories, workingDirectory)
	}

	result, packError := session.Pack(ctx, packer.Request{
		Directories:         resolvedDirectories,
		Configuration:       configuration,
		CommandLinePatterns: payload.Ignore,
	})
	if packError != nil {
		return nil, server.NewCommandExecutionError(packErrorStatus(packError), fmt.Errorf(errorPackFormat, packError))
	}
	return newPackCommandResponse(result), nil
}

func packErrorStatus(packError error) int {
	var groupTooLarge *split.GroupTooLargeError
	switch {
	case isConfigurationError(packError):
		return http.StatusBadRequest
	case errors.As(packError, &groupTooLarge):
		return http.StatusUnprocessableEntity
	case errors.Is(packError, context.Canceled), errors.Is(packError, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (payload packCommandRequest) overrides() config.ApplicationConfiguration {
	return config.ApplicationConfiguration{
		Output: config.OutputConfiguration{
			FilePath:                      payload.OutputPath,
			Style:                         payload.Style,
			HeaderText:                    payload.HeaderText,
			FileSummary:                   payload.FileSummary,
			DirectoryStructure:            payload.DirectoryStructure,
			Files:                         payload.Files,
			ShowFileStats:                 payload.ShowFileStats,
			IncludeEmptyDirectories:       payload.IncludeEmptyDirectories,
			IncludeFullDirectoryStructure: payload.IncludeFullDirectoryStructure,
			TokenCountTree:                payload.TokenCountTree,
			SplitOutput:                   payload.SplitOutput,
			Compress:                      payload.Compress,
			Git: config.GitConfiguration{
				IncludeDiffs:     payload.IncludeDiffs,
				IncludeLogs:      payload.IncludeLogs,
				IncludeLogsCount: payload.IncludeLogsCount,
				SortByChanges:    payload.SortByChanges,
			},
		},
		Tokens: config.TokenConfiguration{
			Enabled: payload.Tokens,
			Model:   payload.Model,
		},
	}
}

func newPackCommandResponse(result packer.Result) packCommandResponse {
	response := packCommandResponse{
		Style:       result.Style,
		Destination: result.Destination,
		Output:      result.Output,
		Totals: packTotalsResponse{
			Files:      result.Totals.Files,
			Characters: result.Totals.Characters,
			Tokens:     result.Totals.Tokens,
		},
		Files:     make([]packFileResponse, 0, len(result.Files)),
		TokenTree: result.TokenTree,
	}
	for _, part := range result.Parts {
		response.Parts = append(response.Parts, packPartResponse{
			Index:       part.Index,
			Destination: part.Destination,
			ByteLength:  part.ByteLength,
			Content:     part.Content,
		})
	}
	for _, file := range result.Files {
		response.Files = append(response.Files, packFileResponse{Path: file.Path, Characters: file.CharCount, Tokens: file.TokenCount})
	}
	return response
}
