// Package gitmeta extracts diffs, commit history and change frequencies from Git.
package gitmeta

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/repopack/internal/document"
	"github.com/temirov/repopack/internal/utils"
)

const (
	defaultGitExecutable = "git"

	logRecordSeparator       = "\x00"
	logFormatArgument        = "--pretty=format:%x00%ad|%s"
	logFieldSeparator        = "|"
	insideWorkTreeIndicator  = "true"
	currentDirectoryPathspec = "."

	logMessageNotRepository = "directory is not a git repository"

	errorCommandFormat = "git %s: %w: %s"
)

// ErrNotRepository is returned when a directory is not inside a Git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Runner executes git with arguments inside directory and returns standard output.
type Runner interface {
	Run(ctx context.Context, directory string, arguments ...string) (string, error)
}

// CommandRunner runs the git executable found on PATH.
type CommandRunner struct {
	Executable string
}

// Run executes git -C directory arguments.
func (runner CommandRunner) Run(ctx context.Context, directory string, arguments ...string) (string, error) {
	executable := runner.Executable
	if executable == "" {
		executable = defaultGitExecutable
	}
	commandArguments := append([]string{"-C", directory}, arguments...)
	command := exec.CommandContext(ctx, executable, commandArguments...)
	var standardOutput, standardError bytes.Buffer
	command.Stdout = &standardOutput
	command.Stderr = &standardError
	if runError := command.Run(); runError != nil {
		return "", fmt.Errorf(errorCommandFormat, strings.Join(arguments, " "), runError, strings.TrimSpace(standardError.String()))
	}
	return standardOutput.String(), nil
}

// Client reads repository metadata through a Runner.
type Client struct {
	Runner Runner
	Logger *zap.Logger
}

// NewClient returns a Client backed by the git executable.
func NewClient(logger *zap.Logger) *Client {
	return &Client{Runner: CommandRunner{}, Logger: logger}
}

// IsRepository reports whether directory is inside a Git work tree.
func (client *Client) IsRepository(ctx context.Context, directory string) bool {
	standardOutput, runError := client.Runner.Run(ctx, directory, "rev-parse", "--is-inside-work-tree")
	return runError == nil && strings.TrimSpace(standardOutput) == insideWorkTreeIndicator
}

// Diff returns the unstaged and staged diffs of directory.
func (client *Client) Diff(ctx context.Context, directory string) (*document.GitDiff, error) {
	if !client.IsRepository(ctx, directory) {
		utils.LoggerOrNop(client.Logger).Debug(logMessageNotRepository, zap.String("directory", directory))
		return nil, ErrNotRepository
	}
	workTree, workTreeError := client.Runner.Run(ctx, directory, "diff", "--no-color")
	if workTreeError != nil {
		return nil, workTreeError
	}
	staged, stagedError := client.Runner.Run(ctx, directory, "diff", "--no-color", "--cached")
	if stagedError != nil {
		return nil, stagedError
	}
	return &document.GitDiff{WorkTree: workTree, Staged: staged}, nil
}

// Log returns up to maxCommits recent commits of directory, newest first.
func (client *Client) Log(ctx context.Context, directory string, maxCommits int) (*document.GitLog, error) {
	if !client.IsRepository(ctx, directory) {
		utils.LoggerOrNop(client.Logger).Debug(logMessageNotRepository, zap.String("directory", directory))
		return nil, ErrNotRepository
	}
	rawLog, logError := client.Runner.Run(ctx, directory, "log", logFormatArgument, "--date=iso", "--name-only", "-n", strconv.Itoa(maxCommits))
	if logError != nil {
		return nil, logError
	}
	return &document.GitLog{Commits: ParseLog(rawLog)}, nil
}

// ChangedFileNames lists the file names touched by the last maxCommits
// commits, one entry per change. Names are relative to directory and changes
// outside it are left out.
func (client *Client) ChangedFileNames(ctx context.Context, directory string, maxCommits int) ([]string, error) {
	rawLog, logError := client.Runner.Run(ctx, directory, "log", "--pretty=format:", "--name-only", "--relative", "-n", strconv.Itoa(maxCommits), "--", currentDirectoryPathspec)
	if logError != nil {
		return nil, logError
	}
	var fileNames []string
	for _, line := range strings.Split(rawLog, "\n") {
		if trimmedLine := strings.TrimSpace(line); trimmedLine != "" {
			fileNames = append(fileNames, trimmedLine)
		}
	}
	return fileNames, nil
}

// ParseLog parses NUL separated records whose first line is "date|subject"
// and whose remaining lines are file names. Malformed records are skipped.
func ParseLog(rawLog string) []document.Commit {
	var commits []document.Commit
	for _, record := range strings.Split(rawLog, logRecordSeparator) {
		var lines []string
		for _, line := range strings.Split(strings.ReplaceAll(record, "\r\n", "\n"), "\n") {
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			continue
		}
		date, message, found := strings.Cut(lines[0], logFieldSeparator)
		if !found {
			continue
		}
		commit := document.Commit{Date: date, Message: message}
		for _, fileLine := range lines[1:] {
			commit.Files = append(commit.Files, strings.TrimSpace(fileLine))
		}
		commits = append(commits, commit)
	}
	return commits
}
