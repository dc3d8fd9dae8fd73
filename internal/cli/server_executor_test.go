package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/temirov/repopack/internal/config"
	"github.com/temirov/repopack/internal/packer"
	"github.com/temirov/repopack/internal/services/server"
)

func newTestHandler(t *testing.T, workingDirectory string) (http.Handler, *packer.Session) {
	t.Helper()
	session, sessionError := packer.NewSession(nil)
	if sessionError != nil {
		t.Fatalf("session: %v", sessionError)
	}
	baseConfiguration := config.DefaultConfiguration()
	baseConfiguration.Tokens.Enabled = config.BoolPointer(false)
	baseConfiguration.Output.Git.SortByChanges = config.BoolPointer(false)
	handler := server.NewServer(server.Config{
		Capabilities: serverCapabilities(),
		Executors:    serverExecutors(session, baseConfiguration, workingDirectory),
	}).Handler()
	return handler, session
}

func postCommand(handler http.Handler, commandName string, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodPost, "/commands/"+commandName, strings.NewReader(body))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func TestPackCommandOverHTTP(t *testing.T) {
	workingDirectory := t.TempDir()
	writeFixtureFile(t, filepath.Join(workingDirectory, "service", fixtureSourceName), fixtureSourceContent)
	writeFixtureFile(t, filepath.Join(workingDirectory, "service", fixtureReadmeName), fixtureReadmeContent)
	handler, _ := newTestHandler(t, workingDirectory)

	recorder := postCommand(handler, packCommandName, `{"directory":"service","style":"markdown","showFileStats":true}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", recorder.Code, recorder.Body.String())
	}
	var response packCommandResponse
	if decodeError := json.Unmarshal(recorder.Body.Bytes(), &response); decodeError != nil {
		t.Fatalf("decode: %v", decodeError)
	}
	if response.Style != "markdown" || response.Totals.Files != 2 || len(response.Files) != 2 {
		t.Fatalf("unexpected response %+v", response)
	}
	if !strings.Contains(response.Output, "## File: "+fixtureSourceName) {
		t.Fatalf("expected markdown output, got:\n%s", response.Output)
	}
	if !strings.HasSuffix(response.Destination, "repopack-output.md") {
		t.Fatalf("unexpected destination %s", response.Destination)
	}
}

func TestPackCommandSplitsOverHTTP(t *testing.T) {
	workingDirectory := t.TempDir()
	for _, directoryName := range []string{"alpha", "beta", "gamma"} {
		writeFixtureFile(t, filepath.Join(workingDirectory, directoryName, "data.txt"), strings.Repeat(directoryName, 200))
	}
	handler, _ := newTestHandler(t, workingDirectory)
	recorder := postCommand(handler, packCommandName, `{"style":"plain","fileSummary":false,"splitOutput":"2kb"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", recorder.Code, recorder.Body.String())
	}
	var response packCommandResponse
	if decodeError := json.Unmarshal(recorder.Body.Bytes(), &response); decodeError != nil {
		t.Fatalf("decode: %v", decodeError)
	}
	if len(response.Parts) < 2 || response.Output != "" {
		t.Fatalf("expected split parts, got %d parts", len(response.Parts))
	}
	for partIndex, part := range response.Parts {
		if part.Index != partIndex+1 || part.ByteLength != len(part.Content) {
			t.Fatalf("part %d inconsistent: %+v", partIndex, part)
		}
	}
}

func TestPackCommandErrorStatuses(t *testing.T) {
	workingDirectory := t.TempDir()
	writeFixtureFile(t, filepath.Join(workingDirectory, fixtureSourceName), strings.Repeat("x", 4096))
	handler, _ := newTestHandler(t, workingDirectory)
	testCases := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{name: "malformed json", body: `{"style":`, expectedStatus: http.StatusBadRequest},
		{name: "unknown style", body: `{"style":"yaml"}`, expectedStatus: http.StatusBadRequest},
		{name: "missing directory", body: `{"directory":"absent"}`, expectedStatus: http.StatusBadRequest},
		{name: "bad split size", body: `{"splitOutput":"huge"}`, expectedStatus: http.StatusBadRequest},
		{name: "group too large", body: `{"splitOutput":"1kb"}`, expectedStatus: http.StatusUnprocessableEntity},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			recorder := postCommand(handler, packCommandName, testCase.body)
			if recorder.Code != testCase.expectedStatus {
				t.Fatalf("expected %d, got %d: %s", testCase.expectedStatus, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestClearCachesCommand(t *testing.T) {
	workingDirectory := t.TempDir()
	writeFixtureFile(t, filepath.Join(workingDirectory, fixtureSourceName), fixtureSourceContent)
	handler, session := newTestHandler(t, workingDirectory)
	if recorder := postCommand(handler, packCommandName, `{"ignore":["**/*.generated.go"]}`); recorder.Code != http.StatusOK {
		t.Fatalf("pack failed: %s", recorder.Body.String())
	}
	recorder := postCommand(handler, clearCachesCommandName, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("clear failed: %s", recorder.Body.String())
	}
	var response clearCachesResponse
	if decodeError := json.Unmarshal(recorder.Body.Bytes(), &response); decodeError != nil {
		t.Fatalf("decode: %v", decodeError)
	}
	if !response.Cleared || response.MatchCacheEntries == 0 {
		t.Fatalf("unexpected response %+v", response)
	}
	if matchEntries, changeEntries := session.CacheSizes(); matchEntries != 0 || changeEntries != 0 {
		t.Fatalf("caches not cleared: %d, %d", matchEntries, changeEntries)
	}
}

func TestPackErrorStatusClassifiesCancellation(t *testing.T) {
	if status := packErrorStatus(context.Canceled); status != http.StatusServiceUnavailable {
		t.Fatalf("expected service unavailable, got %d", status)
	}
	if status := packErrorStatus(errors.New("boom")); status != http.StatusInternalServerError {
		t.Fatalf("expected internal error, got %d", status)
	}
}
