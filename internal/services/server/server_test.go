package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/temirov/repopack/internal/services/server"
)

const (
	echoCommandName   = "echo"
	failCommandName   = "fail"
	requestIDHeader   = "X-Request-ID"
	clientRequestID   = "client-supplied"
	contentTypeHeader = "Content-Type"
)

func testServer() server.Server {
	return server.NewServer(server.Config{
		Capabilities: []server.Capability{{Name: echoCommandName, Description: "Echo the payload"}},
		Executors: map[string]server.CommandExecutor{
			echoCommandName: server.CommandExecutorFunc(func(_ context.Context, request server.CommandRequest) (any, error) {
				return map[string]string{"payload": string(request.Payload), "request_id": request.RequestIdentifier}, nil
			}),
			failCommandName: server.CommandExecutorFunc(func(context.Context, server.CommandRequest) (any, error) {
				return nil, server.NewCommandExecutionError(http.StatusBadRequest, errors.New("bad payload"))
			}),
		},
	})
}

func TestServerRunExposesCapabilities(t *testing.T) {
	testCases := []struct {
		name         string
		config       server.Config
		expectedCaps []server.Capability
	}{
		{
			name: "single capability",
			config: server.Config{
				Capabilities: []server.Capability{{Name: "pack", Description: "Pack directories"}},
				Address:      "127.0.0.1:0",
			},
			expectedCaps: []server.Capability{{Name: "pack", Description: "Pack directories"}},
		},
		{
			name:         "no capabilities",
			config:       server.Config{},
			expectedCaps: []server.Capability{},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			runningServer := server.NewServer(testCase.config)
			addressCh := make(chan string, 1)
			errorCh := make(chan error, 1)
			go func() {
				errorCh <- runningServer.Run(ctx, func(address string) {
					addressCh <- address
				})
			}()

			select {
			case address := <-addressCh:
				client := http.Client{Timeout: 2 * time.Second}
				response, err := client.Get("http://" + address + "/capabilities")
				if err != nil {
					t.Fatalf("perform request: %v", err)
				}
				defer response.Body.Close()
				if response.StatusCode != http.StatusOK {
					t.Fatalf("unexpected status: %d", response.StatusCode)
				}
				var body struct {
					Capabilities []server.Capability `json:"capabilities"`
				}
				if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if len(body.Capabilities) != len(testCase.expectedCaps) {
					t.Fatalf("expected %d capabilities, got %d", len(testCase.expectedCaps), len(body.Capabilities))
				}
				for index, capability := range body.Capabilities {
					if capability != testCase.expectedCaps[index] {
						t.Fatalf("capability %d mismatch: got %+v, want %+v", index, capability, testCase.expectedCaps[index])
					}
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("server did not start")
			}

			cancel()
			if err := <-errorCh; err != nil {
				t.Fatalf("server error: %v", err)
			}
		})
	}
}

func TestServerCommandRouting(t *testing.T) {
	testCases := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{name: "executes command", method: http.MethodPost, path: "/commands/" + echoCommandName, body: `{"a":1}`, expectedStatus: http.StatusOK, expectedBody: `"payload":"{\"a\":1}"`},
		{name: "unknown command", method: http.MethodPost, path: "/commands/missing", expectedStatus: http.StatusNotFound, expectedBody: "command not found"},
		{name: "nested command path", method: http.MethodPost, path: "/commands/echo/extra", expectedStatus: http.StatusNotFound, expectedBody: "command not found"},
		{name: "wrong method", method: http.MethodGet, path: "/commands/" + echoCommandName, expectedStatus: http.StatusMethodNotAllowed},
		{name: "executor error status", method: http.MethodPost, path: "/commands/" + failCommandName, expectedStatus: http.StatusBadRequest, expectedBody: "bad payload"},
		{name: "root", method: http.MethodGet, path: "/", expectedStatus: http.StatusOK},
		{name: "unknown root path", method: http.MethodGet, path: "/other", expectedStatus: http.StatusNotFound},
	}
	handler := testServer().Handler()
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(testCase.method, testCase.path, strings.NewReader(testCase.body))
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)
			if recorder.Code != testCase.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", testCase.expectedStatus, recorder.Code, recorder.Body.String())
			}
			if testCase.expectedBody != "" && !strings.Contains(recorder.Body.String(), testCase.expectedBody) {
				t.Fatalf("expected body to contain %q, got %s", testCase.expectedBody, recorder.Body.String())
			}
			if testCase.expectedBody != "" && recorder.Header().Get(contentTypeHeader) != "application/json" {
				t.Fatalf("expected JSON content type, got %q", recorder.Header().Get(contentTypeHeader))
			}
		})
	}
}

func TestServerRequestIdentifiers(t *testing.T) {
	handler := testServer().Handler()

	generatedRequest := httptest.NewRequest(http.MethodPost, "/commands/"+echoCommandName, nil)
	generatedRecorder := httptest.NewRecorder()
	handler.ServeHTTP(generatedRecorder, generatedRequest)
	generated := generatedRecorder.Header().Get(requestIDHeader)
	if len(generated) != 36 {
		t.Fatalf("expected a generated UUID, got %q", generated)
	}
	if !strings.Contains(generatedRecorder.Body.String(), generated) {
		t.Fatalf("executor did not receive the generated identifier")
	}

	suppliedRequest := httptest.NewRequest(http.MethodPost, "/commands/"+echoCommandName, nil)
	suppliedRequest.Header.Set(requestIDHeader, clientRequestID)
	suppliedRecorder := httptest.NewRecorder()
	handler.ServeHTTP(suppliedRecorder, suppliedRequest)
	if suppliedRecorder.Header().Get(requestIDHeader) != clientRequestID {
		t.Fatalf("expected supplied identifier to be echoed, got %q", suppliedRecorder.Header().Get(requestIDHeader))
	}
}

func TestServerRejectsOversizedBodies(t *testing.T) {
	handler := server.NewServer(server.Config{
		MaximumBodyBytes: 8,
		Executors: map[string]server.CommandExecutor{
			echoCommandName: server.CommandExecutorFunc(func(context.Context, server.CommandRequest) (any, error) {
				return struct{}{}, nil
			}),
		},
	}).Handler()
	request := httptest.NewRequest(http.MethodPost, "/commands/"+echoCommandName, strings.NewReader(strings.Repeat("x", 64)))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", recorder.Code)
	}
}
