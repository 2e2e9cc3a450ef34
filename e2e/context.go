package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"attesta/internal/events"
	"attesta/internal/platform/health"
	"attesta/internal/registry/handler"
	"attesta/internal/registry/service"
	"attesta/internal/registry/store"
	"attesta/internal/token"
	httptransport "attesta/internal/transport/http"
	"attesta/pkg/domain"
)

const (
	devSigningKey  = "dev-secret-key-change-in-production"
	adminAccount   = "0xregistry-admin"
	tokenIssuer    = "attesta"
	tokenAudience  = "attesta"
	defaultTimeout = 10 * time.Second
)

// TestContext holds state between test steps. By default each scenario runs
// against a fresh in-process server; set BASE_URL to exercise a deployed
// instance instead (the instance must use the dev signing key).
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	server *httptest.Server
	tokens *token.Service
}

// NewTestContext creates a new test context.
func NewTestContext() *TestContext {
	tc := &TestContext{
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		tokens:     token.NewService(devSigningKey, tokenIssuer, tokenAudience, 15*time.Minute),
	}
	tc.Reset()
	return tc
}

// Reset gives the scenario a clean registry. External servers cannot be
// reset between scenarios, so BASE_URL runs share state.
func (tc *TestContext) Reset() {
	tc.LastResponse = nil
	tc.LastResponseBody = nil

	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		tc.BaseURL = baseURL
		return
	}

	tc.Close()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ledger := store.NewInMemoryCredentialStore()
	roles := store.NewInMemoryRoleStore()
	eventLog := events.NewInMemoryLog()
	publisher := events.NewPublisher([]events.Sink{eventLog})

	svc := service.NewService(roles, ledger, service.WithPublisher(publisher))
	if err := svc.Initialize(context.Background(), domain.Address(adminAccount)); err != nil {
		panic(fmt.Sprintf("failed to initialize registry: %v", err))
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Registry:  handler.New(svc, logger, handler.WithEventLog(eventLog)),
		Health:    health.New("e2e"),
		Principal: tc.tokens,
		Logger:    logger,
	})

	tc.server = httptest.NewServer(router)
	tc.BaseURL = tc.server.URL
}

// Close shuts down the in-process server, if any.
func (tc *TestContext) Close() {
	if tc.server != nil {
		tc.server.Close()
		tc.server = nil
	}
}

// TokenFor mints a bearer token authenticating the given account.
func (tc *TestContext) TokenFor(account string) (string, error) {
	address, err := domain.ParseAddress(account)
	if err != nil {
		return "", err
	}
	return tc.tokens.Generate(address)
}

// Do makes a request as the given account and stores the response.
// An empty account sends the request unauthenticated.
func (tc *TestContext) Do(method, path, account string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if account != "" {
		bearer, err := tc.TokenFor(account)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a field from the JSON response.
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %q not found in response: %s", field, string(tc.LastResponseBody))
	}
	return value, nil
}
