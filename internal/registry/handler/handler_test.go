package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attesta/internal/events"
	"attesta/internal/platform/health"
	"attesta/internal/registry/handler"
	"attesta/internal/registry/service"
	"attesta/internal/registry/store"
	httptransport "attesta/internal/transport/http"
	"attesta/pkg/domain"
)

const (
	adminToken    = "0xadmin"
	issuerToken   = "0xuniversity"
	outsiderToken = "0xoutsider"
)

// passthroughValidator treats the bearer token itself as the caller address,
// which keeps transport tests independent of the JWT layer.
type passthroughValidator struct{}

func (passthroughValidator) ValidateToken(token string) (domain.Address, error) {
	return domain.ParseAddress(token)
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ledger := store.NewInMemoryCredentialStore()
	roles := store.NewInMemoryRoleStore()
	eventLog := events.NewInMemoryLog()
	publisher := events.NewPublisher([]events.Sink{eventLog})

	svc := service.NewService(roles, ledger, service.WithPublisher(publisher))
	ctx := context.Background()
	require.NoError(t, svc.Initialize(ctx, domain.Address(adminToken)))
	require.NoError(t, svc.AddInstitution(ctx, domain.Address(adminToken), domain.Address(issuerToken)))

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Registry:  handler.New(svc, logger, handler.WithEventLog(eventLog)),
		Health:    health.New("test"),
		Principal: passthroughValidator{},
		Logger:    logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func issueCredential(t *testing.T, srv *httptest.Server, token string) uint64 {
	t.Helper()

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/registry/credentials", token, map[string]string{
		"recipient":    "0xstudent",
		"metadata_ref": "ipfs://degree",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return uint64(body["id"].(float64))
}

func TestIssueEndpoint(t *testing.T) {
	t.Run("issuer receives sequential ids", func(t *testing.T) {
		srv := newTestServer(t)

		assert.Equal(t, uint64(0), issueCredential(t, srv, issuerToken))
		assert.Equal(t, uint64(1), issueCredential(t, srv, issuerToken))
	})

	t.Run("response carries the full record", func(t *testing.T) {
		srv := newTestServer(t)

		resp, body := doRequest(t, http.MethodPost, srv.URL+"/registry/credentials", issuerToken, map[string]string{
			"recipient":    "0xstudent",
			"metadata_ref": "ipfs://degree",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "0xstudent", body["recipient"])
		assert.Equal(t, issuerToken, body["issuer"])
		assert.Equal(t, "ipfs://degree", body["metadata_ref"])
		assert.Equal(t, true, body["valid"])
	})

	t.Run("missing bearer token is rejected", func(t *testing.T) {
		srv := newTestServer(t)

		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/registry/credentials", "", map[string]string{
			"recipient":    "0xstudent",
			"metadata_ref": "ipfs://degree",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("caller without issuer role is rejected", func(t *testing.T) {
		srv := newTestServer(t)

		resp, body := doRequest(t, http.MethodPost, srv.URL+"/registry/credentials", outsiderToken, map[string]string{
			"recipient":    "0xstudent",
			"metadata_ref": "ipfs://degree",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "unauthorized", body["error"])
	})

	t.Run("blank recipient is rejected with the recipient code", func(t *testing.T) {
		srv := newTestServer(t)

		resp, body := doRequest(t, http.MethodPost, srv.URL+"/registry/credentials", issuerToken, map[string]string{
			"recipient":    "   ",
			"metadata_ref": "ipfs://degree",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid_recipient", body["error"])
	})
}

func TestRevokeEndpoint(t *testing.T) {
	t.Run("issuer revokes and validity flips", func(t *testing.T) {
		srv := newTestServer(t)
		id := issueCredential(t, srv, issuerToken)

		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/registry/credentials/0/revoke", issuerToken, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, body := doRequest(t, http.MethodGet, srv.URL+"/registry/credentials/0/valid", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(id), body["id"])
		assert.Equal(t, false, body["valid"])
	})

	t.Run("repeat revocation still succeeds", func(t *testing.T) {
		srv := newTestServer(t)
		issueCredential(t, srv, issuerToken)

		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/registry/credentials/0/revoke", issuerToken, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, _ = doRequest(t, http.MethodPost, srv.URL+"/registry/credentials/0/revoke", issuerToken, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("administrator override", func(t *testing.T) {
		srv := newTestServer(t)
		issueCredential(t, srv, issuerToken)

		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/registry/credentials/0/revoke", adminToken, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("unrelated caller is rejected", func(t *testing.T) {
		srv := newTestServer(t)
		issueCredential(t, srv, issuerToken)

		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/registry/credentials/0/revoke", outsiderToken, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown id reports not found", func(t *testing.T) {
		srv := newTestServer(t)

		resp, body := doRequest(t, http.MethodPost, srv.URL+"/registry/credentials/42/revoke", issuerToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "not_found", body["error"])
	})

	t.Run("non-numeric id is a bad request", func(t *testing.T) {
		srv := newTestServer(t)

		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/registry/credentials/abc/revoke", issuerToken, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRoleEndpoints(t *testing.T) {
	t.Run("grant and query membership", func(t *testing.T) {
		srv := newTestServer(t)

		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/registry/roles/grant", adminToken, map[string]string{
			"role":    "issuer",
			"account": "0xcollege",
		})
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, body := doRequest(t, http.MethodGet, srv.URL+"/registry/roles/issuer/0xcollege", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["member"])
	})

	t.Run("revoke removes membership", func(t *testing.T) {
		srv := newTestServer(t)

		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/registry/roles/revoke", adminToken, map[string]string{
			"role":    "issuer",
			"account": issuerToken,
		})
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		_, body := doRequest(t, http.MethodGet, srv.URL+"/registry/roles/issuer/"+issuerToken, "", nil)
		assert.Equal(t, false, body["member"])
	})

	t.Run("unknown role name is a bad request", func(t *testing.T) {
		srv := newTestServer(t)

		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/registry/roles/grant", adminToken, map[string]string{
			"role":    "superuser",
			"account": "0xcollege",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("non-administrator cannot grant", func(t *testing.T) {
		srv := newTestServer(t)

		resp, _ := doRequest(t, http.MethodPost, srv.URL+"/registry/roles/grant", issuerToken, map[string]string{
			"role":    "issuer",
			"account": "0xcollege",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestInstitutionEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/registry/institutions", adminToken, map[string]string{
		"account": "0xcollege",
	})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body := doRequest(t, http.MethodGet, srv.URL+"/registry/roles/issuer/0xcollege", "", nil)
	require.Equal(t, true, body["member"])

	resp, _ = doRequest(t, http.MethodDelete, srv.URL+"/registry/institutions/0xcollege", adminToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body = doRequest(t, http.MethodGet, srv.URL+"/registry/roles/issuer/0xcollege", "", nil)
	assert.Equal(t, false, body["member"])
}

func TestQueryEndpoints(t *testing.T) {
	t.Run("get credential", func(t *testing.T) {
		srv := newTestServer(t)
		issueCredential(t, srv, issuerToken)

		resp, body := doRequest(t, http.MethodGet, srv.URL+"/registry/credentials/0", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(0), body["id"])
		assert.Equal(t, "0xstudent", body["recipient"])
		assert.Equal(t, issuerToken, body["issuer"])
	})

	t.Run("unknown credential reports not found", func(t *testing.T) {
		srv := newTestServer(t)

		resp, _ := doRequest(t, http.MethodGet, srv.URL+"/registry/credentials/9", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, _ = doRequest(t, http.MethodGet, srv.URL+"/registry/credentials/9/valid", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("event history", func(t *testing.T) {
		srv := newTestServer(t)
		issueCredential(t, srv, issuerToken)

		resp, body := doRequest(t, http.MethodGet, srv.URL+"/registry/events", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		// Bootstrap grant, issuer grant, one issuance.
		assert.Equal(t, float64(3), body["count"])
	})
}

// Compile-time check that the concrete service satisfies the transport contract.
var _ handler.Service = (*service.Service)(nil)
