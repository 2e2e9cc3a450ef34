package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"attesta/internal/events"
	"attesta/internal/platform/middleware"
	"attesta/internal/registry/metrics"
	"attesta/internal/registry/models"
	"attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
	"attesta/pkg/platform/httputil"
	"attesta/pkg/validation"
)

// Service defines the registry operations the HTTP layer depends on.
type Service interface {
	IssueCredential(ctx context.Context, req models.IssueRequest) (models.CredentialRecord, error)
	RevokeCredential(ctx context.Context, caller domain.Address, id domain.CredentialID) error
	GrantRole(ctx context.Context, req models.RoleRequest) error
	RevokeRole(ctx context.Context, req models.RoleRequest) error
	AddInstitution(ctx context.Context, caller, account domain.Address) error
	RemoveInstitution(ctx context.Context, caller, account domain.Address) error
	HasRole(ctx context.Context, role domain.Role, account domain.Address) (bool, error)
	Credential(ctx context.Context, id domain.CredentialID) (models.CredentialRecord, error)
	IsValid(ctx context.Context, id domain.CredentialID) (bool, error)
}

// EventLog exposes the recorded event history to indexers.
type EventLog interface {
	List(ctx context.Context) ([]events.Event, error)
}

// Handler exposes the credential registry over HTTP. It delegates to the
// registry service without embedding business logic so transport concerns
// remain isolated.
type Handler struct {
	registry Service
	eventLog EventLog
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures the Handler.
type Option func(*Handler)

// WithEventLog exposes a readable event history on GET /registry/events.
func WithEventLog(log EventLog) Option {
	return func(h *Handler) {
		h.eventLog = log
	}
}

// WithMetrics records per-endpoint latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// New creates a registry Handler with the given service and logger.
func New(registry Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		registry: registry,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the public read-only routes. No authentication required.
func (h *Handler) Register(r chi.Router) {
	r.Get("/registry/credentials/{id}", h.HandleGetCredential)
	r.Get("/registry/credentials/{id}/valid", h.HandleGetValidity)
	r.Get("/registry/roles/{role}/{account}", h.HandleGetRoleMembership)
	r.Get("/registry/events", h.HandleListEvents)
}

// RegisterProtected mounts the mutating routes. The parent router must
// apply authentication middleware so GetCaller resolves a principal.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/registry/credentials", h.HandleIssue)
	r.Post("/registry/credentials/{id}/revoke", h.HandleRevoke)
	r.Post("/registry/roles/grant", h.HandleGrantRole)
	r.Post("/registry/roles/revoke", h.HandleRevokeRole)
	r.Post("/registry/institutions", h.HandleAddInstitution)
	r.Delete("/registry/institutions/{account}", h.HandleRemoveInstitution)
}

// IssueCredentialRequest is the issuance payload.
type IssueCredentialRequest struct {
	Recipient   string `json:"recipient" validate:"required,notblank,max=128"`
	MetadataRef string `json:"metadata_ref" validate:"required,notblank,max=512"`
}

// Normalize trims surrounding whitespace from the payload fields.
func (r *IssueCredentialRequest) Normalize() {
	r.Recipient = strings.TrimSpace(r.Recipient)
	r.MetadataRef = strings.TrimSpace(r.MetadataRef)
}

// Validate applies struct validation rules. A missing recipient gets the
// registry's dedicated code so callers can tell it apart from other
// validation failures.
func (r *IssueCredentialRequest) Validate() error {
	if r.Recipient == "" {
		return dErrors.New(dErrors.CodeInvalidRecipient, "recipient identity is required")
	}
	return validation.Validate(r)
}

// RoleChangeRequest is the grant/revoke payload.
type RoleChangeRequest struct {
	Role    string `json:"role" validate:"required,notblank"`
	Account string `json:"account" validate:"required,notblank,max=128"`
}

// Normalize trims surrounding whitespace from the payload fields.
func (r *RoleChangeRequest) Normalize() {
	r.Role = strings.TrimSpace(r.Role)
	r.Account = strings.TrimSpace(r.Account)
}

// Validate applies struct validation rules.
func (r *RoleChangeRequest) Validate() error {
	return validation.Validate(r)
}

// AddInstitutionRequest registers an account as a credential issuer.
type AddInstitutionRequest struct {
	Account string `json:"account" validate:"required,notblank,max=128"`
}

// Normalize trims surrounding whitespace from the account.
func (r *AddInstitutionRequest) Normalize() {
	r.Account = strings.TrimSpace(r.Account)
}

// Validate applies struct validation rules.
func (r *AddInstitutionRequest) Validate() error {
	return validation.Validate(r)
}

// CredentialResponse is the public view of a ledger record.
type CredentialResponse struct {
	ID          uint64     `json:"id"`
	Recipient   string     `json:"recipient"`
	Issuer      string     `json:"issuer"`
	MetadataRef string     `json:"metadata_ref"`
	Valid       bool       `json:"valid"`
	IssuedAt    time.Time  `json:"issued_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

func toCredentialResponse(record models.CredentialRecord) CredentialResponse {
	return CredentialResponse{
		ID:          uint64(record.ID),
		Recipient:   record.Owner.String(),
		Issuer:      record.Issuer.String(),
		MetadataRef: record.MetadataRef,
		Valid:       record.Valid,
		IssuedAt:    record.IssuedAt,
		RevokedAt:   record.RevokedAt,
	}
}

// HandleIssue implements POST /registry/credentials.
//
// Input: { "recipient": "0xstudent", "metadata_ref": "ipfs://Qm..." }
// Output: 201 with the full credential record.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	defer h.observe("issue_credential", time.Now())

	req, ok := httputil.DecodeAndPrepare[IssueCredentialRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	recipient, err := domain.ParseRecipient(req.Recipient)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.registry.IssueCredential(ctx, models.IssueRequest{
		Caller:      middleware.GetCaller(ctx),
		Recipient:   recipient,
		MetadataRef: req.MetadataRef,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "issuance rejected",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credential issued",
		"id", record.ID,
		"request_id", requestID,
	)
	httputil.WriteJSON(w, http.StatusCreated, toCredentialResponse(record))
}

// HandleRevoke implements POST /registry/credentials/{id}/revoke.
// Succeeds with 204 both on the first revocation and on repeats.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	defer h.observe("revoke_credential", time.Now())

	id, err := domain.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.registry.RevokeCredential(ctx, middleware.GetCaller(ctx), id); err != nil {
		h.logger.WarnContext(ctx, "revocation rejected",
			"error", err,
			"id", id,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "credential revoked",
		"id", id,
		"request_id", requestID,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleGrantRole implements POST /registry/roles/grant.
func (h *Handler) HandleGrantRole(w http.ResponseWriter, r *http.Request) {
	h.handleRoleChange(w, r, "grant_role", h.registry.GrantRole)
}

// HandleRevokeRole implements POST /registry/roles/revoke.
func (h *Handler) HandleRevokeRole(w http.ResponseWriter, r *http.Request) {
	h.handleRoleChange(w, r, "revoke_role", h.registry.RevokeRole)
}

func (h *Handler) handleRoleChange(w http.ResponseWriter, r *http.Request, endpoint string, apply func(context.Context, models.RoleRequest) error) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	defer h.observe(endpoint, time.Now())

	req, ok := httputil.DecodeAndPrepare[RoleChangeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	account, err := domain.ParseAddress(req.Account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := apply(ctx, models.RoleRequest{
		Caller:  middleware.GetCaller(ctx),
		Role:    role,
		Account: account,
	}); err != nil {
		h.logger.WarnContext(ctx, "role change rejected",
			"error", err,
			"role", role,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleAddInstitution implements POST /registry/institutions.
func (h *Handler) HandleAddInstitution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	defer h.observe("add_institution", time.Now())

	req, ok := httputil.DecodeAndPrepare[AddInstitutionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	account, err := domain.ParseAddress(req.Account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.registry.AddInstitution(ctx, middleware.GetCaller(ctx), account); err != nil {
		h.logger.WarnContext(ctx, "add institution rejected",
			"error", err,
			"account", account,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveInstitution implements DELETE /registry/institutions/{account}.
func (h *Handler) HandleRemoveInstitution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	defer h.observe("remove_institution", time.Now())

	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.registry.RemoveInstitution(ctx, middleware.GetCaller(ctx), account); err != nil {
		h.logger.WarnContext(ctx, "remove institution rejected",
			"error", err,
			"account", account,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetCredential implements GET /registry/credentials/{id}.
func (h *Handler) HandleGetCredential(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("get_credential", time.Now())

	id, err := domain.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.registry.Credential(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toCredentialResponse(record))
}

// HandleGetValidity implements GET /registry/credentials/{id}/valid.
// Unknown ids are an error, not "invalid": a missing credential and a
// revoked one must stay distinguishable to verifiers.
func (h *Handler) HandleGetValidity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("get_validity", time.Now())

	id, err := domain.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	valid, err := h.registry.IsValid(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"id":    uint64(id),
		"valid": valid,
	})
}

// HandleGetRoleMembership implements GET /registry/roles/{role}/{account}.
func (h *Handler) HandleGetRoleMembership(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("get_role_membership", time.Now())

	role, err := domain.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	account, err := domain.ParseAddress(chi.URLParam(r, "account"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	member, err := h.registry.HasRole(ctx, role, account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"role":    role.String(),
		"account": account.String(),
		"member":  member,
	})
}

// HandleListEvents implements GET /registry/events.
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("list_events", time.Now())

	if h.eventLog == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "event history not enabled"))
		return
	}

	recorded, err := h.eventLog.List(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"events": recorded,
		"count":  len(recorded),
	})
}

func (h *Handler) observe(endpoint string, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
