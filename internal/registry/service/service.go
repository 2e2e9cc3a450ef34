package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"attesta/internal/events"
	"attesta/internal/registry/metrics"
	"attesta/internal/registry/models"
	"attesta/internal/registry/store"
	"attesta/internal/registry/tracer"
	"attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
)

// EventPublisher emits ledger events for external indexers.
type EventPublisher interface {
	Emit(ctx context.Context, event events.Event)
}

// Option configures the registry service.
type Option func(*Service)

// Service is the credential registry: a flat two-role access control layer
// over an append-only credential ledger.
//
// All mutating calls are serialized through one mutex so that the role
// check, id assignment, and record insertion observed by any call form a
// single atomic unit. Queries read the stores' committed state concurrently
// and never take the writer lock.
type Service struct {
	mu sync.Mutex

	roles     store.RoleStore
	ledger    store.CredentialStore
	publisher EventPublisher
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	logger    *slog.Logger
}

// NewService creates a registry service over the given stores.
func NewService(roles store.RoleStore, ledger store.CredentialStore, opts ...Option) *Service {
	svc := &Service{
		roles:  roles,
		ledger: ledger,
		tracer: tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithPublisher configures an event publisher for the service.
func WithPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithMetrics configures Prometheus metrics for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer configures a tracer for the service.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithLogger configures a logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Initialize performs the one-time registry bootstrap, granting the
// administrator role to the bootstrap account. Any later call fails with
// the already-initialized code, no matter the caller.
func (s *Service) Initialize(ctx context.Context, bootstrapAdmin domain.Address) error {
	ctx, span := s.tracer.Start(ctx, tracer.SpanInitialize)
	var err error
	defer func() { span.End(err) }()

	if bootstrapAdmin.IsZero() {
		err = dErrors.New(dErrors.CodeInvalidInput, "bootstrap admin address required")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.roles.Bootstrap(ctx, bootstrapAdmin); err != nil {
		return err
	}

	s.emit(ctx, events.RoleGranted(domain.RoleAdministrator, bootstrapAdmin, bootstrapAdmin))
	s.log(ctx, "registry initialized", "bootstrap_admin", bootstrapAdmin)
	return nil
}

// GrantRole adds an account to a role set. Only administrators may call it.
// Granting an already-held role succeeds as a no-op and emits no event.
func (s *Service) GrantRole(ctx context.Context, req models.RoleRequest) error {
	ctx, span := s.tracer.Start(ctx, tracer.SpanGrantRole,
		tracer.String(tracer.AttrRole, req.Role.String()))
	var err error
	defer func() { span.End(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.requireAdministrator(ctx, req.Caller, "grant_role"); err != nil {
		return err
	}

	held, err := s.roles.Has(ctx, req.Role, req.Account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read role membership")
	}
	if held {
		span.SetAttributes(tracer.Bool(tracer.AttrIdempotent, true))
		return nil
	}

	if err = s.roles.Grant(ctx, req.Role, req.Account); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant role")
	}

	if s.metrics != nil {
		s.metrics.RolesGranted.WithLabelValues(req.Role.String()).Inc()
	}
	s.emit(ctx, events.RoleGranted(req.Role, req.Account, req.Caller))
	s.log(ctx, "role granted", "role", req.Role, "account", req.Account, "granted_by", req.Caller)
	return nil
}

// RevokeRole removes an account from a role set. Only administrators may
// call it. Revoking an unheld role succeeds as a no-op and emits no event.
func (s *Service) RevokeRole(ctx context.Context, req models.RoleRequest) error {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRevokeRole,
		tracer.String(tracer.AttrRole, req.Role.String()))
	var err error
	defer func() { span.End(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err = s.requireAdministrator(ctx, req.Caller, "revoke_role"); err != nil {
		return err
	}

	held, err := s.roles.Has(ctx, req.Role, req.Account)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read role membership")
	}
	if !held {
		span.SetAttributes(tracer.Bool(tracer.AttrIdempotent, true))
		return nil
	}

	if err = s.roles.Revoke(ctx, req.Role, req.Account); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke role")
	}

	if s.metrics != nil {
		s.metrics.RolesRevoked.WithLabelValues(req.Role.String()).Inc()
	}
	s.emit(ctx, events.RoleRevoked(req.Role, req.Account, req.Caller))
	s.log(ctx, "role revoked", "role", req.Role, "account", req.Account, "revoked_by", req.Caller)
	return nil
}

// AddInstitution grants the issuer role; a convenience wrapper with the
// same authorization rule as GrantRole.
func (s *Service) AddInstitution(ctx context.Context, caller, account domain.Address) error {
	return s.GrantRole(ctx, models.RoleRequest{Caller: caller, Role: domain.RoleIssuer, Account: account})
}

// RemoveInstitution revokes the issuer role.
func (s *Service) RemoveInstitution(ctx context.Context, caller, account domain.Address) error {
	return s.RevokeRole(ctx, models.RoleRequest{Caller: caller, Role: domain.RoleIssuer, Account: account})
}

// HasRole reports role membership. No authorization required.
func (s *Service) HasRole(ctx context.Context, role domain.Role, account domain.Address) (bool, error) {
	return s.roles.Has(ctx, role, account)
}

// IssueCredential appends a new record to the ledger. The caller must hold
// the issuer role at call time; membership is evaluated per call, never
// cached, so a revoked issuer loses issuance rights immediately.
func (s *Service) IssueCredential(ctx context.Context, req models.IssueRequest) (models.CredentialRecord, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanIssue)
	var err error
	defer func() { span.End(err) }()

	if req.Recipient.IsZero() {
		err = dErrors.New(dErrors.CodeInvalidRecipient, "recipient identity is required")
		return models.CredentialRecord{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	isIssuer, err := s.roles.Has(ctx, domain.RoleIssuer, req.Caller)
	if err != nil {
		return models.CredentialRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read role membership")
	}
	if !isIssuer {
		if s.metrics != nil {
			s.metrics.UnauthorizedCalls.WithLabelValues("issue").Inc()
		}
		err = dErrors.New(dErrors.CodeUnauthorized, "caller lacks issuer role")
		return models.CredentialRecord{}, err
	}

	record := models.CredentialRecord{
		Owner:       req.Recipient,
		Issuer:      req.Caller,
		MetadataRef: req.MetadataRef,
		Valid:       true,
		IssuedAt:    time.Now().UTC(),
	}

	id, err := s.ledger.Append(ctx, record)
	if err != nil {
		return models.CredentialRecord{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store credential")
	}
	record.ID = id
	span.SetAttributes(tracer.Int64(tracer.AttrCredentialID, int64(id)))

	if s.metrics != nil {
		s.metrics.CredentialsIssued.Inc()
		if count, countErr := s.ledger.Count(ctx); countErr == nil {
			s.metrics.LedgerSize.Set(float64(count))
		}
	}
	s.emit(ctx, events.CredentialIssued(id, record.Owner, record.Issuer))
	s.log(ctx, "credential issued", "id", id, "recipient", record.Owner, "issuer", record.Issuer)
	return record, nil
}

// RevokeCredential flips a record's validity flag. The caller must be the
// record's original issuer or hold the administrator role; the two
// predicates are checked explicitly, so administrators gain revocation
// override without inheriting issuance rights. Revoking an already-revoked
// record is an idempotent no-op and emits no second event.
func (s *Service) RevokeCredential(ctx context.Context, caller domain.Address, id domain.CredentialID) error {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRevoke,
		tracer.Int64(tracer.AttrCredentialID, int64(id)))
	var err error
	defer func() { span.End(err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.ledger.Find(ctx, id)
	if err != nil {
		return err
	}

	if caller != record.Issuer {
		isAdmin, adminErr := s.roles.Has(ctx, domain.RoleAdministrator, caller)
		if adminErr != nil {
			err = dErrors.Wrap(adminErr, dErrors.CodeInternal, "failed to read role membership")
			return err
		}
		if !isAdmin {
			if s.metrics != nil {
				s.metrics.UnauthorizedCalls.WithLabelValues("revoke").Inc()
			}
			err = dErrors.New(dErrors.CodeUnauthorized, "caller is neither the original issuer nor an administrator")
			return err
		}
	}

	if err = s.ledger.MarkRevoked(ctx, id); err != nil {
		if errors.Is(err, store.ErrAlreadyRevoked) {
			// Terminal state already reached; treat double revocation as
			// a no-op so concurrent revokers don't surprise each other.
			span.SetAttributes(tracer.Bool(tracer.AttrIdempotent, true))
			err = nil
			return nil
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.CredentialsRevoked.Inc()
	}
	s.emit(ctx, events.CredentialRevoked(id))
	s.log(ctx, "credential revoked", "id", id, "revoked_by", caller)
	return nil
}

// Credential returns the full record for an id.
func (s *Service) Credential(ctx context.Context, id domain.CredentialID) (models.CredentialRecord, error) {
	return s.ledger.Find(ctx, id)
}

// OwnerOf returns the recipient identity bound to a credential.
func (s *Service) OwnerOf(ctx context.Context, id domain.CredentialID) (domain.Address, error) {
	record, err := s.ledger.Find(ctx, id)
	if err != nil {
		return "", err
	}
	return record.Owner, nil
}

// IssuerOf returns the identity that issued a credential.
func (s *Service) IssuerOf(ctx context.Context, id domain.CredentialID) (domain.Address, error) {
	record, err := s.ledger.Find(ctx, id)
	if err != nil {
		return "", err
	}
	return record.Issuer, nil
}

// MetadataOf returns the opaque metadata reference supplied at issuance.
func (s *Service) MetadataOf(ctx context.Context, id domain.CredentialID) (string, error) {
	record, err := s.ledger.Find(ctx, id)
	if err != nil {
		return "", err
	}
	return record.MetadataRef, nil
}

// IsValid reports whether a credential has not been revoked.
func (s *Service) IsValid(ctx context.Context, id domain.CredentialID) (bool, error) {
	record, err := s.ledger.Find(ctx, id)
	if err != nil {
		return false, err
	}
	return record.Valid, nil
}

// Count returns the ledger length.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	return s.ledger.Count(ctx)
}

// requireAdministrator is the single role-membership gate for role
// management calls. Must be called with the writer lock held.
func (s *Service) requireAdministrator(ctx context.Context, caller domain.Address, operation string) error {
	isAdmin, err := s.roles.Has(ctx, domain.RoleAdministrator, caller)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read role membership")
	}
	if !isAdmin {
		if s.metrics != nil {
			s.metrics.UnauthorizedCalls.WithLabelValues(operation).Inc()
		}
		return dErrors.New(dErrors.CodeUnauthorized, "caller lacks administrator role")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Emit(ctx, event)
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, msg, args...)
}
