package store

import (
	"context"

	"attesta/internal/registry/models"
	"attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
)

var (
	// ErrNotFound keeps storage-specific 404s consistent across implementations.
	ErrNotFound = dErrors.New(dErrors.CodeNotFound, "credential not found")

	// ErrAlreadyBootstrapped signals that the one-time registry
	// initialization has already happened.
	ErrAlreadyBootstrapped = dErrors.New(dErrors.CodeAlreadyInitialized, "registry already initialized")

	// ErrAlreadyRevoked signals that a record's validity flag was already
	// flipped. The service treats it as an idempotent no-op.
	ErrAlreadyRevoked = dErrors.New(dErrors.CodeConflict, "credential already revoked")
)

// CredentialStore persists the append-only credential ledger.
//
// Append assigns the next sequential identifier (zero-based, never reused)
// and must be called only under the service's writer lock so id assignment
// and record insertion form one atomic unit.
type CredentialStore interface {
	Append(ctx context.Context, record models.CredentialRecord) (domain.CredentialID, error)
	Find(ctx context.Context, id domain.CredentialID) (models.CredentialRecord, error)
	// MarkRevoked flips the validity flag. Returns ErrNotFound for unknown
	// ids and ErrAlreadyRevoked if the flag was already false.
	MarkRevoked(ctx context.Context, id domain.CredentialID) error
	Count(ctx context.Context) (uint64, error)
}

// RoleStore persists role membership sets. Grant and Revoke are idempotent
// at the storage level; the service decides whether a call was a no-op by
// checking membership first under its writer lock.
type RoleStore interface {
	// Bootstrap records the one-time initialization and grants the
	// administrator role to the bootstrap account. Returns
	// ErrAlreadyBootstrapped on any subsequent call.
	Bootstrap(ctx context.Context, admin domain.Address) error
	Grant(ctx context.Context, role domain.Role, account domain.Address) error
	Revoke(ctx context.Context, role domain.Role, account domain.Address) error
	Has(ctx context.Context, role domain.Role, account domain.Address) (bool, error)
}
