package store

import (
	"context"
	"sync"
	"time"

	"attesta/internal/registry/models"
	"attesta/pkg/domain"
)

// InMemoryCredentialStore is an in-memory ledger for tests or local use.
// It is safe for concurrent access but does not persist across process restarts.
type InMemoryCredentialStore struct {
	mu      sync.RWMutex
	records []models.CredentialRecord
}

// NewInMemoryCredentialStore constructs an empty in-memory ledger.
func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{}
}

// Append assigns the next sequential id and stores the record.
func (s *InMemoryCredentialStore) Append(_ context.Context, record models.CredentialRecord) (domain.CredentialID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.ID = domain.CredentialID(len(s.records))
	s.records = append(s.records, record)
	return record.ID, nil
}

// Find retrieves a record by id or returns ErrNotFound.
func (s *InMemoryCredentialStore) Find(_ context.Context, id domain.CredentialID) (models.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if uint64(id) >= uint64(len(s.records)) {
		return models.CredentialRecord{}, ErrNotFound
	}
	return s.records[id], nil
}

// MarkRevoked flips the validity flag of an existing record.
func (s *InMemoryCredentialStore) MarkRevoked(_ context.Context, id domain.CredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(id) >= uint64(len(s.records)) {
		return ErrNotFound
	}
	if !s.records[id].Valid {
		return ErrAlreadyRevoked
	}
	now := time.Now().UTC()
	s.records[id].Valid = false
	s.records[id].RevokedAt = &now
	return nil
}

// Count returns the ledger length.
func (s *InMemoryCredentialStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.records)), nil
}

// InMemoryRoleStore keeps role membership in per-role hash sets.
type InMemoryRoleStore struct {
	mu           sync.RWMutex
	members      map[domain.Role]map[domain.Address]struct{}
	bootstrapped bool
}

// NewInMemoryRoleStore constructs an empty in-memory role store.
func NewInMemoryRoleStore() *InMemoryRoleStore {
	return &InMemoryRoleStore{members: make(map[domain.Role]map[domain.Address]struct{})}
}

// Bootstrap records initialization and grants administrator to the bootstrap account.
func (s *InMemoryRoleStore) Bootstrap(_ context.Context, admin domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bootstrapped {
		return ErrAlreadyBootstrapped
	}
	s.bootstrapped = true
	s.grantLocked(domain.RoleAdministrator, admin)
	return nil
}

// Grant adds an account to a role set. Granting an already-held role is a no-op.
func (s *InMemoryRoleStore) Grant(_ context.Context, role domain.Role, account domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grantLocked(role, account)
	return nil
}

func (s *InMemoryRoleStore) grantLocked(role domain.Role, account domain.Address) {
	set, ok := s.members[role]
	if !ok {
		set = make(map[domain.Address]struct{})
		s.members[role] = set
	}
	set[account] = struct{}{}
}

// Revoke removes an account from a role set. Revoking an unheld role is a no-op.
func (s *InMemoryRoleStore) Revoke(_ context.Context, role domain.Role, account domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.members[role]; ok {
		delete(set, account)
	}
	return nil
}

// Has reports whether an account holds a role.
func (s *InMemoryRoleStore) Has(_ context.Context, role domain.Role, account domain.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[role][account]
	return ok, nil
}
