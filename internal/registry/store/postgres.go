package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"attesta/internal/registry/models"
	"attesta/pkg/domain"
)

// PostgresCredentialStore persists the ledger in PostgreSQL.
//
// Sequential id assignment reads MAX(id)+1 inside the insert statement; the
// service's writer lock serializes Append calls, so two inserts never race
// for the same id within one process.
type PostgresCredentialStore struct {
	db *sql.DB
}

// NewPostgresCredentialStore constructs a PostgreSQL-backed ledger.
func NewPostgresCredentialStore(db *sql.DB) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db}
}

func (s *PostgresCredentialStore) Append(ctx context.Context, record models.CredentialRecord) (domain.CredentialID, error) {
	query := `
		INSERT INTO registry_credentials (id, owner_address, issuer_address, metadata_ref, valid, issued_at)
		SELECT COALESCE(MAX(id) + 1, 0), $1, $2, $3, $4, $5
		FROM registry_credentials
		RETURNING id
	`
	var id int64
	err := s.db.QueryRowContext(ctx, query,
		record.Owner.String(),
		record.Issuer.String(),
		record.MetadataRef,
		record.Valid,
		record.IssuedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append credential: %w", err)
	}
	return domain.CredentialID(id), nil
}

func (s *PostgresCredentialStore) Find(ctx context.Context, id domain.CredentialID) (models.CredentialRecord, error) {
	query := `
		SELECT id, owner_address, issuer_address, metadata_ref, valid, issued_at, revoked_at
		FROM registry_credentials
		WHERE id = $1
	`
	var (
		record    models.CredentialRecord
		rawID     int64
		owner     string
		issuer    string
		revokedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, int64(id)).Scan(
		&rawID, &owner, &issuer, &record.MetadataRef, &record.Valid, &record.IssuedAt, &revokedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CredentialRecord{}, ErrNotFound
	}
	if err != nil {
		return models.CredentialRecord{}, fmt.Errorf("find credential: %w", err)
	}
	record.ID = domain.CredentialID(rawID)
	record.Owner = domain.Address(owner)
	record.Issuer = domain.Address(issuer)
	if revokedAt.Valid {
		record.RevokedAt = &revokedAt.Time
	}
	return record, nil
}

func (s *PostgresCredentialStore) MarkRevoked(ctx context.Context, id domain.CredentialID) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE registry_credentials
		SET valid = FALSE, revoked_at = now()
		WHERE id = $1 AND valid
	`, int64(id))
	if err != nil {
		return fmt.Errorf("mark revoked: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark revoked: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Nothing flipped: distinguish unknown id from already-revoked.
	var exists bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registry_credentials WHERE id = $1)`, int64(id),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("mark revoked: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyRevoked
}

func (s *PostgresCredentialStore) Count(ctx context.Context) (uint64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registry_credentials`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count credentials: %w", err)
	}
	return uint64(count), nil
}

// PostgresRoleStore persists role membership in PostgreSQL.
type PostgresRoleStore struct {
	db *sql.DB
}

// NewPostgresRoleStore constructs a PostgreSQL-backed role store.
func NewPostgresRoleStore(db *sql.DB) *PostgresRoleStore {
	return &PostgresRoleStore{db: db}
}

func (s *PostgresRoleStore) Bootstrap(ctx context.Context, admin domain.Address) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx, `
		INSERT INTO registry_bootstrap (singleton, admin_address)
		VALUES (TRUE, $1)
		ON CONFLICT (singleton) DO NOTHING
	`, admin.String())
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if affected == 0 {
		return ErrAlreadyBootstrapped
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO registry_roles (role, account)
		VALUES ($1, $2)
		ON CONFLICT (role, account) DO NOTHING
	`, domain.RoleAdministrator.String(), admin.String())
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresRoleStore) Grant(ctx context.Context, role domain.Role, account domain.Address) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registry_roles (role, account)
		VALUES ($1, $2)
		ON CONFLICT (role, account) DO NOTHING
	`, role.String(), account.String())
	if err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}

func (s *PostgresRoleStore) Revoke(ctx context.Context, role domain.Role, account domain.Address) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM registry_roles WHERE role = $1 AND account = $2
	`, role.String(), account.String())
	if err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	return nil
}

func (s *PostgresRoleStore) Has(ctx context.Context, role domain.Role, account domain.Address) (bool, error) {
	var has bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM registry_roles WHERE role = $1 AND account = $2)
	`, role.String(), account.String()).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("has role: %w", err)
	}
	return has, nil
}
