package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attesta/internal/registry/models"
	"attesta/pkg/domain"
)

func TestCredentialStore_AppendAssignsSequentialIDs(t *testing.T) {
	s := NewInMemoryCredentialStore()
	ctx := context.Background()

	for want := uint64(0); want < 5; want++ {
		id, err := s.Append(ctx, models.CredentialRecord{
			Owner:       "0xstudent",
			Issuer:      "0xinstitution",
			MetadataRef: "ipfs://QmXyZ.../1",
			Valid:       true,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.CredentialID(want), id)
	}

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count)
}

func TestCredentialStore_FindUnknownID(t *testing.T) {
	s := NewInMemoryCredentialStore()

	_, err := s.Find(context.Background(), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCredentialStore_MarkRevoked(t *testing.T) {
	s := NewInMemoryCredentialStore()
	ctx := context.Background()

	id, err := s.Append(ctx, models.CredentialRecord{
		Owner:  "0xstudent",
		Issuer: "0xinstitution",
		Valid:  true,
	})
	require.NoError(t, err)

	require.NoError(t, s.MarkRevoked(ctx, id))

	rec, err := s.Find(ctx, id)
	require.NoError(t, err)
	assert.False(t, rec.Valid)
	require.NotNil(t, rec.RevokedAt)

	// Provenance survives revocation.
	assert.Equal(t, domain.Address("0xstudent"), rec.Owner)
	assert.Equal(t, domain.Address("0xinstitution"), rec.Issuer)

	// Second flip reports the already-revoked state.
	err = s.MarkRevoked(ctx, id)
	assert.ErrorIs(t, err, ErrAlreadyRevoked)
}

func TestCredentialStore_MarkRevokedUnknownID(t *testing.T) {
	s := NewInMemoryCredentialStore()
	assert.ErrorIs(t, s.MarkRevoked(context.Background(), 42), ErrNotFound)
}

func TestRoleStore_BootstrapOnce(t *testing.T) {
	s := NewInMemoryRoleStore()
	ctx := context.Background()

	require.NoError(t, s.Bootstrap(ctx, "0xadmin"))

	has, err := s.Has(ctx, domain.RoleAdministrator, "0xadmin")
	require.NoError(t, err)
	assert.True(t, has)

	err = s.Bootstrap(ctx, "0xother")
	assert.ErrorIs(t, err, ErrAlreadyBootstrapped)

	has, err = s.Has(ctx, domain.RoleAdministrator, "0xother")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRoleStore_GrantRevokeIdempotent(t *testing.T) {
	s := NewInMemoryRoleStore()
	ctx := context.Background()

	require.NoError(t, s.Grant(ctx, domain.RoleIssuer, "0xinstitution"))
	require.NoError(t, s.Grant(ctx, domain.RoleIssuer, "0xinstitution"))

	has, err := s.Has(ctx, domain.RoleIssuer, "0xinstitution")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.Revoke(ctx, domain.RoleIssuer, "0xinstitution"))
	require.NoError(t, s.Revoke(ctx, domain.RoleIssuer, "0xinstitution"))

	has, err = s.Has(ctx, domain.RoleIssuer, "0xinstitution")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRoleStore_RolesAreDisjointSets(t *testing.T) {
	s := NewInMemoryRoleStore()
	ctx := context.Background()

	require.NoError(t, s.Grant(ctx, domain.RoleAdministrator, "0xadmin"))

	has, err := s.Has(ctx, domain.RoleIssuer, "0xadmin")
	require.NoError(t, err)
	assert.False(t, has, "administrator must not inherit issuer membership")
}
