package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "attesta/pkg/domain-errors"
)

func TestParseAddress(t *testing.T) {
	t.Run("accepts hex wallet address", func(t *testing.T) {
		addr, err := ParseAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
		require.NoError(t, err)
		assert.Equal(t, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", addr.String())
	})

	t.Run("accepts opaque principal token", func(t *testing.T) {
		_, err := ParseAddress("did:web:registrar.example")
		require.NoError(t, err)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		addr, err := ParseAddress("  0xabc  ")
		require.NoError(t, err)
		assert.Equal(t, Address("0xabc"), addr)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseAddress("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects embedded whitespace", func(t *testing.T) {
		_, err := ParseAddress("0x12 34")
		require.Error(t, err)
	})

	t.Run("rejects overlong input", func(t *testing.T) {
		_, err := ParseAddress(strings.Repeat("a", 129))
		require.Error(t, err)
	})
}

func TestParseRecipient(t *testing.T) {
	t.Run("reports invalid_recipient for malformed identity", func(t *testing.T) {
		_, err := ParseRecipient("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidRecipient))
	})

	t.Run("accepts well-formed identity", func(t *testing.T) {
		addr, err := ParseRecipient("0xstudent")
		require.NoError(t, err)
		assert.False(t, addr.IsZero())
	})
}

func TestParseCredentialID(t *testing.T) {
	t.Run("parses zero", func(t *testing.T) {
		id, err := ParseCredentialID("0")
		require.NoError(t, err)
		assert.Equal(t, CredentialID(0), id)
	})

	t.Run("rejects negative", func(t *testing.T) {
		_, err := ParseCredentialID("-1")
		require.Error(t, err)
	})

	t.Run("rejects non-numeric", func(t *testing.T) {
		_, err := ParseCredentialID("abc")
		require.Error(t, err)
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseCredentialID("")
		require.Error(t, err)
	})
}

func TestParseRole(t *testing.T) {
	t.Run("parses known roles case-insensitively", func(t *testing.T) {
		role, err := ParseRole("Administrator")
		require.NoError(t, err)
		assert.Equal(t, RoleAdministrator, role)

		role, err = ParseRole("issuer")
		require.NoError(t, err)
		assert.Equal(t, RoleIssuer, role)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := ParseRole("superuser")
		require.Error(t, err)
	})
}
