package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attesta/pkg/domain"
	dErrors "attesta/pkg/domain-errors"
)

func newTestService() *Service {
	return NewService("test-signing-key", "http://localhost:8080", "attesta-registry", 15*time.Minute)
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestService()

	signed, err := svc.Generate("0xinstitution")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	address, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, domain.Address("0xinstitution"), address)
}

func TestGenerate_EmptyAddress(t *testing.T) {
	svc := newTestService()

	_, err := svc.Generate("")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestValidateToken_WrongKey(t *testing.T) {
	signed, err := newTestService().Generate("0xinstitution")
	require.NoError(t, err)

	other := NewService("different-key", "http://localhost:8080", "attesta-registry", 15*time.Minute)
	_, err = other.ValidateToken(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_Expired(t *testing.T) {
	expired := NewService("test-signing-key", "http://localhost:8080", "attesta-registry", -time.Minute)

	signed, err := expired.Generate("0xinstitution")
	require.NoError(t, err)

	_, err = newTestService().ValidateToken(signed)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_WrongAudience(t *testing.T) {
	other := NewService("test-signing-key", "http://localhost:8080", "another-service", 15*time.Minute)

	signed, err := other.Generate("0xinstitution")
	require.NoError(t, err)

	_, err = newTestService().ValidateToken(signed)
	require.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := newTestService().ValidateToken("not-a-jwt")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
