package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	registrycontract "attesta/contracts/registry"
)

type failingSink struct{}

func (failingSink) Append(context.Context, Event) error { return errors.New("sink down") }

func TestPublisher_SyncDeliversToAllSinks(t *testing.T) {
	log1 := NewInMemoryLog()
	log2 := NewInMemoryLog()
	p := NewPublisher([]Sink{log1, log2})

	p.Emit(context.Background(), CredentialIssued(0, "0xstudent", "0xinstitution"))

	for _, log := range []*InMemoryLog{log1, log2} {
		got, err := log.List(context.Background())
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, registrycontract.TypeCredentialIssued, got[0].Type)
		assert.Equal(t, registrycontract.ContractVersion, got[0].Version)
	}
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	log := NewInMemoryLog()
	p := NewPublisher([]Sink{log}, WithAsyncBuffer(16))

	for i := 0; i < 10; i++ {
		p.Emit(context.Background(), CredentialRevoked(0))
	}
	p.Close()

	got, err := log.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func TestPublisher_FailingSinkDoesNotBlockOthers(t *testing.T) {
	log := NewInMemoryLog()
	p := NewPublisher([]Sink{failingSink{}, log})

	p.Emit(context.Background(), RoleGranted("issuer", "0xinstitution", "0xadmin"))

	got, err := log.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPublisher_ConcurrentEmit(t *testing.T) {
	log := NewInMemoryLog()
	p := NewPublisher([]Sink{log})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Emit(context.Background(), CredentialIssued(0, "0xstudent", "0xinstitution"))
		}()
	}
	wg.Wait()

	got, err := log.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 20)
}

func TestEventConstructors(t *testing.T) {
	before := time.Now().UTC()
	ev := RoleRevoked("issuer", "0xinstitution", "0xadmin")

	assert.Equal(t, registrycontract.TypeRoleRevoked, ev.Type)
	assert.False(t, ev.At.Before(before))
	payload, ok := ev.Payload.(registrycontract.RoleRevoked)
	require.True(t, ok)
	assert.Equal(t, "0xadmin", payload.RevokedBy)
}
