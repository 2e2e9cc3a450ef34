package events

import (
	"time"

	"github.com/google/uuid"

	registrycontract "attesta/contracts/registry"
	"attesta/pkg/domain"
)

// Event wraps one of the versioned contract payloads with delivery metadata.
// Keep it transport-agnostic so sinks (in-memory log, Kafka) can fan out.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Type    string    `json:"type"`
	Version string    `json:"version"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

func newEvent(eventType string, payload any) Event {
	return Event{
		ID:      uuid.New(),
		Type:    eventType,
		Version: registrycontract.ContractVersion,
		At:      time.Now().UTC(),
		Payload: payload,
	}
}

// CredentialIssued builds the issuance event.
func CredentialIssued(id domain.CredentialID, recipient, issuer domain.Address) Event {
	return newEvent(registrycontract.TypeCredentialIssued, registrycontract.CredentialIssued{
		ID:        uint64(id),
		Recipient: recipient.String(),
		Issuer:    issuer.String(),
	})
}

// CredentialRevoked builds the revocation event.
func CredentialRevoked(id domain.CredentialID) Event {
	return newEvent(registrycontract.TypeCredentialRevoked, registrycontract.CredentialRevoked{
		ID: uint64(id),
	})
}

// RoleGranted builds the grant event.
func RoleGranted(role domain.Role, account, grantedBy domain.Address) Event {
	return newEvent(registrycontract.TypeRoleGranted, registrycontract.RoleGranted{
		Role:      role.String(),
		Account:   account.String(),
		GrantedBy: grantedBy.String(),
	})
}

// RoleRevoked builds the role revocation event.
func RoleRevoked(role domain.Role, account, revokedBy domain.Address) Event {
	return newEvent(registrycontract.TypeRoleRevoked, registrycontract.RoleRevoked{
		Role:      role.String(),
		Account:   account.String(),
		RevokedBy: revokedBy.String(),
	})
}
