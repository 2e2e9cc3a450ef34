package registry

// ContractVersion identifies the event schema shared with external indexers
// and verifiers. Indexers reconstruct full ledger history from these payloads
// without replaying registry state.
const ContractVersion = "v0.1.0"

// Event type names as they appear on the wire.
const (
	TypeCredentialIssued  = "credential_issued"
	TypeCredentialRevoked = "credential_revoked"
	TypeRoleGranted       = "role_granted"
	TypeRoleRevoked       = "role_revoked"
)

// CredentialIssued is emitted once per successful issuance.
type CredentialIssued struct {
	ID        uint64 `json:"id"`
	Recipient string `json:"recipient"`
	Issuer    string `json:"issuer"`
}

// CredentialRevoked is emitted on the first (and only effective) revocation
// of a credential.
type CredentialRevoked struct {
	ID uint64 `json:"id"`
}

// RoleGranted is emitted when an administrator grants a role. Idempotent
// re-grants emit nothing.
type RoleGranted struct {
	Role      string `json:"role"`
	Account   string `json:"account"`
	GrantedBy string `json:"granted_by"`
}

// RoleRevoked is emitted when an administrator revokes a held role.
type RoleRevoked struct {
	Role      string `json:"role"`
	Account   string `json:"account"`
	RevokedBy string `json:"revoked_by"`
}
