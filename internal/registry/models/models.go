package models

import (
	"time"

	"attesta/pkg/domain"
)

// CredentialRecord is one entry in the append-only ledger. Provenance fields
// (Owner, Issuer, MetadataRef) are set at issuance and never change; only
// Valid may flip, exactly once, from true to false.
type CredentialRecord struct {
	ID          domain.CredentialID
	Owner       domain.Address
	Issuer      domain.Address
	MetadataRef string
	Valid       bool
	IssuedAt    time.Time
	RevokedAt   *time.Time
}

// IssueRequest carries the validated inputs of an issuance call into the
// service layer. Caller is the principal resolved by the identity layer.
type IssueRequest struct {
	Caller      domain.Address
	Recipient   domain.Address
	MetadataRef string
}

// RoleRequest carries the validated inputs of a grant/revoke call.
type RoleRequest struct {
	Caller  domain.Address
	Role    domain.Role
	Account domain.Address
}
