// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"strconv"
	"strings"
	"unicode"

	dErrors "attesta/pkg/domain-errors"
)

// Address is the opaque principal identifier the registry authorizes against.
// The identity layer resolves it (a wallet address in the reference deployment,
// but any comparably-equal token works); the registry never interprets it
// beyond equality checks.
type Address string

// CredentialID is the sequential, zero-based ledger identifier. IDs are
// assigned at issuance, never reused, and strictly increase over the
// registry's lifetime.
type CredentialID uint64

// Role names a membership set in the registry's access control layer.
type Role string

const (
	// RoleAdministrator manages issuer membership and may revoke any credential.
	RoleAdministrator Role = "administrator"
	// RoleIssuer may create credential records and revoke the ones it created.
	RoleIssuer Role = "issuer"
)

const maxAddressLen = 128

// ParseAddress validates an account identifier at a trust boundary.
// Addresses are opaque: any non-blank printable token without whitespace
// is accepted, up to 128 characters.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	if len(s) > maxAddressLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address is too long")
	}
	for _, r := range s {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "address contains invalid characters")
		}
	}
	return Address(s), nil
}

// ParseRecipient validates a credential recipient. It applies the same syntax
// rules as ParseAddress but reports the registry's invalid-recipient code so
// a malformed recipient is distinguishable from a malformed caller.
func ParseRecipient(s string) (Address, error) {
	addr, err := ParseAddress(s)
	if err != nil {
		return "", dErrors.New(dErrors.CodeInvalidRecipient, "recipient identity is malformed")
	}
	return addr, nil
}

// ParseCredentialID parses a decimal credential identifier.
func ParseCredentialID(s string) (CredentialID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "credential ID cannot be empty")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid credential ID format")
	}
	return CredentialID(n), nil
}

// ParseRole parses a role name.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdministrator:
		return RoleAdministrator, nil
	case RoleIssuer:
		return RoleIssuer, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
}

// String methods - for logging and debugging.

func (a Address) String() string { return string(a) }

func (id CredentialID) String() string { return strconv.FormatUint(uint64(id), 10) }

func (r Role) String() string { return string(r) }

// IsZero checks - used for service-layer validation.

func (a Address) IsZero() bool { return a == "" }
