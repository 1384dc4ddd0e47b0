package entity

import (
	"fmt"
	"strings"
)

// Ref identifies one investigated subject. Refs are created from the
// submission request and never mutated afterwards.
type Ref struct {
	ID   string `json:"id"`
	Type Type   `json:"type"`
}

// NewRef creates a validated entity reference
func NewRef(id string, entityType Type) (Ref, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Ref{}, fmt.Errorf("entity id cannot be empty")
	}
	if !entityType.IsValid() {
		return Ref{}, fmt.Errorf("unknown entity type: %d", entityType)
	}
	return Ref{ID: id, Type: entityType}, nil
}

type Type int

const (
	TypeUser Type = iota
	TypeDevice
	TypeTransaction
	TypeIPAddress
	TypeEmail
	TypeAccount
)

func (t Type) String() string {
	switch t {
	case TypeUser:
		return "user"
	case TypeDevice:
		return "device"
	case TypeTransaction:
		return "transaction"
	case TypeIPAddress:
		return "ip_address"
	case TypeEmail:
		return "email"
	case TypeAccount:
		return "account"
	default:
		return "unknown"
	}
}

func (t Type) IsValid() bool {
	return t >= TypeUser && t <= TypeAccount
}

// ParseType converts a wire-format type name into a Type
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return TypeUser, nil
	case "device":
		return TypeDevice, nil
	case "transaction":
		return TypeTransaction, nil
	case "ip_address", "ip":
		return TypeIPAddress, nil
	case "email":
		return TypeEmail, nil
	case "account":
		return TypeAccount, nil
	default:
		return 0, fmt.Errorf("unknown entity type: %q", s)
	}
}
