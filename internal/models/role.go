package models

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleOrganizer Role = "ORGANIZER"
	RoleCustomer  Role = "CUSTOMER"
	RoleStaff     Role = "STAFF"
)

// NormalizeRole turns role strings from tokens or user rows into a Role.
// Matching ignores case, surrounding space and a ROLE_ prefix; "USER" is
// the legacy name for customers.
func NormalizeRole(s string) (Role, error) {
	r := strings.ToUpper(strings.TrimSpace(s))
	r = strings.TrimPrefix(r, "ROLE_")
	switch r {
	case "ADMIN":
		return RoleAdmin, nil
	case "ORGANIZER", "ORGANISER":
		return RoleOrganizer, nil
	case "CUSTOMER", "USER":
		return RoleCustomer, nil
	case "STAFF":
		return RoleStaff, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleCustomer, RoleStaff:
		return true
	}
	return false
}
