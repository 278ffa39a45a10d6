package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Field names used as keys in search and occupied-field maps.
const (
	FieldID       = "id"
	FieldUsername = "username"
	FieldEmail    = "email"
)

var ErrAccountNotFound = errors.New("account not found")
var ErrOccupiedValue = errors.New("occupied value")
var ErrInvalidAccount = errors.New("invalid account")

// AccountNotFoundError is returned when a lookup yields no record. It carries
// the search keys that were used.
type AccountNotFoundError struct {
	SearchFields map[string]string
}

// NewAccountNotFoundError builds an AccountNotFoundError from key/value pairs.
func NewAccountNotFoundError(kv ...string) *AccountNotFoundError {
	return &AccountNotFoundError{SearchFields: pairs(kv)}
}

func (e *AccountNotFoundError) Error() string {
	return "account not found: " + formatFields(e.SearchFields)
}

func (e *AccountNotFoundError) Is(target error) bool {
	return target == ErrAccountNotFound
}

// OccupiedValueError is returned when a create or update would give a second
// account an already held username or email.
type OccupiedValueError struct {
	OccupiedFields map[string]string
}

// NewOccupiedValueError builds an OccupiedValueError from key/value pairs.
func NewOccupiedValueError(kv ...string) *OccupiedValueError {
	return &OccupiedValueError{OccupiedFields: pairs(kv)}
}

func (e *OccupiedValueError) Error() string {
	return "occupied values: " + formatFields(e.OccupiedFields)
}

func (e *OccupiedValueError) Is(target error) bool {
	return target == ErrOccupiedValue
}

// Has reports whether field is among the occupied fields.
func (e *OccupiedValueError) Has(field string) bool {
	_, ok := e.OccupiedFields[field]
	return ok
}

func pairs(kv []string) map[string]string {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}

// formatFields renders a field map with keys in a stable order.
func formatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
