package domain

import "sort"

const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// Role wraps a role identifier. Two roles are equal when their IDs are equal.
type Role struct {
	ID string `json:"id"`
}

// Account is the persisted user record.
type Account struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	SecretWord string `json:"secret_word"`
	Roles      []Role `json:"roles"`
}

// RoleIDs returns the account's role identifiers, sorted.
func (a *Account) RoleIDs() []string {
	ids := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	return ids
}

// HasRole reports whether the account holds the given role.
func (a *Account) HasRole(id string) bool {
	for _, r := range a.Roles {
		if r.ID == id {
			return true
		}
	}
	return false
}

// NewRoleSet expands role identifiers into a role set: duplicates and blank
// identifiers are dropped and the result is sorted by ID.
func NewRoleSet(ids []string) []Role {
	seen := make(map[string]struct{}, len(ids))
	roles := make([]Role, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		roles = append(roles, Role{ID: id})
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles
}

// AccountUniqueFields is the projection of an account onto its unique columns.
type AccountUniqueFields struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AccountUniqueFieldsOccupancy reports whether a candidate username and email
// are already held by some account.
type AccountUniqueFieldsOccupancy struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	UsernameOccupied bool   `json:"username_occupied"`
	EmailOccupied    bool   `json:"email_occupied"`
}

// AnyOccupied reports whether either value is taken.
func (o AccountUniqueFieldsOccupancy) AnyOccupied() bool {
	return o.UsernameOccupied || o.EmailOccupied
}

// OccupiedFields returns the colliding fields keyed by field name.
func (o AccountUniqueFieldsOccupancy) OccupiedFields() map[string]string {
	fields := make(map[string]string, 2)
	if o.UsernameOccupied {
		fields[FieldUsername] = o.Username
	}
	if o.EmailOccupied {
		fields[FieldEmail] = o.Email
	}
	return fields
}
