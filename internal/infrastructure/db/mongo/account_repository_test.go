package mongo

import (
	"errors"
	"testing"

	"github.com/rednet/account-service/internal/core/domain"
)

func TestDuplicateField(t *testing.T) {
	tests := []struct {
		msg   string
		field string
		ok    bool
	}{
		{`E11000 duplicate key error collection: account_service.accounts index: unique_username dup key: { username: "alice" }`, domain.FieldUsername, true},
		{`E11000 duplicate key error collection: account_service.accounts index: unique_email dup key: { email: "a@x.com" }`, domain.FieldEmail, true},
		{`E11000 duplicate key error collection: account_service.accounts index: _id_ dup key: { _id: 1 }`, "", false},
	}
	for _, tt := range tests {
		field, ok := duplicateField(tt.msg)
		if field != tt.field || ok != tt.ok {
			t.Errorf("duplicateField(%q) = (%q, %v), want (%q, %v)", tt.msg, field, ok, tt.field, tt.ok)
		}
	}
}

func TestTranslateWriteError_PassesThroughOtherErrors(t *testing.T) {
	cause := errors.New("connection reset")
	err := translateWriteError(cause, &domain.Account{Username: "alice"}, "insert account")

	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if errors.Is(err, domain.ErrOccupiedValue) {
		t.Fatal("non duplicate-key error must not map to ErrOccupiedValue")
	}
}

func TestDocumentRoundTrip_NormalisesRoles(t *testing.T) {
	in := &domain.Account{
		ID:         7,
		Username:   "alice",
		Email:      "a@x.com",
		Password:   "p",
		SecretWord: "s",
		Roles:      []domain.Role{{ID: domain.RoleUser}, {ID: domain.RoleAdmin}},
	}

	doc := toDocument(in)
	if len(doc.Roles) != 2 || doc.Roles[0] != domain.RoleAdmin || doc.Roles[1] != domain.RoleUser {
		t.Fatalf("expected sorted role ids, got %v", doc.Roles)
	}

	out := doc.toDomain()
	if out.ID != 7 || out.Username != "alice" || out.Email != "a@x.com" || out.SecretWord != "s" {
		t.Fatalf("unexpected account: %+v", out)
	}
	if !out.HasRole(domain.RoleUser) || !out.HasRole(domain.RoleAdmin) {
		t.Fatalf("roles lost: %+v", out.Roles)
	}
}
