package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/rednet/account-service/internal/core/domain"
	"github.com/rednet/account-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubAccountRepo struct {
	accounts map[int64]*domain.Account
	nextID   int64
	calls    map[string]int
	saveErr  error // if set, Save returns this error
}

func newStubAccountRepo() *stubAccountRepo {
	return &stubAccountRepo{
		accounts: make(map[int64]*domain.Account),
		calls:    make(map[string]int),
	}
}

func cloneAccount(a *domain.Account) *domain.Account {
	clone := *a
	clone.Roles = append([]domain.Role(nil), a.Roles...)
	return &clone
}

func (r *stubAccountRepo) seed(a *domain.Account) *domain.Account {
	r.nextID++
	a.ID = r.nextID
	r.accounts[a.ID] = cloneAccount(a)
	return a
}

// lookups returns how many calls other than Save/Delete were made.
func (r *stubAccountRepo) lookups() int {
	n := 0
	for name, c := range r.calls {
		if name != "Save" && name != "Delete" {
			n += c
		}
	}
	return n
}

func (r *stubAccountRepo) find(match func(*domain.Account) bool) (*domain.Account, error) {
	for id := int64(1); id <= r.nextID; id++ {
		if a, ok := r.accounts[id]; ok && match(a) {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *stubAccountRepo) FindByID(_ context.Context, id int64) (*domain.Account, error) {
	r.calls["FindByID"]++
	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (r *stubAccountRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.calls["FindByUsername"]++
	return r.find(func(a *domain.Account) bool { return a.Username == username })
}

func (r *stubAccountRepo) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.calls["FindByEmail"]++
	return r.find(func(a *domain.Account) bool { return a.Email == email })
}

func (r *stubAccountRepo) FindByUsernameOrEmail(_ context.Context, username, email string) (*domain.Account, error) {
	r.calls["FindByUsernameOrEmail"]++
	return r.find(func(a *domain.Account) bool { return a.Username == username || a.Email == email })
}

func (r *stubAccountRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.calls["ExistsByUsername"]++
	for _, a := range r.accounts {
		if a.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubAccountRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.calls["ExistsByEmail"]++
	for _, a := range r.accounts {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubAccountRepo) FindAllUniqueFieldsByUsernameOrEmail(_ context.Context, username, email string) ([]ports.AccountUniqueFieldsRecord, error) {
	r.calls["FindAllUniqueFieldsByUsernameOrEmail"]++
	var out []ports.AccountUniqueFieldsRecord
	for _, a := range r.accounts {
		if a.Username == username || a.Email == email {
			out = append(out, ports.AccountUniqueFieldsRecord{
				ID:                  a.ID,
				AccountUniqueFields: domain.AccountUniqueFields{Username: a.Username, Email: a.Email},
			})
		}
	}
	return out, nil
}

func (r *stubAccountRepo) Save(_ context.Context, a *domain.Account) (*domain.Account, error) {
	r.calls["Save"]++
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	clone := cloneAccount(a)
	if clone.ID == 0 {
		r.nextID++
		clone.ID = r.nextID
	}
	r.accounts[clone.ID] = clone
	return cloneAccount(clone), nil
}

func (r *stubAccountRepo) Delete(_ context.Context, a *domain.Account) error {
	r.calls["Delete"]++
	delete(r.accounts, a.ID)
	return nil
}

type stubPublisher struct {
	events []domain.AccountEvent
}

func (p *stubPublisher) Publish(e domain.AccountEvent) {
	p.events = append(p.events, e)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

func newTestService() (*AccountService, *stubAccountRepo, *stubPublisher) {
	repo := newStubAccountRepo()
	pub := &stubPublisher{}
	return NewAccountService(repo, pub, discardLogger), repo, pub
}

func aliceCreation() ports.AccountCreation {
	return ports.AccountCreation{
		Username:   "alice",
		Email:      "a@x.com",
		Password:   "p",
		SecretWord: "s",
		Roles:      []string{domain.RoleUser},
	}
}

func seedAccount(repo *stubAccountRepo, username, email string) *domain.Account {
	return repo.seed(&domain.Account{
		Username:   username,
		Email:      email,
		Password:   "p",
		SecretWord: "s",
		Roles:      []domain.Role{{ID: domain.RoleUser}},
	})
}

func updateOf(a *domain.Account) ports.AccountUpdate {
	return ports.AccountUpdate{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		Password:   a.Password,
		SecretWord: a.SecretWord,
		Roles:      a.RoleIDs(),
	}
}

func requireOccupied(t *testing.T, err error, want map[string]string) {
	t.Helper()
	var occupied *domain.OccupiedValueError
	if !errors.As(err, &occupied) {
		t.Fatalf("expected OccupiedValueError, got %v", err)
	}
	if !errors.Is(err, domain.ErrOccupiedValue) {
		t.Fatalf("expected errors.Is(err, ErrOccupiedValue)")
	}
	if len(occupied.OccupiedFields) != len(want) {
		t.Fatalf("expected occupied fields %v, got %v", want, occupied.OccupiedFields)
	}
	for k, v := range want {
		if occupied.OccupiedFields[k] != v {
			t.Fatalf("expected occupied %s=%q, got %v", k, v, occupied.OccupiedFields)
		}
	}
}

// ---------------------------------------------------------------------------
// CreateAccount
// ---------------------------------------------------------------------------

func TestAccountService_Create_Success(t *testing.T) {
	svc, repo, pub := newTestService()

	account, err := svc.CreateAccount(context.Background(), aliceCreation())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account.ID == 0 {
		t.Fatal("expected generated id")
	}
	if ids := account.RoleIDs(); len(ids) != 1 || ids[0] != domain.RoleUser {
		t.Fatalf("unexpected roles: %v", ids)
	}
	if repo.calls["FindAllUniqueFieldsByUsernameOrEmail"] != 1 {
		t.Errorf("expected one batched occupancy lookup, got %d", repo.calls["FindAllUniqueFieldsByUsernameOrEmail"])
	}
	if len(pub.events) != 1 || pub.events[0].Type != domain.EventAccountCreated {
		t.Fatalf("expected one account.created event, got %+v", pub.events)
	}
	if pub.events[0].AccountID != account.ID || pub.events[0].ID == "" {
		t.Errorf("unexpected event: %+v", pub.events[0])
	}
}

func TestAccountService_Create_CollapsesDuplicateRoles(t *testing.T) {
	svc, _, _ := newTestService()

	in := aliceCreation()
	in.Roles = []string{domain.RoleUser, domain.RoleAdmin, domain.RoleUser}

	account, err := svc.CreateAccount(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := account.RoleIDs()
	if len(ids) != 2 || ids[0] != domain.RoleAdmin || ids[1] != domain.RoleUser {
		t.Fatalf("expected {ROLE_ADMIN, ROLE_USER}, got %v", ids)
	}
}

func TestAccountService_Create_DuplicateUsername(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, aliceCreation()); err != nil {
		t.Fatalf("first create: %v", err)
	}

	in := aliceCreation()
	in.Email = "other@x.com"
	_, err := svc.CreateAccount(ctx, in)
	requireOccupied(t, err, map[string]string{domain.FieldUsername: "alice"})

	if len(repo.accounts) != 1 {
		t.Errorf("store must be unchanged, has %d accounts", len(repo.accounts))
	}
}

func TestAccountService_Create_BothOccupiedByDifferentAccounts(t *testing.T) {
	svc, repo, _ := newTestService()
	seedAccount(repo, "alice", "a@x.com")
	seedAccount(repo, "bob", "b@x.com")
	saves := repo.calls["Save"]

	in := aliceCreation()
	in.Email = "b@x.com"
	_, err := svc.CreateAccount(context.Background(), in)
	requireOccupied(t, err, map[string]string{domain.FieldUsername: "alice", domain.FieldEmail: "b@x.com"})

	if repo.calls["Save"] != saves {
		t.Error("Save must not be called when values are occupied")
	}
}

func TestAccountService_Create_Validation(t *testing.T) {
	svc, repo, _ := newTestService()

	cases := map[string]func(*ports.AccountCreation){
		"blank username": func(in *ports.AccountCreation) { in.Username = "" },
		"blank email":    func(in *ports.AccountCreation) { in.Email = "" },
		"blank password": func(in *ports.AccountCreation) { in.Password = "" },
		"blank secret":   func(in *ports.AccountCreation) { in.SecretWord = "" },
		"no roles":       func(in *ports.AccountCreation) { in.Roles = nil },
		"blank role":     func(in *ports.AccountCreation) { in.Roles = []string{""} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := aliceCreation()
			mutate(&in)
			if _, err := svc.CreateAccount(context.Background(), in); !errors.Is(err, domain.ErrInvalidAccount) {
				t.Fatalf("expected ErrInvalidAccount, got %v", err)
			}
		})
	}
	if repo.lookups() != 0 || repo.calls["Save"] != 0 {
		t.Errorf("invalid input must not reach the store: %v", repo.calls)
	}
}

func TestAccountService_Create_StoreConflictSurfacesAsOccupied(t *testing.T) {
	svc, repo, pub := newTestService()
	repo.saveErr = domain.NewOccupiedValueError(domain.FieldEmail, "a@x.com")

	_, err := svc.CreateAccount(context.Background(), aliceCreation())
	requireOccupied(t, err, map[string]string{domain.FieldEmail: "a@x.com"})
	if len(pub.events) != 0 {
		t.Error("no event expected on failed create")
	}
}

// ---------------------------------------------------------------------------
// UpdateAccount: four-way classification
// ---------------------------------------------------------------------------

func TestAccountService_Update_NeitherChanged_NoUniquenessLookup(t *testing.T) {
	svc, repo, pub := newTestService()
	alice := seedAccount(repo, "alice", "a@x.com")

	in := updateOf(alice)
	in.Password = "new-pass"
	in.Roles = []string{domain.RoleAdmin}

	if err := svc.UpdateAccount(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if repo.calls["FindByID"] != 1 || repo.lookups() != 1 {
		t.Errorf("expected only FindByID, got %v", repo.calls)
	}
	stored := repo.accounts[alice.ID]
	if stored.Password != "new-pass" || !stored.HasRole(domain.RoleAdmin) || stored.HasRole(domain.RoleUser) {
		t.Errorf("fields not replaced: %+v", stored)
	}
	if len(pub.events) != 1 || pub.events[0].Type != domain.EventAccountUpdated {
		t.Errorf("expected account.updated event, got %+v", pub.events)
	}
}

func TestAccountService_Update_SameValuesIgnoreOtherAccounts(t *testing.T) {
	svc, repo, _ := newTestService()
	alice := seedAccount(repo, "alice", "a@x.com")
	seedAccount(repo, "bob", "b@x.com")

	if err := svc.UpdateAccount(context.Background(), updateOf(alice)); err != nil {
		t.Fatalf("updating with own values must not fail: %v", err)
	}
}

func TestAccountService_Update_UsernameOnly(t *testing.T) {
	svc, repo, _ := newTestService()
	alice := seedAccount(repo, "alice", "a@x.com")

	in := updateOf(alice)
	in.Username = "alicia"

	if err := svc.UpdateAccount(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.calls["ExistsByUsername"] != 1 || repo.lookups() != 2 {
		t.Errorf("expected FindByID + ExistsByUsername, got %v", repo.calls)
	}
	if repo.accounts[alice.ID].Username != "alicia" {
		t.Errorf("username not updated")
	}
}

func TestAccountService_Update_UsernameTaken(t *testing.T) {
	svc, repo, pub := newTestService()
	alice := seedAccount(repo, "alice", "a@x.com")
	seedAccount(repo, "bob", "b@x.com")

	in := updateOf(alice)
	in.Username = "bob"

	err := svc.UpdateAccount(context.Background(), in)
	requireOccupied(t, err, map[string]string{domain.FieldUsername: "bob"})

	if repo.calls["Save"] != 0 {
		t.Error("Save must not be called")
	}
	if repo.accounts[alice.ID].Username != "alice" {
		t.Error("stored account must be unchanged")
	}
	if len(pub.events) != 0 {
		t.Error("no event expected")
	}
}

func TestAccountService_Update_EmailOnly(t *testing.T) {
	svc, repo, _ := newTestService()
	alice := seedAccount(repo, "alice", "a@x.com")

	in := updateOf(alice)
	in.Email = "new@x.com"

	if err := svc.UpdateAccount(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.calls["ExistsByEmail"] != 1 || repo.lookups() != 2 {
		t.Errorf("expected FindByID + ExistsByEmail, got %v", repo.calls)
	}
	if repo.accounts[alice.ID].Email != "new@x.com" {
		t.Errorf("email not updated")
	}
}

func TestAccountService_Update_EmailTaken(t *testing.T) {
	svc, repo, _ := newTestService()
	alice := seedAccount(repo, "alice", "a@x.com")
	seedAccount(repo, "carol", "new@x.com")

	in := updateOf(alice)
	in.Email = "new@x.com"

	err := svc.UpdateAccount(context.Background(), in)
	requireOccupied(t, err, map[string]string{domain.FieldEmail: "new@x.com"})
}

func TestAccountService_Update_BothChanged(t *testing.T) {
	svc, repo, _ := newTestService()
	alice := seedAccount(repo, "alice", "a@x.com")

	in := updateOf(alice)
	in.Username = "alicia"
	in.Email = "alicia@x.com"

	if err := svc.UpdateAccount(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.calls["FindAllUniqueFieldsByUsernameOrEmail"] != 1 || repo.lookups() != 2 {
		t.Errorf("expected FindByID + one batched lookup, got %v", repo.calls)
	}
}

func TestAccountService_Update_BothChanged_CollisionsWithDifferentAccounts(t *testing.T) {
	svc, repo, _ := newTestService()
	alice := seedAccount(repo, "alice", "a@x.com")
	seedAccount(repo, "bob", "b@x.com")
	seedAccount(repo, "carol", "c@x.com")

	in := updateOf(alice)
	in.Username = "bob"
	in.Email = "c@x.com"

	err := svc.UpdateAccount(context.Background(), in)
	requireOccupied(t, err, map[string]string{domain.FieldUsername: "bob", domain.FieldEmail: "c@x.com"})
}

func TestAccountService_Update_NotFound(t *testing.T) {
	svc, repo, _ := newTestService()

	in := ports.AccountUpdate{ID: 42, Username: "x", Email: "x@x.com", Password: "p", SecretWord: "s", Roles: []string{domain.RoleUser}}
	err := svc.UpdateAccount(context.Background(), in)

	var nf *domain.AccountNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected AccountNotFoundError, got %v", err)
	}
	if nf.SearchFields[domain.FieldID] != "42" {
		t.Errorf("expected search key id=42, got %v", nf.SearchFields)
	}
	if repo.calls["Save"] != 0 {
		t.Error("Save must not be called")
	}
}

// ---------------------------------------------------------------------------
// Occupancy
// ---------------------------------------------------------------------------

func TestAccountService_Occupancy(t *testing.T) {
	svc, repo, _ := newTestService()
	seedAccount(repo, "alice", "a@x.com")
	seedAccount(repo, "bob", "b@x.com")

	tests := []struct {
		name             string
		username, email  string
		usernameOccupied bool
		emailOccupied    bool
	}{
		{"free", "carol", "c@x.com", false, false},
		{"username only", "alice", "c@x.com", true, false},
		{"email only", "carol", "b@x.com", false, true},
		{"both same account", "alice", "a@x.com", true, true},
		{"both different accounts", "alice", "b@x.com", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.GetUniqueFieldsOccupancy(context.Background(), tt.username, tt.email)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Username != tt.username || got.Email != tt.email {
				t.Errorf("candidate values not echoed: %+v", got)
			}
			if got.UsernameOccupied != tt.usernameOccupied || got.EmailOccupied != tt.emailOccupied {
				t.Errorf("got %+v", got)
			}
			if got.AnyOccupied() != (tt.usernameOccupied || tt.emailOccupied) {
				t.Errorf("AnyOccupied mismatch")
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Reads, exists, delete
// ---------------------------------------------------------------------------

func TestAccountService_GetByID_Idempotent(t *testing.T) {
	svc, repo, _ := newTestService()
	alice := seedAccount(repo, "alice", "a@x.com")

	first, err := svc.GetAccountByID(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := svc.GetAccountByID(context.Background(), alice.ID)
	if first.Username != second.Username || first.Email != second.Email || first.ID != second.ID {
		t.Errorf("reads differ: %+v vs %+v", first, second)
	}
}

func TestAccountService_Getters_NotFoundCarrySearchKeys(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
		want map[string]string
	}{
		{"by id", func() error { _, err := svc.GetAccountByID(ctx, 7); return err }, map[string]string{"id": "7"}},
		{"by username", func() error { _, err := svc.GetAccountByUsername(ctx, "ghost"); return err }, map[string]string{"username": "ghost"}},
		{"by email", func() error { _, err := svc.GetAccountByEmail(ctx, "g@x.com"); return err }, map[string]string{"email": "g@x.com"}},
		{"by username or email", func() error { _, err := svc.GetAccountByUsernameOrEmail(ctx, "ghost", "g@x.com"); return err },
			map[string]string{"username": "ghost", "email": "g@x.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !errors.Is(err, domain.ErrAccountNotFound) {
				t.Fatalf("expected ErrAccountNotFound, got %v", err)
			}
			var nf *domain.AccountNotFoundError
			if !errors.As(err, &nf) {
				t.Fatalf("expected *AccountNotFoundError")
			}
			for k, v := range tt.want {
				if nf.SearchFields[k] != v {
					t.Errorf("expected %s=%s in %v", k, v, nf.SearchFields)
				}
			}
		})
	}
}

func TestAccountService_Getters_Found(t *testing.T) {
	svc, repo, _ := newTestService()
	seedAccount(repo, "alice", "a@x.com")
	ctx := context.Background()

	if a, err := svc.GetAccountByUsername(ctx, "alice"); err != nil || a.Email != "a@x.com" {
		t.Errorf("by username: %v %+v", err, a)
	}
	if a, err := svc.GetAccountByEmail(ctx, "a@x.com"); err != nil || a.Username != "alice" {
		t.Errorf("by email: %v %+v", err, a)
	}
	if a, err := svc.GetAccountByUsernameOrEmail(ctx, "nobody", "a@x.com"); err != nil || a.Username != "alice" {
		t.Errorf("by username or email: %v %+v", err, a)
	}
}

func TestAccountService_Exists(t *testing.T) {
	svc, repo, _ := newTestService()
	seedAccount(repo, "alice", "a@x.com")
	ctx := context.Background()

	if ok, _ := svc.ExistsAccountByUsername(ctx, "alice"); !ok {
		t.Error("expected alice to exist")
	}
	if ok, _ := svc.ExistsAccountByUsername(ctx, "bob"); ok {
		t.Error("expected bob not to exist")
	}
	if ok, _ := svc.ExistsAccountByEmail(ctx, "a@x.com"); !ok {
		t.Error("expected a@x.com to exist")
	}
	if ok, _ := svc.ExistsAccountByEmail(ctx, "b@x.com"); ok {
		t.Error("expected b@x.com not to exist")
	}
}

func TestAccountService_Delete_Success(t *testing.T) {
	svc, repo, pub := newTestService()
	alice := seedAccount(repo, "alice", "a@x.com")

	if err := svc.DeleteAccountByID(context.Background(), alice.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.accounts[alice.ID]; ok {
		t.Error("account still stored")
	}
	if len(pub.events) != 1 || pub.events[0].Type != domain.EventAccountDeleted {
		t.Errorf("expected account.deleted event, got %+v", pub.events)
	}
}

func TestAccountService_Delete_NotFound(t *testing.T) {
	svc, repo, _ := newTestService()

	err := svc.DeleteAccountByID(context.Background(), 999)
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if repo.calls["Delete"] != 0 {
		t.Error("store delete must never be invoked")
	}
}

// ---------------------------------------------------------------------------
// Invariant: no sequence of successful mutations leaves a shared value.
// ---------------------------------------------------------------------------

func TestAccountService_UniquenessHoldsAcrossMutations(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	names := []string{"alice", "bob", "carol"}
	for _, n := range names {
		in := aliceCreation()
		in.Username = n
		in.Email = n + "@x.com"
		if _, err := svc.CreateAccount(ctx, in); err != nil {
			t.Fatalf("create %s: %v", n, err)
		}
	}

	attempts := []ports.AccountUpdate{
		{ID: 1, Username: "bob", Email: "a@x.com"},
		{ID: 1, Username: "alice", Email: "bob@x.com"},
		{ID: 2, Username: "carol", Email: "carol@x.com"},
		{ID: 2, Username: "bobby", Email: "bob@x.com"},
		{ID: 3, Username: "bob", Email: "carol@x.com"},
		{ID: 3, Username: "carol", Email: "alice@x.com"},
		{ID: 1, Username: "dave", Email: "dave@x.com"},
		{ID: 3, Username: "alice", Email: "c@x.com"},
	}
	for _, in := range attempts {
		in.Password, in.SecretWord, in.Roles = "p", "s", []string{domain.RoleUser}
		_ = svc.UpdateAccount(ctx, in)

		usernames := make(map[string]int64)
		emails := make(map[string]int64)
		for id, a := range repo.accounts {
			if other, dup := usernames[a.Username]; dup {
				t.Fatalf("username %q shared by %d and %d", a.Username, other, id)
			}
			if other, dup := emails[a.Email]; dup {
				t.Fatalf("email %q shared by %d and %d", a.Email, other, id)
			}
			usernames[a.Username] = id
			emails[a.Email] = id
		}
	}
}
