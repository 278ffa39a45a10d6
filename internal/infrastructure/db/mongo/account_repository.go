package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rednet/account-service/internal/core/domain"
	"github.com/rednet/account-service/internal/core/ports"
)

const (
	collectionAccounts = "accounts"
	collectionCounters = "counters"

	accountsCounterID = "accounts"

	usernameIndex = "unique_username"
	emailIndex    = "unique_email"
)

// AccountRepository implements ports.AccountRepository using MongoDB.
// Account IDs come from a monotonically increasing counter document.
type AccountRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		col:      db.Collection(collectionAccounts),
		counters: db.Collection(collectionCounters),
	}
}

var _ ports.AccountRepository = (*AccountRepository)(nil)

type mongoAccount struct {
	ID         int64    `bson:"_id"`
	Username   string   `bson:"username"`
	Email      string   `bson:"email"`
	Password   string   `bson:"password"`
	SecretWord string   `bson:"secret_word"`
	Roles      []string `bson:"roles"`
}

type mongoUniqueFields struct {
	ID       int64  `bson:"_id"`
	Username string `bson:"username"`
	Email    string `bson:"email"`
}

func toDocument(a *domain.Account) mongoAccount {
	return mongoAccount{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		Password:   a.Password,
		SecretWord: a.SecretWord,
		Roles:      a.RoleIDs(),
	}
}

func (d mongoAccount) toDomain() *domain.Account {
	return &domain.Account{
		ID:         d.ID,
		Username:   d.Username,
		Email:      d.Email,
		Password:   d.Password,
		SecretWord: d.SecretWord,
		Roles:      domain.NewRoleSet(d.Roles),
	}
}

func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByUsernameOrEmail returns the lowest-ID account holding either value.
func (r *AccountRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.Account, error) {
	return r.findOne(ctx, usernameOrEmail(username, email), options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoAccount
	if err := r.col.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, bson.M{"username": username})
}

func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

func (r *AccountRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	return n > 0, nil
}

// FindAllUniqueFieldsByUsernameOrEmail projects only _id, username and email.
func (r *AccountRepository) FindAllUniqueFieldsByUsernameOrEmail(ctx context.Context, username, email string) ([]ports.AccountUniqueFieldsRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"_id": 1, "username": 1, "email": 1})
	cursor, err := r.col.Find(ctx, usernameOrEmail(username, email), opts)
	if err != nil {
		return nil, fmt.Errorf("find unique fields: %w", err)
	}

	var docs []mongoUniqueFields
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode unique fields: %w", err)
	}

	records := make([]ports.AccountUniqueFieldsRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, ports.AccountUniqueFieldsRecord{
			ID:                  d.ID,
			AccountUniqueFields: domain.AccountUniqueFields{Username: d.Username, Email: d.Email},
		})
	}
	return records, nil
}

// Save inserts a new account under a fresh counter ID when account.ID is zero,
// and replaces the stored document otherwise.
func (r *AccountRepository) Save(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toDocument(account)

	if doc.ID == 0 {
		id, err := r.nextID(ctx)
		if err != nil {
			return nil, err
		}
		doc.ID = id
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			return nil, translateWriteError(err, account, "insert account")
		}
		return doc.toDomain(), nil
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return nil, translateWriteError(err, account, "replace account")
	}
	return doc.toDomain(), nil
}

func (r *AccountRepository) Delete(ctx context.Context, account *domain.Account) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": account.ID}); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// nextID atomically increments the accounts counter and returns the new value.
func (r *AccountRepository) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": accountsCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next account id: %w", err)
	}
	return counter.Seq, nil
}

// EnsureIndexes creates the unique indexes that back the username and email
// uniqueness rule at the storage level.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName(usernameIndex).SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName(emailIndex).SetUnique(true)},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func usernameOrEmail(username, email string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
	}}
}

// translateWriteError maps a duplicate-key failure on one of the unique
// indexes to domain.OccupiedValueError so a writer that lost a race gets the
// same error as one rejected by the service's own check.
func translateWriteError(err error, account *domain.Account, op string) error {
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if field, ok := duplicateField(err.Error()); ok {
		value := account.Username
		if field == domain.FieldEmail {
			value = account.Email
		}
		return domain.NewOccupiedValueError(field, value)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// duplicateField names the unique field referenced by a duplicate-key message.
func duplicateField(msg string) (string, bool) {
	switch {
	case strings.Contains(msg, usernameIndex):
		return domain.FieldUsername, true
	case strings.Contains(msg, emailIndex):
		return domain.FieldEmail, true
	}
	return "", false
}
