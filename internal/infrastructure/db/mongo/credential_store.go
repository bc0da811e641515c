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

	"github.com/myunity/auth-service/internal/core/domain"
)

const (
	usersCollection    = "users"
	rolesCollection    = "roles"
	countersCollection = "counters"

	usernameIndex = "uk_users_username"
	emailIndex    = "uk_users_email"
	roleNameIndex = "uk_roles_name"
)

// CredentialStore implements ports.CredentialStore on MongoDB. Users carry
// their roles embedded; numeric ids come from a counters collection so the
// API shape matches the SQL store.
type CredentialStore struct {
	db       *mongo.Database
	users    *mongo.Collection
	roles    *mongo.Collection
	counters *mongo.Collection
}

func NewCredentialStore(db *mongo.Database) *CredentialStore {
	return &CredentialStore{
		db:       db,
		users:    db.Collection(usersCollection),
		roles:    db.Collection(rolesCollection),
		counters: db.Collection(countersCollection),
	}
}

type mongoRole struct {
	ID   int64  `bson:"_id"`
	Name string `bson:"name"`
}

type mongoUser struct {
	ID           int64       `bson:"_id"`
	Username     string      `bson:"username"`
	Email        string      `bson:"email"`
	PasswordHash string      `bson:"password_hash"`
	Roles        []mongoRole `bson:"roles"`
	CreatedAt    time.Time   `bson:"created_at"`
	UpdatedAt    time.Time   `bson:"updated_at"`
}

// Bootstrap creates the unique indexes and seeds the role catalogue. It is
// safe to run on every start.
func (s *CredentialStore) Bootstrap(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetName(usernameIndex).SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName(emailIndex).SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = s.roles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetName(roleNameIndex).SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create role index: %w", err)
	}

	for i, name := range domain.AllRoles() {
		_, err := s.roles.UpdateOne(ctx,
			bson.M{"name": string(name)},
			bson.M{"$setOnInsert": bson.M{"_id": int64(i + 1), "name": string(name)}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	return nil
}

func (s *CredentialStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, bson.M{"username": username})
}

func (s *CredentialStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, bson.M{"email": email})
}

func (s *CredentialStore) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := s.users.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n > 0, nil
}

func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var mu mongoUser
	if err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (s *CredentialStore) FindRoleByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	var mr mongoRole
	if err := s.roles.FindOne(ctx, bson.M{"name": string(name)}).Decode(&mr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &domain.Role{ID: mr.ID, Name: domain.RoleName(mr.Name)}, nil
}

func (s *CredentialStore) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	id, err := s.nextID(ctx, usersCollection)
	if err != nil {
		return nil, err
	}

	doc := fromDomain(user)
	doc.ID = id
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mapped := duplicateKey(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *CredentialStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	cur, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toDomain())
	}
	return users, nil
}

func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// nextID atomically increments the named sequence.
func (s *CredentialStore) nextID(ctx context.Context, sequence string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": sequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", sequence, err)
	}
	return counter.Seq, nil
}

// duplicateKey maps a unique index violation to the domain error for the
// offending field.
func duplicateKey(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, usernameIndex):
		return domain.ErrUsernameTaken
	case strings.Contains(msg, emailIndex):
		return domain.ErrEmailInUse
	default:
		return nil
	}
}

func fromDomain(u *domain.User) mongoUser {
	roles := make([]mongoRole, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, mongoRole{ID: r.ID, Name: string(r.Name)})
	}
	return mongoUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Roles:        roles,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}

func (mu mongoUser) toDomain() *domain.User {
	roles := make([]domain.Role, 0, len(mu.Roles))
	for _, r := range mu.Roles {
		roles = append(roles, domain.Role{ID: r.ID, Name: domain.RoleName(r.Name)})
	}
	return &domain.User{
		ID:           mu.ID,
		Username:     mu.Username,
		Email:        mu.Email,
		PasswordHash: mu.PasswordHash,
		Roles:        roles,
		CreatedAt:    mu.CreatedAt.UTC(),
		UpdatedAt:    mu.UpdatedAt.UTC(),
	}
}
