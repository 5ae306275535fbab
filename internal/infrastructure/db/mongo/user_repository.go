package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tenantkit/identity-api/internal/core/domain"
	"github.com/tenantkit/identity-api/internal/core/ports"
)

const (
	usersCollection          = "users"
	passwordsCollection      = "password_credentials"
	socialAccountsCollection = "social_accounts"
	tenantsCollection        = "tenants"
)

// UserRepository is the Mongo-backed credential store adapter. It is the only
// layer that touches raw user documents; everything above it sees domain structs.
type UserRepository struct {
	users     *mongo.Collection
	passwords *mongo.Collection
	social    *mongo.Collection
	tenants   *mongo.Collection
	client    *mongo.Client
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		users:     db.Collection(usersCollection),
		passwords: db.Collection(passwordsCollection),
		social:    db.Collection(socialAccountsCollection),
		tenants:   db.Collection(tenantsCollection),
		client:    db.Client(),
	}
}

type userDoc struct {
	ID            string   `bson:"_id"`
	Email         string   `bson:"email"`
	FirstName     string   `bson:"first_name,omitempty"`
	LastName      string   `bson:"last_name,omitempty"`
	DisplayName   string   `bson:"display_name,omitempty"`
	EmailVerified bool     `bson:"email_verified"`
	Banned        bool     `bson:"banned"`
	Locked        bool     `bson:"locked"`
	TenantIDs     []string `bson:"tenant_ids"`
	CreatedAt     int64    `bson:"created_at"`
	UpdatedAt     int64    `bson:"updated_at"`
	LastSignInAt  int64    `bson:"last_sign_in_at,omitempty"`
	LastSignInIP  string   `bson:"last_sign_in_ip,omitempty"`
}

type passwordDoc struct {
	UserID    string `bson:"_id"`
	Hash      string `bson:"hash"`
	Strength  int    `bson:"strength"`
	CreatedAt int64  `bson:"created_at"`
}

type socialAccountDoc struct {
	UserID         string `bson:"user_id"`
	Provider       string `bson:"provider"`
	ProviderUserID string `bson:"provider_user_id"`
	AccessToken    string `bson:"access_token,omitempty"`
	RefreshToken   string `bson:"refresh_token,omitempty"`
	CreatedAt      int64  `bson:"created_at"`
	UpdatedAt      int64  `bson:"updated_at"`
}

type tenantDoc struct {
	ID        string `bson:"_id"`
	Name      string `bson:"name"`
	Slug      string `bson:"slug"`
	CreatedAt int64  `bson:"created_at"`
}

func (r *UserRepository) FindUserByEmail(ctx context.Context, email, tenantID string) (*domain.User, error) {
	filter := bson.M{"email": email}
	if tenantID != "" {
		filter["tenant_ids"] = tenantID
	}

	var doc userDoc
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	var doc userDoc
	if err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) CreateUser(ctx context.Context, fields ports.NewUser) (*domain.User, error) {
	doc := newUserDoc(fields)
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

// CreateUserWithPassword writes the user and its password credential in one
// transaction so a failure leaves no half-created account.
func (r *UserRepository) CreateUserWithPassword(ctx context.Context, fields ports.NewUser, hash string, strength int) (*domain.User, error) {
	doc := newUserDoc(fields)

	sess, err := r.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.users.InsertOne(sc, doc); err != nil {
			return nil, err
		}
		cred := passwordDoc{
			UserID:    doc.ID,
			Hash:      hash,
			Strength:  strength,
			CreatedAt: doc.CreatedAt,
		}
		if _, err := r.passwords.InsertOne(sc, cred); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("create user with password: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindPasswordCredential(ctx context.Context, userID string) (*domain.PasswordCredential, error) {
	var doc passwordDoc
	if err := r.passwords.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find password credential: %w", err)
	}
	return &domain.PasswordCredential{
		UserID:    doc.UserID,
		Hash:      doc.Hash,
		Strength:  doc.Strength,
		CreatedAt: unixToTime(doc.CreatedAt),
	}, nil
}

func (r *UserRepository) SetPasswordCredential(ctx context.Context, userID, hash string, strength int) error {
	now := time.Now().UTC().Unix()
	_, err := r.passwords.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"hash": hash, "strength": strength, "created_at": now}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set password credential: %w", err)
	}
	return nil
}

func (r *UserRepository) UpsertSocialAccount(ctx context.Context, account domain.SocialAccount) error {
	now := time.Now().UTC().Unix()
	_, err := r.social.UpdateOne(ctx,
		bson.M{"user_id": account.UserID, "provider": account.Provider},
		bson.M{
			"$set": bson.M{
				"provider_user_id": account.ProviderUserID,
				"access_token":     account.AccessToken,
				"refresh_token":    account.RefreshToken,
				"updated_at":       now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert social account: %w", err)
	}
	return nil
}

func (r *UserRepository) LinkUserToTenant(ctx context.Context, userID, tenantID string) error {
	_, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"tenant_ids": tenantID}},
	)
	if err != nil {
		return fmt.Errorf("link user to tenant: %w", err)
	}
	return nil
}

func (r *UserRepository) RecordSignIn(ctx context.Context, userID, ip string, at time.Time) error {
	_, err := r.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{
			"last_sign_in_at": at.Unix(),
			"last_sign_in_ip": ip,
			"updated_at":      at.Unix(),
		}},
	)
	if err != nil {
		return fmt.Errorf("record sign-in: %w", err)
	}
	return nil
}

func (r *UserRepository) FindTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	var doc tenantDoc
	if err := r.tenants.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrTenantNotFound
		}
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	return &domain.Tenant{
		ID:        doc.ID,
		Name:      doc.Name,
		Slug:      doc.Slug,
		CreatedAt: unixToTime(doc.CreatedAt),
	}, nil
}

func newUserDoc(fields ports.NewUser) userDoc {
	now := time.Now().UTC().Unix()
	tenants := []string{}
	if fields.TenantID != "" {
		tenants = append(tenants, fields.TenantID)
	}
	return userDoc{
		ID:            uuid.NewString(),
		Email:         fields.Email,
		FirstName:     fields.FirstName,
		LastName:      fields.LastName,
		DisplayName:   fields.DisplayName,
		EmailVerified: fields.EmailVerified,
		TenantIDs:     tenants,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (d userDoc) toDomain() *domain.User {
	u := &domain.User{
		ID:            d.ID,
		Email:         d.Email,
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		DisplayName:   d.DisplayName,
		EmailVerified: d.EmailVerified,
		Banned:        d.Banned,
		Locked:        d.Locked,
		TenantIDs:     d.TenantIDs,
		CreatedAt:     unixToTime(d.CreatedAt),
		UpdatedAt:     unixToTime(d.UpdatedAt),
		LastSignInIP:  d.LastSignInIP,
	}
	if d.LastSignInAt != 0 {
		t := unixToTime(d.LastSignInAt)
		u.LastSignInAt = &t
	}
	return u
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
