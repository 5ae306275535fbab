package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tenantkit/identity-api/internal/core/domain"
)

const magicLinksCollection = "magic_links"

// MagicLinkRepository persists single-use link tokens.
type MagicLinkRepository struct {
	coll *mongo.Collection
}

func NewMagicLinkRepository(db *mongo.Database) *MagicLinkRepository {
	return &MagicLinkRepository{coll: db.Collection(magicLinksCollection)}
}

type magicLinkDoc struct {
	ID        string `bson:"_id"`
	TokenHash string `bson:"token_hash"`
	Email     string `bson:"email"`
	TenantID  string `bson:"tenant_id"`
	Purpose   string `bson:"purpose"`
	ExpiresAt int64  `bson:"expires_at"`
	UsedAt    int64  `bson:"used_at,omitempty"`
	CreatedAt int64  `bson:"created_at"`

	// ExpireAt anchors the TTL index; it must be a BSON date, unlike the unix
	// timestamps used everywhere else.
	ExpireAt time.Time `bson:"expire_at"`
}

func (r *MagicLinkRepository) Create(ctx context.Context, link domain.MagicLink) error {
	doc := magicLinkDoc{
		ID:        uuid.NewString(),
		TokenHash: link.TokenHash,
		Email:     link.Email,
		TenantID:  link.TenantID,
		Purpose:   link.Purpose,
		ExpiresAt: link.ExpiresAt.Unix(),
		CreatedAt: link.CreatedAt.Unix(),
		ExpireAt:  link.ExpiresAt.UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert magic link: %w", err)
	}
	return nil
}

// Consume claims the link with a single findAndModify guarded on used_at being
// unset, so two concurrent verifications cannot both succeed.
func (r *MagicLinkRepository) Consume(ctx context.Context, tokenHash string) (*domain.MagicLink, error) {
	now := time.Now().UTC()

	res := r.coll.FindOneAndUpdate(ctx,
		bson.M{"token_hash": tokenHash, "used_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"used_at": now.Unix()}},
	)

	var doc magicLinkDoc
	if err := res.Decode(&doc); err != nil {
		if err != mongo.ErrNoDocuments {
			return nil, fmt.Errorf("consume magic link: %w", err)
		}
		// Distinguish used from unknown for the service layer; the HTTP
		// layer flattens both into "invalid or expired".
		n, cErr := r.coll.CountDocuments(ctx, bson.M{"token_hash": tokenHash})
		if cErr != nil {
			return nil, fmt.Errorf("consume magic link: %w", cErr)
		}
		if n > 0 {
			return nil, domain.ErrTokenAlreadyUsed
		}
		return nil, domain.ErrTokenNotFound
	}

	if !now.Before(unixToTime(doc.ExpiresAt)) {
		return nil, domain.ErrTokenExpired
	}

	used := now
	return &domain.MagicLink{
		ID:        doc.ID,
		TokenHash: doc.TokenHash,
		Email:     doc.Email,
		TenantID:  doc.TenantID,
		Purpose:   doc.Purpose,
		ExpiresAt: unixToTime(doc.ExpiresAt),
		UsedAt:    &used,
		CreatedAt: unixToTime(doc.CreatedAt),
	}, nil
}
