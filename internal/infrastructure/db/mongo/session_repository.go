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

const sessionsCollection = "sessions"

// DefaultSessionTTL is how long a freshly created session stays valid.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionRepository is the Mongo-backed session store.
type SessionRepository struct {
	coll *mongo.Collection
	ttl  time.Duration
}

func NewSessionRepository(db *mongo.Database, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionRepository{coll: db.Collection(sessionsCollection), ttl: ttl}
}

type sessionDoc struct {
	ID           string `bson:"_id"`
	UserID       string `bson:"user_id"`
	TenantID     string `bson:"tenant_id"`
	IPAddress    string `bson:"ip_address,omitempty"`
	UserAgent    string `bson:"user_agent,omitempty"`
	Active       bool   `bson:"active"`
	ExpiresAt    int64  `bson:"expires_at"`
	LastActiveAt int64  `bson:"last_active_at"`
	CreatedAt    int64  `bson:"created_at"`
	RevokedAt    int64  `bson:"revoked_at,omitempty"`
}

func (r *SessionRepository) Create(ctx context.Context, userID, tenantID, ip, userAgent string) (*domain.Session, error) {
	now := time.Now().UTC()
	doc := sessionDoc{
		ID:           uuid.NewString(),
		UserID:       userID,
		TenantID:     tenantID,
		IPAddress:    ip,
		UserAgent:    userAgent,
		Active:       true,
		ExpiresAt:    now.Add(r.ttl).Unix(),
		LastActiveAt: now.Unix(),
		CreatedAt:    now.Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *SessionRepository) Find(ctx context.Context, sessionID string) (*domain.Session, error) {
	var doc sessionDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return doc.toDomain(), nil
}

// Touch is last-writer-wins on last_active_at; concurrent touches race
// harmlessly. A missing session is not an error.
func (r *SessionRepository) Touch(ctx context.Context, sessionID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": sessionID},
		bson.M{"$set": bson.M{"last_active_at": time.Now().UTC().Unix()}},
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// IsValid requires the owner to match, active=true and a strictly-future
// expiry; an expires_at equal to now counts as expired.
func (r *SessionRepository) IsValid(ctx context.Context, userID, sessionID string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"_id":        sessionID,
		"user_id":    userID,
		"active":     true,
		"expires_at": bson.M{"$gt": time.Now().UTC().Unix()},
	})
	if err != nil {
		return false, fmt.Errorf("validate session: %w", err)
	}
	return n > 0, nil
}

// Revoke flips active=false exactly once; revoking an already-revoked or
// missing session is a no-op.
func (r *SessionRepository) Revoke(ctx context.Context, sessionID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": sessionID, "active": true},
		bson.M{"$set": bson.M{"active": false, "revoked_at": time.Now().UTC().Unix()}},
	)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (r *SessionRepository) RevokeAll(ctx context.Context, userID, exceptID string) (int64, error) {
	filter := bson.M{"user_id": userID, "active": true}
	if exceptID != "" {
		filter["_id"] = bson.M{"$ne": exceptID}
	}
	res, err := r.coll.UpdateMany(ctx, filter,
		bson.M{"$set": bson.M{"active": false, "revoked_at": time.Now().UTC().Unix()}},
	)
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}
	return res.ModifiedCount, nil
}

func (d sessionDoc) toDomain() *domain.Session {
	s := &domain.Session{
		ID:           d.ID,
		UserID:       d.UserID,
		TenantID:     d.TenantID,
		IPAddress:    d.IPAddress,
		UserAgent:    d.UserAgent,
		Active:       d.Active,
		ExpiresAt:    unixToTime(d.ExpiresAt),
		LastActiveAt: unixToTime(d.LastActiveAt),
		CreatedAt:    unixToTime(d.CreatedAt),
	}
	if d.RevokedAt != 0 {
		t := unixToTime(d.RevokedAt)
		s.RevokedAt = &t
	}
	return s
}
