package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tenantkit/identity-api/internal/core/ports"
)

const auditCollection = "audit_events"

// AuditRepository appends audit records. Writes happen off the request path
// via the queue dispatcher; errors bubble up only as far as the worker's log.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

type auditDoc struct {
	ID       string            `bson:"_id"`
	Action   string            `bson:"action"`
	Result   string            `bson:"result"`
	UserID   string            `bson:"user_id,omitempty"`
	TenantID string            `bson:"tenant_id,omitempty"`
	Metadata map[string]string `bson:"metadata,omitempty"`
	At       int64             `bson:"at"`
}

func (r *AuditRepository) Insert(ctx context.Context, event ports.AuditEvent) error {
	doc := auditDoc{
		ID:       uuid.NewString(),
		Action:   event.Action,
		Result:   event.Result,
		UserID:   event.UserID,
		TenantID: event.TenantID,
		Metadata: event.Metadata,
		At:       event.At.Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
