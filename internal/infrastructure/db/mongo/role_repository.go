package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const rolesCollection = "user_roles"

// RoleRepository answers the elevated gate's privilege checks. Role CRUD is
// owned by the dashboard; this adapter only reads assignments.
type RoleRepository struct {
	coll *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{coll: db.Collection(rolesCollection)}
}

func (r *RoleRepository) IsAdmin(ctx context.Context, userID, tenantID string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"user_id":   userID,
		"tenant_id": tenantID,
		"role":      "admin",
	})
	if err != nil {
		return false, fmt.Errorf("role lookup: %w", err)
	}
	return n > 0, nil
}
