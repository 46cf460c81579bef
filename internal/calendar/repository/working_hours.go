package repository

import (
	"context"
	"errors"
	"fmt"

	calendarerrors "slotkeeper/internal/calendar/errors"
	"slotkeeper/pkg/config"
	mongotx "slotkeeper/pkg/db/mongo"
	"slotkeeper/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	WorkingHoursCollection = "Working_hours"
)

// WorkingHoursRepository is read-only: working hours are owned by the staff
// management side of the platform.
type WorkingHoursRepository interface {
	FindByResource(ctx context.Context, resourceID string) (*model.WorkingHours, error)
	FindByTenant(ctx context.Context, tenantID string) ([]*model.WorkingHours, error)
	FindTenants(ctx context.Context) ([]string, error)
}

type mongoWorkingHoursRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoWorkingHoursRepository(cfg *config.Config) WorkingHoursRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoWorkingHoursRepository{
		cfg:        cfg,
		collection: db.Collection(WorkingHoursCollection),
	}
}

func (r *mongoWorkingHoursRepository) FindByResource(ctx context.Context, resourceID string) (*model.WorkingHours, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var wh model.WorkingHours
	err := r.collection.FindOne(ctx, bson.M{"resource_id": resourceID}).Decode(&wh)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, calendarerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find working hours: %w", err)
	}
	return &wh, nil
}

func (r *mongoWorkingHoursRepository) FindByTenant(ctx context.Context, tenantID string) ([]*model.WorkingHours, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "resource_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find working hours for tenant: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*model.WorkingHours
	if err = cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("failed to decode working hours: %w", err)
	}
	return result, nil
}

func (r *mongoWorkingHoursRepository) FindTenants(ctx context.Context) ([]string, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	values, err := r.collection.Distinct(ctx, "tenant_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	tenants := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			tenants = append(tenants, s)
		}
	}
	return tenants, nil
}
