package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotkeeper/pkg/config"
	mongotx "slotkeeper/pkg/db/mongo"
	"slotkeeper/pkg/interval"
	"slotkeeper/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SlotsCollection   = "Availability_slots"
	WindowsCollection = "Availability_windows"
)

// DayWrite replaces the rows of one resource-day and spec. The write is
// published only if the window version still equals ObservedVersion. Rows of
// newer versions are never touched, so a slow writer cannot remove what a
// fresher one published.
type DayWrite struct {
	TenantID        string
	ResourceID      string
	Day             string
	Spec            model.SlotSpec
	ObservedVersion int64
	Slots           []interval.Interval
	ComputedAt      time.Time
	HorizonEnd      time.Time
}

type SlotFilter struct {
	TenantID   string
	ResourceID string
	Day        string
	Spec       model.SlotSpec
	Version    int64
}

type CacheRepository interface {
	GetWindows(ctx context.Context, tenantID, resourceID string, days []string) (map[string]*model.AvailabilityWindow, error)
	BumpVersions(ctx context.Context, tenantID, resourceID string, days []string) error
	ReplaceDay(ctx context.Context, w DayWrite) (bool, error)
	FindSlots(ctx context.Context, f SlotFilter) ([]*model.AvailabilitySlot, error)
	DeleteOverlapping(ctx context.Context, tenantID, resourceID string, affected interval.Interval) (int64, error)
	PruneBefore(ctx context.Context, day string) (int64, error)
}

// WindowID is the _id of the window document of one resource-day.
func WindowID(tenantID, resourceID, day string) string {
	return fmt.Sprintf("%s|%s|%s", tenantID, resourceID, day)
}

// SlotRows stamps computed intervals as cache rows.
func SlotRows(w DayWrite) []*model.AvailabilitySlot {
	rows := make([]*model.AvailabilitySlot, 0, len(w.Slots))
	for _, s := range w.Slots {
		rows = append(rows, &model.AvailabilitySlot{
			TenantID:    w.TenantID,
			ResourceID:  w.ResourceID,
			DurationMin: w.Spec.DurationMin,
			StepMin:     w.Spec.StepMin,
			Day:         w.Day,
			Version:     w.ObservedVersion,
			StartAt:     s.Start,
			EndAt:       s.End,
			ComputedAt:  w.ComputedAt,
			HorizonEnd:  w.HorizonEnd,
		})
	}
	return rows
}

type mongoCacheRepository struct {
	cfg     *config.Config
	slots   *mongo.Collection
	windows *mongo.Collection
}

func NewMongoCacheRepository(cfg *config.Config) CacheRepository {
	db := cfg.Client.Mongo.Client.Database(cfg.MongoDatabaseName)
	return &mongoCacheRepository{
		cfg:     cfg,
		slots:   db.Collection(SlotsCollection),
		windows: db.Collection(WindowsCollection),
	}
}

func (r *mongoCacheRepository) GetWindows(ctx context.Context, tenantID, resourceID string, days []string) (map[string]*model.AvailabilityWindow, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	ids := make([]string, 0, len(days))
	for _, day := range days {
		ids = append(ids, WindowID(tenantID, resourceID, day))
	}

	cursor, err := r.windows.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find availability windows: %w", err)
	}
	defer cursor.Close(ctx)

	var windows []*model.AvailabilityWindow
	if err = cursor.All(ctx, &windows); err != nil {
		return nil, fmt.Errorf("failed to decode availability windows: %w", err)
	}

	result := make(map[string]*model.AvailabilityWindow, len(windows))
	for _, w := range windows {
		result[w.Day] = w
	}
	return result, nil
}

func (r *mongoCacheRepository) BumpVersions(ctx context.Context, tenantID, resourceID string, days []string) error {
	if len(days) == 0 {
		return nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	models := make([]mongo.WriteModel, 0, len(days))
	for _, day := range days {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": WindowID(tenantID, resourceID, day)}).
			SetUpdate(bson.M{
				"$inc": bson.M{"version": 1},
				"$setOnInsert": bson.M{
					"tenant_id":   tenantID,
					"resource_id": resourceID,
					"day":         day,
				},
			}).
			SetUpsert(true))
	}

	if _, err := r.windows.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to bump availability versions: %w", err)
	}
	return nil
}

func (r *mongoCacheRepository) ReplaceDay(ctx context.Context, w DayWrite) (bool, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.slots.DeleteMany(ctx, bson.M{
		"tenant_id":    w.TenantID,
		"resource_id":  w.ResourceID,
		"day":          w.Day,
		"duration_min": w.Spec.DurationMin,
		"step_min":     w.Spec.StepMin,
		"version":      bson.M{"$lt": w.ObservedVersion},
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete old availability slots: %w", err)
	}

	if rows := SlotRows(w); len(rows) > 0 {
		docs := make([]any, 0, len(rows))
		for _, row := range rows {
			docs = append(docs, row)
		}
		// A concurrent pass may already have written the same rows.
		_, err = r.slots.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
		if err != nil && !onlyDuplicateKeys(err) {
			return false, fmt.Errorf("failed to insert availability slots: %w", err)
		}
	}

	result, err := r.windows.UpdateOne(ctx,
		bson.M{"_id": WindowID(w.TenantID, w.ResourceID, w.Day), "version": w.ObservedVersion},
		bson.M{"$set": bson.M{
			"tenant_id":   w.TenantID,
			"resource_id": w.ResourceID,
			"day":         w.Day,
			"specs." + w.Spec.Key(): model.WindowSpec{
				Version:    w.ObservedVersion,
				ComputedAt: w.ComputedAt,
				HorizonEnd: w.HorizonEnd,
			},
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// The upsert collides with a window whose version moved on.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to publish availability window: %w", err)
	}
	return result.MatchedCount > 0 || result.UpsertedCount > 0, nil
}

func (r *mongoCacheRepository) FindSlots(ctx context.Context, f SlotFilter) ([]*model.AvailabilitySlot, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"tenant_id":    f.TenantID,
		"resource_id":  f.ResourceID,
		"day":          f.Day,
		"duration_min": f.Spec.DurationMin,
		"step_min":     f.Spec.StepMin,
		"version":      f.Version,
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_at", Value: 1}})

	cursor, err := r.slots.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find availability slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.AvailabilitySlot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode availability slots: %w", err)
	}
	return slots, nil
}

func (r *mongoCacheRepository) DeleteOverlapping(ctx context.Context, tenantID, resourceID string, affected interval.Interval) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.slots.DeleteMany(ctx, bson.M{
		"tenant_id":   tenantID,
		"resource_id": resourceID,
		"start_at":    bson.M{"$lt": affected.End},
		"end_at":      bson.M{"$gt": affected.Start},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete overlapping availability slots: %w", err)
	}
	return result.DeletedCount, nil
}

// PruneBefore removes rows and windows of days before day (YYYY-MM-DD
// compares correctly as a string).
func (r *mongoCacheRepository) PruneBefore(ctx context.Context, day string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"day": bson.M{"$lt": day}}
	result, err := r.slots.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to prune availability slots: %w", err)
	}
	if _, err = r.windows.DeleteMany(ctx, filter); err != nil {
		return result.DeletedCount, fmt.Errorf("failed to prune availability windows: %w", err)
	}
	return result.DeletedCount, nil
}

func onlyDuplicateKeys(err error) bool {
	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return false
	}
	if bwe.WriteConcernError != nil || len(bwe.WriteErrors) == 0 {
		return false
	}
	for _, we := range bwe.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}
