package repository

import (
	"context"

	"rapidroad/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TripFilter struct {
	DriverID *uuid.UUID
	Status   string
	Limit    int
	Offset   int
}

func (f TripFilter) apply(db *gorm.DB) *gorm.DB {
	if f.DriverID != nil {
		db = db.Where("driver_id = ?", *f.DriverID)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	return db
}

type TripRepository interface {
	Create(ctx context.Context, trip *model.Trip) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Trip, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Trip, error)
	FindByBookingIDForUpdate(ctx context.Context, bookingID uuid.UUID) (*model.Trip, error)
	List(ctx context.Context, filter TripFilter) ([]model.Trip, int64, error)
	Update(ctx context.Context, trip *model.Trip) error
}

type tripRepository struct {
	db *gorm.DB
}

func NewTripRepository(db *gorm.DB) TripRepository {
	return &tripRepository{db: db}
}

func (r *tripRepository) Create(ctx context.Context, trip *model.Trip) error {
	return GetDB(ctx, r.db).Create(trip).Error
}

func (r *tripRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	var trip model.Trip
	if err := GetDB(ctx, r.db).First(&trip, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *tripRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Trip, error) {
	var trip model.Trip
	if err := forUpdate(ctx, GetDB(ctx, r.db)).First(&trip, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *tripRepository) FindByBookingIDForUpdate(ctx context.Context, bookingID uuid.UUID) (*model.Trip, error) {
	var trip model.Trip
	if err := forUpdate(ctx, GetDB(ctx, r.db)).First(&trip, "booking_id = ?", bookingID).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

func (r *tripRepository) List(ctx context.Context, filter TripFilter) ([]model.Trip, int64, error) {
	var trips []model.Trip
	var total int64

	if err := GetDB(ctx, r.db).Model(&model.Trip{}).Scopes(filter.apply).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := GetDB(ctx, r.db).Scopes(filter.apply).
		Order("created_at desc").Offset(filter.Offset).Limit(filter.Limit).
		Find(&trips).Error; err != nil {
		return nil, 0, err
	}

	return trips, total, nil
}

func (r *tripRepository) Update(ctx context.Context, trip *model.Trip) error {
	return GetDB(ctx, r.db).Save(trip).Error
}
