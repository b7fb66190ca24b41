package repository

import (
	"context"

	"rapidroad/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DriverLocationRepository interface {
	Create(ctx context.Context, loc *model.DriverLocation) error
	Latest(ctx context.Context, driverID uuid.UUID) (*model.DriverLocation, error)
}

type driverLocationRepository struct {
	db *gorm.DB
}

func NewDriverLocationRepository(db *gorm.DB) DriverLocationRepository {
	return &driverLocationRepository{db: db}
}

func (r *driverLocationRepository) Create(ctx context.Context, loc *model.DriverLocation) error {
	return GetDB(ctx, r.db).Create(loc).Error
}

func (r *driverLocationRepository) Latest(ctx context.Context, driverID uuid.UUID) (*model.DriverLocation, error) {
	var loc model.DriverLocation
	if err := GetDB(ctx, r.db).Where("driver_id = ?", driverID).Order("recorded_at desc").First(&loc).Error; err != nil {
		return nil, err
	}
	return &loc, nil
}
