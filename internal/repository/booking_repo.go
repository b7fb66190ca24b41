package repository

import (
	"context"

	"rapidroad/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingFilter narrows List. Nil/empty fields match everything.
type BookingFilter struct {
	CustomerID *uuid.UUID
	DriverID   *uuid.UUID
	Status     string
	Limit      int
	Offset     int
}

func (f BookingFilter) apply(db *gorm.DB) *gorm.DB {
	if f.CustomerID != nil {
		db = db.Where("customer_id = ?", *f.CustomerID)
	}
	if f.DriverID != nil {
		db = db.Where("assigned_driver_id = ?", *f.DriverID)
	}
	if f.Status != "" {
		db = db.Where("status = ?", f.Status)
	}
	return db
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	CreateLocation(ctx context.Context, loc *model.BookingLocation) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	FindLocation(ctx context.Context, bookingID uuid.UUID) (*model.BookingLocation, error)
	List(ctx context.Context, filter BookingFilter) ([]model.Booking, int64, error)
	Update(ctx context.Context, booking *model.Booking) error
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return GetDB(ctx, r.db).Create(booking).Error
}

func (r *bookingRepository) CreateLocation(ctx context.Context, loc *model.BookingLocation) error {
	return GetDB(ctx, r.db).Create(loc).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var booking model.Booking
	if err := GetDB(ctx, r.db).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate locks the booking row until the surrounding transaction ends.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var booking model.Booking
	if err := forUpdate(ctx, GetDB(ctx, r.db)).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) FindLocation(ctx context.Context, bookingID uuid.UUID) (*model.BookingLocation, error) {
	var loc model.BookingLocation
	if err := GetDB(ctx, r.db).First(&loc, "booking_id = ?", bookingID).Error; err != nil {
		return nil, err
	}
	return &loc, nil
}

func (r *bookingRepository) List(ctx context.Context, filter BookingFilter) ([]model.Booking, int64, error) {
	var bookings []model.Booking
	var total int64

	if err := GetDB(ctx, r.db).Model(&model.Booking{}).Scopes(filter.apply).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := GetDB(ctx, r.db).Scopes(filter.apply).
		Order("created_at desc").Offset(filter.Offset).Limit(filter.Limit).
		Find(&bookings).Error; err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	return GetDB(ctx, r.db).Save(booking).Error
}
