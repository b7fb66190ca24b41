package repository

import (
	"context"
	"fmt"
	"time"

	"rapidroad/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	BookingsByStatus(ctx context.Context, start, end time.Time) ([]model.StatusCount, error)
	TripsByStatus(ctx context.Context, start, end time.Time) ([]model.StatusCount, error)
	CompletedDistance(ctx context.Context, start, end time.Time) (int64, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) countByStatus(ctx context.Context, table string, start, end time.Time) ([]model.StatusCount, error) {
	var rows []model.StatusCount
	if err := GetDB(ctx, r.db).Table(table).
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("status").
		Order("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count %s by status: %w", table, err)
	}
	return rows, nil
}

func (r *statisticsRepository) BookingsByStatus(ctx context.Context, start, end time.Time) ([]model.StatusCount, error) {
	return r.countByStatus(ctx, "bookings", start, end)
}

func (r *statisticsRepository) TripsByStatus(ctx context.Context, start, end time.Time) ([]model.StatusCount, error) {
	return r.countByStatus(ctx, "trips", start, end)
}

func (r *statisticsRepository) CompletedDistance(ctx context.Context, start, end time.Time) (int64, error) {
	var result struct {
		Total int64
	}
	if err := GetDB(ctx, r.db).Table("trips").
		Select("COALESCE(SUM(distance_m), 0) as total").
		Where("status = ? AND completed_at >= ? AND completed_at <= ?", model.TripCompleted, start, end).
		Scan(&result).Error; err != nil {
		return 0, fmt.Errorf("failed to sum trip distance: %w", err)
	}
	return result.Total, nil
}
