package service

import (
	"context"
	"fmt"
	"time"

	"rapidroad/internal/apperror"
	"rapidroad/internal/model"
	"rapidroad/internal/repository"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	repo  repository.StatisticsRepository
	users repository.UserRepository
}

func NewStatisticsService(repo repository.StatisticsRepository, users repository.UserRepository) StatisticsService {
	return &statisticsService{repo: repo, users: users}
}

// GetStatistics aggregates booking and trip counts created within the range
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	var response model.StatisticsResponse
	if endDate.Before(startDate) {
		return response, apperror.BadRequest("end_date must not be before start_date")
	}
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	bookings, err := s.repo.BookingsByStatus(ctx, startDate, endDate)
	if err != nil {
		return response, err
	}
	response.BookingsByStatus = bookings
	for _, row := range bookings {
		response.TotalBookings += row.Count
	}

	trips, err := s.repo.TripsByStatus(ctx, startDate, endDate)
	if err != nil {
		return response, err
	}
	response.TripsByStatus = trips

	if response.CompletedDistanceM, err = s.repo.CompletedDistance(ctx, startDate, endDate); err != nil {
		return response, err
	}

	if response.ActiveDrivers, err = s.users.CountActiveByRole(ctx, model.RoleDriver); err != nil {
		return response, fmt.Errorf("failed to count drivers: %w", err)
	}

	return response, nil
}
