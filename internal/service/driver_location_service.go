package service

import (
	"context"
	"fmt"
	"time"

	"rapidroad/internal/apperror"
	"rapidroad/internal/model"
	"rapidroad/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LocationUpdate is a GPS sample as sent by the driver app, over HTTP or the websocket.
type LocationUpdate struct {
	Lat            *float64   `json:"lat" binding:"required,gte=-90,lte=90"`
	Lon            *float64   `json:"lon" binding:"required,gte=-180,lte=180"`
	HeadingDegrees *float64   `json:"heading_degrees" binding:"omitempty,gte=0,lt=360"`
	SpeedMps       *float64   `json:"speed_mps" binding:"omitempty,gte=0"`
	AccuracyM      *float64   `json:"accuracy_m" binding:"omitempty,gte=0"`
	RecordedAt     *time.Time `json:"recorded_at"`
}

type DriverLocationService interface {
	RecordLocation(ctx context.Context, driverID uuid.UUID, req LocationUpdate) (*model.DriverLocation, error)
}

type driverLocationService struct {
	repo     repository.DriverLocationRepository
	notifier Notifier
}

func NewDriverLocationService(repo repository.DriverLocationRepository, notifier Notifier) DriverLocationService {
	return &driverLocationService{repo: repo, notifier: notifier}
}

func nullDecimal(v *float64) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*v))
}

func (s *driverLocationService) RecordLocation(ctx context.Context, driverID uuid.UUID, req LocationUpdate) (*model.DriverLocation, error) {
	lat, okLat := coordinate(req.Lat, -90, 90)
	lon, okLon := coordinate(req.Lon, -180, 180)
	if !okLat || !okLon {
		return nil, apperror.BadRequest("invalid coordinates")
	}
	if h := req.HeadingDegrees; h != nil && (*h < 0 || *h >= 360) {
		return nil, apperror.BadRequest("heading must be in [0, 360)")
	}
	if v := req.SpeedMps; v != nil && *v < 0 {
		return nil, apperror.BadRequest("speed must not be negative")
	}
	if v := req.AccuracyM; v != nil && *v < 0 {
		return nil, apperror.BadRequest("accuracy must not be negative")
	}

	recordedAt := time.Now().UTC()
	if req.RecordedAt != nil {
		recordedAt = req.RecordedAt.UTC()
	}

	loc := &model.DriverLocation{
		DriverID:       driverID,
		Lat:            lat,
		Lon:            lon,
		HeadingDegrees: nullDecimal(req.HeadingDegrees),
		SpeedMps:       nullDecimal(req.SpeedMps),
		AccuracyM:      nullDecimal(req.AccuracyM),
		RecordedAt:     recordedAt,
	}
	if err := s.repo.Create(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to record driver location: %w", err)
	}

	s.notifier.DriverLocationUpdated(ctx, loc)
	return loc, nil
}
