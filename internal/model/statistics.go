package model

import "time"

// StatusCount is one row of a GROUP BY status aggregation
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// StatisticsResponse summarises dispatch activity within a time range
type StatisticsResponse struct {
	TimeRangeStartDate time.Time     `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time     `json:"time_range_end_date"`
	TotalBookings      int64         `json:"total_bookings"`
	BookingsByStatus   []StatusCount `json:"bookings_by_status"`
	TripsByStatus      []StatusCount `json:"trips_by_status"`
	CompletedDistanceM int64         `json:"completed_distance_m"`
	ActiveDrivers      int64         `json:"active_drivers"`
}
