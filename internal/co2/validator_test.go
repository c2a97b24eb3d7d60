package co2

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestValidateTripValid(t *testing.T) {
	now := date(2024, 11, 1)
	trip := TripData{
		TotalKm:   1250,
		StartDate: date(2024, 10, 1),
		EndDate:   date(2024, 10, 20),
	}

	result := ValidateTrip(trip, now)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
}

func TestValidateTripDateOrdering(t *testing.T) {
	now := date(2024, 11, 1)
	trip := TripData{
		TotalKm:   500,
		StartDate: date(2024, 10, 10),
		EndDate:   date(2024, 10, 5),
	}

	result := ValidateTrip(trip, now)

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "end date must be after start date")
}

func TestValidateTripFutureDates(t *testing.T) {
	now := date(2024, 11, 1)
	trip := TripData{
		TotalKm:   500,
		StartDate: date(2024, 10, 20),
		EndDate:   date(2024, 12, 1),
	}

	result := ValidateTrip(trip, now)

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "trip dates cannot be in the future")
}

func TestValidateTripRouteTolerance(t *testing.T) {
	now := date(2024, 11, 1)
	base := TripData{
		TotalKm:   1000,
		StartDate: date(2024, 10, 1),
		EndDate:   date(2024, 10, 20),
	}

	within := base
	within.Routes = []Route{{Distance: 480}, {Distance: 470}}
	assert.True(t, ValidateTrip(within, now).IsValid, "5 percent mismatch is within tolerance")

	outside := base
	outside.Routes = []Route{{Distance: 400}, {Distance: 480}}
	result := ValidateTrip(outside, now)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "total route distance does not match total kilometers")
}

func TestValidateTripAccumulatesErrors(t *testing.T) {
	result := ValidateTrip(TripData{TotalKm: -1}, date(2024, 11, 1))

	assert.False(t, result.IsValid)
	assert.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors, "total kilometers must be greater than 0")
	assert.Contains(t, result.Errors, "start date is required")
	assert.Contains(t, result.Errors, "end date is required")
}
