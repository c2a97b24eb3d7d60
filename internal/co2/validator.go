package co2

import (
	"math"
	"time"
)

// Route is one leg of a trip's optional per-route breakdown
type Route struct {
	Distance      float64    `json:"distance" db:"distance"`
	Date          *time.Time `json:"date,omitempty" db:"date"`
	StartLocation string     `json:"start_location,omitempty" db:"start_location"`
	EndLocation   string     `json:"end_location,omitempty" db:"end_location"`
}

// TripData is the trip summary submitted with a verification request
type TripData struct {
	TotalKm   float64   `json:"total_km"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Routes    []Route   `json:"routes,omitempty"`
}

// ValidationResult accumulates every structural violation found in a trip
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// routeTolerance - accepted mismatch between declared total and route sum
const routeTolerance = 0.1

// ValidateTrip checks trip data integrity before a request is admitted. It
// never fails; all violations are collected into the result.
func ValidateTrip(trip TripData, now time.Time) ValidationResult {
	var errs []string

	if trip.TotalKm <= 0 {
		errs = append(errs, "total kilometers must be greater than 0")
	}
	if trip.StartDate.IsZero() {
		errs = append(errs, "start date is required")
	}
	if trip.EndDate.IsZero() {
		errs = append(errs, "end date is required")
	}

	if !trip.StartDate.IsZero() && !trip.EndDate.IsZero() {
		if !trip.StartDate.Before(trip.EndDate) {
			errs = append(errs, "end date must be after start date")
		}
		if trip.StartDate.After(now) || trip.EndDate.After(now) {
			errs = append(errs, "trip dates cannot be in the future")
		}
	}

	if len(trip.Routes) > 0 {
		var routeTotal float64
		for _, route := range trip.Routes {
			routeTotal += route.Distance
		}
		if math.Abs(routeTotal-trip.TotalKm) > trip.TotalKm*routeTolerance {
			errs = append(errs, "total route distance does not match total kilometers")
		}
	}

	return ValidationResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}
