package co2

import (
	"math"
	"time"

	"greenride/certification-backend/pkg/faults"
)

// VehicleKind identifies the reference vehicle an EV trip replaced
type VehicleKind string

const (
	VehicleGasoline VehicleKind = "gasoline"
	VehicleDiesel   VehicleKind = "diesel"
	VehicleElectric VehicleKind = "electric"
)

// Emission factors in kg CO2 per km. The grid factor covers the indirect
// emissions of charging the EV.
var emissionFactors = map[VehicleKind]float64{
	VehicleGasoline: 0.21,
	VehicleDiesel:   0.18,
	VehicleElectric: 0.0,
}

const gridFactor = 0.05

// KilogramsPerCredit - one tradable credit represents 10 kg of avoided emissions
const KilogramsPerCredit = 10.0

// Reduction is the emissions comparison for a trip. It is computed once at
// admission and snapshotted; factor table changes never retroactively alter it.
type Reduction struct {
	TotalKm           float64     `json:"total_km"`
	ReplacedVehicle   VehicleKind `json:"replaced_vehicle"`
	ReplacedEmissions float64     `json:"replaced_emissions"`
	EVEmissions       float64     `json:"ev_emissions"`
	TotalReduction    float64     `json:"total_reduction"`
	EffectiveFactor   float64     `json:"effective_factor"`
	CalculatedAt      time.Time   `json:"calculated_at"`
}

// Calculator converts trip distance into an emissions reduction and credits
type Calculator struct{}

// NewCalculator creates a new CO2 calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// CalculateReduction computes the emissions avoided by driving distanceKm in an
// EV instead of the replaced vehicle kind. All quantities are rounded to two
// decimals using round-half-up.
func (c *Calculator) CalculateReduction(distanceKm float64, replaced VehicleKind) (*Reduction, error) {
	if distanceKm <= 0 {
		return nil, faults.New(faults.KindInvalidInput, "total kilometers must be greater than 0")
	}

	factor, ok := emissionFactors[replaced]
	if !ok {
		return nil, faults.Newf(faults.KindInvalidInput, "unknown vehicle kind: %s", replaced)
	}

	replacedEmissions := distanceKm * factor
	evEmissions := distanceKm * gridFactor

	return &Reduction{
		TotalKm:           distanceKm,
		ReplacedVehicle:   replaced,
		ReplacedEmissions: roundTo2(replacedEmissions),
		EVEmissions:       roundTo2(evEmissions),
		TotalReduction:    roundTo2(replacedEmissions - evEmissions),
		EffectiveFactor:   factor - gridFactor,
		CalculatedAt:      time.Now(),
	}, nil
}

// CreditsFromReduction converts a reduction in kg CO2 into credit units.
// Non-positive input yields 0 credits; this function never fails.
func (c *Calculator) CreditsFromReduction(reduction float64) float64 {
	if reduction <= 0 {
		return 0
	}
	return roundTo2(reduction / KilogramsPerCredit)
}

// roundTo2 rounds half-up at the cent level (toward positive infinity on ties)
func roundTo2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}
