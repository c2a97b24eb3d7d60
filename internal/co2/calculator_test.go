package co2

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"greenride/certification-backend/pkg/faults"
)

func TestCalculateReduction(t *testing.T) {
	calc := NewCalculator()

	reduction, err := calc.CalculateReduction(1250, VehicleGasoline)

	assert.NoError(t, err)
	assert.Equal(t, 262.50, reduction.ReplacedEmissions)
	assert.Equal(t, 62.50, reduction.EVEmissions)
	assert.Equal(t, 200.00, reduction.TotalReduction)
	assert.InDelta(t, 0.16, reduction.EffectiveFactor, 1e-9)
	assert.Equal(t, VehicleGasoline, reduction.ReplacedVehicle)
	assert.False(t, reduction.CalculatedAt.IsZero())
}

func TestCalculateReductionDiesel(t *testing.T) {
	calc := NewCalculator()

	reduction, err := calc.CalculateReduction(100, VehicleDiesel)

	assert.NoError(t, err)
	assert.Equal(t, 18.00, reduction.ReplacedEmissions)
	assert.Equal(t, 5.00, reduction.EVEmissions)
	assert.Equal(t, 13.00, reduction.TotalReduction)
}

func TestCalculateReductionElectricIsNegative(t *testing.T) {
	calc := NewCalculator()

	// Replacing an EV with an EV "saves" nothing; grid emissions dominate.
	reduction, err := calc.CalculateReduction(100, VehicleElectric)

	assert.NoError(t, err)
	assert.Equal(t, -5.00, reduction.TotalReduction)
	assert.Equal(t, 0.0, calc.CreditsFromReduction(reduction.TotalReduction))
}

func TestCalculateReductionInvalidInput(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name     string
		distance float64
		kind     VehicleKind
	}{
		{"zero distance", 0, VehicleGasoline},
		{"negative distance", -10, VehicleGasoline},
		{"unknown vehicle kind", 100, VehicleKind("rocket")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reduction, err := calc.CalculateReduction(tt.distance, tt.kind)
			assert.Nil(t, reduction)
			assert.True(t, faults.IsKind(err, faults.KindInvalidInput))
		})
	}
}

func TestCreditsFromReduction(t *testing.T) {
	calc := NewCalculator()

	assert.Equal(t, 20.00, calc.CreditsFromReduction(200.00))
	assert.Equal(t, 0.13, calc.CreditsFromReduction(1.25))
	assert.Equal(t, 0.0, calc.CreditsFromReduction(0))
	assert.Equal(t, 0.0, calc.CreditsFromReduction(-5))
}

func TestCreditsMonotonicInDistance(t *testing.T) {
	calc := NewCalculator()

	var previous float64
	for d := 1.0; d <= 5000; d += 37.5 {
		reduction, err := calc.CalculateReduction(d, VehicleGasoline)
		assert.NoError(t, err)

		credits := calc.CreditsFromReduction(reduction.TotalReduction)
		assert.GreaterOrEqual(t, credits, previous, "credits must not decrease with distance %.1f", d)
		previous = credits
	}
}

func TestRoundingIsHalfUp(t *testing.T) {
	assert.Equal(t, 0.13, roundTo2(0.125))
	assert.Equal(t, 0.12, roundTo2(0.1249))
	assert.Equal(t, 1.01, roundTo2(1.005000001))
}
