// Package fares prices outstation trips from a fixed per-vehicle rate table.
package fares

import (
	"errors"
	"fmt"
	"math"

	"github.com/outstationguru/og-api/internal/domain"
)

const (
	Currency  = "INR"
	DefaultKm = 100.0
	TaxRate   = 0.05
)

var (
	ErrUnknownVehicleType = errors.New("unknown vehicle type")
	ErrInvalidDistance    = errors.New("distance must be positive")
)

// Rate is a base fare plus a per-kilometre charge.
type Rate struct {
	Base  float64
	PerKm float64
}

var rates = map[domain.VehicleType]Rate{
	domain.VehicleSedan: {Base: 250, PerKm: 12},
	domain.VehicleSUV:   {Base: 350, PerKm: 15},
	domain.VehicleTempo: {Base: 500, PerKm: 20},
}

type Quote struct {
	Currency     string
	VehicleType  domain.VehicleType
	Base         float64
	PerKm        float64
	Km           float64
	DistanceFare float64
	Taxes        float64
	Total        float64
}

// RateFor returns the rate for vt.
func RateFor(vt domain.VehicleType) (Rate, bool) {
	r, ok := rates[vt]
	return r, ok
}

// Compute prices a trip of km kilometres. km of zero means DefaultKm; an empty vehicle
// type means domain.DefaultVehicleType. Taxes are rounded half up to a whole rupee.
func Compute(vt domain.VehicleType, km float64) (Quote, error) {
	if vt == "" {
		vt = domain.DefaultVehicleType
	}
	r, ok := rates[vt]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q", ErrUnknownVehicleType, vt)
	}
	if km == 0 {
		km = DefaultKm
	}
	if km < 0 || math.IsNaN(km) || math.IsInf(km, 0) {
		return Quote{}, fmt.Errorf("%w: %v", ErrInvalidDistance, km)
	}

	distance := km * r.PerKm
	subtotal := r.Base + distance
	taxes := math.Floor(subtotal*TaxRate + 0.5)
	return Quote{
		Currency:     Currency,
		VehicleType:  vt,
		Base:         r.Base,
		PerKm:        r.PerKm,
		Km:           km,
		DistanceFare: distance,
		Taxes:        taxes,
		Total:        subtotal + taxes,
	}, nil
}
