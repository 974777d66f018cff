package domain

import (
	"fmt"
	"time"
)

// VehicleType is one of the bookable vehicle classes.
type VehicleType string

const (
	VehicleSedan VehicleType = "sedan"
	VehicleSUV   VehicleType = "suv"
	VehicleTempo VehicleType = "tempo"
)

const DefaultVehicleType = VehicleSedan

var VehicleTypes = []VehicleType{VehicleSedan, VehicleSUV, VehicleTempo}

func ParseVehicleType(s string) (VehicleType, error) {
	switch v := VehicleType(s); v {
	case VehicleSedan, VehicleSUV, VehicleTempo:
		return v, nil
	default:
		return "", fmt.Errorf("unknown vehicle type %q", s)
	}
}

type RideStatus string

const RideStatusDraft RideStatus = "draft"

// Ride is a ride request. Drafts are append-only.
type Ride struct {
	ID          RideID
	Status      RideStatus
	Pickup      string
	Drop        string
	When        string
	VehicleType VehicleType
	QuoteTotal  *float64
	CustomerUID *SubjectID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
