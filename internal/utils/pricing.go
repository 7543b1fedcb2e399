package utils

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// RentalCostBreakdown provides detailed cost breakdown
type RentalCostBreakdown struct {
	Days             int64
	PricePerDayCents int64
	TotalCents       int64
}

// RentalDays returns the number of charged days between pickup and return.
// Partial days round up, so 49 hours is charged as 3 days.
func RentalDays(pickupAt, returnAt time.Time) (int64, error) {
	if !pickupAt.Before(returnAt) {
		return 0, fmt.Errorf("return time must be after pickup time")
	}
	d := returnAt.Sub(pickupAt)
	days := int64(d / day)
	if d%day > 0 {
		days++
	}
	return days, nil
}

// CalculateRentalCost calculates the total price as price per day times the
// number of charged days.
func CalculateRentalCost(pickupAt, returnAt time.Time, pricePerDayCents int64) (int64, error) {
	b, err := CalculateRentalCostWithBreakdown(pickupAt, returnAt, pricePerDayCents)
	if err != nil {
		return 0, err
	}
	return b.TotalCents, nil
}

// CalculateRentalCostWithBreakdown provides detailed breakdown of rental cost
func CalculateRentalCostWithBreakdown(pickupAt, returnAt time.Time, pricePerDayCents int64) (RentalCostBreakdown, error) {
	if pricePerDayCents < 0 {
		return RentalCostBreakdown{}, fmt.Errorf("price per day must not be negative")
	}
	days, err := RentalDays(pickupAt, returnAt)
	if err != nil {
		return RentalCostBreakdown{}, err
	}
	return RentalCostBreakdown{
		Days:             days,
		PricePerDayCents: pricePerDayCents,
		TotalCents:       days * pricePerDayCents,
	}, nil
}

// FormatCents renders an amount in cents as euros, for example "80.00 EUR".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d EUR", sign, cents/100, cents%100)
}
