package domain

import (
	"strings"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "CEKA"
	PaymentStatusPaid    PaymentStatus = "PLACENO"
	PaymentStatusFailed  PaymentStatus = "NEUSPELO"
)

type Payment struct {
	ID            int64         `json:"id"`
	ReservationID int64         `json:"reservation_id"`
	AmountCents   int64         `json:"amount_cents"`
	Method        string        `json:"method"`
	Status        PaymentStatus `json:"status"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

type DamageReport struct {
	ID            int64     `json:"id"`
	ReservationID int64     `json:"reservation_id"`
	Description   string    `json:"description"`
	CostCents     int64     `json:"cost_cents"`
	CreatedAt     time.Time `json:"created_at"`
}

// DamageInput is a damage report supplied by staff, either standalone or
// together with a return transition.
type DamageInput struct {
	Description string `json:"description"`
	CostCents   int64  `json:"cost_cents"`
}

func (d DamageInput) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(d.Description) == "" {
		fields["description"] = "damage description is required"
	}
	if d.CostCents < 0 {
		fields["cost_cents"] = "additional cost must not be negative"
	}
	if len(fields) > 0 {
		return NewValidationError("INVALID_DAMAGE_REPORT", "invalid damage report", fields)
	}
	return nil
}

// SumDamageCosts totals the additional charges of reports.
func SumDamageCosts(reports []DamageReport) int64 {
	var total int64
	for _, r := range reports {
		total += r.CostCents
	}
	return total
}
