package jobs

import (
	"context"

	"rentacar-backend/internal/logger"
)

// ExpireStaleReservations cancels reservations that were never confirmed
// and whose pickup time has passed by more than the configured grace.
func (jr *JobRunner) ExpireStaleReservations() {
	jr.runWithRecovery("ExpireStaleReservations", func(ctx context.Context) {
		grace := jr.config.PendingGrace()
		n, err := jr.services.Reservation.ExpireStale(ctx, grace)
		if err != nil {
			logger.Error("Failed to expire some stale reservations", "expired", n, "error", err)
			return
		}
		logger.Info("Expired stale reservations", "count", n, "grace", grace)
	})
}

// SyncVehicleStatuses keeps the denormalized vehicle status in line with
// picked-up reservations. SERVIS and NEAKTIVNO vehicles are left alone.
func (jr *JobRunner) SyncVehicleStatuses() {
	jr.runWithRecovery("SyncVehicleStatuses", func(ctx context.Context) {
		rented, released, err := jr.store.Vehicles().SyncRentalStatuses(ctx)
		if err != nil {
			logger.Error("Failed to sync vehicle statuses", "error", err)
			return
		}
		logger.Info("Synced vehicle statuses", "rented", rented, "released", released)
	})
}
