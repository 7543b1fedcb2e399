package service

import (
	"context"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/repository"
	"rentacar-backend/internal/security"
)

const latestReservationsLimit = 5

type statsService struct {
	store repository.Store
}

func NewStatsService(store repository.Store) StatsService {
	return &statsService{store: store}
}

func (s *statsService) GetStats(ctx context.Context, actor domain.Actor) (*domain.Stats, error) {
	if err := security.Authorize(actor, security.ActionViewStats, security.Resource{}); err != nil {
		return nil, err
	}

	byStatus, err := s.store.Vehicles().CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &domain.Stats{VehiclesByStatus: map[domain.VehicleStatus]int64{}}
	for _, st := range []domain.VehicleStatus{
		domain.VehicleStatusAvailable, domain.VehicleStatusRented,
		domain.VehicleStatusService, domain.VehicleStatusInactive,
	} {
		stats.VehiclesByStatus[st] = byStatus[st]
		stats.TotalVehicles += byStatus[st]
	}

	if stats.TotalUsers, err = s.store.Users().Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalReservations, stats.RevenueCents, err = s.store.Reservations().Totals(ctx); err != nil {
		return nil, err
	}
	if stats.DamageChargesCents, err = s.store.DamageReports().TotalCost(ctx); err != nil {
		return nil, err
	}
	if stats.LatestReservations, err = s.store.Reservations().Latest(ctx, latestReservationsLimit); err != nil {
		return nil, err
	}
	if stats.LatestReservations == nil {
		stats.LatestReservations = []domain.Reservation{}
	}
	return stats, nil
}
