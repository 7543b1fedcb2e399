package memory

import (
	"context"
	"sort"
	"time"

	"rentacar-backend/internal/domain"
)

type vehicles struct{ s *Store }

func (r vehicles) Create(_ context.Context, v *domain.Vehicle) error {
	return r.s.with(func(st *state) error {
		for _, existing := range st.vehicles {
			if existing.Registration == v.Registration {
				return domain.NewConflictError("DUPLICATE", "a record with the same unique value already exists")
			}
		}
		now := time.Now().UTC()
		v.ID = st.next("vehicles")
		v.CreatedAt, v.UpdatedAt = now, now
		st.vehicles[v.ID] = *v
		return nil
	})
}

func (r vehicles) GetByID(_ context.Context, id int64) (*domain.Vehicle, error) {
	var out *domain.Vehicle
	err := r.s.with(func(st *state) error {
		v, ok := st.vehicles[id]
		if !ok {
			return domain.NewNotFoundError("vehicle", id)
		}
		out = &v
		return nil
	})
	return out, err
}

// LockByID is GetByID: transactions already hold the store lock.
func (r vehicles) LockByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	return r.GetByID(ctx, id)
}

func (r vehicles) Update(_ context.Context, v *domain.Vehicle) error {
	return r.s.with(func(st *state) error {
		existing, ok := st.vehicles[v.ID]
		if !ok {
			return domain.NewNotFoundError("vehicle", v.ID)
		}
		v.CreatedAt = existing.CreatedAt
		v.UpdatedAt = time.Now().UTC()
		st.vehicles[v.ID] = *v
		return nil
	})
}

func (r vehicles) Delete(_ context.Context, id int64) error {
	return r.s.with(func(st *state) error {
		if _, ok := st.vehicles[id]; !ok {
			return domain.NewNotFoundError("vehicle", id)
		}
		for _, res := range st.reservations {
			if res.VehicleID == id {
				return domain.NewValidationError("INVALID_REFERENCE", "a referenced record does not exist or is still in use", nil)
			}
		}
		delete(st.vehicles, id)
		return nil
	})
}

func (r vehicles) List(_ context.Context, filter domain.VehicleFilter, page domain.PageRequest) ([]domain.Vehicle, int64, error) {
	var out []domain.Vehicle
	var total int64
	err := r.s.with(func(st *state) error {
		var all []domain.Vehicle
		for _, id := range sortedKeys(st.vehicles) {
			v := st.vehicles[id]
			if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, v.Status) {
				continue
			}
			if filter.BranchID != nil && v.BranchID != *filter.BranchID {
				continue
			}
			if filter.CategoryID != nil && v.CategoryID != *filter.CategoryID {
				continue
			}
			all = append(all, v)
		}
		out, total = paginate(all, page)
		return nil
	})
	return out, total, err
}

func containsStatus(statuses []domain.VehicleStatus, s domain.VehicleStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (r vehicles) CountByStatus(_ context.Context) (map[domain.VehicleStatus]int64, error) {
	counts := map[domain.VehicleStatus]int64{}
	err := r.s.with(func(st *state) error {
		for _, v := range st.vehicles {
			counts[v.Status]++
		}
		return nil
	})
	return counts, err
}

func (r vehicles) SyncRentalStatuses(_ context.Context) (int64, int64, error) {
	var rented, released int64
	err := r.s.with(func(st *state) error {
		pickedUp := map[int64]bool{}
		for _, res := range st.reservations {
			if res.Status == domain.ReservationStatusPickedUp {
				pickedUp[res.VehicleID] = true
			}
		}
		for id, v := range st.vehicles {
			switch {
			case v.Status == domain.VehicleStatusAvailable && pickedUp[id]:
				v.Status = domain.VehicleStatusRented
				rented++
			case v.Status == domain.VehicleStatusRented && !pickedUp[id]:
				v.Status = domain.VehicleStatusAvailable
				released++
			default:
				continue
			}
			v.UpdatedAt = time.Now().UTC()
			st.vehicles[id] = v
		}
		return nil
	})
	return rented, released, err
}

type reservations struct{ s *Store }

func (r reservations) Create(_ context.Context, res *domain.Reservation) error {
	return r.s.with(func(st *state) error {
		if err := st.fail("reservations.create"); err != nil {
			return err
		}
		now := time.Now().UTC()
		res.ID = st.next("reservations")
		res.CreatedAt, res.UpdatedAt = now, now
		stored := *res
		stored.Vehicle, stored.User, stored.DamageReports = nil, nil, nil
		st.reservations[res.ID] = stored
		return nil
	})
}

func (r reservations) GetByID(_ context.Context, id int64) (*domain.Reservation, error) {
	var out *domain.Reservation
	err := r.s.with(func(st *state) error {
		res, ok := st.reservations[id]
		if !ok {
			return domain.NewNotFoundError("reservation", id)
		}
		out = &res
		return nil
	})
	return out, err
}

func (r reservations) FindBlocking(_ context.Context, vehicleID int64, interval domain.Interval, excludeID int64) ([]domain.Interval, error) {
	var out []domain.Interval
	err := r.s.with(func(st *state) error {
		for _, res := range sortedReservations(st) {
			if res.VehicleID != vehicleID || res.ID == excludeID || !res.Status.IsBlocking() {
				continue
			}
			if res.Interval().Overlaps(interval) {
				out = append(out, res.Interval())
			}
		}
		return nil
	})
	return out, err
}

func (r reservations) ListBlockingByVehicle(_ context.Context, vehicleID int64) ([]domain.Interval, error) {
	var out []domain.Interval
	err := r.s.with(func(st *state) error {
		for _, res := range sortedReservations(st) {
			if res.VehicleID == vehicleID && res.Status.IsBlocking() {
				out = append(out, res.Interval())
			}
		}
		return nil
	})
	return out, err
}

// sortedReservations orders reservations by pickup time, then id.
func sortedReservations(st *state) []domain.Reservation {
	list := make([]domain.Reservation, 0, len(st.reservations))
	for _, res := range st.reservations {
		list = append(list, res)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].PickupAt.Equal(list[j].PickupAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].PickupAt.Before(list[j].PickupAt)
	})
	return list
}

func (r reservations) UpdateSchedule(_ context.Context, res *domain.Reservation) error {
	return r.s.with(func(st *state) error {
		existing, ok := st.reservations[res.ID]
		if !ok {
			return domain.NewNotFoundError("reservation", res.ID)
		}
		existing.VehicleID = res.VehicleID
		existing.PickupBranchID, existing.ReturnBranchID = res.PickupBranchID, res.ReturnBranchID
		existing.PickupAt, existing.ReturnAt = res.PickupAt, res.ReturnAt
		existing.TotalPriceCents = res.TotalPriceCents
		existing.Notes = res.Notes
		existing.UpdatedAt = time.Now().UTC()
		res.UpdatedAt = existing.UpdatedAt
		st.reservations[res.ID] = existing
		return nil
	})
}

func (r reservations) UpdateStatus(_ context.Context, res *domain.Reservation) error {
	return r.s.with(func(st *state) error {
		if err := st.fail("reservations.update_status"); err != nil {
			return err
		}
		existing, ok := st.reservations[res.ID]
		if !ok {
			return domain.NewNotFoundError("reservation", res.ID)
		}
		existing.Status = res.Status
		existing.PickupKm, existing.PickupFuel = res.PickupKm, res.PickupFuel
		existing.ReturnKm, existing.ReturnFuel = res.ReturnKm, res.ReturnFuel
		existing.UpdatedAt = time.Now().UTC()
		res.UpdatedAt = existing.UpdatedAt
		st.reservations[res.ID] = existing
		return nil
	})
}

func (st *state) withSummary(res domain.Reservation) domain.Reservation {
	if v, ok := st.vehicles[res.VehicleID]; ok {
		res.Vehicle = &domain.Vehicle{ID: v.ID, Make: v.Make, Model: v.Model, Registration: v.Registration}
	}
	if u, ok := st.users[res.UserID]; ok {
		res.User = &domain.User{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return res
}

func (st *state) filterReservations(filter domain.ReservationFilter) []domain.Reservation {
	var out []domain.Reservation
	for _, id := range sortedKeys(st.reservations) {
		res := st.reservations[id]
		if filter.UserID != nil && res.UserID != *filter.UserID {
			continue
		}
		if filter.VehicleID != nil && res.VehicleID != *filter.VehicleID {
			continue
		}
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		out = append(out, st.withSummary(res))
	}
	return out
}

func (r reservations) List(_ context.Context, filter domain.ReservationFilter, page domain.PageRequest) ([]domain.Reservation, int64, error) {
	var out []domain.Reservation
	var total int64
	err := r.s.with(func(st *state) error {
		all := st.filterReservations(filter)
		// newest first
		for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
			all[i], all[j] = all[j], all[i]
		}
		out, total = paginate(all, page)
		return nil
	})
	return out, total, err
}

func (r reservations) ListAll(_ context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := r.s.with(func(st *state) error {
		out = st.filterReservations(filter)
		sort.SliceStable(out, func(i, j int) bool { return out[i].PickupAt.Before(out[j].PickupAt) })
		return nil
	})
	return out, err
}

func (r reservations) ListStalePending(_ context.Context, before time.Time) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := r.s.with(func(st *state) error {
		for _, res := range sortedReservations(st) {
			if res.Status == domain.ReservationStatusPending && res.PickupAt.Before(before) {
				out = append(out, st.withSummary(res))
			}
		}
		return nil
	})
	return out, err
}

func (r reservations) CountByVehicle(_ context.Context, vehicleID int64) (int64, error) {
	var n int64
	err := r.s.with(func(st *state) error {
		for _, res := range st.reservations {
			if res.VehicleID == vehicleID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r reservations) Totals(_ context.Context) (int64, int64, error) {
	var count, revenue int64
	err := r.s.with(func(st *state) error {
		for _, res := range st.reservations {
			count++
			if res.Status != domain.ReservationStatusCancelled {
				revenue += res.TotalPriceCents
			}
		}
		return nil
	})
	return count, revenue, err
}

func (r reservations) Latest(_ context.Context, limit int) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := r.s.with(func(st *state) error {
		ids := sortedKeys(st.reservations)
		for i := len(ids) - 1; i >= 0 && len(out) < limit; i-- {
			out = append(out, st.withSummary(st.reservations[ids[i]]))
		}
		return nil
	})
	return out, err
}

type damageReports struct{ s *Store }

func (r damageReports) Create(_ context.Context, d *domain.DamageReport) error {
	return r.s.with(func(st *state) error {
		if err := st.fail("damage_reports.create"); err != nil {
			return err
		}
		d.ID = st.next("damage_reports")
		d.CreatedAt = time.Now().UTC()
		st.damage[d.ID] = *d
		return nil
	})
}

func (r damageReports) ListByReservation(_ context.Context, reservationID int64) ([]domain.DamageReport, error) {
	var out []domain.DamageReport
	err := r.s.with(func(st *state) error {
		for _, id := range sortedKeys(st.damage) {
			if d := st.damage[id]; d.ReservationID == reservationID {
				out = append(out, d)
			}
		}
		return nil
	})
	return out, err
}

func (r damageReports) TotalCost(_ context.Context) (int64, error) {
	var total int64
	err := r.s.with(func(st *state) error {
		for _, d := range st.damage {
			total += d.CostCents
		}
		return nil
	})
	return total, err
}

type payments struct{ s *Store }

func (r payments) Create(_ context.Context, p *domain.Payment) error {
	return r.s.with(func(st *state) error {
		if err := st.fail("payments.create"); err != nil {
			return err
		}
		p.ID = st.next("payments")
		p.CreatedAt = time.Now().UTC()
		st.payments[p.ID] = *p
		return nil
	})
}

func (r payments) GetByID(_ context.Context, id int64) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.s.with(func(st *state) error {
		p, ok := st.payments[id]
		if !ok {
			return domain.NewNotFoundError("payment", id)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r payments) ListByReservation(_ context.Context, reservationID int64) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.s.with(func(st *state) error {
		for _, id := range sortedKeys(st.payments) {
			if p := st.payments[id]; p.ReservationID == reservationID {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

type activities struct{ s *Store }

func (r activities) Create(_ context.Context, e *domain.ActivityLogEntry) error {
	return r.s.with(func(st *state) error {
		if err := st.fail("activity_logs.create"); err != nil {
			return err
		}
		e.ID = st.next("activity_logs")
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		st.activities[e.ID] = *e
		return nil
	})
}

func (r activities) List(_ context.Context, page domain.PageRequest) ([]domain.ActivityLogEntry, int64, error) {
	var out []domain.ActivityLogEntry
	var total int64
	err := r.s.with(func(st *state) error {
		ids := sortedKeys(st.activities)
		all := make([]domain.ActivityLogEntry, 0, len(ids))
		for i := len(ids) - 1; i >= 0; i-- {
			e := st.activities[ids[i]]
			if e.UserID != nil {
				e.UserName = st.users[*e.UserID].Name
			}
			all = append(all, e)
		}
		out, total = paginate(all, page)
		return nil
	})
	return out, total, err
}

type complaints struct{ s *Store }

func (r complaints) Create(_ context.Context, c *domain.Complaint) error {
	return r.s.with(func(st *state) error {
		now := time.Now().UTC()
		c.ID = st.next("complaints")
		c.CreatedAt, c.UpdatedAt = now, now
		st.complaints[c.ID] = *c
		return nil
	})
}

func (r complaints) GetByID(_ context.Context, id int64) (*domain.Complaint, error) {
	var out *domain.Complaint
	err := r.s.with(func(st *state) error {
		c, ok := st.complaints[id]
		if !ok {
			return domain.NewNotFoundError("complaint", id)
		}
		c.UserName = st.users[c.UserID].Name
		out = &c
		return nil
	})
	return out, err
}

func (r complaints) UpdateResolution(_ context.Context, c *domain.Complaint) error {
	return r.s.with(func(st *state) error {
		existing, ok := st.complaints[c.ID]
		if !ok {
			return domain.NewNotFoundError("complaint", c.ID)
		}
		existing.Status, existing.Resolution = c.Status, c.Resolution
		existing.UpdatedAt = time.Now().UTC()
		st.complaints[c.ID] = existing
		return nil
	})
}

func (r complaints) List(_ context.Context, filter domain.ComplaintFilter, page domain.PageRequest) ([]domain.Complaint, int64, error) {
	var out []domain.Complaint
	var total int64
	err := r.s.with(func(st *state) error {
		var all []domain.Complaint
		ids := sortedKeys(st.complaints)
		for i := len(ids) - 1; i >= 0; i-- {
			c := st.complaints[ids[i]]
			if filter.UserID != nil && c.UserID != *filter.UserID {
				continue
			}
			if filter.Status != "" && c.Status != filter.Status {
				continue
			}
			c.UserName = st.users[c.UserID].Name
			all = append(all, c)
		}
		out, total = paginate(all, page)
		return nil
	})
	return out, total, err
}

type documents struct{ s *Store }

func (r documents) Create(_ context.Context, d *domain.Document) error {
	return r.s.with(func(st *state) error {
		d.ID = st.next("documents")
		d.CreatedAt = time.Now().UTC()
		st.documents[d.ID] = *d
		return nil
	})
}

func (r documents) GetByID(_ context.Context, id int64) (*domain.Document, error) {
	var out *domain.Document
	err := r.s.with(func(st *state) error {
		d, ok := st.documents[id]
		if !ok {
			return domain.NewNotFoundError("document", id)
		}
		d.UserName = st.users[d.UserID].Name
		out = &d
		return nil
	})
	return out, err
}

func (r documents) GetByStorageKey(_ context.Context, key string) (*domain.Document, error) {
	var out *domain.Document
	err := r.s.with(func(st *state) error {
		for _, d := range st.documents {
			if d.StorageKey == key {
				d.UserName = st.users[d.UserID].Name
				out = &d
				return nil
			}
		}
		return notFoundMsg("file not found")
	})
	return out, err
}

func (r documents) UpdateStatus(_ context.Context, d *domain.Document) error {
	return r.s.with(func(st *state) error {
		existing, ok := st.documents[d.ID]
		if !ok {
			return domain.NewNotFoundError("document", d.ID)
		}
		existing.Status, existing.Verified = d.Status, d.Verified
		st.documents[d.ID] = existing
		return nil
	})
}

func (r documents) Delete(_ context.Context, id int64) error {
	return r.s.with(func(st *state) error {
		if _, ok := st.documents[id]; !ok {
			return domain.NewNotFoundError("document", id)
		}
		delete(st.documents, id)
		return nil
	})
}

func (r documents) List(_ context.Context, filter domain.DocumentFilter, page domain.PageRequest) ([]domain.Document, int64, error) {
	var out []domain.Document
	var total int64
	err := r.s.with(func(st *state) error {
		var all []domain.Document
		ids := sortedKeys(st.documents)
		for i := len(ids) - 1; i >= 0; i-- {
			d := st.documents[ids[i]]
			if filter.UserID != nil && d.UserID != *filter.UserID {
				continue
			}
			if filter.Status != "" && d.Status != filter.Status {
				continue
			}
			d.UserName = st.users[d.UserID].Name
			all = append(all, d)
		}
		out, total = paginate(all, page)
		return nil
	})
	return out, total, err
}

type reviews struct{ s *Store }

func (r reviews) Create(_ context.Context, rv *domain.Review) error {
	return r.s.with(func(st *state) error {
		rv.ID = st.next("reviews")
		rv.CreatedAt = time.Now().UTC()
		st.reviews[rv.ID] = *rv
		return nil
	})
}

func (r reviews) List(_ context.Context, filter domain.ReviewFilter, page domain.PageRequest) ([]domain.Review, int64, error) {
	var out []domain.Review
	var total int64
	err := r.s.with(func(st *state) error {
		var all []domain.Review
		ids := sortedKeys(st.reviews)
		for i := len(ids) - 1; i >= 0; i-- {
			rv := st.reviews[ids[i]]
			if filter.VehicleID != nil && rv.VehicleID != *filter.VehicleID {
				continue
			}
			rv.UserName = st.users[rv.UserID].Name
			all = append(all, rv)
		}
		out, total = paginate(all, page)
		return nil
	})
	return out, total, err
}
