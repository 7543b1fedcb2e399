package service_test

import (
	"strings"
	"testing"

	"rentacar-backend/internal/domain"
	"rentacar-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplaintService(t *testing.T) {
	f := newFixture(t)
	svc := service.NewComplaintService(f.store, f.recorder)
	res := f.book(t, f.client, june(1, 10), june(3, 10))

	t.Run("Submit", func(t *testing.T) {
		c, err := svc.SubmitComplaint(f.ctx, actorOf(f.client), domain.ComplaintInput{
			ReservationID: &res.ID,
			Title:         " Dirty car ",
			Body:          "The interior was not cleaned.",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ComplaintStatusSubmitted, c.Status)
		assert.Equal(t, "Dirty car", c.Title)
		assert.Equal(t, domain.ActionComplaintSubmitted, f.activity(t)[0].Action)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := svc.SubmitComplaint(f.ctx, actorOf(f.client), domain.ComplaintInput{
			Title: strings.Repeat("a", 256),
		})
		e := appErr(t, err)
		assert.Contains(t, e.Fields, "title")
		assert.Contains(t, e.Fields, "body")
	})

	t.Run("Reservation of another user", func(t *testing.T) {
		_, err := svc.SubmitComplaint(f.ctx, actorOf(f.other), domain.ComplaintInput{
			ReservationID: &res.ID,
			Title:         "Late",
			Body:          "Late pickup.",
		})
		assert.Contains(t, appErr(t, err).Fields, "reservation_id")
	})

	t.Run("List is scoped for clients", func(t *testing.T) {
		_, err := svc.SubmitComplaint(f.ctx, actorOf(f.other), domain.ComplaintInput{Title: "Noise", Body: "Engine noise."})
		require.NoError(t, err)

		mine, err := svc.ListComplaints(f.ctx, actorOf(f.client), domain.ComplaintFilter{}, domain.PageRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), mine.Total)

		all, err := svc.ListComplaints(f.ctx, actorOf(f.clerk), domain.ComplaintFilter{}, domain.PageRequest{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), all.Total)
	})

	t.Run("Resolve", func(t *testing.T) {
		page, err := svc.ListComplaints(f.ctx, actorOf(f.client), domain.ComplaintFilter{}, domain.PageRequest{})
		require.NoError(t, err)
		id := page.Items[0].ID

		_, err = svc.ResolveComplaint(f.ctx, actorOf(f.client), id, domain.ComplaintResolution{Status: domain.ComplaintStatusResolved})
		assert.Equal(t, domain.ErrorKindForbidden, appErr(t, err).Kind)

		_, err = svc.ResolveComplaint(f.ctx, actorOf(f.clerk), id, domain.ComplaintResolution{Status: domain.ComplaintStatusSubmitted})
		assert.Contains(t, appErr(t, err).Fields, "status")

		c, err := svc.ResolveComplaint(f.ctx, actorOf(f.clerk), id, domain.ComplaintResolution{
			Status:     domain.ComplaintStatusResolved,
			Resolution: "Partial refund issued.",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ComplaintStatusResolved, c.Status)
		assert.Equal(t, "Partial refund issued.", c.Resolution)

		entry := f.activity(t)[0]
		assert.Equal(t, domain.ActionComplaintResolved, entry.Action)
		assert.Equal(t, domain.SeveritySuccess, entry.Severity)
	})
}

func TestReviewService(t *testing.T) {
	f := newFixture(t)
	svc := service.NewReviewService(f.store, f.recorder)
	res := f.book(t, f.client, june(1, 10), june(3, 10))

	r, err := svc.SubmitReview(f.ctx, actorOf(f.client), domain.ReviewInput{
		VehicleID:     f.vehicle.ID,
		ReservationID: &res.ID,
		Rating:        5,
		Comment:       "Clean and fast.",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, r.Rating)
	assert.Equal(t, domain.ActionReviewSubmitted, f.activity(t)[0].Action)

	_, err = svc.SubmitReview(f.ctx, actorOf(f.client), domain.ReviewInput{VehicleID: f.vehicle.ID, Rating: 6, Comment: "x"})
	assert.Contains(t, appErr(t, err).Fields, "rating")

	_, err = svc.SubmitReview(f.ctx, actorOf(f.client), domain.ReviewInput{VehicleID: 999, Rating: 3, Comment: "x"})
	assert.Contains(t, appErr(t, err).Fields, "vehicle_id")

	_, err = svc.SubmitReview(f.ctx, actorOf(f.other), domain.ReviewInput{VehicleID: f.vehicle.ID, ReservationID: &res.ID, Rating: 1, Comment: "x"})
	assert.Contains(t, appErr(t, err).Fields, "reservation_id")

	page, err := svc.ListReviews(f.ctx, domain.ReviewFilter{VehicleID: &f.vehicle.ID}, domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, f.client.Name, page.Items[0].UserName)
}
