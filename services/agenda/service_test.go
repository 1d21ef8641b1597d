package agenda

import (
	"context"
	"sync"
	"testing"
	"time"

	reservationRepo "agendazap/database/repository/reservation"
	"agendazap/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*DefaultAgendaService, *reservationRepo.MemoryReservationRepo) {
	repo := reservationRepo.NewMemoryReservationRepo()
	return NewDefaultAgendaService(repo), repo
}

func testRequest(chatID string) ReserveRequest {
	return ReserveRequest{
		ChatID:       chatID,
		CustomerName: "João da Silva",
		Date:         "2026-09-10",
		TimeSlot:     "09:00",
		LineItems:    []models.LineItem{{Title: "Corte social", Quantity: 1, UnitPrice: 35}},
		TTL:          20 * time.Minute,
	}
}

func TestReserveHappyPath(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	r, err := svc.Reserve(ctx, "empresa1", testRequest("chat1@c.us"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, r.Status)
	assert.Contains(t, r.ID, "AG-")
	assert.Equal(t, "Corte social", r.Service)
	assert.InDelta(t, 35.0, r.Total, 1e-9)
	assert.True(t, r.ExpiresAt.After(r.CreatedAt))
	assert.Equal(t, 1, repo.BackupCount())

	free, err := svc.IsSlotFree(ctx, "empresa1", "2026-09-10", "09:00")
	require.NoError(t, err)
	assert.False(t, free)
}

func TestReserveRejectsTakenSlot(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Reserve(ctx, "empresa1", testRequest("chat1@c.us"))
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, "empresa1", testRequest("chat2@c.us"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestReserveRequiresLineItems(t *testing.T) {
	svc, _ := newTestService()
	req := testRequest("chat1@c.us")
	req.LineItems = nil

	_, err := svc.Reserve(context.Background(), "empresa1", req)
	assert.ErrorIs(t, err, ErrNoLineItems)
}

func TestReserveConcurrentSingleWinner(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(ctx, "empresa1", testRequest("racer@c.us"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case err == ErrSlotUnavailable:
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, n-1, lost)
}

func TestReserveDifferentSlotsDoNotContend(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i, slot := range TimeBlocks {
		req := testRequest("chat@c.us")
		req.TimeSlot = slot
		_, err := svc.Reserve(ctx, "empresa1", req)
		require.NoError(t, err, "slot %d (%s)", i, slot)
	}
}

func TestConfirmIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	r, err := svc.Reserve(ctx, "empresa1", testRequest("chat1@c.us"))
	require.NoError(t, err)

	changed, err := svc.Confirm(ctx, "empresa1", r.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	// duplicate notification
	changed, err = svc.Confirm(ctx, "empresa1", r.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := svc.Get(ctx, "empresa1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
}

func TestConfirmUnknownReservation(t *testing.T) {
	svc, _ := newTestService()
	changed, err := svc.Confirm(context.Background(), "empresa1", "AG-MISSING")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestExpireStaleScoping(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	now := time.Now()
	svc.Clock = func() time.Time { return now }

	stale, err := svc.Reserve(ctx, "empresa1", testRequest("chat1@c.us"))
	require.NoError(t, err)

	long := testRequest("chat2@c.us")
	long.TimeSlot = "10:00"
	long.TTL = time.Hour
	longRes, err := svc.Reserve(ctx, "empresa1", long)
	require.NoError(t, err)

	confirmed := testRequest("chat3@c.us")
	confirmed.TimeSlot = "11:00"
	confirmedRes, err := svc.Reserve(ctx, "empresa1", confirmed)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, "empresa1", confirmedRes.ID)
	require.NoError(t, err)

	otherTenant, err := svc.Reserve(ctx, "empresa2", testRequest("chat4@c.us"))
	require.NoError(t, err)

	// past the 20 minute TTL but inside the one hour TTL
	svc.Clock = func() time.Time { return now.Add(21 * time.Minute) }
	require.NoError(t, svc.ExpireStale(ctx, "empresa1"))

	staleRow, _ := svc.Get(ctx, "empresa1", stale.ID)
	assert.Equal(t, models.StatusExpired, staleRow.Status)

	longRow, _ := svc.Get(ctx, "empresa1", longRes.ID)
	assert.Equal(t, models.StatusPending, longRow.Status)

	confirmedRow, _ := svc.Get(ctx, "empresa1", confirmedRes.ID)
	assert.Equal(t, models.StatusConfirmed, confirmedRow.Status)

	otherRow, _ := svc.Get(ctx, "empresa2", otherTenant.ID)
	assert.Equal(t, models.StatusPending, otherRow.Status, "other tenant untouched")
}

func TestExpiredSlotBecomesFreeAgain(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	now := time.Now()
	svc.Clock = func() time.Time { return now }

	_, err := svc.Reserve(ctx, "empresa1", testRequest("chat1@c.us"))
	require.NoError(t, err)

	svc.Clock = func() time.Time { return now.Add(21 * time.Minute) }
	free, err := svc.IsSlotFree(ctx, "empresa1", "2026-09-10", "09:00")
	require.NoError(t, err)
	assert.True(t, free)

	_, err = svc.Reserve(ctx, "empresa1", testRequest("chat2@c.us"))
	assert.NoError(t, err)
}

func TestExpiringWithin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	now := time.Now()
	svc.Clock = func() time.Time { return now }

	soon := testRequest("chat1@c.us")
	soon.TTL = 4 * time.Minute
	soonRes, err := svc.Reserve(ctx, "empresa1", soon)
	require.NoError(t, err)

	later := testRequest("chat2@c.us")
	later.TimeSlot = "10:00"
	later.TTL = time.Hour
	_, err = svc.Reserve(ctx, "empresa1", later)
	require.NoError(t, err)

	expiring, err := svc.ExpiringWithin(ctx, "empresa1", 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, soonRes.ID, expiring[0].ID)
}

func TestReservationMatches(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	r, err := svc.Reserve(ctx, "empresa1", testRequest("chat1@c.us"))
	require.NoError(t, err)

	ok, err := svc.ReservationMatches(ctx, "empresa1", r.ID, "2026-09-10", "09:00", "chat1@c.us")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.ReservationMatches(ctx, "empresa1", r.ID, "2026-09-10", "10:00", "chat1@c.us")
	require.NoError(t, err)
	assert.False(t, ok, "slot mismatch")

	ok, err = svc.ReservationMatches(ctx, "empresa1", r.ID, "2026-09-10", "09:00", "other@c.us")
	require.NoError(t, err)
	assert.False(t, ok, "chat mismatch")

	ok, err = svc.ReservationMatches(ctx, "empresa1", "AG-MISSING", "2026-09-10", "09:00", "chat1@c.us")
	require.NoError(t, err)
	assert.False(t, ok, "unknown id")

	_, err = svc.Confirm(ctx, "empresa1", r.ID)
	require.NoError(t, err)
	ok, err = svc.ReservationMatches(ctx, "empresa1", r.ID, "2026-09-10", "09:00", "chat1@c.us")
	require.NoError(t, err)
	assert.False(t, ok, "no longer pending")
}

func TestSnapshot(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	req := testRequest("chat1@c.us")
	req.LineItems = []models.LineItem{
		{Title: "Corte social", Quantity: 1, UnitPrice: 35},
		{Title: "Barba", Quantity: 1, UnitPrice: 25},
	}
	r, err := svc.Reserve(ctx, "empresa1", req)
	require.NoError(t, err)

	items, total, err := svc.Snapshot(ctx, "empresa1", r.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.InDelta(t, 60.0, total, 1e-9)
}

func TestHalfCentTotalRoundsUp(t *testing.T) {
	svc, _ := newTestService()
	req := testRequest("chat1@c.us")
	req.LineItems = []models.LineItem{{Title: "Promo", Quantity: 1, UnitPrice: 50.005}}

	r, err := svc.Reserve(context.Background(), "empresa1", req)
	require.NoError(t, err)
	assert.InDelta(t, 50.01, r.Total, 1e-9)
}
