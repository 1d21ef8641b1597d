package cron

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	reservationRepo "agendazap/database/repository/reservation"
	"agendazap/models"
	"agendazap/services/agenda"
	"agendazap/services/tenant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	mu       sync.Mutex
	messages []string
}

func (s *captureSender) SendText(_ context.Context, chatID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, chatID+"|"+text)
	return nil
}

func (s *captureSender) count(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messages {
		if strings.Contains(m, substr) {
			n++
		}
	}
	return n
}

type schedulerFixture struct {
	scheduler *Scheduler
	agenda    *agenda.DefaultAgendaService
	sender1   *captureSender
	sender2   *captureSender
}

func newSchedulerFixture() *schedulerFixture {
	registry := tenant.NewRegistry(map[string]models.Tenant{
		"empresa1": {ID: "empresa1", Flow: "barber"},
		"empresa2": {ID: "empresa2", Flow: "barber"},
	}, "empresa1")

	s1 := &captureSender{}
	s2 := &captureSender{}
	registry.SetSender("empresa1", s1)
	registry.SetSender("empresa2", s2)

	svc := agenda.NewDefaultAgendaService(reservationRepo.NewMemoryReservationRepo())
	sched := NewScheduler(registry, svc)
	sched.ReminderWindow = 5 * time.Minute

	return &schedulerFixture{scheduler: sched, agenda: svc, sender1: s1, sender2: s2}
}

func reserve(t *testing.T, svc *agenda.DefaultAgendaService, tenantID, chatID, slot string, ttl time.Duration) *models.Reservation {
	t.Helper()
	r, err := svc.Reserve(context.Background(), tenantID, agenda.ReserveRequest{
		ChatID:       chatID,
		CustomerName: "Cliente",
		Date:         "2026-09-10",
		TimeSlot:     slot,
		LineItems:    []models.LineItem{{Title: "Corte social", Quantity: 1, UnitPrice: 35}},
		TTL:          ttl,
	})
	require.NoError(t, err)
	return r
}

func TestSweepSendsReminderOnce(t *testing.T) {
	fx := newSchedulerFixture()
	ctx := context.Background()

	r := reserve(t, fx.agenda, "empresa1", "cliente1@c.us", "09:00", 3*time.Minute)
	reserve(t, fx.agenda, "empresa1", "cliente2@c.us", "10:00", time.Hour)

	fx.scheduler.Sweep(ctx)
	assert.Equal(t, 1, fx.sender1.count("Lembrete de pagamento"))
	assert.Equal(t, 1, fx.sender1.count(r.ID))

	// the hold stays inside the window on the next pass, no duplicate nudge
	fx.scheduler.Sweep(ctx)
	assert.Equal(t, 1, fx.sender1.count("Lembrete de pagamento"))
}

func TestSweepNotifiesExpiryOnce(t *testing.T) {
	fx := newSchedulerFixture()
	ctx := context.Background()

	now := time.Now()
	fx.agenda.Clock = func() time.Time { return now }
	r := reserve(t, fx.agenda, "empresa1", "cliente1@c.us", "09:00", 20*time.Minute)

	fx.agenda.Clock = func() time.Time { return now.Add(21 * time.Minute) }
	fx.scheduler.Sweep(ctx)
	assert.Equal(t, 1, fx.sender1.count("Reserva expirada"))
	assert.Equal(t, 1, fx.sender1.count(r.ID))

	row, err := fx.agenda.Get(ctx, "empresa1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, row.Status)

	fx.scheduler.Sweep(ctx)
	assert.Equal(t, 1, fx.sender1.count("Reserva expirada"))
}

func TestSweepSkipsConfirmedReservations(t *testing.T) {
	fx := newSchedulerFixture()
	ctx := context.Background()

	now := time.Now()
	fx.agenda.Clock = func() time.Time { return now }
	r := reserve(t, fx.agenda, "empresa1", "cliente1@c.us", "09:00", 20*time.Minute)
	_, err := fx.agenda.Confirm(ctx, "empresa1", r.ID)
	require.NoError(t, err)

	fx.agenda.Clock = func() time.Time { return now.Add(21 * time.Minute) }
	fx.scheduler.Sweep(ctx)
	assert.Empty(t, fx.sender1.messages)
}

func TestSweepDefersExpiryUntilSenderAvailable(t *testing.T) {
	registry := tenant.NewRegistry(map[string]models.Tenant{
		"empresa1": {ID: "empresa1", Flow: "barber"},
	}, "empresa1")

	svc := agenda.NewDefaultAgendaService(reservationRepo.NewMemoryReservationRepo())
	sched := NewScheduler(registry, svc)
	sched.ReminderWindow = 5 * time.Minute
	ctx := context.Background()

	now := time.Now()
	svc.Clock = func() time.Time { return now }
	r := reserve(t, svc, "empresa1", "cliente1@c.us", "09:00", 20*time.Minute)

	// no bridge configured yet: the sweep must not promote or mark the row
	svc.Clock = func() time.Time { return now.Add(21 * time.Minute) }
	sched.Sweep(ctx)

	row, err := svc.Get(ctx, "empresa1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, row.Status)

	// once the bridge is back, the next pass delivers the notice
	sender := &captureSender{}
	registry.SetSender("empresa1", sender)
	sched.Sweep(ctx)

	assert.Equal(t, 1, sender.count("Reserva expirada"))
	assert.Equal(t, 1, sender.count(r.ID))

	row, err = svc.Get(ctx, "empresa1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, row.Status)
}

func TestSweepScopesByTenant(t *testing.T) {
	fx := newSchedulerFixture()
	ctx := context.Background()

	now := time.Now()
	fx.agenda.Clock = func() time.Time { return now }
	r1 := reserve(t, fx.agenda, "empresa1", "cliente1@c.us", "09:00", 20*time.Minute)
	reserve(t, fx.agenda, "empresa2", "cliente2@c.us", "09:00", time.Hour)

	fx.agenda.Clock = func() time.Time { return now.Add(21 * time.Minute) }
	fx.scheduler.Sweep(ctx)

	assert.Equal(t, 1, fx.sender1.count(r1.ID))
	assert.Empty(t, fx.sender2.messages)
}
