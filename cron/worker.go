package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agendazap/config"
	"agendazap/services/agenda"
	"agendazap/services/tenant"
	"agendazap/utils"

	"go.uber.org/zap"
)

// Scheduler runs the periodic reservation sweep: payment reminders shortly
// before a hold expires, then expiry notices after the TTL elapses. Both
// notification sets are in-memory and at-most-once per process; a restart may
// re-send, which is acceptable for chat nudges.
type Scheduler struct {
	Registry *tenant.Registry
	Agenda   agenda.Service

	mu       sync.Mutex
	reminded map[string]bool // tenant|reservation
	notified map[string]bool

	// Interval and reminder window, resolved from config when zero.
	Interval       time.Duration
	ReminderWindow time.Duration
}

func NewScheduler(registry *tenant.Registry, ag agenda.Service) *Scheduler {
	return &Scheduler{
		Registry: registry,
		Agenda:   ag,
		reminded: make(map[string]bool),
		notified: make(map[string]bool),
	}
}

func (s *Scheduler) interval() time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	sec := config.AppConfig.SchedulerIntervalSec
	if sec <= 0 {
		sec = 60
	}
	return time.Duration(sec) * time.Second
}

func (s *Scheduler) window() time.Duration {
	if s.ReminderWindow > 0 {
		return s.ReminderWindow
	}
	min := config.AppConfig.PixReminderWindowMin
	if min <= 0 {
		min = 5
	}
	return time.Duration(min) * time.Minute
}

// Run loops until the context is cancelled. Per-tenant errors are logged and
// skipped so one tenant's outage never starves the others.
func (s *Scheduler) Run(ctx context.Context) {
	utils.GetLogger().Info("scheduler started",
		zap.Duration("interval", s.interval()),
		zap.Duration("reminderWindow", s.window()))

	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.GetLogger().Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one full pass over all tenants.
func (s *Scheduler) Sweep(ctx context.Context) {
	for _, tenantID := range s.Registry.IDs() {
		if err := s.sweepTenant(ctx, tenantID); err != nil {
			utils.GetLogger().Error("scheduler sweep failed",
				zap.String("tenant", tenantID), zap.Error(err))
		}
	}
}

// sweepTenant handles expiry notices before reminders: ExpiringWithin also
// promotes stale rows, which would hide them from the pending snapshot the
// expiry diff is built on.
func (s *Scheduler) sweepTenant(ctx context.Context, tenantID string) error {
	if err := s.notifyExpired(ctx, tenantID); err != nil {
		return err
	}
	return s.remindExpiring(ctx, tenantID)
}

// remindExpiring nudges customers whose payment hold lapses inside the
// reminder window.
func (s *Scheduler) remindExpiring(ctx context.Context, tenantID string) error {
	expiring, err := s.Agenda.ExpiringWithin(ctx, tenantID, s.window())
	if err != nil {
		return fmt.Errorf("listing expiring reservations: %w", err)
	}
	if len(expiring) == 0 {
		return nil
	}

	sender, err := s.Registry.Sender(tenantID)
	if err != nil {
		return err
	}

	for _, r := range expiring {
		if r.ChatID == "" || !s.markOnce(s.reminded, tenantID, r.ID) {
			continue
		}
		left := time.Until(r.ExpiresAt).Round(time.Minute)
		if left < time.Minute {
			left = time.Minute
		}
		msg := fmt.Sprintf(
			"⏰ *Lembrete de pagamento*\n\nSeu PIX do agendamento %s expira em ~%d min.\n"+
				"Digite *reenviar pix* para receber o código de novo, ou *status* para conferir.",
			r.ID, int(left.Minutes()))
		if err := sender.SendText(ctx, r.ChatID, msg); err != nil {
			utils.GetLogger().Warn("payment reminder failed",
				zap.String("tenant", tenantID), zap.String("reservation", r.ID), zap.Error(err))
		}
	}
	return nil
}

// notifyExpired promotes stale holds and messages the customers whose
// reservations expired in this pass. The before/after diff scopes the notice
// to rows this sweep transitioned, not every historical Expired row. The
// sender is resolved before anything is promoted or marked, so a tenant whose
// bridge is unavailable keeps its rows pending and gets the notices on a
// later pass.
func (s *Scheduler) notifyExpired(ctx context.Context, tenantID string) error {
	sender, err := s.Registry.Sender(tenantID)
	if err != nil {
		return err
	}

	before, err := s.Agenda.ListPending(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("listing pending reservations: %w", err)
	}
	wasPending := make(map[string]bool, len(before))
	for _, r := range before {
		wasPending[r.ID] = true
	}

	if err := s.Agenda.ExpireStale(ctx, tenantID); err != nil {
		return fmt.Errorf("expiring stale reservations: %w", err)
	}

	expired, err := s.Agenda.ListExpired(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("listing expired reservations: %w", err)
	}

	for _, r := range expired {
		if !wasPending[r.ID] {
			continue
		}
		if r.ChatID == "" || !s.markOnce(s.notified, tenantID, r.ID) {
			continue
		}
		msg := fmt.Sprintf(
			"⏰ *Reserva expirada*\n\nO pagamento do agendamento %s não foi confirmado a tempo "+
				"e o horário foi liberado.\nDigite *agendar* para refazer.",
			r.ID)
		if err := sender.SendText(ctx, r.ChatID, msg); err != nil {
			utils.GetLogger().Warn("expiry notice failed",
				zap.String("tenant", tenantID), zap.String("reservation", r.ID), zap.Error(err))
		}
	}
	return nil
}

// markOnce records a (tenant, reservation) key and reports whether this was
// its first occurrence.
func (s *Scheduler) markOnce(set map[string]bool, tenantID, reservationID string) bool {
	key := tenantID + "|" + reservationID
	s.mu.Lock()
	defer s.mu.Unlock()
	if set[key] {
		return false
	}
	set[key] = true
	return true
}
