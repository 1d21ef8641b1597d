package agenda

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	reservationRepo "agendazap/database/repository/reservation"
	"agendazap/models"
	"agendazap/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultAgendaService implements the booking ledger over a reservation
// repository. The check-then-act inside Reserve is made atomic by a mutex per
// (tenant, date, slot) key; the ledger is single-writer in-process, so no
// cross-process coordination is attempted.
type DefaultAgendaService struct {
	Repo reservationRepo.Repository

	// Clock is overridable for tests; nil means time.Now.
	Clock func() time.Time

	slotMu sync.Mutex
	slots  map[string]*sync.Mutex
}

func NewDefaultAgendaService(repo reservationRepo.Repository) *DefaultAgendaService {
	return &DefaultAgendaService{
		Repo:  repo,
		slots: make(map[string]*sync.Mutex),
	}
}

func (s *DefaultAgendaService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// slotLock returns the mutex guarding one (tenant, date, slot) key.
func (s *DefaultAgendaService) slotLock(tenantID, date, slot string) *sync.Mutex {
	key := tenantID + "|" + date + "|" + slot
	s.slotMu.Lock()
	defer s.slotMu.Unlock()
	mu, ok := s.slots[key]
	if !ok {
		mu = &sync.Mutex{}
		s.slots[key] = mu
	}
	return mu
}

func newReservationID() string {
	return "AG-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:10]
}

// itemsLabel renders line items as the human-readable service column,
// e.g. "Corte social, Barba x2".
func itemsLabel(items []models.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		if title == "" {
			continue
		}
		if it.Quantity > 1 {
			title = fmt.Sprintf("%s x%d", title, it.Quantity)
		}
		parts = append(parts, title)
	}
	return strings.Join(parts, ", ")
}

func (s *DefaultAgendaService) IsSlotFree(ctx context.Context, tenantID, date, slot string) (bool, error) {
	if err := s.ExpireStale(ctx, tenantID); err != nil {
		return false, err
	}
	active, err := s.Repo.FindActiveBySlot(ctx, tenantID, date, slot)
	if err != nil {
		return false, err
	}
	return len(active) == 0, nil
}

func (s *DefaultAgendaService) Reserve(ctx context.Context, tenantID string, req ReserveRequest) (*models.Reservation, error) {
	if len(req.LineItems) == 0 {
		return nil, ErrNoLineItems
	}

	mu := s.slotLock(tenantID, req.Date, req.TimeSlot)
	mu.Lock()
	defer mu.Unlock()

	free, err := s.IsSlotFree(ctx, tenantID, req.Date, req.TimeSlot)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ErrSlotUnavailable
	}

	now := s.now()
	ttl := req.TTL
	if ttl <= 0 {
		ttl = 20 * time.Minute
	}

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		name = "Cliente"
	}

	r := &models.Reservation{
		ID:           newReservationID(),
		TenantID:     tenantID,
		CustomerName: name,
		Date:         req.Date,
		TimeSlot:     req.TimeSlot,
		Service:      itemsLabel(req.LineItems),
		Instagram:    req.Instagram,
		Status:       models.StatusPending,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		ChatID:       req.ChatID,
		LineItems:    req.LineItems,
		Total:        utils.SumLineItems(req.LineItems),
	}
	if err := s.Repo.Insert(ctx, r); err != nil {
		return nil, err
	}

	utils.GetLogger().Info("reservation created",
		zap.String("tenant", tenantID),
		zap.String("reservation", r.ID),
		zap.String("date", r.Date),
		zap.String("slot", r.TimeSlot),
		zap.Float64("total", r.Total))
	return r, nil
}

func (s *DefaultAgendaService) Confirm(ctx context.Context, tenantID, reservationID string) (bool, error) {
	r, err := s.Repo.GetByID(ctx, tenantID, reservationID)
	if errors.Is(err, reservationRepo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if r.Status != models.StatusPending {
		return false, nil
	}

	r.Status = models.StatusConfirmed
	if err := s.Repo.Update(ctx, r); err != nil {
		return false, err
	}
	utils.GetLogger().Info("reservation confirmed",
		zap.String("tenant", tenantID), zap.String("reservation", reservationID))
	return true, nil
}

func (s *DefaultAgendaService) ExpireStale(ctx context.Context, tenantID string) error {
	pending, err := s.Repo.FindByStatus(ctx, tenantID, models.StatusPending)
	if err != nil {
		return err
	}
	now := s.now()
	for i := range pending {
		r := pending[i]
		if r.ExpiresAt.IsZero() || !r.ExpiresAt.Before(now) {
			continue
		}
		r.Status = models.StatusExpired
		if err := s.Repo.Update(ctx, &r); err != nil {
			return err
		}
		utils.GetLogger().Info("reservation expired",
			zap.String("tenant", tenantID), zap.String("reservation", r.ID))
	}
	return nil
}

func (s *DefaultAgendaService) Snapshot(ctx context.Context, tenantID, reservationID string) ([]models.LineItem, float64, error) {
	r, err := s.Repo.GetByID(ctx, tenantID, reservationID)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.LineItem, len(r.LineItems))
	copy(items, r.LineItems)
	return items, r.Total, nil
}

func (s *DefaultAgendaService) Get(ctx context.Context, tenantID, reservationID string) (*models.Reservation, error) {
	return s.Repo.GetByID(ctx, tenantID, reservationID)
}

func (s *DefaultAgendaService) ReservationMatches(ctx context.Context, tenantID, reservationID, date, slot, chatID string) (bool, error) {
	r, err := s.Repo.GetByID(ctx, tenantID, reservationID)
	if errors.Is(err, reservationRepo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if r.Status != models.StatusPending {
		return false, nil
	}
	if date != "" && r.Date != date {
		return false, nil
	}
	if slot != "" && r.TimeSlot != slot {
		return false, nil
	}
	if chatID != "" && r.ChatID != chatID {
		return false, nil
	}
	return true, nil
}

func (s *DefaultAgendaService) ListDay(ctx context.Context, tenantID, date string) ([]models.Reservation, error) {
	if err := s.ExpireStale(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.Repo.FindByTenantDate(ctx, tenantID, date)
}

func (s *DefaultAgendaService) ListPending(ctx context.Context, tenantID string) ([]models.Reservation, error) {
	return s.Repo.FindByStatus(ctx, tenantID, models.StatusPending)
}

func (s *DefaultAgendaService) ListExpired(ctx context.Context, tenantID string) ([]models.Reservation, error) {
	return s.Repo.FindByStatus(ctx, tenantID, models.StatusExpired)
}

func (s *DefaultAgendaService) ExpiringWithin(ctx context.Context, tenantID string, window time.Duration) ([]models.Reservation, error) {
	if err := s.ExpireStale(ctx, tenantID); err != nil {
		return nil, err
	}
	pending, err := s.Repo.FindByStatus(ctx, tenantID, models.StatusPending)
	if err != nil {
		return nil, err
	}

	now := s.now()
	limit := now.Add(window)
	var out []models.Reservation
	for _, r := range pending {
		if r.ExpiresAt.After(now) && !r.ExpiresAt.After(limit) {
			out = append(out, r)
		}
	}
	return out, nil
}
