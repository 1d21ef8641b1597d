package reservationRepo

import (
	"context"
	"sync"
	"time"

	"agendazap/models"
)

// MemoryReservationRepo is the in-process reservation store used in tests and
// when no DATABASE_URL is configured. The backup trail is kept in memory to
// honor the repository contract (a copy per mutating write).
type MemoryReservationRepo struct {
	mu      sync.RWMutex
	rows    map[string]models.Reservation // keyed by reservation id
	backups []backupRow
}

func NewMemoryReservationRepo() *MemoryReservationRepo {
	return &MemoryReservationRepo{rows: make(map[string]models.Reservation)}
}

func (repo *MemoryReservationRepo) Insert(_ context.Context, r *models.Reservation) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.rows[r.ID] = *r
	repo.backups = append(repo.backups, backupRow{TakenAt: time.Now(), Reservation: *r})
	return nil
}

func (repo *MemoryReservationRepo) Update(_ context.Context, r *models.Reservation) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	existing, ok := repo.rows[r.ID]
	if !ok || existing.TenantID != r.TenantID {
		return ErrNotFound
	}
	repo.rows[r.ID] = *r
	repo.backups = append(repo.backups, backupRow{TakenAt: time.Now(), Reservation: *r})
	return nil
}

func (repo *MemoryReservationRepo) GetByID(_ context.Context, tenantID, id string) (*models.Reservation, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	r, ok := repo.rows[id]
	if !ok || r.TenantID != tenantID {
		return nil, ErrNotFound
	}
	out := r
	return &out, nil
}

func (repo *MemoryReservationRepo) FindByTenantDate(_ context.Context, tenantID, date string) ([]models.Reservation, error) {
	return repo.filter(func(r models.Reservation) bool {
		return r.TenantID == tenantID && r.Date == date
	}), nil
}

func (repo *MemoryReservationRepo) FindByStatus(_ context.Context, tenantID, status string) ([]models.Reservation, error) {
	return repo.filter(func(r models.Reservation) bool {
		return r.TenantID == tenantID && r.Status == status
	}), nil
}

func (repo *MemoryReservationRepo) FindActiveBySlot(_ context.Context, tenantID, date, slot string) ([]models.Reservation, error) {
	return repo.filter(func(r models.Reservation) bool {
		return r.TenantID == tenantID && r.Date == date && r.TimeSlot == slot && r.Active()
	}), nil
}

// BackupCount reports how many backup copies have been taken.
func (repo *MemoryReservationRepo) BackupCount() int {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	return len(repo.backups)
}

func (repo *MemoryReservationRepo) filter(keep func(models.Reservation) bool) []models.Reservation {
	repo.mu.RLock()
	defer repo.mu.RUnlock()
	var out []models.Reservation
	for _, r := range repo.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
