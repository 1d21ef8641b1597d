package reservationRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agendazap/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoReservationRepo is the MongoDB-backed reservation store.
type MongoReservationRepo struct {
	coll       *mongo.Collection
	backupColl *mongo.Collection
}

// NewMongoReservationRepo wires the repository to the reservations and
// reservation_backups collections.
func NewMongoReservationRepo(db *mongo.Database) *MongoReservationRepo {
	return &MongoReservationRepo{
		coll:       db.Collection("reservations"),
		backupColl: db.Collection("reservation_backups"),
	}
}

// ErrNotFound is returned when no reservation matches the given id.
var ErrNotFound = errors.New("reservation not found")

type backupRow struct {
	TakenAt     time.Time          `bson:"takenAt"`
	Reservation models.Reservation `bson:"reservation"`
}

// snapshot appends a timestamped copy of the row to the backup collection.
// Backup failures are surfaced: losing the trail silently would defeat its
// purpose.
func (repo *MongoReservationRepo) snapshot(ctx context.Context, r *models.Reservation) error {
	_, err := repo.backupColl.InsertOne(ctx, backupRow{TakenAt: time.Now(), Reservation: *r})
	if err != nil {
		return fmt.Errorf("error writing reservation backup: %w", err)
	}
	return nil
}

// Insert creates a new reservation document plus its backup copy.
func (repo *MongoReservationRepo) Insert(ctx context.Context, r *models.Reservation) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.coll.InsertOne(ctxWithTimeout, r); err != nil {
		return fmt.Errorf("error creating reservation: %w", err)
	}
	return repo.snapshot(ctxWithTimeout, r)
}

// Update replaces an existing reservation document and records a backup copy.
func (repo *MongoReservationRepo) Update(ctx context.Context, r *models.Reservation) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": r.ID, "tenantId": r.TenantID}
	res, err := repo.coll.UpdateOne(ctxWithTimeout, filter, bson.M{"$set": r})
	if err != nil {
		return fmt.Errorf("error updating reservation %s: %w", r.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return repo.snapshot(ctxWithTimeout, r)
}

// GetByID retrieves a reservation by its id.
func (repo *MongoReservationRepo) GetByID(ctx context.Context, tenantID, id string) (*models.Reservation, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var r models.Reservation
	err := repo.coll.FindOne(ctxWithTimeout, bson.M{"id": id, "tenantId": tenantID}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching reservation %s: %w", id, err)
	}
	return &r, nil
}

// FindByTenantDate lists all reservations of a tenant on the given date.
func (repo *MongoReservationRepo) FindByTenantDate(ctx context.Context, tenantID, date string) ([]models.Reservation, error) {
	return repo.find(ctx, bson.M{"tenantId": tenantID, "date": date})
}

// FindByStatus lists all reservations of a tenant in the given status.
func (repo *MongoReservationRepo) FindByStatus(ctx context.Context, tenantID, status string) ([]models.Reservation, error) {
	return repo.find(ctx, bson.M{"tenantId": tenantID, "status": status})
}

// FindActiveBySlot lists Pending/Confirmed reservations holding (date, slot).
func (repo *MongoReservationRepo) FindActiveBySlot(ctx context.Context, tenantID, date, slot string) ([]models.Reservation, error) {
	return repo.find(ctx, bson.M{
		"tenantId": tenantID,
		"date":     date,
		"timeSlot": slot,
		"status":   bson.M{"$in": []string{models.StatusPending, models.StatusConfirmed}},
	})
}

func (repo *MongoReservationRepo) find(ctx context.Context, filter bson.M) ([]models.Reservation, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := repo.coll.Find(ctxWithTimeout, filter)
	if err != nil {
		return nil, fmt.Errorf("error querying reservations: %w", err)
	}
	defer cursor.Close(ctxWithTimeout)

	var out []models.Reservation
	if err := cursor.All(ctxWithTimeout, &out); err != nil {
		return nil, fmt.Errorf("error decoding reservations: %w", err)
	}
	return out, nil
}
