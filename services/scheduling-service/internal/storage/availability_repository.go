package storage

import (
	"context"

	"github.com/greygj/Calendrax1.3-sub000/libs/db"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

// AvailabilityRepository stores declared-open sets, one row per
// (business, provider, day). Set upserts the whole row, so last write wins.
type AvailabilityRepository struct {
	pool *db.Pool
}

func NewAvailabilityRepository(pool *db.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

func (r *AvailabilityRepository) Set(ctx context.Context, businessID, providerID string, date model.Date, slots []model.TimeOfDay) error {
	mins := make([]int, len(slots))
	for i, s := range slots {
		mins[i] = int(s)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO declared_availability (business_id, provider_id, day, slot_minutes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (business_id, provider_id, day) DO UPDATE
		SET slot_minutes = EXCLUDED.slot_minutes,
			updated_at = now()
	`, businessID, providerID, date.Time(), mins)
	return err
}

func (r *AvailabilityRepository) Get(ctx context.Context, businessID, providerID string, date model.Date) ([]model.TimeOfDay, error) {
	var mins []int
	err := r.pool.QueryRow(ctx, `
		SELECT slot_minutes
		FROM declared_availability
		WHERE business_id = $1 AND provider_id = $2 AND day = $3
	`, businessID, providerID, date.Time()).Scan(&mins)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]model.TimeOfDay, len(mins))
	for i, m := range mins {
		out[i] = model.TimeOfDay(m)
	}
	return out, nil
}
