package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/greygj/Calendrax1.3-sub000/libs/db"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
)

// CatalogRepository is the durable business/service/staff directory.
type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (r *CatalogRepository) Business(ctx context.Context, id string) (model.Business, error) {
	var b model.Business
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, owner_id, approved, created_at
		FROM businesses
		WHERE id = $1
	`, id).Scan(&b.ID, &b.Name, &b.OwnerID, &b.Approved, &b.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return model.Business{}, model.ErrNotFound
		}
		return model.Business{}, err
	}
	return b, nil
}

func (r *CatalogRepository) Service(ctx context.Context, businessID, serviceID string) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, duration_minutes, price_cents, active, created_at
		FROM business_services
		WHERE id = $1 AND business_id = $2
	`, serviceID, businessID).Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMins, &s.PriceCents, &s.Active, &s.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return model.Service{}, model.ErrNotFound
		}
		return model.Service{}, err
	}
	return s, nil
}

func (r *CatalogRepository) Staff(ctx context.Context, businessID, staffID string) (model.Staff, error) {
	var st model.Staff
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, service_ids, created_at
		FROM business_staff
		WHERE id = $1 AND business_id = $2
	`, staffID, businessID).Scan(&st.ID, &st.BusinessID, &st.Name, &st.ServiceIDs, &st.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return model.Staff{}, model.ErrNotFound
		}
		return model.Staff{}, err
	}
	return st, nil
}

func (r *CatalogRepository) ListStaff(ctx context.Context, businessID string) ([]model.Staff, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, service_ids, created_at
		FROM business_staff
		WHERE business_id = $1
		ORDER BY id
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Staff
	for rows.Next() {
		var st model.Staff
		if err := rows.Scan(&st.ID, &st.BusinessID, &st.Name, &st.ServiceIDs, &st.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ListBusinesses returns the approved businesses only; unapproved ones are
// not discoverable.
func (r *CatalogRepository) ListBusinesses(ctx context.Context) ([]model.Business, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, owner_id, approved, created_at
		FROM businesses
		WHERE approved
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		var b model.Business
		if err := rows.Scan(&b.ID, &b.Name, &b.OwnerID, &b.Approved, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *CatalogRepository) PutBusiness(ctx context.Context, b model.Business) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO businesses (id, name, owner_id, approved, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			owner_id = EXCLUDED.owner_id
	`, b.ID, b.Name, b.OwnerID, b.Approved, b.CreatedAt)
	return err
}

func (r *CatalogRepository) SetApproved(ctx context.Context, businessID string, approved bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE businesses SET approved = $2 WHERE id = $1
	`, businessID, approved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *CatalogRepository) PutService(ctx context.Context, s model.Service) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_services (id, business_id, name, duration_minutes, price_cents, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			duration_minutes = EXCLUDED.duration_minutes,
			price_cents = EXCLUDED.price_cents,
			active = EXCLUDED.active
	`, s.ID, s.BusinessID, s.Name, s.DurationMins, s.PriceCents, s.Active, s.CreatedAt)
	return err
}

func (r *CatalogRepository) PutStaff(ctx context.Context, st model.Staff) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_staff (id, business_id, name, service_ids, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			service_ids = EXCLUDED.service_ids
	`, st.ID, st.BusinessID, st.Name, st.ServiceIDs, st.CreatedAt)
	return err
}
