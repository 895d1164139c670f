package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/greygj/Calendrax1.3-sub000/libs/db"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/model"
	"github.com/greygj/Calendrax1.3-sub000/services/scheduling-service/internal/outbox"
)

// BookingRepository is the durable ledger. The claim-key invariant lives in
// the appointments_claim_key partial unique index; a losing insert surfaces
// as a unique violation and is translated to ErrSlotConflict here, at the
// repository edge. Each mutation writes its lifecycle event to the outbox in
// the same transaction, so a committed appointment change always has an event
// row for the publisher to relay.
type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: outboxRepo}
}

const uniqueViolation = "23505"

const appointmentColumns = `
	id::text, business_id::text, service_id::text, staff_id, provider_id,
	customer_id, customer_name, day, slot_minutes, status, payment_ref, created_at`

func (r *BookingRepository) Claim(ctx context.Context, appt model.Appointment, evt model.LifecycleEvent) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments
			(id, business_id, service_id, staff_id, provider_id, customer_id, customer_name, day, slot_minutes, status, payment_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, appt.ID, appt.BusinessID, appt.ServiceID, appt.StaffID, appt.ProviderID,
		appt.CustomerID, appt.CustomerName, appt.Date.Time(), int(appt.Slot),
		string(appt.Status), appt.PaymentRef, appt.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return model.Appointment{}, model.ErrSlotConflict
		}
		return model.Appointment{}, fmt.Errorf("insert appointment: %w", err)
	}

	if err := r.recordEvent(ctx, tx, evt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *BookingRepository) recordEvent(ctx context.Context, tx pgx.Tx, evt model.LifecycleEvent) error {
	oevt, err := outbox.EventFrom(evt)
	if err != nil {
		return fmt.Errorf("encode lifecycle event: %w", err)
	}
	if err := r.outbox.Insert(ctx, tx, oevt); err != nil {
		return fmt.Errorf("record lifecycle event: %w", err)
	}
	return nil
}

func (r *BookingRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *BookingRepository) Transition(ctx context.Context, id string, from []model.Status, to model.Status, evt model.LifecycleEvent) (model.Appointment, error) {
	fromStr := make([]string, len(from))
	for i, s := range from {
		fromStr[i] = string(s)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3
		WHERE id = $1 AND status = ANY($2)
		RETURNING `+appointmentColumns+`
	`, id, fromStr, string(to))
	appt, err := scanAppointment(row)
	if err == nil {
		if err := r.recordEvent(ctx, tx, evt); err != nil {
			return model.Appointment{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return model.Appointment{}, err
		}
		return appt, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Appointment{}, err
	}

	// No row matched: either the appointment is unknown or the CAS lost.
	var exists bool
	if qerr := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists); qerr != nil {
		return model.Appointment{}, fmt.Errorf("check appointment: %w", qerr)
	}
	if !exists {
		return model.Appointment{}, model.ErrNotFound
	}
	return model.Appointment{}, model.ErrInvalidTransition
}

func (r *BookingRepository) HeldSlots(ctx context.Context, businessID, providerID string, date model.Date) ([]model.TimeOfDay, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT slot_minutes
		FROM appointments
		WHERE business_id = $1
			AND provider_id = $2
			AND day = $3
			AND status IN ('pending', 'confirmed')
		ORDER BY slot_minutes
	`, businessID, providerID, date.Time())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var held []model.TimeOfDay
	for rows.Next() {
		var mins int
		if err := rows.Scan(&mins); err != nil {
			return nil, err
		}
		held = append(held, model.TimeOfDay(mins))
	}
	return held, rows.Err()
}

func (r *BookingRepository) ListByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1
		ORDER BY day DESC, slot_minutes DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE customer_id = $1
		ORDER BY day DESC, slot_minutes DESC
		LIMIT $2
	`, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (model.Appointment, error) {
	var appt model.Appointment
	var day time.Time
	var mins int
	var status string
	err := row.Scan(
		&appt.ID,
		&appt.BusinessID,
		&appt.ServiceID,
		&appt.StaffID,
		&appt.ProviderID,
		&appt.CustomerID,
		&appt.CustomerName,
		&day,
		&mins,
		&status,
		&appt.PaymentRef,
		&appt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, model.ErrNotFound
		}
		return model.Appointment{}, err
	}
	appt.Date = model.DateOf(day)
	appt.Slot = model.TimeOfDay(mins)
	appt.Status = model.Status(status)
	return appt, nil
}

func scanAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var out []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}
