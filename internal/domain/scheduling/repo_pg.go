package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ehr/clinicconsole/internal/platform/db"
)

type repoPG struct {
	db db.Querier
}

func NewRepo(q db.Querier) Repository {
	return &repoPG{db: q}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.db)
}

const apptColumns = `id, clinic_id, patient_name, provider_name, service_name, start_time, duration_minutes,
	status, checked_in_at, started_at, completed_at, notes`

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (`+apptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.ClinicID, a.PatientName, a.ProviderName, a.ServiceName, a.StartTime, a.DurationMinutes,
		a.Status, a.CheckedInAt, a.StartedAt, a.CompletedAt, a.Notes)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET patient_name = $3, provider_name = $4, service_name = $5,
			start_time = $6, duration_minutes = $7, status = $8,
			checked_in_at = $9, started_at = $10, completed_at = $11, notes = $12
		WHERE clinic_id = $1 AND id = $2`,
		a.ClinicID, a.ID, a.PatientName, a.ProviderName, a.ServiceName,
		a.StartTime, a.DurationMinutes, a.Status,
		a.CheckedInAt, a.StartedAt, a.CompletedAt, a.Notes)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, clinicID, id string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE clinic_id = $1 AND id = $2`, clinicID, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, clinicID, id string) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptColumns+` FROM appointment WHERE clinic_id = $1 AND id = $2`, clinicID, id))
}

func (r *repoPG) ListByClinic(ctx context.Context, clinicID string) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+apptColumns+` FROM appointment WHERE clinic_id = $1 ORDER BY start_time`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ClinicID, &a.PatientName, &a.ProviderName, &a.ServiceName, &a.StartTime, &a.DurationMinutes,
		&a.Status, &a.CheckedInAt, &a.StartedAt, &a.CompletedAt, &a.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
