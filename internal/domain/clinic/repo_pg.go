package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
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

const recordColumns = `id, name, type, description, email, phone, website,
	street, city, state, postal_code, country,
	services, specialties, languages, facilities, payment_methods, insurance_providers,
	established_year, doctor_count, bed_count,
	accreditation_body, accreditation_number, accreditation_expiry,
	license_number, license_expiry,
	contact_name, contact_title, contact_email, contact_phone,
	emergency_services, status, submitted_by, created_at`

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	rec.ID = uuid.New().String()
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinic_registration (`+recordColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18,
			$19, $20, $21,
			$22, $23, $24,
			$25, $26,
			$27, $28, $29, $30,
			$31, $32, $33, $34
		)`,
		rec.ID, rec.Name, rec.Type, rec.Description, rec.Email, rec.Phone, rec.Website,
		rec.Address.Street, rec.Address.City, rec.Address.State, rec.Address.PostalCode, rec.Address.Country,
		rec.Services, rec.Specialties, rec.Languages, rec.Facilities, rec.PaymentMethods, rec.InsuranceProviders,
		rec.EstablishedYear, rec.DoctorCount, rec.BedCount,
		rec.Accreditation.Body, rec.Accreditation.Number, rec.Accreditation.ExpiryDate,
		rec.LicenseNumber, rec.LicenseExpiry,
		rec.ContactPerson.Name, rec.ContactPerson.Title, rec.ContactPerson.Email, rec.ContactPerson.Phone,
		rec.EmergencyServices, rec.Status, rec.SubmittedBy, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert clinic registration: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id string) (*Record, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recordColumns+` FROM clinic_registration WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Record, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordColumns+` FROM clinic_registration WHERE lower(email) = $1`, strings.ToLower(email)))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM clinic_registration`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recordColumns+` FROM clinic_registration ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (r *repoPG) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE clinic_registration SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var c Record
	err := row.Scan(
		&c.ID, &c.Name, &c.Type, &c.Description, &c.Email, &c.Phone, &c.Website,
		&c.Address.Street, &c.Address.City, &c.Address.State, &c.Address.PostalCode, &c.Address.Country,
		&c.Services, &c.Specialties, &c.Languages, &c.Facilities, &c.PaymentMethods, &c.InsuranceProviders,
		&c.EstablishedYear, &c.DoctorCount, &c.BedCount,
		&c.Accreditation.Body, &c.Accreditation.Number, &c.Accreditation.ExpiryDate,
		&c.LicenseNumber, &c.LicenseExpiry,
		&c.ContactPerson.Name, &c.ContactPerson.Title, &c.ContactPerson.Email, &c.ContactPerson.Phone,
		&c.EmergencyServices, &c.Status, &c.SubmittedBy, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
