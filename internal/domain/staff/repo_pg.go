package staff

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

const memberColumns = `id, clinic_id, name, role, email, phone, department, status, joined_at`

func (r *repoPG) Create(ctx context.Context, m *Member) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO staff_member (`+memberColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.ClinicID, m.Name, m.Role, m.Email, m.Phone, m.Department, m.Status, m.JoinedAt)
	if err != nil {
		return fmt.Errorf("insert staff member: %w", err)
	}
	return nil
}

func (r *repoPG) Update(ctx context.Context, m *Member) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE staff_member SET name = $3, role = $4, email = $5, phone = $6, department = $7, status = $8
		WHERE clinic_id = $1 AND id = $2`,
		m.ClinicID, m.ID, m.Name, m.Role, m.Email, m.Phone, m.Department, m.Status)
	if err != nil {
		return fmt.Errorf("update staff member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, clinicID, id string) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM staff_member WHERE clinic_id = $1 AND id = $2`, clinicID, id)
	if err != nil {
		return fmt.Errorf("delete staff member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) GetByEmail(ctx context.Context, clinicID, email string) (*Member, error) {
	return scanMember(r.conn(ctx).QueryRow(ctx,
		`SELECT `+memberColumns+` FROM staff_member WHERE clinic_id = $1 AND lower(email) = lower($2)`, clinicID, email))
}

func (r *repoPG) ListByClinic(ctx context.Context, clinicID string) ([]*Member, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+memberColumns+` FROM staff_member WHERE clinic_id = $1 ORDER BY joined_at, name`, clinicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.ClinicID, &m.Name, &m.Role, &m.Email, &m.Phone, &m.Department, &m.Status, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
