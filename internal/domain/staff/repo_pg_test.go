package staff

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var memberColumnNames = []string{"id", "clinic_id", "name", "role", "email", "phone", "department", "status", "joined_at"}

func TestRepoPG_ListByClinic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("FROM staff_member WHERE clinic_id").
		WithArgs("clinic-a").
		WillReturnRows(pgxmock.NewRows(memberColumnNames).
			AddRow("m-1", "clinic-a", "Dr. Sarah Johnson", "doctor", "sarah@clinic-a.example", "", "", StatusActive, joined))

	members, err := NewRepo(mock).ListByClinic(context.Background(), "clinic-a")
	if err != nil {
		t.Fatalf("ListByClinic: %v", err)
	}
	if len(members) != 1 || members[0].Role != "doctor" || !members[0].JoinedAt.Equal(joined) {
		t.Errorf("unexpected members: %+v", members)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRepoPG_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	m := seedMembers()[0]
	mock.ExpectExec("INSERT INTO staff_member").
		WithArgs(m.ID, m.ClinicID, m.Name, m.Role, m.Email, m.Phone, m.Department, m.Status, m.JoinedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := NewRepo(mock).Create(context.Background(), &m); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRepoPG_UpdateAndDeleteNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	m := seedMembers()[0]
	mock.ExpectExec("UPDATE staff_member").
		WithArgs(m.ClinicID, m.ID, m.Name, m.Role, m.Email, m.Phone, m.Department, m.Status).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec("DELETE FROM staff_member").
		WithArgs("clinic-a", "m-404").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewRepo(mock)
	if err := repo.Update(context.Background(), &m); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
	if err := repo.Delete(context.Background(), "clinic-a", "m-404"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestRepoPG_GetByEmailNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("lower\\(email\\) = lower").
		WithArgs("clinic-a", "nobody@x.example").
		WillReturnRows(pgxmock.NewRows(memberColumnNames))

	if _, err := NewRepo(mock).GetByEmail(context.Background(), "clinic-a", "nobody@x.example"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
