package scheduling

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var apptColumnNames = []string{
	"id", "clinic_id", "patient_name", "provider_name", "service_name", "start_time", "duration_minutes",
	"status", "checked_in_at", "started_at", "completed_at", "notes",
}

func TestRepoPG_ListByClinic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	checkedIn := at(9, 50)
	mock.ExpectQuery("FROM appointment WHERE clinic_id = \\$1 ORDER BY start_time").
		WithArgs("clinic-a").
		WillReturnRows(pgxmock.NewRows(apptColumnNames).
			AddRow("a-1", "clinic-a", "Maria Garcia", "Dr. Chen", "Consultation", at(9, 0), 30, StatusScheduled, nil, nil, nil, "").
			AddRow("a-2", "clinic-a", "Ken Ito", "Dr. Chen", "Follow-up", at(10, 0), 20, StatusCheckedIn, &checkedIn, nil, nil, "late"))

	appts, err := NewRepo(mock).ListByClinic(context.Background(), "clinic-a")
	if err != nil {
		t.Fatalf("ListByClinic: %v", err)
	}
	if len(appts) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(appts))
	}
	if appts[0].CheckedInAt != nil {
		t.Error("expected nil check-in for first appointment")
	}
	if appts[1].CheckedInAt == nil || !appts[1].CheckedInAt.Equal(checkedIn) || appts[1].Notes != "late" {
		t.Errorf("unexpected second appointment: %+v", appts[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRepoPG_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	a := seedAppointments()[0]
	mock.ExpectExec("UPDATE appointment SET").
		WithArgs(a.ClinicID, a.ID, a.PatientName, a.ProviderName, a.ServiceName,
			a.StartTime, a.DurationMinutes, a.Status, a.CheckedInAt, a.StartedAt, a.CompletedAt, a.Notes).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE appointment SET").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewRepo(mock)
	if err := repo.Update(context.Background(), &a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := repo.Update(context.Background(), &a); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRepoPG_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("FROM appointment WHERE clinic_id = \\$1 AND id = \\$2").
		WithArgs("clinic-a", "missing").
		WillReturnRows(pgxmock.NewRows(apptColumnNames))

	if _, err := NewRepo(mock).GetByID(context.Background(), "clinic-a", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
