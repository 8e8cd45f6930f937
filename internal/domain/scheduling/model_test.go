package scheduling

import (
	"testing"
	"time"
)

func TestStatusBadge(t *testing.T) {
	tests := []struct {
		status string
		want   Badge
	}{
		{StatusScheduled, Badge{"Scheduled", "info"}},
		{StatusCheckedIn, Badge{"Checked In", "warning"}},
		{StatusCompleted, Badge{"Completed", "success"}},
		{StatusNoShow, Badge{"No Show", "error"}},
		{"rescheduled_by_phone", Badge{"rescheduled by phone", "neutral"}},
		{"", Badge{"Unknown", "neutral"}},
	}
	for _, tt := range tests {
		if got := StatusBadge(tt.status); got != tt.want {
			t.Errorf("StatusBadge(%q) = %+v, want %+v", tt.status, got, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusScheduled, StatusConfirmed, true},
		{StatusConfirmed, StatusCheckedIn, true},
		{StatusCheckedIn, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		{StatusCompleted, StatusCompleted, true},
		{StatusCheckedIn, StatusCancelled, false},
		{StatusCompleted, StatusScheduled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusScheduled, StatusInProgress, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAppointment_Overlaps(t *testing.T) {
	nine := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	a := Appointment{ID: "a", ProviderName: "Dr. Chen", StartTime: nine, DurationMinutes: 30, Status: StatusScheduled}

	tests := []struct {
		name string
		b    Appointment
		want bool
	}{
		{"same slot", Appointment{ID: "b", ProviderName: "dr. chen", StartTime: nine.Add(15 * time.Minute), DurationMinutes: 30, Status: StatusConfirmed}, true},
		{"back to back", Appointment{ID: "b", ProviderName: "Dr. Chen", StartTime: nine.Add(30 * time.Minute), DurationMinutes: 30, Status: StatusScheduled}, false},
		{"other provider", Appointment{ID: "b", ProviderName: "Dr. Lee", StartTime: nine, DurationMinutes: 30, Status: StatusScheduled}, false},
		{"cancelled", Appointment{ID: "b", ProviderName: "Dr. Chen", StartTime: nine, DurationMinutes: 30, Status: StatusCancelled}, false},
		{"itself", a, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.b); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestForm_ValidateAndBuild(t *testing.T) {
	f := NewForm()
	if err := f.Validate(); err == nil || err.Error() != "Patient name is required" {
		t.Fatalf("expected patient error, got %v", err)
	}
	_ = f.SetField("patient_name", "Maria Garcia")
	_ = f.SetField("provider_name", "Dr. Chen")
	_ = f.SetField("service_name", "Consultation")
	_ = f.SetField("start_time", "tomorrow")
	if err := f.Validate(); err == nil || err.Error() != "Please enter a valid start time" {
		t.Fatalf("expected start time error, got %v", err)
	}
	_ = f.SetField("start_time", "2026-10-16T09:30")
	_ = f.SetField("duration_minutes", "0")
	if err := f.Validate(); err == nil || err.Error() != "Duration must be a positive number of minutes" {
		t.Fatalf("expected duration error, got %v", err)
	}
	_ = f.SetField("duration_minutes", "45")
	if err := f.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a := f.Build("appt-1")
	if a.Status != StatusScheduled || a.DurationMinutes != 45 {
		t.Errorf("unexpected appointment: %+v", a)
	}
	if !a.StartTime.Equal(time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected start: %v", a.StartTime)
	}

	back := fromAppointment(a)
	if back.StartTime != "2026-10-16T09:30:00Z" || back.DurationMinutes != "45" {
		t.Errorf("unexpected form round trip: %+v", back)
	}
}
