package console

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/clinicconsole/internal/domain/clinic"
	"github.com/ehr/clinicconsole/internal/domain/scheduling"
	"github.com/ehr/clinicconsole/internal/domain/staff"
	"github.com/ehr/clinicconsole/internal/platform/auth"
	"github.com/ehr/clinicconsole/internal/platform/notification"
	"github.com/ehr/clinicconsole/internal/platform/panel"
	"github.com/ehr/clinicconsole/internal/platform/stepform"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testDeps(c *clock) Deps {
	nop := zerolog.Nop()
	return Deps{
		Clinics:      clinic.NewService(clinic.NewMemoryRepo(), nop),
		Staff:        staff.NewService(staff.NewMemoryRepo(), nop),
		Appointments: scheduling.NewService(scheduling.NewMemoryRepo(), nop),
		Center:       notification.NewCenter(nil, nop),
		Logger:       nop,
		Now:          c.Now,
	}
}

func user(id, role string) auth.CurrentUser {
	return auth.CurrentUser{ID: id, Name: id, Role: role, Roles: []string{role}, ClinicID: "clinic-a"}
}

func TestNewSession_PanelsByRole(t *testing.T) {
	deps := testDeps(&clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)})

	tests := []struct {
		role string
		want []string
	}{
		{auth.RoleClinicAdmin, []string{"contacts", "medications", "services", "appointments", "staff"}},
		{auth.RoleManager, []string{"contacts", "medications", "services", "appointments", "staff"}},
		{auth.RoleReceptionist, []string{"contacts", "medications", "services", "appointments"}},
		{auth.RoleDoctor, []string{"contacts", "medications", "services", "appointments"}},
		{auth.RolePatient, []string{"contacts", "medications"}},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			s := NewSession("s-1", user("u-1", tt.role), deps)
			assert.Equal(t, tt.want, s.PanelNames())
			assert.NotNil(t, s.Wizard)
			assert.Equal(t, 1, s.Wizard.CurrentStep())
		})
	}
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	st := NewSessionStore(testDeps(c), time.Hour)

	s := st.Create(user("u-1", auth.RoleDoctor))
	require.NotEmpty(t, s.ID)
	assert.Equal(t, 1, st.Len())

	got, err := st.Get(s.ID, "u-1")
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = st.Get(s.ID, "someone-else")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = st.Get("missing", "u-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionStore_ExpiresIdleSessions(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	st := NewSessionStore(testDeps(c), 30*time.Minute)
	s := st.Create(user("u-1", auth.RoleDoctor))

	c.Advance(20 * time.Minute)
	_, err := st.Get(s.ID, "u-1")
	require.NoError(t, err, "use within the TTL keeps the session alive")

	c.Advance(20 * time.Minute)
	_, err = st.Get(s.ID, "u-1")
	require.NoError(t, err, "idle time is measured from the last use")

	c.Advance(31 * time.Minute)
	_, err = st.Get(s.ID, "u-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, st.Len())
}

func TestSessionStore_Sweep(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	st := NewSessionStore(testDeps(c), 10*time.Minute)
	old := st.Create(user("u-1", auth.RoleDoctor))

	c.Advance(8 * time.Minute)
	fresh := st.Create(user("u-2", auth.RoleNurse))

	c.Advance(5 * time.Minute)
	assert.Equal(t, 1, st.Sweep())
	assert.Equal(t, 1, st.Len())

	_, err := st.Get(old.ID, "u-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = st.Get(fresh.ID, "u-2")
	assert.NoError(t, err)
}

func TestSessionStore_DeleteUnmountsPanels(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	st := NewSessionStore(testDeps(c), time.Hour)
	s := st.Create(user("u-1", auth.RoleClinicAdmin))

	assert.ErrorIs(t, st.Delete(s.ID, "u-2"), ErrSessionNotFound)
	require.NoError(t, st.Delete(s.ID, "u-1"))
	assert.Equal(t, 0, st.Len())

	p, ok := s.Panel("appointments")
	require.True(t, ok)
	assert.ErrorIs(t, p.Refresh(context.Background()), panel.ErrUnmounted)
}

// blockingClinics holds Create until release is closed.
type blockingClinics struct {
	*clinic.MemoryRepo
	entered chan struct{}
	release chan struct{}
}

func (r *blockingClinics) Create(ctx context.Context, rec *clinic.Record) error {
	close(r.entered)
	<-r.release
	return r.MemoryRepo.Create(ctx, rec)
}

var completeRegistration = map[string]string{
	"name":           "Lakeside Family Clinic",
	"type":           "general",
	"email":          "info@lakeside.example",
	"phone":          "555-0100",
	"street":         "12 Shore Rd",
	"city":           "Lakeside",
	"state":          "MN",
	"postal_code":    "55101",
	"services":       "Primary Care",
	"specialties":    "Pediatrics",
	"license_number": "LIC-778",
	"contact_name":   "Mara Quinn",
	"contact_email":  "mara@lakeside.example",
}

func TestSessionStore_DeleteDiscardsInFlightRegistration(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	deps := testDeps(c)
	repo := &blockingClinics{MemoryRepo: clinic.NewMemoryRepo(), entered: make(chan struct{}), release: make(chan struct{})}
	deps.Clinics = clinic.NewService(repo, zerolog.Nop())
	st := NewSessionStore(deps, time.Hour)
	s := st.Create(user("u-1", auth.RoleClinicAdmin))

	for k, v := range completeRegistration {
		require.NoError(t, s.Wizard.SetField(k, v))
	}
	for i := 1; i < s.Wizard.Snapshot().TotalSteps; i++ {
		require.NoError(t, s.Wizard.Advance())
	}

	done := make(chan error, 1)
	go func() { done <- s.Wizard.Submit(context.Background()) }()
	<-repo.entered

	require.NoError(t, st.Delete(s.ID, "u-1"))
	close(repo.release)

	assert.ErrorIs(t, <-done, stepform.ErrUnmounted)
	assert.False(t, s.Wizard.Completed())

	pending, err := deps.Center.Drain(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Empty(t, pending, "no toast may be queued for a closed session")
}

func TestSessionStore_RunStopsWithContext(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	st := NewSessionStore(testDeps(c), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
