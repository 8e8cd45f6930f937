// Package dashboard builds the role-specific home screens of the console
// from the day's appointments and the clinic's staff.
package dashboard

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ehr/clinicconsole/internal/domain/scheduling"
	"github.com/ehr/clinicconsole/internal/domain/staff"
	"github.com/ehr/clinicconsole/internal/platform/auth"
)

// ErrNoDashboard is returned for roles without a dashboard.
var ErrNoDashboard = errors.New("dashboard: no dashboard for role")

// Dashboard is the response for one user. Exactly the sections for the
// user's role are set.
type Dashboard struct {
	Role         string                      `json:"role"`
	Date         string                      `json:"date"`
	GeneratedAt  time.Time                   `json:"generated_at"`
	Doctor       *DoctorView                 `json:"doctor,omitempty"`
	Nurse        *NurseView                  `json:"nurse,omitempty"`
	Receptionist *ReceptionView              `json:"receptionist,omitempty"`
	Manager      *ManagerView                `json:"manager,omitempty"`
	Staff        *StaffSummary               `json:"staff,omitempty"`
	Badges       map[string]scheduling.Badge `json:"badges"`
}

// WaitStats summarises check-in to start times in minutes.
type WaitStats struct {
	Count   int     `json:"count"`
	Average float64 `json:"average_minutes"`
	Min     float64 `json:"min_minutes"`
	Max     float64 `json:"max_minutes"`
}

type DoctorView struct {
	Appointments   []scheduling.Appointment `json:"appointments"`
	Next           *scheduling.Appointment  `json:"next,omitempty"`
	CompletionRate float64                  `json:"completion_rate"`
}

// QueueEntry is a checked-in patient waiting to be seen.
type QueueEntry struct {
	Appointment   scheduling.Appointment `json:"appointment"`
	WaitedMinutes float64                `json:"waited_minutes"`
}

type NurseView struct {
	Queue []QueueEntry `json:"queue"`
	Wait  WaitStats    `json:"wait"`
}

type ReceptionView struct {
	Arrivals  []scheduling.Appointment `json:"arrivals"`
	CheckedIn int                      `json:"checked_in"`
	Upcoming  int                      `json:"upcoming"`
}

type ManagerView struct {
	Total            int            `json:"total"`
	CompletionRate   float64        `json:"completion_rate"`
	CancellationRate float64        `json:"cancellation_rate"`
	NoShowRate       float64        `json:"no_show_rate"`
	ProviderLoad     map[string]int `json:"provider_load"`
	Wait             WaitStats      `json:"wait"`
}

type StaffSummary struct {
	Headcount int            `json:"headcount"`
	Active    int            `json:"active"`
	ByRole    map[string]int `json:"by_role"`
}

// Build returns the dashboard for user from the clinic's appointments and
// staff as of now. Only appointments starting on now's UTC date are counted.
func Build(user auth.CurrentUser, appts []scheduling.Appointment, members []staff.Member, now time.Time) (Dashboard, error) {
	today := scheduling.OnDay(appts, now)
	d := Dashboard{
		Role:        user.Role,
		Date:        now.UTC().Format(time.DateOnly),
		GeneratedAt: now.UTC(),
		Badges:      badgesFor(today),
	}

	switch user.Role {
	case auth.RoleDoctor:
		d.Doctor = doctorView(user, today, now)
	case auth.RoleNurse:
		d.Nurse = nurseView(today, now)
	case auth.RoleReceptionist:
		d.Receptionist = receptionView(today, now)
	case auth.RoleManager:
		d.Manager = managerView(today)
	case auth.RoleClinicAdmin, auth.RoleAdmin:
		d.Manager = managerView(today)
		d.Staff = staffSummary(members)
	default:
		return Dashboard{}, ErrNoDashboard
	}
	return d, nil
}

func badgesFor(appts []scheduling.Appointment) map[string]scheduling.Badge {
	out := make(map[string]scheduling.Badge)
	for _, a := range appts {
		out[a.Status] = scheduling.StatusBadge(a.Status)
	}
	return out
}

func doctorView(user auth.CurrentUser, today []scheduling.Appointment, now time.Time) *DoctorView {
	v := &DoctorView{Appointments: []scheduling.Appointment{}}
	for _, a := range today {
		if strings.EqualFold(a.ProviderName, user.Name) {
			v.Appointments = append(v.Appointments, a)
		}
	}
	sortByStart(v.Appointments)
	for i, a := range v.Appointments {
		if isUpcoming(a, now) {
			v.Next = &v.Appointments[i]
			break
		}
	}
	v.CompletionRate = CompletionRate(v.Appointments)
	return v
}

func nurseView(today []scheduling.Appointment, now time.Time) *NurseView {
	v := &NurseView{Queue: []QueueEntry{}, Wait: Waits(today)}
	for _, a := range today {
		if a.Status == scheduling.StatusCheckedIn && a.CheckedInAt != nil && a.StartedAt == nil {
			v.Queue = append(v.Queue, QueueEntry{Appointment: a, WaitedMinutes: round1(now.Sub(*a.CheckedInAt).Minutes())})
		}
	}
	sort.SliceStable(v.Queue, func(i, j int) bool {
		return v.Queue[i].Appointment.CheckedInAt.Before(*v.Queue[j].Appointment.CheckedInAt)
	})
	return v
}

func receptionView(today []scheduling.Appointment, now time.Time) *ReceptionView {
	v := &ReceptionView{Arrivals: []scheduling.Appointment{}}
	for _, a := range today {
		switch {
		case a.Status == scheduling.StatusCheckedIn:
			v.CheckedIn++
		case isUpcoming(a, now):
			v.Upcoming++
		}
		if a.Status != scheduling.StatusCancelled {
			v.Arrivals = append(v.Arrivals, a)
		}
	}
	sortByStart(v.Arrivals)
	return v
}

func managerView(today []scheduling.Appointment) *ManagerView {
	v := &ManagerView{
		Total:          len(today),
		CompletionRate: CompletionRate(today),
		ProviderLoad:   make(map[string]int),
		Wait:           Waits(today),
	}
	var cancelled, noShow int
	for _, a := range today {
		switch a.Status {
		case scheduling.StatusCancelled:
			cancelled++
		case scheduling.StatusNoShow:
			noShow++
		}
		if a.Status != scheduling.StatusCancelled {
			v.ProviderLoad[a.ProviderName]++
		}
	}
	v.CancellationRate = ratio(cancelled, len(today))
	v.NoShowRate = ratio(noShow, len(today))
	return v
}

func staffSummary(members []staff.Member) *StaffSummary {
	s := &StaffSummary{Headcount: len(members), ByRole: staff.HeadcountByRole(members)}
	for _, m := range members {
		if m.Status == staff.StatusActive {
			s.Active++
		}
	}
	return s
}

// CompletionRate is completed / (total - cancelled), 0 when nothing is left.
func CompletionRate(appts []scheduling.Appointment) float64 {
	var completed, cancelled int
	for _, a := range appts {
		switch a.Status {
		case scheduling.StatusCompleted:
			completed++
		case scheduling.StatusCancelled:
			cancelled++
		}
	}
	return ratio(completed, len(appts)-cancelled)
}

// Waits computes WaitStats over appointments with both a check-in and a
// start time.
func Waits(appts []scheduling.Appointment) WaitStats {
	var s WaitStats
	var sum float64
	for _, a := range appts {
		if a.CheckedInAt == nil || a.StartedAt == nil {
			continue
		}
		w := a.StartedAt.Sub(*a.CheckedInAt).Minutes()
		if w < 0 {
			continue
		}
		if s.Count == 0 || w < s.Min {
			s.Min = w
		}
		if w > s.Max {
			s.Max = w
		}
		sum += w
		s.Count++
	}
	if s.Count > 0 {
		s.Average = round1(sum / float64(s.Count))
	}
	s.Min, s.Max = round1(s.Min), round1(s.Max)
	return s
}

func isUpcoming(a scheduling.Appointment, now time.Time) bool {
	return (a.Status == scheduling.StatusScheduled || a.Status == scheduling.StatusConfirmed) && !a.StartTime.Before(now)
}

func sortByStart(appts []scheduling.Appointment) {
	sort.SliceStable(appts, func(i, j int) bool { return appts[i].StartTime.Before(appts[j].StartTime) })
}

func ratio(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return math.Round(float64(n)/float64(d)*1000) / 1000
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
