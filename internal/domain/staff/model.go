// Package staff manages the members of a clinic's staff. The staff panel is
// backed by the Service, which persists through a Repository.
package staff

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ehr/clinicconsole/internal/platform/auth"
	"github.com/ehr/clinicconsole/internal/platform/hooks"
)

// Validation messages of the staff form.
const (
	ErrNameRequired  hooks.Invalid = "Name is required"
	ErrRoleRequired  hooks.Invalid = "Role is required"
	ErrInvalidRole   hooks.Invalid = "Please select a valid role"
	ErrInvalidEmail  hooks.Invalid = "Please enter a valid email address"
	ErrInvalidStatus hooks.Invalid = "Please select a valid status"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusOnLeave  = "on_leave"
)

var validStatuses = []string{StatusActive, StatusInactive, StatusOnLeave}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Member struct {
	ID         string    `json:"id"`
	ClinicID   string    `json:"clinic_id"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Department string    `json:"department,omitempty"`
	Status     string    `json:"status"`
	JoinedAt   time.Time `json:"joined_at"`
}

func (m Member) EntityID() string { return m.ID }

// Form is the modal copy of a staff member.
type Form struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	Status     string `json:"status"`
}

func NewForm() *Form {
	return &Form{Status: StatusActive}
}

func (f *Form) SetField(key, value string) error {
	switch key {
	case "name":
		f.Name = value
	case "role":
		f.Role = value
	case "email":
		f.Email = value
	case "phone":
		f.Phone = value
	case "department":
		f.Department = value
	case "status":
		f.Status = value
	default:
		return fmt.Errorf("staff: unknown field %q", key)
	}
	return nil
}

func (f *Form) Validate() error {
	switch {
	case strings.TrimSpace(f.Name) == "":
		return ErrNameRequired
	case f.Role == "":
		return ErrRoleRequired
	case !slices.Contains(auth.StaffRoles, f.Role):
		return ErrInvalidRole
	case !emailPattern.MatchString(f.Email):
		return ErrInvalidEmail
	case f.Status != "" && !slices.Contains(validStatuses, f.Status):
		return ErrInvalidStatus
	}
	return nil
}

// Build creates a member without clinic or join date; the service fills them.
func (f *Form) Build(id string) Member {
	return f.Merge(Member{ID: id})
}

func (f *Form) Merge(m Member) Member {
	m.Name = strings.TrimSpace(f.Name)
	m.Role = f.Role
	m.Email = strings.ToLower(strings.TrimSpace(f.Email))
	m.Phone = strings.TrimSpace(f.Phone)
	m.Department = f.Department
	m.Status = f.Status
	if m.Status == "" {
		m.Status = StatusActive
	}
	return m
}

func (f *Form) Clone() *Form {
	c := *f
	return &c
}

func fromMember(m Member) *Form {
	return &Form{Name: m.Name, Role: m.Role, Email: m.Email, Phone: m.Phone, Department: m.Department, Status: m.Status}
}

// HeadcountByRole counts members per role.
func HeadcountByRole(members []Member) map[string]int {
	out := make(map[string]int)
	for _, m := range members {
		out[m.Role]++
	}
	return out
}
