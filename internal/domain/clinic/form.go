package clinic

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ehr/clinicconsole/internal/platform/hooks"
)

// Validation messages of the registration steps.
const (
	ErrNameRequired        hooks.Invalid = "Clinic name is required"
	ErrTypeRequired        hooks.Invalid = "Clinic type is required"
	ErrInvalidEmail        hooks.Invalid = "Please enter a valid email address"
	ErrPhoneRequired       hooks.Invalid = "Phone number is required"
	ErrStreetRequired      hooks.Invalid = "Street address is required"
	ErrCityRequired        hooks.Invalid = "City is required"
	ErrStateRequired       hooks.Invalid = "State is required"
	ErrPostalCodeRequired  hooks.Invalid = "Postal code is required"
	ErrServicesRequired    hooks.Invalid = "Please select at least one service"
	ErrSpecialtiesRequired hooks.Invalid = "Please select at least one specialty"
	ErrLicenseRequired     hooks.Invalid = "License number is required"
	ErrContactNameRequired hooks.Invalid = "Contact person name is required"
	ErrInvalidContactEmail hooks.Invalid = "Please enter a valid contact email"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// StepTitles names the registration steps in order.
var StepTitles = []string{
	"Basic Information",
	"Location",
	"Services & Specialties",
	"Compliance & Contact",
}

// RegistrationForm is the editable state of the clinic registration wizard.
// Numeric and date inputs stay as entered until ToRecord converts them.
type RegistrationForm struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`

	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`

	Services           []string `json:"services"`
	Specialties        []string `json:"specialties"`
	Languages          []string `json:"languages"`
	Facilities         []string `json:"facilities"`
	PaymentMethods     []string `json:"payment_methods"`
	InsuranceProviders string   `json:"insurance_providers"`

	EstablishedYear string `json:"established_year"`
	DoctorCount     string `json:"doctor_count"`
	BedCount        string `json:"bed_count"`

	AccreditationBody   string `json:"accreditation_body"`
	AccreditationNumber string `json:"accreditation_number"`
	AccreditationExpiry string `json:"accreditation_expiry"`
	LicenseNumber       string `json:"license_number"`
	LicenseExpiry       string `json:"license_expiry"`

	ContactName  string `json:"contact_name"`
	ContactTitle string `json:"contact_title"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`

	EmergencyServices bool `json:"emergency_services"`
}

// ErrUnknownField is returned for keys the form does not have.
var ErrUnknownField = errors.New("unknown field")

// NewRegistrationForm returns a blank form.
func NewRegistrationForm() *RegistrationForm {
	return &RegistrationForm{
		Services:       []string{},
		Specialties:    []string{},
		Languages:      []string{},
		Facilities:     []string{},
		PaymentMethods: []string{},
	}
}

func (f *RegistrationForm) textField(key string) *string {
	switch key {
	case "name":
		return &f.Name
	case "type":
		return &f.Type
	case "description":
		return &f.Description
	case "email":
		return &f.Email
	case "phone":
		return &f.Phone
	case "website":
		return &f.Website
	case "street":
		return &f.Street
	case "city":
		return &f.City
	case "state":
		return &f.State
	case "postal_code":
		return &f.PostalCode
	case "country":
		return &f.Country
	case "insurance_providers":
		return &f.InsuranceProviders
	case "established_year":
		return &f.EstablishedYear
	case "doctor_count":
		return &f.DoctorCount
	case "bed_count":
		return &f.BedCount
	case "accreditation_body":
		return &f.AccreditationBody
	case "accreditation_number":
		return &f.AccreditationNumber
	case "accreditation_expiry":
		return &f.AccreditationExpiry
	case "license_number":
		return &f.LicenseNumber
	case "license_expiry":
		return &f.LicenseExpiry
	case "contact_name":
		return &f.ContactName
	case "contact_title":
		return &f.ContactTitle
	case "contact_email":
		return &f.ContactEmail
	case "contact_phone":
		return &f.ContactPhone
	}
	return nil
}

func (f *RegistrationForm) listField(key string) *[]string {
	switch key {
	case "services":
		return &f.Services
	case "specialties":
		return &f.Specialties
	case "languages":
		return &f.Languages
	case "facilities":
		return &f.Facilities
	case "payment_methods":
		return &f.PaymentMethods
	}
	return nil
}

// SetField stores value under key. List fields take a comma-separated value.
func (f *RegistrationForm) SetField(key, value string) error {
	if p := f.textField(key); p != nil {
		*p = value
		return nil
	}
	if p := f.listField(key); p != nil {
		*p = splitList(value)
		return nil
	}
	if key == "emergency_services" {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("emergency_services: %w", err)
		}
		f.EmergencyServices = b
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownField, key)
}

// ToggleMultiSelect removes value from the list field when present, otherwise
// appends it.
func (f *RegistrationForm) ToggleMultiSelect(key, value string) error {
	p := f.listField(key)
	if p == nil {
		return fmt.Errorf("%w: %q is not a multi-select field", ErrUnknownField, key)
	}
	if i := slices.Index(*p, value); i >= 0 {
		*p = slices.Delete(slices.Clone(*p), i, i+1)
		return nil
	}
	*p = append(slices.Clone(*p), value)
	return nil
}

func (f *RegistrationForm) StepCount() int { return len(StepTitles) }

// ValidateStep returns the first failing rule of step.
func (f *RegistrationForm) ValidateStep(step int) error {
	switch step {
	case 1:
		switch {
		case blank(f.Name):
			return ErrNameRequired
		case blank(f.Type):
			return ErrTypeRequired
		case !emailPattern.MatchString(strings.TrimSpace(f.Email)):
			return ErrInvalidEmail
		case blank(f.Phone):
			return ErrPhoneRequired
		}
	case 2:
		switch {
		case blank(f.Street):
			return ErrStreetRequired
		case blank(f.City):
			return ErrCityRequired
		case blank(f.State):
			return ErrStateRequired
		case blank(f.PostalCode):
			return ErrPostalCodeRequired
		}
	case 3:
		switch {
		case len(f.Services) == 0:
			return ErrServicesRequired
		case len(f.Specialties) == 0:
			return ErrSpecialtiesRequired
		}
	case 4:
		switch {
		case blank(f.LicenseNumber):
			return ErrLicenseRequired
		case blank(f.ContactName):
			return ErrContactNameRequired
		case !emailPattern.MatchString(strings.TrimSpace(f.ContactEmail)):
			return ErrInvalidContactEmail
		}
	default:
		return fmt.Errorf("step %d does not exist", step)
	}
	return nil
}

func (f *RegistrationForm) Clone() *RegistrationForm {
	c := *f
	c.Services = slices.Clone(f.Services)
	c.Specialties = slices.Clone(f.Specialties)
	c.Languages = slices.Clone(f.Languages)
	c.Facilities = slices.Clone(f.Facilities)
	c.PaymentMethods = slices.Clone(f.PaymentMethods)
	return &c
}

// ToRecord converts the form into the record handed to the registration
// service. Optional numbers and dates that do not parse become nil.
func (f *RegistrationForm) ToRecord(submittedBy string, now time.Time) *Record {
	return &Record{
		Name:        strings.TrimSpace(f.Name),
		Type:        f.Type,
		Description: f.Description,
		Email:       strings.TrimSpace(f.Email),
		Phone:       f.Phone,
		Website:     f.Website,
		Address: Address{
			Street:     f.Street,
			City:       f.City,
			State:      f.State,
			PostalCode: f.PostalCode,
			Country:    f.Country,
		},
		Services:           nonNil(f.Services),
		Specialties:        nonNil(f.Specialties),
		Languages:          nonNil(f.Languages),
		Facilities:         nonNil(f.Facilities),
		PaymentMethods:     nonNil(f.PaymentMethods),
		InsuranceProviders: splitList(f.InsuranceProviders),
		EstablishedYear:    parseOptionalInt(f.EstablishedYear),
		DoctorCount:        parseOptionalInt(f.DoctorCount),
		BedCount:           parseOptionalInt(f.BedCount),
		Accreditation: Accreditation{
			Body:       f.AccreditationBody,
			Number:     f.AccreditationNumber,
			ExpiryDate: parseOptionalDate(f.AccreditationExpiry),
		},
		LicenseNumber: f.LicenseNumber,
		LicenseExpiry: parseOptionalDate(f.LicenseExpiry),
		ContactPerson: ContactPerson{
			Name:  f.ContactName,
			Title: f.ContactTitle,
			Email: strings.TrimSpace(f.ContactEmail),
			Phone: f.ContactPhone,
		},
		EmergencyServices: f.EmergencyServices,
		Status:            StatusPending,
		SubmittedBy:       submittedBy,
		CreatedAt:         now.UTC(),
	}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

// splitList splits a comma-separated input, dropping empty entries.
func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseOptionalInt(s string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &n
}

// parseOptionalDate accepts a date input (2006-01-02) or RFC 3339.
func parseOptionalDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
