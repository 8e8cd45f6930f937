package clinic

import (
	"time"
)

// Registration statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}

type Accreditation struct {
	Body       string     `json:"body,omitempty"`
	Number     string     `json:"number,omitempty"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
}

type ContactPerson struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Record maps to the clinic_registration table.
type Record struct {
	ID                 string        `db:"id" json:"id"`
	Name               string        `db:"name" json:"name"`
	Type               string        `db:"type" json:"type"`
	Description        string        `db:"description" json:"description,omitempty"`
	Email              string        `db:"email" json:"email"`
	Phone              string        `db:"phone" json:"phone"`
	Website            string        `db:"website" json:"website,omitempty"`
	Address            Address       `json:"address"`
	Services           []string      `db:"services" json:"services"`
	Specialties        []string      `db:"specialties" json:"specialties"`
	Languages          []string      `db:"languages" json:"languages"`
	Facilities         []string      `db:"facilities" json:"facilities"`
	PaymentMethods     []string      `db:"payment_methods" json:"payment_methods"`
	InsuranceProviders []string      `db:"insurance_providers" json:"insurance_providers"`
	EstablishedYear    *int          `db:"established_year" json:"established_year,omitempty"`
	DoctorCount        *int          `db:"doctor_count" json:"doctor_count,omitempty"`
	BedCount           *int          `db:"bed_count" json:"bed_count,omitempty"`
	Accreditation      Accreditation `json:"accreditation"`
	LicenseNumber      string        `db:"license_number" json:"license_number"`
	LicenseExpiry      *time.Time    `db:"license_expiry" json:"license_expiry,omitempty"`
	ContactPerson      ContactPerson `json:"contact_person"`
	EmergencyServices  bool          `db:"emergency_services" json:"emergency_services"`
	Status             string        `db:"status" json:"status"`
	SubmittedBy        string        `db:"submitted_by" json:"submitted_by"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
}
