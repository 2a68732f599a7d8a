package clinical

import "strings"

// Patient is the canonical patient record. Optional fields are always present
// as empty strings or an empty slice once a record has been normalized.
type Patient struct {
	UID         string   `json:"uid" validate:"required"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	DateOfBirth string   `json:"dateOfBirth"`
	Sex         string   `json:"sex"`
	Email       string   `json:"email"`
	PhoneNumber string   `json:"phoneNumber"`
	Address     string   `json:"address"`
	BloodType   string   `json:"bloodType"`
	Allergies   []string `json:"allergies"`
}

// DisplayName returns "First Last", or "Unknown Patient" when both are blank.
func (p Patient) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if name == "" {
		return "Unknown Patient"
	}
	return name
}

// Prescription is one prescription event for a patient.
type Prescription struct {
	ID             string           `json:"id" validate:"required"`
	PatientUID     string           `json:"patientUid"`
	Diagnosis      string           `json:"diagnosis"`
	PrescribedDate string           `json:"prescribedDate"`
	CreatedAt      string           `json:"createdAt"`
	Notes          string           `json:"notes"`
	Medications    []MedicationLine `json:"medications"`
}

// MedicationLine is a single drug line item within a prescription.
type MedicationLine struct {
	Name         string `json:"name" validate:"required"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
}

// Medicine is an entry of the medicines catalog used by prescription lookups.
type Medicine struct {
	ID           string `json:"id" validate:"required"`
	Name         string `json:"name" validate:"required"`
	GenericName  string `json:"genericName"`
	Manufacturer string `json:"manufacturer"`
	Form         string `json:"form"`
	Strength     string `json:"strength"`
}
