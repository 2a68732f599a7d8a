package normalize

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
)

// FlexString accepts a JSON string or number. Backends disagree on whether
// identifiers are numeric.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// StringList accepts a JSON array of strings or a single comma separated string.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = StringList(strings.Split(s, ","))
		return nil
	}
	var items []string
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*l = StringList(items)
	return nil
}

// PatientWire is the backend's patient payload.
type PatientWire struct {
	PatientUID  string     `json:"patient_uid"`
	ID          FlexString `json:"id"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth string     `json:"date_of_birth"`
	Sex         string     `json:"sex"`
	Gender      string     `json:"gender"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phone_number"`
	Address     string     `json:"address"`
	BloodType   string     `json:"blood_type"`
	Allergies   StringList `json:"allergies"`
}

// MedicationWire is one medication line item as the backend sends it.
type MedicationWire struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions"`
}

// PrescriptionWire is the backend's prescription payload.
type PrescriptionWire struct {
	ID             FlexString       `json:"id"`
	PatientUID     string           `json:"patient_uid"`
	Diagnosis      string           `json:"diagnosis"`
	PrescribedDate string           `json:"prescribed_date"`
	CreatedAt      string           `json:"created_at"`
	Notes          string           `json:"notes"`
	Medications    []MedicationWire `json:"medications"`
}

// MedicineWire is a medicines catalog entry as the backend sends it.
type MedicineWire struct {
	ID           FlexString `json:"id"`
	Name         string     `json:"name"`
	GenericName  string     `json:"generic_name"`
	Manufacturer string     `json:"manufacturer"`
	Form         string     `json:"form"`
	Strength     string     `json:"strength"`
}

// PatientFromWire maps every backend field onto the canonical record.
func PatientFromWire(w PatientWire) clinical.Patient {
	uid := strings.TrimSpace(w.PatientUID)
	if uid == "" {
		uid = strings.TrimSpace(string(w.ID))
	}
	sex := w.Sex
	if sex == "" {
		sex = w.Gender
	}

	allergies := make([]string, 0, len(w.Allergies))
	for _, a := range w.Allergies {
		if a = strings.TrimSpace(a); a != "" {
			allergies = append(allergies, a)
		}
	}

	return clinical.Patient{
		UID:         uid,
		FirstName:   w.FirstName,
		LastName:    w.LastName,
		DateOfBirth: w.DateOfBirth,
		Sex:         sex,
		Email:       w.Email,
		PhoneNumber: w.PhoneNumber,
		Address:     w.Address,
		BloodType:   w.BloodType,
		Allergies:   allergies,
	}
}

// MedicationFromWire maps a medication line item.
func MedicationFromWire(w MedicationWire) clinical.MedicationLine {
	return clinical.MedicationLine{
		Name:         strings.TrimSpace(w.Name),
		Dosage:       w.Dosage,
		Frequency:    w.Frequency,
		Duration:     w.Duration,
		Instructions: w.Instructions,
	}
}

// PrescriptionFromWire maps a prescription and all of its line items.
func PrescriptionFromWire(w PrescriptionWire) clinical.Prescription {
	meds := make([]clinical.MedicationLine, 0, len(w.Medications))
	for _, m := range w.Medications {
		meds = append(meds, MedicationFromWire(m))
	}
	return clinical.Prescription{
		ID:             strings.TrimSpace(string(w.ID)),
		PatientUID:     w.PatientUID,
		Diagnosis:      w.Diagnosis,
		PrescribedDate: w.PrescribedDate,
		CreatedAt:      w.CreatedAt,
		Notes:          w.Notes,
		Medications:    meds,
	}
}

// MedicineFromWire maps a catalog entry.
func MedicineFromWire(w MedicineWire) clinical.Medicine {
	return clinical.Medicine{
		ID:           strings.TrimSpace(string(w.ID)),
		Name:         strings.TrimSpace(w.Name),
		GenericName:  w.GenericName,
		Manufacturer: w.Manufacturer,
		Form:         w.Form,
		Strength:     w.Strength,
	}
}
