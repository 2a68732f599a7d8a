package patient

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/normalize"
)

// Repository reads patient records from a tenant schema. Rows come back in
// the backend's wire shape so they normalize exactly like API payloads.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRepository(db *sql.DB, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{db: db, logger: logger.Named("patient.repository")}
}

func (r *Repository) GetPatient(ctx context.Context, schemaName string, id string) (*normalize.PatientWire, error) {
	query := fmt.Sprintf(`
		SELECT id, first_name, last_name, to_char(date_of_birth, 'YYYY-MM-DD'), gender, email, phone_number, address, blood_type, allergies
		FROM %s.patients
		WHERE id = $1 AND deleted_at IS NULL
	`, pq.QuoteIdentifier(schemaName))

	var patient normalize.PatientWire
	var firstName, lastName, dob, gender sql.NullString
	var email, phoneNumber, address, bloodType sql.NullString
	var allergies []string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&patient.PatientUID,
		&firstName,
		&lastName,
		&dob,
		&gender,
		&email,
		&phoneNumber,
		&address,
		&bloodType,
		pq.Array(&allergies),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("patient %s: %w", id, clinical.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}

	patient.FirstName = firstName.String
	patient.LastName = lastName.String
	patient.DateOfBirth = dob.String
	patient.Gender = gender.String
	patient.Email = email.String
	patient.PhoneNumber = phoneNumber.String
	patient.Address = address.String
	patient.BloodType = bloodType.String
	patient.Allergies = allergies

	return &patient, nil
}

// ListPrescriptions returns a patient's prescriptions oldest first. A row
// whose medications column cannot be decoded keeps its header and loses its
// line items.
func (r *Repository) ListPrescriptions(ctx context.Context, schemaName string, patientID string) ([]normalize.PrescriptionWire, error) {
	query := fmt.Sprintf(`
		SELECT id, patient_id, diagnosis, to_char(prescribed_date, 'YYYY-MM-DD'), created_at, notes, medications
		FROM %s.prescriptions
		WHERE patient_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`, pq.QuoteIdentifier(schemaName))

	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prescriptions: %w", err)
	}
	defer rows.Close()

	prescriptions := []normalize.PrescriptionWire{}
	for rows.Next() {
		var rx normalize.PrescriptionWire
		var id string
		var diagnosis, prescribedDate, notes sql.NullString
		var createdAt sql.NullTime
		var medications []byte

		err := rows.Scan(
			&id,
			&rx.PatientUID,
			&diagnosis,
			&prescribedDate,
			&createdAt,
			&notes,
			&medications,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prescription: %w", err)
		}

		rx.ID = normalize.FlexString(id)
		rx.Diagnosis = diagnosis.String
		rx.PrescribedDate = prescribedDate.String
		rx.Notes = notes.String
		if createdAt.Valid {
			rx.CreatedAt = createdAt.Time.Format("2006-01-02")
		}
		if len(medications) > 0 {
			if err := json.Unmarshal(medications, &rx.Medications); err != nil {
				r.logger.Warn("undecodable medications column",
					zap.String("prescription_id", id),
					zap.Error(err),
				)
				rx.Medications = nil
			}
		}

		prescriptions = append(prescriptions, rx)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prescriptions: %w", err)
	}

	return prescriptions, nil
}

// ListMedicines returns one page of the tenant's medicines catalog and the
// total number of matches.
func (r *Repository) ListMedicines(ctx context.Context, schemaName string, limit, offset int, search string) ([]normalize.MedicineWire, int, error) {
	where := "WHERE deleted_at IS NULL"
	args := []interface{}{}
	if search != "" {
		where += " AND (name ILIKE $1 OR generic_name ILIKE $1)"
		args = append(args, "%"+search+"%")
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s.medicines %s`, pq.QuoteIdentifier(schemaName), where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count medicines: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, name, generic_name, manufacturer, form, strength
		FROM %s.medicines
		%s
		ORDER BY name ASC
		LIMIT $%d OFFSET $%d
	`, pq.QuoteIdentifier(schemaName), where, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query medicines: %w", err)
	}
	defer rows.Close()

	medicines := []normalize.MedicineWire{}
	for rows.Next() {
		var m normalize.MedicineWire
		var id string
		var genericName, manufacturer, form, strength sql.NullString
		if err := rows.Scan(&id, &m.Name, &genericName, &manufacturer, &form, &strength); err != nil {
			return nil, 0, fmt.Errorf("failed to scan medicine: %w", err)
		}
		m.ID = normalize.FlexString(id)
		m.GenericName = genericName.String
		m.Manufacturer = manufacturer.String
		m.Form = form.String
		m.Strength = strength.String
		medicines = append(medicines, m)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating medicines: %w", err)
	}

	return medicines, total, nil
}
