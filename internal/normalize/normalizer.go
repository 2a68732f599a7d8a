package normalize

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
)

// Resource field names used by the backend envelopes.
const (
	FieldPatient       = "patient"
	FieldPatients      = "patients"
	FieldPrescriptions = "prescriptions"
	FieldMedicines     = "medicines"
)

// Recorder receives a notification for every record or payload that had to be dropped.
type Recorder interface {
	RecordNormalizerSkip(ctx context.Context, resource, reason string)
}

// Normalizer turns backend payloads into canonical records. Bad records are
// skipped one at a time; nothing here fails a whole listing.
type Normalizer struct {
	logger   *zap.Logger
	validate *validator.Validate
	recorder Recorder
}

// New creates a Normalizer. recorder may be nil.
func New(logger *zap.Logger, recorder Recorder) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		logger:   logger.Named("normalize"),
		validate: validator.New(),
		recorder: recorder,
	}
}

// Patients normalizes a patient listing.
func (n *Normalizer) Patients(ctx context.Context, raw []byte) []clinical.Patient {
	items := n.unwrap(ctx, raw, FieldPatients)
	patients := make([]clinical.Patient, 0, len(items))
	for i, item := range items {
		var w PatientWire
		if err := json.Unmarshal(item, &w); err != nil {
			n.skip(ctx, FieldPatients, i, "decode", err)
			continue
		}
		p, err := n.PatientRecord(ctx, w)
		if err != nil {
			n.skip(ctx, FieldPatients, i, "invalid", err)
			continue
		}
		patients = append(patients, p)
	}
	return patients
}

// Patient normalizes a single patient payload.
func (n *Normalizer) Patient(ctx context.Context, raw []byte) (*clinical.Patient, error) {
	rec, shape := UnwrapRecord(raw, FieldPatient)
	if shape == ShapeUnknown {
		n.logger.Warn("unrecognized response envelope", zap.String("resource", FieldPatient))
		n.record(ctx, FieldPatient, "unknown_envelope")
		return nil, ErrNoRecord
	}
	var w PatientWire
	if err := json.Unmarshal(rec, &w); err != nil {
		n.record(ctx, FieldPatient, "decode")
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	p, err := n.PatientRecord(ctx, w)
	if err != nil {
		n.record(ctx, FieldPatient, "invalid")
		return nil, err
	}
	return &p, nil
}

// PatientRecord maps and validates one patient.
func (n *Normalizer) PatientRecord(ctx context.Context, w PatientWire) (clinical.Patient, error) {
	p := PatientFromWire(w)
	if err := n.validate.StructCtx(ctx, p); err != nil {
		return clinical.Patient{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return p, nil
}

// Prescriptions normalizes a prescription listing, keeping the source order.
func (n *Normalizer) Prescriptions(ctx context.Context, raw []byte) []clinical.Prescription {
	items := n.unwrap(ctx, raw, FieldPrescriptions)
	rxs := make([]clinical.Prescription, 0, len(items))
	for i, item := range items {
		var w PrescriptionWire
		if err := json.Unmarshal(item, &w); err != nil {
			n.skip(ctx, FieldPrescriptions, i, "decode", err)
			continue
		}
		rx, err := n.PrescriptionRecord(ctx, w)
		if err != nil {
			n.skip(ctx, FieldPrescriptions, i, "invalid", err)
			continue
		}
		rxs = append(rxs, rx)
	}
	return rxs
}

// PrescriptionRecord maps and validates one prescription. Line items without
// a medication name are dropped; the prescription itself is kept.
func (n *Normalizer) PrescriptionRecord(ctx context.Context, w PrescriptionWire) (clinical.Prescription, error) {
	rx := PrescriptionFromWire(w)
	if err := n.validate.StructCtx(ctx, rx); err != nil {
		return clinical.Prescription{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	meds := make([]clinical.MedicationLine, 0, len(rx.Medications))
	for i, m := range rx.Medications {
		if err := n.validate.StructCtx(ctx, m); err != nil {
			n.logger.Warn("dropping medication line item",
				zap.String("prescription_id", rx.ID),
				zap.Int("index", i),
				zap.Error(err),
			)
			n.record(ctx, "medication", "invalid")
			continue
		}
		meds = append(meds, m)
	}
	rx.Medications = meds
	return rx, nil
}

// PrescriptionRecords maps and validates prescriptions that were already
// decoded, such as database rows. Invalid ones are skipped.
func (n *Normalizer) PrescriptionRecords(ctx context.Context, ws []PrescriptionWire) []clinical.Prescription {
	rxs := make([]clinical.Prescription, 0, len(ws))
	for i, w := range ws {
		rx, err := n.PrescriptionRecord(ctx, w)
		if err != nil {
			n.skip(ctx, FieldPrescriptions, i, "invalid", err)
			continue
		}
		rxs = append(rxs, rx)
	}
	return rxs
}

// MedicineRecord maps and validates one catalog entry.
func (n *Normalizer) MedicineRecord(ctx context.Context, w MedicineWire) (clinical.Medicine, error) {
	m := MedicineFromWire(w)
	if err := n.validate.StructCtx(ctx, m); err != nil {
		return clinical.Medicine{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return m, nil
}

// MedicineRecords maps and validates already decoded catalog entries.
func (n *Normalizer) MedicineRecords(ctx context.Context, ws []MedicineWire) []clinical.Medicine {
	medicines := make([]clinical.Medicine, 0, len(ws))
	for i, w := range ws {
		m, err := n.MedicineRecord(ctx, w)
		if err != nil {
			n.skip(ctx, FieldMedicines, i, "invalid", err)
			continue
		}
		medicines = append(medicines, m)
	}
	return medicines
}

// Medicines normalizes a medicines catalog listing.
func (n *Normalizer) Medicines(ctx context.Context, raw []byte) []clinical.Medicine {
	items := n.unwrap(ctx, raw, FieldMedicines)
	medicines := make([]clinical.Medicine, 0, len(items))
	for i, item := range items {
		var w MedicineWire
		if err := json.Unmarshal(item, &w); err != nil {
			n.skip(ctx, FieldMedicines, i, "decode", err)
			continue
		}
		m, err := n.MedicineRecord(ctx, w)
		if err != nil {
			n.skip(ctx, FieldMedicines, i, "invalid", err)
			continue
		}
		medicines = append(medicines, m)
	}
	return medicines
}

func (n *Normalizer) unwrap(ctx context.Context, raw []byte, field string) []json.RawMessage {
	items, shape := UnwrapList(raw, field)
	if shape == ShapeUnknown {
		n.logger.Warn("unrecognized response envelope, treating as empty",
			zap.String("resource", field),
			zap.Int("bytes", len(raw)),
		)
		n.record(ctx, field, "unknown_envelope")
		return items
	}
	n.logger.Debug("unwrapped response",
		zap.String("resource", field),
		zap.Stringer("shape", shape),
		zap.Int("records", len(items)),
	)
	return items
}

func (n *Normalizer) skip(ctx context.Context, resource string, index int, reason string, err error) {
	n.logger.Warn("skipping malformed record",
		zap.String("resource", resource),
		zap.Int("index", index),
		zap.String("reason", reason),
		zap.Error(err),
	)
	n.record(ctx, resource, reason)
}

func (n *Normalizer) record(ctx context.Context, resource, reason string) {
	if n.recorder != nil {
		n.recorder.RecordNormalizerSkip(ctx, resource, reason)
	}
}
