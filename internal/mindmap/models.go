package mindmap

// Sentinel labels used when the source data is incomplete.
const (
	UnknownCondition = "Unknown Condition"
	UnknownDate      = "Unknown Date"
	UnknownPatient   = "Unknown Patient"
)

// Severity classifications carried on nodes.
const (
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// AlertTypeAllergy is the only alert type derived today.
const AlertTypeAllergy = "allergy"

// PatientNodeID is the identity of the central node.
const PatientNodeID = "patient"

// Position is a 2-D layout coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PatientNode struct {
	ID       string   `json:"id"`
	UID      string   `json:"uid"`
	Label    string   `json:"label"`
	Position Position `json:"position"`
}

type ConditionNode struct {
	ID            string   `json:"id"`
	Label         string   `json:"label"`
	Severity      string   `json:"severity"`
	DiagnosedDate string   `json:"diagnosedDate"`
	Position      Position `json:"position"`
}

type EncounterNode struct {
	ID             string   `json:"id"`
	ConditionID    string   `json:"conditionId"`
	PrescriptionID string   `json:"prescriptionId"`
	Label          string   `json:"label"`
	Date           string   `json:"date"`
	Position       Position `json:"position"`
}

type MedicationNode struct {
	ID             string   `json:"id"`
	EncounterID    string   `json:"encounterId"`
	Label          string   `json:"label"`
	Dosage         string   `json:"dosage"`
	Active         bool     `json:"active"`
	PrescribedDate string   `json:"prescribedDate"`
	Position       Position `json:"position"`
}

type AlertNode struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Label    string   `json:"label"`
	Severity string   `json:"severity"`
	Position Position `json:"position"`
}

// EdgeKind names which two levels of the hierarchy an edge connects.
type EdgeKind string

const (
	EdgePatientCondition    EdgeKind = "patient-condition"
	EdgeConditionEncounter  EdgeKind = "condition-encounter"
	EdgeEncounterMedication EdgeKind = "encounter-medication"
	EdgeAlertPatient        EdgeKind = "alert-patient"
)

type Edge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"kind"`
}

// Graph is the transient render input for one patient. It is rebuilt in
// full on every fetch and never persisted.
type Graph struct {
	Patient     PatientNode      `json:"patient"`
	Conditions  []ConditionNode  `json:"conditions"`
	Encounters  []EncounterNode  `json:"encounters"`
	Medications []MedicationNode `json:"medications"`
	Alerts      []AlertNode      `json:"alerts"`
	Edges       []Edge           `json:"edges"`
}

// NodeCount returns the number of nodes including the patient node.
func (g *Graph) NodeCount() int {
	return 1 + len(g.Conditions) + len(g.Encounters) + len(g.Medications) + len(g.Alerts)
}

// Empty returns the minimal well-formed graph: just the central patient node.
func Empty() *Graph {
	return &Graph{
		Patient: PatientNode{
			ID:       PatientNodeID,
			Label:    UnknownPatient,
			Position: Position{X: PatientX, Y: PatientY},
		},
		Conditions:  []ConditionNode{},
		Encounters:  []EncounterNode{},
		Medications: []MedicationNode{},
		Alerts:      []AlertNode{},
		Edges:       []Edge{},
	}
}
