package mindmap

import (
	"fmt"
	"strings"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
)

// Slug derives the condition identity from a diagnosis label: trimmed,
// lower-cased, whitespace runs collapsed to a single hyphen.
func Slug(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "-")
}

// Build derives the patient -> condition -> encounter -> medication hierarchy
// from a prescription history, attaches allergy alerts to the patient and lays
// the result out. Prescriptions are processed in the order given.
//
// A condition's label is the diagnosis text of the first prescription seen
// with it, as written, and its diagnosed date is that prescription's date.
// Later prescriptions never update either, even when they are chronologically
// earlier.
func Build(p clinical.Patient, rxs []clinical.Prescription) *Graph {
	g := Empty()
	g.Patient.UID = p.UID
	g.Patient.Label = p.DisplayName()

	seen := make(map[string]string, len(rxs))
	used := make(map[string]bool, len(rxs))

	for _, rx := range rxs {
		label := rx.Diagnosis
		if strings.TrimSpace(label) == "" {
			label = UnknownCondition
		}
		date := encounterDate(rx)

		slug := Slug(label)
		conditionID, ok := seen[slug]
		if !ok {
			conditionID = "condition-" + slug
			seen[slug] = conditionID
			g.Conditions = append(g.Conditions, ConditionNode{
				ID:            conditionID,
				Label:         label,
				Severity:      SeverityMedium,
				DiagnosedDate: date,
			})
		}

		key := encounterKey(rx.ID, used)
		encounterID := "encounter-" + key
		g.Encounters = append(g.Encounters, EncounterNode{
			ID:             encounterID,
			ConditionID:    conditionID,
			PrescriptionID: rx.ID,
			Label:          date,
			Date:           date,
		})

		for i, med := range rx.Medications {
			g.Medications = append(g.Medications, MedicationNode{
				ID:             fmt.Sprintf("medication-%s-%d", key, i),
				EncounterID:    encounterID,
				Label:          med.Name,
				Dosage:         med.Dosage,
				Active:         true,
				PrescribedDate: date,
			})
		}
	}

	for i, allergy := range p.Allergies {
		g.Alerts = append(g.Alerts, AlertNode{
			ID:       fmt.Sprintf("alert-%d", i),
			Type:     AlertTypeAllergy,
			Label:    allergy + " Allergy",
			Severity: SeverityHigh,
		})
	}

	g.Edges = Link(g)
	Layout(g)
	return g
}

// encounterKey returns the id suffix for a prescription's encounter. A
// repeated prescription id gets the first free "-<n>" suffix so that node ids
// stay unique and children never attach to the wrong parent.
func encounterKey(id string, used map[string]bool) string {
	key := id
	for n := 1; used[key]; n++ {
		key = fmt.Sprintf("%s-%d", id, n)
	}
	used[key] = true
	return key
}

func encounterDate(rx clinical.Prescription) string {
	if d := strings.TrimSpace(rx.PrescribedDate); d != "" {
		return d
	}
	if d := strings.TrimSpace(rx.CreatedAt); d != "" {
		return d
	}
	return UnknownDate
}

// Link derives the edge set from the parent references on the nodes.
func Link(g *Graph) []Edge {
	t := treeOf(g)
	edges := make([]Edge, 0, len(g.Conditions)+len(g.Encounters)+len(g.Medications)+len(g.Alerts))

	for _, c := range t {
		condition := g.Conditions[c.index]
		edges = append(edges, newEdge(g.Patient.ID, condition.ID, EdgePatientCondition))
		for _, e := range c.encounters {
			encounter := g.Encounters[e.index]
			edges = append(edges, newEdge(condition.ID, encounter.ID, EdgeConditionEncounter))
			for _, m := range e.medications {
				edges = append(edges, newEdge(encounter.ID, g.Medications[m].ID, EdgeEncounterMedication))
			}
		}
	}
	for _, a := range g.Alerts {
		edges = append(edges, newEdge(a.ID, g.Patient.ID, EdgeAlertPatient))
	}
	return edges
}

func newEdge(source, target string, kind EdgeKind) Edge {
	return Edge{
		ID:     "e-" + source + "-" + target,
		Source: source,
		Target: target,
		Kind:   kind,
	}
}

type conditionBranch struct {
	index      int
	encounters []encounterBranch
}

type encounterBranch struct {
	index       int
	medications []int
}

// treeOf groups node indexes under their parents, preserving node order.
// Nodes pointing at a missing parent are left out.
func treeOf(g *Graph) []conditionBranch {
	branches := make([]conditionBranch, len(g.Conditions))
	byCondition := make(map[string]int, len(g.Conditions))
	for i, c := range g.Conditions {
		branches[i].index = i
		byCondition[c.ID] = i
	}

	type slot struct{ condition, encounter int }
	byEncounter := make(map[string]slot, len(g.Encounters))
	for i, e := range g.Encounters {
		ci, ok := byCondition[e.ConditionID]
		if !ok {
			continue
		}
		byEncounter[e.ID] = slot{condition: ci, encounter: len(branches[ci].encounters)}
		branches[ci].encounters = append(branches[ci].encounters, encounterBranch{index: i})
	}

	for i, m := range g.Medications {
		s, ok := byEncounter[m.EncounterID]
		if !ok {
			continue
		}
		e := &branches[s.condition].encounters[s.encounter]
		e.medications = append(e.medications, i)
	}
	return branches
}
