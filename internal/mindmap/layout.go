package mindmap

// Layout constants. The patient sits at the anchor, alerts in a column to its
// left, then conditions, encounters and medications in columns to its right.
const (
	RowHeight   = 80.0
	ColumnWidth = 280.0

	PatientX = 0.0
	PatientY = 0.0

	AlertX      = PatientX - ColumnWidth
	ConditionX  = PatientX + ColumnWidth
	EncounterX  = PatientX + 2*ColumnWidth
	MedicationX = PatientX + 3*ColumnWidth
)

// Layout assigns coordinates to every node of g. It only reads node order and
// parent references, so the same structure always yields the same positions.
//
// A vertical cursor walks the hierarchy top to bottom. Each encounter reserves
// one row per medication (one row when it has none) and is centered on that
// span; each condition is centered on the span of its encounters.
func Layout(g *Graph) {
	g.Patient.Position = Position{X: PatientX, Y: PatientY}

	for i := range g.Alerts {
		g.Alerts[i].Position = Position{X: AlertX, Y: PatientY + float64(i)*RowHeight}
	}

	cursor := PatientY
	for _, c := range treeOf(g) {
		conditionStart := cursor
		for _, e := range c.encounters {
			encounterStart := cursor
			for row, m := range e.medications {
				g.Medications[m].Position = Position{X: MedicationX, Y: encounterStart + float64(row)*RowHeight}
			}
			rows := len(e.medications)
			if rows == 0 {
				rows = 1
			}
			cursor += float64(rows) * RowHeight
			g.Encounters[e.index].Position = Position{X: EncounterX, Y: center(encounterStart, cursor)}
		}
		if len(c.encounters) == 0 {
			cursor += RowHeight
		}
		g.Conditions[c.index].Position = Position{X: ConditionX, Y: center(conditionStart, cursor)}
	}
}

// center returns the y of a row-high node centered on [start, end).
func center(start, end float64) float64 {
	return start + (end-start-RowHeight)/2
}
