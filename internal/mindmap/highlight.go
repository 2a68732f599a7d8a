package mindmap

// Style is a rendering hint for a node or edge. It never carries geometry.
type Style struct {
	Highlighted bool    `json:"highlighted"`
	Animated    bool    `json:"animated"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`
}

var (
	defaultEdgeStyle     = Style{StrokeWidth: 1, Opacity: 0.6}
	highlightedEdgeStyle = Style{Highlighted: true, Animated: true, StrokeWidth: 3, Opacity: 1}
	defaultNodeStyle     = Style{StrokeWidth: 1, Opacity: 1}
	dimmedNodeStyle      = Style{StrokeWidth: 1, Opacity: 0.4}
	highlightedNodeStyle = Style{Highlighted: true, StrokeWidth: 2, Opacity: 1}
)

// View is the styling of a graph for one highlight state.
type View struct {
	Highlighted string           `json:"highlighted,omitempty"`
	Nodes       map[string]Style `json:"nodes"`
	Edges       map[string]Style `json:"edges"`
}

// Render styles g for the given highlighted node id. Only condition and alert
// ids start a highlight; any other id renders like no highlight at all.
// The graph is not modified.
func Render(g *Graph, highlighted string) View {
	path := highlightPath(g, highlighted)
	if len(path) == 0 {
		highlighted = ""
	}

	v := View{
		Highlighted: highlighted,
		Nodes:       make(map[string]Style, g.NodeCount()),
		Edges:       make(map[string]Style, len(g.Edges)),
	}

	for _, id := range nodeIDs(g) {
		switch {
		case len(path) == 0:
			v.Nodes[id] = defaultNodeStyle
		case path[id]:
			v.Nodes[id] = highlightedNodeStyle
		default:
			v.Nodes[id] = dimmedNodeStyle
		}
	}

	for _, e := range g.Edges {
		if path[e.Source] && path[e.Target] {
			v.Edges[e.ID] = highlightedEdgeStyle
		} else {
			v.Edges[e.ID] = defaultEdgeStyle
		}
	}
	return v
}

// highlightPath returns the nodes lit by highlighting id: the patient plus the
// condition and everything below it, or the patient plus the alert.
func highlightPath(g *Graph, id string) map[string]bool {
	if id == "" {
		return nil
	}

	for _, a := range g.Alerts {
		if a.ID == id {
			return map[string]bool{g.Patient.ID: true, a.ID: true}
		}
	}

	for _, c := range treeOf(g) {
		condition := g.Conditions[c.index]
		if condition.ID != id {
			continue
		}
		path := map[string]bool{g.Patient.ID: true, condition.ID: true}
		for _, e := range c.encounters {
			path[g.Encounters[e.index].ID] = true
			for _, m := range e.medications {
				path[g.Medications[m].ID] = true
			}
		}
		return path
	}
	return nil
}

func nodeIDs(g *Graph) []string {
	ids := make([]string, 0, g.NodeCount())
	ids = append(ids, g.Patient.ID)
	for _, c := range g.Conditions {
		ids = append(ids, c.ID)
	}
	for _, e := range g.Encounters {
		ids = append(ids, e.ID)
	}
	for _, m := range g.Medications {
		ids = append(ids, m.ID)
	}
	for _, a := range g.Alerts {
		ids = append(ids, a.ID)
	}
	return ids
}
