package mindmap

import (
	"context"
	"sync"
)

// State is the lifecycle of a session's view.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateEmpty   State = "empty"
)

// Generator produces a mind map for a patient. *Service implements it.
type Generator interface {
	Generate(ctx context.Context, patientID string) (*Graph, Outcome)
}

// Snapshot is a consistent copy of a viewer's state. PatientID always names
// the patient Graph belongs to; a load still in flight is reported as
// Pending.
type Snapshot struct {
	State       State  `json:"state"`
	PatientID   string `json:"patientId,omitempty"`
	Pending     string `json:"pendingPatientId,omitempty"`
	Graph       *Graph `json:"graph,omitempty"`
	Highlighted string `json:"highlighted,omitempty"`
}

// Viewer holds what one session is looking at: the current graph and the
// highlighted node id, which is kept apart from the graph. When loads
// overlap, the most recently started one wins and older results are dropped.
type Viewer struct {
	gen Generator

	mu          sync.Mutex
	generation  uint64
	state       State
	patientID   string
	pending     string
	graph       *Graph
	highlighted string
}

// NewViewer creates an idle viewer.
func NewViewer(gen Generator) *Viewer {
	return &Viewer{gen: gen, state: StateIdle}
}

// Load builds the mind map for patientID and makes it current, unless a newer
// Load started meanwhile, in which case ErrSuperseded is returned.
func (v *Viewer) Load(ctx context.Context, patientID string) (*Graph, error) {
	v.mu.Lock()
	v.generation++
	mine := v.generation
	v.state = StateLoading
	v.pending = patientID
	v.mu.Unlock()

	g, _ := v.gen.Generate(ctx, patientID)

	v.mu.Lock()
	defer v.mu.Unlock()
	if mine != v.generation {
		return nil, ErrSuperseded
	}
	v.patientID = patientID
	v.pending = ""
	v.graph = g
	v.highlighted = ""
	v.state = stateOf(g)
	return g, nil
}

func stateOf(g *Graph) State {
	if g.NodeCount() == 1 {
		return StateEmpty
	}
	return StateReady
}

// Highlight marks a condition or alert of the current graph.
func (v *Viewer) Highlight(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.graph == nil {
		return ErrNothingLoaded
	}
	if highlightPath(v.graph, id) == nil {
		return ErrUnknownNode
	}
	v.highlighted = id
	return nil
}

// HighlightOn marks id on g, provided g is still the current graph. It
// returns ErrSuperseded when another load has replaced g.
func (v *Viewer) HighlightOn(g *Graph, id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.graph != g {
		return ErrSuperseded
	}
	if highlightPath(g, id) == nil {
		return ErrUnknownNode
	}
	v.highlighted = id
	return nil
}

// ClearHighlight resets the highlight, as clicking the empty canvas does.
func (v *Viewer) ClearHighlight() {
	v.mu.Lock()
	v.highlighted = ""
	v.mu.Unlock()
}

// Snapshot returns the current state.
func (v *Viewer) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Snapshot{
		State:       v.state,
		PatientID:   v.patientID,
		Pending:     v.pending,
		Graph:       v.graph,
		Highlighted: v.highlighted,
	}
}

// Sessions keeps one Viewer per session key.
type Sessions struct {
	gen Generator

	mu      sync.Mutex
	viewers map[string]*Viewer
}

func NewSessions(gen Generator) *Sessions {
	return &Sessions{gen: gen, viewers: make(map[string]*Viewer)}
}

// Get returns the viewer for key, creating it on first use.
func (s *Sessions) Get(key string) *Viewer {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.viewers[key]
	if !ok {
		v = NewViewer(s.gen)
		s.viewers[key] = v
	}
	return v
}

// Forget drops the viewer for key.
func (s *Sessions) Forget(key string) {
	s.mu.Lock()
	delete(s.viewers, key)
	s.mu.Unlock()
}
