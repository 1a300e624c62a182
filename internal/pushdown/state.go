package pushdown

import (
	"fmt"

	"github.com/roach88/pushdown/internal/sqlgen"
)

// State is the pushdown state of one operator.
type State uint8

const (
	NotVisited State = iota
	Translating
	// FullyPushed: the operator and everything below it run in the store.
	FullyPushed
	// PartiallyPushed: the operator runs on the host over at least one
	// pushed relation.
	PartiallyPushed
	// NotPushed: the operator and everything below it run on the host.
	NotPushed
)

var stateNames = map[State]string{
	NotVisited:      "not_visited",
	Translating:     "translating",
	FullyPushed:     "fully_pushed",
	PartiallyPushed: "partially_pushed",
	NotPushed:       "not_pushed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// IsFinal reports whether s is one of the three outcomes.
func (s State) IsFinal() bool {
	return s == FullyPushed || s == PartiallyPushed || s == NotPushed
}

// MarshalText renders the state name, so decisions serialize readably.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Decision records what happened to one operator.
type Decision struct {
	// ID is the operator's pre-order position in the input plan.
	ID int `json:"id"`

	// Path is the operator's child-index path from the root ("0.1.0").
	Path string `json:"path"`

	// Operator is the operator's one-line description.
	Operator string `json:"operator"`

	State State `json:"state"`

	// Reason explains why the operator was not pushed, or why it runs on
	// the host above a pushed input. Empty for pushed operators.
	Reason string `json:"reason,omitempty"`

	// Kind classifies Reason when the operator itself was untranslatable.
	Kind sqlgen.UnsupportedKind `json:"kind,omitempty"`

	// Relation is the ID of the relation that covers a FullyPushed
	// operator.
	Relation string `json:"relation,omitempty"`
}

// tracker enforces the per-operator state machine.
type tracker struct {
	states []State
	paths  []string
}

func newTracker(size int) *tracker {
	return &tracker{states: make([]State, size), paths: make([]string, size)}
}

func (t *tracker) begin(id int, path string) error {
	t.paths[id] = path
	return t.move(id, NotVisited, Translating)
}

func (t *tracker) finish(id int, to State) error {
	if !to.IsFinal() {
		return internalError(t.paths[id], fmt.Errorf("%s is not a final state", to))
	}
	return t.move(id, Translating, to)
}

func (t *tracker) move(id int, from, to State) error {
	if id < 0 || id >= len(t.states) {
		return internalError("", fmt.Errorf("operator %d out of range", id))
	}
	if t.states[id] != from {
		return internalError(t.paths[id], fmt.Errorf("operator %d: transition %s → %s from %s", id, from, to, t.states[id]))
	}
	t.states[id] = to
	return nil
}

func (t *tracker) state(id int) State {
	return t.states[id]
}
