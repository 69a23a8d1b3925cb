// Package statechart provides a hierarchical state machine (statechart) execution engine.
//
// # Overview
//
// A statechart is declared once as a graph of regions, states, pseudo-states and
// transitions rooted at a StateMachine, compiled into an immutable Model, and then
// used to drive any number of independent instances. Each instance keeps its own
// active configuration in an Instance store keyed by region qualified names.
//
// # Features
//
//   - **Hierarchy**: states own regions; one region makes a composite state, several make it orthogonal.
//   - **Pseudo-states**: initial, shallow and deep history, choice and junction.
//   - **Transition kinds**: external, local and internal, with guards, else branches and effects.
//   - **Completion**: states that become complete fire their completion transitions before Evaluate returns.
//
// # Usage
//
//	machine := statechart.NewStateMachine("door")
//	initial := machine.PseudoState("initial", statechart.InitialKind)
//	closed := machine.State("closed")
//	opened := machine.State("opened")
//	initial.To(closed)
//	closed.To(opened).When(func(ctx context.Context, msg any, _ statechart.Instance) bool {
//	    return msg == "open"
//	})
//
//	model, err := machine.Compile()
//	store := statechart.NewStore()
//	err = model.Initialise(ctx, store)
//	fired, err := model.Evaluate(ctx, "open", store)
package statechart

import (
	"errors"
	"path"

	"github.com/stateforward/statechart.go/kind"
)

// Kind constants tag every element using bit-packed inheritance so that
// kind.Is can answer "is this a vertex" or "is this initial-like" with a mask.
var (
	// NullKind is the zero kind.
	NullKind = kind.Make()
	// ElementKind is the base of every element in the graph.
	ElementKind = kind.Make()
	// NamespaceKind marks elements that own named children.
	NamespaceKind = kind.Make(ElementKind)
	// VertexKind marks elements that can be the source or target of a transition.
	VertexKind = kind.Make(ElementKind)
	// StateMachineKind is the root of a graph.
	StateMachineKind = kind.Make(NamespaceKind)
	// RegionKind is a container of mutually exclusive vertices.
	RegionKind = kind.Make(NamespaceKind)
	// StateKind is a vertex that may own regions and carries entry and exit behaviors.
	StateKind = kind.Make(VertexKind, NamespaceKind)
	// PseudoStateKind is the base of transient vertices that are never current.
	PseudoStateKind = kind.Make(VertexKind)
	// InitialKind is the default entry point of a region.
	InitialKind = kind.Make(PseudoStateKind)
	// HistoryKind is the base of the two history pseudo-states.
	HistoryKind = kind.Make(PseudoStateKind)
	// ShallowHistoryKind restores the most recent direct child of its region.
	ShallowHistoryKind = kind.Make(HistoryKind)
	// DeepHistoryKind restores the most recent configuration of its region recursively.
	DeepHistoryKind = kind.Make(HistoryKind)
	// ChoiceKind picks randomly among its enabled outgoing transitions.
	ChoiceKind = kind.Make(PseudoStateKind)
	// JunctionKind takes its first enabled outgoing transition.
	JunctionKind = kind.Make(PseudoStateKind)
	// TransitionKind is the base of the three transition kinds.
	TransitionKind = kind.Make(ElementKind)
	// ExternalKind exits the source side of the least common ancestor.
	ExternalKind = kind.Make(TransitionKind)
	// LocalKind does not exit the containing state when source and target are nested.
	LocalKind = kind.Make(TransitionKind)
	// InternalKind runs effects only.
	InternalKind = kind.Make(TransitionKind)
)

// Sentinel errors. Compile failures wrap one of these with the offending
// element's qualified name, so callers check them with errors.Is.
var (
	// ErrMultipleInitial is returned when a region owns more than one initial-like pseudo-state.
	ErrMultipleInitial = errors.New("multiple initial pseudo-states in region")
	// ErrMissingInitial is returned when a region owns no initial-like pseudo-state.
	ErrMissingInitial = errors.New("missing initial pseudo-state in region")
	// ErrDuplicateName is returned when two siblings share a name.
	ErrDuplicateName = errors.New("duplicate name")
	// ErrEmptyName is returned for an element created without a name.
	ErrEmptyName = errors.New("empty name")
	// ErrInvalidName is returned for names containing a path separator or starting with a dot.
	ErrInvalidName = errors.New("invalid name")
	// ErrForeignVertex is returned when a transition joins vertices of different state machines.
	ErrForeignVertex = errors.New("transition target belongs to another state machine")
	// ErrMisplacedElse is returned for an else branch leaving anything but a choice or junction.
	ErrMisplacedElse = errors.New("else transition outside choice or junction")
	// ErrNoOutgoing is returned for an initial-like, choice or junction pseudo-state without outgoing transitions.
	ErrNoOutgoing = errors.New("pseudo-state has no outgoing transition")
	// ErrDeadEnd is returned when a decision pseudo-state has no enabled path.
	ErrDeadEnd = errors.New("no enabled path out of pseudo-state")
	// ErrNotInitialised is returned by Evaluate for an instance that was never initialised.
	ErrNotInitialised = errors.New("instance not initialised")
	// ErrCompletionCascade is returned when completion transitions keep firing past Config.CompletionLimit.
	ErrCompletionCascade = errors.New("completion cascade did not settle")
)

// Element is implemented by every node of a state machine graph.
type Element interface {
	Kind() uint64
	Name() string
	QualifiedName() string
	Owner() Element
	Ancestors() []Element
	Root() *StateMachine
}

type element struct {
	kind          uint64
	name          string
	qualifiedName string
	owner         Element
	root          *StateMachine
}

func (element *element) Kind() uint64 {
	return element.kind
}

func (element *element) Name() string {
	return element.name
}

func (element *element) QualifiedName() string {
	return element.qualifiedName
}

func (element *element) Owner() Element {
	return element.owner
}

func (element *element) Root() *StateMachine {
	return element.root
}

func makeElement(owner Element, root *StateMachine, kind uint64, name string) element {
	return element{
		kind:          kind,
		name:          name,
		qualifiedName: path.Join(owner.QualifiedName(), name),
		owner:         owner,
		root:          root,
	}
}

// ancestors returns the chain from the root down to self.
func ancestors(self Element) []Element {
	var chain []Element
	for current := self; current != nil; current = current.Owner() {
		chain = append(chain, current)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// HistoryKey returns the store key under which the last active state of region
// is kept once the region has been exited.
func HistoryKey(region string) string {
	return region + HistorySuffix
}

// HistorySuffix is appended to a region qualified name to form its history key.
const HistorySuffix = "/.history"

func isInitialLike(k uint64) bool {
	return kind.Is(k, InitialKind, HistoryKind)
}
