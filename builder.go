package statechart

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/stateforward/statechart.go/kind"
)

// Guard decides whether a transition is enabled for a message.
type Guard func(ctx context.Context, message any, instance Instance) bool

// Behavior is an entry, exit or effect callback. A returned error stops the
// traversal and is handed back to the caller of Evaluate or Initialise as is.
type Behavior func(ctx context.Context, message any, instance Instance) error

// DefaultRegion is the name of the region created implicitly when a vertex is
// added directly to a state or state machine.
const DefaultRegion = "default"

// Vertex is a *State or a *PseudoState.
type Vertex interface {
	Element
	Outgoing() []*Transition
	Incoming() []*Transition
	Container() *Region
	base() *vertex
}

type vertex struct {
	element
	region   *Region
	outgoing []*Transition
	incoming []*Transition
}

func (vertex *vertex) base() *vertex {
	return vertex
}

// Outgoing returns the transitions leaving the vertex in declaration order.
func (vertex *vertex) Outgoing() []*Transition {
	return vertex.outgoing
}

// Incoming returns the transitions entering the vertex in declaration order.
func (vertex *vertex) Incoming() []*Transition {
	return vertex.incoming
}

// Container returns the region owning the vertex.
func (vertex *vertex) Container() *Region {
	return vertex.region
}

func (vertex *vertex) to(source Vertex, target Vertex, maybeKind []uint64) *Transition {
	transitionKind := ExternalKind
	if len(maybeKind) > 0 && kind.Is(maybeKind[0], TransitionKind) {
		transitionKind = maybeKind[0]
	}
	if target == nil {
		transitionKind = InternalKind
	}
	transition := &Transition{
		element: element{
			kind:  transitionKind,
			name:  fmt.Sprintf(".transition%d", len(vertex.outgoing)),
			owner: source,
			root:  vertex.root,
		},
		source: source,
		target: target,
	}
	transition.qualifiedName = path.Join(vertex.qualifiedName, transition.name)
	vertex.outgoing = append(vertex.outgoing, transition)
	if target != nil {
		target.base().incoming = append(target.base().incoming, transition)
	}
	vertex.root.invalidate()
	return transition
}

// StateMachine is the mutable root of a statechart graph. Structural changes
// drop any compiled Model; Compile produces a new one.
type StateMachine struct {
	element
	regions []*Region
	mutex   sync.Mutex
	model   *Model
}

// NewStateMachine returns an empty state machine named name.
func NewStateMachine(name string) *StateMachine {
	machine := &StateMachine{
		element: element{
			kind:          StateMachineKind,
			name:          name,
			qualifiedName: "/" + name,
		},
	}
	machine.root = machine
	return machine
}

// Ancestors returns the machine alone.
func (machine *StateMachine) Ancestors() []Element {
	return []Element{machine}
}

// Regions returns the top-level regions in declaration order.
func (machine *StateMachine) Regions() []*Region {
	return machine.regions
}

// Region adds a top-level region.
func (machine *StateMachine) Region(name string) *Region {
	region := newRegion(machine, machine, name)
	machine.regions = append(machine.regions, region)
	machine.invalidate()
	return region
}

// State adds a state to the default top-level region.
func (machine *StateMachine) State(name string) *State {
	return machine.defaultRegion().State(name)
}

// PseudoState adds a pseudo-state of the given kind to the default top-level region.
func (machine *StateMachine) PseudoState(name string, pseudoKind uint64) *PseudoState {
	return machine.defaultRegion().PseudoState(name, pseudoKind)
}

// Compiled reports whether a Model is cached for the current structure.
func (machine *StateMachine) Compiled() bool {
	machine.mutex.Lock()
	defer machine.mutex.Unlock()
	return machine.model != nil
}

func (machine *StateMachine) defaultRegion() *Region {
	for _, region := range machine.regions {
		if region.name == DefaultRegion {
			return region
		}
	}
	return machine.Region(DefaultRegion)
}

func (machine *StateMachine) invalidate() {
	machine.mutex.Lock()
	defer machine.mutex.Unlock()
	machine.model = nil
}

// Region is an ordered set of mutually exclusive vertices.
type Region struct {
	element
	vertices []Vertex
}

func newRegion(owner Element, root *StateMachine, name string) *Region {
	return &Region{element: makeElement(owner, root, RegionKind, name)}
}

// Ancestors returns the owners of the region from the machine down, the region last.
func (region *Region) Ancestors() []Element {
	return ancestors(region)
}

// Vertices returns the vertices of the region in declaration order.
func (region *Region) Vertices() []Vertex {
	return region.vertices
}

// State adds a state to the region.
func (region *Region) State(name string) *State {
	if region == nil {
		panic("statechart: state added to nil region")
	}
	state := &State{vertex: vertex{element: makeElement(region, region.root, StateKind, name), region: region}}
	region.vertices = append(region.vertices, state)
	region.root.invalidate()
	return state
}

// PseudoState adds a pseudo-state to the region. pseudoKind must be one of
// InitialKind, ShallowHistoryKind, DeepHistoryKind, ChoiceKind or JunctionKind.
func (region *Region) PseudoState(name string, pseudoKind uint64) *PseudoState {
	if region == nil {
		panic("statechart: pseudo-state added to nil region")
	}
	switch pseudoKind {
	case InitialKind, ShallowHistoryKind, DeepHistoryKind, ChoiceKind, JunctionKind:
	default:
		panic(fmt.Sprintf("statechart: %d is not a pseudo-state kind", pseudoKind))
	}
	pseudoState := &PseudoState{vertex: vertex{element: makeElement(region, region.root, pseudoKind, name), region: region}}
	region.vertices = append(region.vertices, pseudoState)
	region.root.invalidate()
	return pseudoState
}

// State is a vertex that may own regions. It is simple with no regions,
// composite with one and orthogonal with more. A state without outgoing
// transitions is final.
type State struct {
	vertex
	regions []*Region
	entry   []Behavior
	exit    []Behavior
}

// Ancestors returns the owners of the state from the machine down, the state last.
func (state *State) Ancestors() []Element {
	return ancestors(state)
}

// Regions returns the child regions in declaration order.
func (state *State) Regions() []*Region {
	return state.regions
}

// Region adds a child region.
func (state *State) Region(name string) *Region {
	region := newRegion(state, state.root, name)
	state.regions = append(state.regions, region)
	state.root.invalidate()
	return region
}

// State adds a child state to the default region of state.
func (state *State) State(name string) *State {
	return state.defaultRegion().State(name)
}

// PseudoState adds a pseudo-state to the default region of state.
func (state *State) PseudoState(name string, pseudoKind uint64) *PseudoState {
	return state.defaultRegion().PseudoState(name, pseudoKind)
}

// EntryBehaviors returns the entry behaviors in declaration order.
func (state *State) EntryBehaviors() []Behavior {
	return state.entry
}

// ExitBehaviors returns the exit behaviors in declaration order.
func (state *State) ExitBehaviors() []Behavior {
	return state.exit
}

// Entry appends entry behaviors.
func (state *State) Entry(behaviors ...Behavior) *State {
	state.entry = append(state.entry, behaviors...)
	state.root.invalidate()
	return state
}

// Exit appends exit behaviors.
func (state *State) Exit(behaviors ...Behavior) *State {
	state.exit = append(state.exit, behaviors...)
	state.root.invalidate()
	return state
}

// To adds a transition from state to target. A nil target makes the
// transition internal whatever kind is requested.
func (state *State) To(target Vertex, maybeKind ...uint64) *Transition {
	return state.vertex.to(state, target, maybeKind)
}

func (state *State) defaultRegion() *Region {
	for _, region := range state.regions {
		if region.name == DefaultRegion {
			return region
		}
	}
	return state.Region(DefaultRegion)
}

// PseudoState is a transient vertex that is never recorded as current.
type PseudoState struct {
	vertex
}

// Ancestors returns the owners of the pseudo-state from the machine down, the pseudo-state last.
func (pseudoState *PseudoState) Ancestors() []Element {
	return ancestors(pseudoState)
}

// To adds a transition leaving the pseudo-state.
func (pseudoState *PseudoState) To(target Vertex, maybeKind ...uint64) *Transition {
	return pseudoState.vertex.to(pseudoState, target, maybeKind)
}

// Transition joins a source vertex to an optional target.
type Transition struct {
	element
	source  Vertex
	target  Vertex
	guard   Guard
	isElse  bool
	effects []Behavior
}

// Ancestors returns the owners of the transition from the machine down, the transition last.
func (transition *Transition) Ancestors() []Element {
	return ancestors(transition)
}

// Source returns the vertex the transition leaves.
func (transition *Transition) Source() Vertex {
	return transition.source
}

// Target returns the vertex the transition enters, nil for internal transitions.
func (transition *Transition) Target() Vertex {
	return transition.target
}

// Guard returns the explicit guard, nil when the default guard applies.
func (transition *Transition) Guard() Guard {
	return transition.guard
}

// Effects returns the effect behaviors in declaration order.
func (transition *Transition) Effects() []Behavior {
	return transition.effects
}

// IsElse reports whether the transition is the else branch of a decision.
func (transition *Transition) IsElse() bool {
	return transition.isElse
}

// When sets the guard.
func (transition *Transition) When(guard Guard) *Transition {
	transition.guard = guard
	transition.root.invalidate()
	return transition
}

// Else marks the transition as the fallback branch of a choice or junction.
func (transition *Transition) Else() *Transition {
	transition.isElse = true
	transition.root.invalidate()
	return transition
}

// Effect appends effect behaviors.
func (transition *Transition) Effect(behaviors ...Behavior) *Transition {
	transition.effects = append(transition.effects, behaviors...)
	transition.root.invalidate()
	return transition
}
