package statechart

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/stateforward/statechart.go/kind"
)

// Model is the compiled, read-only form of a StateMachine. Every element is
// lowered into an arena slot and cross references are slot indices, so a
// Model can be shared by any number of instances and goroutines.
type Model struct {
	name    string
	nodes   []node
	edges   []edge
	index   map[string]int
	root    int
	random  func(int) int
	logger  zerolog.Logger
	limit   int
	machine *StateMachine
}

// node is a compiled state machine, region, state or pseudo-state.
type node struct {
	kind          uint64
	qualifiedName string
	owner         int
	// children holds regions for states and the machine, vertices for regions.
	children []int
	outgoing []int
	entry    []Behavior
	exit     []Behavior
	// initial is the initial-like pseudo-state of a region.
	initial int
	// state is the builder state, used as the completion message.
	state *State
}

// edge is a compiled transition with its exit and entry precomputed.
type edge struct {
	kind          uint64
	qualifiedName string
	source        int
	target        int
	guard         Guard
	isElse        bool
	effects       []Behavior
	// exit is the node whose exit starts the traversal, -1 for none.
	exit int
	// enter lists the nodes to enter, shallowest first.
	enter      []int
	completion *State
}

const none = -1

// Name returns the state machine name.
func (model *Model) Name() string {
	return model.name
}

// StateMachine returns the graph the model was compiled from.
func (model *Model) StateMachine() *StateMachine {
	return model.machine
}

// Lookup reports the kind of the element with the given qualified name.
func (model *Model) Lookup(qualifiedName string) (uint64, bool) {
	i, ok := model.index[qualifiedName]
	if !ok {
		return NullKind, false
	}
	return model.nodes[i].kind, true
}

// WithConfig returns a model sharing the compiled graph of model but using
// config for randomness, logging and the completion limit.
func (model *Model) WithConfig(config Config) *Model {
	config = config.withDefaults()
	clone := *model
	clone.random = config.Random
	clone.logger = *config.Logger
	clone.limit = config.CompletionLimit
	return &clone
}

// Active returns the qualified names of the active leaf states of instance in
// declaration order.
func (model *Model) Active(instance Instance) []string {
	var leaves []string
	var walk func(n int)
	walk = func(n int) {
		for _, region := range model.nodes[n].children {
			current, ok := model.current(instance, region)
			if !ok {
				continue
			}
			if len(model.nodes[current].children) == 0 {
				leaves = append(leaves, model.nodes[current].qualifiedName)
				continue
			}
			walk(current)
		}
	}
	walk(model.root)
	return leaves
}

// IsComplete reports whether every top-level region of instance rests in a
// final state.
func (model *Model) IsComplete(instance Instance) bool {
	return model.complete(instance, model.root)
}

// Initialise enters the default configuration of the model into instance,
// running entry behaviors and any completion transitions that follow. A
// configuration already held by instance is dropped without running exit
// behaviors; recorded history is kept.
func (model *Model) Initialise(ctx context.Context, instance Instance) error {
	model.reset(instance)
	execution := model.execution(ctx, instance)
	mark := len(execution.entered)
	if err := execution.enterTail(model.root, nil); err != nil {
		return err
	}
	return execution.complete(mark)
}

// Evaluate offers message to every active state of instance, deepest first,
// and fires at most one transition per active region. It reports whether any
// transition fired.
func (model *Model) Evaluate(ctx context.Context, message any, instance Instance) (bool, error) {
	return model.execution(ctx, instance).evaluate(model.root, message)
}

// reset clears the current state of every region of instance.
func (model *Model) reset(instance Instance) {
	for i := range model.nodes {
		if model.is(i, RegionKind) {
			instance.SetCurrent(model.nodes[i].qualifiedName, "")
		}
	}
}

func (model *Model) execution(ctx context.Context, instance Instance) *execution {
	return &execution{model: model, ctx: ctx, instance: instance}
}

func (model *Model) current(instance Instance, region int) (int, bool) {
	qualifiedName, ok := instance.GetCurrent(model.nodes[region].qualifiedName)
	if !ok {
		return none, false
	}
	i, ok := model.index[qualifiedName]
	return i, ok
}

func (model *Model) active(instance Instance, n int) bool {
	owner := model.nodes[n].owner
	if owner == none {
		return true
	}
	current, ok := instance.GetCurrent(model.nodes[owner].qualifiedName)
	return ok && current == model.nodes[n].qualifiedName
}

// complete reports whether every region of n holds a final state. Simple
// states are complete.
func (model *Model) complete(instance Instance, n int) bool {
	for _, region := range model.nodes[n].children {
		current, ok := model.current(instance, region)
		if !ok || len(model.nodes[current].outgoing) > 0 {
			return false
		}
	}
	return true
}

func (model *Model) history(instance Instance, region int) (int, bool) {
	qualifiedName, ok := instance.GetCurrent(HistoryKey(model.nodes[region].qualifiedName))
	if !ok {
		return none, false
	}
	i, ok := model.index[qualifiedName]
	if !ok || model.nodes[i].owner != region {
		return none, false
	}
	return i, true
}

func (model *Model) is(n int, kinds ...uint64) bool {
	return kind.Is(model.nodes[n].kind, kinds...)
}
