package statechart

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/stateforward/statechart.go/kind"
)

// Compile validates the graph and lowers it into a Model. The result is cached
// until the graph changes, so calling Compile again returns the same Model.
// A Config passed to a machine that is already compiled yields a copy of the
// cached Model using that Config.
func (machine *StateMachine) Compile(maybeConfig ...Config) (*Model, error) {
	var config Config
	if len(maybeConfig) > 0 {
		config = maybeConfig[0]
	}
	machine.mutex.Lock()
	defer machine.mutex.Unlock()
	if machine.model != nil {
		if len(maybeConfig) > 0 {
			return machine.model.WithConfig(config), nil
		}
		return machine.model, nil
	}
	model, err := compile(machine, config.withDefaults())
	if err != nil {
		return nil, err
	}
	machine.model = model
	return model, nil
}

// Initialise compiles machine if needed and initialises instance.
func (machine *StateMachine) Initialise(ctx context.Context, instance Instance) error {
	model, err := machine.Compile()
	if err != nil {
		return err
	}
	return model.Initialise(ctx, instance)
}

// Evaluate compiles machine if needed and evaluates message against instance.
func (machine *StateMachine) Evaluate(ctx context.Context, message any, instance Instance) (bool, error) {
	model, err := machine.Compile()
	if err != nil {
		return false, err
	}
	return model.Evaluate(ctx, message, instance)
}

// compiler lowers the graph in one post-order walk. Children are visited
// before their owner, so owners resolve child slots as they are visited;
// transitions are linked once every vertex has a slot.
type compiler struct {
	model       *Model
	slots       map[Element]int
	transitions []*Transition
}

func compile(machine *StateMachine, config Config) (*Model, error) {
	compiler := &compiler{
		model: &Model{
			name:    machine.name,
			index:   map[string]int{},
			random:  config.Random,
			logger:  *config.Logger,
			limit:   config.CompletionLimit,
			machine: machine,
		},
		slots: map[Element]int{},
	}
	if err := Walk(compiler, machine); err != nil {
		return nil, err
	}
	model := compiler.model
	for element, slot := range compiler.slots {
		if owner := element.Owner(); owner != nil {
			model.nodes[slot].owner = compiler.slots[owner]
		}
	}
	model.root = compiler.slots[machine]
	for _, transition := range compiler.transitions {
		if err := compiler.link(transition); err != nil {
			return nil, err
		}
	}
	model.logger.Debug().
		Str("machine", machine.qualifiedName).
		Int("nodes", len(model.nodes)).
		Int("transitions", len(model.edges)).
		Msg("compiled")
	return model, nil
}

func (compiler *compiler) add(element Element, n node) (int, error) {
	name := element.Name()
	switch {
	case name == "":
		return none, fmt.Errorf("%w: in %s", ErrEmptyName, ownerName(element))
	case strings.Contains(name, "/"), strings.HasPrefix(name, "."):
		return none, fmt.Errorf("%w: %q in %s", ErrInvalidName, name, ownerName(element))
	}
	if _, ok := compiler.model.index[element.QualifiedName()]; ok {
		return none, fmt.Errorf("%w: %s", ErrDuplicateName, element.QualifiedName())
	}
	n.qualifiedName = element.QualifiedName()
	n.kind = element.Kind()
	n.owner = none
	n.initial = none
	slot := len(compiler.model.nodes)
	compiler.model.nodes = append(compiler.model.nodes, n)
	compiler.model.index[n.qualifiedName] = slot
	compiler.slots[element] = slot
	return slot, nil
}

func (compiler *compiler) VisitStateMachine(machine *StateMachine) error {
	_, err := compiler.add(machine, node{children: compiler.regionSlots(machine.regions)})
	return err
}

func (compiler *compiler) VisitRegion(region *Region) error {
	n := node{initial: none}
	for _, vertex := range region.vertices {
		slot := compiler.slots[vertex]
		n.children = append(n.children, slot)
		if !isInitialLike(vertex.Kind()) {
			continue
		}
		if n.initial != none {
			return fmt.Errorf("%w: %s", ErrMultipleInitial, region.qualifiedName)
		}
		n.initial = slot
	}
	if n.initial == none {
		return fmt.Errorf("%w: %s", ErrMissingInitial, region.qualifiedName)
	}
	slot, err := compiler.add(region, n)
	if err != nil {
		return err
	}
	compiler.model.nodes[slot].initial = n.initial
	return nil
}

func (compiler *compiler) VisitState(state *State) error {
	_, err := compiler.add(state, node{
		children: compiler.regionSlots(state.regions),
		entry:    slices.Clone(state.entry),
		exit:     slices.Clone(state.exit),
		state:    state,
	})
	return err
}

func (compiler *compiler) VisitPseudoState(pseudoState *PseudoState) error {
	if len(pseudoState.outgoing) == 0 {
		return fmt.Errorf("%w: %s", ErrNoOutgoing, pseudoState.qualifiedName)
	}
	_, err := compiler.add(pseudoState, node{})
	return err
}

func (compiler *compiler) VisitTransition(transition *Transition) error {
	source, target := transition.source, transition.target
	switch {
	case transition.isElse && !kind.Is(source.Kind(), ChoiceKind, JunctionKind):
		return fmt.Errorf("%w: %s", ErrMisplacedElse, transition.qualifiedName)
	case target != nil && target.Root() != source.Root():
		return fmt.Errorf("%w: %s -> %s", ErrForeignVertex, transition.qualifiedName, target.QualifiedName())
	case target == nil && kind.Is(source.Kind(), PseudoStateKind):
		return fmt.Errorf("%w: %s has no target", ErrDeadEnd, transition.qualifiedName)
	}
	compiler.transitions = append(compiler.transitions, transition)
	return nil
}

func (compiler *compiler) regionSlots(regions []*Region) []int {
	slots := make([]int, 0, len(regions))
	for _, region := range regions {
		slots = append(slots, compiler.slots[region])
	}
	return slots
}

func (compiler *compiler) link(transition *Transition) error {
	model := compiler.model
	source, ok := compiler.slots[transition.source]
	if !ok {
		return fmt.Errorf("%w: source of %s is detached", ErrForeignVertex, transition.qualifiedName)
	}
	e := edge{
		kind:          transition.kind,
		qualifiedName: transition.qualifiedName,
		source:        source,
		target:        none,
		exit:          none,
		guard:         transition.guard,
		isElse:        transition.isElse,
		effects:       slices.Clone(transition.effects),
	}
	if state, ok := transition.source.(*State); ok {
		e.completion = state
	}
	if transition.target != nil {
		target, ok := compiler.slots[transition.target]
		if !ok {
			return fmt.Errorf("%w: target of %s is detached", ErrForeignVertex, transition.qualifiedName)
		}
		e.target = target
		model.route(&e)
	}
	slot := len(model.edges)
	model.edges = append(model.edges, e)
	model.nodes[source].outgoing = append(model.nodes[source].outgoing, slot)
	return nil
}

// chain returns the slots from the root down to n.
func (model *Model) chain(n int) []int {
	var slots []int
	for ; n != none; n = model.nodes[n].owner {
		slots = append(slots, n)
	}
	slices.Reverse(slots)
	return slots
}

// route precomputes the exit node and entry path of e. Chains alternate
// between regions and vertices, so the first divergence either separates two
// vertices of one region or two regions of one orthogonal state.
func (model *Model) route(e *edge) {
	if kind.Is(e.kind, InternalKind) {
		return
	}
	sources, targets := model.chain(e.source), model.chain(e.target)
	if kind.Is(e.kind, LocalKind) {
		switch {
		case len(targets) > len(sources) && slices.Equal(sources, targets[:len(sources)]):
			e.exit = targets[len(sources)]
			e.enter = targets[len(sources):]
			return
		case len(sources) > len(targets) && slices.Equal(targets, sources[:len(targets)]):
			e.exit = sources[len(targets)]
			e.enter = []int{sources[len(targets)]}
			return
		}
	}
	n := min(len(sources), len(targets))
	i := 0
	for i < n && sources[i] == targets[i] {
		i++
	}
	switch {
	case i == n:
		i = n - 1
	case model.is(sources[i], RegionKind):
		i--
	}
	e.exit = sources[i]
	e.enter = slices.Clone(targets[i:])
}

func ownerName(element Element) string {
	if owner := element.Owner(); owner != nil {
		return owner.QualifiedName()
	}
	return "/"
}
