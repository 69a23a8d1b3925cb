package statechart

import (
	"fmt"
)

// enter walks path shallowest first. A region in the middle of the path is
// passed through, a region at its end is default-entered, and a state in the
// middle default-enters its regions that are off the path once the rest of
// the path has been entered.
func (execution *execution) enter(path []int, message any) error {
	if len(path) == 0 {
		return nil
	}
	model := execution.model
	n, rest := path[0], path[1:]
	switch {
	case model.is(n, RegionKind):
		if len(rest) == 0 {
			return execution.enterRegion(n, message)
		}
		return execution.enter(rest, message)
	case model.is(n, PseudoStateKind):
		return execution.resolve(n, message)
	}
	if n != model.root {
		if err := execution.enterHead(n, message); err != nil {
			return err
		}
	}
	if len(rest) == 0 {
		return execution.enterTail(n, message)
	}
	if err := execution.enter(rest, message); err != nil {
		return err
	}
	for _, region := range model.nodes[n].children {
		if region == rest[0] {
			continue
		}
		if !model.active(execution.instance, n) {
			break
		}
		if err := execution.enterRegion(region, message); err != nil {
			return err
		}
	}
	return nil
}

// enterHead records n as current in its region and runs its entry behaviors.
func (execution *execution) enterHead(n int, message any) error {
	model := execution.model
	state := &model.nodes[n]
	execution.instance.SetCurrent(model.nodes[state.owner].qualifiedName, state.qualifiedName)
	execution.entered = append(execution.entered, n)
	execution.stepped = append(execution.stepped, n)
	model.logger.Trace().Str("state", state.qualifiedName).Msg("enter")
	for _, entry := range state.entry {
		if err := entry(execution.ctx, message, execution.instance); err != nil {
			return err
		}
	}
	return nil
}

// enterTail default-enters every region of n while n stays active.
func (execution *execution) enterTail(n int, message any) error {
	model := execution.model
	for _, region := range model.nodes[n].children {
		if !model.active(execution.instance, n) {
			return nil
		}
		if err := execution.enterRegion(region, message); err != nil {
			return err
		}
	}
	return nil
}

func (execution *execution) enterRegion(region int, message any) error {
	return execution.resolve(execution.model.nodes[region].initial, message)
}

// resolve continues a traversal that reached a pseudo-state.
func (execution *execution) resolve(n int, message any) error {
	model := execution.model
	pseudoState := &model.nodes[n]
	if model.is(n, HistoryKind) {
		if recorded, ok := model.history(execution.instance, pseudoState.owner); ok {
			if model.is(n, DeepHistoryKind) {
				return execution.restore(recorded, message)
			}
			if err := execution.enterHead(recorded, message); err != nil {
				return err
			}
			return execution.enterTail(recorded, message)
		}
	}
	chosen := none
	fallback := none
	var candidates []int
	for _, slot := range pseudoState.outgoing {
		e := &model.edges[slot]
		if e.isElse {
			if fallback == none {
				fallback = slot
			}
			continue
		}
		if !execution.enabled(e, message) {
			continue
		}
		candidates = append(candidates, slot)
		if !model.is(n, ChoiceKind) {
			break
		}
	}
	switch len(candidates) {
	case 0:
		chosen = fallback
	case 1:
		chosen = candidates[0]
	default:
		chosen = candidates[model.random(len(candidates))]
	}
	if chosen == none {
		return fmt.Errorf("%w: %s", ErrDeadEnd, pseudoState.qualifiedName)
	}
	return execution.traverse(&model.edges[chosen], message)
}

// restore re-enters recorded and, below it, every region's recorded state,
// falling back to default entry where nothing was recorded.
func (execution *execution) restore(recorded int, message any) error {
	model := execution.model
	if err := execution.enterHead(recorded, message); err != nil {
		return err
	}
	for _, region := range model.nodes[recorded].children {
		if !model.active(execution.instance, recorded) {
			return nil
		}
		var err error
		if child, ok := model.history(execution.instance, region); ok {
			err = execution.restore(child, message)
		} else {
			err = execution.enterRegion(region, message)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (execution *execution) exit(n int, message any) error {
	model := execution.model
	switch {
	case model.is(n, PseudoStateKind):
		return nil
	case model.is(n, RegionKind):
		return execution.exitRegion(n, message)
	case n == model.root:
		for _, region := range model.nodes[n].children {
			if err := execution.exitRegion(region, message); err != nil {
				return err
			}
		}
		return nil
	}
	return execution.exitState(n, message)
}

func (execution *execution) exitRegion(region int, message any) error {
	current, ok := execution.model.current(execution.instance, region)
	if !ok {
		return nil
	}
	return execution.exitState(current, message)
}

// exitState exits the regions of n, then n itself, recording n as the history
// of its region before clearing it.
func (execution *execution) exitState(n int, message any) error {
	model := execution.model
	if !model.active(execution.instance, n) {
		return nil
	}
	state := &model.nodes[n]
	for _, region := range state.children {
		if err := execution.exitRegion(region, message); err != nil {
			return err
		}
	}
	model.logger.Trace().Str("state", state.qualifiedName).Msg("exit")
	for _, exit := range state.exit {
		if err := exit(execution.ctx, message, execution.instance); err != nil {
			return err
		}
	}
	owner := model.nodes[state.owner].qualifiedName
	execution.instance.SetCurrent(HistoryKey(owner), state.qualifiedName)
	execution.instance.SetCurrent(owner, "")
	return nil
}
