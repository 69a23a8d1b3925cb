package statechart

import (
	"context"
	"fmt"
	"slices"

	"github.com/stateforward/statechart.go/kind"
)

// execution carries one Initialise or Evaluate call. States entered during a
// traversal are collected in entered so the completion cascade can inspect
// them innermost first once the traversal is over. stepped keeps every state
// entered during the call; a region whose current state is in it already moved
// and is not offered the message again.
type execution struct {
	model    *Model
	ctx      context.Context
	instance Instance
	entered  []int
	stepped  []int
	depth    int
}

func (execution *execution) evaluate(n int, message any) (bool, error) {
	model := execution.model
	fired := false
	for _, region := range model.nodes[n].children {
		if !model.active(execution.instance, n) {
			break
		}
		current, ok := model.current(execution.instance, region)
		if !ok {
			if n == model.root {
				return fired, fmt.Errorf("%w: %s", ErrNotInitialised, model.nodes[region].qualifiedName)
			}
			continue
		}
		if slices.Contains(execution.stepped, current) {
			continue
		}
		childFired, err := execution.evaluate(current, message)
		fired = fired || childFired
		if err != nil {
			return fired, err
		}
	}
	if n == model.root {
		return fired, nil
	}
	if fired {
		state := model.nodes[n].state
		if completion, ok := message.(*State); ok && completion == state {
			return true, nil
		}
		if model.active(execution.instance, n) && model.complete(execution.instance, n) {
			return true, execution.completeState(n)
		}
		return true, nil
	}
	for _, slot := range model.nodes[n].outgoing {
		if execution.enabled(&model.edges[slot], message) {
			return true, execution.fire(&model.edges[slot], message)
		}
	}
	return false, nil
}

func (execution *execution) enabled(e *edge, message any) bool {
	switch {
	case e.isElse:
		return false
	case e.guard != nil:
		return e.guard(execution.ctx, message, execution.instance)
	case e.completion == nil:
		return true
	}
	completion, ok := message.(*State)
	return ok && completion == e.completion
}

// fire traverses e and then runs the completion cascade for every state it
// entered.
func (execution *execution) fire(e *edge, message any) error {
	mark := len(execution.entered)
	if err := execution.traverse(e, message); err != nil {
		return err
	}
	return execution.complete(mark)
}

func (execution *execution) traverse(e *edge, message any) error {
	model := execution.model
	model.logger.Debug().
		Str("transition", e.qualifiedName).
		Type("event", message).
		Msg("fire")
	if kind.Is(e.kind, InternalKind) || e.target == none {
		return execution.effects(e, message)
	}
	if e.exit != none {
		if err := execution.exit(e.exit, message); err != nil {
			return err
		}
	}
	if err := execution.effects(e, message); err != nil {
		return err
	}
	return execution.enter(e.enter, message)
}

func (execution *execution) effects(e *edge, message any) error {
	for _, effect := range e.effects {
		if err := effect(execution.ctx, message, execution.instance); err != nil {
			return err
		}
	}
	return nil
}

// complete fires the completion transitions of the states entered since mark,
// innermost first, skipping states that are no longer active or complete.
func (execution *execution) complete(mark int) error {
	entered := slices.Clone(execution.entered[mark:])
	execution.entered = execution.entered[:mark]
	if len(entered) == 0 {
		return nil
	}
	execution.depth++
	defer func() { execution.depth-- }()
	if execution.depth > execution.model.limit {
		return fmt.Errorf("%w: after %d steps", ErrCompletionCascade, execution.model.limit)
	}
	model := execution.model
	for _, state := range slices.Backward(entered) {
		if !model.active(execution.instance, state) || !model.complete(execution.instance, state) {
			continue
		}
		if err := execution.completeState(state); err != nil {
			return err
		}
	}
	return nil
}

func (execution *execution) completeState(n int) error {
	model := execution.model
	message := model.nodes[n].state
	for _, slot := range model.nodes[n].outgoing {
		if execution.enabled(&model.edges[slot], message) {
			return execution.fire(&model.edges[slot], message)
		}
	}
	return nil
}
