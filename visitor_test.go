package statechart_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/stateforward/statechart.go"
)

type counter struct {
	statechart.NopVisitor
	order []string
	count map[string]int
}

func (c *counter) visit(kind string, element statechart.Element) error {
	if c.count == nil {
		c.count = map[string]int{}
	}
	c.count[kind]++
	c.order = append(c.order, element.QualifiedName())
	return nil
}

func (c *counter) VisitStateMachine(machine *statechart.StateMachine) error {
	return c.visit("machine", machine)
}

func (c *counter) VisitRegion(region *statechart.Region) error {
	return c.visit("region", region)
}

func (c *counter) VisitState(state *statechart.State) error {
	return c.visit("state", state)
}

func (c *counter) VisitPseudoState(pseudoState *statechart.PseudoState) error {
	return c.visit("pseudo", pseudoState)
}

func (c *counter) VisitTransition(transition *statechart.Transition) error {
	return c.visit("transition", transition)
}

func TestWalkIsPostOrder(t *testing.T) {
	machine := statechart.NewStateMachine("m")
	a := machine.State("a")
	a1 := a.State("a1")
	machine.PseudoState("initial", statechart.InitialKind).To(a)
	a.PseudoState("initial", statechart.InitialKind).To(a1)
	a1.To(a)

	visitor := &counter{}
	assert.NoError(t, statechart.Walk(visitor, machine))
	want := []string{
		"/m/default/a/default/a1/.transition0",
		"/m/default/a/default/a1",
		"/m/default/a/default/initial/.transition0",
		"/m/default/a/default/initial",
		"/m/default/a/default",
		"/m/default/a",
		"/m/default/initial/.transition0",
		"/m/default/initial",
		"/m/default",
		"/m",
	}
	if diff := cmp.Diff(want, visitor.order); diff != "" {
		t.Errorf("walk order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[string]int{"machine": 1, "region": 2, "state": 2, "pseudo": 2, "transition": 3}, visitor.count)
}

type failing struct {
	statechart.NopVisitor
	err error
}

func (f failing) VisitState(*statechart.State) error {
	return f.err
}

func TestWalkStopsOnError(t *testing.T) {
	machine := statechart.NewStateMachine("m")
	machine.State("a")
	boom := errors.New("boom")
	assert.ErrorIs(t, statechart.Walk(failing{err: boom}, machine), boom)
	assert.NoError(t, statechart.Walk(statechart.NopVisitor{}, machine))
	assert.NoError(t, statechart.Walk(statechart.NopVisitor{}, nil))
}
