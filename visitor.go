package statechart

import "fmt"

// Visitor receives every element of a graph from Walk. Implementations must
// not mutate the graph.
type Visitor interface {
	VisitStateMachine(machine *StateMachine) error
	VisitRegion(region *Region) error
	VisitState(state *State) error
	VisitPseudoState(pseudoState *PseudoState) error
	VisitTransition(transition *Transition) error
}

// NopVisitor implements every Visitor method as a no-op. Embed it to override
// only the methods of interest.
type NopVisitor struct{}

func (NopVisitor) VisitStateMachine(*StateMachine) error { return nil }
func (NopVisitor) VisitRegion(*Region) error             { return nil }
func (NopVisitor) VisitState(*State) error               { return nil }
func (NopVisitor) VisitPseudoState(*PseudoState) error   { return nil }
func (NopVisitor) VisitTransition(*Transition) error     { return nil }

// Walk visits element and everything it owns depth-first, children before
// their owner. A vertex's outgoing transitions are visited after its regions
// and before the vertex itself. The first error stops the walk.
func Walk(visitor Visitor, element Element) error {
	switch element := element.(type) {
	case *StateMachine:
		for _, region := range element.regions {
			if err := Walk(visitor, region); err != nil {
				return err
			}
		}
		return visitor.VisitStateMachine(element)
	case *Region:
		for _, vertex := range element.vertices {
			if err := Walk(visitor, vertex); err != nil {
				return err
			}
		}
		return visitor.VisitRegion(element)
	case *State:
		for _, region := range element.regions {
			if err := Walk(visitor, region); err != nil {
				return err
			}
		}
		if err := walkTransitions(visitor, element.outgoing); err != nil {
			return err
		}
		return visitor.VisitState(element)
	case *PseudoState:
		if err := walkTransitions(visitor, element.outgoing); err != nil {
			return err
		}
		return visitor.VisitPseudoState(element)
	case *Transition:
		return visitor.VisitTransition(element)
	case nil:
		return nil
	default:
		return fmt.Errorf("statechart: cannot walk %T", element)
	}
}

func walkTransitions(visitor Visitor, transitions []*Transition) error {
	for _, transition := range transitions {
		if err := visitor.VisitTransition(transition); err != nil {
			return err
		}
	}
	return nil
}
