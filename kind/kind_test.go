package kind

import (
	"slices"
	"testing"
)

// null takes the zero identifier so every kind made by a test is non-null
// whichever test runs first.
var null = Make()

func TestMakeAndIs(t *testing.T) {
	if null != 0 {
		t.Fatalf("first kind = %d, want the null kind", null)
	}
	element := Make()
	vertex := Make(element)
	namespace := Make(element)
	state := Make(vertex, namespace)
	pseudo := Make(vertex)
	choice := Make(pseudo)

	if !Is(state, vertex) {
		t.Errorf("state should be a vertex")
	}
	if !Is(state, namespace) {
		t.Errorf("state should be a namespace")
	}
	if !Is(choice, vertex) {
		t.Errorf("choice should be a vertex through pseudo")
	}
	if Is(state, pseudo) {
		t.Errorf("state should not be a pseudo")
	}
	if Is(pseudo, state) {
		t.Errorf("pseudo should not be a state")
	}
	if !Is(choice, state, pseudo) {
		t.Errorf("Is should match any of the given bases")
	}
}

func TestBases(t *testing.T) {
	element := Make()
	vertex := Make(element)
	state := Make(vertex)
	bases := Bases(state)
	want := []Kind{ID(vertex), ID(element)}
	if !slices.Equal(bases, want) {
		t.Fatalf("bases = %v, want %v", bases, want)
	}
	if got := ID(state); got == ID(vertex) || got == 0 {
		t.Fatalf("unexpected id %d", got)
	}
}

func TestDuplicateBasesCollapse(t *testing.T) {
	element := Make()
	left := Make(element)
	right := Make(element)
	joined := Make(left, right)
	if got := len(Bases(joined)); got != 3 {
		t.Fatalf("expected 3 distinct bases, got %d (%v)", got, Bases(joined))
	}
}
