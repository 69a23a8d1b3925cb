package statechart_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stateforward/statechart.go"
)

// benchNoBehavior is a no-op behavior for benchmarks.
func benchNoBehavior(context.Context, any, statechart.Instance) error {
	return nil
}

// flatModel toggles between two sibling states.
func flatModel(b *testing.B) *statechart.Model {
	machine := statechart.NewStateMachine("flat")
	foo := machine.State("foo").Entry(benchNoBehavior).Exit(benchNoBehavior)
	bar := machine.State("bar").Entry(benchNoBehavior).Exit(benchNoBehavior)
	machine.PseudoState("initial", statechart.InitialKind).To(foo)
	foo.To(bar).When(on("toggle")).Effect(benchNoBehavior)
	bar.To(foo).When(on("toggle")).Effect(benchNoBehavior)
	model, err := machine.Compile()
	if err != nil {
		b.Fatal(err)
	}
	return model
}

// deepModel toggles between the leaves of two chains of nested states.
func deepModel(b *testing.B, depth int) *statechart.Model {
	machine := statechart.NewStateMachine("deep")
	chain := func(name string) (*statechart.State, *statechart.State) {
		top := machine.State(name).Entry(benchNoBehavior).Exit(benchNoBehavior)
		leaf := top
		for i := range depth {
			child := leaf.State(fmt.Sprintf("%s%d", name, i)).Entry(benchNoBehavior).Exit(benchNoBehavior)
			leaf.PseudoState("initial", statechart.InitialKind).To(child)
			leaf = child
		}
		return top, leaf
	}
	left, leftLeaf := chain("left")
	right, rightLeaf := chain("right")
	machine.PseudoState("initial", statechart.InitialKind).To(left)
	leftLeaf.To(right).When(on("toggle"))
	rightLeaf.To(left).When(on("toggle"))
	model, err := machine.Compile()
	if err != nil {
		b.Fatal(err)
	}
	return model
}

func runToggle(b *testing.B, model *statechart.Model) {
	ctx := context.Background()
	store := statechart.NewStore()
	if err := model.Initialise(ctx, store); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for b.Loop() {
		if _, err := model.Evaluate(ctx, "toggle", store); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTransition(b *testing.B) {
	b.Run("flat", func(b *testing.B) {
		runToggle(b, flatModel(b))
	})
	for _, depth := range []int{2, 8} {
		b.Run(fmt.Sprintf("deep-%d", depth), func(b *testing.B) {
			runToggle(b, deepModel(b, depth))
		})
	}
}

func BenchmarkInertMessage(b *testing.B) {
	model := deepModel(b, 4)
	ctx := context.Background()
	store := statechart.NewStore()
	if err := model.Initialise(ctx, store); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for b.Loop() {
		if _, err := model.Evaluate(ctx, "ignored", store); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParallelInstances(b *testing.B) {
	model := flatModel(b)
	ctx := context.Background()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		store := statechart.NewStore()
		if err := model.Initialise(ctx, store); err != nil {
			b.Error(err)
			return
		}
		for pb.Next() {
			if _, err := model.Evaluate(ctx, "toggle", store); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

func BenchmarkCompile(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		machine := statechart.NewStateMachine("compile")
		previous := machine.State("s0")
		machine.PseudoState("initial", statechart.InitialKind).To(previous)
		for i := 1; i < 32; i++ {
			next := machine.State(fmt.Sprintf("s%d", i))
			previous.To(next).When(on("next"))
			previous = next
		}
		if _, err := machine.Compile(); err != nil {
			b.Fatal(err)
		}
	}
}
