// Package plantuml renders a state machine as a PlantUML state diagram.
package plantuml

import (
	"fmt"
	"io"
	"path"
	"reflect"
	"runtime"
	"slices"
	"strings"

	"github.com/stateforward/statechart.go"
	"github.com/stateforward/statechart.go/kind"
)

// Generate writes the PlantUML source of machine to writer.
func Generate(writer io.Writer, machine *statechart.StateMachine) error {
	g := &generator{
		fragments: map[statechart.Element][]string{},
		initials:  map[*statechart.Region][]string{},
	}
	if err := statechart.Walk(g, machine); err != nil {
		return err
	}
	_, err := io.WriteString(writer, strings.Join(g.fragments[machine], "\n")+"\n")
	return err
}

// generator builds nested fragments bottom-up. Walk visits children first, so
// an owner concatenates the fragments of what it owns.
type generator struct {
	fragments   map[statechart.Element][]string
	initials    map[*statechart.Region][]string
	transitions []string
}

func (g *generator) VisitStateMachine(machine *statechart.StateMachine) error {
	lines := []string{"@startuml " + machine.Name()}
	for _, region := range machine.Regions() {
		lines = append(lines, g.fragments[region]...)
	}
	lines = append(lines, g.transitions...)
	g.fragments[machine] = append(lines, "@enduml")
	return nil
}

func (g *generator) VisitRegion(region *statechart.Region) error {
	lines := slices.Clone(g.initials[region])
	for _, vertex := range region.Vertices() {
		lines = append(lines, g.fragments[vertex]...)
	}
	g.fragments[region] = lines
	return nil
}

func (g *generator) VisitState(state *statechart.State) error {
	id := alias(state)
	var lines []string
	if regions := state.Regions(); len(regions) > 0 {
		lines = append(lines, fmt.Sprintf("state %q as %s {", state.Name(), id))
		for i, region := range regions {
			if i > 0 {
				lines = append(lines, "  --")
			}
			lines = append(lines, indent(g.fragments[region])...)
		}
		lines = append(lines, "}")
	} else {
		lines = append(lines, fmt.Sprintf("state %q as %s", state.Name(), id))
	}
	for _, name := range functionNames(state.EntryBehaviors()) {
		lines = append(lines, fmt.Sprintf("%s : entry / %s", id, name))
	}
	for _, name := range functionNames(state.ExitBehaviors()) {
		lines = append(lines, fmt.Sprintf("%s : exit / %s", id, name))
	}
	g.fragments[state] = lines
	return nil
}

func (g *generator) VisitPseudoState(pseudoState *statechart.PseudoState) error {
	if kind.Is(pseudoState.Kind(), statechart.ChoiceKind, statechart.JunctionKind) {
		g.fragments[pseudoState] = []string{fmt.Sprintf("state %s <<choice>>", alias(pseudoState))}
	}
	return nil
}

func (g *generator) VisitTransition(transition *statechart.Transition) error {
	source := transition.Source()
	text := label(transition)
	if transition.Target() == nil || kind.Is(transition.Kind(), statechart.InternalKind) {
		if text != "" {
			g.transitions = append(g.transitions, fmt.Sprintf("%s : %s", alias(source), text))
		}
		return nil
	}
	line := fmt.Sprintf("%s --> %s", alias(source), alias(transition.Target()))
	if text != "" {
		line += " : " + text
	}
	if kind.Is(source.Kind(), statechart.InitialKind, statechart.HistoryKind) {
		region := source.Container()
		g.initials[region] = append(g.initials[region], line)
		return nil
	}
	g.transitions = append(g.transitions, line)
	return nil
}

// alias turns a qualified name into a PlantUML identifier. Initial and
// history pseudo-states use the PlantUML markers of their enclosing state.
func alias(vertex statechart.Vertex) string {
	switch {
	case kind.Is(vertex.Kind(), statechart.InitialKind):
		return "[*]"
	case kind.Is(vertex.Kind(), statechart.HistoryKind):
		marker := "[H]"
		if kind.Is(vertex.Kind(), statechart.DeepHistoryKind) {
			marker = "[H*]"
		}
		if state, ok := vertex.Container().Owner().(*statechart.State); ok {
			return alias(state) + marker
		}
		return marker
	}
	qualifiedName := strings.TrimPrefix(vertex.QualifiedName(), "/")
	return strings.NewReplacer("/", "_", "-", "_", " ", "_").Replace(qualifiedName)
}

func label(transition *statechart.Transition) string {
	var parts []string
	if transition.IsElse() {
		parts = append(parts, "[else]")
	} else if guard := transition.Guard(); guard != nil {
		parts = append(parts, "["+functionName(guard)+"]")
	}
	if effects := transition.Effects(); len(effects) > 0 {
		parts = append(parts, "/ "+strings.Join(functionNames(effects), ", "))
	}
	return strings.Join(parts, " ")
}

func functionNames(behaviors []statechart.Behavior) []string {
	names := make([]string, 0, len(behaviors))
	for _, behavior := range behaviors {
		names = append(names, functionName(behavior))
	}
	return names
}

func functionName(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	if f := runtime.FuncForPC(pc); f != nil {
		return path.Base(f.Name())
	}
	return "anonymous"
}

func indent(lines []string) []string {
	indented := make([]string, len(lines))
	for i, line := range lines {
		indented[i] = "  " + line
	}
	return indented
}
