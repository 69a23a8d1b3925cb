package snapshot_test

import (
	"bytes"
	"context"
	"maps"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateforward/statechart.go"
	"github.com/stateforward/statechart.go/pkg/snapshot"
)

func is(event string) statechart.Guard {
	return func(_ context.Context, message any, _ statechart.Instance) bool {
		return message == event
	}
}

// lamp remembers its brightness through shallow history.
func lamp(t *testing.T) *statechart.Model {
	t.Helper()
	machine := statechart.NewStateMachine("lamp")
	off := machine.State("off")
	on := machine.State("on")
	dim := on.State("dim")
	bright := on.State("bright")
	machine.PseudoState("initial", statechart.InitialKind).To(off)
	on.PseudoState("history", statechart.ShallowHistoryKind).To(dim)
	off.To(on).When(is("toggle"))
	on.To(off).When(is("toggle"))
	dim.To(bright).When(is("up"))
	bright.To(dim).When(is("down"))
	model, err := machine.Compile()
	require.NoError(t, err)
	return model
}

func drive(t *testing.T, model *statechart.Model, store *statechart.Store, messages ...string) {
	t.Helper()
	ctx := context.Background()
	for _, message := range messages {
		_, err := model.Evaluate(ctx, message, store)
		require.NoError(t, err, message)
	}
}

func taken(t *testing.T) (*statechart.Model, snapshot.Snapshot) {
	t.Helper()
	model := lamp(t)
	store := statechart.NewStore("lamp-1")
	require.NoError(t, model.Initialise(context.Background(), store))
	drive(t, model, store, "toggle", "up", "toggle")
	return model, snapshot.Take(model.Name(), store)
}

func TestTake(t *testing.T) {
	_, snap := taken(t)
	assert.Equal(t, "lamp", snap.Machine)
	assert.Equal(t, "lamp-1", snap.ID)
	assert.False(t, snap.Taken.IsZero())
	if diff := cmp.Diff(map[string]string{"/lamp/default": "/lamp/default/off"}, snap.Current); diff != "" {
		t.Errorf("current mismatch (-want +got):\n%s", diff)
	}
	wantHistory := map[string]string{
		"/lamp/default":            "/lamp/default/on",
		"/lamp/default/on/default": "/lamp/default/on/default/bright",
	}
	if diff := cmp.Diff(wantHistory, snap.History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyRestoresHistory(t *testing.T) {
	model, snap := taken(t)
	require.NoError(t, snap.Validate(model))

	store := statechart.NewStore(snap.ID)
	snap.Apply(store)
	assert.Equal(t, []string{"/lamp/default/off"}, model.Active(store))
	drive(t, model, store, "toggle")
	assert.Equal(t, []string{"/lamp/default/on/default/bright"}, model.Active(store))
}

func TestValidate(t *testing.T) {
	model, snap := taken(t)
	tests := []struct {
		name   string
		mutate func(snap *snapshot.Snapshot)
	}{
		{name: "machine", mutate: func(snap *snapshot.Snapshot) { snap.Machine = "other" }},
		{name: "unknown region", mutate: func(snap *snapshot.Snapshot) {
			snap.Current["/lamp/missing"] = "/lamp/missing/off"
		}},
		{name: "unknown state", mutate: func(snap *snapshot.Snapshot) {
			snap.Current["/lamp/default"] = "/lamp/default/missing"
		}},
		{name: "state outside region", mutate: func(snap *snapshot.Snapshot) {
			snap.Current["/lamp/default"] = "/lamp/default/on/default/dim"
		}},
		{name: "pseudo-state recorded", mutate: func(snap *snapshot.Snapshot) {
			snap.History["/lamp/default/on/default"] = "/lamp/default/on/default/history"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := snap
			snap.Current = maps.Clone(snap.Current)
			snap.History = maps.Clone(snap.History)
			tt.mutate(&snap)
			assert.ErrorIs(t, snap.Validate(model), snapshot.ErrMismatch)
		})
	}
}

func TestEncodeDecode(t *testing.T) {
	_, snap := taken(t)
	for _, format := range []snapshot.Format{snapshot.YAML, snapshot.JSON} {
		t.Run(string(format), func(t *testing.T) {
			var buffer bytes.Buffer
			require.NoError(t, snapshot.Encode(&buffer, snap, format))
			decoded, err := snapshot.Decode(&buffer, format)
			require.NoError(t, err)
			if diff := cmp.Diff(snap, decoded); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeYAMLLayout(t *testing.T) {
	_, snap := taken(t)
	var buffer bytes.Buffer
	require.NoError(t, snapshot.Encode(&buffer, snap, snapshot.YAML))
	assert.Contains(t, buffer.String(), "machine: lamp\n")
	assert.Contains(t, buffer.String(), "current:\n  /lamp/default: /lamp/default/off\n")
}

func TestFormats(t *testing.T) {
	for input, want := range map[string]snapshot.Format{"yaml": snapshot.YAML, "YML": snapshot.YAML, "Json": snapshot.JSON} {
		format, err := snapshot.ParseFormat(input)
		require.NoError(t, err)
		assert.Equal(t, want, format)
	}
	_, err := snapshot.ParseFormat("xml")
	assert.ErrorIs(t, err, snapshot.ErrUnknownFormat)
	assert.ErrorIs(t, snapshot.Encode(&bytes.Buffer{}, snapshot.Snapshot{}, "xml"), snapshot.ErrUnknownFormat)
	_, err = snapshot.Decode(&bytes.Buffer{}, "xml")
	assert.ErrorIs(t, err, snapshot.ErrUnknownFormat)
	assert.Equal(t, ".json", snapshot.JSON.Extension())
}
