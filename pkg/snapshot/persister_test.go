package snapshot_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stateforward/statechart.go/pkg/snapshot"
)

func TestFilePersister(t *testing.T) {
	_, snap := taken(t)
	ctx := context.Background()
	for _, format := range []snapshot.Format{"", snapshot.YAML, snapshot.JSON} {
		t.Run(string(format), func(t *testing.T) {
			persister := snapshot.FilePersister{Dir: filepath.Join(t.TempDir(), "state"), Format: format}
			require.NoError(t, persister.Save(ctx, snap))
			_, err := os.Stat(persister.Path(snap.ID))
			require.NoError(t, err)

			loaded, err := persister.Load(ctx, snap.ID)
			require.NoError(t, err)
			if diff := cmp.Diff(snap, loaded); diff != "" {
				t.Errorf("load mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilePersisterOverwrites(t *testing.T) {
	model, snap := taken(t)
	ctx := context.Background()
	persister := snapshot.FilePersister{Dir: t.TempDir()}
	require.NoError(t, persister.Save(ctx, snap))
	snap.Current["/lamp/default"] = "/lamp/default/on"
	require.NoError(t, persister.Save(ctx, snap))
	loaded, err := persister.Load(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, "/lamp/default/on", loaded.Current["/lamp/default"])
	assert.NoError(t, loaded.Validate(model))

	entries, err := os.ReadDir(persister.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no pending files left behind")
	assert.Equal(t, snap.ID+".yaml", entries[0].Name())
}

func TestFilePersisterKeepsData(t *testing.T) {
	_, snap := taken(t)
	snap.Data = map[string]string{"level": "3"}
	persister := snapshot.FilePersister{Dir: t.TempDir(), Format: snapshot.JSON}
	require.NoError(t, persister.Save(context.Background(), snap))
	loaded, err := persister.Load(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.Data, loaded.Data)
}

func TestFilePersisterErrors(t *testing.T) {
	ctx := context.Background()
	persister := snapshot.FilePersister{Dir: t.TempDir()}

	_, err := persister.Load(ctx, "missing")
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.ErrorIs(t, persister.Save(ctx, snapshot.Snapshot{Machine: "lamp"}), snapshot.ErrMismatch)

	for _, id := range []string{"../escape", "a/b", `a\b`, ".."} {
		assert.ErrorIs(t, persister.Save(ctx, snapshot.Snapshot{ID: id}), snapshot.ErrInvalidID, id)
		_, err = persister.Load(ctx, id)
		assert.ErrorIs(t, err, snapshot.ErrInvalidID, id)
	}
	entries, err := os.ReadDir(filepath.Dir(persister.Dir))
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotEqual(t, "escape.yaml", entry.Name())
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, persister.Save(cancelled, snapshot.Snapshot{ID: "x"}), context.Canceled)
	_, err = persister.Load(cancelled, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
