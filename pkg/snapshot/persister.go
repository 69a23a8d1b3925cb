package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// FilePersister keeps one file per instance ID under Dir. Writes go through a
// pending file that is fsynced and renamed into place, so a crash leaves either
// the previous snapshot or the new one.
type FilePersister struct {
	Dir    string
	Format Format
}

func (p FilePersister) format() Format {
	if p.Format == "" {
		return YAML
	}
	return p.Format
}

// ErrInvalidID is returned for an instance ID that cannot name a file inside Dir.
var ErrInvalidID = errors.New("invalid instance id")

func checkID(id string) error {
	if id == "" || id == "." || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Path returns the file holding the snapshot of id.
func (p FilePersister) Path(id string) string {
	return filepath.Join(p.Dir, id+p.format().Extension())
}

// Save writes snapshot under its ID.
func (p FilePersister) Save(ctx context.Context, snapshot Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snapshot.ID == "" {
		return fmt.Errorf("%w: snapshot without id", ErrMismatch)
	}
	if err := checkID(snapshot.ID); err != nil {
		return err
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", p.Dir, err)
	}
	var buffer bytes.Buffer
	if err := Encode(&buffer, snapshot, p.format()); err != nil {
		return err
	}
	fn := p.Path(snapshot.ID)
	if err := renameio.WriteFile(fn, buffer.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	return nil
}

// Load reads the snapshot saved under id. A missing file yields an error
// wrapping os.ErrNotExist.
func (p FilePersister) Load(ctx context.Context, id string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if err := checkID(id); err != nil {
		return Snapshot{}, err
	}
	fn := p.Path(id)
	file, err := os.Open(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("instance %q: %w", id, os.ErrNotExist)
		}
		return Snapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}
	defer file.Close()
	snapshot, err := Decode(file, p.format())
	if err != nil {
		return Snapshot{}, err
	}
	snapshot.ID = id
	return snapshot, nil
}
