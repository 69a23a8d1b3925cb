// Package snapshot captures the active configuration of an instance so it can
// be stored and later restored into a fresh store, as YAML or JSON.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stateforward/statechart.go"
	"github.com/stateforward/statechart.go/kind"
)

// Format selects the encoding of a snapshot.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

var (
	// ErrUnknownFormat is returned for a Format other than YAML or JSON.
	ErrUnknownFormat = errors.New("unknown snapshot format")
	// ErrMismatch is returned when a snapshot does not fit the model it is validated against.
	ErrMismatch = errors.New("snapshot does not match model")
)

// ParseFormat accepts "yaml", "yml" and "json" in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return YAML, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Extension returns the file extension used for format.
func (format Format) Extension() string {
	return "." + string(format)
}

// Snapshot is the serialisable configuration of one instance. Current maps a
// region qualified name to its active state; History maps a region to the
// state it held when last exited. Data carries the instance's own variables,
// which the store does not know about; the caller fills and reads it.
type Snapshot struct {
	Machine string            `json:"machine" yaml:"machine"`
	ID      string            `json:"id" yaml:"id"`
	Taken   time.Time         `json:"taken" yaml:"taken"`
	Current map[string]string `json:"current" yaml:"current"`
	History map[string]string `json:"history,omitempty" yaml:"history,omitempty"`
	Data    map[string]string `json:"data,omitempty" yaml:"data,omitempty"`
}

// Take copies the content of store.
func Take(machine string, store *statechart.Store) Snapshot {
	snapshot := Snapshot{
		Machine: machine,
		ID:      store.ID(),
		Taken:   time.Now().UTC(),
		Current: map[string]string{},
	}
	for key, state := range store.Snapshot() {
		if region, ok := strings.CutSuffix(key, statechart.HistorySuffix); ok {
			if snapshot.History == nil {
				snapshot.History = map[string]string{}
			}
			snapshot.History[region] = state
			continue
		}
		snapshot.Current[key] = state
	}
	return snapshot
}

// Entries merges Current and History back into store keys.
func (snapshot Snapshot) Entries() map[string]string {
	entries := maps.Clone(snapshot.Current)
	if entries == nil {
		entries = map[string]string{}
	}
	for region, state := range snapshot.History {
		entries[statechart.HistoryKey(region)] = state
	}
	return entries
}

// Apply replaces the content of store with the snapshot.
func (snapshot Snapshot) Apply(store *statechart.Store) {
	store.Restore(snapshot.Entries())
}

// Validate checks that every region and state named by the snapshot exists in
// model and that every state is a direct child of its region.
func (snapshot Snapshot) Validate(model *statechart.Model) error {
	if snapshot.Machine != model.Name() {
		return fmt.Errorf("%w: machine %q, model %q", ErrMismatch, snapshot.Machine, model.Name())
	}
	var errs []error
	check := func(region, state string) {
		if k, ok := model.Lookup(region); !ok || !kind.Is(k, statechart.RegionKind) {
			errs = append(errs, fmt.Errorf("%w: unknown region %s", ErrMismatch, region))
			return
		}
		if k, ok := model.Lookup(state); !ok || !kind.Is(k, statechart.StateKind) {
			errs = append(errs, fmt.Errorf("%w: unknown state %s", ErrMismatch, state))
			return
		}
		if path.Dir(state) != region {
			errs = append(errs, fmt.Errorf("%w: state %s is not in region %s", ErrMismatch, state, region))
		}
	}
	for region, state := range snapshot.Current {
		check(region, state)
	}
	for region, state := range snapshot.History {
		check(region, state)
	}
	return errors.Join(errs...)
}

// Encode writes snapshot to writer in format.
func Encode(writer io.Writer, snapshot Snapshot, format Format) error {
	switch format {
	case YAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(2)
		if err := encoder.Encode(snapshot); err != nil {
			return fmt.Errorf("yaml encode: %w", err)
		}
		return encoder.Close()
	case JSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(snapshot); err != nil {
			return fmt.Errorf("json encode: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Decode reads a snapshot in format from reader.
func Decode(reader io.Reader, format Format) (Snapshot, error) {
	var snapshot Snapshot
	switch format {
	case YAML:
		if err := yaml.NewDecoder(reader).Decode(&snapshot); err != nil {
			return Snapshot{}, fmt.Errorf("yaml decode: %w", err)
		}
	case JSON:
		if err := json.NewDecoder(reader).Decode(&snapshot); err != nil {
			return Snapshot{}, fmt.Errorf("json decode: %w", err)
		}
	default:
		return Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return snapshot, nil
}
