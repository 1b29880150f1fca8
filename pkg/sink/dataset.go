package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

// Dataset formats.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

// Dataset writes profiles as a JSON array or as JSON lines.
type Dataset struct {
	w      io.Writer
	path   string
	format string
}

// NewDataset writes to path, or to stdout when path is empty or "-".
func NewDataset(path, format string) (*Dataset, error) {
	switch format {
	case "", FormatJSON:
		format = FormatJSON
	case FormatJSONL:
	default:
		return nil, &profile.ConfigError{Field: "output_format", Reason: fmt.Sprintf("unknown format %q", format)}
	}
	d := &Dataset{path: path, format: format}
	if path == "" || path == "-" {
		d.w = os.Stdout
		d.path = ""
	}
	return d, nil
}

// NewDatasetWriter writes to w.
func NewDatasetWriter(w io.Writer, format string) *Dataset {
	if format != FormatJSONL {
		format = FormatJSON
	}
	return &Dataset{w: w, format: format}
}

// Name implements Sink.
func (d *Dataset) Name() string {
	if d.path != "" {
		return "dataset:" + d.path
	}
	return "dataset"
}

// Save implements Sink. A file target is replaced atomically.
func (d *Dataset) Save(_ context.Context, profiles []profile.ScoredProfile) error {
	if d.path == "" {
		return d.encode(d.w, profiles)
	}
	tmp, err := os.CreateTemp(filepath.Dir(d.path), ".dataset-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename
	if err := d.encode(tmp, profiles); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("rename dataset: %w", err)
	}
	return nil
}

func (d *Dataset) encode(w io.Writer, profiles []profile.ScoredProfile) error {
	enc := json.NewEncoder(w)
	if d.format == FormatJSONL {
		for i := range profiles {
			if err := enc.Encode(&profiles[i]); err != nil {
				return fmt.Errorf("encode %s: %w", profiles[i].Key(), err)
			}
		}
		return nil
	}
	enc.SetIndent("", "  ")
	if profiles == nil {
		profiles = []profile.ScoredProfile{}
	}
	if err := enc.Encode(profiles); err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return nil
}
