// Package event reads and writes reconstruction input events.
//
// An event file is a YAML document holding a list of events:
//
//	events:
//	  - index: 0
//	    calo_hits:
//	      - {position: {x: 1850, y: 0, z: 10}, energy: 0.5, cell_size: 10, layer: 0, detector: ecal}
//	    tracks:
//	      - {momentum: {x: 5, y: 0, z: 0}, charge: 1, state_at_ecal: {position: {x: 1850, y: 0, z: 0}, momentum: {x: 5, y: 0, z: 0}}}
package event

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/pflow/internal/content"
)

// Event is one bunch crossing worth of input objects.
type Event struct {
	Index    int                         `yaml:"index"`
	CaloHits []content.CaloHitParameters `yaml:"calo_hits"`
	Tracks   []content.TrackParameters   `yaml:"tracks"`
}

// File is the on-disk event container.
type File struct {
	Events []Event `yaml:"events"`
}

// Read decodes an event file from r.
func Read(r io.Reader) ([]Event, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode events: %w", err)
	}
	for i := range f.Events {
		if err := f.Events[i].Validate(); err != nil {
			return nil, fmt.Errorf("event %d: %w", f.Events[i].Index, err)
		}
	}
	return f.Events, nil
}

// ReadFile reads the events stored at path.
func ReadFile(path string) ([]Event, error) {
	fh, err := os.Open(path) // #nosec G304 -- path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer func() { _ = fh.Close() }()
	return Read(fh)
}

// Write encodes events to w.
func Write(w io.Writer, events []Event) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(File{Events: events}); err != nil {
		return fmt.Errorf("encode events: %w", err)
	}
	return enc.Close()
}

// WriteFile writes events to path, replacing any existing file.
func WriteFile(path string, events []Event) error {
	fh, err := os.Create(path) // #nosec G304 -- path comes from the command line
	if err != nil {
		return fmt.Errorf("create events: %w", err)
	}
	if err := Write(fh, events); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

// Validate checks the parameters of every object in e.
func (e Event) Validate() error {
	var errs []error
	for i, p := range e.CaloHits {
		if _, err := content.NewCaloHit(p); err != nil {
			errs = append(errs, fmt.Errorf("calo hit %d: %w", i, err))
		}
	}
	for i, p := range e.Tracks {
		if _, err := content.NewTrack(p); err != nil {
			errs = append(errs, fmt.Errorf("track %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
