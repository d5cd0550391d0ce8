package content

import (
	"errors"
	"fmt"
)

// ErrNotMergeable is returned by Merge on object types that never merge.
var ErrNotMergeable = errors.New("objects of this type cannot be merged")

// Detector names the calorimeter a hit was recorded in.
type Detector string

const (
	ECal Detector = "ecal"
	HCal Detector = "hcal"
)

// CaloHitParameters describe a hit as read from an event.
type CaloHitParameters struct {
	Position Vector   `yaml:"position"`
	Energy   float64  `yaml:"energy"`
	CellSize float64  `yaml:"cell_size"`
	Layer    uint32   `yaml:"layer"`
	Detector Detector `yaml:"detector"`

	// PseudoLayer is filled in by the pipeline from the geometry before
	// the hit is created.
	PseudoLayer uint32 `yaml:"-"`
}

// CaloHit is an immutable calorimeter energy deposit.
type CaloHit struct {
	Position    Vector
	Energy      float64
	CellSize    float64
	Layer       uint32
	PseudoLayer uint32
	Detector    Detector
}

// NewCaloHit validates p and builds a hit.
func NewCaloHit(p CaloHitParameters) (*CaloHit, error) {
	if p.Energy < 0 {
		return nil, fmt.Errorf("calo hit energy %.3f is negative", p.Energy)
	}
	if p.CellSize <= 0 {
		return nil, fmt.Errorf("calo hit cell size %.3f must be positive", p.CellSize)
	}
	switch p.Detector {
	case ECal, HCal:
	case "":
		p.Detector = ECal
	default:
		return nil, fmt.Errorf("unknown detector %q", p.Detector)
	}
	return &CaloHit{
		Position:    p.Position,
		Energy:      p.Energy,
		CellSize:    p.CellSize,
		Layer:       p.Layer,
		PseudoLayer: p.PseudoLayer,
		Detector:    p.Detector,
	}, nil
}

func (h *CaloHit) Merge(*CaloHit) error { return ErrNotMergeable }

func (h *CaloHit) IsEmpty() bool { return false }
