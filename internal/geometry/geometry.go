// Package geometry maps calorimeter layers onto a common pseudo-layer scale
// so that ECal and HCal hits can be ordered by depth.
package geometry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/zjrosen/pflow/internal/cachemanager"
	"github.com/zjrosen/pflow/internal/content"
	"github.com/zjrosen/pflow/internal/log"
)

// Config holds the detector dimensions in millimetres.
type Config struct {
	ECalInnerRadius    float64       `mapstructure:"ecal_inner_radius"`
	ECalEndCapZ        float64       `mapstructure:"ecal_endcap_z"`
	ECalLayerThickness float64       `mapstructure:"ecal_layer_thickness"`
	HCalInnerRadius    float64       `mapstructure:"hcal_inner_radius"`
	HCalEndCapZ        float64       `mapstructure:"hcal_endcap_z"`
	HCalLayerThickness float64       `mapstructure:"hcal_layer_thickness"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	DisableCache       bool          `mapstructure:"disable_cache"`
}

// DefaultConfig returns an ILD-like detector.
func DefaultConfig() Config {
	return Config{
		ECalInnerRadius:    1850,
		ECalEndCapZ:        2450,
		ECalLayerThickness: 5,
		HCalInnerRadius:    2060,
		HCalEndCapZ:        2650,
		HCalLayerThickness: 25,
		CacheTTL:           cachemanager.NoExpiration,
	}
}

// Validate reports dimensions that cannot describe a detector.
func (c Config) Validate() error {
	var errs []error
	if c.ECalLayerThickness <= 0 || c.HCalLayerThickness <= 0 {
		errs = append(errs, errors.New("layer thickness must be positive"))
	}
	if c.HCalInnerRadius < c.ECalInnerRadius {
		errs = append(errs, fmt.Errorf("hcal inner radius %.1f inside ecal inner radius %.1f", c.HCalInnerRadius, c.ECalInnerRadius))
	}
	if c.HCalEndCapZ < c.ECalEndCapZ {
		errs = append(errs, fmt.Errorf("hcal endcap z %.1f inside ecal endcap z %.1f", c.HCalEndCapZ, c.ECalEndCapZ))
	}
	return errors.Join(errs...)
}

// LayerKey identifies one physical layer, e.g. "hcal/barrel/12".
type LayerKey string

type region string

const (
	barrel region = "barrel"
	endcap region = "endcap"
)

type layerInput struct {
	detector content.Detector
	region   region
	layer    uint32
}

// Calculator assigns pseudo layers, memoizing one result per physical layer.
type Calculator struct {
	cfg   Config
	cache *cachemanager.ReadThroughCache[LayerKey, uint32, layerInput]
}

// NewCalculator validates cfg and fronts the layer computation with cache.
func NewCalculator(cfg Config, cache cachemanager.CacheManager[LayerKey, uint32]) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}
	c := &Calculator{cfg: cfg}
	c.cache = cachemanager.NewReadThroughCache[LayerKey, uint32, layerInput](cache, c.compute, cfg.DisableCache)
	return c, nil
}

// PseudoLayer returns the pseudo layer of a hit. ECal layer n maps to
// pseudo layer n+1; HCal layers map by depth onto the ECal layer pitch.
func (c *Calculator) PseudoLayer(ctx context.Context, p content.CaloHitParameters) (uint32, error) {
	det := p.Detector
	if det == "" {
		det = content.ECal
	}
	in := layerInput{detector: det, region: c.regionOf(det, p.Position), layer: p.Layer}
	key := LayerKey(fmt.Sprintf("%s/%s/%d", in.detector, in.region, in.layer))
	return c.cache.Get(ctx, key, in, c.cfg.CacheTTL)
}

// Stats reports cache effectiveness.
func (c *Calculator) Stats() cachemanager.Stats {
	return c.cache.Stats()
}

func (c *Calculator) regionOf(det content.Detector, pos content.Vector) region {
	endcapZ := c.cfg.ECalEndCapZ
	if det == content.HCal {
		endcapZ = c.cfg.HCalEndCapZ
	}
	if math.Abs(pos.Z) < endcapZ {
		return barrel
	}
	return endcap
}

func (c *Calculator) compute(_ context.Context, in layerInput) (uint32, error) {
	var depth float64
	switch in.detector {
	case content.ECal:
		depth = float64(in.layer) * c.cfg.ECalLayerThickness
	case content.HCal:
		offset := c.cfg.HCalInnerRadius - c.cfg.ECalInnerRadius
		if in.region == endcap {
			offset = c.cfg.HCalEndCapZ - c.cfg.ECalEndCapZ
		}
		depth = offset + float64(in.layer)*c.cfg.HCalLayerThickness
	default:
		return 0, fmt.Errorf("unknown detector %q", in.detector)
	}
	pseudo := uint32(math.Floor(depth/c.cfg.ECalLayerThickness)) + 1
	log.Debug(log.CatCache, "pseudo layer computed",
		"detector", in.detector, "region", in.region, "layer", in.layer, "pseudo_layer", pseudo)
	return pseudo, nil
}
