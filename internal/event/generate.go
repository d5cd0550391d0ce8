package event

import (
	"math"
	"math/rand/v2"

	"github.com/zjrosen/pflow/internal/content"
)

// GenerateOptions shape synthetic events.
type GenerateOptions struct {
	Seed           uint64
	Events         int
	ParticlesPerEv int
	ChargedFrac    float64
	MinEnergy      float64
	MaxEnergy      float64
	ECalRadius     float64
	ECalLayers     int
	HCalLayers     int
	HitsPerGeV     float64
}

// DefaultGenerateOptions matches the default detector geometry.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Seed:           1,
		Events:         10,
		ParticlesPerEv: 4,
		ChargedFrac:    0.6,
		MinEnergy:      1,
		MaxEnergy:      20,
		ECalRadius:     1850,
		ECalLayers:     30,
		HCalLayers:     48,
		HitsPerGeV:     6,
	}
}

// Generate produces deterministic events of particle showers in the barrel.
// Charged particles also get a track pointing at their shower.
func Generate(opts GenerateOptions) []Event {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	events := make([]Event, 0, opts.Events)
	for i := 0; i < opts.Events; i++ {
		ev := Event{Index: i}
		for p := 0; p < opts.ParticlesPerEv; p++ {
			generateParticle(rng, opts, &ev)
		}
		events = append(events, ev)
	}
	return events
}

func generateParticle(rng *rand.Rand, opts GenerateOptions, ev *Event) {
	energy := opts.MinEnergy + rng.Float64()*(opts.MaxEnergy-opts.MinEnergy)
	phi := rng.Float64() * 2 * math.Pi
	z := (rng.Float64() - 0.5) * 2000
	dir := content.Vector{X: math.Cos(phi), Y: math.Sin(phi), Z: z / opts.ECalRadius}.Unit()
	entry := dir.Scale(opts.ECalRadius / math.Hypot(dir.X, dir.Y))

	hadronic := rng.Float64() < 0.5
	nHits := max(1, int(energy*opts.HitsPerGeV))
	for h := 0; h < nHits; h++ {
		var (
			det   = content.ECal
			layer int
		)
		if hadronic && rng.Float64() < 0.7 {
			det = content.HCal
			layer = rng.IntN(max(1, opts.HCalLayers/2))
		} else {
			layer = rng.IntN(max(1, opts.ECalLayers/2))
		}
		depth := float64(layer) * 5
		if det == content.HCal {
			depth = 210 + float64(layer)*25
		}
		spread := content.Vector{X: rng.NormFloat64() * 8, Y: rng.NormFloat64() * 8, Z: rng.NormFloat64() * 8}
		pos := entry.Add(dir.Scale(depth)).Add(spread)
		ev.CaloHits = append(ev.CaloHits, content.CaloHitParameters{
			Position: round(pos),
			Energy:   math.Round(energy/float64(nHits)*1000) / 1000,
			CellSize: 10,
			Layer:    uint32(layer),
			Detector: det,
		})
	}

	if rng.Float64() < opts.ChargedFrac {
		charge := 1
		if rng.IntN(2) == 0 {
			charge = -1
		}
		mom := round(dir.Scale(energy))
		ev.Tracks = append(ev.Tracks, content.TrackParameters{
			Momentum:    mom,
			Charge:      charge,
			StateAtECal: content.TrackState{Position: round(entry), Momentum: mom},
		})
	}
}

func round(v content.Vector) content.Vector {
	r := func(f float64) float64 { return math.Round(f*100) / 100 }
	return content.Vector{X: r(v.X), Y: r(v.Y), Z: r(v.Z)}
}
