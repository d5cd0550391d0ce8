package testutil

import "github.com/zjrosen/pflow/internal/content"

func defaultHit(x, y float64) content.CaloHitParameters {
	return content.CaloHitParameters{
		Position: content.Vector{X: x, Y: y},
		Energy:   1,
		CellSize: 10,
		Detector: content.ECal,
	}
}

// HitOption configures a hit during builder setup.
type HitOption func(*content.CaloHitParameters)

// Energy sets the hit energy in GeV.
func Energy(e float64) HitOption {
	return func(h *content.CaloHitParameters) { h.Energy = e }
}

// Layer sets the physical layer.
func Layer(l uint32) HitOption {
	return func(h *content.CaloHitParameters) { h.Layer = l }
}

// Z sets the z coordinate.
func Z(z float64) HitOption {
	return func(h *content.CaloHitParameters) { h.Position.Z = z }
}

// InHCal places the hit in the hadronic calorimeter.
func InHCal() HitOption {
	return func(h *content.CaloHitParameters) { h.Detector = content.HCal }
}

// TrackOption configures a track during builder setup.
type TrackOption func(*content.TrackParameters)

// Charge sets the track charge.
func Charge(q int) TrackOption {
	return func(t *content.TrackParameters) { t.Charge = q }
}

// AtECal sets where the track enters the calorimeter.
func AtECal(pos content.Vector) TrackOption {
	return func(t *content.TrackParameters) { t.StateAtECal.Position = pos }
}
